// Package controller owns the pagination state for one listing view: the
// current page of records, the filter set, the cursor ledger, and the
// loading/error flags, kept mutually consistent across navigation and writes.
//
// Exactly one controller instance exists per view. Reads follow a
// single-flight discipline: starting a new load marks any prior in-flight
// read as stale, and a stale read's eventual result is discarded instead of
// overwriting newer state. Writes are awaited individually and followed by a
// refresh of the read path.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	foerrors "github.com/friendsofgo/errors"

	"github.com/fieldserve/docpaging"
	"github.com/fieldserve/docpaging/planner"
)

// Snapshot is the controller state exposed to the consuming view. Records is
// a transient, possibly-stale copy of the current page, replaced wholesale on
// every successful fetch.
type Snapshot struct {
	Records []docpaging.Record
	Page    docpaging.PageState
	Loading bool
	Err     error
}

// Controller is the public-facing pagination component.
type Controller struct {
	gateway docpaging.Gateway
	planner *planner.Planner
	cfg     *docpaging.PageConfig
	logger  *slog.Logger

	mu       sync.Mutex
	gen      uint64 // generation of the newest initiated read
	loading  bool
	closed   bool
	pageSize int
	filters  docpaging.FilterSet
	ledger   docpaging.Ledger
	records  []docpaging.Record
	page     docpaging.PageState
	lastErr  error
}

// Option configures a Controller.
type Option func(*Controller)

// WithPageSize sets the page size, clamped by the page config.
func WithPageSize(size int) Option {
	return func(c *Controller) {
		c.pageSize = size
	}
}

// WithPageConfig overrides the default/max page size configuration.
func WithPageConfig(cfg *docpaging.PageConfig) Option {
	return func(c *Controller) {
		c.cfg = cfg
	}
}

// WithLogger sets the logger used for state traces.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// New creates a Controller over the planner's collection. The gateway is the
// same instance the planner reads from; the controller uses it for writes.
func New(gateway docpaging.Gateway, pl *planner.Planner, opts ...Option) *Controller {
	c := &Controller{
		gateway: gateway,
		planner: pl,
		cfg:     docpaging.NewPageConfig(),
		logger:  slog.Default(),
		filters: docpaging.FilterSet{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.pageSize = c.cfg.EffectiveSize(c.pageSize)
	return c
}

// State returns a copy of the current controller state.
func (c *Controller) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	records := make([]docpaging.Record, len(c.records))
	copy(records, c.records)
	return Snapshot{
		Records: records,
		Page:    c.page,
		Loading: c.loading,
		Err:     c.lastErr,
	}
}

// Filters returns a copy of the active normalized filter set.
func (c *Controller) Filters() docpaging.FilterSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters.Clone()
}

// Close detaches the controller from its view. Operations that resolve after
// Close no longer update state; new operations are no-ops.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.gen++
}

// Load normalizes the filters, resets the ledger and page index to zero, and
// fetches page 0. Concurrent Loads follow last-initiated-wins: an older
// response can never overwrite the state of a newer call, regardless of
// arrival order.
func (c *Controller) Load(ctx context.Context, raw docpaging.FilterSet) error {
	filters := c.planner.Normalize(raw)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.gen++
	gen := c.gen
	c.loading = true
	c.filters = filters
	c.ledger.Reset()
	pageSize := c.pageSize
	c.mu.Unlock()

	res, err := c.planner.PlanPage(ctx, planner.Request{
		Filters:  filters,
		PageSize: pageSize,
	})
	return c.apply(ctx, gen, 0, res, err, func() {
		c.ledger.Reset()
		if res != nil && len(res.Records) > 0 {
			_ = c.ledger.Push(0, res.Bound) // fresh ledger, cannot gap
		}
	})
}

// First re-loads page 0 without changing the active filters.
func (c *Controller) First(ctx context.Context) error {
	return c.Load(ctx, c.Filters())
}

// Next advances one page. It is a no-op on the last page or while another
// read is in flight.
func (c *Controller) Next(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.loading || c.page.PageIndex >= c.page.TotalPages-1 {
		c.mu.Unlock()
		return nil
	}
	bound, ok := c.ledger.Get(c.page.PageIndex)
	if !ok {
		c.mu.Unlock()
		return nil
	}
	gen := c.gen
	c.loading = true
	target := c.page.PageIndex + 1
	filters := c.filters.Clone()
	pageSize := c.pageSize
	anchor := bound.Last
	c.mu.Unlock()

	res, err := c.planner.PlanPage(ctx, planner.Request{
		Filters:    filters,
		PageIndex:  target,
		PageSize:   pageSize,
		StartAfter: &anchor,
	})
	return c.apply(ctx, gen, target, res, err, func() {
		if err := c.ledger.Push(target, res.Bound); err != nil {
			c.logger.WarnContext(ctx, "ledger push rejected", "page", target, "error", err)
		}
	})
}

// Previous steps back one page. The prior page is re-queried through the
// ledger entry for the target page rather than served from stale local data,
// since records may have changed since it was last seen. No-op on page 0 or
// while a read is in flight.
func (c *Controller) Previous(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.loading || c.page.PageIndex <= 0 {
		c.mu.Unlock()
		return nil
	}
	gen := c.gen
	c.loading = true
	target := c.page.PageIndex - 1
	filters := c.filters.Clone()
	pageSize := c.pageSize

	// Page 0 needs no cursor; later pages restart at their own first record.
	var startAt *docpaging.Cursor
	if target > 0 {
		if bound, ok := c.ledger.Get(target); ok {
			anchor := bound.First
			startAt = &anchor
		}
	}
	c.mu.Unlock()

	res, err := c.planner.PlanPage(ctx, planner.Request{
		Filters:   filters,
		PageIndex: target,
		PageSize:  pageSize,
		StartAt:   startAt,
	})
	return c.apply(ctx, gen, target, res, err, func() {
		c.ledger.Pop()
		if len(res.Records) > 0 {
			c.ledger.Replace(target, res.Bound)
		}
	})
}

// Refresh re-derives the current page with the current filters, keeping the
// page index where possible and clamping it back into range when the
// collection shrank underneath it.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.gen++
	gen := c.gen
	c.loading = true
	target := c.page.PageIndex
	filters := c.filters.Clone()
	pageSize := c.pageSize
	c.mu.Unlock()

	for {
		res, err := c.refetch(ctx, filters, pageSize, target)
		if err != nil {
			return c.apply(ctx, gen, target, nil, err, nil)
		}

		totalPages := docpaging.TotalPages(res.TotalItems, pageSize)
		clamped := docpaging.ClampPageIndex(target, totalPages)
		if clamped == target && (len(res.Records) > 0 || target == 0) {
			return c.apply(ctx, gen, target, res, nil, func() {
				c.ledger.Truncate(target + 1)
				if len(res.Records) > 0 {
					c.ledger.Replace(target, res.Bound)
				} else {
					c.ledger.Truncate(target)
				}
			})
		}

		// The page vanished; step back and try again.
		if clamped < target {
			target = clamped
		} else {
			target--
		}
	}
}

// refetch runs the query for one page during a refresh, anchored through the
// ledger the same way forward navigation was.
func (c *Controller) refetch(ctx context.Context, filters docpaging.FilterSet, pageSize, target int) (*planner.Result, error) {
	var startAfter *docpaging.Cursor
	if target > 0 {
		c.mu.Lock()
		if bound, ok := c.ledger.Get(target - 1); ok {
			anchor := bound.Last
			startAfter = &anchor
		}
		c.mu.Unlock()
	}
	return c.planner.PlanPage(ctx, planner.Request{
		Filters:    filters,
		PageIndex:  target,
		PageSize:   pageSize,
		StartAfter: startAfter,
	})
}

// Create stores a new record, then refreshes the visible page so the list
// and totals reflect the write.
func (c *Controller) Create(ctx context.Context, data map[string]any) (docpaging.Record, error) {
	rec, err := c.gateway.CreateRecord(ctx, c.planner.Collection(), data)
	if err != nil {
		err = classifyWrite(err, "create")
		c.storeErr(err)
		return docpaging.Record{}, err
	}
	if err := c.Refresh(ctx); err != nil {
		return rec, err
	}
	return rec, nil
}

// Update overwrites fields of an existing record, then refreshes.
func (c *Controller) Update(ctx context.Context, id string, data map[string]any) error {
	if err := c.gateway.UpdateRecord(ctx, c.planner.Collection(), id, data); err != nil {
		err = classifyWrite(err, "update")
		c.storeErr(err)
		return err
	}
	return c.Refresh(ctx)
}

// Remove deletes a record, then refreshes. Deleting the last record on a
// non-zero page clamps the page index back into range.
func (c *Controller) Remove(ctx context.Context, id string) error {
	if err := c.gateway.DeleteRecord(ctx, c.planner.Collection(), id); err != nil {
		err = classifyWrite(err, "delete")
		c.storeErr(err)
		return err
	}
	return c.Refresh(ctx)
}

// apply commits a finished read. A result from a superseded generation or a
// closed controller is discarded: an expected outcome, not an error, so the
// caller sees nil.
func (c *Controller) apply(ctx context.Context, gen uint64, pageIndex int, res *planner.Result, err error, commit func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.gen {
		c.logger.WarnContext(ctx, "discarding stale read",
			"page", pageIndex,
			"cause", docpaging.ErrStaleOperation,
		)
		return nil
	}

	c.loading = false
	if err != nil {
		c.lastErr = err
		return err
	}

	c.lastErr = nil
	c.records = res.Records
	c.page = docpaging.PageState{
		PageIndex:  pageIndex,
		PageSize:   c.pageSize,
		TotalItems: res.TotalItems,
		TotalPages: docpaging.TotalPages(res.TotalItems, c.pageSize),
	}
	if commit != nil {
		commit()
	}

	c.logger.DebugContext(ctx, "page committed",
		"page", pageIndex,
		"records", len(res.Records),
		"total", res.TotalItems,
		"strategy", res.Strategy,
	)
	return nil
}

func (c *Controller) storeErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.lastErr = err
	}
}

// classifyWrite maps a gateway write error into the taxonomy. NotFound passes
// through; anything not already classified becomes ErrWriteFailed.
func classifyWrite(err error, op string) error {
	if errors.Is(err, docpaging.ErrNotFound) || errors.Is(err, docpaging.ErrWriteFailed) {
		return err
	}
	return foerrors.Wrapf(docpaging.ErrWriteFailed, "%s: %v", op, err)
}
