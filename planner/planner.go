// Package planner decides how to satisfy "page N of filtered, ordered
// results" against a document-store gateway.
//
// Two strategies exist, selected per request and reported on every result:
//
//   - StrategyNative: the filter set can be expressed as store predicates
//     (at most one field needs a range pair, since document stores disallow
//     range filters on more than one field in a composite query). One
//     filtered, ordered, limited, cursor-anchored query runs remotely and
//     the total comes from the gateway's aggregation count.
//
//   - StrategyClientFiltered: the filter set needs range predicates on more
//     than one field. The full ordered collection is fetched once, filtered
//     in memory with case-insensitive prefix matching, and the requested
//     page is sliced out of the filtered list. The total is the filtered
//     list's length. This is the expensive escape hatch for multi-field
//     partial-text search; it is kept behind the same interface so its cost
//     boundary stays auditable.
//
// The planner does not retry and holds no pagination state; retries and
// cursor bookkeeping belong to the controller.
package planner

import (
	"context"
	"log/slog"
	"strings"

	"github.com/friendsofgo/errors"

	"github.com/fieldserve/docpaging"
)

// Strategy identifies how a page was produced.
type Strategy string

const (
	StrategyNative         Strategy = "native"
	StrategyClientFiltered Strategy = "client_filtered"
)

// Planner plans and executes paged reads for one collection under one
// ordering. It is stateless and safe for concurrent use.
type Planner struct {
	gateway    docpaging.Gateway
	collection string
	orderBy    []docpaging.OrderBy

	equalityFields map[string]bool
	fieldAliases   map[string]string
	scanCounts     bool
	logger         *slog.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithEqualityField marks a filter field that translates to an exact-match
// predicate instead of a prefix range. Equality predicates do not count
// against the store's one-range-field limit, so e.g. a foreign-key scope
// stays on the native path.
func WithEqualityField(field string) Option {
	return func(p *Planner) {
		p.equalityFields[field] = true
	}
}

// WithFieldAlias redirects a filter field to a different stored field,
// typically a derived lowercase copy kept for case-insensitive prefix
// search (filter "name" against stored "nameLower").
func WithFieldAlias(filterField, storedField string) Option {
	return func(p *Planner) {
		p.fieldAliases[filterField] = storedField
	}
}

// WithScanCounts makes the native strategy compute totals by re-running the
// filtered query unlimited and counting the results, instead of asking the
// gateway for an aggregation count. Exact but linear in the collection size.
func WithScanCounts() Option {
	return func(p *Planner) {
		p.scanCounts = true
	}
}

// WithLogger sets the logger used for query traces.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) {
		p.logger = logger
	}
}

// New creates a Planner for collection, ordered by orderBy (the gateway adds
// the ascending record-id tie-break).
func New(gateway docpaging.Gateway, collection string, orderBy []docpaging.OrderBy, opts ...Option) *Planner {
	p := &Planner{
		gateway:        gateway,
		collection:     collection,
		orderBy:        orderBy,
		equalityFields: make(map[string]bool),
		fieldAliases:   make(map[string]string),
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Normalize canonicalizes a raw, user-entered filter set against this
// planner's field schema: values are whitespace-trimmed, fields empty after
// trimming are dropped, and prefix-matched fields are case-folded. Equality
// fields keep their case, since they carry opaque keys such as record ids.
// Pure; the input is not modified.
func (p *Planner) Normalize(raw docpaging.FilterSet) docpaging.FilterSet {
	normalized := make(docpaging.FilterSet, len(raw))
	for field, value := range raw {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if !p.equalityFields[field] {
			value = strings.ToLower(value)
		}
		normalized[field] = value
	}
	return normalized
}

// Collection returns the collection this planner reads.
func (p *Planner) Collection() string {
	return p.collection
}

// OrderBy returns the active ordering.
func (p *Planner) OrderBy() []docpaging.OrderBy {
	return p.orderBy
}

// Request describes one page to produce. Filters must already be normalized.
// StartAfter anchors forward navigation (nil for page 0); StartAt re-derives
// a previously visited page from its own first cursor. PageIndex is used by
// the client-filtered strategy, which slices in memory instead of anchoring.
type Request struct {
	Filters    docpaging.FilterSet
	PageIndex  int
	PageSize   int
	StartAfter *docpaging.Cursor
	StartAt    *docpaging.Cursor
}

// Result is one produced page: its records, the boundary cursors for ledger
// bookkeeping, the total matching-item count, and the strategy used.
type Result struct {
	Records    []docpaging.Record
	Bound      docpaging.PageBound
	TotalItems int64
	Strategy   Strategy
}

// PlanPage produces the requested page. Gateway failures and malformed
// predicates surface as ErrQueryFailed.
func (p *Planner) PlanPage(ctx context.Context, req Request) (*Result, error) {
	predicates, native := p.compile(req.Filters)
	if native {
		return p.nativePage(ctx, req, predicates)
	}
	return p.clientFilteredPage(ctx, req)
}

// compile translates a normalized filter set into store predicates. It
// reports native=false when more than one field would need a range pair.
func (p *Planner) compile(filters docpaging.FilterSet) ([]docpaging.Predicate, bool) {
	var predicates []docpaging.Predicate
	rangeFields := 0

	for field, value := range filters {
		stored := p.storedField(field)
		if p.equalityFields[field] {
			predicates = append(predicates, docpaging.Predicate{Field: stored, Op: docpaging.OpEqual, Value: value})
			continue
		}
		predicates = append(predicates, docpaging.PrefixPredicates(stored, value)...)
		rangeFields++
	}

	return predicates, rangeFields <= 1
}

func (p *Planner) storedField(field string) string {
	if stored, ok := p.fieldAliases[field]; ok {
		return stored
	}
	return field
}

func (p *Planner) nativePage(ctx context.Context, req Request, predicates []docpaging.Predicate) (*Result, error) {
	records, err := p.gateway.QueryPage(ctx, docpaging.Query{
		Collection: p.collection,
		Predicates: predicates,
		OrderBy:    p.orderBy,
		Limit:      req.PageSize,
		StartAfter: req.StartAfter,
		StartAt:    req.StartAt,
	})
	if err != nil {
		return nil, errors.Wrapf(docpaging.ErrQueryFailed, "query %s: %v", p.collection, err)
	}

	total, err := p.countNative(ctx, predicates)
	if err != nil {
		return nil, errors.Wrapf(docpaging.ErrQueryFailed, "count %s: %v", p.collection, err)
	}

	p.logger.DebugContext(ctx, "planned native page",
		"collection", p.collection,
		"predicates", len(predicates),
		"records", len(records),
		"total", total,
	)

	return &Result{
		Records:    records,
		Bound:      boundFor(records, p.orderBy),
		TotalItems: total,
		Strategy:   StrategyNative,
	}, nil
}

func (p *Planner) countNative(ctx context.Context, predicates []docpaging.Predicate) (int64, error) {
	if !p.scanCounts {
		return p.gateway.ApproxCount(ctx, p.collection, predicates)
	}

	all, err := p.gateway.QueryPage(ctx, docpaging.Query{
		Collection: p.collection,
		Predicates: predicates,
		OrderBy:    p.orderBy,
	})
	if err != nil {
		return 0, err
	}
	return int64(len(all)), nil
}

func (p *Planner) clientFilteredPage(ctx context.Context, req Request) (*Result, error) {
	all, err := p.gateway.QueryPage(ctx, docpaging.Query{
		Collection: p.collection,
		OrderBy:    p.orderBy,
	})
	if err != nil {
		return nil, errors.Wrapf(docpaging.ErrQueryFailed, "scan %s: %v", p.collection, err)
	}

	filtered := all[:0:0]
	for _, rec := range all {
		if p.matches(rec, req.Filters) {
			filtered = append(filtered, rec)
		}
	}

	page := slicePage(filtered, req.PageIndex, req.PageSize)

	p.logger.DebugContext(ctx, "planned client-filtered page",
		"collection", p.collection,
		"examined", len(all),
		"matched", len(filtered),
		"records", len(page),
	)

	return &Result{
		Records:    page,
		Bound:      boundFor(page, p.orderBy),
		TotalItems: int64(len(filtered)),
		Strategy:   StrategyClientFiltered,
	}, nil
}

// matches evaluates the full filter set against one record: equality fields
// compare whole values, everything else is a case-insensitive prefix match.
func (p *Planner) matches(rec docpaging.Record, filters docpaging.FilterSet) bool {
	for field, value := range filters {
		stored := p.storedField(field)
		if p.equalityFields[field] {
			if rec.Field(stored) != value {
				return false
			}
			continue
		}
		if !docpaging.MatchesPrefix(rec, stored, value) {
			return false
		}
	}
	return true
}

func slicePage(records []docpaging.Record, pageIndex, pageSize int) []docpaging.Record {
	if pageSize <= 0 {
		return nil
	}
	start := pageIndex * pageSize
	if start < 0 || start >= len(records) {
		return nil
	}
	end := start + pageSize
	if end > len(records) {
		end = len(records)
	}
	return records[start:end]
}

func boundFor(records []docpaging.Record, orderBy []docpaging.OrderBy) docpaging.PageBound {
	if len(records) == 0 {
		return docpaging.PageBound{}
	}
	return docpaging.PageBound{
		First: docpaging.CursorFor(records[0], orderBy),
		Last:  docpaging.CursorFor(records[len(records)-1], orderBy),
	}
}
