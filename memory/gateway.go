// Package memory provides an in-memory docpaging.Gateway. It honors the same
// ordering, predicate, and cursor semantics as the Firestore adapter, which
// makes it suitable as a test double and as a local development backend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/friendsofgo/errors"
	"github.com/google/uuid"

	"github.com/fieldserve/docpaging"
)

// Gateway is an in-memory document store. The zero value is not usable; use
// New. Safe for concurrent use.
type Gateway struct {
	mu          sync.Mutex
	collections map[string]map[string]docpaging.Record
}

// New creates an empty in-memory gateway.
func New() *Gateway {
	return &Gateway{
		collections: make(map[string]map[string]docpaging.Record),
	}
}

// QueryPage filters, orders, anchors, and limits entirely in memory.
func (g *Gateway) QueryPage(_ context.Context, q docpaging.Query) ([]docpaging.Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var matched []docpaging.Record
	for _, rec := range g.collections[q.Collection] {
		ok, err := evalPredicates(rec, q.Predicates)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, cloneRecord(rec))
		}
	}

	sortRecords(matched, q.OrderBy)

	if q.StartAfter != nil {
		matched = dropUntil(matched, q.OrderBy, *q.StartAfter, false)
	} else if q.StartAt != nil {
		matched = dropUntil(matched, q.OrderBy, *q.StartAt, true)
	}

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

// ApproxCount counts matching records. In memory the count is always exact.
func (g *Gateway) ApproxCount(_ context.Context, collection string, predicates []docpaging.Predicate) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var count int64
	for _, rec := range g.collections[collection] {
		ok, err := evalPredicates(rec, predicates)
		if err != nil {
			return 0, err
		}
		if ok {
			count++
		}
	}
	return count, nil
}

// CreateRecord stores a new document under a generated UUID.
func (g *Gateway) CreateRecord(_ context.Context, collection string, data map[string]any) (docpaging.Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.collections[collection] == nil {
		g.collections[collection] = make(map[string]docpaging.Record)
	}

	now := time.Now().UTC()
	rec := docpaging.Record{
		ID:        uuid.NewString(),
		Data:      cloneData(data),
		CreatedAt: now,
		UpdatedAt: now,
	}
	g.collections[collection][rec.ID] = rec
	return cloneRecord(rec), nil
}

// GetRecord fetches one document by id.
func (g *Gateway) GetRecord(_ context.Context, collection, id string) (docpaging.Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.collections[collection][id]
	if !ok {
		return docpaging.Record{}, errors.Wrapf(docpaging.ErrNotFound, "%s/%s", collection, id)
	}
	return cloneRecord(rec), nil
}

// UpdateRecord merges the given fields into an existing document. An empty
// field set is a no-op, matching the store-backed gateway.
func (g *Gateway) UpdateRecord(_ context.Context, collection, id string, data map[string]any) error {
	if len(data) == 0 {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.collections[collection][id]
	if !ok {
		return errors.Wrapf(docpaging.ErrNotFound, "%s/%s", collection, id)
	}
	for field, value := range data {
		rec.Data[field] = value
	}
	rec.UpdatedAt = time.Now().UTC()
	g.collections[collection][id] = rec
	return nil
}

// DeleteRecord removes a document; deleting an absent id is not an error.
func (g *Gateway) DeleteRecord(_ context.Context, collection, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.collections[collection], id)
	return nil
}

func evalPredicates(rec docpaging.Record, predicates []docpaging.Predicate) (bool, error) {
	for _, p := range predicates {
		c := compareValues(rec.Data[p.Field], p.Value)
		switch p.Op {
		case docpaging.OpEqual:
			if c != 0 {
				return false, nil
			}
		case docpaging.OpGreaterOrEqual:
			if c < 0 {
				return false, nil
			}
		case docpaging.OpLessOrEqual:
			if c > 0 {
				return false, nil
			}
		default:
			return false, errors.Wrapf(docpaging.ErrQueryFailed, "unsupported operator %q", p.Op)
		}
	}
	return true, nil
}

// sortRecords orders by the sort fields with a final ascending id tie-break,
// matching the Gateway contract.
func sortRecords(records []docpaging.Record, orderBy []docpaging.OrderBy) {
	sort.SliceStable(records, func(i, j int) bool {
		for _, ob := range orderBy {
			c := compareValues(records[i].Data[ob.Field], records[j].Data[ob.Field])
			if ob.Desc {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return records[i].ID < records[j].ID
	})
}

// dropUntil discards sorted records up to the cursor position: everything at
// or before it for exclusive (start-after) anchoring, everything strictly
// before it for inclusive (start-at) anchoring.
func dropUntil(records []docpaging.Record, orderBy []docpaging.OrderBy, cursor docpaging.Cursor, inclusive bool) []docpaging.Record {
	for i, rec := range records {
		c := compareToCursor(rec, orderBy, cursor)
		if c > 0 || (inclusive && c == 0) {
			return records[i:]
		}
	}
	return nil
}

func compareToCursor(rec docpaging.Record, orderBy []docpaging.OrderBy, cursor docpaging.Cursor) int {
	for _, ob := range orderBy {
		c := compareValues(rec.Data[ob.Field], cursor.Values[ob.Field])
		if ob.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return strings.Compare(rec.ID, cursor.DocID)
}

// compareValues imposes a total order over the value types stored in
// records: nil first, then bools, numbers, times, and strings. Mixed types
// fall back to their string forms.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	if av, aok := toFloat(a); aok {
		if bv, bok := toFloat(b); bok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			default:
				return 0
			}
		}
	}

	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func cloneData(data map[string]any) map[string]any {
	c := make(map[string]any, len(data))
	for field, value := range data {
		c[field] = value
	}
	return c
}

func cloneRecord(rec docpaging.Record) docpaging.Record {
	rec.Data = cloneData(rec.Data)
	return rec
}
