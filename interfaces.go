// Package docpaging provides cursor-based pagination and client-side
// filtering over an ordered, filterable document store.
//
// The package is the data layer behind an admin listing view: it reconciles
// a remote paged collection with local page state, keeps stable page cursors
// across forward/backward navigation, and supports an arbitrary combination
// of prefix/equality filters even where the store's native query language
// cannot express them.
//
// The root package holds the shared contract types. Strategy and adapter
// packages build on them:
//   - planner: decides between a native store query and client-side filtering
//   - controller: owns page state and the load/next/previous/write operations
//   - firestore: Gateway adapter for Cloud Firestore
//   - memory: in-memory Gateway for tests and local development
package docpaging

import (
	"context"
	"time"
)

// Record is a single document as returned by a Gateway. The ID is assigned
// by the store and is stable and unique within its collection. Field values
// live in Data; CreatedAt/UpdatedAt are server-assigned.
type Record struct {
	ID        string
	Data      map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Field returns the string value of a data field, or "" when the field is
// absent or not a string.
func (r Record) Field(name string) string {
	s, _ := r.Data[name].(string)
	return s
}

// Operator is a predicate comparison operator understood by gateways.
type Operator string

const (
	OpEqual          Operator = "=="
	OpGreaterOrEqual Operator = ">="
	OpLessOrEqual    Operator = "<="
)

// Predicate is a single field comparison evaluated remotely by the store.
type Predicate struct {
	Field string
	Op    Operator
	Value any
}

// OrderBy is a sort directive for query results.
type OrderBy struct {
	Field string
	Desc  bool
}

// Cursor is an opaque reference to a record's position within an ordered
// query result. Values holds the record's sort-field values keyed by field
// name; DocID is the record id used as the final tie-break.
type Cursor struct {
	Values map[string]any
	DocID  string
}

// CursorFor builds the cursor for a record under the given ordering.
func CursorFor(rec Record, orderBy []OrderBy) Cursor {
	values := make(map[string]any, len(orderBy))
	for _, ob := range orderBy {
		values[ob.Field] = rec.Data[ob.Field]
	}
	return Cursor{Values: values, DocID: rec.ID}
}

// Query describes one paged read against a collection. StartAfter resumes
// iteration immediately after the cursor (forward navigation); StartAt
// resumes at the cursor itself (re-deriving a previously visited page).
// At most one of the two is set.
type Query struct {
	Collection string
	Predicates []Predicate
	OrderBy    []OrderBy
	Limit      int
	StartAfter *Cursor
	StartAt    *Cursor
}

// Gateway is the remote document-database client consumed by the planner and
// controller. Implementations must order results by Query.OrderBy with a
// final ascending tie-break on record id, so that cursors are unambiguous.
//
// The gateway is an explicitly constructed, passed-down instance; nothing in
// this module holds a process-wide handle.
type Gateway interface {
	// QueryPage runs an ordered, limited, optionally cursor-anchored and
	// predicate-filtered query and returns the matching records.
	QueryPage(ctx context.Context, q Query) ([]Record, error)

	// ApproxCount returns the number of records matching the predicates.
	// Implementations may serve this from an aggregation rather than a scan.
	ApproxCount(ctx context.Context, collection string, predicates []Predicate) (int64, error)

	// CreateRecord stores a new document and returns it with its assigned id.
	CreateRecord(ctx context.Context, collection string, data map[string]any) (Record, error)

	// GetRecord fetches a single document by id.
	GetRecord(ctx context.Context, collection, id string) (Record, error)

	// UpdateRecord overwrites the given fields of an existing document.
	// An empty field set is a no-op and succeeds without touching the store.
	UpdateRecord(ctx context.Context, collection, id string, data map[string]any) error

	// DeleteRecord removes a document. Deleting an absent id is not an error.
	DeleteRecord(ctx context.Context, collection, id string) error
}
