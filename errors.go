package docpaging

import "errors"

// Error taxonomy shared by all packages. Callers classify failures with
// errors.Is; wrapped context is added at each layer with friendsofgo/errors.
var (
	// ErrQueryFailed is returned when a gateway read fails or a predicate
	// is malformed.
	ErrQueryFailed = errors.New("query failed")

	// ErrWriteFailed is returned when a create, update, or delete is
	// rejected by the gateway.
	ErrWriteFailed = errors.New("write failed")

	// ErrNotFound is returned when an operation references a record id that
	// is no longer present.
	ErrNotFound = errors.New("record not found")

	// ErrStaleOperation marks a read that was superseded by a newer one.
	// It is internal to the controller: superseded reads are discarded and
	// the sentinel is never surfaced to callers.
	ErrStaleOperation = errors.New("operation superseded")

	// ErrLedgerGap is returned when a cursor ledger push would skip a page.
	ErrLedgerGap = errors.New("ledger entry out of sequence")
)
