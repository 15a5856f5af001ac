package docpaging

import "github.com/friendsofgo/errors"

// PageBound records the boundary cursors of one fetched page.
type PageBound struct {
	First Cursor
	Last  Cursor
}

// Ledger is the per-session stack of page boundaries, one entry per page
// visited under the current filter set and ordering. Entry i corresponds to
// page i, which makes forward navigation O(1) (anchor after entry[i].Last)
// and backward navigation a lookup (re-derive page i from entry[i].First)
// instead of a re-scan.
//
// The ledger only ever grows by one page at a time; random-access jumps to
// unvisited pages are not supported, matching the cursor-relative nature of
// the underlying store. It must be Reset whenever filters or ordering change.
//
// Ledger is a plain value type with no hidden references; it is not safe for
// concurrent use and is owned by a single controller.
type Ledger struct {
	entries []PageBound
}

// Len returns the number of pages visited so far.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Push appends the boundary entry for page pageIndex. The entry must be for
// the next unvisited page; anything else indicates the caller skipped a page
// and is rejected with ErrLedgerGap.
func (l *Ledger) Push(pageIndex int, bound PageBound) error {
	if pageIndex != len(l.entries) {
		return errors.Wrapf(ErrLedgerGap, "push page %d with %d pages visited", pageIndex, len(l.entries))
	}
	l.entries = append(l.entries, bound)
	return nil
}

// Pop removes the most recent entry. It is a no-op on an empty ledger.
func (l *Ledger) Pop() {
	if len(l.entries) == 0 {
		return
	}
	l.entries = l.entries[:len(l.entries)-1]
}

// Get returns the stored boundary for pageIndex, or ok=false when that page
// has not been visited forward yet.
func (l *Ledger) Get(pageIndex int) (PageBound, bool) {
	if pageIndex < 0 || pageIndex >= len(l.entries) {
		return PageBound{}, false
	}
	return l.entries[pageIndex], true
}

// Replace overwrites the boundary for an already-visited page, keeping the
// ledger in step when a page is re-fetched and its boundaries moved.
func (l *Ledger) Replace(pageIndex int, bound PageBound) {
	if pageIndex < 0 || pageIndex >= len(l.entries) {
		return
	}
	l.entries[pageIndex] = bound
}

// Truncate drops entries until at most length pages remain.
func (l *Ledger) Truncate(length int) {
	if length < 0 {
		length = 0
	}
	if length < len(l.entries) {
		l.entries = l.entries[:length]
	}
}

// Reset empties the ledger.
func (l *Ledger) Reset() {
	l.entries = nil
}
