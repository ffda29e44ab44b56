package eviction

import "errors"

// Sentinel errors returned by Evict. Busy and Rejected are expected,
// recoverable outcomes the caller's eviction policy should retry or skip
// on, not failures.
var (
	// ErrBusy is returned when exclusive access to the candidate page
	// could not be obtained because a reader's hazard reference still
	// names it, and the caller did not set Wait.
	ErrBusy = errors.New("eviction: page busy, hazard reference held")

	// ErrRejected is returned when the subtree review found a descendant
	// that cannot legally be folded into the candidate page.
	ErrRejected = errors.New("eviction: subtree not eligible for eviction")

	// ErrSplitMergeRoot would indicate a merge-split page presented
	// directly as an eviction candidate; Evict never returns this as an
	// error, it handles the case internally per invariant 1, but the
	// value is exposed for tests and logging.
	ErrSplitMergeRoot = errors.New("eviction: split-merge page is not a direct eviction target")

	// ErrBadOutcome is a logic error: reconciliation produced an outcome
	// the committing step cannot handle (anything other than
	// Replace/Split/Empty for a parent update, anything other than
	// Replace/Split for a root split).
	ErrBadOutcome = errors.New("eviction: reconciler produced an unrecognized outcome")
)

// AssertionError marks a detected-impossible state: a violation of an
// invariant this package relies on elsewhere (e.g. a Locked Ref found in
// a state other than Locked during unwind). These are fatal for the
// eviction attempt in progress; the core makes no attempt to recover
// from them, per spec §7.
type AssertionError struct {
	Msg string
}

func (e *AssertionError) Error() string { return "eviction: assertion failed: " + e.Msg }

func assertionFailed(msg string) error { return &AssertionError{Msg: msg} }
