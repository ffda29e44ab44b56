package eviction

import (
	"context"

	pagemanager "github.com/sushant-115/gojodb/core/write_engine/page_manager"
)

// CommitResult tells the Orchestrator what happened to the page after
// ParentUpdater.Commit / commitClean returned successfully.
type CommitResult int

const (
	// CommitEvicted means the page's parent Ref now points on-disk (or,
	// for a non-root split, at the new in-memory split page) and the
	// page itself, along with any folded descendants, must be reaped and
	// discarded by the caller.
	CommitEvicted CommitResult = iota

	// CommitKept means the page was not actually evicted (the
	// dirty/Empty/non-root case): every lock this call took has already
	// been released by Commit itself, and the caller must not touch the
	// page, its Ref, or its descendants any further.
	CommitKept
)

// ParentUpdater swings the parent Ref according
// to the reconciliation outcome and publishes the result with a release
// barrier, so concurrent readers observe either the old in-memory page
// or the new on-disk address, never a torn mix of the two.
type ParentUpdater struct {
	Tree            Tree
	Unwinder        *Unwinder
	RootSplitDriver *RootSplitDriver
}

// NewParentUpdater builds a ParentUpdater.
func NewParentUpdater(tree Tree, unwinder *Unwinder, driver *RootSplitDriver) *ParentUpdater {
	return &ParentUpdater{Tree: tree, Unwinder: unwinder, RootSplitDriver: driver}
}

// commitClean handles a page that reconciliation never touched because
// it carried no modification record: publish (page=nil, state=OnDisk).
// There are no folded descendants to worry about -- a clean page was
// never a Split/Empty/SplitMerge product -- so the result is always
// CommitEvicted.
func (p *ParentUpdater) commitClean(page *Page) (CommitResult, error) {
	parent := page.ParentRef
	parent.page = nil
	parent.setState(RefOnDisk)
	return CommitEvicted, nil
}

// Commit handles a dirty page's outcome. highWater and flags are passed
// straight through to Unwind for the one outcome (Empty, non-root) that
// doesn't actually evict anything.
func (p *ParentUpdater) Commit(ctx context.Context, page *Page, highWater *Page, flags Flags) (CommitResult, error) {
	parent := page.ParentRef
	mod := page.Modify

	switch mod.Outcome {
	case OutcomeEmpty:
		if page.IsRoot(p.Tree) {
			parent.Addr = pagemanager.InvalidPageID
			parent.page = nil
			parent.setState(RefOnDisk)
			return CommitEvicted, nil
		}
		// Not actually evicted: it will be folded in when its own
		// parent is evicted. Release every lock this call took,
		// including page's own Ref, and leave the tree exactly as it
		// was modulo the (harmless) Empty/dirty flags already on page.
		if err := p.Unwinder.Unwind(page, highWater, flags); err != nil {
			return 0, err
		}
		return CommitKept, nil

	case OutcomeReplace:
		parent.Addr = mod.Addr
		parent.Size = mod.Size
		parent.page = nil
		parent.setState(RefOnDisk)
		return CommitEvicted, nil

	case OutcomeSplit:
		if page.IsRoot(p.Tree) {
			if err := p.RootSplitDriver.Run(ctx, mod.SplitPage); err != nil {
				return 0, err
			}
			parent.page = nil
			parent.setState(RefOnDisk)
			return CommitEvicted, nil
		}
		parent.page = mod.SplitPage
		parent.setState(RefInMemory)
		return CommitEvicted, nil

	default:
		return 0, ErrBadOutcome
	}
}
