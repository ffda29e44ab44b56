package eviction

import "context"

// Reviewer walks an internal page's in-memory
// children, acquires exclusive access to every one that might be folded
// into the parent, and rejects the whole subtree the first time it finds
// a child that cannot.
type Reviewer struct {
	Acquirer *Acquirer
}

// NewReviewer builds a Reviewer backed by acquirer.
func NewReviewer(acquirer *Acquirer) *Reviewer {
	return &Reviewer{Acquirer: acquirer}
}

// Review walks page's in-memory children (page must be internal; callers
// skip this for leaves per §4.8 step 4) and returns the deepest page
// successfully locked -- the high-water mark C4 needs to unwind
// correctly on failure -- along with ErrRejected (or a bubbled ErrBusy)
// if any child could not be folded.
//
// On success the returned high-water page is the last page visited in
// traversal order; on failure it is the last page *successfully locked*
// before the rejection, which may be much shallower than the point of
// failure.
func (r *Reviewer) Review(ctx context.Context, page *Page, flags Flags) (*Page, error) {
	highWater := page
	err := r.reviewChildren(ctx, page, &highWater, flags)
	return highWater, err
}

// reviewChildren walks a single internal page's child cells in key
// order. The walk order is total: column-store children in index order,
// row-store children in key order, with no tie-breaking needed.
func (r *Reviewer) reviewChildren(ctx context.Context, parent *Page, highWater **Page, flags Flags) error {
	for _, ref := range parent.Children {
		switch ref.State() {
		case RefOnDisk:
			continue
		case RefLocked, RefReading:
			// Some other actor holds this slot: a normal in-memory
			// child that happens to be mid-read, or a page already
			// locked by a concurrent eviction of a different subtree
			// that happens to share this parent. Either way we cannot
			// proceed.
			return ErrRejected
		case RefInMemory:
		}

		child := ref.Page()
		if err := r.reviewCandidate(ctx, ref, child, flags); err != nil {
			if ref.State() == RefLocked {
				// Locked by this walk before the post-lock re-test
				// rejected it: unwind must release it too.
				*highWater = child
			}
			return err
		}

		*highWater = child

		if child.Type.IsInternal() {
			if err := r.reviewChildren(ctx, child, highWater, flags); err != nil {
				return err
			}
		}
	}
	return nil
}

// reviewCandidate implements §4.3 steps 1-3 for a single in-memory
// child: a cheap pre-lock test, the exclusive acquisition itself (unless
// the caller already holds the whole tree locked down), and the
// post-lock re-test that decides whether the child is actually
// foldable.
func (r *Reviewer) reviewCandidate(ctx context.Context, ref *Ref, page *Page, flags Flags) error {
	// Cheap test: a page with none of the foldable outcomes can never be
	// merged, no matter what we find once we lock it.
	if !page.OutcomeFlag().foldable() {
		return ErrRejected
	}

	if !flags.Has(SingleThreaded) {
		if err := r.Acquirer.AcquireExclusive(ctx, ref, flags.Has(Wait)); err != nil {
			return err
		}
	}

	return r.confirmCandidate(page)
}

// confirmCandidate re-tests the outcome flags now that the child (if
// SingleThreaded wasn't set) is locked against concurrent modification.
func (r *Reviewer) confirmCandidate(page *Page) error {
	switch page.OutcomeFlag() {
	case OutcomeSplitMerge:
		// Foldable whether clean or dirty: merge-split pages exist only
		// to be absorbed by their parent.
		return nil
	case OutcomeSplit, OutcomeEmpty:
		if page.IsModified() {
			// The parent would not yet know the child's on-disk shape.
			return ErrRejected
		}
		return nil
	default:
		return ErrRejected
	}
}
