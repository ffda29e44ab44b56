package eviction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newReviewer() *Reviewer {
	return NewReviewer(NewAcquirer(NewHazardTable(), nil, nil))
}

func TestReviewAcceptsAllFoldableChildren(t *testing.T) {
	r := newReviewer()

	splitMergeChild := NewPage(RowLeaf)
	splitMergeChild.Modify = &Modification{Outcome: OutcomeSplitMerge}
	splitMergeRef := NewInMemoryRef(splitMergeChild)

	emptyChild := NewPage(RowLeaf)
	emptyChild.Modify = &Modification{Outcome: OutcomeEmpty}
	emptyRef := NewInMemoryRef(emptyChild)

	parent, _ := internalRef(RowInternal, splitMergeRef, emptyRef)

	highWater, err := r.Review(context.Background(), parent, 0)
	require.NoError(t, err)
	require.Same(t, emptyChild, highWater, "high water should be the last child visited")
	require.Equal(t, RefLocked, splitMergeRef.State())
	require.Equal(t, RefLocked, emptyRef.State())
}

func TestReviewRejectsNonFoldableChildWithoutLockingIt(t *testing.T) {
	r := newReviewer()

	foldable := NewPage(RowLeaf)
	foldable.Modify = &Modification{Outcome: OutcomeSplit}
	foldableRef := NewInMemoryRef(foldable)

	clean := NewPage(RowLeaf) // OutcomeNone: not foldable
	cleanRef := NewInMemoryRef(clean)

	parent, _ := internalRef(RowInternal, foldableRef, cleanRef)

	highWater, err := r.Review(context.Background(), parent, 0)
	require.ErrorIs(t, err, ErrRejected)
	require.Same(t, foldable, highWater, "high water must stop at the last page actually locked")
	require.Equal(t, RefLocked, foldableRef.State())
	require.Equal(t, RefInMemory, cleanRef.State(), "a rejected child must never be locked")
}

func TestReviewRejectsDirtySplitChild(t *testing.T) {
	r := newReviewer()

	dirtySplit := NewPage(RowLeaf)
	dirtySplit.Modify = &Modification{Outcome: OutcomeSplit}
	dirtySplit.dirty = true // written to again since its own reconciliation
	ref := NewInMemoryRef(dirtySplit)

	parent, _ := internalRef(RowInternal, ref)

	_, err := r.Review(context.Background(), parent, 0)
	require.ErrorIs(t, err, ErrRejected, "a dirty Split/Empty child is not yet safely foldable")
}

func TestReviewRejectsChildHeldByConcurrentReader(t *testing.T) {
	hazards := NewHazardTable()
	session := NewSession(1)
	hazards.Register(session)
	acquirer := NewAcquirer(hazards, nil, nil)
	r := NewReviewer(acquirer)

	child := NewPage(RowLeaf)
	child.Modify = &Modification{Outcome: OutcomeEmpty}
	ref := NewInMemoryRef(child)
	session.Slots[0].Publish(child)

	parent, _ := internalRef(RowInternal, ref)

	_, err := r.Review(context.Background(), parent, 0)
	require.ErrorIs(t, err, ErrBusy)
	require.Equal(t, RefInMemory, ref.State())
}

func TestReviewRecursesIntoInternalChildren(t *testing.T) {
	r := newReviewer()

	grandchild := NewPage(RowLeaf)
	grandchild.Modify = &Modification{Outcome: OutcomeEmpty}
	grandchildRef := NewInMemoryRef(grandchild)

	child, childRef := internalRef(RowInternal, grandchildRef)
	child.Modify = &Modification{Outcome: OutcomeSplitMerge}
	parent, _ := internalRef(RowInternal, childRef)

	highWater, err := r.Review(context.Background(), parent, 0)
	require.NoError(t, err)
	require.Same(t, grandchild, highWater)
	require.Equal(t, RefLocked, childRef.State())
	require.Equal(t, RefLocked, grandchildRef.State())
}

func TestReviewSkipsOnDiskChildren(t *testing.T) {
	r := newReviewer()

	onDisk := NewOnDiskRef(42, 4096)
	parent, _ := internalRef(RowInternal, onDisk)

	highWater, err := r.Review(context.Background(), parent, 0)
	require.NoError(t, err)
	require.Same(t, parent, highWater, "an all-on-disk subtree never advances the high water mark")
}

func TestReviewUnderSingleThreadedSkipsAcquisition(t *testing.T) {
	r := newReviewer()

	child := NewPage(RowLeaf)
	child.Modify = &Modification{Outcome: OutcomeEmpty}
	ref := NewInMemoryRef(child)
	parent, _ := internalRef(RowInternal, ref)

	_, err := r.Review(context.Background(), parent, SingleThreaded)
	require.NoError(t, err)
	require.Equal(t, RefInMemory, ref.State(), "SingleThreaded must never transition a Ref to Locked")
}
