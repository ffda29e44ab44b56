package eviction

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReapFoldedIsNoOpForLeaves(t *testing.T) {
	leaf := NewPage(RowLeaf)
	err := reapFolded(Collaborators{}, nil, leaf)
	require.NoError(t, err)
}

func TestReapRowChildrenDiscardsNonOnDiskChildren(t *testing.T) {
	folded := NewPage(RowLeaf)
	folded.Modify = &Modification{Outcome: OutcomeEmpty}
	foldedRef := NewInMemoryRef(folded)
	foldedRef.setState(RefLocked)

	onDisk := NewOnDiskRef(5, 4096)

	parent, _ := internalRef(RowInternal, foldedRef, onDisk)

	alloc := &fakeAllocator{}
	tracker := &fakeTracker{}
	collab := Collaborators{Tracker: tracker, Allocator: alloc}

	err := reapFolded(collab, nil, parent)
	require.NoError(t, err)
	require.True(t, alloc.discarded(folded))
}

func TestReapColumnChildrenRecursesIntoInternalDescendants(t *testing.T) {
	grandchild := NewPage(RowLeaf)
	grandchild.Modify = &Modification{Outcome: OutcomeSplitMerge}
	grandchildRef := NewInMemoryRef(grandchild)
	grandchildRef.setState(RefLocked)

	child, childRef := internalRef(ColumnInternal, grandchildRef)
	child.Modify = &Modification{Outcome: OutcomeSplitMerge}
	childRef.setState(RefLocked)

	parent, _ := internalRef(ColumnInternal, childRef)

	alloc := &fakeAllocator{}
	collab := Collaborators{Tracker: &fakeTracker{}, Allocator: alloc}

	err := reapFolded(collab, nil, parent)
	require.NoError(t, err)
	require.True(t, alloc.discarded(grandchild))
	require.True(t, alloc.discarded(child))
}

func TestReapPropagatesTrackerFailure(t *testing.T) {
	folded := NewPage(RowLeaf)
	folded.Modify = &Modification{Outcome: OutcomeEmpty}
	foldedRef := NewInMemoryRef(folded)
	foldedRef.setState(RefLocked)

	parent, _ := internalRef(RowInternal, foldedRef)

	collab := Collaborators{Tracker: &fakeTracker{err: errBoom}, Allocator: &fakeAllocator{}}
	err := reapFolded(collab, nil, parent)
	require.ErrorIs(t, err, errBoom)
}
