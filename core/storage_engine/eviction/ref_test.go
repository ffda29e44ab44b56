package eviction

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRefStateTransitions(t *testing.T) {
	ref := NewOnDiskRef(100, 4096)
	require.Equal(t, RefOnDisk, ref.State())

	require.True(t, ref.casState(RefOnDisk, RefReading))
	require.Equal(t, RefReading, ref.State())
	require.False(t, ref.casState(RefOnDisk, RefInMemory), "CAS must fail on a stale expected state")

	ref.setState(RefInMemory)
	require.Equal(t, RefInMemory, ref.State())
}

func TestNewInMemoryRefLinksPageBack(t *testing.T) {
	page := NewPage(RowLeaf)
	ref := NewInMemoryRef(page)

	require.Same(t, ref, page.ParentRef)
	require.Same(t, page, ref.Page())
	require.Equal(t, RefInMemory, ref.State())
}

func TestPageIdentityIsStableAndUnique(t *testing.T) {
	a := NewPage(RowLeaf)
	b := NewPage(RowLeaf)
	require.NotEqual(t, a.ID(), b.ID())
}

func TestPageModifiedLifecycle(t *testing.T) {
	page := NewPage(RowLeaf)
	require.False(t, page.IsModified())
	require.Equal(t, OutcomeNone, page.OutcomeFlag())

	page.SetModified()
	require.True(t, page.IsModified())
	page.Modify.Outcome = OutcomeReplace
	require.Equal(t, OutcomeReplace, page.OutcomeFlag())

	page.ClearOutcome()
	require.True(t, page.IsModified(), "clearing the outcome must not clear dirtiness")
	require.Equal(t, OutcomeNone, page.OutcomeFlag())
}

func TestOutcomeFoldable(t *testing.T) {
	require.False(t, OutcomeNone.foldable())
	require.False(t, OutcomeReplace.foldable())
	require.True(t, OutcomeSplit.foldable())
	require.True(t, OutcomeEmpty.foldable())
	require.True(t, OutcomeSplitMerge.foldable())
}

func TestPageForceEvictMarker(t *testing.T) {
	page := NewPage(RowLeaf)
	require.False(t, page.ForceEvict())
	page.SetForceEvict(true)
	require.True(t, page.ForceEvict())
	page.SetForceEvict(false)
	require.False(t, page.ForceEvict())
}

func TestPageIsRoot(t *testing.T) {
	root := NewPage(RowInternal)
	tree := newFakeTree(root)
	require.True(t, root.IsRoot(tree))

	child := NewPage(RowLeaf)
	childRef := NewInMemoryRef(child)
	root.Children = []*Ref{childRef}
	require.False(t, child.IsRoot(tree))
}
