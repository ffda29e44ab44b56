package eviction

import (
	"context"
	"testing"

	pagemanager "github.com/sushant-115/gojodb/core/write_engine/page_manager"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// S1: a clean leaf evicts straight through with no reconciliation.
func TestEvictCleanLeaf(t *testing.T) {
	page, ref := leafRef()
	rec := newFakeReconciler()
	tracker := &fakeTracker{}
	alloc := &fakeAllocator{}
	tree := newFakeTree(NewPage(RowInternal))

	orch, _ := newTestOrchestrator(tree, rec, tracker, alloc)

	err := orch.Evict(context.Background(), nil, page, 0)
	require.NoError(t, err)
	require.Equal(t, RefOnDisk, ref.State())
	require.Nil(t, ref.Page())
	require.True(t, alloc.discarded(page))
	require.EqualValues(t, 0, rec.calls, "a clean page must never be reconciled")
}

// S2: a dirty leaf reconciles to Replace and evicts.
func TestEvictDirtyLeafReplace(t *testing.T) {
	page, ref := leafRef()
	page.SetModified()

	rec := newFakeReconciler()
	rec.on(page, replaceWith(pagemanager.PageID(42), 2048))
	tracker := &fakeTracker{}
	alloc := &fakeAllocator{}
	tree := newFakeTree(NewPage(RowInternal))

	orch, _ := newTestOrchestrator(tree, rec, tracker, alloc)

	err := orch.Evict(context.Background(), nil, page, 0)
	require.NoError(t, err)
	require.Equal(t, RefOnDisk, ref.State())
	require.Equal(t, pagemanager.PageID(42), ref.Addr)
	require.EqualValues(t, 2048, ref.Size)
	require.True(t, alloc.discarded(page))
}

// S3: an internal page folds a SplitMerge child during eviction.
func TestEvictFoldsSplitMergeChild(t *testing.T) {
	splitMergeChild := NewPage(RowLeaf)
	splitMergeChild.Modify = &Modification{Outcome: OutcomeSplitMerge}
	childRef := NewInMemoryRef(splitMergeChild)

	parent, parentRef := internalRef(RowInternal, childRef)
	parent.SetModified()

	rec := newFakeReconciler()
	rec.on(parent, replaceWith(pagemanager.PageID(7), 4096))
	tracker := &fakeTracker{}
	alloc := &fakeAllocator{}
	tree := newFakeTree(NewPage(RowInternal))

	orch, _ := newTestOrchestrator(tree, rec, tracker, alloc)

	err := orch.Evict(context.Background(), nil, parent, 0)
	require.NoError(t, err)
	require.Equal(t, RefOnDisk, parentRef.State())
	require.True(t, alloc.discarded(parent))
	require.True(t, alloc.discarded(splitMergeChild), "the folded child must be reaped once its parent commits")
}

// S4: a hazard reference without Wait reports Busy and changes nothing.
func TestEvictHazardConflictWithoutWait(t *testing.T) {
	page, ref := leafRef()
	rec := newFakeReconciler()
	tracker := &fakeTracker{}
	alloc := &fakeAllocator{}
	tree := newFakeTree(NewPage(RowInternal))

	orch, hazards := newTestOrchestrator(tree, rec, tracker, alloc)
	session := NewSession(1)
	hazards.Register(session)
	session.Slots[0].Publish(page)

	err := orch.Evict(context.Background(), nil, page, 0)
	require.ErrorIs(t, err, ErrBusy)
	require.Equal(t, RefInMemory, ref.State())
	require.False(t, alloc.discarded(page))
}

// S5: a dirty root reconciles to Split and the root-split driver cascades
// to a final Replace, installing the new root address.
func TestEvictRootSplitCascade(t *testing.T) {
	root := NewPage(RowInternal)
	tree := newFakeTree(root)
	root.SetModified()

	splitPage := NewPage(RowInternal)

	rec := newFakeReconciler()
	rec.on(root, splitInto(splitPage))
	rec.on(splitPage, replaceWith(pagemanager.PageID(77), 4096))

	tracker := &fakeTracker{}
	alloc := &fakeAllocator{}

	orch, _ := newTestOrchestrator(tree, rec, tracker, alloc)

	err := orch.Evict(context.Background(), nil, root, 0)
	require.NoError(t, err)

	addr, size := tree.rootAddr()
	require.Equal(t, pagemanager.PageID(77), addr)
	require.EqualValues(t, 4096, size)
	require.Equal(t, RefOnDisk, root.ParentRef.State())
	require.True(t, alloc.discarded(root))
	require.True(t, alloc.discarded(splitPage))
}

// S6: a dirty, non-root Empty page is not actually evicted -- it is left
// in memory, unlocked, to be folded in when its own parent is evicted.
func TestEvictDirtyEmptyNonRootIsKept(t *testing.T) {
	page, ref := leafRef()
	page.SetModified()

	rec := newFakeReconciler()
	rec.on(page, emptyOutcome())
	tracker := &fakeTracker{}
	alloc := &fakeAllocator{}
	tree := newFakeTree(NewPage(RowInternal)) // unrelated root: page is non-root

	orch, _ := newTestOrchestrator(tree, rec, tracker, alloc)

	err := orch.Evict(context.Background(), nil, page, 0)
	require.NoError(t, err)
	require.Equal(t, RefInMemory, ref.State())
	require.Same(t, page, ref.Page())
	require.False(t, alloc.discarded(page))
}

// A merge-split page is never a direct eviction target: Evict bumps its
// read generation and restores its parent ref instead of touching it.
func TestEvictRejectsSplitMergeAsDirectTarget(t *testing.T) {
	page := NewPage(RowInternal)
	page.Modify = &Modification{Outcome: OutcomeSplitMerge}
	ref := NewInMemoryRef(page)
	ref.setState(RefLocked) // as it would be while owned by its parent's eviction

	rec := newFakeReconciler()
	tracker := &fakeTracker{}
	alloc := &fakeAllocator{}
	tree := newFakeTree(NewPage(RowInternal))

	orch, _ := newTestOrchestrator(tree, rec, tracker, alloc)

	err := orch.Evict(context.Background(), nil, page, 0)
	require.NoError(t, err)
	require.Equal(t, RefInMemory, ref.State())
	require.False(t, alloc.discarded(page))
	require.EqualValues(t, 0, rec.calls)
}

// A force-evicted page folds Wait into its flags even when the caller
// didn't ask for it, and clears the marker through the optional
// ForceEvictController.
func TestEvictForceEvictFoldsWaitAndClearsMarker(t *testing.T) {
	page, ref := leafRef()
	page.SetModified()
	page.SetForceEvict(true)

	rec := newFakeReconciler()
	rec.on(page, replaceWith(pagemanager.PageID(3), 4096))
	tracker := &fakeTracker{}
	alloc := &fakeAllocator{}
	tree := newFakeTree(NewPage(RowInternal))

	hazards := NewHazardTable()
	collab := Collaborators{
		Reconciler: rec, Tracker: tracker, Allocator: alloc, Tree: tree,
		ForceEvict: &recordingForceEvictController{},
	}
	orch := NewOrchestrator(collab, hazards, nil, nil)

	err := orch.Evict(context.Background(), nil, page, 0)
	require.NoError(t, err)
	require.Equal(t, RefOnDisk, ref.State())
	ctrl := collab.ForceEvict.(*recordingForceEvictController)
	require.True(t, ctrl.cleared)
}

// Rejecting a split-merge page as a direct target is observable: it logs
// ErrSplitMergeRoot rather than silently discarding the information that
// invariant 1 fired.
func TestEvictRejectsSplitMergeAsDirectTargetLogsSentinel(t *testing.T) {
	page := NewPage(RowInternal)
	page.Modify = &Modification{Outcome: OutcomeSplitMerge}
	ref := NewInMemoryRef(page)
	ref.setState(RefLocked)

	rec := newFakeReconciler()
	tracker := &fakeTracker{}
	alloc := &fakeAllocator{}
	tree := newFakeTree(NewPage(RowInternal))

	core, logs := observer.New(zap.DebugLevel)
	hazards := NewHazardTable()
	collab := Collaborators{Reconciler: rec, Tracker: tracker, Allocator: alloc, Tree: tree}
	orch := NewOrchestrator(collab, hazards, nil, zap.New(core))

	err := orch.Evict(context.Background(), nil, page, 0)
	require.NoError(t, err)

	var found bool
	for _, entry := range logs.All() {
		for _, f := range entry.Context {
			if f.Key == "error" && f.Interface == ErrSplitMergeRoot {
				found = true
			}
		}
	}
	require.True(t, found, "split-merge rejection must log ErrSplitMergeRoot")
}

type recordingForceEvictController struct {
	cleared bool
}

func (c *recordingForceEvictController) ClearForceEvict(*Page) { c.cleared = true }
