package eviction

import (
	"context"
	"testing"

	pagemanager "github.com/sushant-115/gojodb/core/write_engine/page_manager"
	"github.com/stretchr/testify/require"
)

func TestRootSplitDriverSingleIterationReplace(t *testing.T) {
	page := NewPage(RowInternal)
	rec := newFakeReconciler()
	rec.on(page, replaceWith(pagemanager.PageID(10), 4096))

	tree := newFakeTree(NewPage(RowInternal))
	alloc := &fakeAllocator{}
	collab := Collaborators{Reconciler: rec, Tracker: &fakeTracker{}, Allocator: alloc, Tree: tree}

	driver := NewRootSplitDriver(collab, nil)
	err := driver.Run(context.Background(), page)
	require.NoError(t, err)

	addr, size := tree.rootAddr()
	require.Equal(t, pagemanager.PageID(10), addr)
	require.EqualValues(t, 4096, size)
	require.True(t, alloc.discarded(page))
}

func TestRootSplitDriverCascadesThroughMultipleSplits(t *testing.T) {
	first := NewPage(RowInternal)
	second := NewPage(RowInternal)

	rec := newFakeReconciler()
	rec.on(first, splitInto(second))
	rec.on(second, replaceWith(pagemanager.PageID(20), 4096))

	tree := newFakeTree(NewPage(RowInternal))
	alloc := &fakeAllocator{}
	collab := Collaborators{Reconciler: rec, Tracker: &fakeTracker{}, Allocator: alloc, Tree: tree}

	driver := NewRootSplitDriver(collab, nil)
	err := driver.Run(context.Background(), first)
	require.NoError(t, err)

	addr, size := tree.rootAddr()
	require.Equal(t, pagemanager.PageID(20), addr)
	require.EqualValues(t, 4096, size)
	require.True(t, alloc.discarded(first))
	require.True(t, alloc.discarded(second))
}

func TestRootSplitDriverPropagatesReconcileError(t *testing.T) {
	page := NewPage(RowInternal)
	rec := newFakeReconciler()
	rec.on(page, func(*Page) error { return errBoom })

	driver := NewRootSplitDriver(Collaborators{Reconciler: rec}, nil)
	err := driver.Run(context.Background(), page)
	require.ErrorIs(t, err, errBoom)
}

func TestRootSplitDriverRejectsUnexpectedOutcome(t *testing.T) {
	page := NewPage(RowInternal)
	rec := newFakeReconciler()
	rec.on(page, emptyOutcome())

	driver := NewRootSplitDriver(Collaborators{Reconciler: rec}, nil)
	err := driver.Run(context.Background(), page)
	require.ErrorIs(t, err, ErrBadOutcome)
}
