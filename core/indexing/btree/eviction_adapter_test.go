package btree

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sushant-115/gojodb/core/storage_engine/eviction"
	"github.com/stretchr/testify/require"
)

func newTestBTree(t *testing.T) *BTree[string, string] {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "eviction_adapter_test.gdb")
	bt, err := NewBTreeFile[string, string](
		dbPath, 3,
		DefaultKeyOrder[string],
		KeyValueSerializer[string, string]{
			SerializeKey:     SerializeString,
			DeserializeKey:   DeserializeString,
			SerializeValue:   SerializeString,
			DeserializeValue: DeserializeString,
		},
		16, 4096,
	)
	require.NoError(t, err)
	t.Cleanup(func() { bt.Close() })
	return bt
}

func TestEvictionTreeTrackRootBindsDiskPage(t *testing.T) {
	bt := newTestBTree(t)
	require.NoError(t, bt.Insert("k1", "v1"))

	et := NewEvictionTree(bt)
	page, err := et.TrackRoot(eviction.RowLeaf)
	require.NoError(t, err)
	require.NotNil(t, page)
	require.Equal(t, page, et.RootRef().Page())
}

func TestEvictionTreeEvictsCleanRoot(t *testing.T) {
	bt := newTestBTree(t)
	require.NoError(t, bt.Insert("k1", "v1"))
	require.NoError(t, bt.bpm.FlushPage(bt.rootPageID))

	et := NewEvictionTree(bt)
	page, err := et.TrackRoot(eviction.RowLeaf)
	require.NoError(t, err)
	require.False(t, page.IsModified())

	hazards := eviction.NewHazardTable()
	session := eviction.NewSession(2)
	hazards.Register(session)
	orch := eviction.NewOrchestrator(et.Collaborators(), hazards, nil, nil)

	err = orch.Evict(context.Background(), session, page, eviction.SingleThreaded)
	require.NoError(t, err)
	require.Equal(t, eviction.RefOnDisk, et.RootRef().State())

	v, ok, err := bt.Search("k1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v1", v)
}

func TestEvictionTreeReconcilesDirtyRoot(t *testing.T) {
	bt := newTestBTree(t)
	require.NoError(t, bt.Insert("k1", "v1"))

	et := NewEvictionTree(bt)
	page, err := et.TrackRoot(eviction.RowLeaf)
	require.NoError(t, err)
	page.SetModified()

	hazards := eviction.NewHazardTable()
	session := eviction.NewSession(2)
	hazards.Register(session)
	orch := eviction.NewOrchestrator(et.Collaborators(), hazards, nil, nil)

	err = orch.Evict(context.Background(), session, page, eviction.SingleThreaded)
	require.NoError(t, err)
	require.Equal(t, eviction.RefOnDisk, et.RootRef().State())

	v, ok, err := bt.Search("k1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v1", v)
}
