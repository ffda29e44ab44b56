package eviction

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHazardSnapshotContainsPublishedPage(t *testing.T) {
	table := NewHazardTable()
	session := NewSession(2)
	table.Register(session)

	page := NewPage(RowLeaf)
	session.Slots[0].Publish(page)

	snap := table.Snapshot()
	require.True(t, snap.Contains(page))

	other := NewPage(RowLeaf)
	require.False(t, snap.Contains(other))
}

func TestHazardSnapshotIgnoresRetractedSlot(t *testing.T) {
	table := NewHazardTable()
	session := NewSession(1)
	table.Register(session)

	page := NewPage(RowLeaf)
	session.Slots[0].Publish(page)
	require.True(t, table.Snapshot().Contains(page))

	session.Slots[0].Publish(nil)
	require.False(t, table.Snapshot().Contains(page))
}

func TestHazardTableUnregisterRemovesSession(t *testing.T) {
	table := NewHazardTable()
	session := NewSession(1)
	table.Register(session)

	page := NewPage(RowLeaf)
	session.Slots[0].Publish(page)
	require.True(t, table.Snapshot().Contains(page))

	table.Unregister(session)
	require.False(t, table.Snapshot().Contains(page))
}

func TestHazardSnapshotAcrossManySessions(t *testing.T) {
	table := NewHazardTable()
	var pages []*Page
	for i := 0; i < 8; i++ {
		s := NewSession(3)
		table.Register(s)
		p := NewPage(RowLeaf)
		s.Slots[i%3].Publish(p)
		pages = append(pages, p)
	}

	snap := table.Snapshot()
	for _, p := range pages {
		require.True(t, snap.Contains(p))
	}
	require.False(t, snap.Contains(NewPage(RowLeaf)))
}
