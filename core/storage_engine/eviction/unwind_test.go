package eviction

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnwindReleasesDownToHighWater(t *testing.T) {
	u := NewUnwinder()

	grandchild := NewPage(RowLeaf)
	grandchildRef := NewInMemoryRef(grandchild)
	grandchildRef.setState(RefLocked)

	untouchedSibling := NewOnDiskRef(7, 4096)

	child, childRef := internalRef(RowInternal, grandchildRef, untouchedSibling)
	childRef.setState(RefLocked)

	neverLocked, neverLockedRef := leafRef() // sibling at the top level, never reviewed
	root, rootRef := internalRef(RowInternal, childRef, neverLockedRef)
	rootRef.setState(RefLocked)
	root.ParentRef = NewOnDiskRef(1, 4096)
	root.ParentRef.setState(RefLocked)

	err := u.Unwind(root, grandchild, 0)
	require.NoError(t, err)

	require.Equal(t, RefInMemory, root.ParentRef.State())
	require.Equal(t, RefInMemory, childRef.State())
	require.Equal(t, RefInMemory, grandchildRef.State())
	require.Equal(t, RefOnDisk, untouchedSibling.State())
	require.Equal(t, RefInMemory, neverLockedRef.State(), "unwind reaches a never-locked sibling only if it was never locked to begin with")
	_ = child
	_ = neverLocked
}

func TestUnwindStopsImmediatelyWhenRootIsHighWater(t *testing.T) {
	u := NewUnwinder()

	root, _ := leafRef()
	root.ParentRef = NewOnDiskRef(1, 4096)
	root.ParentRef.setState(RefLocked)

	err := u.Unwind(root, root, 0)
	require.NoError(t, err)
	require.Equal(t, RefInMemory, root.ParentRef.State())
}

func TestUnwindIsNoOpUnderSingleThreaded(t *testing.T) {
	u := NewUnwinder()

	root, _ := leafRef()
	root.ParentRef = NewOnDiskRef(1, 4096)
	root.ParentRef.setState(RefInMemory)
	// Deliberately left InMemory, not Locked: SingleThreaded never locks.

	err := u.Unwind(root, root, SingleThreaded)
	require.NoError(t, err)
	require.Equal(t, RefInMemory, root.ParentRef.State())
}

func TestUnwindAssertsRootParentIsLocked(t *testing.T) {
	u := NewUnwinder()

	root, _ := leafRef()
	root.ParentRef = NewOnDiskRef(1, 4096) // left OnDisk, not Locked

	err := u.Unwind(root, root, 0)
	require.Error(t, err)
	var assertErr *AssertionError
	require.ErrorAs(t, err, &assertErr)
}

func TestUnwindAssertsChildIsLocked(t *testing.T) {
	u := NewUnwinder()

	child, childRef := leafRef() // left InMemory, never locked
	root, rootRef := internalRef(RowInternal, childRef)
	rootRef.setState(RefLocked)
	root.ParentRef = NewOnDiskRef(1, 4096)
	root.ParentRef.setState(RefLocked)

	err := u.Unwind(root, child, 0)
	require.Error(t, err)
	var assertErr *AssertionError
	require.ErrorAs(t, err, &assertErr)
}
