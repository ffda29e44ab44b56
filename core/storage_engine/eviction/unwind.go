package eviction

// Unwinder releases exclusive locks in the same
// traversal order they were acquired, stopping once it reaches the
// recorded high-water page.
type Unwinder struct{}

// NewUnwinder builds an Unwinder. It carries no state of its own --
// unwinding needs nothing but the tree shape and the high-water mark
// passed at each call -- but is kept as a type for symmetry with the
// other components and so it can be mocked/wrapped in tests.
func NewUnwinder() *Unwinder { return &Unwinder{} }

// Unwind releases locks from root downward, in the exact order Review
// acquired them, stopping as soon as it has released highWater. It is a
// no-op under SingleThreaded, since no locks were taken in the first
// place.
//
// root must itself currently be Locked (Unwind also releases root's own
// Ref, matching §4.4: "the unwinder must never touch a Ref it did not
// lock").
func (u *Unwinder) Unwind(root *Page, highWater *Page, flags Flags) error {
	if flags.Has(SingleThreaded) {
		return nil
	}

	if root.ParentRef.State() != RefLocked {
		return assertionFailed("unwind: root's parent ref is not locked")
	}

	root.ParentRef.setState(RefInMemory)
	if root == highWater {
		return nil
	}

	_, err := u.unwindChildren(root, highWater)
	return err
}

// unwindChildren releases every locked child of parent, recursing into
// internal children, until it releases highWater -- at which point it
// reports stop=true so the caller (and every enclosing recursive call)
// returns immediately without touching any sibling it never locked.
func (u *Unwinder) unwindChildren(parent *Page, highWater *Page) (stop bool, err error) {
	for _, ref := range parent.Children {
		state := ref.State()
		if state == RefOnDisk {
			continue
		}
		if state != RefLocked {
			return false, assertionFailed("unwind: child ref is not locked")
		}

		ref.setState(RefInMemory)
		child := ref.Page()

		if child == highWater {
			return true, nil
		}

		if child.Type.IsInternal() {
			stop, err := u.unwindChildren(child, highWater)
			if err != nil || stop {
				return stop, err
			}
		}
	}
	return false, nil
}
