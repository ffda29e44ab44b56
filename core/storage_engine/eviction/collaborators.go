package eviction

import pagemanager "github.com/sushant-115/gojodb/core/write_engine/page_manager"

// Reconciler writes a page (and folds its SplitMerge descendants) into
// on-disk form, populating page.Modify with the resulting outcome. It is
// the sole producer of Outcome/Addr/Size/SplitPage values this package
// consumes; byte-layout and disk allocation are entirely its concern.
type Reconciler interface {
	Reconcile(page *Page) error
}

// Tracker resolves any objects a modified page deferred freeing until
// eviction time (overflow values, freed page-ids, etc.). final is true
// when the page is being permanently discarded rather than merely
// unlocked.
type Tracker interface {
	DiscardTrackedObjects(page *Page, final bool) error
}

// Allocator returns a discarded page's backing memory to the page
// allocator.
type Allocator interface {
	PageOut(page *Page)
}

// Tree is the minimal view of the owning B-tree this package needs: the
// distinguished root Ref, the root's current (addr, size), and the
// cache-wide read-generation clock.
type Tree interface {
	// RootRef returns the Ref that owns the tree's root page. A page is
	// the root iff its ParentRef is this Ref.
	RootRef() *Ref

	// SetRoot installs a new (addr, size) for the tree root, used after
	// the root-split driver (C7) produces a final Replace outcome. The
	// sentinel pagemanager.InvalidPageID clears the root for an empty
	// tree.
	SetRoot(addr pagemanager.PageID, size uint32)

	// CacheReadGen returns the cache-wide monotonic read-generation
	// counter, used to bump a rejected merge-split page's read
	// generation so it is not immediately reselected for eviction.
	CacheReadGen() uint64
}

// ForceEvictController clears the cache's external force-evict marker
// once the Orchestrator has folded it into a Wait flag for this call
// (mirrors force_evict_clear(page) in the reference implementation). Optional: a nil
// Collaborators.ForceEvict simply means the page's own force-evict bit
// is the only bookkeeping that exists.
type ForceEvictController interface {
	ClearForceEvict(page *Page)
}

// Collaborators bundles the external interfaces an Orchestrator needs,
// consumed through that boundary, kept in one struct so they are passed
// around together.
type Collaborators struct {
	Reconciler Reconciler
	Tracker    Tracker
	Allocator  Allocator
	Tree       Tree
	ForceEvict ForceEvictController // optional
}
