package btree

import (
	"sync"
	"sync/atomic"

	"github.com/sushant-115/gojodb/core/storage_engine/eviction"
	pagemanager "github.com/sushant-115/gojodb/core/write_engine/page_manager"
)

// EvictionTree adapts a BTree[K, V] to the Tree, Reconciler, Tracker and
// Allocator collaborator interfaces core/storage_engine/eviction needs, so
// the Orchestrator it exports has a real buffer pool and on-disk B-tree to
// retire pages from instead of the synthetic Page graphs its own tests
// build by hand.
//
// eviction.Page carries no key/value payload of its own -- by design, per
// its doc comment, byte layout is entirely the Reconciler's concern -- so
// this adapter keeps a side table from an eviction.Page's stable identity
// back to the Node/Page pair in this package that actually owns the
// content. TrackRoot/TrackChild play the part ref.go calls "the initial
// read-path transition, which is outside this package": they pin a page
// through the BufferPoolManager and mint the eviction.Ref the Orchestrator
// will later lock and retire.
type EvictionTree[K any, V any] struct {
	bt *BTree[K, V]

	mu      sync.Mutex
	rootRef *eviction.Ref
	byID    map[uint64]*evictionBinding[K, V]
	readGen uint64
}

// evictionBinding ties an eviction.Page's control-plane identity to the
// node and pinned buffer-pool frame Reconcile/PageOut operate on.
type evictionBinding[K, V any] struct {
	node     *Node[K, V]
	diskPage *Page
}

// NewEvictionTree wraps an already-open BTree so its pages can be retired
// through the eviction core. The tree's current root is not tracked until
// TrackRoot is called; until then RootRef reports it on-disk.
func NewEvictionTree[K any, V any](bt *BTree[K, V]) *EvictionTree[K, V] {
	return &EvictionTree[K, V]{
		bt:      bt,
		rootRef: eviction.NewOnDiskRef(bt.rootPageID, uint32(bt.bpm.pageSize)),
		byID:    make(map[uint64]*evictionBinding[K, V]),
	}
}

// Collaborators returns this adapter's Reconciler/Tracker/Allocator/Tree
// bundle, ready to pass to eviction.NewOrchestrator.
func (et *EvictionTree[K, V]) Collaborators() eviction.Collaborators {
	return eviction.Collaborators{
		Reconciler: et,
		Tracker:    et,
		Allocator:  et,
		Tree:       et,
	}
}

// TrackRoot fetches the tree's root page into the buffer pool and
// installs a fresh in-memory Ref for it, becoming the Ref RootRef reports
// from now on. Callers must hold off on concurrent Evict calls against the
// previous root Ref; this mirrors how a single-threaded read path would
// bring a page in before handing control to the eviction core.
func (et *EvictionTree[K, V]) TrackRoot(typ eviction.PageType) (*eviction.Page, error) {
	node, diskPage, err := et.bt.fetchNode(et.bt.rootPageID)
	if err != nil {
		return nil, err
	}

	evPage := et.bind(node, diskPage, typ)

	et.mu.Lock()
	et.rootRef = eviction.NewInMemoryRef(evPage)
	et.mu.Unlock()

	return evPage, nil
}

// TrackChild fetches the child of parent at childIdx into the buffer
// pool, replacing parent.Children[childIdx] (previously an on-disk Ref
// built by whichever call tracked parent) with a fresh in-memory Ref for
// it.
func (et *EvictionTree[K, V]) TrackChild(parent *eviction.Page, childIdx int, typ eviction.PageType) (*eviction.Page, error) {
	childRef := parent.Children[childIdx]

	node, diskPage, err := et.bt.fetchNode(childRef.Addr)
	if err != nil {
		return nil, err
	}

	evPage := et.bind(node, diskPage, typ)
	parent.Children[childIdx] = eviction.NewInMemoryRef(evPage)
	return evPage, nil
}

// bind constructs the eviction.Page shadow for a freshly fetched node and
// records the binding an eventual Reconcile/PageOut call needs.
func (et *EvictionTree[K, V]) bind(node *Node[K, V], diskPage *Page, typ eviction.PageType) *eviction.Page {
	evPage := eviction.NewPage(typ)
	if !node.isLeaf {
		evPage.Children = make([]*eviction.Ref, len(node.childPageIDs))
		for i, childID := range node.childPageIDs {
			evPage.Children[i] = eviction.NewOnDiskRef(childID, uint32(et.bt.bpm.pageSize))
		}
	}
	if diskPage.IsDirty() {
		evPage.SetModified()
	}

	et.mu.Lock()
	et.byID[evPage.ID()] = &evictionBinding[K, V]{node: node, diskPage: diskPage}
	et.mu.Unlock()

	return evPage
}

// Reconcile implements eviction.Reconciler. Our BTree splits eagerly at
// insert time (splitChild), so by the time a node reaches eviction it is
// always a single page: the only two outcomes this adapter ever produces
// are OutcomeReplace (the common case) and OutcomeEmpty, for a drained
// non-root leaf that eviction's reconciliation contract lets us skip
// writing. OutcomeSplit is reserved for an on-disk format that defers
// splitting to reconciliation time, which this tree does not use.
func (et *EvictionTree[K, V]) Reconcile(page *eviction.Page) error {
	et.mu.Lock()
	binding, ok := et.byID[page.ID()]
	et.mu.Unlock()
	if !ok {
		return errEvictionPageNotTracked
	}

	if binding.node.isLeaf && len(binding.node.keys) == 0 && page.ParentRef != et.currentRootRef() {
		page.Modify.Outcome = eviction.OutcomeEmpty
		return nil
	}

	if err := binding.node.serialize(binding.diskPage, et.bt.kvSerializer.SerializeKey, et.bt.kvSerializer.SerializeValue); err != nil {
		return err
	}

	page.Modify.Outcome = eviction.OutcomeReplace
	page.Modify.Addr = binding.node.pageID
	page.Modify.Size = uint32(et.bt.bpm.pageSize)
	return nil
}

func (et *EvictionTree[K, V]) currentRootRef() *eviction.Ref {
	et.mu.Lock()
	defer et.mu.Unlock()
	return et.rootRef
}

// DiscardTrackedObjects implements eviction.Tracker. Node.serialize stores
// keys and values inline in the page; this tree never allocates an
// overflow page for oversized values, so there is nothing to resolve here.
func (et *EvictionTree[K, V]) DiscardTrackedObjects(page *eviction.Page, final bool) error {
	return nil
}

// PageOut implements eviction.Allocator: it releases the buffer-pool pin
// taken by TrackRoot/TrackChild so the frame is a normal eviction
// candidate for getVictimFrame again, and drops the binding.
func (et *EvictionTree[K, V]) PageOut(page *eviction.Page) {
	et.mu.Lock()
	binding, ok := et.byID[page.ID()]
	delete(et.byID, page.ID())
	et.mu.Unlock()
	if !ok {
		return
	}
	_ = et.bt.bpm.UnpinPage(binding.diskPage.GetPageID(), false)
}

// RootRef implements eviction.Tree.
func (et *EvictionTree[K, V]) RootRef() *eviction.Ref {
	et.mu.Lock()
	defer et.mu.Unlock()
	return et.rootRef
}

// SetRoot implements eviction.Tree: installs a new on-disk root address
// after the root-split driver folds a Replace outcome up to the top of
// the tree, and persists it to the file header the same way Insert/Delete
// do for an ordinary split or merge.
func (et *EvictionTree[K, V]) SetRoot(addr pagemanager.PageID, size uint32) {
	et.mu.Lock()
	defer et.mu.Unlock()

	et.bt.rootPageID = addr
	_ = et.bt.diskManager.UpdateRootPageIDInHeader(addr)
	et.rootRef = eviction.NewOnDiskRef(addr, size)
}

// CacheReadGen implements eviction.Tree with a simple monotonic tick,
// matching the "cache-wide clock" contract: every call advances it, so a
// rejected merge-split page bumped with this value reads newer than
// anything stamped before the call that rejected it.
func (et *EvictionTree[K, V]) CacheReadGen() uint64 {
	return atomic.AddUint64(&et.readGen, 1)
}
