package eviction

import (
	"errors"
	"sync"
	"sync/atomic"

	pagemanager "github.com/sushant-115/gojodb/core/write_engine/page_manager"
)

var errBoom = errors.New("eviction test: simulated collaborator failure")

// fakeTree is a minimal Tree collaborator for tests: a single root Ref
// plus whatever (addr, size) SetRoot last installed.
type fakeTree struct {
	mu      sync.Mutex
	root    *Ref
	addr    pagemanager.PageID
	size    uint32
	readGen uint64
}

func newFakeTree(rootPage *Page) *fakeTree {
	return &fakeTree{root: NewInMemoryRef(rootPage)}
}

func (t *fakeTree) RootRef() *Ref { return t.root }

func (t *fakeTree) SetRoot(addr pagemanager.PageID, size uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.addr, t.size = addr, size
}

func (t *fakeTree) rootAddr() (pagemanager.PageID, uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.addr, t.size
}

func (t *fakeTree) CacheReadGen() uint64 {
	return atomic.AddUint64(&t.readGen, 1)
}

// fakeReconciler lets each test script a per-page outcome without a real
// on-disk byte layout.
type fakeReconciler struct {
	mu        sync.Mutex
	byPage    map[uint64]func(*Page) error
	defaultFn func(*Page) error
	calls     int32
}

func newFakeReconciler() *fakeReconciler {
	return &fakeReconciler{byPage: make(map[uint64]func(*Page) error)}
}

func (r *fakeReconciler) on(p *Page, fn func(*Page) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byPage[p.ID()] = fn
}

func (r *fakeReconciler) Reconcile(p *Page) error {
	atomic.AddInt32(&r.calls, 1)
	r.mu.Lock()
	fn := r.byPage[p.ID()]
	r.mu.Unlock()
	if fn != nil {
		return fn(p)
	}
	if r.defaultFn != nil {
		return r.defaultFn(p)
	}
	return nil
}

// replaceWith configures p's reconciliation to produce Outcome Replace.
func replaceWith(addr pagemanager.PageID, size uint32) func(*Page) error {
	return func(p *Page) error {
		p.Modify.Outcome = OutcomeReplace
		p.Modify.Addr = addr
		p.Modify.Size = size
		return nil
	}
}

// splitInto configures p's reconciliation to produce Outcome Split,
// handing over a freshly built internal SplitMerge page.
func splitInto(splitPage *Page) func(*Page) error {
	splitPage.Modify = &Modification{Outcome: OutcomeSplitMerge}
	return func(p *Page) error {
		p.Modify.Outcome = OutcomeSplit
		p.Modify.SplitPage = splitPage
		return nil
	}
}

func emptyOutcome() func(*Page) error {
	return func(p *Page) error {
		p.Modify.Outcome = OutcomeEmpty
		return nil
	}
}

// fakeTracker simulates tracked_objects_discard, optionally failing.
type fakeTracker struct {
	err error
}

func (f *fakeTracker) DiscardTrackedObjects(*Page, bool) error { return f.err }

// fakeAllocator records every page handed back via page_out.
type fakeAllocator struct {
	mu  sync.Mutex
	out []*Page
}

func (a *fakeAllocator) PageOut(p *Page) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.out = append(a.out, p)
}

func (a *fakeAllocator) discarded(p *Page) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, q := range a.out {
		if q == p {
			return true
		}
	}
	return false
}

func newTestOrchestrator(tree Tree, rec Reconciler, tracker Tracker, alloc Allocator) (*Orchestrator, *HazardTable) {
	hazards := NewHazardTable()
	collab := Collaborators{Reconciler: rec, Tracker: tracker, Allocator: alloc, Tree: tree}
	return NewOrchestrator(collab, hazards, nil, nil), hazards
}

// leafRef builds an in-memory leaf page with its own Ref, parented to
// nothing in particular (tests attach it where needed).
func leafRef() (*Page, *Ref) {
	p := NewPage(RowLeaf)
	r := NewInMemoryRef(p)
	return p, r
}

func internalRef(typ PageType, children ...*Ref) (*Page, *Ref) {
	p := NewPage(typ)
	p.Children = children
	r := NewInMemoryRef(p)
	return p, r
}
