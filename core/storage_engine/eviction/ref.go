// Package eviction implements the page eviction and reconciliation-commit
// core of the gojodb B-tree storage engine: given a candidate in-memory
// page chosen by an external eviction policy, it acquires exclusive
// access to the page (and any in-memory descendants eligible to be
// folded into it), reconciles it to disk if dirty, and atomically swings
// the parent reference so concurrent readers observe either the
// pre-eviction in-memory page or the post-eviction on-disk address,
// never a torn intermediate state.
//
// Everything else in the storage engine -- reconciliation byte-layout,
// free-list/disk allocation, the read path, the cache LRU, session
// administration -- is a collaborator reached through the interfaces in
// collaborators.go.
package eviction

import (
	"sync/atomic"

	pagemanager "github.com/sushant-115/gojodb/core/write_engine/page_manager"
)

// PageType distinguishes how an internal page's children are ordered and
// how its entries are discarded after a fold.
type PageType uint8

const (
	ColumnInternal PageType = iota
	RowInternal
	ColumnLeaf
	RowLeaf
)

func (t PageType) IsInternal() bool {
	return t == ColumnInternal || t == RowInternal
}

func (t PageType) String() string {
	switch t {
	case ColumnInternal:
		return "column-internal"
	case RowInternal:
		return "row-internal"
	case ColumnLeaf:
		return "column-leaf"
	case RowLeaf:
		return "row-leaf"
	default:
		return "unknown"
	}
}

// RefState is the four-valued state of a Ref, stored as an atomic int32.
type RefState int32

const (
	// RefOnDisk means the child has no in-memory representation; Ref.Addr
	// and Ref.Size are authoritative.
	RefOnDisk RefState = iota
	// RefReading means some other session is in the process of reading
	// the page in from disk; it is not yet safe to touch.
	RefReading
	// RefInMemory means Ref.page is populated and readers may descend
	// into it after publishing a hazard reference.
	RefInMemory
	// RefLocked means a session (exactly one) holds exclusive access and
	// is deciding the page's fate.
	RefLocked
)

func (s RefState) String() string {
	switch s {
	case RefOnDisk:
		return "on-disk"
	case RefReading:
		return "reading"
	case RefInMemory:
		return "in-memory"
	case RefLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// Outcome is the reconciliation-outcome flag attached to a page after
// reconciliation. At most one is ever set on a given page.
type Outcome uint8

const (
	// OutcomeNone means the page was clean, or has not been reconciled.
	OutcomeNone Outcome = iota
	// OutcomeReplace: reconciled to a single on-disk page.
	OutcomeReplace
	// OutcomeSplit: reconciled to a newly built internal page referencing
	// multiple on-disk children.
	OutcomeSplit
	// OutcomeEmpty: reconciled to nothing, all entries deleted.
	OutcomeEmpty
	// OutcomeSplitMerge: an internal page produced by a prior split that
	// must never be written independently; it is folded into its parent
	// when that parent is evicted.
	OutcomeSplitMerge
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeReplace:
		return "replace"
	case OutcomeSplit:
		return "split"
	case OutcomeEmpty:
		return "empty"
	case OutcomeSplitMerge:
		return "split-merge"
	default:
		return "unknown"
	}
}

// foldable reports whether a page bearing this outcome could, in
// principle, be merged into its parent (§4.3 step 1's cheap test).
func (o Outcome) foldable() bool {
	return o == OutcomeEmpty || o == OutcomeSplit || o == OutcomeSplitMerge
}

// Modification is the tagged variant a reconciled page carries in
// Page.Modify. The active field is determined by Outcome: Replace
// carries (Addr, Size); Split carries SplitPage; Empty and SplitMerge
// carry nothing.
type Modification struct {
	Outcome Outcome

	// Addr and Size are populated when Outcome == OutcomeReplace.
	Addr pagemanager.PageID
	Size uint32

	// SplitPage is populated when Outcome == OutcomeSplit: a freshly
	// built internal page, itself flagged OutcomeSplitMerge, that exists
	// only to be folded into its parent on that parent's own eventual
	// eviction (or, for a root split, reconciled immediately by the
	// root-split driver).
	SplitPage *Page
}

// Ref is the edge from a parent page to a child: the in-memory
// representation of a WT_REF cell. Exactly one Ref owns any given
// in-memory Page; other pages may hold weak back-links to a Page for
// traversal convenience, but ownership is exclusive to the Ref.
type Ref struct {
	state int32 // atomic RefState

	// Addr and Size are valid when state == RefOnDisk (or immediately
	// after a commit that transitions to RefOnDisk).
	Addr pagemanager.PageID
	Size uint32

	// page is the owned in-memory child; non-nil only when state !=
	// RefOnDisk. Mutated only by the session currently holding this Ref
	// Locked (or, for the initial read-path transition, by whichever
	// session is performing RefReading -> RefInMemory, which is outside
	// this package).
	page *Page
}

// NewOnDiskRef builds a Ref describing a child that has not been read
// into memory.
func NewOnDiskRef(addr pagemanager.PageID, size uint32) *Ref {
	return &Ref{state: int32(RefOnDisk), Addr: addr, Size: size}
}

// NewInMemoryRef builds a Ref that already owns an in-memory page (as
// the read path would leave it after RefReading -> RefInMemory).
func NewInMemoryRef(page *Page) *Ref {
	r := &Ref{state: int32(RefInMemory), page: page}
	page.ParentRef = r
	return r
}

// State loads the Ref's state with acquire semantics: readers must
// observe (Addr, Size, page) as published by the last committing writer
// before trusting the state value itself (§3 invariant 3).
func (r *Ref) State() RefState {
	return RefState(atomic.LoadInt32(&r.state))
}

// setState stores a new state. Per §4.2/§4.5, the source uses plain
// stores for these transitions and relies on the hazard-pairing argument
// in §5 rather than a fence for the Locked transition; for the
// publish transitions in C5 (the ones observers linearize on) we still
// want the release ordering a normal atomic store already gives on every
// platform Go supports, so every transition in this package goes through
// atomic.StoreInt32/CompareAndSwapInt32 rather than a bare assignment.
func (r *Ref) setState(s RefState) {
	atomic.StoreInt32(&r.state, int32(s))
}

// casState attempts an atomic transition and reports success.
func (r *Ref) casState(from, to RefState) bool {
	return atomic.CompareAndSwapInt32(&r.state, int32(from), int32(to))
}

// Page returns the owned in-memory child, or nil if the Ref is on disk.
// Callers must already hold the Ref Locked, or otherwise be certain no
// concurrent commit can mutate it, before trusting the result.
func (r *Ref) Page() *Page {
	return r.page
}

var nextPageID uint64

// Page is a node in the B-tree: the in-memory counterpart of a WT_PAGE.
type Page struct {
	// id is a process-local, monotonically increasing identity used for
	// hazard-reference comparisons and ordering: a stable integer
	// identifier stands in for the raw pointer identity WiredTiger
	// compares.
	id uint64

	Type PageType

	// ParentRef is the back-link to the Ref that owns this page.
	ParentRef *Ref

	// Children is the ordered collection of child reference cells for an
	// internal page, in the page type's natural key order (column-store:
	// index order; row-store: key order). Leaves have no children.
	Children []*Ref

	// Modify is allocated the first time the page is ever written to and,
	// once allocated, is never freed while the page is in memory:
	// reconciliation repopulates its Outcome/Addr/Size/SplitPage fields in
	// place rather than replacing the pointer, so a folded, already-clean
	// child keeps carrying the outcome that makes it foldable.
	Modify *Modification

	// dirty is distinct from Modify != nil: it tracks whether the page
	// has been written to since its *own* last reconciliation completed,
	// which is what decides whether a Split/Empty child is still safe to
	// fold (§4.3 step 3) and whether the candidate page itself still
	// needs reconciling before it can be committed (§4.8 steps 5/7).
	// A page can have Modify != nil and dirty == false: reconciled, still
	// carrying its outcome, but untouched since.
	dirty bool

	readGen uint64 // atomic monotonic read-generation counter

	// forceEvict mirrors WT_PAGE_FORCE_EVICT: an external marker set by
	// the cache when it wants this specific page evicted even at the
	// cost of spinning on a live hazard reference. It is a page-level
	// flag, not an Evict() call flag.
	forceEvict int32
}

// NewPage allocates a page with a fresh stable identity.
func NewPage(typ PageType) *Page {
	return &Page{id: atomic.AddUint64(&nextPageID, 1), Type: typ}
}

// ID returns the page's stable hazard-comparison identity.
func (p *Page) ID() uint64 { return p.id }

// IsModified reports whether the page has been written to since its own
// last reconciliation, i.e. is dirty right now. This is not the same
// question as "does Modify exist": a folded Split/Empty child keeps its
// Modify record forever but is only foldable while IsModified is false.
func (p *Page) IsModified() bool { return p.dirty }

// OutcomeFlag returns the page's reconciliation outcome, or OutcomeNone
// for a page that has never been reconciled or was reconciled clean.
func (p *Page) OutcomeFlag() Outcome {
	if p.Modify == nil {
		return OutcomeNone
	}
	return p.Modify.Outcome
}

// SetModified marks the page dirty, allocating a modification record the
// first time it is called. Mirrors page_set_modified in §6.
func (p *Page) SetModified() {
	if p.Modify == nil {
		p.Modify = &Modification{}
	}
	p.dirty = true
}

// ClearOutcome clears the outcome flags without discarding dirtiness,
// used by the root-split driver (§4.7) between reconciliation rounds.
func (p *Page) ClearOutcome() {
	if p.Modify != nil {
		p.Modify.Outcome = OutcomeNone
	}
}

// ReadGen returns the page's current read-generation value.
func (p *Page) ReadGen() uint64 { return atomic.LoadUint64(&p.readGen) }

// BumpReadGen refreshes the page's read-generation counter from the
// cache-wide clock, used when a SplitMerge page is rejected for direct
// eviction so it is not immediately re-selected (§4.8 step 1).
func (p *Page) BumpReadGen(gen uint64) { atomic.StoreUint64(&p.readGen, gen) }

// ForceEvict reports whether the cache has marked this page for forced
// eviction.
func (p *Page) ForceEvict() bool { return atomic.LoadInt32(&p.forceEvict) == 1 }

// SetForceEvict sets or clears the force-evict marker.
func (p *Page) SetForceEvict(v bool) {
	if v {
		atomic.StoreInt32(&p.forceEvict, 1)
	} else {
		atomic.StoreInt32(&p.forceEvict, 0)
	}
}

// IsRoot reports whether this page is the tree's root, i.e. its parent
// Ref is the tree's distinguished root Ref rather than a cell inside
// another page's Children.
func (p *Page) IsRoot(tree Tree) bool {
	return p.ParentRef == tree.RootRef()
}
