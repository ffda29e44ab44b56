package eviction

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// HazardSlot is one published hazard reference. A session's reader
// publishes its intended page here before re-checking the Ref's state
// (the publish-before-recheck half of the Dekker-style protocol
// described below); the eviction core reads every slot only
// after it has already stored Locked (the store-before-scan half).
//
// Non-empty is tested with a single atomic pointer load; stale reads are
// tolerated by design, see Snapshot.
type HazardSlot struct {
	page atomic.Pointer[Page]
}

// Publish records that the calling reader relies on page not being
// freed. Pass nil to retract the hazard.
func (s *HazardSlot) Publish(page *Page) { s.page.Store(page) }

// Get returns the currently published page, or nil.
func (s *HazardSlot) Get() *Page { return s.page.Load() }

// Session owns a fixed-size array of hazard slots, one per concurrency
// level (e.g. one per cursor the session may have open simultaneously).
// Slots are single-writer (this session), multi-reader (any session
// running eviction).
type Session struct {
	ID    uuid.UUID
	Slots []HazardSlot
}

// NewSession allocates a session with the given number of hazard slots.
func NewSession(concurrencyLevel int) *Session {
	return &Session{ID: uuid.New(), Slots: make([]HazardSlot, concurrencyLevel)}
}

// HazardTable is the process-wide registry of sessions, each contributing
// its array of hazard slots. It builds a
// compacted snapshot, sorted by page ID, of every currently non-empty slot so
// the eviction core can test page membership by binary search.
type HazardTable struct {
	mu       sync.RWMutex
	sessions []*Session
}

// NewHazardTable creates an empty table.
func NewHazardTable() *HazardTable {
	return &HazardTable{}
}

// Register adds a session to the table. Sessions are long-lived; this is
// called once at session creation, not per operation.
func (h *HazardTable) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions = append(h.sessions, s)
}

// Unregister removes a session, e.g. at session close.
func (h *HazardTable) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, sess := range h.sessions {
		if sess == s {
			h.sessions = append(h.sessions[:i], h.sessions[i+1:]...)
			return
		}
	}
}

// HazardSnapshot is a compacted, page-identity-sorted copy of every
// currently non-empty hazard slot across every session, built once per
// AcquireExclusive attempt and scoped to that attempt.
type HazardSnapshot struct {
	pages []*Page // sorted by Page.ID()
}

// Snapshot builds a HazardSnapshot over every session currently
// registered in the table. Reads of each slot are unsynchronized with
// any particular writer beyond the atomic pointer load itself: a hazard
// that appears in a later snapshot than it was actually published cannot
// mark a page we are about to free, because by the time we observed
// RefLocked had already been stored, the acquiring session's lock
// necessarily preceded (or raced harmlessly with) any fresh hazard
// publication on that page.
func (h *HazardTable) Snapshot() *HazardSnapshot {
	h.mu.RLock()
	sessions := h.sessions
	h.mu.RUnlock()

	snap := &HazardSnapshot{pages: make([]*Page, 0, len(sessions))}
	for _, s := range sessions {
		for i := range s.Slots {
			if p := s.Slots[i].Get(); p != nil {
				snap.pages = append(snap.pages, p)
			}
		}
	}
	sort.Slice(snap.pages, func(i, j int) bool {
		return snap.pages[i].ID() < snap.pages[j].ID()
	})
	return snap
}

// Contains reports whether any hazard slot named page at snapshot time.
// Comparison is by page identity (Page.ID), the stable stand-in for
// WiredTiger's raw pointer-equality test.
func (snap *HazardSnapshot) Contains(page *Page) bool {
	id := page.ID()
	idx := sort.Search(len(snap.pages), func(i int) bool {
		return snap.pages[i].ID() >= id
	})
	return idx < len(snap.pages) && snap.pages[idx].ID() == id
}
