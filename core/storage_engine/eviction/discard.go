package eviction

import "go.uber.org/zap"

// discardPage resolves a page's tracked objects (if any) and returns its
// memory to the allocator. The tracked-objects check is keyed on whether
// the page was ever reconciled (Modify != nil), not on its live dirty
// bit: a folded Split/Empty child is clean by the time it gets here but
// still carries overflow/freed-block bookkeeping from its own
// reconciliation that must be resolved exactly once. It is the terminal step for every page this
// package removes from memory: the clean leaf in S1, every folded
// descendant reaped by C6, the intermediate pages produced mid-cascade
// by the root-split driver, and the evicted page itself.
//
// A tracker failure is reported to the caller (it is, after all, part of
// Evict's documented Error return), but by the time it happens the page
// has already been unlinked from its parent -- there is nothing left to
// roll back -- so it is also logged as a consistency warning rather than
// silently swallowed.
func discardPage(c Collaborators, logger *zap.Logger, page *Page) error {
	if page.Modify != nil {
		if err := c.Tracker.DiscardTrackedObjects(page, true); err != nil {
			if logger != nil {
				logger.Warn("eviction: tracked-object discard failed after parent commit; page memory not reclaimed",
					zap.Uint64("page_id", page.ID()),
					zap.Error(err))
			}
			return err
		}
	}

	c.Allocator.PageOut(page)
	return nil
}
