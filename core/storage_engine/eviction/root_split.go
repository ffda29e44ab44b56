package eviction

import (
	"context"

	"go.uber.org/zap"
)

// RootSplitDriver. A newly produced root-level
// split page has no parent to defer into: it must be reconciled and
// written immediately, and since that reconciliation can itself split
// again (typical during bulk-load of a huge initial index), the driver
// iterates until a round produces a simple replacement.
type RootSplitDriver struct {
	Collaborators Collaborators
	Logger        *zap.Logger
}

// NewRootSplitDriver builds a RootSplitDriver.
func NewRootSplitDriver(c Collaborators, logger *zap.Logger) *RootSplitDriver {
	return &RootSplitDriver{Collaborators: c, Logger: logger}
}

// Run drives page (and, transitively, whatever it splits into) to a
// Replace outcome, installing the final (addr, size) as the tree's root.
// Termination: each iteration produces either a Replace (the loop exits)
// or a Split whose split_page has strictly fewer entries than the page
// that produced it -- in the worst case the hierarchy collapses by one
// level per iteration, bounded by the tree's height at entry.
func (d *RootSplitDriver) Run(ctx context.Context, page *Page) error {
	for page != nil {
		page.SetModified()
		page.ClearOutcome()

		if err := d.Collaborators.Reconciler.Reconcile(page); err != nil {
			return err
		}

		if d.Logger != nil {
			d.Logger.Debug("eviction: root split iteration",
				zap.Uint64("page_id", page.ID()),
				zap.String("outcome", page.OutcomeFlag().String()))
		}

		var next *Page
		switch page.OutcomeFlag() {
		case OutcomeReplace:
			d.Collaborators.Tree.SetRoot(page.Modify.Addr, page.Modify.Size)
			next = nil
		case OutcomeSplit:
			next = page.Modify.SplitPage
		default:
			return ErrBadOutcome
		}

		if err := discardPage(d.Collaborators, d.Logger, page); err != nil {
			return err
		}
		page = next
	}
	return nil
}
