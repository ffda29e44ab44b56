package eviction

import (
	"context"

	"go.uber.org/zap"
)

// Flags controls an individual Evict call. The
// page-level force-evict marker (Page.ForceEvict) is a separate concept
// folded into Wait internally, not a bit a caller passes here.
type Flags uint32

const (
	// SingleThreaded means the caller already holds a tree-wide lock:
	// skip all hazard-reference and per-page locking work.
	SingleThreaded Flags = 1 << iota
	// Wait means spin until exclusive access is obtained rather than
	// returning ErrBusy on the first conflict.
	Wait
)

// Has reports whether bit is set in f.
func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// With returns f with bit set.
func (f Flags) With(bit Flags) Flags { return f | bit }

// Orchestrator is the single exported entry point
// for this package: evict(session, page, flags).
type Orchestrator struct {
	Acquirer      *Acquirer
	Reviewer      *Reviewer
	Unwinder      *Unwinder
	ParentUpdater *ParentUpdater
	Collaborators Collaborators
	Metrics       *Metrics
	Logger        *zap.Logger
}

// NewOrchestrator wires up C1-C7 behind a single Orchestrator, the way a
// buffer pool manager or eviction-server goroutine would construct one
// at startup and hold onto it for the life of the process.
func NewOrchestrator(collaborators Collaborators, hazards *HazardTable, metrics *Metrics, logger *zap.Logger) *Orchestrator {
	acquirer := NewAcquirer(hazards, metrics, logger)
	unwinder := NewUnwinder()
	driver := NewRootSplitDriver(collaborators, logger)

	return &Orchestrator{
		Acquirer:      acquirer,
		Reviewer:      NewReviewer(acquirer),
		Unwinder:      unwinder,
		ParentUpdater: NewParentUpdater(collaborators.Tree, unwinder, driver),
		Collaborators: collaborators,
		Metrics:       metrics,
		Logger:        logger,
	}
}

// Evict attempts to remove page from memory on behalf of session,
// per the flags given. Returns nil on success (including the
// intentionally-not-evicted Empty/non-root case), ErrBusy or ErrRejected
// for the expected/recoverable outcomes, or
// whatever error the reconciler/tracker produced.
func (o *Orchestrator) Evict(ctx context.Context, session *Session, page *Page, flags Flags) error {
	if o.Logger != nil {
		o.Logger.Debug("eviction: entry",
			zap.Uint64("page_id", page.ID()),
			zap.String("type", page.Type.String()))
	}

	// Invariant 1: merge-split pages are never a direct eviction target.
	// Ignore the request, but don't leave it locked or stale: refresh
	// its read generation so the cache's LRU doesn't reselect it
	// immediately, and restore the parent Ref to InMemory.
	if page.OutcomeFlag() == OutcomeSplitMerge {
		if o.Logger != nil {
			o.Logger.Debug("eviction: rejecting split-merge page as direct target",
				zap.Uint64("page_id", page.ID()),
				zap.Error(ErrSplitMergeRoot))
		}
		page.BumpReadGen(o.Collaborators.Tree.CacheReadGen())
		page.ParentRef.setState(RefInMemory)
		return nil
	}

	if page.ForceEvict() {
		flags = flags.With(Wait)
		if o.Collaborators.ForceEvict != nil {
			o.Collaborators.ForceEvict.ClearForceEvict(page)
		}
	}

	highWater := page

	if !flags.Has(SingleThreaded) {
		if err := o.Acquirer.AcquireExclusive(ctx, page.ParentRef, flags.Has(Wait)); err != nil {
			return err
		}
	}

	if page.Type.IsInternal() {
		hw, err := o.Reviewer.Review(ctx, page, flags)
		highWater = hw
		if err != nil {
			if uerr := o.Unwinder.Unwind(page, highWater, flags); uerr != nil {
				return uerr
			}
			return err
		}
	}

	if page.IsModified() {
		if err := o.Collaborators.Reconciler.Reconcile(page); err != nil {
			if uerr := o.Unwinder.Unwind(page, highWater, flags); uerr != nil {
				return uerr
			}
			return err
		}
	}

	result, err := o.commit(ctx, page, highWater, flags)
	if err != nil {
		return err
	}
	if result == CommitKept {
		return nil
	}

	if err := reapFolded(o.Collaborators, o.Logger, page); err != nil {
		return err
	}
	return discardPage(o.Collaborators, o.Logger, page)
}

// commit dispatches to the clean or dirty ParentUpdater path and bumps
// the matching counter on success, matching steps 7-8 of §4.8.
func (o *Orchestrator) commit(ctx context.Context, page *Page, highWater *Page, flags Flags) (CommitResult, error) {
	if !page.IsModified() {
		result, err := o.ParentUpdater.commitClean(page)
		if err == nil {
			o.Metrics.incUnmodified(ctx)
		}
		return result, err
	}

	result, err := o.ParentUpdater.Commit(ctx, page, highWater, flags)
	if err == nil {
		o.Metrics.incModified(ctx)
	}
	return result, err
}
