package eviction

import "go.uber.org/zap"

// reapFolded: after a successful non-Empty commit
// on an internal page, walks its child refs and discards every child
// whose state is not OnDisk -- the pages that were folded into the
// parent during reconciliation. The walk is depth-first, post-order:
// descendants are discarded before their parent (the parent itself is
// discarded separately by the caller once reapFolded returns).
//
// Dispatches on page type the way the original keeps a column-store and
// a row-store walk as separate functions, even though in this package's
// unified Ref model the two bodies are identical -- see
// reapColumnChildren / reapRowChildren for why that separation is worth
// keeping anyway.
func reapFolded(c Collaborators, logger *zap.Logger, page *Page) error {
	if !page.Type.IsInternal() {
		return nil
	}
	switch page.Type {
	case ColumnInternal:
		return reapColumnChildren(c, logger, page)
	case RowInternal:
		return reapRowChildren(c, logger, page)
	default:
		return nil
	}
}

// reapColumnChildren discards the folded children of a column-store
// internal page. Children are read through Ref.Page(), the same accessor
// reapRowChildren uses -- see reapRowChildren's doc comment.
func reapColumnChildren(c Collaborators, logger *zap.Logger, parent *Page) error {
	for _, ref := range parent.Children {
		if ref.State() == RefOnDisk {
			continue
		}
		child := ref.Page()

		if child.Type.IsInternal() {
			if err := reapFolded(c, logger, child); err != nil {
				return err
			}
		}
		if err := discardPage(c, logger, child); err != nil {
			return err
		}
	}
	return nil
}

// reapRowChildren discards the folded children of a row-store internal
// page.
//
// a likely copy-paste defect in the historical C source this was ported from
// here: __rec_sub_discard_col (the column-store version of this walk)
// fetched its child page via WT_ROW_REF_PAGE, the row-store accessor,
// instead of WT_COL_REF_PAGE. In this package both walks read their
// children through the single Ref.Page() accessor, which serves column-
// and row-store Refs alike, so there is no per-store accessor to mix up.
func reapRowChildren(c Collaborators, logger *zap.Logger, parent *Page) error {
	for _, ref := range parent.Children {
		if ref.State() == RefOnDisk {
			continue
		}
		child := ref.Page()

		if child.Type.IsInternal() {
			if err := reapFolded(c, logger, child); err != nil {
				return err
			}
		}
		if err := discardPage(c, logger, child); err != nil {
			return err
		}
	}
	return nil
}
