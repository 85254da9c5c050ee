package engine

import (
	"context"
	"fmt"

	"github.com/qboard/qboard/internal/models"
)

// SetQuestionCategory moves a question (and its whole subtree) to another
// category. Path-based question counters are fully recounted for both the
// old and the new path, and every search backend is told about the move for
// the question and each descendant. Options.Silent skips edit attribution.
func (e *Engine) SetQuestionCategory(ctx context.Context, actor Actor, opts Options, question *models.Post, categoryID *int64, answers []*models.Post, commentsFollows []*models.Post, closePost *models.Post) error {
	oldPath, err := e.store.CategoryPath(ctx, question.ID)
	if err != nil {
		return fmt.Errorf("get old category path: %w", err)
	}

	if err := e.store.SetCategory(ctx, question.ID, categoryID, attribution(actor, !opts.Silent)); err != nil {
		return fmt.Errorf("set category: %w", err)
	}
	if err := e.store.RecalcCategoryPath(ctx, question.ID); err != nil {
		return fmt.Errorf("recalc category path: %w", err)
	}
	newPath, err := e.store.CategoryPath(ctx, question.ID)
	if err != nil {
		return fmt.Errorf("get new category path: %w", err)
	}

	if err := e.counters.RecountCategoryPath(ctx, oldPath); err != nil {
		return fmt.Errorf("recount old category path: %w", err)
	}
	if err := e.counters.RecountCategoryPath(ctx, newPath); err != nil {
		return fmt.Errorf("recount new category path: %w", err)
	}

	var otherIDs []int64
	for _, a := range answers {
		otherIDs = append(otherIDs, a.ID)
	}
	for _, c := range commentsFollows {
		if c.BaseKind() == models.KindComment {
			otherIDs = append(otherIDs, c.ID)
		}
	}
	if closePost != nil && closePost.ChildOf(question.ID) {
		otherIDs = append(otherIDs, closePost.ID)
	}

	if len(otherIDs) > 0 {
		if err := e.store.SetCategoryPath(ctx, otherIDs, categoryID); err != nil {
			return fmt.Errorf("propagate category path: %w", err)
		}
	}

	e.moveIndexed(ctx, opts, question.ID, categoryID)
	for _, id := range otherIDs {
		e.moveIndexed(ctx, opts, id, categoryID)
	}

	e.report(ctx, "q_move", actor, map[string]any{
		"postid":        question.ID,
		"oldquestion":   question,
		"categoryid":    categoryID,
		"oldcategoryid": nullableID(question.CategoryID),
	})
	return nil
}
