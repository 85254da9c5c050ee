package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/qboard/qboard/internal/models"
)

// CloseClear reopens a closed question. A no-op when the question carries no
// closed-by reference (questions closed by their own selection reopen via
// deselection instead). When the close was attributed to a generated NOTE
// post, the note is unindexed and deleted.
func (e *Engine) CloseClear(ctx context.Context, actor Actor, opts Options, question *models.Post, oldClosePost *models.Post) error {
	if !question.ClosedByID.Valid {
		return nil
	}

	attr := &Attribution{UserID: actor.UserID, IP: actor.IP}
	if err := e.store.SetClosed(ctx, question.ID, false, nil, attr); err != nil {
		return fmt.Errorf("clear closed: %w", err)
	}

	if oldClosePost != nil && oldClosePost.ChildOf(question.ID) {
		e.unindex(ctx, opts, oldClosePost.ID)
		if err := e.store.DeletePost(ctx, oldClosePost.ID); err != nil {
			return fmt.Errorf("delete close note: %w", err)
		}
	}

	if err := e.questionBasicRecalc(ctx, question, 1); err != nil {
		return err
	}

	e.report(ctx, "q_reopen", actor, map[string]any{
		"postid":      question.ID,
		"oldquestion": question,
	})
	return nil
}

// CloseDuplicate closes the question as a duplicate of originalID. Any
// previous close is cleared first.
func (e *Engine) CloseDuplicate(ctx context.Context, actor Actor, opts Options, question *models.Post, oldClosePost *models.Post, originalID int64) error {
	if err := e.CloseClear(ctx, actor, opts, question, oldClosePost); err != nil {
		return err
	}

	attr := &Attribution{UserID: actor.UserID, IP: actor.IP}
	if err := e.store.SetClosed(ctx, question.ID, true, &originalID, attr); err != nil {
		return fmt.Errorf("set closed: %w", err)
	}

	if err := e.questionBasicRecalc(ctx, question, -1); err != nil {
		return err
	}

	e.report(ctx, "q_close", actor, map[string]any{
		"postid":      question.ID,
		"oldquestion": question,
		"reason":      "duplicate",
		"originalid":  originalID,
	})
	return nil
}

// CloseOther closes the question with a free-text reason. The reason is
// stored as a NOTE child post, indexed while the question is visible, and
// referenced as the closer. Any previous close is cleared first.
func (e *Engine) CloseOther(ctx context.Context, actor Actor, opts Options, question *models.Post, oldClosePost *models.Post, note string) error {
	if err := e.CloseClear(ctx, actor, opts, question, oldClosePost); err != nil {
		return err
	}

	notePost := &models.Post{
		ParentID:   asNullInt64(&question.ID),
		Type:       string(models.KindNote),
		UserID:     asNullInt64(actor.UserID),
		CreateIP:   actor.IP,
		CreatedAt:  time.Now().UTC(),
		Content:    note,
		CategoryID: question.CategoryID,
	}
	if err := e.store.CreatePost(ctx, notePost); err != nil {
		return fmt.Errorf("create close note: %w", err)
	}
	if err := e.store.RecalcCategoryPath(ctx, notePost.ID); err != nil {
		return fmt.Errorf("recalc note category path: %w", err)
	}

	if question.Status() == models.StatusNormal {
		e.indexDoc(ctx, opts, IndexDoc{
			PostID:     notePost.ID,
			Kind:       models.KindNote,
			QuestionID: question.ID,
			ParentID:   &question.ID,
			Content:    note,
			Text:       note,
			CategoryID: nullableID(question.CategoryID),
		})
	}

	attr := &Attribution{UserID: actor.UserID, IP: actor.IP}
	if err := e.store.SetClosed(ctx, question.ID, true, &notePost.ID, attr); err != nil {
		return fmt.Errorf("set closed: %w", err)
	}

	if err := e.questionBasicRecalc(ctx, question, -1); err != nil {
		return err
	}

	e.report(ctx, "q_close", actor, map[string]any{
		"postid":      question.ID,
		"oldquestion": question,
		"reason":      "other",
		"note":        note,
	})
	return nil
}
