package engine

import (
	"context"
	"fmt"

	"github.com/qboard/qboard/internal/models"
)

// SetQuestionAuthor reassigns a question to userID (nil for anonymous). The
// previous author's own vote is stripped, since self-votes are disallowed
// once authorship changes, and the net vote count is recounted from the
// remaining votes.
func (e *Engine) SetQuestionAuthor(ctx context.Context, actor Actor, question *models.Post, userID *int64) error {
	if err := e.reassignAuthor(ctx, question.ID, userID); err != nil {
		return err
	}

	e.recomputeIfUser(ctx, question.UserID,
		MetricQPosts, MetricASelects, MetricQVoteds, MetricUpvoteds, MetricDownvoteds)
	if userID != nil {
		e.recomputeUser(ctx, *userID,
			MetricQPosts, MetricASelects, MetricQVoteds, MetricQUpvotes, MetricQDownvotes,
			MetricUpvoteds, MetricDownvoteds)
	}

	e.report(ctx, "q_claim", actor, map[string]any{
		"postid":      question.ID,
		"oldquestion": question,
	})
	return nil
}

// SetAnswerAuthor reassigns an answer to userID.
func (e *Engine) SetAnswerAuthor(ctx context.Context, actor Actor, answer *models.Post, userID *int64) error {
	if err := e.reassignAuthor(ctx, answer.ID, userID); err != nil {
		return err
	}

	e.recomputeIfUser(ctx, answer.UserID,
		MetricAPosts, MetricASelecteds, MetricAVoteds, MetricUpvoteds, MetricDownvoteds)
	if userID != nil {
		e.recomputeUser(ctx, *userID,
			MetricAPosts, MetricASelecteds, MetricAVoteds, MetricAUpvotes, MetricADownvotes,
			MetricUpvoteds, MetricDownvoteds)
	}

	e.report(ctx, "a_claim", actor, map[string]any{
		"postid":    answer.ID,
		"parentid":  nullableID(answer.ParentID),
		"oldanswer": answer,
	})
	return nil
}

// SetCommentAuthor reassigns a comment to userID.
func (e *Engine) SetCommentAuthor(ctx context.Context, actor Actor, comment *models.Post, userID *int64) error {
	if err := e.reassignAuthor(ctx, comment.ID, userID); err != nil {
		return err
	}

	e.recomputeIfUser(ctx, comment.UserID, MetricCPosts)
	if userID != nil {
		e.recomputeUser(ctx, *userID, MetricCPosts)
	}

	e.report(ctx, "c_claim", actor, map[string]any{
		"postid":     comment.ID,
		"parentid":   nullableID(comment.ParentID),
		"oldcomment": comment,
	})
	return nil
}

func (e *Engine) reassignAuthor(ctx context.Context, postID int64, userID *int64) error {
	if err := e.store.SetAuthor(ctx, postID, userID); err != nil {
		return fmt.Errorf("set author: %w", err)
	}
	if err := e.store.RemoveOwnVote(ctx, postID); err != nil {
		return fmt.Errorf("remove own vote: %w", err)
	}
	if err := e.store.RecountVotes(ctx, postID); err != nil {
		return fmt.Errorf("recount votes: %w", err)
	}
	return nil
}

// DeleteQuestion permanently deletes a hidden question with no remaining
// answers or comments. A close note, if any, is detached and deleted with
// it. Vote rows cascade through storage, so voters' point metrics are
// recomputed here by vote sign.
func (e *Engine) DeleteQuestion(ctx context.Context, actor Actor, opts Options, question *models.Post, oldClosePost *models.Post) error {
	if question.Status() != models.StatusHidden {
		return fmt.Errorf("delete question %d: %w", question.ID, ErrNotHidden)
	}
	if err := e.requireChildless(ctx, question.ID); err != nil {
		return err
	}

	params := map[string]any{
		"postid":      question.ID,
		"oldquestion": question,
	}
	e.report(ctx, "q_delete_before", actor, params)

	if oldClosePost != nil && oldClosePost.ChildOf(question.ID) {
		// Detach the close reference before the note goes, for the foreign key.
		if err := e.store.SetClosed(ctx, question.ID, false, nil, nil); err != nil {
			return fmt.Errorf("detach close reference: %w", err)
		}
		e.unindex(ctx, opts, oldClosePost.ID)
		if err := e.store.DeletePost(ctx, oldClosePost.ID); err != nil {
			return fmt.Errorf("delete close note: %w", err)
		}
	}

	votes, err := e.store.VotesForPost(ctx, question.ID)
	if err != nil {
		return fmt.Errorf("get votes: %w", err)
	}
	oldPath, err := e.store.CategoryPath(ctx, question.ID)
	if err != nil {
		return fmt.Errorf("get category path: %w", err)
	}

	e.unindex(ctx, opts, question.ID)
	if err := e.store.DeletePost(ctx, question.ID); err != nil {
		return fmt.Errorf("delete question: %w", err)
	}

	if err := e.counters.RecountCategoryPath(ctx, oldPath); err != nil {
		return fmt.Errorf("recount category path: %w", err)
	}
	if err := e.counters.RecountHidden(ctx); err != nil {
		return fmt.Errorf("recount hidden: %w", err)
	}

	e.recomputeIfUser(ctx, question.UserID,
		MetricQPosts, MetricASelects, MetricQVoteds, MetricUpvoteds, MetricDownvoteds)
	for voterID, vote := range votes {
		if vote > 0 {
			e.recomputeUser(ctx, voterID, MetricQUpvotes)
		} else {
			e.recomputeUser(ctx, voterID, MetricQDownvotes)
		}
	}

	e.report(ctx, "q_delete", actor, params)
	return nil
}

// DeleteAnswer permanently deletes a hidden answer with no comments or
// follow-on questions. question is the answer's parent.
func (e *Engine) DeleteAnswer(ctx context.Context, actor Actor, opts Options, answer *models.Post, question *models.Post) error {
	if answer.Status() != models.StatusHidden {
		return fmt.Errorf("delete answer %d: %w", answer.ID, ErrNotHidden)
	}
	if err := e.requireChildless(ctx, answer.ID); err != nil {
		return err
	}

	votes, err := e.store.VotesForPost(ctx, answer.ID)
	if err != nil {
		return fmt.Errorf("get votes: %w", err)
	}

	params := map[string]any{
		"postid":    answer.ID,
		"parentid":  nullableID(answer.ParentID),
		"oldanswer": answer,
	}
	e.report(ctx, "a_delete_before", actor, params)

	e.unindex(ctx, opts, answer.ID)
	if err := e.store.DeletePost(ctx, answer.ID); err != nil {
		return fmt.Errorf("delete answer: %w", err)
	}

	if question.Selected(answer.ID) {
		if err := e.store.SetSelectedChild(ctx, question.ID, nil, nil); err != nil {
			return fmt.Errorf("clear selected child: %w", err)
		}
		e.recomputeIfUser(ctx, question.UserID, MetricASelects)
	}

	if err := e.counters.RecountHidden(ctx); err != nil {
		return fmt.Errorf("recount hidden: %w", err)
	}

	e.recomputeIfUser(ctx, answer.UserID,
		MetricAPosts, MetricASelecteds, MetricAVoteds, MetricUpvoteds, MetricDownvoteds)
	for voterID, vote := range votes {
		if vote > 0 {
			e.recomputeUser(ctx, voterID, MetricAUpvotes)
		} else {
			e.recomputeUser(ctx, voterID, MetricADownvotes)
		}
	}

	e.report(ctx, "a_delete", actor, params)
	return nil
}

// DeleteComment permanently deletes a hidden comment.
func (e *Engine) DeleteComment(ctx context.Context, actor Actor, opts Options, comment *models.Post, question, parent *models.Post) error {
	if parent == nil {
		parent = question
	}
	if comment.Status() != models.StatusHidden {
		return fmt.Errorf("delete comment %d: %w", comment.ID, ErrNotHidden)
	}

	params := map[string]any{
		"postid":     comment.ID,
		"parentid":   nullableID(comment.ParentID),
		"oldcomment": comment,
		"parenttype": string(parent.BaseKind()),
		"questionid": question.ID,
	}
	e.report(ctx, "c_delete_before", actor, params)

	e.unindex(ctx, opts, comment.ID)
	if err := e.store.DeletePost(ctx, comment.ID); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if err := e.counters.RecountHidden(ctx); err != nil {
		return fmt.Errorf("recount hidden: %w", err)
	}

	e.recomputeIfUser(ctx, comment.UserID, MetricCPosts)

	e.report(ctx, "c_delete", actor, params)
	return nil
}

// requireChildless rejects deletion while dependent answers, comments or
// follow-on questions exist. Checked here, not left to storage constraints.
func (e *Engine) requireChildless(ctx context.Context, postID int64) error {
	n, err := e.store.ChildCount(ctx, postID)
	if err != nil {
		return fmt.Errorf("count children: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("delete post %d with %d children: %w", postID, n, ErrHasChildren)
	}
	return nil
}
