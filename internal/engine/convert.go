package engine

import (
	"context"
	"fmt"

	"github.com/qboard/qboard/internal/models"
)

// AnswerToComment converts an answer into a comment under parentID (another
// answer of the same question, or the question itself), carrying its
// hidden/queued status across unless a remoderated edit forces it back into
// the queue. Comments and follow-on questions hanging off the old answer are
// re-parented; vote-derived points move from the answer metric family to the
// comment one. answers maps the question's answers by id; commentsFollows
// holds the children of the old answer.
func (e *Engine) AnswerToComment(ctx context.Context, actor Actor, opts Options, oldAnswer *models.Post, parentID int64, fields ContentFields, question *models.Post, answers map[int64]*models.Post, commentsFollows []*models.Post) error {
	parent, onAnswer := answers[parentID]
	if !onAnswer {
		parent = question
	}

	e.unindex(ctx, opts, oldAnswer.ID)

	wasQueued := oldAnswer.Status() == models.StatusQueued
	contentChanged := oldAnswer.Content != fields.Content || oldAnswer.Format != fields.Format
	setUpdated := contentChanged && !wasQueued && !opts.Silent

	newStatus := oldAnswer.Status()
	if setUpdated && opts.Remoderate {
		newStatus = models.StatusQueued
	}
	newTag := models.TypeTag(models.KindComment, newStatus)

	if err := e.store.SetType(ctx, oldAnswer.ID, newTag, attribution(actor, !wasQueued && !opts.Silent)); err != nil {
		return fmt.Errorf("set comment type: %w", err)
	}
	if err := e.store.SetParent(ctx, oldAnswer.ID, parentID); err != nil {
		return fmt.Errorf("set parent: %w", err)
	}
	fields.Title = oldAnswer.Title
	fields.Tags = oldAnswer.Tags
	if err := e.store.SetContent(ctx, oldAnswer.ID, fields, attribution(actor, setUpdated)); err != nil {
		return fmt.Errorf("set content: %w", err)
	}

	// Comments and follow-on questions move to the new parent alike.
	for _, cf := range commentsFollows {
		if cf.ChildOf(oldAnswer.ID) {
			if err := e.store.SetParent(ctx, cf.ID, parentID); err != nil {
				return fmt.Errorf("re-parent %d: %w", cf.ID, err)
			}
		}
	}

	if oldAnswer.Status() == models.StatusNormal {
		if err := e.disableAnswerRecalc(ctx, question, oldAnswer.NetVotes); err != nil {
			return err
		}
	}
	if newStatus == models.StatusNormal {
		if err := e.counters.Update(ctx, CounterComments, 1); err != nil {
			return fmt.Errorf("update comment count: %w", err)
		}
	}
	if wasQueued && newStatus != models.StatusQueued {
		if err := e.counters.Update(ctx, CounterQueued, -1); err != nil {
			return fmt.Errorf("update queued count: %w", err)
		}
	} else if !wasQueued && newStatus == models.StatusQueued {
		if err := e.counters.Update(ctx, CounterQueued, 1); err != nil {
			return fmt.Errorf("update queued count: %w", err)
		}
	}

	e.recomputeIfUser(ctx, oldAnswer.UserID,
		MetricAPosts, MetricASelecteds, MetricCPosts, MetricAVoteds, MetricCVoteds)

	votes, err := e.store.VotesForPost(ctx, oldAnswer.ID)
	if err != nil {
		return fmt.Errorf("get votes: %w", err)
	}
	for voterID, vote := range votes {
		if vote > 0 {
			e.recomputeUser(ctx, voterID, MetricAUpvotes)
		} else {
			e.recomputeUser(ctx, voterID, MetricADownvotes)
		}
	}

	if setUpdated && opts.Remoderate {
		if oldAnswer.FlagCount > 0 {
			if err := e.counters.Update(ctx, CounterFlagged, -oldAnswer.FlagCount); err != nil {
				return fmt.Errorf("update flagged count: %w", err)
			}
		}
	} else if oldAnswer.Status() == models.StatusNormal &&
		question.Status() == models.StatusNormal && parent.Status() == models.StatusNormal {
		// Only when the whole chain stays visible.
		e.indexDoc(ctx, opts, IndexDoc{
			PostID:     oldAnswer.ID,
			Kind:       models.KindComment,
			QuestionID: question.ID,
			ParentID:   &parentID,
			Content:    fields.Content,
			Format:     fields.Format,
			Text:       e.render.Text(fields.Content, fields.Format),
			CategoryID: nullableID(oldAnswer.CategoryID),
		})
	}

	if question.Selected(oldAnswer.ID) {
		if err := e.SetSelectedAnswer(ctx, Actor{}, question, nil, map[int64]*models.Post{oldAnswer.ID: oldAnswer}); err != nil {
			return err
		}
	}

	params := map[string]any{
		"postid":     oldAnswer.ID,
		"parentid":   parentID,
		"parenttype": string(parent.BaseKind()),
		"parent":     parent,
		"questionid": question.ID,
		"question":   question,
		"content":    fields.Content,
		"format":     fields.Format,
		"text":       e.render.Text(fields.Content, fields.Format),
		"name":       fields.Name,
		"oldanswer":  oldAnswer,
	}
	e.report(ctx, "a_to_c", actor, withParams(params, map[string]any{
		"silent":         opts.Silent,
		"oldcontent":     oldAnswer.Content,
		"oldformat":      oldAnswer.Format,
		"contentchanged": contentChanged,
	}))
	if setUpdated && opts.Remoderate {
		// Conversion is detectable downstream by the oldanswer key in place
		// of oldcomment.
		e.report(ctx, "c_requeue", actor, params)
	}
	return nil
}
