package engine

import (
	"context"
	"fmt"

	"github.com/qboard/qboard/internal/models"
)

// SetQuestionContent changes a question's title, content, format, tags and
// display name. The edit is attributed to the actor only when something
// actually changed, the question was not already queued and the caller did
// not ask for a silent edit. With Options.Remoderate the edited question
// goes back to the moderation queue and its whole subtree leaves the index;
// answers, commentsFollows and closePost are only needed for that case and
// may be nil otherwise.
func (e *Engine) SetQuestionContent(ctx context.Context, actor Actor, opts Options, q *models.Post, fields ContentFields, answers []*models.Post, commentsFollows []*models.Post, closePost *models.Post) error {
	e.unindex(ctx, opts, q.ID)

	wasQueued := q.Status() == models.StatusQueued
	titleChanged := q.Title != fields.Title
	contentChanged := q.Content != fields.Content || q.Format != fields.Format
	tagsChanged := q.Tags != fields.Tags
	setUpdated := (titleChanged || contentChanged || tagsChanged) && !wasQueued && !opts.Silent

	if err := e.store.SetContent(ctx, q.ID, fields, attribution(actor, setUpdated)); err != nil {
		return fmt.Errorf("set question content: %w", err)
	}

	if setUpdated && opts.Remoderate {
		for _, a := range answers {
			e.unindex(ctx, opts, a.ID)
		}
		for _, c := range commentsFollows {
			if c.BaseKind() == models.KindComment {
				e.unindex(ctx, opts, c.ID)
			}
		}
		if closePost != nil && closePost.ChildOf(q.ID) {
			e.unindex(ctx, opts, closePost.ID)
		}

		if err := e.store.SetType(ctx, q.ID, models.TypeTag(models.KindQuestion, models.StatusQueued), nil); err != nil {
			return fmt.Errorf("requeue question: %w", err)
		}
		if err := e.questionCacheRecalc(ctx, q, -1); err != nil {
			return err
		}
		if err := e.counters.Update(ctx, CounterQueued, 1); err != nil {
			return fmt.Errorf("update queued count: %w", err)
		}
		e.recomputeIfUser(ctx, q.UserID, MetricQPosts, MetricASelects)
		if q.FlagCount > 0 {
			if err := e.counters.Update(ctx, CounterFlagged, -q.FlagCount); err != nil {
				return fmt.Errorf("update flagged count: %w", err)
			}
		}
	} else if q.Status() == models.StatusNormal {
		e.indexDoc(ctx, opts, IndexDoc{
			PostID:     q.ID,
			Kind:       models.KindQuestion,
			QuestionID: q.ID,
			ParentID:   nullableID(q.ParentID),
			Title:      fields.Title,
			Content:    fields.Content,
			Format:     fields.Format,
			Text:       e.render.Text(fields.Content, fields.Format),
			Tags:       fields.Tags,
			CategoryID: nullableID(q.CategoryID),
		})
		if tagsChanged {
			if err := e.counters.RecountTags(ctx); err != nil {
				return fmt.Errorf("recount tags: %w", err)
			}
		}
	}

	e.uncache(ctx, q.ID)

	params := map[string]any{
		"postid":      q.ID,
		"title":       fields.Title,
		"content":     fields.Content,
		"format":      fields.Format,
		"text":        e.render.Text(fields.Content, fields.Format),
		"tags":        fields.Tags,
		"name":        fields.Name,
		"oldquestion": q,
	}
	e.report(ctx, "q_edit", actor, withParams(params, map[string]any{
		"silent":         opts.Silent,
		"oldtitle":       q.Title,
		"oldcontent":     q.Content,
		"oldformat":      q.Format,
		"oldtags":        q.Tags,
		"titlechanged":   titleChanged,
		"contentchanged": contentChanged,
		"tagschanged":    tagsChanged,
	}))
	if setUpdated && opts.Remoderate {
		e.report(ctx, "q_requeue", actor, params)
	}
	return nil
}

// SetAnswerContent changes an answer's content, format and display name.
// question is the answer's parent; commentsFollows (comments on the answer)
// are only needed when remoderating.
func (e *Engine) SetAnswerContent(ctx context.Context, actor Actor, opts Options, answer *models.Post, fields ContentFields, question *models.Post, commentsFollows []*models.Post) error {
	e.unindex(ctx, opts, answer.ID)

	wasQueued := answer.Status() == models.StatusQueued
	contentChanged := answer.Content != fields.Content || answer.Format != fields.Format
	setUpdated := contentChanged && !wasQueued && !opts.Silent

	fields.Title = answer.Title
	fields.Tags = answer.Tags
	if err := e.store.SetContent(ctx, answer.ID, fields, attribution(actor, setUpdated)); err != nil {
		return fmt.Errorf("set answer content: %w", err)
	}

	if setUpdated && opts.Remoderate {
		for _, c := range commentsFollows {
			if c.BaseKind() == models.KindComment && c.ChildOf(answer.ID) {
				e.unindex(ctx, opts, c.ID)
			}
		}

		if err := e.store.SetType(ctx, answer.ID, models.TypeTag(models.KindAnswer, models.StatusQueued), nil); err != nil {
			return fmt.Errorf("requeue answer: %w", err)
		}
		if err := e.disableAnswerRecalc(ctx, question, answer.NetVotes); err != nil {
			return err
		}
		if err := e.counters.Update(ctx, CounterQueued, 1); err != nil {
			return fmt.Errorf("update queued count: %w", err)
		}
		e.recomputeIfUser(ctx, answer.UserID, MetricAPosts, MetricASelecteds)
		if answer.FlagCount > 0 {
			if err := e.counters.Update(ctx, CounterFlagged, -answer.FlagCount); err != nil {
				return fmt.Errorf("update flagged count: %w", err)
			}
		}
	} else if answer.Status() == models.StatusNormal && question.Status() == models.StatusNormal {
		// Don't index if the question or the answer is hidden or queued.
		e.indexDoc(ctx, opts, IndexDoc{
			PostID:     answer.ID,
			Kind:       models.KindAnswer,
			QuestionID: question.ID,
			ParentID:   nullableID(answer.ParentID),
			Content:    fields.Content,
			Format:     fields.Format,
			Text:       e.render.Text(fields.Content, fields.Format),
			CategoryID: nullableID(answer.CategoryID),
		})
	}

	e.uncache(ctx, question.ID)

	params := map[string]any{
		"postid":    answer.ID,
		"parentid":  nullableID(answer.ParentID),
		"parent":    question,
		"content":   fields.Content,
		"format":    fields.Format,
		"text":      e.render.Text(fields.Content, fields.Format),
		"name":      fields.Name,
		"oldanswer": answer,
	}
	e.report(ctx, "a_edit", actor, withParams(params, map[string]any{
		"silent":         opts.Silent,
		"oldcontent":     answer.Content,
		"oldformat":      answer.Format,
		"contentchanged": contentChanged,
	}))
	if setUpdated && opts.Remoderate {
		e.report(ctx, "a_requeue", actor, params)
	}
	return nil
}

// SetCommentContent changes a comment's content, format and display name.
// question is the antecedent question; parent is the direct parent (answer
// or the question itself).
func (e *Engine) SetCommentContent(ctx context.Context, actor Actor, opts Options, comment *models.Post, fields ContentFields, question, parent *models.Post) error {
	if parent == nil {
		parent = question
	}
	e.unindex(ctx, opts, comment.ID)

	wasQueued := comment.Status() == models.StatusQueued
	contentChanged := comment.Content != fields.Content || comment.Format != fields.Format
	setUpdated := contentChanged && !wasQueued && !opts.Silent

	fields.Title = comment.Title
	fields.Tags = comment.Tags
	if err := e.store.SetContent(ctx, comment.ID, fields, attribution(actor, setUpdated)); err != nil {
		return fmt.Errorf("set comment content: %w", err)
	}

	if setUpdated && opts.Remoderate {
		if err := e.store.SetType(ctx, comment.ID, models.TypeTag(models.KindComment, models.StatusQueued), nil); err != nil {
			return fmt.Errorf("requeue comment: %w", err)
		}
		if comment.Status() == models.StatusNormal {
			if err := e.counters.Update(ctx, CounterComments, -1); err != nil {
				return fmt.Errorf("update comment count: %w", err)
			}
		}
		if err := e.counters.Update(ctx, CounterQueued, 1); err != nil {
			return fmt.Errorf("update queued count: %w", err)
		}
		e.recomputeIfUser(ctx, comment.UserID, MetricCPosts)
		if comment.FlagCount > 0 {
			if err := e.counters.Update(ctx, CounterFlagged, -comment.FlagCount); err != nil {
				return fmt.Errorf("update flagged count: %w", err)
			}
		}
	} else if comment.Status() == models.StatusNormal &&
		question.Status() == models.StatusNormal && parent.Status() == models.StatusNormal {
		// All of comment, parent and question must be visible.
		e.indexDoc(ctx, opts, IndexDoc{
			PostID:     comment.ID,
			Kind:       models.KindComment,
			QuestionID: question.ID,
			ParentID:   nullableID(comment.ParentID),
			Content:    fields.Content,
			Format:     fields.Format,
			Text:       e.render.Text(fields.Content, fields.Format),
			CategoryID: nullableID(comment.CategoryID),
		})
	}

	e.uncache(ctx, question.ID)

	params := map[string]any{
		"postid":     comment.ID,
		"parentid":   nullableID(comment.ParentID),
		"parenttype": string(parent.BaseKind()),
		"parent":     parent,
		"questionid": question.ID,
		"question":   question,
		"content":    fields.Content,
		"format":     fields.Format,
		"text":       e.render.Text(fields.Content, fields.Format),
		"name":       fields.Name,
		"oldcomment": comment,
	}
	e.report(ctx, "c_edit", actor, withParams(params, map[string]any{
		"silent":         opts.Silent,
		"oldcontent":     comment.Content,
		"oldformat":      comment.Format,
		"contentchanged": contentChanged,
	}))
	if setUpdated && opts.Remoderate {
		e.report(ctx, "c_requeue", actor, params)
	}
	return nil
}
