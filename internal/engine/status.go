package engine

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/qboard/qboard/internal/models"
)

// SetQuestionStatus moves a question between normal, hidden and queued.
// answers must hold all answers to the question and commentsFollows all
// comments on the question or its answers (follow-on questions in the slice
// are ignored); closePost matches the question's closed-by reference, if
// any. The whole subtree is unindexed up front because every child's index
// membership depends on the question's visibility.
func (e *Engine) SetQuestionStatus(ctx context.Context, actor Actor, opts Options, q *models.Post, status models.Status, answers []*models.Post, commentsFollows []*models.Post, closePost *models.Post) error {
	tr, err := resolveTransition(models.KindQuestion, q.Status(), status)
	if err != nil {
		return err
	}
	wasQueued := q.Status() == models.StatusQueued
	wasRequeued := wasQueued && q.UpdatedAt.Valid
	hasClose := closePost != nil && closePost.ChildOf(q.ID)

	e.unindex(ctx, opts, q.ID)
	for _, a := range answers {
		e.unindex(ctx, opts, a.ID)
	}
	for _, c := range commentsFollows {
		if c.BaseKind() == models.KindComment {
			e.unindex(ctx, opts, c.ID)
		}
	}
	if hasClose {
		e.unindex(ctx, opts, closePost.ID)
	}

	newTag := models.TypeTag(models.KindQuestion, status)
	if err := e.store.SetType(ctx, q.ID, newTag, attribution(actor, tr.setUpdated)); err != nil {
		return fmt.Errorf("set question type: %w", err)
	}

	if wasQueued && status == models.StatusNormal && e.policy.UpdateTimeOnApprove {
		if wasRequeued {
			// Approving an edit: reset the edit time, not the post time.
			if err := e.store.SetUpdatedNow(ctx, q.ID); err != nil {
				return fmt.Errorf("reset updated time: %w", err)
			}
		} else {
			if err := e.store.SetCreatedNow(ctx, q.ID); err != nil {
				return fmt.Errorf("reset created time: %w", err)
			}
			if err := e.store.UpdateHotness(ctx, q.ID); err != nil {
				return fmt.Errorf("update hotness: %w", err)
			}
		}
	}

	if tr.difference != 0 {
		if err := e.questionCacheRecalc(ctx, q, tr.difference); err != nil {
			return err
		}
	}
	if tr.queuedDelta != 0 {
		if err := e.counters.Update(ctx, CounterQueued, tr.queuedDelta); err != nil {
			return fmt.Errorf("update queued count: %w", err)
		}
	}

	e.recomputeIfUser(ctx, q.UserID, MetricQPosts, MetricASelects)

	if tr.recountHidden {
		if err := e.counters.RecountHidden(ctx); err != nil {
			return fmt.Errorf("recount hidden: %w", err)
		}
	}
	if q.FlagCount > 0 && tr.difference != 0 {
		if err := e.counters.Update(ctx, CounterFlagged, tr.difference*q.FlagCount); err != nil {
			return fmt.Errorf("update flagged count: %w", err)
		}
	}

	if status == models.StatusNormal {
		e.indexDoc(ctx, opts, e.questionDoc(q))

		byID := answersByID(answers)
		for _, a := range answers {
			// Even with the question visible, hidden or queued answers stay out.
			if a.BaseKind() == models.KindAnswer && a.Status() == models.StatusNormal {
				e.indexDoc(ctx, opts, e.childDoc(q.ID, a))
			}
		}
		for _, c := range commentsFollows {
			if c.BaseKind() != models.KindComment || c.Status() != models.StatusNormal {
				continue
			}
			if parent, onAnswer := byID[parentID(c)]; onAnswer && parent.Status() != models.StatusNormal {
				continue // comment's parent answer is hidden or queued
			}
			e.indexDoc(ctx, opts, e.childDoc(q.ID, c))
		}
		if hasClose {
			e.indexDoc(ctx, opts, e.childDoc(q.ID, closePost))
		}
	}

	e.uncache(ctx, q.ID)

	params := e.questionEventParams(q)
	if tr.event != "" {
		e.report(ctx, tr.event, actor, withParams(params, map[string]any{
			"oldquestion": q,
		}))
	}
	if wasQueued && status == models.StatusNormal && !wasRequeued {
		// First-time approval publishes the post for real.
		e.reportPosted(ctx, eventName(models.KindQuestion, "post"), q, params)
	}
	return nil
}

// SetAnswerStatus moves an answer between normal, hidden and queued.
// question is the answer's parent question, commentsFollows the comments on
// the answer (other records in the slice are ignored).
func (e *Engine) SetAnswerStatus(ctx context.Context, actor Actor, opts Options, answer *models.Post, status models.Status, question *models.Post, commentsFollows []*models.Post) error {
	tr, err := resolveTransition(models.KindAnswer, answer.Status(), status)
	if err != nil {
		return err
	}
	wasQueued := answer.Status() == models.StatusQueued
	wasRequeued := wasQueued && answer.UpdatedAt.Valid

	e.unindex(ctx, opts, answer.ID)
	for _, c := range commentsFollows {
		if c.BaseKind() == models.KindComment && c.ChildOf(answer.ID) {
			e.unindex(ctx, opts, c.ID)
		}
	}

	if status == models.StatusHidden && question.Selected(answer.ID) {
		// Hiding the selected answer deselects it first.
		if err := e.SetSelectedAnswer(ctx, Actor{}, question, nil, map[int64]*models.Post{answer.ID: answer}); err != nil {
			return err
		}
	}

	newTag := models.TypeTag(models.KindAnswer, status)
	if err := e.store.SetType(ctx, answer.ID, newTag, attribution(actor, tr.setUpdated)); err != nil {
		return fmt.Errorf("set answer type: %w", err)
	}

	if wasQueued && status == models.StatusNormal && e.policy.UpdateTimeOnApprove {
		if wasRequeued {
			if err := e.store.SetUpdatedNow(ctx, answer.ID); err != nil {
				return fmt.Errorf("reset updated time: %w", err)
			}
		} else if err := e.store.SetCreatedNow(ctx, answer.ID); err != nil {
			return fmt.Errorf("reset created time: %w", err)
		}
	}

	switch tr.difference {
	case 1:
		if err := e.enableAnswerRecalc(ctx, question, answer); err != nil {
			return err
		}
	case -1:
		if err := e.disableAnswerRecalc(ctx, question, answer.NetVotes); err != nil {
			return err
		}
	}

	if tr.queuedDelta != 0 {
		if err := e.counters.Update(ctx, CounterQueued, tr.queuedDelta); err != nil {
			return fmt.Errorf("update queued count: %w", err)
		}
	}

	e.recomputeIfUser(ctx, answer.UserID, MetricAPosts, MetricASelecteds)

	if tr.recountHidden {
		if err := e.counters.RecountHidden(ctx); err != nil {
			return fmt.Errorf("recount hidden: %w", err)
		}
	}
	if answer.FlagCount > 0 && tr.difference != 0 {
		if err := e.counters.Update(ctx, CounterFlagged, tr.difference*answer.FlagCount); err != nil {
			return fmt.Errorf("update flagged count: %w", err)
		}
	}

	// Even with the answer visible, stay out of the index under a hidden or
	// queued question.
	if question.Status() == models.StatusNormal && status == models.StatusNormal {
		e.indexDoc(ctx, opts, e.childDoc(question.ID, answer))
		for _, c := range commentsFollows {
			if c.BaseKind() == models.KindComment && c.Status() == models.StatusNormal && c.ChildOf(answer.ID) {
				e.indexDoc(ctx, opts, e.childDoc(question.ID, c))
			}
		}
	}

	e.uncache(ctx, question.ID)

	params := e.childEventParams(answer, question)
	if tr.event != "" {
		e.report(ctx, tr.event, actor, withParams(params, map[string]any{
			"oldanswer": answer,
		}))
	}
	if wasQueued && status == models.StatusNormal && !wasRequeued {
		e.reportPosted(ctx, eventName(models.KindAnswer, "post"), answer, params)
	}
	return nil
}

// SetCommentStatus moves a comment between normal, hidden and queued.
// question is the antecedent question; parent is the direct parent (an
// answer, or the question itself).
func (e *Engine) SetCommentStatus(ctx context.Context, actor Actor, opts Options, comment *models.Post, status models.Status, question, parent *models.Post) error {
	if parent == nil {
		parent = question
	}
	tr, err := resolveTransition(models.KindComment, comment.Status(), status)
	if err != nil {
		return err
	}
	wasQueued := comment.Status() == models.StatusQueued
	wasRequeued := wasQueued && comment.UpdatedAt.Valid

	e.unindex(ctx, opts, comment.ID)

	newTag := models.TypeTag(models.KindComment, status)
	if err := e.store.SetType(ctx, comment.ID, newTag, attribution(actor, tr.setUpdated)); err != nil {
		return fmt.Errorf("set comment type: %w", err)
	}

	if wasQueued && status == models.StatusNormal && e.policy.UpdateTimeOnApprove {
		if wasRequeued {
			if err := e.store.SetUpdatedNow(ctx, comment.ID); err != nil {
				return fmt.Errorf("reset updated time: %w", err)
			}
		} else if err := e.store.SetCreatedNow(ctx, comment.ID); err != nil {
			return fmt.Errorf("reset created time: %w", err)
		}
	}

	if tr.queuedDelta != 0 {
		if err := e.counters.Update(ctx, CounterQueued, tr.queuedDelta); err != nil {
			return fmt.Errorf("update queued count: %w", err)
		}
	}

	e.recomputeIfUser(ctx, comment.UserID, MetricCPosts)

	if tr.recountHidden {
		if err := e.counters.RecountHidden(ctx); err != nil {
			return fmt.Errorf("recount hidden: %w", err)
		}
	}
	if tr.difference != 0 {
		if err := e.counters.Update(ctx, CounterComments, tr.difference); err != nil {
			return fmt.Errorf("update comment count: %w", err)
		}
		if comment.FlagCount > 0 {
			if err := e.counters.Update(ctx, CounterFlagged, tr.difference*comment.FlagCount); err != nil {
				return fmt.Errorf("update flagged count: %w", err)
			}
		}
	}

	// Index only if nothing the comment depends on is hidden or queued.
	if question.Status() == models.StatusNormal && parent.Status() == models.StatusNormal && status == models.StatusNormal {
		e.indexDoc(ctx, opts, e.childDoc(question.ID, comment))
	}

	e.uncache(ctx, question.ID)

	params := e.commentEventParams(comment, question, parent)
	if tr.event != "" {
		e.report(ctx, tr.event, actor, withParams(params, map[string]any{
			"oldcomment": comment,
		}))
	}
	if wasQueued && status == models.StatusNormal && !wasRequeued {
		e.reportPosted(ctx, eventName(models.KindComment, "post"), comment, params)
	}
	return nil
}

// reportPosted emits the {q,a,c}_post event for a first-time approval, acting
// as the post's author rather than the moderator.
func (e *Engine) reportPosted(ctx context.Context, event string, p *models.Post, params map[string]any) {
	author := Actor{UserID: nullableID(p.UserID), Handle: p.Name}
	e.report(ctx, event, author, withParams(params, map[string]any{
		"notify":  p.Notify.Valid,
		"email":   notifyEmail(p),
		"delayed": p.CreatedAt,
	}))
}

func (e *Engine) questionEventParams(q *models.Post) map[string]any {
	return map[string]any{
		"postid":     q.ID,
		"parentid":   nullableID(q.ParentID),
		"title":      q.Title,
		"content":    q.Content,
		"format":     q.Format,
		"text":       e.render.Text(q.Content, q.Format),
		"tags":       q.Tags,
		"categoryid": nullableID(q.CategoryID),
		"name":       q.Name,
	}
}

func (e *Engine) childEventParams(p, question *models.Post) map[string]any {
	return map[string]any{
		"postid":     p.ID,
		"parentid":   nullableID(p.ParentID),
		"parent":     question,
		"content":    p.Content,
		"format":     p.Format,
		"text":       e.render.Text(p.Content, p.Format),
		"categoryid": nullableID(p.CategoryID),
		"name":       p.Name,
	}
}

func (e *Engine) commentEventParams(c, question, parent *models.Post) map[string]any {
	return map[string]any{
		"postid":     c.ID,
		"parentid":   nullableID(c.ParentID),
		"parenttype": string(parent.BaseKind()),
		"parent":     parent,
		"questionid": question.ID,
		"question":   question,
		"content":    c.Content,
		"format":     c.Format,
		"text":       e.render.Text(c.Content, c.Format),
		"categoryid": nullableID(c.CategoryID),
		"name":       c.Name,
	}
}

// withParams copies base and overlays extra, so each event carries its own
// parameter map.
func withParams(base, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// notifyEmail returns the notify preference when it holds a deliverable
// address, otherwise nil.
func notifyEmail(p *models.Post) *string {
	if !p.Notify.Valid {
		return nil
	}
	if _, err := mail.ParseAddress(p.Notify.String); err != nil {
		return nil
	}
	s := p.Notify.String
	return &s
}

func answersByID(answers []*models.Post) map[int64]*models.Post {
	m := make(map[int64]*models.Post, len(answers))
	for _, a := range answers {
		m[a.ID] = a
	}
	return m
}

func parentID(p *models.Post) int64 {
	if !p.ParentID.Valid {
		return 0
	}
	return p.ParentID.Int64
}
