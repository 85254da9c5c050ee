package engine

import (
	"context"
	"fmt"

	"github.com/qboard/qboard/internal/models"
)

// SetSelectedAnswer sets or clears (selChildID nil) the question's selected
// answer. answers maps the question's answers by id and must contain both
// the previous and the new selection where applicable. Deselecting a
// question that was auto-closed by its own selection reopens it; selecting
// may close the question when the close-on-select policy is enabled.
func (e *Engine) SetSelectedAnswer(ctx context.Context, actor Actor, question *models.Post, selChildID *int64, answers map[int64]*models.Post) error {
	attr := &Attribution{UserID: actor.UserID, IP: actor.IP}

	if err := e.store.SetSelectedChild(ctx, question.ID, selChildID, attr); err != nil {
		return fmt.Errorf("set selected child: %w", err)
	}

	e.recomputeIfUser(ctx, question.UserID, MetricASelects)

	if question.SelChildID.Valid {
		if prev, ok := answers[question.SelChildID.Int64]; ok {
			// The question is unselected, at least until re-selection below.
			if err := e.counters.Update(ctx, CounterUnselected, 1); err != nil {
				return fmt.Errorf("update unselected count: %w", err)
			}
			e.recomputeIfUser(ctx, prev.UserID, MetricASelecteds)

			e.report(ctx, "a_unselect", actor, map[string]any{
				"parentid": question.ID,
				"parent":   question,
				"postid":   prev.ID,
				"answer":   prev,
			})

			// A question closed by its own selection (no close post) reopens
			// when the selection is withdrawn.
			if selChildID == nil && question.Closed && !question.ClosedByID.Valid {
				if err := e.store.SetClosed(ctx, question.ID, false, nil, attr); err != nil {
					return fmt.Errorf("reopen question: %w", err)
				}
				e.report(ctx, "q_reopen", actor, map[string]any{
					"postid":      question.ID,
					"oldquestion": question,
				})
			}
		}
	}

	if selChildID != nil {
		sel, ok := answers[*selChildID]
		if !ok {
			return fmt.Errorf("selected answer %d not among question %d answers", *selChildID, question.ID)
		}
		if err := e.counters.Update(ctx, CounterUnselected, -1); err != nil {
			return fmt.Errorf("update unselected count: %w", err)
		}
		e.recomputeIfUser(ctx, sel.UserID, MetricASelecteds)

		e.report(ctx, "a_select", actor, map[string]any{
			"parentid": question.ID,
			"parent":   question,
			"postid":   sel.ID,
			"answer":   sel,
		})

		if !question.Closed && e.policy.CloseOnSelect {
			if err := e.store.SetClosed(ctx, question.ID, true, nil, attr); err != nil {
				return fmt.Errorf("close question on select: %w", err)
			}
			e.report(ctx, "q_close", actor, map[string]any{
				"postid":      question.ID,
				"oldquestion": question,
				"reason":      "answer-selected",
				"originalid":  sel.ID,
			})
		}
	}
	return nil
}
