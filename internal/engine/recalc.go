package engine

import (
	"context"
	"fmt"

	"github.com/qboard/qboard/internal/models"
)

// questionBasicRecalc applies the counters that track questions satisfying a
// sub-predicate (no answers, no upvoted answer, no selected answer). They
// only move when the sub-predicate held before the change, so each is gated
// on the question's denormalized state.
func (e *Engine) questionBasicRecalc(ctx context.Context, q *models.Post, difference int) error {
	if q.ACount == 0 {
		if err := e.counters.Update(ctx, CounterUnanswered, difference); err != nil {
			return fmt.Errorf("update unanswered count: %w", err)
		}
	}
	if q.AMaxVote == 0 {
		if err := e.counters.Update(ctx, CounterUnupvoted, difference); err != nil {
			return fmt.Errorf("update no-upvoted-answer count: %w", err)
		}
	}
	if !q.SelChildID.Valid {
		if err := e.counters.Update(ctx, CounterUnselected, difference); err != nil {
			return fmt.Errorf("update unselected count: %w", err)
		}
	}
	return nil
}

// questionCacheRecalc applies the general question counters when a question
// enters or leaves normal status.
func (e *Engine) questionCacheRecalc(ctx context.Context, q *models.Post, difference int) error {
	path, err := e.store.CategoryPath(ctx, q.ID)
	if err != nil {
		return fmt.Errorf("get category path: %w", err)
	}
	if err := e.counters.RecountCategoryPath(ctx, path); err != nil {
		return fmt.Errorf("recount category path: %w", err)
	}
	if err := e.counters.Update(ctx, CounterQuestions, difference); err != nil {
		return fmt.Errorf("update question count: %w", err)
	}
	if !q.ClosedByID.Valid {
		if err := e.questionBasicRecalc(ctx, q, difference); err != nil {
			return err
		}
	}
	if err := e.counters.RecountTags(ctx); err != nil {
		return fmt.Errorf("recount tags: %w", err)
	}
	return nil
}

// enableAnswerRecalc runs the answer-related bookkeeping when an answer to q
// becomes visible.
func (e *Engine) enableAnswerRecalc(ctx context.Context, q, answer *models.Post) error {
	if err := e.store.BumpAnswerCount(ctx, q.ID, 1); err != nil {
		return fmt.Errorf("bump question answer count: %w", err)
	}
	if q.ACount == 0 && !q.ClosedByID.Valid {
		if err := e.counters.Update(ctx, CounterUnanswered, -1); err != nil {
			return fmt.Errorf("update unanswered count: %w", err)
		}
	}

	if answer.NetVotes > q.AMaxVote {
		if err := e.store.SetMaxAnswerVotes(ctx, q.ID, answer.NetVotes); err != nil {
			return fmt.Errorf("set max answer votes: %w", err)
		}
		if q.AMaxVote == 0 && !q.ClosedByID.Valid {
			if err := e.counters.Update(ctx, CounterUnupvoted, -1); err != nil {
				return fmt.Errorf("update no-upvoted-answer count: %w", err)
			}
		}
	}

	if err := e.store.UpdateHotness(ctx, q.ID); err != nil {
		return fmt.Errorf("update hotness: %w", err)
	}
	if err := e.counters.Update(ctx, CounterAnswers, 1); err != nil {
		return fmt.Errorf("update answer count: %w", err)
	}
	return nil
}

// disableAnswerRecalc reverses the answer-related bookkeeping when a
// previously visible answer to q becomes invisible (hidden, requeued,
// converted to a comment). netVotes is the disappearing answer's net votes.
func (e *Engine) disableAnswerRecalc(ctx context.Context, q *models.Post, netVotes int) error {
	if err := e.store.UpdateHotness(ctx, q.ID); err != nil {
		return fmt.Errorf("update hotness: %w", err)
	}
	if err := e.counters.Update(ctx, CounterAnswers, -1); err != nil {
		return fmt.Errorf("update answer count: %w", err)
	}
	if err := e.store.BumpAnswerCount(ctx, q.ID, -1); err != nil {
		return fmt.Errorf("bump question answer count: %w", err)
	}

	onlyAnswer := q.ACount == 1
	if onlyAnswer && !q.ClosedByID.Valid {
		if err := e.counters.Update(ctx, CounterUnanswered, 1); err != nil {
			return fmt.Errorf("update unanswered count: %w", err)
		}
	}

	if q.AMaxVote > 0 && q.AMaxVote == netVotes {
		if onlyAnswer {
			if err := e.store.SetMaxAnswerVotes(ctx, q.ID, 0); err != nil {
				return fmt.Errorf("set max answer votes: %w", err)
			}
			if !q.ClosedByID.Valid {
				if err := e.counters.Update(ctx, CounterUnupvoted, 1); err != nil {
					return fmt.Errorf("update no-upvoted-answer count: %w", err)
				}
			}
		} else {
			// This answer carried the maximum; recompute it from the
			// remaining visible answers.
			newMax, err := e.store.RecalcMaxAnswerVotes(ctx, q.ID)
			if err != nil {
				return fmt.Errorf("recalc max answer votes: %w", err)
			}
			if newMax == 0 && !q.ClosedByID.Valid {
				if err := e.counters.Update(ctx, CounterUnupvoted, 1); err != nil {
					return fmt.Errorf("update no-upvoted-answer count: %w", err)
				}
			}
		}
	}
	return nil
}
