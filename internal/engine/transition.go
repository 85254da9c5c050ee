package engine

import (
	"fmt"
	"strings"

	"github.com/qboard/qboard/internal/models"
)

// transition is everything a status change entails beyond persisting the new
// tag, resolved once and shared by the question, answer and comment paths.
type transition struct {
	// event is the transition event name ("a_hide", "q_approve", ...),
	// empty when the post is already in the requested status.
	event string
	// setUpdated attributes the change to the acting user as an edit.
	setUpdated bool
	// difference is +1 when the post enters normal status, -1 when it
	// leaves it, 0 for same-normality transitions.
	difference int
	// queuedDelta is the queued-count adjustment: +1 entering the queue,
	// -1 leaving it.
	queuedDelta int
	// recountHidden triggers a full hidden-count recount. Approve and
	// requeue transitions never change how many hidden posts exist.
	recountHidden bool
}

// resolveTransition computes the transition for moving a post of the given
// kind from one status to another.
func resolveTransition(kind models.Kind, from, to models.Status) (transition, error) {
	var t transition

	switch to {
	case models.StatusQueued:
		if from != models.StatusQueued {
			t.event = eventName(kind, "requeue") // same event whether it was hidden or shown before
		}

	case models.StatusHidden:
		if from != models.StatusHidden {
			if from == models.StatusQueued {
				t.event = eventName(kind, "reject")
			} else {
				t.event = eventName(kind, "hide")
				t.setUpdated = true
			}
		}

	case models.StatusNormal:
		if from == models.StatusQueued {
			t.event = eventName(kind, "approve")
		} else if from == models.StatusHidden {
			t.event = eventName(kind, "reshow")
			t.setUpdated = true
		}

	default:
		return t, fmt.Errorf("%w: %d", ErrUnknownStatus, int(to))
	}

	if to == models.StatusNormal && from != models.StatusNormal {
		t.difference = 1
	} else if to != models.StatusNormal && from == models.StatusNormal {
		t.difference = -1
	}

	if from == models.StatusQueued && to != models.StatusQueued {
		t.queuedDelta = -1
	} else if from != models.StatusQueued && to == models.StatusQueued {
		t.queuedDelta = 1
	}

	switch {
	case strings.HasSuffix(t.event, "_hide"),
		strings.HasSuffix(t.event, "_reshow"),
		strings.HasSuffix(t.event, "_reject"):
		t.recountHidden = true
	}

	return t, nil
}

// eventName builds the event vocabulary: "q_hide", "a_approve", "c_requeue".
func eventName(kind models.Kind, action string) string {
	return strings.ToLower(string(kind)) + "_" + action
}
