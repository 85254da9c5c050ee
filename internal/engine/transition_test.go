package engine

import (
	"errors"
	"testing"

	"github.com/qboard/qboard/internal/models"
)

func TestResolveTransition(t *testing.T) {
	tests := []struct {
		name          string
		kind          models.Kind
		from, to      models.Status
		event         string
		setUpdated    bool
		difference    int
		queuedDelta   int
		recountHidden bool
	}{
		{
			name: "approve question",
			kind: models.KindQuestion, from: models.StatusQueued, to: models.StatusNormal,
			event: "q_approve", difference: 1, queuedDelta: -1,
		},
		{
			name: "reject answer",
			kind: models.KindAnswer, from: models.StatusQueued, to: models.StatusHidden,
			event: "a_reject", queuedDelta: -1, recountHidden: true,
		},
		{
			name: "hide comment",
			kind: models.KindComment, from: models.StatusNormal, to: models.StatusHidden,
			event: "c_hide", setUpdated: true, difference: -1, recountHidden: true,
		},
		{
			name: "reshow question",
			kind: models.KindQuestion, from: models.StatusHidden, to: models.StatusNormal,
			event: "q_reshow", setUpdated: true, difference: 1, recountHidden: true,
		},
		{
			name: "requeue from normal",
			kind: models.KindAnswer, from: models.StatusNormal, to: models.StatusQueued,
			event: "a_requeue", difference: -1, queuedDelta: 1,
		},
		{
			name: "requeue from hidden",
			kind: models.KindQuestion, from: models.StatusHidden, to: models.StatusQueued,
			event: "q_requeue", queuedDelta: 1,
		},
		{
			name: "already normal",
			kind: models.KindQuestion, from: models.StatusNormal, to: models.StatusNormal,
		},
		{
			name: "already hidden",
			kind: models.KindComment, from: models.StatusHidden, to: models.StatusHidden,
		},
		{
			name: "already queued",
			kind: models.KindAnswer, from: models.StatusQueued, to: models.StatusQueued,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := resolveTransition(tt.kind, tt.from, tt.to)
			if err != nil {
				t.Fatalf("resolveTransition() error: %v", err)
			}
			if tr.event != tt.event {
				t.Errorf("event = %q, want %q", tr.event, tt.event)
			}
			if tr.setUpdated != tt.setUpdated {
				t.Errorf("setUpdated = %v, want %v", tr.setUpdated, tt.setUpdated)
			}
			if tr.difference != tt.difference {
				t.Errorf("difference = %d, want %d", tr.difference, tt.difference)
			}
			if tr.queuedDelta != tt.queuedDelta {
				t.Errorf("queuedDelta = %d, want %d", tr.queuedDelta, tt.queuedDelta)
			}
			if tr.recountHidden != tt.recountHidden {
				t.Errorf("recountHidden = %v, want %v", tr.recountHidden, tt.recountHidden)
			}
		})
	}
}

func TestResolveTransitionUnknownStatus(t *testing.T) {
	_, err := resolveTransition(models.KindQuestion, models.StatusNormal, models.Status(7))
	if !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

// Round-tripping any status through the queue and back must leave the
// queued-count contribution at zero.
func TestTransitionQueuedDeltaSymmetry(t *testing.T) {
	statuses := []models.Status{models.StatusNormal, models.StatusHidden}
	for _, s := range statuses {
		in, err := resolveTransition(models.KindQuestion, s, models.StatusQueued)
		if err != nil {
			t.Fatal(err)
		}
		out, err := resolveTransition(models.KindQuestion, models.StatusQueued, s)
		if err != nil {
			t.Fatal(err)
		}
		if in.queuedDelta+out.queuedDelta != 0 {
			t.Errorf("queued deltas for %v round trip sum to %d", s, in.queuedDelta+out.queuedDelta)
		}
	}
}
