package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/qboard/qboard/internal/models"
)

func TestSetQuestionAuthor(t *testing.T) {
	e, r := newRig(Policy{})

	q := byUser(question(1, models.StatusNormal), 5)
	err := e.SetQuestionAuthor(context.Background(), Actor{UserID: ptr(99)}, q, ptr(8))
	if err != nil {
		t.Fatalf("SetQuestionAuthor() error: %v", err)
	}

	for _, op := range []string{"SetAuthor", "RemoveOwnVote", "RecountVotes"} {
		if len(r.store.callsFor(op)) != 1 {
			t.Errorf("%s not called", op)
		}
	}
	if !r.points.has(5, MetricQPosts) {
		t.Error("previous author's qposts not recomputed")
	}
	if !r.points.has(8, MetricQPosts) || !r.points.has(8, MetricQUpvotes) {
		t.Errorf("new author metrics not recomputed: %v", r.points.byUser[8])
	}
	if got := r.events.names(); !reflect.DeepEqual(got, []string{"q_claim"}) {
		t.Errorf("events = %v, want [q_claim]", got)
	}
}

func TestSetAnswerAuthorToAnonymous(t *testing.T) {
	e, r := newRig(Policy{})

	a := byUser(answer(10, 1, models.StatusNormal), 7)
	err := e.SetAnswerAuthor(context.Background(), Actor{}, a, nil)
	if err != nil {
		t.Fatalf("SetAnswerAuthor() error: %v", err)
	}

	sets := r.store.callsFor("SetAuthor")
	if len(sets) != 1 || sets[0].value.(*int64) != nil {
		t.Fatalf("SetAuthor calls = %+v, want one nil", sets)
	}
	if !r.points.has(7, MetricAPosts) {
		t.Error("previous author's aposts not recomputed")
	}
	if len(r.points.byUser) != 1 {
		t.Errorf("anonymous claim must only touch the previous author: %v", r.points.byUser)
	}
	if _, ok := r.events.find("a_claim"); !ok {
		t.Errorf("events = %v, want a_claim", r.events.names())
	}
}

func TestDeleteQuestionPreconditions(t *testing.T) {
	t.Run("not hidden", func(t *testing.T) {
		e, _ := newRig(Policy{})
		err := e.DeleteQuestion(context.Background(), Actor{}, Options{}, question(1, models.StatusNormal), nil)
		if !errors.Is(err, ErrNotHidden) {
			t.Fatalf("expected ErrNotHidden, got %v", err)
		}
	})
	t.Run("has children", func(t *testing.T) {
		e, r := newRig(Policy{})
		r.store.children = 2
		err := e.DeleteQuestion(context.Background(), Actor{}, Options{}, question(1, models.StatusHidden), nil)
		if !errors.Is(err, ErrHasChildren) {
			t.Fatalf("expected ErrHasChildren, got %v", err)
		}
		if len(r.store.callsFor("DeletePost")) != 0 {
			t.Error("failed precondition must not delete anything")
		}
	})
}

func TestDeleteQuestion(t *testing.T) {
	e, r := newRig(Policy{})

	q := byUser(question(1, models.StatusHidden), 5)
	r.store.votes[1] = map[int64]int{3: 1, 4: -1}
	r.store.paths[1] = "/12"

	err := e.DeleteQuestion(context.Background(), Actor{UserID: ptr(99)}, Options{}, q, nil)
	if err != nil {
		t.Fatalf("DeleteQuestion() error: %v", err)
	}

	dels := r.store.callsFor("DeletePost")
	if len(dels) != 1 || dels[0].postID != 1 {
		t.Fatalf("DeletePost calls = %+v", dels)
	}
	if !reflect.DeepEqual(r.index.unindexed, []int64{1}) {
		t.Errorf("unindexed = %v, want [1]", r.index.unindexed)
	}
	if !reflect.DeepEqual(r.counters.pathRecounts, []string{"/12"}) {
		t.Errorf("path recounts = %v, want the old path", r.counters.pathRecounts)
	}
	if r.counters.hiddenRecounts != 1 {
		t.Errorf("hiddenRecounts = %d, want 1", r.counters.hiddenRecounts)
	}
	if !r.points.has(3, MetricQUpvotes) || !r.points.has(4, MetricQDownvotes) {
		t.Errorf("voter metrics not recomputed: %v", r.points.byUser)
	}
	if got := r.events.names(); !reflect.DeepEqual(got, []string{"q_delete_before", "q_delete"}) {
		t.Errorf("events = %v, want [q_delete_before q_delete]", got)
	}
}

func TestDeleteQuestionDetachesCloseNote(t *testing.T) {
	e, r := newRig(Policy{})

	q := question(1, models.StatusHidden)
	q.Closed = true
	q.ClosedByID.Int64 = 900
	q.ClosedByID.Valid = true
	note := &models.Post{ID: 900, Type: string(models.KindNote)}
	note.ParentID.Int64 = 1
	note.ParentID.Valid = true

	err := e.DeleteQuestion(context.Background(), Actor{}, Options{}, q, note)
	if err != nil {
		t.Fatalf("DeleteQuestion() error: %v", err)
	}

	closes := r.store.callsFor("SetClosed")
	if len(closes) != 1 || closes[0].value.([]any)[0].(bool) != false {
		t.Fatalf("close reference must be detached first, got %+v", closes)
	}
	dels := r.store.callsFor("DeletePost")
	if len(dels) != 2 || dels[0].postID != 900 || dels[1].postID != 1 {
		t.Errorf("DeletePost calls = %+v, want note then question", dels)
	}
}

func TestDeleteAnswerClearsSelection(t *testing.T) {
	e, r := newRig(Policy{})

	q := byUser(question(1, models.StatusNormal), 5)
	q.SelChildID.Int64 = 10
	q.SelChildID.Valid = true
	a := byUser(answer(10, 1, models.StatusHidden), 7)
	r.store.votes[10] = map[int64]int{3: 1}

	err := e.DeleteAnswer(context.Background(), Actor{}, Options{}, a, q)
	if err != nil {
		t.Fatalf("DeleteAnswer() error: %v", err)
	}

	desel := r.store.callsFor("SetSelectedChild")
	if len(desel) != 1 || desel[0].value.(*int64) != nil {
		t.Fatalf("deleting the selected answer must clear the selection, got %+v", desel)
	}
	if !r.points.has(5, MetricASelects) {
		t.Error("asker's aselects not recomputed after losing the selection")
	}
	if !r.points.has(3, MetricAUpvotes) {
		t.Error("voter metrics not recomputed")
	}
	if got := r.events.names(); !reflect.DeepEqual(got, []string{"a_delete_before", "a_delete"}) {
		t.Errorf("events = %v", got)
	}
}

func TestDeleteAnswerNotHidden(t *testing.T) {
	e, _ := newRig(Policy{})
	err := e.DeleteAnswer(context.Background(), Actor{}, Options{},
		answer(10, 1, models.StatusNormal), question(1, models.StatusNormal))
	if !errors.Is(err, ErrNotHidden) {
		t.Fatalf("expected ErrNotHidden, got %v", err)
	}
}

func TestDeleteComment(t *testing.T) {
	e, r := newRig(Policy{})

	q := question(1, models.StatusNormal)
	c := byUser(comment(20, 1, models.StatusHidden), 3)

	err := e.DeleteComment(context.Background(), Actor{}, Options{}, c, q, nil)
	if err != nil {
		t.Fatalf("DeleteComment() error: %v", err)
	}

	dels := r.store.callsFor("DeletePost")
	if len(dels) != 1 || dels[0].postID != 20 {
		t.Fatalf("DeletePost calls = %+v", dels)
	}
	if r.counters.hiddenRecounts != 1 {
		t.Errorf("hiddenRecounts = %d, want 1", r.counters.hiddenRecounts)
	}
	if !r.points.has(3, MetricCPosts) {
		t.Error("author's cposts not recomputed")
	}
	ev, _ := r.events.find("c_delete")
	if ev.params["parenttype"] != "Q" {
		t.Errorf("parenttype = %v, want Q", ev.params["parenttype"])
	}
}
