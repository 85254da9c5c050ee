package engine

import (
	"context"
	"testing"

	"github.com/qboard/qboard/internal/models"
)

func TestAnswerToComment(t *testing.T) {
	e, r := newRig(Policy{})

	q := question(1, models.StatusNormal)
	q.ACount = 2
	a := byUser(answer(10, 1, models.StatusNormal), 7)
	a.Content = "actually a remark"
	other := answer(11, 1, models.StatusNormal)
	reply := comment(20, 10, models.StatusNormal)
	r.store.votes[10] = map[int64]int{3: 1, 4: -1}

	err := e.AnswerToComment(context.Background(), Actor{UserID: ptr(99)}, Options{},
		a, 1, ContentFields{Content: "actually a remark", Format: a.Format},
		q, map[int64]*models.Post{10: a, 11: other}, []*models.Post{reply})
	if err != nil {
		t.Fatalf("AnswerToComment() error: %v", err)
	}

	types := r.store.callsFor("SetType")
	if len(types) != 1 || types[0].tag != "C" {
		t.Fatalf("SetType calls = %+v, want one C", types)
	}
	parents := r.store.callsFor("SetParent")
	if len(parents) != 2 {
		t.Fatalf("SetParent calls = %d, want converted answer plus its reply", len(parents))
	}
	for _, p := range parents {
		if p.value.(int64) != 1 {
			t.Errorf("SetParent(%d) to %v, want question 1", p.postID, p.value)
		}
	}

	if got := r.counters.values[CounterAnswers]; got != -1 {
		t.Errorf("answer count delta = %d, want -1", got)
	}
	if got := r.counters.values[CounterComments]; got != 1 {
		t.Errorf("comment count delta = %d, want 1", got)
	}
	if got := r.counters.values[CounterQueued]; got != 0 {
		t.Errorf("queued count delta = %d, want 0", got)
	}

	// Vote-derived metrics move from the answer family to the comment one.
	if !r.points.has(7, MetricAVoteds) || !r.points.has(7, MetricCVoteds) {
		t.Errorf("author vote metrics not recomputed: %v", r.points.byUser[7])
	}
	if !r.points.has(3, MetricAUpvotes) {
		t.Errorf("upvoter metrics not recomputed: %v", r.points.byUser[3])
	}
	if !r.points.has(4, MetricADownvotes) {
		t.Errorf("downvoter metrics not recomputed: %v", r.points.byUser[4])
	}

	doc, ok := r.index.docs[10]
	if !ok {
		t.Fatal("converted comment on a visible chain must be indexed")
	}
	if doc.Kind != models.KindComment {
		t.Errorf("indexed kind = %v, want comment", doc.Kind)
	}

	ev, ok := r.events.find("a_to_c")
	if !ok {
		t.Fatalf("events = %v, want a_to_c", r.events.names())
	}
	if _, hasOld := ev.params["oldanswer"]; !hasOld {
		t.Error("a_to_c must carry the oldanswer snapshot")
	}
}

func TestAnswerToCommentDeselects(t *testing.T) {
	e, r := newRig(Policy{})

	q := question(1, models.StatusNormal)
	q.ACount = 1
	q.SelChildID.Int64 = 10
	q.SelChildID.Valid = true
	a := answer(10, 1, models.StatusNormal)

	err := e.AnswerToComment(context.Background(), Actor{}, Options{},
		a, 1, ContentFields{Content: a.Content, Format: a.Format},
		q, map[int64]*models.Post{10: a}, nil)
	if err != nil {
		t.Fatalf("AnswerToComment() error: %v", err)
	}

	desel := r.store.callsFor("SetSelectedChild")
	if len(desel) != 1 || desel[0].value.(*int64) != nil {
		t.Fatalf("converting the selected answer must clear the selection, got %+v", desel)
	}
	if _, ok := r.events.find("a_unselect"); !ok {
		t.Errorf("events = %v, want a_unselect", r.events.names())
	}
}

func TestAnswerToCommentHiddenKeepsStatus(t *testing.T) {
	e, r := newRig(Policy{})

	q := question(1, models.StatusNormal)
	a := answer(10, 1, models.StatusHidden)

	err := e.AnswerToComment(context.Background(), Actor{}, Options{},
		a, 1, ContentFields{Content: a.Content, Format: a.Format},
		q, map[int64]*models.Post{10: a}, nil)
	if err != nil {
		t.Fatalf("AnswerToComment() error: %v", err)
	}

	types := r.store.callsFor("SetType")
	if len(types) != 1 || types[0].tag != "C_HIDDEN" {
		t.Fatalf("SetType calls = %+v, want one C_HIDDEN", types)
	}
	if got := r.counters.values[CounterAnswers]; got != 0 {
		t.Errorf("hidden answer conversion changed acount by %d", got)
	}
	if got := r.counters.values[CounterComments]; got != 0 {
		t.Errorf("hidden answer conversion changed ccount by %d", got)
	}
	if len(r.index.docs) != 0 {
		t.Error("hidden conversion must stay out of the index")
	}
}

func TestAnswerToCommentRemoderate(t *testing.T) {
	e, r := newRig(Policy{})

	q := question(1, models.StatusNormal)
	q.ACount = 1
	a := answer(10, 1, models.StatusNormal)
	a.Content = "before"
	a.FlagCount = 2

	err := e.AnswerToComment(context.Background(), Actor{UserID: ptr(7)}, Options{Remoderate: true},
		a, 1, ContentFields{Content: "after", Format: a.Format},
		q, map[int64]*models.Post{10: a}, nil)
	if err != nil {
		t.Fatalf("AnswerToComment() error: %v", err)
	}

	types := r.store.callsFor("SetType")
	if len(types) != 1 || types[0].tag != "C_QUEUED" {
		t.Fatalf("SetType calls = %+v, want one C_QUEUED", types)
	}
	if got := r.counters.values[CounterQueued]; got != 1 {
		t.Errorf("queued count delta = %d, want 1", got)
	}
	if got := r.counters.values[CounterComments]; got != 0 {
		t.Errorf("comment count delta = %d, want 0 while queued", got)
	}
	if got := r.counters.values[CounterFlagged]; got != -2 {
		t.Errorf("flagged count delta = %d, want -2", got)
	}
	if _, ok := r.events.find("c_requeue"); !ok {
		t.Errorf("events = %v, want c_requeue", r.events.names())
	}
}
