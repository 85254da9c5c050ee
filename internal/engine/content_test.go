package engine

import (
	"context"
	"testing"

	"github.com/qboard/qboard/internal/models"
)

func TestSetQuestionContentEdit(t *testing.T) {
	e, r := newRig(Policy{})

	q := byUser(question(1, models.StatusNormal), 5)
	q.Title = "old title"
	q.Content = "old content"
	q.Tags = "go,slices"

	fields := ContentFields{Title: "new title", Content: "new content", Format: "markdown", Tags: "go,slices"}
	err := e.SetQuestionContent(context.Background(), Actor{UserID: ptr(5)}, Options{}, q, fields, nil, nil, nil)
	if err != nil {
		t.Fatalf("SetQuestionContent() error: %v", err)
	}

	sets := r.store.callsFor("SetContent")
	if len(sets) != 1 || sets[0].attr == nil {
		t.Fatalf("edit must be attributed, SetContent calls = %+v", sets)
	}
	doc, ok := r.index.docs[1]
	if !ok {
		t.Fatal("edited visible question must be reindexed")
	}
	if doc.Title != "new title" || doc.Content != "new content" {
		t.Errorf("indexed doc carries stale content: %+v", doc)
	}
	if r.counters.tagRecounts != 0 {
		t.Error("unchanged tags must not trigger a tag recount")
	}

	ev, ok := r.events.find("q_edit")
	if !ok {
		t.Fatalf("events = %v, want q_edit", r.events.names())
	}
	if ev.params["titlechanged"] != true || ev.params["contentchanged"] != true || ev.params["tagschanged"] != false {
		t.Errorf("change flags = %v", ev.params)
	}
	if ev.params["oldtitle"] != "old title" {
		t.Errorf("oldtitle = %v", ev.params["oldtitle"])
	}
}

func TestSetQuestionContentSilent(t *testing.T) {
	e, r := newRig(Policy{})

	q := question(1, models.StatusNormal)
	q.Content = "before"

	err := e.SetQuestionContent(context.Background(), Actor{UserID: ptr(5)}, Options{Silent: true},
		q, ContentFields{Content: "after"}, nil, nil, nil)
	if err != nil {
		t.Fatalf("SetQuestionContent() error: %v", err)
	}
	sets := r.store.callsFor("SetContent")
	if len(sets) != 1 || sets[0].attr != nil {
		t.Errorf("silent edit must not be attributed, got %+v", sets)
	}
}

func TestSetQuestionContentTagsChangedRecounts(t *testing.T) {
	e, r := newRig(Policy{})

	q := question(1, models.StatusNormal)
	q.Tags = "go"

	err := e.SetQuestionContent(context.Background(), Actor{}, Options{},
		q, ContentFields{Tags: "go,generics"}, nil, nil, nil)
	if err != nil {
		t.Fatalf("SetQuestionContent() error: %v", err)
	}
	if r.counters.tagRecounts != 1 {
		t.Errorf("tagRecounts = %d, want 1", r.counters.tagRecounts)
	}
}

func TestSetQuestionContentRemoderate(t *testing.T) {
	e, r := newRig(Policy{})

	q := byUser(question(1, models.StatusNormal), 5)
	q.Content = "before"
	q.FlagCount = 3
	a := answer(10, 1, models.StatusNormal)

	err := e.SetQuestionContent(context.Background(), Actor{UserID: ptr(5)}, Options{Remoderate: true},
		q, ContentFields{Content: "after"}, []*models.Post{a}, nil, nil)
	if err != nil {
		t.Fatalf("SetQuestionContent() error: %v", err)
	}

	types := r.store.callsFor("SetType")
	if len(types) != 1 || types[0].tag != "Q_QUEUED" {
		t.Fatalf("SetType calls = %+v, want one Q_QUEUED", types)
	}
	if len(r.index.docs) != 0 {
		t.Error("remoderated question must leave the index")
	}
	for _, id := range []int64{1, 10} {
		found := false
		for _, u := range r.index.unindexed {
			if u == id {
				found = true
			}
		}
		if !found {
			t.Errorf("post %d not unindexed on remoderation", id)
		}
	}
	if got := r.counters.values[CounterQuestions]; got != -1 {
		t.Errorf("question count delta = %d, want -1", got)
	}
	if got := r.counters.values[CounterQueued]; got != 1 {
		t.Errorf("queued count delta = %d, want 1", got)
	}
	if got := r.counters.values[CounterFlagged]; got != -3 {
		t.Errorf("flagged count delta = %d, want -3 (flags withdrawn)", got)
	}
	if _, ok := r.events.find("q_requeue"); !ok {
		t.Errorf("events = %v, want q_requeue", r.events.names())
	}
}

func TestSetAnswerContentNoChangeNotAttributed(t *testing.T) {
	e, r := newRig(Policy{})

	q := question(1, models.StatusNormal)
	a := answer(10, 1, models.StatusNormal)
	a.Content = "same"

	err := e.SetAnswerContent(context.Background(), Actor{UserID: ptr(5)}, Options{},
		a, ContentFields{Content: "same"}, q, nil)
	if err != nil {
		t.Fatalf("SetAnswerContent() error: %v", err)
	}
	sets := r.store.callsFor("SetContent")
	if len(sets) != 1 || sets[0].attr != nil {
		t.Errorf("unchanged content must not be attributed, got %+v", sets)
	}
	ev, _ := r.events.find("a_edit")
	if ev.params["contentchanged"] != false {
		t.Errorf("contentchanged = %v, want false", ev.params["contentchanged"])
	}
}

func TestSetAnswerContentRemoderateWithdrawsAnswer(t *testing.T) {
	e, r := newRig(Policy{})

	q := question(1, models.StatusNormal)
	q.ACount = 2
	a := byUser(answer(10, 1, models.StatusNormal), 7)
	a.Content = "before"

	err := e.SetAnswerContent(context.Background(), Actor{UserID: ptr(7)}, Options{Remoderate: true},
		a, ContentFields{Content: "after"}, q, nil)
	if err != nil {
		t.Fatalf("SetAnswerContent() error: %v", err)
	}

	types := r.store.callsFor("SetType")
	if len(types) != 1 || types[0].tag != "A_QUEUED" {
		t.Fatalf("SetType calls = %+v, want one A_QUEUED", types)
	}
	if got := r.counters.values[CounterAnswers]; got != -1 {
		t.Errorf("answer count delta = %d, want -1", got)
	}
	if got := r.counters.values[CounterUnanswered]; got != 0 {
		t.Errorf("unanswered delta = %d, want 0 while another answer remains", got)
	}
	if got := r.counters.values[CounterQueued]; got != 1 {
		t.Errorf("queued count delta = %d, want 1", got)
	}
}

func TestSetCommentContentQueuedEditStaysQueued(t *testing.T) {
	e, r := newRig(Policy{})

	q := question(1, models.StatusNormal)
	c := comment(20, 1, models.StatusQueued)
	c.Content = "before"

	err := e.SetCommentContent(context.Background(), Actor{UserID: ptr(3)}, Options{Remoderate: true},
		c, ContentFields{Content: "after"}, q, nil)
	if err != nil {
		t.Fatalf("SetCommentContent() error: %v", err)
	}

	// Already queued: the edit is not attributed and nothing is requeued.
	if len(r.store.callsFor("SetType")) != 0 {
		t.Error("editing a queued comment must not change its type")
	}
	sets := r.store.callsFor("SetContent")
	if len(sets) != 1 || sets[0].attr != nil {
		t.Errorf("queued edit must not be attributed, got %+v", sets)
	}
	if got := r.counters.values[CounterQueued]; got != 0 {
		t.Errorf("queued count delta = %d, want 0", got)
	}
}
