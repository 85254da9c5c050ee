package engine

import (
	"context"
	"fmt"

	"github.com/qboard/qboard/internal/models"
)

// rig bundles the in-memory fakes behind one engine. The shared ops log
// records cross-collaborator call order.
type rig struct {
	store    *fakeStore
	counters *fakeCounters
	points   *fakePoints
	index    *fakeIndexer
	events   *fakeReporter
	cache    *fakeCache
	ops      *[]string
}

func newRig(policy Policy) (*Engine, *rig) {
	ops := &[]string{}
	r := &rig{
		store:    &fakeStore{ops: ops, paths: map[int64]string{}, votes: map[int64]map[int64]int{}, maxVotes: map[int64]int{}},
		counters: &fakeCounters{ops: ops, values: map[Counter]int{}},
		points:   &fakePoints{byUser: map[int64][]Metric{}},
		index:    &fakeIndexer{ops: ops, docs: map[int64]IndexDoc{}},
		events:   &fakeReporter{},
		cache:    &fakeCache{},
		ops:      ops,
	}
	e := New(Deps{
		Store:    r.store,
		Counters: r.counters,
		Points:   r.points,
		Index:    r.index,
		Events:   r.events,
		Cache:    r.cache,
		Render:   passthroughRenderer{},
	}, policy, nil)
	return e, r
}

type passthroughRenderer struct{}

func (passthroughRenderer) Text(content, _ string) string { return content }

type storeCall struct {
	op     string
	postID int64
	tag    string
	attr   *Attribution
	value  any
}

type fakeStore struct {
	ops      *[]string
	calls    []storeCall
	paths    map[int64]string
	votes    map[int64]map[int64]int
	maxVotes map[int64]int
	children int64
	failOn   string
}

func (s *fakeStore) record(op string, postID int64, tag string, attr *Attribution, value any) error {
	*s.ops = append(*s.ops, op)
	s.calls = append(s.calls, storeCall{op: op, postID: postID, tag: tag, attr: attr, value: value})
	if s.failOn == op {
		return fmt.Errorf("forced %s failure", op)
	}
	return nil
}

// callsFor returns the recorded calls of one operation.
func (s *fakeStore) callsFor(op string) []storeCall {
	var out []storeCall
	for _, c := range s.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func (s *fakeStore) SetType(_ context.Context, postID int64, typeTag string, by *Attribution) error {
	return s.record("SetType", postID, typeTag, by, nil)
}

func (s *fakeStore) SetContent(_ context.Context, postID int64, fields ContentFields, by *Attribution) error {
	return s.record("SetContent", postID, "", by, fields)
}

func (s *fakeStore) SetParent(_ context.Context, postID, parentID int64) error {
	return s.record("SetParent", postID, "", nil, parentID)
}

func (s *fakeStore) SetCategory(_ context.Context, postID int64, categoryID *int64, by *Attribution) error {
	return s.record("SetCategory", postID, "", by, categoryID)
}

func (s *fakeStore) SetClosed(_ context.Context, postID int64, closed bool, closedByID *int64, by *Attribution) error {
	return s.record("SetClosed", postID, "", by, []any{closed, closedByID})
}

func (s *fakeStore) SetSelectedChild(_ context.Context, postID int64, selChildID *int64, by *Attribution) error {
	return s.record("SetSelectedChild", postID, "", by, selChildID)
}

func (s *fakeStore) SetCreatedNow(_ context.Context, postID int64) error {
	return s.record("SetCreatedNow", postID, "", nil, nil)
}

func (s *fakeStore) SetUpdatedNow(_ context.Context, postID int64) error {
	return s.record("SetUpdatedNow", postID, "", nil, nil)
}

func (s *fakeStore) SetAuthor(_ context.Context, postID int64, userID *int64) error {
	return s.record("SetAuthor", postID, "", nil, userID)
}

func (s *fakeStore) CreatePost(_ context.Context, post *models.Post) error {
	if post.ID == 0 {
		post.ID = int64(9000 + len(s.calls))
	}
	return s.record("CreatePost", post.ID, post.Type, nil, post)
}

func (s *fakeStore) DeletePost(_ context.Context, postID int64) error {
	return s.record("DeletePost", postID, "", nil, nil)
}

func (s *fakeStore) ChildCount(_ context.Context, postID int64) (int64, error) {
	return s.children, nil
}

func (s *fakeStore) CategoryPath(_ context.Context, postID int64) (string, error) {
	return s.paths[postID], nil
}

func (s *fakeStore) RecalcCategoryPath(_ context.Context, postID int64) error {
	return s.record("RecalcCategoryPath", postID, "", nil, nil)
}

func (s *fakeStore) SetCategoryPath(_ context.Context, postIDs []int64, categoryID *int64) error {
	return s.record("SetCategoryPath", 0, "", nil, postIDs)
}

func (s *fakeStore) VotesForPost(_ context.Context, postID int64) (map[int64]int, error) {
	return s.votes[postID], nil
}

func (s *fakeStore) RemoveOwnVote(_ context.Context, postID int64) error {
	return s.record("RemoveOwnVote", postID, "", nil, nil)
}

func (s *fakeStore) RecountVotes(_ context.Context, postID int64) error {
	return s.record("RecountVotes", postID, "", nil, nil)
}

func (s *fakeStore) BumpAnswerCount(_ context.Context, questionID int64, delta int) error {
	return s.record("BumpAnswerCount", questionID, "", nil, delta)
}

func (s *fakeStore) SetMaxAnswerVotes(_ context.Context, questionID int64, value int) error {
	return s.record("SetMaxAnswerVotes", questionID, "", nil, value)
}

func (s *fakeStore) RecalcMaxAnswerVotes(_ context.Context, questionID int64) (int, error) {
	if err := s.record("RecalcMaxAnswerVotes", questionID, "", nil, nil); err != nil {
		return 0, err
	}
	return s.maxVotes[questionID], nil
}

func (s *fakeStore) UpdateHotness(_ context.Context, questionID int64) error {
	return s.record("UpdateHotness", questionID, "", nil, nil)
}

type fakeCounters struct {
	ops            *[]string
	values         map[Counter]int
	hiddenRecounts int
	tagRecounts    int
	pathRecounts   []string
}

func (c *fakeCounters) Update(_ context.Context, name Counter, delta int) error {
	*c.ops = append(*c.ops, "Counter:"+string(name))
	c.values[name] += delta
	return nil
}

func (c *fakeCounters) RecountHidden(_ context.Context) error {
	*c.ops = append(*c.ops, "RecountHidden")
	c.hiddenRecounts++
	return nil
}

func (c *fakeCounters) RecountTags(_ context.Context) error {
	*c.ops = append(*c.ops, "RecountTags")
	c.tagRecounts++
	return nil
}

func (c *fakeCounters) RecountCategoryPath(_ context.Context, path string) error {
	*c.ops = append(*c.ops, "RecountCategoryPath")
	c.pathRecounts = append(c.pathRecounts, path)
	return nil
}

type fakePoints struct {
	byUser map[int64][]Metric
}

func (p *fakePoints) Recompute(_ context.Context, userID int64, metrics ...Metric) error {
	p.byUser[userID] = append(p.byUser[userID], metrics...)
	return nil
}

// has reports whether a metric was recomputed for a user.
func (p *fakePoints) has(userID int64, m Metric) bool {
	for _, got := range p.byUser[userID] {
		if got == m {
			return true
		}
	}
	return false
}

type fakeIndexer struct {
	ops       *[]string
	docs      map[int64]IndexDoc
	unindexed []int64
	moved     []int64
}

func (i *fakeIndexer) Index(_ context.Context, doc IndexDoc) error {
	*i.ops = append(*i.ops, fmt.Sprintf("Index:%d", doc.PostID))
	i.docs[doc.PostID] = doc
	return nil
}

func (i *fakeIndexer) Unindex(_ context.Context, postID int64) error {
	*i.ops = append(*i.ops, fmt.Sprintf("Unindex:%d", postID))
	i.unindexed = append(i.unindexed, postID)
	delete(i.docs, postID)
	return nil
}

func (i *fakeIndexer) Move(_ context.Context, postID int64, categoryID *int64) error {
	*i.ops = append(*i.ops, fmt.Sprintf("Move:%d", postID))
	i.moved = append(i.moved, postID)
	return nil
}

type reportedEvent struct {
	event  string
	actor  Actor
	params map[string]any
}

type fakeReporter struct {
	events []reportedEvent
}

func (r *fakeReporter) Report(_ context.Context, event string, actor Actor, params map[string]any) {
	r.events = append(r.events, reportedEvent{event: event, actor: actor, params: params})
}

// names returns the reported event names in order.
func (r *fakeReporter) names() []string {
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.event
	}
	return out
}

// find returns the first event with the given name.
func (r *fakeReporter) find(name string) (reportedEvent, bool) {
	for _, e := range r.events {
		if e.event == name {
			return e, true
		}
	}
	return reportedEvent{}, false
}

type fakeCache struct {
	invalidated []int64
}

func (c *fakeCache) Invalidate(_ context.Context, questionID int64) error {
	c.invalidated = append(c.invalidated, questionID)
	return nil
}

// Post builders.

func question(id int64, status models.Status) *models.Post {
	return &models.Post{
		ID:   id,
		Type: models.TypeTag(models.KindQuestion, status),
	}
}

func answer(id, questionID int64, status models.Status) *models.Post {
	p := &models.Post{
		ID:   id,
		Type: models.TypeTag(models.KindAnswer, status),
	}
	p.ParentID.Int64 = questionID
	p.ParentID.Valid = true
	return p
}

func comment(id, parentID int64, status models.Status) *models.Post {
	p := &models.Post{
		ID:   id,
		Type: models.TypeTag(models.KindComment, status),
	}
	p.ParentID.Int64 = parentID
	p.ParentID.Valid = true
	return p
}

func byUser(p *models.Post, userID int64) *models.Post {
	p.UserID.Int64 = userID
	p.UserID.Valid = true
	return p
}

func ptr(v int64) *int64 { return &v }
