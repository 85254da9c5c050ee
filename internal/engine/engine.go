// Package engine implements the post-moderation state machine: status
// transitions for questions, answers and comments, content edits,
// selected-answer bookkeeping, close/reopen, category moves,
// answer-to-comment conversion, authorship reassignment and permanent
// deletion. Every operation keeps the search index, aggregate counters,
// user points, page cache and event log consistent with the post's state.
package engine

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/qboard/qboard/internal/models"
)

var (
	// ErrUnknownStatus is returned for a status code outside the
	// normal/hidden/queued vocabulary. The operation aborts rather than
	// guessing intent.
	ErrUnknownStatus = errors.New("unknown post status")

	// ErrNotHidden is returned when permanent deletion is attempted on a
	// post that is not hidden.
	ErrNotHidden = errors.New("post must be hidden before permanent deletion")

	// ErrHasChildren is returned when permanent deletion is attempted on a
	// post that still has answers or comments.
	ErrHasChildren = errors.New("post still has dependent children")
)

// Counter names the site-wide aggregate counters the engine maintains.
type Counter string

const (
	CounterQuestions  Counter = "qcount"
	CounterAnswers    Counter = "acount"
	CounterComments   Counter = "ccount"
	CounterQueued     Counter = "queuedcount"
	CounterFlagged    Counter = "flaggedcount"
	CounterUnanswered Counter = "unaqcount"   // visible questions with no visible answer
	CounterUnupvoted  Counter = "unupaqcount" // visible questions with no upvoted answer
	CounterUnselected Counter = "unselqcount" // visible questions with no selected answer
)

// Metric names the per-user reputation inputs the points ledger recomputes.
type Metric string

const (
	MetricQPosts     Metric = "qposts"
	MetricAPosts     Metric = "aposts"
	MetricCPosts     Metric = "cposts"
	MetricASelects   Metric = "aselects"
	MetricASelecteds Metric = "aselecteds"
	MetricQVoteds    Metric = "qvoteds"
	MetricAVoteds    Metric = "avoteds"
	MetricCVoteds    Metric = "cvoteds"
	MetricQUpvotes   Metric = "qupvotes"
	MetricQDownvotes Metric = "qdownvotes"
	MetricAUpvotes   Metric = "aupvotes"
	MetricADownvotes Metric = "adownvotes"
	MetricUpvoteds   Metric = "upvoteds"
	MetricDownvoteds Metric = "downvoteds"
)

// Actor identifies who is performing an operation. UserID is nil for
// anonymous actors identified only by cookie.
type Actor struct {
	UserID   *int64
	Handle   string
	CookieID string
	IP       string
}

// Attribution marks a mutation as an edit by a user, stamping the post's
// updated timestamp. A nil *Attribution leaves the edit trail untouched.
type Attribution struct {
	UserID *int64
	IP     string
}

// ContentFields carries the editable fields of a post. Name is nil to leave
// the stored display name unchanged.
type ContentFields struct {
	Title   string
	Content string
	Format  string
	Tags    string
	Notify  *string
	Name    *string
}

// Store is the persistence surface the engine mutates. Implementations take
// whatever row lock the caller holds; the engine issues these calls in a
// fixed order but not inside one transaction.
type Store interface {
	SetType(ctx context.Context, postID int64, typeTag string, by *Attribution) error
	SetContent(ctx context.Context, postID int64, fields ContentFields, by *Attribution) error
	SetParent(ctx context.Context, postID, parentID int64) error
	SetCategory(ctx context.Context, postID int64, categoryID *int64, by *Attribution) error
	SetClosed(ctx context.Context, postID int64, closed bool, closedByID *int64, by *Attribution) error
	SetSelectedChild(ctx context.Context, postID int64, selChildID *int64, by *Attribution) error
	SetCreatedNow(ctx context.Context, postID int64) error
	SetUpdatedNow(ctx context.Context, postID int64) error
	SetAuthor(ctx context.Context, postID int64, userID *int64) error
	CreatePost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, postID int64) error
	ChildCount(ctx context.Context, postID int64) (int64, error)

	CategoryPath(ctx context.Context, postID int64) (string, error)
	RecalcCategoryPath(ctx context.Context, postID int64) error
	SetCategoryPath(ctx context.Context, postIDs []int64, categoryID *int64) error

	VotesForPost(ctx context.Context, postID int64) (map[int64]int, error)
	RemoveOwnVote(ctx context.Context, postID int64) error
	RecountVotes(ctx context.Context, postID int64) error

	BumpAnswerCount(ctx context.Context, questionID int64, delta int) error
	SetMaxAnswerVotes(ctx context.Context, questionID int64, value int) error
	RecalcMaxAnswerVotes(ctx context.Context, questionID int64) (int, error)
	UpdateHotness(ctx context.Context, questionID int64) error
}

// Counters maintains the named aggregate counters. Update applies an atomic
// delta; the Recount methods replace the value with a full recount.
type Counters interface {
	Update(ctx context.Context, name Counter, delta int) error
	RecountHidden(ctx context.Context) error
	RecountTags(ctx context.Context) error
	RecountCategoryPath(ctx context.Context, path string) error
}

// Points recomputes a user's reputation inputs. Calls are at-least-once and
// idempotent per (user, metric).
type Points interface {
	Recompute(ctx context.Context, userID int64, metrics ...Metric) error
}

// IndexDoc is the unit handed to search backends.
type IndexDoc struct {
	PostID     int64
	Kind       models.Kind
	QuestionID int64
	ParentID   *int64
	Title      string
	Content    string
	Format     string
	Text       string
	Tags       string
	CategoryID *int64
}

// Indexer is the search-index fan-out. Failures are logged by the engine
// and never fail the primary operation.
type Indexer interface {
	Index(ctx context.Context, doc IndexDoc) error
	Unindex(ctx context.Context, postID int64) error
	Move(ctx context.Context, postID int64, categoryID *int64) error
}

// Reporter receives one immutable event per meaningful transition.
// Fire-and-forget from the engine's perspective.
type Reporter interface {
	Report(ctx context.Context, event string, actor Actor, params map[string]any)
}

// PageCache invalidates the cached rendered page of a question.
type PageCache interface {
	Invalidate(ctx context.Context, questionID int64) error
}

// Renderer turns stored content into the plain text handed to search
// backends.
type Renderer interface {
	Text(content, format string) string
}

// Policy holds the site-level moderation knobs.
type Policy struct {
	// UpdateTimeOnApprove resets a post's created (or, for an approved
	// re-edit, updated) timestamp to now when it leaves the queue.
	UpdateTimeOnApprove bool
	// CloseOnSelect closes a question when one of its answers is selected.
	CloseOnSelect bool
}

// Options modify a single engine call.
type Options struct {
	// Silent suppresses edit attribution.
	Silent bool
	// Remoderate sends an attributable edit back to the moderation queue.
	Remoderate bool
	// SuspendIndexing skips all unindex/reindex calls, for bulk operations
	// that defer a full reindex.
	SuspendIndexing bool
}

// Deps bundles the engine's collaborators.
type Deps struct {
	Store    Store
	Counters Counters
	Points   Points
	Index    Indexer
	Events   Reporter
	Cache    PageCache
	Render   Renderer
}

// Engine orchestrates post lifecycle transitions. Operations on different
// posts are independent; concurrent operations on the same post must be
// serialized by the caller's storage lock.
type Engine struct {
	store    Store
	counters Counters
	points   Points
	index    Indexer
	events   Reporter
	cache    PageCache
	render   Renderer
	policy   Policy
	logger   *zap.Logger
}

// New creates a lifecycle engine.
func New(deps Deps, policy Policy, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:    deps.Store,
		counters: deps.Counters,
		points:   deps.Points,
		index:    deps.Index,
		events:   deps.Events,
		cache:    deps.Cache,
		render:   deps.Render,
		policy:   policy,
		logger:   logger,
	}
}

// attribution maps an actor to an edit attribution, or nil when the change
// should not be marked as an edit.
func attribution(actor Actor, attributed bool) *Attribution {
	if !attributed {
		return nil
	}
	return &Attribution{UserID: actor.UserID, IP: actor.IP}
}

// unindex removes a post from all search backends, honoring suspension.
func (e *Engine) unindex(ctx context.Context, opts Options, postID int64) {
	if opts.SuspendIndexing {
		return
	}
	if err := e.index.Unindex(ctx, postID); err != nil {
		e.logger.Warn("unindex failed", zap.Int64("post_id", postID), zap.Error(err))
	}
}

// indexDoc adds a post to all search backends, honoring suspension.
func (e *Engine) indexDoc(ctx context.Context, opts Options, doc IndexDoc) {
	if opts.SuspendIndexing {
		return
	}
	if err := e.index.Index(ctx, doc); err != nil {
		e.logger.Warn("index failed", zap.Int64("post_id", doc.PostID), zap.Error(err))
	}
}

// moveIndexed notifies all search backends of a category move.
func (e *Engine) moveIndexed(ctx context.Context, opts Options, postID int64, categoryID *int64) {
	if opts.SuspendIndexing {
		return
	}
	if err := e.index.Move(ctx, postID, categoryID); err != nil {
		e.logger.Warn("index move failed", zap.Int64("post_id", postID), zap.Error(err))
	}
}

// recomputeIfUser refreshes point metrics for a possibly-anonymous author.
func (e *Engine) recomputeIfUser(ctx context.Context, userID sql.NullInt64, metrics ...Metric) {
	if !userID.Valid {
		return
	}
	e.recomputeUser(ctx, userID.Int64, metrics...)
}

func (e *Engine) recomputeUser(ctx context.Context, userID int64, metrics ...Metric) {
	if err := e.points.Recompute(ctx, userID, metrics...); err != nil {
		e.logger.Warn("points recompute failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

// uncache drops the cached rendered page for a question, so hidden content
// never outlives the store that hid it.
func (e *Engine) uncache(ctx context.Context, questionID int64) {
	if err := e.cache.Invalidate(ctx, questionID); err != nil {
		e.logger.Warn("page cache invalidation failed", zap.Int64("question_id", questionID), zap.Error(err))
	}
}

func (e *Engine) report(ctx context.Context, event string, actor Actor, params map[string]any) {
	e.events.Report(ctx, event, actor, params)
}

// questionDoc builds the index document for a question.
func (e *Engine) questionDoc(q *models.Post) IndexDoc {
	return IndexDoc{
		PostID:     q.ID,
		Kind:       models.KindQuestion,
		QuestionID: q.ID,
		ParentID:   nullableID(q.ParentID),
		Title:      q.Title,
		Content:    q.Content,
		Format:     q.Format,
		Text:       e.render.Text(q.Content, q.Format),
		Tags:       q.Tags,
		CategoryID: nullableID(q.CategoryID),
	}
}

// childDoc builds the index document for an answer, comment or close note.
func (e *Engine) childDoc(questionID int64, p *models.Post) IndexDoc {
	return IndexDoc{
		PostID:     p.ID,
		Kind:       p.BaseKind(),
		QuestionID: questionID,
		ParentID:   nullableID(p.ParentID),
		Content:    p.Content,
		Format:     p.Format,
		Text:       e.render.Text(p.Content, p.Format),
		CategoryID: nullableID(p.CategoryID),
	}
}

func nullableID(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

func asNullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
