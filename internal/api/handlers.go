package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qboard/qboard/internal/engine"
	"github.com/qboard/qboard/internal/models"
)

// actorRequest identifies the acting moderator or author in a request body.
type actorRequest struct {
	UserID   *int64 `json:"user_id"`
	Handle   string `json:"handle"`
	CookieID string `json:"cookie_id"`
}

// optionsRequest carries the per-call flags.
type optionsRequest struct {
	Silent          bool `json:"silent"`
	Remoderate      bool `json:"remoderate"`
	SuspendIndexing bool `json:"suspend_indexing"`
}

func (a actorRequest) actor(c *gin.Context) engine.Actor {
	return engine.Actor{
		UserID:   a.UserID,
		Handle:   a.Handle,
		CookieID: a.CookieID,
		IP:       c.ClientIP(),
	}
}

func (o optionsRequest) options() engine.Options {
	return engine.Options{
		Silent:          o.Silent,
		Remoderate:      o.Remoderate,
		SuspendIndexing: o.SuspendIndexing,
	}
}

type statusRequest struct {
	Actor   actorRequest   `json:"actor"`
	Options optionsRequest `json:"options"`
	Status  int            `json:"status"`
}

type contentRequest struct {
	Actor   actorRequest   `json:"actor"`
	Options optionsRequest `json:"options"`
	Title   string         `json:"title"`
	Content string         `json:"content"`
	Format  string         `json:"format"`
	Tags    string         `json:"tags"`
	Notify  *string        `json:"notify"`
	Name    *string        `json:"name"`
}

func (r contentRequest) fields() engine.ContentFields {
	return engine.ContentFields{
		Title:   r.Title,
		Content: r.Content,
		Format:  r.Format,
		Tags:    r.Tags,
		Notify:  r.Notify,
		Name:    r.Name,
	}
}

type selectionRequest struct {
	Actor    actorRequest `json:"actor"`
	AnswerID *int64       `json:"answer_id"`
}

type closeRequest struct {
	Actor      actorRequest   `json:"actor"`
	Options    optionsRequest `json:"options"`
	Reason     string         `json:"reason"` // "clear", "duplicate" or "other"
	OriginalID *int64         `json:"original_id"`
	Note       string         `json:"note"`
}

type categoryRequest struct {
	Actor      actorRequest   `json:"actor"`
	Options    optionsRequest `json:"options"`
	CategoryID *int64         `json:"category_id"`
}

type convertRequest struct {
	Actor    actorRequest   `json:"actor"`
	Options  optionsRequest `json:"options"`
	ParentID int64          `json:"parent_id"`
	Content  string         `json:"content"`
	Format   string         `json:"format"`
	Notify   *string        `json:"notify"`
	Name     *string        `json:"name"`
}

type authorRequest struct {
	Actor  actorRequest `json:"actor"`
	UserID *int64       `json:"user_id"`
}

type deleteRequest struct {
	Actor   actorRequest   `json:"actor"`
	Options optionsRequest `json:"options"`
}

func (r *Router) postID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return 0, false
	}
	return id, true
}

// loadPost fetches a post and enforces its kind.
func (r *Router) loadPost(c *gin.Context, id int64, kind models.Kind) (*models.Post, bool) {
	post, err := r.posts.GetByID(c.Request.Context(), id)
	if err != nil {
		r.fail(c, err)
		return nil, false
	}
	if post == nil || post.BaseKind() != kind {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return nil, false
	}
	return post, true
}

// loadQuestionFor resolves the question a child post ultimately belongs to,
// along with its direct parent when the child is a comment on an answer.
func (r *Router) loadQuestionFor(c *gin.Context, child *models.Post) (question, parent *models.Post, ok bool) {
	if !child.ParentID.Valid {
		c.JSON(http.StatusConflict, gin.H{"error": "post has no parent"})
		return nil, nil, false
	}
	parent, err := r.posts.GetByID(c.Request.Context(), child.ParentID.Int64)
	if err != nil {
		r.fail(c, err)
		return nil, nil, false
	}
	if parent == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "parent post not found"})
		return nil, nil, false
	}
	if parent.IsQuestion() {
		return parent, parent, true
	}
	if !parent.ParentID.Valid {
		c.JSON(http.StatusConflict, gin.H{"error": "parent post has no question"})
		return nil, nil, false
	}
	question, err = r.posts.GetByID(c.Request.Context(), parent.ParentID.Int64)
	if err != nil {
		r.fail(c, err)
		return nil, nil, false
	}
	if question == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "question not found"})
		return nil, nil, false
	}
	return question, parent, true
}

// fail maps engine errors onto HTTP status codes.
func (r *Router) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrUnknownStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrNotHidden), errors.Is(err, engine.ErrHasChildren):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		r.logger.Error("operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func answersSlice(byID map[int64]*models.Post) []*models.Post {
	out := make([]*models.Post, 0, len(byID))
	for _, a := range byID {
		out = append(out, a)
	}
	return out
}

func (r *Router) setQuestionStatus(c *gin.Context) {
	id, ok := r.postID(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := models.ParseStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	question, ok := r.loadPost(c, id, models.KindQuestion)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	answers, err := r.posts.AnswersForQuestion(ctx, question.ID)
	if err != nil {
		r.fail(c, err)
		return
	}
	commentsFollows, err := r.posts.CommentsFollowsForQuestion(ctx, question.ID)
	if err != nil {
		r.fail(c, err)
		return
	}
	closePost, err := r.posts.ClosePost(ctx, question)
	if err != nil {
		r.fail(c, err)
		return
	}
	err = r.engine.SetQuestionStatus(ctx, req.Actor.actor(c), req.Options.options(),
		question, status, answersSlice(answers), commentsFollows, closePost)
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status.String()})
}

func (r *Router) setAnswerStatus(c *gin.Context) {
	id, ok := r.postID(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := models.ParseStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	answer, ok := r.loadPost(c, id, models.KindAnswer)
	if !ok {
		return
	}
	question, _, ok := r.loadQuestionFor(c, answer)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	commentsFollows, err := r.posts.CommentsForParent(ctx, answer.ID)
	if err != nil {
		r.fail(c, err)
		return
	}
	err = r.engine.SetAnswerStatus(ctx, req.Actor.actor(c), req.Options.options(),
		answer, status, question, commentsFollows)
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status.String()})
}

func (r *Router) setCommentStatus(c *gin.Context) {
	id, ok := r.postID(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := models.ParseStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	comment, ok := r.loadPost(c, id, models.KindComment)
	if !ok {
		return
	}
	question, parent, ok := r.loadQuestionFor(c, comment)
	if !ok {
		return
	}
	err = r.engine.SetCommentStatus(c.Request.Context(), req.Actor.actor(c), req.Options.options(),
		comment, status, question, parent)
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status.String()})
}

func (r *Router) setQuestionContent(c *gin.Context) {
	id, ok := r.postID(c)
	if !ok {
		return
	}
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	question, ok := r.loadPost(c, id, models.KindQuestion)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	answers, err := r.posts.AnswersForQuestion(ctx, question.ID)
	if err != nil {
		r.fail(c, err)
		return
	}
	commentsFollows, err := r.posts.CommentsFollowsForQuestion(ctx, question.ID)
	if err != nil {
		r.fail(c, err)
		return
	}
	closePost, err := r.posts.ClosePost(ctx, question)
	if err != nil {
		r.fail(c, err)
		return
	}
	err = r.engine.SetQuestionContent(ctx, req.Actor.actor(c), req.Options.options(),
		question, req.fields(), answersSlice(answers), commentsFollows, closePost)
	if err != nil {
		r.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) setAnswerContent(c *gin.Context) {
	id, ok := r.postID(c)
	if !ok {
		return
	}
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	answer, ok := r.loadPost(c, id, models.KindAnswer)
	if !ok {
		return
	}
	question, _, ok := r.loadQuestionFor(c, answer)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	commentsFollows, err := r.posts.CommentsForParent(ctx, answer.ID)
	if err != nil {
		r.fail(c, err)
		return
	}
	err = r.engine.SetAnswerContent(ctx, req.Actor.actor(c), req.Options.options(),
		answer, req.fields(), question, commentsFollows)
	if err != nil {
		r.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) setCommentContent(c *gin.Context) {
	id, ok := r.postID(c)
	if !ok {
		return
	}
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	comment, ok := r.loadPost(c, id, models.KindComment)
	if !ok {
		return
	}
	question, parent, ok := r.loadQuestionFor(c, comment)
	if !ok {
		return
	}
	err := r.engine.SetCommentContent(c.Request.Context(), req.Actor.actor(c), req.Options.options(),
		comment, req.fields(), question, parent)
	if err != nil {
		r.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) setSelectedAnswer(c *gin.Context) {
	id, ok := r.postID(c)
	if !ok {
		return
	}
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	question, ok := r.loadPost(c, id, models.KindQuestion)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	answers, err := r.posts.AnswersForQuestion(ctx, question.ID)
	if err != nil {
		r.fail(c, err)
		return
	}
	if req.AnswerID != nil {
		if _, found := answers[*req.AnswerID]; !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "answer not found"})
			return
		}
	}
	err = r.engine.SetSelectedAnswer(ctx, req.Actor.actor(c), question, req.AnswerID, answers)
	if err != nil {
		r.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) closeQuestion(c *gin.Context) {
	id, ok := r.postID(c)
	if !ok {
		return
	}
	var req closeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	question, ok := r.loadPost(c, id, models.KindQuestion)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	closePost, err := r.posts.ClosePost(ctx, question)
	if err != nil {
		r.fail(c, err)
		return
	}
	actor := req.Actor.actor(c)
	opts := req.Options.options()
	switch req.Reason {
	case "clear":
		err = r.engine.CloseClear(ctx, actor, opts, question, closePost)
	case "duplicate":
		if req.OriginalID == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "original_id is required"})
			return
		}
		err = r.engine.CloseDuplicate(ctx, actor, opts, question, closePost, *req.OriginalID)
	case "other":
		if req.Note == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "note is required"})
			return
		}
		err = r.engine.CloseOther(ctx, actor, opts, question, closePost, req.Note)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason must be clear, duplicate or other"})
		return
	}
	if err != nil {
		r.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) setQuestionCategory(c *gin.Context) {
	id, ok := r.postID(c)
	if !ok {
		return
	}
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	question, ok := r.loadPost(c, id, models.KindQuestion)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	answers, err := r.posts.AnswersForQuestion(ctx, question.ID)
	if err != nil {
		r.fail(c, err)
		return
	}
	commentsFollows, err := r.posts.CommentsFollowsForQuestion(ctx, question.ID)
	if err != nil {
		r.fail(c, err)
		return
	}
	closePost, err := r.posts.ClosePost(ctx, question)
	if err != nil {
		r.fail(c, err)
		return
	}
	err = r.engine.SetQuestionCategory(ctx, req.Actor.actor(c), req.Options.options(),
		question, req.CategoryID, answersSlice(answers), commentsFollows, closePost)
	if err != nil {
		r.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) answerToComment(c *gin.Context) {
	id, ok := r.postID(c)
	if !ok {
		return
	}
	var req convertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	answer, ok := r.loadPost(c, id, models.KindAnswer)
	if !ok {
		return
	}
	question, _, ok := r.loadQuestionFor(c, answer)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	answers, err := r.posts.AnswersForQuestion(ctx, question.ID)
	if err != nil {
		r.fail(c, err)
		return
	}
	if req.ParentID != question.ID {
		if _, found := answers[req.ParentID]; !found {
			c.JSON(http.StatusBadRequest, gin.H{"error": "parent must be the question or one of its answers"})
			return
		}
	}
	commentsFollows, err := r.posts.CommentsForParent(ctx, answer.ID)
	if err != nil {
		r.fail(c, err)
		return
	}
	fields := engine.ContentFields{
		Content: req.Content,
		Format:  req.Format,
		Notify:  req.Notify,
		Name:    req.Name,
	}
	err = r.engine.AnswerToComment(ctx, req.Actor.actor(c), req.Options.options(),
		answer, req.ParentID, fields, question, answers, commentsFollows)
	if err != nil {
		r.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) setQuestionAuthor(c *gin.Context) {
	id, ok := r.postID(c)
	if !ok {
		return
	}
	var req authorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	question, ok := r.loadPost(c, id, models.KindQuestion)
	if !ok {
		return
	}
	if err := r.engine.SetQuestionAuthor(c.Request.Context(), req.Actor.actor(c), question, req.UserID); err != nil {
		r.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) setAnswerAuthor(c *gin.Context) {
	id, ok := r.postID(c)
	if !ok {
		return
	}
	var req authorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	answer, ok := r.loadPost(c, id, models.KindAnswer)
	if !ok {
		return
	}
	if err := r.engine.SetAnswerAuthor(c.Request.Context(), req.Actor.actor(c), answer, req.UserID); err != nil {
		r.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) setCommentAuthor(c *gin.Context) {
	id, ok := r.postID(c)
	if !ok {
		return
	}
	var req authorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	comment, ok := r.loadPost(c, id, models.KindComment)
	if !ok {
		return
	}
	if err := r.engine.SetCommentAuthor(c.Request.Context(), req.Actor.actor(c), comment, req.UserID); err != nil {
		r.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) deleteQuestion(c *gin.Context) {
	id, ok := r.postID(c)
	if !ok {
		return
	}
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	question, ok := r.loadPost(c, id, models.KindQuestion)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	closePost, err := r.posts.ClosePost(ctx, question)
	if err != nil {
		r.fail(c, err)
		return
	}
	err = r.engine.DeleteQuestion(ctx, req.Actor.actor(c), req.Options.options(), question, closePost)
	if err != nil {
		r.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) deleteAnswer(c *gin.Context) {
	id, ok := r.postID(c)
	if !ok {
		return
	}
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	answer, ok := r.loadPost(c, id, models.KindAnswer)
	if !ok {
		return
	}
	question, _, ok := r.loadQuestionFor(c, answer)
	if !ok {
		return
	}
	err := r.engine.DeleteAnswer(c.Request.Context(), req.Actor.actor(c), req.Options.options(), answer, question)
	if err != nil {
		r.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) deleteComment(c *gin.Context) {
	id, ok := r.postID(c)
	if !ok {
		return
	}
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	comment, ok := r.loadPost(c, id, models.KindComment)
	if !ok {
		return
	}
	question, parent, ok := r.loadQuestionFor(c, comment)
	if !ok {
		return
	}
	err := r.engine.DeleteComment(c.Request.Context(), req.Actor.actor(c), req.Options.options(), comment, question, parent)
	if err != nil {
		r.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
