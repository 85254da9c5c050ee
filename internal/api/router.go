// Package api exposes the moderation and lifecycle operations over HTTP.
package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qboard/qboard/internal/cache"
	"github.com/qboard/qboard/internal/db"
	"github.com/qboard/qboard/internal/engine"
	"github.com/qboard/qboard/pkg/logging"
	"github.com/qboard/qboard/pkg/telemetry"
)

// Router sets up API routes
type Router struct {
	engine *engine.Engine
	posts  *db.PostRepository
	db     *db.DB
	cache  *cache.PageCache
	logger *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(eng *engine.Engine, database *db.DB, pageCache *cache.PageCache) *Router {
	repo := db.NewRepository(database.DB)
	return &Router{
		engine: eng,
		posts:  db.NewPostRepository(repo),
		db:     database,
		cache:  pageCache,
		logger: logging.GetLogger().With(zap.String("component", "api-router")),
	}
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(router *gin.Engine) {
	router.GET("/health", r.healthHandler)
	router.GET("/.well-known/healthcheck.json", r.healthHandler)

	v1 := router.Group("/v1", traceRequests())
	{
		v1.POST("/questions/:id/status", r.setQuestionStatus)
		v1.PUT("/questions/:id/content", r.setQuestionContent)
		v1.POST("/questions/:id/selection", r.setSelectedAnswer)
		v1.POST("/questions/:id/close", r.closeQuestion)
		v1.POST("/questions/:id/category", r.setQuestionCategory)
		v1.POST("/questions/:id/author", r.setQuestionAuthor)
		v1.DELETE("/questions/:id", r.deleteQuestion)

		v1.POST("/answers/:id/status", r.setAnswerStatus)
		v1.PUT("/answers/:id/content", r.setAnswerContent)
		v1.POST("/answers/:id/convert", r.answerToComment)
		v1.POST("/answers/:id/author", r.setAnswerAuthor)
		v1.DELETE("/answers/:id", r.deleteAnswer)

		v1.POST("/comments/:id/status", r.setCommentStatus)
		v1.PUT("/comments/:id/content", r.setCommentContent)
		v1.POST("/comments/:id/author", r.setCommentAuthor)
		v1.DELETE("/comments/:id", r.deleteComment)
	}
}

// traceRequests wraps each request in a span carried on the request context.
func traceRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := telemetry.StartSpan(c.Request.Context(), c.Request.Method+" "+c.FullPath())
		defer span.End()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "OK",
		"service": "qboard-moderation",
	})
}
