// Package search fans index mutations out to the registered search
// backends and provides the built-in database-backed backend.
package search

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/qboard/qboard/internal/engine"
)

// Backend is one search index implementation.
type Backend interface {
	Index(ctx context.Context, doc engine.IndexDoc) error
	Unindex(ctx context.Context, postID int64) error
	Move(ctx context.Context, postID int64, categoryID *int64) error
}

// Gateway fans each call out to every backend. All backends are attempted
// even when one fails; the joined error carries every failure.
type Gateway struct {
	backends []Backend
	logger   *zap.Logger
}

// NewGateway creates a search gateway.
func NewGateway(logger *zap.Logger, backends ...Backend) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{backends: backends, logger: logger}
}

// Index adds or replaces a document in every backend.
func (g *Gateway) Index(ctx context.Context, doc engine.IndexDoc) error {
	var errs []error
	for _, b := range g.backends {
		if err := b.Index(ctx, doc); err != nil {
			g.logger.Warn("search backend index failed",
				zap.Int64("post_id", doc.PostID), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Unindex removes a document from every backend.
func (g *Gateway) Unindex(ctx context.Context, postID int64) error {
	var errs []error
	for _, b := range g.backends {
		if err := b.Unindex(ctx, postID); err != nil {
			g.logger.Warn("search backend unindex failed",
				zap.Int64("post_id", postID), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Move updates a document's category in every backend.
func (g *Gateway) Move(ctx context.Context, postID int64, categoryID *int64) error {
	var errs []error
	for _, b := range g.backends {
		if err := b.Move(ctx, postID, categoryID); err != nil {
			g.logger.Warn("search backend move failed",
				zap.Int64("post_id", postID), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
