package search

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qboard/qboard/internal/engine"
	"github.com/qboard/qboard/internal/models"
)

// Reindexer rebuilds the search index from post state, question by
// question. Posts are indexed only while their whole chain up to the
// question is in normal status.
type Reindexer struct {
	db      *gorm.DB
	gateway *Gateway
	render  engine.Renderer
	logger  *zap.Logger
}

// NewReindexer creates a bulk reindexer.
func NewReindexer(db *gorm.DB, gateway *Gateway, render engine.Renderer, logger *zap.Logger) *Reindexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reindexer{db: db, gateway: gateway, render: render, logger: logger}
}

// Run reindexes every question in ID order, batchSize IDs at a time.
func (r *Reindexer) Run(ctx context.Context, batchSize int) error {
	var lastID int64
	var total int
	for {
		var ids []int64
		err := r.db.WithContext(ctx).Model(&models.Post{}).
			Where("type LIKE ? AND id > ?", "Q%", lastID).
			Order("id").
			Limit(batchSize).
			Pluck("id", &ids).Error
		if err != nil {
			return fmt.Errorf("list questions: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		for _, id := range ids {
			if err := r.ReindexQuestion(ctx, id); err != nil {
				return fmt.Errorf("reindex question %d: %w", id, err)
			}
			total++
		}
		lastID = ids[len(ids)-1]
		r.logger.Info("reindex progress", zap.Int("questions", total))
	}
	r.logger.Info("reindex complete", zap.Int("questions", total))
	return nil
}

// ReindexQuestion rebuilds the index entries for one question's subtree.
func (r *Reindexer) ReindexQuestion(ctx context.Context, questionID int64) error {
	var question models.Post
	if err := r.db.WithContext(ctx).First(&question, questionID).Error; err != nil {
		return err
	}

	var children []*models.Post
	err := r.db.WithContext(ctx).
		Where("parent_id = ? OR parent_id IN (?)",
			questionID,
			r.db.Model(&models.Post{}).Select("id").Where("parent_id = ?", questionID)).
		Find(&children).Error
	if err != nil {
		return err
	}

	byID := make(map[int64]*models.Post, len(children))
	for _, c := range children {
		byID[c.ID] = c
	}
	visible := func(p *models.Post) bool {
		if p.Status() != models.StatusNormal {
			return false
		}
		if p.ChildOf(questionID) {
			return true
		}
		parent, found := byID[p.ParentID.Int64]
		return found && parent.Status() == models.StatusNormal
	}

	if question.Status() != models.StatusNormal {
		if err := r.gateway.Unindex(ctx, questionID); err != nil {
			return err
		}
		for _, c := range children {
			if err := r.gateway.Unindex(ctx, c.ID); err != nil {
				return err
			}
		}
		return nil
	}

	err = r.gateway.Index(ctx, engine.IndexDoc{
		PostID:     question.ID,
		Kind:       models.KindQuestion,
		QuestionID: question.ID,
		Title:      question.Title,
		Content:    question.Content,
		Format:     question.Format,
		Text:       r.render.Text(question.Content, question.Format),
		Tags:       question.Tags,
		CategoryID: asPtr(question.CategoryID),
	})
	if err != nil {
		return err
	}

	for _, c := range children {
		if !visible(c) {
			if err := r.gateway.Unindex(ctx, c.ID); err != nil {
				return err
			}
			continue
		}
		err := r.gateway.Index(ctx, engine.IndexDoc{
			PostID:     c.ID,
			Kind:       c.BaseKind(),
			QuestionID: question.ID,
			ParentID:   asPtr(c.ParentID),
			Content:    c.Content,
			Format:     c.Format,
			Text:       r.render.Text(c.Content, c.Format),
			CategoryID: asPtr(c.CategoryID),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func asPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}
