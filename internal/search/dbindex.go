package search

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qboard/qboard/internal/engine"
	"github.com/qboard/qboard/internal/models"
)

// DBBackend keeps the search_docs table in step with post visibility. A
// post has a row exactly while the whole chain up to its question is in
// normal status.
type DBBackend struct {
	db *gorm.DB
}

// NewDBBackend creates the database search backend.
func NewDBBackend(db *gorm.DB) *DBBackend {
	return &DBBackend{db: db}
}

// Index upserts the document keyed by post ID.
func (b *DBBackend) Index(ctx context.Context, doc engine.IndexDoc) error {
	row := models.SearchDoc{
		PostID:     doc.PostID,
		Kind:       string(doc.Kind),
		QuestionID: doc.QuestionID,
		ParentID:   asNull(doc.ParentID),
		Title:      doc.Title,
		Content:    doc.Content,
		Format:     doc.Format,
		Text:       doc.Text,
		Tags:       doc.Tags,
		CategoryID: asNull(doc.CategoryID),
		IndexedAt:  time.Now().UTC(),
	}
	return b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "post_id"}},
		UpdateAll: true,
	}).Create(&row).Error
}

// Unindex removes the document. Removing an absent document is not an
// error; unindex runs ahead of status changes that may not have indexed.
func (b *DBBackend) Unindex(ctx context.Context, postID int64) error {
	return b.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Delete(&models.SearchDoc{}).Error
}

// Move updates the indexed category without touching the text, so category
// moves stay cheap for large subtrees.
func (b *DBBackend) Move(ctx context.Context, postID int64, categoryID *int64) error {
	return b.db.WithContext(ctx).Model(&models.SearchDoc{}).
		Where("post_id = ?", postID).
		Update("category_id", asNull(categoryID)).Error
}

func asNull(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
