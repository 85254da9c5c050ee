package models

import (
	"database/sql"
	"time"
)

// SearchDoc is one entry in the database-backed search index. A post has a
// row here exactly while it and every ancestor it depends on for visibility
// are in normal status.
type SearchDoc struct {
	PostID     int64         `gorm:"primaryKey;column:post_id"`
	Kind       string        `gorm:"type:varchar(8);not null;column:kind"`
	QuestionID int64         `gorm:"not null;column:question_id;index"`
	ParentID   sql.NullInt64 `gorm:"column:parent_id"`
	Title      string        `gorm:"type:varchar(255);column:title"`
	Content    string        `gorm:"type:text;column:content"`
	Format     string        `gorm:"type:varchar(16);column:format"`
	Text       string        `gorm:"type:text;column:text"`
	Tags       string        `gorm:"type:varchar(255);column:tags"`
	CategoryID sql.NullInt64 `gorm:"column:category_id;index"`
	IndexedAt  time.Time     `gorm:"not null;column:indexed_at"`
}

// TableName specifies the table name for SearchDoc
func (SearchDoc) TableName() string {
	return "search_docs"
}
