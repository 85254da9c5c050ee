package models

import (
	"database/sql"
	"strconv"
	"strings"
)

// Category is a node in the category tree. QCount caches the number of
// visible questions in the category or any of its descendants.
type Category struct {
	ID       int64         `gorm:"primaryKey;column:id"`
	ParentID sql.NullInt64 `gorm:"column:parent_id;index"`
	Name     string        `gorm:"type:varchar(80);not null;column:name"`
	QCount   int64         `gorm:"not null;default:0;column:qcount"`
}

// TableName specifies the table name for Category
func (Category) TableName() string {
	return "categories"
}

// SplitCategoryPath parses a materialized path ("/12/37") into its category
// IDs, root first. Malformed segments are skipped; the empty path yields
// nil.
func SplitCategoryPath(path string) []int64 {
	var ids []int64
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		id, err := strconv.ParseInt(seg, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
