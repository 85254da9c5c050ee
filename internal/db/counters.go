package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qboard/qboard/internal/engine"
	"github.com/qboard/qboard/internal/models"
)

// SiteCounters maintains the site-wide aggregate counters over the
// site_counts table. Deltas are applied atomically in SQL; recounts replace
// the cached value with a full predicate count.
type SiteCounters struct {
	db *gorm.DB
}

// NewSiteCounters creates a counter store.
func NewSiteCounters(db *gorm.DB) *SiteCounters {
	return &SiteCounters{db: db}
}

// Update applies an atomic delta to a named counter, creating the row on
// first touch.
func (c *SiteCounters) Update(ctx context.Context, name engine.Counter, delta int) error {
	if delta == 0 {
		return nil
	}
	return c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]any{"value": gorm.Expr("site_counts.value + ?", delta)}),
	}).Create(&models.SiteCount{Name: string(name), Value: int64(delta)}).Error
}

func (c *SiteCounters) set(ctx context.Context, name string, value int64) error {
	return c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]any{"value": value}),
	}).Create(&models.SiteCount{Name: name, Value: value}).Error
}

// RecountHidden replaces the hidden-post counter with a full count of posts
// in hidden status.
func (c *SiteCounters) RecountHidden(ctx context.Context) error {
	var n int64
	err := c.db.WithContext(ctx).Model(&models.Post{}).
		Where("type LIKE ?", `%\_HIDDEN`).
		Count(&n).Error
	if err != nil {
		return err
	}
	return c.set(ctx, "hiddencount", n)
}

// RecountTags replaces the tagged-question counter with a count of visible
// questions carrying at least one tag.
func (c *SiteCounters) RecountTags(ctx context.Context) error {
	var n int64
	err := c.db.WithContext(ctx).Model(&models.Post{}).
		Where("type = ? AND tags <> ''", string(models.KindQuestion)).
		Count(&n).Error
	if err != nil {
		return err
	}
	return c.set(ctx, "tagcount", n)
}

// RecountCategoryPath recounts visible questions for the category at the
// tail of path and each of its ancestors, refreshing their cached qcount.
// The empty path covers uncategorized questions and touches nothing.
func (c *SiteCounters) RecountCategoryPath(ctx context.Context, path string) error {
	for _, id := range models.SplitCategoryPath(path) {
		var n int64
		// The trailing slash makes every segment, including the last,
		// match as "/id/".
		err := c.db.WithContext(ctx).Model(&models.Post{}).
			Where("type = ?", string(models.KindQuestion)).
			Where("category_path || '/' LIKE ?", fmt.Sprintf("%%/%d/%%", id)).
			Count(&n).Error
		if err != nil {
			return err
		}
		err = c.db.WithContext(ctx).Model(&models.Category{}).
			Where("id = ?", id).
			Update("qcount", n).Error
		if err != nil {
			return err
		}
	}
	return nil
}
