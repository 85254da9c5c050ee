package db

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/qboard/qboard/internal/engine"
	"github.com/qboard/qboard/internal/models"
)

// Hotness blends question age, vote score and answer activity into one
// sortable number, measured in weighted hours since the epoch. Weights
// follow the classic 50/15/10 split with the remainder left to view
// tracking, which lives outside this service.
const (
	hotnessAgeWeight    = 0.5
	hotnessVoteWeight   = 0.15
	hotnessAnswerWeight = 0.10
	secondsPerHour      = 3600.0
)

// Store is the GORM-backed implementation of the engine's persistence
// surface. New posts get snowflake IDs so close notes can be created without
// a round trip for the generated key.
type Store struct {
	db   *gorm.DB
	node *snowflake.Node
}

// NewStore creates a post store. nodeID distinguishes concurrent writers.
func NewStore(db *gorm.DB, nodeID int64) (*Store, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("create snowflake node: %w", err)
	}
	return &Store{db: db, node: node}, nil
}

func (s *Store) update(ctx context.Context, postID int64, values map[string]any, by *engine.Attribution) error {
	if by != nil {
		values["updated_at"] = time.Now().UTC()
		values["update_ip"] = by.IP
		if by.UserID != nil {
			values["updated_by_id"] = *by.UserID
		} else {
			values["updated_by_id"] = nil
		}
	}
	res := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", postID).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("post %d not found", postID)
	}
	return nil
}

func (s *Store) SetType(ctx context.Context, postID int64, typeTag string, by *engine.Attribution) error {
	return s.update(ctx, postID, map[string]any{"type": typeTag}, by)
}

func (s *Store) SetContent(ctx context.Context, postID int64, fields engine.ContentFields, by *engine.Attribution) error {
	values := map[string]any{
		"title":   fields.Title,
		"content": fields.Content,
		"format":  fields.Format,
		"tags":    fields.Tags,
	}
	if fields.Notify != nil {
		values["notify"] = *fields.Notify
	}
	if fields.Name != nil {
		values["name"] = *fields.Name
	}
	return s.update(ctx, postID, values, by)
}

func (s *Store) SetParent(ctx context.Context, postID, parentID int64) error {
	return s.update(ctx, postID, map[string]any{"parent_id": parentID}, nil)
}

func (s *Store) SetCategory(ctx context.Context, postID int64, categoryID *int64, by *engine.Attribution) error {
	return s.update(ctx, postID, map[string]any{"category_id": categoryID}, by)
}

func (s *Store) SetClosed(ctx context.Context, postID int64, closed bool, closedByID *int64, by *engine.Attribution) error {
	return s.update(ctx, postID, map[string]any{
		"closed":       closed,
		"closed_by_id": closedByID,
	}, by)
}

func (s *Store) SetSelectedChild(ctx context.Context, postID int64, selChildID *int64, by *engine.Attribution) error {
	return s.update(ctx, postID, map[string]any{"sel_child_id": selChildID}, by)
}

func (s *Store) SetCreatedNow(ctx context.Context, postID int64) error {
	return s.update(ctx, postID, map[string]any{"created_at": time.Now().UTC()}, nil)
}

func (s *Store) SetUpdatedNow(ctx context.Context, postID int64) error {
	return s.update(ctx, postID, map[string]any{"updated_at": time.Now().UTC()}, nil)
}

func (s *Store) SetAuthor(ctx context.Context, postID int64, userID *int64) error {
	return s.update(ctx, postID, map[string]any{"user_id": userID}, nil)
}

func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	if post.ID == 0 {
		post.ID = s.node.Generate().Int64()
	}
	return s.db.WithContext(ctx).Create(post).Error
}

func (s *Store) DeletePost(ctx context.Context, postID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", postID).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, postID).Error
	})
}

func (s *Store) ChildCount(ctx context.Context, postID int64) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("parent_id = ? AND type NOT LIKE ?", postID, "NOTE%").
		Count(&n).Error
	return n, err
}

func (s *Store) CategoryPath(ctx context.Context, postID int64) (string, error) {
	var path string
	err := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", postID).
		Pluck("category_path", &path).Error
	return path, err
}

// RecalcCategoryPath rebuilds the materialized path ("/12/37") from the
// category tree, walking ancestors root first.
func (s *Store) RecalcCategoryPath(ctx context.Context, postID int64) error {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, postID).Error; err != nil {
		return err
	}
	var categoryID *int64
	if post.CategoryID.Valid {
		categoryID = &post.CategoryID.Int64
	}
	path, err := s.pathForCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	return s.update(ctx, postID, map[string]any{"category_path": path}, nil)
}

// SetCategoryPath stamps the question's category and path onto its
// descendants in one statement.
func (s *Store) SetCategoryPath(ctx context.Context, postIDs []int64, categoryID *int64) error {
	if len(postIDs) == 0 {
		return nil
	}
	path, err := s.pathForCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id IN ?", postIDs).
		Updates(map[string]any{"category_id": categoryID, "category_path": path}).Error
}

// pathForCategory walks the category tree to the root and renders the
// materialized path, empty for the no-category case.
func (s *Store) pathForCategory(ctx context.Context, categoryID *int64) (string, error) {
	if categoryID == nil {
		return "", nil
	}
	var segments []int64
	next := *categoryID
	for i := 0; i < 32; i++ { // depth bound guards against cycles
		var cat models.Category
		if err := s.db.WithContext(ctx).First(&cat, next).Error; err != nil {
			return "", err
		}
		segments = append(segments, cat.ID)
		if !cat.ParentID.Valid {
			break
		}
		next = cat.ParentID.Int64
	}
	path := ""
	for i := len(segments) - 1; i >= 0; i-- {
		path += fmt.Sprintf("/%d", segments[i])
	}
	return path, nil
}

func (s *Store) VotesForPost(ctx context.Context, postID int64) (map[int64]int, error) {
	var votes []models.Vote
	if err := s.db.WithContext(ctx).Where("post_id = ?", postID).Find(&votes).Error; err != nil {
		return nil, err
	}
	byUser := make(map[int64]int, len(votes))
	for _, v := range votes {
		byUser[v.UserID] = v.Vote
	}
	return byUser, nil
}

// RemoveOwnVote drops the post author's vote on their own post.
func (s *Store) RemoveOwnVote(ctx context.Context, postID int64) error {
	return s.db.WithContext(ctx).
		Where("post_id = ? AND user_id = (?)", postID,
			s.db.Model(&models.Post{}).Select("user_id").Where("id = ?", postID)).
		Delete(&models.Vote{}).Error
}

func (s *Store) RecountVotes(ctx context.Context, postID int64) error {
	return s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", postID).
		Update("net_votes", s.db.Model(&models.Vote{}).
			Select("COALESCE(SUM(vote), 0)").
			Where("post_id = ?", postID)).Error
}

func (s *Store) BumpAnswerCount(ctx context.Context, questionID int64, delta int) error {
	return s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", questionID).
		Update("acount", gorm.Expr("acount + ?", delta)).Error
}

func (s *Store) SetMaxAnswerVotes(ctx context.Context, questionID int64, value int) error {
	return s.update(ctx, questionID, map[string]any{"amaxvote": value}, nil)
}

// RecalcMaxAnswerVotes recomputes amaxvote from the visible answers and
// returns the new value.
func (s *Store) RecalcMaxAnswerVotes(ctx context.Context, questionID int64) (int, error) {
	var maxVotes int
	err := s.db.WithContext(ctx).Model(&models.Post{}).
		Select("COALESCE(MAX(net_votes), 0)").
		Where("parent_id = ? AND type = ?", questionID, string(models.KindAnswer)).
		Scan(&maxVotes).Error
	if err != nil {
		return 0, err
	}
	return maxVotes, s.update(ctx, questionID, map[string]any{"amaxvote": maxVotes}, nil)
}

// UpdateHotness recomputes the question's hotness from age, votes and
// answer count.
func (s *Store) UpdateHotness(ctx context.Context, questionID int64) error {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, questionID).Error; err != nil {
		return err
	}
	ageHours := float64(post.CreatedAt.Unix()) / secondsPerHour
	hotness := ageHours*hotnessAgeWeight +
		float64(post.NetVotes)*hotnessVoteWeight +
		float64(post.ACount)*hotnessAnswerWeight
	return s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", questionID).
		Update("hotness", hotness).Error
}
