package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/qboard/qboard/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// PostRepository loads the post records the lifecycle engine operates on.
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// GetByID retrieves a post by ID, nil if it does not exist.
func (r *PostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// AnswersForQuestion retrieves the answers of a question in every status,
// keyed by ID.
func (r *PostRepository) AnswersForQuestion(ctx context.Context, questionID int64) (map[int64]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Where("parent_id = ? AND type LIKE ?", questionID, "A%").
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	return byID, nil
}

// CommentsFollowsForQuestion retrieves the comments and follow-on questions
// attached to a question or to any of its answers.
func (r *PostRepository) CommentsFollowsForQuestion(ctx context.Context, questionID int64) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Where("(type LIKE ? OR type LIKE ?)", "C%", "Q%").
		Where("parent_id = ? OR parent_id IN (?)",
			questionID,
			r.db.Model(&models.Post{}).Select("id").
				Where("parent_id = ? AND type LIKE ?", questionID, "A%")).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// CommentsForParent retrieves the comments and follow-on questions directly
// under one post.
func (r *PostRepository) CommentsForParent(ctx context.Context, parentID int64) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Where("parent_id = ? AND (type LIKE ? OR type LIKE ?)", parentID, "C%", "Q%").
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// ClosePost retrieves the post a closed question references as its closer:
// either the duplicate question or the NOTE holding the close reason. Nil
// when the question is open or closed by its own answer selection.
func (r *PostRepository) ClosePost(ctx context.Context, question *models.Post) (*models.Post, error) {
	if !question.ClosedByID.Valid {
		return nil, nil
	}
	return r.GetByID(ctx, question.ClosedByID.Int64)
}

// QuestionIDs streams the IDs of every question, for bulk reindex runs.
func (r *PostRepository) QuestionIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("type LIKE ?", "Q%").
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
