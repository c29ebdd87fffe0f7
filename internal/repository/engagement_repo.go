package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/vesselapp/vessel/internal/model"
	"gorm.io/gorm"
)

type EngagementRepository interface {
	LikeExists(ctx context.Context, videoID, userID uuid.UUID) (bool, error)
	CreateLike(ctx context.Context, like *model.VideoLike) error
	DeleteLike(ctx context.Context, videoID, userID uuid.UUID) error
	CountLikes(ctx context.Context, videoID uuid.UUID) (int64, error)
	CreateComment(ctx context.Context, comment *model.Comment) error
	FindCommentByID(ctx context.Context, id uuid.UUID) (*model.Comment, error)
	ListComments(ctx context.Context, videoID uuid.UUID, offset, limit int) ([]*model.Comment, int64, error)
	DeleteComment(ctx context.Context, id uuid.UUID) error
}

type engagementRepository struct {
	db *gorm.DB
}

func NewEngagementRepository(db *gorm.DB) EngagementRepository {
	return &engagementRepository{db: db}
}

func (r *engagementRepository) LikeExists(ctx context.Context, videoID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.VideoLike{}).
		Where("video_id = ? AND user_id = ?", videoID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *engagementRepository) CreateLike(ctx context.Context, like *model.VideoLike) error {
	return r.db.WithContext(ctx).Create(like).Error
}

func (r *engagementRepository) DeleteLike(ctx context.Context, videoID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("video_id = ? AND user_id = ?", videoID, userID).
		Delete(&model.VideoLike{}).Error
}

func (r *engagementRepository) CountLikes(ctx context.Context, videoID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.VideoLike{}).
		Where("video_id = ?", videoID).
		Count(&count).Error
	return count, err
}

func (r *engagementRepository) CreateComment(ctx context.Context, comment *model.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *engagementRepository) FindCommentByID(ctx context.Context, id uuid.UUID) (*model.Comment, error) {
	var comment model.Comment
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("id = ?", id).
		First(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *engagementRepository) ListComments(ctx context.Context, videoID uuid.UUID, offset, limit int) ([]*model.Comment, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&model.Comment{}).
		Where("video_id = ?", videoID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var comments []*model.Comment
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("video_id = ?", videoID).
		Order("created_at ASC").
		Offset(offset).Limit(limit).
		Find(&comments).Error; err != nil {
		return nil, 0, err
	}

	return comments, total, nil
}

func (r *engagementRepository) DeleteComment(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Comment{}, "id = ?", id).Error
}
