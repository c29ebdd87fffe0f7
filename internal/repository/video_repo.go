package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/vesselapp/vessel/internal/model"
	"gorm.io/gorm"
)

type VideoRepository interface {
	Create(ctx context.Context, video *model.Video) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Video, error)
	FindAll(ctx context.Context, offset, limit int) ([]*model.Video, int64, error)
	FindByAuthors(ctx context.Context, authorIDs []uuid.UUID, offset, limit int) ([]*model.Video, int64, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Video, error)
	Update(ctx context.Context, video *model.Video) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddViews(ctx context.Context, id uuid.UUID, delta int64) error
}

type videoRepository struct {
	db *gorm.DB
}

func NewVideoRepository(db *gorm.DB) VideoRepository {
	return &videoRepository{db: db}
}

func (r *videoRepository) Create(ctx context.Context, video *model.Video) error {
	return r.db.WithContext(ctx).Create(video).Error
}

func (r *videoRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Video, error) {
	var video model.Video
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("User.Profile").
		Where("id = ?", id).
		First(&video).Error; err != nil {
		return nil, err
	}
	return &video, nil
}

func (r *videoRepository) FindAll(ctx context.Context, offset, limit int) ([]*model.Video, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Video{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var videos []*model.Video
	if err := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&videos).Error; err != nil {
		return nil, 0, err
	}

	return videos, total, nil
}

func (r *videoRepository) FindByAuthors(ctx context.Context, authorIDs []uuid.UUID, offset, limit int) ([]*model.Video, int64, error) {
	if len(authorIDs) == 0 {
		return []*model.Video{}, 0, nil
	}

	var total int64
	if err := r.db.WithContext(ctx).
		Model(&model.Video{}).
		Where("user_id IN ?", authorIDs).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var videos []*model.Video
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id IN ?", authorIDs).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&videos).Error; err != nil {
		return nil, 0, err
	}

	return videos, total, nil
}

func (r *videoRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Video, error) {
	if len(ids) == 0 {
		return []*model.Video{}, nil
	}

	var videos []*model.Video
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("id IN ?", ids).
		Find(&videos).Error; err != nil {
		return nil, err
	}
	return videos, nil
}

func (r *videoRepository) Update(ctx context.Context, video *model.Video) error {
	return r.db.WithContext(ctx).Save(video).Error
}

func (r *videoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Video{}, "id = ?", id).Error
}

func (r *videoRepository) AddViews(ctx context.Context, id uuid.UUID, delta int64) error {
	return r.db.WithContext(ctx).
		Model(&model.Video{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", delta)).Error
}
