package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/vesselapp/vessel/internal/model"
	commonDto "github.com/vesselapp/vessel/pkg/dto"
)

const (
	FeedRecent    = "recent"
	FeedFollowing = "following"
)

type FeedFilter struct {
	Feed  string `form:"feed" binding:"omitempty,oneof=recent following"`
	Page  int    `form:"page" binding:"omitempty,min=1"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=50"`
}

type VideoResponse struct {
	ID           uuid.UUID              `json:"id"`
	Caption      string                 `json:"caption"`
	VideoURL     string                 `json:"video_url"`
	ThumbnailURL *string                `json:"thumbnail_url"`
	Duration     int                    `json:"duration"`
	Views        int                    `json:"views"`
	LikeCount    int64                  `json:"like_count"`
	CommentCount int64                  `json:"comment_count"`
	Author       commonDto.UserSummary  `json:"author"`
	CreatedAt    time.Time              `json:"created_at"`
}

type PaginatedVideoResponse struct {
	Data []VideoResponse          `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}

func ToVideoResponse(v *model.Video, likeCount, commentCount int64) VideoResponse {
	return VideoResponse{
		ID:           v.ID,
		Caption:      v.Caption,
		VideoURL:     v.VideoURL,
		ThumbnailURL: v.ThumbnailURL,
		Duration:     v.Duration,
		Views:        v.Views,
		LikeCount:    likeCount,
		CommentCount: commentCount,
		Author:       ToUserSummary(&v.User),
		CreatedAt:    v.CreatedAt,
	}
}
