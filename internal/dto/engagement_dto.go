package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/vesselapp/vessel/internal/model"
	commonDto "github.com/vesselapp/vessel/pkg/dto"
)

type CreateCommentRequest struct {
	Body string `json:"body" binding:"required,min=1,max=1000"`
}

type LikeResponse struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
}

type CommentResponse struct {
	ID        uuid.UUID             `json:"id"`
	Body      string                `json:"body"`
	Author    commonDto.UserSummary `json:"author"`
	CreatedAt time.Time             `json:"created_at"`
}

type PaginatedCommentResponse struct {
	Data []CommentResponse        `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}

func ToCommentResponse(c *model.Comment) CommentResponse {
	return CommentResponse{
		ID:        c.ID,
		Body:      c.Body,
		Author:    ToUserSummary(&c.User),
		CreatedAt: c.CreatedAt,
	}
}
