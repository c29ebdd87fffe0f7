package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/vesselapp/vessel/internal/dto"
	"github.com/vesselapp/vessel/internal/model"
	"github.com/vesselapp/vessel/internal/moderation"
	"github.com/vesselapp/vessel/internal/repository"
	"github.com/vesselapp/vessel/pkg/apperror"
	commonDto "github.com/vesselapp/vessel/pkg/dto"
	"gorm.io/gorm"
)

type EngagementService interface {
	ToggleLike(ctx context.Context, userID, videoID uuid.UUID) (*dto.LikeResponse, error)
	AddComment(ctx context.Context, userID, videoID uuid.UUID, body string) (*dto.CommentResponse, error)
	ListComments(ctx context.Context, videoID uuid.UUID, page, limit int) (*dto.PaginatedCommentResponse, error)
	DeleteComment(ctx context.Context, userID, commentID uuid.UUID) error
}

type engagementService struct {
	repo      repository.EngagementRepository
	videoRepo repository.VideoRepository
	notifSvc  NotificationService
	filter    *moderation.Filter
	limiter   *RateLimiter
	cooldown  time.Duration
}

func NewEngagementService(
	repo repository.EngagementRepository,
	videoRepo repository.VideoRepository,
	notifSvc NotificationService,
	filter *moderation.Filter,
	limiter *RateLimiter,
) EngagementService {
	cooldown := 5 * time.Second
	if v := os.Getenv("RATE_LIMIT_COMMENT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cooldown = parsed
		}
	}

	return &engagementService{
		repo:      repo,
		videoRepo: videoRepo,
		notifSvc:  notifSvc,
		filter:    filter,
		limiter:   limiter,
		cooldown:  cooldown,
	}
}

func (s *engagementService) ToggleLike(ctx context.Context, userID, videoID uuid.UUID) (*dto.LikeResponse, error) {
	video, err := s.findVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	liked, err := s.repo.LikeExists(ctx, videoID, userID)
	if err != nil {
		return nil, err
	}

	if liked {
		if err := s.repo.DeleteLike(ctx, videoID, userID); err != nil {
			return nil, err
		}
	} else {
		if err := s.repo.CreateLike(ctx, &model.VideoLike{VideoID: videoID, UserID: userID}); err != nil {
			return nil, err
		}
		s.notify(ctx, video, userID, model.NotificationTypeLike, "liked your video")
	}

	count, err := s.repo.CountLikes(ctx, videoID)
	if err != nil {
		return nil, err
	}

	return &dto.LikeResponse{Liked: !liked, LikeCount: count}, nil
}

func (s *engagementService) AddComment(ctx context.Context, userID, videoID uuid.UUID, body string) (*dto.CommentResponse, error) {
	video, err := s.findVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.limiter.Allow(ctx, userID, "comment", s.cooldown)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, s.limiter.Exceeded(ctx, userID, "comment")
	}

	if s.filter != nil {
		if err := s.filter.Check("body", body); err != nil {
			return nil, err
		}
		body = s.filter.Sanitize(body)
	}
	if body == "" {
		return nil, fmt.Errorf("%w: comment body is empty", apperror.ErrBadRequest)
	}

	comment := &model.Comment{
		VideoID: videoID,
		UserID:  userID,
		Body:    body,
	}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	created, err := s.repo.FindCommentByID(ctx, comment.ID)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, video, userID, model.NotificationTypeComment, "commented on your video")

	resp := dto.ToCommentResponse(created)
	return &resp, nil
}

func (s *engagementService) ListComments(ctx context.Context, videoID uuid.UUID, page, limit int) (*dto.PaginatedCommentResponse, error) {
	if _, err := s.findVideo(ctx, videoID); err != nil {
		return nil, err
	}

	comments, total, err := s.repo.ListComments(ctx, videoID, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	data := make([]dto.CommentResponse, 0, len(comments))
	for _, c := range comments {
		data = append(data, dto.ToCommentResponse(c))
	}

	return &dto.PaginatedCommentResponse{
		Data: data,
		Meta: commonDto.NewPaginationMeta(page, limit, total),
	}, nil
}

func (s *engagementService) DeleteComment(ctx context.Context, userID, commentID uuid.UUID) error {
	comment, err := s.repo.FindCommentByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: comment", apperror.ErrNotFound)
		}
		return err
	}

	// The comment author or the video author may remove a comment
	if comment.UserID != userID {
		video, err := s.findVideo(ctx, comment.VideoID)
		if err != nil {
			return err
		}
		if video.UserID != userID {
			return fmt.Errorf("%w: not allowed to delete this comment", apperror.ErrForbidden)
		}
	}

	return s.repo.DeleteComment(ctx, commentID)
}

func (s *engagementService) findVideo(ctx context.Context, videoID uuid.UUID) (*model.Video, error) {
	video, err := s.videoRepo.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: video", apperror.ErrNotFound)
		}
		return nil, err
	}
	return video, nil
}

func (s *engagementService) notify(ctx context.Context, video *model.Video, actorID uuid.UUID, notifType, message string) {
	if s.notifSvc == nil || video.UserID == actorID {
		return
	}

	videoID := video.ID
	notif := &model.Notification{
		UserID:  video.UserID,
		ActorID: actorID,
		VideoID: &videoID,
		Type:    notifType,
		Message: message,
	}
	if err := s.notifSvc.CreateNotification(ctx, notif); err != nil {
		log.Printf("failed to create %s notification: %v", notifType, err)
	}
}
