package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/vesselapp/vessel/internal/dto"
	"github.com/vesselapp/vessel/internal/model"
	"github.com/vesselapp/vessel/internal/moderation"
	"github.com/vesselapp/vessel/internal/repository"
	"github.com/vesselapp/vessel/pkg/apperror"
	"github.com/vesselapp/vessel/pkg/storage"
	commonDto "github.com/vesselapp/vessel/pkg/dto"
	"gorm.io/gorm"
)

type PublishVideoInput struct {
	Caption  string
	Duration int
	File     io.Reader
	FileName string
}

type VideoService interface {
	Publish(ctx context.Context, userID uuid.UUID, input PublishVideoInput) (*dto.VideoResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.VideoResponse, error)
	ListFeed(ctx context.Context, userID uuid.UUID, filter dto.FeedFilter) (*dto.PaginatedVideoResponse, error)
	Delete(ctx context.Context, userID, videoID uuid.UUID) error
}

type videoService struct {
	repo          repository.VideoRepository
	engagementRepo repository.EngagementRepository
	followSvc     FollowService
	media         storage.MediaStorage
	search        SearchService
	filter        *moderation.Filter
	limiter       *RateLimiter
	cooldown      time.Duration
}

func NewVideoService(
	repo repository.VideoRepository,
	engagementRepo repository.EngagementRepository,
	followSvc FollowService,
	media storage.MediaStorage,
	search SearchService,
	filter *moderation.Filter,
	limiter *RateLimiter,
) VideoService {
	cooldown := time.Minute
	if v := os.Getenv("RATE_LIMIT_VIDEO"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cooldown = parsed
		}
	}

	return &videoService{
		repo:           repo,
		engagementRepo: engagementRepo,
		followSvc:      followSvc,
		media:          media,
		search:         search,
		filter:         filter,
		limiter:        limiter,
		cooldown:       cooldown,
	}
}

func (s *videoService) Publish(ctx context.Context, userID uuid.UUID, input PublishVideoInput) (*dto.VideoResponse, error) {
	if len(input.Caption) > 500 {
		return nil, fmt.Errorf("%w: caption exceeds 500 characters", apperror.ErrBadRequest)
	}
	if s.filter != nil {
		if err := s.filter.Check("caption", input.Caption); err != nil {
			return nil, err
		}
		input.Caption = s.filter.Sanitize(input.Caption)
	}

	allowed, err := s.limiter.Allow(ctx, userID, "publish_video", s.cooldown)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, s.limiter.Exceeded(ctx, userID, "publish_video")
	}

	url, err := s.media.UploadMedia(ctx, input.File, "videos", input.FileName)
	if err != nil {
		// Upload failed, give the cooldown back
		if clearErr := s.limiter.Clear(ctx, userID, "publish_video"); clearErr != nil {
			log.Printf("failed to clear publish rate limit for %s: %v", userID, clearErr)
		}
		return nil, err
	}

	video := &model.Video{
		UserID:   userID,
		Caption:  input.Caption,
		VideoURL: url,
		Duration: input.Duration,
	}
	if err := s.repo.Create(ctx, video); err != nil {
		return nil, err
	}

	created, err := s.repo.FindByID(ctx, video.ID)
	if err != nil {
		return nil, err
	}

	if s.search != nil {
		if err := s.search.IndexVideo(created); err != nil {
			log.Printf("failed to index video %s: %v", created.ID, err)
		}
	}

	resp := dto.ToVideoResponse(created, 0, 0)
	return &resp, nil
}

func (s *videoService) GetByID(ctx context.Context, id uuid.UUID) (*dto.VideoResponse, error) {
	video, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: video", apperror.ErrNotFound)
		}
		return nil, err
	}

	resp, err := s.toResponse(ctx, video)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *videoService) ListFeed(ctx context.Context, userID uuid.UUID, filter dto.FeedFilter) (*dto.PaginatedVideoResponse, error) {
	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.Limit == 0 {
		filter.Limit = 20
	}
	offset := (filter.Page - 1) * filter.Limit

	var (
		videos []*model.Video
		total  int64
		err    error
	)

	if filter.Feed == dto.FeedFollowing {
		authorIDs, ferr := s.followSvc.FollowingIDs(ctx, userID)
		if ferr != nil {
			return nil, ferr
		}
		videos, total, err = s.repo.FindByAuthors(ctx, authorIDs, offset, filter.Limit)
	} else {
		videos, total, err = s.repo.FindAll(ctx, offset, filter.Limit)
	}
	if err != nil {
		return nil, err
	}

	data := make([]dto.VideoResponse, 0, len(videos))
	for _, video := range videos {
		resp, err := s.toResponse(ctx, video)
		if err != nil {
			return nil, err
		}
		data = append(data, *resp)
	}

	return &dto.PaginatedVideoResponse{
		Data: data,
		Meta: commonDto.NewPaginationMeta(filter.Page, filter.Limit, total),
	}, nil
}

func (s *videoService) Delete(ctx context.Context, userID, videoID uuid.UUID) error {
	video, err := s.repo.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: video", apperror.ErrNotFound)
		}
		return err
	}

	if video.UserID != userID {
		return fmt.Errorf("%w: only the author can delete a video", apperror.ErrForbidden)
	}

	if err := s.repo.Delete(ctx, videoID); err != nil {
		return err
	}

	if err := s.media.DeleteMedia(ctx, video.VideoURL); err != nil {
		log.Printf("failed to delete media for video %s: %v", videoID, err)
	}
	if s.search != nil {
		if err := s.search.DeleteVideo(videoID.String()); err != nil {
			log.Printf("failed to remove video %s from index: %v", videoID, err)
		}
	}

	return nil
}

func (s *videoService) toResponse(ctx context.Context, video *model.Video) (*dto.VideoResponse, error) {
	likes, err := s.engagementRepo.CountLikes(ctx, video.ID)
	if err != nil {
		return nil, err
	}
	_, comments, err := s.engagementRepo.ListComments(ctx, video.ID, 0, 1)
	if err != nil {
		return nil, err
	}
	resp := dto.ToVideoResponse(video, likes, comments)
	return &resp, nil
}
