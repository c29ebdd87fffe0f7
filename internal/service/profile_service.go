package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/google/uuid"
	"github.com/vesselapp/vessel/internal/dto"
	"github.com/vesselapp/vessel/internal/repository"
	"github.com/vesselapp/vessel/pkg/apperror"
	"github.com/vesselapp/vessel/pkg/storage"
	"gorm.io/gorm"
)

type ProfileService interface {
	GetCurrent(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error)
	GetByHandle(ctx context.Context, handle string) (*dto.UserResponse, error)
	Update(ctx context.Context, userID uuid.UUID, input dto.UpdateProfileRequest) (*dto.UserResponse, error)
	UploadAvatar(ctx context.Context, userID uuid.UUID, r io.Reader, fileName string) (*dto.UserResponse, error)
}

type profileService struct {
	repo    repository.UserRepository
	media   storage.MediaStorage
	search  SearchService
}

func NewProfileService(repo repository.UserRepository, media storage.MediaStorage, search SearchService) ProfileService {
	return &profileService{
		repo:   repo,
		media:  media,
		search: search,
	}
}

func (s *profileService) GetCurrent(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := dto.ToUserResponse(user, true)
	return &resp, nil
}

func (s *profileService) GetByHandle(ctx context.Context, handle string) (*dto.UserResponse, error) {
	user, err := s.repo.FindByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %q", apperror.ErrNotFound, handle)
		}
		return nil, err
	}
	resp := dto.ToUserResponse(user, false)
	return &resp, nil
}

func (s *profileService) Update(ctx context.Context, userID uuid.UUID, input dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.DisplayName != nil {
		user.DisplayName = *input.DisplayName
		if err := s.repo.Update(ctx, user); err != nil {
			return nil, err
		}
	}

	if input.Bio != nil || input.Website != nil {
		profile := user.Profile
		if profile == nil {
			return nil, apperror.ErrInternal
		}
		if input.Bio != nil {
			profile.Bio = input.Bio
		}
		if input.Website != nil {
			profile.Website = input.Website
		}
		if err := s.repo.UpdateProfile(ctx, profile); err != nil {
			return nil, err
		}
	}

	s.reindex(user.ID)

	resp := dto.ToUserResponse(user, true)
	return &resp, nil
}

func (s *profileService) UploadAvatar(ctx context.Context, userID uuid.UUID, r io.Reader, fileName string) (*dto.UserResponse, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	url, err := s.media.UploadMedia(ctx, r, "avatars", fileName)
	if err != nil {
		return nil, err
	}

	old := user.AvatarURL
	user.AvatarURL = &url
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	if old != nil {
		if err := s.media.DeleteMedia(ctx, *old); err != nil {
			log.Printf("failed to delete previous avatar for %s: %v", userID, err)
		}
	}

	s.reindex(user.ID)

	resp := dto.ToUserResponse(user, true)
	return &resp, nil
}

func (s *profileService) reindex(userID uuid.UUID) {
	if s.search == nil {
		return
	}
	user, err := s.repo.FindByID(context.Background(), userID)
	if err != nil {
		return
	}
	if err := s.search.IndexUser(user); err != nil {
		log.Printf("failed to reindex user %s: %v", userID, err)
	}
}
