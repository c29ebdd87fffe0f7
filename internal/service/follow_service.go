package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vesselapp/vessel/internal/dto"
	"github.com/vesselapp/vessel/internal/model"
	"github.com/vesselapp/vessel/internal/repository"
	"github.com/vesselapp/vessel/pkg/apperror"
	commonDto "github.com/vesselapp/vessel/pkg/dto"
	"gorm.io/gorm"
)

const followingCacheTTL = 10 * time.Minute

type FollowService interface {
	Follow(ctx context.Context, followerID uuid.UUID, handle string) error
	Unfollow(ctx context.Context, followerID uuid.UUID, handle string) error
	Followers(ctx context.Context, handle string, page, limit int) (*commonDto.PaginatedUserResponse, error)
	Following(ctx context.Context, handle string, page, limit int) (*commonDto.PaginatedUserResponse, error)
	IsMutual(ctx context.Context, a, b uuid.UUID) (bool, error)
	// FollowingIDs returns the followee id set, served from the redis cache
	// when warm. The database stays authoritative.
	FollowingIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	ResolveHandle(ctx context.Context, handle string) (*model.User, error)
}

type followService struct {
	repo     repository.FollowRepository
	userRepo repository.UserRepository
	rdb      *redis.Client
	notifSvc NotificationService
}

func NewFollowService(repo repository.FollowRepository, userRepo repository.UserRepository, rdb *redis.Client, notifSvc NotificationService) FollowService {
	return &followService{
		repo:     repo,
		userRepo: userRepo,
		rdb:      rdb,
		notifSvc: notifSvc,
	}
}

func (s *followService) Follow(ctx context.Context, followerID uuid.UUID, handle string) error {
	followee, err := s.ResolveHandle(ctx, handle)
	if err != nil {
		return err
	}
	if followee.ID == followerID {
		return fmt.Errorf("%w: cannot follow yourself", apperror.ErrBadRequest)
	}

	already, err := s.repo.Exists(ctx, followerID, followee.ID)
	if err != nil {
		return err
	}

	if err := s.repo.Create(ctx, &model.Follow{FollowerID: followerID, FolloweeID: followee.ID}); err != nil {
		return err
	}
	s.invalidateCache(ctx, followerID)

	// Notify only on a fresh edge, not on repeat follows
	if !already && s.notifSvc != nil {
		notif := &model.Notification{
			UserID:  followee.ID,
			ActorID: followerID,
			Type:    model.NotificationTypeFollow,
			Message: "started following you",
		}
		if err := s.notifSvc.CreateNotification(ctx, notif); err != nil {
			log.Printf("failed to create follow notification: %v", err)
		}
	}

	return nil
}

func (s *followService) Unfollow(ctx context.Context, followerID uuid.UUID, handle string) error {
	followee, err := s.ResolveHandle(ctx, handle)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, followerID, followee.ID); err != nil {
		return err
	}
	s.invalidateCache(ctx, followerID)
	return nil
}

func (s *followService) Followers(ctx context.Context, handle string, page, limit int) (*commonDto.PaginatedUserResponse, error) {
	user, err := s.ResolveHandle(ctx, handle)
	if err != nil {
		return nil, err
	}

	users, total, err := s.repo.ListFollowers(ctx, user.ID, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	return paginatedUsers(users, page, limit, total), nil
}

func (s *followService) Following(ctx context.Context, handle string, page, limit int) (*commonDto.PaginatedUserResponse, error) {
	user, err := s.ResolveHandle(ctx, handle)
	if err != nil {
		return nil, err
	}

	users, total, err := s.repo.ListFollowing(ctx, user.ID, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	return paginatedUsers(users, page, limit, total), nil
}

func (s *followService) IsMutual(ctx context.Context, a, b uuid.UUID) (bool, error) {
	forward, err := s.repo.Exists(ctx, a, b)
	if err != nil || !forward {
		return false, err
	}
	return s.repo.Exists(ctx, b, a)
}

func (s *followService) FollowingIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	key := followingCacheKey(userID)

	if s.rdb != nil {
		members, err := s.rdb.SMembers(ctx, key).Result()
		if err == nil && len(members) > 0 {
			ids := make([]uuid.UUID, 0, len(members))
			for _, m := range members {
				if id, err := uuid.Parse(m); err == nil {
					ids = append(ids, id)
				}
			}
			return ids, nil
		}
	}

	ids, err := s.repo.ListFollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil && len(ids) > 0 {
		members := make([]interface{}, len(ids))
		for i, id := range ids {
			members[i] = id.String()
		}
		if err := s.rdb.SAdd(ctx, key, members...).Err(); err == nil {
			s.rdb.Expire(ctx, key, followingCacheTTL)
		}
	}

	return ids, nil
}

func (s *followService) invalidateCache(ctx context.Context, userID uuid.UUID) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, followingCacheKey(userID)).Err(); err != nil {
		log.Printf("failed to invalidate following cache for %s: %v", userID, err)
	}
}

func (s *followService) ResolveHandle(ctx context.Context, handle string) (*model.User, error) {
	user, err := s.userRepo.FindByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %q", apperror.ErrNotFound, handle)
		}
		return nil, err
	}
	return user, nil
}

func paginatedUsers(users []*model.User, page, limit int, total int64) *commonDto.PaginatedUserResponse {
	data := make([]commonDto.UserSummary, 0, len(users))
	for _, u := range users {
		data = append(data, dto.ToUserSummary(u))
	}
	return &commonDto.PaginatedUserResponse{
		Data: data,
		Meta: commonDto.NewPaginationMeta(page, limit, total),
	}
}

func followingCacheKey(userID uuid.UUID) string {
	return fmt.Sprintf("following:%s", userID.String())
}
