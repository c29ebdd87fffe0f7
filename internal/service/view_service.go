package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vesselapp/vessel/internal/repository"
)

const (
	viewKeyPrefix  = "views:video:"
	viewDedupeTTL  = time.Hour
)

// ViewService buffers view counts in redis and flushes the deltas to the
// database on an interval, so a hot video does not turn into a hot row.
// A viewer counts at most once per video per hour.
type ViewService interface {
	RecordView(ctx context.Context, videoID, viewerID uuid.UUID) error
	// Flush moves all buffered counts into the videos table.
	Flush(ctx context.Context) error
	// StartSyncWorker flushes on the given interval until ctx is cancelled.
	StartSyncWorker(ctx context.Context, interval time.Duration)
}

type viewService struct {
	repo repository.VideoRepository
	rdb  *redis.Client
}

func NewViewService(repo repository.VideoRepository, rdb *redis.Client) ViewService {
	return &viewService{repo: repo, rdb: rdb}
}

func (s *viewService) RecordView(ctx context.Context, videoID, viewerID uuid.UUID) error {
	if s.rdb == nil {
		// No buffer means no dedupe either; write through
		return s.repo.AddViews(ctx, videoID, 1)
	}

	dedupeKey := fmt.Sprintf("views:seen:%s:%s", videoID, viewerID)
	fresh, err := s.rdb.SetNX(ctx, dedupeKey, 1, viewDedupeTTL).Result()
	if err != nil {
		return err
	}
	if !fresh {
		return nil
	}

	return s.rdb.Incr(ctx, viewKeyPrefix+videoID.String()).Err()
}

func (s *viewService) Flush(ctx context.Context) error {
	if s.rdb == nil {
		return nil
	}

	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, viewKeyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("scanning view counters: %w", err)
		}

		for _, key := range keys {
			if err := s.flushKey(ctx, key); err != nil {
				log.Printf("failed to flush view counter %s: %v", key, err)
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (s *viewService) flushKey(ctx context.Context, key string) error {
	videoID, err := uuid.Parse(key[len(viewKeyPrefix):])
	if err != nil {
		return fmt.Errorf("bad view counter key %q: %w", key, err)
	}

	// GetDel so concurrent increments after the read land in the next flush
	val, err := s.rdb.GetDel(ctx, key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}

	delta, err := strconv.ParseInt(val, 10, 64)
	if err != nil || delta == 0 {
		return err
	}

	return s.repo.AddViews(ctx, videoID, delta)
}

func (s *viewService) StartSyncWorker(ctx context.Context, interval time.Duration) {
	if s.rdb == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				// Best effort final flush on shutdown
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := s.Flush(flushCtx); err != nil {
					log.Printf("final view counter flush failed: %v", err)
				}
				cancel()
				return
			case <-ticker.C:
				if err := s.Flush(ctx); err != nil {
					log.Printf("view counter flush failed: %v", err)
				}
			}
		}
	}()
}
