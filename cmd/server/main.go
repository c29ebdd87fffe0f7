package main

import (
	"log"

	"github.com/redis/go-redis/v9"
	"github.com/vesselapp/vessel/internal/config"
	"github.com/vesselapp/vessel/internal/model"
	"github.com/vesselapp/vessel/internal/server"
	"github.com/vesselapp/vessel/pkg/database"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db := database.Connect()
	if err := migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	redisClient := connectRedis(cfg.RedisURL)

	srv := server.NewServer(db, redisClient)
	if err := srv.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Profile{},
		&model.Follow{},
		&model.Video{},
		&model.VideoLike{},
		&model.Comment{},
		&model.Thread{},
		&model.ThreadParticipant{},
		&model.Message{},
		&model.MessageRequest{},
		&model.Notification{},
	)
}

// connectRedis returns nil when redis is unconfigured or unreachable; the
// services degrade to database-only behavior.
func connectRedis(url string) *redis.Client {
	if url == "" {
		log.Println("REDIS_URL not set, running without redis")
		return nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("invalid REDIS_URL, running without redis: %v", err)
		return nil
	}

	return redis.NewClient(opts)
}
