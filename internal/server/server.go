package server

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"github.com/vesselapp/vessel/internal/handler"
	"github.com/vesselapp/vessel/internal/middleware"
	"github.com/vesselapp/vessel/internal/moderation"
	"github.com/vesselapp/vessel/internal/repository"
	"github.com/vesselapp/vessel/internal/service"
	"github.com/vesselapp/vessel/pkg/storage"
	"gorm.io/gorm"
)

const viewSyncInterval = 30 * time.Second

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
}

func NewServer(db *gorm.DB, redisClient *redis.Client) *Server {
	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	videoRepo := repository.NewVideoRepository(db)
	engagementRepo := repository.NewEngagementRepository(db)
	messagingRepo := repository.NewMessagingRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	mediaStorage, err := storage.NewCloudinaryStorage()
	if err != nil {
		log.Fatalf("failed to initialize cloudinary storage: %v", err)
	}

	meiliHost := os.Getenv("MEILISEARCH_HOST")
	if meiliHost == "" {
		meiliHost = "http://localhost:7700"
	}
	if !strings.HasPrefix(meiliHost, "http") {
		meiliHost = "http://" + meiliHost + ":7700"
	}
	meiliClient := meilisearch.New(meiliHost, meilisearch.WithAPIKey(os.Getenv("MEILI_MASTER_KEY")))
	searchSvc := service.NewSearchService(meiliClient)

	var bannedTerms []string
	if raw := os.Getenv("BANNED_TERMS"); raw != "" {
		bannedTerms = strings.Split(raw, ",")
	}
	filter := moderation.NewFilter(bannedTerms)

	limiter := service.NewRateLimiter(redisClient)

	notificationSvc := service.NewNotificationService(notificationRepo, redisClient)
	notificationHandler := handler.NewNotificationHandler(notificationSvc, redisClient)

	authSvc := service.NewAuthService(userRepo, redisClient, searchSvc)
	authHandler := handler.NewAuthHandler(authSvc)

	profileSvc := service.NewProfileService(userRepo, mediaStorage, searchSvc)
	profileHandler := handler.NewProfileHandler(profileSvc)

	followSvc := service.NewFollowService(followRepo, userRepo, redisClient, notificationSvc)
	followHandler := handler.NewFollowHandler(followSvc)

	videoSvc := service.NewVideoService(videoRepo, engagementRepo, followSvc, mediaStorage, searchSvc, filter, limiter)
	viewSvc := service.NewViewService(videoRepo, redisClient)
	viewSvc.StartSyncWorker(context.Background(), viewSyncInterval)
	videoHandler := handler.NewVideoHandler(videoSvc, viewSvc)

	engagementSvc := service.NewEngagementService(engagementRepo, videoRepo, notificationSvc, filter, limiter)
	engagementHandler := handler.NewEngagementHandler(engagementSvc)

	messagingSvc := service.NewMessagingService(messagingRepo, userRepo, followSvc, notificationSvc, filter, limiter)
	messagingHandler := handler.NewMessagingHandler(messagingSvc)

	searchHandler := handler.NewSearchHandler(searchSvc, userRepo, videoRepo)

	router := gin.New()

	setupCORS(router)

	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	authMiddleware := middleware.NewAuthMiddleware()

	api := router.Group("/api")

	// Public routes
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/password-reset/request", authHandler.RequestPasswordReset)
		auth.POST("/password-reset/confirm", authHandler.ConfirmPasswordReset)
	}

	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.POST("/auth/verify-email", authHandler.VerifyEmail)

		// Profile routes
		protected.GET("/profile/me", profileHandler.GetMe)
		protected.GET("/profile/:handle", profileHandler.GetByHandle)
		protected.PUT("/profile", profileHandler.Update)
		protected.POST("/profile/avatar", profileHandler.UploadAvatar)

		// Follow graph routes
		protected.POST("/users/:handle/follow", followHandler.Follow)
		protected.DELETE("/users/:handle/follow", followHandler.Unfollow)
		protected.GET("/users/:handle/followers", followHandler.Followers)
		protected.GET("/users/:handle/following", followHandler.Following)
		protected.GET("/users/:handle/mutual", followHandler.Mutual)

		// Video routes
		protected.POST("/videos", videoHandler.Publish)
		protected.GET("/videos", videoHandler.Feed)
		protected.GET("/videos/:id", videoHandler.GetByID)
		protected.DELETE("/videos/:id", videoHandler.Delete)
		protected.POST("/videos/:id/view", videoHandler.RecordView)

		// Engagement routes
		protected.POST("/videos/:id/like", engagementHandler.ToggleLike)
		protected.POST("/videos/:id/comments", engagementHandler.AddComment)
		protected.GET("/videos/:id/comments", engagementHandler.ListComments)
		protected.DELETE("/comments/:id", engagementHandler.DeleteComment)

		// Messaging routes
		protected.POST("/threads", messagingHandler.Send)
		protected.GET("/threads", messagingHandler.ListThreads)
		protected.GET("/threads/:id", messagingHandler.GetThread)
		protected.DELETE("/threads/:id", messagingHandler.LeaveThread)
		protected.GET("/threads/:id/messages", messagingHandler.ListMessages)
		protected.POST("/threads/:id/messages", messagingHandler.PostMessage)
		protected.GET("/requests", messagingHandler.ListRequests)
		protected.POST("/requests/:id/accept", messagingHandler.AcceptRequest)
		protected.POST("/requests/:id/decline", messagingHandler.DeclineRequest)

		// Notification routes
		protected.GET("/notifications", notificationHandler.List)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.GET("/notifications/ws", notificationHandler.Stream)

		// Search routes
		protected.GET("/search/users", searchHandler.SearchUsers)
		protected.GET("/search/videos", searchHandler.SearchVideos)
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
	}
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func setupCORS(router *gin.Engine) {
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	var origins []string
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	} else {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
