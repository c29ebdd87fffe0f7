package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vesselapp/vessel/internal/dto"
	"github.com/vesselapp/vessel/internal/repository"
	"github.com/vesselapp/vessel/internal/service"
	commonDto "github.com/vesselapp/vessel/pkg/dto"
	"github.com/vesselapp/vessel/pkg/response"
)

type SearchHandler struct {
	search    service.SearchService
	userRepo  repository.UserRepository
	videoRepo repository.VideoRepository
}

func NewSearchHandler(search service.SearchService, userRepo repository.UserRepository, videoRepo repository.VideoRepository) *SearchHandler {
	return &SearchHandler{
		search:    search,
		userRepo:  userRepo,
		videoRepo: videoRepo,
	}
}

func (h *SearchHandler) SearchUsers(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}
	limit := parseLimit(c, 20)

	ids, err := h.search.SearchUsers(query, limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	users, err := h.userRepo.FindByIDs(c.Request.Context(), ids)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	data := make([]commonDto.UserSummary, 0, len(users))
	for _, u := range users {
		data = append(data, dto.ToUserSummary(u))
	}

	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (h *SearchHandler) SearchVideos(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}
	limit := parseLimit(c, 20)

	ids, err := h.search.SearchVideos(query, limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	videos, err := h.videoRepo.FindByIDs(c.Request.Context(), ids)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	data := make([]dto.VideoResponse, 0, len(videos))
	for _, v := range videos {
		data = append(data, dto.ToVideoResponse(v, 0, 0))
	}

	c.JSON(http.StatusOK, gin.H{"data": data})
}

func parseLimit(c *gin.Context, fallback int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(fallback)))
	if err != nil || limit < 1 || limit > 50 {
		return fallback
	}
	return limit
}
