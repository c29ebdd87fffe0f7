package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vesselapp/vessel/internal/service"
	commonDto "github.com/vesselapp/vessel/pkg/dto"
	"github.com/vesselapp/vessel/pkg/response"
	"github.com/vesselapp/vessel/pkg/validator"
)

type FollowHandler struct {
	service service.FollowService
}

func NewFollowHandler(service service.FollowService) *FollowHandler {
	return &FollowHandler{service: service}
}

func (h *FollowHandler) Follow(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.Follow(c.Request.Context(), userID, c.Param("handle")); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Mutual reports whether the caller and the named user follow each other.
func (h *FollowHandler) Mutual(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	other, err := h.service.ResolveHandle(c.Request.Context(), c.Param("handle"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	mutual, err := h.service.IsMutual(c.Request.Context(), userID, other.ID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"mutual": mutual})
}

func (h *FollowHandler) Unfollow(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.Unfollow(c.Request.Context(), userID, c.Param("handle")); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *FollowHandler) Followers(c *gin.Context) {
	var query commonDto.PageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}
	query.Defaults()

	users, err := h.service.Followers(c.Request.Context(), c.Param("handle"), query.Page, query.Limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

func (h *FollowHandler) Following(c *gin.Context) {
	var query commonDto.PageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}
	query.Defaults()

	users, err := h.service.Following(c.Request.Context(), c.Param("handle"), query.Page, query.Limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}
