package dto

import (
	"github.com/vesselapp/vessel/internal/model"
	commonDto "github.com/vesselapp/vessel/pkg/dto"
)

type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,min=1,max=100"`
	Bio         *string `json:"bio" binding:"omitempty,max=500"`
	Website     *string `json:"website" binding:"omitempty,max=255,url"`
}

func ToUserSummary(u *model.User) commonDto.UserSummary {
	return commonDto.UserSummary{
		ID:          u.ID,
		Handle:      u.Handle,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		Verified:    u.VerifiedAt != nil,
	}
}
