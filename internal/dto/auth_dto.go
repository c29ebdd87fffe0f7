package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/vesselapp/vessel/internal/model"
)

type RegisterRequest struct {
	Handle      string `json:"handle" binding:"required,min=3,max=50,alphanum"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8,max=72"`
	DisplayName string `json:"display_name" binding:"required,min=1,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type VerifyEmailRequest struct {
	Code string `json:"code" binding:"required,len=6"`
}

type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type PasswordResetConfirm struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserResponse is the full API-facing user shape. Conversion from the storage
// row is explicit; no field is coerced implicitly.
type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Handle      string    `json:"handle"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url"`
	Bio         *string   `json:"bio"`
	Website     *string   `json:"website"`
	Verified    bool      `json:"verified"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToUserResponse converts a storage row to the API shape. includeEmail is
// true only for the owner's own views.
func ToUserResponse(u *model.User, includeEmail bool) UserResponse {
	resp := UserResponse{
		ID:          u.ID,
		Handle:      u.Handle,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		Verified:    u.VerifiedAt != nil,
		CreatedAt:   u.CreatedAt,
	}
	if includeEmail {
		resp.Email = u.Email
	}
	if u.Profile != nil {
		resp.Bio = u.Profile.Bio
		resp.Website = u.Profile.Website
	}
	return resp
}
