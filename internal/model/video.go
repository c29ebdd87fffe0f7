package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Video struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User         User      `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Caption      string    `gorm:"size:500" json:"caption"`
	VideoURL     string    `gorm:"type:text;not null" json:"video_url"`
	ThumbnailURL *string   `gorm:"type:text" json:"thumbnail_url,omitempty"`
	Duration     int       `gorm:"default:0" json:"duration"` // seconds
	Views        int       `gorm:"default:0" json:"views"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (v *Video) BeforeCreate(tx *gorm.DB) (err error) {
	if v.ID == uuid.Nil {
		v.ID, err = uuid.NewV7()
	}
	return
}
