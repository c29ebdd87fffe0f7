package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VideoLike struct {
	VideoID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"video_id"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Video *Video `gorm:"constraint:OnDelete:CASCADE" json:"video,omitempty"`
	User  *User  `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

type Comment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	VideoID   uuid.UUID `gorm:"type:uuid;not null;index" json:"video_id"`
	Video     *Video    `gorm:"constraint:OnDelete:CASCADE" json:"video,omitempty"`
	UserID    uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID, err = uuid.NewV7()
	}
	return
}
