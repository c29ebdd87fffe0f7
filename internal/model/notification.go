package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	NotificationTypeLike           = "like"
	NotificationTypeComment        = "comment"
	NotificationTypeFollow         = "follow"
	NotificationTypeMessageRequest = "message_request"
)

type Notification struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`  // recipient
	ActorID   uuid.UUID  `gorm:"type:uuid;not null" json:"actor_id"`       // user who triggered it
	VideoID   *uuid.UUID `gorm:"type:uuid" json:"video_id,omitempty"`      // set for like/comment
	Type      string     `gorm:"type:varchar(50);not null" json:"type"`
	Message   string     `gorm:"type:text" json:"message"`
	IsRead    bool       `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`

	// Associations - pointers to avoid recursion if User gains Notifications
	User  *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Actor *User `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
