package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Thread is a conversation scoped to a fixed participant set.
type Thread struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Subject   *string   `gorm:"size:140" json:"subject,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Participants []ThreadParticipant `gorm:"foreignKey:ThreadID" json:"participants,omitempty"`
}

func (t *Thread) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID, err = uuid.NewV7()
	}
	return
}

// ThreadParticipant carries the per-member read pointer. The participant set
// is fixed at thread creation; rows are only removed when a member leaves.
type ThreadParticipant struct {
	ThreadID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"thread_id"`
	UserID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	User       User      `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
	LastReadAt time.Time `gorm:"not null" json:"last_read_at"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Message rows are immutable. Seq is the storage-assigned insertion sequence
// used as the secondary sort key when two messages share a timestamp.
type Message struct {
	Seq       int64     `gorm:"primaryKey;autoIncrement" json:"seq"`
	ID        uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"id"`
	ThreadID  uuid.UUID `gorm:"type:uuid;not null;index" json:"thread_id"`
	SenderID  uuid.UUID `gorm:"type:uuid;not null" json:"sender_id"`
	Sender    User      `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"sender,omitempty"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID, err = uuid.NewV7()
	}
	return
}

const (
	RequestStatusPending  = "pending"
	RequestStatusAccepted = "accepted"
	RequestStatusDeclined = "declined"
)

// MessageRequest is a pending proposal to open a thread with a recipient who
// is not a mutual follow of the sender.
type MessageRequest struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SenderID    uuid.UUID  `gorm:"type:uuid;not null" json:"sender_id"`
	Sender      User       `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"sender,omitempty"`
	RecipientID uuid.UUID  `gorm:"type:uuid;not null;index" json:"recipient_id"`
	Recipient   User       `gorm:"foreignKey:RecipientID;constraint:OnDelete:CASCADE" json:"recipient,omitempty"`
	Subject     *string    `gorm:"size:140" json:"subject,omitempty"`
	Body        string     `gorm:"type:text;not null" json:"body"`
	Status      string     `gorm:"size:20;not null;default:pending" json:"status"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

func (r *MessageRequest) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID, err = uuid.NewV7()
	}
	return
}
