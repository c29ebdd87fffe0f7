package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/vesselapp/vessel/internal/model"
	commonDto "github.com/vesselapp/vessel/pkg/dto"
)

type SendMessageRequest struct {
	Handles []string `json:"handles" binding:"required,min=1,max=20,dive,required"`
	Message string   `json:"message" binding:"required,min=1,max=2000"`
	Subject *string  `json:"subject" binding:"omitempty,max=140"`
}

type PostMessageRequest struct {
	Body string `json:"body" binding:"required,min=1,max=2000"`
}

type MessageResponse struct {
	ID        uuid.UUID             `json:"id"`
	Seq       int64                 `json:"seq"`
	Body      string                `json:"body"`
	Sender    commonDto.UserSummary `json:"sender"`
	CreatedAt time.Time             `json:"created_at"`
}

type ThreadSummary struct {
	ID           uuid.UUID               `json:"id"`
	Subject      *string                 `json:"subject"`
	Participants []commonDto.UserSummary `json:"participants"`
	LastMessage  *MessageResponse        `json:"last_message"`
	UnreadCount  int64                   `json:"unread_count"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

type MessageRequestResponse struct {
	ID        uuid.UUID             `json:"id"`
	Sender    commonDto.UserSummary `json:"sender"`
	Subject   *string               `json:"subject"`
	Body      string                `json:"body"`
	CreatedAt time.Time             `json:"created_at"`
}

// SendMessageResult carries the outcome of a send: exactly one of Thread or
// Requests is set. Appended distinguishes reuse of an existing thread from
// creation of a fresh one.
type SendMessageResult struct {
	Thread   *ThreadSummary
	Requests []MessageRequestResponse
	Appended bool
}

func ToMessageResponse(m *model.Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		Seq:       m.Seq,
		Body:      m.Body,
		Sender:    ToUserSummary(&m.Sender),
		CreatedAt: m.CreatedAt,
	}
}

func ToMessageRequestResponse(r *model.MessageRequest) MessageRequestResponse {
	return MessageRequestResponse{
		ID:        r.ID,
		Sender:    ToUserSummary(&r.Sender),
		Subject:   r.Subject,
		Body:      r.Body,
		CreatedAt: r.CreatedAt,
	}
}
