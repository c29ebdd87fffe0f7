package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vesselapp/vessel/internal/model"
	"gorm.io/gorm"
)

type MessagingRepository interface {
	// CreateThread inserts the thread, its participant rows and the first
	// message in a single transaction.
	CreateThread(ctx context.Context, thread *model.Thread, participants []*model.ThreadParticipant, first *model.Message) error
	FindThreadByID(ctx context.Context, id uuid.UUID) (*model.Thread, error)
	// FindThreadByExactParticipants returns the thread whose participant set
	// equals ids exactly, or nil when no such thread exists. Supersets and
	// subsets do not match.
	FindThreadByExactParticipants(ctx context.Context, ids []uuid.UUID) (*model.Thread, error)
	ListThreadsForUser(ctx context.Context, userID uuid.UUID) ([]*model.Thread, error)
	GetParticipant(ctx context.Context, threadID, userID uuid.UUID) (*model.ThreadParticipant, error)
	RemoveParticipant(ctx context.Context, threadID, userID uuid.UUID) error
	MarkRead(ctx context.Context, threadID, userID uuid.UUID, at time.Time) error

	// AppendMessage inserts the message, bumps the thread's updated_at and
	// advances the sender's read pointer, transactionally.
	AppendMessage(ctx context.Context, msg *model.Message) error
	ListMessages(ctx context.Context, threadID uuid.UUID) ([]*model.Message, error)
	LastMessage(ctx context.Context, threadID uuid.UUID) (*model.Message, error)
	CountUnread(ctx context.Context, threadID, userID uuid.UUID, since time.Time) (int64, error)

	CreateRequest(ctx context.Context, req *model.MessageRequest) error
	FindRequestByID(ctx context.Context, id uuid.UUID) (*model.MessageRequest, error)
	ListPendingRequests(ctx context.Context, recipientID uuid.UUID) ([]*model.MessageRequest, error)
	// ResolveRequest flips a pending request to status exactly once. Returns
	// false when the request was already resolved (or does not exist).
	ResolveRequest(ctx context.Context, id uuid.UUID, status string, at time.Time) (bool, error)
}

type messagingRepository struct {
	db *gorm.DB
}

func NewMessagingRepository(db *gorm.DB) MessagingRepository {
	return &messagingRepository{db: db}
}

func (r *messagingRepository) CreateThread(ctx context.Context, thread *model.Thread, participants []*model.ThreadParticipant, first *model.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(thread).Error; err != nil {
			return err
		}
		for _, p := range participants {
			p.ThreadID = thread.ID
			if err := tx.Create(p).Error; err != nil {
				return err
			}
		}
		first.ThreadID = thread.ID
		if err := tx.Create(first).Error; err != nil {
			return err
		}
		return tx.Model(&model.Thread{}).
			Where("id = ?", thread.ID).
			Update("updated_at", first.CreatedAt).Error
	})
}

func (r *messagingRepository) FindThreadByID(ctx context.Context, id uuid.UUID) (*model.Thread, error) {
	var thread model.Thread
	if err := r.db.WithContext(ctx).
		Preload("Participants").
		Preload("Participants.User").
		Where("id = ?", id).
		First(&thread).Error; err != nil {
		return nil, err
	}
	return &thread, nil
}

func (r *messagingRepository) FindThreadByExactParticipants(ctx context.Context, ids []uuid.UUID) (*model.Thread, error) {
	var threadIDs []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&model.ThreadParticipant{}).
		Select("thread_id").
		Group("thread_id").
		Having("COUNT(*) = ? AND SUM(CASE WHEN user_id IN ? THEN 0 ELSE 1 END) = 0", len(ids), ids).
		Find(&threadIDs).Error
	if err != nil {
		return nil, err
	}
	if len(threadIDs) == 0 {
		return nil, nil
	}

	// More than one exact match can only come from historical duplicates;
	// prefer the most recently active one.
	var thread model.Thread
	if err := r.db.WithContext(ctx).
		Preload("Participants").
		Preload("Participants.User").
		Where("id IN ?", threadIDs).
		Order("updated_at DESC").
		First(&thread).Error; err != nil {
		return nil, err
	}
	return &thread, nil
}

func (r *messagingRepository) ListThreadsForUser(ctx context.Context, userID uuid.UUID) ([]*model.Thread, error) {
	var threads []*model.Thread
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Preload("Participants.User").
		Joins("JOIN thread_participants tp ON tp.thread_id = threads.id").
		Where("tp.user_id = ?", userID).
		Order("threads.updated_at DESC").
		Find(&threads).Error
	return threads, err
}

func (r *messagingRepository) GetParticipant(ctx context.Context, threadID, userID uuid.UUID) (*model.ThreadParticipant, error) {
	var participant model.ThreadParticipant
	if err := r.db.WithContext(ctx).
		Where("thread_id = ? AND user_id = ?", threadID, userID).
		First(&participant).Error; err != nil {
		return nil, err
	}
	return &participant, nil
}

func (r *messagingRepository) RemoveParticipant(ctx context.Context, threadID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("thread_id = ? AND user_id = ?", threadID, userID).
		Delete(&model.ThreadParticipant{}).Error
}

func (r *messagingRepository) MarkRead(ctx context.Context, threadID, userID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.ThreadParticipant{}).
		Where("thread_id = ? AND user_id = ?", threadID, userID).
		Update("last_read_at", at).Error
}

func (r *messagingRepository) AppendMessage(ctx context.Context, msg *model.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Thread{}).
			Where("id = ?", msg.ThreadID).
			Update("updated_at", msg.CreatedAt).Error; err != nil {
			return err
		}
		// Sender's own message is implicitly read
		return tx.Model(&model.ThreadParticipant{}).
			Where("thread_id = ? AND user_id = ?", msg.ThreadID, msg.SenderID).
			Update("last_read_at", msg.CreatedAt).Error
	})
}

func (r *messagingRepository) ListMessages(ctx context.Context, threadID uuid.UUID) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("thread_id = ?", threadID).
		Order("created_at ASC").
		Order("seq ASC").
		Find(&messages).Error
	return messages, err
}

func (r *messagingRepository) LastMessage(ctx context.Context, threadID uuid.UUID) (*model.Message, error) {
	var msg model.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("thread_id = ?", threadID).
		Order("created_at DESC").
		Order("seq DESC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messagingRepository) CountUnread(ctx context.Context, threadID, userID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("thread_id = ? AND sender_id <> ? AND created_at > ?", threadID, userID, since).
		Count(&count).Error
	return count, err
}

func (r *messagingRepository) CreateRequest(ctx context.Context, req *model.MessageRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *messagingRepository) FindRequestByID(ctx context.Context, id uuid.UUID) (*model.MessageRequest, error) {
	var req model.MessageRequest
	if err := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("Sender.Profile").
		Where("id = ?", id).
		First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *messagingRepository) ListPendingRequests(ctx context.Context, recipientID uuid.UUID) ([]*model.MessageRequest, error) {
	var requests []*model.MessageRequest
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("Sender.Profile").
		Where("recipient_id = ? AND status = ?", recipientID, model.RequestStatusPending).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

func (r *messagingRepository) ResolveRequest(ctx context.Context, id uuid.UUID, status string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.MessageRequest{}).
		Where("id = ? AND status = ?", id, model.RequestStatusPending).
		Updates(map[string]interface{}{
			"status":      status,
			"resolved_at": at,
		})
	return res.RowsAffected > 0, res.Error
}
