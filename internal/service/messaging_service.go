package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/vesselapp/vessel/internal/dto"
	"github.com/vesselapp/vessel/internal/model"
	"github.com/vesselapp/vessel/internal/moderation"
	"github.com/vesselapp/vessel/internal/repository"
	"github.com/vesselapp/vessel/pkg/apperror"
	commonDto "github.com/vesselapp/vessel/pkg/dto"
	"gorm.io/gorm"
)

var (
	ErrNoValidRecipients  = fmt.Errorf("%w: no valid recipients", apperror.ErrBadRequest)
	ErrRequestResolved    = fmt.Errorf("%w: message request already resolved", apperror.ErrConflict)
	ErrNotThreadMember    = fmt.Errorf("%w: thread", apperror.ErrNotFound)
	ErrNotRequestReceiver = fmt.Errorf("%w: only the recipient can resolve a message request", apperror.ErrForbidden)
)

// unreadEpoch is the read pointer for participants who have never read a
// thread: everything counts as unread.
var unreadEpoch = time.Unix(0, 0).UTC()

type MessagingService interface {
	// Send runs the reconciliation for a new outbound message: append to the
	// thread with the exact participant set, park non-mutual recipients
	// behind message requests, or open a fresh thread.
	Send(ctx context.Context, senderID uuid.UUID, input dto.SendMessageRequest) (*dto.SendMessageResult, error)
	ListThreads(ctx context.Context, userID uuid.UUID) ([]dto.ThreadSummary, error)
	GetThread(ctx context.Context, userID, threadID uuid.UUID) (*dto.ThreadSummary, error)
	// ListMessages returns the thread history and marks it read for the caller.
	ListMessages(ctx context.Context, userID, threadID uuid.UUID) ([]dto.MessageResponse, error)
	PostMessage(ctx context.Context, userID, threadID uuid.UUID, body string) (*dto.MessageResponse, error)
	LeaveThread(ctx context.Context, userID, threadID uuid.UUID) error
	ListRequests(ctx context.Context, userID uuid.UUID) ([]dto.MessageRequestResponse, error)
	AcceptRequest(ctx context.Context, userID, requestID uuid.UUID) (*dto.ThreadSummary, error)
	DeclineRequest(ctx context.Context, userID, requestID uuid.UUID) error
}

type messagingService struct {
	repo      repository.MessagingRepository
	userRepo  repository.UserRepository
	followSvc FollowService
	notifSvc  NotificationService
	filter    *moderation.Filter
	limiter   *RateLimiter
	cooldown  time.Duration
}

func NewMessagingService(
	repo repository.MessagingRepository,
	userRepo repository.UserRepository,
	followSvc FollowService,
	notifSvc NotificationService,
	filter *moderation.Filter,
	limiter *RateLimiter,
) MessagingService {
	cooldown := 2 * time.Second
	if v := os.Getenv("RATE_LIMIT_MESSAGE"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cooldown = parsed
		}
	}

	return &messagingService{
		repo:      repo,
		userRepo:  userRepo,
		followSvc: followSvc,
		notifSvc:  notifSvc,
		filter:    filter,
		limiter:   limiter,
		cooldown:  cooldown,
	}
}

func (s *messagingService) Send(ctx context.Context, senderID uuid.UUID, input dto.SendMessageRequest) (*dto.SendMessageResult, error) {
	// Moderation runs before any write so a rejection leaves no trace
	if input.Subject != nil && *input.Subject != "" {
		cleaned, err := s.moderate("subject", *input.Subject)
		if err != nil {
			return nil, err
		}
		input.Subject = &cleaned
	}
	body, err := s.moderate("message", input.Message)
	if err != nil {
		return nil, err
	}

	allowed, err := s.limiter.Allow(ctx, senderID, "send_message", s.cooldown)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, s.limiter.Exceeded(ctx, senderID, "send_message")
	}

	recipients, err := s.resolveRecipients(ctx, senderID, input.Handles)
	if err != nil {
		return nil, err
	}

	participantIDs := make([]uuid.UUID, 0, len(recipients)+1)
	participantIDs = append(participantIDs, senderID)
	for _, r := range recipients {
		participantIDs = append(participantIDs, r.ID)
	}

	// Case A: a thread with exactly this participant set already exists
	existing, err := s.repo.FindThreadByExactParticipants(ctx, participantIDs)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		msg := &model.Message{ThreadID: existing.ID, SenderID: senderID, Body: body, CreatedAt: time.Now()}
		if err := s.repo.AppendMessage(ctx, msg); err != nil {
			return nil, err
		}
		summary, err := s.buildSummary(ctx, existing.ID, senderID)
		if err != nil {
			return nil, err
		}
		return &dto.SendMessageResult{Thread: summary, Appended: true}, nil
	}

	// Case B: recipients who are not mutual follows get a message request
	// instead of a live thread. Per-recipient failures are swallowed so one
	// bad recipient cannot block the rest.
	var requests []dto.MessageRequestResponse
	var mutuals []*model.User
	for _, recipient := range recipients {
		mutual, err := s.followSvc.IsMutual(ctx, senderID, recipient.ID)
		if err != nil {
			log.Printf("skipping recipient %s: mutual check failed: %v", recipient.Handle, err)
			continue
		}
		if mutual {
			mutuals = append(mutuals, recipient)
			continue
		}

		req := &model.MessageRequest{
			SenderID:    senderID,
			RecipientID: recipient.ID,
			Subject:     input.Subject,
			Body:        body,
		}
		if err := s.repo.CreateRequest(ctx, req); err != nil {
			log.Printf("skipping recipient %s: request create failed: %v", recipient.Handle, err)
			continue
		}

		created, err := s.repo.FindRequestByID(ctx, req.ID)
		if err != nil {
			log.Printf("failed to reload message request %s: %v", req.ID, err)
			continue
		}
		requests = append(requests, dto.ToMessageRequestResponse(created))

		s.notifyRequest(ctx, recipient.ID, senderID)
	}

	if len(requests) > 0 {
		return &dto.SendMessageResult{Requests: requests}, nil
	}

	if len(mutuals) == 0 {
		return nil, ErrNoValidRecipients
	}

	// Case C: everyone is a mutual follow, open a fresh thread
	now := time.Now()
	thread := &model.Thread{Subject: input.Subject}
	participants := []*model.ThreadParticipant{
		{UserID: senderID, LastReadAt: now},
	}
	for _, m := range mutuals {
		participants = append(participants, &model.ThreadParticipant{UserID: m.ID, LastReadAt: unreadEpoch})
	}
	first := &model.Message{SenderID: senderID, Body: body, CreatedAt: now}

	if err := s.repo.CreateThread(ctx, thread, participants, first); err != nil {
		return nil, err
	}

	summary, err := s.buildSummary(ctx, thread.ID, senderID)
	if err != nil {
		return nil, err
	}
	return &dto.SendMessageResult{Thread: summary}, nil
}

func (s *messagingService) ListThreads(ctx context.Context, userID uuid.UUID) ([]dto.ThreadSummary, error) {
	threads, err := s.repo.ListThreadsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]dto.ThreadSummary, 0, len(threads))
	for _, thread := range threads {
		summary, err := s.summarize(ctx, thread, userID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}

func (s *messagingService) GetThread(ctx context.Context, userID, threadID uuid.UUID) (*dto.ThreadSummary, error) {
	if _, err := s.participant(ctx, threadID, userID); err != nil {
		return nil, err
	}
	return s.buildSummary(ctx, threadID, userID)
}

func (s *messagingService) ListMessages(ctx context.Context, userID, threadID uuid.UUID) ([]dto.MessageResponse, error) {
	if _, err := s.participant(ctx, threadID, userID); err != nil {
		return nil, err
	}

	messages, err := s.repo.ListMessages(ctx, threadID)
	if err != nil {
		return nil, err
	}

	// Read receipts are "read on list"
	if err := s.repo.MarkRead(ctx, threadID, userID, time.Now()); err != nil {
		return nil, err
	}

	responses := make([]dto.MessageResponse, 0, len(messages))
	for _, m := range messages {
		responses = append(responses, dto.ToMessageResponse(m))
	}
	return responses, nil
}

func (s *messagingService) PostMessage(ctx context.Context, userID, threadID uuid.UUID, body string) (*dto.MessageResponse, error) {
	if _, err := s.participant(ctx, threadID, userID); err != nil {
		return nil, err
	}

	body, err := s.moderate("body", body)
	if err != nil {
		return nil, err
	}

	msg := &model.Message{ThreadID: threadID, SenderID: userID, Body: body, CreatedAt: time.Now()}
	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}

	sender, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	msg.Sender = *sender

	resp := dto.ToMessageResponse(msg)
	return &resp, nil
}

func (s *messagingService) LeaveThread(ctx context.Context, userID, threadID uuid.UUID) error {
	if _, err := s.participant(ctx, threadID, userID); err != nil {
		return err
	}
	return s.repo.RemoveParticipant(ctx, threadID, userID)
}

func (s *messagingService) ListRequests(ctx context.Context, userID uuid.UUID) ([]dto.MessageRequestResponse, error) {
	requests, err := s.repo.ListPendingRequests(ctx, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.MessageRequestResponse, 0, len(requests))
	for _, r := range requests {
		responses = append(responses, dto.ToMessageRequestResponse(r))
	}
	return responses, nil
}

func (s *messagingService) AcceptRequest(ctx context.Context, userID, requestID uuid.UUID) (*dto.ThreadSummary, error) {
	req, err := s.request(ctx, requestID, userID)
	if err != nil {
		return nil, err
	}

	ok, err := s.repo.ResolveRequest(ctx, requestID, model.RequestStatusAccepted, time.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRequestResolved
	}

	// The accepted request becomes a thread between the two original
	// parties, seeded with the original body.
	now := time.Now()
	thread := &model.Thread{Subject: req.Subject}
	participants := []*model.ThreadParticipant{
		{UserID: req.SenderID, LastReadAt: now},
		{UserID: req.RecipientID, LastReadAt: unreadEpoch},
	}
	first := &model.Message{SenderID: req.SenderID, Body: req.Body, CreatedAt: now}

	if err := s.repo.CreateThread(ctx, thread, participants, first); err != nil {
		return nil, err
	}

	return s.buildSummary(ctx, thread.ID, userID)
}

func (s *messagingService) DeclineRequest(ctx context.Context, userID, requestID uuid.UUID) error {
	if _, err := s.request(ctx, requestID, userID); err != nil {
		return err
	}

	ok, err := s.repo.ResolveRequest(ctx, requestID, model.RequestStatusDeclined, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrRequestResolved
	}
	return nil
}

// resolveRecipients maps handles to users, dropping unknown handles,
// duplicates and the sender itself.
func (s *messagingService) resolveRecipients(ctx context.Context, senderID uuid.UUID, handles []string) ([]*model.User, error) {
	users, err := s.userRepo.FindByHandles(ctx, handles)
	if err != nil {
		return nil, err
	}

	seen := map[uuid.UUID]bool{senderID: true}
	recipients := make([]*model.User, 0, len(users))
	for _, u := range users {
		if seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		recipients = append(recipients, u)
	}

	if len(recipients) == 0 {
		return nil, ErrNoValidRecipients
	}
	return recipients, nil
}

func (s *messagingService) moderate(field, text string) (string, error) {
	if s.filter != nil {
		if err := s.filter.Check(field, text); err != nil {
			return "", err
		}
		text = s.filter.Sanitize(text)
	}
	if text == "" {
		return "", fmt.Errorf("%w: %s is empty", apperror.ErrBadRequest, field)
	}
	return text, nil
}

func (s *messagingService) participant(ctx context.Context, threadID, userID uuid.UUID) (*model.ThreadParticipant, error) {
	participant, err := s.repo.GetParticipant(ctx, threadID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotThreadMember
		}
		return nil, err
	}
	return participant, nil
}

func (s *messagingService) request(ctx context.Context, requestID, userID uuid.UUID) (*model.MessageRequest, error) {
	req, err := s.repo.FindRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: message request", apperror.ErrNotFound)
		}
		return nil, err
	}
	if req.RecipientID != userID {
		return nil, ErrNotRequestReceiver
	}
	return req, nil
}

func (s *messagingService) buildSummary(ctx context.Context, threadID, viewerID uuid.UUID) (*dto.ThreadSummary, error) {
	thread, err := s.repo.FindThreadByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, thread, viewerID)
}

func (s *messagingService) summarize(ctx context.Context, thread *model.Thread, viewerID uuid.UUID) (*dto.ThreadSummary, error) {
	participants := make([]commonDto.UserSummary, 0, len(thread.Participants))
	lastRead := unreadEpoch
	for i := range thread.Participants {
		p := &thread.Participants[i]
		participants = append(participants, dto.ToUserSummary(&p.User))
		if p.UserID == viewerID {
			lastRead = p.LastReadAt
		}
	}

	last, err := s.repo.LastMessage(ctx, thread.ID)
	if err != nil {
		return nil, err
	}
	var lastMsg *dto.MessageResponse
	if last != nil {
		resp := dto.ToMessageResponse(last)
		lastMsg = &resp
	}

	unread, err := s.repo.CountUnread(ctx, thread.ID, viewerID, lastRead)
	if err != nil {
		return nil, err
	}

	return &dto.ThreadSummary{
		ID:           thread.ID,
		Subject:      thread.Subject,
		Participants: participants,
		LastMessage:  lastMsg,
		UnreadCount:  unread,
		CreatedAt:    thread.CreatedAt,
		UpdatedAt:    thread.UpdatedAt,
	}, nil
}

func (s *messagingService) notifyRequest(ctx context.Context, recipientID, senderID uuid.UUID) {
	if s.notifSvc == nil {
		return
	}
	notif := &model.Notification{
		UserID:  recipientID,
		ActorID: senderID,
		Type:    model.NotificationTypeMessageRequest,
		Message: "sent you a message request",
	}
	if err := s.notifSvc.CreateNotification(ctx, notif); err != nil {
		log.Printf("failed to create message request notification: %v", err)
	}
}
