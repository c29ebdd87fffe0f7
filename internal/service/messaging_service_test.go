package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vesselapp/vessel/internal/dto"
	"github.com/vesselapp/vessel/internal/model"
	"github.com/vesselapp/vessel/internal/moderation"
	"github.com/vesselapp/vessel/internal/repository"
	"github.com/vesselapp/vessel/pkg/apperror"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type serviceEnv struct {
	db         *gorm.DB
	svc        MessagingService
	followSvc  FollowService
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()

	// A uniquely named shared-cache db keeps every connection in the pool on
	// the same in-memory database while isolating tests from each other.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Profile{},
		&model.Follow{},
		&model.Video{},
		&model.VideoLike{},
		&model.Comment{},
		&model.Thread{},
		&model.ThreadParticipant{},
		&model.Message{},
		&model.MessageRequest{},
		&model.Notification{},
	))

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	messagingRepo := repository.NewMessagingRepository(db)

	followSvc := NewFollowService(followRepo, userRepo, nil, nil)
	svc := NewMessagingService(messagingRepo, userRepo, followSvc, nil, nil, nil)

	return &serviceEnv{
		db:         db,
		svc:        svc,
		followSvc:  followSvc,
		userRepo:   userRepo,
		followRepo: followRepo,
	}
}

func (e *serviceEnv) createUser(t *testing.T, handle string) *model.User {
	t.Helper()
	user := &model.User{
		Handle:       handle,
		Email:        handle + "@example.com",
		PasswordHash: "x",
		DisplayName:  handle,
	}
	require.NoError(t, e.userRepo.Create(context.Background(), user, &model.Profile{}))
	return user
}

func (e *serviceEnv) makeMutual(t *testing.T, a, b *model.User) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.followRepo.Create(ctx, &model.Follow{FollowerID: a.ID, FolloweeID: b.ID}))
	require.NoError(t, e.followRepo.Create(ctx, &model.Follow{FollowerID: b.ID, FolloweeID: a.ID}))
}

func TestSendOpensFreshThreadBetweenMutuals(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	env.makeMutual(t, alice, bob)

	result, err := env.svc.Send(ctx, alice.ID, dto.SendMessageRequest{
		Handles: []string{"bob"},
		Message: "hey bob",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Thread)
	assert.False(t, result.Appended)
	assert.Empty(t, result.Requests)

	assert.Len(t, result.Thread.Participants, 2)
	require.NotNil(t, result.Thread.LastMessage)
	assert.Equal(t, "hey bob", result.Thread.LastMessage.Body)
	assert.EqualValues(t, 0, result.Thread.UnreadCount)
}

func TestSendAppendsToExistingThread(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	env.makeMutual(t, alice, bob)

	first, err := env.svc.Send(ctx, alice.ID, dto.SendMessageRequest{
		Handles: []string{"bob"},
		Message: "first",
	})
	require.NoError(t, err)
	require.NotNil(t, first.Thread)

	// Same participant set from either side lands in the same thread
	second, err := env.svc.Send(ctx, bob.ID, dto.SendMessageRequest{
		Handles: []string{"alice"},
		Message: "second",
	})
	require.NoError(t, err)
	require.NotNil(t, second.Thread)
	assert.True(t, second.Appended)
	assert.Equal(t, first.Thread.ID, second.Thread.ID)

	messages, err := env.svc.ListMessages(ctx, alice.ID, first.Thread.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Body)
	assert.Equal(t, "second", messages[1].Body)
	assert.Less(t, messages[0].Seq, messages[1].Seq)
}

func TestSendDistinctParticipantSetsGetDistinctThreads(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")
	env.makeMutual(t, alice, bob)
	env.makeMutual(t, alice, carol)
	env.makeMutual(t, bob, carol)

	pair, err := env.svc.Send(ctx, alice.ID, dto.SendMessageRequest{
		Handles: []string{"bob"},
		Message: "pair",
	})
	require.NoError(t, err)

	// {alice,bob,carol} is not {alice,bob}
	triple, err := env.svc.Send(ctx, alice.ID, dto.SendMessageRequest{
		Handles: []string{"bob", "carol"},
		Message: "triple",
	})
	require.NoError(t, err)
	assert.False(t, triple.Appended)
	assert.NotEqual(t, pair.Thread.ID, triple.Thread.ID)
	assert.Len(t, triple.Thread.Participants, 3)
}

func TestSendNonMutualCreatesMessageRequest(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	env.createUser(t, "bob")

	result, err := env.svc.Send(ctx, alice.ID, dto.SendMessageRequest{
		Handles: []string{"bob"},
		Message: "hello stranger",
	})
	require.NoError(t, err)
	assert.Nil(t, result.Thread)
	require.Len(t, result.Requests, 1)
	assert.Equal(t, "hello stranger", result.Requests[0].Body)
	assert.Equal(t, "alice", result.Requests[0].Sender.Handle)

	// No thread came into existence
	threads, err := env.svc.ListThreads(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, threads)
}

func TestSendUnknownHandlesAreDropped(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	env.makeMutual(t, alice, bob)

	result, err := env.svc.Send(ctx, alice.ID, dto.SendMessageRequest{
		Handles: []string{"bob", "nosuchuser"},
		Message: "hi",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Thread)
	assert.Len(t, result.Thread.Participants, 2)
}

func TestSendNoValidRecipients(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")

	// Only unknown handles
	_, err := env.svc.Send(ctx, alice.ID, dto.SendMessageRequest{
		Handles: []string{"ghost"},
		Message: "hi",
	})
	assert.ErrorIs(t, err, apperror.ErrBadRequest)

	// Addressing only yourself is not a conversation
	_, err = env.svc.Send(ctx, alice.ID, dto.SendMessageRequest{
		Handles: []string{"alice"},
		Message: "hi me",
	})
	assert.ErrorIs(t, err, apperror.ErrBadRequest)
}

func TestAcceptRequestCreatesThreadWithOriginalMessage(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	subject := "about your video"
	result, err := env.svc.Send(ctx, alice.ID, dto.SendMessageRequest{
		Handles: []string{"bob"},
		Message: "loved it",
		Subject: &subject,
	})
	require.NoError(t, err)
	require.Len(t, result.Requests, 1)
	requestID := result.Requests[0].ID

	thread, err := env.svc.AcceptRequest(ctx, bob.ID, requestID)
	require.NoError(t, err)
	require.NotNil(t, thread)
	require.NotNil(t, thread.Subject)
	assert.Equal(t, subject, *thread.Subject)
	require.NotNil(t, thread.LastMessage)
	assert.Equal(t, "loved it", thread.LastMessage.Body)
	assert.Equal(t, "alice", thread.LastMessage.Sender.Handle)

	// The pending list is now empty
	pending, err := env.svc.ListRequests(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestResolveRequestIsOneShot(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	result, err := env.svc.Send(ctx, alice.ID, dto.SendMessageRequest{
		Handles: []string{"bob"},
		Message: "hi",
	})
	require.NoError(t, err)
	requestID := result.Requests[0].ID

	_, err = env.svc.AcceptRequest(ctx, bob.ID, requestID)
	require.NoError(t, err)

	_, err = env.svc.AcceptRequest(ctx, bob.ID, requestID)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	err = env.svc.DeclineRequest(ctx, bob.ID, requestID)
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestOnlyRecipientCanResolveRequest(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	env.createUser(t, "bob")
	mallory := env.createUser(t, "mallory")

	result, err := env.svc.Send(ctx, alice.ID, dto.SendMessageRequest{
		Handles: []string{"bob"},
		Message: "hi",
	})
	require.NoError(t, err)
	requestID := result.Requests[0].ID

	_, err = env.svc.AcceptRequest(ctx, mallory.ID, requestID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	err = env.svc.DeclineRequest(ctx, alice.ID, requestID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestDeclineRequestLeavesNoThread(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	result, err := env.svc.Send(ctx, alice.ID, dto.SendMessageRequest{
		Handles: []string{"bob"},
		Message: "hi",
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.DeclineRequest(ctx, bob.ID, result.Requests[0].ID))

	threads, err := env.svc.ListThreads(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, threads)
}

func TestUnreadCountAndReadOnList(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	env.makeMutual(t, alice, bob)

	result, err := env.svc.Send(ctx, alice.ID, dto.SendMessageRequest{
		Handles: []string{"bob"},
		Message: "one",
	})
	require.NoError(t, err)
	threadID := result.Thread.ID

	_, err = env.svc.PostMessage(ctx, alice.ID, threadID, "two")
	require.NoError(t, err)

	// Bob has never read the thread
	bobView, err := env.svc.GetThread(ctx, bob.ID, threadID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, bobView.UnreadCount)

	// Alice sent everything, nothing is unread for her
	aliceView, err := env.svc.GetThread(ctx, alice.ID, threadID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, aliceView.UnreadCount)

	// Listing the messages advances bob's read pointer
	_, err = env.svc.ListMessages(ctx, bob.ID, threadID)
	require.NoError(t, err)

	bobView, err = env.svc.GetThread(ctx, bob.ID, threadID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, bobView.UnreadCount)
}

func TestListThreadsOrderedByActivity(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")
	env.makeMutual(t, alice, bob)
	env.makeMutual(t, alice, carol)

	withBob, err := env.svc.Send(ctx, alice.ID, dto.SendMessageRequest{
		Handles: []string{"bob"},
		Message: "to bob",
	})
	require.NoError(t, err)

	withCarol, err := env.svc.Send(ctx, alice.ID, dto.SendMessageRequest{
		Handles: []string{"carol"},
		Message: "to carol",
	})
	require.NoError(t, err)

	// New activity moves the bob thread back to the top
	_, err = env.svc.PostMessage(ctx, alice.ID, withBob.Thread.ID, "bump")
	require.NoError(t, err)

	threads, err := env.svc.ListThreads(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, withBob.Thread.ID, threads[0].ID)
	assert.Equal(t, withCarol.Thread.ID, threads[1].ID)
}

func TestThreadAccessIsParticipantOnly(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	mallory := env.createUser(t, "mallory")
	env.makeMutual(t, alice, bob)

	result, err := env.svc.Send(ctx, alice.ID, dto.SendMessageRequest{
		Handles: []string{"bob"},
		Message: "private",
	})
	require.NoError(t, err)
	threadID := result.Thread.ID

	_, err = env.svc.GetThread(ctx, mallory.ID, threadID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = env.svc.ListMessages(ctx, mallory.ID, threadID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = env.svc.PostMessage(ctx, mallory.ID, threadID, "let me in")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestLeaveThread(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	env.makeMutual(t, alice, bob)

	result, err := env.svc.Send(ctx, alice.ID, dto.SendMessageRequest{
		Handles: []string{"bob"},
		Message: "hi",
	})
	require.NoError(t, err)
	threadID := result.Thread.ID

	require.NoError(t, env.svc.LeaveThread(ctx, bob.ID, threadID))

	_, err = env.svc.PostMessage(ctx, bob.ID, threadID, "wait")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	threads, err := env.svc.ListThreads(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, threads)

	// Alice still sees the thread
	threads, err = env.svc.ListThreads(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, threads, 1)
}

func TestMessageOrderingIsStable(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	env.makeMutual(t, alice, bob)

	result, err := env.svc.Send(ctx, alice.ID, dto.SendMessageRequest{
		Handles: []string{"bob"},
		Message: "msg 0",
	})
	require.NoError(t, err)
	threadID := result.Thread.ID

	for i := 1; i <= 5; i++ {
		_, err := env.svc.PostMessage(ctx, alice.ID, threadID, fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
	}

	messages, err := env.svc.ListMessages(ctx, bob.ID, threadID)
	require.NoError(t, err)
	require.Len(t, messages, 6)
	for i, m := range messages {
		assert.Equal(t, fmt.Sprintf("msg %d", i), m.Body)
		if i > 0 {
			assert.Less(t, messages[i-1].Seq, m.Seq)
		}
	}
}

func TestAcceptUnknownRequest(t *testing.T) {
	env := newServiceEnv(t)
	bob := env.createUser(t, "bob")

	_, err := env.svc.AcceptRequest(context.Background(), bob.ID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestSendModerationRejectsBeforeAnyWrite(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	filter := moderation.NewFilter([]string{"spam"})
	svc := NewMessagingService(
		repository.NewMessagingRepository(env.db),
		env.userRepo, env.followSvc, nil, filter, nil,
	)

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	env.makeMutual(t, alice, bob)

	subject := "free sp4m inside"
	_, err := svc.Send(ctx, alice.ID, dto.SendMessageRequest{
		Handles: []string{"bob"},
		Message: "hello",
		Subject: &subject,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrBadRequest)
	assert.Contains(t, err.Error(), "subject")

	_, err = svc.Send(ctx, alice.ID, dto.SendMessageRequest{
		Handles: []string{"bob"},
		Message: "buy my spam",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message")

	// Nothing was persisted
	threads, err := svc.ListThreads(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, threads)
}
