package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vesselapp/vessel/internal/model"
	"github.com/vesselapp/vessel/internal/repository"
	"github.com/vesselapp/vessel/pkg/apperror"
)

func newEngagementSvc(t *testing.T, env *serviceEnv) (EngagementService, repository.VideoRepository) {
	t.Helper()
	engagementRepo := repository.NewEngagementRepository(env.db)
	videoRepo := repository.NewVideoRepository(env.db)
	return NewEngagementService(engagementRepo, videoRepo, nil, nil, nil), videoRepo
}

func createVideo(t *testing.T, videoRepo repository.VideoRepository, author *model.User) *model.Video {
	t.Helper()
	video := &model.Video{
		UserID:   author.ID,
		Caption:  "a video",
		VideoURL: "https://cdn.example.com/v.mp4",
		Duration: 30,
	}
	require.NoError(t, videoRepo.Create(context.Background(), video))
	return video
}

func TestToggleLike(t *testing.T) {
	env := newServiceEnv(t)
	svc, videoRepo := newEngagementSvc(t, env)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	video := createVideo(t, videoRepo, alice)

	liked, err := svc.ToggleLike(ctx, bob.ID, video.ID)
	require.NoError(t, err)
	assert.True(t, liked.Liked)
	assert.EqualValues(t, 1, liked.LikeCount)

	// Second toggle removes the like
	unliked, err := svc.ToggleLike(ctx, bob.ID, video.ID)
	require.NoError(t, err)
	assert.False(t, unliked.Liked)
	assert.EqualValues(t, 0, unliked.LikeCount)
}

func TestAddAndListComments(t *testing.T) {
	env := newServiceEnv(t)
	svc, videoRepo := newEngagementSvc(t, env)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	video := createVideo(t, videoRepo, alice)

	comment, err := svc.AddComment(ctx, bob.ID, video.ID, "nice one")
	require.NoError(t, err)
	assert.Equal(t, "nice one", comment.Body)
	assert.Equal(t, "bob", comment.Author.Handle)

	list, err := svc.ListComments(ctx, video.ID, 1, 20)
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.EqualValues(t, 1, list.Meta.TotalItems)
}

func TestDeleteCommentPermissions(t *testing.T) {
	env := newServiceEnv(t)
	svc, videoRepo := newEngagementSvc(t, env)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	mallory := env.createUser(t, "mallory")
	video := createVideo(t, videoRepo, alice)

	comment, err := svc.AddComment(ctx, bob.ID, video.ID, "hi")
	require.NoError(t, err)

	// A bystander cannot delete it
	err = svc.DeleteComment(ctx, mallory.ID, comment.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	// The video author can
	require.NoError(t, svc.DeleteComment(ctx, alice.ID, comment.ID))

	list, err := svc.ListComments(ctx, video.ID, 1, 20)
	require.NoError(t, err)
	assert.Empty(t, list.Data)
}

func TestEngagementOnMissingVideo(t *testing.T) {
	env := newServiceEnv(t)
	svc, _ := newEngagementSvc(t, env)
	ctx := context.Background()

	bob := env.createUser(t, "bob")

	_, err := svc.ToggleLike(ctx, bob.ID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.AddComment(ctx, bob.ID, uuid.New(), "hello?")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
