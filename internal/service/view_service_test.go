package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vesselapp/vessel/internal/repository"
)

func TestRecordViewWritesThroughWithoutRedis(t *testing.T) {
	env := newServiceEnv(t)
	videoRepo := repository.NewVideoRepository(env.db)
	svc := NewViewService(videoRepo, nil)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	video := createVideo(t, videoRepo, alice)

	require.NoError(t, svc.RecordView(ctx, video.ID, alice.ID))
	require.NoError(t, svc.RecordView(ctx, video.ID, bob.ID))

	reloaded, err := videoRepo.FindByID(ctx, video.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Views)

	// Flush is a no-op with no buffer
	assert.NoError(t, svc.Flush(ctx))
}
