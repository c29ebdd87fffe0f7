package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vesselapp/vessel/pkg/apperror"
)

func TestFollowAndUnfollow(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	require.NoError(t, env.followSvc.Follow(ctx, alice.ID, "bob"))

	exists, err := env.followRepo.Exists(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	// Following again is a no-op, not an error
	require.NoError(t, env.followSvc.Follow(ctx, alice.ID, "bob"))

	require.NoError(t, env.followSvc.Unfollow(ctx, alice.ID, "bob"))
	exists, err = env.followRepo.Exists(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFollowSelfRejected(t *testing.T) {
	env := newServiceEnv(t)
	alice := env.createUser(t, "alice")

	err := env.followSvc.Follow(context.Background(), alice.ID, "alice")
	assert.ErrorIs(t, err, apperror.ErrBadRequest)
}

func TestFollowUnknownHandle(t *testing.T) {
	env := newServiceEnv(t)
	alice := env.createUser(t, "alice")

	err := env.followSvc.Follow(context.Background(), alice.ID, "ghost")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestIsMutualRequiresBothDirections(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	mutual, err := env.followSvc.IsMutual(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, mutual)

	require.NoError(t, env.followSvc.Follow(ctx, alice.ID, "bob"))
	mutual, err = env.followSvc.IsMutual(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, mutual)

	require.NoError(t, env.followSvc.Follow(ctx, bob.ID, "alice"))
	mutual, err = env.followSvc.IsMutual(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, mutual)
}

func TestFollowerAndFollowingLists(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")

	require.NoError(t, env.followSvc.Follow(ctx, bob.ID, "alice"))
	require.NoError(t, env.followSvc.Follow(ctx, carol.ID, "alice"))
	require.NoError(t, env.followSvc.Follow(ctx, alice.ID, "bob"))

	followers, err := env.followSvc.Followers(ctx, "alice", 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, followers.Meta.TotalItems)

	following, err := env.followSvc.Following(ctx, "alice", 1, 20)
	require.NoError(t, err)
	require.Len(t, following.Data, 1)
	assert.Equal(t, "bob", following.Data[0].Handle)
}

func TestFollowingIDsWithoutCache(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")

	require.NoError(t, env.followSvc.Follow(ctx, alice.ID, "bob"))
	require.NoError(t, env.followSvc.Follow(ctx, alice.ID, "carol"))

	ids, err := env.followSvc.FollowingIDs(ctx, alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{bob.ID, carol.ID}, ids)
}
