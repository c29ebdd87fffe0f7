package service

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vesselapp/vessel/internal/dto"
	"github.com/vesselapp/vessel/pkg/apperror"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newServiceEnv(t)
	svc := NewAuthService(env.userRepo, nil, nil)
	ctx := context.Background()

	registered, err := svc.Register(ctx, dto.RegisterRequest{
		Handle:      "alice",
		Email:       "alice@example.com",
		Password:    "correct-horse",
		DisplayName: "Alice",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, "alice", registered.User.Handle)
	assert.False(t, registered.User.Verified)

	loggedIn, err := svc.Login(ctx, dto.LoginRequest{
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)

	// The token subject is the user id
	claims := &jwt.RegisteredClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(loggedIn.Token, claims)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID.String(), claims.Subject)
}

func TestRegisterDuplicate(t *testing.T) {
	env := newServiceEnv(t)
	svc := NewAuthService(env.userRepo, nil, nil)
	ctx := context.Background()

	input := dto.RegisterRequest{
		Handle:      "alice",
		Email:       "alice@example.com",
		Password:    "correct-horse",
		DisplayName: "Alice",
	}
	_, err := svc.Register(ctx, input)
	require.NoError(t, err)

	_, err = svc.Register(ctx, input)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	// Same handle under a different email is still a conflict
	input.Email = "alice2@example.com"
	_, err = svc.Register(ctx, input)
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newServiceEnv(t)
	svc := NewAuthService(env.userRepo, nil, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, dto.RegisterRequest{
		Handle:      "alice",
		Email:       "alice@example.com",
		Password:    "correct-horse",
		DisplayName: "Alice",
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "alice@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestPasswordResetSilentOnUnknownEmail(t *testing.T) {
	env := newServiceEnv(t)
	svc := NewAuthService(env.userRepo, nil, nil)

	assert.NoError(t, svc.RequestPasswordReset(context.Background(), "nobody@example.com"))
}
