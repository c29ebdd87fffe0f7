package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vesselapp/vessel/internal/dto"
	"github.com/vesselapp/vessel/internal/model"
	"github.com/vesselapp/vessel/internal/repository"
	"github.com/vesselapp/vessel/pkg/apperror"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService interface {
	Register(ctx context.Context, input dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, input dto.LoginRequest) (*dto.AuthResponse, error)
	VerifyEmail(ctx context.Context, userID uuid.UUID, code string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, password string) error
}

type authService struct {
	repo     repository.UserRepository
	rdb      *redis.Client
	search   SearchService
	secret   string
	tokenTTL time.Duration
}

func NewAuthService(repo repository.UserRepository, rdb *redis.Client, search SearchService) AuthService {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "change-me"
	}

	ttl := 24 * time.Hour
	if ttlStr := os.Getenv("JWT_TTL"); ttlStr != "" {
		if parsed, err := time.ParseDuration(ttlStr); err == nil {
			ttl = parsed
		}
	}

	return &authService{
		repo:     repo,
		rdb:      rdb,
		search:   search,
		secret:   secret,
		tokenTTL: ttl,
	}
}

func (s *authService) Register(ctx context.Context, input dto.RegisterRequest) (*dto.AuthResponse, error) {
	if _, err := s.repo.FindByEmail(ctx, input.Email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", apperror.ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if _, err := s.repo.FindByHandle(ctx, input.Handle); err == nil {
		return nil, fmt.Errorf("%w: handle already taken", apperror.ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Handle:       input.Handle,
		Email:        input.Email,
		PasswordHash: string(hashed),
		DisplayName:  input.DisplayName,
	}
	profile := &model.Profile{}

	if err := s.repo.Create(ctx, user, profile); err != nil {
		return nil, err
	}
	user.Profile = profile

	if s.search != nil {
		if err := s.search.IndexUser(user); err != nil {
			log.Printf("failed to index user %s: %v", user.ID, err)
		}
	}

	if err := s.issueVerificationCode(ctx, user.ID); err != nil {
		log.Printf("failed to issue verification code for user %s: %v", user.ID, err)
	}

	return s.buildAuthResponse(user)
}

func (s *authService) Login(ctx context.Context, input dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", apperror.ErrUnauthorized)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", apperror.ErrUnauthorized)
	}

	return s.buildAuthResponse(user)
}

func (s *authService) VerifyEmail(ctx context.Context, userID uuid.UUID, code string) error {
	if s.rdb == nil {
		return fmt.Errorf("%w: verification is unavailable", apperror.ErrBadRequest)
	}

	key := verificationKey(userID)
	stored, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil || (err == nil && stored != code) {
		return fmt.Errorf("%w: invalid or expired verification code", apperror.ErrBadRequest)
	}
	if err != nil {
		return err
	}

	if err := s.repo.SetVerified(ctx, userID, time.Now()); err != nil {
		return err
	}

	s.rdb.Del(ctx, key)
	return nil
}

func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Accept silently so callers cannot enumerate accounts
			return nil
		}
		return err
	}
	if s.rdb == nil {
		return nil
	}

	token := uuid.NewString()
	return s.rdb.Set(ctx, resetKey(token), user.ID.String(), time.Hour).Err()
}

func (s *authService) ConfirmPasswordReset(ctx context.Context, token, password string) error {
	if s.rdb == nil {
		return fmt.Errorf("%w: invalid or expired reset token", apperror.ErrBadRequest)
	}

	userIDStr, err := s.rdb.Get(ctx, resetKey(token)).Result()
	if err == redis.Nil {
		return fmt.Errorf("%w: invalid or expired reset token", apperror.ErrBadRequest)
	}
	if err != nil {
		return err
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return fmt.Errorf("%w: invalid or expired reset token", apperror.ErrBadRequest)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := s.repo.SetPassword(ctx, userID, string(hashed)); err != nil {
		return err
	}

	s.rdb.Del(ctx, resetKey(token))
	return nil
}

// issueVerificationCode stores a 6-digit code for later confirmation.
// Delivery is out of band; this service never sends mail itself.
func (s *authService) issueVerificationCode(ctx context.Context, userID uuid.UUID) error {
	if s.rdb == nil {
		return nil
	}

	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return err
	}
	code := fmt.Sprintf("%06d", n.Int64())

	return s.rdb.Set(ctx, verificationKey(userID), code, 24*time.Hour).Err()
}

func (s *authService) buildAuthResponse(user *model.User) (*dto.AuthResponse, error) {
	expiresAt := time.Now().Add(s.tokenTTL)

	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      dto.ToUserResponse(user, true),
	}, nil
}

func verificationKey(userID uuid.UUID) string {
	return fmt.Sprintf("verify:email:%s", userID.String())
}

func resetKey(token string) string {
	return fmt.Sprintf("reset:password:%s", token)
}
