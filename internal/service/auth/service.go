package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medifast/claims-api/internal/model"
	"github.com/medifast/claims-api/internal/repository"
	"github.com/medifast/claims-api/pkg/auth"
	"github.com/medifast/claims-api/pkg/logger"
	"github.com/medifast/claims-api/pkg/security"
)

const (
	maxLoginAttempts = 5
	lockoutDuration  = 30 * time.Minute
)

// Service handles registration, login and token refresh. Repeated login
// failures lock the account for lockoutDuration.
type Service struct {
	users  repository.UserRepository
	tokens auth.JWTService
	hasher security.PasswordHasher
	logger *logger.Logger
	now    func() time.Time
}

func NewService(users repository.UserRepository, tokens auth.JWTService, hasher security.PasswordHasher, l *logger.Logger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		logger: l,
		now:    time.Now,
	}
}

func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, *model.TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, nil, model.ErrEmailTaken
	} else if !errors.Is(err, model.ErrUserNotFound) {
		return nil, nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         req.Role,
		IsActive:     true,
	}
	if req.HospitalName != "" {
		user.HospitalName = &req.HospitalName
	}
	if req.InsurerName != "" {
		user.InsurerName = &req.InsurerName
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	pair, err := s.tokens.GenerateTokenPair(user)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	return user, pair, nil
}

func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.User, *model.TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, nil, model.ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to load user: %w", err)
	}

	now := s.now()
	if user.Locked(now) {
		return nil, nil, model.ErrAccountLocked
	}
	if !user.IsActive {
		return nil, nil, model.ErrAccountDisabled
	}

	// An expired lockout window starts the failure count over.
	if user.LockedUntil != nil {
		user.LockedUntil = nil
		user.FailedLoginAttempts = 0
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		user.FailedLoginAttempts++
		if user.FailedLoginAttempts >= maxLoginAttempts {
			lockedUntil := now.Add(lockoutDuration)
			user.LockedUntil = &lockedUntil
			s.logger.Warn("account locked after repeated failures",
				"user_id", user.ID, "locked_until", lockedUntil)
		}
		if err := s.users.Update(ctx, user); err != nil {
			return nil, nil, fmt.Errorf("failed to record login attempt: %w", err)
		}
		return nil, nil, model.ErrInvalidCredentials
	}

	user.FailedLoginAttempts = 0
	user.LastLoginAt = &now
	if err := s.users.Update(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to update login timestamp: %w", err)
	}

	pair, err := s.tokens.GenerateTokenPair(user)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	s.logger.Info("user logged in", "user_id", user.ID, "role", user.Role)
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a new pair. The account is
// re-checked so disabling or locking it also cuts off refresh.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	principal, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	user, err := s.users.Get(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if user.Locked(s.now()) {
		return nil, model.ErrAccountLocked
	}
	if !user.IsActive {
		return nil, model.ErrAccountDisabled
	}

	pair, err := s.tokens.GenerateTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}
	return pair, nil
}

// Profile returns the account behind an authenticated principal.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}
