package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/medifast/claims-api/internal/model"
)

// Token types embedded in claims so a refresh token can never be used
// as an access token.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongTokenType = errors.New("wrong token type")
)

// Claims are the JWT claims carried by access and refresh tokens.
type Claims struct {
	jwt.RegisteredClaims
	UserID    uuid.UUID  `json:"user_id"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	TokenType string     `json:"token_type"`
}

// Config holds signing parameters.
type Config struct {
	Secret        string
	Issuer        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// JWTService issues and verifies HS256 token pairs.
type JWTService interface {
	GenerateTokenPair(user *model.User) (*model.TokenResponse, error)
	ValidateAccessToken(token string) (*model.Principal, error)
	ValidateRefreshToken(token string) (*model.Principal, error)
}

type jwtService struct {
	cfg Config
	now func() time.Time
}

// NewJWTService creates a token manager. Zero expiries default to
// 30 minutes for access tokens and 7 days for refresh tokens.
func NewJWTService(cfg Config) JWTService {
	if cfg.AccessExpiry <= 0 {
		cfg.AccessExpiry = 30 * time.Minute
	}
	if cfg.RefreshExpiry <= 0 {
		cfg.RefreshExpiry = 7 * 24 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "claims-api"
	}
	return &jwtService{cfg: cfg, now: time.Now}
}

func (s *jwtService) GenerateTokenPair(user *model.User) (*model.TokenResponse, error) {
	access, err := s.sign(user, TokenTypeAccess, s.cfg.AccessExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := s.sign(user, TokenTypeRefresh, s.cfg.RefreshExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return &model.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.cfg.AccessExpiry.Seconds()),
	}, nil
}

func (s *jwtService) ValidateAccessToken(token string) (*model.Principal, error) {
	return s.validate(token, TokenTypeAccess)
}

func (s *jwtService) ValidateRefreshToken(token string) (*model.Principal, error) {
	return s.validate(token, TokenTypeRefresh)
}

func (s *jwtService) sign(user *model.User, tokenType string, expiry time.Duration) (string, error) {
	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			ID:        uuid.New().String(),
		},
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		TokenType: tokenType,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
}

func (s *jwtService) validate(token, wantType string) (*model.Principal, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != wantType {
		return nil, ErrWrongTokenType
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	return &model.Principal{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}
