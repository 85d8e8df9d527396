package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andressep95/session-service/internal/domain"
	"github.com/andressep95/session-service/internal/repository"
	"github.com/andressep95/session-service/pkg/blacklist"
	"github.com/andressep95/session-service/pkg/hash"
	"github.com/andressep95/session-service/pkg/jwt"
	"github.com/andressep95/session-service/pkg/validator"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// ErrInvalidCredentials covers both an unknown email and a wrong password.
var ErrInvalidCredentials = &domain.Error{Kind: domain.KindUnauthenticated, Message: "invalid credentials"}

type AuthService struct {
	users     repository.UserRepository
	hasher    *hash.Hasher
	tokens    *jwt.TokenService
	blacklist blacklist.Blacklist
	validator *validator.Validator
	clock     clockwork.Clock
	log       logrus.FieldLogger
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token *domain.AccessToken `json:"token"`
	User  *domain.User        `json:"user"`
}

func NewAuthService(
	users repository.UserRepository,
	hasher *hash.Hasher,
	tokens *jwt.TokenService,
	bl blacklist.Blacklist,
	v *validator.Validator,
	clock clockwork.Clock,
	log logrus.FieldLogger,
) *AuthService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AuthService{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		blacklist: bl,
		validator: v,
		clock:     clock,
		log:       log,
	}
}

// Register creates the account and signs the new user in.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validateInput(s.validator, req); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.clock.Now().UTC().Truncate(time.Microsecond)
	user := &domain.User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.WithField("user_id", user.ID).Info("User registered")
	return &AuthResponse{Token: token, User: user}, nil
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validateInput(s.validator, req); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	valid, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		s.log.WithField("user_id", user.ID).Warn("Failed login attempt")
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &AuthResponse{Token: token, User: user}, nil
}

// Authenticate resolves a bearer token to the caller it was issued to.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*domain.Claims, error) {
	if tokenString == "" {
		return nil, domain.ErrUnauthenticated
	}

	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, &domain.Error{Kind: domain.KindUnauthenticated, Message: "invalid or expired token", Cause: err}
	}

	if claims.ID != "" {
		revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, domain.StoreError("failed to check token revocation", err)
		}
		if revoked {
			return nil, &domain.Error{Kind: domain.KindUnauthenticated, Message: "token has been revoked"}
		}
	}

	return claims, nil
}

// Logout revokes the presented token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, claims *domain.Claims) error {
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return domain.ErrUnauthenticated
	}

	if err := s.blacklist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return domain.StoreError("failed to revoke token", err)
	}

	s.log.WithField("user_id", claims.UserID).Info("User logged out")
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
