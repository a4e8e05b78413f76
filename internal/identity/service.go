// Package identity manages staff accounts and bearer-token authentication.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/algostatus/statuspage/internal/domain"
	"github.com/algostatus/statuspage/internal/pkg/ctxlog"
)

// DefaultTokenTTL is the lifetime of issued bearer tokens.
const DefaultTokenTTL = time.Hour

// Claims are the identity facts carried by a bearer token.
type Claims struct {
	UserID  string
	Email   string
	IsAdmin bool
}

// Authenticator issues and verifies signed, time-limited bearer tokens.
type Authenticator interface {
	IssueToken(claims Claims, ttl time.Duration) (string, error)
	VerifyToken(token string) (*Claims, error)
}

// Service implements user management and login.
type Service struct {
	repo     Repository
	hasher   PasswordHasher
	auth     Authenticator
	tokenTTL time.Duration
}

// NewService creates a new identity service.
func NewService(repo Repository, hasher PasswordHasher, auth Authenticator, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &Service{
		repo:     repo,
		hasher:   hasher,
		auth:     auth,
		tokenTTL: tokenTTL,
	}
}

// CreateUserInput holds data for adding a team member.
type CreateUserInput struct {
	Email              string
	Password           string
	AssociatedServices string
}

// CreateUser adds a team member. The user is an admin when
// AssociatedServices is "Admin" in any letter case.
func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" || strings.TrimSpace(input.AssociatedServices) == "" {
		return nil, ErrMissingFields
	}

	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:              email,
		Password:           digest,
		AssociatedServices: input.AssociatedServices,
		IsAdmin:            domain.IsAdminAssociation(input.AssociatedServices),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	ctxlog.FromContext(ctx).Info("user created", "user_id", user.ID, "is_admin", user.IsAdmin)
	return user, nil
}

// GetUser returns a user by ID.
func (s *Service) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// DeleteUser removes a user and returns the deleted record.
func (s *Service) DeleteUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.repo.DeleteUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delete user: %w", err)
	}

	ctxlog.FromContext(ctx).Info("user deleted", "user_id", user.ID)
	return user, nil
}

// Authenticate checks credentials and returns a signed bearer token.
// An unknown email yields ErrUserNotFound, a wrong password ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", fmt.Errorf("get user: %w", err)
	}

	if !s.hasher.Verify(password, user.Password) {
		ctxlog.FromContext(ctx).Warn("login rejected", "user_id", user.ID)
		return "", ErrInvalidCredentials
	}

	token, err := s.auth.IssueToken(Claims{
		UserID:  user.ID,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
	}, s.tokenTTL)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

// ValidateToken verifies a bearer token and resolves the current principal.
// Tokens of deleted users are rejected.
func (s *Service) ValidateToken(ctx context.Context, token string) (*domain.Principal, error) {
	claims, err := s.auth.VerifyToken(token)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &domain.Principal{
		UserID:             user.ID,
		Email:              user.Email,
		IsAdmin:            user.IsAdmin,
		AssociatedServices: user.AssociatedServices,
	}, nil
}

// EnsureAdmin creates an admin account when no users exist yet.
// It reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	count, err := s.repo.CountUsers(ctx)
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	if _, err := s.CreateUser(ctx, CreateUserInput{
		Email:              email,
		Password:           password,
		AssociatedServices: domain.AdminAssociation,
	}); err != nil {
		return false, err
	}
	return true, nil
}
