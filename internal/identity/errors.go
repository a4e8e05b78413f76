package identity

import (
	"errors"
	"fmt"

	"github.com/algostatus/statuspage/internal/domain"
)

// Identity errors.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = fmt.Errorf("invalid or expired token: %w", domain.ErrUnauthenticated)
	ErrMissingFields      = errors.New("missing required fields")
)
