// Package jwt issues and verifies HS256 bearer tokens.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/algostatus/statuspage/internal/identity"
	"github.com/golang-jwt/jwt/v5"
)

// Config holds token signing settings.
type Config struct {
	SecretKey string
	Issuer    string
}

// tokenClaims is the wire form of identity.Claims.
type tokenClaims struct {
	UserID  string `json:"userId"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// Authenticator implements identity.Authenticator with signed JWTs.
type Authenticator struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewAuthenticator creates a JWT authenticator.
func NewAuthenticator(cfg Config) *Authenticator {
	return &Authenticator{
		secret: []byte(cfg.SecretKey),
		issuer: cfg.Issuer,
		now:    time.Now,
	}
}

// IssueToken signs claims into a token that expires after ttl.
func (a *Authenticator) IssueToken(claims identity.Claims, ttl time.Duration) (string, error) {
	now := a.now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		UserID:  claims.UserID,
		Email:   claims.Email,
		IsAdmin: claims.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   claims.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks signature, algorithm and expiry and returns the claims.
// Every failure is reported as identity.ErrInvalidToken.
func (a *Authenticator) VerifyToken(tokenString string) (*identity.Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var claims tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", identity.ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %s", identity.ErrInvalidToken, err.Error())
	}
	if !token.Valid || claims.UserID == "" {
		return nil, identity.ErrInvalidToken
	}

	return &identity.Claims{
		UserID:  claims.UserID,
		Email:   claims.Email,
		IsAdmin: claims.IsAdmin,
	}, nil
}
