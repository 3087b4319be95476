// Package auth issues bearer tokens for username/password credentials.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/simplecms/api/internal/user"
)

const tokenTTL = 24 * time.Hour

// grantedScope is attached to every issued token. The access layer checks
// scope independently of role, so narrower tokens issued elsewhere (or in
// tests) degrade to read-only as expected.
const grantedScope = "read write"

// Token is the issued credential in OAuth2 response shape.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope"`
}

// Service contains the business logic for password-based token issuance.
type Service struct {
	users  *user.Service
	secret []byte
	ttl    time.Duration
}

// NewService creates a new auth Service.
func NewService(users *user.Service, jwtSecret string) *Service {
	return &Service{users: users, secret: []byte(jwtSecret), ttl: tokenTTL}
}

// Issue verifies the credentials against an active account and returns a
// signed bearer token carrying the user's identity, role, and scopes. The
// account's last login time is updated on success.
func (s *Service) Issue(ctx context.Context, username, password string) (*Token, error) {
	u, err := s.users.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      u.ID,
		"username": u.Username,
		"is_staff": u.IsStaff,
		"scope":    grantedScope,
		"iat":      now.Unix(),
		"exp":      now.Add(s.ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	if err := s.users.TouchLastLogin(ctx, u.ID); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}

	return &Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.ttl.Seconds()),
		Scope:       grantedScope,
	}, nil
}
