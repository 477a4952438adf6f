package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"detetive/internal/core"
)

// AuthService registers users and exchanges credentials for tokens.
type AuthService struct {
	*base
}

// Session is what a successful register or login returns.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      core.User `json:"user"`
}

func (s *AuthService) Register(ctx context.Context, email, name, password string) (Session, error) {
	u := core.User{Email: strings.ToLower(strings.TrimSpace(email)), Name: strings.TrimSpace(name)}
	if err := u.Validate(); err != nil {
		return Session{}, err
	}
	if err := core.ValidatePassword(password); err != nil {
		return Session{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)

	created, err := s.stores().Users.CreateUser(ctx, u)
	if err != nil {
		return Session{}, fmt.Errorf("create user: %w", err)
	}
	s.deps.Logger.InfoContext(ctx, "User registered", "user_id", created.ID)
	return s.session(created)
}

// Login verifies the credentials. Unknown emails and wrong passwords both
// yield core.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.stores().Users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, core.ErrNotFound) {
		return Session{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("get user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return Session{}, core.ErrInvalidCredentials
	}
	return s.session(u)
}

// Me returns the authenticated user. A token for a user that no longer
// exists is unauthorized.
func (s *AuthService) Me(ctx context.Context, userID string) (core.User, error) {
	u, err := s.stores().Users.GetUser(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, core.ErrUnauthorized
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *AuthService) session(u core.User) (Session, error) {
	if s.deps.Tokens == nil {
		return Session{}, errors.New("token issuer not configured")
	}
	token, exp, err := s.deps.Tokens.Issue(u.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: exp, User: u}, nil
}
