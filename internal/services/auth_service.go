package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"spendsmart/internal/core"
)

// UserStore is the credential persistence AuthService needs.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
}

// AuthService registers users and verifies their passwords.
type AuthService struct {
	users UserStore
	cost  int

	dummyOnce sync.Once
	dummyHash []byte
}

func NewAuthService(users UserStore) *AuthService {
	return NewAuthServiceWithCost(users, bcrypt.DefaultCost)
}

// NewAuthServiceWithCost is NewAuthService with an explicit bcrypt cost.
// Tests use bcrypt.MinCost.
func NewAuthServiceWithCost(users UserStore, cost int) *AuthService {
	return &AuthService{users: users, cost: cost}
}

// Register creates a user with a salted bcrypt hash of password.
func (s *AuthService) Register(ctx context.Context, email, password string) (core.User, error) {
	email = core.NormalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return core.User{}, core.ErrInvalidInput
	}

	_, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return core.User{}, core.ErrDuplicateIdentity
	case !errors.Is(err, core.ErrNotFound):
		return core.User{}, fmt.Errorf("check existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return core.User{}, core.ErrInvalidInput
		}
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	// The UNIQUE constraint still reports ErrDuplicateIdentity if another
	// registration for the same email won the race.
	u, err := s.users.CreateUser(ctx, email, string(hash))
	if err != nil {
		return core.User{}, err
	}

	slog.InfoContext(ctx, "User registered", "user_id", u.ID)
	return u, nil
}

// Authenticate returns the user for email if password matches. Unknown emails
// and wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (core.User, error) {
	email = core.NormalizeEmail(email)

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			return core.User{}, fmt.Errorf("find user: %w", err)
		}
		// Spend the same bcrypt work as a real comparison.
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		slog.InfoContext(ctx, "Login failed", "reason", "unknown_email")
		return core.User{}, core.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		slog.InfoContext(ctx, "Login failed", "reason", "password_mismatch", "user_id", u.ID)
		return core.User{}, core.ErrInvalidCredentials
	}
	return u, nil
}

func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("spendsmart-dummy-password"), s.cost)
		if err != nil {
			slog.Error("Failed to prepare dummy hash", "error", err)
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
