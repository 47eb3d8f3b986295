package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"readshelf/internal/platform/crypto"
	"readshelf/internal/user"
)

var ErrUnauthorized = errors.New("unauthorized")

// Users is the subset of user.Service the auth flow needs.
type Users interface {
	Register(ctx context.Context, email, displayName, passwordHash string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type Service struct {
	secret   string
	tokenTTL time.Duration
	users    Users
}

func NewService(secret string, tokenTTL time.Duration, users Users) *Service {
	return &Service{secret: secret, tokenTTL: tokenTTL, users: users}
}

// Session is what a successful register or login hands back to the client.
type Session struct {
	AccessToken string    `json:"accessToken"`
	ExpiresIn   int       `json:"expiresIn"`
	User        user.User `json:"user"`
}

func (s *Service) Register(ctx context.Context, email, displayName, password string) (Session, error) {
	if err := crypto.ValidatePasswordStrength(password); err != nil {
		return Session{}, err
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.users.Register(ctx, email, displayName, hash)
	if err != nil {
		return Session{}, err
	}
	return s.issue(u)
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Session{}, ErrUnauthorized
		}
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}
	if !crypto.VerifyPassword(u.PasswordHash, password) {
		return Session{}, ErrUnauthorized
	}
	return s.issue(u)
}

func (s *Service) issue(u user.User) (Session, error) {
	token, err := crypto.GenerateToken(s.secret, u.ID, u.Role, s.tokenTTL)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}
	return Session{
		AccessToken: token,
		ExpiresIn:   int(s.tokenTTL.Seconds()),
		User:        u,
	}, nil
}
