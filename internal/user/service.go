package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NormalizeEmail trims and lowercases an address before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, email, displayName, passwordHash string) (User, error) {
	email = NormalizeEmail(email)

	_, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return User{}, ErrAlreadyExists
	case !errors.Is(err, ErrNotFound):
		return User{}, fmt.Errorf("lookup user by email: %w", err)
	}

	newUser := &User{
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: passwordHash,
		Role:         "USER",
	}
	if err := s.repo.Create(ctx, newUser); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return User{}, err
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return *newUser, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.repo.GetByEmail(ctx, NormalizeEmail(email))
}
