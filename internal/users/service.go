package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// UpsertFromAuth persists the identity returned by the sign-in provider and
// returns the stored user, including its role and impersonation mode.
func (s *Service) UpsertFromAuth(ctx context.Context, email, name, imageURL string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return User{}, errors.New("user email is required")
	}
	return s.Repo.UpsertByEmail(ctx, User{
		ID:       uuid.NewString(),
		Email:    email,
		Name:     strings.TrimSpace(name),
		ImageURL: strings.TrimSpace(imageURL),
	})
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, errors.New("user id is required")
	}
	return s.Repo.GetByID(ctx, userID)
}
