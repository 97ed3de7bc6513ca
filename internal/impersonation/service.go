// Package impersonation owns the admin-only view-mode toggle.
package impersonation

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"docviewer-backend/internal/users"
)

var (
	ErrPermissionDenied = errors.New("only admins can change impersonation mode")
	ErrInvalidMode      = errors.New("invalid impersonation mode")
)

// Status is the read side of the toggle.
type Status struct {
	CurrentMode    users.ImpersonationMode `json:"currentMode"`
	CanImpersonate bool                    `json:"canImpersonate"`
}

type Service struct {
	Repo     users.Repo
	validate *validator.Validate
}

func NewService(repo users.Repo) *Service {
	return &Service{Repo: repo, validate: validator.New()}
}

// GetMode reports the actor's mode, defaulting to SELF when unset.
func (s *Service) GetMode(actor users.User) Status {
	mode := actor.CurrentImpersonationMode
	if mode == "" {
		mode = users.ModeSelf
	}
	return Status{CurrentMode: mode, CanImpersonate: actor.IsAdmin()}
}

// SetMode overwrites the actor's mode. The role check runs before the mode is
// looked at, so a non-admin always gets ErrPermissionDenied.
func (s *Service) SetMode(ctx context.Context, actor users.User, mode string) (users.Projection, error) {
	if !actor.IsAdmin() {
		return users.Projection{}, ErrPermissionDenied
	}
	if err := s.validator().Var(mode, "required,oneof=SELF USER"); err != nil {
		return users.Projection{}, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	updated, err := s.Repo.SetImpersonationMode(ctx, actor.ID, users.ImpersonationMode(mode))
	if err != nil {
		return users.Projection{}, err
	}
	return updated.Project(), nil
}

func (s *Service) validator() *validator.Validate {
	if s.validate == nil {
		s.validate = validator.New()
	}
	return s.validate
}
