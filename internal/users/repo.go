package users

import "context"

var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "user not found" }

type Repo interface {
	// UpsertByEmail creates the user on first sign-in or refreshes profile
	// fields. Role and impersonation mode are never touched.
	UpsertByEmail(ctx context.Context, user User) (User, error)
	GetByID(ctx context.Context, userID string) (User, error)
	SetImpersonationMode(ctx context.Context, userID string, mode ImpersonationMode) (User, error)
}
