package users

import (
	"context"
	"strings"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu      sync.RWMutex
	users   map[string]User
	byEmail map[string]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		users:   make(map[string]User),
		byEmail: make(map[string]string),
	}
}

// Seed stores a user as-is. Used by tests and dev tooling to assign roles.
func (r *MemoryRepo) Seed(user User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.Role == "" {
		user.Role = RoleUser
	}
	r.users[user.ID] = user
	r.byEmail[strings.ToLower(user.Email)] = user.ID
}

func (r *MemoryRepo) UpsertByEmail(ctx context.Context, user User) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	key := strings.ToLower(user.Email)
	if id, ok := r.byEmail[key]; ok {
		existing := r.users[id]
		existing.Name = user.Name
		existing.ImageURL = user.ImageURL
		existing.UpdatedAt = now
		r.users[id] = existing
		return existing, nil
	}

	user.Role = RoleUser
	user.CurrentImpersonationMode = ""
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = user
	r.byEmail[key] = user.ID
	return user, nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *MemoryRepo) SetImpersonationMode(ctx context.Context, userID string, mode ImpersonationMode) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	user.CurrentImpersonationMode = mode
	user.UpdatedAt = time.Now().UTC()
	r.users[userID] = user
	return user, nil
}

var _ Repo = (*MemoryRepo)(nil)
