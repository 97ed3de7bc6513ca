package documents

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"docviewer-backend/internal/access"
	"docviewer-backend/internal/users"
)

// MemoryRepo is an in-memory Repo used for local development and tests.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Document

	// Users, when set, is used to attach owner details to reads.
	Users users.Repo
}

func NewMemoryRepo(userRepo users.Repo) *MemoryRepo {
	return &MemoryRepo{
		data:  make(map[string]Document),
		Users: userRepo,
	}
}

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc.Owner = nil
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[doc.ID] = doc
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string, filter access.Filter) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	doc, ok := r.data[id]
	r.mu.RUnlock()
	if !ok || !filter.Allows(doc.OwnerID) {
		return Document{}, ErrNotFound
	}
	return r.withOwner(ctx, doc), nil
}

func (r *MemoryRepo) List(ctx context.Context, q ListQuery) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	out := make([]Document, 0, len(r.data))
	for _, doc := range r.data {
		if matches(doc, q) {
			out = append(out, doc)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if q.Desc {
			return less(out[j], out[i], q.SortBy)
		}
		return less(out[i], out[j], q.SortBy)
	})
	for i := range out {
		out[i] = r.withOwner(ctx, out[i])
	}
	return out, nil
}

func (r *MemoryRepo) UpdateMetadata(ctx context.Context, id, title, author string, updatedAt time.Time) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	doc.Title = title
	doc.Author = author
	doc.UpdatedAt = updatedAt
	r.data[id] = doc
	return doc, nil
}

func (r *MemoryRepo) SetSessionToken(ctx context.Context, id, token string, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	doc.SessionToken = token
	doc.UpdatedAt = updatedAt
	r.data[id] = doc
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

func (r *MemoryRepo) withOwner(ctx context.Context, doc Document) Document {
	if r.Users == nil {
		return doc
	}
	u, err := r.Users.GetByID(ctx, doc.OwnerID)
	if err != nil {
		return doc
	}
	doc.Owner = &Owner{ID: u.ID, Name: u.Name, Email: u.Email}
	return doc
}

func matches(doc Document, q ListQuery) bool {
	if !q.Filter.Allows(doc.OwnerID) {
		return false
	}
	if q.Search != "" &&
		!containsFold(doc.Title, q.Search) &&
		!containsFold(doc.Filename, q.Search) &&
		!containsFold(doc.Author, q.Search) {
		return false
	}
	if q.FileType != "" && !containsFold(doc.FileType, q.FileType) {
		return false
	}
	if q.Author != "" && !containsFold(doc.Author, q.Author) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func less(a, b Document, field SortField) bool {
	switch field {
	case SortTitle:
		return a.Title < b.Title
	case SortFilename:
		return a.Filename < b.Filename
	case SortFileType:
		return a.FileType < b.FileType
	case SortFileSize:
		return a.FileSize < b.FileSize
	case SortAuthor:
		return a.Author < b.Author
	case SortUpdatedAt:
		return a.UpdatedAt.Before(b.UpdatedAt)
	default:
		return a.CreatedAt.Before(b.CreatedAt)
	}
}

var _ Repo = (*MemoryRepo)(nil)
