package documents

import (
	"context"
	"time"

	"docviewer-backend/internal/access"
)

// SortField is one of the columns a listing may be ordered by.
type SortField string

const (
	SortTitle     SortField = "title"
	SortFilename  SortField = "filename"
	SortFileType  SortField = "fileType"
	SortFileSize  SortField = "fileSize"
	SortAuthor    SortField = "author"
	SortCreatedAt SortField = "createdAt"
	SortUpdatedAt SortField = "updatedAt"
)

var sortFields = map[SortField]bool{
	SortTitle:     true,
	SortFilename:  true,
	SortFileType:  true,
	SortFileSize:  true,
	SortAuthor:    true,
	SortCreatedAt: true,
	SortUpdatedAt: true,
}

// NormalizeSort resolves user-supplied sort parameters. Unknown fields fall
// back to createdAt and unknown orders to descending, independently.
func NormalizeSort(field, order string) (SortField, bool) {
	f := SortField(field)
	if !sortFields[f] {
		f = SortCreatedAt
	}
	desc := true
	if order == "asc" {
		desc = false
	}
	return f, desc
}

// ListQuery is a fully resolved listing request. Search matches title,
// filename or author; FileType and Author are substring filters. All matches
// are case-insensitive and empty values are ignored.
type ListQuery struct {
	Filter   access.Filter
	Search   string
	FileType string
	Author   string
	SortBy   SortField
	Desc     bool
}

// Repo persists document metadata. Get scopes the lookup by the access filter
// so invisible and missing rows are indistinguishable.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	Get(ctx context.Context, id string, filter access.Filter) (Document, error)
	List(ctx context.Context, q ListQuery) ([]Document, error)
	UpdateMetadata(ctx context.Context, id, title, author string, updatedAt time.Time) (Document, error)
	SetSessionToken(ctx context.Context, id, token string, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}
