package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"docviewer-backend/internal/access"
	"docviewer-backend/internal/rendering"
	"docviewer-backend/internal/shared/metrics"
	"docviewer-backend/internal/shared/telemetry"
	"docviewer-backend/internal/users"
)

// MaxFileSize is the largest accepted upload, 250 MiB.
const MaxFileSize int64 = 250 << 20

// ListOptions are the raw listing parameters as the caller supplied them.
type ListOptions struct {
	Search    string
	FileType  string
	Author    string
	SortBy    string
	SortOrder string
}

// UploadInput describes a file to store. File must be rewindable because
// the upload is retried.
type UploadInput struct {
	File        io.ReadSeeker `validate:"-"`
	Filename    string
	ContentType string
	Size        int64
	Title       string `validate:"required,max=500"`
	Author      string `validate:"max=500"`
}

type UpdateInput struct {
	Title  string `validate:"required,max=500"`
	Author string `validate:"max=500"`
}

// ViewerSession is what the embedded viewer needs to open a document.
type ViewerSession struct {
	SessionToken       string
	ExternalDocumentID string
	ViewerURL          string
}

// Service orchestrates access scoping, the metadata store and the rendering
// service.
type Service struct {
	Repo      Repo
	Rendering rendering.Service
	Retry     rendering.Policy
	Metrics   metrics.Recorder

	validate *validator.Validate
	now      func() time.Time
	newID    func() string
}

func NewService(repo Repo, rs rendering.Service) *Service {
	return &Service{
		Repo:      repo,
		Rendering: rs,
		Retry:     rendering.DefaultPolicy(),
		Metrics:   metrics.Nop{},
		validate:  validator.New(),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

func (s *Service) List(ctx context.Context, user users.User, opts ListOptions) ([]Document, error) {
	sortBy, desc := NormalizeSort(strings.TrimSpace(opts.SortBy), strings.TrimSpace(opts.SortOrder))
	return s.Repo.List(ctx, ListQuery{
		Filter:   access.EffectiveFilter(user),
		Search:   strings.TrimSpace(opts.Search),
		FileType: filterValue(opts.FileType),
		Author:   filterValue(opts.Author),
		SortBy:   sortBy,
		Desc:     desc,
	})
}

// filterValue drops the "all" sentinel sent by the listing UI.
func filterValue(v string) string {
	v = strings.TrimSpace(v)
	if v == "all" {
		return ""
	}
	return v
}

func (s *Service) Get(ctx context.Context, user users.User, id string) (Document, error) {
	if strings.TrimSpace(id) == "" {
		return Document{}, ErrNotFound
	}
	return s.Repo.Get(ctx, id, access.EffectiveFilter(user))
}

// Create uploads the file to the rendering service and records it. No row is
// written unless the upload succeeded.
func (s *Service) Create(ctx context.Context, user users.User, in UploadInput) (Document, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)

	if in.File == nil {
		s.Metrics.RecordUpload("rejected", 0)
		return Document{}, ErrFileRequired
	}
	if err := s.check(in); err != nil {
		s.Metrics.RecordUpload("rejected", 0)
		return Document{}, err
	}
	if in.Size < 0 {
		s.Metrics.RecordUpload("rejected", 0)
		return Document{}, fmt.Errorf("%w: negative file size", ErrInvalidInput)
	}
	if in.Size > MaxFileSize {
		s.Metrics.RecordUpload("rejected", 0)
		return Document{}, ErrFileTooLarge
	}

	res, err := rendering.WithPolicy(ctx, s.retryPolicy("upload"), func(ctx context.Context) (rendering.UploadResult, error) {
		return s.Rendering.Upload(ctx, in.File, in.Size, in.ContentType)
	})
	if err != nil {
		s.Metrics.RecordUpload("failed", 0)
		return Document{}, fmt.Errorf("upload to rendering service: %w", err)
	}
	if res.SessionToken == "" {
		telemetry.Warn("documents.upload_without_session", map[string]any{
			"user_id":              user.ID,
			"external_document_id": res.ExternalDocumentID,
		})
	}

	now := s.now()
	doc := Document{
		ID:                 s.newID(),
		OwnerID:            user.ID,
		ExternalDocumentID: res.ExternalDocumentID,
		SessionToken:       res.SessionToken,
		Title:              in.Title,
		Filename:           in.Filename,
		FileType:           in.ContentType,
		FileSize:           in.Size,
		Author:             defaultAuthor(in.Author, user),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		s.Metrics.RecordUpload("failed", 0)
		telemetry.Error("documents.create_failed_after_upload", map[string]any{
			"user_id":              user.ID,
			"external_document_id": res.ExternalDocumentID,
			"error":                err,
		})
		return Document{}, err
	}
	s.Metrics.RecordUpload("success", in.Size)

	doc.Owner = &Owner{ID: user.ID, Name: user.Name, Email: user.Email}
	return doc, nil
}

func defaultAuthor(supplied string, user users.User) string {
	switch {
	case supplied != "":
		return supplied
	case strings.TrimSpace(user.Name) != "":
		return user.Name
	case strings.TrimSpace(user.Email) != "":
		return user.Email
	default:
		return "Unknown"
	}
}

// Update changes title and author. An empty author keeps the stored one.
func (s *Service) Update(ctx context.Context, user users.User, id string, in UpdateInput) (Document, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	if err := s.check(in); err != nil {
		return Document{}, err
	}

	existing, err := s.Get(ctx, user, id)
	if err != nil {
		return Document{}, err
	}
	author := in.Author
	if author == "" {
		author = existing.Author
	}
	return s.Repo.UpdateMetadata(ctx, existing.ID, in.Title, author, s.now())
}

// Delete removes the document. The rendering service copy is deleted on a
// best-effort basis; the local row is removed regardless.
func (s *Service) Delete(ctx context.Context, user users.User, id string) error {
	doc, err := s.Get(ctx, user, id)
	if err != nil {
		return err
	}

	if doc.ExternalDocumentID != "" {
		_, extErr := rendering.WithPolicy(ctx, s.retryPolicy("delete"), func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.Rendering.DeleteDocument(ctx, doc.ExternalDocumentID)
		})
		if extErr != nil {
			telemetry.Warn("documents.external_delete_failed", map[string]any{
				"document_id":          doc.ID,
				"external_document_id": doc.ExternalDocumentID,
				"error":                extErr,
			})
		}
	}

	if err := s.Repo.Delete(ctx, doc.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// ViewerSession returns the cached session token, creating and storing one
// when none is cached. Cached tokens are returned without a freshness check.
func (s *Service) ViewerSession(ctx context.Context, user users.User, id string) (ViewerSession, error) {
	doc, err := s.Get(ctx, user, id)
	if err != nil {
		return ViewerSession{}, err
	}
	if doc.ExternalDocumentID == "" {
		telemetry.Error("documents.missing_external_id", map[string]any{"document_id": doc.ID})
		return ViewerSession{}, ErrMissingExternalID
	}

	token := doc.SessionToken
	if token == "" {
		token, err = s.Rendering.CreateSession(ctx, doc.ExternalDocumentID)
		if err != nil {
			return ViewerSession{}, fmt.Errorf("create viewer session: %w", err)
		}
		if err := s.Repo.SetSessionToken(ctx, doc.ID, token, s.now()); err != nil {
			return ViewerSession{}, err
		}
	}

	return ViewerSession{
		SessionToken:       token,
		ExternalDocumentID: doc.ExternalDocumentID,
		ViewerURL:          s.Rendering.ViewerURL(token),
	}, nil
}

func (s *Service) retryPolicy(op string) rendering.Policy {
	p := s.Retry
	prev := p.OnRetry
	p.OnRetry = func(attempt int, err error) {
		s.Metrics.RecordRenderingRetry(op)
		telemetry.Warn("rendering.retry", map[string]any{
			"operation": op,
			"attempt":   attempt,
			"error":     err,
		})
		if prev != nil {
			prev(attempt, err)
		}
	}
	return p
}

// check runs struct validation and maps failures to the package errors.
func (s *Service) check(v any) error {
	if s.validate == nil {
		s.validate = validator.New()
	}
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	for _, fe := range verrs {
		if fe.Field() == "Title" && fe.Tag() == "required" {
			return ErrTitleRequired
		}
	}
	return fmt.Errorf("%w: %s must be at most %s characters", ErrInvalidInput, strings.ToLower(verrs[0].Field()), verrs[0].Param())
}
