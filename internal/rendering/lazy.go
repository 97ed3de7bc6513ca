package rendering

import (
	"context"
	"io"
	"net/http"

	"docviewer-backend/internal/shared/lazy"
	"docviewer-backend/internal/shared/telemetry"
)

// LazyClient constructs the Client on first use. The server can start without
// a rendering API key; calls fail with an IntegrationError until one is set.
type LazyClient struct {
	cfg  Config
	opts []Option
	val  lazy.Value[*Client]
}

func NewLazyClient(cfg Config, opts ...Option) *LazyClient {
	return &LazyClient{cfg: cfg, opts: opts}
}

func (l *LazyClient) client() (*Client, error) {
	c, reused, err := l.val.Get(func() (*Client, error) {
		return NewClient(l.cfg, l.opts...)
	})
	if err != nil {
		telemetry.Error("rendering.client_init_failed", map[string]any{"error": err})
		return nil, &IntegrationError{Message: err.Error(), Status: http.StatusInternalServerError, Err: err}
	}
	if !reused {
		telemetry.Info("rendering.client_init", map[string]any{"base_url": c.baseURL})
	}
	return c, nil
}

func (l *LazyClient) Upload(ctx context.Context, body io.ReadSeeker, size int64, contentType string) (UploadResult, error) {
	c, err := l.client()
	if err != nil {
		return UploadResult{}, err
	}
	return c.Upload(ctx, body, size, contentType)
}

func (l *LazyClient) CreateSession(ctx context.Context, externalDocumentID string) (string, error) {
	c, err := l.client()
	if err != nil {
		return "", err
	}
	return c.CreateSession(ctx, externalDocumentID)
}

func (l *LazyClient) DeleteDocument(ctx context.Context, externalDocumentID string) error {
	c, err := l.client()
	if err != nil {
		return err
	}
	return c.DeleteDocument(ctx, externalDocumentID)
}

func (l *LazyClient) HealthCheck(ctx context.Context) bool {
	c, err := l.client()
	if err != nil {
		return false
	}
	return c.HealthCheck(ctx)
}

func (l *LazyClient) ViewerURL(sessionToken string) string {
	c, err := l.client()
	if err != nil {
		return ""
	}
	return c.ViewerURL(sessionToken)
}

var _ Service = (*LazyClient)(nil)
var _ HealthChecker = (*LazyClient)(nil)
