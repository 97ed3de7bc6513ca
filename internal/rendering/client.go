// Package rendering integrates with the hosted document rendering service:
// uploads, viewer sessions and deletion.
package rendering

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"docviewer-backend/internal/shared/metrics"
)

const (
	DefaultBaseURL     = "https://api.nutrient.io/viewer/documents"
	DefaultSessionsURL = "https://api.nutrient.io/viewer/sessions"
	DefaultViewerURL   = "https://viewer.nutrient.io"
	DefaultTimeout     = 30 * time.Second

	sessionTTL = 24 * time.Hour
)

// Service is the subset of the client the document service depends on.
type Service interface {
	Upload(ctx context.Context, body io.ReadSeeker, size int64, contentType string) (UploadResult, error)
	CreateSession(ctx context.Context, externalDocumentID string) (string, error)
	DeleteDocument(ctx context.Context, externalDocumentID string) error
	ViewerURL(sessionToken string) string
}

// HealthChecker reports whether the rendering service is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) bool
}

// UploadResult carries the identifiers returned by an upload. SessionToken is
// empty when neither the upload nor the follow-up session call produced one.
type UploadResult struct {
	ExternalDocumentID string
	SessionToken       string
}

type Config struct {
	APIKey      string
	BaseURL     string
	SessionsURL string
	ViewerURL   string
	Timeout     time.Duration
}

// Client talks to the rendering service over HTTP. It never retries; callers
// wrap calls in WithRetry where a retry is wanted.
type Client struct {
	apiKey      string
	baseURL     string
	sessionsURL string
	viewerURL   string
	httpClient  *http.Client
	metrics     metrics.Recorder
	now         func() time.Time
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithMetrics(rec metrics.Recorder) Option {
	return func(c *Client) {
		if rec != nil {
			c.metrics = rec
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient constructs a Client. The API key is required; URLs and timeout
// fall back to the hosted defaults.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("RENDERING_API_KEY is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		baseURL:     strings.TrimRight(orDefault(cfg.BaseURL, DefaultBaseURL), "/"),
		sessionsURL: orDefault(cfg.SessionsURL, DefaultSessionsURL),
		viewerURL:   strings.TrimRight(orDefault(cfg.ViewerURL, DefaultViewerURL), "/"),
		httpClient:  &http.Client{Timeout: timeout},
		metrics:     metrics.Nop{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

// Upload sends the raw file bytes as the request body. The body is rewound
// first, so the same reader can be passed to every retry attempt.
func (c *Client) Upload(ctx context.Context, body io.ReadSeeker, size int64, contentType string) (res UploadResult, err error) {
	start := time.Now()
	defer func() { c.observe("upload", start, err) }()

	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return UploadResult{}, Normalize(fmt.Errorf("rewind upload body: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, io.NopCloser(body))
	if err != nil {
		return UploadResult{}, Normalize(err)
	}
	if size > 0 {
		req.ContentLength = size
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	doc, err := c.doJSON(req, "upload")
	if err != nil {
		return UploadResult{}, err
	}

	documentID := lookupString(doc, "data.document_id")
	if documentID == "" {
		return UploadResult{}, &IntegrationError{
			Message: "rendering upload response missing document id",
			Status:  http.StatusInternalServerError,
		}
	}

	if token := firstString(doc, uploadTokenKeys); token != "" {
		return UploadResult{ExternalDocumentID: documentID, SessionToken: token}, nil
	}

	// The document exists upstream at this point; a missing session only
	// delays viewing, so it does not fail the upload.
	token, sessErr := c.CreateSession(ctx, documentID)
	if sessErr != nil {
		return UploadResult{ExternalDocumentID: documentID}, nil
	}
	return UploadResult{ExternalDocumentID: documentID, SessionToken: token}, nil
}

type sessionDocument struct {
	DocumentID  string   `json:"document_id"`
	Permissions []string `json:"document_permissions"`
}

type sessionRequest struct {
	AllowedDocuments []sessionDocument `json:"allowed_documents"`
	Exp              int64             `json:"exp"`
}

// CreateSession issues a read-only viewer session for one document, valid for
// 24 hours.
func (c *Client) CreateSession(ctx context.Context, externalDocumentID string) (token string, err error) {
	start := time.Now()
	defer func() { c.observe("create_session", start, err) }()

	payload, err := json.Marshal(sessionRequest{
		AllowedDocuments: []sessionDocument{{
			DocumentID:  externalDocumentID,
			Permissions: []string{"read"},
		}},
		Exp: c.now().Add(sessionTTL).Unix(),
	})
	if err != nil {
		return "", Normalize(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sessionsURL, bytes.NewReader(payload))
	if err != nil {
		return "", Normalize(err)
	}
	req.Header.Set("Content-Type", "application/json")

	doc, err := c.doJSON(req, "session creation")
	if err != nil {
		return "", err
	}
	token = firstString(doc, sessionTokenKeys)
	if token == "" {
		raw, _ := json.Marshal(doc)
		return "", &IntegrationError{
			Message: fmt.Sprintf("session token not found in rendering response: %s", raw),
			Status:  http.StatusInternalServerError,
		}
	}
	return token, nil
}

// DeleteDocument removes the upstream copy. Deployments that do not support
// deletion answer 405 or 501, which count as success.
func (c *Client) DeleteDocument(ctx context.Context, externalDocumentID string) (err error) {
	start := time.Now()
	defer func() { c.observe("delete", start, err) }()

	endpoint := c.baseURL + "/" + url.PathEscape(externalDocumentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return Normalize(err)
	}
	resp, err := c.do(req)
	if err != nil {
		return Normalize(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented {
		return nil
	}
	return statusError("delete", resp.StatusCode, body)
}

// HealthCheck probes the service. Any answer other than 503 means reachable.
func (c *Client) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/test/sessions", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return resp.StatusCode != http.StatusServiceUnavailable
}

// ViewerURL builds the hosted viewer link for a session token.
func (c *Client) ViewerURL(sessionToken string) string {
	return c.viewerURL + "/?jwt=" + url.QueryEscape(sessionToken)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return c.httpClient.Do(req)
}

func (c *Client) doJSON(req *http.Request, op string) (map[string]any, error) {
	resp, err := c.do(req)
	if err != nil {
		return nil, Normalize(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, Normalize(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(op, resp.StatusCode, body)
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &IntegrationError{
			Message: fmt.Sprintf("rendering %s response parse: %v", op, err),
			Status:  http.StatusInternalServerError,
			Err:     err,
		}
	}
	return doc, nil
}

func (c *Client) observe(op string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
		var ie *IntegrationError
		if errors.As(err, &ie) && ie.Unreachable() {
			outcome = "unreachable"
		}
	}
	c.metrics.RecordRenderingCall(op, outcome, time.Since(start))
}

var _ Service = (*Client)(nil)
var _ HealthChecker = (*Client)(nil)
