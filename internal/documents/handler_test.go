package documents

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"docviewer-backend/internal/rendering"
	"docviewer-backend/internal/users"
)

func newTestRouter(t *testing.T, svc *Service, as users.User) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api")
	api.Use(func(c *gin.Context) {
		c.Set("userId", as.ID)
		c.Set("user", as)
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(api)
	return r
}

func multipartBody(t *testing.T, fields map[string]string, filename, contentType, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if filename != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		_, _ = part.Write([]byte(content))
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func decode(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode %q: %v", resp.Body.String(), err)
	}
	return payload
}

func assertError(t *testing.T, resp *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if resp.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, resp.Code, resp.Body.String())
	}
	payload := decode(t, resp)
	if len(payload) != 1 || payload["error"] != message {
		t.Fatalf("expected {error: %q}, got %v", message, payload)
	}
}

func TestUploadCreatesDocument(t *testing.T) {
	rs := &fakeRendering{uploadResult: rendering.UploadResult{ExternalDocumentID: "ext-1", SessionToken: "tok"}}
	svc, _ := newTestService(rs)
	router := newTestRouter(t, svc, testUser)

	body, ct := multipartBody(t, map[string]string{"title": "Contract"}, "contract.pdf", "application/pdf", "%PDF-1.7")
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", ct)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	doc, ok := decode(t, resp)["document"].(map[string]any)
	if !ok {
		t.Fatalf("missing document in response")
	}
	if doc["fileSize"] != "8" {
		t.Fatalf("expected fileSize as string \"8\", got %#v", doc["fileSize"])
	}
	if doc["filename"] != "contract.pdf" || doc["fileType"] != "application/pdf" || doc["author"] != "User One" {
		t.Fatalf("unexpected document: %v", doc)
	}
	if rs.uploadBodies[0] != "%PDF-1.7" {
		t.Fatalf("unexpected upload body %q", rs.uploadBodies[0])
	}
}

func TestUploadValidation(t *testing.T) {
	cases := []struct {
		name     string
		fields   map[string]string
		filename string
		message  string
	}{
		{"missing file", map[string]string{"title": "T"}, "", "File is required"},
		{"missing title", map[string]string{}, "a.pdf", "Title is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rs := &fakeRendering{}
			svc, _ := newTestService(rs)
			router := newTestRouter(t, svc, testUser)

			body, ct := multipartBody(t, tc.fields, tc.filename, "application/pdf", "x")
			req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
			req.Header.Set("Content-Type", ct)
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			assertError(t, resp, http.StatusBadRequest, tc.message)
			if rs.uploadCalls != 0 {
				t.Fatalf("rendering service must not be called on validation failure")
			}
		})
	}
}

func TestUploadRenderingFailureIs503(t *testing.T) {
	failure := &rendering.IntegrationError{Message: "rendering upload failed: 500", Status: 500}
	rs := &fakeRendering{uploadErrs: []error{failure, failure, failure}}
	svc, _ := newTestService(rs)
	router := newTestRouter(t, svc, testUser)

	body, ct := multipartBody(t, map[string]string{"title": "T"}, "a.pdf", "application/pdf", "x")
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", ct)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assertError(t, resp, http.StatusServiceUnavailable, "Document upload failed. Please try again.")
}

func TestListReturnsDocumentsEnvelope(t *testing.T) {
	svc, repo := newTestService(&fakeRendering{})
	seedDoc(repo, Document{ID: "d1", OwnerID: testUser.ID, Title: "Mine", FileSize: 5_000_000_000})
	seedDoc(repo, Document{ID: "d2", OwnerID: otherUser.ID, Title: "Theirs"})
	router := newTestRouter(t, svc, testUser)

	req := httptest.NewRequest(http.MethodGet, "/api/documents?sortBy=nope&sortOrder=sideways", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"fileSize":"5000000000"`) {
		t.Fatalf("expected string fileSize, got %s", resp.Body.String())
	}
	docs, _ := decode(t, resp)["documents"].([]any)
	if len(docs) != 1 {
		t.Fatalf("expected 1 visible document, got %d", len(docs))
	}
}

func TestGetUpdateDeleteNotFoundOutsideScope(t *testing.T) {
	svc, repo := newTestService(&fakeRendering{})
	seedDoc(repo, Document{ID: "theirs", OwnerID: otherUser.ID, ExternalDocumentID: "ext", Title: "T"})
	router := newTestRouter(t, svc, testUser)

	requests := []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/documents/theirs", nil),
		httptest.NewRequest(http.MethodPut, "/api/documents/theirs", strings.NewReader(`{"title":"New"}`)),
		httptest.NewRequest(http.MethodDelete, "/api/documents/theirs", nil),
		httptest.NewRequest(http.MethodGet, "/api/documents/theirs/viewer-session", nil),
	}
	for _, req := range requests {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		assertError(t, resp, http.StatusNotFound, "Document not found")
	}
}

func TestUpdateRequiresTitle(t *testing.T) {
	svc, repo := newTestService(&fakeRendering{})
	seedDoc(repo, Document{ID: "d", OwnerID: testUser.ID, Title: "T"})
	router := newTestRouter(t, svc, testUser)

	req := httptest.NewRequest(http.MethodPut, "/api/documents/d", strings.NewReader(`{"author":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assertError(t, resp, http.StatusBadRequest, "Title is required")
}

func TestDeleteReportsSuccessWhenExternalDeleteFails(t *testing.T) {
	rs := &fakeRendering{deleteErr: &rendering.IntegrationError{Message: "down", Status: 503}}
	svc, repo := newTestService(rs)
	seedDoc(repo, Document{ID: "d", OwnerID: testUser.ID, ExternalDocumentID: "ext", Title: "T"})
	router := newTestRouter(t, svc, testUser)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/api/documents/d", nil))
	if resp.Code != http.StatusOK || decode(t, resp)["success"] != true {
		t.Fatalf("expected 200 success, got %d %s", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/documents/d", nil))
	assertError(t, resp, http.StatusNotFound, "Document not found")
}

func TestViewerSessionResponses(t *testing.T) {
	rs := &fakeRendering{sessionToken: "tok"}
	svc, repo := newTestService(rs)
	seedDoc(repo, Document{ID: "d", OwnerID: testUser.ID, ExternalDocumentID: "ext", Title: "T"})
	seedDoc(repo, Document{ID: "broken", OwnerID: testUser.ID, Title: "T"})
	router := newTestRouter(t, svc, testUser)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/documents/d/viewer-session", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	payload := decode(t, resp)
	if payload["sessionToken"] != "tok" || payload["externalDocumentId"] != "ext" {
		t.Fatalf("unexpected payload: %v", payload)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/documents/broken/viewer-session", nil))
	assertError(t, resp, http.StatusInternalServerError, "Document upload incomplete - missing external document id")
}

func TestViewerSessionRenderingFailureIs500(t *testing.T) {
	rs := &fakeRendering{sessionErr: &rendering.IntegrationError{Message: "down", Status: 503}}
	svc, repo := newTestService(rs)
	seedDoc(repo, Document{ID: "d", OwnerID: testUser.ID, ExternalDocumentID: "ext", Title: "T"})
	router := newTestRouter(t, svc, testUser)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/documents/d/viewer-session", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
}
