package documents

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docviewer-backend/internal/rendering"
	"docviewer-backend/internal/shared/server/middleware"
	"docviewer-backend/internal/shared/server/respond"
	"docviewer-backend/internal/shared/util"
)

// multipartOverhead leaves room for form fields around a maximum-size file.
const multipartOverhead = 1 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group. Middleware
// in upload runs only on the upload route.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, upload ...gin.HandlerFunc) {
	rg.GET("/documents", h.list)
	rg.POST("/documents", append(upload, h.upload)...)
	rg.GET("/documents/:id", h.get)
	rg.PUT("/documents/:id", h.update)
	rg.DELETE("/documents/:id", h.delete)
	rg.GET("/documents/:id/viewer-session", h.viewerSession)
	rg.GET("/documents/:id/viewer-url", h.viewerSession)
}

func (h *Handler) list(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	docs, err := h.Svc.List(c.Request.Context(), user, ListOptions{
		Search:    c.Query("search"),
		FileType:  c.Query("fileType"),
		Author:    c.Query("author"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "Failed to fetch documents")
		return
	}
	respond.OK(c, gin.H{"documents": toResponses(docs)})
}

func (h *Handler) upload(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxFileSize+multipartOverhead)

	// FormFile parses the whole form, so it runs before PostForm.
	fileHeader, err := c.FormFile("file")
	var tooLarge *http.MaxBytesError
	if err != nil && errors.As(err, &tooLarge) {
		respond.Error(c, http.StatusBadRequest, "File size must be less than 250MB")
		return
	}

	in := UploadInput{
		Title:  c.PostForm("title"),
		Author: c.PostForm("author"),
	}
	if err == nil {
		name, nameErr := util.SanitizeFileName(fileHeader.Filename)
		if nameErr != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid file name")
			return
		}
		file, openErr := fileHeader.Open()
		if openErr != nil {
			respond.Error(c, http.StatusBadRequest, "Unable to read file")
			return
		}
		defer file.Close()

		in.File = file
		in.Filename = name
		in.ContentType = fileHeader.Header.Get("Content-Type")
		in.Size = fileHeader.Size
	}

	doc, err := h.Svc.Create(c.Request.Context(), user, in)
	if err != nil {
		var ie *rendering.IntegrationError
		if errors.As(err, &ie) {
			respond.Error(c, http.StatusServiceUnavailable, "Document upload failed. Please try again.")
			return
		}
		writeError(c, err, "Failed to upload document")
		return
	}
	c.Set("documentId", doc.ID)
	respond.Created(c, gin.H{"document": toResponse(doc)})
}

func (h *Handler) get(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	id := c.Param("id")
	c.Set("documentId", id)

	doc, err := h.Svc.Get(c.Request.Context(), user, id)
	if err != nil {
		writeError(c, err, "Failed to fetch document")
		return
	}
	respond.OK(c, gin.H{"document": toResponse(doc)})
}

type updateRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

func (h *Handler) update(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	id := c.Param("id")
	c.Set("documentId", id)

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	doc, err := h.Svc.Update(c.Request.Context(), user, id, UpdateInput{Title: req.Title, Author: req.Author})
	if err != nil {
		writeError(c, err, "Failed to update document")
		return
	}
	respond.OK(c, gin.H{"document": toResponse(doc)})
}

func (h *Handler) delete(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	id := c.Param("id")
	c.Set("documentId", id)

	if err := h.Svc.Delete(c.Request.Context(), user, id); err != nil {
		writeError(c, err, "Failed to delete document")
		return
	}
	respond.OK(c, gin.H{"success": true})
}

func (h *Handler) viewerSession(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	id := c.Param("id")
	c.Set("documentId", id)

	session, err := h.Svc.ViewerSession(c.Request.Context(), user, id)
	if err != nil {
		var ie *rendering.IntegrationError
		if errors.As(err, &ie) {
			respond.Error(c, http.StatusInternalServerError, "Failed to generate viewer access. Please check rendering service configuration.")
			return
		}
		writeError(c, err, "Failed to generate viewer session")
		return
	}
	respond.OK(c, ViewerSessionResponse{
		SessionToken:       session.SessionToken,
		ExternalDocumentID: session.ExternalDocumentID,
		ViewerURL:          session.ViewerURL,
	})
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "Document not found")
	case errors.Is(err, ErrTitleRequired):
		respond.Error(c, http.StatusBadRequest, "Title is required")
	case errors.Is(err, ErrFileRequired):
		respond.Error(c, http.StatusBadRequest, "File is required")
	case errors.Is(err, ErrFileTooLarge):
		respond.Error(c, http.StatusBadRequest, "File size must be less than 250MB")
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrMissingExternalID):
		respond.Error(c, http.StatusInternalServerError, "Document upload incomplete - missing external document id")
	default:
		respond.Error(c, http.StatusInternalServerError, fallback)
	}
}
