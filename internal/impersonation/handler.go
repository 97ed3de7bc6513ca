package impersonation

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docviewer-backend/internal/shared/server/middleware"
	"docviewer-backend/internal/shared/server/respond"
	"docviewer-backend/internal/shared/telemetry"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the impersonation routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/user/impersonation-mode", h.get)
	rg.POST("/user/impersonation-mode", h.set)
}

func (h *Handler) get(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	respond.JSON(c, http.StatusOK, h.Svc.GetMode(user))
}

type setModeRequest struct {
	Mode string `json:"mode"`
}

func (h *Handler) set(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req setModeRequest
	// A malformed body leaves Mode empty; the service still checks the role first.
	_ = c.ShouldBindJSON(&req)

	projection, err := h.Svc.SetMode(c.Request.Context(), user, req.Mode)
	if err != nil {
		switch {
		case errors.Is(err, ErrPermissionDenied):
			respond.Error(c, http.StatusForbidden, "Only admins can change impersonation mode")
		case errors.Is(err, ErrInvalidMode):
			respond.Error(c, http.StatusBadRequest, "Invalid impersonation mode")
		default:
			telemetry.Error("impersonation.set_failed", map[string]any{"user_id": user.ID, "error": err})
			respond.Error(c, http.StatusInternalServerError, "Failed to update impersonation mode")
		}
		return
	}

	telemetry.Info("impersonation.mode_changed", map[string]any{
		"user_id": user.ID,
		"mode":    projection.CurrentImpersonationMode,
	})
	respond.JSON(c, http.StatusOK, gin.H{
		"success": true,
		"user":    projection,
	})
}
