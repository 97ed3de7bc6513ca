package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docviewer-backend/internal/shared/server/middleware"
	"docviewer-backend/internal/shared/server/respond"
	"docviewer-backend/internal/users"
)

type meResponse struct {
	ID                       string                  `json:"id"`
	Email                    string                  `json:"email"`
	Name                     string                  `json:"name,omitempty"`
	Image                    string                  `json:"image,omitempty"`
	Role                     users.Role              `json:"role"`
	CurrentImpersonationMode users.ImpersonationMode `json:"currentImpersonationMode"`
}

// registerMeRoutes attaches the /me endpoint.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", meHandler)
}

func meHandler(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	mode := user.CurrentImpersonationMode
	if mode == "" {
		mode = users.ModeSelf
	}
	respond.JSON(c, http.StatusOK, meResponse{
		ID:                       user.ID,
		Email:                    user.Email,
		Name:                     user.Name,
		Image:                    user.ImageURL,
		Role:                     user.Role,
		CurrentImpersonationMode: mode,
	})
}
