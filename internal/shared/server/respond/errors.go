package respond

import (
	"github.com/gin-gonic/gin"

	"docviewer-backend/internal/shared/telemetry"
)

// ErrorResponse is the flat error body every endpoint returns.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Error logs and sends an error response. Messages are user-facing; internal
// details belong in the log fields, never in message.
func Error(c *gin.Context, status int, message string) {
	fields := map[string]any{
		"status":     status,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	if status >= 500 {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: message})
}
