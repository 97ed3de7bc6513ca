package health

import (
	"context"
	"time"
)

// Pinger reports database connectivity.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RenderingChecker reports whether the rendering service is reachable.
type RenderingChecker interface {
	HealthCheck(ctx context.Context) bool
}

// Status is the body of the health endpoint.
type Status struct {
	OK        bool   `json:"ok"`
	Database  string `json:"database"`
	Rendering string `json:"rendering"`
}

// Service encapsulates health-related checks.
type Service struct {
	DB        Pinger
	Rendering RenderingChecker
	Timeout   time.Duration
}

// NewService constructs a health service. Either dependency may be nil.
func NewService(db Pinger, rendering RenderingChecker) *Service {
	return &Service{DB: db, Rendering: rendering, Timeout: 5 * time.Second}
}

// Status runs the checks. The process is OK when the database is usable;
// an unreachable rendering service is reported but does not fail the check.
func (s *Service) Status(ctx context.Context) Status {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	out := Status{OK: true, Database: "memory", Rendering: "unconfigured"}
	if s.DB != nil {
		if err := s.DB.PingContext(ctx); err != nil {
			out.OK = false
			out.Database = "down"
		} else {
			out.Database = "up"
		}
	}
	if s.Rendering != nil {
		if s.Rendering.HealthCheck(ctx) {
			out.Rendering = "reachable"
		} else {
			out.Rendering = "unreachable"
		}
	}
	return out
}
