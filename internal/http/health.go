package http

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrNotReady is returned by a check whose component is still being initialized.
var ErrNotReady = errors.New("not ready")

// Check probes one component.
type Check func(ctx context.Context) error

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// HealthController serves /health from a set of named checks.
type HealthController struct {
	checks  map[string]Check
	version string
	timeout time.Duration
}

func NewHealthController(checks map[string]Check, version string) *HealthController {
	return &HealthController{
		checks:  checks,
		version: version,
		timeout: 2 * time.Second,
	}
}

// Status runs every check. A component that is not ready yet does not make
// the process unhealthy; the renderer follows startup through init status.
func (h *HealthController) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	status := "healthy"
	for _, name := range names {
		err := h.checks[name](ctx)
		switch {
		case err == nil:
			checks[name] = "ok"
		case errors.Is(err, ErrNotReady):
			checks[name] = "initializing"
		default:
			checks[name] = "error: " + err.Error()
			status = "unhealthy"
		}
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}
