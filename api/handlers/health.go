// ABOUTME: Health check handler reporting service and dependency status
// ABOUTME: The model server is probed so clients can tell when scanning is down

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// HealthChecker probes a dependency
type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

// HealthHandler serves GET /health
type HealthHandler struct {
	version   string
	inference HealthChecker
	started   time.Time
}

// NewHealthHandler creates a health handler. inference may be nil.
func NewHealthHandler(version string, inference HealthChecker) *HealthHandler {
	return &HealthHandler{version: version, inference: inference, started: time.Now()}
}

// RegisterRoutes registers the health route
func (h *HealthHandler) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Service health",
		Description: "Reports whether the service is up and whether the model server answers",
		Tags:        []string{"Health"},
	}, h.Health)
}

// HealthOutput is the health response
type HealthOutput struct {
	Body struct {
		Status    string `json:"status" enum:"ok,degraded" doc:"ok when every dependency answers"`
		Version   string `json:"version"`
		Inference string `json:"inference" enum:"up,down,unconfigured" doc:"Model server status"`
		Uptime    string `json:"uptime"`
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(ctx context.Context, input *struct{}) (*HealthOutput, error) {
	out := &HealthOutput{}
	out.Body.Status = "ok"
	out.Body.Version = h.version
	out.Body.Uptime = time.Since(h.started).Round(time.Second).String()

	switch {
	case h.inference == nil:
		out.Body.Inference = "unconfigured"
	case h.inference.Healthy(ctx):
		out.Body.Inference = "up"
	default:
		out.Body.Inference = "down"
		out.Body.Status = "degraded"
	}
	return out, nil
}
