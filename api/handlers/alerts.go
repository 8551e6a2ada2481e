// ABOUTME: Community alert handler
// ABOUTME: Alerts are derived from recent diseased scans plus optional advisory feeds

package handlers

import (
	"context"
	"net/http"

	"cropguard-api/core/domain"
	"cropguard-api/core/interfaces"
	"github.com/danielgtaylor/huma/v2"
)

// AlertsHandler serves community alerts
type AlertsHandler struct {
	alerts interfaces.AlertService
}

// NewAlertsHandler creates an alerts handler
func NewAlertsHandler(alerts interfaces.AlertService) *AlertsHandler {
	return &AlertsHandler{alerts: alerts}
}

// RegisterRoutes registers the alerts route
func (h *AlertsHandler) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listAlerts",
		Method:      http.MethodGet,
		Path:        "/alerts",
		Summary:     "Community alerts",
		Description: "Disease outbreaks reported by nearby scans, most severe first",
		Tags:        []string{"Alerts"},
	}, h.ListAlerts)
}

// ListAlertsInput scopes the alert window
type ListAlertsInput struct {
	DeviceID string `query:"deviceId" doc:"Scope community alerts to this device's region"`
	Days     int    `query:"days" minimum:"0" maximum:"90" doc:"Days of scans considered; 0 uses the server default"`
}

// AlertsOutput wraps the alert list
type AlertsOutput struct {
	Body struct {
		Alerts []domain.Alert `json:"alerts"`
	}
}

// ListAlerts handles GET /alerts
func (h *AlertsHandler) ListAlerts(ctx context.Context, input *ListAlertsInput) (*AlertsOutput, error) {
	alerts, err := h.alerts.List(ctx, input.DeviceID, input.Days)
	if err != nil {
		return nil, toHumaError(err)
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	out := &AlertsOutput{}
	out.Body.Alerts = alerts
	return out, nil
}
