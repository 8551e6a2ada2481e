// ABOUTME: Profile handlers for device preferences and device reset
// ABOUTME: Resetting a device also ends its read-aloud session

package handlers

import (
	"context"
	"net/http"

	"cropguard-api/api/dto/requests"
	"cropguard-api/core/domain"
	"cropguard-api/core/interfaces"
	"github.com/danielgtaylor/huma/v2"
)

// SessionRemover ends per-device sessions
type SessionRemover interface {
	Remove(deviceID string)
}

// ProfileHandler handles profile-related HTTP requests
type ProfileHandler struct {
	profiles interfaces.ProfileService
	sessions SessionRemover
}

// NewProfileHandler creates a profile handler. sessions may be nil.
func NewProfileHandler(profiles interfaces.ProfileService, sessions SessionRemover) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, sessions: sessions}
}

// RegisterRoutes registers all profile-related routes
func (h *ProfileHandler) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getProfile",
		Method:      http.MethodGet,
		Path:        "/devices/{deviceId}/profile",
		Summary:     "Get the device profile",
		Description: "Returns the profile of a device, creating it with defaults on first use",
		Tags:        []string{"Profile"},
	}, h.GetProfile)

	huma.Register(api, huma.Operation{
		OperationID: "updateProfile",
		Method:      http.MethodPatch,
		Path:        "/devices/{deviceId}/profile",
		Summary:     "Update the device profile",
		Tags:        []string{"Profile"},
	}, h.UpdateProfile)

	huma.Register(api, huma.Operation{
		OperationID:   "resetDevice",
		Method:        http.MethodDelete,
		Path:          "/devices/{deviceId}",
		Summary:       "Reset a device",
		Description:   "Deletes the profile and scan history of a device",
		Tags:          []string{"Profile"},
		DefaultStatus: http.StatusNoContent,
	}, h.ResetDevice)
}

// ProfileOutput wraps a profile
type ProfileOutput struct {
	Body *domain.Profile
}

// GetProfile handles GET /devices/{deviceId}/profile
func (h *ProfileHandler) GetProfile(ctx context.Context, input *DeviceInput) (*ProfileOutput, error) {
	p, err := h.profiles.Get(ctx, input.DeviceID)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &ProfileOutput{Body: p}, nil
}

// UpdateProfileInput carries the profile changes
type UpdateProfileInput struct {
	DeviceInput
	Body requests.UpdateProfileRequest
}

// UpdateProfile handles PATCH /devices/{deviceId}/profile
func (h *ProfileHandler) UpdateProfile(ctx context.Context, input *UpdateProfileInput) (*ProfileOutput, error) {
	if input.Body.IsEmpty() {
		return h.GetProfile(ctx, &input.DeviceInput)
	}
	p, err := h.profiles.Update(ctx, input.DeviceID, input.Body.ToPatch())
	if err != nil {
		return nil, toHumaError(err)
	}
	return &ProfileOutput{Body: p}, nil
}

// ResetDevice handles DELETE /devices/{deviceId}
func (h *ProfileHandler) ResetDevice(ctx context.Context, input *DeviceInput) (*struct{}, error) {
	if err := h.profiles.Reset(ctx, input.DeviceID); err != nil {
		return nil, toHumaError(err)
	}
	if h.sessions != nil {
		h.sessions.Remove(input.DeviceID)
	}
	return nil, nil
}
