// ABOUTME: Request DTOs for device profile endpoints
// ABOUTME: Every field is optional so clients send only what changed

package requests

import "cropguard-api/core/domain"

// UpdateProfileRequest is the body of PATCH /devices/{deviceId}/profile
type UpdateProfileRequest struct {
	DisplayName   *string `json:"displayName,omitempty" maxLength:"60" doc:"Name shown on the profile page"`
	Language      *string `json:"language,omitempty" doc:"UI language code (en, hi, bn, te, mr, ta)"`
	Region        *string `json:"region,omitempty" maxLength:"64" doc:"Farming region used to scope community alerts"`
	Notifications *bool   `json:"notifications,omitempty" doc:"Whether outbreak notifications are wanted"`
}

// ToPatch converts the request into a domain patch
func (r *UpdateProfileRequest) ToPatch() domain.ProfilePatch {
	return domain.ProfilePatch{
		DisplayName:   r.DisplayName,
		Language:      r.Language,
		Region:        r.Region,
		Notifications: r.Notifications,
	}
}

// IsEmpty reports whether the request changes nothing
func (r *UpdateProfileRequest) IsEmpty() bool {
	return r.DisplayName == nil && r.Language == nil && r.Region == nil && r.Notifications == nil
}
