// ABOUTME: Profile domain model keyed by the persistent device identifier
// ABOUTME: Holds display preferences such as language, region and notifications

package domain

import "time"

// DefaultDisplayName is used for profiles created implicitly
const DefaultDisplayName = "Farmer"

// Profile holds per-device preferences
type Profile struct {
	DeviceID      string    `json:"deviceId"`
	DisplayName   string    `json:"displayName"`
	Language      Language  `json:"language"`
	Region        string    `json:"region,omitempty"`
	Notifications bool      `json:"notifications"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NewProfile creates a profile with defaults for a device
func NewProfile(deviceID string) *Profile {
	now := time.Now().UTC()
	return &Profile{
		DeviceID:      deviceID,
		DisplayName:   DefaultDisplayName,
		Language:      DefaultLanguage,
		Notifications: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// ProfilePatch carries optional profile updates
type ProfilePatch struct {
	DisplayName   *string
	Language      *string
	Region        *string
	Notifications *bool
}
