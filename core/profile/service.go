// ABOUTME: Profile service keyed by the persistent device identifier
// ABOUTME: Creates default profiles on first read and applies partial updates

package profile

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"cropguard-api/core/domain"
	"cropguard-api/core/errors"
	"cropguard-api/core/interfaces"
)

const maxDisplayName = 60

// Service implements interfaces.ProfileService
type Service struct {
	deps  interfaces.Dependencies
	store interfaces.Storage
}

// NewService creates a profile service
func NewService(deps interfaces.Dependencies, store interfaces.Storage) *Service {
	return &Service{deps: deps, store: store}
}

// Get returns the device profile, creating it with defaults on first use
func (s *Service) Get(ctx context.Context, deviceID string) (*domain.Profile, error) {
	if err := domain.ValidateDeviceID(deviceID); err != nil {
		return nil, &errors.ValidationError{Field: "deviceId", Message: err.Error()}
	}

	p, err := s.store.GetProfile(ctx, deviceID)
	if err != nil {
		return nil, errors.WrapError(err, "failed to load profile")
	}
	if p != nil {
		return p, nil
	}

	p = domain.NewProfile(deviceID)
	if err := s.store.SaveProfile(ctx, p); err != nil {
		return nil, errors.WrapError(err, "failed to create profile")
	}
	s.deps.Logger.Info("Profile created", map[string]interface{}{"deviceId": deviceID})
	return p, nil
}

// Update applies the non-nil fields of patch
func (s *Service) Update(ctx context.Context, deviceID string, patch domain.ProfilePatch) (*domain.Profile, error) {
	p, err := s.Get(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	if patch.DisplayName != nil {
		name := strings.TrimSpace(*patch.DisplayName)
		if name == "" || utf8.RuneCountInString(name) > maxDisplayName {
			return nil, &errors.ValidationError{Field: "displayName", Message: "display name must be 1-60 characters"}
		}
		p.DisplayName = name
	}
	if patch.Language != nil {
		lang, ok := domain.ParseLanguage(*patch.Language)
		if !ok {
			return nil, &errors.ValidationError{Field: "language", Message: "unsupported language " + *patch.Language}
		}
		p.Language = lang
	}
	if patch.Region != nil {
		p.Region = strings.TrimSpace(*patch.Region)
	}
	if patch.Notifications != nil {
		p.Notifications = *patch.Notifications
	}

	p.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveProfile(ctx, p); err != nil {
		return nil, errors.WrapError(err, "failed to save profile")
	}
	return p, nil
}

// Reset deletes the device's profile and scan history
func (s *Service) Reset(ctx context.Context, deviceID string) error {
	if err := domain.ValidateDeviceID(deviceID); err != nil {
		return &errors.ValidationError{Field: "deviceId", Message: err.Error()}
	}
	if err := s.store.DeleteDeviceScans(ctx, deviceID); err != nil {
		return errors.WrapError(err, "failed to delete scans")
	}
	if err := s.store.DeleteProfile(ctx, deviceID); err != nil {
		return errors.WrapError(err, "failed to delete profile")
	}
	s.deps.Logger.Info("Device reset", map[string]interface{}{"deviceId": deviceID})
	return nil
}
