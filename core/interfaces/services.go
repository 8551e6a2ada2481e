// ABOUTME: Service interfaces for the core business logic
// ABOUTME: Defines contracts for services used by the API handlers

package interfaces

import (
	"context"

	"cropguard-api/core/domain"
)

// InferenceClient classifies leaf photos through the external model server
type InferenceClient interface {
	Predict(ctx context.Context, image []byte) (*domain.Prediction, error)
}

// ColorExtractor finds the prominent color of an image
type ColorExtractor interface {
	ExtractColor(ctx context.Context, image []byte) (*domain.RGBColor, error)
}

// ScanResult is a stored scan together with its encyclopedia entry
type ScanResult struct {
	Record  *domain.ScanRecord
	Disease *domain.Disease
}

// ScanService runs and reads leaf scans
type ScanService interface {
	Analyze(ctx context.Context, deviceID string, image []byte) (*ScanResult, error)
	History(ctx context.Context, deviceID string, limit, offset int) ([]*ScanResult, error)
	Recent(ctx context.Context, deviceID string) ([]*ScanResult, error)
	Get(ctx context.Context, id string) (*ScanResult, error)
	Image(ctx context.Context, id string) ([]byte, error)
	Stats(ctx context.Context, deviceID string) (domain.ScanStats, error)
}

// ProfileService manages device profiles
type ProfileService interface {
	Get(ctx context.Context, deviceID string) (*domain.Profile, error)
	Update(ctx context.Context, deviceID string, patch domain.ProfilePatch) (*domain.Profile, error)
	Reset(ctx context.Context, deviceID string) error
}

// CatalogService serves the static disease encyclopedia
type CatalogService interface {
	List(crop string) []domain.Disease
	Get(id string) (*domain.Disease, error)
	Crops() []domain.Crop
	Search(query string) []domain.Disease
	Resolve(p *domain.Prediction) *domain.Disease
}

// AlertService lists community alerts
type AlertService interface {
	List(ctx context.Context, deviceID string, days int) ([]domain.Alert, error)
}

// Translator resolves UI text for a language
type Translator interface {
	T(ctx context.Context, key string, lang domain.Language) string
	Bundle(ctx context.Context, lang domain.Language) map[string]string
}

// SpeechSynthesizer renders text to audio for a locale
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, locale string) ([]byte, error)
}
