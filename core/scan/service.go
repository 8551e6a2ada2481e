// ABOUTME: Scan service runs leaf photos through inference and records the outcome
// ABOUTME: Serves per-device scan history, images and aggregate statistics

package scan

import (
	"context"
	"time"

	"cropguard-api/core/domain"
	"cropguard-api/core/errors"
	"cropguard-api/core/interfaces"
	"cropguard-api/pkg/featureflags"
)

// RecentLimit is how many scans the home screen shows
const RecentLimit = 3

const colorTimeout = 3 * time.Second

// Service implements interfaces.ScanService
type Service struct {
	deps      interfaces.Dependencies
	store     interfaces.Storage
	inference interfaces.InferenceClient
	catalog   interfaces.CatalogService
	colors    interfaces.ColorExtractor
}

// NewService creates a scan service. colors may be nil.
func NewService(deps interfaces.Dependencies, store interfaces.Storage, inference interfaces.InferenceClient,
	catalog interfaces.CatalogService, colors interfaces.ColorExtractor) *Service {
	return &Service{
		deps:      deps,
		store:     store,
		inference: inference,
		catalog:   catalog,
		colors:    colors,
	}
}

// Analyze classifies an image for a device and persists the scan
func (s *Service) Analyze(ctx context.Context, deviceID string, image []byte) (*interfaces.ScanResult, error) {
	if err := domain.ValidateDeviceID(deviceID); err != nil {
		return nil, &errors.ValidationError{Field: "deviceId", Message: err.Error()}
	}
	if len(image) == 0 {
		return nil, &errors.ValidationError{Field: "file", Message: "image is required"}
	}

	prediction, err := s.inference.Predict(ctx, image)
	if err != nil {
		s.deps.Logger.Warn("Inference failed", map[string]interface{}{
			"deviceId": deviceID,
			"error":    err.Error(),
		})
		return nil, err
	}

	record, err := domain.NewScanRecord(deviceID, prediction)
	if err != nil {
		return nil, &errors.ValidationError{Field: "deviceId", Message: err.Error()}
	}

	disease := s.catalog.Resolve(prediction)
	switch {
	case disease != nil && disease.Crop != "":
		record.Crop = disease.Crop
	case record.Crop == "unknown":
		record.Crop = domain.CropFromClassName(prediction.ClassName)
	}

	if profile, err := s.store.GetProfile(ctx, deviceID); err == nil && profile != nil {
		record.Region = profile.Region
	}

	if s.colors != nil && s.deps.Enabled(ctx, featureflags.DominantColor) {
		colorCtx, cancel := context.WithTimeout(ctx, colorTimeout)
		color, err := s.colors.ExtractColor(colorCtx, image)
		cancel()
		if err != nil {
			s.deps.Logger.Debug("Dominant color unavailable", map[string]interface{}{
				"scanId": record.ID,
				"error":  err.Error(),
			})
		} else {
			record.DominantColor = color
		}
	}

	if err := s.store.SaveScan(ctx, record, image); err != nil {
		return nil, errors.WrapError(err, "failed to save scan")
	}

	s.deps.Logger.Info("Scan stored", map[string]interface{}{
		"scanId":     record.ID,
		"deviceId":   deviceID,
		"diseaseId":  record.DiseaseID,
		"confidence": record.Confidence,
	})

	return &interfaces.ScanResult{Record: record, Disease: disease}, nil
}

// History lists a device's scans newest first
func (s *Service) History(ctx context.Context, deviceID string, limit, offset int) ([]*interfaces.ScanResult, error) {
	if err := domain.ValidateDeviceID(deviceID); err != nil {
		return nil, &errors.ValidationError{Field: "deviceId", Message: err.Error()}
	}
	if limit < 0 || offset < 0 {
		return nil, &errors.ValidationError{Field: "limit", Message: "limit and offset cannot be negative"}
	}

	records, err := s.store.ListScans(ctx, deviceID, limit, offset)
	if err != nil {
		return nil, errors.WrapError(err, "failed to list scans")
	}
	return s.withDiseases(records), nil
}

// Recent returns the latest few scans of a device
func (s *Service) Recent(ctx context.Context, deviceID string) ([]*interfaces.ScanResult, error) {
	return s.History(ctx, deviceID, RecentLimit, 0)
}

// Get returns one scan with its disease
func (s *Service) Get(ctx context.Context, id string) (*interfaces.ScanResult, error) {
	record, err := s.store.GetScan(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withDisease(record), nil
}

// Image returns the stored photo of a scan
func (s *Service) Image(ctx context.Context, id string) ([]byte, error) {
	return s.store.GetImage(ctx, id)
}

// Stats aggregates a device's whole scan history
func (s *Service) Stats(ctx context.Context, deviceID string) (domain.ScanStats, error) {
	if err := domain.ValidateDeviceID(deviceID); err != nil {
		return domain.ScanStats{}, &errors.ValidationError{Field: "deviceId", Message: err.Error()}
	}
	records, err := s.store.ListScans(ctx, deviceID, 0, 0)
	if err != nil {
		return domain.ScanStats{}, errors.WrapError(err, "failed to list scans")
	}
	return domain.ComputeStats(records), nil
}

func (s *Service) withDiseases(records []*domain.ScanRecord) []*interfaces.ScanResult {
	out := make([]*interfaces.ScanResult, 0, len(records))
	for _, r := range records {
		out = append(out, s.withDisease(r))
	}
	return out
}

func (s *Service) withDisease(r *domain.ScanRecord) *interfaces.ScanResult {
	return &interfaces.ScanResult{
		Record: r,
		Disease: s.catalog.Resolve(&domain.Prediction{
			DiseaseID: r.DiseaseID,
			IsHealthy: r.IsHealthy,
		}),
	}
}
