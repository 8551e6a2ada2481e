// ABOUTME: Scan domain models for inference predictions and stored scan records
// ABOUTME: Provides validation helpers and aggregate statistics over scan history

package domain

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Identifiers the inference backend uses outside the encyclopedia
const (
	HealthyDiseaseID = "healthy"
	UnknownDiseaseID = "unknown"
)

// Prediction is the classification returned by the inference backend
type Prediction struct {
	DiseaseID  string  `json:"disease_id"`
	ClassName  string  `json:"class_name"`
	IsHealthy  bool    `json:"is_healthy"`
	Confidence float64 `json:"confidence"`
}

// Validate checks the prediction carries a usable confidence score
func (p *Prediction) Validate() error {
	if math.IsNaN(p.Confidence) || p.Confidence < 0 || p.Confidence > 1 {
		return errors.New("confidence must be within [0,1]")
	}
	if p.DiseaseID == "" {
		return errors.New("disease id is empty")
	}
	return nil
}

// ScanRecord is one persisted scan of a leaf photo
type ScanRecord struct {
	ID            string    `json:"id"`
	DeviceID      string    `json:"deviceId"`
	ImageRef      string    `json:"imageRef"`
	DiseaseID     string    `json:"diseaseId"`
	ClassName     string    `json:"className"`
	Crop          string    `json:"crop"`
	Confidence    float64   `json:"confidence"`
	IsHealthy     bool      `json:"isHealthy"`
	DominantColor *RGBColor `json:"dominantColor,omitempty"`
	Region        string    `json:"region,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NewScanRecord builds a record for a device from an inference prediction
func NewScanRecord(deviceID string, p *Prediction) (*ScanRecord, error) {
	if err := ValidateDeviceID(deviceID); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errors.New("prediction cannot be nil")
	}

	id := uuid.New().String()
	return &ScanRecord{
		ID:         id,
		DeviceID:   deviceID,
		ImageRef:   "scans/" + id,
		DiseaseID:  p.DiseaseID,
		ClassName:  p.ClassName,
		Crop:       CropFromDiseaseID(p.DiseaseID),
		Confidence: p.Confidence,
		IsHealthy:  p.IsHealthy,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// CropFromDiseaseID derives the crop from an id like "tomato-late-blight"
func CropFromDiseaseID(diseaseID string) string {
	if diseaseID == "" || diseaseID == HealthyDiseaseID || diseaseID == UnknownDiseaseID {
		return "unknown"
	}
	crop, _, _ := strings.Cut(diseaseID, "-")
	return crop
}

// CropFromClassName derives the crop from a model label like "Pepper__bell___healthy"
func CropFromClassName(className string) string {
	crop, _, found := strings.Cut(className, "_")
	if !found || crop == "" {
		return "unknown"
	}
	return strings.ToLower(crop)
}

// ValidateDeviceID checks a client generated device identifier
func ValidateDeviceID(deviceID string) error {
	if deviceID == "" {
		return errors.New("device ID cannot be empty")
	}
	if _, err := uuid.Parse(deviceID); err != nil {
		return errors.New("invalid device ID format")
	}
	return nil
}

// ScanStats summarizes the scan history of a device
type ScanStats struct {
	TotalScans    int `json:"totalScans"`
	HealthyPlants int `json:"healthyPlants"`
	DiseasesFound int `json:"diseasesFound"`
	AvgConfidence int `json:"avgConfidence"`
}

// ComputeStats aggregates scan records; AvgConfidence is a rounded percentage
func ComputeStats(records []*ScanRecord) ScanStats {
	stats := ScanStats{TotalScans: len(records)}
	if len(records) == 0 {
		return stats
	}

	var sum float64
	for _, r := range records {
		if r.IsHealthy {
			stats.HealthyPlants++
		}
		sum += r.Confidence
	}
	stats.DiseasesFound = stats.TotalScans - stats.HealthyPlants
	stats.AvgConfidence = int(math.Round(sum / float64(len(records)) * 100))
	return stats
}
