// ABOUTME: Response DTOs for scans, history and statistics
// ABOUTME: A scan is returned together with its encyclopedia entry

package responses

import (
	"time"

	"cropguard-api/core/domain"
)

// ScanResponse is one scan as shown on the result and history pages
type ScanResponse struct {
	ID            string           `json:"id" doc:"Scan identifier"`
	DeviceID      string           `json:"deviceId" doc:"Device that took the photo"`
	DiseaseID     string           `json:"diseaseId" doc:"Predicted encyclopedia entry"`
	ClassName     string           `json:"className" doc:"Raw model label"`
	Crop          string           `json:"crop" doc:"Crop derived from the prediction"`
	Confidence    float64          `json:"confidence" doc:"Model confidence in [0,1]"`
	ConfidencePct int              `json:"confidencePct" doc:"Confidence as a rounded percentage"`
	IsHealthy     bool             `json:"isHealthy" doc:"Whether the leaf looks healthy"`
	DominantColor *domain.RGBColor `json:"dominantColor,omitempty" doc:"Prominent leaf colour"`
	DominantHex   string           `json:"dominantHex,omitempty" doc:"Prominent leaf colour as #rrggbb"`
	ImageURL      string           `json:"imageUrl" doc:"Path of the stored photo"`
	CreatedAt     time.Time        `json:"createdAt" doc:"When the scan was taken"`
	Disease       *domain.Disease  `json:"disease,omitempty" doc:"Encyclopedia entry with treatment and prevention"`
}

// ScanListResponse is a page of scan history
type ScanListResponse struct {
	Scans  []ScanResponse `json:"scans" doc:"Scans, newest first"`
	Limit  int            `json:"limit" doc:"Page size"`
	Offset int            `json:"offset" doc:"Offset of the first scan"`
}
