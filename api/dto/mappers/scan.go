// ABOUTME: Mappers for converting between domain models and API DTOs
// ABOUTME: Provides clean separation between business logic and API layer

package mappers

import (
	"math"

	"cropguard-api/api/dto/responses"
	"cropguard-api/core/interfaces"
)

// ToScanResponse converts a scan result to a ScanResponse DTO
func ToScanResponse(result *interfaces.ScanResult) *responses.ScanResponse {
	if result == nil || result.Record == nil {
		return nil
	}
	r := result.Record

	resp := &responses.ScanResponse{
		ID:            r.ID,
		DeviceID:      r.DeviceID,
		DiseaseID:     r.DiseaseID,
		ClassName:     r.ClassName,
		Crop:          r.Crop,
		Confidence:    r.Confidence,
		ConfidencePct: int(math.Round(r.Confidence * 100)),
		IsHealthy:     r.IsHealthy,
		DominantColor: r.DominantColor,
		ImageURL:      "/scans/" + r.ID + "/image",
		CreatedAt:     r.CreatedAt,
		Disease:       result.Disease,
	}
	if r.DominantColor != nil {
		resp.DominantHex = r.DominantColor.Hex()
	}
	return resp
}

// ToScanResponses converts scan results, skipping empty ones
func ToScanResponses(results []*interfaces.ScanResult) []responses.ScanResponse {
	out := make([]responses.ScanResponse, 0, len(results))
	for _, result := range results {
		if resp := ToScanResponse(result); resp != nil {
			out = append(out, *resp)
		}
	}
	return out
}
