// ABOUTME: Scan handlers for uploading leaf photos and reading scan history
// ABOUTME: Uploads are multipart forms; results include the matching encyclopedia entry

package handlers

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"

	"cropguard-api/api/dto/mappers"
	"cropguard-api/api/dto/responses"
	"cropguard-api/core/domain"
	"cropguard-api/core/errors"
	"cropguard-api/core/interfaces"
	"github.com/danielgtaylor/huma/v2"
)

// DefaultMaxUploadBytes bounds uploads when no limit is configured
const DefaultMaxUploadBytes = 10 << 20

// ScanHandler handles scan-related HTTP requests
type ScanHandler struct {
	scans     interfaces.ScanService
	maxUpload int64
}

// NewScanHandler creates a new scan handler
func NewScanHandler(scans interfaces.ScanService, maxUploadBytes int64) *ScanHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &ScanHandler{scans: scans, maxUpload: maxUploadBytes}
}

// RegisterRoutes registers all scan-related routes
func (h *ScanHandler) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "createScan",
		Method:        http.MethodPost,
		Path:          "/scans",
		Summary:       "Scan a leaf photo",
		Description:   "Classifies an uploaded leaf photo, stores the scan and returns the disease with treatment guidance",
		Tags:          []string{"Scans"},
		MaxBodyBytes:  h.maxUpload + 64<<10,
		DefaultStatus: http.StatusCreated,
	}, h.CreateScan)

	huma.Register(api, huma.Operation{
		OperationID: "listScans",
		Method:      http.MethodGet,
		Path:        "/devices/{deviceId}/scans",
		Summary:     "Scan history",
		Description: "Lists the scans of a device, newest first",
		Tags:        []string{"Scans"},
	}, h.ListScans)

	huma.Register(api, huma.Operation{
		OperationID: "recentScans",
		Method:      http.MethodGet,
		Path:        "/devices/{deviceId}/scans/recent",
		Summary:     "Recent scans",
		Description: "Returns the latest scans shown on the home page",
		Tags:        []string{"Scans"},
	}, h.RecentScans)

	huma.Register(api, huma.Operation{
		OperationID: "scanStats",
		Method:      http.MethodGet,
		Path:        "/devices/{deviceId}/stats",
		Summary:     "Scan statistics",
		Description: "Totals, healthy and diseased counts and average confidence for a device",
		Tags:        []string{"Scans"},
	}, h.Stats)

	huma.Register(api, huma.Operation{
		OperationID: "getScan",
		Method:      http.MethodGet,
		Path:        "/scans/{scanId}",
		Summary:     "Get a scan",
		Tags:        []string{"Scans"},
	}, h.GetScan)

	huma.Register(api, huma.Operation{
		OperationID: "getScanImage",
		Method:      http.MethodGet,
		Path:        "/scans/{scanId}/image",
		Summary:     "Get the photo of a scan",
		Tags:        []string{"Scans"},
	}, h.GetImage)
}

// CreateScanInput is a multipart form with the photo in "file" and the device in "deviceId"
type CreateScanInput struct {
	RawBody multipart.Form
}

// ScanOutput wraps a single scan
type ScanOutput struct {
	Body responses.ScanResponse
}

// CreateScan handles POST /scans
func (h *ScanHandler) CreateScan(ctx context.Context, input *CreateScanInput) (*ScanOutput, error) {
	deviceID := formValue(&input.RawBody, "deviceId")

	files := input.RawBody.File["file"]
	if len(files) == 0 {
		return nil, huma.Error400BadRequest("file is required")
	}
	if files[0].Size > h.maxUpload {
		return nil, huma.NewError(http.StatusRequestEntityTooLarge, "image is too large")
	}

	f, err := files[0].Open()
	if err != nil {
		return nil, huma.Error400BadRequest("unreadable upload", err)
	}
	defer f.Close()

	image, err := io.ReadAll(io.LimitReader(f, h.maxUpload))
	if err != nil {
		return nil, huma.Error400BadRequest("unreadable upload", err)
	}

	result, err := h.scans.Analyze(ctx, deviceID, image)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &ScanOutput{Body: *mappers.ToScanResponse(result)}, nil
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// DeviceInput identifies a device in the path
type DeviceInput struct {
	DeviceID string `path:"deviceId" doc:"Persistent device identifier (UUID)"`
}

// ListScansInput pages through scan history
type ListScansInput struct {
	DeviceInput
	Limit  int `query:"limit" minimum:"1" maximum:"100" default:"20"`
	Offset int `query:"offset" minimum:"0" default:"0"`
}

// ScanListOutput wraps a page of scans
type ScanListOutput struct {
	Body responses.ScanListResponse
}

// ListScans handles GET /devices/{deviceId}/scans
func (h *ScanHandler) ListScans(ctx context.Context, input *ListScansInput) (*ScanListOutput, error) {
	if input.Limit == 0 {
		input.Limit = 20
	}

	results, err := h.scans.History(ctx, input.DeviceID, input.Limit, input.Offset)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &ScanListOutput{Body: responses.ScanListResponse{
		Scans:  mappers.ToScanResponses(results),
		Limit:  input.Limit,
		Offset: input.Offset,
	}}, nil
}

// RecentScans handles GET /devices/{deviceId}/scans/recent
func (h *ScanHandler) RecentScans(ctx context.Context, input *DeviceInput) (*ScanListOutput, error) {
	results, err := h.scans.Recent(ctx, input.DeviceID)
	if err != nil {
		return nil, toHumaError(err)
	}
	scans := mappers.ToScanResponses(results)
	return &ScanListOutput{Body: responses.ScanListResponse{Scans: scans, Limit: len(scans)}}, nil
}

// StatsOutput wraps scan statistics
type StatsOutput struct {
	Body domain.ScanStats
}

// Stats handles GET /devices/{deviceId}/stats
func (h *ScanHandler) Stats(ctx context.Context, input *DeviceInput) (*StatsOutput, error) {
	stats, err := h.scans.Stats(ctx, input.DeviceID)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &StatsOutput{Body: stats}, nil
}

// ScanIDInput identifies a scan in the path
type ScanIDInput struct {
	ScanID string `path:"scanId" doc:"Scan identifier"`
}

// GetScan handles GET /scans/{scanId}
func (h *ScanHandler) GetScan(ctx context.Context, input *ScanIDInput) (*ScanOutput, error) {
	result, err := h.scans.Get(ctx, input.ScanID)
	if err != nil {
		return nil, toHumaError(err)
	}
	resp := mappers.ToScanResponse(result)
	if resp == nil {
		return nil, toHumaError(&errors.NotFoundError{Resource: "scan", ID: input.ScanID})
	}
	return &ScanOutput{Body: *resp}, nil
}

// ImageOutput is the raw stored photo
type ImageOutput struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}

// GetImage handles GET /scans/{scanId}/image
func (h *ScanHandler) GetImage(ctx context.Context, input *ScanIDInput) (*ImageOutput, error) {
	image, err := h.scans.Image(ctx, input.ScanID)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &ImageOutput{
		ContentType:  http.DetectContentType(image),
		CacheControl: "private, max-age=86400, immutable",
		Body:         image,
	}, nil
}
