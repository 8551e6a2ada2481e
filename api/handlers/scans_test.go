package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropguard-api/api/dto/responses"
	"cropguard-api/core/catalog"
	"cropguard-api/core/domain"
	"cropguard-api/core/errors"
	"cropguard-api/core/interfaces/mocks"
	"cropguard-api/core/scan"
	"cropguard-api/infrastructure/storage/memory"
)

const testDevice = "8b0f6c1e-2d4a-4c3b-9e5f-7a6d5c4b3a21"

// pngHeader is enough for content sniffing
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newScanAPI(t *testing.T, predict func(ctx context.Context, image []byte) (*domain.Prediction, error)) (humatest.TestAPI, *memory.Store) {
	t.Helper()
	cat, err := catalog.NewService()
	require.NoError(t, err)

	store := memory.NewStore()
	deps := mocks.Deps(&mocks.HTTPClient{}, mocks.NewCache())
	svc := scan.NewService(deps, store, &mocks.InferenceClient{PredictFunc: predict}, cat, nil)

	_, api := humatest.New(t)
	NewScanHandler(svc, 1<<20).RegisterRoutes(api)
	return api, store
}

func lateBlight(ctx context.Context, image []byte) (*domain.Prediction, error) {
	return &domain.Prediction{DiseaseID: "tomato-late-blight", ClassName: "Tomato___Late_blight", Confidence: 0.876}, nil
}

func uploadForm(t *testing.T, deviceID string, image []byte) (string, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if deviceID != "" {
		require.NoError(t, w.WriteField("deviceId", deviceID))
	}
	if image != nil {
		part, err := w.CreateFormFile("file", "leaf.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return "Content-Type: " + w.FormDataContentType(), &buf
}

func TestScanHandler_CreateScan(t *testing.T) {
	api, store := newScanAPI(t, lateBlight)

	header, body := uploadForm(t, testDevice, pngHeader)
	resp := api.Post("/scans", header, body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var got responses.ScanResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Equal(t, testDevice, got.DeviceID)
	assert.Equal(t, "tomato-late-blight", got.DiseaseID)
	assert.Equal(t, "tomato", got.Crop)
	assert.Equal(t, 88, got.ConfidencePct)
	assert.Equal(t, "/scans/"+got.ID+"/image", got.ImageURL)
	require.NotNil(t, got.Disease)
	assert.Equal(t, "Late Blight", got.Disease.Name)
	assert.NotEmpty(t, got.Disease.Treatment)

	image, err := store.GetImage(context.Background(), got.ID)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, image)
}

func TestScanHandler_CreateScanRejectsBadUploads(t *testing.T) {
	api, _ := newScanAPI(t, lateBlight)

	header, body := uploadForm(t, testDevice, nil)
	assert.Equal(t, http.StatusBadRequest, api.Post("/scans", header, body).Code, "missing file")

	header, body = uploadForm(t, "not-a-uuid", pngHeader)
	assert.Equal(t, http.StatusBadRequest, api.Post("/scans", header, body).Code, "bad device")

	header, body = uploadForm(t, testDevice, bytes.Repeat([]byte{1}, 2<<20))
	assert.GreaterOrEqual(t, api.Post("/scans", header, body).Code, 400, "oversized image")
}

func TestScanHandler_CreateScanInferenceDown(t *testing.T) {
	api, store := newScanAPI(t, func(ctx context.Context, image []byte) (*domain.Prediction, error) {
		return nil, &errors.ExternalAPIError{API: "inference", StatusCode: 502, Message: "bad gateway"}
	})

	header, body := uploadForm(t, testDevice, pngHeader)
	resp := api.Post("/scans", header, body)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)

	records, err := store.ListScans(context.Background(), testDevice, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestScanHandler_HistoryStatsAndImage(t *testing.T) {
	api, _ := newScanAPI(t, lateBlight)

	var ids []string
	for i := 0; i < 4; i++ {
		header, body := uploadForm(t, testDevice, pngHeader)
		resp := api.Post("/scans", header, body)
		require.Equal(t, http.StatusCreated, resp.Code)
		var got responses.ScanResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
		ids = append(ids, got.ID)
	}

	resp := api.Get("/devices/" + testDevice + "/scans?limit=2&offset=1")
	require.Equal(t, http.StatusOK, resp.Code)
	var page responses.ScanListResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &page))
	assert.Len(t, page.Scans, 2)
	assert.Equal(t, 2, page.Limit)
	assert.Equal(t, 1, page.Offset)

	resp = api.Get("/devices/" + testDevice + "/scans/recent")
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &page))
	assert.Len(t, page.Scans, scan.RecentLimit)

	resp = api.Get("/devices/" + testDevice + "/stats")
	require.Equal(t, http.StatusOK, resp.Code)
	var stats domain.ScanStats
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &stats))
	assert.Equal(t, domain.ScanStats{TotalScans: 4, DiseasesFound: 4, AvgConfidence: 88}, stats)

	resp = api.Get("/scans/" + ids[0])
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = api.Get("/scans/" + ids[0] + "/image")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "image/png", resp.Header().Get("Content-Type"))
	assert.Equal(t, pngHeader, resp.Body.Bytes())

	assert.Equal(t, http.StatusNotFound, api.Get("/scans/missing").Code)
	assert.Equal(t, http.StatusNotFound, api.Get("/scans/missing/image").Code)
	assert.Equal(t, http.StatusBadRequest, api.Get("/devices/nope/stats").Code)
}
