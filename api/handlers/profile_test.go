package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropguard-api/core/domain"
	"cropguard-api/core/interfaces/mocks"
	"cropguard-api/core/profile"
	"cropguard-api/infrastructure/storage/memory"
)

type removedSessions struct {
	ids []string
}

func (r *removedSessions) Remove(deviceID string) {
	r.ids = append(r.ids, deviceID)
}

func newProfileAPI(t *testing.T) (humatest.TestAPI, *memory.Store, *removedSessions) {
	t.Helper()
	store := memory.NewStore()
	svc := profile.NewService(mocks.Deps(nil, nil), store)
	sessions := &removedSessions{}

	_, api := humatest.New(t)
	NewProfileHandler(svc, sessions).RegisterRoutes(api)
	return api, store, sessions
}

func decodeProfile(t *testing.T, body []byte) domain.Profile {
	t.Helper()
	var p domain.Profile
	require.NoError(t, json.Unmarshal(body, &p))
	return p
}

func TestProfileHandler_GetCreatesDefaults(t *testing.T) {
	api, _, _ := newProfileAPI(t)

	resp := api.Get("/devices/" + testDevice + "/profile")
	require.Equal(t, http.StatusOK, resp.Code)

	p := decodeProfile(t, resp.Body.Bytes())
	assert.Equal(t, testDevice, p.DeviceID)
	assert.Equal(t, domain.DefaultDisplayName, p.DisplayName)
	assert.Equal(t, domain.English, p.Language)
	assert.True(t, p.Notifications)

	assert.Equal(t, http.StatusBadRequest, api.Get("/devices/farmer-1/profile").Code)
}

func TestProfileHandler_Update(t *testing.T) {
	api, _, _ := newProfileAPI(t)

	resp := api.Patch("/devices/"+testDevice+"/profile", map[string]any{
		"displayName":   "Ramesh",
		"language":      "HI",
		"region":        "Nashik",
		"notifications": false,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	p := decodeProfile(t, resp.Body.Bytes())
	assert.Equal(t, "Ramesh", p.DisplayName)
	assert.Equal(t, domain.Hindi, p.Language)
	assert.Equal(t, "Nashik", p.Region)
	assert.False(t, p.Notifications)

	// Partial updates keep the other fields
	resp = api.Patch("/devices/"+testDevice+"/profile", map[string]any{"region": "Pune"})
	require.Equal(t, http.StatusOK, resp.Code)
	p = decodeProfile(t, resp.Body.Bytes())
	assert.Equal(t, "Ramesh", p.DisplayName)
	assert.Equal(t, "Pune", p.Region)

	resp = api.Patch("/devices/"+testDevice+"/profile", map[string]any{"language": "fr"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestProfileHandler_ResetDevice(t *testing.T) {
	api, store, sessions := newProfileAPI(t)
	ctx := context.Background()

	require.Equal(t, http.StatusOK, api.Patch("/devices/"+testDevice+"/profile", map[string]any{"region": "Pune"}).Code)
	record, err := domain.NewScanRecord(testDevice, &domain.Prediction{DiseaseID: "corn-common-rust", Confidence: 0.7})
	require.NoError(t, err)
	require.NoError(t, store.SaveScan(ctx, record, pngHeader))

	resp := api.Delete("/devices/" + testDevice)
	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, []string{testDevice}, sessions.ids)

	p, err := store.GetProfile(ctx, testDevice)
	require.NoError(t, err)
	assert.Nil(t, p)
	records, err := store.ListScans(ctx, testDevice, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, records)

	assert.Equal(t, http.StatusBadRequest, api.Delete("/devices/nope").Code)
	assert.Len(t, sessions.ids, 1)
}
