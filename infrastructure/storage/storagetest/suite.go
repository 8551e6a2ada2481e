// ABOUTME: Shared behaviour tests run against every Storage implementation
// ABOUTME: Keeps memory, sqlite and redis backends interchangeable

package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropguard-api/core/domain"
	"cropguard-api/core/errors"
	"cropguard-api/core/interfaces"
)

// Factory returns a fresh, empty store. Cleanup is registered on t.
type Factory func(t *testing.T) interfaces.Storage

func record(deviceID, diseaseID string, healthy bool, confidence float64, at time.Time) *domain.ScanRecord {
	id := uuid.New().String()
	return &domain.ScanRecord{
		ID:            id,
		DeviceID:      deviceID,
		ImageRef:      "scans/" + id,
		DiseaseID:     diseaseID,
		ClassName:     "Tomato___Late_blight",
		Crop:          domain.CropFromDiseaseID(diseaseID),
		Confidence:    confidence,
		IsHealthy:     healthy,
		DominantColor: &domain.RGBColor{R: 40, G: 120, B: 30},
		Region:        "Maharashtra",
		CreatedAt:     at.UTC().Truncate(time.Millisecond),
	}
}

// Run executes the storage behaviour suite
func Run(t *testing.T, newStore Factory) {
	t.Run("SaveAndGetScan", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		device := uuid.New().String()

		r := record(device, "tomato-late-blight", false, 0.91, time.Now())
		require.NoError(t, store.SaveScan(ctx, r, []byte{0xFF, 0xD8, 0xFF}))

		got, err := store.GetScan(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, r.DeviceID, got.DeviceID)
		assert.Equal(t, r.DiseaseID, got.DiseaseID)
		assert.Equal(t, r.Crop, got.Crop)
		assert.InDelta(t, r.Confidence, got.Confidence, 1e-9)
		assert.Equal(t, r.Region, got.Region)
		require.NotNil(t, got.DominantColor)
		assert.Equal(t, *r.DominantColor, *got.DominantColor)
		assert.True(t, r.CreatedAt.Equal(got.CreatedAt))

		img, err := store.GetImage(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, []byte{0xFF, 0xD8, 0xFF}, img)
	})

	t.Run("GetMissingScan", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.GetScan(ctx, uuid.New().String())
		assert.True(t, errors.IsNotFound(err))

		_, err = store.GetImage(ctx, uuid.New().String())
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("ListScansNewestFirstWithPaging", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		device := uuid.New().String()
		other := uuid.New().String()
		base := time.Now().Add(-time.Hour)

		var ids []string
		for i := 0; i < 5; i++ {
			r := record(device, "potato-early-blight", false, 0.8, base.Add(time.Duration(i)*time.Minute))
			require.NoError(t, store.SaveScan(ctx, r, []byte("img")))
			ids = append(ids, r.ID)
		}
		require.NoError(t, store.SaveScan(ctx, record(other, "healthy", true, 0.99, base), []byte("img")))

		all, err := store.ListScans(ctx, device, 0, 0)
		require.NoError(t, err)
		require.Len(t, all, 5)
		assert.Equal(t, ids[4], all[0].ID)
		assert.Equal(t, ids[0], all[4].ID)

		page, err := store.ListScans(ctx, device, 2, 1)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, ids[3], page[0].ID)
		assert.Equal(t, ids[2], page[1].ID)

		empty, err := store.ListScans(ctx, device, 10, 50)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("ListScansSince", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		now := time.Now()

		old := record(uuid.New().String(), "rice-blast", false, 0.7, now.Add(-10*24*time.Hour))
		recent := record(uuid.New().String(), "rice-blast", false, 0.7, now.Add(-24*time.Hour))
		require.NoError(t, store.SaveScan(ctx, old, []byte("a")))
		require.NoError(t, store.SaveScan(ctx, recent, []byte("b")))

		got, err := store.ListScansSince(ctx, now.Add(-7*24*time.Hour))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, recent.ID, got[0].ID)
	})

	t.Run("DeleteDeviceScans", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		device := uuid.New().String()
		keep := record(uuid.New().String(), "healthy", true, 0.95, time.Now())

		gone := record(device, "wheat-rust", false, 0.6, time.Now())
		require.NoError(t, store.SaveScan(ctx, gone, []byte("x")))
		require.NoError(t, store.SaveScan(ctx, keep, []byte("y")))

		require.NoError(t, store.DeleteDeviceScans(ctx, device))

		list, err := store.ListScans(ctx, device, 0, 0)
		require.NoError(t, err)
		assert.Empty(t, list)
		_, err = store.GetImage(ctx, gone.ID)
		assert.True(t, errors.IsNotFound(err))

		_, err = store.GetScan(ctx, keep.ID)
		assert.NoError(t, err)
	})

	t.Run("Profiles", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		device := uuid.New().String()

		missing, err := store.GetProfile(ctx, device)
		require.NoError(t, err)
		assert.Nil(t, missing)

		p := domain.NewProfile(device)
		p.DisplayName = "Savita"
		p.Language = domain.Marathi
		p.Region = "Pune"
		p.Notifications = false
		p.CreatedAt = p.CreatedAt.Truncate(time.Millisecond)
		p.UpdatedAt = p.UpdatedAt.Truncate(time.Millisecond)
		require.NoError(t, store.SaveProfile(ctx, p))

		got, err := store.GetProfile(ctx, device)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Savita", got.DisplayName)
		assert.Equal(t, domain.Marathi, got.Language)
		assert.Equal(t, "Pune", got.Region)
		assert.False(t, got.Notifications)
		assert.True(t, p.CreatedAt.Equal(got.CreatedAt))

		p.DisplayName = "Savita T."
		require.NoError(t, store.SaveProfile(ctx, p))
		got, err = store.GetProfile(ctx, device)
		require.NoError(t, err)
		assert.Equal(t, "Savita T.", got.DisplayName)

		require.NoError(t, store.DeleteProfile(ctx, device))
		require.NoError(t, store.DeleteProfile(ctx, device))
		got, err = store.GetProfile(ctx, device)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
