package scan

import (
	"bytes"
	"context"
	"encoding/binary"
	stderrors "errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropguard-api/core/catalog"
	"cropguard-api/core/domain"
	"cropguard-api/core/errors"
	"cropguard-api/core/interfaces/mocks"
	"cropguard-api/infrastructure/storage/memory"
	"cropguard-api/pkg/featureflags"
)

type fixture struct {
	svc   *Service
	store *memory.Store
}

func newFixture(t *testing.T, predict func() (*domain.Prediction, error), flags ...featureflags.FeatureFlag) fixture {
	t.Helper()
	cat, err := catalog.NewService()
	require.NoError(t, err)

	store := memory.NewStore()
	inference := &mocks.InferenceClient{
		PredictFunc: func(ctx context.Context, image []byte) (*domain.Prediction, error) {
			return predict()
		},
	}
	colors := &mocks.ColorExtractor{
		ExtractFunc: func(ctx context.Context, image []byte) (*domain.RGBColor, error) {
			return &domain.RGBColor{R: 10, G: 200, B: 20}, nil
		},
	}
	deps := mocks.Deps(&mocks.HTTPClient{}, mocks.NewCache(), flags...)
	return fixture{svc: NewService(deps, store, inference, cat, colors), store: store}
}

func lateBlight() (*domain.Prediction, error) {
	return &domain.Prediction{
		DiseaseID:  "tomato-late-blight",
		ClassName:  "Tomato___Late_blight",
		Confidence: 0.92,
	}, nil
}

func TestAnalyze_StoresRecordWithDisease(t *testing.T) {
	f := newFixture(t, lateBlight)
	ctx := context.Background()
	device := uuid.New().String()

	profile := domain.NewProfile(device)
	profile.Region = "Nashik"
	require.NoError(t, f.store.SaveProfile(ctx, profile))

	res, err := f.svc.Analyze(ctx, device, []byte("jpeg bytes"))
	require.NoError(t, err)

	require.NotNil(t, res.Disease)
	assert.Equal(t, "Late Blight", res.Disease.Name)
	assert.Equal(t, "tomato", res.Record.Crop)
	assert.Equal(t, "Nashik", res.Record.Region)
	assert.Nil(t, res.Record.DominantColor, "color flag is off")

	stored, err := f.store.GetScan(ctx, res.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, device, stored.DeviceID)

	img, err := f.svc.Image(ctx, res.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(img))
}

func TestAnalyze_HealthyUsesClassNameCrop(t *testing.T) {
	f := newFixture(t, func() (*domain.Prediction, error) {
		return &domain.Prediction{DiseaseID: "healthy", ClassName: "Potato___healthy", Confidence: 0.99, IsHealthy: true}, nil
	})

	res, err := f.svc.Analyze(context.Background(), uuid.New().String(), []byte("img"))
	require.NoError(t, err)
	assert.True(t, res.Record.IsHealthy)
	assert.Equal(t, "potato", res.Record.Crop)
	require.NotNil(t, res.Disease)
	assert.True(t, res.Disease.IsHealthy())
}

func TestAnalyze_UnknownDiseaseHasNoEntry(t *testing.T) {
	f := newFixture(t, func() (*domain.Prediction, error) {
		return &domain.Prediction{DiseaseID: "unknown", ClassName: "Pepper__bell___Bacterial_spot", Confidence: 0.4}, nil
	})

	res, err := f.svc.Analyze(context.Background(), uuid.New().String(), []byte("img"))
	require.NoError(t, err)
	assert.Nil(t, res.Disease)
	assert.Equal(t, "pepper", res.Record.Crop)
}

func TestAnalyze_DominantColorFlag(t *testing.T) {
	f := newFixture(t, lateBlight, featureflags.DominantColor)

	res, err := f.svc.Analyze(context.Background(), uuid.New().String(), []byte("img"))
	require.NoError(t, err)
	require.NotNil(t, res.Record.DominantColor)
	assert.Equal(t, uint8(200), res.Record.DominantColor.G)
}

func TestAnalyze_Validation(t *testing.T) {
	f := newFixture(t, lateBlight)

	_, err := f.svc.Analyze(context.Background(), "device-1", []byte("img"))
	assert.True(t, errors.IsValidation(err))

	_, err = f.svc.Analyze(context.Background(), uuid.New().String(), nil)
	assert.True(t, errors.IsValidation(err))
}

func TestAnalyze_InferenceErrorNotStored(t *testing.T) {
	f := newFixture(t, func() (*domain.Prediction, error) {
		return nil, &errors.ExternalAPIError{API: "inference", StatusCode: 502}
	})
	device := uuid.New().String()

	_, err := f.svc.Analyze(context.Background(), device, []byte("img"))
	assert.True(t, errors.IsExternalAPI(err))

	list, err := f.svc.History(context.Background(), device, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestHistoryRecentAndStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, lateBlight)
	device := uuid.New().String()

	base := time.Now().Add(-time.Hour)
	for i, healthy := range []bool{true, false, false, true, false} {
		id := uuid.New().String()
		diseaseID := "tomato-late-blight"
		if healthy {
			diseaseID = "healthy"
		}
		require.NoError(t, f.store.SaveScan(ctx, &domain.ScanRecord{
			ID:         id,
			DeviceID:   device,
			DiseaseID:  diseaseID,
			IsHealthy:  healthy,
			Confidence: 0.8,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}, []byte("img")))
	}

	history, err := f.svc.History(ctx, device, 0, 0)
	require.NoError(t, err)
	require.Len(t, history, 5)
	assert.True(t, history[0].Record.CreatedAt.After(history[4].Record.CreatedAt))
	assert.Equal(t, "tomato-late-blight", history[0].Disease.ID)

	recent, err := f.svc.Recent(ctx, device)
	require.NoError(t, err)
	assert.Len(t, recent, RecentLimit)

	stats, err := f.svc.Stats(ctx, device)
	require.NoError(t, err)
	assert.Equal(t, domain.ScanStats{TotalScans: 5, HealthyPlants: 2, DiseasesFound: 3, AvgConfidence: 80}, stats)

	_, err = f.svc.History(ctx, device, -1, 0)
	assert.True(t, errors.IsValidation(err))
}

func TestGet_NotFound(t *testing.T) {
	f := newFixture(t, lateBlight)
	_, err := f.svc.Get(context.Background(), uuid.New().String())
	assert.True(t, errors.IsNotFound(err))
}

func TestColorExtractor(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for x := 0; x < 64; x++ {
		for y := 0; y < 64; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(30 + (x+y)%15), G: uint8(140 + (x*y)%20), B: uint8(40 + x%10), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	extractor := NewColorExtractor(mocks.Deps(nil, nil))
	c, err := extractor.ExtractColor(context.Background(), buf.Bytes())
	require.NoError(t, err)
	assert.Greater(t, c.G, c.R)
	assert.Greater(t, c.G, c.B)

	_, err = extractor.ExtractColor(context.Background(), []byte("garbage"))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = extractor.ExtractColor(ctx, buf.Bytes())
	assert.True(t, stderrors.Is(err, context.Canceled))

	// a tiny file claiming huge dimensions is refused before decoding
	huge := append([]byte(nil), buf.Bytes()...)
	binary.BigEndian.PutUint32(huge[16:], 90000)
	binary.BigEndian.PutUint32(huge[20:], 90000)
	binary.BigEndian.PutUint32(huge[29:], crc32.ChecksumIEEE(huge[12:29]))
	_, err = extractor.ExtractColor(context.Background(), huge)
	assert.True(t, errors.IsValidation(err))
}
