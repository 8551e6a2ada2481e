package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropguard-api/core/domain"
	"cropguard-api/core/errors"
)

func newCatalog(t *testing.T) *Service {
	t.Helper()
	s, err := NewService()
	require.NoError(t, err)
	return s
}

func TestNewService_LoadsEmbeddedData(t *testing.T) {
	s := newCatalog(t)

	assert.Len(t, s.List(""), 38)
	assert.Len(t, s.Crops(), 13)

	for _, crop := range s.Crops() {
		for _, id := range crop.DiseaseIDs {
			d, err := s.Get(id)
			require.NoError(t, err, "crop %s references %s", crop.ID, id)
			assert.Equal(t, crop.ID, d.Crop)
		}
	}
}

func TestLoad_RejectsBadDocuments(t *testing.T) {
	_, err := Load([]byte("{"))
	assert.Error(t, err)

	_, err = Load([]byte(`{"diseases":[{"id":"a"},{"id":"a"}]}`))
	assert.Error(t, err)
}

func TestList_FiltersByCrop(t *testing.T) {
	s := newCatalog(t)

	tomato := s.List("Tomato")
	require.NotEmpty(t, tomato)
	for _, d := range tomato {
		assert.Equal(t, "tomato", d.Crop)
	}
	assert.Empty(t, s.List("banana"))
}

func TestGet(t *testing.T) {
	s := newCatalog(t)

	d, err := s.Get("tomato-late-blight")
	require.NoError(t, err)
	assert.Equal(t, "Late Blight", d.Name)
	assert.Equal(t, domain.SeverityHigh, d.Severity)

	healthy, err := s.Get("healthy")
	require.NoError(t, err)
	assert.True(t, healthy.IsHealthy())

	_, err = s.Get("tomato-frostbite")
	assert.True(t, errors.IsNotFound(err))
}

func TestSearch(t *testing.T) {
	s := newCatalog(t)

	blights := s.Search("BLIGHT")
	require.NotEmpty(t, blights)
	ids := make([]string, 0, len(blights))
	for _, d := range blights {
		ids = append(ids, d.ID)
	}
	assert.Contains(t, ids, "potato-late-blight")

	hindi := s.Search("पछेती")
	require.NotEmpty(t, hindi)
	assert.Equal(t, "tomato-late-blight", hindi[0].ID)

	assert.Len(t, s.Search("  "), 38)
	assert.Empty(t, s.Search("zzzz-no-match"))
}

func TestResolve(t *testing.T) {
	s := newCatalog(t)

	tests := []struct {
		name   string
		p      *domain.Prediction
		wantID string
	}{
		{"mapped disease", &domain.Prediction{DiseaseID: "tomato-leaf-mold"}, "tomato-leaf-mold"},
		{"healthy id", &domain.Prediction{DiseaseID: "healthy", IsHealthy: true}, "healthy"},
		{"healthy flag", &domain.Prediction{DiseaseID: "unknown", IsHealthy: true}, "healthy"},
		{"unknown", &domain.Prediction{DiseaseID: "unknown"}, ""},
		{"unmapped", &domain.Prediction{DiseaseID: "rice-blast"}, ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Resolve(tt.p)
			if tt.wantID == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}
