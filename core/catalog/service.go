// ABOUTME: Static disease encyclopedia served from an embedded JSON document
// ABOUTME: Lists, looks up and searches diseases and resolves inference predictions

package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"cropguard-api/core/domain"
	"cropguard-api/core/errors"
)

//go:embed data/diseases.json
var embedded []byte

type document struct {
	Diseases []domain.Disease `json:"diseases"`
	Crops    []domain.Crop    `json:"crops"`
	Healthy  domain.Disease   `json:"healthy"`
}

// Service implements interfaces.CatalogService. It is read-only after construction.
type Service struct {
	diseases []domain.Disease
	byID     map[string]int
	crops    []domain.Crop
	healthy  domain.Disease
}

// NewService loads the embedded encyclopedia
func NewService() (*Service, error) {
	return Load(embedded)
}

// Load builds a catalog from a JSON document
func Load(raw []byte) (*Service, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse disease catalog: %w", err)
	}

	s := &Service{
		diseases: doc.Diseases,
		byID:     make(map[string]int, len(doc.Diseases)),
		crops:    doc.Crops,
		healthy:  doc.Healthy,
	}
	for i, d := range doc.Diseases {
		if _, dup := s.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate disease id %q", d.ID)
		}
		s.byID[d.ID] = i
	}
	sort.SliceStable(s.crops, func(i, j int) bool { return s.crops[i].ID < s.crops[j].ID })

	return s, nil
}

// List returns every disease, or those of one crop when crop is set
func (s *Service) List(crop string) []domain.Disease {
	crop = strings.ToLower(strings.TrimSpace(crop))
	out := make([]domain.Disease, 0, len(s.diseases))
	for _, d := range s.diseases {
		if crop == "" || d.Crop == crop {
			out = append(out, d)
		}
	}
	return out
}

// Get returns one disease by ID
func (s *Service) Get(id string) (*domain.Disease, error) {
	if id == domain.HealthyDiseaseID {
		h := s.healthy
		return &h, nil
	}
	i, ok := s.byID[id]
	if !ok {
		return nil, &errors.NotFoundError{Resource: "disease", ID: id}
	}
	d := s.diseases[i]
	return &d, nil
}

// Crops returns the crops sorted by ID
func (s *Service) Crops() []domain.Crop {
	out := make([]domain.Crop, len(s.crops))
	copy(out, s.crops)
	return out
}

// Search matches the query against names, crop and symptoms, case-insensitively
func (s *Service) Search(query string) []domain.Disease {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return s.List("")
	}

	out := []domain.Disease{}
	for _, d := range s.diseases {
		if matches(d, q) {
			out = append(out, d)
		}
	}
	return out
}

func matches(d domain.Disease, q string) bool {
	if strings.Contains(strings.ToLower(d.Name), q) ||
		strings.Contains(d.NameHindi, q) ||
		strings.Contains(d.Crop, q) {
		return true
	}
	for _, symptom := range d.Symptoms {
		if strings.Contains(strings.ToLower(symptom), q) {
			return true
		}
	}
	return false
}

// Resolve maps a prediction to its encyclopedia entry. Healthy predictions
// resolve to the generic healthy entry; unknown or unmapped ids return nil.
func (s *Service) Resolve(p *domain.Prediction) *domain.Disease {
	if p == nil {
		return nil
	}
	if p.IsHealthy || p.DiseaseID == domain.HealthyDiseaseID {
		h := s.healthy
		return &h
	}
	if i, ok := s.byID[p.DiseaseID]; ok {
		d := s.diseases[i]
		return &d
	}
	return nil
}
