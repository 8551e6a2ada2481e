// ABOUTME: Encyclopedia handlers listing diseases and crops
// ABOUTME: Diseases can be filtered by crop and searched by name or symptom

package handlers

import (
	"context"
	"net/http"
	"strings"

	"cropguard-api/core/domain"
	"cropguard-api/core/interfaces"
	"github.com/danielgtaylor/huma/v2"
)

// CatalogHandler serves the disease encyclopedia
type CatalogHandler struct {
	catalog interfaces.CatalogService
}

// NewCatalogHandler creates a catalog handler
func NewCatalogHandler(catalog interfaces.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// RegisterRoutes registers the encyclopedia routes
func (h *CatalogHandler) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listDiseases",
		Method:      http.MethodGet,
		Path:        "/diseases",
		Summary:     "List diseases",
		Description: "Lists encyclopedia entries, optionally for one crop or matching a search",
		Tags:        []string{"Encyclopedia"},
	}, h.ListDiseases)

	huma.Register(api, huma.Operation{
		OperationID: "getDisease",
		Method:      http.MethodGet,
		Path:        "/diseases/{diseaseId}",
		Summary:     "Get a disease",
		Tags:        []string{"Encyclopedia"},
	}, h.GetDisease)

	huma.Register(api, huma.Operation{
		OperationID: "listCrops",
		Method:      http.MethodGet,
		Path:        "/crops",
		Summary:     "List crops",
		Tags:        []string{"Encyclopedia"},
	}, h.ListCrops)
}

// ListDiseasesInput filters the encyclopedia
type ListDiseasesInput struct {
	Crop  string `query:"crop" doc:"Crop id such as tomato"`
	Query string `query:"q" maxLength:"100" doc:"Search text matched against names and symptoms"`
}

// DiseasesOutput wraps a list of diseases
type DiseasesOutput struct {
	Body struct {
		Diseases []domain.Disease `json:"diseases"`
		Total    int              `json:"total"`
	}
}

// ListDiseases handles GET /diseases
func (h *CatalogHandler) ListDiseases(ctx context.Context, input *ListDiseasesInput) (*DiseasesOutput, error) {
	crop := strings.ToLower(strings.TrimSpace(input.Crop))

	var diseases []domain.Disease
	if q := strings.TrimSpace(input.Query); q != "" {
		for _, d := range h.catalog.Search(q) {
			if crop == "" || d.Crop == crop {
				diseases = append(diseases, d)
			}
		}
	} else {
		diseases = h.catalog.List(crop)
	}
	if diseases == nil {
		diseases = []domain.Disease{}
	}

	out := &DiseasesOutput{}
	out.Body.Diseases = diseases
	out.Body.Total = len(diseases)
	return out, nil
}

// DiseaseIDInput identifies a disease in the path
type DiseaseIDInput struct {
	DiseaseID string `path:"diseaseId" doc:"Disease id such as tomato-late-blight"`
}

// DiseaseOutput wraps a disease
type DiseaseOutput struct {
	Body *domain.Disease
}

// GetDisease handles GET /diseases/{diseaseId}
func (h *CatalogHandler) GetDisease(ctx context.Context, input *DiseaseIDInput) (*DiseaseOutput, error) {
	d, err := h.catalog.Get(input.DiseaseID)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &DiseaseOutput{Body: d}, nil
}

// CropsOutput wraps the crop list
type CropsOutput struct {
	Body struct {
		Crops []domain.Crop `json:"crops"`
	}
}

// ListCrops handles GET /crops
func (h *CatalogHandler) ListCrops(ctx context.Context, input *struct{}) (*CropsOutput, error) {
	out := &CropsOutput{}
	out.Body.Crops = h.catalog.Crops()
	return out, nil
}
