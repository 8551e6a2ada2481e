// ABOUTME: Disease encyclopedia domain models
// ABOUTME: Defines diseases, crops and severity levels served by the catalog

package domain

import "strings"

// Severity describes how damaging a disease is
type Severity string

// Severity levels
const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities so that higher is worse
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Disease is an encyclopedia entry with treatment and prevention guidance
type Disease struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	NameHindi   string   `json:"nameHindi"`
	Crop        string   `json:"crop"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Symptoms    []string `json:"symptoms"`
	Treatment   []string `json:"treatment"`
	Prevention  []string `json:"prevention"`
	ImageURL    string   `json:"imageUrl,omitempty"`
}

// IsHealthy reports whether the entry describes a healthy plant
func (d *Disease) IsHealthy() bool {
	return d != nil && (d.ID == HealthyDiseaseID || strings.HasSuffix(d.ID, "-healthy"))
}

// Crop groups the encyclopedia entries of one crop
type Crop struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	NameHindi  string   `json:"nameHindi"`
	Icon       string   `json:"icon"`
	DiseaseIDs []string `json:"diseaseIds"`
}

