// ABOUTME: Alert domain model for community disease reports and advisories
// ABOUTME: Alerts aggregate nearby diseased scans or external advisory feed items

package domain

import "time"

// Alert sources
const (
	AlertSourceCommunity = "community"
	AlertSourceAdvisory  = "advisory"
)

// Alert is a disease outbreak notice shown on the alerts page
type Alert struct {
	ID        string    `json:"id"`
	DiseaseID string    `json:"diseaseId,omitempty"`
	Disease   string    `json:"disease"`
	Crop      string    `json:"crop,omitempty"`
	Severity  Severity  `json:"severity,omitempty"`
	Count     int       `json:"count"`
	Region    string    `json:"region,omitempty"`
	LatestAt  time.Time `json:"latestAt"`
	Source    string    `json:"source"`
	Link      string    `json:"link,omitempty"`
	Summary   string    `json:"summary,omitempty"`
}
