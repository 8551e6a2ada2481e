// ABOUTME: Community alert service aggregating recent diseased scans by disease and region
// ABOUTME: Optionally merges agricultural advisory RSS/Atom feeds parsed with gofeed

package alerts

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"cropguard-api/core/domain"
	"cropguard-api/core/errors"
	"cropguard-api/core/interfaces"
	"cropguard-api/pkg/featureflags"
	htmlutil "cropguard-api/pkg/utils/html"
	timeutil "cropguard-api/pkg/utils/time"
)

const (
	// maximum days a caller may ask for
	maxWindowDays = 90

	summaryRunes = 280
)

// Config configures the alert service
type Config struct {
	WindowDays    int
	AdvisoryFeeds []string
	FeedCacheTTL  time.Duration
}

// Service implements interfaces.AlertService
type Service struct {
	cfg     Config
	deps    interfaces.Dependencies
	store   interfaces.Storage
	catalog interfaces.CatalogService
	crops   []string
}

// NewService creates an alert service
func NewService(cfg Config, deps interfaces.Dependencies, store interfaces.Storage, catalog interfaces.CatalogService) *Service {
	if cfg.WindowDays < 1 {
		cfg.WindowDays = 7
	}
	var crops []string
	for _, c := range catalog.Crops() {
		crops = append(crops, c.ID)
	}
	return &Service{cfg: cfg, deps: deps, store: store, catalog: catalog, crops: crops}
}

// List returns alerts for the last days days, most severe first.
// When deviceID names a profile with a region only that region's community
// alerts are returned.
func (s *Service) List(ctx context.Context, deviceID string, days int) ([]domain.Alert, error) {
	if days <= 0 {
		days = s.cfg.WindowDays
	}
	if days > maxWindowDays {
		return nil, &errors.ValidationError{Field: "days", Message: fmt.Sprintf("days cannot exceed %d", maxWindowDays)}
	}
	since := time.Now().Add(-time.Duration(days) * 24 * time.Hour)

	region := ""
	if deviceID != "" {
		if err := domain.ValidateDeviceID(deviceID); err != nil {
			return nil, &errors.ValidationError{Field: "deviceId", Message: err.Error()}
		}
		if p, err := s.store.GetProfile(ctx, deviceID); err == nil && p != nil {
			region = p.Region
		}
	}

	records, err := s.store.ListScansSince(ctx, since)
	if err != nil {
		return nil, errors.WrapError(err, "failed to load recent scans")
	}

	alerts := s.community(records, region)
	if len(s.cfg.AdvisoryFeeds) > 0 && s.deps.Enabled(ctx, featureflags.AdvisoryFeeds) {
		alerts = append(alerts, s.advisories(ctx, since)...)
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.LatestAt.After(b.LatestAt)
	})
	return alerts, nil
}

func (s *Service) community(records []*domain.ScanRecord, region string) []domain.Alert {
	type groupKey struct{ disease, region string }
	groups := make(map[groupKey]*domain.Alert)

	for _, r := range records {
		if r.IsHealthy || r.DiseaseID == domain.UnknownDiseaseID {
			continue
		}
		if region != "" && !strings.EqualFold(r.Region, region) {
			continue
		}
		disease, err := s.catalog.Get(r.DiseaseID)
		if err != nil {
			continue
		}

		key := groupKey{disease.ID, strings.ToLower(r.Region)}
		a, ok := groups[key]
		if !ok {
			a = &domain.Alert{
				ID:        "community:" + disease.ID + ":" + key.region,
				DiseaseID: disease.ID,
				Disease:   disease.Name,
				Crop:      disease.Crop,
				Severity:  disease.Severity,
				Region:    r.Region,
				Source:    domain.AlertSourceCommunity,
			}
			groups[key] = a
		}
		a.Count++
		if r.CreatedAt.After(a.LatestAt) {
			a.LatestAt = r.CreatedAt
		}
	}

	out := make([]domain.Alert, 0, len(groups))
	for _, a := range groups {
		out = append(out, *a)
	}
	return out
}

func (s *Service) advisories(ctx context.Context, since time.Time) []domain.Alert {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out []domain.Alert
	)

	for _, url := range s.cfg.AdvisoryFeeds {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			items, err := s.feedAlerts(ctx, url)
			if err != nil {
				s.deps.Logger.Warn("Advisory feed unavailable", map[string]interface{}{
					"url":   url,
					"error": err.Error(),
				})
				return
			}
			mu.Lock()
			for _, a := range items {
				if !a.LatestAt.Before(since) {
					out = append(out, a)
				}
			}
			mu.Unlock()
		}(url)
	}
	wg.Wait()
	return out
}

// feedCacheKey keys parsed feeds by a digest of their URL
func feedCacheKey(url string) string {
	sum := sha1.Sum([]byte(url))
	return "advisory:feed:" + hex.EncodeToString(sum[:])
}

func (s *Service) feedAlerts(ctx context.Context, url string) ([]domain.Alert, error) {
	cacheKey := feedCacheKey(url)
	if s.deps.Cache != nil {
		if data, err := s.deps.Cache.Get(ctx, cacheKey); err == nil {
			var cached []domain.Alert
			if json.Unmarshal(data, &cached) == nil {
				return cached, nil
			}
		}
	}

	resp, err := s.deps.HTTPClient.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body().Close()
	if resp.StatusCode() != 200 {
		return nil, &errors.ExternalAPIError{API: "advisory feed", StatusCode: resp.StatusCode(), Message: url}
	}

	feed, err := gofeed.NewParser().Parse(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	alerts := make([]domain.Alert, 0, len(feed.Items))
	for _, item := range feed.Items {
		alerts = append(alerts, s.toAlert(item))
	}

	if s.deps.Cache != nil && s.cfg.FeedCacheTTL > 0 {
		if data, err := json.Marshal(alerts); err == nil {
			_ = s.deps.Cache.Set(ctx, cacheKey, data, s.cfg.FeedCacheTTL)
		}
	}
	return alerts, nil
}

func (s *Service) toAlert(item *gofeed.Item) domain.Alert {
	id := item.GUID
	if id == "" {
		id = item.Link + item.Title
	}
	sum := sha1.Sum([]byte(id))

	published := feedTime(item)

	a := domain.Alert{
		ID:       "advisory:" + hex.EncodeToString(sum[:8]),
		Disease:  strings.TrimSpace(item.Title),
		Severity: domain.SeverityMedium,
		Count:    1,
		LatestAt: published,
		Source:   domain.AlertSourceAdvisory,
		Link:     item.Link,
		Summary:  htmlutil.Truncate(htmlutil.StripHTML(item.Description), summaryRunes),
	}

	// tag the advisory with the first encyclopedia match in its title
	title := strings.ToLower(item.Title)
	for _, crop := range s.crops {
		if strings.Contains(title, crop) {
			a.Crop = crop
			break
		}
	}
	for _, d := range s.catalog.List(a.Crop) {
		if a.Crop != "" && strings.Contains(title, strings.ToLower(d.Name)) {
			a.DiseaseID = d.ID
			a.Severity = d.Severity
			break
		}
	}
	return a
}

// feedTime falls back to lenient parsing for dates gofeed leaves unparsed,
// then to now
func feedTime(item *gofeed.Item) time.Time {
	switch {
	case item.PublishedParsed != nil:
		return *item.PublishedParsed
	case item.UpdatedParsed != nil:
		return *item.UpdatedParsed
	}
	for _, raw := range []string{item.Published, item.Updated} {
		if t, ok := timeutil.ParseFeedTime(raw, nil); ok {
			return t
		}
	}
	return time.Now().UTC()
}
