// ABOUTME: In-memory system of record for scans and profiles
// ABOUTME: Used for tests and single process deployments without a database

package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"cropguard-api/core/domain"
	"cropguard-api/core/errors"
)

// Store implements interfaces.Storage with maps guarded by a RWMutex
type Store struct {
	mu       sync.RWMutex
	scans    map[string]*domain.ScanRecord
	images   map[string][]byte
	profiles map[string]*domain.Profile
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		scans:    make(map[string]*domain.ScanRecord),
		images:   make(map[string][]byte),
		profiles: make(map[string]*domain.Profile),
	}
}

// SaveScan stores a copy of the record and image
func (s *Store) SaveScan(ctx context.Context, record *domain.ScanRecord, image []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r := *record
	s.scans[r.ID] = &r
	img := make([]byte, len(image))
	copy(img, image)
	s.images[r.ID] = img
	return nil
}

// GetScan returns a copy of the record
func (s *Store) GetScan(ctx context.Context, id string) (*domain.ScanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.scans[id]
	if !ok {
		return nil, &errors.NotFoundError{Resource: "scan", ID: id}
	}
	out := *r
	return &out, nil
}

// GetImage returns the image bytes of a scan
func (s *Store) GetImage(ctx context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	img, ok := s.images[id]
	if !ok {
		return nil, &errors.NotFoundError{Resource: "scan image", ID: id}
	}
	out := make([]byte, len(img))
	copy(out, img)
	return out, nil
}

// ListScans returns a device's scans newest first
func (s *Store) ListScans(ctx context.Context, deviceID string, limit, offset int) ([]*domain.ScanRecord, error) {
	s.mu.RLock()
	var matched []*domain.ScanRecord
	for _, r := range s.scans {
		if r.DeviceID == deviceID {
			c := *r
			matched = append(matched, &c)
		}
	}
	s.mu.RUnlock()

	sortNewestFirst(matched)
	return page(matched, limit, offset), nil
}

// ListScansSince returns every scan created at or after since, newest first
func (s *Store) ListScansSince(ctx context.Context, since time.Time) ([]*domain.ScanRecord, error) {
	s.mu.RLock()
	var matched []*domain.ScanRecord
	for _, r := range s.scans {
		if !r.CreatedAt.Before(since) {
			c := *r
			matched = append(matched, &c)
		}
	}
	s.mu.RUnlock()

	sortNewestFirst(matched)
	return matched, nil
}

// DeleteDeviceScans removes a device's scans and images
func (s *Store) DeleteDeviceScans(ctx context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, r := range s.scans {
		if r.DeviceID == deviceID {
			delete(s.scans, id)
			delete(s.images, id)
		}
	}
	return nil
}

// SaveProfile creates or replaces a profile
func (s *Store) SaveProfile(ctx context.Context, profile *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := *profile
	s.profiles[p.DeviceID] = &p
	return nil
}

// GetProfile returns nil, nil for unknown devices
func (s *Store) GetProfile(ctx context.Context, deviceID string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[deviceID]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

// DeleteProfile removes a profile
func (s *Store) DeleteProfile(ctx context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, deviceID)
	return nil
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}

func sortNewestFirst(records []*domain.ScanRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID > records[j].ID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}

func page(records []*domain.ScanRecord, limit, offset int) []*domain.ScanRecord {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(records) {
		return []*domain.ScanRecord{}
	}
	records = records[offset:]
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records
}
