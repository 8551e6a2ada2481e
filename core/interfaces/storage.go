// ABOUTME: Storage interfaces for persisting domain entities
// ABOUTME: Defines contracts for the scan and profile system of record

package interfaces

import (
	"context"
	"time"

	"cropguard-api/core/domain"
)

// ScanStorage defines the interface for scan record persistence
type ScanStorage interface {
	// SaveScan persists a scan record together with its image bytes
	SaveScan(ctx context.Context, record *domain.ScanRecord, image []byte) error

	// GetScan retrieves a scan by ID. Returns a NotFoundError when missing.
	GetScan(ctx context.Context, id string) (*domain.ScanRecord, error)

	// GetImage retrieves the stored image of a scan
	GetImage(ctx context.Context, id string) ([]byte, error)

	// ListScans returns the scans of a device, newest first.
	// A limit of 0 returns every scan.
	ListScans(ctx context.Context, deviceID string, limit, offset int) ([]*domain.ScanRecord, error)

	// ListScansSince returns scans of every device created at or after since
	ListScansSince(ctx context.Context, since time.Time) ([]*domain.ScanRecord, error)

	// DeleteDeviceScans removes every scan of a device
	DeleteDeviceScans(ctx context.Context, deviceID string) error
}

// ProfileStorage defines the interface for profile persistence
type ProfileStorage interface {
	// SaveProfile creates or replaces a profile
	SaveProfile(ctx context.Context, profile *domain.Profile) error

	// GetProfile retrieves a profile by device ID. Returns nil, nil when missing.
	GetProfile(ctx context.Context, deviceID string) (*domain.Profile, error)

	// DeleteProfile removes a profile; missing profiles are not an error
	DeleteProfile(ctx context.Context, deviceID string) error
}

// Storage groups the record stores backed by one system of record
type Storage interface {
	ScanStorage
	ProfileStorage
	Close() error
}
