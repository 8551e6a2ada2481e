// ABOUTME: SQLite system of record for scans, scan images and device profiles
// ABOUTME: File based storage that survives restarts, using mattn/go-sqlite3

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"cropguard-api/core/domain"
	"cropguard-api/core/errors"
)

const schema = `
	CREATE TABLE IF NOT EXISTS scans (
		id          TEXT PRIMARY KEY,
		device_id   TEXT NOT NULL,
		image_ref   TEXT NOT NULL,
		disease_id  TEXT NOT NULL,
		class_name  TEXT NOT NULL,
		crop        TEXT NOT NULL,
		confidence  REAL NOT NULL,
		is_healthy  INTEGER NOT NULL,
		color_r     INTEGER,
		color_g     INTEGER,
		color_b     INTEGER,
		region      TEXT NOT NULL DEFAULT '',
		created_at  INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scans_device ON scans(device_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_scans_created ON scans(created_at);

	CREATE TABLE IF NOT EXISTS scan_images (
		scan_id TEXT PRIMARY KEY REFERENCES scans(id) ON DELETE CASCADE,
		data    BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS profiles (
		device_id     TEXT PRIMARY KEY,
		display_name  TEXT NOT NULL,
		language      TEXT NOT NULL,
		region        TEXT NOT NULL DEFAULT '',
		notifications INTEGER NOT NULL,
		created_at    INTEGER NOT NULL,
		updated_at    INTEGER NOT NULL
	);
`

const scanColumns = `id, device_id, image_ref, disease_id, class_name, crop, confidence,
	is_healthy, color_r, color_g, color_b, region, created_at`

// Store implements interfaces.Storage using SQLite
type Store struct {
	db       *sql.DB
	filePath string
}

// NewStore opens (or creates) the database at filePath and applies the schema
func NewStore(filePath string) (*Store, error) {
	if filePath == "" {
		filePath = "cropguard.db"
	}

	db, err := sql.Open("sqlite3", filePath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// Writers serialize on the file lock anyway
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, filePath: filePath}, nil
}

// SaveScan inserts the record and its image in one transaction
func (s *Store) SaveScan(ctx context.Context, record *domain.ScanRecord, image []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var r, g, b sql.NullInt64
	if c := record.DominantColor; c != nil {
		r = sql.NullInt64{Int64: int64(c.R), Valid: true}
		g = sql.NullInt64{Int64: int64(c.G), Valid: true}
		b = sql.NullInt64{Int64: int64(c.B), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO scans (`+scanColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.DeviceID, record.ImageRef, record.DiseaseID, record.ClassName,
		record.Crop, record.Confidence, boolToInt(record.IsHealthy), r, g, b,
		record.Region, record.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert scan: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO scan_images (scan_id, data) VALUES (?, ?)`,
		record.ID, image); err != nil {
		return fmt.Errorf("failed to insert scan image: %w", err)
	}

	return tx.Commit()
}

// GetScan retrieves a scan by ID
func (s *Store) GetScan(ctx context.Context, id string) (*domain.ScanRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+scanColumns+` FROM scans WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, &errors.NotFoundError{Resource: "scan", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return rec, nil
}

// GetImage retrieves the stored image of a scan
func (s *Store) GetImage(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM scan_images WHERE scan_id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, &errors.NotFoundError{Resource: "scan image", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan image: %w", err)
	}
	return data, nil
}

// ListScans returns a device's scans newest first
func (s *Store) ListScans(ctx context.Context, deviceID string, limit, offset int) ([]*domain.ScanRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+scanColumns+` FROM scans
		WHERE device_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		deviceID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	return collect(rows)
}

// ListScansSince returns every scan created at or after since, newest first
func (s *Store) ListScansSince(ctx context.Context, since time.Time) ([]*domain.ScanRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+scanColumns+` FROM scans
		WHERE created_at >= ? ORDER BY created_at DESC, id DESC`, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to list recent scans: %w", err)
	}
	return collect(rows)
}

// DeleteDeviceScans removes a device's scans; images go with them via cascade
func (s *Store) DeleteDeviceScans(ctx context.Context, deviceID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM scans WHERE device_id = ?`, deviceID); err != nil {
		return fmt.Errorf("failed to delete scans: %w", err)
	}
	return nil
}

// SaveProfile creates or replaces a profile
func (s *Store) SaveProfile(ctx context.Context, p *domain.Profile) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO profiles
		(device_id, display_name, language, region, notifications, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.DeviceID, p.DisplayName, string(p.Language), p.Region, boolToInt(p.Notifications),
		p.CreatedAt.UnixMilli(), p.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// GetProfile returns nil, nil for unknown devices
func (s *Store) GetProfile(ctx context.Context, deviceID string) (*domain.Profile, error) {
	var (
		p                    domain.Profile
		lang                 string
		notifications        int
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT device_id, display_name, language, region,
		notifications, created_at, updated_at FROM profiles WHERE device_id = ?`, deviceID).
		Scan(&p.DeviceID, &p.DisplayName, &lang, &p.Region, &notifications, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	p.Language = domain.Language(lang)
	p.Notifications = notifications != 0
	p.CreatedAt = time.UnixMilli(createdAt).UTC()
	p.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &p, nil
}

// DeleteProfile removes a profile
func (s *Store) DeleteProfile(ctx context.Context, deviceID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE device_id = ?`, deviceID); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Stats returns row counts and the database file size
func (s *Store) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var scans, profiles int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM scans").Scan(&scans); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM profiles").Scan(&profiles); err != nil {
		return nil, err
	}
	stats["scans"] = scans
	stats["profiles"] = profiles

	var pageCount, pageSize int
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err == nil {
			stats["db_size_bytes"] = pageCount * pageSize
		}
	}
	stats["file_path"] = s.filePath

	return stats, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*domain.ScanRecord, error) {
	var (
		rec       domain.ScanRecord
		healthy   int
		r, g, b   sql.NullInt64
		createdAt int64
	)
	if err := row.Scan(&rec.ID, &rec.DeviceID, &rec.ImageRef, &rec.DiseaseID, &rec.ClassName,
		&rec.Crop, &rec.Confidence, &healthy, &r, &g, &b, &rec.Region, &createdAt); err != nil {
		return nil, err
	}
	rec.IsHealthy = healthy != 0
	if r.Valid && g.Valid && b.Valid {
		rec.DominantColor = &domain.RGBColor{R: uint8(r.Int64), G: uint8(g.Int64), B: uint8(b.Int64)}
	}
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &rec, nil
}

func collect(rows *sql.Rows) ([]*domain.ScanRecord, error) {
	defer rows.Close()

	records := []*domain.ScanRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
