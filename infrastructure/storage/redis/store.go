// ABOUTME: Redis system of record storing scans and profiles as RedisJSON documents
// ABOUTME: Sorted sets index scans per device and globally by creation time

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nitishm/go-rejson/v4"
	"github.com/redis/go-redis/v9"

	"cropguard-api/core/domain"
	coreerrors "cropguard-api/core/errors"
	"cropguard-api/pkg/config"
)

const prefix = "cropguard:"

func scanKey(id string) string          { return prefix + "scan:" + id }
func imageKey(id string) string         { return prefix + "scan:" + id + ":image" }
func deviceScansKey(id string) string   { return prefix + "device:" + id + ":scans" }
func profileKey(deviceID string) string { return prefix + "profile:" + deviceID }

const allScansKey = prefix + "scans"

// Store implements interfaces.Storage on Redis with the RedisJSON module
type Store struct {
	client  *redis.Client
	handler *rejson.Handler
}

// NewStore connects to Redis and prepares the JSON handler
func NewStore(cfg config.RedisConfig) (*Store, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	handler := rejson.NewReJSONHandler()
	handler.SetGoRedisClient(client)

	return &Store{client: client, handler: handler}, nil
}

// SaveScan stores the record document, raw image and index entries
func (s *Store) SaveScan(ctx context.Context, record *domain.ScanRecord, image []byte) error {
	if _, err := s.handler.JSONSet(scanKey(record.ID), ".", record); err != nil {
		return fmt.Errorf("failed to store scan: %w", err)
	}

	score := float64(record.CreatedAt.UnixMilli())
	member := redis.Z{Score: score, Member: record.ID}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, imageKey(record.ID), image, 0)
		pipe.ZAdd(ctx, deviceScansKey(record.DeviceID), member)
		pipe.ZAdd(ctx, allScansKey, member)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to index scan: %w", err)
	}
	return nil
}

// GetScan retrieves a scan document by ID
func (s *Store) GetScan(ctx context.Context, id string) (*domain.ScanRecord, error) {
	var rec domain.ScanRecord
	found, err := s.getJSON(scanKey(id), &rec)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	if !found {
		return nil, &coreerrors.NotFoundError{Resource: "scan", ID: id}
	}
	return &rec, nil
}

// GetImage retrieves the stored image of a scan
func (s *Store) GetImage(ctx context.Context, id string) ([]byte, error) {
	data, err := s.client.Get(ctx, imageKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, &coreerrors.NotFoundError{Resource: "scan image", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan image: %w", err)
	}
	return data, nil
}

// ListScans returns a device's scans newest first
func (s *Store) ListScans(ctx context.Context, deviceID string, limit, offset int) ([]*domain.ScanRecord, error) {
	if offset < 0 {
		offset = 0
	}
	stop := int64(-1)
	if limit > 0 {
		stop = int64(offset + limit - 1)
	}
	ids, err := s.client.ZRevRange(ctx, deviceScansKey(deviceID), int64(offset), stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	return s.load(ctx, ids)
}

// ListScansSince returns every scan created at or after since, newest first
func (s *Store) ListScansSince(ctx context.Context, since time.Time) ([]*domain.ScanRecord, error) {
	ids, err := s.client.ZRevRangeByScore(ctx, allScansKey, &redis.ZRangeBy{
		Min: strconv.FormatInt(since.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list recent scans: %w", err)
	}
	return s.load(ctx, ids)
}

// DeleteDeviceScans removes a device's scan documents, images and index entries
func (s *Store) DeleteDeviceScans(ctx context.Context, deviceID string) error {
	ids, err := s.client.ZRange(ctx, deviceScansKey(deviceID), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to list device scans: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Del(ctx, scanKey(id), imageKey(id))
			pipe.ZRem(ctx, allScansKey, id)
		}
		pipe.Del(ctx, deviceScansKey(deviceID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete device scans: %w", err)
	}
	return nil
}

// SaveProfile creates or replaces a profile document
func (s *Store) SaveProfile(ctx context.Context, p *domain.Profile) error {
	if _, err := s.handler.JSONSet(profileKey(p.DeviceID), ".", p); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// GetProfile returns nil, nil for unknown devices
func (s *Store) GetProfile(ctx context.Context, deviceID string) (*domain.Profile, error) {
	var p domain.Profile
	found, err := s.getJSON(profileKey(deviceID), &p)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &p, nil
}

// DeleteProfile removes a profile document
func (s *Store) DeleteProfile(ctx context.Context, deviceID string) error {
	return s.client.Del(ctx, profileKey(deviceID)).Err()
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) getJSON(key string, dest interface{}) (bool, error) {
	val, err := s.handler.JSONGet(key, ".")
	if errors.Is(err, redis.Nil) || (err == nil && val == nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	raw, ok := val.([]byte)
	if !ok {
		return false, fmt.Errorf("unexpected JSON reply type %T", val)
	}
	return true, json.Unmarshal(raw, dest)
}

func (s *Store) load(ctx context.Context, ids []string) ([]*domain.ScanRecord, error) {
	records := make([]*domain.ScanRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.GetScan(ctx, id)
		if coreerrors.IsNotFound(err) {
			// index entry outlived its document
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
