package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropguard-api/core/domain"
	"cropguard-api/core/interfaces"
	"cropguard-api/infrastructure/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) interfaces.Storage {
		return NewStore()
	})
}

func TestStore_ReturnsCopies(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	r := &domain.ScanRecord{ID: "s1", DeviceID: "d1", CreatedAt: time.Now()}
	require.NoError(t, store.SaveScan(ctx, r, []byte("img")))
	r.DiseaseID = "mutated"

	got, err := store.GetScan(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, got.DiseaseID)

	got.DiseaseID = "mutated again"
	again, _ := store.GetScan(ctx, "s1")
	assert.Empty(t, again.DiseaseID)
}

func TestStore_CancelledContext(t *testing.T) {
	store := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.SaveScan(ctx, &domain.ScanRecord{ID: "s1"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
