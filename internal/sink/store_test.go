package sink

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimrtyler/youshallnotpass/pkg/model"
)

func memStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(":memory:")
	require.NoError(t, err)
	return s
}

func TestStoreDeliverAndRecent(t *testing.T) {
	s := memStore(t)
	ctx := context.Background()

	first := model.ViolationEvent{
		ID: "a", Type: model.EventType, SubType: "BLOB_URL_DETECTED",
		PageURL: "https://host.example/p", Timestamp: 1000,
		Details: map[string]any{"width": 500},
	}
	second := model.ViolationEvent{
		ID: "b", Type: model.EventType, SubType: "GAME_ENGINE_DETECTED",
		PageURL: "https://host.example/p", Timestamp: 2000,
	}
	require.NoError(t, s.Deliver(ctx, first, nil))
	require.NoError(t, s.Deliver(ctx, second, nil))

	recent, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].ID)
	assert.Equal(t, "a", recent[1].ID)
	assert.JSONEq(t, `{"width":500}`, recent[1].Details)
}

func TestStorePrune(t *testing.T) {
	s := memStore(t)
	ctx := context.Background()

	old := model.ViolationEvent{
		ID: "old", SubType: "WORKER_PROXY_DETECTED",
		Timestamp: time.Now().Add(-48 * time.Hour).UnixMilli(),
	}
	fresh := model.ViolationEvent{
		ID: "fresh", SubType: "WORKER_PROXY_DETECTED",
		Timestamp: time.Now().UnixMilli(),
	}
	require.NoError(t, s.Deliver(ctx, old, nil))
	require.NoError(t, s.Deliver(ctx, fresh, nil))

	removed, err := s.Prune(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	recent, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "fresh", recent[0].ID)
}
