package relay_test

import (
	"anonrelay/backend/internal/models"
	"anonrelay/backend/internal/relay"
	"anonrelay/backend/internal/storage"
	"context"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memStore(t *testing.T) storage.Storage {
	t.Helper()
	s, err := storage.OpenPebble("", &pebble.Options{FS: vfs.NewMem()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGate_DefaultAppliesUntilPersisted(t *testing.T) {
	ctx := context.Background()
	s := memStore(t)

	g, err := relay.NewGate(ctx, s, true, nil)
	require.NoError(t, err)
	assert.True(t, g.IsActive())

	require.NoError(t, g.SetActive(ctx, false))

	// A restart with the same default keeps the persisted value.
	g, err = relay.NewGate(ctx, s, true, nil)
	require.NoError(t, err)
	assert.False(t, g.IsActive())
}

func TestGate_MalformedFlagFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	s := memStore(t)
	require.NoError(t, s.PutSetting(ctx, models.SettingMaintenance, "maybe"))

	g, err := relay.NewGate(ctx, s, true, nil)
	require.NoError(t, err)
	assert.True(t, g.IsActive())
}
