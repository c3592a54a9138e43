package storage_test

import (
	"anonrelay/backend/internal/models"
	"anonrelay/backend/internal/storage"
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemStore(t *testing.T) *storage.PebbleStore {
	t.Helper()
	s, err := storage.OpenPebble("", &pebble.Options{FS: vfs.NewMem()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func entry(participantID int64, text string) *models.LogEntry {
	return &models.LogEntry{
		Participant: models.Participant{ID: participantID, FirstName: "Ann"},
		Kind:        models.KindText,
		Content:     text,
		CreatedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPebbleStore_AppendAssignsSequentialIDs(t *testing.T) {
	s := newMemStore(t)
	ctx := context.Background()

	next, err := s.NextLogID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), next)

	for want := uint64(1); want <= 3; want++ {
		id, err := s.AppendLogEntry(ctx, entry(111, "hello"))
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}

	next, err = s.NextLogID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), next)
}

func TestPebbleStore_CallerSuppliedID(t *testing.T) {
	s := newMemStore(t)
	ctx := context.Background()

	e := entry(111, "jump")
	e.ID = 7
	id, err := s.AppendLogEntry(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)

	next, err := s.NextLogID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), next, "a supplied id advances the sequence")

	dup := entry(222, "again")
	dup.ID = 7
	_, err = s.AppendLogEntry(ctx, dup)
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestPebbleStore_ListOrdersNumerically(t *testing.T) {
	s := newMemStore(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := s.AppendLogEntry(ctx, entry(111, "x"))
		require.NoError(t, err)
	}
	entries, err := s.ListLogEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 12)
	for i, e := range entries {
		assert.Equal(t, uint64(i+1), e.ID)
		assert.Equal(t, int64(111), e.Participant.ID)
	}
}

func TestPebbleStore_AdminReplies(t *testing.T) {
	s := newMemStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendAdminReply(ctx, &models.AdminReplyRecord{InReplyTo: 2, TargetParticipantID: 111, Content: "first"}))
	require.NoError(t, s.AppendAdminReply(ctx, &models.AdminReplyRecord{InReplyTo: 1, TargetParticipantID: 222, Content: "second"}))

	replies, err := s.ListAdminReplies(ctx)
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, "first", replies[0].Content)
	assert.Equal(t, "second", replies[1].Content)
	assert.Equal(t, uint64(1), replies[0].ID)
	assert.Equal(t, uint64(2), replies[1].ID)
}

func TestPebbleStore_ClearLogKeepsUsage(t *testing.T) {
	s := newMemStore(t)
	ctx := context.Background()

	_, err := s.AppendLogEntry(ctx, entry(111, "a"))
	require.NoError(t, err)
	require.NoError(t, s.AppendAdminReply(ctx, &models.AdminReplyRecord{InReplyTo: 1, TargetParticipantID: 111}))
	_, err = s.IncrementUsage(ctx, 111)
	require.NoError(t, err)

	require.NoError(t, s.ClearLog(ctx))

	entries, err := s.ListLogEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	replies, err := s.ListAdminReplies(ctx)
	require.NoError(t, err)
	assert.Empty(t, replies)

	next, err := s.NextLogID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), next)

	count, err := s.GetUsage(ctx, 111)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestPebbleStore_Usage(t *testing.T) {
	s := newMemStore(t)
	ctx := context.Background()

	count, err := s.GetUsage(ctx, 42)
	require.NoError(t, err)
	assert.Zero(t, count)

	for want := int64(1); want <= 3; want++ {
		got, err := s.IncrementUsage(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	count, err = s.GetUsage(ctx, 43)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPebbleStore_Settings(t *testing.T) {
	s := newMemStore(t)
	ctx := context.Background()

	_, err := s.GetSetting(ctx, models.SettingMaintenance)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.PutSetting(ctx, models.SettingMaintenance, "true"))
	require.NoError(t, s.PutSetting(ctx, models.SettingMaintenance, "false"))

	v, err := s.GetSetting(ctx, models.SettingMaintenance)
	require.NoError(t, err)
	assert.Equal(t, "false", v)
}
