package ledger_test

import (
	"anonrelay/backend/internal/ledger"
	"anonrelay/backend/internal/models"
	"anonrelay/backend/internal/storage"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func newLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	s, err := storage.OpenPebble("", &pebble.Options{FS: vfs.NewMem()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	l := ledger.New(s)
	l.SetClock(func() time.Time { return fixedTime })
	return l
}

func text(s string) models.Content {
	return models.Content{Kind: models.KindText, Text: s}
}

func TestLedger_RecordAssignsIDAndCounts(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	p := models.Participant{ID: 111, FirstName: "Ann"}

	e, count, err := l.Record(ctx, p, text("hello"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), e.ID)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, "hello", e.Content)
	assert.Equal(t, fixedTime, e.CreatedAt)

	e, count, err = l.Record(ctx, p, models.Content{Kind: models.KindPhoto, FileID: "AgAD", Caption: "look"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), e.ID)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, "AgAD", e.Content)
	assert.Equal(t, "look", e.Caption)

	next, err := l.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), next)
}

func TestLedger_ConcurrentRecordsAreGapFree(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	const n = 40

	var wg sync.WaitGroup
	ids := make(chan uint64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := models.Participant{ID: int64(100 + i%4)}
			e, _, err := l.Record(ctx, p, text("x"))
			assert.NoError(t, err)
			ids <- e.ID
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]bool, n)
	for id := range ids {
		assert.False(t, seen[id], "id %d assigned twice", id)
		seen[id] = true
	}
	for id := uint64(1); id <= n; id++ {
		assert.True(t, seen[id], "id %d missing", id)
	}

	var total int64
	for i := 0; i < 4; i++ {
		c, err := l.Usage(ctx, int64(100+i))
		require.NoError(t, err)
		total += c
	}
	assert.Equal(t, int64(n), total)
}

func TestLedger_ExportEmpty(t *testing.T) {
	l := newLedger(t)

	_, err := l.Export(context.Background())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLedger_ExportIsStable(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	_, _, err := l.Record(ctx, models.Participant{ID: 111}, text("hello"))
	require.NoError(t, err)
	require.NoError(t, l.AppendReply(ctx, &models.AdminReplyRecord{InReplyTo: 1, TargetParticipantID: 111, Content: "hi back"}))

	first, err := l.Export(ctx)
	require.NoError(t, err)
	second, err := l.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Contains(t, string(first), "[#1]")
	assert.Contains(t, string(first), "[Reply to #1]")
}

func TestLedger_ClearRestartsIDsAndKeepsUsage(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	p := models.Participant{ID: 111}

	for i := 0; i < 3; i++ {
		_, _, err := l.Record(ctx, p, text("x"))
		require.NoError(t, err)
	}
	require.NoError(t, l.Clear(ctx))

	_, err := l.Export(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	e, count, err := l.Record(ctx, p, text("after"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), e.ID)
	assert.Equal(t, int64(4), count)
}

func TestLedger_AppendWithSuppliedID(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	id, err := l.Append(ctx, &models.LogEntry{ID: 5, Kind: models.KindText, Content: "x"})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), id)

	_, err = l.Append(ctx, &models.LogEntry{ID: 5, Kind: models.KindText, Content: "y"})
	assert.ErrorIs(t, err, storage.ErrConflict)

	next, err := l.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), next)
}

func TestLedger_Increment(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	c, err := l.Increment(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c)
	c, err = l.Usage(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c)
}
