// Package ledger is the correlation store and usage counter of the relay.
// All writes go through one mutex so log ids and usage counts stay exact
// even when inbound events are handled concurrently.
package ledger

import (
	"anonrelay/backend/internal/models"
	"anonrelay/backend/internal/storage"
	"context"
	"fmt"
	"sync"
	"time"
)

// Ledger wraps a Storage with the single-writer discipline.
type Ledger struct {
	store storage.Storage
	mu    sync.Mutex
	now   func() time.Time
}

// New creates a Ledger over s.
func New(s storage.Storage) *Ledger {
	return &Ledger{store: s, now: time.Now}
}

// SetClock replaces the time source used for CreatedAt stamps.
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

// NextID returns the id the next submission will get.
func (l *Ledger) NextID(ctx context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.NextLogID(ctx)
}

// Append stores entry and returns the id used.
func (l *Ledger) Append(ctx context.Context, entry *models.LogEntry) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.append(ctx, entry)
}

func (l *Ledger) append(ctx context.Context, entry *models.LogEntry) (uint64, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = l.now().UTC()
	}
	id, err := l.store.AppendLogEntry(ctx, entry)
	if err != nil {
		return 0, fmt.Errorf("append log entry: %w", err)
	}
	return id, nil
}

// AppendReply stores an operator reply audit record.
func (l *Ledger) AppendReply(ctx context.Context, rec *models.AdminReplyRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = l.now().UTC()
	}
	if err := l.store.AppendAdminReply(ctx, rec); err != nil {
		return fmt.Errorf("append admin reply: %w", err)
	}
	return nil
}

// Record logs an accepted submission and counts it, both inside one
// critical section. It returns the new entry and the sender's new count.
func (l *Ledger) Record(ctx context.Context, p models.Participant, c models.Content) (models.LogEntry, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := models.LogEntry{
		Participant: p,
		Kind:        c.Kind,
		Content:     c.Body(),
		Caption:     c.Caption,
	}
	if _, err := l.append(ctx, &entry); err != nil {
		return models.LogEntry{}, 0, err
	}
	count, err := l.store.IncrementUsage(ctx, p.ID)
	if err != nil {
		return entry, 0, fmt.Errorf("increment usage: %w", err)
	}
	return entry, count, nil
}

// Increment bumps a participant's usage count.
func (l *Ledger) Increment(ctx context.Context, participantID int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.IncrementUsage(ctx, participantID)
}

// Usage returns how many submissions participantID has made.
func (l *Ledger) Usage(ctx context.Context, participantID int64) (int64, error) {
	return l.store.GetUsage(ctx, participantID)
}

// Export renders the whole ledger. It fails with storage.ErrNotFound when
// there is nothing to export.
func (l *Ledger) Export(ctx context.Context) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.store.ListLogEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list log entries: %w", err)
	}
	replies, err := l.store.ListAdminReplies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list admin replies: %w", err)
	}
	if len(entries) == 0 && len(replies) == 0 {
		return nil, fmt.Errorf("export: %w", storage.ErrNotFound)
	}
	return Render(entries, replies), nil
}

// Clear wipes every entry and reply record; the next id becomes 1.
// Usage counts are kept.
func (l *Ledger) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.store.ClearLog(ctx); err != nil {
		return fmt.Errorf("clear log: %w", err)
	}
	return nil
}
