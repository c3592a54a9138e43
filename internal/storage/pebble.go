package storage

import (
	"anonrelay/backend/internal/models"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/cockroachdb/pebble"
)

// Key layout:
//
//	log:entry:<id %020d>   LogEntry JSON
//	log:reply:<seq %020d>  AdminReplyRecord JSON
//	seq:<name>             uint64 big endian
//	usage:<participant>    int64 big endian
//	setting:<key>          raw value
const (
	prefixEntry   = "log:entry:"
	prefixReply   = "log:reply:"
	prefixLog     = "log:"
	prefixSeq     = "seq:"
	prefixUsage   = "usage:"
	prefixSetting = "setting:"

	seqReplies = "admin_replies"
)

// PebbleStore is the embedded backend. Pebble has no transactions, so every
// read-modify-write runs under mu and commits as one synced batch.
type PebbleStore struct {
	db *pebble.DB
	mu sync.Mutex
}

var _ Storage = (*PebbleStore)(nil)

// OpenPebble opens (or creates) a Pebble database at path. opts may be nil;
// tests pass an in-memory filesystem through it.
func OpenPebble(path string, opts *pebble.Options) (*PebbleStore, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		log.Printf("ERROR: pebble open failed at %s: %v", path, err)
		return nil, err
	}
	log.Printf("INFO: pebble opened at %s", path)
	return &PebbleStore{db: db}, nil
}

func entryKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixEntry, id))
}

func replyKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixReply, seq))
}

func usageKey(participantID int64) []byte {
	return []byte(prefixUsage + strconv.FormatInt(participantID, 10))
}

func encodeUint(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// prefixEnd returns the smallest key greater than every key with prefix.
func prefixEnd(prefix string) []byte {
	end := []byte(prefix)
	end[len(end)-1]++
	return end
}

func (s *PebbleStore) get(key []byte) ([]byte, error) {
	v, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), v...), nil
}

func (s *PebbleStore) getUint(key []byte) (uint64, error) {
	v, err := s.get(key)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(v) != 8 {
		return 0, fmt.Errorf("corrupt counter at %q", key)
	}
	return binary.BigEndian.Uint64(v), nil
}

// NextLogID returns the log sequence + 1.
func (s *PebbleStore) NextLogID(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq, err := s.getUint([]byte(prefixSeq + models.SequenceLogEntries))
	if err != nil {
		return 0, err
	}
	return seq + 1, nil
}

// AppendLogEntry writes the entry and the advanced sequence in one batch.
func (s *PebbleStore) AppendLogEntry(_ context.Context, entry *models.LogEntry) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seqKey := []byte(prefixSeq + models.SequenceLogEntries)
	seq, err := s.getUint(seqKey)
	if err != nil {
		return 0, err
	}
	if entry.ID == 0 {
		entry.ID = seq + 1
	} else if _, err := s.get(entryKey(entry.ID)); err == nil {
		return 0, ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		return 0, err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal log entry: %w", err)
	}
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(entryKey(entry.ID), data, nil); err != nil {
		return 0, err
	}
	if entry.ID > seq {
		if err := b.Set(seqKey, encodeUint(entry.ID), nil); err != nil {
			return 0, err
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		log.Printf("ERROR: Failed to append log entry %d: %v", entry.ID, err)
		return 0, err
	}
	return entry.ID, nil
}

// AppendAdminReply stores the record under its own append sequence.
func (s *PebbleStore) AppendAdminReply(_ context.Context, rec *models.AdminReplyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seqKey := []byte(prefixSeq + seqReplies)
	seq, err := s.getUint(seqKey)
	if err != nil {
		return err
	}
	rec.ID = seq + 1
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal admin reply: %w", err)
	}
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(replyKey(rec.ID), data, nil); err != nil {
		return err
	}
	if err := b.Set(seqKey, encodeUint(rec.ID), nil); err != nil {
		return err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		log.Printf("ERROR: Failed to append admin reply for entry %d: %v", rec.InReplyTo, err)
		return err
	}
	return nil
}

// scan decodes every value under prefix in key order.
func scan[T any](db *pebble.DB, prefix string) ([]T, error) {
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: prefixEnd(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []T
	for iter.First(); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), []byte(prefix)) {
			break
		}
		var v T
		if err := json.Unmarshal(iter.Value(), &v); err != nil {
			return nil, fmt.Errorf("decode %q: %w", iter.Key(), err)
		}
		out = append(out, v)
	}
	return out, iter.Error()
}

// ListLogEntries returns entries in id order; the zero-padded keys sort
// numerically.
func (s *PebbleStore) ListLogEntries(_ context.Context) ([]models.LogEntry, error) {
	return scan[models.LogEntry](s.db, prefixEntry)
}

// ListAdminReplies returns reply records in append order.
func (s *PebbleStore) ListAdminReplies(_ context.Context) ([]models.AdminReplyRecord, error) {
	return scan[models.AdminReplyRecord](s.db, prefixReply)
}

// ClearLog range-deletes the ledger and both sequences.
func (s *PebbleStore) ClearLog(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.DeleteRange([]byte(prefixLog), prefixEnd(prefixLog), nil); err != nil {
		return err
	}
	if err := b.Delete([]byte(prefixSeq+models.SequenceLogEntries), nil); err != nil {
		return err
	}
	if err := b.Delete([]byte(prefixSeq+seqReplies), nil); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

// IncrementUsage reads, increments and writes back under the store lock.
func (s *PebbleStore) IncrementUsage(_ context.Context, participantID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := usageKey(participantID)
	count, err := s.getUint(key)
	if err != nil {
		return 0, err
	}
	count++
	if err := s.db.Set(key, encodeUint(count), pebble.Sync); err != nil {
		log.Printf("ERROR: Failed to increment usage for %d: %v", participantID, err)
		return 0, err
	}
	return int64(count), nil
}

// GetUsage returns 0 for unseen participants.
func (s *PebbleStore) GetUsage(_ context.Context, participantID int64) (int64, error) {
	count, err := s.getUint(usageKey(participantID))
	if err != nil {
		return 0, err
	}
	return int64(count), nil
}

// GetSetting returns ErrNotFound for unknown keys.
func (s *PebbleStore) GetSetting(_ context.Context, key string) (string, error) {
	v, err := s.get([]byte(prefixSetting + key))
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// PutSetting overwrites a setting.
func (s *PebbleStore) PutSetting(_ context.Context, key, value string) error {
	return s.db.Set([]byte(prefixSetting+key), []byte(value), pebble.Sync)
}

// Close flushes and closes the database.
func (s *PebbleStore) Close() error {
	if err := s.db.Close(); err != nil {
		return err
	}
	log.Println("INFO: pebble closed")
	return nil
}
