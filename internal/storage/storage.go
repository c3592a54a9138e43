// Package storage persists the correlation ledger, usage counters and
// process-wide settings. Two backends implement Storage: PostgreSQL through
// gorm and an embedded Pebble database.
package storage

import (
	"anonrelay/backend/internal/models"
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is returned when a key or the whole ledger is absent.
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict is returned when a caller-supplied log id is already taken.
	ErrConflict = errors.New("storage: log id already used")
)

// Storage is the persistence boundary of the relay.
type Storage interface {
	// NextLogID returns the id the next appended LogEntry will get.
	NextLogID(ctx context.Context) (uint64, error)
	// AppendLogEntry stores entry. A zero entry.ID is assigned from the log
	// sequence; a non-zero one is used as is and advances the sequence.
	AppendLogEntry(ctx context.Context, entry *models.LogEntry) (uint64, error)
	AppendAdminReply(ctx context.Context, rec *models.AdminReplyRecord) error
	// ListLogEntries returns all entries ordered by id.
	ListLogEntries(ctx context.Context) ([]models.LogEntry, error)
	// ListAdminReplies returns all reply records in append order.
	ListAdminReplies(ctx context.Context) ([]models.AdminReplyRecord, error)
	// ClearLog drops every entry and reply record and resets the sequence.
	ClearLog(ctx context.Context) error

	IncrementUsage(ctx context.Context, participantID int64) (int64, error)
	GetUsage(ctx context.Context, participantID int64) (int64, error)

	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error

	Close() error
}

// Service is the PostgreSQL backend.
type Service struct {
	DB *gorm.DB
}

var _ Storage = (*Service)(nil)

// NewStorageService wraps an open gorm connection and migrates the schema.
func NewStorageService(db *gorm.DB) (*Service, error) {
	if err := db.AutoMigrate(
		&models.LogEntry{},
		&models.AdminReplyRecord{},
		&models.UsageCount{},
		&models.Sequence{},
		&models.Setting{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Service{DB: db}, nil
}

// NextLogID reads the log sequence without reserving anything.
func (s *Service) NextLogID(ctx context.Context) (uint64, error) {
	var seq models.Sequence
	err := s.DB.WithContext(ctx).Where("name = ?", models.SequenceLogEntries).First(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return seq.Value + 1, nil
}

// AppendLogEntry assigns the id and inserts the entry in one transaction.
// The sequence row is locked so concurrent writers from other processes
// cannot draw the same id.
func (s *Service) AppendLogEntry(ctx context.Context, entry *models.LogEntry) (uint64, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq := models.Sequence{Name: models.SequenceLogEntries}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seq).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("name = ?", models.SequenceLogEntries).
			First(&seq).Error; err != nil {
			return err
		}

		if entry.ID == 0 {
			entry.ID = seq.Value + 1
		} else {
			var taken int64
			if err := tx.Model(&models.LogEntry{}).Where("id = ?", entry.ID).Count(&taken).Error; err != nil {
				return err
			}
			if taken > 0 {
				return ErrConflict
			}
		}

		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		if entry.ID > seq.Value {
			return tx.Model(&models.Sequence{}).
				Where("name = ?", models.SequenceLogEntries).
				Update("value", entry.ID).Error
		}
		return nil
	})
	if err != nil {
		log.Printf("ERROR: Failed to append log entry for participant %d: %v", entry.Participant.ID, err)
		return 0, err
	}
	return entry.ID, nil
}

// AppendAdminReply inserts an audit record.
func (s *Service) AppendAdminReply(ctx context.Context, rec *models.AdminReplyRecord) error {
	if err := s.DB.WithContext(ctx).Create(rec).Error; err != nil {
		log.Printf("ERROR: Failed to append admin reply for entry %d: %v", rec.InReplyTo, err)
		return err
	}
	return nil
}

// ListLogEntries returns every entry ordered by id.
func (s *Service) ListLogEntries(ctx context.Context) ([]models.LogEntry, error) {
	var entries []models.LogEntry
	if err := s.DB.WithContext(ctx).Order("id asc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ListAdminReplies returns every reply record in insertion order.
func (s *Service) ListAdminReplies(ctx context.Context) ([]models.AdminReplyRecord, error) {
	var replies []models.AdminReplyRecord
	if err := s.DB.WithContext(ctx).Order("id asc").Find(&replies).Error; err != nil {
		return nil, err
	}
	return replies, nil
}

// ClearLog empties the ledger and resets the log sequence.
func (s *Service) ClearLog(ctx context.Context) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM log_entries").Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM admin_replies").Error; err != nil {
			return err
		}
		return tx.Where("name = ?", models.SequenceLogEntries).Delete(&models.Sequence{}).Error
	})
}

// IncrementUsage bumps the participant's counter with a single upsert.
func (s *Service) IncrementUsage(ctx context.Context, participantID int64) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).Raw(`
        INSERT INTO usage_counts (participant_id, count)
        VALUES (?, 1)
        ON CONFLICT (participant_id)
        DO UPDATE SET count = usage_counts.count + 1
        RETURNING count`, participantID).Scan(&count).Error
	if err != nil {
		log.Printf("ERROR: Failed to increment usage for %d: %v", participantID, err)
		return 0, err
	}
	return count, nil
}

// GetUsage returns 0 for participants that never submitted anything.
func (s *Service) GetUsage(ctx context.Context, participantID int64) (int64, error) {
	var usage models.UsageCount
	err := s.DB.WithContext(ctx).Where("participant_id = ?", participantID).First(&usage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return usage.Count, nil
}

// GetSetting returns ErrNotFound for keys that were never written.
func (s *Service) GetSetting(ctx context.Context, key string) (string, error) {
	var setting models.Setting
	err := s.DB.WithContext(ctx).Where("key = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

// PutSetting upserts a setting.
func (s *Service) PutSetting(ctx context.Context, key, value string) error {
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&models.Setting{Key: key, Value: value}).Error
}

// Close releases the underlying connection pool.
func (s *Service) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
