package models

import "time"

// LogEntry is one accepted sender submission in the correlation ledger.
// Entries are immutable once appended; the ID doubles as the correlation
// id carried by the operator's reply-action.
type LogEntry struct {
	// ID is 1-based and strictly increasing. It is assigned from the
	// persisted log sequence, not by the database.
	ID uint64 `gorm:"primaryKey;autoIncrement:false" json:"id"`
	// Participant is a snapshot of the sender at submission time.
	Participant Participant `gorm:"embedded;embeddedPrefix:participant_" json:"participant"`
	// Kind is the content kind (text, photo, ...).
	Kind ContentKind `gorm:"type:text;not null" json:"kind"`
	// Content is the text or the media file reference.
	Content string `gorm:"type:text;not null" json:"content"`
	// Caption is the media caption, if any.
	Caption string `gorm:"type:text" json:"caption,omitempty"`
	// CreatedAt is the submission time.
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

// AdminReplyRecord is the audit trail of one completed operator reply.
// The relay never reads these back; they only show up in the export.
type AdminReplyRecord struct {
	ID uint64 `gorm:"primaryKey" json:"id"`
	// InReplyTo is the LogEntry id the reply addresses. It is caller
	// supplied and not checked against the ledger.
	InReplyTo           uint64    `gorm:"index;not null" json:"in_reply_to"`
	TargetParticipantID int64     `gorm:"not null" json:"target_participant_id"`
	OperatorID          int64     `json:"operator_id"`
	Content             string    `gorm:"type:text" json:"content"`
	CreatedAt           time.Time `gorm:"not null" json:"created_at"`
}

// TableName keeps the audit table name short.
func (AdminReplyRecord) TableName() string {
	return "admin_replies"
}
