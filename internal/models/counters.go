package models

// UsageCount tracks how many submissions a participant has made.
type UsageCount struct {
	ParticipantID int64 `gorm:"primaryKey;autoIncrement:false" json:"participant_id"`
	Count         int64 `gorm:"not null;default:0" json:"count"`
}

// Sequence is a named persisted monotonic counter.
type Sequence struct {
	Name  string `gorm:"primaryKey" json:"name"`
	Value uint64 `gorm:"not null;default:0" json:"value"`
}

// Setting is a persisted process-wide key/value pair, such as the
// maintenance flag.
type Setting struct {
	Key   string `gorm:"primaryKey"`
	Value string `gorm:"type:text;not null"`
}

const (
	// SequenceLogEntries names the counter LogEntry ids are drawn from.
	SequenceLogEntries = "log_entries"
	// SettingMaintenance holds "true" while maintenance mode is on.
	SettingMaintenance = "maintenance_mode"
)
