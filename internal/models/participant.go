package models

import "strings"

// Participant is the external identity of whoever talks to the bot.
// It is never stored on its own, only as a snapshot inside a LogEntry.
type Participant struct {
	// ID is the Telegram user (and private chat) identifier.
	ID int64 `gorm:"index" json:"id"`
	// FirstName and LastName are optional display names.
	FirstName string `gorm:"type:text" json:"first_name,omitempty"`
	LastName  string `gorm:"type:text" json:"last_name,omitempty"`
	// Username is the optional @handle without the leading "@".
	Username string `gorm:"type:text" json:"username,omitempty"`
	// LanguageCode is the IETF tag reported by the client, used to pick texts.
	LanguageCode string `gorm:"-" json:"language_code,omitempty"`
}

// DisplayName joins first and last name, trimming the gap when one is missing.
func (p Participant) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Handle returns "@username" or an empty string when no username is set.
func (p Participant) Handle() string {
	if p.Username == "" {
		return ""
	}
	return "@" + p.Username
}
