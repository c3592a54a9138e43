package models_test

import (
	"anonrelay/backend/internal/models"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParticipant_DisplayNameAndHandle(t *testing.T) {
	assert.Equal(t, "Ann Lee", models.Participant{FirstName: "Ann", LastName: "Lee"}.DisplayName())
	assert.Equal(t, "Ann", models.Participant{FirstName: "Ann"}.DisplayName())
	assert.Equal(t, "Lee", models.Participant{LastName: "Lee"}.DisplayName())

	assert.Equal(t, "@ann", models.Participant{Username: "ann"}.Handle())
	assert.Empty(t, models.Participant{}.Handle())
}

func TestContent(t *testing.T) {
	tests := []struct {
		name      string
		content   models.Content
		supported bool
		body      string
		audit     string
	}{
		{"text", models.Content{Kind: models.KindText, Text: "hi"}, true, "hi", "hi"},
		{"captioned photo", models.Content{Kind: models.KindPhoto, FileID: "AgAD", Caption: "look"}, true, "AgAD", "look"},
		{"sticker", models.Content{Kind: models.KindSticker, FileID: "CAAC"}, true, "CAAC", "[media]"},
		{"unsupported", models.Content{Kind: models.KindUnsupported}, false, "", "[media]"},
		{"empty kind", models.Content{}, false, "", "[media]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.supported, tt.content.Supported())
			assert.Equal(t, tt.body, tt.content.Body())
			assert.Equal(t, tt.audit, tt.content.AuditText())
		})
	}
}

func TestAdminReplyRecord_TableName(t *testing.T) {
	assert.Equal(t, "admin_replies", models.AdminReplyRecord{}.TableName())
}
