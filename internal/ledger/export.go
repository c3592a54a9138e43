package ledger

import (
	"anonrelay/backend/internal/models"
	"bytes"
	"fmt"
	"strings"
)

// ExportFileName is the document name used when the log is sent out.
const ExportFileName = "anonymous_log.txt"

const (
	dateLayout = "02.01.2006 15:04:05"
	separator  = "----------------------------------------------------------------------"
)

// Render writes entries in id order, each followed by the replies that
// address it. Replies pointing at ids not in entries come last. The output
// depends only on the records, so repeated exports are byte-identical.
func Render(entries []models.LogEntry, replies []models.AdminReplyRecord) []byte {
	byEntry := make(map[uint64][]models.AdminReplyRecord, len(replies))
	known := make(map[uint64]bool, len(entries))
	for _, e := range entries {
		known[e.ID] = true
	}
	var orphans []models.AdminReplyRecord
	for _, r := range replies {
		if known[r.InReplyTo] {
			byEntry[r.InReplyTo] = append(byEntry[r.InReplyTo], r)
		} else {
			orphans = append(orphans, r)
		}
	}

	var buf bytes.Buffer
	for _, e := range entries {
		writeEntry(&buf, e)
		for _, r := range byEntry[e.ID] {
			writeReply(&buf, r)
		}
	}
	for _, r := range orphans {
		writeReply(&buf, r)
	}
	return buf.Bytes()
}

func writeEntry(buf *bytes.Buffer, e models.LogEntry) {
	handle := e.Participant.Handle()
	if handle == "" {
		handle = "not set"
	}
	fmt.Fprintf(buf, "[#%d] %s\n", e.ID, separator)
	fmt.Fprintf(buf, "Name: %s\n", e.Participant.DisplayName())
	fmt.Fprintf(buf, "Username: %s\n", handle)
	fmt.Fprintf(buf, "User ID: %d\n", e.Participant.ID)
	fmt.Fprintf(buf, "Date: %s\n", e.CreatedAt.UTC().Format(dateLayout))
	fmt.Fprintf(buf, "Type: %s\n", e.Kind)
	buf.WriteString("Content:\n")
	buf.WriteString(entryContent(e))
	buf.WriteString("\n" + separator + "\n")
}

func entryContent(e models.LogEntry) string {
	if e.Kind == models.KindText {
		return e.Content
	}
	var sb strings.Builder
	sb.WriteString("File: " + e.Content)
	if e.Caption != "" {
		sb.WriteString("\nCaption: " + e.Caption)
	}
	return sb.String()
}

func writeReply(buf *bytes.Buffer, r models.AdminReplyRecord) {
	fmt.Fprintf(buf, "[Reply to #%d]\n", r.InReplyTo)
	fmt.Fprintf(buf, "Operator replied to user ID: %d\n", r.TargetParticipantID)
	fmt.Fprintf(buf, "Date: %s\n", r.CreatedAt.UTC().Format(dateLayout))
	fmt.Fprintf(buf, "Reply: %s\n", r.Content)
	buf.WriteString(separator + "\n")
}
