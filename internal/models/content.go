package models

// ContentKind is the type of a sender submission.
type ContentKind string

const (
	KindText      ContentKind = "text"
	KindPhoto     ContentKind = "photo"
	KindVideo     ContentKind = "video"
	KindVoice     ContentKind = "voice"
	KindVideoNote ContentKind = "video_note"
	KindSticker   ContentKind = "sticker"

	// KindUnsupported marks anything else (documents, animations, polls...).
	KindUnsupported ContentKind = "unsupported"
)

// Supported reports whether the kind can be relayed and logged.
func (k ContentKind) Supported() bool {
	switch k {
	case KindText, KindPhoto, KindVideo, KindVoice, KindVideoNote, KindSticker:
		return true
	}
	return false
}

// Content is a classified inbound message body.
// For text, Text holds the message; for media, FileID holds the
// transport file reference and Caption the optional caption.
type Content struct {
	Kind    ContentKind
	Text    string
	FileID  string
	Caption string
}

// Supported reports whether the content has a relayable kind.
func (c Content) Supported() bool {
	return c.Kind.Supported()
}

// Body returns what gets stored as LogEntry.Content: the text itself
// or the media file reference.
func (c Content) Body() string {
	if c.Kind == KindText {
		return c.Text
	}
	return c.FileID
}

// AuditText is the human readable part of the content: the text, the
// caption, or a placeholder for uncaptioned media.
func (c Content) AuditText() string {
	switch {
	case c.Kind == KindText:
		return c.Text
	case c.Caption != "":
		return c.Caption
	default:
		return "[media]"
	}
}
