package relay

import (
	"anonrelay/backend/internal/session"
	"fmt"
	"strconv"
	"strings"
)

const actionPrefix = "reply_to_"

// EncodeAction builds the reply-action payload "reply_to_<target>_<ref>".
func EncodeAction(a session.Action) string {
	return fmt.Sprintf("%s%d_%d", actionPrefix, a.TargetID, a.RefID)
}

// DecodeAction parses a reply-action payload. Anything malformed, or with
// a zero target or ref, is rejected.
func DecodeAction(data string) (session.Action, bool) {
	rest, ok := strings.CutPrefix(data, actionPrefix)
	if !ok {
		return session.Action{}, false
	}
	target, ref, ok := strings.Cut(rest, "_")
	if !ok {
		return session.Action{}, false
	}
	t, err := strconv.ParseInt(target, 10, 64)
	if err != nil || t == 0 {
		return session.Action{}, false
	}
	r, err := strconv.ParseUint(ref, 10, 64)
	if err != nil || r == 0 {
		return session.Action{}, false
	}
	return session.Action{TargetID: t, RefID: r}, true
}

// IsAction reports whether data looks like a reply-action payload.
func IsAction(data string) bool {
	return strings.HasPrefix(data, actionPrefix)
}
