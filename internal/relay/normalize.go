package relay

import "strings"

// NormalizeChatID converts a user-entered chat identifier into the form
// the Telegram API expects for supergroups and channels. All chat IDs
// pass through here exactly once, at the relay boundary.
//
// Rules:
//   - empty input stays empty
//   - "@username" handles pass through unchanged
//   - identifiers already carrying the "-100" prefix pass through unchanged
//   - bare numeric IDs get the "-100" prefix, dropping any plain minus sign
func NormalizeChatID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if strings.HasPrefix(id, "@") {
		return id
	}
	if strings.HasPrefix(id, "-100") {
		return id
	}
	return "-100" + strings.TrimPrefix(id, "-")
}
