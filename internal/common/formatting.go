package common

import "strings"

// ShortenSender shortens a sender for one-line summaries. Hex values such as
// addresses keep their first and last length characters, names are cut after
// 2*length characters.
func ShortenSender(s string, length int) string {
	s = strings.TrimSpace(s)

	r := []rune(s)
	if len(r) <= length*2 {
		return s
	}

	if strings.HasPrefix(s, "0x") {
		return s[:length] + "…" + s[len(s)-length:]
	}

	return strings.TrimSpace(string(r[:length*2])) + "…"
}
