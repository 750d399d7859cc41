package store

import (
	"strings"
	"unicode"

	"github.com/jonathan/procurement-watch/internal/types"
)

// MaxKeyLength bounds the normalized identity part of a stable key
const MaxKeyLength = 140

// StableKey derives the dedup identity of a notice within a source. The
// identifying text is the first non-empty of notice_id, url and title, with
// whitespace, quotes and path separators replaced by '_' and truncated to
// MaxKeyLength runes. The source id prefix keeps sources from colliding.
func StableKey(sourceID string, n types.Notice) string {
	ident := n.NoticeID
	if ident == "" {
		ident = n.URL
	}
	if ident == "" {
		ident = n.Title
	}
	return sourceID + "|" + normalizeIdent(ident)
}

func normalizeIdent(s string) string {
	var sb strings.Builder
	count := 0
	for _, r := range s {
		if count == MaxKeyLength {
			break
		}
		switch {
		case unicode.IsSpace(r), r == '"', r == '\'', r == '/', r == '\\':
			sb.WriteByte('_')
		default:
			sb.WriteRune(r)
		}
		count++
	}
	return sb.String()
}
