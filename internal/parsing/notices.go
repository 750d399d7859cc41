package parsing

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/procurement-watch/internal/types"
)

// Notices decodes the items returned for one source. Number and bool fields
// are kept as their text and other non-string values are treated as empty.
// Items that are not objects or have neither title nor url are dropped.
func Notices(result Result, sourceID string) []types.Notice {
	items, ok := result[sourceID]
	if !ok {
		return nil
	}

	notices := make([]types.Notice, 0, len(items))
	for _, raw := range items {
		n, ok := decodeNotice(raw)
		if !ok || !n.HasIdentity() {
			continue
		}
		notices = append(notices, n)
	}
	return notices
}

func decodeNotice(raw json.RawMessage) (types.Notice, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return types.Notice{}, false
	}

	n := types.Notice{
		Title:    CleanText(fieldText(fields["title"])),
		Buyer:    CleanText(fieldText(fields["buyer"])),
		Country:  strings.ToUpper(CleanText(fieldText(fields["country"]))),
		Date:     strings.TrimSpace(fieldText(fields["date"])),
		NoticeID: CleanText(fieldText(fields["notice_id"])),
		URL:      strings.TrimSpace(fieldText(fields["url"])),
	}
	return n, true
}

// fieldText renders a scalar field as text. Nulls, arrays and objects are empty.
func fieldText(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// CleanText reduces an HTML fragment to its text and collapses whitespace
func CleanText(s string) string {
	if strings.ContainsAny(s, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}
