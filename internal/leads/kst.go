package leads

import (
	"strings"
	"time"
)

const (
	kstOffset     = 9 * time.Hour
	displayLayout = "2006-01-02 15:04:05"
	isoMillis     = "2006-01-02T15:04:05.000Z"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02",
}

// ToKoreanDisplayTime shifts an ISO-8601 instant by +9h and renders it in UTC
// notation, so the result never depends on the host timezone. Empty or
// unparseable input yields "".
func ToKoreanDisplayTime(iso string) string {
	t, ok := parseTimestamp(iso)
	if !ok {
		return ""
	}
	return t.UTC().Add(kstOffset).Format(displayLayout)
}

// ISOTimestamp renders t like JavaScript's Date.toISOString.
func ISOTimestamp(t time.Time) string {
	return t.UTC().Format(isoMillis)
}

// KSTDate returns the Korean calendar date (YYYY-MM-DD) of t.
func KSTDate(t time.Time) string {
	return t.UTC().Add(kstOffset).Format("2006-01-02")
}

func parseTimestamp(iso string) (time.Time, bool) {
	iso = strings.TrimSpace(iso)
	if iso == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, iso); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
