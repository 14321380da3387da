package leads

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Filter narrows a listing by form kind, KST calendar range and a substring
// over name and phone. The zero value matches everything.
type Filter struct {
	Kind  Kind
	From  string // YYYY-MM-DD, inclusive
	To    string // YYYY-MM-DD, inclusive
	Query string
}

// ParseFilter reads type, from, to and q from a query string.
func ParseFilter(q url.Values) (Filter, error) {
	f := Filter{
		Kind:  Kind(strings.ToLower(strings.TrimSpace(q.Get("type")))),
		From:  strings.TrimSpace(q.Get("from")),
		To:    strings.TrimSpace(q.Get("to")),
		Query: strings.TrimSpace(q.Get("q")),
	}
	if f.Kind == "all" {
		f.Kind = ""
	}
	if f.Kind != "" && !f.Kind.Valid() {
		return Filter{}, fmt.Errorf("%w: type %q", ErrInvalidFilter, f.Kind)
	}
	for _, d := range []string{f.From, f.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return Filter{}, fmt.Errorf("%w: date %q", ErrInvalidFilter, d)
		}
	}
	if f.From != "" && f.To != "" && f.From > f.To {
		return Filter{}, fmt.Errorf("%w: from is after to", ErrInvalidFilter)
	}
	return f, nil
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Match reports whether rec passes the filter.
func (f Filter) Match(rec CanonicalRecord) bool {
	if f.Kind != "" {
		kind := Kind(rec.Kind)
		if kind != KindOnline {
			kind = KindPhone
		}
		if kind != f.Kind {
			return false
		}
	}
	if f.From != "" || f.To != "" {
		day := displayDate(rec.RequestedAt)
		if day == "" {
			return false
		}
		if f.From != "" && day < f.From {
			return false
		}
		if f.To != "" && day > f.To {
			return false
		}
	}
	if f.Query != "" {
		if !strings.Contains(rec.Name, f.Query) && !strings.Contains(rec.Phone, f.Query) {
			return false
		}
	}
	return true
}

// Apply returns the records that pass the filter, preserving order.
func (f Filter) Apply(records []CanonicalRecord) []CanonicalRecord {
	if f.IsZero() {
		return records
	}
	out := make([]CanonicalRecord, 0, len(records))
	for _, rec := range records {
		if f.Match(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func displayDate(display string) string {
	if len(display) < len("2006-01-02") {
		return ""
	}
	return display[:10]
}
