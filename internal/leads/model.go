package leads

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Kind discriminates the two intake forms.
type Kind string

const (
	KindPhone  Kind = "phone"
	KindOnline Kind = "online"
)

// Valid reports whether k is one of the accepted form kinds.
func (k Kind) Valid() bool {
	return k == KindPhone || k == KindOnline
}

// TitleLabel is the short prefix used in issue titles.
func (k Kind) TitleLabel() string {
	if k == KindOnline {
		return "온라인"
	}
	return "전화"
}

// RequestTypeLabel maps a raw type value to its export label. Anything that
// is not "online" is a phone consultation.
func RequestTypeLabel(kind string) string {
	if Kind(kind) == KindOnline {
		return "온라인분석"
	}
	return "전화상담"
}

// Submission is a validated intake payload. Fields holds the client payload
// as decoded so unknown keys survive into the stored note.
type Submission struct {
	Kind     Kind
	Site     string
	Name     string
	Phone    string
	Gender   string
	Notes    string
	Birth    string
	RRNFront string
	RRNBack  string
	RRNFull  string

	Fields map[string]any
}

// ParseSubmission validates an untrusted payload at the boundary.
func ParseSubmission(raw map[string]any) (*Submission, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	sub := &Submission{
		Kind:     Kind(stringField(raw, "type")),
		Site:     strings.TrimSpace(stringField(raw, "site")),
		Name:     strings.TrimSpace(stringField(raw, "name")),
		Phone:    strings.TrimSpace(stringField(raw, "phone")),
		Gender:   strings.TrimSpace(stringField(raw, "gender")),
		Notes:    strings.TrimSpace(stringField(raw, "notes")),
		Birth:    strings.TrimSpace(stringField(raw, "birth")),
		RRNFront: strings.TrimSpace(stringField(raw, "rrnFront")),
		RRNBack:  strings.TrimSpace(stringField(raw, "rrnBack")),
		RRNFull:  strings.TrimSpace(stringField(raw, "rrnFull")),
		Fields:   raw,
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	return sub, nil
}

// Validate enforces the per-kind rules.
func (s *Submission) Validate() error {
	if !s.Kind.Valid() {
		return ErrInvalidType
	}
	switch s.Gender {
	case "", "남", "여":
	default:
		return ErrInvalidGender
	}
	if s.RRNBack != "" && s.RRNFront == "" {
		return ErrInvalidIdentity
	}
	return nil
}

// SiteOr returns the submitted site or fallback when absent.
func (s *Submission) SiteOr(fallback string) string {
	if s.Site != "" {
		return s.Site
	}
	return fallback
}

// CombinedIdentity is the full identity string when one is available.
func (s *Submission) CombinedIdentity() string {
	if s.RRNFull != "" {
		return s.RRNFull
	}
	if s.Kind == KindOnline && s.RRNFront != "" && s.RRNBack != "" {
		return s.RRNFront + "-" + s.RRNBack
	}
	return ""
}

// BirthDigits is the six digit birth value for the submission's kind.
func (s *Submission) BirthDigits() string {
	if s.Kind == KindPhone {
		return s.Birth
	}
	return s.RRNFront
}

// stringField renders a decoded JSON value as text. Missing and null values
// become "".
func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	return stringify(v)
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
