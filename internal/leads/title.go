package leads

import (
	"fmt"
	"strings"
)

const (
	noName        = "이름 미입력"
	noGender      = "성별 미선택"
	noBirth       = "생년월일 미입력"
	inquiryMarker = "문의O"

	combinedMask  = "******"
	birthMask     = "-*******"
	visiblePrefix = 8
	birthPrefix   = 6
)

// MaskedIdentity renders the identity segment of a title. The full value
// never appears: combined identities keep their first 8 characters, birth
// values keep at most 6 plus a fixed mask.
func MaskedIdentity(s *Submission) string {
	if combined := s.CombinedIdentity(); combined != "" {
		return clampRunes(combined, visiblePrefix) + combinedMask
	}
	if birth := s.BirthDigits(); birth != "" {
		return clampRunes(birth, birthPrefix) + birthMask
	}
	return noBirth
}

// Title builds the human-scannable issue title.
func Title(s *Submission) string {
	title := fmt.Sprintf("[%s] %s / %s / %s",
		s.Kind.TitleLabel(),
		orDefault(s.Name, noName),
		orDefault(s.Gender, noGender),
		MaskedIdentity(s),
	)
	if s.Notes == "" {
		return title
	}
	parts := []string{title}
	if s.Phone != "" {
		parts = append(parts, s.Phone)
	}
	parts = append(parts, inquiryMarker)
	return strings.Join(parts, " / ")
}

// Labels are the machine-readable issue labels for a submission.
func Labels(kind Kind, site string) []string {
	return []string{"type:" + string(kind), "site:" + site}
}

func clampRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
