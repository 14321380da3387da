package leads

import (
	"strings"

	"github.com/jihoo509/third-site/internal/github"
)

// CanonicalRecord is the flat shape shared by JSON listings, CSV rows and the
// local fallback store. Every field defaults to "".
type CanonicalRecord struct {
	Site        string `json:"site"`
	RequestedAt string `json:"requested_at"`
	RequestType string `json:"request_type"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	BirthOrRRN  string `json:"birth_or_rrn"`
	Gender      string `json:"gender"`
	Notes       string `json:"notes"`

	SurgeryDate string `json:"surgery_date"`
	Diagnosis   string `json:"diagnosis"`

	PetBreed     string `json:"pet_breed"`
	PetName      string `json:"pet_name"`
	PetGender    string `json:"pet_gender"`
	PetBirthDate string `json:"pet_birth_date"`
	PetRegNumber string `json:"pet_reg_number"`
	PetNeutered  string `json:"pet_neutered"`

	CompanyName             string `json:"company_name"`
	BusinessNumber          string `json:"business_number"`
	IsFirstStartup          string `json:"is_first_startup"`
	HasPastClaim            string `json:"has_past_claim"`
	ExistingLoanStatus      string `json:"existing_loan_status"`
	IsLoanOverdue           string `json:"is_loan_overdue"`
	HasAppliedForPolicyFund string `json:"has_applied_for_policy_fund"`

	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`
	UTMContent  string `json:"utm_content"`
	UTMTerm     string `json:"utm_term"`
	LandingPage string `json:"landing_page"`
	Referrer    string `json:"referrer"`
	FirstUTM    string `json:"first_utm"`
	LastUTM     string `json:"last_utm"`

	// Kind is the raw type value, kept for filtering only.
	Kind string `json:"-"`
}

// IssueMeta is the part of a persisted issue the normalizer reads besides
// the structured note.
type IssueMeta struct {
	Labels    []github.Label
	CreatedAt string
}

// MetaFromIssue extracts IssueMeta from an issue.
func MetaFromIssue(issue github.Issue) IssueMeta {
	return IssueMeta{Labels: issue.Labels, CreatedAt: issue.CreatedAt}
}

func (m IssueMeta) label(prefix string) string {
	return github.Issue{Labels: m.Labels}.LabelValue(prefix)
}

// Normalize maps one persisted record onto the canonical shape. It is total:
// an empty note produces a record of defaults.
func Normalize(meta IssueMeta, note map[string]any) CanonicalRecord {
	if note == nil {
		note = map[string]any{}
	}
	get := func(key string) string { return stringField(note, key) }

	site := firstNonEmpty(meta.label("site:"), get("site"), "N/A")
	kind := firstNonEmpty(meta.label("type:"), get("type"))

	return CanonicalRecord{
		Site:        site,
		RequestedAt: ToKoreanDisplayTime(firstNonEmpty(get("requestedAt"), meta.CreatedAt)),
		RequestType: RequestTypeLabel(kind),
		Name:        get("name"),
		Phone:       firstNonEmpty(get("phone"), get("phoneNumber")),
		BirthOrRRN:  birthOrIdentity(note),
		Gender:      get("gender"),
		Notes:       get("notes"),

		SurgeryDate: get("surgeryDate"),
		Diagnosis:   get("diagnosis"),

		PetBreed:     get("petBreed"),
		PetName:      get("petName"),
		PetGender:    get("petGender"),
		PetBirthDate: get("petBirthDate"),
		PetRegNumber: get("petRegNumber"),
		PetNeutered:  get("petNeutered"),

		CompanyName:             get("companyName"),
		BusinessNumber:          get("businessNumber"),
		IsFirstStartup:          get("isFirstStartup"),
		HasPastClaim:            get("hasPastClaim"),
		ExistingLoanStatus:      get("existingLoanStatus"),
		IsLoanOverdue:           get("isLoanOverdue"),
		HasAppliedForPolicyFund: get("hasAppliedForPolicyFund"),

		UTMSource:   get("utm_source"),
		UTMMedium:   get("utm_medium"),
		UTMCampaign: get("utm_campaign"),
		UTMContent:  get("utm_content"),
		UTMTerm:     get("utm_term"),
		LandingPage: get("landing_page"),
		Referrer:    get("referrer"),
		FirstUTM:    get("first_utm"),
		LastUTM:     get("last_utm"),

		Kind: kind,
	}
}

// NormalizeIssue is Normalize over an issue's labels and body.
func NormalizeIssue(issue github.Issue) CanonicalRecord {
	return Normalize(MetaFromIssue(issue), ExtractStructuredNote(issue.Body))
}

// birthOrIdentity picks the identity column. Newer full-identity fields win
// over legacy partial fields.
func birthOrIdentity(note map[string]any) string {
	if full := stringField(note, "rrnFull"); full != "" {
		return full
	}
	front, back := stringField(note, "rrnFront"), stringField(note, "rrnBack")
	if front != "" && back != "" {
		return front + "-" + back
	}
	return firstNonEmpty(stringField(note, "birth"), stringField(note, "birth6"), front)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
