package leads

import "strings"

// utf8BOM lets spreadsheet applications detect UTF-8.
const utf8BOM = "\uFEFF"

// SerializeCSV joins rows with "\n" and fields with ",". Fields containing a
// comma, double quote or newline are quoted with embedded quotes doubled.
func SerializeCSV(rows [][]string) string {
	var b strings.Builder
	b.WriteString(utf8BOM)
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, field := range row {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(escapeCSVField(field))
		}
	}
	return b.String()
}

func escapeCSVField(field string) string {
	if !strings.ContainsAny(field, ",\"\n") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// Column is one position of the export layout.
type Column struct {
	Key    string
	Header string
	Value  func(CanonicalRecord) string
}

// ExportColumns is the full export layout. Downstream spreadsheets depend on
// this order: attribution first, then identity/contact, then domain fields,
// then auxiliary attribution.
var ExportColumns = []Column{
	{"utm_source", "유입소스", func(r CanonicalRecord) string { return r.UTMSource }},
	{"utm_medium", "유입매체", func(r CanonicalRecord) string { return r.UTMMedium }},
	{"utm_campaign", "캠페인", func(r CanonicalRecord) string { return r.UTMCampaign }},
	{"utm_content", "콘텐츠", func(r CanonicalRecord) string { return r.UTMContent }},
	{"utm_term", "키워드", func(r CanonicalRecord) string { return r.UTMTerm }},

	{"site", "사이트", func(r CanonicalRecord) string { return r.Site }},
	{"requested_at", "신청시간", func(r CanonicalRecord) string { return r.RequestedAt }},
	{"request_type", "신청종류", func(r CanonicalRecord) string { return r.RequestType }},
	{"name", "이름", func(r CanonicalRecord) string { return r.Name }},
	{"phone", "전화번호", func(r CanonicalRecord) string { return r.Phone }},
	{"birth_or_rrn", "생년월일(주민번호)", func(r CanonicalRecord) string { return r.BirthOrRRN }},
	{"gender", "성별", func(r CanonicalRecord) string { return r.Gender }},
	{"notes", "문의사항", func(r CanonicalRecord) string { return r.Notes }},

	{"surgery_date", "수술시점", func(r CanonicalRecord) string { return r.SurgeryDate }},
	{"diagnosis", "진단명", func(r CanonicalRecord) string { return r.Diagnosis }},
	{"pet_breed", "반려동물 품종", func(r CanonicalRecord) string { return r.PetBreed }},
	{"pet_name", "반려동물 이름", func(r CanonicalRecord) string { return r.PetName }},
	{"pet_gender", "반려동물 성별", func(r CanonicalRecord) string { return r.PetGender }},
	{"pet_birth_date", "반려동물 생년월일", func(r CanonicalRecord) string { return r.PetBirthDate }},
	{"pet_reg_number", "동물등록번호", func(r CanonicalRecord) string { return r.PetRegNumber }},
	{"pet_neutered", "중성화 여부", func(r CanonicalRecord) string { return r.PetNeutered }},
	{"company_name", "사업자명", func(r CanonicalRecord) string { return r.CompanyName }},
	{"business_number", "사업자번호", func(r CanonicalRecord) string { return r.BusinessNumber }},
	{"is_first_startup", "최초 창업", func(r CanonicalRecord) string { return r.IsFirstStartup }},
	{"has_past_claim", "과거 경정청구", func(r CanonicalRecord) string { return r.HasPastClaim }},
	{"existing_loan_status", "기대출 현황", func(r CanonicalRecord) string { return r.ExistingLoanStatus }},
	{"is_loan_overdue", "기대출 연체", func(r CanonicalRecord) string { return r.IsLoanOverdue }},
	{"has_applied_for_policy_fund", "정책자금 신청", func(r CanonicalRecord) string { return r.HasAppliedForPolicyFund }},

	{"landing_page", "최초방문페이지", func(r CanonicalRecord) string { return r.LandingPage }},
	{"referrer", "이전페이지", func(r CanonicalRecord) string { return r.Referrer }},
	{"first_utm", "최초UTM", func(r CanonicalRecord) string { return r.FirstUTM }},
	{"last_utm", "최종UTM", func(r CanonicalRecord) string { return r.LastUTM }},
}

// ExportRows renders the header row followed by one row per record.
func ExportRows(records []CanonicalRecord) [][]string {
	rows := make([][]string, 0, len(records)+1)
	header := make([]string, len(ExportColumns))
	for i, col := range ExportColumns {
		header[i] = col.Header
	}
	rows = append(rows, header)
	for _, rec := range records {
		row := make([]string, len(ExportColumns))
		for i, col := range ExportColumns {
			row[i] = col.Value(rec)
		}
		rows = append(rows, row)
	}
	return rows
}

// ExportCSV is SerializeCSV over ExportRows.
func ExportCSV(records []CanonicalRecord) string {
	return SerializeCSV(ExportRows(records))
}
