package fallback

import (
	"strconv"
	"time"

	"github.com/jihoo509/third-site/internal/leads"
)

var exportHeader = []string{"번호", "이름", "연락처", "상담유형", "신청일시(KST)"}

// ExportCSV renders the short dashboard layout, numbered from 1 in the
// order given.
func ExportCSV(records []Record) string {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, exportHeader)
	for i, rec := range records {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			rec.Name,
			rec.Phone,
			rec.Type,
			rec.SubmittedAtKST,
		})
	}
	return leads.SerializeCSV(rows)
}

// ExportFilename is the download name for an export produced at t.
func ExportFilename(t time.Time) string {
	return "상담신청내역_" + t.UTC().Format("2006-01-02") + ".csv"
}
