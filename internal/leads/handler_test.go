package leads

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jihoo509/third-site/internal/config"
	"github.com/jihoo509/third-site/internal/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSubmitRejectsNonPost(t *testing.T) {
	h := NewHandler(newTestService(&fakeStore{}), nil)
	rec := httptest.NewRecorder()
	h.Submit(rec, httptest.NewRequest(http.MethodGet, "/api/submit", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "POST only", decodeBody(t, rec)["error"])
}

func TestSubmitWithoutConfig(t *testing.T) {
	h := NewHandler(NewService(&config.Config{}, &fakeStore{}, nil), nil)
	rec := httptest.NewRecorder()
	h.Submit(rec, httptest.NewRequest(http.MethodPost, "/api/submit", strings.NewReader(`{"type":"phone"}`)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Server not configured", body["error"])
	assert.Contains(t, body["detail"], "GH_TOKEN")
}

func TestSubmitInvalidJSON(t *testing.T) {
	store := &fakeStore{}
	h := NewHandler(newTestService(store), nil)
	for _, payload := range []string{"{", "null", "[1]"} {
		rec := httptest.NewRecorder()
		h.Submit(rec, httptest.NewRequest(http.MethodPost, "/api/submit", strings.NewReader(payload)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, payload)
		assert.Equal(t, "Invalid JSON body", decodeBody(t, rec)["error"])
	}
	assert.Zero(t, store.calls())
}

func TestSubmitInvalidTypeMakesNoUpstreamCall(t *testing.T) {
	store := &fakeStore{}
	h := NewHandler(newTestService(store), nil)
	rec := httptest.NewRecorder()
	h.Submit(rec, httptest.NewRequest(http.MethodPost, "/api/submit", strings.NewReader(`{"type":"bogus"}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid type", decodeBody(t, rec)["error"])
	assert.Zero(t, store.calls())
}

func TestSubmitEndToEnd(t *testing.T) {
	store := &fakeStore{}
	h := NewHandler(newTestService(store), nil)
	payload := `{"type":"phone","name":"홍길동","phone":"010-1234-5678","birth":"900101"}`
	rec := httptest.NewRecorder()
	h.Submit(rec, httptest.NewRequest(http.MethodPost, "/api/submit", strings.NewReader(payload)))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.EqualValues(t, 1, body["number"])

	require.Len(t, store.created, 1)
	assert.Contains(t, store.created[0].Title, "900101-*******")
	assert.NotContains(t, store.created[0].Title, "010-1234-5678")
}

func TestSubmitUpstreamErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{&github.APIError{StatusCode: 401, Body: "Bad credentials"}, http.StatusInternalServerError, "GitHub error"},
		{github.ErrTimeout, http.StatusGatewayTimeout, "Gateway Timeout from GitHub API"},
		{assert.AnError, http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tc := range cases {
		h := NewHandler(newTestService(&fakeStore{createErr: tc.err}), nil)
		rec := httptest.NewRecorder()
		h.Submit(rec, httptest.NewRequest(http.MethodPost, "/api/submit", strings.NewReader(`{"type":"online"}`)))

		assert.Equal(t, tc.status, rec.Code)
		assert.Equal(t, tc.msg, decodeBody(t, rec)["error"])
	}
}

func TestListPassesIssuesThrough(t *testing.T) {
	store := &fakeStore{issues: []github.Issue{
		{Number: 7, Raw: json.RawMessage(`{"number":7,"extra":"kept"}`)},
	}}
	h := NewHandler(newTestService(store), nil)
	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/admin/list?token=secret", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 1, body["count"])
	issues := body["issues"].([]any)
	assert.Equal(t, "kept", issues[0].(map[string]any)["extra"])
}

func TestListPassesUpstreamStatus(t *testing.T) {
	store := &fakeStore{listErr: &github.APIError{StatusCode: 404, Body: "Not Found"}}
	h := NewHandler(newTestService(store), nil)
	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/admin/list", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "GitHub API Error", body["error"])
	assert.Equal(t, "Not Found", body["details"])
}

func TestExportJSONWithUnparseableBody(t *testing.T) {
	store := &fakeStore{issues: []github.Issue{{Number: 1, Body: "free text only"}}}
	h := NewHandler(newTestService(store), nil)
	rec := httptest.NewRecorder()
	h.Export(rec, httptest.NewRequest(http.MethodGet, "/api/admin/export?format=json", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 1, body["count"])
	item := body["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "", item["name"])
	assert.Equal(t, "", item["birth_or_rrn"])
}

func TestExportCSVDownload(t *testing.T) {
	noteBody, err := EncodeStructuredNote(map[string]any{"type": "phone", "name": "홍길동", "notes": "a,b"})
	require.NoError(t, err)
	archiver := &fakeArchiver{}
	store := &fakeStore{issues: []github.Issue{{Number: 1, Body: noteBody}}}
	h := NewHandler(newTestService(store, WithArchiver(archiver)), nil)

	rec := httptest.NewRecorder()
	h.Export(rec, httptest.NewRequest(http.MethodGet, "/api/admin/export?format=csv&download=1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="leads-ALL-2024-01-01.csv"`, rec.Header().Get("Content-Disposition"))
	require.True(t, strings.HasPrefix(rec.Body.String(), utf8BOM))

	rows, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(rec.Body.String(), utf8BOM))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a,b", rows[1][12])
	h.service.Wait()
	assert.Len(t, archiver.payloads, 1)
}

func TestExportCSVDoesNotWaitForArchive(t *testing.T) {
	archiver := newBlockingArchiver()
	h := NewHandler(newTestService(&fakeStore{}, WithArchiver(archiver)), nil)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		rec := httptest.NewRecorder()
		h.Export(rec, httptest.NewRequest(http.MethodGet, "/api/admin/export?format=csv", nil))
		done <- rec
	}()

	select {
	case rec := <-done:
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.HasPrefix(rec.Body.String(), utf8BOM))
	case <-time.After(2 * time.Second):
		t.Fatal("export response blocked on the archive upload")
	}

	assert.True(t, <-archiver.hadDeadline)
	close(archiver.release)
	h.service.Wait()
}

func TestExportCSVWithoutDownload(t *testing.T) {
	h := NewHandler(newTestService(&fakeStore{}), nil)
	rec := httptest.NewRecorder()
	h.Export(rec, httptest.NewRequest(http.MethodGet, "/api/admin/export?format=csv", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
}

func TestExportInvalidFilter(t *testing.T) {
	store := &fakeStore{}
	h := NewHandler(newTestService(store), nil)
	rec := httptest.NewRecorder()
	h.Export(rec, httptest.NewRequest(http.MethodGet, "/api/admin/export?from=yesterday", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, store.calls())
}

func TestExportTimeout(t *testing.T) {
	h := NewHandler(newTestService(&fakeStore{listErr: github.ErrTimeout}), nil)
	rec := httptest.NewRecorder()
	h.Export(rec, httptest.NewRequest(http.MethodGet, "/api/admin/export", nil))

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}
