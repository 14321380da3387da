package leads

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jihoo509/third-site/internal/config"
	"github.com/jihoo509/third-site/internal/github"
	"github.com/jihoo509/third-site/pkg/logging"
)

const maxSubmitBodyBytes = 1 << 20

// Handler serves the intake and admin read endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new leads handler
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Submit handles POST /api/submit.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("POST only", ""))
		return
	}
	if err := h.service.Ready(); err != nil {
		h.logger.Error("submit rejected: server not configured", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("Server not configured", err.Error()))
		return
	}

	raw, err := decodeObject(http.MaxBytesReader(w, r.Body, maxSubmitBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid JSON body", err.Error()))
		return
	}
	sub, err := ParseSubmission(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(validationMessage(err), ""))
		return
	}

	number, err := h.service.Submit(r.Context(), sub, MetaFromRequest(r))
	if err != nil {
		h.writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "number": number})
}

func (h *Handler) writeSubmitError(w http.ResponseWriter, err error) {
	var apiErr *github.APIError
	switch {
	case errors.Is(err, config.ErrMissingConfig):
		writeJSON(w, http.StatusInternalServerError, errorBody("Server not configured", err.Error()))
	case errors.Is(err, ErrInvalidType), errors.Is(err, ErrInvalidGender), errors.Is(err, ErrInvalidIdentity):
		writeJSON(w, http.StatusBadRequest, errorBody(validationMessage(err), ""))
	case errors.As(err, &apiErr):
		writeJSON(w, http.StatusInternalServerError, errorBody("GitHub error", apiErr.Body))
	case errors.Is(err, github.ErrTimeout):
		writeJSON(w, http.StatusGatewayTimeout, errorBody("Gateway Timeout from GitHub API", ""))
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody("Internal Server Error", err.Error()))
	}
}

// List handles GET /api/admin/list. Issues are returned exactly as the
// issue store sent them.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	issues, err := h.service.ListIssues(r.Context())
	h.service.ObserveExport("raw", err)
	if err != nil {
		h.writeAdminError(w, err)
		return
	}
	raw := make([]json.RawMessage, 0, len(issues))
	for _, issue := range issues {
		if len(issue.Raw) > 0 {
			raw = append(raw, issue.Raw)
			continue
		}
		data, mErr := json.Marshal(issue)
		if mErr != nil {
			continue
		}
		raw = append(raw, data)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"count":  len(raw),
		"issues": raw,
	})
}

// Export handles GET /api/admin/export. format=csv selects the CSV layout,
// anything else returns JSON.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter, err := ParseFilter(query)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid filter", err.Error()))
		return
	}
	format := strings.ToLower(query.Get("format"))
	if format != "csv" {
		format = "json"
	}

	records, err := h.service.Export(r.Context(), filter)
	h.service.ObserveExport(format, err)
	if err != nil {
		h.writeAdminError(w, err)
		return
	}

	if format == "json" {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":    true,
			"count": len(records),
			"items": records,
		})
		return
	}

	body := ExportCSV(records)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	if wantsDownload(query.Get("download")) {
		filename := fmt.Sprintf("leads-ALL-%s.csv", h.service.now().UTC().Format("2006-01-02"))
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)

	h.service.ArchiveCSV(r.Context(), body)
}

func (h *Handler) writeAdminError(w http.ResponseWriter, err error) {
	var apiErr *github.APIError
	switch {
	case errors.Is(err, config.ErrMissingConfig):
		writeJSON(w, http.StatusInternalServerError, errorBody("Server not configured", err.Error()))
	case errors.As(err, &apiErr):
		status := apiErr.StatusCode
		if status < 400 {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, map[string]any{
			"ok":      false,
			"error":   "GitHub API Error",
			"details": apiErr.Body,
		})
	case errors.Is(err, github.ErrTimeout):
		writeJSON(w, http.StatusGatewayTimeout, errorBody("Gateway Timeout", ""))
	default:
		h.logger.Error("admin read failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("Internal Server Error", err.Error()))
	}
}

func decodeObject(body io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	if raw == nil {
		return nil, ErrInvalidBody
	}
	return raw, nil
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidType):
		return "Invalid type"
	case errors.Is(err, ErrInvalidGender):
		return "Invalid gender"
	case errors.Is(err, ErrInvalidIdentity):
		return "rrnBack requires rrnFront"
	default:
		return "Invalid request"
	}
}

func wantsDownload(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func errorBody(msg, detail string) map[string]any {
	body := map[string]any{"ok": false, "error": msg}
	if detail != "" {
		body["detail"] = detail
	}
	return body
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
