package fallback

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jihoo509/third-site/internal/leads"
	"github.com/jihoo509/third-site/pkg/logging"
)

const maxRecordBodyBytes = 1 << 20

// Handler exposes the fallback store under /api/admin/local.
type Handler struct {
	store  *Store
	logger *logging.Logger
	now    func() time.Time
}

func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger, now: time.Now}
}

// Routes mounts the fallback endpoints on a sub-router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/records", h.Create)
	r.Get("/records", h.List)
	r.Delete("/records", h.Clear)
	r.Patch("/records/{id}/status", h.UpdateStatus)
	r.Delete("/records/{id}", h.Delete)
	r.Get("/export", h.Export)
	r.Post("/demo", h.Demo)
}

// Create handles POST /records.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var rec Record
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRecordBodyBytes))
	if err := dec.Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid JSON body", err.Error()))
		return
	}
	saved, err := h.store.Insert(r.Context(), rec)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "item": saved})
}

// List handles GET /records. An unavailable store lists nothing.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := leads.ParseFilter(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid filter", err.Error()))
		return
	}
	items, err := h.store.List(r.Context(), filter)
	if errors.Is(err, ErrUnavailable) {
		h.logger.Warn("fallback store unavailable", "error", err)
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":        true,
			"available": false,
			"count":     0,
			"items":     []Record{},
		})
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"available": true,
		"count":     len(items),
		"items":     items,
	})
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /records/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRecordBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid JSON body", err.Error()))
		return
	}
	rec, err := h.store.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "item": rec})
}

// Delete handles DELETE /records/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Clear handles DELETE /records.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Export handles GET /export.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := leads.ParseFilter(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid filter", err.Error()))
		return
	}
	items, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	filename := ExportFilename(h.now())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(
		`attachment; filename="export.csv"; filename*=UTF-8''%s`, url.PathEscape(filename)))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, ExportCSV(items))
}

// Demo handles POST /demo.
func (h *Handler) Demo(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.SeedDemo(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": len(items), "items": items})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("Not Found", ""))
	case errors.Is(err, ErrInvalidRecord):
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid record", err.Error()))
	case errors.Is(err, ErrUnavailable):
		h.logger.Warn("fallback store unavailable", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, errorBody("Local store unavailable", ""))
	default:
		h.logger.Error("fallback store failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("Internal Server Error", err.Error()))
	}
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
