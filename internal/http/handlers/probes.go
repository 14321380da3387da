package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jihoo509/third-site/internal/config"
)

// ProbeHandler serves liveness and configuration-presence probes. Secrets
// are reported as booleans only.
type ProbeHandler struct {
	cfg *config.Config
	now func() time.Time
}

func NewProbeHandler(cfg *config.Config) *ProbeHandler {
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &ProbeHandler{cfg: cfg, now: time.Now}
}

func (h *ProbeHandler) timestamp() string {
	return h.now().UTC().Format("2006-01-02T15:04:05.000Z")
}

// Health handles /api/health and /api/debug.
func (h *ProbeHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeProbe(w, map[string]any{
		"ok": true,
		"ts": h.timestamp(),
		"env": map[string]bool{
			"GH_TOKEN":         h.cfg.GitHubToken != "",
			"GH_REPO_FULLNAME": h.cfg.GitHubRepo != "",
			"ADMIN_TOKEN":      h.cfg.AdminToken != "",
		},
	})
}

// Ping handles /api/ping.
func (h *ProbeHandler) Ping(w http.ResponseWriter, r *http.Request) {
	writeProbe(w, map[string]any{"ok": true, "ts": h.timestamp()})
}

// NetCheck handles /api/netcheck.
func (h *ProbeHandler) NetCheck(w http.ResponseWriter, r *http.Request) {
	writeProbe(w, map[string]any{"ok": true, "who": "netcheck"})
}

// Version handles /api/version.
func (h *ProbeHandler) Version(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	commit := h.cfg.CommitSHA
	if commit == "" {
		commit = "unknown"
	}
	writeProbe(w, map[string]any{
		"ok":     true,
		"ts":     h.timestamp(),
		"commit": commit,
		"route":  r.URL.Path,
	})
}

func writeProbe(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(payload)
}
