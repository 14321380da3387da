package leads

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jihoo509/third-site/internal/config"
	"github.com/jihoo509/third-site/internal/github"
	"github.com/jihoo509/third-site/internal/observability/metrics"
	"github.com/jihoo509/third-site/pkg/logging"
)

const (
	maxUserAgentLen = 200
	notifyTimeout   = 5 * time.Second
	archiveTimeout  = 20 * time.Second
)

// RequestMeta is the server-side metadata attached to a submission.
type RequestMeta struct {
	UserAgent     string
	ForwardedFor  string
	RemoteAddress string
}

// MetaFromRequest collects user agent and client address from r.
func MetaFromRequest(r *http.Request) RequestMeta {
	return RequestMeta{
		UserAgent:     r.UserAgent(),
		ForwardedFor:  r.Header.Get("X-Forwarded-For"),
		RemoteAddress: r.RemoteAddr,
	}
}

// ClientIP is the first X-Forwarded-For entry, else the socket address.
func (m RequestMeta) ClientIP() string {
	if first, _, _ := strings.Cut(m.ForwardedFor, ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(m.RemoteAddress); err == nil {
		return host
	}
	return m.RemoteAddress
}

// Service ingests submissions into the issue store and reads them back as
// canonical records.
type Service struct {
	cfg      *config.Config
	store    IssueStore
	notifier Notifier
	archiver ExportArchiver
	metrics  *metrics.LeadMetrics
	logger   *logging.Logger
	now      func() time.Time

	archives sync.WaitGroup
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

func WithArchiver(a ExportArchiver) ServiceOption {
	return func(s *Service) { s.archiver = a }
}

func WithMetrics(m *metrics.LeadMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService wires a Service. store may be nil when the issue store is not
// configured; every operation then fails with config.ErrMissingConfig.
func NewService(cfg *config.Config, store IssueStore, logger *logging.Logger, opts ...ServiceOption) *Service {
	if cfg == nil {
		cfg = &config.Config{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		cfg:    cfg,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ready reports whether the issue store can be used.
func (s *Service) Ready() error {
	if err := s.cfg.ValidateIssueStore(); err != nil {
		return err
	}
	if s.store == nil {
		return fmt.Errorf("%w: issue store client", config.ErrMissingConfig)
	}
	return nil
}

// Submit persists one submission and returns the new issue number. Each call
// creates a new record; identical submissions are not deduplicated.
func (s *Service) Submit(ctx context.Context, sub *Submission, meta RequestMeta) (int, error) {
	if err := s.Ready(); err != nil {
		s.metrics.ObserveSubmission(string(sub.Kind), "config_error")
		return 0, err
	}
	if err := sub.Validate(); err != nil {
		s.metrics.ObserveSubmission("invalid", "rejected")
		return 0, err
	}

	site := sub.SiteOr(s.cfg.DefaultSite)
	title := Title(sub)
	body, err := EncodeStructuredNote(s.buildPayload(sub, meta))
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout(s.cfg.SubmitTimeout, 8*time.Second))
	defer cancel()

	start := s.now()
	issue, err := s.store.CreateIssue(ctx, github.IssueRequest{
		Title:  title,
		Body:   body,
		Labels: Labels(sub.Kind, site),
	})
	outcome := outcomeOf(err)
	s.metrics.ObserveUpstream("create", outcome, s.now().Sub(start).Seconds())
	s.metrics.ObserveSubmission(string(sub.Kind), outcome)
	if err != nil {
		s.logger.Error("lead submission failed", "type", sub.Kind, "site", site, "error", err)
		return 0, err
	}

	s.logger.Info("lead stored", "number", issue.Number, "type", sub.Kind, "site", site)
	s.notify(ctx, Notice{Number: issue.Number, Title: title, Kind: sub.Kind, Site: site})
	return issue.Number, nil
}

// buildPayload shallow-merges the client fields with server metadata. The
// server timestamp always replaces a client supplied requestedAt.
func (s *Service) buildPayload(sub *Submission, meta RequestMeta) map[string]any {
	payload := make(map[string]any, len(sub.Fields)+3)
	for k, v := range sub.Fields {
		payload[k] = v
	}
	payload["requestedAt"] = ISOTimestamp(s.now())
	payload["ua"] = truncateRunes(meta.UserAgent, maxUserAgentLen)
	payload["ip"] = meta.ClientIP()
	return payload
}

func (s *Service) notify(ctx context.Context, notice Notice) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := s.notifier.NotifyLead(ctx, notice); err != nil {
		s.logger.Warn("lead notification failed", "number", notice.Number, "error", err)
	}
}

// ListTimeout is the bound applied to raw listings.
func (s *Service) ListTimeout() time.Duration {
	return s.timeout(s.cfg.ListTimeout, 8*time.Second)
}

// ListIssues returns the most recent persisted records untouched.
func (s *Service) ListIssues(ctx context.Context) ([]github.Issue, error) {
	if err := s.Ready(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.ListTimeout())
	defer cancel()
	return s.fetchRecent(ctx, "list")
}

// Export fetches the most recent records and normalizes each one
// independently. A malformed body degrades that record to defaults.
func (s *Service) Export(ctx context.Context, filter Filter) ([]CanonicalRecord, error) {
	if err := s.Ready(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout(s.cfg.ExportTimeout, 10*time.Second))
	defer cancel()

	issues, err := s.fetchRecent(ctx, "export")
	if err != nil {
		return nil, err
	}
	records := make([]CanonicalRecord, 0, len(issues))
	for _, issue := range issues {
		records = append(records, NormalizeIssue(issue))
	}
	return filter.Apply(records), nil
}

// ArchiveCSV hands a generated export to the archiver, if any, without
// blocking the caller. The upload outlives ctx but is bounded by
// archiveTimeout. Failures are logged only.
func (s *Service) ArchiveCSV(ctx context.Context, csv string) {
	if s.archiver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	s.archives.Add(1)
	go func() {
		defer s.archives.Done()
		defer cancel()
		key, err := s.archiver.ArchiveExport(ctx, []byte(csv))
		if err != nil {
			s.logger.Warn("export archive failed", "error", err)
			return
		}
		if key != "" {
			s.logger.Info("export archived", "key", key)
		}
	}()
}

// Wait blocks until in-flight export archives finish.
func (s *Service) Wait() {
	s.archives.Wait()
}

// ObserveExport records an admin read outcome.
func (s *Service) ObserveExport(format string, err error) {
	s.metrics.ObserveExport(format, outcomeOf(err))
}

func (s *Service) fetchRecent(ctx context.Context, op string) ([]github.Issue, error) {
	limit := s.cfg.ListLimit
	if limit <= 0 {
		limit = 100
	}
	start := s.now()
	issues, err := s.store.ListIssues(ctx, github.RecentFirst(limit))
	s.metrics.ObserveUpstream(op, outcomeOf(err), s.now().Sub(start).Seconds())
	if err != nil {
		s.logger.Error("issue listing failed", "operation", op, "error", err)
		return nil, err
	}
	return issues, nil
}

func (s *Service) timeout(configured, fallback time.Duration) time.Duration {
	if configured > 0 {
		return configured
	}
	return fallback
}

func outcomeOf(err error) string {
	var apiErr *github.APIError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, github.ErrTimeout):
		return "timeout"
	case errors.As(err, &apiErr):
		return "upstream_error"
	case errors.Is(err, config.ErrMissingConfig):
		return "config_error"
	default:
		return "error"
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
