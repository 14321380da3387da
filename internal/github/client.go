package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jihoo509/third-site/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultBaseURL     = "https://api.github.com"
	defaultUserAgent   = "third-site-leads/1.0"
	apiVersion         = "2022-11-28"
	acceptHeader       = "application/vnd.github+json"
	defaultHTTPTimeout = 30 * time.Second
)

var tracer = otel.Tracer("thirdsite.internal.github")

// ErrTimeout is returned when the call was aborted by its deadline.
var ErrTimeout = errors.New("github: request timed out")

// Config controls how the issues client behaves.
type Config struct {
	BaseURL    string
	Token      string
	Repo       string // owner/name
	HTTPClient *http.Client
	Logger     *logging.Logger
	UserAgent  string
}

// Client talks to the GitHub Issues REST API of a single repository.
type Client struct {
	baseURL    string
	token      string
	repo       string
	httpClient *http.Client
	logger     *logging.Logger
	userAgent  string
}

// New creates a Client. Token and repo are required.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("github: token is required")
	}
	repo := strings.Trim(strings.TrimSpace(cfg.Repo), "/")
	if owner, name, ok := strings.Cut(repo, "/"); !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("github: repo must be owner/name, got %q", cfg.Repo)
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		baseURL:    baseURL,
		token:      strings.TrimSpace(cfg.Token),
		repo:       repo,
		httpClient: httpClient,
		logger:     logger,
		userAgent:  userAgent,
	}, nil
}

// CreateIssue opens a new issue. Every call creates a new issue.
func (c *Client) CreateIssue(ctx context.Context, req IssueRequest) (*Issue, error) {
	ctx, span := tracer.Start(ctx, "github.issues.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("github.repo", c.repo),
		attribute.Int("github.labels", len(req.Labels)),
	)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("github: encode issue: %w", err)
	}
	data, err := c.invoke(ctx, http.MethodPost, c.issuesPath(), nil, body)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	var issue Issue
	if err := json.Unmarshal(data, &issue); err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("github: decode issue: %w", err)
	}
	issue.Raw = json.RawMessage(data)
	span.SetAttributes(attribute.Int("github.issue_number", issue.Number))
	return &issue, nil
}

// ListIssues fetches one page of issues, keeping each raw JSON object.
func (c *Client) ListIssues(ctx context.Context, opts ListOptions) ([]Issue, error) {
	ctx, span := tracer.Start(ctx, "github.issues.list")
	defer span.End()
	span.SetAttributes(attribute.String("github.repo", c.repo))

	data, err := c.invoke(ctx, http.MethodGet, c.issuesPath(), opts.query(), nil)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("github: decode issue list: %w", err)
	}
	issues := make([]Issue, 0, len(raws))
	for _, raw := range raws {
		var issue Issue
		if err := json.Unmarshal(raw, &issue); err != nil {
			c.logger.Warn("github: skipping undecodable issue", "error", err)
			issue = Issue{}
		}
		issue.Raw = raw
		issues = append(issues, issue)
	}
	span.SetAttributes(attribute.Int("github.issue_count", len(issues)))
	return issues, nil
}

// Repo returns the owner/name this client writes to.
func (c *Client) Repo() string {
	return c.repo
}

func (c *Client) issuesPath() string {
	return "/repos/" + c.repo + "/issues"
}

func (c *Client) invoke(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("github: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, fmt.Errorf("%w: %s %s", ErrTimeout, method, path)
		}
		return nil, fmt.Errorf("github: http error: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, fmt.Errorf("%w: reading %s", ErrTimeout, path)
		}
		return nil, fmt.Errorf("github: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("github: upstream rejected request",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
		)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// APIError carries a non-2xx upstream response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return "github: http status " + strconv.Itoa(e.StatusCode)
}
