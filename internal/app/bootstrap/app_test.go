package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jihoo509/third-site/internal/config"
	"github.com/jihoo509/third-site/internal/github"
	"github.com/jihoo509/third-site/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct{ created int }

func (s *stubStore) CreateIssue(context.Context, github.IssueRequest) (*github.Issue, error) {
	s.created++
	return &github.Issue{Number: 99}, nil
}

func (s *stubStore) ListIssues(context.Context, github.ListOptions) ([]github.Issue, error) {
	return nil, nil
}

func failingLoader(context.Context) (aws.Config, error) {
	return aws.Config{}, errors.New("no credentials")
}

func staticLoader(context.Context) (aws.Config, error) {
	return aws.Config{Region: "ap-northeast-2"}, nil
}

func TestBuildRequiresConfig(t *testing.T) {
	_, err := Build(context.Background(), nil, nil, Options{})
	assert.Error(t, err)
}

func TestBuildServesWithoutIssueStoreConfig(t *testing.T) {
	app, err := Build(context.Background(), &config.Config{}, logging.New("error"), Options{AWSLoader: failingLoader})
	require.NoError(t, err)
	defer app.Close()

	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/submit", strings.NewReader(`{"type":"phone"}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Server not configured")
}

func TestBuildWiresIssueStore(t *testing.T) {
	store := &stubStore{}
	cfg := &config.Config{
		GitHubToken:      "t",
		GitHubRepo:       "acme/leads",
		DefaultSite:      "teeth",
		SubmitRatePerSec: 1,
		SubmitRateBurst:  5,
	}
	app, err := Build(context.Background(), cfg, logging.New("error"), Options{IssueStore: store, AWSLoader: failingLoader})
	require.NoError(t, err)
	defer app.Close()

	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/submit", strings.NewReader(`{"type":"phone"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"number":99}`, rec.Body.String())
	assert.Equal(t, 1, store.created)

	rec = httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "leads_intake_submissions_total")
}

func TestBuildFailsOnBrokenAWSForEnabledArchive(t *testing.T) {
	cfg := &config.Config{ExportArchiveBucket: "exports"}
	_, err := Build(context.Background(), cfg, logging.New("error"), Options{AWSLoader: failingLoader})
	assert.Error(t, err)
}

func TestBuildEmailSender(t *testing.T) {
	logger := logging.New("error")
	ctx := context.Background()

	sender, err := BuildEmailSender(ctx, &config.Config{}, failingLoader, logger)
	require.NoError(t, err)
	assert.Nil(t, sender)

	sender, err = BuildEmailSender(ctx, &config.Config{NotifyProvider: "sendgrid"}, failingLoader, logger)
	require.NoError(t, err)
	assert.Nil(t, sender)

	sender, err = BuildEmailSender(ctx, &config.Config{NotifyProvider: "sendgrid", SendGridAPIKey: "k"}, failingLoader, logger)
	require.NoError(t, err)
	assert.NotNil(t, sender)

	sender, err = BuildEmailSender(ctx, &config.Config{NotifyProvider: "ses"}, staticLoader, logger)
	require.NoError(t, err)
	assert.NotNil(t, sender)

	_, err = BuildEmailSender(ctx, &config.Config{NotifyProvider: "ses"}, failingLoader, logger)
	assert.Error(t, err)

	_, err = BuildEmailSender(ctx, &config.Config{NotifyProvider: "pigeon"}, failingLoader, logger)
	assert.Error(t, err)
}

func TestBuildNotifierNeedsRecipient(t *testing.T) {
	logger := logging.New("error")
	n, err := BuildNotifier(context.Background(), &config.Config{NotifyProvider: "stub"}, failingLoader, logger)
	require.NoError(t, err)
	assert.Nil(t, n)

	n, err = BuildNotifier(context.Background(), &config.Config{NotifyProvider: "stub", NotifyToEmail: "ops@example.com"}, failingLoader, logger)
	require.NoError(t, err)
	assert.NotNil(t, n)
}

func TestBuildArchiver(t *testing.T) {
	logger := logging.New("error")
	store, err := BuildArchiver(context.Background(), &config.Config{}, failingLoader, logger)
	require.NoError(t, err)
	assert.Nil(t, store)

	store, err = BuildArchiver(context.Background(), &config.Config{ExportArchiveBucket: "exports"}, staticLoader, logger)
	require.NoError(t, err)
	assert.True(t, store.Enabled())
}
