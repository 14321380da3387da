package leads

import (
	"context"
	"sync"

	"github.com/jihoo509/third-site/internal/config"
	"github.com/jihoo509/third-site/internal/github"
)

type fakeStore struct {
	mu        sync.Mutex
	created   []github.IssueRequest
	listed    []github.ListOptions
	issues    []github.Issue
	createErr error
	listErr   error
	nextID    int
}

func (f *fakeStore) CreateIssue(_ context.Context, req github.IssueRequest) (*github.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	return &github.Issue{Number: f.nextID, Title: req.Title, Body: req.Body}, nil
}

func (f *fakeStore) ListIssues(_ context.Context, opts github.ListOptions) ([]github.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed = append(f.listed, opts)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.issues, nil
}

func (f *fakeStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created) + len(f.listed)
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []Notice
	err     error
}

func (f *fakeNotifier) NotifyLead(_ context.Context, n Notice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, n)
	return f.err
}

type fakeArchiver struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (f *fakeArchiver) ArchiveExport(_ context.Context, csv []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, csv)
	return "exports/test.csv", nil
}

// blockingArchiver holds every upload until release is closed.
type blockingArchiver struct {
	release     chan struct{}
	hadDeadline chan bool
}

func newBlockingArchiver() *blockingArchiver {
	return &blockingArchiver{release: make(chan struct{}), hadDeadline: make(chan bool, 1)}
}

func (b *blockingArchiver) ArchiveExport(ctx context.Context, _ []byte) (string, error) {
	_, ok := ctx.Deadline()
	b.hadDeadline <- ok
	<-b.release
	return "", ctx.Err()
}

func testConfig() *config.Config {
	return &config.Config{
		GitHubToken: "ghp_test",
		GitHubRepo:  "acme/leads",
		AdminToken:  "secret",
		DefaultSite: "teeth",
		ListLimit:   100,
	}
}
