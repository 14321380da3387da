package leads

import (
	"context"

	"github.com/jihoo509/third-site/internal/github"
)

// IssueStore is the persisted-record backend. *github.Client satisfies it.
type IssueStore interface {
	CreateIssue(ctx context.Context, req github.IssueRequest) (*github.Issue, error)
	ListIssues(ctx context.Context, opts github.ListOptions) ([]github.Issue, error)
}

// Notice is what a notifier learns about a stored lead. It carries the
// masked title only.
type Notice struct {
	Number int
	Title  string
	Kind   Kind
	Site   string
}

// Notifier is told about each stored lead. Failures never affect the caller.
type Notifier interface {
	NotifyLead(ctx context.Context, notice Notice) error
}

// ExportArchiver keeps a copy of generated CSV exports.
type ExportArchiver interface {
	ArchiveExport(ctx context.Context, csv []byte) (string, error)
}
