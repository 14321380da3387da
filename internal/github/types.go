package github

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

// IssueRequest is the body of POST /repos/{owner}/{repo}/issues.
type IssueRequest struct {
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Labels []string `json:"labels,omitempty"`
}

// Issue is the subset of the issue object the lead pipeline reads.
// Raw keeps the untouched upstream JSON for passthrough listings.
type Issue struct {
	Number    int             `json:"number"`
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	State     string          `json:"state"`
	HTMLURL   string          `json:"html_url"`
	CreatedAt string          `json:"created_at"`
	Labels    []Label         `json:"labels"`
	Raw       json.RawMessage `json:"-"`
}

// Label accepts both the object form ({"name": "..."}) and a bare string.
type Label struct {
	Name string `json:"name"`
}

func (l *Label) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		l.Name = name
		return nil
	}
	var obj struct {
		Name any `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if s, ok := obj.Name.(string); ok {
		l.Name = s
	}
	return nil
}

// LabelValue returns the suffix of the first label starting with prefix.
func (i Issue) LabelValue(prefix string) string {
	for _, label := range i.Labels {
		if strings.HasPrefix(label.Name, prefix) {
			return label.Name[len(prefix):]
		}
	}
	return ""
}

// ListOptions maps onto the issues list query string.
type ListOptions struct {
	State     string
	Sort      string
	Direction string
	PerPage   int
}

// RecentFirst lists every issue regardless of state, newest first.
func RecentFirst(limit int) ListOptions {
	return ListOptions{State: "all", Sort: "created", Direction: "desc", PerPage: limit}
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	if o.State != "" {
		q.Set("state", o.State)
	}
	if o.Sort != "" {
		q.Set("sort", o.Sort)
	}
	if o.Direction != "" {
		q.Set("direction", o.Direction)
	}
	if o.PerPage > 0 {
		perPage := o.PerPage
		if perPage > 100 {
			perPage = 100
		}
		q.Set("per_page", strconv.Itoa(perPage))
	}
	return q
}
