package integrations

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/activitygraph/pkg/errors"
)

const httpTimeout = 10 * time.Second

var (
	// ErrNotFound is returned when a user, maintainer or resource does not exist upstream.
	ErrNotFound = errors.New(errors.ErrCodeNotFound, "not found")

	// ErrNetwork is returned for HTTP failures (connection errors, unexpected statuses, 5xx).
	ErrNetwork = errors.New(errors.ErrCodeNetwork, "network error")
)

// NewHTTPClient creates an HTTP client with the standard upstream timeout.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

var repoURLReplacer = strings.NewReplacer(
	"git@github.com:", "https://github.com/",
	"git://github.com/", "https://github.com/",
)

// NormalizeRepoURL converts git@, git:// and git+ repository URLs to the
// canonical HTTPS form without a .git suffix.
func NormalizeRepoURL(raw string) string {
	if raw == "" {
		return ""
	}
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "git+")
	s = repoURLReplacer.Replace(s)
	return strings.TrimSuffix(s, ".git")
}

// URLEncode percent-encodes a string for use in a query.
func URLEncode(s string) string { return url.QueryEscape(s) }

// PathEscape percent-encodes a string for use as one path segment.
func PathEscape(s string) string { return url.PathEscape(s) }
