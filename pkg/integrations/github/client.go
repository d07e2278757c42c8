package github

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/matzehuels/activitygraph/pkg/activity"
	"github.com/matzehuels/activitygraph/pkg/cache"
	agerrors "github.com/matzehuels/activitygraph/pkg/errors"
	"github.com/matzehuels/activitygraph/pkg/integrations"
)

// MaxPageSize is the largest page the events endpoint serves.
const MaxPageSize = 100

// Client fetches public user events from the GitHub API.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a GitHub client caching raw responses in c for ttl.
// Pass an empty token for unauthenticated requests (60 requests/hour).
func NewClient(c cache.Cache, token string, ttl time.Duration) *Client {
	headers := map[string]string{
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": "2022-11-28",
	}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return &Client{
		Client:  integrations.NewClient(c, "github", ttl, headers),
		baseURL: "https://api.github.com",
	}
}

// WithBaseURL points the client at another API root (GitHub Enterprise or
// a test server) and returns c.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

// FetchEnvelopes returns the raw public events of user, newest first as
// served. limit is clamped to 1..MaxPageSize. If refresh is true the
// response cache is bypassed.
func (c *Client) FetchEnvelopes(ctx context.Context, user string, limit int, refresh bool) ([]Envelope, error) {
	if err := ValidateUser(user); err != nil {
		return nil, err
	}
	limit = min(max(limit, 1), MaxPageSize)
	key := "events:" + user + ":" + strconv.Itoa(limit)

	var envs []Envelope
	err := c.Cached(ctx, key, refresh, &envs, func() error {
		url := fmt.Sprintf("%s/users/%s/events/public?per_page=%d", c.baseURL, integrations.PathEscape(user), limit)
		if err := c.Get(ctx, url, &envs); err != nil {
			if errors.Is(err, integrations.ErrNotFound) {
				return agerrors.Wrap(agerrors.ErrCodeUserNotFound, err, "github user %s", user)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return envs, nil
}

// FetchEvents returns the classified public events of user, newest first.
func (c *Client) FetchEvents(ctx context.Context, user string, limit int, refresh bool) ([]activity.Event, error) {
	envs, err := c.FetchEnvelopes(ctx, user, limit, refresh)
	if err != nil {
		return nil, err
	}
	decoded := make([]Event, len(envs))
	for i, e := range envs {
		decoded[i] = e.Decode()
	}
	return ClassifyAll(decoded), nil
}
