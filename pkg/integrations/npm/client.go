package npm

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/activitygraph/pkg/activity"
	"github.com/matzehuels/activitygraph/pkg/cache"
	agerrors "github.com/matzehuels/activitygraph/pkg/errors"
	"github.com/matzehuels/activitygraph/pkg/integrations"
)

const (
	// EnrichLimit caps how many of the newest packages get a download count.
	EnrichLimit = 10

	// MaxPageSize is the largest page the search endpoint serves.
	MaxPageSize = 250
)

// Client searches the npm registry and its downloads API.
type Client struct {
	*integrations.Client
	baseURL      string
	downloadsURL string
}

// NewClient creates an npm client caching raw responses in c for ttl.
func NewClient(c cache.Cache, ttl time.Duration) *Client {
	return &Client{
		Client:       integrations.NewClient(c, "npm", ttl, map[string]string{"Accept": "application/json"}),
		baseURL:      "https://registry.npmjs.org",
		downloadsURL: "https://api.npmjs.org",
	}
}

// WithBaseURLs points the client at other registry and downloads roots
// and returns c. Empty arguments keep the current root.
func (c *Client) WithBaseURLs(registry, downloads string) *Client {
	if registry != "" {
		c.baseURL = registry
	}
	if downloads != "" {
		c.downloadsURL = downloads
	}
	return c
}

// SearchMaintainer returns up to limit packages maintained by maintainer,
// newest publish first. The first [EnrichLimit] packages carry their weekly
// download count when the downloads API answered for them.
func (c *Client) SearchMaintainer(ctx context.Context, maintainer string, limit int, refresh bool) ([]activity.Package, error) {
	maintainer = strings.TrimSpace(maintainer)
	if err := ValidateMaintainer(maintainer); err != nil {
		return nil, err
	}
	limit = min(max(limit, 1), MaxPageSize)

	var resp searchResponse
	key := "search:" + strings.ToLower(maintainer) + ":" + strconv.Itoa(limit)
	err := c.Cached(ctx, key, refresh, &resp, func() error {
		url := fmt.Sprintf("%s/-/v1/search?text=%s&size=%d",
			c.baseURL, integrations.URLEncode("maintainer:"+maintainer), limit)
		if err := c.Get(ctx, url, &resp); err != nil {
			if errors.Is(err, integrations.ErrNotFound) {
				return agerrors.Wrap(agerrors.ErrCodeUserNotFound, err, "npm maintainer %s", maintainer)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	pkgs := make([]activity.Package, 0, len(resp.Objects))
	for _, o := range resp.Objects {
		pkgs = append(pkgs, o.Package.toPackage())
	}
	sortNewestFirst(pkgs)

	c.enrich(ctx, pkgs[:min(len(pkgs), EnrichLimit)], refresh)
	return pkgs, nil
}

// WeeklyDownloads returns the download count of pkg over the last week.
func (c *Client) WeeklyDownloads(ctx context.Context, pkg string, refresh bool) (int64, error) {
	var resp downloadsResponse
	err := c.Cached(ctx, "downloads:"+pkg, refresh, &resp, func() error {
		url := fmt.Sprintf("%s/downloads/point/last-week/%s", c.downloadsURL, escapePackage(pkg))
		return c.Get(ctx, url, &resp)
	})
	if err != nil {
		return 0, err
	}
	return resp.Downloads, nil
}

// enrich fetches download counts for pkgs concurrently. Failures leave
// the metric nil and are never returned.
func (c *Client) enrich(ctx context.Context, pkgs []activity.Package, refresh bool) {
	var g errgroup.Group
	for i := range pkgs {
		g.Go(func() error {
			n, err := c.WeeklyDownloads(ctx, pkgs[i].Name, refresh)
			if err == nil {
				pkgs[i].WeeklyDownloads = &n
			}
			return nil
		})
	}
	_ = g.Wait()
}

// sortNewestFirst orders packages by publish date descending; undated
// packages go last, ties by name.
func sortNewestFirst(pkgs []activity.Package) {
	slices.SortStableFunc(pkgs, func(a, b activity.Package) int {
		az, bz := a.PublishedAt.IsZero(), b.PublishedAt.IsZero()
		switch {
		case az && !bz:
			return 1
		case bz && !az:
			return -1
		}
		if c := b.PublishedAt.Compare(a.PublishedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
}

// escapePackage keeps the scope separator of "@scope/name" readable while
// escaping everything else.
func escapePackage(name string) string {
	if scope, rest, ok := strings.Cut(name, "/"); ok && strings.HasPrefix(scope, "@") {
		return integrations.PathEscape(scope) + "/" + integrations.PathEscape(rest)
	}
	return integrations.PathEscape(name)
}

type searchResponse struct {
	Objects []struct {
		Package searchPackage `json:"package"`
	} `json:"objects"`
	Total int `json:"total"`
}

type searchPackage struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Links       struct {
		NPM        string `json:"npm"`
		Homepage   string `json:"homepage"`
		Repository string `json:"repository"`
	} `json:"links"`
}

func (p searchPackage) toPackage() activity.Package {
	out := activity.Package{
		Name:        p.Name,
		Version:     p.Version,
		Description: p.Description,
		URL:         p.Links.NPM,
	}
	if t, err := time.Parse(time.RFC3339, p.Date); err == nil {
		out.PublishedAt = t
	}
	return out
}

type downloadsResponse struct {
	Downloads int64  `json:"downloads"`
	Package   string `json:"package"`
}
