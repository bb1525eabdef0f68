package confluence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"docsync/internal/fetch"
)

// Expand lists the page fields every content request asks for.
const Expand = "body.export_view,version,metadata.labels,space,history.lastUpdated"

const (
	spacePageSize  = 50
	spaceCacheSize = 256
)

var ErrSpaceNotFound = errors.New("confluence space not found")

type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	CloudID     string
	BaseURL     string
	User        string
	APIToken    string
	AccessToken string

	// RatePerSecond <= 0 disables client side limiting.
	RatePerSecond float64
	Timeout       time.Duration
}

// APIBase returns the REST root, honouring an explicit base url.
func (c Config) APIBase() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return "https://api.atlassian.com/ex/confluence/" + c.CloudID + "/wiki/rest/api"
}

// Client reads pages from the Confluence Cloud REST API.
type Client struct {
	http    Doer
	cfg     Config
	base    string
	limiter *rate.Limiter
	spaces  *lru.Cache[string, string]
}

func NewClient(doer Doer, cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	limit, burst := rate.Inf, 1
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
		burst = max(1, int(cfg.RatePerSecond))
	}

	// lru.New only errors on a non-positive size.
	spaces, _ := lru.New[string, string](spaceCacheSize)

	return &Client{
		http:    doer,
		cfg:     cfg,
		base:    cfg.APIBase(),
		limiter: rate.NewLimiter(limit, burst),
		spaces:  spaces,
	}
}

func (c *Client) APIBase() string {
	return c.base
}

// PageURL is the canonical REST location of a page.
func (c *Client) PageURL(id string) string {
	return c.base + "/content/" + id
}

func (c *Client) SearchPages(ctx context.Context, cql string, start, limit int) ([]fetch.Document, error) {
	params := url.Values{}
	params.Set("cql", cql)
	params.Set("start", strconv.Itoa(start))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("expand", Expand)

	var out struct {
		Results []page `json:"results"`
	}
	if err := c.get(ctx, "/content/search", params, &out); err != nil {
		return nil, fmt.Errorf("search pages: %w", err)
	}

	docs := make([]fetch.Document, 0, len(out.Results))
	for _, p := range out.Results {
		docs = append(docs, p.document(c.PageURL(p.ID)))
	}
	return docs, nil
}

func (c *Client) GetPage(ctx context.Context, id string) (fetch.Document, error) {
	params := url.Values{}
	params.Set("expand", Expand)

	var p page
	if err := c.get(ctx, "/content/"+url.PathEscape(id), params, &p); err != nil {
		return fetch.Document{}, fmt.Errorf("get page %s: %w", id, err)
	}
	if p.ID == "" {
		p.ID = id
	}
	return p.document(c.PageURL(p.ID)), nil
}

// ResolveSpaceKey finds the key of the space whose name matches,
// ignoring case. Results are cached for the life of the client.
func (c *Client) ResolveSpaceKey(ctx context.Context, name string) (string, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	if key, ok := c.spaces.Get(want); ok {
		return key, nil
	}

	start := 0
	for {
		params := url.Values{}
		params.Set("start", strconv.Itoa(start))
		params.Set("limit", strconv.Itoa(spacePageSize))

		var out struct {
			Results []struct {
				Key  string `json:"key"`
				Name string `json:"name"`
			} `json:"results"`
		}
		if err := c.get(ctx, "/space", params, &out); err != nil {
			return "", fmt.Errorf("list spaces: %w", err)
		}

		for _, s := range out.Results {
			c.spaces.Add(strings.ToLower(s.Name), s.Key)
			if strings.ToLower(s.Name) == want {
				return s.Key, nil
			}
		}
		if len(out.Results) < spacePageSize {
			return "", fmt.Errorf("%w: %q", ErrSpaceNotFound, name)
		}
		start += len(out.Results)
	}
}

// ResolveSpaceKeys maps every name to its key, failing on the first miss.
func (c *Client) ResolveSpaceKeys(ctx context.Context, names []string) ([]string, error) {
	keys := make([]string, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		key, err := c.ResolveSpaceKey(ctx, n)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "resolved space name", "name", n, "key", key)
		keys = append(keys, key)
	}
	return keys, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	u := c.base + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("confluence api error: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
		return
	}
	req.SetBasicAuth(c.cfg.User, c.cfg.APIToken)
}
