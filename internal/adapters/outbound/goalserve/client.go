package goalserve

import (
	"compress/gzip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/charleschow/football-notify/internal/telemetry"
)

// ClientOptions configures the livescore client.
type ClientOptions struct {
	BaseURL    string // e.g. http://www.goalserve.com/getfeed
	APIKey     string
	Feed       string // e.g. soccernew/home
	RatePerMin int
	CacheTTL   time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client fetches the GoalServe livescore feed. Every worker polls through
// the same client: responses are cached for CacheTTL, concurrent fetches are
// collapsed into one request, and requests are rate limited.
type Client struct {
	baseURL    string
	apiKey     string
	feed       string
	httpClient *http.Client
	limiter    *rate.Limiter
	ttl        time.Duration
	logger     *slog.Logger

	sf        singleflight.Group
	mu        sync.Mutex
	cached    []Fixture
	fetchedAt time.Time
}

func NewClient(opts ClientOptions) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	perMin := opts.RatePerMin
	if perMin <= 0 {
		perMin = 30
	}
	return &Client{
		baseURL:    opts.BaseURL,
		apiKey:     opts.APIKey,
		feed:       opts.Feed,
		httpClient: hc,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), 1),
		ttl:        opts.CacheTTL,
		logger:     logger,
	}
}

func (c *Client) feedURL() string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.apiKey, c.feed)
}

// Livescore returns every fixture currently listed in the feed.
func (c *Client) Livescore(ctx context.Context) ([]Fixture, error) {
	if fx, ok := c.fromCache(); ok {
		return fx, nil
	}

	// The shared fetch outlives any single caller; each caller only stops
	// waiting when its own ctx ends.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.sf.DoChan("livescore", func() (any, error) {
		if fx, ok := c.fromCache(); ok {
			return fx, nil
		}
		fx, err := c.fetchLivescore(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.cached = fx
		c.fetchedAt = time.Now()
		c.mu.Unlock()
		return fx, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Fixture), nil
	}
}

func (c *Client) fromCache() ([]Fixture, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ttl <= 0 || c.fetchedAt.IsZero() || time.Since(c.fetchedAt) > c.ttl {
		return nil, false
	}
	return c.cached, true
}

func (c *Client) fetchLivescore(ctx context.Context) ([]Fixture, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var feed scoresXML
	if err := c.fetchXML(ctx, c.feedURL(), &feed); err != nil {
		return nil, fmt.Errorf("fetch livescore: %w", err)
	}
	telemetry.Metrics.FeedFetches.Inc()

	fixtures, skipped := feed.fixtures()
	if len(skipped) > 0 {
		telemetry.Metrics.FixturesSkipped.Add(int64(len(skipped)))
		c.logger.Warn("Skipped unparseable fixtures", "count", len(skipped), "first", skipped[0])
	}
	return fixtures, nil
}

func (c *Client) fetchXML(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http get: status=%d", resp.StatusCode)
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	if err := xml.NewDecoder(reader).Decode(out); err != nil {
		return fmt.Errorf("xml decode: %w", err)
	}
	return nil
}
