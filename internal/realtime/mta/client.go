package mta

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/bluele/gcache"
	"google.golang.org/protobuf/proto"

	"github.com/pradeepg78/TrainSense/internal/config"
	"github.com/pradeepg78/TrainSense/internal/metrics"
)

// ErrorKind classifies a feed failure. Unavailable covers transport
// failures (timeout, non-2xx); Malformed means the payload was fetched
// but does not decode as a FeedMessage. Both degrade to empty data at
// the aggregation layer; they are distinguished for diagnosis only.
type ErrorKind string

const (
	KindUnavailable ErrorKind = "unavailable"
	KindMalformed   ErrorKind = "malformed"
)

// FeedError is the typed failure result for a single feed group fetch.
// It never escapes to the HTTP layer as a hard failure; callers
// aggregate partial results and report per-group health instead.
type FeedError struct {
	Group string
	Kind  ErrorKind
	Cause error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("feed %s %s: %v", e.Group, e.Kind, e.Cause)
}

func (e *FeedError) Unwrap() error { return e.Cause }

// Prediction is one normalized stop-time prediction decoded from a
// trip update. One Prediction per stop-time-update entry, for every
// trip in the feed; filtering to a requested stop happens later so a
// decoded feed can serve multiple stops.
type Prediction struct {
	TripID    string
	RouteID   string
	StopID    string
	Direction string
	Epoch     int64 // predicted arrival, epoch seconds
}

// FeedSnapshot is the decoded, request-reusable form of one feed group.
type FeedSnapshot struct {
	Group         string
	FetchedAt     time.Time
	FeedTimestamp int64
	Entities      int
	Predictions   []Prediction
	Malformed     int // entries rejected at the decode boundary

	// Per-route trip counts used for service status analysis.
	RouteTrips   map[string]int
	RouteDelayed map[string]int // trips with any stop delayed >= delayThreshold
}

// Client fetches and decodes MTA GTFS-realtime feeds. Decoded
// snapshots are kept in a short-TTL cache so one fetch serves a
// multi-group request and closely spaced requests.
type Client struct {
	baseURL    string
	apiKey     string
	tables     *config.Tables
	timeout    time.Duration
	httpClient *http.Client
	cache      gcache.Cache
	cacheTTL   time.Duration
	collector  *metrics.Collector
}

// NewClient creates a feed client from runtime config and lookup tables.
func NewClient(cfg *config.Config, tables *config.Tables, collector *metrics.Collector) *Client {
	return &Client{
		baseURL: cfg.FeedBaseURL,
		apiKey:  cfg.MTAAPIKey,
		tables:  tables,
		timeout: cfg.FetchTimeout,
		httpClient: &http.Client{
			Timeout: cfg.FetchTimeout,
		},
		cache:     gcache.New(len(tables.FeedGroups) + 1).LRU().Build(),
		cacheTTL:  cfg.FeedCacheTTL,
		collector: collector,
	}
}

// FetchDecode returns the decoded snapshot for a feed group, from
// cache when fresh. A failed fetch is returned as *FeedError and is
// never cached.
func (c *Client) FetchDecode(ctx context.Context, group string) (*FeedSnapshot, error) {
	entry, err := GroupEntry(c.tables, group)
	if err != nil {
		return nil, &FeedError{Group: group, Kind: KindUnavailable, Cause: err}
	}

	if c.cacheTTL > 0 {
		if v, err := c.cache.Get(group); err == nil {
			if snap, ok := v.(*FeedSnapshot); ok {
				c.observe(group, "cached", 0)
				return snap, nil
			}
		}
	}

	snap, err := c.fetchDecode(ctx, entry)
	if err != nil {
		return nil, err
	}

	if c.cacheTTL > 0 {
		_ = c.cache.SetWithExpire(group, snap, c.cacheTTL)
	}
	return snap, nil
}

// fetchDecode performs one fetch+decode, bypassing the cache.
func (c *Client) fetchDecode(ctx context.Context, entry config.FeedGroupEntry) (*FeedSnapshot, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := c.fetch(ctx, FeedURL(c.baseURL, entry))
	if err != nil {
		c.observe(entry.Group, string(KindUnavailable), time.Since(start))
		return nil, &FeedError{Group: entry.Group, Kind: KindUnavailable, Cause: err}
	}

	fm := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, fm); err != nil {
		c.observe(entry.Group, string(KindMalformed), time.Since(start))
		return nil, &FeedError{Group: entry.Group, Kind: KindMalformed, Cause: err}
	}

	snap := decodeFeed(entry.Group, fm)
	snap.FetchedAt = time.Now().UTC()

	c.observe(entry.Group, "ok", time.Since(start))
	return snap, nil
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	return io.ReadAll(resp.Body)
}

func (c *Client) observe(group, result string, elapsed time.Duration) {
	if c.collector != nil {
		c.collector.ObserveFetch(group, result, elapsed)
	}
}
