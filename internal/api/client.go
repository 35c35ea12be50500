// Package api is the client for the GeoAI platform REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	perrors "github.com/p-blackswan/geoai-console/internal/errors"
	"github.com/p-blackswan/geoai-console/internal/metrics"
	"github.com/p-blackswan/geoai-console/internal/models"
	"github.com/p-blackswan/geoai-console/internal/requestid"
	"github.com/p-blackswan/geoai-console/internal/retry"
	"github.com/p-blackswan/geoai-console/lru"
	"github.com/p-blackswan/geoai-console/pkg/tokenstore"
)

const serviceName = "geoai"

// refreshCookie is the cookie the server keeps the refresh token in.
const refreshCookie = "refresh_token"

// HTTPClient abstracts HTTP calls for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	Retry     retry.Config
	RateLimit rate.Limit
	Burst     int
	CacheTTL  time.Duration
	Metrics   *metrics.Metrics
}

// DefaultOptions returns options suitable for interactive use.
func DefaultOptions(baseURL string) Options {
	return Options{
		BaseURL:   baseURL,
		Timeout:   30 * time.Second,
		Retry:     retry.DefaultConfig(),
		RateLimit: 10,
		Burst:     20,
		CacheTTL:  5 * time.Minute,
	}
}

// Client wraps the GeoAI REST API.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	tokens     tokenstore.Store
	limiter    *rate.Limiter
	retry      retry.Config
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	now        func() time.Time

	refreshMu sync.Mutex

	qualities  *lru.Cache[string, models.ImageQualities]
	modelTypes *lru.Cache[string, []string]
	byType     *lru.Cache[string, []models.MLModel]
}

// NewClient creates a new GeoAI API client. Credentials are read from and
// written to tokens.
func NewClient(opts Options, tokens tokenstore.Store, logger zerolog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Inf
	}
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}

	log := logger.With().Str("component", "api").Logger()
	rc := opts.Retry
	if rc.OnRetry == nil {
		rc.OnRetry = func(next int, delay time.Duration, err error) {
			log.Debug().Err(err).Int("attempt", next).Dur("delay", delay).Msg("Retrying request")
		}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		httpClient: &http.Client{Timeout: opts.Timeout},
		tokens:     tokens,
		limiter:    rate.NewLimiter(opts.RateLimit, opts.Burst),
		retry:      rc,
		metrics:    opts.Metrics,
		logger:     log,
		now:        time.Now,
		qualities:  lru.New[string, models.ImageQualities](1, opts.CacheTTL),
		modelTypes: lru.New[string, []string](1, opts.CacheTTL),
		byType:     lru.New[string, []models.MLModel](16, opts.CacheTTL),
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(hc HTTPClient) {
	c.httpClient = hc
}

// BaseURL returns the base URL of the GeoAI server.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// PurgeCache drops cached lookups.
func (c *Client) PurgeCache() {
	c.qualities.Purge()
	c.modelTypes.Purge()
	c.byType.Purge()
}

// call describes one API request. Paths are relative to /api.
type call struct {
	method string
	path   string
	route  string // metrics label when path carries an id
	query  url.Values
	body   any
	public bool // no bearer token, no refresh on 401
}

func (r call) label() string {
	if r.route != "" {
		return r.route
	}
	return r.path
}

// do runs a request. GETs are idempotent and retried on transient errors.
func (c *Client) do(ctx context.Context, r call, out any) error {
	attempt := func(ctx context.Context) error {
		return c.doOnce(ctx, r, out)
	}
	if r.method != http.MethodGet {
		return attempt(ctx)
	}
	return retry.Do(ctx, c.retry, attempt)
}

// doOnce sends a request and, on a 401, refreshes the session and replays
// the request exactly once.
func (c *Client) doOnce(ctx context.Context, r call, out any) error {
	resp, sent, err := c.send(ctx, r)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && !r.public {
		drain(resp)
		if err := c.refreshAfter(ctx, sent); err != nil {
			return err
		}
		resp, _, err = c.send(ctx, r)
		if err != nil {
			return err
		}
	}

	return c.decode(resp, r, out)
}

func (c *Client) send(ctx context.Context, r call) (*http.Response, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", fmt.Errorf("rate limit wait: %w", err)
	}

	var body io.Reader
	if r.body != nil {
		buf, err := json.Marshal(r.body)
		if err != nil {
			return nil, "", fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	u := c.baseURL + "/api" + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	reqID := requestid.Inject(req)

	var token string
	if !r.public {
		token = c.accessToken(ctx)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	if tok, err := c.tokens.Get(ctx, tokenstore.RefreshTokenKey); err == nil {
		req.AddCookie(&http.Cookie{Name: refreshCookie, Value: tok.Value})
	}

	start := c.now()
	resp, err := c.httpClient.Do(req)
	elapsed := c.now().Sub(start)
	if err != nil {
		c.metrics.ObserveAPI(r.method, r.label(), "error", elapsed)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", ctxErr
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, "", fmt.Errorf("%s %s: %w", r.method, r.path, perrors.ErrTimeout)
		}
		return nil, "", fmt.Errorf("%s %s: %w: %v", r.method, r.path, perrors.ErrUnavailable, err)
	}

	c.metrics.ObserveAPI(r.method, r.label(), strconv.Itoa(resp.StatusCode), elapsed)
	c.logger.Debug().
		Str("request_id", reqID).
		Str("method", r.method).
		Str("path", r.path).
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Msg("API request")

	c.captureRefreshCookie(ctx, resp)
	return resp, token, nil
}

func (c *Client) decode(resp *http.Response, r call, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return parseAPIError(resp.StatusCode, body)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.metrics.RecordError("api", "decode")
		return fmt.Errorf("decoding %s response: %w", r.path, err)
	}
	return nil
}

// errorBody is the server's error envelope. Detail is either
// {"code","message"}, a plain string, or a list of validation errors.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

func parseAPIError(status int, body []byte) *perrors.APIError {
	var code, msg string

	var eb errorBody
	if json.Unmarshal(body, &eb) == nil && len(eb.Detail) > 0 {
		var d struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		var s string
		var list []struct {
			Msg string `json:"msg"`
		}
		switch {
		case json.Unmarshal(eb.Detail, &d) == nil:
			code, msg = d.Code, d.Message
		case json.Unmarshal(eb.Detail, &s) == nil:
			msg = s
		case json.Unmarshal(eb.Detail, &list) == nil && len(list) > 0:
			msg = list[0].Msg
		}
	}

	return perrors.NewAPIError(serviceName, status, code, msg)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
}

// Ping checks that the server answers HTTP at all.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	requestid.Inject(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", perrors.ErrUnavailable, err)
	}
	drain(resp)
	if resp.StatusCode >= 500 {
		return perrors.NewAPIError(serviceName, resp.StatusCode, "", "")
	}
	return nil
}

// cached returns the cached value for key or loads and stores it.
func cached[V any](ctx context.Context, cache *lru.Cache[string, V], key string, load func(context.Context) (V, error)) (V, error) {
	if v, ok := cache.Get(key); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	cache.Put(key, v)
	return v, nil
}

// pageQuery encodes the pagination and filter/sort axes of a list request.
// The "all" filter is never sent.
func pageQuery[F any](p models.Pagination, fs models.FilterSort[F], filter string) url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if filter != "" && filter != models.FilterAll {
		q.Set("filter", filter)
	}
	if fs.Search != "" {
		q.Set("search", fs.Search)
	}
	if fs.Sort != "" {
		q.Set("sort", fs.Sort)
	}
	if fs.Reverse {
		q.Set("reverse", "true")
	}
	return q
}

func idQuery(key string, id int64) url.Values {
	return url.Values{key: {strconv.FormatInt(id, 10)}}
}
