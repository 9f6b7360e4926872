package fetcher

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"

	"github.com/sells-group/pubenrich/internal/config"
	"github.com/sells-group/pubenrich/internal/resilience"
)

// DefaultUserAgent mimics a desktop browser; several publishers refuse
// requests from obvious bots.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent    string
	Timeout      time.Duration
	MaxAttempts  int
	MaxBodyBytes int64
	// HostRate is the starting per-host request rate.
	HostRate rate.Limit
	// Retry overrides backoff timing; MaxAttempts still wins.
	Retry resilience.RetryConfig
}

// OptionsFromConfig maps the fetch and resilience config sections.
func OptionsFromConfig(f config.FetchConfig, r config.ResilienceConfig) HTTPOptions {
	return HTTPOptions{
		UserAgent:    f.UserAgent,
		Timeout:      time.Duration(f.TimeoutSecs) * time.Second,
		MaxAttempts:  f.MaxAttempts,
		MaxBodyBytes: int64(f.MaxBodyKB) * 1024,
		Retry:        resilience.RetryFromConfig(r),
	}
}

// AdaptiveLimiter is a per-host limiter that speeds up on success and
// halves its rate after a 429.
type AdaptiveLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	current rate.Limit
	maxRate rate.Limit
	minRate rate.Limit
}

// NewAdaptiveLimiter starts at initial and stays within [initial/4, initial*2].
func NewAdaptiveLimiter(initial rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter: rate.NewLimiter(initial, burst),
		current: initial,
		maxRate: initial * 2,
		minRate: initial / 4,
	}
}

// Wait blocks until a request may be sent.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess raises the rate by 20%.
func (a *AdaptiveLimiter) OnSuccess() {
	a.set(a.Limit() * 1.2)
}

// OnRateLimit halves the rate.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.set(a.Limit() * 0.5)
	zap.L().Warn("fetch: host rate limited, slowing down", zap.Float64("rate", float64(a.Limit())))
}

// Limit returns the current rate.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func (a *AdaptiveLimiter) set(r rate.Limit) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r = max(a.minRate, min(a.maxRate, r))
	a.current = r
	a.limiter.SetLimit(r)
}

// HTTPFetcher implements Fetcher with net/http.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	mu    sync.Mutex
	hosts map[string]*AdaptiveLimiter
}

// NewHTTPFetcher creates an HTTPFetcher, filling unset options with
// defaults: browser user agent, 30s timeout, 2 attempts, 2 MiB body cap.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 2
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 2 << 20
	}
	if opts.HostRate <= 0 {
		opts.HostRate = 2
	}
	opts.Retry.MaxAttempts = opts.MaxAttempts
	if opts.Retry.OnRetry == nil {
		opts.Retry.OnRetry = resilience.RetryLogger("fetch", "get")
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:  opts,
		hosts: make(map[string]*AdaptiveLimiter),
	}
}

// Fetch performs one logical GET, retrying transient failures.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "fetch: parse url %q", rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", eris.Errorf("fetch: unsupported scheme %q", u.Scheme)
	}

	lim := f.limiterFor(u.Host)
	body, err := resilience.DoVal(ctx, f.opts.Retry, func(ctx context.Context) (string, error) {
		if err := lim.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "fetch: rate limiter wait")
		}
		return f.get(ctx, lim, rawURL)
	})
	if err != nil {
		return "", eris.Wrapf(err, "fetch: %s", rawURL)
	}
	return body, nil
}

func (f *HTTPFetcher) get(ctx context.Context, lim *AdaptiveLimiter, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "nl-NL,nl;q=0.9,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusTooManyRequests {
		lim.OnRateLimit()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", resilience.StatusError("fetch", resp.StatusCode, string(snippet))
	}
	lim.OnSuccess()

	var r io.Reader = io.LimitReader(resp.Body, f.opts.MaxBodyBytes)
	if enc := charsetOf(resp.Header.Get("Content-Type")); enc != "" {
		if e, err := htmlindex.Get(enc); err == nil {
			if name, _ := htmlindex.Name(e); name != "utf-8" {
				r = e.NewDecoder().Reader(r)
			}
		} else {
			zap.L().Debug("fetch: unknown charset, reading as utf-8", zap.String("charset", enc))
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", eris.Wrap(err, "fetch: read body")
	}
	return string(data), nil
}

func (f *HTTPFetcher) limiterFor(host string) *AdaptiveLimiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.hosts[host]
	if !ok {
		lim = NewAdaptiveLimiter(f.opts.HostRate, 1)
		f.hosts[host] = lim
	}
	return lim
}

func charsetOf(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(params["charset"])
}
