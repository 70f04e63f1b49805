package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"bidwatch-engine/internal/logging"
)

const userAgent = "BidWatch/1.0 (+local)"

// HardError is a failure that retrying cannot fix for this run: the endpoint
// is gone (404) or the hostname does not resolve. Callers log these at
// warning and move on.
type HardError struct {
	URL    string
	Reason string // "not_found", "dns", "bad_status"
	Err    error
}

func (e *HardError) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
}
func (e *HardError) Unwrap() error { return e.Err }

// ExhaustedError means the budget ran out on a transient failure class.
type ExhaustedError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("fetch %s: exhausted %d attempts: %v", e.URL, e.Attempts, e.Err)
}
func (e *ExhaustedError) Unwrap() error { return e.Err }

type Request struct {
	URL         string
	Method      string // defaults to GET
	Body        []byte
	Headers     map[string]string
	MaxAttempts int // defaults to the client's
}

type Options struct {
	Timeout        time.Duration
	MaxAttempts    int
	HostRatePerSec float64
	HostBurst      int
	Logger         *logging.Logger

	// Delay knobs; zero values get production defaults. Tests shrink them.
	ForbiddenDelay time.Duration // fixed wait after a 403
	RateLimitDelay time.Duration // long cooldown after a 429
	TimeoutBackoff time.Duration // linear step after a connection timeout
	NetworkBackoff time.Duration // base for other network errors, doubles
}

type Client struct {
	hc          *http.Client
	limiter     *HostLimiter
	log         *logging.Logger
	maxAttempts int

	forbiddenDelay time.Duration
	rateLimitDelay time.Duration
	timeoutBackoff time.Duration
	networkBackoff time.Duration
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.HostRatePerSec <= 0 {
		opts.HostRatePerSec = 2
	}
	if opts.HostBurst <= 0 {
		opts.HostBurst = 4
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.ForbiddenDelay <= 0 {
		opts.ForbiddenDelay = 5 * time.Second
	}
	if opts.RateLimitDelay <= 0 {
		opts.RateLimitDelay = 30 * time.Second
	}
	if opts.TimeoutBackoff <= 0 {
		opts.TimeoutBackoff = 2 * time.Second
	}
	if opts.NetworkBackoff <= 0 {
		opts.NetworkBackoff = time.Second
	}

	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	return &Client{
		hc:             &http.Client{Timeout: opts.Timeout, Transport: tr},
		limiter:        NewHostLimiter(opts.HostRatePerSec, opts.HostBurst),
		log:            opts.Logger,
		maxAttempts:    opts.MaxAttempts,
		forbiddenDelay: opts.ForbiddenDelay,
		rateLimitDelay: opts.RateLimitDelay,
		timeoutBackoff: opts.TimeoutBackoff,
		networkBackoff: opts.NetworkBackoff,
	}
}

// Do issues the request with bounded retries and per-failure-class policy.
// 200 returns the body; 404 and DNS failures fail immediately as *HardError;
// 403 retries after a fixed delay with Referer/Origin synthesized from the
// target's own origin; 429 waits out a long cooldown and only every second
// hit consumes an attempt; timeouts back off linearly with the attempt
// number; other network errors back off exponentially. A spent budget
// returns *ExhaustedError.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = c.maxAttempts
	}

	extraHeaders := map[string]string{}
	for k, v := range req.Headers {
		extraHeaders[k] = v
	}

	var lastErr error
	rateLimitHits := 0
	attempt := 1

	// Hard iteration cap: 429s that don't consume attempts must still
	// terminate.
	for iter := 0; iter < 2*maxAttempts+2 && attempt <= maxAttempts; iter++ {
		if err := c.limiter.WaitURL(ctx, req.URL); err != nil {
			return nil, err
		}

		hreq, err := http.NewRequestWithContext(ctx, method, req.URL, bytes.NewReader(req.Body))
		if err != nil {
			return nil, &HardError{URL: req.URL, Reason: "bad_request", Err: err}
		}
		hreq.Header.Set("User-Agent", userAgent)
		for k, v := range extraHeaders {
			hreq.Header.Set(k, v)
		}

		res, err := c.hc.Do(hreq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			var dnsErr *net.DNSError
			if errors.As(err, &dnsErr) {
				return nil, &HardError{URL: req.URL, Reason: "dns", Err: err}
			}

			lastErr = err
			var delay time.Duration
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				delay = time.Duration(attempt) * c.timeoutBackoff
				c.log.Warn("fetch timeout", "url", req.URL, "attempt", attempt, "delay", delay)
			} else {
				delay = c.networkBackoff << (attempt - 1)
				c.log.Warn("fetch network error", "url", req.URL, "attempt", attempt, "err", err)
			}
			attempt++
			if attempt > maxAttempts {
				break
			}
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		body, readErr := io.ReadAll(res.Body)
		res.Body.Close()

		switch {
		case res.StatusCode >= 200 && res.StatusCode < 300:
			if readErr != nil {
				lastErr = readErr
				attempt++
				continue
			}
			return body, nil

		case res.StatusCode == http.StatusNotFound:
			return nil, &HardError{URL: req.URL, Reason: "not_found",
				Err: fmt.Errorf("status %d", res.StatusCode)}

		case res.StatusCode == http.StatusForbidden:
			// Portals that 403 plain clients often accept requests that
			// look like same-origin browser traffic.
			if o := origin(req.URL); o != "" {
				extraHeaders["Referer"] = o + "/"
				extraHeaders["Origin"] = o
			}
			lastErr = fmt.Errorf("status 403")
			c.log.Warn("fetch forbidden, retrying with origin headers", "url", req.URL, "attempt", attempt)
			attempt++
			if attempt > maxAttempts {
				break
			}
			if err := sleep(ctx, c.forbiddenDelay); err != nil {
				return nil, err
			}

		case res.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("status 429")
			rateLimitHits++
			if rateLimitHits%2 == 0 {
				attempt++
			}
			c.log.Warn("fetch rate-limited, cooling down", "url", req.URL, "cooldown", c.rateLimitDelay)
			if attempt > maxAttempts {
				break
			}
			if err := sleep(ctx, c.rateLimitDelay); err != nil {
				return nil, err
			}

		case res.StatusCode >= 500:
			lastErr = fmt.Errorf("status %d", res.StatusCode)
			c.log.Warn("fetch server error", "url", req.URL, "status", res.StatusCode, "attempt", attempt)
			attempt++
			if attempt > maxAttempts {
				break
			}
			if err := sleep(ctx, c.networkBackoff<<(attempt-2)); err != nil {
				return nil, err
			}

		default:
			// Remaining 4xx mean the request itself is structurally wrong.
			return nil, &HardError{URL: req.URL, Reason: "bad_status",
				Err: fmt.Errorf("status %d", res.StatusCode)}
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no attempts made")
	}
	return nil, &ExhaustedError{URL: req.URL, Attempts: maxAttempts, Err: lastErr}
}

func origin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
