package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(maxAttempts int) *Client {
	return NewClient(Options{
		Timeout:        2 * time.Second,
		MaxAttempts:    maxAttempts,
		HostRatePerSec: 1000,
		HostBurst:      1000,
		ForbiddenDelay: time.Millisecond,
		RateLimitDelay: time.Millisecond,
		TimeoutBackoff: time.Millisecond,
		NetworkBackoff: time.Millisecond,
	})
}

func TestDoSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := testClient(3).Do(context.Background(), Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q, want %q", body, "ok")
	}
}

func TestDoNotFoundFailsImmediately(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(3).Do(context.Background(), Request{URL: srv.URL})

	var hard *HardError
	if !errors.As(err, &hard) {
		t.Fatalf("want *HardError, got %v", err)
	}
	if hard.Reason != "not_found" {
		t.Errorf("reason = %q, want not_found", hard.Reason)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("404 was retried: %d requests", n)
	}
}

func TestDoDNSFailureFailsImmediately(t *testing.T) {
	_, err := testClient(3).Do(context.Background(),
		Request{URL: "http://no-such-host.invalid/bids"})

	var hard *HardError
	if !errors.As(err, &hard) {
		t.Fatalf("want *HardError, got %v", err)
	}
	if hard.Reason != "dns" {
		t.Errorf("reason = %q, want dns", hard.Reason)
	}
}

func TestDoForbiddenRetriesWithOriginHeaders(t *testing.T) {
	var hits int32
	var sawReferer atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.Header.Get("Referer") != "" && r.Header.Get("Origin") != "" {
			sawReferer.Store(true)
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := testClient(3).Do(context.Background(), Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q", body)
	}
	if !sawReferer.Load() {
		t.Error("retry after 403 did not carry synthesized Referer/Origin headers")
	}
}

func TestDoServerErrorRetriesThenSucceeds(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	if _, err := testClient(3).Do(context.Background(), Request{URL: srv.URL}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDoExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(2).Do(context.Background(), Request{URL: srv.URL})

	var exh *ExhaustedError
	if !errors.As(err, &exh) {
		t.Fatalf("want *ExhaustedError, got %v", err)
	}
	if exh.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", exh.Attempts)
	}
}

func TestDoRateLimitConsumesBudgetSlowly(t *testing.T) {
	// Three straight 429s would kill a 2-attempt budget if each one
	// consumed an attempt; the cooldown policy must survive them.
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := testClient(2).Do(context.Background(), Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q", body)
	}
	if n := atomic.LoadInt32(&hits); n != 4 {
		t.Errorf("requests = %d, want 4", n)
	}
}

func TestDoTimeoutBacksOffLinearly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(Options{
		Timeout:        50 * time.Millisecond,
		MaxAttempts:    2,
		HostRatePerSec: 1000,
		HostBurst:      1000,
		TimeoutBackoff: time.Millisecond,
		NetworkBackoff: time.Millisecond,
	})

	_, err := c.Do(context.Background(), Request{URL: srv.URL})

	var exh *ExhaustedError
	if !errors.As(err, &exh) {
		t.Fatalf("want *ExhaustedError after repeated timeouts, got %v", err)
	}
}

func TestDoContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := testClient(3).Do(ctx, Request{URL: srv.URL})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want context.DeadlineExceeded, got %v", err)
	}
}
