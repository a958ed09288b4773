package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

func TestGETSendsQueryAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("q") != "acme phone" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		if r.Header.Get("X-Test") != "1" {
			t.Errorf("default header missing")
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithHeader("X-Test", "1"))
	resp, err := c.GET(context.Background(), "/search", url.Values{"q": {"acme phone"}})
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var body struct{ OK bool }
	if err := resp.ParseJSON(&body); err != nil || !body.OK {
		t.Fatalf("unexpected body %q (err %v)", resp.String(), err)
	}
}

func TestErrorStatusBecomesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).GET(context.Background(), "/x", nil)
	if StatusCode(err) != http.StatusForbidden {
		t.Fatalf("expected 403 HTTPError, got %v", err)
	}
	if Retryable(err) {
		t.Error("403 must not be retried")
	}
}

func TestDoWithRetryRecoversFromServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("done"))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	cfg := &RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 2 * time.Millisecond}
	resp, err := c.DoWithRetry(context.Background(), &Request{Method: http.MethodGet, Path: "/"}, cfg)
	if err != nil {
		t.Fatalf("DoWithRetry: %v", err)
	}
	if resp.String() != "done" || atomic.LoadInt32(&calls) != 3 {
		t.Errorf("unexpected result %q after %d calls", resp.String(), calls)
	}
}

func TestDoWithRetryStopsOnClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	cfg := &RetryConfig{MaxAttempts: 5, InitialWait: time.Millisecond, MaxWait: time.Millisecond}
	if _, err := c.DoWithRetry(context.Background(), &Request{Method: http.MethodGet, Path: "/"}, cfg); err == nil {
		t.Fatal("expected error")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected a single attempt, got %d", n)
	}
}

func TestRateLimiterHonoursContext(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first token: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); err == nil {
		t.Fatal("expected context error on empty bucket")
	}

	var nilLimiter *RateLimiter
	if err := nilLimiter.Wait(context.Background()); err != nil {
		t.Errorf("nil limiter blocked: %v", err)
	}
	if PerSecond(0) != nil {
		t.Error("PerSecond(0) should disable limiting")
	}
}
