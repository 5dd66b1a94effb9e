package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// refreshServer serves a protected list endpoint that accepts only the
// "fresh" token, plus a refresh endpoint whose behavior the test controls.
type refreshServer struct {
	refreshHits   atomic.Int64
	protectedHits atomic.Int64

	refreshStatus int           // status for /v1/auth/refresh; 200 issues "fresh"
	refreshDelay  time.Duration // simulated latency
	refreshEnter  chan struct{} // closed-over signal channel, may be nil
	refreshBlock  chan struct{} // handler blocks on this when non-nil
}

func (s *refreshServer) start(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		s.refreshHits.Add(1)
		if s.refreshEnter != nil {
			s.refreshEnter <- struct{}{}
		}
		if s.refreshBlock != nil {
			<-s.refreshBlock
		}
		if s.refreshDelay > 0 {
			time.Sleep(s.refreshDelay)
		}
		if s.refreshStatus != http.StatusOK {
			w.WriteHeader(s.refreshStatus)
			json.NewEncoder(w).Encode(map[string]string{"error": "unable to refresh session"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"accessToken": "fresh", "user": map[string]any{"id": 1}})
	})
	mux.HandleFunc("GET /v1/documents", func(w http.ResponseWriter, r *http.Request) {
		s.protectedHits.Add(1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid token"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"documents": []any{}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(Options{BaseURL: srv.URL, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestRefreshSingleFlight(t *testing.T) {
	s := &refreshServer{refreshStatus: http.StatusOK, refreshDelay: 50 * time.Millisecond}
	c := newTestClient(t, s.start(t))

	const workers = 16
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			_, err := c.ListDocuments(context.Background())
			results <- err
		}()
	}

	close(start)
	wg.Wait()
	close(results)

	for err := range results {
		if err != nil {
			t.Fatalf("unexpected list error: %v", err)
		}
	}
	if got := s.refreshHits.Load(); got != 1 {
		t.Fatalf("expected exactly one refresh request, got %d", got)
	}
	if c.AccessToken() != "fresh" {
		t.Fatalf("access token not updated, got %q", c.AccessToken())
	}
}

func TestRefreshFailureFailsAllWaiters(t *testing.T) {
	s := &refreshServer{refreshStatus: http.StatusUnauthorized, refreshDelay: 50 * time.Millisecond}
	c := newTestClient(t, s.start(t))
	c.setAccess("stale")

	const workers = 8
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			_, err := c.ListDocuments(context.Background())
			results <- err
		}()
	}

	close(start)
	wg.Wait()
	close(results)

	for err := range results {
		if !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}
	}
	if got := s.refreshHits.Load(); got != 1 {
		t.Fatalf("expected exactly one refresh request, got %d", got)
	}
	if got := c.AccessToken(); got != "" {
		t.Fatalf("stale access token must be dropped after failed refresh, still %q", got)
	}
}

func TestRefreshResumesWaitersInArrivalOrder(t *testing.T) {
	s := &refreshServer{refreshStatus: http.StatusOK}
	c := newTestClient(t, s.start(t))

	// Register waiters directly so the arrival order is known exactly.
	// Unbuffered channels make delivery order observable: the settle loop
	// cannot move past a waiter until that waiter has received, so any
	// out-of-order delivery deadlocks the sequential receives below.
	const waiters = 5
	call := &refreshCall{}
	chs := make([]chan refreshResult, waiters)
	for i := range chs {
		chs[i] = make(chan refreshResult)
		call.waiters = append(call.waiters, chs[i])
	}
	c.mu.Lock()
	c.refresh = call
	c.mu.Unlock()

	go c.runRefresh(call)

	for i, ch := range chs {
		select {
		case res := <-ch:
			if res.err != nil {
				t.Fatalf("waiter %d failed: %v", i, res.err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("waiter %d not resumed in arrival order", i)
		}
	}
	if c.AccessToken() != "fresh" {
		t.Fatalf("access token not updated, got %q", c.AccessToken())
	}
}

func TestRetryHappensExactlyOnce(t *testing.T) {
	// Refresh succeeds but the protected endpoint keeps rejecting; the
	// client must not loop.
	mux := http.NewServeMux()
	var refreshHits, protectedHits atomic.Int64
	mux.HandleFunc("POST /v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshHits.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"accessToken": "fresh"})
	})
	mux.HandleFunc("GET /v1/documents", func(w http.ResponseWriter, r *http.Request) {
		protectedHits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid token"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	c := newTestClient(t, srv)

	_, err := c.ListDocuments(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
	if got := protectedHits.Load(); got != 2 {
		t.Fatalf("expected 2 attempts (original + one retry), got %d", got)
	}
	if got := refreshHits.Load(); got != 1 {
		t.Fatalf("expected 1 refresh, got %d", got)
	}
}

func TestAuthEndpointsNeverTriggerRefresh(t *testing.T) {
	mux := http.NewServeMux()
	var refreshHits atomic.Int64
	mux.HandleFunc("POST /v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshHits.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"accessToken": "fresh"})
	})
	mux.HandleFunc("POST /v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid credentials"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	c := newTestClient(t, srv)

	_, err := c.Login(context.Background(), "a@b.c", "wrong-password")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
	if got := refreshHits.Load(); got != 0 {
		t.Fatalf("login 401 must not trigger refresh, saw %d", got)
	}
}

func TestCloseFailsPendingWaiters(t *testing.T) {
	s := &refreshServer{
		refreshStatus: http.StatusOK,
		refreshEnter:  make(chan struct{}, 1),
		refreshBlock:  make(chan struct{}),
	}
	c := newTestClient(t, s.start(t))

	done := make(chan error, 1)
	go func() {
		_, err := c.ListDocuments(context.Background())
		done <- err
	}()

	// Wait for the refresh request to be in flight, then close the client.
	select {
	case <-s.refreshEnter:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh never started")
	}
	c.Close()
	close(s.refreshBlock)

	select {
	case err := <-done:
		if !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired after Close, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never released")
	}

	// A closed client never starts another refresh.
	if _, err := c.ListDocuments(context.Background()); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired from closed client, got %v", err)
	}
}

func TestWaiterContextCancelDoesNotStopRefresh(t *testing.T) {
	s := &refreshServer{refreshStatus: http.StatusOK, refreshDelay: 100 * time.Millisecond}
	c := newTestClient(t, s.start(t))

	// The deadline expires while this caller waits on the in-flight
	// refresh, well before the 100ms refresh settles.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.ListDocuments(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}

	// The refresh started by the cancelled caller still completes and the
	// next caller benefits from the new token.
	if _, err := c.ListDocuments(context.Background()); err != nil {
		t.Fatalf("follow-up list failed: %v", err)
	}
	if c.AccessToken() != "fresh" {
		t.Fatalf("access token not updated, got %q", c.AccessToken())
	}
}
