package imagequery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBytes)
	}))
	defer srv.Close()

	got, err := NewFetcher(0, 0).Fetch(context.Background(), srv.URL+"/cat.png")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got != EncodeDataURI(pngBytes, "image/png") {
		t.Errorf("Fetch = %q", got)
	}
}

func TestFetch_SniffsMissingType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(jpegBytes)
	}))
	defer srv.Close()

	got, err := NewFetcher(0, 0).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.HasPrefix(got, "data:image/jpeg;base64,") {
		t.Errorf("Fetch = %q, want jpeg data URI", got)
	}
}

func TestFetch_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		max     int
	}{
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}, 0},
		{"html", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html><body>nope</body></html>"))
		}, 0},
		{"too large", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			w.Write(pngBytes)
		}, 4},
		{"empty", func(w http.ResponseWriter, r *http.Request) {}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			if _, err := NewFetcher(tt.max, 0).Fetch(context.Background(), srv.URL); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFetch_NotImageError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	_, err := NewFetcher(0, 0).Fetch(context.Background(), srv.URL)
	if !errors.Is(err, ErrNotImage) {
		t.Errorf("err = %v, want ErrNotImage", err)
	}
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := NewFetcher(0, 50*time.Millisecond).Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Fetch took %v, want bounded by timeout", elapsed)
	}
}

func TestFetch_SharesConcurrentRequests(t *testing.T) {
	var hits atomic.Int32
	gate := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-gate
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBytes)
	}))
	defer srv.Close()

	f := NewFetcher(0, 0)
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.Fetch(context.Background(), srv.URL+"/same.png"); err != nil {
				t.Errorf("Fetch: %v", err)
			}
		}()
	}

	// Let the goroutines pile up on the in-flight request.
	time.Sleep(100 * time.Millisecond)
	close(gate)
	wg.Wait()

	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}
}

func TestFetch_CancelledCallerDoesNotFailSharedRequest(t *testing.T) {
	arrived := make(chan struct{}, 1)
	gate := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		arrived <- struct{}{}
		<-gate
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBytes)
	}))
	defer srv.Close()

	f := NewFetcher(0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := f.Fetch(ctx, srv.URL+"/shared.png")
		firstErr <- err
	}()
	<-arrived

	type result struct {
		uri string
		err error
	}
	second := make(chan result, 1)
	go func() {
		uri, err := f.Fetch(context.Background(), srv.URL+"/shared.png")
		second <- result{uri, err}
	}()
	// Give the second caller time to join the in-flight request.
	time.Sleep(100 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled caller err = %v, want context.Canceled", err)
	}

	close(gate)
	got := <-second
	if got.err != nil {
		t.Fatalf("second caller: %v", got.err)
	}
	if got.uri != EncodeDataURI(pngBytes, "image/png") {
		t.Errorf("second caller = %q", got.uri)
	}
}
