package imagequery

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultMaxBytes caps fetched and uploaded images.
	DefaultMaxBytes = 10 << 20

	defaultFetchTimeout = 15 * time.Second
)

// Fetcher downloads remote images and converts them to data URIs.
// Concurrent fetches of the same URL share one request.
type Fetcher struct {
	httpClient *http.Client
	maxBytes   int64
	timeout    time.Duration
	group      singleflight.Group
}

// NewFetcher creates a Fetcher. Non-positive limits select the defaults.
func NewFetcher(maxBytes int, timeout time.Duration) *Fetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Fetcher{
		httpClient: &http.Client{},
		maxBytes:   int64(maxBytes),
		timeout:    timeout,
	}
}

// Fetch returns the image at location as a data URI. Concurrent callers for
// the same location share one request; a caller that gives up does not
// cancel it for the others.
func (f *Fetcher) Fetch(ctx context.Context, location string) (string, error) {
	ch := f.group.DoChan(location, func() (any, error) {
		return f.fetch(context.WithoutCancel(ctx), location)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(string), nil
	}
}

func (f *Fetcher) fetch(ctx context.Context, location string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching image: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return "", fmt.Errorf("image exceeds %d bytes", f.maxBytes)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("fetching image: empty body")
	}

	mt := contentType(resp.Header.Get("Content-Type"), data)
	if !strings.HasPrefix(mt, "image/") {
		return "", fmt.Errorf("%w: %s", ErrNotImage, mt)
	}
	return EncodeDataURI(data, mt), nil
}

// contentType prefers the declared image type and sniffs otherwise.
func contentType(header string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(header); err == nil && strings.HasPrefix(mt, "image/") {
		return mt
	}
	return http.DetectContentType(data)
}
