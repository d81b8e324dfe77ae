package storage

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	fetchAttempts    = 3
	maxImageBodySize = 50 << 20 // 50MB
)

var (
	// ErrRedirectRejected is returned when a redirect target fails URL validation
	ErrRedirectRejected = errors.New("redirect target rejected")
	// ErrBodyTooLarge is returned when an image body exceeds the size limit
	ErrBodyTooLarge = errors.New("image body too large")
)

// ImageFetcher downloads encoded image bytes. Decoding is left to the
// caller so that header limits can be checked first.
type ImageFetcher interface {
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)
}

// HTTPImageFetcher implements ImageFetcher with bounded retries
type HTTPImageFetcher struct {
	client      *http.Client
	retryDelay  time.Duration
	maxBodySize int64
}

// NewHTTPImageFetcher creates an HTTP image fetcher with the given overall
// timeout. validateURL, when non-nil, is applied to every redirect target.
func NewHTTPImageFetcher(timeout time.Duration, validateURL func(string) error) ImageFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// Connection pooling sized for a pair of downloads per request
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,

		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	return &HTTPImageFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,

			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				if validateURL != nil {
					if err := validateURL(req.URL.String()); err != nil {
						return fmt.Errorf("%w: %s: %w", ErrRedirectRejected, req.URL.Redacted(), err)
					}
				}
				return nil
			},
		},
		retryDelay:  time.Second,
		maxBodySize: maxImageBodySize,
	}
}

// FetchImage downloads an image body. Client errors fail at once; server
// and network errors are retried with a linearly growing delay.
func (h *HTTPImageFetcher) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	req.Header.Set("Accept", "image/png, image/jpeg, image/webp, image/gif, image/bmp, image/tiff, */*")
	req.Header.Set("User-Agent", "Go-Tamper-Inspector/1.0")

	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		data, retryable, err := h.fetchOnce(req)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retryable {
			break
		}

		if attempt < fetchAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("fetch cancelled: %w", ctx.Err())
			case <-time.After(time.Duration(attempt+1) * h.retryDelay):
			}
		}
	}

	return nil, fmt.Errorf("failed to fetch image after %d attempts: %w", fetchAttempts, lastErr)
}

// fetchOnce performs a single request and reports whether a failure is worth retrying
func (h *HTTPImageFetcher) fetchOnce(req *http.Request) ([]byte, bool, error) {
	resp, err := h.client.Do(req)
	if err != nil {
		retryable := req.Context().Err() == nil && !errors.Is(err, ErrRedirectRejected)
		return nil, retryable, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, false, fmt.Errorf("client error: status code %d", resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	data, err := readBounded(resp.Body, h.maxBodySize)
	if err != nil {
		return nil, !errors.Is(err, ErrBodyTooLarge), err
	}
	return data, false, nil
}

// readBounded reads r fully, failing once more than limit bytes arrive
func readBounded(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, limit)
	}
	return data, nil
}
