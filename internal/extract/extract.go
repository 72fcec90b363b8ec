// Package extract reads raw record batches from the sales data sources.
//
// Extractors only fetch and shape data into a core.Batch. They never coerce
// or validate values; that is the cleaner's job.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JonMunkholm/salesetl/internal/core"
	"github.com/JonMunkholm/salesetl/internal/logging"
)

// Extractor fetches a raw batch for one entity.
type Extractor interface {
	Extract(ctx context.Context) (core.Batch, error)
}

// Func adapts a function to the Extractor interface.
type Func func(ctx context.Context) (core.Batch, error)

// Extract calls f(ctx).
func (f Func) Extract(ctx context.Context) (core.Batch, error) { return f(ctx) }

// Static returns an extractor that always yields a clone of b.
func Static(b core.Batch) Extractor {
	return Func(func(context.Context) (core.Batch, error) { return b.Clone(), nil })
}

// DefaultTimeout is used by NewHTTPClient when timeout is zero.
const DefaultTimeout = 30 * time.Second

// NewHTTPClient returns the client shared by the HTTP based extractors.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// StatusError is returned when a source answers with a non-2xx status.
type StatusError struct {
	URL  string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: http %d: %s", e.URL, e.Code, e.Body)
}

// IsNotFound reports whether err is a 404 StatusError.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// fetch GETs url and returns the whole body, BOM-stripped and UTF-8 sanitised.
func fetch(ctx context.Context, client *http.Client, url string, header http.Header) ([]byte, error) {
	if client == nil {
		client = NewHTTPClient(0)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &StatusError{URL: url, Code: resp.StatusCode, Body: string(body)}
	}

	counter := &countingReader{r: newTextReader(resp.Body)}
	data, err := io.ReadAll(counter)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	logging.FromContext(ctx).Debug("downloaded", "url", url, "bytes", counter.bytesRead)
	return data, nil
}

// fetchRaw is fetch without text sanitising, for binary payloads.
func fetchRaw(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if client == nil {
		client = NewHTTPClient(0)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &StatusError{URL: url, Code: resp.StatusCode, Body: string(body)}
	}
	return io.ReadAll(resp.Body)
}
