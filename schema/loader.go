package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	userAgent      = "json-ls/1.0"
	loadTimeout    = 10 * time.Second
	maxSchemaBytes = 16 << 20 // 16MiB: refuse to buffer an unbounded response body.
)

// Loader fetches a JSON Schema document from an http(s) URL or a local
// file path.
type Loader struct {
	client *http.Client
}

// NewLoader creates a Loader using a dedicated http.Client with the
// timeout spec.md mandates.
func NewLoader() *Loader {
	return &Loader{client: &http.Client{Timeout: loadTimeout}}
}

// Load fetches and decodes the schema at url. http(s) URLs are GETed with
// a 10s timeout and a custom User-Agent, requiring a 2xx status; anything
// else is treated as a file:// or bare local path.
func (l *Loader) Load(ctx context.Context, url string) (any, error) {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return l.loadHTTP(ctx, url)
	}

	path := strings.TrimPrefix(url, "file://")
	path = strings.TrimPrefix(path, "file:")

	return loadFile(path)
}

func loadFile(path string) (any, error) {
	contents, err := os.ReadFile(path) //nolint:gosec // path comes from a document's own $schema field.
	if err != nil {
		return nil, fmt.Errorf("reading schema file %s: %w", path, err)
	}

	var v any
	if err := json.Unmarshal(contents, &v); err != nil {
		return nil, fmt.Errorf("parsing schema JSON from %s: %w", path, err)
	}

	return v, nil
}

func (l *Loader) loadHTTP(ctx context.Context, url string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed for %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d fetching schema: %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSchemaBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body from %s: %w", url, err)
	}

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("parsing JSON schema from %s: %w", url, err)
	}

	return v, nil
}
