// Package page loads HTML pages from files, URLs, or readers and applies
// saved content records across whole page directories.
package page

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// Input describes where a page's HTML should come from. Exactly one source
// is used: URL when set, else Path when set, else Reader.
type Input struct {
	// URL, if provided, is fetched via HTTP GET.
	URL string

	// Path, if provided (and URL is empty), is read from disk.
	Path string

	// Reader is used when URL and Path are both empty. If nil, the page
	// reads as empty.
	Reader io.Reader
}

// Loader fetches or reads HTML with a consistent timeout policy and decodes
// non-UTF-8 pages to UTF-8 before parsing.
type Loader struct {
	client  *http.Client
	timeout time.Duration
}

// NewLoader creates a Loader. If client is nil, http.DefaultClient is used.
func NewLoader(client *http.Client, timeout time.Duration) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Loader{
		client:  client,
		timeout: timeout,
	}
}

// Load returns the UTF-8 HTML source for input.
//
// On non-2xx HTTP responses, Load returns an error that includes the status
// code and up to 4KB of the response body for debugging.
func (l *Loader) Load(ctx context.Context, input Input) (string, error) {
	if strings.TrimSpace(input.URL) != "" {
		return l.fetch(ctx, input.URL)
	}

	if strings.TrimSpace(input.Path) != "" {
		b, err := os.ReadFile(input.Path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", input.Path, err)
		}
		return decode(b, "")
	}

	if input.Reader == nil {
		return "", nil
	}
	b, err := io.ReadAll(input.Reader)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return decode(b, "")
}

func (l *Loader) fetch(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", "pagecms/1.0")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return decode(b, resp.Header.Get("Content-Type"))
}

// decode converts raw page bytes to UTF-8. The encoding is sniffed from the
// Content-Type header, a <meta charset> tag, or byte heuristics; already-UTF-8
// content passes through unchanged.
func decode(raw []byte, contentType string) (string, error) {
	enc, _, _ := charset.DetermineEncoding(raw, contentType)
	out, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return "", fmt.Errorf("decode page: %w", err)
	}
	return string(bytes.ToValidUTF8(out, []byte("�"))), nil
}
