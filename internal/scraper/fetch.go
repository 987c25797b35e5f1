package scraper

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
)

// Fetch errors.
var (
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrBodyTooLarge     = errors.New("response body exceeds limit")
)

const (
	acceptHeader         = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptEncodingHeader = "gzip, br"
)

// fetch issues a GET for target and returns the decoded UTF-8 body.
func (s *Scraper) fetch(ctx context.Context, stage, target string) ([]byte, error) {
	start := time.Now()
	body, err := s.get(ctx, target)
	s.metrics.ObserveFetch(stage, time.Since(start), err)
	return body, err
}

func (s *Scraper) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Encoding", acceptEncodingHeader)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	r, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}

	// One byte past the limit tells a full page from a cut one
	body, err := io.ReadAll(io.LimitReader(r, s.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if int64(len(body)) > s.maxBodyBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, s.maxBodyBytes)
	}
	return body, nil
}

// decodeBody undoes the content encoding and converts the declared or
// sniffed charset to UTF-8.
func decodeBody(resp *http.Response) (io.Reader, error) {
	var r io.Reader
	switch enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))); enc {
	case "", "identity":
		r = resp.Body
	case "br":
		r = brotli.NewReader(resp.Body)
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("opening gzip body: %w", err)
		}
		r = gz
	default:
		return nil, fmt.Errorf("unsupported content encoding: %s", enc)
	}

	utf8, err := charset.NewReader(r, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decoding charset: %w", err)
	}
	return utf8, nil
}
