// SPDX-License-Identifier: MIT

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/papercast-dev/papercast/internal/metrics"
	"github.com/papercast-dev/papercast/internal/normalize"
)

// allowedTypes is the content-type allow-list for URL ingestion.
var allowedTypes = map[string]bool{
	"text/html":             true,
	"application/xhtml+xml": true,
	"text/plain":            true,
	"text/markdown":         true,
	"text/x-markdown":       true,
}

// FromURL fetches a page and extracts its readable text. The body is
// capped at the configured size and must be an allowed textual type.
func (in *Ingestor) FromURL(ctx context.Context, rawURL string) (Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		metrics.IngestAttempt("url", "fetch_failed")
		return Result{}, fmt.Errorf("%w: invalid url %q", ErrFetchFailed, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		metrics.IngestAttempt("url", "fetch_failed")
		return Result{}, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", "papercast/1.0")
	req.Header.Set("Accept", "text/html, text/plain, text/markdown")

	resp, err := in.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			metrics.IngestAttempt("url", "timeout")
			return Result{}, fmt.Errorf("%w: %s", ErrTimeout, rawURL)
		}
		metrics.IngestAttempt("url", "fetch_failed")
		return Result{}, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.IngestAttempt("url", "fetch_failed")
		return Result{}, fmt.Errorf("%w: status %d from %s", ErrFetchFailed, resp.StatusCode, rawURL)
	}

	mediaType := ""
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, _ = mime.ParseMediaType(ct)
	}
	if mediaType != "" && !allowedTypes[mediaType] {
		metrics.IngestAttempt("url", "unsupported")
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mediaType)
	}

	body, err := readCapped(resp.Body, in.cfg.MaxBytes)
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			metrics.IngestAttempt("url", "too_large")
		} else {
			metrics.IngestAttempt("url", "fetch_failed")
		}
		return Result{}, err
	}

	title := deriveTitle(body)
	if mediaType == "text/html" || mediaType == "application/xhtml+xml" || normalize.LooksLikeHTML(body) {
		if t, _ := normalize.ExtractArticle(body); t != "" {
			title = t
		}
	}

	in.logger.Debug().
		Str("event", "ingest.url").
		Str("url", rawURL).
		Int("bytes", len(body)).
		Msg("fetched url")
	metrics.IngestAttempt("url", "ok")
	return Result{
		Title:       title,
		RawText:     body,
		Variant:     "url",
		OriginalURL: rawURL,
	}, nil
}

// readCapped reads at most max bytes and fails with ErrTooLarge when
// the stream exceeds the cap.
func readCapped(r io.Reader, max int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: body read", ErrTimeout)
		}
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if int64(len(data)) > max {
		return "", fmt.Errorf("%w: body exceeds %d bytes", ErrTooLarge, max)
	}
	return string(data), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "Client.Timeout")
}
