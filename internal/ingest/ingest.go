// SPDX-License-Identifier: MIT

// Package ingest turns external inputs (pasted text, uploaded files,
// URLs, git repositories) into raw source documents. Ingestion never
// persists anything; a failure leaves no artifact behind.
package ingest

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/papercast-dev/papercast/internal/metrics"
)

// Ingestion failure modes, surfaced to the API layer as error kinds.
var (
	ErrFetchFailed     = errors.New("fetch failed")
	ErrTooLarge        = errors.New("content too large")
	ErrUnsupportedType = errors.New("unsupported content type")
	ErrTimeout         = errors.New("fetch timed out")
)

// Result is a fetched document ready for cleaning.
type Result struct {
	Title        string
	RawText      string
	Variant      string // text, file, url, git
	OriginalName string
	OriginalURL  string
}

const maxTitleLen = 120

// Config bounds ingestion work.
type Config struct {
	FetchTimeout time.Duration
	GitTimeout   time.Duration
	MaxBytes     int64
}

// Ingestor fetches and extracts sources.
type Ingestor struct {
	cfg    Config
	client *http.Client
	logger zerolog.Logger
}

// New builds an Ingestor. The HTTP client follows at most five
// redirects and obeys the configured wall-clock timeout.
func New(cfg Config, logger zerolog.Logger) *Ingestor {
	return &Ingestor{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.FetchTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return errors.New("too many redirects")
				}
				return nil
			},
		},
		logger: logger.With().Str("component", "ingest").Logger(),
	}
}

// FromText accepts pasted text as-is. An empty title derives from the
// first non-empty line.
func (in *Ingestor) FromText(title, text string) (Result, error) {
	if title == "" {
		title = deriveTitle(text)
	}
	metrics.IngestAttempt("text", "ok")
	return Result{Title: title, RawText: text, Variant: "text"}, nil
}

// FromFile accepts an uploaded blob. Only UTF-8 text is supported.
func (in *Ingestor) FromFile(name string, data []byte) (Result, error) {
	if int64(len(data)) > in.cfg.MaxBytes {
		metrics.IngestAttempt("file", "too_large")
		return Result{}, ErrTooLarge
	}
	if !utf8.Valid(data) {
		metrics.IngestAttempt("file", "unsupported")
		return Result{}, ErrUnsupportedType
	}
	title := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if title == "" || title == "." {
		title = deriveTitle(string(data))
	}
	metrics.IngestAttempt("file", "ok")
	return Result{
		Title:        title,
		RawText:      string(data),
		Variant:      "file",
		OriginalName: filepath.Base(name),
	}, nil
}

// deriveTitle takes the first non-empty line, stripped of markdown
// heading markers and truncated.
func deriveTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
		if line == "" {
			continue
		}
		if r := []rune(line); len(r) > maxTitleLen {
			return string(r[:maxTitleLen])
		}
		return line
	}
	return "Untitled"
}
