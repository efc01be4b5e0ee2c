// SPDX-License-Identifier: MIT

// Package library coordinates the multi-entity operations behind the
// studio API: ingestion, episode lifecycle, regeneration with undo,
// playback, folders and tags. Everything that must look atomic to an
// external observer funnels through here.
package library

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/papercast-dev/papercast/internal/audio"
	"github.com/papercast-dev/papercast/internal/chunker"
	"github.com/papercast-dev/papercast/internal/ingest"
	"github.com/papercast-dev/papercast/internal/normalize"
	"github.com/papercast-dev/papercast/internal/store"
	"github.com/papercast-dev/papercast/internal/tts"
)

// Service-level failure modes beyond store.ErrNotFound and the
// ingestion sentinels.
var (
	ErrEmptyContent = errors.New("no speakable content")
	ErrInvalidState = errors.New("operation not allowed in current state")
	ErrInvalidIndex = errors.New("chunk index out of range")
	ErrUndoExpired  = errors.New("undo window expired")
)

// Enqueuer admits episodes to the synthesis queue.
type Enqueuer interface {
	Enqueue(episodeID string)
}

// Service is the library coordinator.
type Service struct {
	store      *store.Store
	ingestor   *ingest.Ingestor
	voices     *tts.Catalog
	asm        *audio.Assembler
	queue      Enqueuer
	logger     zerolog.Logger
	sourcesDir string
	undoWindow time.Duration
}

// New wires the service.
func New(st *store.Store, ing *ingest.Ingestor, voices *tts.Catalog, asm *audio.Assembler, queue Enqueuer, sourcesDir string, undoWindow time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		store:      st,
		ingestor:   ing,
		voices:     voices,
		asm:        asm,
		queue:      queue,
		logger:     logger.With().Str("component", "library").Logger(),
		sourcesDir: sourcesDir,
		undoWindow: undoWindow,
	}
}

// Voices lists the selectable voices.
func (s *Service) Voices() []tts.Voice {
	return s.voices.List()
}

// Settings returns the persisted runtime defaults.
func (s *Service) Settings(ctx context.Context) (map[string]string, error) {
	return s.store.GetSettings(ctx)
}

// UpdateSetting validates and persists one runtime default.
func (s *Service) UpdateSetting(ctx context.Context, key, value string) error {
	switch key {
	case "default_voice":
		if !s.voices.Has(value) {
			return store.ErrNotFound
		}
	case "default_output_format":
		if !audio.ValidFormat(value) {
			return ErrInvalidState
		}
	case "default_chunk_strategy":
		if !chunker.ValidStrategy(value) {
			return ErrInvalidState
		}
	case "default_breathing":
		if !chunker.ValidIntensity(value) {
			return ErrInvalidState
		}
	case "default_chunk_max_length":
		if n, err := strconv.Atoi(value); err != nil || n < 100 || n > 20000 {
			return ErrInvalidState
		}
	}
	return s.store.SetSetting(ctx, key, value)
}

// cleaningDefaults builds normalize options from persisted settings.
func (s *Service) cleaningDefaults(ctx context.Context) normalize.Options {
	opts := normalize.DefaultOptions()
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return opts
	}
	if v, ok := settings["clean_code_block_rule"]; ok {
		opts.CodeBlockRule = normalize.CodeBlockRule(v)
	}
	boolSetting := func(key string, dst *bool) {
		if v, ok := settings[key]; ok {
			*dst = v == "true"
		}
	}
	boolSetting("clean_remove_non_text", &opts.RemoveNonText)
	boolSetting("clean_speak_urls", &opts.SpeakURLs)
	boolSetting("clean_handle_tables", &opts.HandleTables)
	boolSetting("clean_expand_abbreviations", &opts.ExpandAbbreviations)
	boolSetting("clean_preserve_parentheses", &opts.PreserveParentheses)
	return opts
}

// episodeDefaults fills unset episode parameters from settings.
func (s *Service) episodeDefaults(ctx context.Context, p *EpisodeParams) {
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		settings = map[string]string{}
	}
	pick := func(v, key, fallback string) string {
		if v != "" {
			return v
		}
		if sv, ok := settings[key]; ok && sv != "" {
			return sv
		}
		return fallback
	}
	p.VoiceID = pick(p.VoiceID, "default_voice", "alba")
	p.OutputFormat = pick(p.OutputFormat, "default_output_format", "wav")
	p.ChunkStrategy = pick(p.ChunkStrategy, "default_chunk_strategy", string(chunker.StrategyParagraph))
	p.Breathing = pick(p.Breathing, "default_breathing", string(chunker.BreathingNormal))
	if p.MaxChars <= 0 {
		if v, ok := settings["default_chunk_max_length"]; ok {
			if n, err := strconv.Atoi(v); err == nil {
				p.MaxChars = n
			}
		}
		if p.MaxChars <= 0 {
			p.MaxChars = chunker.DefaultMaxChars
		}
	}
}

func newID() string {
	return uuid.NewString()
}
