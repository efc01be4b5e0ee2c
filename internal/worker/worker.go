// SPDX-License-Identifier: MIT

// Package worker drains the episode synthesis queue. A single goroutine
// owns the TTS engine; that is what makes the "at most one chunk
// generating" invariant hold by construction.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/papercast-dev/papercast/internal/audio"
	"github.com/papercast-dev/papercast/internal/metrics"
	"github.com/papercast-dev/papercast/internal/store"
	"github.com/papercast-dev/papercast/internal/tts"
)

// Snapshot is the point-in-time generation status exposed for polling.
type Snapshot struct {
	QueueSize         int    `json:"queue_size"`
	CurrentEpisodeID  string `json:"current_episode_id,omitempty"`
	CurrentChunkIndex int    `json:"current_chunk_index"`
}

// Worker processes episodes strictly FIFO, chunks in ascending index.
type Worker struct {
	store  *store.Store
	engine tts.Engine
	asm    *audio.Assembler
	logger zerolog.Logger

	mu      sync.Mutex
	queue   []string
	queued  map[string]bool
	current Snapshot

	wake chan struct{}
}

// New builds a Worker. Run must be called for it to make progress.
func New(st *store.Store, engine tts.Engine, asm *audio.Assembler, logger zerolog.Logger) *Worker {
	return &Worker{
		store:  st,
		engine: engine,
		asm:    asm,
		logger: logger.With().Str("component", "worker").Logger(),
		queued: make(map[string]bool),
		wake:   make(chan struct{}, 1),
		current: Snapshot{
			CurrentChunkIndex: -1,
		},
	}
}

// Enqueue admits an episode at the queue tail. Enqueuing an episode
// that is already waiting is a no-op.
func (w *Worker) Enqueue(episodeID string) {
	w.mu.Lock()
	if !w.queued[episodeID] {
		w.queued[episodeID] = true
		w.queue = append(w.queue, episodeID)
		metrics.SetQueueDepth(len(w.queue))
	}
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Snapshot returns the current queue status.
func (w *Worker) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := w.current
	s.QueueSize = len(w.queue)
	return s
}

func (w *Worker) pop() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return "", false
	}
	id := w.queue[0]
	w.queue = w.queue[1:]
	delete(w.queued, id)
	metrics.SetQueueDepth(len(w.queue))
	return id, true
}

func (w *Worker) setCurrent(episodeID string, chunkIndex int) {
	w.mu.Lock()
	w.current.CurrentEpisodeID = episodeID
	w.current.CurrentChunkIndex = chunkIndex
	w.mu.Unlock()
}

// Run drains the queue until ctx is cancelled. Blocking; callers run it
// in its own goroutine.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info().Str("event", "worker.start").Msg("synthesis worker started")
	for {
		id, ok := w.pop()
		if !ok {
			select {
			case <-ctx.Done():
				w.logger.Info().Str("event", "worker.stop").Msg("synthesis worker stopped")
				return
			case <-w.wake:
				continue
			}
		}
		w.processEpisode(ctx, id)
		w.setCurrent("", -1)

		select {
		case <-ctx.Done():
			w.logger.Info().Str("event", "worker.stop").Msg("synthesis worker stopped")
			return
		default:
		}
	}
}

// processEpisode synthesizes pending chunks in index order until none
// remain or the episode is cancelled. Synthesis failures are recorded
// on the chunk; the pass continues with the next one.
func (w *Worker) processEpisode(ctx context.Context, episodeID string) {
	log := w.logger.With().Str("episode_id", episodeID).Logger()
	log.Info().Str("event", "generation.start").Msg("processing episode")

	for {
		if ctx.Err() != nil {
			return
		}
		ep, err := w.store.GetEpisode(ctx, episodeID)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				log.Error().Err(err).Str("event", "generation.abort").Msg("load episode")
			}
			return
		}
		if ep.Status == store.EpisodeCancelled {
			log.Info().Str("event", "generation.cancelled").Msg("episode cancelled, dropping pass")
			return
		}

		chunk, err := w.store.ClaimNextPending(ctx, episodeID)
		if errors.Is(err, store.ErrNotFound) {
			w.finalize(ctx, ep, log)
			return
		}
		if err != nil {
			log.Error().Err(err).Str("event", "generation.abort").Msg("claim chunk")
			return
		}

		if ep.Status != store.EpisodeGenerating {
			if err := w.store.SetEpisodeStatus(ctx, episodeID, store.EpisodeGenerating); err != nil {
				log.Error().Err(err).Msg("mark episode generating")
			}
		}
		w.setCurrent(episodeID, chunk.Index)

		w.synthesizeChunk(ctx, ep, chunk, log)
	}
}

// synthesizeChunk runs one synthesis outside any database transaction
// and commits the outcome.
func (w *Worker) synthesizeChunk(ctx context.Context, ep store.Episode, chunk store.Chunk, log zerolog.Logger) {
	start := time.Now()
	pcm, synthErr := w.engine.Synthesize(ctx, chunk.Text, ep.VoiceID)
	elapsed := time.Since(start)

	// The episode may have been cancelled while the engine was busy.
	// Never commit audio for a cancelled episode; the chunk goes back
	// to pending and the PCM is dropped.
	if cur, err := w.store.GetEpisode(ctx, ep.ID); err == nil && cur.Status == store.EpisodeCancelled {
		if err := w.store.ResetChunk(ctx, ep.ID, chunk.Index); err != nil {
			log.Error().Err(err).Int("chunk_index", chunk.Index).Msg("roll back cancelled chunk")
		}
		log.Info().
			Str("event", "chunk.discarded").
			Int("chunk_index", chunk.Index).
			Msg("discarded synthesis for cancelled episode")
		return
	}

	if synthErr != nil {
		metrics.ChunkSynthesized("error")
		if err := w.store.MarkChunkError(ctx, ep.ID, chunk.Index, synthErr.Error()); err != nil {
			log.Error().Err(err).Int("chunk_index", chunk.Index).Msg("record chunk error")
		}
		log.Warn().
			Err(synthErr).
			Str("event", "chunk.error").
			Int("chunk_index", chunk.Index).
			Msg("synthesis failed")
		return
	}

	if err := os.MkdirAll(w.asm.EpisodeDir(ep.ID), 0o755); err != nil {
		w.commitFailure(ctx, ep.ID, chunk.Index, fmt.Errorf("create audio dir: %w", err), log)
		return
	}
	path := w.asm.ChunkPath(ep.ID, chunk.Index)
	if err := audio.WriteWAV(path, pcm); err != nil {
		w.commitFailure(ctx, ep.ID, chunk.Index, err, log)
		return
	}

	duration := audio.DurationSecs(len(pcm))
	timings, err := WordTimingsJSON(chunk.Text, duration)
	if err != nil {
		timings = "[]"
	}
	relPath := fmt.Sprintf("%s/%d.wav", ep.ID, chunk.Index)
	if err := w.store.MarkChunkReady(ctx, ep.ID, chunk.Index, relPath, duration, timings); err != nil {
		log.Error().Err(err).Int("chunk_index", chunk.Index).Msg("commit ready chunk")
		return
	}

	metrics.ChunkSynthesized("ok")
	metrics.ObserveSynthesis(elapsed.Seconds())
	metrics.AddAudioSeconds(duration)
	log.Info().
		Str("event", "chunk.ready").
		Int("chunk_index", chunk.Index).
		Float64("duration_secs", duration).
		Dur("synthesis", elapsed).
		Msg("chunk ready")
}

// commitFailure records a persistence failure as a chunk error so the
// episode still converges to a terminal state.
func (w *Worker) commitFailure(ctx context.Context, episodeID string, index int, cause error, log zerolog.Logger) {
	metrics.ChunkSynthesized("error")
	if err := w.store.MarkChunkError(ctx, episodeID, index, cause.Error()); err != nil {
		log.Error().Err(err).Int("chunk_index", index).Msg("record chunk error")
	}
	log.Error().Err(cause).Str("event", "chunk.error").Int("chunk_index", index).Msg("persist chunk audio")
}

// finalize settles the episode's terminal status once no pending chunks
// remain.
func (w *Worker) finalize(ctx context.Context, ep store.Episode, log zerolog.Logger) {
	counts, err := w.store.CountChunkStates(ctx, ep.ID)
	if err != nil {
		log.Error().Err(err).Msg("count chunk states")
		return
	}
	status := counts.Aggregate()
	if status == store.EpisodeGenerating || status == store.EpisodePending {
		// Nothing pending yet not terminal: leave as-is; a concurrent
		// regeneration will re-enqueue.
		return
	}
	if err := w.store.FinalizeEpisode(ctx, ep.ID, status); err != nil {
		log.Error().Err(err).Msg("finalize episode")
		return
	}
	metrics.EpisodeFinalized(string(status))
	log.Info().
		Str("event", "generation.done").
		Str("status", string(status)).
		Int("ready", counts.Ready).
		Int("errors", counts.Error).
		Msg("episode finalized")
}
