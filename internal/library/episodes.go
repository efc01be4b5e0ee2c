// SPDX-License-Identifier: MIT

package library

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/papercast-dev/papercast/internal/audio"
	"github.com/papercast-dev/papercast/internal/chunker"
	"github.com/papercast-dev/papercast/internal/store"
)

// EpisodeParams selects how an episode is synthesized. Zero values fall
// back to the persisted defaults.
type EpisodeParams struct {
	Title         string
	VoiceID       string
	OutputFormat  string
	ChunkStrategy string
	MaxChars      int
	Breathing     string
}

// EpisodeDetail bundles an episode with its chunk plan and resume
// point.
type EpisodeDetail struct {
	Episode  store.Episode
	Chunks   []store.Chunk
	Playback store.PlaybackState
}

// CreateEpisode snapshots a source's cleaned text into a chunk plan and
// admits the new episode to the queue.
func (s *Service) CreateEpisode(ctx context.Context, sourceID string, p EpisodeParams) (store.Episode, int, error) {
	src, err := s.store.GetSource(ctx, sourceID)
	if err != nil {
		return store.Episode{}, 0, err
	}
	s.episodeDefaults(ctx, &p)
	if err := s.validateParams(p); err != nil {
		return store.Episode{}, 0, err
	}

	plan := chunker.Split(src.CleanedText, chunker.Strategy(p.ChunkStrategy), p.MaxChars, chunker.Intensity(p.Breathing))
	if len(plan) == 0 {
		return store.Episode{}, 0, ErrEmptyContent
	}

	title := p.Title
	if title == "" {
		title = src.Title
	}
	ep := store.Episode{
		ID:                 newID(),
		SourceID:           sourceID,
		Title:              title,
		VoiceID:            p.VoiceID,
		OutputFormat:       p.OutputFormat,
		ChunkStrategy:      p.ChunkStrategy,
		ChunkMaxLength:     p.MaxChars,
		BreathingIntensity: p.Breathing,
		FolderID:           src.FolderID,
	}
	if err := s.store.CreateEpisode(ctx, ep, toStoreChunks(plan)); err != nil {
		return store.Episode{}, 0, err
	}

	s.queue.Enqueue(ep.ID)
	s.logger.Info().
		Str("event", "episode.created").
		Str("episode_id", ep.ID).
		Str("source_id", sourceID).
		Int("chunks", len(plan)).
		Str("voice", p.VoiceID).
		Msg("episode created and enqueued")

	created, err := s.store.GetEpisode(ctx, ep.ID)
	return created, len(plan), err
}

func (s *Service) validateParams(p EpisodeParams) error {
	if !s.voices.Has(p.VoiceID) {
		return fmt.Errorf("voice %q: %w", p.VoiceID, store.ErrNotFound)
	}
	if !audio.ValidFormat(p.OutputFormat) {
		return fmt.Errorf("%w: format %q", ErrInvalidState, p.OutputFormat)
	}
	if !chunker.ValidStrategy(p.ChunkStrategy) {
		return fmt.Errorf("%w: strategy %q", ErrInvalidState, p.ChunkStrategy)
	}
	if !chunker.ValidIntensity(p.Breathing) {
		return fmt.Errorf("%w: breathing %q", ErrInvalidState, p.Breathing)
	}
	return nil
}

func toStoreChunks(plan []chunker.Chunk) []store.Chunk {
	out := make([]store.Chunk, len(plan))
	for i, c := range plan {
		out[i] = store.Chunk{Index: c.Index, Text: c.Text, Label: c.Label, Status: store.ChunkPending}
	}
	return out
}

// Episode returns an episode with chunks and playback state.
func (s *Service) Episode(ctx context.Context, id string) (EpisodeDetail, error) {
	ep, err := s.store.GetEpisode(ctx, id)
	if err != nil {
		return EpisodeDetail{}, err
	}
	chunks, err := s.store.ListChunks(ctx, id)
	if err != nil {
		return EpisodeDetail{}, err
	}
	playback, err := s.store.GetPlayback(ctx, id)
	if err != nil {
		playback = store.PlaybackState{EpisodeID: id}
	}
	return EpisodeDetail{Episode: ep, Chunks: chunks, Playback: playback}, nil
}

// Episodes lists episodes with optional source or folder filters.
func (s *Service) Episodes(ctx context.Context, sourceID, folderID string) ([]store.Episode, error) {
	return s.store.ListEpisodes(ctx, sourceID, folderID)
}

// RegenerateAll resets every chunk and re-enqueues. Regenerating an
// episode that is mid-synthesis is rejected; cancel it first.
func (s *Service) RegenerateAll(ctx context.Context, id string) error {
	ep, err := s.store.GetEpisode(ctx, id)
	if err != nil {
		return err
	}
	if ep.Status == store.EpisodeGenerating {
		return fmt.Errorf("%w: episode is generating", ErrInvalidState)
	}

	if err := s.store.ResetChunks(ctx, id); err != nil {
		return err
	}
	if err := s.store.SetEpisodeStatus(ctx, id, store.EpisodePending); err != nil {
		return err
	}
	s.asm.Invalidate(id)
	s.removeAudioDir(id)
	s.queue.Enqueue(id)
	s.logger.Info().Str("event", "episode.regenerate").Str("episode_id", id).Msg("full regeneration queued")
	return nil
}

// RegenerateChunk resets a single chunk, leaving its siblings and their
// audio untouched, and re-enqueues the episode.
func (s *Service) RegenerateChunk(ctx context.Context, episodeID string, index int) error {
	if _, err := s.store.GetChunk(ctx, episodeID, index); err != nil {
		return err
	}
	if err := s.store.ResetChunk(ctx, episodeID, index); err != nil {
		return err
	}
	s.asm.Invalidate(episodeID)
	if err := os.Remove(s.asm.ChunkPath(episodeID, index)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn().Err(err).Int("chunk_index", index).Msg("remove chunk audio")
	}

	counts, err := s.store.CountChunkStates(ctx, episodeID)
	if err != nil {
		return err
	}
	if err := s.store.SetEpisodeStatus(ctx, episodeID, counts.Aggregate()); err != nil {
		return err
	}
	s.queue.Enqueue(episodeID)
	return nil
}

// Cancel stops an episode's generation. Ready chunks are preserved; the
// worker rolls back any in-flight chunk on its next state check.
func (s *Service) Cancel(ctx context.Context, id string) error {
	ep, err := s.store.GetEpisode(ctx, id)
	if err != nil {
		return err
	}
	if ep.Status != store.EpisodePending && ep.Status != store.EpisodeGenerating {
		return fmt.Errorf("%w: cannot cancel %s episode", ErrInvalidState, ep.Status)
	}
	if err := s.store.SetEpisodeStatus(ctx, id, store.EpisodeCancelled); err != nil {
		return err
	}
	s.logger.Info().Str("event", "episode.cancelled").Str("episode_id", id).Msg("episode cancelled")
	return nil
}

// RetryErrors returns failed chunks to pending and re-enqueues.
func (s *Service) RetryErrors(ctx context.Context, id string) error {
	ep, err := s.store.GetEpisode(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.store.ResetErrorChunks(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	if ep.Status == store.EpisodeError {
		if err := s.store.SetEpisodeStatus(ctx, id, store.EpisodeGenerating); err != nil {
			return err
		}
	}
	s.asm.Invalidate(id)
	s.queue.Enqueue(id)
	s.logger.Info().
		Str("event", "episode.retry").
		Str("episode_id", id).
		Int("chunks", n).
		Msg("error chunks requeued")
	return nil
}

// RenameEpisode changes an episode title.
func (s *Service) RenameEpisode(ctx context.Context, id, title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrInvalidState
	}
	return s.store.UpdateEpisodeTitle(ctx, id, title)
}

// DeleteEpisode removes an episode and its audio directory.
func (s *Service) DeleteEpisode(ctx context.Context, id string) error {
	if err := s.store.DeleteEpisode(ctx, id); err != nil {
		return err
	}
	s.removeAudioDir(id)
	return nil
}

// BulkMove moves episodes into a folder in one transaction.
func (s *Service) BulkMove(ctx context.Context, episodeIDs []string, folderID string) error {
	return s.store.BulkMoveEpisodes(ctx, episodeIDs, folderID)
}

// BulkDelete removes episodes in one transaction, then cleans their
// audio best-effort.
func (s *Service) BulkDelete(ctx context.Context, episodeIDs []string) error {
	if err := s.store.BulkDeleteEpisodes(ctx, episodeIDs); err != nil {
		return err
	}
	for _, id := range episodeIDs {
		s.removeAudioDir(id)
	}
	return nil
}

// SavePlayback records the resume point after validating the chunk
// index against the plan.
func (s *Service) SavePlayback(ctx context.Context, p store.PlaybackState) error {
	chunks, err := s.store.ListChunks(ctx, p.EpisodeID)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return fmt.Errorf("episode %s: %w", p.EpisodeID, store.ErrNotFound)
	}
	if p.CurrentChunkIndex < 0 || p.CurrentChunkIndex >= len(chunks) {
		return fmt.Errorf("%w: index %d of %d chunks", ErrInvalidIndex, p.CurrentChunkIndex, len(chunks))
	}
	if p.PositionSecs < 0 {
		return fmt.Errorf("%w: negative position", ErrInvalidIndex)
	}
	return s.store.SavePlayback(ctx, p)
}

// Playback returns the resume point for an episode.
func (s *Service) Playback(ctx context.Context, episodeID string) (store.PlaybackState, error) {
	return s.store.GetPlayback(ctx, episodeID)
}

// ChunkAudioPath resolves the on-disk WAV for a ready chunk.
func (s *Service) ChunkAudioPath(ctx context.Context, episodeID string, index int) (string, error) {
	c, err := s.store.GetChunk(ctx, episodeID, index)
	if err != nil {
		return "", err
	}
	if c.Status != store.ChunkReady {
		return "", fmt.Errorf("%w: chunk %d is %s", ErrInvalidState, index, c.Status)
	}
	return s.asm.ChunkPath(episodeID, index), nil
}

// FullAudio lazily assembles and returns the full-episode artifact for
// a format. The episode must be fully ready.
func (s *Service) FullAudio(ctx context.Context, episodeID, format string) (string, error) {
	ep, err := s.store.GetEpisode(ctx, episodeID)
	if err != nil {
		return "", err
	}
	if ep.Status != store.EpisodeReady {
		return "", fmt.Errorf("%w: episode is %s", ErrInvalidState, ep.Status)
	}
	f := audio.Format(format)
	if format == "" {
		f = audio.Format(ep.OutputFormat)
	}
	if !audio.ValidFormat(string(f)) {
		return "", fmt.Errorf("%w: format %q", ErrInvalidState, format)
	}

	chunks, err := s.store.ListChunks(ctx, episodeID)
	if err != nil {
		return "", err
	}
	paths := make([]string, len(chunks))
	for i, c := range chunks {
		paths[i] = s.asm.ChunkPath(episodeID, c.Index)
	}
	return s.asm.Assemble(episodeID, paths, f)
}
