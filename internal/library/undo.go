// SPDX-License-Identifier: MIT

package library

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/papercast-dev/papercast/internal/chunker"
	"github.com/papercast-dev/papercast/internal/store"
)

const undoKindRegenerate = "regenerate_settings"

// undoPayload captures everything needed to restore an episode to its
// pre-regeneration plan.
type undoPayload struct {
	Episode store.Episode `json:"episode"`
	Chunks  []store.Chunk `json:"chunks"`
}

// RegenerateWithSettings replaces an episode's chunk plan under new
// synthesis settings, parking the old audio and plan behind an undo
// ticket. Returns the ticket id.
func (s *Service) RegenerateWithSettings(ctx context.Context, episodeID string, p EpisodeParams) (string, error) {
	ep, err := s.store.GetEpisode(ctx, episodeID)
	if err != nil {
		return "", err
	}
	if ep.Status == store.EpisodeGenerating {
		return "", fmt.Errorf("%w: episode is generating", ErrInvalidState)
	}
	src, err := s.store.GetSource(ctx, ep.SourceID)
	if err != nil {
		return "", err
	}

	s.episodeDefaults(ctx, &p)
	if err := s.validateParams(p); err != nil {
		return "", err
	}
	plan := chunker.Split(src.CleanedText, chunker.Strategy(p.ChunkStrategy), p.MaxChars, chunker.Intensity(p.Breathing))
	if len(plan) == 0 {
		return "", ErrEmptyContent
	}

	oldChunks, err := s.store.ListChunks(ctx, episodeID)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(undoPayload{Episode: ep, Chunks: oldChunks})
	if err != nil {
		return "", err
	}

	ticketID := newID()
	backupDir := s.asm.EpisodeDir(episodeID) + ".backup_" + ticketID

	// Park the old audio before touching the database. A missing dir
	// (episode never synthesized) is fine.
	if err := os.Rename(s.asm.EpisodeDir(episodeID), backupDir); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("park audio dir: %w", err)
	}

	now := time.Now()
	superseded, err := s.store.CreateUndoTicket(ctx, store.UndoTicket{
		ID:        ticketID,
		EpisodeID: episodeID,
		Kind:      undoKindRegenerate,
		Payload:   string(payload),
		BackupDir: backupDir,
		CreatedAt: now,
		ExpiresAt: now.Add(s.undoWindow),
	})
	if err != nil {
		// Unpark so the episode's audio is where the rest of the
		// system expects it.
		if rerr := os.Rename(backupDir, s.asm.EpisodeDir(episodeID)); rerr != nil && !os.IsNotExist(rerr) {
			s.logger.Error().Err(rerr).Str("episode_id", episodeID).Msg("unpark audio dir")
		}
		return "", err
	}
	for _, old := range superseded {
		if old.BackupDir != "" {
			if rerr := os.RemoveAll(old.BackupDir); rerr != nil {
				s.logger.Warn().Err(rerr).Str("path", old.BackupDir).Msg("remove superseded backup")
			}
		}
	}

	next := ep
	next.VoiceID = p.VoiceID
	next.OutputFormat = p.OutputFormat
	next.ChunkStrategy = p.ChunkStrategy
	next.ChunkMaxLength = p.MaxChars
	next.BreathingIntensity = p.Breathing
	next.Status = store.EpisodePending
	next.TotalDurationSecs = 0
	if err := s.store.ReplaceChunkPlan(ctx, next, toStoreChunks(plan)); err != nil {
		return "", err
	}

	s.asm.Invalidate(episodeID)
	s.queue.Enqueue(episodeID)
	s.logger.Info().
		Str("event", "episode.regenerate_settings").
		Str("episode_id", episodeID).
		Str("undo_ticket", ticketID).
		Int("chunks", len(plan)).
		Msg("regeneration with new settings queued")
	return ticketID, nil
}

// Undo reverts a regeneration, restoring the prior chunk plan and
// swapping the parked audio back in place.
func (s *Service) Undo(ctx context.Context, ticketID string) error {
	t, err := s.store.GetUndoTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if time.Now().After(t.ExpiresAt) {
		return fmt.Errorf("ticket %s: %w", ticketID, ErrUndoExpired)
	}

	var payload undoPayload
	if err := json.Unmarshal([]byte(t.Payload), &payload); err != nil {
		return fmt.Errorf("decode undo payload: %w", err)
	}

	if err := s.store.ReplaceChunkPlan(ctx, payload.Episode, payload.Chunks); err != nil {
		return err
	}

	// Swap audio: drop whatever regeneration produced, restore the
	// parked directory.
	liveDir := s.asm.EpisodeDir(t.EpisodeID)
	if err := os.RemoveAll(liveDir); err != nil {
		s.logger.Warn().Err(err).Str("path", liveDir).Msg("remove regenerated audio")
	}
	if err := os.Rename(t.BackupDir, liveDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("restore audio dir: %w", err)
	}

	if err := s.store.DeleteUndoTicket(ctx, ticketID); err != nil {
		return err
	}
	s.asm.Invalidate(t.EpisodeID)
	if payload.Episode.Status == store.EpisodePending || payload.Episode.Status == store.EpisodeGenerating {
		s.queue.Enqueue(t.EpisodeID)
	}
	s.logger.Info().
		Str("event", "episode.undo").
		Str("episode_id", t.EpisodeID).
		Str("undo_ticket", ticketID).
		Msg("regeneration reverted")
	return nil
}

// UndoTicket exposes a ticket for inspection (remaining window, kind).
func (s *Service) UndoTicket(ctx context.Context, ticketID string) (store.UndoTicket, error) {
	return s.store.GetUndoTicket(ctx, ticketID)
}

// PurgeExpiredUndo drops tickets past their window and their parked
// backups. Returns how many tickets were purged.
func (s *Service) PurgeExpiredUndo(ctx context.Context) (int, error) {
	expired, err := s.store.ExpiredUndoTickets(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	for _, t := range expired {
		if t.BackupDir == "" {
			continue
		}
		if err := os.RemoveAll(t.BackupDir); err != nil {
			s.logger.Warn().Err(err).Str("path", t.BackupDir).Msg("remove expired backup")
		}
	}
	if len(expired) > 0 {
		s.logger.Info().
			Str("event", "undo.purged").
			Int("tickets", len(expired)).
			Msg("expired undo tickets purged")
	}
	return len(expired), nil
}

// Janitor periodically purges expired undo tickets until ctx ends.
func (s *Service) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.PurgeExpiredUndo(ctx); err != nil {
				s.logger.Error().Err(err).Msg("undo janitor sweep")
			}
		}
	}
}
