// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// RecoverInterrupted repairs state left behind by an unclean shutdown.
// Chunks stuck in generating go back to pending (their audio may be
// partial), and each affected episode's status is recomputed from its
// chunk states. Completed chunks keep their audio, so a restarted run
// resumes where it stopped. Returns the ids of episodes that have work
// remaining and should be re-enqueued.
func (s *Store) RecoverInterrupted(ctx context.Context, logger zerolog.Logger) ([]string, error) {
	var resumable []string
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT DISTINCT episode_id FROM chunks WHERE status = ?`, ChunkGenerating)
		if err != nil {
			return err
		}
		var interrupted []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				_ = rows.Close()
				return err
			}
			interrupted = append(interrupted, id)
		}
		_ = rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE chunks SET status = ?, audio_path = '', duration_secs = 0, word_timings = '[]'
			WHERE status = ?`, ChunkPending, ChunkGenerating); err != nil {
			return fmt.Errorf("reset generating chunks: %w", err)
		}

		// Episodes marked generating with no generating chunk also need
		// their status recomputed (crash between chunk commit and episode
		// finalization).
		stale, err := tx.QueryContext(ctx,
			`SELECT id FROM episodes WHERE status = ?`, EpisodeGenerating)
		if err != nil {
			return err
		}
		seen := make(map[string]bool, len(interrupted))
		for _, id := range interrupted {
			seen[id] = true
		}
		for stale.Next() {
			var id string
			if err := stale.Scan(&id); err != nil {
				_ = stale.Close()
				return err
			}
			if !seen[id] {
				interrupted = append(interrupted, id)
				seen[id] = true
			}
		}
		_ = stale.Close()
		if err := stale.Err(); err != nil {
			return err
		}

		for _, id := range interrupted {
			counts, err := countChunkStates(ctx, tx, id)
			if err != nil {
				return err
			}
			status := counts.Aggregate()
			if _, err := tx.ExecContext(ctx,
				`UPDATE episodes SET status = ? WHERE id = ?`, status, id); err != nil {
				return err
			}
			logger.Info().
				Str("event", "store.recovery").
				Str("episode_id", id).
				Int("pending", counts.Pending).
				Int("ready", counts.Ready).
				Int("errors", counts.Error).
				Str("status", string(status)).
				Msg("recovered interrupted episode")
			if counts.Pending > 0 {
				resumable = append(resumable, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("recover interrupted: %w", err)
	}
	return resumable, nil
}
