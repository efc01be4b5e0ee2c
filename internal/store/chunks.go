// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"unicode/utf8"
)

const chunkColumns = `episode_id, chunk_index, text, label, status,
	audio_path, duration_secs, error_message, word_timings, created_at`

func scanChunk(row interface{ Scan(...any) error }) (Chunk, error) {
	var c Chunk
	var created string
	err := row.Scan(
		&c.EpisodeID, &c.Index, &c.Text, &c.Label, &c.Status,
		&c.AudioPath, &c.DurationSecs, &c.ErrorMessage, &c.WordTimings, &created,
	)
	if err != nil {
		return Chunk{}, err
	}
	c.CreatedAt = parseTime(created)
	return c, nil
}

// ListChunks returns an episode's chunks in index order.
func (s *Store) ListChunks(ctx context.Context, episodeID string) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+chunkColumns+` FROM chunks
		WHERE episode_id = ? ORDER BY chunk_index`, episodeID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetChunk retrieves a single chunk by episode and index.
func (s *Store) GetChunk(ctx context.Context, episodeID string, index int) (Chunk, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+chunkColumns+` FROM chunks
		WHERE episode_id = ? AND chunk_index = ?`, episodeID, index)
	c, err := scanChunk(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Chunk{}, fmt.Errorf("chunk %s/%d: %w", episodeID, index, ErrNotFound)
	}
	if err != nil {
		return Chunk{}, fmt.Errorf("get chunk: %w", err)
	}
	return c, nil
}

// ClaimNextPending atomically marks the lowest-index pending chunk of the
// episode as generating and returns it. ErrNotFound means no pending
// chunk remains.
func (s *Store) ClaimNextPending(ctx context.Context, episodeID string) (Chunk, error) {
	var claimed Chunk
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT `+chunkColumns+` FROM chunks
			WHERE episode_id = ? AND status = ?
			ORDER BY chunk_index LIMIT 1`, episodeID, ChunkPending)
		c, err := scanChunk(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("pending chunk for %s: %w", episodeID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("claim chunk: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE chunks SET status = ?
			WHERE episode_id = ? AND chunk_index = ?`,
			ChunkGenerating, c.EpisodeID, c.Index)
		if err != nil {
			return fmt.Errorf("mark generating: %w", err)
		}
		c.Status = ChunkGenerating
		claimed = c
		return nil
	})
	return claimed, err
}

// MarkChunkReady commits a successful synthesis: audio path, duration and
// word timings in one write.
func (s *Store) MarkChunkReady(ctx context.Context, episodeID string, index int, audioPath string, durationSecs float64, wordTimings string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE chunks SET status = ?, audio_path = ?, duration_secs = ?,
			error_message = '', word_timings = ?
		WHERE episode_id = ? AND chunk_index = ?`,
		ChunkReady, audioPath, durationSecs, orEmptyJSON(wordTimings), episodeID, index)
	if err != nil {
		return fmt.Errorf("mark chunk ready: %w", err)
	}
	return requireRow(res, "chunk", fmt.Sprintf("%s/%d", episodeID, index))
}

// maxErrorLen bounds stored synthesis error messages.
const maxErrorLen = 500

// MarkChunkError records a failed synthesis with a truncated message.
// Truncation backs up to a rune boundary so the stored text stays valid
// UTF-8.
func (s *Store) MarkChunkError(ctx context.Context, episodeID string, index int, msg string) error {
	if len(msg) > maxErrorLen {
		cut := maxErrorLen
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE chunks SET status = ?, error_message = ?
		WHERE episode_id = ? AND chunk_index = ?`,
		ChunkError, msg, episodeID, index)
	if err != nil {
		return fmt.Errorf("mark chunk error: %w", err)
	}
	return requireRow(res, "chunk", fmt.Sprintf("%s/%d", episodeID, index))
}

// ResetChunk returns a single chunk to pending, clearing its artifacts.
func (s *Store) ResetChunk(ctx context.Context, episodeID string, index int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE chunks SET status = ?, audio_path = '', duration_secs = 0,
			error_message = '', word_timings = '[]'
		WHERE episode_id = ? AND chunk_index = ?`,
		ChunkPending, episodeID, index)
	if err != nil {
		return fmt.Errorf("reset chunk: %w", err)
	}
	return requireRow(res, "chunk", fmt.Sprintf("%s/%d", episodeID, index))
}

// ResetChunks returns every chunk of the episode to pending.
func (s *Store) ResetChunks(ctx context.Context, episodeID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE chunks SET status = ?, audio_path = '', duration_secs = 0,
			error_message = '', word_timings = '[]'
		WHERE episode_id = ?`, ChunkPending, episodeID)
	if err != nil {
		return fmt.Errorf("reset chunks: %w", err)
	}
	return nil
}

// ResetErrorChunks returns only the failed chunks of the episode to
// pending so they can be retried.
func (s *Store) ResetErrorChunks(ctx context.Context, episodeID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE chunks SET status = ?, error_message = ''
		WHERE episode_id = ? AND status = ?`,
		ChunkPending, episodeID, ChunkError)
	if err != nil {
		return 0, fmt.Errorf("reset error chunks: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// CountChunkStates tallies the chunk statuses of an episode.
func (s *Store) CountChunkStates(ctx context.Context, episodeID string) (ChunkStateCount, error) {
	return countChunkStates(ctx, s.db, episodeID)
}

func countChunkStates(ctx context.Context, q querier, episodeID string) (ChunkStateCount, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM chunks
		WHERE episode_id = ? GROUP BY status`, episodeID)
	if err != nil {
		return ChunkStateCount{}, fmt.Errorf("count chunk states: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var counts ChunkStateCount
	for rows.Next() {
		var status ChunkStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return ChunkStateCount{}, err
		}
		switch status {
		case ChunkPending:
			counts.Pending = n
		case ChunkGenerating:
			counts.Generating = n
		case ChunkReady:
			counts.Ready = n
		case ChunkError:
			counts.Error = n
		}
	}
	return counts, rows.Err()
}
