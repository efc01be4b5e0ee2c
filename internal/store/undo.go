// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateUndoTicket records a revertible operation. Any previous ticket
// for the same episode is superseded; undo history is one level deep.
func (s *Store) CreateUndoTicket(ctx context.Context, t UndoTicket) ([]UndoTicket, error) {
	var superseded []UndoTicket
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, episode_id, kind, payload, backup_dir, created_at, expires_at
			FROM undo_tickets WHERE episode_id = ?`, t.EpisodeID)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			old, err := scanTicket(rows)
			if err != nil {
				return err
			}
			superseded = append(superseded, old)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM undo_tickets WHERE episode_id = ?`, t.EpisodeID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO undo_tickets (id, episode_id, kind, payload, backup_dir, created_at, expires_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.EpisodeID, t.Kind, t.Payload, t.BackupDir,
			formatTime(t.CreatedAt), formatTime(t.ExpiresAt))
		if err != nil {
			return fmt.Errorf("insert undo ticket: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return superseded, nil
}

// GetUndoTicket returns a ticket by id. Expiry is the caller's concern;
// an expired ticket still reads back until the janitor purges it.
func (s *Store) GetUndoTicket(ctx context.Context, id string) (UndoTicket, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, episode_id, kind, payload, backup_dir, created_at, expires_at
		FROM undo_tickets WHERE id = ?`, id)
	t, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return UndoTicket{}, fmt.Errorf("undo ticket %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return UndoTicket{}, fmt.Errorf("get undo ticket: %w", err)
	}
	return t, nil
}

// DeleteUndoTicket consumes a ticket.
func (s *Store) DeleteUndoTicket(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM undo_tickets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete undo ticket: %w", err)
	}
	return requireRow(res, "undo ticket", id)
}

// ExpiredUndoTickets returns and removes tickets past their window so the
// caller can discard their parked backups.
func (s *Store) ExpiredUndoTickets(ctx context.Context, now time.Time) ([]UndoTicket, error) {
	var expired []UndoTicket
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, episode_id, kind, payload, backup_dir, created_at, expires_at
			FROM undo_tickets WHERE expires_at < ?`, formatTime(now))
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			t, err := scanTicket(rows)
			if err != nil {
				return err
			}
			expired = append(expired, t)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`DELETE FROM undo_tickets WHERE expires_at < ?`, formatTime(now))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("expire undo tickets: %w", err)
	}
	return expired, nil
}

func scanTicket(row interface{ Scan(...any) error }) (UndoTicket, error) {
	var t UndoTicket
	var created, expires string
	err := row.Scan(&t.ID, &t.EpisodeID, &t.Kind, &t.Payload, &t.BackupDir, &created, &expires)
	if err != nil {
		return UndoTicket{}, err
	}
	t.CreatedAt = parseTime(created)
	t.ExpiresAt = parseTime(expires)
	return t, nil
}
