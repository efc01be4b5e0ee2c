// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// BulkMoveEpisodes moves every listed episode into the folder (empty
// folderID means root) in one transaction. Any missing episode aborts
// the whole batch.
func (s *Store) BulkMoveEpisodes(ctx context.Context, episodeIDs []string, folderID string) error {
	if folderID != "" {
		if _, err := s.GetFolder(ctx, folderID); err != nil {
			return err
		}
	}
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		now := formatTime(time.Now())
		for _, id := range episodeIDs {
			res, err := tx.ExecContext(ctx, `
				UPDATE episodes SET folder_id = ?, updated_at = ? WHERE id = ?`,
				nullable(folderID), now, id)
			if err != nil {
				return fmt.Errorf("move episode %s: %w", id, err)
			}
			if err := requireRow(res, "episode", id); err != nil {
				return err
			}
		}
		return nil
	})
}

// BulkDeleteEpisodes removes every listed episode in one transaction.
// Any missing episode aborts the whole batch; chunks and playback rows
// cascade.
func (s *Store) BulkDeleteEpisodes(ctx context.Context, episodeIDs []string) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		for _, id := range episodeIDs {
			res, err := tx.ExecContext(ctx, `DELETE FROM episodes WHERE id = ?`, id)
			if err != nil {
				return fmt.Errorf("delete episode %s: %w", id, err)
			}
			if err := requireRow(res, "episode", id); err != nil {
				return err
			}
		}
		return nil
	})
}
