// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateFolder inserts a folder. ParentID may be empty for a root folder.
func (s *Store) CreateFolder(ctx context.Context, f Folder) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO folders (id, name, parent_id, created_at)
		VALUES (?, ?, ?, ?)`,
		f.ID, f.Name, nullable(f.ParentID), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("insert folder: %w", err)
	}
	return nil
}

// GetFolder retrieves a folder by id.
func (s *Store) GetFolder(ctx context.Context, id string) (Folder, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(parent_id, ''), created_at
		FROM folders WHERE id = ?`, id)
	var f Folder
	var created string
	err := row.Scan(&f.ID, &f.Name, &f.ParentID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Folder{}, fmt.Errorf("folder %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Folder{}, fmt.Errorf("get folder: %w", err)
	}
	f.CreatedAt = parseTime(created)
	return f, nil
}

// ListFolders returns every folder, parents before children within a name
// ordering the caller can build a tree from.
func (s *Store) ListFolders(ctx context.Context) ([]Folder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(parent_id, ''), created_at
		FROM folders ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Folder
	for rows.Next() {
		var f Folder
		var created string
		if err := rows.Scan(&f.ID, &f.Name, &f.ParentID, &created); err != nil {
			return nil, err
		}
		f.CreatedAt = parseTime(created)
		out = append(out, f)
	}
	return out, rows.Err()
}

// RenameFolder changes a folder's display name.
func (s *Store) RenameFolder(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE folders SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("rename folder: %w", err)
	}
	return requireRow(res, "folder", id)
}

// MoveFolder re-parents a folder. An empty parentID moves it to the root.
// Moving a folder under itself or any of its descendants is rejected.
func (s *Store) MoveFolder(ctx context.Context, id, parentID string) error {
	if parentID != "" {
		cursor := parentID
		for cursor != "" {
			if cursor == id {
				return fmt.Errorf("folder %s: move would create a cycle", id)
			}
			row := s.db.QueryRowContext(ctx,
				`SELECT COALESCE(parent_id, '') FROM folders WHERE id = ?`, cursor)
			if err := row.Scan(&cursor); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("folder %s: %w", parentID, ErrNotFound)
				}
				return err
			}
		}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE folders SET parent_id = ? WHERE id = ?`, nullable(parentID), id)
	if err != nil {
		return fmt.Errorf("move folder: %w", err)
	}
	return requireRow(res, "folder", id)
}

// DeleteFolder removes a folder. Children, sources and episodes inside it
// are re-parented to the deleted folder's parent rather than orphaned.
func (s *Store) DeleteFolder(ctx context.Context, id string) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT COALESCE(parent_id, '') FROM folders WHERE id = ?`, id)
		var parentID string
		if err := row.Scan(&parentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("folder %s: %w", id, ErrNotFound)
			}
			return err
		}

		for _, q := range []string{
			`UPDATE folders SET parent_id = ? WHERE parent_id = ?`,
			`UPDATE sources SET folder_id = ? WHERE folder_id = ?`,
			`UPDATE episodes SET folder_id = ? WHERE folder_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, nullable(parentID), id); err != nil {
				return fmt.Errorf("re-parent folder contents: %w", err)
			}
		}

		_, err := tx.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete folder: %w", err)
		}
		return nil
	})
}
