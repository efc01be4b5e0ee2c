// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const sourceColumns = `id, title, source_type, original_name, original_url,
	raw_text, cleaned_text, cleaning_settings, cover_art,
	COALESCE(folder_id, ''), created_at, updated_at`

func scanSource(row interface{ Scan(...any) error }) (Source, error) {
	var s Source
	var created, updated string
	err := row.Scan(
		&s.ID, &s.Title, &s.Type, &s.OriginalName, &s.OriginalURL,
		&s.RawText, &s.CleanedText, &s.CleaningSettings, &s.CoverArt,
		&s.FolderID, &created, &updated,
	)
	if err != nil {
		return Source{}, err
	}
	s.CreatedAt = parseTime(created)
	s.UpdatedAt = parseTime(updated)
	return s, nil
}

// CreateSource inserts a new source.
func (s *Store) CreateSource(ctx context.Context, src Source) error {
	now := formatTime(time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sources (id, title, source_type, original_name, original_url,
			raw_text, cleaned_text, cleaning_settings, cover_art, folder_id,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		src.ID, src.Title, src.Type, src.OriginalName, src.OriginalURL,
		src.RawText, src.CleanedText, src.CleaningSettings, src.CoverArt,
		nullable(src.FolderID), now, now,
	)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	return nil
}

// GetSource retrieves a source by id.
func (s *Store) GetSource(ctx context.Context, id string) (Source, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id)
	src, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Source{}, fmt.Errorf("source %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Source{}, fmt.Errorf("get source: %w", err)
	}
	return src, nil
}

// ListSources returns sources, optionally filtered by folder or tag name,
// newest first.
func (s *Store) ListSources(ctx context.Context, folderID, tag string) ([]Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources`
	var args []any
	switch {
	case tag != "":
		query = `SELECT s.id, s.title, s.source_type, s.original_name, s.original_url,
			s.raw_text, s.cleaned_text, s.cleaning_settings, s.cover_art,
			COALESCE(s.folder_id, ''), s.created_at, s.updated_at
			FROM sources s
			JOIN source_tags st ON s.id = st.source_id
			JOIN tags t ON st.tag_id = t.id WHERE t.name = ?`
		args = append(args, tag)
	case folderID != "":
		query += ` WHERE folder_id = ?`
		args = append(args, folderID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

// UpdateSourceCleanedText replaces the cleaned text and the cleaning
// settings snapshot it was produced with. The source id never changes.
func (s *Store) UpdateSourceCleanedText(ctx context.Context, id, cleanedText, settingsJSON string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sources SET cleaned_text = ?, cleaning_settings = ?, updated_at = ?
		WHERE id = ?`,
		cleanedText, settingsJSON, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("update cleaned text: %w", err)
	}
	return requireRow(res, "source", id)
}

// UpdateSourceTitle renames a source.
func (s *Store) UpdateSourceTitle(ctx context.Context, id, title string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sources SET title = ?, updated_at = ? WHERE id = ?`,
		title, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("update source title: %w", err)
	}
	return requireRow(res, "source", id)
}

// SetSourceFolder moves a source into a folder (empty id moves it to root).
func (s *Store) SetSourceFolder(ctx context.Context, id, folderID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sources SET folder_id = ?, updated_at = ? WHERE id = ?`,
		nullable(folderID), formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("set source folder: %w", err)
	}
	return requireRow(res, "source", id)
}

// SetSourceCover records the cover art path for a source.
func (s *Store) SetSourceCover(ctx context.Context, id, coverPath string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sources SET cover_art = ?, updated_at = ? WHERE id = ?`,
		coverPath, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("set source cover: %w", err)
	}
	return requireRow(res, "source", id)
}

// DeleteSource removes a source. Episodes, chunks and playback rows cascade;
// the returned episode ids let the caller clean their audio directories.
func (s *Store) DeleteSource(ctx context.Context, id string) ([]string, error) {
	var episodeIDs []string
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id FROM episodes WHERE source_id = ?`, id)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var eid string
			if err := rows.Scan(&eid); err != nil {
				return err
			}
			episodeIDs = append(episodeIDs, eid)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireRow(res, "source", id)
	})
	if err != nil {
		return nil, err
	}
	return episodeIDs, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func requireRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
	}
	return nil
}
