// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
)

// EnsureTag returns the tag with the given name, creating it if needed.
func (s *Store) EnsureTag(ctx context.Context, id, name string) (Tag, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO tags (id, name) VALUES (?, ?)`, id, name)
	if err != nil {
		return Tag{}, fmt.Errorf("insert tag: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `SELECT id, name FROM tags WHERE name = ?`, name)
	var t Tag
	if err := row.Scan(&t.ID, &t.Name); err != nil {
		return Tag{}, fmt.Errorf("lookup tag: %w", err)
	}
	return t, nil
}

// ListTags returns all tags ordered by name.
func (s *Store) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TagSource attaches a tag to a source. Attaching twice is a no-op.
func (s *Store) TagSource(ctx context.Context, sourceID, tagID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO source_tags (source_id, tag_id) VALUES (?, ?)`,
		sourceID, tagID)
	if err != nil {
		return fmt.Errorf("tag source: %w", err)
	}
	return nil
}

// UntagSource detaches a tag from a source.
func (s *Store) UntagSource(ctx context.Context, sourceID, tagID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM source_tags WHERE source_id = ? AND tag_id = ?`, sourceID, tagID)
	if err != nil {
		return fmt.Errorf("untag source: %w", err)
	}
	return nil
}

// TagEpisode attaches a tag to an episode. Attaching twice is a no-op.
func (s *Store) TagEpisode(ctx context.Context, episodeID, tagID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO episode_tags (episode_id, tag_id) VALUES (?, ?)`,
		episodeID, tagID)
	if err != nil {
		return fmt.Errorf("tag episode: %w", err)
	}
	return nil
}

// UntagEpisode detaches a tag from an episode.
func (s *Store) UntagEpisode(ctx context.Context, episodeID, tagID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM episode_tags WHERE episode_id = ? AND tag_id = ?`, episodeID, tagID)
	if err != nil {
		return fmt.Errorf("untag episode: %w", err)
	}
	return nil
}

// SourceTags returns the tags attached to a source, ordered by name.
func (s *Store) SourceTags(ctx context.Context, sourceID string) ([]Tag, error) {
	return s.tagsFor(ctx, `
		SELECT t.id, t.name FROM tags t
		JOIN source_tags st ON t.id = st.tag_id
		WHERE st.source_id = ? ORDER BY t.name`, sourceID)
}

// EpisodeTags returns the tags attached to an episode, ordered by name.
func (s *Store) EpisodeTags(ctx context.Context, episodeID string) ([]Tag, error) {
	return s.tagsFor(ctx, `
		SELECT t.id, t.name FROM tags t
		JOIN episode_tags et ON t.id = et.tag_id
		WHERE et.episode_id = ? ORDER BY t.name`, episodeID)
}

func (s *Store) tagsFor(ctx context.Context, query, id string) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("entity tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTag removes a tag and its attachments.
func (s *Store) DeleteTag(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	return requireRow(res, "tag", id)
}
