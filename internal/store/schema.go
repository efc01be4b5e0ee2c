// SPDX-License-Identifier: MIT

package store

import "fmt"

// The schema lives in one place. Migrations are versioned; the version
// stored in schema_version is the number of migrations applied.
var migrations = []string{
	// 1: baseline schema
	`
	CREATE TABLE IF NOT EXISTS folders (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		parent_id TEXT REFERENCES folders(id) ON DELETE SET NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sources (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		source_type TEXT NOT NULL CHECK(source_type IN ('text', 'file', 'url', 'git')),
		original_name TEXT NOT NULL DEFAULT '',
		original_url TEXT NOT NULL DEFAULT '',
		raw_text TEXT NOT NULL,
		cleaned_text TEXT NOT NULL,
		cleaning_settings TEXT NOT NULL DEFAULT '{}',
		cover_art TEXT NOT NULL DEFAULT '',
		folder_id TEXT REFERENCES folders(id) ON DELETE SET NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS episodes (
		id TEXT PRIMARY KEY,
		source_id TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		voice_id TEXT NOT NULL,
		output_format TEXT NOT NULL DEFAULT 'wav',
		chunk_strategy TEXT NOT NULL,
		chunk_max_length INTEGER NOT NULL,
		breathing_intensity TEXT NOT NULL DEFAULT 'normal',
		status TEXT NOT NULL DEFAULT 'pending'
			CHECK(status IN ('pending', 'generating', 'ready', 'error', 'cancelled')),
		total_duration_secs REAL NOT NULL DEFAULT 0,
		folder_id TEXT REFERENCES folders(id) ON DELETE SET NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		last_played_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_episodes_source ON episodes(source_id);
	CREATE INDEX IF NOT EXISTS idx_episodes_folder ON episodes(folder_id);

	CREATE TABLE IF NOT EXISTS chunks (
		episode_id TEXT NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
		chunk_index INTEGER NOT NULL,
		text TEXT NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending'
			CHECK(status IN ('pending', 'generating', 'ready', 'error')),
		audio_path TEXT NOT NULL DEFAULT '',
		duration_secs REAL NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT '',
		word_timings TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		PRIMARY KEY (episode_id, chunk_index)
	);

	CREATE TABLE IF NOT EXISTS tags (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS source_tags (
		source_id TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
		tag_id TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		PRIMARY KEY (source_id, tag_id)
	);

	CREATE TABLE IF NOT EXISTS episode_tags (
		episode_id TEXT NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
		tag_id TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		PRIMARY KEY (episode_id, tag_id)
	);

	CREATE TABLE IF NOT EXISTS playback_state (
		episode_id TEXT PRIMARY KEY REFERENCES episodes(id) ON DELETE CASCADE,
		current_chunk_index INTEGER NOT NULL DEFAULT 0,
		position_secs REAL NOT NULL DEFAULT 0,
		percent_listened REAL NOT NULL DEFAULT 0,
		updated_at TEXT
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS undo_tickets (
		id TEXT PRIMARY KEY,
		episode_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL,
		backup_dir TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		expires_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_undo_expires ON undo_tickets(expires_at);
	`,
}

// defaultSettings seeds the settings table on first open. All of these
// are editable at runtime through the settings API.
var defaultSettings = map[string]string{
	"default_voice":              "alba",
	"default_output_format":      "wav",
	"default_chunk_strategy":     "paragraph",
	"default_chunk_max_length":   "2000",
	"default_breathing":          "normal",
	"clean_code_block_rule":      "skip",
	"clean_remove_non_text":      "false",
	"clean_handle_tables":        "true",
	"clean_speak_urls":           "true",
	"clean_expand_abbreviations": "true",
	"clean_preserve_parentheses": "true",
	"auto_play_next":             "true",
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return err
	}

	var version int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version); err != nil {
		return err
	}

	for i := version; i < len(migrations); i++ {
		if _, err := s.db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := s.db.Exec(`DELETE FROM schema_version`); err != nil {
			return err
		}
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return err
		}
	}

	for key, value := range defaultSettings {
		if _, err := s.db.Exec(
			`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`, key, value,
		); err != nil {
			return err
		}
	}
	return nil
}
