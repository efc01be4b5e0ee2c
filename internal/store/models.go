// SPDX-License-Identifier: MIT

package store

import "time"

// SourceType identifies how a source entered the library.
type SourceType string

const (
	SourceText SourceType = "text"
	SourceFile SourceType = "file"
	SourceURL  SourceType = "url"
	SourceGit  SourceType = "git"
)

// EpisodeStatus is the lifecycle state of an episode.
type EpisodeStatus string

const (
	EpisodePending    EpisodeStatus = "pending"
	EpisodeGenerating EpisodeStatus = "generating"
	EpisodeReady      EpisodeStatus = "ready"
	EpisodeError      EpisodeStatus = "error"
	EpisodeCancelled  EpisodeStatus = "cancelled"
)

// ChunkStatus is the lifecycle state of a chunk.
type ChunkStatus string

const (
	ChunkPending    ChunkStatus = "pending"
	ChunkGenerating ChunkStatus = "generating"
	ChunkReady      ChunkStatus = "ready"
	ChunkError      ChunkStatus = "error"
)

// Source is an imported document before chunking.
type Source struct {
	ID               string
	Title            string
	Type             SourceType
	OriginalName     string
	OriginalURL      string
	RawText          string
	CleanedText      string
	CleaningSettings string // JSON snapshot of normalize.Options
	CoverArt         string // relative path beneath the sources dir, empty if none
	FolderID         string // empty means root
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Episode is a generation job over a source with a fixed chunk plan.
type Episode struct {
	ID                 string
	SourceID           string
	Title              string
	VoiceID            string
	OutputFormat       string
	ChunkStrategy      string
	ChunkMaxLength     int
	BreathingIntensity string
	Status             EpisodeStatus
	TotalDurationSecs  float64
	FolderID           string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	LastPlayedAt       *time.Time
}

// Chunk is the unit of synthesis and playback.
type Chunk struct {
	EpisodeID    string
	Index        int
	Text         string
	Label        string
	Status       ChunkStatus
	AudioPath    string // relative to the audio dir, set when ready
	DurationSecs float64
	ErrorMessage string
	WordTimings  string // JSON, set when ready
	CreatedAt    time.Time
}

// Folder groups sources and episodes in a tree.
type Folder struct {
	ID        string
	Name      string
	ParentID  string // empty means root
	CreatedAt time.Time
}

// Tag is a free-form label attached to sources and episodes.
type Tag struct {
	ID   string
	Name string
}

// PlaybackState is the per-episode resume point.
type PlaybackState struct {
	EpisodeID         string
	CurrentChunkIndex int
	PositionSecs      float64
	PercentListened   float64
	UpdatedAt         *time.Time
}

// UndoTicket records a destructive operation that can be reverted within
// a bounded window.
type UndoTicket struct {
	ID        string
	EpisodeID string
	Kind      string
	Payload   string // JSON blob sufficient to restore prior state
	BackupDir string // absolute path of the parked audio directory
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ChunkStateCount aggregates chunk statuses for one episode.
type ChunkStateCount struct {
	Pending    int
	Generating int
	Ready      int
	Error      int
}

// Total returns the number of chunks counted.
func (c ChunkStateCount) Total() int {
	return c.Pending + c.Generating + c.Ready + c.Error
}

// Aggregate derives the episode status implied by the chunk states.
// Cancelled is sticky and handled by the caller; this covers the
// pending/generating/ready/error quadrant.
func (c ChunkStateCount) Aggregate() EpisodeStatus {
	switch {
	case c.Total() == 0:
		return EpisodeError
	case c.Ready == c.Total():
		return EpisodeReady
	case c.Pending == c.Total():
		return EpisodePending
	case c.Pending == 0 && c.Generating == 0 && c.Error > 0:
		return EpisodeError
	default:
		return EpisodeGenerating
	}
}
