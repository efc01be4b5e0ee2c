// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"time"

	"github.com/papercast-dev/papercast/internal/library"
	"github.com/papercast-dev/papercast/internal/store"
)

// Wire shapes. Store models stay transport-agnostic; the conversion
// happens here.

type sourceDTO struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	Type             string          `json:"type"`
	OriginalName     string          `json:"original_name,omitempty"`
	OriginalURL      string          `json:"original_url,omitempty"`
	CleanedText      string          `json:"cleaned_text"`
	CleaningSettings json.RawMessage `json:"cleaning_settings,omitempty"`
	HasCover         bool            `json:"has_cover"`
	FolderID         string          `json:"folder_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func toSourceDTO(s store.Source) sourceDTO {
	return sourceDTO{
		ID:               s.ID,
		Title:            s.Title,
		Type:             string(s.Type),
		OriginalName:     s.OriginalName,
		OriginalURL:      s.OriginalURL,
		CleanedText:      s.CleanedText,
		CleaningSettings: rawOrNil(s.CleaningSettings),
		HasCover:         s.CoverArt != "",
		FolderID:         s.FolderID,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

type episodeDTO struct {
	ID                 string     `json:"id"`
	SourceID           string     `json:"source_id"`
	Title              string     `json:"title"`
	VoiceID            string     `json:"voice_id"`
	OutputFormat       string     `json:"output_format"`
	ChunkStrategy      string     `json:"chunk_strategy"`
	ChunkMaxLength     int        `json:"chunk_max_length"`
	BreathingIntensity string     `json:"breathing_intensity"`
	Status             string     `json:"status"`
	TotalDurationSecs  float64    `json:"total_duration_secs"`
	FolderID           string     `json:"folder_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	LastPlayedAt       *time.Time `json:"last_played_at,omitempty"`
}

func toEpisodeDTO(e store.Episode) episodeDTO {
	return episodeDTO{
		ID:                 e.ID,
		SourceID:           e.SourceID,
		Title:              e.Title,
		VoiceID:            e.VoiceID,
		OutputFormat:       e.OutputFormat,
		ChunkStrategy:      e.ChunkStrategy,
		ChunkMaxLength:     e.ChunkMaxLength,
		BreathingIntensity: e.BreathingIntensity,
		Status:             string(e.Status),
		TotalDurationSecs:  e.TotalDurationSecs,
		FolderID:           e.FolderID,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
		LastPlayedAt:       e.LastPlayedAt,
	}
}

func toEpisodeDTOs(eps []store.Episode) []episodeDTO {
	out := make([]episodeDTO, len(eps))
	for i, e := range eps {
		out[i] = toEpisodeDTO(e)
	}
	return out
}

type chunkDTO struct {
	Index        int             `json:"index"`
	Text         string          `json:"text"`
	Label        string          `json:"label"`
	Status       string          `json:"status"`
	DurationSecs float64         `json:"duration_secs"`
	ErrorMessage string          `json:"error_message,omitempty"`
	WordTimings  json.RawMessage `json:"word_timings,omitempty"`
	HasAudio     bool            `json:"has_audio"`
}

func toChunkDTO(c store.Chunk) chunkDTO {
	return chunkDTO{
		Index:        c.Index,
		Text:         c.Text,
		Label:        c.Label,
		Status:       string(c.Status),
		DurationSecs: c.DurationSecs,
		ErrorMessage: c.ErrorMessage,
		WordTimings:  rawOrNil(c.WordTimings),
		HasAudio:     c.AudioPath != "",
	}
}

type playbackDTO struct {
	EpisodeID         string     `json:"episode_id"`
	CurrentChunkIndex int        `json:"current_chunk_index"`
	PositionSecs      float64    `json:"position_secs"`
	PercentListened   float64    `json:"percent_listened"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

func toPlaybackDTO(p store.PlaybackState) playbackDTO {
	return playbackDTO{
		EpisodeID:         p.EpisodeID,
		CurrentChunkIndex: p.CurrentChunkIndex,
		PositionSecs:      p.PositionSecs,
		PercentListened:   p.PercentListened,
		UpdatedAt:         p.UpdatedAt,
	}
}

type episodeDetailDTO struct {
	Episode  episodeDTO  `json:"episode"`
	Chunks   []chunkDTO  `json:"chunks"`
	Playback playbackDTO `json:"playback"`
}

func toEpisodeDetailDTO(d library.EpisodeDetail) episodeDetailDTO {
	chunks := make([]chunkDTO, len(d.Chunks))
	for i, c := range d.Chunks {
		chunks[i] = toChunkDTO(c)
	}
	return episodeDetailDTO{
		Episode:  toEpisodeDTO(d.Episode),
		Chunks:   chunks,
		Playback: toPlaybackDTO(d.Playback),
	}
}

type folderDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  string    `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toFolderDTO(f store.Folder) folderDTO {
	return folderDTO{ID: f.ID, Name: f.Name, ParentID: f.ParentID, CreatedAt: f.CreatedAt}
}

type tagDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func toTagDTOs(tags []store.Tag) []tagDTO {
	out := make([]tagDTO, len(tags))
	for i, t := range tags {
		out[i] = tagDTO{ID: t.ID, Name: t.Name}
	}
	return out
}

type treeNodeDTO struct {
	Folder   folderDTO     `json:"folder"`
	Children []treeNodeDTO `json:"children"`
	Sources  []sourceDTO   `json:"sources"`
	Episodes []episodeDTO  `json:"episodes"`
}

type treeDTO struct {
	Folders  []treeNodeDTO `json:"folders"`
	Sources  []sourceDTO   `json:"sources"`
	Episodes []episodeDTO  `json:"episodes"`
}

func toTreeDTO(t library.Tree) treeDTO {
	return treeDTO{
		Folders:  toTreeNodeDTOs(t.Folders),
		Sources:  toSourceDTOs(t.Sources),
		Episodes: toEpisodeDTOs(t.Episodes),
	}
}

func toTreeNodeDTOs(nodes []*library.TreeNode) []treeNodeDTO {
	out := make([]treeNodeDTO, len(nodes))
	for i, n := range nodes {
		out[i] = treeNodeDTO{
			Folder:   toFolderDTO(n.Folder),
			Children: toTreeNodeDTOs(n.Children),
			Sources:  toSourceDTOs(n.Sources),
			Episodes: toEpisodeDTOs(n.Episodes),
		}
	}
	return out
}

func toSourceDTOs(sources []store.Source) []sourceDTO {
	out := make([]sourceDTO, len(sources))
	for i, s := range sources {
		out[i] = toSourceDTO(s)
	}
	return out
}

func rawOrNil(s string) json.RawMessage {
	if s == "" || !json.Valid([]byte(s)) {
		return nil
	}
	return json.RawMessage(s)
}
