// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/papercast-dev/papercast/internal/library"
	"github.com/papercast-dev/papercast/internal/store"
)

type episodeParamsBody struct {
	Title         string `json:"title,omitempty"`
	VoiceID       string `json:"voice_id,omitempty"`
	OutputFormat  string `json:"output_format,omitempty"`
	ChunkStrategy string `json:"chunk_strategy,omitempty"`
	MaxChars      int    `json:"max_chars,omitempty"`
	Breathing     string `json:"breathing,omitempty"`
}

func (b episodeParamsBody) params() library.EpisodeParams {
	return library.EpisodeParams{
		Title:         b.Title,
		VoiceID:       b.VoiceID,
		OutputFormat:  b.OutputFormat,
		ChunkStrategy: b.ChunkStrategy,
		MaxChars:      b.MaxChars,
		Breathing:     b.Breathing,
	}
}

func (s *Server) handleCreateEpisode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SourceID string `json:"source_id"`
		episodeParamsBody
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	ep, chunkCount, err := s.lib.CreateEpisode(r.Context(), body.SourceID, body.params())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"episode":     toEpisodeDTO(ep),
		"chunk_count": chunkCount,
	})
}

func (s *Server) handleListEpisodes(w http.ResponseWriter, r *http.Request) {
	eps, err := s.lib.Episodes(r.Context(), r.URL.Query().Get("source_id"), r.URL.Query().Get("folder_id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEpisodeDTOs(eps))
}

func (s *Server) handleGetEpisode(w http.ResponseWriter, r *http.Request) {
	detail, err := s.lib.Episode(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEpisodeDetailDTO(detail))
}

func (s *Server) handleRenameEpisode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := s.lib.RenameEpisode(r.Context(), chi.URLParam(r, "id"), body.Title); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteEpisode(w http.ResponseWriter, r *http.Request) {
	if err := s.lib.DeleteEpisode(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRegenerateAll(w http.ResponseWriter, r *http.Request) {
	if err := s.lib.RegenerateAll(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleRegenerateChunk(w http.ResponseWriter, r *http.Request) {
	index, ok := chunkIndex(w, r)
	if !ok {
		return
	}
	if err := s.lib.RegenerateChunk(r.Context(), chi.URLParam(r, "id"), index); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleRegenerateWithSettings(w http.ResponseWriter, r *http.Request) {
	var body episodeParamsBody
	if !decodeJSON(w, r, &body) {
		return
	}
	ticketID, err := s.lib.RegenerateWithSettings(r.Context(), chi.URLParam(r, "id"), body.params())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"undo_id": ticketID})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	if err := s.lib.Undo(r.Context(), chi.URLParam(r, "ticketID")); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.lib.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRetryErrors(w http.ResponseWriter, r *http.Request) {
	if err := s.lib.RetryErrors(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleBulkMove(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EpisodeIDs []string `json:"episode_ids"`
		FolderID   string   `json:"folder_id"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := s.lib.BulkMove(r.Context(), body.EpisodeIDs, body.FolderID); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EpisodeIDs []string `json:"episode_ids"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := s.lib.BulkDelete(r.Context(), body.EpisodeIDs); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetPlayback(w http.ResponseWriter, r *http.Request) {
	pb, err := s.lib.Playback(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlaybackDTO(pb))
}

func (s *Server) handleSavePlayback(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ChunkIndex      int     `json:"chunk_index"`
		PositionSecs    float64 `json:"position_secs"`
		PercentListened float64 `json:"percent_listened"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	err := s.lib.SavePlayback(r.Context(), store.PlaybackState{
		EpisodeID:         chi.URLParam(r, "id"),
		CurrentChunkIndex: body.ChunkIndex,
		PositionSecs:      body.PositionSecs,
		PercentListened:   body.PercentListened,
	})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func chunkIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		badRequest(w, "chunk index must be a non-negative integer")
		return 0, false
	}
	return index, true
}
