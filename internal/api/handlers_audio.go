// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/papercast-dev/papercast/internal/audio"
	"github.com/papercast-dev/papercast/internal/library"
)

// handleChunkAudio serves one chunk's WAV with range support.
func (s *Server) handleChunkAudio(w http.ResponseWriter, r *http.Request) {
	index, ok := chunkIndex(w, r)
	if !ok {
		return
	}
	path, err := s.lib.ChunkAudioPath(r.Context(), chi.URLParam(r, "id"), index)
	if err != nil {
		s.writeAudioErr(w, r, err)
		return
	}
	s.serveAudio(w, r, path, audio.ContentType(audio.FormatWAV))
}

// handleFullAudio serves the assembled episode, building it on first
// request.
func (s *Server) handleFullAudio(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	path, err := s.lib.FullAudio(r.Context(), chi.URLParam(r, "id"), format)
	if err != nil {
		s.writeAudioErr(w, r, err)
		return
	}
	f := audio.Format(filepath.Ext(path)[1:])
	s.serveAudio(w, r, path, audio.ContentType(f))
}

// writeAudioErr is writeErr with the audio-specific reading of
// InvalidState: the artifact exists in the model but is not ready yet.
func (s *Server) writeAudioErr(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, library.ErrInvalidState) {
		writeKind(w, http.StatusConflict, "not_ready", err.Error())
		return
	}
	s.writeErr(w, r, err)
}

func (s *Server) serveAudio(w http.ResponseWriter, r *http.Request, path, contentType string) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			writeKind(w, http.StatusNotFound, "not_found", "audio artifact missing")
			return
		}
		s.writeErr(w, r, err)
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Accept-Ranges", "bytes")
	http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
}
