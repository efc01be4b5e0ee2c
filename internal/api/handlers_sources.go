// SPDX-License-Identifier: MIT

package api

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/papercast-dev/papercast/internal/library"
	"github.com/papercast-dev/papercast/internal/normalize"
)

const maxUploadBytes = 16 << 20

type ingestBody struct {
	Variant  string             `json:"variant"`
	Title    string             `json:"title,omitempty"`
	Text     string             `json:"text,omitempty"`
	FileName string             `json:"file_name,omitempty"`
	FileData []byte             `json:"file_data,omitempty"` // base64 over the wire
	URL      string             `json:"url,omitempty"`
	GitURL   string             `json:"git_url,omitempty"`
	Subpath  string             `json:"subpath,omitempty"`
	FolderID string             `json:"folder_id,omitempty"`
	Cleaning *normalize.Options `json:"cleaning,omitempty"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var body ingestBody
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if !decodeJSON(w, r, &body) {
		return
	}
	src, err := s.lib.Ingest(r.Context(), library.IngestRequest{
		Variant:  body.Variant,
		Title:    body.Title,
		Text:     body.Text,
		FileName: body.FileName,
		FileData: body.FileData,
		URL:      body.URL,
		GitURL:   body.GitURL,
		Subpath:  body.Subpath,
		FolderID: body.FolderID,
		Cleaning: body.Cleaning,
	})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSourceDTO(src))
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.lib.Sources(r.Context(), r.URL.Query().Get("folder_id"), r.URL.Query().Get("tag"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSourceDTOs(sources))
}

func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	src, err := s.lib.Source(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSourceDTO(src))
}

func (s *Server) handleRenameSource(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := s.lib.RenameSource(r.Context(), chi.URLParam(r, "id"), body.Title); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMoveSource(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FolderID string `json:"folder_id"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := s.lib.MoveSource(r.Context(), chi.URLParam(r, "id"), body.FolderID); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	if err := s.lib.DeleteSource(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReClean(w http.ResponseWriter, r *http.Request) {
	var opts normalize.Options
	if !decodeJSON(w, r, &opts) {
		return
	}
	src, err := s.lib.ReClean(r.Context(), chi.URLParam(r, "id"), opts)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSourceDTO(src))
}

func (s *Server) handlePreviewClean(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text     string            `json:"text"`
		Cleaning normalize.Options `json:"cleaning"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	cleaned := s.lib.PreviewClean(body.Text, body.Cleaning)
	writeJSON(w, http.StatusOK, map[string]string{"cleaned_text": cleaned})
}

func (s *Server) handlePreviewChunks(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text      string `json:"text"`
		Strategy  string `json:"strategy"`
		MaxChars  int    `json:"max_chars"`
		Breathing string `json:"breathing"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	chunks, err := s.lib.PreviewChunks(body.Text, body.Strategy, body.MaxChars, body.Breathing)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	type previewChunk struct {
		Index int    `json:"index"`
		Text  string `json:"text"`
		Label string `json:"label"`
	}
	out := make([]previewChunk, len(chunks))
	for i, c := range chunks {
		out[i] = previewChunk{Index: c.Index, Text: c.Text, Label: c.Label}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePreviewGit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		GitURL  string `json:"git_url"`
		Subpath string `json:"subpath,omitempty"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	preview, err := s.lib.PreviewGit(r.Context(), body.GitURL, body.Subpath)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"title": preview.Title,
		"files": preview.Files,
	})
}

func (s *Server) handleSetCover(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		badRequest(w, "read cover body: "+err.Error())
		return
	}
	ext := r.URL.Query().Get("ext")
	if ext == "" {
		ext = extFromContentType(r.Header.Get("Content-Type"))
	}
	if err := s.lib.SetCover(r.Context(), chi.URLParam(r, "id"), data, ext); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetCover(w http.ResponseWriter, r *http.Request) {
	path, err := s.lib.CoverPath(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	http.ServeFile(w, r, path)
}

func extFromContentType(ct string) string {
	switch strings.TrimSpace(strings.Split(ct, ";")[0]) {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	default:
		return strings.TrimPrefix(filepath.Ext(ct), ".")
	}
}
