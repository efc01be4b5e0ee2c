// SPDX-License-Identifier: MIT

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.lib.LibraryTree(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTreeDTO(tree))
}

func (s *Server) handleListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := s.lib.Folders(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	out := make([]folderDTO, len(folders))
	for i, f := range folders {
		out[i] = toFolderDTO(f)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		ParentID string `json:"parent_id,omitempty"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	f, err := s.lib.CreateFolder(r.Context(), body.Name, body.ParentID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toFolderDTO(f))
}

func (s *Server) handleRenameFolder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := s.lib.RenameFolder(r.Context(), chi.URLParam(r, "id"), body.Name); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMoveFolder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ParentID string `json:"parent_id"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := s.lib.MoveFolder(r.Context(), chi.URLParam(r, "id"), body.ParentID); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	if err := s.lib.DeleteFolder(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFolderPlaylist(w http.ResponseWriter, r *http.Request) {
	s.servePlaylist(w, r, chi.URLParam(r, "id"))
}

func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	s.servePlaylist(w, r, "")
}

func (s *Server) servePlaylist(w http.ResponseWriter, r *http.Request, folderID string) {
	eps, err := s.lib.FolderPlaylist(r.Context(), folderID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEpisodeDTOs(eps))
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.lib.Tags(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTagDTOs(tags))
}

func (s *Server) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	if err := s.lib.DeleteTag(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSourceTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.lib.SourceTags(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTagDTOs(tags))
}

func (s *Server) handleTagSource(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	t, err := s.lib.TagSource(r.Context(), chi.URLParam(r, "id"), body.Name)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tagDTO{ID: t.ID, Name: t.Name})
}

func (s *Server) handleUntagSource(w http.ResponseWriter, r *http.Request) {
	if err := s.lib.UntagSource(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "tagID")); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEpisodeTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.lib.EpisodeTags(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTagDTOs(tags))
}

func (s *Server) handleTagEpisode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	t, err := s.lib.TagEpisode(r.Context(), chi.URLParam(r, "id"), body.Name)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tagDTO{ID: t.ID, Name: t.Name})
}

func (s *Server) handleUntagEpisode(w http.ResponseWriter, r *http.Request) {
	if err := s.lib.UntagEpisode(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "tagID")); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.lib.Voices())
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.lib.Settings(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateSetting(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value string `json:"value"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := s.lib.UpdateSetting(r.Context(), chi.URLParam(r, "key"), body.Value); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
