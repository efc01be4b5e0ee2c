// SPDX-License-Identifier: MIT

// Package api is the HTTP surface of the studio daemon. Handlers stay
// thin: decode, call the library service, map errors to the envelope.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/papercast-dev/papercast/internal/library"
	"github.com/papercast-dev/papercast/internal/log"
	"github.com/papercast-dev/papercast/internal/worker"
)

// StatusReporter exposes the worker's live state.
type StatusReporter interface {
	Snapshot() worker.Snapshot
}

// Options configures the server beyond its collaborators.
type Options struct {
	IngestRPM int // ingestion requests per minute per client, 0 disables
	Metrics   bool
}

// Server holds the handler dependencies.
type Server struct {
	lib    *library.Service
	status StatusReporter
	logger zerolog.Logger
	opts   Options
}

// New builds the server.
func New(lib *library.Service, status StatusReporter, opts Options, logger zerolog.Logger) *Server {
	return &Server{
		lib:    lib,
		status: status,
		logger: logger.With().Str("component", "api").Logger(),
		opts:   opts,
	}
}

// Router assembles the full route table with the middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(recoverer(s.logger))
	r.Use(requestID)
	r.Use(log.Middleware())

	r.Get("/healthz", s.handleHealthz)
	if s.opts.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		// Ingestion hits the network and disk; rate limit it separately.
		r.Group(func(r chi.Router) {
			if s.opts.IngestRPM > 0 {
				r.Use(httprate.Limit(s.opts.IngestRPM, time.Minute,
					httprate.WithKeyFuncs(httprate.KeyByIP)))
			}
			r.Post("/sources", s.handleIngest)
			r.Post("/preview/git", s.handlePreviewGit)
		})

		r.Get("/sources", s.handleListSources)
		r.Get("/sources/{id}", s.handleGetSource)
		r.Patch("/sources/{id}", s.handleRenameSource)
		r.Delete("/sources/{id}", s.handleDeleteSource)
		r.Post("/sources/{id}/move", s.handleMoveSource)
		r.Post("/sources/{id}/reclean", s.handleReClean)
		r.Get("/sources/{id}/tags", s.handleSourceTags)
		r.Post("/sources/{id}/tags", s.handleTagSource)
		r.Delete("/sources/{id}/tags/{tagID}", s.handleUntagSource)
		r.Put("/sources/{id}/cover", s.handleSetCover)
		r.Get("/sources/{id}/cover", s.handleGetCover)

		r.Post("/preview/clean", s.handlePreviewClean)
		r.Post("/preview/chunks", s.handlePreviewChunks)

		r.Post("/episodes", s.handleCreateEpisode)
		r.Get("/episodes", s.handleListEpisodes)
		r.Post("/episodes/bulk/move", s.handleBulkMove)
		r.Post("/episodes/bulk/delete", s.handleBulkDelete)
		r.Get("/episodes/{id}", s.handleGetEpisode)
		r.Patch("/episodes/{id}", s.handleRenameEpisode)
		r.Delete("/episodes/{id}", s.handleDeleteEpisode)
		r.Post("/episodes/{id}/regenerate", s.handleRegenerateAll)
		r.Post("/episodes/{id}/regenerate-with-settings", s.handleRegenerateWithSettings)
		r.Post("/episodes/{id}/cancel", s.handleCancel)
		r.Post("/episodes/{id}/retry-errors", s.handleRetryErrors)
		r.Post("/episodes/{id}/chunks/{index}/regenerate", s.handleRegenerateChunk)
		r.Get("/episodes/{id}/chunks/{index}/audio", s.handleChunkAudio)
		r.Get("/episodes/{id}/audio", s.handleFullAudio)
		r.Get("/episodes/{id}/playback", s.handleGetPlayback)
		r.Put("/episodes/{id}/playback", s.handleSavePlayback)
		r.Get("/episodes/{id}/tags", s.handleEpisodeTags)
		r.Post("/episodes/{id}/tags", s.handleTagEpisode)
		r.Delete("/episodes/{id}/tags/{tagID}", s.handleUntagEpisode)

		r.Post("/undo/{ticketID}", s.handleUndo)

		r.Get("/tree", s.handleTree)
		r.Get("/playlist", s.handlePlaylist)
		r.Get("/folders", s.handleListFolders)
		r.Post("/folders", s.handleCreateFolder)
		r.Patch("/folders/{id}", s.handleRenameFolder)
		r.Delete("/folders/{id}", s.handleDeleteFolder)
		r.Post("/folders/{id}/move", s.handleMoveFolder)
		r.Get("/folders/{id}/playlist", s.handleFolderPlaylist)

		r.Get("/tags", s.handleListTags)
		r.Delete("/tags/{id}", s.handleDeleteTag)

		r.Get("/voices", s.handleVoices)
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings/{key}", s.handleUpdateSetting)
		r.Get("/status", s.handleStatus)
	})

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status.Snapshot())
}
