// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/papercast-dev/papercast/internal/audio"
	"github.com/papercast-dev/papercast/internal/ingest"
	"github.com/papercast-dev/papercast/internal/library"
	"github.com/papercast-dev/papercast/internal/log"
	"github.com/papercast-dev/papercast/internal/store"
)

// errorEnvelope is the single failure shape all endpoints return.
type errorEnvelope struct {
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeKind(w http.ResponseWriter, code int, kind, message string) {
	writeJSON(w, code, errorEnvelope{ErrorKind: kind, Message: message})
}

// writeErr maps sentinel errors to their kind and status. Unknown
// errors are logged with the request correlation id and surfaced
// opaquely.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeKind(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, library.ErrEmptyContent):
		writeKind(w, http.StatusUnprocessableEntity, "empty_content", err.Error())
	case errors.Is(err, library.ErrInvalidState):
		writeKind(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, library.ErrInvalidIndex):
		writeKind(w, http.StatusUnprocessableEntity, "invalid_index", err.Error())
	case errors.Is(err, library.ErrUndoExpired):
		writeKind(w, http.StatusGone, "undo_expired", err.Error())
	case errors.Is(err, ingest.ErrTimeout):
		writeKind(w, http.StatusGatewayTimeout, "timeout", err.Error())
	case errors.Is(err, ingest.ErrFetchFailed):
		writeKind(w, http.StatusBadGateway, "fetch_failed", err.Error())
	case errors.Is(err, ingest.ErrTooLarge):
		writeKind(w, http.StatusRequestEntityTooLarge, "too_large", err.Error())
	case errors.Is(err, ingest.ErrUnsupportedType):
		writeKind(w, http.StatusUnsupportedMediaType, "unsupported_type", err.Error())
	case errors.Is(err, audio.ErrContractMismatch):
		writeKind(w, http.StatusInternalServerError, "audio_contract_mismatch", err.Error())
	case errors.Is(err, audio.ErrUnsupportedFormat):
		writeKind(w, http.StatusUnsupportedMediaType, "unsupported_type", err.Error())
	default:
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).
			Str("event", "api.internal_error").
			Str("path", r.URL.Path).
			Msg("unhandled error")
		writeKind(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func badRequest(w http.ResponseWriter, message string) {
	writeKind(w, http.StatusBadRequest, "bad_request", message)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return false
	}
	return true
}
