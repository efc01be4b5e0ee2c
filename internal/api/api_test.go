// SPDX-License-Identifier: MIT

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papercast-dev/papercast/internal/audio"
	"github.com/papercast-dev/papercast/internal/ingest"
	"github.com/papercast-dev/papercast/internal/library"
	"github.com/papercast-dev/papercast/internal/store"
	"github.com/papercast-dev/papercast/internal/tts"
	"github.com/papercast-dev/papercast/internal/worker"
)

type stubQueue struct{ enqueued []string }

func (q *stubQueue) Enqueue(id string) { q.enqueued = append(q.enqueued, id) }

type stubStatus struct{ snap worker.Snapshot }

func (s *stubStatus) Snapshot() worker.Snapshot { return s.snap }

type apiFixture struct {
	srv    *httptest.Server
	store  *store.Store
	asm    *audio.Assembler
	queue  *stubQueue
	status *stubStatus
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	dir := t.TempDir()
	logger := zerolog.Nop()

	st, err := store.Open(filepath.Join(dir, "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	asm := audio.NewAssembler(filepath.Join(dir, "audio"), nil, logger)
	voices := tts.NewCatalog(filepath.Join(dir, "voices"), logger)
	ing := ingest.New(ingest.Config{FetchTimeout: time.Second, GitTimeout: time.Second, MaxBytes: 1 << 20}, logger)
	queue := &stubQueue{}
	lib := library.New(st, ing, voices, asm, queue, filepath.Join(dir, "sources"), time.Hour, logger)

	status := &stubStatus{}
	server := New(lib, status, Options{IngestRPM: 0, Metrics: false}, logger)
	srv := httptest.NewServer(server.Router())
	t.Cleanup(srv.Close)
	return &apiFixture{srv: srv, store: st, asm: asm, queue: queue, status: status}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.srv.URL+path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (f *apiFixture) ingestText(t *testing.T, title, text string) string {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/api/sources", map[string]any{
		"variant": "text", "title": title, "text": text,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	src := decodeBody[map[string]any](t, resp)
	return src["id"].(string)
}

func (f *apiFixture) createEpisode(t *testing.T, sourceID string) string {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/api/episodes", map[string]any{"source_id": sourceID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decodeBody[struct {
		Episode    episodeDTO `json:"episode"`
		ChunkCount int        `json:"chunk_count"`
	}](t, resp)
	require.Positive(t, out.ChunkCount)
	return out.Episode.ID
}

// markEpisodeReady writes real contract WAVs so the audio endpoints can
// serve and assemble them.
func (f *apiFixture) markEpisodeReady(t *testing.T, episodeID string) {
	t.Helper()
	ctx := context.Background()
	chunks, err := f.store.ListChunks(ctx, episodeID)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(f.asm.EpisodeDir(episodeID), 0o755))
	pcm := make([]byte, 4800) // 0.1s of contract PCM
	for _, c := range chunks {
		wav, err := audio.EncodeWAV(pcm)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(f.asm.ChunkPath(episodeID, c.Index), wav, 0o644))
		rel := fmt.Sprintf("%s/%d.wav", episodeID, c.Index)
		require.NoError(t, f.store.MarkChunkReady(ctx, episodeID, c.Index, rel, 0.1, "[]"))
	}
	require.NoError(t, f.store.FinalizeEpisode(ctx, episodeID, store.EpisodeReady))
}

func TestIngestAndGetSource(t *testing.T) {
	f := newAPIFixture(t)
	id := f.ingestText(t, "My Doc", "Hello there.\n\nSecond paragraph.")

	resp := f.do(t, http.MethodGet, "/api/sources/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	src := decodeBody[sourceDTO](t, resp)
	assert.Equal(t, "My Doc", src.Title)
	assert.Equal(t, "text", src.Type)
	assert.NotEmpty(t, src.CleanedText)

	resp = f.do(t, http.MethodGet, "/api/sources", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeBody[[]sourceDTO](t, resp)
	assert.Len(t, list, 1)
}

func TestNotFoundEnvelope(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.do(t, http.MethodGet, "/api/sources/nope", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	env := decodeBody[errorEnvelope](t, resp)
	assert.Equal(t, "not_found", env.ErrorKind)
	assert.NotEmpty(t, env.Message)
}

func TestCreateAndGetEpisode(t *testing.T) {
	f := newAPIFixture(t)
	srcID := f.ingestText(t, "Doc", "One.\n\nTwo.")
	epID := f.createEpisode(t, srcID)
	assert.Equal(t, []string{epID}, f.queue.enqueued)

	resp := f.do(t, http.MethodGet, "/api/episodes/"+epID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	detail := decodeBody[episodeDetailDTO](t, resp)
	assert.Equal(t, "pending", detail.Episode.Status)
	assert.Len(t, detail.Chunks, 2)
	assert.Equal(t, 0, detail.Playback.CurrentChunkIndex)
}

func TestCreateEpisodeUnknownVoice(t *testing.T) {
	f := newAPIFixture(t)
	srcID := f.ingestText(t, "Doc", "Text.")
	resp := f.do(t, http.MethodPost, "/api/episodes", map[string]any{
		"source_id": srcID, "voice_id": "ghost",
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	env := decodeBody[errorEnvelope](t, resp)
	assert.Equal(t, "not_found", env.ErrorKind)
}

func TestCancelReadyEpisodeConflicts(t *testing.T) {
	f := newAPIFixture(t)
	srcID := f.ingestText(t, "Doc", "Text.")
	epID := f.createEpisode(t, srcID)
	f.markEpisodeReady(t, epID)

	resp := f.do(t, http.MethodPost, "/api/episodes/"+epID+"/cancel", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	env := decodeBody[errorEnvelope](t, resp)
	assert.Equal(t, "invalid_state", env.ErrorKind)
}

func TestChunkAudioRangeRequest(t *testing.T) {
	f := newAPIFixture(t)
	srcID := f.ingestText(t, "Doc", "Text.")
	epID := f.createEpisode(t, srcID)
	f.markEpisodeReady(t, epID)

	req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/api/episodes/"+epID+"/chunks/0/audio", nil)
	require.NoError(t, err)
	req.Header.Set("Range", "bytes=0-3")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusPartialContent, resp.StatusCode)
	assert.Equal(t, "audio/wav", resp.Header.Get("Content-Type"))
	assert.Equal(t, "4", resp.Header.Get("Content-Length"))
}

func TestChunkAudioNotReady(t *testing.T) {
	f := newAPIFixture(t)
	srcID := f.ingestText(t, "Doc", "Text.")
	epID := f.createEpisode(t, srcID)

	resp := f.do(t, http.MethodGet, "/api/episodes/"+epID+"/chunks/0/audio", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	env := decodeBody[errorEnvelope](t, resp)
	assert.Equal(t, "not_ready", env.ErrorKind)
}

func TestFullAudioAssembles(t *testing.T) {
	f := newAPIFixture(t)
	srcID := f.ingestText(t, "Doc", "One.\n\nTwo.")
	epID := f.createEpisode(t, srcID)
	f.markEpisodeReady(t, epID)

	resp := f.do(t, http.MethodGet, "/api/episodes/"+epID+"/audio", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/wav", resp.Header.Get("Content-Type"))
	assert.Equal(t, "bytes", resp.Header.Get("Accept-Ranges"))
	assert.FileExists(t, f.asm.FullPath(epID, audio.FormatWAV))
}

func TestFullAudioPendingNotReady(t *testing.T) {
	f := newAPIFixture(t)
	srcID := f.ingestText(t, "Doc", "Text.")
	epID := f.createEpisode(t, srcID)

	resp := f.do(t, http.MethodGet, "/api/episodes/"+epID+"/audio", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	env := decodeBody[errorEnvelope](t, resp)
	assert.Equal(t, "not_ready", env.ErrorKind)
}

func TestSavePlaybackValidation(t *testing.T) {
	f := newAPIFixture(t)
	srcID := f.ingestText(t, "Doc", "One.\n\nTwo.")
	epID := f.createEpisode(t, srcID)

	resp := f.do(t, http.MethodPut, "/api/episodes/"+epID+"/playback", map[string]any{
		"chunk_index": 9, "position_secs": 1.0,
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	env := decodeBody[errorEnvelope](t, resp)
	assert.Equal(t, "invalid_index", env.ErrorKind)

	resp = f.do(t, http.MethodPut, "/api/episodes/"+epID+"/playback", map[string]any{
		"chunk_index": 1, "position_secs": 2.5, "percent_listened": 40,
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/episodes/"+epID+"/playback", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pb := decodeBody[playbackDTO](t, resp)
	assert.Equal(t, 1, pb.CurrentChunkIndex)
}

func TestUndoFlowOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	srcID := f.ingestText(t, "Doc", "One here.\n\nTwo here.")
	epID := f.createEpisode(t, srcID)
	f.markEpisodeReady(t, epID)

	resp := f.do(t, http.MethodPost, "/api/episodes/"+epID+"/regenerate-with-settings", map[string]any{
		"chunk_strategy": "sentence",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	out := decodeBody[map[string]string](t, resp)
	ticket := out["undo_id"]
	require.NotEmpty(t, ticket)

	resp = f.do(t, http.MethodPost, "/api/undo/"+ticket, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/episodes/"+epID, nil)
	detail := decodeBody[episodeDetailDTO](t, resp)
	assert.Equal(t, "ready", detail.Episode.Status)
	assert.Equal(t, "paragraph", detail.Episode.ChunkStrategy)

	resp = f.do(t, http.MethodPost, "/api/undo/"+ticket, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFoldersAndTree(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.do(t, http.MethodPost, "/api/folders", map[string]any{"name": "Reading"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	folder := decodeBody[folderDTO](t, resp)

	srcID := f.ingestText(t, "Doc", "Text.")
	resp = f.do(t, http.MethodPost, "/api/sources/"+srcID+"/move", map[string]any{"folder_id": folder.ID})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/tree", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tree := decodeBody[treeDTO](t, resp)
	require.Len(t, tree.Folders, 1)
	assert.Equal(t, "Reading", tree.Folders[0].Folder.Name)
	require.Len(t, tree.Folders[0].Sources, 1)
	assert.Equal(t, srcID, tree.Folders[0].Sources[0].ID)
}

func TestVoicesAndSettings(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.do(t, http.MethodGet, "/api/voices", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	voices := decodeBody[[]tts.Voice](t, resp)
	assert.GreaterOrEqual(t, len(voices), 4)

	resp = f.do(t, http.MethodPut, "/api/settings/default_voice", map[string]any{"value": "ghost"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodPut, "/api/settings/default_voice", map[string]any{"value": "marius"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/settings", nil)
	settings := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "marius", settings["default_voice"])
}

func TestGenerationStatus(t *testing.T) {
	f := newAPIFixture(t)
	f.status.snap = worker.Snapshot{QueueSize: 2, CurrentEpisodeID: "ep-1", CurrentChunkIndex: 3}

	resp := f.do(t, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decodeBody[worker.Snapshot](t, resp)
	assert.Equal(t, 2, snap.QueueSize)
	assert.Equal(t, "ep-1", snap.CurrentEpisodeID)
	assert.Equal(t, 3, snap.CurrentChunkIndex)
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBadJSONBody(t *testing.T) {
	f := newAPIFixture(t)
	req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/api/sources", bytes.NewBufferString("{nope"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
