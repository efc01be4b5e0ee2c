// SPDX-License-Identifier: MIT

package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papercast-dev/papercast/internal/audio"
	"github.com/papercast-dev/papercast/internal/ingest"
	"github.com/papercast-dev/papercast/internal/store"
	"github.com/papercast-dev/papercast/internal/tts"
)

type fakeQueue struct {
	enqueued []string
}

func (q *fakeQueue) Enqueue(id string) { q.enqueued = append(q.enqueued, id) }

type fixture struct {
	svc      *Service
	store    *store.Store
	asm      *audio.Assembler
	queue    *fakeQueue
	audioDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWindow(t, time.Hour)
}

func newFixtureWindow(t *testing.T, undoWindow time.Duration) *fixture {
	t.Helper()
	dir := t.TempDir()
	logger := zerolog.Nop()

	st, err := store.Open(filepath.Join(dir, "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	audioDir := filepath.Join(dir, "audio")
	require.NoError(t, os.MkdirAll(audioDir, 0o755))
	asm := audio.NewAssembler(audioDir, nil, logger)

	voices := tts.NewCatalog(filepath.Join(dir, "voices"), logger)
	ing := ingest.New(ingest.Config{
		FetchTimeout: time.Second,
		GitTimeout:   time.Second,
		MaxBytes:     1 << 20,
	}, logger)

	queue := &fakeQueue{}
	svc := New(st, ing, voices, asm, queue, filepath.Join(dir, "sources"), undoWindow, logger)
	return &fixture{svc: svc, store: st, asm: asm, queue: queue, audioDir: audioDir}
}

func (f *fixture) ingestText(t *testing.T, title, text string) store.Source {
	t.Helper()
	src, err := f.svc.Ingest(context.Background(), IngestRequest{
		Variant: "text",
		Title:   title,
		Text:    text,
	})
	require.NoError(t, err)
	return src
}

// markEpisodeReady simulates completed synthesis: every chunk gets a
// file on disk and a ready row, and the episode is finalized.
func (f *fixture) markEpisodeReady(t *testing.T, episodeID string) {
	t.Helper()
	ctx := context.Background()
	chunks, err := f.store.ListChunks(ctx, episodeID)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(f.asm.EpisodeDir(episodeID), 0o755))
	for _, c := range chunks {
		path := f.asm.ChunkPath(episodeID, c.Index)
		require.NoError(t, os.WriteFile(path, []byte("wav"), 0o644))
		rel := fmt.Sprintf("%s/%d.wav", episodeID, c.Index)
		require.NoError(t, f.store.MarkChunkReady(ctx, episodeID, c.Index, rel, 1.5, "[]"))
	}
	require.NoError(t, f.store.FinalizeEpisode(ctx, episodeID, store.EpisodeReady))
}

func TestCreateEpisodeUsesDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	src := f.ingestText(t, "Doc", "First paragraph.\n\nSecond paragraph.")

	ep, n, err := f.svc.CreateEpisode(ctx, src.ID, EpisodeParams{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "alba", ep.VoiceID)
	assert.Equal(t, "wav", ep.OutputFormat)
	assert.Equal(t, "paragraph", ep.ChunkStrategy)
	assert.Equal(t, "normal", ep.BreathingIntensity)
	assert.Equal(t, store.EpisodePending, ep.Status)
	assert.Equal(t, []string{ep.ID}, f.queue.enqueued)

	detail, err := f.svc.Episode(ctx, ep.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Chunks, 2)
	assert.Equal(t, 0, detail.Playback.CurrentChunkIndex)
}

func TestCreateEpisodeRejectsUnknownVoice(t *testing.T) {
	f := newFixture(t)
	src := f.ingestText(t, "Doc", "Hello there.")

	_, _, err := f.svc.CreateEpisode(context.Background(), src.ID, EpisodeParams{VoiceID: "nope"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateEpisodeEmptySource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	src, err := f.svc.Ingest(ctx, IngestRequest{Variant: "text", Title: "Blank", Text: "   \n\n  "})
	require.NoError(t, err)

	_, _, err = f.svc.CreateEpisode(ctx, src.ID, EpisodeParams{})
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestRegenerateChunkPreservesSiblings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	src := f.ingestText(t, "Doc", "One.\n\nTwo.\n\nThree.")
	ep, _, err := f.svc.CreateEpisode(ctx, src.ID, EpisodeParams{})
	require.NoError(t, err)
	f.markEpisodeReady(t, ep.ID)

	require.NoError(t, f.svc.RegenerateChunk(ctx, ep.ID, 1))

	chunks, err := f.store.ListChunks(ctx, ep.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ChunkReady, chunks[0].Status)
	assert.Equal(t, store.ChunkPending, chunks[1].Status)
	assert.Equal(t, store.ChunkReady, chunks[2].Status)
	assert.Empty(t, chunks[1].AudioPath)

	assert.NoFileExists(t, f.asm.ChunkPath(ep.ID, 1))
	assert.FileExists(t, f.asm.ChunkPath(ep.ID, 0))

	got, err := f.store.GetEpisode(ctx, ep.ID)
	require.NoError(t, err)
	assert.Equal(t, store.EpisodeGenerating, got.Status)
	assert.Contains(t, f.queue.enqueued, ep.ID)
}

func TestRegenerateAllRejectsMidGeneration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	src := f.ingestText(t, "Doc", "Text here.")
	ep, _, err := f.svc.CreateEpisode(ctx, src.ID, EpisodeParams{})
	require.NoError(t, err)
	require.NoError(t, f.store.SetEpisodeStatus(ctx, ep.ID, store.EpisodeGenerating))

	err = f.svc.RegenerateAll(ctx, ep.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCancelOnlyWhileRunning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	src := f.ingestText(t, "Doc", "Text here.")
	ep, _, err := f.svc.CreateEpisode(ctx, src.ID, EpisodeParams{})
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(ctx, ep.ID))
	got, err := f.store.GetEpisode(ctx, ep.ID)
	require.NoError(t, err)
	assert.Equal(t, store.EpisodeCancelled, got.Status)

	err = f.svc.Cancel(ctx, ep.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRetryErrorsRequeues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	src := f.ingestText(t, "Doc", "One.\n\nTwo.")
	ep, _, err := f.svc.CreateEpisode(ctx, src.ID, EpisodeParams{})
	require.NoError(t, err)

	require.NoError(t, f.store.MarkChunkReady(ctx, ep.ID, 0, ep.ID+"/0.wav", 1, "[]"))
	require.NoError(t, f.store.MarkChunkError(ctx, ep.ID, 1, "synth blew up"))
	require.NoError(t, f.store.SetEpisodeStatus(ctx, ep.ID, store.EpisodeError))

	f.queue.enqueued = nil
	require.NoError(t, f.svc.RetryErrors(ctx, ep.ID))

	chunks, err := f.store.ListChunks(ctx, ep.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ChunkReady, chunks[0].Status)
	assert.Equal(t, store.ChunkPending, chunks[1].Status)

	got, err := f.store.GetEpisode(ctx, ep.ID)
	require.NoError(t, err)
	assert.Equal(t, store.EpisodeGenerating, got.Status)
	assert.Equal(t, []string{ep.ID}, f.queue.enqueued)
}

func TestSavePlaybackValidatesIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	src := f.ingestText(t, "Doc", "One.\n\nTwo.")
	ep, _, err := f.svc.CreateEpisode(ctx, src.ID, EpisodeParams{})
	require.NoError(t, err)

	err = f.svc.SavePlayback(ctx, store.PlaybackState{EpisodeID: ep.ID, CurrentChunkIndex: 5})
	assert.ErrorIs(t, err, ErrInvalidIndex)

	err = f.svc.SavePlayback(ctx, store.PlaybackState{EpisodeID: ep.ID, CurrentChunkIndex: 1, PositionSecs: 3.5, PercentListened: 50})
	require.NoError(t, err)

	pb, err := f.svc.Playback(ctx, ep.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, pb.CurrentChunkIndex)
	assert.InDelta(t, 3.5, pb.PositionSecs, 1e-9)
}

func TestRegenerateWithSettingsUndoRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	src := f.ingestText(t, "Doc", "First one.\n\nSecond one.\n\nThird one.")
	ep, _, err := f.svc.CreateEpisode(ctx, src.ID, EpisodeParams{Breathing: "none"})
	require.NoError(t, err)
	f.markEpisodeReady(t, ep.ID)

	before, err := f.store.ListChunks(ctx, ep.ID)
	require.NoError(t, err)

	ticketID, err := f.svc.RegenerateWithSettings(ctx, ep.ID, EpisodeParams{
		ChunkStrategy: "sentence",
		MaxChars:      25,
		Breathing:     "none",
	})
	require.NoError(t, err)
	require.NotEmpty(t, ticketID)

	// Audio is parked, plan is replaced, episode queued again.
	assert.NoDirExists(t, f.asm.EpisodeDir(ep.ID))
	assert.DirExists(t, f.asm.EpisodeDir(ep.ID)+".backup_"+ticketID)
	mid, err := f.store.GetEpisode(ctx, ep.ID)
	require.NoError(t, err)
	assert.Equal(t, store.EpisodePending, mid.Status)
	assert.Equal(t, "sentence", mid.ChunkStrategy)

	require.NoError(t, f.svc.Undo(ctx, ticketID))

	after, err := f.store.ListChunks(ctx, ep.ID)
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].Text, after[i].Text)
		assert.Equal(t, before[i].Status, after[i].Status)
		assert.Equal(t, before[i].AudioPath, after[i].AudioPath)
	}
	restored, err := f.store.GetEpisode(ctx, ep.ID)
	require.NoError(t, err)
	assert.Equal(t, store.EpisodeReady, restored.Status)
	assert.Equal(t, "paragraph", restored.ChunkStrategy)
	assert.DirExists(t, f.asm.EpisodeDir(ep.ID))
	assert.FileExists(t, f.asm.ChunkPath(ep.ID, 0))

	// Tickets are single use.
	err = f.svc.Undo(ctx, ticketID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUndoExpired(t *testing.T) {
	f := newFixtureWindow(t, -time.Minute)
	ctx := context.Background()
	src := f.ingestText(t, "Doc", "Some text.")
	ep, _, err := f.svc.CreateEpisode(ctx, src.ID, EpisodeParams{})
	require.NoError(t, err)
	f.markEpisodeReady(t, ep.ID)

	ticketID, err := f.svc.RegenerateWithSettings(ctx, ep.ID, EpisodeParams{Breathing: "light"})
	require.NoError(t, err)

	err = f.svc.Undo(ctx, ticketID)
	assert.ErrorIs(t, err, ErrUndoExpired)
}

func TestPurgeExpiredUndoRemovesBackups(t *testing.T) {
	f := newFixtureWindow(t, -time.Minute)
	ctx := context.Background()
	src := f.ingestText(t, "Doc", "Some text.")
	ep, _, err := f.svc.CreateEpisode(ctx, src.ID, EpisodeParams{})
	require.NoError(t, err)
	f.markEpisodeReady(t, ep.ID)

	ticketID, err := f.svc.RegenerateWithSettings(ctx, ep.ID, EpisodeParams{})
	require.NoError(t, err)
	backup := f.asm.EpisodeDir(ep.ID) + ".backup_" + ticketID
	require.DirExists(t, backup)

	n, err := f.svc.PurgeExpiredUndo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoDirExists(t, backup)

	_, err = f.svc.UndoTicket(ctx, ticketID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRegenerateWithSettingsSupersedesTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	src := f.ingestText(t, "Doc", "Some text.")
	ep, _, err := f.svc.CreateEpisode(ctx, src.ID, EpisodeParams{})
	require.NoError(t, err)
	f.markEpisodeReady(t, ep.ID)

	first, err := f.svc.RegenerateWithSettings(ctx, ep.ID, EpisodeParams{Breathing: "light"})
	require.NoError(t, err)
	f.markEpisodeReady(t, ep.ID)

	second, err := f.svc.RegenerateWithSettings(ctx, ep.ID, EpisodeParams{Breathing: "heavy"})
	require.NoError(t, err)

	// The first ticket and its backup are gone; only the second undoes.
	_, err = f.svc.UndoTicket(ctx, first)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoDirExists(t, f.asm.EpisodeDir(ep.ID)+".backup_"+first)
	assert.DirExists(t, f.asm.EpisodeDir(ep.ID)+".backup_"+second)
}

func TestDeleteSourceRemovesEpisodeAudio(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	src := f.ingestText(t, "Doc", "Some text.")
	ep, _, err := f.svc.CreateEpisode(ctx, src.ID, EpisodeParams{})
	require.NoError(t, err)
	f.markEpisodeReady(t, ep.ID)

	require.NoError(t, f.svc.DeleteSource(ctx, src.ID))

	_, err = f.svc.Source(ctx, src.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.store.GetEpisode(ctx, ep.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoDirExists(t, f.asm.EpisodeDir(ep.ID))
}

func TestBulkDeleteRemovesAudio(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	src := f.ingestText(t, "Doc", "Some text.")
	ep1, _, err := f.svc.CreateEpisode(ctx, src.ID, EpisodeParams{})
	require.NoError(t, err)
	ep2, _, err := f.svc.CreateEpisode(ctx, src.ID, EpisodeParams{})
	require.NoError(t, err)
	f.markEpisodeReady(t, ep1.ID)
	f.markEpisodeReady(t, ep2.ID)

	require.NoError(t, f.svc.BulkDelete(ctx, []string{ep1.ID, ep2.ID}))
	assert.NoDirExists(t, f.asm.EpisodeDir(ep1.ID))
	assert.NoDirExists(t, f.asm.EpisodeDir(ep2.ID))
}

func TestFolderPlaylistDepthFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	top, err := f.svc.CreateFolder(ctx, "Top", "")
	require.NoError(t, err)
	beta, err := f.svc.CreateFolder(ctx, "Beta", top.ID)
	require.NoError(t, err)
	alpha, err := f.svc.CreateFolder(ctx, "Alpha", top.ID)
	require.NoError(t, err)

	src := f.ingestText(t, "Doc", "Some text.")
	mkEpisode := func(title, folderID string) {
		ep, _, err := f.svc.CreateEpisode(ctx, src.ID, EpisodeParams{Title: title})
		require.NoError(t, err)
		if folderID != "" {
			require.NoError(t, f.svc.BulkMove(ctx, []string{ep.ID}, folderID))
		}
		f.markEpisodeReady(t, ep.ID)
	}
	mkEpisode("Zed", top.ID)
	mkEpisode("Able", top.ID)
	mkEpisode("In Beta", beta.ID)
	mkEpisode("In Alpha", alpha.ID)

	playlist, err := f.svc.FolderPlaylist(ctx, top.ID)
	require.NoError(t, err)

	titles := make([]string, len(playlist))
	for i, ep := range playlist {
		titles[i] = ep.Title
	}
	// Own episodes by title, then children in name order.
	assert.Equal(t, []string{"Able", "Zed", "In Alpha", "In Beta"}, titles)
}

func TestFolderPlaylistSkipsUnready(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	folder, err := f.svc.CreateFolder(ctx, "F", "")
	require.NoError(t, err)

	src := f.ingestText(t, "Doc", "Some text.")
	ep, _, err := f.svc.CreateEpisode(ctx, src.ID, EpisodeParams{})
	require.NoError(t, err)
	require.NoError(t, f.svc.BulkMove(ctx, []string{ep.ID}, folder.ID))

	playlist, err := f.svc.FolderPlaylist(ctx, folder.ID)
	require.NoError(t, err)
	assert.Empty(t, playlist)
}

func TestLibraryTreePlacement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	parent, err := f.svc.CreateFolder(ctx, "Parent", "")
	require.NoError(t, err)
	child, err := f.svc.CreateFolder(ctx, "Child", parent.ID)
	require.NoError(t, err)

	rootSrc := f.ingestText(t, "Root doc", "Root text.")
	nested := f.ingestText(t, "Nested doc", "Nested text.")
	require.NoError(t, f.svc.MoveSource(ctx, nested.ID, child.ID))

	tree, err := f.svc.LibraryTree(ctx)
	require.NoError(t, err)

	require.Len(t, tree.Folders, 1)
	assert.Equal(t, "Parent", tree.Folders[0].Folder.Name)
	require.Len(t, tree.Folders[0].Children, 1)
	assert.Equal(t, "Child", tree.Folders[0].Children[0].Folder.Name)
	require.Len(t, tree.Folders[0].Children[0].Sources, 1)
	assert.Equal(t, nested.ID, tree.Folders[0].Children[0].Sources[0].ID)
	require.Len(t, tree.Sources, 1)
	assert.Equal(t, rootSrc.ID, tree.Sources[0].ID)
}

func TestTagSourceCreatesAndLists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	src := f.ingestText(t, "Doc", "Some text.")

	tag, err := f.svc.TagSource(ctx, src.ID, "reading-list")
	require.NoError(t, err)

	// Tagging again with the same name reuses the tag.
	again, err := f.svc.TagSource(ctx, src.ID, "reading-list")
	require.NoError(t, err)
	assert.Equal(t, tag.ID, again.ID)

	tags, err := f.svc.SourceTags(ctx, src.ID)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "reading-list", tags[0].Name)

	require.NoError(t, f.svc.UntagSource(ctx, src.ID, tag.ID))
	tags, err = f.svc.SourceTags(ctx, src.ID)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestUpdateSettingValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.UpdateSetting(ctx, "default_voice", "ghost"), store.ErrNotFound)
	assert.ErrorIs(t, f.svc.UpdateSetting(ctx, "default_output_format", "ogg"), ErrInvalidState)
	assert.ErrorIs(t, f.svc.UpdateSetting(ctx, "default_chunk_max_length", "7"), ErrInvalidState)
	assert.ErrorIs(t, f.svc.UpdateSetting(ctx, "no_such_key", "x"), store.ErrNotFound)

	require.NoError(t, f.svc.UpdateSetting(ctx, "default_voice", "marius"))
	settings, err := f.svc.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "marius", settings["default_voice"])

	// New episodes pick up the changed default.
	src := f.ingestText(t, "Doc", "Some text.")
	ep, _, err := f.svc.CreateEpisode(ctx, src.ID, EpisodeParams{})
	require.NoError(t, err)
	assert.Equal(t, "marius", ep.VoiceID)
}

func TestReCleanKeepsEpisodeSnapshots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	src := f.ingestText(t, "Doc", "Keep this (and this).")
	ep, _, err := f.svc.CreateEpisode(ctx, src.ID, EpisodeParams{})
	require.NoError(t, err)
	before, err := f.store.ListChunks(ctx, ep.ID)
	require.NoError(t, err)

	opts := f.svc.cleaningDefaults(ctx)
	opts.PreserveParentheses = false
	updated, err := f.svc.ReClean(ctx, src.ID, opts)
	require.NoError(t, err)
	assert.NotContains(t, updated.CleanedText, "and this")

	after, err := f.store.ListChunks(ctx, ep.ID)
	require.NoError(t, err)
	assert.Equal(t, before[0].Text, after[0].Text)
}

func TestSetCoverRejectsUnknownType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	src := f.ingestText(t, "Doc", "Some text.")

	err := f.svc.SetCover(ctx, src.ID, []byte{1, 2, 3}, ".gif")
	assert.ErrorIs(t, err, ingest.ErrUnsupportedType)

	require.NoError(t, f.svc.SetCover(ctx, src.ID, []byte{1, 2, 3}, ".png"))
	path, err := f.svc.CoverPath(ctx, src.ID)
	require.NoError(t, err)
	assert.FileExists(t, path)
}
