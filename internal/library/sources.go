// SPDX-License-Identifier: MIT

package library

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/papercast-dev/papercast/internal/chunker"
	"github.com/papercast-dev/papercast/internal/ingest"
	"github.com/papercast-dev/papercast/internal/normalize"
	"github.com/papercast-dev/papercast/internal/store"
)

// IngestRequest describes one ingestion. Exactly one of Text, FileData,
// URL or GitURL is set, matching Variant.
type IngestRequest struct {
	Variant  string // text, file, url, git
	Title    string
	Text     string
	FileName string
	FileData []byte
	URL      string
	GitURL   string
	Subpath  string
	FolderID string
	// Cleaning overrides the persisted defaults when non-nil.
	Cleaning *normalize.Options
}

// Ingest fetches, cleans and persists a new source. Nothing is stored
// when fetching or cleaning fails.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (store.Source, error) {
	if req.FolderID != "" {
		if _, err := s.store.GetFolder(ctx, req.FolderID); err != nil {
			return store.Source{}, err
		}
	}
	var (
		res ingest.Result
		err error
	)
	switch req.Variant {
	case "text":
		res, err = s.ingestor.FromText(req.Title, req.Text)
	case "file":
		res, err = s.ingestor.FromFile(req.FileName, req.FileData)
	case "url":
		res, err = s.ingestor.FromURL(ctx, req.URL)
	case "git":
		res, err = s.ingestor.FromGit(ctx, req.GitURL, req.Subpath)
	default:
		return store.Source{}, fmt.Errorf("%w: variant %q", ingest.ErrUnsupportedType, req.Variant)
	}
	if err != nil {
		return store.Source{}, err
	}
	if req.Title != "" {
		res.Title = req.Title
	}

	opts := s.cleaningDefaults(ctx)
	if req.Cleaning != nil {
		opts = *req.Cleaning
	}
	cleaned := normalize.Normalize(res.RawText, opts)
	optsJSON, err := json.Marshal(opts)
	if err != nil {
		return store.Source{}, err
	}

	src := store.Source{
		ID:               newID(),
		Title:            res.Title,
		Type:             store.SourceType(res.Variant),
		OriginalName:     res.OriginalName,
		OriginalURL:      res.OriginalURL,
		RawText:          res.RawText,
		CleanedText:      cleaned,
		CleaningSettings: string(optsJSON),
		FolderID:         req.FolderID,
	}
	if err := s.store.CreateSource(ctx, src); err != nil {
		return store.Source{}, err
	}
	s.logger.Info().
		Str("event", "source.created").
		Str("source_id", src.ID).
		Str("variant", req.Variant).
		Int("raw_bytes", len(src.RawText)).
		Msg("source ingested")
	return s.store.GetSource(ctx, src.ID)
}

// ReClean re-runs normalization over the stored raw text with new
// options. Existing episodes keep their snapshotted text.
func (s *Service) ReClean(ctx context.Context, sourceID string, opts normalize.Options) (store.Source, error) {
	src, err := s.store.GetSource(ctx, sourceID)
	if err != nil {
		return store.Source{}, err
	}
	cleaned := normalize.Normalize(src.RawText, opts)
	optsJSON, err := json.Marshal(opts)
	if err != nil {
		return store.Source{}, err
	}
	if err := s.store.UpdateSourceCleanedText(ctx, sourceID, cleaned, string(optsJSON)); err != nil {
		return store.Source{}, err
	}
	return s.store.GetSource(ctx, sourceID)
}

// PreviewClean runs normalization without persisting anything.
func (s *Service) PreviewClean(raw string, opts normalize.Options) string {
	return normalize.Normalize(raw, opts)
}

// PreviewChunks shows the plan a chunking configuration would produce.
func (s *Service) PreviewChunks(text, strategy string, maxChars int, breathing string) ([]chunker.Chunk, error) {
	chunks := chunker.Split(text, chunker.Strategy(strategy), maxChars, chunker.Intensity(breathing))
	if len(chunks) == 0 {
		return nil, ErrEmptyContent
	}
	return chunks, nil
}

// PreviewGit lists what a git ingestion would include.
func (s *Service) PreviewGit(ctx context.Context, repoURL, subpath string) (ingest.GitPreview, error) {
	return s.ingestor.PreviewGit(ctx, repoURL, subpath)
}

// Sources lists sources with optional folder and tag filters.
func (s *Service) Sources(ctx context.Context, folderID, tag string) ([]store.Source, error) {
	return s.store.ListSources(ctx, folderID, tag)
}

// Source fetches one source.
func (s *Service) Source(ctx context.Context, id string) (store.Source, error) {
	return s.store.GetSource(ctx, id)
}

// RenameSource changes a source title.
func (s *Service) RenameSource(ctx context.Context, id, title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrInvalidState
	}
	return s.store.UpdateSourceTitle(ctx, id, title)
}

// MoveSource puts a source in a folder (empty id moves to root).
func (s *Service) MoveSource(ctx context.Context, id, folderID string) error {
	if folderID != "" {
		if _, err := s.store.GetFolder(ctx, folderID); err != nil {
			return err
		}
	}
	return s.store.SetSourceFolder(ctx, id, folderID)
}

// DeleteSource removes a source, its episodes and their audio. The
// on-disk cleanup is best-effort after the transaction commits.
func (s *Service) DeleteSource(ctx context.Context, id string) error {
	episodeIDs, err := s.store.DeleteSource(ctx, id)
	if err != nil {
		return err
	}
	for _, epID := range episodeIDs {
		s.removeAudioDir(epID)
	}
	s.removeSourceDir(id)
	s.logger.Info().
		Str("event", "source.deleted").
		Str("source_id", id).
		Int("episodes", len(episodeIDs)).
		Msg("source deleted")
	return nil
}

// SetCover stores cover art bytes for a source and records its path.
func (s *Service) SetCover(ctx context.Context, sourceID string, data []byte, ext string) error {
	if _, err := s.store.GetSource(ctx, sourceID); err != nil {
		return err
	}
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	switch ext {
	case "png", "jpg", "jpeg", "webp":
	default:
		return fmt.Errorf("%w: cover type %q", ingest.ErrUnsupportedType, ext)
	}
	dir := filepath.Join(s.sourcesDir, sourceID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create source dir: %w", err)
	}
	name := "cover." + ext
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write cover: %w", err)
	}
	return s.store.SetSourceCover(ctx, sourceID, sourceID+"/"+name)
}

// CoverPath resolves the absolute path of a source's cover art.
func (s *Service) CoverPath(ctx context.Context, sourceID string) (string, error) {
	src, err := s.store.GetSource(ctx, sourceID)
	if err != nil {
		return "", err
	}
	if src.CoverArt == "" {
		return "", fmt.Errorf("cover for %s: %w", sourceID, store.ErrNotFound)
	}
	return filepath.Join(s.sourcesDir, filepath.FromSlash(src.CoverArt)), nil
}

func (s *Service) removeAudioDir(episodeID string) {
	dir := s.asm.EpisodeDir(episodeID)
	if err := os.RemoveAll(dir); err != nil {
		s.logger.Warn().Err(err).Str("path", dir).Msg("remove audio dir")
	}
}

func (s *Service) removeSourceDir(sourceID string) {
	dir := filepath.Join(s.sourcesDir, sourceID)
	if err := os.RemoveAll(dir); err != nil {
		s.logger.Warn().Err(err).Str("path", dir).Msg("remove source dir")
	}
}
