// SPDX-License-Identifier: MIT

package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/papercast-dev/papercast/internal/metrics"
)

// Assembler lazily builds full-episode artifacts from ready chunk
// files. Concurrent requests for the same episode and format share one
// build through singleflight; that is the per-episode advisory mutex.
type Assembler struct {
	audioDir string
	enc      Encoder
	group    singleflight.Group
	logger   zerolog.Logger
}

// NewAssembler builds an Assembler rooted at audioDir.
func NewAssembler(audioDir string, enc Encoder, logger zerolog.Logger) *Assembler {
	if enc == nil {
		enc = BuiltinEncoder{}
	}
	return &Assembler{
		audioDir: audioDir,
		enc:      enc,
		logger:   logger.With().Str("component", "assembler").Logger(),
	}
}

// EpisodeDir returns the directory holding an episode's chunk audio.
func (a *Assembler) EpisodeDir(episodeID string) string {
	return filepath.Join(a.audioDir, episodeID)
}

// ChunkPath returns the canonical path of one chunk's WAV file.
func (a *Assembler) ChunkPath(episodeID string, index int) string {
	return filepath.Join(a.EpisodeDir(episodeID), strconv.Itoa(index)+".wav")
}

// FullPath returns the cached full-episode artifact location.
func (a *Assembler) FullPath(episodeID string, format Format) string {
	return filepath.Join(a.EpisodeDir(episodeID), "full."+string(format))
}

// Assemble returns the path of the full-episode artifact, building it
// on first request. chunkPaths must be the episode's ready chunk files
// in index order.
func (a *Assembler) Assemble(episodeID string, chunkPaths []string, format Format) (string, error) {
	key := episodeID + "/" + string(format)
	path, err, _ := a.group.Do(key, func() (any, error) {
		full := a.FullPath(episodeID, format)
		if _, err := os.Stat(full); err == nil {
			return full, nil
		}
		if err := a.build(full, chunkPaths, format); err != nil {
			metrics.AssemblyRun("error")
			return "", err
		}
		metrics.AssemblyRun("ok")
		return full, nil
	})
	if err != nil {
		return "", err
	}
	return path.(string), nil
}

// build concatenates chunk PCM sample-accurately and encodes the
// target container. The artifact lands atomically.
func (a *Assembler) build(full string, chunkPaths []string, format Format) error {
	var pcm []byte
	for _, p := range chunkPaths {
		chunk, err := ReadWAV(p)
		if err != nil {
			return fmt.Errorf("chunk %s: %w", filepath.Base(p), err)
		}
		pcm = append(pcm, chunk...)
	}

	encoded, err := a.enc.Encode(pcm, format)
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(full, encoded, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	a.logger.Info().
		Str("event", "assembly.complete").
		Str("path", full).
		Int("chunks", len(chunkPaths)).
		Float64("duration_secs", DurationSecs(len(pcm))).
		Msg("assembled full episode")
	return nil
}

// Invalidate removes cached full artifacts for an episode. Called
// whenever any chunk transitions away from ready.
func (a *Assembler) Invalidate(episodeID string) {
	matches, err := filepath.Glob(filepath.Join(a.EpisodeDir(episodeID), "full.*"))
	if err != nil {
		return
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			a.logger.Warn().Err(err).Str("path", m).Msg("remove cached artifact")
		}
	}
}
