// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverInterruptedResetsGenerating(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedSource(t, s, "src-1")
	seedEpisode(t, s, "ep-1", "src-1", "a", "b", "c")

	// Simulate a crash mid-chunk: chunk 0 committed, chunk 1 in flight.
	require.NoError(t, s.MarkChunkReady(ctx, "ep-1", 0, "p0", 1.0, `[]`))
	_, err := s.ClaimNextPending(ctx, "ep-1")
	require.NoError(t, err)
	require.NoError(t, s.SetEpisodeStatus(ctx, "ep-1", EpisodeGenerating))

	resumable, err := s.RecoverInterrupted(ctx, zerolog.New(io.Discard))
	require.NoError(t, err)
	assert.Equal(t, []string{"ep-1"}, resumable)

	counts, err := s.CountChunkStates(ctx, "ep-1")
	require.NoError(t, err)
	assert.Equal(t, ChunkStateCount{Ready: 1, Pending: 2}, counts)

	// The committed chunk keeps its audio.
	c0, err := s.GetChunk(ctx, "ep-1", 0)
	require.NoError(t, err)
	assert.Equal(t, "p0", c0.AudioPath)

	// Partially synthesized episodes still read as generating; the worker
	// resumes them from the returned ids.
	ep, err := s.GetEpisode(ctx, "ep-1")
	require.NoError(t, err)
	assert.Equal(t, EpisodeGenerating, ep.Status)
}

func TestRecoverInterruptedMidChunkHasPending(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedSource(t, s, "src-1")
	seedEpisode(t, s, "ep-1", "src-1", "a")

	_, err := s.ClaimNextPending(ctx, "ep-1")
	require.NoError(t, err)

	resumable, err := s.RecoverInterrupted(ctx, zerolog.New(io.Discard))
	require.NoError(t, err)
	assert.Equal(t, []string{"ep-1"}, resumable)

	ep, err := s.GetEpisode(ctx, "ep-1")
	require.NoError(t, err)
	assert.Equal(t, EpisodePending, ep.Status)
}

func TestRecoverInterruptedFinalizesCompleteEpisode(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedSource(t, s, "src-1")
	seedEpisode(t, s, "ep-1", "src-1", "a")

	// Crash after the last chunk committed but before finalization.
	require.NoError(t, s.MarkChunkReady(ctx, "ep-1", 0, "p0", 1.0, `[]`))
	require.NoError(t, s.SetEpisodeStatus(ctx, "ep-1", EpisodeGenerating))

	resumable, err := s.RecoverInterrupted(ctx, zerolog.New(io.Discard))
	require.NoError(t, err)
	assert.Empty(t, resumable)

	ep, err := s.GetEpisode(ctx, "ep-1")
	require.NoError(t, err)
	assert.Equal(t, EpisodeReady, ep.Status)
}

func TestRecoverInterruptedNoWork(t *testing.T) {
	s := openTestStore(t)

	resumable, err := s.RecoverInterrupted(context.Background(), zerolog.New(io.Discard))
	require.NoError(t, err)
	assert.Empty(t, resumable)
}
