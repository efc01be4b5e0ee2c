// SPDX-License-Identifier: MIT

package audio

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeForeignWAV emits a 44.1 kHz stereo file that violates the
// contract.
func writeForeignWAV(t *testing.T, mem *writeSeekBuffer) {
	t.Helper()
	enc := wav.NewEncoder(mem, 44100, 16, 2, 1)
	buf := goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: 44100},
		SourceBitDepth: 16,
		Data:           make([]int, 441*2),
	}
	require.NoError(t, enc.Write(&buf))
	require.NoError(t, enc.Close())
}

// rampPCM builds n samples of a recognizable waveform.
func rampPCM(n int) []byte {
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(i%2000-1000)))
	}
	return pcm
}

func TestWAVRoundTrip(t *testing.T) {
	pcm := rampPCM(4800)
	path := filepath.Join(t.TempDir(), "chunk.wav")
	require.NoError(t, WriteWAV(path, pcm))

	got, err := ReadWAV(path)
	require.NoError(t, err)
	assert.Equal(t, pcm, got)
}

func TestEncodeWAVRejectsOddLength(t *testing.T) {
	_, err := EncodeWAV([]byte{0x01})
	assert.ErrorIs(t, err, ErrContractMismatch)
}

func TestDecodeRejectsWrongFormat(t *testing.T) {
	// Build a stereo 44.1 kHz file by hand and check the contract gate.
	var mem writeSeekBuffer
	writeForeignWAV(t, &mem)

	path := filepath.Join(t.TempDir(), "foreign.wav")
	require.NoError(t, os.WriteFile(path, mem.data, 0o644))

	_, err := ReadWAV(path)
	assert.ErrorIs(t, err, ErrContractMismatch)
}

func TestDurationSecs(t *testing.T) {
	assert.InDelta(t, 1.0, DurationSecs(SampleRate*2), 1e-9)
	assert.InDelta(t, 0.1, DurationSecs(SampleRate/5), 1e-9)
}

func TestBuiltinEncoder(t *testing.T) {
	pcm := rampPCM(240)

	enc := BuiltinEncoder{}
	out, err := enc.Encode(pcm, FormatPCM)
	require.NoError(t, err)
	assert.Equal(t, pcm, out)

	wavBytes, err := enc.Encode(pcm, FormatWAV)
	require.NoError(t, err)
	assert.Greater(t, len(wavBytes), len(pcm))

	_, err = enc.Encode(pcm, FormatMP3)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestAssembleConcatenatesChunks(t *testing.T) {
	dir := t.TempDir()
	a := NewAssembler(dir, nil, zerolog.New(io.Discard))

	epDir := a.EpisodeDir("ep-1")
	require.NoError(t, os.MkdirAll(epDir, 0o755))

	first := rampPCM(2400)
	second := rampPCM(1200)
	require.NoError(t, WriteWAV(a.ChunkPath("ep-1", 0), first))
	require.NoError(t, WriteWAV(a.ChunkPath("ep-1", 1), second))

	paths := []string{a.ChunkPath("ep-1", 0), a.ChunkPath("ep-1", 1)}
	full, err := a.Assemble("ep-1", paths, FormatPCM)
	require.NoError(t, err)

	got, err := os.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, append(append([]byte{}, first...), second...), got)

	// Second call hits the cache; corrupting the chunks must not matter.
	require.NoError(t, os.Remove(paths[0]))
	again, err := a.Assemble("ep-1", paths, FormatPCM)
	require.NoError(t, err)
	assert.Equal(t, full, again)

	a.Invalidate("ep-1")
	_, err = os.Stat(full)
	assert.True(t, os.IsNotExist(err))
}

func TestAssembleConcurrentSingleBuild(t *testing.T) {
	dir := t.TempDir()
	a := NewAssembler(dir, nil, zerolog.New(io.Discard))
	require.NoError(t, os.MkdirAll(a.EpisodeDir("ep-1"), 0o755))
	require.NoError(t, WriteWAV(a.ChunkPath("ep-1", 0), rampPCM(2400)))

	paths := []string{a.ChunkPath("ep-1", 0)}
	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			full, err := a.Assemble("ep-1", paths, FormatWAV)
			assert.NoError(t, err)
			results[i] = full
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}

func TestAssembleContractMismatch(t *testing.T) {
	dir := t.TempDir()
	a := NewAssembler(dir, nil, zerolog.New(io.Discard))
	require.NoError(t, os.MkdirAll(a.EpisodeDir("ep-1"), 0o755))

	var mem writeSeekBuffer
	writeForeignWAV(t, &mem)
	bad := a.ChunkPath("ep-1", 0)
	require.NoError(t, os.WriteFile(bad, mem.data, 0o644))

	_, err := a.Assemble("ep-1", []string{bad}, FormatWAV)
	assert.ErrorIs(t, err, ErrContractMismatch)
}
