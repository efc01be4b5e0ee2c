// SPDX-License-Identifier: MIT

package tts

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogBuiltinsOnly(t *testing.T) {
	c := NewCatalog("", zerolog.New(io.Discard))
	t.Cleanup(func() { _ = c.Close() })

	voices := c.List()
	require.Len(t, voices, len(builtinVoices))
	assert.True(t, c.Has("alba"))
	assert.False(t, c.Has("nobody"))
}

func TestCatalogManifest(t *testing.T) {
	dir := t.TempDir()
	manifest := `{"voices":[
		{"id":"custom1","name":"Custom One","path":"custom1.bin"},
		{"id":"alba","name":"Shadowing Builtin","path":"x.bin"},
		{"id":"","path":"y.bin"}
	]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "voices.json"), []byte(manifest), 0o644))

	c := NewCatalog(dir, zerolog.New(io.Discard))
	t.Cleanup(func() { _ = c.Close() })

	voices := c.List()
	// Builtins plus the one valid custom voice; the shadowing and empty
	// entries are skipped.
	require.Len(t, voices, len(builtinVoices)+1)
	assert.True(t, c.Has("custom1"))

	path, err := c.ResolvePath("custom1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "custom1.bin"), path)

	path, err = c.ResolvePath("alba")
	require.NoError(t, err)
	assert.Empty(t, path)

	_, err = c.ResolvePath("ghost")
	assert.Error(t, err)
}

func TestCatalogHotReload(t *testing.T) {
	dir := t.TempDir()
	c := NewCatalog(dir, zerolog.New(io.Discard))
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Watch())

	assert.False(t, c.Has("late"))

	manifest := `{"voices":[{"id":"late","name":"Late Voice","path":"late.bin"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "voices.json"), []byte(manifest), 0o644))

	require.Eventually(t, func() bool {
		return c.Has("late")
	}, 3*time.Second, 20*time.Millisecond)
}

func TestFakeEngine(t *testing.T) {
	f := &FakeEngine{SamplesPerChar: 5, FailSubstring: "boom"}

	pcm, err := f.Synthesize(t.Context(), "hello", "alba")
	require.NoError(t, err)
	assert.Len(t, pcm, 5*len("hello")*BytesPerSample)

	_, err = f.Synthesize(t.Context(), "it goes boom here", "alba")
	assert.Error(t, err)

	assert.Len(t, f.Calls(), 2)
}

func TestDuration(t *testing.T) {
	assert.InDelta(t, 1.0, Duration(BytesPerSecond), 1e-9)
	assert.InDelta(t, 0.5, Duration(BytesPerSecond/2), 1e-9)
}
