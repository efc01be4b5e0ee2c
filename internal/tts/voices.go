// SPDX-License-Identifier: MIT

package tts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// VoiceType distinguishes shipped voices from user-installed ones.
type VoiceType string

const (
	VoiceBuiltin VoiceType = "builtin"
	VoiceCustom  VoiceType = "custom"
)

// Voice is one selectable speaker.
type Voice struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Type VoiceType `json:"type"`
	Path string    `json:"path,omitempty"`
}

// builtinVoices ship with the engine and need no manifest entry.
var builtinVoices = []Voice{
	{ID: "alba", Name: "Alba", Type: VoiceBuiltin},
	{ID: "marius", Name: "Marius", Type: VoiceBuiltin},
	{ID: "javert", Name: "Javert", Type: VoiceBuiltin},
	{ID: "fantine", Name: "Fantine", Type: VoiceBuiltin},
}

type voiceManifest struct {
	Voices []Voice `json:"voices"`
}

// Catalog tracks the available voices. Custom voices come from a
// voices.json manifest in the voices directory and are hot-reloaded
// when the manifest changes on disk.
type Catalog struct {
	dir    string
	logger zerolog.Logger

	mu     sync.RWMutex
	custom []Voice

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewCatalog loads the manifest from dir (empty dir means builtins
// only). A missing or malformed manifest is not fatal; the catalog
// degrades to the builtin set.
func NewCatalog(dir string, logger zerolog.Logger) *Catalog {
	c := &Catalog{
		dir:    dir,
		logger: logger.With().Str("component", "voices").Logger(),
		done:   make(chan struct{}),
	}
	c.reload()
	return c
}

// ManifestPath returns the voices.json location, or "" when no voices
// directory is configured.
func (c *Catalog) ManifestPath() string {
	if c.dir == "" {
		return ""
	}
	return filepath.Join(c.dir, "voices.json")
}

func (c *Catalog) reload() {
	path := c.ManifestPath()
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn().Err(err).Str("event", "voices.manifest_error").Msg("read voice manifest")
		}
		c.setCustom(nil)
		return
	}
	var manifest voiceManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		c.logger.Warn().Err(err).Str("event", "voices.manifest_error").Msg("decode voice manifest")
		return
	}

	seen := make(map[string]bool, len(builtinVoices))
	for _, v := range builtinVoices {
		seen[v.ID] = true
	}
	var custom []Voice
	for _, v := range manifest.Voices {
		if v.ID == "" || seen[v.ID] {
			c.logger.Warn().Str("voice_id", v.ID).Str("event", "voices.skipped").Msg("invalid or duplicate voice id")
			continue
		}
		seen[v.ID] = true
		v.Type = VoiceCustom
		if v.Name == "" {
			v.Name = v.ID
		}
		custom = append(custom, v)
	}
	c.setCustom(custom)
	c.logger.Info().Int("custom", len(custom)).Str("event", "voices.loaded").Msg("voice manifest loaded")
}

func (c *Catalog) setCustom(voices []Voice) {
	c.mu.Lock()
	c.custom = voices
	c.mu.Unlock()
}

// List returns all voices, builtins first, custom sorted by id.
func (c *Catalog) List() []Voice {
	c.mu.RLock()
	custom := append([]Voice(nil), c.custom...)
	c.mu.RUnlock()
	sort.Slice(custom, func(i, j int) bool { return custom[i].ID < custom[j].ID })
	return append(append([]Voice(nil), builtinVoices...), custom...)
}

// Has reports whether id names a known voice.
func (c *Catalog) Has(id string) bool {
	for _, v := range c.List() {
		if v.ID == id {
			return true
		}
	}
	return false
}

// ResolvePath returns the on-disk asset for a custom voice, relative
// paths resolving against the voices directory.
func (c *Catalog) ResolvePath(id string) (string, error) {
	for _, v := range c.List() {
		if v.ID != id {
			continue
		}
		if v.Type == VoiceBuiltin {
			return "", nil
		}
		p := v.Path
		if !filepath.IsAbs(p) {
			p = filepath.Join(c.dir, p)
		}
		return filepath.Clean(p), nil
	}
	return "", fmt.Errorf("unknown voice %q", id)
}

// Watch hot-reloads the manifest when the voices directory changes.
// No-op without a voices directory.
func (c *Catalog) Watch() error {
	if c.dir == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create voice watcher: %w", err)
	}
	if err := w.Add(c.dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch voices dir: %w", err)
	}
	c.watcher = w

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) == "voices.json" {
					c.logger.Debug().Str("op", ev.Op.String()).Str("event", "voices.changed").Msg("manifest changed")
					c.reload()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				c.logger.Warn().Err(err).Str("event", "voices.watch_error").Msg("voice watcher error")
			case <-c.done:
				return
			}
		}
	}()
	return nil
}

// Close stops the watcher.
func (c *Catalog) Close() error {
	close(c.done)
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}
