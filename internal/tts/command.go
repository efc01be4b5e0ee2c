// SPDX-License-Identifier: MIT

package tts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// CommandEngine runs an external synthesizer process per utterance. The
// command receives the text on stdin and must write contract PCM (24 kHz
// mono s16le) to stdout. The voice id is appended as `--voice <id>`, and
// custom voices additionally get `--voice-path <abs path>` resolved
// through the catalog.
type CommandEngine struct {
	command []string
	catalog *Catalog
	logger  zerolog.Logger
}

// NewCommandEngine parses a shell-free command line ("pocket-tts synth
// --rate 24000"). catalog may be nil when only builtin voices are used.
func NewCommandEngine(commandLine string, catalog *Catalog, logger zerolog.Logger) (*CommandEngine, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, fmt.Errorf("tts command is empty")
	}
	return &CommandEngine{
		command: fields,
		catalog: catalog,
		logger:  logger.With().Str("component", "tts").Logger(),
	}, nil
}

// Synthesize runs one synthesis call to completion. The context kills
// the subprocess on cancellation; a non-zero exit surfaces stderr as the
// error message.
func (e *CommandEngine) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	args := append([]string{}, e.command[1:]...)
	args = append(args, "--voice", voiceID)
	if e.catalog != nil {
		path, err := e.catalog.ResolvePath(voiceID)
		if err != nil {
			return nil, err
		}
		if path != "" {
			args = append(args, "--voice-path", path)
		}
	}

	cmd := exec.CommandContext(ctx, e.command[0], args...)
	cmd.Stdin = strings.NewReader(text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("synthesizer: %s", msg)
	}

	pcm := stdout.Bytes()
	if len(pcm) == 0 || len(pcm)%BytesPerSample != 0 {
		return nil, fmt.Errorf("synthesizer produced %d bytes, not valid s16le PCM", len(pcm))
	}
	return pcm, nil
}
