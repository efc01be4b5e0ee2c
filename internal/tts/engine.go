// SPDX-License-Identifier: MIT

// Package tts defines the synthesis collaborator contract and the voice
// catalog. The model itself lives behind the Engine interface; this
// service never links it directly.
package tts

import "context"

// PCM contract every engine implementation must honor.
const (
	SampleRate     = 24000
	Channels       = 1
	BytesPerSample = 2
)

// BytesPerSecond is the PCM data rate under the contract.
const BytesPerSecond = SampleRate * Channels * BytesPerSample

// Engine synthesizes one utterance at a time. Calls are blocking, may
// take seconds, and are never invoked concurrently by this service; the
// single worker owns the engine. Synthesis has no timeout by design:
// the call runs to completion or until the process exits, so ctx is
// only consulted at safe points by implementations that have them.
type Engine interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// Duration converts a PCM byte count under the contract into seconds.
func Duration(pcmBytes int) float64 {
	return float64(pcmBytes) / float64(BytesPerSecond)
}
