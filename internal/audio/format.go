// SPDX-License-Identifier: MIT

// Package audio owns the PCM contract, WAV encoding and the lazy
// full-episode assembler. Chunk audio is always stored as WAV under the
// contract format; other output formats go through the Encoder
// collaborator at assembly time.
package audio

import (
	"errors"
	"fmt"
)

// Format is a requested output encoding.
type Format string

const (
	FormatWAV  Format = "wav"
	FormatMP3  Format = "mp3"
	FormatOpus Format = "opus"
	FormatFLAC Format = "flac"
	FormatPCM  Format = "pcm"
)

// ErrContractMismatch means a chunk file does not carry 24 kHz mono
// 16-bit PCM and cannot be concatenated.
var ErrContractMismatch = errors.New("audio contract mismatch")

// ErrUnsupportedFormat means no encoder is wired for the requested
// output format.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// ValidFormat reports whether f names a known output format.
func ValidFormat(f string) bool {
	switch Format(f) {
	case FormatWAV, FormatMP3, FormatOpus, FormatFLAC, FormatPCM:
		return true
	}
	return false
}

// ContentType returns the MIME type served for a format.
func ContentType(f Format) string {
	switch f {
	case FormatWAV:
		return "audio/wav"
	case FormatMP3:
		return "audio/mpeg"
	case FormatOpus:
		return "audio/ogg"
	case FormatFLAC:
		return "audio/flac"
	default:
		return "application/octet-stream"
	}
}

// Encoder re-encodes contract PCM into a target format. Lossy codecs
// are deliberately out of scope for the built-in implementation; a
// deployment wires its own Encoder when it needs them.
type Encoder interface {
	Encode(pcm []byte, format Format) ([]byte, error)
}

// BuiltinEncoder handles the lossless formats.
type BuiltinEncoder struct{}

func (BuiltinEncoder) Encode(pcm []byte, format Format) ([]byte, error) {
	switch format {
	case FormatWAV:
		return EncodeWAV(pcm)
	case FormatPCM:
		return pcm, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
