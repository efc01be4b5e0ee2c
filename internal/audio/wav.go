// SPDX-License-Identifier: MIT

package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/renameio/v2"
)

// Contract format for all chunk audio.
const (
	SampleRate     = 24000
	NumChannels    = 1
	BitDepth       = 16
	bytesPerSample = BitDepth / 8
)

// EncodeWAV wraps contract PCM in a WAV container.
func EncodeWAV(pcm []byte) ([]byte, error) {
	if len(pcm)%bytesPerSample != 0 {
		return nil, fmt.Errorf("%w: odd pcm byte count %d", ErrContractMismatch, len(pcm))
	}

	buf := goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: NumChannels, SampleRate: SampleRate},
		SourceBitDepth: BitDepth,
		Data:           make([]int, len(pcm)/bytesPerSample),
	}
	for i := range buf.Data {
		buf.Data[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}

	var mem writeSeekBuffer
	enc := wav.NewEncoder(&mem, SampleRate, BitDepth, NumChannels, 1)
	if err := enc.Write(&buf); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close wav encoder: %w", err)
	}
	return mem.data, nil
}

// WriteWAV atomically persists contract PCM as a WAV file.
func WriteWAV(path string, pcm []byte) error {
	data, err := EncodeWAV(pcm)
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	return nil
}

// ReadWAV loads a WAV file and returns its raw PCM, validating the
// declared format against the contract.
func ReadWAV(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer func() { _ = f.Close() }()
	return DecodeWAV(f)
}

// DecodeWAV extracts contract PCM from WAV content.
func DecodeWAV(r io.ReadSeeker) ([]byte, error) {
	dec := wav.NewDecoder(r)
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, fmt.Errorf("read wav header: %w", err)
	}
	if dec.SampleRate != SampleRate || dec.NumChans != NumChannels || dec.BitDepth != BitDepth {
		return nil, fmt.Errorf("%w: got %d Hz, %d ch, %d bit; want %d Hz, %d ch, %d bit",
			ErrContractMismatch,
			dec.SampleRate, dec.NumChans, dec.BitDepth,
			SampleRate, NumChannels, BitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read wav samples: %w", err)
	}
	pcm := make([]byte, len(buf.Data)*bytesPerSample)
	for i, s := range buf.Data {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(s)))
	}
	return pcm, nil
}

// DurationSecs converts a contract PCM byte count into seconds.
func DurationSecs(pcmBytes int) float64 {
	return float64(pcmBytes) / float64(SampleRate*NumChannels*bytesPerSample)
}

// writeSeekBuffer is an in-memory io.WriteSeeker for the WAV encoder,
// which patches the RIFF header after writing samples.
type writeSeekBuffer struct {
	data []byte
	pos  int
}

func (b *writeSeekBuffer) Write(p []byte) (int, error) {
	if need := b.pos + len(p); need > len(b.data) {
		grown := make([]byte, need)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[b.pos:], p)
	b.pos += len(p)
	return len(p), nil
}

func (b *writeSeekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(b.pos) + offset
	case io.SeekEnd:
		next = int64(len(b.data)) + offset
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("seek: negative position")
	}
	b.pos = int(next)
	return next, nil
}

var _ io.WriteSeeker = (*writeSeekBuffer)(nil)
