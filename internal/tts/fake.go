// SPDX-License-Identifier: MIT

package tts

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// FakeEngine is a deterministic Engine for tests. It emits silence
// whose length is proportional to the text, fails on a configurable
// substring, and can block to simulate slow synthesis.
type FakeEngine struct {
	// SamplesPerChar controls the synthetic duration (default 10).
	SamplesPerChar int
	// FailSubstring makes Synthesize return an error for matching texts.
	FailSubstring string
	// Delay is slept inside each call.
	Delay time.Duration
	// Gate, when set, is received from before each call returns. It
	// lets tests hold a synthesis mid-flight.
	Gate chan struct{}

	mu    sync.Mutex
	calls []string
}

func (f *FakeEngine) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()

	if f.Delay > 0 {
		time.Sleep(f.Delay)
	}
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.FailSubstring != "" && strings.Contains(text, f.FailSubstring) {
		return nil, fmt.Errorf("fake synthesis failure for %q", f.FailSubstring)
	}

	perChar := f.SamplesPerChar
	if perChar <= 0 {
		perChar = 10
	}
	n := len(text) * perChar
	if n == 0 {
		n = perChar
	}
	return make([]byte, n*BytesPerSample), nil
}

// Calls returns the texts synthesized so far.
func (f *FakeEngine) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
