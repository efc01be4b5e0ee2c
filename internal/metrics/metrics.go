// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus collectors for the synthesis pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chunksSynthesized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "papercast_chunks_synthesized_total",
		Help: "Chunks processed by the synthesis worker by outcome",
	}, []string{"outcome"}) // outcome=ok|error

	synthesisSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "papercast_synthesis_duration_seconds",
		Help:    "Wall-clock time spent in a single TTS call",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	})

	audioSecondsProduced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "papercast_audio_seconds_total",
		Help: "Seconds of audio produced by the synthesis worker",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "papercast_generation_queue_depth",
		Help: "Episodes waiting in the generation queue",
	})

	episodesFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "papercast_episodes_finalized_total",
		Help: "Episodes reaching a terminal state by status",
	}, []string{"status"}) // status=ready|error|cancelled

	ingestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "papercast_ingest_total",
		Help: "Source ingestion attempts by variant and outcome",
	}, []string{"variant", "outcome"}) // outcome=ok|too_large|unsupported

	assembliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "papercast_assemblies_total",
		Help: "Full-episode assembly runs by outcome",
	}, []string{"outcome"}) // outcome=ok|error
)

// ChunkSynthesized records a worker outcome for one chunk.
func ChunkSynthesized(outcome string) { chunksSynthesized.WithLabelValues(outcome).Inc() }

// ObserveSynthesis records the duration of a TTS call in seconds.
func ObserveSynthesis(seconds float64) { synthesisSeconds.Observe(seconds) }

// AddAudioSeconds accumulates produced audio duration.
func AddAudioSeconds(seconds float64) { audioSecondsProduced.Add(seconds) }

// SetQueueDepth reports the current number of queued episodes.
func SetQueueDepth(n int) { queueDepth.Set(float64(n)) }

// EpisodeFinalized records an episode reaching a terminal status.
func EpisodeFinalized(status string) { episodesFinalized.WithLabelValues(status).Inc() }

// IngestAttempt records a source ingestion attempt.
func IngestAttempt(variant, outcome string) { ingestTotal.WithLabelValues(variant, outcome).Inc() }

// AssemblyRun records a full-episode assembly outcome.
func AssemblyRun(outcome string) { assembliesTotal.WithLabelValues(outcome).Inc() }
