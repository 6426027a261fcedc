// Package metrics defines the observability sink consumed by processors and
// the orchestrator.
package metrics

import (
	"time"

	"github.com/rs/zerolog"
)

// Sink receives extraction outcomes. Implementations must be safe for
// concurrent use; processors report from fan-out goroutines.
type Sink interface {
	// RecordExtraction reports a successful extraction by one processor.
	RecordExtraction(processor string, count int, took time.Duration)

	// RecordFailure reports an absorbed per-processor failure.
	RecordFailure(processor string, err error)
}

// ZerologSink logs every event through a zerolog logger.
type ZerologSink struct {
	Logger zerolog.Logger
}

func (s *ZerologSink) RecordExtraction(processor string, count int, took time.Duration) {
	s.Logger.Debug().
		Str("processor", processor).
		Int("descriptions", count).
		Dur("took", took).
		Msg("extraction complete")
}

func (s *ZerologSink) RecordFailure(processor string, err error) {
	s.Logger.Warn().
		Str("processor", processor).
		Err(err).
		Msg("extraction failure absorbed")
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordExtraction(string, int, time.Duration) {}
func (NopSink) RecordFailure(string, error)                 {}
