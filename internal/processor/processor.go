// Package processor contains the pluggable text-analysis engines that produce
// candidate descriptions, plus the registry that owns them.
package processor

import (
	"context"

	"github.com/inkmill/descry/internal/config"
	"github.com/inkmill/descry/internal/description"
)

// Processor wraps one text-analysis engine. Implementations must be safe for
// concurrent Extract calls; the orchestrator fans out across processors.
type Processor interface {
	// Name returns the registry name of the processor.
	Name() string

	// Load lazily initializes the underlying model. A failure is recorded on
	// the processor (see Available/LastError) and returned, but callers treat
	// it as non-fatal: the registry excludes the processor from selection
	// instead of propagating.
	Load(ctx context.Context) error

	// Available reports whether the model loaded successfully and no error
	// has been recorded since.
	Available() bool

	// LastError returns the most recent load failure, or nil.
	LastError() error

	// Configure atomically replaces the processor's config snapshot.
	// Concurrent Extract calls observe either the old or the new snapshot.
	Configure(cfg config.ProcessorConfig)

	// Extract produces candidate descriptions for one chapter. Runtime
	// failures inside the engine are absorbed: the call returns an empty
	// list and the failure is reported to the metrics sink.
	Extract(ctx context.Context, text, chapterID string) ([]description.Description, error)
}
