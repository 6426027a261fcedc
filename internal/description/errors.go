package description

import (
	"errors"
	"fmt"
)

// ErrUnknownProcessor is returned when a processor name is not registered.
var ErrUnknownProcessor = errors.New("unknown processor")

// ConfigurationError aborts a call: invalid mode, unknown processor name, or
// an empty eligible-processor set. It is the only error class that propagates
// to the caller; everything else is absorbed into the result.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// NewConfigurationError builds a ConfigurationError with a formatted reason.
func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err is (or wraps) a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// ModelUnavailableError records a processor whose underlying model failed to
// load. Non-fatal: the processor is excluded from selection and the failure
// lives on its registry entry.
type ModelUnavailableError struct {
	Processor string
	Err       error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model unavailable for processor %q: %v", e.Processor, e.Err)
}

func (e *ModelUnavailableError) Unwrap() error { return e.Err }

// ExtractionError records a runtime failure inside one processor's extraction.
// Strategies absorb it: the processor contributes nothing for the call and the
// request still completes.
type ExtractionError struct {
	Processor string
	Err       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed in processor %q: %v", e.Processor, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
