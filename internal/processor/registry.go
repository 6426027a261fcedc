package processor

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/inkmill/descry/internal/config"
	"github.com/inkmill/descry/internal/description"
	"github.com/inkmill/descry/internal/metrics"
)

// Factory constructs a processor from its config snapshot.
type Factory func(cfg config.ProcessorConfig) Processor

// Status is the externally visible state of one registry entry.
type Status struct {
	Available bool   `json:"available"`
	LastError string `json:"lastError,omitempty"`
}

// entry tracks one owned processor. available is mutated only by load and
// health checks; cfg is the registry's own copy of the processor settings.
type entry struct {
	proc      Processor
	cfg       config.ProcessorConfig
	available bool
	lastErr   error
}

// Registry owns processor instances, tracks their availability, and applies
// config updates. It is the single source of truth for selection.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	entries   map[string]*entry
	configs   map[string]config.ProcessorConfig
	sink      metrics.Sink
	logger    zerolog.Logger
}

// NewRegistry creates a Registry pre-registered with the built-in engines.
func NewRegistry(cfg *config.Config, sink metrics.Sink, logger zerolog.Logger) *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
		entries:   make(map[string]*entry),
		configs:   make(map[string]config.ProcessorConfig, len(cfg.Processors)),
		sink:      sink,
		logger:    logger.With().Str("component", "registry").Logger(),
	}
	for name, pc := range cfg.Processors {
		r.configs[name] = pc
	}
	maxPerChapter := cfg.MaxDescriptions
	r.factories[HeuristicName] = func(pc config.ProcessorConfig) Processor {
		return NewHeuristic(pc, maxPerChapter, sink, logger)
	}
	r.factories[OpenAIName] = func(pc config.ProcessorConfig) Processor {
		return NewOpenAI(pc, sink, logger)
	}
	r.factories[AnthropicName] = func(pc config.ProcessorConfig) Processor {
		return NewAnthropic(pc, sink, logger)
	}
	return r
}

// Register adds or replaces a factory. Must be called before Initialize.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Initialize constructs and loads every configured processor. A load failure
// for one processor records the error on its entry and moves on; it never
// prevents the others from loading.
func (r *Registry) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Deterministic load order.
	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pc := r.configs[name]
		factory, ok := r.factories[name]
		if !ok {
			r.logger.Warn().Str("processor", name).Msg("configured processor has no factory")
			continue
		}
		proc := factory(pc)
		e := &entry{proc: proc, cfg: pc}
		r.entries[name] = e

		if err := proc.Load(ctx); err != nil {
			e.available = false
			e.lastErr = err
			r.logger.Warn().Str("processor", name).Err(err).Msg("processor failed to load")
			continue
		}
		e.available = true
		r.logger.Debug().Str("processor", name).Msg("processor loaded")
	}
	return nil
}

// Get returns the named processor.
func (r *Registry) Get(name string) (Processor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, description.ErrUnknownProcessor
	}
	return e.proc, nil
}

// Available returns the available processors sorted by name.
func (r *Registry) Available() []Processor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name, e := range r.entries {
		if e.available {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	procs := make([]Processor, 0, len(names))
	for _, name := range names {
		procs = append(procs, r.entries[name].proc)
	}
	return procs
}

// Config returns the registry's config snapshot for the named processor.
func (r *Registry) Config(name string) (config.ProcessorConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return config.ProcessorConfig{}, description.ErrUnknownProcessor
	}
	return e.cfg, nil
}

// Weights returns the configured weight of every enabled registered processor.
func (r *Registry) Weights() map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]float64, len(r.entries))
	for name, e := range r.entries {
		if e.cfg.Enabled {
			out[name] = e.cfg.Weight
		}
	}
	return out
}

// UpdateConfig atomically replaces a processor's config snapshot. Concurrent
// extractions observe either the old or the new snapshot, never a torn one:
// the swap inside the processor is an atomic pointer store.
func (r *Registry) UpdateConfig(name string, pc config.ProcessorConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return description.ErrUnknownProcessor
	}
	e.proc.Configure(pc)
	e.cfg = pc
	return nil
}

// Status reports availability and last error per registered processor.
func (r *Registry) Status() map[string]Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Status, len(r.entries))
	for name, e := range r.entries {
		s := Status{Available: e.available}
		if e.lastErr != nil {
			s.LastError = e.lastErr.Error()
		}
		out[name] = s
	}
	return out
}

// Refresh retries loading for unavailable processors. Used after a config
// reload or when an upstream dependency may have recovered.
func (r *Registry) Refresh(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, e := range r.entries {
		if e.available {
			continue
		}
		if err := e.proc.Load(ctx); err != nil {
			e.lastErr = err
			continue
		}
		e.available = true
		e.lastErr = nil
		r.logger.Debug().Str("processor", name).Msg("processor recovered")
	}
}
