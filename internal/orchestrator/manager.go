package orchestrator

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkmill/descry/internal/config"
	"github.com/inkmill/descry/internal/description"
	"github.com/inkmill/descry/internal/metrics"
	"github.com/inkmill/descry/internal/processor"
)

// Manager is the public entry point of the extraction core. It selects
// eligible processors, builds a run configuration, delegates to a strategy,
// and records usage statistics.
type Manager struct {
	registry *processor.Registry
	factory  *Factory
	loader   config.Loader
	progress *ProgressReporter
	stats    *UsageStats
	logger   zerolog.Logger

	mu  sync.RWMutex
	cfg *config.Config
}

// NewManager resolves configuration through loader once and wires the
// registry, voter, and strategy factory. Call Initialize before extracting.
func NewManager(loader config.Loader, sink metrics.Sink, logger zerolog.Logger) (*Manager, error) {
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	progress := NewProgressReporter()
	m := &Manager{
		registry: processor.NewRegistry(cfg, sink, logger),
		loader:   loader,
		progress: progress,
		stats:    NewUsageStats(),
		logger:   logger.With().Str("component", "manager").Logger(),
		cfg:      cfg,
	}
	m.factory = NewFactory(NewVoter(), StatsClassifier{}, progress.Emit)
	return m, nil
}

// Registry exposes the processor registry, mainly so callers can register
// additional engines before Initialize.
func (m *Manager) Registry() *processor.Registry {
	return m.registry
}

// Initialize loads every configured processor. Individual load failures are
// recorded on registry entries, never returned.
func (m *Manager) Initialize(ctx context.Context) error {
	return m.registry.Initialize(ctx)
}

// ExtractOption adjusts a single extraction call.
type ExtractOption func(*extractOptions)

type extractOptions struct {
	mode       string
	processors []string
	timeout    time.Duration
}

// WithMode overrides the default processing mode for this call.
func WithMode(mode string) ExtractOption {
	return func(o *extractOptions) { o.mode = mode }
}

// WithProcessors restricts the call to the named processors.
func WithProcessors(names ...string) ExtractOption {
	return func(o *extractOptions) { o.processors = names }
}

// WithTimeout overrides the per-call deadline.
func WithTimeout(d time.Duration) ExtractOption {
	return func(o *extractOptions) { o.timeout = d }
}

// ExtractDescriptions runs one extraction over chapter text. Only
// configuration problems abort the call; per-processor failures are absorbed
// and reflected in ProcessorsUsed and Recommendations.
func (m *Manager) ExtractDescriptions(ctx context.Context, text, chapterID string, opts ...ExtractOption) (*description.ProcessingResult, error) {
	start := time.Now()
	cfg := m.config()

	var o extractOptions
	for _, opt := range opts {
		opt(&o)
	}

	modeName := cfg.DefaultMode
	if o.mode != "" {
		modeName = o.mode
	}
	mode, err := ParseMode(modeName)
	if err != nil {
		return nil, err
	}

	// Empty or too-short input is a no-op, not an error.
	if strings.TrimSpace(text) == "" || len(text) < cfg.MinTextLength {
		result := description.EmptyResult("input below minimum text length")
		result.ProcessingTime = time.Since(start)
		m.stats.Record(mode, nil)
		return result, nil
	}

	selected, earlyEmpty, err := m.selectProcessors(cfg, o.processors)
	if err != nil {
		return nil, err
	}
	if earlyEmpty {
		result := description.EmptyResult("no selected processor is available")
		result.ProcessingTime = time.Since(start)
		m.stats.Record(mode, nil)
		return result, nil
	}

	runCfg := m.buildRunConfig(cfg, o)
	run := Run{Text: text, ChapterID: chapterID, Processors: selected, Config: runCfg}

	strategy, err := m.factory.Get(mode)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, runCfg.Timeout)
	defer cancel()

	result, err := strategy.Execute(callCtx, run)
	if err != nil {
		return nil, err
	}

	result.ProcessingTime = time.Since(start)
	result.Quality = description.ComputeQuality(result.Descriptions)
	m.stats.Record(mode, result.ProcessorsUsed)

	m.logger.Debug().
		Str("chapter", chapterID).
		Str("mode", string(mode)).
		Int("descriptions", len(result.Descriptions)).
		Strs("processorsUsed", result.ProcessorsUsed).
		Dur("took", result.ProcessingTime).
		Msg("extraction complete")
	return result, nil
}

// selectProcessors intersects the registry's available processors with the
// config-enabled ones, honoring a call-site override list. An override naming
// an unregistered processor is a configuration error. An override whose
// processors are all registered but unavailable yields an empty, non-error
// result (earlyEmpty): model unavailability is non-fatal by contract.
func (m *Manager) selectProcessors(cfg *config.Config, override []string) ([]processor.Processor, bool, error) {
	var eligible []processor.Processor
	for _, p := range m.registry.Available() {
		pc, err := m.registry.Config(p.Name())
		if err != nil || !pc.Enabled {
			continue
		}
		eligible = append(eligible, p)
	}

	if len(override) > 0 {
		for _, name := range override {
			if _, err := m.registry.Get(name); err != nil {
				return nil, false, description.NewConfigurationError("override names unknown processor %q", name)
			}
		}
		want := make(map[string]bool, len(override))
		for _, name := range override {
			want[name] = true
		}
		var filtered []processor.Processor
		for _, p := range eligible {
			if want[p.Name()] {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) == 0 {
			return nil, true, nil
		}
		return filtered, false, nil
	}

	if len(eligible) == 0 {
		return nil, false, description.NewConfigurationError("no processor is both enabled and available")
	}
	return eligible, false, nil
}

// buildRunConfig merges global, per-processor, and per-call settings.
func (m *Manager) buildRunConfig(cfg *config.Config, o extractOptions) RunConfig {
	rc := RunConfig{
		Weights:            m.registry.Weights(),
		Timeout:            cfg.Timeout.Std(),
		MaxDescriptions:    cfg.MaxDescriptions,
		MinConsensus:       cfg.Ensemble.MinConsensus,
		OverrideConfidence: cfg.Ensemble.OverrideConfidence,
		SingleProcessor:    cfg.SingleProcessor,
		SequentialMax:      cfg.Sequential.MaxDescriptions,
		AdaptiveRules:      cfg.Adaptive,
	}
	if o.timeout > 0 {
		rc.Timeout = o.timeout
	}
	if len(o.processors) > 0 {
		rc.SingleProcessor = o.processors[0]
	}
	return rc
}

// ProcessorStatus reports availability and last error per processor.
func (m *Manager) ProcessorStatus() map[string]processor.Status {
	return m.registry.Status()
}

// UpdateProcessorConfig atomically replaces one processor's config snapshot.
func (m *Manager) UpdateProcessorConfig(name string, pc config.ProcessorConfig) error {
	if pc.Weight < 0 {
		return description.NewConfigurationError("processor %q: weight must be >= 0", name)
	}
	if err := m.registry.UpdateConfig(name, pc); err != nil {
		return description.NewConfigurationError("update config: unknown processor %q", name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *m.cfg
	clone.Processors = make(map[string]config.ProcessorConfig, len(m.cfg.Processors))
	for k, v := range m.cfg.Processors {
		clone.Processors[k] = v
	}
	clone.Processors[name] = pc
	m.cfg = &clone
	return nil
}

// SetProcessingMode changes the default mode for subsequent calls.
func (m *Manager) SetProcessingMode(mode string) error {
	parsed, err := ParseMode(mode)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *m.cfg
	clone.DefaultMode = string(parsed)
	m.cfg = &clone
	return nil
}

// SetEnsembleThreshold tunes the voter's consensus policy.
func (m *Manager) SetEnsembleThreshold(minConsensus int, overrideConfidence float64) error {
	if minConsensus < 1 {
		return description.NewConfigurationError("minConsensus must be >= 1, got %d", minConsensus)
	}
	if overrideConfidence < 0 || overrideConfidence > 1 {
		return description.NewConfigurationError("overrideConfidence must be in [0,1], got %g", overrideConfidence)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *m.cfg
	clone.Ensemble = config.EnsembleConfig{
		MinConsensus:       minConsensus,
		OverrideConfidence: overrideConfidence,
	}
	m.cfg = &clone
	return nil
}

// ReloadConfig re-resolves configuration through the loader and pushes
// per-processor snapshots into the registry. Unavailable processors get a
// fresh load attempt.
func (m *Manager) ReloadConfig(ctx context.Context) error {
	cfg, err := m.loader.Load()
	if err != nil {
		return err
	}
	for name, pc := range cfg.Processors {
		if err := m.registry.UpdateConfig(name, pc); err != nil {
			m.logger.Warn().Str("processor", name).Msg("reload: processor not registered")
		}
	}
	m.registry.Refresh(ctx)

	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return nil
}

// Stats returns a snapshot of the usage counters.
func (m *Manager) Stats() StatsSnapshot {
	return m.stats.Snapshot()
}

// Progress returns the channel of per-processor progress events.
func (m *Manager) Progress() <-chan ProgressEvent {
	return m.progress.Subscribe()
}

// Close shuts down the progress reporter.
func (m *Manager) Close() {
	m.progress.Close()
}

// config returns the current snapshot.
func (m *Manager) config() *config.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}
