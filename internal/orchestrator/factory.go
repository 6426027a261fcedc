package orchestrator

import (
	"sync"

	"github.com/inkmill/descry/internal/description"
)

// Factory resolves a mode to a cached, stateless strategy instance. It is
// explicit and injectable rather than an ambient global: construct one at
// startup and hand it to the Manager.
type Factory struct {
	mu         sync.RWMutex
	cache      map[Mode]Strategy
	voter      *Voter
	classifier TextClassifier
	onProgress func(ProgressEvent)
}

// NewFactory creates a Factory. classifier may be nil for the default;
// onProgress may be nil.
func NewFactory(voter *Voter, classifier TextClassifier, onProgress func(ProgressEvent)) *Factory {
	return &Factory{
		cache:      make(map[Mode]Strategy),
		voter:      voter,
		classifier: classifier,
		onProgress: onProgress,
	}
}

// Get returns the strategy for mode, constructing and caching it on first
// request. Construction is idempotent and side-effect-free, so concurrent
// first requests may race to construct; last write wins and the duplicates
// are garbage.
func (f *Factory) Get(mode Mode) (Strategy, error) {
	f.mu.RLock()
	if s, ok := f.cache[mode]; ok {
		f.mu.RUnlock()
		return s, nil
	}
	f.mu.RUnlock()

	s, err := f.build(mode)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.cache[mode] = s
	f.mu.Unlock()
	return s, nil
}

func (f *Factory) build(mode Mode) (Strategy, error) {
	switch mode {
	case ModeSingle:
		return NewSingleStrategy(f.onProgress), nil
	case ModeParallel:
		return NewParallelStrategy(f.onProgress), nil
	case ModeSequential:
		return NewSequentialStrategy(f.onProgress), nil
	case ModeEnsemble:
		return NewEnsembleStrategy(f.voter, f.onProgress), nil
	case ModeAdaptive:
		return NewAdaptiveStrategy(f.classifier, f.Get), nil
	}
	return nil, description.NewConfigurationError("unknown processing mode %q", string(mode))
}
