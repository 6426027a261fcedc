package orchestrator

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsageStatsRecord(t *testing.T) {
	s := NewUsageStats()
	s.Record(ModeParallel, []string{"alpha", "beta"})
	s.Record(ModeParallel, []string{"alpha"})
	s.Record(ModeEnsemble, nil)

	snap := s.Snapshot()
	assert.Equal(t, int64(3), snap.Total)
	assert.Equal(t, int64(2), snap.PerMode[ModeParallel])
	assert.Equal(t, int64(1), snap.PerMode[ModeEnsemble])
	assert.Equal(t, int64(2), snap.PerProcessor["alpha"])
	assert.Equal(t, int64(1), snap.PerProcessor["beta"])
}

func TestUsageStatsConcurrent(t *testing.T) {
	s := NewUsageStats()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Record(ModeSingle, []string{"alpha"})
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Equal(t, int64(50), snap.Total)
	assert.Equal(t, int64(50), snap.PerProcessor["alpha"])
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewUsageStats()
	s.Record(ModeSingle, []string{"alpha"})
	snap := s.Snapshot()
	snap.PerMode[ModeSingle] = 99

	assert.Equal(t, int64(1), s.Snapshot().PerMode[ModeSingle])
}
