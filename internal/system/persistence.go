package system

import (
	"context"
	"time"

	coresys "github.com/threeworlds/loopshift/internal/core/system"
	"github.com/threeworlds/loopshift/internal/loop"
	"go.uber.org/zap"
)

// AutosaveSystem retries loop memory saves that failed when they were first
// attempted. Phase 5 (Persist).
type AutosaveSystem struct {
	memory    *loop.Memory
	log       *zap.Logger
	timeout   time.Duration
	tickCount int
	interval  int // retry every N ticks
}

func NewAutosaveSystem(mem *loop.Memory, log *zap.Logger, intervalTicks int, timeout time.Duration) *AutosaveSystem {
	if intervalTicks < 1 {
		intervalTicks = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AutosaveSystem{
		memory:   mem,
		log:      log,
		timeout:  timeout,
		interval: intervalTicks,
	}
}

func (s *AutosaveSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *AutosaveSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	if !s.memory.Dirty() {
		return // last save went through
	}
	s.flush()
}

// Flush writes any pending loop memory now. Called on graceful shutdown.
func (s *AutosaveSystem) Flush() error {
	return s.flush()
}

func (s *AutosaveSystem) flush() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.memory.Flush(ctx); err != nil {
		s.log.Error("loop memory autosave failed", zap.Int("loop", s.memory.LoopCount()), zap.Error(err))
		return err
	}
	return nil
}
