package system

import (
	"time"

	"github.com/threeworlds/loopshift/internal/console"
	coresys "github.com/threeworlds/loopshift/internal/core/system"
	"go.uber.org/zap"
)

// InputSystem drains console lines and dispatches them. Phase 0 (Input).
type InputSystem struct {
	lines      <-chan string
	deps       *console.Deps
	maxPerTick int
	log        *zap.Logger
}

func NewInputSystem(lines <-chan string, deps *console.Deps, maxPerTick int, log *zap.Logger) *InputSystem {
	if maxPerTick < 1 {
		maxPerTick = 8
	}
	return &InputSystem{lines: lines, deps: deps, maxPerTick: maxPerTick, log: log}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	for i, n := 0, s.maxPerTick; i < n; i++ {
		select {
		case line, ok := <-s.lines:
			if !ok {
				s.lines = nil
				return
			}
			if !console.Execute(line, s.deps) {
				s.log.Debug("unknown console command", zap.String("line", line))
			}
		default:
			return
		}
	}
}
