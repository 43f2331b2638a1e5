package system

import (
	"time"

	coresys "github.com/threeworlds/loopshift/internal/core/system"
	"github.com/threeworlds/loopshift/internal/data"
	"go.uber.org/zap"
)

// Reloader applies changed files.
type Reloader interface {
	ReloadLevel() error
	ReloadScripts() error
}

// ReloadSystem drains file-watcher events and reloads at most once per kind
// per tick. Phase 1 (PreUpdate).
type ReloadSystem struct {
	events <-chan string
	target Reloader
	log    *zap.Logger
}

func NewReloadSystem(events <-chan string, target Reloader, log *zap.Logger) *ReloadSystem {
	return &ReloadSystem{events: events, target: target, log: log}
}

func (s *ReloadSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *ReloadSystem) Update(_ time.Duration) {
	var levelChanged, scriptsChanged bool
drain:
	for {
		select {
		case path, ok := <-s.events:
			if !ok {
				s.events = nil
				break drain
			}
			switch {
			case data.IsDataFile(path):
				levelChanged = true
			case data.IsScriptFile(path):
				scriptsChanged = true
			}
		default:
			break drain
		}
	}

	if scriptsChanged {
		if err := s.target.ReloadScripts(); err != nil {
			s.log.Warn("script reload failed, keeping previous scripts", zap.Error(err))
		}
	}
	if levelChanged {
		if err := s.target.ReloadLevel(); err != nil {
			s.log.Warn("level reload failed, keeping previous level", zap.Error(err))
		}
	}
}
