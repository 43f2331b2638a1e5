package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/threeworlds/loopshift/internal/actor"
	"github.com/threeworlds/loopshift/internal/config"
	"github.com/threeworlds/loopshift/internal/data"
	"github.com/threeworlds/loopshift/internal/host"
	"github.com/threeworlds/loopshift/internal/level"
	"github.com/threeworlds/loopshift/internal/loop"
	"github.com/threeworlds/loopshift/internal/scripting"
	"github.com/threeworlds/loopshift/internal/shift"
)

// app holds the pieces hot reload swaps out.
type app struct {
	cfg     *config.Config
	env     actor.Env
	memory  *loop.Memory
	scripts *scripting.Engine
	effects actor.ShiftEffectsConfig
	log     *zap.Logger

	prefabs *shift.PrefabTable
	level   *level.Level
}

// Level is the currently built level.
func (a *app) Level() *level.Level { return a.level }

// build loads prefabs and the level file and spawns the level.
func (a *app) build() error {
	prefabs, err := data.LoadPrefabTable(a.cfg.Data.PrefabsFile)
	if err != nil {
		return err
	}
	spec, err := data.LoadLevel(a.cfg.Data.LevelFile)
	if err != nil {
		return err
	}
	lv, err := level.Build(spec, level.Deps{
		Env:     a.env,
		Prefabs: prefabs,
		Hints:   scriptedHints{mem: a.memory, scripts: a.scripts},
		Effects: a.effects,
		Cost:    a.shiftCost,
	})
	if err != nil {
		return fmt.Errorf("build level %s: %w", spec.Name, err)
	}
	a.prefabs, a.level = prefabs, lv
	a.log.Info("level built", zap.String("level", spec.Name), zap.Int("actors", len(lv.Actors())))
	return nil
}

// ReloadLevel rebuilds the level from disk. A level that fails to load
// leaves the running one alone.
func (a *app) ReloadLevel() error {
	if _, err := data.LoadLevel(a.cfg.Data.LevelFile); err != nil {
		return err
	}
	if _, err := data.LoadPrefabTable(a.cfg.Data.PrefabsFile); err != nil {
		return err
	}
	old := a.level
	if old != nil {
		old.Teardown()
		a.env.World.ECS().FlushDestroyQueue()
	}
	if err := a.build(); err != nil {
		a.level = nil
		return err
	}
	return nil
}

func (a *app) ReloadScripts() error {
	return a.scripts.Reload()
}

func (a *app) shiftCost(ws shift.WorldShift, base float64) float64 {
	ctx := scripting.ShiftCostContext{
		From:      ws.From.String(),
		To:        ws.To.String(),
		LoopCount: a.memory.LoopCount(),
		Base:      base,
	}
	if a.level != nil && a.level.Player() != nil {
		h := a.level.Player().Health()
		ctx.Health, ctx.MaxHealth = h.Health(), h.Max()
	}
	return a.scripts.CalcShiftCost(ctx)
}

// scriptedHints lets scripts move a hint's unlock loop before it is stored.
type scriptedHints struct {
	mem     *loop.Memory
	scripts *scripting.Engine
}

func (s scriptedHints) AddHint(id, text string, persistent bool, state loop.TemporalState, unlockLoop int) bool {
	if s.scripts != nil {
		unlockLoop = s.scripts.HintUnlockLoop(id, s.mem.LoopCount(), unlockLoop)
	}
	return s.mem.AddHint(id, text, persistent, state, unlockLoop)
}

// orchestratorOptions maps the [world] section onto orchestrator options.
func orchestratorOptions(cfg config.WorldConfig) (shift.Options, error) {
	opts := shift.DefaultOptions()
	w, err := shift.ParseWorld(cfg.StartWorld)
	if err != nil {
		return opts, fmt.Errorf("world.start_world: %w", err)
	}
	opts.StartWorld = w
	opts.CycleInterval = cfg.CycleInterval
	opts.PreWarningTime = cfg.PreWarningTime
	opts.BlendTime = cfg.BlendTime
	if len(cfg.Feedback) > 0 {
		opts.Feedback = make(map[shift.WorldState]shift.WorldFeedback, len(cfg.Feedback))
		for name, fb := range cfg.Feedback {
			w, err := shift.ParseWorld(name)
			if err != nil {
				return opts, fmt.Errorf("world.feedback: %w", err)
			}
			opts.Feedback[w] = shift.WorldFeedback{PostProcess: fb.PostProcess, SoundMix: fb.SoundMix}
		}
	}
	return opts, nil
}

// effectsConfig maps the [effects] section onto the shift effects config.
func effectsConfig(cfg config.EffectsConfig) (actor.ShiftEffectsConfig, error) {
	out := actor.DefaultShiftEffectsConfig()
	out.HealthCost = cfg.HealthCost
	if cfg.FlashDuration > 0 {
		out.FlashDuration = cfg.FlashDuration
	}
	var err error
	if out.Sounds, err = data.WorldStrings(cfg.Sounds).Resolve(); err != nil {
		return out, fmt.Errorf("effects.sounds: %w", err)
	}
	if out.Particles, err = data.WorldStrings(cfg.Particles).Resolve(); err != nil {
		return out, fmt.Errorf("effects.particles: %w", err)
	}
	if len(cfg.Colors) > 0 {
		out.Colors = make(map[shift.WorldState]host.Color, len(cfg.Colors))
		for name, c := range cfg.Colors {
			w, err := shift.ParseWorld(name)
			if err != nil {
				return out, fmt.Errorf("effects.colors: %w", err)
			}
			out.Colors[w] = host.Color{R: c[0], G: c[1], B: c[2], A: 1}
		}
	}
	return out, nil
}
