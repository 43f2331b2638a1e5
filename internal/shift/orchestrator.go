package shift

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/threeworlds/loopshift/internal/core/event"
	"github.com/threeworlds/loopshift/internal/core/sched"
	"github.com/threeworlds/loopshift/internal/host"
	"go.uber.org/zap"
)

// ErrOrchestratorExists is returned when a simulation already has one.
var ErrOrchestratorExists = errors.New("simulation already has an orchestrator")

// SessionID distinguishes simulations living in the same process.
type SessionID uint64

var sessionSeq atomic.Uint64

// Simulation is the context a level runs in: its timer queue and its single
// orchestrator. Checkpoints are minted by a simulation and only accepted by
// the orchestrator of the same one.
type Simulation struct {
	id    SessionID
	sched *sched.Scheduler
	orch  *Orchestrator
}

func NewSimulation(s *sched.Scheduler) *Simulation {
	return &Simulation{id: SessionID(sessionSeq.Add(1)), sched: s}
}

func (s *Simulation) ID() SessionID               { return s.id }
func (s *Simulation) Scheduler() *sched.Scheduler { return s.sched }

// Orchestrator returns the simulation's orchestrator, or nil before one is
// created.
func (s *Simulation) Orchestrator() *Orchestrator {
	if s == nil {
		return nil
	}
	return s.orch
}

// Checkpoint is a reset destination.
type Checkpoint struct {
	Name     string
	Location host.Vec3
	session  SessionID
}

// NewCheckpoint mints a checkpoint owned by this simulation.
func (s *Simulation) NewCheckpoint(name string, loc host.Vec3) *Checkpoint {
	return &Checkpoint{Name: name, Location: loc, session: s.id}
}

// Session reports the simulation that minted the checkpoint.
func (c *Checkpoint) Session() SessionID { return c.session }

// ShiftReason says why the world changed.
type ShiftReason uint8

const (
	ReasonInitial ShiftReason = iota
	ReasonManual
	ReasonReset
)

func (r ShiftReason) String() string {
	switch r {
	case ReasonInitial:
		return "initial"
	case ReasonManual:
		return "manual"
	case ReasonReset:
		return "reset"
	}
	return "unknown"
}

// WorldShift is the payload of every world-change broadcast.
type WorldShift struct {
	From   WorldState
	To     WorldState
	Reason ShiftReason
}

// LoopKeeper is the loop memory as seen by the reset flow.
type LoopKeeper interface {
	ClearHintsOnReset()
	IncrementLoopCount()
}

// WorldFeedback is the ambience applied when a world becomes current.
type WorldFeedback struct {
	PostProcess string
	SoundMix    string
}

// Options configure an orchestrator.
type Options struct {
	StartWorld     WorldState
	CycleInterval  time.Duration
	PreWarningTime time.Duration
	BlendTime      time.Duration
	Feedback       map[WorldState]WorldFeedback
}

// DefaultOptions mirror the shipped level tuning.
func DefaultOptions() Options {
	return Options{
		StartWorld:     Light,
		CycleInterval:  2 * time.Second,
		PreWarningTime: 500 * time.Millisecond,
		BlendTime:      350 * time.Millisecond,
	}
}

// Orchestrator is the single source of truth for the current world. It owns
// the timed-solid cycle and runs the reset-to-checkpoint flow. All methods
// are no-ops on a nil orchestrator.
type Orchestrator struct {
	sim      *Simulation
	log      *zap.Logger
	cycle    *TimedSolidCycle
	memory   LoopKeeper
	ambience host.Ambience
	opts     Options

	current  WorldState
	started  bool
	shifting bool
	pending  *WorldState

	player   host.Body
	active   *Checkpoint
	fallback *Checkpoint
	spawn    *host.Vec3

	// WorldShifted fires synchronously once per effective world change.
	WorldShifted event.Signal[WorldShift]
	// Reset fires once a reset has relocated the player.
	Reset event.Signal[struct{}]
}

// NewOrchestrator binds the orchestrator to sim. memory and ambience may be
// nil.
func NewOrchestrator(sim *Simulation, opts Options, memory LoopKeeper, ambience host.Ambience, log *zap.Logger) (*Orchestrator, error) {
	if sim.orch != nil {
		return nil, ErrOrchestratorExists
	}
	if !opts.StartWorld.Valid() {
		opts.StartWorld = Light
	}
	o := &Orchestrator{
		sim:      sim,
		log:      log,
		cycle:    NewTimedSolidCycle(sim.sched, opts.CycleInterval, opts.PreWarningTime),
		memory:   memory,
		ambience: ambience,
		opts:     opts,
		current:  opts.StartWorld,
	}
	sim.orch = o
	return o, nil
}

func (o *Orchestrator) ready() bool { return o != nil && o.sim != nil }

// Simulation returns the owning simulation.
func (o *Orchestrator) Simulation() *Simulation {
	if o == nil {
		return nil
	}
	return o.sim
}

// CurrentWorld returns the active world (Light when there is no orchestrator).
func (o *Orchestrator) CurrentWorld() WorldState {
	if !o.ready() {
		return Light
	}
	return o.current
}

// TimedSolidPhase returns the global phase; true without an orchestrator.
func (o *Orchestrator) TimedSolidPhase() bool {
	if !o.ready() {
		return true
	}
	return o.cycle.Phase()
}

// Cycle exposes the timed-solid cycle for subscription.
func (o *Orchestrator) Cycle() *TimedSolidCycle {
	if !o.ready() {
		return nil
	}
	return o.cycle
}

// Started reports whether Begin has run.
func (o *Orchestrator) Started() bool { return o.ready() && o.started }

// Begin puts the start world in place, announces it and starts the cycle.
// Objects bound before Begin receive the initial broadcast.
func (o *Orchestrator) Begin() {
	if !o.ready() || o.started {
		return
	}
	o.started = true
	from := o.current
	o.current = o.opts.StartWorld
	o.applyFeedback(o.current)
	o.broadcast(WorldShift{From: from, To: o.current, Reason: ReasonInitial})
	o.cycle.Start()
	o.log.Info("world started",
		zap.Stringer("world", o.current),
		zap.Duration("cycle_interval", o.cycle.Interval()))
}

// End stops the cycle. Subscribers stay registered.
func (o *Orchestrator) End() {
	if !o.ready() || !o.started {
		return
	}
	o.cycle.Stop()
	o.started = false
}

// SetWorld switches to target and broadcasts synchronously. Switching to the
// current world does nothing. A SetWorld issued by a subscriber during a
// broadcast is applied after the running broadcast completes.
func (o *Orchestrator) SetWorld(target WorldState) {
	o.setWorld(target, ReasonManual)
}

func (o *Orchestrator) setWorld(target WorldState, reason ShiftReason) {
	if !o.ready() || !target.Valid() {
		return
	}
	if o.shifting {
		t := target
		o.pending = &t
		return
	}
	if target == o.current {
		return
	}
	from := o.current
	o.current = target
	o.applyFeedback(target)
	o.broadcast(WorldShift{From: from, To: target, Reason: reason})
	o.log.Debug("world shifted",
		zap.Stringer("from", from),
		zap.Stringer("to", target),
		zap.Stringer("reason", reason))
}

// CycleWorld steps |direction| worlds forward (positive) or back (negative)
// and broadcasts once with the final world.
func (o *Orchestrator) CycleWorld(direction int) {
	if !o.ready() || direction == 0 {
		return
	}
	o.SetWorld(o.current.Step(direction))
}

// SetPlayer binds the body relocated on reset.
func (o *Orchestrator) SetPlayer(b host.Body) {
	if !o.ready() {
		return
	}
	o.player = b
}

// SetResetCheckpoint makes cp the reset destination. Checkpoints minted by
// another simulation are rejected.
func (o *Orchestrator) SetResetCheckpoint(cp *Checkpoint) bool {
	if !o.ready() || cp == nil || cp.session != o.sim.id {
		return false
	}
	o.active = cp
	return true
}

// SetDefaultCheckpoint sets the destination used when no checkpoint is active.
func (o *Orchestrator) SetDefaultCheckpoint(cp *Checkpoint) bool {
	if !o.ready() || cp == nil || cp.session != o.sim.id {
		return false
	}
	o.fallback = cp
	return true
}

// SetSpawnPoint sets the last-resort reset destination.
func (o *Orchestrator) SetSpawnPoint(loc host.Vec3) {
	if !o.ready() {
		return
	}
	o.spawn = &loc
}

// ResetCheckpoint returns the active checkpoint, if any.
func (o *Orchestrator) ResetCheckpoint() *Checkpoint {
	if !o.ready() {
		return nil
	}
	return o.active
}

// ResetWorld ends the current loop: it ages hints and bumps the loop count,
// restarts the timed-solid cycle on a fresh solid phase, forces the start
// world, relocates the player and kills its velocity. Loop memory is updated
// before the world broadcast so world-change listeners see the new hints.
func (o *Orchestrator) ResetWorld() {
	if !o.ready() {
		return
	}
	if o.memory != nil {
		o.memory.ClearHintsOnReset()
		o.memory.IncrementLoopCount()
	}

	if o.started {
		o.cycle.Reset()
	} else {
		o.cycle.solid()
	}

	from := o.current
	o.current = o.opts.StartWorld
	o.applyFeedback(o.current)
	// Broadcast even when the world did not change: every object must
	// re-resolve against the restarted phase.
	o.broadcast(WorldShift{From: from, To: o.current, Reason: ReasonReset})

	if o.player != nil {
		if loc, ok := o.resetLocation(); ok {
			o.player.SetLocation(loc)
		}
		o.player.StopMovement()
	}
	o.Reset.Emit(struct{}{})
	o.log.Info("world reset", zap.Stringer("world", o.current))
}

func (o *Orchestrator) resetLocation() (host.Vec3, bool) {
	switch {
	case o.active != nil:
		return o.active.Location, true
	case o.fallback != nil:
		return o.fallback.Location, true
	case o.spawn != nil:
		return *o.spawn, true
	}
	return host.Vec3{}, false
}

func (o *Orchestrator) applyFeedback(w WorldState) {
	if o.ambience == nil {
		return
	}
	fb, ok := o.opts.Feedback[w]
	if !ok {
		return
	}
	o.ambience.ApplyPostProcess(fb.PostProcess, o.opts.BlendTime)
	o.ambience.PushSoundMix(fb.SoundMix)
}

// broadcast fans ws out. Only the outermost broadcast applies a pending
// SetWorld, so a reset issued by a subscriber cannot reopen the window for
// later subscribers.
func (o *Orchestrator) broadcast(ws WorldShift) {
	outer := o.shifting
	o.shifting = true
	o.WorldShifted.Emit(ws)
	o.shifting = outer
	if outer {
		return
	}
	if p := o.pending; p != nil {
		o.pending = nil
		o.setWorld(*p, ReasonManual)
	}
}
