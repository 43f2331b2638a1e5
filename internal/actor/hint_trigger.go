package actor

import (
	"time"

	"go.uber.org/zap"

	"github.com/threeworlds/loopshift/internal/core/ecs"
	"github.com/threeworlds/loopshift/internal/core/event"
	"github.com/threeworlds/loopshift/internal/core/sched"
	"github.com/threeworlds/loopshift/internal/loop"
)

// MinDialogLine is the shortest gap between two dialog lines.
const MinDialogLine = 100 * time.Millisecond

// HintSink stores hints. *loop.Memory satisfies it.
type HintSink interface {
	AddHint(id, text string, persistent bool, state loop.TemporalState, unlockLoop int) bool
}

// DialogLine is one voiced line played when a hint fires.
type DialogLine struct {
	Sound    string
	Duration time.Duration
}

type HintTriggerConfig struct {
	Name           string
	HintID         string
	Text           string
	Persistent     bool
	State          loop.TemporalState
	LoopToUnlock   int
	TriggerSound   string
	AllowRetrigger bool
	Dialog         []DialogLine
}

// DefaultHintTriggerConfig records hints in the Future.
func DefaultHintTriggerConfig() HintTriggerConfig {
	return HintTriggerConfig{State: loop.Future}
}

// HintTrigger records a hint in loop memory when the player walks in.
type HintTrigger struct {
	cfg       HintTriggerConfig
	env       Env
	id        ecs.EntityID
	hints     HintSink
	triggered bool

	dialogIdx   int
	dialogTimer sched.Handle

	// Triggered carries the hint id after a successful trigger.
	Triggered event.Signal[string]
	// DialogPlayed carries each dialog sound as it starts.
	DialogPlayed event.Signal[string]
}

func NewHintTrigger(env Env, id ecs.EntityID, cfg HintTriggerConfig, hints HintSink) *HintTrigger {
	t := &HintTrigger{cfg: cfg, env: env, id: id, hints: hints}
	env.World.Attach(id, t)
	return t
}

func (t *HintTrigger) ID() ecs.EntityID { return t.id }

// Spent reports whether the trigger will ignore further overlaps.
func (t *HintTrigger) Spent() bool { return t.triggered && !t.cfg.AllowRetrigger }

func (t *HintTrigger) BeginOverlap(other ecs.EntityID) {
	if t.Spent() || !t.env.World.IsPlayer(other) || t.hints == nil {
		return
	}
	added := t.hints.AddHint(t.cfg.HintID, t.cfg.Text, t.cfg.Persistent, t.cfg.State, t.cfg.LoopToUnlock)
	t.env.Log.Info("hint triggered",
		zap.String("hint", t.cfg.HintID),
		zap.Bool("added", added))
	if !added && !t.cfg.AllowRetrigger {
		t.triggered = true
		return
	}
	t.env.sound(t.cfg.TriggerSound, t.env.location(t.id))
	t.beginDialog()
	t.Triggered.Emit(t.cfg.HintID)
	t.triggered = !t.cfg.AllowRetrigger
}

func (t *HintTrigger) EndOverlap(ecs.EntityID) {}

func (t *HintTrigger) beginDialog() {
	t.stopDialog()
	if len(t.cfg.Dialog) == 0 {
		return
	}
	t.dialogIdx = 0
	t.playNext()
}

func (t *HintTrigger) playNext() {
	t.dialogTimer = 0
	for t.dialogIdx < len(t.cfg.Dialog) {
		line := t.cfg.Dialog[t.dialogIdx]
		t.dialogIdx++
		if line.Sound == "" {
			continue
		}
		t.env.sound(line.Sound, t.env.location(t.id))
		t.DialogPlayed.Emit(line.Sound)
		if t.dialogIdx < len(t.cfg.Dialog) {
			t.dialogTimer = t.env.Sched.After(max(line.Duration, MinDialogLine), t.playNext)
		}
		return
	}
}

func (t *HintTrigger) stopDialog() {
	if t.dialogTimer != 0 {
		t.env.Sched.Cancel(t.dialogTimer)
		t.dialogTimer = 0
	}
}

func (t *HintTrigger) Teardown() { t.stopDialog() }
