package actor

import (
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/threeworlds/loopshift/internal/core/ecs"
	"github.com/threeworlds/loopshift/internal/core/event"
	"github.com/threeworlds/loopshift/internal/core/sched"
	"github.com/threeworlds/loopshift/internal/host"
	"github.com/threeworlds/loopshift/internal/shift"
	"github.com/threeworlds/loopshift/internal/world"
)

// ButtonStyle is the idle and pressed tint for one world.
type ButtonStyle struct {
	Idle    host.Color
	Pressed host.Color
}

// ButtonConfig tunes a button.
type ButtonConfig struct {
	Name               string
	AutoPressOnOverlap bool
	AutoReset          bool
	ResetDelay         time.Duration
	CanBePressedOnce   bool
	DestroyAfterUse    bool
	TargetTag          string
	FindNearestOnly    bool
	ColorParameter     string
	PressSound         string
	PressEffect        string
	Styles             map[shift.WorldState]ButtonStyle
	DefaultStyle       ButtonStyle
}

// DefaultButtonConfig returns an auto-resetting button with the stock
// per-world palette.
func DefaultButtonConfig() ButtonConfig {
	return ButtonConfig{
		AutoReset:      true,
		ResetDelay:     1500 * time.Millisecond,
		ColorParameter: "ButtonColor",
		DefaultStyle:   ButtonStyle{Idle: rgb(0.3, 0.3, 0.3), Pressed: rgb(0.08, 0.08, 0.08)},
		Styles: map[shift.WorldState]ButtonStyle{
			shift.Light:  {Idle: rgb(0.95, 0.84, 0.32), Pressed: rgb(0.85, 0.6, 0.1)},
			shift.Shadow: {Idle: rgb(0.2, 0.22, 0.35), Pressed: rgb(0.05, 0.05, 0.18)},
			shift.Chaos:  {Idle: rgb(0.8, 0.3, 0.9), Pressed: rgb(0.95, 0.1, 0.25)},
		},
	}
}

func rgb(r, g, b float64) host.Color { return host.Color{R: r, G: g, B: b, A: 1} }

// ButtonPress is the payload of Button.Pressed.
type ButtonPress struct {
	Button *Button
	By     ecs.EntityID
}

// Button notifies its linked Interactable targets when pressed. It can only
// be pressed while its behavior is currently solid.
type Button struct {
	cfg      ButtonConfig
	env      Env
	id       ecs.EntityID
	behavior *shift.Behavior
	tint     host.Tintable

	pressed      bool
	pressedOnce  bool
	interactable bool
	visualWorld  shift.WorldState
	resetTimer   sched.Handle

	targets     []ecs.EntityID
	overlapping map[ecs.EntityID]struct{}
	subs        event.Subscriptions

	Pressed event.Signal[ButtonPress]
	Reset   event.Signal[*Button]
}

// NewButton attaches a button to actor id. behavior and tint may be nil; a
// button without a behavior is always interactable.
func NewButton(env Env, id ecs.EntityID, cfg ButtonConfig, behavior *shift.Behavior, tint host.Tintable) *Button {
	b := &Button{
		cfg:          cfg,
		env:          env,
		id:           id,
		behavior:     behavior,
		tint:         tint,
		interactable: true,
		overlapping:  make(map[ecs.EntityID]struct{}, 2),
	}
	if behavior != nil {
		event.Bind(&b.subs, &behavior.StateChanged, func(shift.BehaviorChange) { b.syncBehavior() })
		event.Bind(&b.subs, &behavior.MaterialChanged, func(shift.MaterialState) { b.syncBehavior() })
		b.syncBehavior()
	} else {
		b.refreshVisuals()
	}
	env.World.Attach(id, b)
	return b
}

func (b *Button) ID() ecs.EntityID     { return b.id }
func (b *Button) Name() string         { return b.cfg.Name }
func (b *Button) IsPressed() bool      { return b.pressed }
func (b *Button) IsInteractable() bool { return b.interactable }

// Targets returns the linked targets.
func (b *Button) Targets() []ecs.EntityID { return slices.Clone(b.targets) }

// CanBePressed reports whether a press would be accepted now.
func (b *Button) CanBePressed() bool {
	if !b.interactable {
		return false
	}
	spent := b.cfg.CanBePressedOnce && b.pressedOnce
	if b.pressed && (!b.cfg.AutoReset || spent) {
		return false
	}
	return !spent
}

// PressButton presses on behalf of presser (zero for scripted presses).
func (b *Button) PressButton(presser ecs.EntityID) bool {
	if !b.CanBePressed() {
		return false
	}
	b.cancelReset()
	b.pressed = true
	b.pressedOnce = true
	b.refreshVisuals()

	at := b.env.location(b.id)
	b.env.sound(b.cfg.PressSound, at)
	b.env.particle(b.cfg.PressEffect, at)

	b.Pressed.Emit(ButtonPress{Button: b, By: presser})
	b.notifyTargets()

	if b.cfg.CanBePressedOnce && b.cfg.DestroyAfterUse {
		b.env.World.Despawn(b.id)
		return true
	}
	if b.cfg.AutoReset && !b.cfg.CanBePressedOnce {
		if b.cfg.ResetDelay <= 0 {
			b.ResetButton()
		} else {
			b.resetTimer = b.env.Sched.After(b.cfg.ResetDelay, func() {
				b.resetTimer = 0
				b.ResetButton()
			})
		}
	}
	return true
}

// ResetButton releases a pressed button. A spent one-shot button stays
// pressed.
func (b *Button) ResetButton() bool {
	if b.cfg.CanBePressedOnce && b.pressedOnce {
		return false
	}
	b.cancelReset()
	if !b.pressed {
		return false
	}
	b.pressed = false
	b.refreshVisuals()
	b.Reset.Emit(b)
	return true
}

// ForceResetButton releases the button and re-arms a one-shot button.
func (b *Button) ForceResetButton() {
	b.cancelReset()
	b.pressed = false
	b.pressedOnce = false
	b.refreshVisuals()
	b.Reset.Emit(b)
}

// LinkTargets sets the manual links. Entries that are not Interactable are
// dropped.
func (b *Button) LinkTargets(ids ...ecs.EntityID) {
	for _, id := range ids {
		b.RegisterLinkedTarget(id)
	}
}

// RegisterLinkedTarget adds one target at runtime.
func (b *Button) RegisterLinkedTarget(id ecs.EntityID) bool {
	if id == b.id || !b.env.World.Alive(id) || slices.Contains(b.targets, id) {
		return false
	}
	if _, ok := world.Find[Interactable](b.env.World, id); !ok {
		b.env.Log.Debug("link target is not interactable",
			zap.String("button", b.cfg.Name),
			zap.String("target", b.env.World.Name(id)))
		return false
	}
	b.targets = append(b.targets, id)
	return true
}

// DiscoverLinkedTargets links Interactable actors carrying TargetTag. It
// does nothing when manual links exist or no tag is configured.
func (b *Button) DiscoverLinkedTargets() int {
	if len(b.targets) > 0 || b.cfg.TargetTag == "" {
		return 0
	}
	candidates := b.env.World.WithTag(b.cfg.TargetTag)
	origin := b.env.location(b.id)
	var nearest ecs.EntityID
	best := 0.0
	for _, id := range candidates {
		if id == b.id {
			continue
		}
		if _, ok := world.Find[Interactable](b.env.World, id); !ok {
			continue
		}
		if !b.cfg.FindNearestOnly {
			b.targets = append(b.targets, id)
			continue
		}
		d := origin.Dist(b.env.location(id))
		if nearest.IsZero() || d < best {
			nearest, best = id, d
		}
	}
	if !nearest.IsZero() {
		b.targets = append(b.targets, nearest)
	}
	if len(b.targets) == 0 {
		b.env.Log.Warn("no button targets found",
			zap.String("button", b.cfg.Name),
			zap.String("tag", b.cfg.TargetTag))
	}
	return len(b.targets)
}

func (b *Button) notifyTargets() {
	for _, id := range slices.Clone(b.targets) {
		if t, ok := world.Find[Interactable](b.env.World, id); ok {
			t.OnButtonActivated(b)
		}
	}
}

// BeginOverlap tracks the actor and auto-presses for the player.
func (b *Button) BeginOverlap(other ecs.EntityID) {
	if other == b.id {
		return
	}
	b.pruneOverlaps()
	b.overlapping[other] = struct{}{}
	if b.cfg.AutoPressOnOverlap && b.env.World.IsPlayer(other) {
		b.PressButton(other)
	}
}

func (b *Button) EndOverlap(other ecs.EntityID) {
	delete(b.overlapping, other)
	b.pruneOverlaps()
}

// IsOverlapping reports whether id is standing on the button.
func (b *Button) IsOverlapping(id ecs.EntityID) bool {
	if !b.env.World.Alive(id) {
		return false
	}
	_, ok := b.overlapping[id]
	return ok
}

func (b *Button) pruneOverlaps() {
	for id := range b.overlapping {
		if !b.env.World.Alive(id) {
			delete(b.overlapping, id)
		}
	}
}

func (b *Button) syncBehavior() {
	b.visualWorld = b.behavior.CurrentWorld()
	b.interactable = b.behavior.IsCurrentlySolid()
	b.refreshVisuals()
}

// Style returns the style used for w.
func (b *Button) Style(w shift.WorldState) ButtonStyle {
	if s, ok := b.cfg.Styles[w]; ok {
		return s
	}
	return b.cfg.DefaultStyle
}

func (b *Button) refreshVisuals() {
	if b.tint == nil || b.cfg.ColorParameter == "" {
		return
	}
	s := b.Style(b.visualWorld)
	c := s.Idle
	if b.pressed {
		c = s.Pressed
	}
	b.tint.SetColorParameter(b.cfg.ColorParameter, c)
}

func (b *Button) cancelReset() {
	if b.resetTimer != 0 {
		b.env.Sched.Cancel(b.resetTimer)
		b.resetTimer = 0
	}
}

// Teardown cancels the pending reset and drops subscriptions.
func (b *Button) Teardown() {
	b.cancelReset()
	b.subs.Cancel()
}
