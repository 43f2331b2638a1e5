package actor

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/threeworlds/loopshift/internal/core/ecs"
	"github.com/threeworlds/loopshift/internal/core/sched"
	"github.com/threeworlds/loopshift/internal/host"
	"github.com/threeworlds/loopshift/internal/loop"
	"github.com/threeworlds/loopshift/internal/shift"
	"github.com/threeworlds/loopshift/internal/world"
)

type rig struct {
	ecs   *ecs.World
	sched *sched.Scheduler
	orch  *shift.Orchestrator
	fx    *host.Recorder
	env   Env
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{ecs: ecs.NewWorld(), sched: sched.New(), fx: host.NewRecorder()}
	sim := shift.NewSimulation(r.sched)
	o, err := shift.NewOrchestrator(sim, shift.DefaultOptions(), nil, nil, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	r.orch = o
	r.env = Env{
		World: world.NewState(r.ecs),
		Sched: r.sched,
		Orch:  o,
		FX:    r.fx,
		Log:   zap.NewNop(),
	}
	return r
}

// behavior builds a bound behavior for the given map.
func (r *rig) behavior(t *testing.T, m shift.BehaviorMap, mesh host.Mesh) *shift.Behavior {
	t.Helper()
	b := shift.NewBehavior(shift.BehaviorConfig{Name: "test", Behaviors: m}, nil, mesh, nil)
	b.Bind(r.orch)
	return b
}

func (r *rig) player(t *testing.T) (ecs.EntityID, *Health) {
	t.Helper()
	id := r.env.World.Spawn("player", world.KindPlayer, host.Vec3{})
	h := NewHealth(0)
	NewPlayer(r.env, id, h)
	return id, h
}

func TestHealth_ClampAndDeathOnce(t *testing.T) {
	h := NewHealth(0)
	deaths := 0
	h.Died.Subscribe(func(struct{}) { deaths++ })

	if h.Heal(5) {
		t.Fatal("heal at full health must report no change")
	}
	if h.ApplyDamage(-3) || h.ApplyDamage(0) {
		t.Fatal("non-positive damage must be ignored")
	}
	h.ApplyDamage(150)
	h.ApplyDamage(10)
	if h.Health() != 0 || deaths != 1 {
		t.Fatalf("health %v deaths %d", h.Health(), deaths)
	}
	h.Heal(30)
	h.ApplyDamage(30)
	if deaths != 2 {
		t.Fatalf("second crossing to zero should fire Died again, got %d", deaths)
	}
	h.SetHealth(250)
	if h.Health() != DefaultMaxHealth || h.Fraction() != 1 {
		t.Fatalf("SetHealth not clamped: %v", h.Health())
	}
}

func TestButton_PressNotifiesTargetsAndAutoResets(t *testing.T) {
	r := newRig(t)
	r.orch.Begin()
	doorID := r.env.World.Spawn("door", world.KindDoor, host.Vec3{X: 5}, "gate")
	door := NewDoor(r.env, doorID, DoorConfig{}, nil, host.NewRecorder())

	btnID := r.env.World.Spawn("btn", world.KindButton, host.Vec3{})
	tint := host.NewRecorder()
	cfg := DefaultButtonConfig()
	cfg.TargetTag = "gate"
	btn := NewButton(r.env, btnID, cfg, r.behavior(t, SolidIn(shift.Light), nil), tint)
	if n := btn.DiscoverLinkedTargets(); n != 1 {
		t.Fatalf("discovered %d targets", n)
	}

	if !btn.PressButton(0) {
		t.Fatal("press rejected in Light")
	}
	if !door.ForcedOpen() || door.IsBlocking() {
		t.Fatal("door did not open")
	}
	if tint.Colors["ButtonColor"] != cfg.Styles[shift.Light].Pressed {
		t.Fatal("pressed color not applied")
	}
	r.sched.Advance(time.Second)
	if !btn.PressButton(0) {
		t.Fatal("auto-reset button should accept a repeat press")
	}
	r.sched.Advance(time.Second)
	if !btn.IsPressed() {
		t.Fatal("repeat press must re-arm the reset timer")
	}
	r.sched.Advance(600 * time.Millisecond)
	if btn.IsPressed() {
		t.Fatal("button did not auto-reset")
	}
}

func TestButton_OnlyInteractableWhileSolid(t *testing.T) {
	r := newRig(t)
	r.orch.Begin()
	id := r.env.World.Spawn("btn", world.KindButton, host.Vec3{})
	btn := NewButton(r.env, id, DefaultButtonConfig(), r.behavior(t, SolidIn(shift.Light), nil), nil)

	r.orch.SetWorld(shift.Shadow)
	if btn.CanBePressed() || btn.PressButton(0) {
		t.Fatal("ghost button accepted a press")
	}
	r.orch.SetWorld(shift.Light)
	if !btn.CanBePressed() {
		t.Fatal("button not interactable back in Light")
	}
}

func TestButton_OneShotDestroyAfterUse(t *testing.T) {
	r := newRig(t)
	r.orch.Begin()
	id := r.env.World.Spawn("btn", world.KindButton, host.Vec3{})
	cfg := DefaultButtonConfig()
	cfg.CanBePressedOnce = true
	cfg.DestroyAfterUse = true
	btn := NewButton(r.env, id, cfg, nil, nil)

	if !btn.PressButton(0) {
		t.Fatal("first press rejected")
	}
	if btn.PressButton(0) || btn.ResetButton() {
		t.Fatal("spent one-shot button reacted")
	}
	r.ecs.FlushDestroyQueue()
	if r.env.World.Alive(id) {
		t.Fatal("button not destroyed after use")
	}
	btn.ForceResetButton()
	if btn.IsPressed() || !btn.CanBePressed() {
		t.Fatal("force reset did not re-arm")
	}
}

func TestButton_AutoPressOnPlayerOverlap(t *testing.T) {
	r := newRig(t)
	r.orch.Begin()
	pid, _ := r.player(t)
	rock := r.env.World.Spawn("rock", world.KindPlatform, host.Vec3{})
	id := r.env.World.Spawn("btn", world.KindButton, host.Vec3{})
	cfg := DefaultButtonConfig()
	cfg.AutoPressOnOverlap = true
	cfg.PressSound = "click"
	btn := NewButton(r.env, id, cfg, nil, nil)

	r.env.World.BeginOverlap(rock, id)
	if btn.IsPressed() {
		t.Fatal("non-player overlap pressed the button")
	}
	r.env.World.BeginOverlap(pid, id)
	if !btn.IsPressed() || !btn.IsOverlapping(pid) {
		t.Fatal("player overlap did not press")
	}
	if len(r.fx.Sounds) != 1 || r.fx.Sounds[0] != "click" {
		t.Fatalf("sounds %v", r.fx.Sounds)
	}
	r.env.World.EndOverlap(pid, id)
	if btn.IsOverlapping(pid) {
		t.Fatal("overlap not cleared")
	}
}

func TestButton_ManualLinksSkipDiscovery(t *testing.T) {
	r := newRig(t)
	a := r.env.World.Spawn("a", world.KindDoor, host.Vec3{X: 1}, "gate")
	b := r.env.World.Spawn("b", world.KindDoor, host.Vec3{X: 9}, "gate")
	NewDoor(r.env, a, DoorConfig{}, nil, nil)
	NewDoor(r.env, b, DoorConfig{}, nil, nil)
	plain := r.env.World.Spawn("plain", world.KindPlatform, host.Vec3{})

	id := r.env.World.Spawn("btn", world.KindButton, host.Vec3{})
	cfg := DefaultButtonConfig()
	cfg.TargetTag = "gate"
	btn := NewButton(r.env, id, cfg, nil, nil)
	btn.LinkTargets(b, plain, b)
	if got := btn.Targets(); len(got) != 1 || got[0] != b {
		t.Fatalf("targets %v", got)
	}
	if btn.DiscoverLinkedTargets() != 0 {
		t.Fatal("discovery ran despite manual links")
	}

	near := NewButton(r.env, r.env.World.Spawn("btn2", world.KindButton, host.Vec3{}), cfg, nil, nil)
	nearCfg := cfg
	nearCfg.FindNearestOnly = true
	nearest := NewButton(r.env, r.env.World.Spawn("btn3", world.KindButton, host.Vec3{}), nearCfg, nil, nil)
	if near.DiscoverLinkedTargets() != 2 {
		t.Fatal("tag discovery should link every tagged target")
	}
	if nearest.DiscoverLinkedTargets() != 1 || nearest.Targets()[0] != a {
		t.Fatalf("nearest-only linked %v", nearest.Targets())
	}
}

func TestDoor_FollowsMaterialState(t *testing.T) {
	r := newRig(t)
	r.orch.Begin()
	mesh := host.NewRecorder()
	id := r.env.World.Spawn("door", world.KindDoor, host.Vec3{})
	door := NewDoor(r.env, id, DoorConfig{Sound: "thud"}, r.behavior(t, SolidIn(shift.Light), nil), mesh)

	if !door.IsBlocking() || !mesh.Solid() {
		t.Fatal("door should block in Light")
	}
	r.orch.SetWorld(shift.Shadow)
	if door.IsBlocking() || mesh.Visible || mesh.Collision {
		t.Fatal("door should be hidden and passable in Shadow")
	}
	r.orch.SetWorld(shift.Chaos)
	if len(r.fx.Sounds) != 1 {
		t.Fatalf("sound should play once per material change, got %v", r.fx.Sounds)
	}
}

func TestDoor_ButtonToggleAnimates(t *testing.T) {
	r := newRig(t)
	id := r.env.World.Spawn("door", world.KindDoor, host.Vec3{})
	door := NewDoor(r.env, id, DoorConfig{OpenTime: 500 * time.Millisecond}, nil, nil)

	door.OnButtonActivated(nil)
	if !door.IsBlocking() || !door.Animating() {
		t.Fatal("door should still block while opening")
	}
	r.sched.Advance(300 * time.Millisecond)
	door.OnButtonActivated(nil)
	r.sched.Advance(300 * time.Millisecond)
	if !door.Animating() {
		t.Fatal("second toggle must restart the animation")
	}
	r.sched.Advance(300 * time.Millisecond)
	if door.Animating() || !door.IsBlocking() || door.ForcedOpen() {
		t.Fatal("two toggles should leave the door closed")
	}
}

func TestHazard_DamagesOnContactOnlyWhileSolid(t *testing.T) {
	r := newRig(t)
	r.orch.Begin()
	pid, hp := r.player(t)
	id := r.env.World.Spawn("spikes", world.KindHazard, host.Vec3{})
	hz := NewHazard(r.env, id, DefaultHazardConfig(), r.behavior(t, SolidIn(shift.Light), nil))

	r.env.World.BeginOverlap(pid, id)
	if hp.Health() != 80 {
		t.Fatalf("health %v, want 80", hp.Health())
	}
	r.env.World.EndOverlap(pid, id)

	r.orch.SetWorld(shift.Shadow)
	if hz.Active() {
		t.Fatal("hazard active in a ghost world")
	}
	r.env.World.BeginOverlap(pid, id)
	if hp.Health() != 80 {
		t.Fatal("inactive hazard dealt damage")
	}
	r.orch.SetWorld(shift.Light)
	if hp.Health() != 60 {
		t.Fatalf("activation should damage actors already inside, health %v", hp.Health())
	}
}

func TestHazard_ContinuousDamage(t *testing.T) {
	r := newRig(t)
	pid, hp := r.player(t)
	id := r.env.World.Spawn("lava", world.KindHazard, host.Vec3{})
	cfg := DefaultHazardConfig()
	cfg.Continuous = true
	cfg.Damage = 10
	hz := NewHazard(r.env, id, cfg, nil)

	r.env.World.BeginOverlap(pid, id)
	if hp.Health() != 100 {
		t.Fatal("continuous hazard should wait for its tick")
	}
	r.sched.Advance(2500 * time.Millisecond)
	if hp.Health() != 80 {
		t.Fatalf("health %v after two ticks", hp.Health())
	}
	r.env.World.EndOverlap(pid, id)
	r.sched.Advance(time.Second)
	if hp.Health() != 80 || len(hz.Tracked()) != 0 {
		t.Fatal("damage continued after the overlap ended")
	}
}

func TestHealthPickup(t *testing.T) {
	r := newRig(t)
	r.orch.Begin()
	pid, hp := r.player(t)
	id := r.env.World.Spawn("medkit", world.KindPickup, host.Vec3{})
	p := NewHealthPickup(r.env, id, PickupConfig{Sound: "gulp"}, r.behavior(t, SolidIn(shift.Light), nil))

	r.env.World.BeginOverlap(pid, id)
	if p.Consumed() {
		t.Fatal("pickup consumed at full health")
	}
	r.env.World.EndOverlap(pid, id)
	hp.ApplyDamage(30)
	r.env.World.BeginOverlap(pid, id)
	if !p.Consumed() || hp.Health() != 80 {
		t.Fatalf("consumed=%v health=%v", p.Consumed(), hp.Health())
	}
	r.ecs.FlushDestroyQueue()
	if r.env.World.Alive(id) {
		t.Fatal("pickup not despawned")
	}
}

func TestHealthPickup_GhostCannotBeCollected(t *testing.T) {
	r := newRig(t)
	r.orch.Begin()
	r.orch.SetWorld(shift.Chaos)
	id := r.env.World.Spawn("medkit", world.KindPickup, host.Vec3{})
	p := NewHealthPickup(r.env, id, PickupConfig{}, r.behavior(t, SolidIn(shift.Light), nil))
	if p.CanBeCollected() {
		t.Fatal("ghost pickup collectable")
	}
}

func TestHintTrigger_PlayerOnlyAndDialog(t *testing.T) {
	r := newRig(t)
	pid, _ := r.player(t)
	mem := loop.NewMemory(nil, "", 0, zap.NewNop())
	id := r.env.World.Spawn("hint", world.KindHintTrigger, host.Vec3{})
	cfg := DefaultHintTriggerConfig()
	cfg.HintID = "door_code"
	cfg.Text = "the door remembers"
	cfg.LoopToUnlock = 2
	cfg.TriggerSound = "chime"
	cfg.Dialog = []DialogLine{{Sound: "line1", Duration: time.Second}, {Sound: ""}, {Sound: "line2"}}
	trig := NewHintTrigger(r.env, id, cfg, mem)
	var played []string
	trig.DialogPlayed.Subscribe(func(s string) { played = append(played, s) })

	other := r.env.World.Spawn("crate", world.KindPlatform, host.Vec3{})
	r.env.World.BeginOverlap(other, id)
	if mem.HasHint("door_code") {
		t.Fatal("non-player triggered the hint")
	}

	r.env.World.BeginOverlap(pid, id)
	rec, ok := mem.GetHint("door_code")
	if !ok || rec.State != loop.Future {
		t.Fatalf("hint %+v %v", rec, ok)
	}
	if !trig.Spent() {
		t.Fatal("trigger should be spent")
	}
	r.sched.Advance(time.Second)
	if len(played) != 2 || played[1] != "line2" {
		t.Fatalf("dialog %v", played)
	}
	if r.fx.Sounds[0] != "chime" {
		t.Fatalf("sounds %v", r.fx.Sounds)
	}
}

func TestShiftEffects_ManualShiftCostsHealth(t *testing.T) {
	r := newRig(t)
	pid, hp := r.player(t)
	cfg := DefaultShiftEffectsConfig()
	cfg.Sounds = map[shift.WorldState]string{shift.Shadow: "whoosh"}
	cfg.Colors = map[shift.WorldState]host.Color{shift.Shadow: {R: 0.1}}
	NewShiftEffects(r.env, pid, cfg, nil)

	r.orch.Begin()
	if hp.Health() != 100 {
		t.Fatal("initial broadcast must not cost health")
	}
	r.orch.SetWorld(shift.Shadow)
	if hp.Health() != 95 {
		t.Fatalf("health %v, want 95", hp.Health())
	}
	if len(r.fx.Sounds) != 1 || len(r.fx.Flashes) != 1 || r.fx.Flashes[0].A != 1 {
		t.Fatalf("cues %v %v", r.fx.Sounds, r.fx.Flashes)
	}
	r.orch.ResetWorld()
	if hp.Health() != 95 {
		t.Fatal("reset must not cost health")
	}
}

func TestShiftEffects_CostOverride(t *testing.T) {
	r := newRig(t)
	pid, hp := r.player(t)
	fx := NewShiftEffects(r.env, pid, DefaultShiftEffectsConfig(), func(ws shift.WorldShift, base float64) float64 {
		if ws.To == shift.Chaos {
			return -base * 4
		}
		return base
	})
	if got := fx.Cost(shift.WorldShift{To: shift.Chaos}); got != 20 {
		t.Fatalf("cost %v", got)
	}
	r.orch.Begin()
	r.orch.SetWorld(shift.Chaos)
	if hp.Health() != 80 {
		t.Fatalf("health %v", hp.Health())
	}
}

func TestPlayer_DeathResetsLoop(t *testing.T) {
	r := newRig(t)
	r.orch.Begin()
	pid, hp := r.player(t)
	r.orch.SetSpawnPoint(host.Vec3{X: -4})
	r.env.World.SetLocation(pid, host.Vec3{X: 50})
	r.orch.SetWorld(shift.Chaos)
	resets := 0
	r.orch.Reset.Subscribe(func(struct{}) { resets++ })

	hp.ApplyDamage(500)
	r.sched.Advance(0)
	if resets != 1 || r.orch.CurrentWorld() != shift.Light {
		t.Fatalf("resets=%d world=%v", resets, r.orch.CurrentWorld())
	}
	if loc, _ := r.env.World.Location(pid); loc.X != -4 {
		t.Fatalf("player at %v", loc)
	}
	if hp.Health() != hp.Max() || hp.IsDead() {
		t.Fatal("health not restored after reset")
	}
}

func TestPlatform(t *testing.T) {
	r := newRig(t)
	r.orch.Begin()
	mesh := host.NewRecorder()
	id := r.env.World.Spawn("ledge", world.KindPlatform, host.Vec3{})
	b := shift.NewBehavior(shift.BehaviorConfig{Name: "ledge", Prefab: shift.PrefabShadowBridge}, nil, mesh, nil)
	p := NewPlatform(r.env, id, b)
	if p.Solid() || mesh.Collision {
		t.Fatal("shadow bridge solid in Light")
	}
	r.orch.SetWorld(shift.Shadow)
	if !p.Solid() || !mesh.Solid() {
		t.Fatal("shadow bridge not solid in Shadow")
	}
	p.Teardown()
	r.orch.SetWorld(shift.Light)
	if !p.Solid() {
		t.Fatal("torn-down platform still reacting")
	}
}
