package console

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/threeworlds/loopshift/internal/actor"
	"github.com/threeworlds/loopshift/internal/core/ecs"
	"github.com/threeworlds/loopshift/internal/core/sched"
	"github.com/threeworlds/loopshift/internal/data"
	"github.com/threeworlds/loopshift/internal/host"
	"github.com/threeworlds/loopshift/internal/level"
	"github.com/threeworlds/loopshift/internal/loop"
	"github.com/threeworlds/loopshift/internal/shift"
	"github.com/threeworlds/loopshift/internal/world"
)

func newDeps(t *testing.T) (*Deps, *bytes.Buffer) {
	t.Helper()
	s := sched.New()
	orch, err := shift.NewOrchestrator(shift.NewSimulation(s), shift.DefaultOptions(), nil, nil, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	mem := loop.NewMemory(nil, "", 0, zap.NewNop())
	ws := world.NewState(ecs.NewWorld())
	spec := &data.Level{
		Name:    "console",
		Player:  data.PlayerSpec{Name: "player"},
		Buttons: []data.ButtonSpec{{ShapeSpec: data.ShapeSpec{Name: "btn"}, Links: []string{"gate"}}},
		Doors:   []data.DoorSpec{{ShapeSpec: data.ShapeSpec{Name: "gate"}}},
		Hints:   []data.HintSpec{{Name: "sign", ID: "sign", Text: "read me", LoopToUnlock: 1}},
	}
	lv, err := level.Build(spec, level.Deps{
		Env:      actor.Env{World: ws, Sched: s, Orch: orch, FX: host.NewRecorder(), Log: zap.NewNop()},
		Hints:    mem,
		Effects:  actor.DefaultShiftEffectsConfig(),
		Surfaces: func(string) level.Surface { return host.NewRecorder() },
	})
	if err != nil {
		t.Fatal(err)
	}
	orch.Begin()

	var out bytes.Buffer
	return &Deps{
		Orch:   orch,
		Memory: mem,
		World:  ws,
		Level:  func() *level.Level { return lv },
		Out:    &out,
		Log:    zap.NewNop(),
	}, &out
}

func TestExecute_WorldCommands(t *testing.T) {
	d, out := newDeps(t)

	Execute("next", d)
	if d.Orch.CurrentWorld() != shift.Shadow {
		t.Fatalf("next -> %v", d.Orch.CurrentWorld())
	}
	Execute("prev", d)
	Execute("prev", d)
	if d.Orch.CurrentWorld() != shift.Chaos {
		t.Fatalf("prev wraps -> %v", d.Orch.CurrentWorld())
	}
	Execute("SET light", d)
	if d.Orch.CurrentWorld() != shift.Light {
		t.Fatalf("set -> %v", d.Orch.CurrentWorld())
	}
	if !strings.Contains(out.String(), "world=Light") {
		t.Fatalf("status not printed: %q", out.String())
	}
	out.Reset()
	Execute("set nowhere", d)
	if d.Orch.CurrentWorld() != shift.Light || out.Len() == 0 {
		t.Fatal("bad world name should leave the world and report")
	}
}

func TestExecute_UnknownCommand(t *testing.T) {
	d, out := newDeps(t)
	if Execute("fly away", d) {
		t.Fatal("unknown command accepted")
	}
	if !strings.Contains(out.String(), "unknown command") {
		t.Fatalf("output %q", out.String())
	}
	if !Execute("   ", d) {
		t.Fatal("blank line should be a no-op")
	}
}

func TestExecute_PressFollowsWorld(t *testing.T) {
	d, out := newDeps(t)
	Execute("set shadow", d)
	out.Reset()
	Execute("press btn", d)
	if !strings.Contains(out.String(), "cannot be pressed") {
		t.Fatalf("ghost button pressed: %q", out.String())
	}
	Execute("set light", d)
	Execute("press btn", d)
	if !d.Level().Door("gate").ForcedOpen() {
		t.Fatal("press did not reach the door")
	}
	out.Reset()
	Execute("press nope", d)
	if !strings.Contains(out.String(), "have: btn") {
		t.Fatalf("missing-button message %q", out.String())
	}
}

func TestExecute_OverlapRecordsHint(t *testing.T) {
	d, _ := newDeps(t)
	Execute("overlap sign", d)
	if !d.Memory.HasHint("sign") {
		t.Fatal("overlap with the hint trigger should record the hint")
	}
	Execute("reset", d)
	if d.Memory.LoopCount() != 1 {
		t.Fatalf("loop count %d", d.Memory.LoopCount())
	}
}

func TestExecute_MoveAndDamage(t *testing.T) {
	d, out := newDeps(t)
	Execute("move 1 2 3", d)
	if loc, _ := d.World.Location(d.World.Player()); loc != (host.Vec3{X: 1, Y: 2, Z: 3}) {
		t.Fatalf("player at %v", loc)
	}
	Execute("damage 30", d)
	if got := d.Level().Player().Health().Health(); got != 70 {
		t.Fatalf("health %v", got)
	}
	out.Reset()
	Execute("move 1 x 3", d)
	if !strings.Contains(out.String(), "bad coordinate") {
		t.Fatalf("output %q", out.String())
	}
}

func TestReadLines(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	lines := ReadLines(ctx, strings.NewReader("next\n\n  reset  \n"))

	var got []string
	timeout := time.After(time.Second)
	for {
		select {
		case l, ok := <-lines:
			if !ok {
				if len(got) != 2 || got[0] != "next" || got[1] != "reset" {
					t.Fatalf("lines %q", got)
				}
				return
			}
			got = append(got, l)
		case <-timeout:
			t.Fatal("reader did not close")
		}
	}
}
