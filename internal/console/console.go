// Package console drives the simulation from text commands typed on stdin.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/threeworlds/loopshift/internal/host"
	"github.com/threeworlds/loopshift/internal/level"
	"github.com/threeworlds/loopshift/internal/loop"
	"github.com/threeworlds/loopshift/internal/shift"
	"github.com/threeworlds/loopshift/internal/world"
)

// Deps is what commands act on. Level is a getter because hot reload swaps
// the built level.
type Deps struct {
	Orch   *shift.Orchestrator
	Memory *loop.Memory
	World  *world.State
	Level  func() *level.Level
	Out    io.Writer
	Log    *zap.Logger
}

// ReadLines feeds non-empty lines from r into the returned channel until r
// hits EOF or ctx is cancelled. The channel is closed on exit.
func ReadLines(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string, 16)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			select {
			case out <- line:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Execute runs one command line. Returns false for an unknown command.
func Execute(line string, d *Deps) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		cmdHelp(d)
	case "next":
		d.Orch.CycleWorld(1)
		cmdStatus(d)
	case "prev":
		d.Orch.CycleWorld(-1)
		cmdStatus(d)
	case "set", "world":
		cmdSet(d, args)
	case "reset":
		d.Orch.ResetWorld()
		cmdStatus(d)
	case "hints":
		cmdHints(d, args)
	case "press":
		cmdPress(d, args)
	case "overlap", "enter":
		cmdOverlap(d, args, true)
	case "leave":
		cmdOverlap(d, args, false)
	case "move", "warp":
		cmdMove(d, args)
	case "damage":
		cmdDamage(d, args)
	case "status":
		cmdStatus(d)
	default:
		d.printf("unknown command %q (try help)\n", cmd)
		return false
	}
	return true
}

func (d *Deps) printf(format string, args ...any) {
	if d.Out == nil {
		return
	}
	fmt.Fprintf(d.Out, format, args...)
}

func cmdHelp(d *Deps) {
	d.printf("commands:\n" +
		"  next | prev               cycle the world\n" +
		"  set <light|shadow|chaos>  jump to a world\n" +
		"  reset                     end the loop\n" +
		"  hints [all]               list hints\n" +
		"  press <button>            press a button as the player\n" +
		"  overlap <a> [b]           begin overlap (b defaults to player)\n" +
		"  leave <a> [b]             end overlap\n" +
		"  move <x> <y> <z>          teleport the player\n" +
		"  damage <n>                hurt the player\n" +
		"  status                    show world and player state\n")
}

func cmdSet(d *Deps, args []string) {
	if len(args) < 1 {
		d.printf("usage: set <world>\n")
		return
	}
	w, err := shift.ParseWorld(args[0])
	if err != nil {
		d.printf("%v\n", err)
		return
	}
	d.Orch.SetWorld(w)
	cmdStatus(d)
}

func cmdHints(d *Deps, args []string) {
	if d.Memory == nil {
		d.printf("no loop memory\n")
		return
	}
	hints := d.Memory.GetVisibleHints()
	if len(args) > 0 && strings.EqualFold(args[0], "all") {
		hints = d.Memory.GetAllHints()
	}
	if len(hints) == 0 {
		d.printf("no hints\n")
		return
	}
	for _, h := range hints {
		flag := ""
		if h.Persistent {
			flag = " (persistent)"
		}
		d.printf("  [%s] %s: %s%s\n", h.State, h.ID, h.Text, flag)
	}
}

func cmdPress(d *Deps, args []string) {
	if len(args) < 1 {
		d.printf("usage: press <button>\n")
		return
	}
	lv := d.level()
	if lv == nil {
		d.printf("no level loaded\n")
		return
	}
	b := lv.Button(args[0])
	if b == nil {
		d.printf("no button %q (have: %s)\n", args[0], strings.Join(lv.ButtonNames(), ", "))
		return
	}
	if !b.PressButton(d.World.Player()) {
		d.printf("%s cannot be pressed right now\n", b.Name())
		return
	}
	d.printf("%s pressed\n", b.Name())
}

func cmdOverlap(d *Deps, args []string, begin bool) {
	if len(args) < 1 {
		d.printf("usage: overlap <a> [b]\n")
		return
	}
	a, ok := d.World.ByName(args[0])
	if !ok {
		d.printf("no actor %q\n", args[0])
		return
	}
	b := d.World.Player()
	if len(args) > 1 {
		if b, ok = d.World.ByName(args[1]); !ok {
			d.printf("no actor %q\n", args[1])
			return
		}
	}
	var changed bool
	if begin {
		changed = d.World.BeginOverlap(a, b)
	} else {
		changed = d.World.EndOverlap(a, b)
	}
	if !changed {
		d.printf("nothing changed\n")
	}
}

func cmdMove(d *Deps, args []string) {
	if len(args) < 3 {
		d.printf("usage: move <x> <y> <z>\n")
		return
	}
	var v [3]float64
	for i := range v {
		f, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			d.printf("bad coordinate %q\n", args[i])
			return
		}
		v[i] = f
	}
	d.World.SetLocation(d.World.Player(), host.Vec3{X: v[0], Y: v[1], Z: v[2]})
}

func cmdDamage(d *Deps, args []string) {
	if len(args) < 1 {
		d.printf("usage: damage <n>\n")
		return
	}
	n, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		d.printf("bad amount %q\n", args[0])
		return
	}
	lv := d.level()
	if lv == nil || lv.Player() == nil {
		d.printf("no player\n")
		return
	}
	lv.Player().Health().ApplyDamage(n)
	cmdStatus(d)
}

func cmdStatus(d *Deps) {
	d.printf("world=%s phase=%s", d.Orch.CurrentWorld(), phaseName(d.Orch.TimedSolidPhase()))
	if d.Memory != nil {
		d.printf(" loop=%d", d.Memory.LoopCount())
	}
	if lv := d.level(); lv != nil && lv.Player() != nil {
		h := lv.Player().Health()
		loc, _ := d.World.Location(d.World.Player())
		d.printf(" health=%.0f/%.0f at (%.1f, %.1f, %.1f)", h.Health(), h.Max(), loc.X, loc.Y, loc.Z)
	}
	d.printf("\n")
}

func (d *Deps) level() *level.Level {
	if d.Level == nil {
		return nil
	}
	return d.Level()
}

func phaseName(solid bool) string {
	if solid {
		return "solid"
	}
	return "ghost"
}
