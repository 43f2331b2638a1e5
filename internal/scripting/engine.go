package scripting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for tuning hooks.
// Single-goroutine access only (simulation loop).
type Engine struct {
	dir string
	vm  *lua.LState
	log *zap.Logger
}

// scriptDirs are loaded in order; later files may override earlier globals.
var scriptDirs = []string{"core", "world"}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	e := &Engine{dir: scriptsDir, log: log}
	vm, err := e.load()
	if err != nil {
		return nil, err
	}
	e.vm = vm
	return e, nil
}

func (e *Engine) load() (*lua.LState, error) {
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	for _, sub := range scriptDirs {
		if err := loadDir(vm, filepath.Join(e.dir, sub), e.log); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	return vm, nil
}

// Reload rebuilds the VM from disk. On failure the running VM is kept.
func (e *Engine) Reload() error {
	vm, err := e.load()
	if err != nil {
		return err
	}
	e.vm.Close()
	e.vm = vm
	e.log.Info("lua scripts reloaded", zap.String("dir", e.dir))
	return nil
}

// loadDir loads all .lua files in a directory.
func loadDir(vm *lua.LState, dir string, log *zap.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// ShiftCostContext is the state handed to calc_shift_cost.
type ShiftCostContext struct {
	From      string
	To        string
	LoopCount int
	Health    float64
	MaxHealth float64
	Base      float64
}

// CalcShiftCost calls the Lua calc_shift_cost function. A missing function,
// a script error or a non-numeric result yields ctx.Base.
func (e *Engine) CalcShiftCost(ctx ShiftCostContext) float64 {
	fn := e.vm.GetGlobal("calc_shift_cost")
	if fn == lua.LNil {
		return ctx.Base
	}

	t := e.vm.NewTable()
	t.RawSetString("from", lua.LString(ctx.From))
	t.RawSetString("to", lua.LString(ctx.To))
	t.RawSetString("loop", lua.LNumber(ctx.LoopCount))
	t.RawSetString("health", lua.LNumber(ctx.Health))
	t.RawSetString("max_health", lua.LNumber(ctx.MaxHealth))
	t.RawSetString("base", lua.LNumber(ctx.Base))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua calc_shift_cost error", zap.Error(err))
		return ctx.Base
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	n, ok := result.(lua.LNumber)
	if !ok || math.IsNaN(float64(n)) || math.IsInf(float64(n), 0) {
		e.log.Error("lua calc_shift_cost returned non-number", zap.String("type", result.Type().String()))
		return ctx.Base
	}
	return float64(n)
}

// HintUnlockLoop calls the optional Lua hint_unlock_loop(id, loop, base)
// to pick the loop a triggered hint unlocks at. Falls back to base.
func (e *Engine) HintUnlockLoop(id string, loop, base int) int {
	fn := e.vm.GetGlobal("hint_unlock_loop")
	if fn == lua.LNil {
		return base
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LString(id), lua.LNumber(loop), lua.LNumber(base)); err != nil {
		e.log.Error("lua hint_unlock_loop error", zap.Error(err))
		return base
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	n, ok := result.(lua.LNumber)
	if !ok {
		return base
	}
	return max(int(n), 0)
}

// Has reports whether a global function is defined.
func (e *Engine) Has(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

func (e *Engine) Close() {
	e.vm.Close()
}
