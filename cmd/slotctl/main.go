// slotctl inspects and edits loop memory save slots.
//
// Usage:
//
//	go run ./cmd/slotctl <command> [-config path] [-slot name] [args]
//
// Commands: show, history, export <file>, import <file>, delete
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/threeworlds/loopshift/internal/config"
	"github.com/threeworlds/loopshift/internal/loop"
	"github.com/threeworlds/loopshift/internal/persist"
)

// slotStore is what both backends offer.
type slotStore interface {
	loop.Store
	Delete(ctx context.Context, slot string) error
}

type env struct {
	store   slotStore
	history *persist.SlotRepo // nil unless the postgres backend is used
	slot    string
	out     io.Writer
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: slotctl <command> [-config path] [-slot name] [args]

commands:
  show             print the slot as YAML
  history [n]      list the last n revisions (postgres only)
  export <file>    write the raw slot blob to file
  import <file>    replace the slot with a blob from file
  delete           remove the slot`)
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		printUsage()
		return
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	cfgPath := fs.String("config", "config/loopshift.toml", "config file")
	slot := fs.String("slot", "", "save slot (default from config)")
	_ = fs.Parse(os.Args[2:])

	commands := map[string]func(context.Context, *env, []string) error{
		"show":    cmdShow,
		"history": cmdHistory,
		"export":  cmdExport,
		"import":  cmdImport,
		"delete":  cmdDelete,
	}
	fn, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	e, closeFn, err := open(ctx, *cfgPath, *slot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	defer closeFn()
	if err := fn(ctx, e, fs.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func open(ctx context.Context, cfgPath, slot string) (*env, func(), error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	if slot == "" {
		slot = cfg.Loop.Slot
	}
	e := &env{slot: slot, out: os.Stdout}
	switch strings.ToLower(cfg.Persistence.Backend) {
	case "postgres":
		db, err := persist.NewDB(ctx, cfg.Database, zap.NewNop())
		if err != nil {
			return nil, nil, err
		}
		repo := persist.NewSlotRepo(db, cfg.Persistence.HistoryKeep)
		e.store, e.history = repo, repo
		return e, db.Close, nil
	case "file":
		fs, err := persist.NewFileStore(cfg.Persistence.Dir)
		if err != nil {
			return nil, nil, err
		}
		e.store = fs
		return e, func() {}, nil
	}
	return nil, nil, fmt.Errorf("persistence backend %q has no slots", cfg.Persistence.Backend)
}

func load(ctx context.Context, e *env) (loop.SaveData, []byte, error) {
	blob, ok, err := e.store.Load(ctx, e.slot)
	if err != nil {
		return loop.SaveData{}, nil, err
	}
	if !ok {
		return loop.SaveData{}, nil, fmt.Errorf("slot %s not found", e.slot)
	}
	var data loop.SaveData
	if err := json.Unmarshal(blob, &data); err != nil {
		return loop.SaveData{}, nil, fmt.Errorf("decode slot %s: %w", e.slot, err)
	}
	return data, blob, nil
}

// slotYAML is the human-facing rendering of a save slot.
type slotYAML struct {
	Slot      string     `yaml:"slot"`
	LoopCount int        `yaml:"loop_count"`
	Hints     []hintYAML `yaml:"persistent_hints"`
}

type hintYAML struct {
	ID           string `yaml:"id"`
	Text         string `yaml:"text"`
	State        string `yaml:"state"`
	LoopToUnlock int    `yaml:"loop_to_unlock"`
}

func render(slot string, data loop.SaveData) ([]byte, error) {
	out := slotYAML{Slot: slot, LoopCount: data.LoopCount}
	for _, h := range data.PersistentHints {
		out.Hints = append(out.Hints, hintYAML{ID: h.ID, Text: h.Text, State: h.State.String(), LoopToUnlock: h.LoopToUnlock})
	}
	return yaml.Marshal(out)
}

func cmdShow(ctx context.Context, e *env, _ []string) error {
	data, _, err := load(ctx, e)
	if err != nil {
		return err
	}
	b, err := render(e.slot, data)
	if err != nil {
		return err
	}
	_, err = e.out.Write(b)
	return err
}

func cmdHistory(ctx context.Context, e *env, args []string) error {
	if e.history == nil {
		return errors.New("history needs the postgres backend")
	}
	limit := 10
	if len(args) > 0 {
		if _, err := fmt.Sscanf(args[0], "%d", &limit); err != nil || limit < 1 {
			return fmt.Errorf("bad revision count %q", args[0])
		}
	}
	revs, err := e.history.History(ctx, e.slot, limit)
	if err != nil {
		return err
	}
	for _, rv := range revs {
		var data loop.SaveData
		summary := "undecodable"
		if json.Unmarshal(rv.Payload, &data) == nil {
			summary = fmt.Sprintf("loop %d, %d hints", data.LoopCount, len(data.PersistentHints))
		}
		fmt.Fprintf(e.out, "#%d  %s  %s\n", rv.Revision, rv.SavedAt.Format(time.RFC3339), summary)
	}
	return nil
}

func cmdExport(ctx context.Context, e *env, args []string) error {
	if len(args) < 1 {
		return errors.New("export needs a file name")
	}
	_, blob, err := load(ctx, e)
	if err != nil {
		return err
	}
	return os.WriteFile(args[0], blob, 0o644)
}

func cmdImport(ctx context.Context, e *env, args []string) error {
	if len(args) < 1 {
		return errors.New("import needs a file name")
	}
	blob, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var data loop.SaveData
	if err := json.Unmarshal(blob, &data); err != nil {
		return fmt.Errorf("%s is not a save blob: %w", args[0], err)
	}
	if data.LoopCount < 0 {
		return fmt.Errorf("%s has a negative loop count", args[0])
	}
	if err := e.store.Save(ctx, e.slot, blob); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "imported loop %d with %d hints into %s\n", data.LoopCount, len(data.PersistentHints), e.slot)
	return nil
}

func cmdDelete(ctx context.Context, e *env, _ []string) error {
	if err := e.store.Delete(ctx, e.slot); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "deleted %s\n", e.slot)
	return nil
}
