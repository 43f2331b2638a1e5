package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/threeworlds/loopshift/internal/actor"
	"github.com/threeworlds/loopshift/internal/config"
	"github.com/threeworlds/loopshift/internal/console"
	"github.com/threeworlds/loopshift/internal/core/ecs"
	"github.com/threeworlds/loopshift/internal/core/sched"
	coresys "github.com/threeworlds/loopshift/internal/core/system"
	"github.com/threeworlds/loopshift/internal/data"
	"github.com/threeworlds/loopshift/internal/host"
	"github.com/threeworlds/loopshift/internal/level"
	"github.com/threeworlds/loopshift/internal/loop"
	"github.com/threeworlds/loopshift/internal/observe"
	"github.com/threeworlds/loopshift/internal/persist"
	"github.com/threeworlds/loopshift/internal/scripting"
	"github.com/threeworlds/loopshift/internal/shift"
	"github.com/threeworlds/loopshift/internal/system"
	"github.com/threeworlds/loopshift/internal/world"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(name string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Printf("\033[36;1m  │\033[0m            loopshift  v%-18s\033[36;1m│\033[0m\n", version)
	fmt.Println("\033[36;1m  │\033[0m     Light · Shadow · Chaos  world loop    \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mSession:\033[0m %s\n\n", name)
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main loop ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/loopshift.toml"
	if p := os.Getenv("LOOPSHIFT_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Loop memory
	printSection("Loop memory")
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("persistence: %w", err)
	}
	defer closeStore()

	memory := loop.NewMemory(store, cfg.Loop.Slot, cfg.Persistence.SaveTimeout, log)
	loadCtx, cancel := context.WithTimeout(ctx, cfg.Persistence.SaveTimeout)
	if err := memory.Load(loadCtx); err != nil {
		log.Warn("loop memory unreadable, starting fresh", zap.Error(err))
	}
	cancel()
	printStat("Loop count", memory.LoopCount())
	printStat("Persistent hints", len(memory.GetAllHints()))
	fmt.Println()

	// 4. Scripts and level data
	printSection("Data")
	scripts, err := scripting.NewEngine(cfg.Data.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("scripts: %w", err)
	}
	defer scripts.Close()
	printOK("Lua scripts loaded")

	spec, err := data.LoadLevel(cfg.Data.LevelFile)
	if err != nil {
		return fmt.Errorf("level: %w", err)
	}

	opts, err := orchestratorOptions(cfg.World)
	if err != nil {
		return err
	}
	if opts.StartWorld, err = level.StartWorld(spec, opts.StartWorld); err != nil {
		return err
	}
	effects, err := effectsConfig(cfg.Effects)
	if err != nil {
		return err
	}

	// 5. Simulation
	timers := sched.New()
	sim := shift.NewSimulation(timers)
	fx := host.NewLogFeedback(log)
	orch, err := shift.NewOrchestrator(sim, opts, memory, fx, log)
	if err != nil {
		return err
	}

	ecsWorld := ecs.NewWorld()
	ws := world.NewState(ecsWorld)
	a := &app{
		cfg:     cfg,
		env:     actor.Env{World: ws, Sched: timers, Orch: orch, FX: fx, Log: log},
		memory:  memory,
		scripts: scripts,
		effects: effects,
		log:     log,
	}
	if err := a.build(); err != nil {
		return err
	}
	printStat("Actors", len(a.Level().Actors()))
	printStat("Buttons", len(a.Level().ButtonNames()))
	fmt.Println()

	// 6. Metrics
	var metrics *observe.Metrics
	if cfg.Metrics.Enabled {
		mp, shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
			ServiceName:    cfg.Server.Name,
			ServiceVersion: version,
		})
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(sctx)
		}()
		if metrics, err = observe.NewMetrics(mp); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		metrics.Watch(orch, memory)
	}

	// 7. Systems
	runner := coresys.NewRunner()
	if cfg.Console.Enabled {
		lines := console.ReadLines(ctx, os.Stdin)
		runner.Register(system.NewInputSystem(lines, &console.Deps{
			Orch:   orch,
			Memory: memory,
			World:  ws,
			Level:  a.Level,
			Out:    os.Stdout,
			Log:    log,
		}, 8, log))
	}
	if cfg.Data.HotReload {
		watcher, err := data.NewWatcher(watchDirs(cfg.Data)...)
		if err != nil {
			return fmt.Errorf("watch data: %w", err)
		}
		defer watcher.Close()
		runner.Register(system.NewReloadSystem(watcher.Events, a, log))
		printOK("Hot reload enabled")
	}
	runner.Register(system.NewSchedulerSystem(timers))
	runner.Register(system.NewMovementSystem(ws))
	if cfg.World.TriggerRadius > 0 {
		runner.Register(system.NewProximitySystem(ws, cfg.World.TriggerRadius))
	}
	autosave := system.NewAutosaveSystem(memory, log,
		int(cfg.Persistence.AutosaveEvery/cfg.Server.TickRate), cfg.Persistence.SaveTimeout)
	runner.Register(autosave)
	runner.Register(system.NewCleanupSystem(ecsWorld))

	orch.Begin()

	// 8. Run
	printSection("Ready")
	printReady(fmt.Sprintf("Start world %s (tick: %s)", orch.CurrentWorld(), cfg.Server.TickRate))
	if cfg.Metrics.Enabled {
		printReady("Metrics on http://" + cfg.Metrics.BindAddress + "/metrics")
	}
	if cfg.Console.Enabled {
		printReady("Console ready (type help)")
	}
	fmt.Println()

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Enabled {
		g.Go(func() error { return serveMetrics(gctx, cfg.Metrics.BindAddress, log) })
	}
	g.Go(func() error {
		ticker := time.NewTicker(cfg.Server.TickRate)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				start := time.Now()
				runner.Tick(cfg.Server.TickRate)
				if metrics != nil {
					metrics.ObserveTick(gctx, time.Since(start))
				}
			case <-gctx.Done():
				return nil
			}
		}
	})
	err = g.Wait()

	log.Info("shutting down", zap.Int("loop", memory.LoopCount()))
	orch.End()
	if ferr := autosave.Flush(); ferr != nil {
		err = errors.Join(err, ferr)
	}
	if lv := a.Level(); lv != nil {
		lv.Teardown()
		ecsWorld.FlushDestroyQueue()
	}
	log.Info("stopped")
	return err
}

// openStore picks the loop memory backend. The returned close func is never nil.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (loop.Store, func(), error) {
	switch strings.ToLower(cfg.Persistence.Backend) {
	case "postgres":
		dctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		db, err := persist.NewDB(dctx, cfg.Database, log)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		printOK("PostgreSQL connected")
		n, err := persist.RunMigrations(dctx, db)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
		printStat("Migrations applied", n)
		return persist.NewSlotRepo(db, cfg.Persistence.HistoryKeep), db.Close, nil
	case "file":
		fs, err := persist.NewFileStore(cfg.Persistence.Dir)
		if err != nil {
			return nil, nil, err
		}
		printOK("Saving to " + cfg.Persistence.Dir)
		return fs, func() {}, nil
	default:
		printOK("Persistence disabled")
		return nil, func() {}, nil
	}
}

func serveMetrics(ctx context.Context, addr string, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn("metrics server shutdown", zap.Error(err))
		}
		return nil
	}
}

func watchDirs(cfg config.DataConfig) []string {
	dirs := []string{filepath.Dir(cfg.LevelFile)}
	if d := filepath.Dir(cfg.PrefabsFile); d != dirs[0] {
		dirs = append(dirs, d)
	}
	for _, sub := range []string{"core", "world"} {
		d := filepath.Join(cfg.ScriptsDir, sub)
		if st, err := os.Stat(d); err == nil && st.IsDir() {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
