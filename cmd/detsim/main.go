package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/l1jgo/detsim/internal/component"
	"github.com/l1jgo/detsim/internal/config"
	"github.com/l1jgo/detsim/internal/core/ecs"
	"github.com/l1jgo/detsim/internal/core/event"
	"github.com/l1jgo/detsim/internal/data"
	"github.com/l1jgo/detsim/internal/persist"
	"github.com/l1jgo/detsim/internal/scripting"
	"github.com/l1jgo/detsim/internal/system"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

var printer = message.NewPrinter(language.English)

func printBanner(matchID string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              detsim  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      deterministic lockstep simulation    \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mmatch:\033[0m %s\n\n", matchID)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := printer.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Simulation ─────────────────────────────────────────────────────

func run() error {
	cfgPath := flag.String("config", os.Getenv("DETSIM_CONFIG"), "path to detsim.toml (built-in defaults when empty)")
	scenarioPath := flag.String("scenario", "", "scenario YAML, overrides scenario.path")
	ticks := flag.Uint64("ticks", 0, "ticks to run, overrides sim.ticks")
	flag.Parse()

	// 1. Load config
	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	if *scenarioPath != "" {
		cfg.Scenario.Path = *scenarioPath
	}
	if *ticks != 0 {
		cfg.Sim.Ticks = *ticks
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	matchID, err := cfg.MatchUUID()
	if err != nil {
		return err
	}
	printBanner(matchID.String())

	// 3. Components and scenario
	printSection("world")
	ids, err := component.Register()
	if err != nil {
		return fmt.Errorf("register components: %w", err)
	}

	scenario, err := data.LoadScenario(cfg.Scenario.Path)
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}

	world := ecs.NewWorld(ecs.Config{
		ChunkCapacity:     cfg.Sim.ChunkCapacity,
		InitialArchetypes: cfg.Sim.InitialArchetypes,
		InitialEntities:   cfg.Sim.InitialEntities,
	}, log.Named("ecs"))

	spawned, err := scenario.Spawn(world, ids)
	if err != nil {
		return fmt.Errorf("spawn scenario %s: %w", scenario.Name, err)
	}
	printStat("entities", spawned)
	printStat("archetypes", len(world.Archetypes()))
	printOK(fmt.Sprintf("scenario %q loaded", scenario.Name))

	seed := cfg.Match.Seed
	if seed == 0 {
		seed = scenario.Seed
	}
	match := system.NewMatch(matchID, seed, cfg.Match.ProtocolSalt)
	log.Info("match ready",
		zap.String("id", match.ID.String()),
		zap.Uint64("seed", match.Seed),
		zap.Uint16("salt", match.Salt),
	)

	// 4. Scripting
	var lua *scripting.Engine
	if cfg.Scripting.Enabled {
		printSection("scripting")
		lua, err = scripting.NewEngine(cfg.Scripting.Dir, log.Named("lua"))
		if err != nil {
			return fmt.Errorf("init lua: %w", err)
		}
		if !lua.HasSteer() {
			log.Warn("no steer function found, steering disabled", zap.String("dir", cfg.Scripting.Dir))
			lua.Close()
			lua = nil
		} else {
			defer lua.Close()
			printOK("steering scripts loaded")
		}
	}

	// 5. Checkpoint store
	printSection("checkpoints")
	var store persist.CheckpointStore
	if cfg.Checkpoint.Interval > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		store, err = persist.OpenStore(ctx, cfg, log.Named("persist"))
		cancel()
		if err != nil {
			return fmt.Errorf("open checkpoint store: %w", err)
		}
		printOK(fmt.Sprintf("%s store, every %d ticks", cfg.Checkpoint.Backend, cfg.Checkpoint.Interval))
	} else {
		printOK("disabled")
	}

	// 6. Scheduler
	mode := ecs.PlaybackPerPhase
	if cfg.Sim.Playback == "tick" {
		mode = ecs.PlaybackPerTick
	}
	sched := world.CreateScheduler(ecs.SchedulerConfig{Playback: mode})
	installed, err := system.Start(sched, system.Deps{
		IDs:                ids,
		Match:              match,
		Bus:                event.NewBus(),
		Lua:                lua,
		Store:              store,
		CheckpointInterval: cfg.Checkpoint.Interval,
		Workers:            cfg.Sim.Workers,
		Log:                log,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := sched.Destroy(); err != nil {
			log.Error("destroy systems", zap.Error(err))
		}
	}()

	// 7. Tick loop
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tickC <-chan time.Time
	if cfg.Sim.Realtime {
		ticker := time.NewTicker(cfg.Sim.TickRate)
		defer ticker.Stop()
		tickC = ticker.C
	}

	printSection("running")
	if cfg.Sim.Ticks == 0 {
		printReady("ticking until interrupted")
	} else {
		printReady(printer.Sprintf("%d ticks, playback per %s", cfg.Sim.Ticks, cfg.Sim.Playback))
	}
	fmt.Println()

	start := time.Now()
	var tick uint64
loop:
	for ; cfg.Sim.Ticks == 0 || tick < cfg.Sim.Ticks; tick++ {
		if tickC != nil {
			select {
			case <-ctx.Done():
				break loop
			case <-tickC:
			}
		} else if ctx.Err() != nil {
			break
		}

		if err := sched.Tick(tick); err != nil {
			return err
		}
		if cfg.Sim.DigestEvery > 0 && (tick+1)%cfg.Sim.DigestEvery == 0 {
			if err := logDigest(log, world, tick); err != nil {
				return err
			}
		}
	}
	if ctx.Err() != nil {
		log.Info("interrupted", zap.Uint64("tick", tick))
	}

	final, err := world.Digest()
	if err != nil {
		return fmt.Errorf("final digest: %w", err)
	}
	elapsed := time.Since(start)

	printSection("done")
	printStat("ticks", int(tick))
	printStat("alive", world.AliveCount())
	if installed.Checkpoint != nil {
		printStat("checkpoints", installed.Checkpoint.Saved())
	}
	printOK(fmt.Sprintf("digest %s", hex.EncodeToString(final[:])))
	printOK(fmt.Sprintf("elapsed %s", elapsed.Round(time.Millisecond)))
	fmt.Println()
	return nil
}

func logDigest(log *zap.Logger, w *ecs.World, tick uint64) error {
	d, err := w.Digest()
	if err != nil {
		return fmt.Errorf("digest tick %d: %w", tick, err)
	}
	log.Info("digest",
		zap.Uint64("tick", tick),
		zap.Int("alive", w.AliveCount()),
		zap.String("sum", hex.EncodeToString(d[:8])),
	)
	return nil
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
