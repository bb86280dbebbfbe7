package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/l1jgo/saveable/internal/catalog"
	"github.com/l1jgo/saveable/internal/component"
	"github.com/l1jgo/saveable/internal/config"
	"github.com/l1jgo/saveable/internal/core/event"
	coresys "github.com/l1jgo/saveable/internal/core/system"
	"github.com/l1jgo/saveable/internal/identity"
	"github.com/l1jgo/saveable/internal/persist"
	"github.com/l1jgo/saveable/internal/remap"
	"github.com/l1jgo/saveable/internal/report"
	"github.com/l1jgo/saveable/internal/respawn"
	"github.com/l1jgo/saveable/internal/scene"
	"github.com/l1jgo/saveable/internal/scripting"
	"github.com/l1jgo/saveable/internal/system"
	"github.com/l1jgo/saveable/internal/tracker"
	"github.com/l1jgo/saveable/internal/transport"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(name, sceneName, sceneID string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m         saveable instance tracker         \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s \033[90m(scene: %s, %s)\033[0m\n\n", name, sceneName, sceneID)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
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

// ── Main loop ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("SAVEABLE_CONFIG"); p != "" {
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

	sceneID := cfg.Scene.GUID
	if sceneID == "" {
		sceneID = uuid.NewString()
		log.Warn("scene.guid not set, saves from this run will not reload in the next one",
			zap.String("generated", sceneID))
	}
	sc := scene.New(sceneID, cfg.Scene.Name)
	printBanner(cfg.Server.Name, sc.Name(), sc.GUID())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 3. Scene layout and catalogs
	printSection("data")
	ix := component.NewIndexes(log)

	objects, err := catalog.LoadSceneLayout(cfg.Scene.Layout, sc, ix)
	if err != nil {
		return fmt.Errorf("load scene layout: %w", err)
	}
	printStat("scene objects", objects)

	templates, err := catalog.LoadTemplateCatalog(cfg.Catalog.Templates, ix, log)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}
	printStat("templates", templates.Count())

	items, err := catalog.LoadItemCatalog(cfg.Catalog.Items, ix)
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}
	printStat("items", items.Count())
	fmt.Println()

	// 4. Save storage
	printSection("storage")
	storage, closeStorage, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStorage()
	fmt.Println()

	// 5. Tracking
	kinds, err := component.ParseHolderKinds(cfg.Tracking.HolderKinds)
	if err != nil {
		return fmt.Errorf("tracking.holder_kinds: %w", err)
	}
	bus := event.NewBus()
	engine := remap.NewEngine(identity.UUIDGenerator{}, log, ix.Occupancy()...)
	sched := respawn.NewScheduler(sc, templates, items, ix.Anchors, engine, log, cfg.Tracking.BatchTimeout)
	tr := tracker.New(sc, engine, remap.NewKindSet(kinds...), sched, items, bus, log)

	tp := transport.New(storage, log)
	if err := tr.Attach(tp); err != nil {
		return fmt.Errorf("attach tracker: %w", err)
	}
	defer tr.Detach()

	event.Subscribe(bus, func(e event.InstanceTracked) {
		log.Debug("instance tracked",
			zap.Uint64("entity", uint64(e.Entity)),
			zap.String("variant", e.Variant),
			zap.String("template", e.TemplateRef))
	})

	// 6. Scripts
	lua, err := scripting.NewEngine(cfg.Scripting.Dir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer lua.Close()
	instr := scripting.NewInstruction(tr, templates, sc, tp, log)

	// 7. Restore the previous session
	printSection("restore")
	if cfg.Tracking.LoadOnStart {
		rep, err := tp.Load(ctx, cfg.Tracking.Slot)
		switch {
		case errors.Is(err, transport.ErrSlotEmpty):
			printOK(fmt.Sprintf("slot %q is empty, starting fresh", cfg.Tracking.Slot))
		case err != nil:
			return fmt.Errorf("load slot %s: %w", cfg.Tracking.Slot, err)
		default:
			logReport(log, "restore warning", rep)
			printStat("instances restored", tr.Len())
			printStat("warnings", rep.Len())
		}
	}
	if cmds := lua.OnStart(tr.Len()); len(cmds) > 0 {
		n, rep := instr.Run(cmds)
		logReport(log, "on_start command failed", rep)
		printStat("spawned by on_start", n)
	}
	fmt.Println()

	// 8. Systems
	autosaveTicks := 0
	if cfg.Tracking.AutosaveInterval > 0 {
		autosaveTicks = int(cfg.Tracking.AutosaveInterval / cfg.Server.TickRate)
	}
	autosave := system.NewAutosaveSystem(tp, bus, log, cfg.Tracking.Slot, autosaveTicks)

	runner := coresys.NewRunner()
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewScriptSystem(lua, instr, tr, bus, log))
	runner.Register(autosave)
	runner.Register(system.NewCleanupSystem(sc))

	// 9. Tick loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Server.TickRate)
	defer ticker.Stop()

	printSection("ready")
	printReady(fmt.Sprintf("tick loop started (%d systems, tick: %s)", runner.Len(), cfg.Server.TickRate))
	if autosaveTicks > 0 {
		printReady(fmt.Sprintf("autosave to %q every %s", cfg.Tracking.Slot, cfg.Tracking.AutosaveInterval))
	}
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Server.TickRate)
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			if err := autosave.SaveNow(); err != nil {
				return fmt.Errorf("final save: %w", err)
			}
			log.Info("server stopped", zap.Int("tracked", tr.Len()))
			return nil
		}
	}
}

// openStorage returns the slot storage selected by storage.driver.
func openStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (transport.Storage, func(), error) {
	switch cfg.Storage.Driver {
	case "postgres":
		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		printOK("PostgreSQL connected")
		version, err := persist.RunMigrations(ctx, db.Pool)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
		printOK(fmt.Sprintf("migrations applied (version %d)", version))
		return persist.NewSaveRepo(db), db.Close, nil
	default:
		fs, err := transport.NewFileStorage(cfg.Storage.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("file storage: %w", err)
		}
		printOK(fmt.Sprintf("save directory %s", cfg.Storage.Dir))
		return fs, func() {}, nil
	}
}

func logReport(log *zap.Logger, msg string, rep report.Report) {
	for _, w := range rep.Warnings {
		log.Warn(msg, zap.Error(w))
	}
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
