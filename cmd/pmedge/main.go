package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/larsw/pmedge/config"
	"github.com/larsw/pmedge/internal/adapters/killswitch"
	"github.com/larsw/pmedge/internal/adapters/kraken"
	"github.com/larsw/pmedge/internal/adapters/notify"
	"github.com/larsw/pmedge/internal/adapters/polymarket"
	"github.com/larsw/pmedge/internal/adapters/storage"
	"github.com/larsw/pmedge/internal/adapters/universe"
	"github.com/larsw/pmedge/internal/engine"
	"github.com/larsw/pmedge/internal/ports"
	"github.com/larsw/pmedge/internal/strategy"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one tick and exit")
	fresh := flag.Bool("fresh", false, "skip trade log replay and start with a clean ledger")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full tables per tick (default: compact 1-line)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("pmedge starting",
		"config", *configPath,
		"strategy", cfg.Strategy.Mode,
		"interval", cfg.TickInterval(),
		"starting_balance", cfg.Engine.StartingBalanceUSDC,
		"kill_file", cfg.Engine.KillFile,
		"once", *once,
	)

	console := notify.NewConsole(*table)

	deps, store, err := buildDeps(cfg, console)
	if err != nil {
		slog.Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	eng := engine.New(cfg, deps)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !*fresh {
		if err := eng.Restore(ctx); err != nil {
			slog.Error("failed to restore session from trade log", "err", err)
			os.Exit(1)
		}
	}

	if *once {
		if _, err := eng.RunOnce(ctx); err != nil {
			slog.Error("tick failed", "err", err)
			os.Exit(1)
		}
		console.PrintSummary(eng.Ledger(), time.Now().UTC())
		return
	}

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("engine exited with error", "err", err)
		os.Exit(1)
	}

	console.PrintSummary(eng.Ledger(), time.Now().UTC())
	slog.Info("pmedge stopped cleanly")
}

// buildDeps cablea adapters y estrategia según la config.
func buildDeps(cfg *config.Config, console *notify.Console) (engine.Deps, *storage.SQLiteStore, error) {
	strat, err := strategy.New(cfg)
	if err != nil {
		return engine.Deps{}, nil, err
	}

	var markets ports.MarketProvider
	if cfg.MarketsFile != "" {
		markets, err = universe.FromFile(cfg.MarketsFile)
		if err != nil {
			return engine.Deps{}, nil, err
		}
	} else {
		markets = universe.FromConfig(cfg.Markets)
	}

	var baselines ports.BaselineSource
	if cfg.Strategy.Mode == "pm_draw" {
		b, err := strategy.LoadBaselines(cfg.Strategy.BaselinePath)
		if err != nil {
			return engine.Deps{}, nil, err
		}
		slog.Info("baselines loaded", "path", cfg.Strategy.BaselinePath, "entries", b.Len())
		baselines = b
	}

	store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
	if err != nil {
		return engine.Deps{}, nil, err
	}

	clob := polymarket.NewClient(cfg.API.CLOBBase)

	return engine.Deps{
		Strategy:   strat,
		PmQuotes:   clob,
		SpotQuotes: kraken.NewClient(cfg.API.KrakenBase),
		Books:      clob,
		Markets:    markets,
		Baselines:  baselines,
		Kill:       killswitch.New(cfg.Engine.KillFile),
		Store:      store,
		Notifier:   console,
		Logger:     slog.Default(),
	}, store, nil
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
