package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/quantroll/vex/config"
	"github.com/quantroll/vex/gateway"
	"github.com/quantroll/vex/journal"
	"github.com/quantroll/vex/oracle"
	"github.com/quantroll/vex/store"
	"github.com/quantroll/vex/validate"
	"github.com/quantroll/vex/vex"
)

// app bundles the wired components every subcommand needs.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	store  *store.Store
	gw     *gateway.Client
	hist   journal.Journal
	ledger *vex.Ledger
}

// newApp loads configuration and wires the store, gateway, journal and
// ledger together.
func newApp() (*app, error) {
	var cfg *config.Config
	var err error
	if cfgPath != "" {
		cfg, err = config.LoadFromFile(cfgPath, slog.Default())
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.Load(slog.Default())
	}

	log := newLogger(cfg)

	st, err := store.Open(cfg.Storage.DataDir,
		store.DefaultCapitalBook(cfg.Account.VirtualBalance, cfg.Account.Currency), log)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	gw := gateway.NewClient(cfg.Exchange.BaseURL,
		cfg.Exchange.APIKey, cfg.Exchange.APISecret, cfg.Exchange.Real, log)

	var hist journal.Journal = journal.Nop{}
	if cfg.Storage.JournalPath != "" {
		j, err := journal.NewSQLite(cfg.Storage.JournalPath)
		if err != nil {
			log.Warn("journal unavailable, continuing without it",
				"path", cfg.Storage.JournalPath, "error", err)
		} else {
			hist = j
		}
	}

	// Venue limits are only consulted when real trading is configured;
	// offline simulation validates with the whole-unit fallback rules
	// instead of dying on an unreachable metadata endpoint.
	var limits validate.LimitsSource
	if gw.IsConnected() {
		limits = gw
	}
	ledger := vex.New(st, oracle.New(gw, log), validate.New(limits), hist, log)

	return &app{
		cfg:    cfg,
		log:    log,
		store:  st,
		gw:     gw,
		hist:   hist,
		ledger: ledger,
	}, nil
}

func (a *app) close() {
	if err := a.hist.Close(); err != nil {
		a.log.Debug("journal close", "error", err)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var h slog.Handler
	if strings.ToLower(cfg.Logging.Format) == "json" {
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		h = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
		})
	}
	return slog.New(h)
}
