package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/passport/internal/config"
	"github.com/five82/passport/internal/countrymeta"
	"github.com/five82/passport/internal/fetch"
	"github.com/five82/passport/internal/imagecomp"
	"github.com/five82/passport/internal/kvstore"
	"github.com/five82/passport/internal/persist"
	"github.com/five82/passport/internal/prefs"
	"github.com/five82/passport/internal/registry"
	"github.com/five82/passport/internal/restcountries"
	"github.com/five82/passport/internal/ui"
	"github.com/five82/passport/internal/visits"
)

// Options configure the tracker application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses ~/.config/passport/prefs.toml
	Debug      bool
}

// Run boots the tracker TUI until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, closeLog, err := openLogger(cfg.LogPath, opts.Debug)
	if err != nil {
		return err
	}
	defer closeLog()
	// Packages capture slog.Default at construction, so set it first.
	slog.SetDefault(logger)

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	userPrefs := prefs.Load(prefsPath)

	countries, err := registry.Load(cfg.RegistryPath)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	backend, err := kvstore.OpenSQLite(cfg.DatabasePath(), cfg.QuotaBytes)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer backend.Close()

	gateway := persist.NewGateway(backend)
	tracker := visits.NewTracker(gateway.Load(ctx), gateway, imagecomp.New(cfg.CompressorOptions()))

	api, err := restcountries.NewClient(cfg.APIBase, fetch.NewClient(fetch.DefaultPolicy()))
	if err != nil {
		return fmt.Errorf("init country api: %w", err)
	}
	cache := countrymeta.New(backend, api)

	logger.Info("starting",
		"data_dir", cfg.DataDir,
		"countries", len(countries),
		"visited", tracker.Snapshot().VisitedCount(),
	)

	// The sink needs the program and the program needs the loader's
	// Refresh, so the program is attached to the sink afterwards.
	sink := &programSink{}
	loader := newFactsLoader(ctx, cache, sink, defaultRetryInterval, logger)
	defer loader.Stop()

	program := ui.NewProgram(ui.Options{
		Context:      ctx,
		Tracker:      tracker,
		Storage:      backend,
		Countries:    countries,
		Prefs:        userPrefs,
		PrefsPath:    prefsPath,
		Logger:       logger,
		RefreshFacts: func() { loader.Refresh() },
	})
	sink.p = program
	loader.Start()

	_, runErr := program.Run()

	// A save that failed earlier gets one last chance on exit.
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if tracker.Status().Dirty() {
		if err := tracker.Flush(flushCtx); err != nil {
			logger.Warn("unsaved changes on exit", "error", err)
		}
	}

	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("run ui: %w", runErr)
	}
	return nil
}

// programSink forwards loader results into the Bubble Tea event loop.
type programSink struct{ p *tea.Program }

func (s *programSink) MetaLoaded(meta map[visits.Code]restcountries.Meta) {
	s.p.Send(ui.MetaMsg{Meta: meta})
}

func (s *programSink) MetaFailed(err error, retry time.Duration) {
	s.p.Send(ui.MetaErrorMsg{Err: err, Retry: retry})
}

// openLogger writes JSON logs to path; the terminal belongs to the UI.
func openLogger(path string, debug bool) (*slog.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
	return logger, func() { _ = f.Close() }, nil
}
