// Command fetchflags downloads one SVG flag per registry country into
// assets/flags. Run it from the repository root; flags already present are
// kept and not requested again. When the registry file is not reachable from
// the working directory the built-in registry is used.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/fatih/color"

	"github.com/five82/passport/internal/fetch"
	"github.com/five82/passport/internal/flagfetch"
	"github.com/five82/passport/internal/registry"
	"github.com/five82/passport/internal/restcountries"
)

const (
	registryPath = "internal/registry/countries.yaml"
	outDir       = "assets/flags"
)

func main() {
	os.Exit(run())
}

// scriptEnv is the only configuration the script reads, so a broken
// tracker config file cannot stop it.
type scriptEnv struct {
	APIBase string `env:"PASSPORT_API_BASE"`
}

func loadScriptEnv() (scriptEnv, error) {
	var se scriptEnv
	if err := env.Parse(&se); err != nil {
		return scriptEnv{}, fmt.Errorf("parse environment: %w", err)
	}
	return se, nil
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.New(&colorHandler{level: slog.LevelInfo})
	slog.SetDefault(logger)

	raw, err := os.ReadFile(registryPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Outside the repository root the compiled-in copy is the registry.
		logger.Warn("registry file not found, using built-in registry", "path", registryPath)
		raw = registry.Raw()
	case err != nil:
		return report(os.Stdout, os.Stderr, flagfetch.Report{}, fmt.Errorf("read registry: %w", err))
	}

	se, err := loadScriptEnv()
	if err != nil {
		return report(os.Stdout, os.Stderr, flagfetch.Report{}, err)
	}
	fetcher := fetch.NewClient(fetch.DefaultPolicy())
	api, err := restcountries.NewClient(se.APIBase, fetcher)
	if err != nil {
		return report(os.Stdout, os.Stderr, flagfetch.Report{}, fmt.Errorf("init api client: %w", err))
	}

	rep, err := flagfetch.Run(ctx, flagfetch.Options{
		Registry:   raw,
		OutDir:     outDir,
		Resolver:   api,
		Downloader: fetcher,
		Logger:     logger,
	})
	return report(os.Stdout, os.Stderr, rep, err)
}

// report prints one line per failed code and a summary, and maps the
// outcome to the exit code: 0 only when every flag is present.
func report(out, errOut io.Writer, rep flagfetch.Report, err error) int {
	red := color.New(color.FgRed, color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	if err != nil {
		switch {
		case errors.Is(err, flagfetch.ErrNothingResolved):
			red.Fprintln(errOut, "No flag URLs could be resolved; the country API may be unreachable. Nothing was downloaded.")
		case errors.Is(err, flagfetch.ErrNoCodes):
			red.Fprintf(errOut, "No country codes found in %s.\n", registryPath)
		default:
			red.Fprintf(errOut, "fetchflags: %v\n", err)
		}
		return 1
	}

	for _, f := range rep.Failed {
		red.Fprintf(errOut, "  ✗ %s: %s\n", f.Code, f.Reason)
	}

	summary := fmt.Sprintf("%d/%d flags in %s (%d already present)",
		len(rep.Succeeded), rep.Total(), rep.OutDir, rep.Skipped)
	if rep.OK() {
		green.Fprintln(out, "✓ "+summary)
		return 0
	}
	yellow.Fprintf(out, "! %s, %d failed\n", summary, len(rep.Failed))
	return 1
}

// stderrMu serializes writes from handlers derived through WithAttrs.
var stderrMu sync.Mutex

// colorHandler writes compact colorized log lines to stderr.
type colorHandler struct {
	level slog.Level
	attrs []slog.Attr
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))
	switch {
	case r.Level >= slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	case r.Level >= slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case r.Level >= slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	default:
		buf.WriteString(color.MagentaString("DBG "))
	}
	buf.WriteString(r.Message)

	write := func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(write)
	buf.WriteString("\n")

	stderrMu.Lock()
	defer stderrMu.Unlock()
	_, err := fmt.Fprint(os.Stderr, buf.String())
	return err
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &colorHandler{level: h.level, attrs: merged}
}

// WithGroup is a no-op; this handler prints flat attributes only.
func (h *colorHandler) WithGroup(string) slog.Handler { return h }
