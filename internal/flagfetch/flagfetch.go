// Package flagfetch downloads one flag image per registry code into a local
// directory. Files already on disk are trusted and never fetched again, so a
// re-run only touches what is missing.
package flagfetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/five82/passport/internal/registry"
	"github.com/five82/passport/internal/visits"
)

const (
	// DefaultChunkSize bounds how many codes go into one metadata request.
	DefaultChunkSize = 25
	// FlagExt is the extension of every written asset.
	FlagExt = ".svg"
)

var (
	// ErrNoCodes means the registry yielded nothing to process.
	ErrNoCodes = errors.New("registry contains no country codes")
	// ErrNothingResolved means every metadata lookup failed, so no code
	// could be downloaded at all.
	ErrNothingResolved = errors.New("no flag URLs could be resolved")
)

// Resolver maps codes to flag URLs; *restcountries.Client satisfies it.
type Resolver interface {
	ResolveFlagURLs(ctx context.Context, codes []visits.Code) (map[visits.Code]string, error)
}

// Downloader fetches asset bytes; *fetch.Client satisfies it.
type Downloader interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Options configure a run.
type Options struct {
	Registry   []byte // serialized registry; codes are pattern-extracted
	OutDir     string
	Resolver   Resolver
	Downloader Downloader
	ChunkSize  int
	Logger     *slog.Logger
}

// Failure is a code that ended without a file on disk.
type Failure struct {
	Code   visits.Code
	Reason string
}

// Report summarises a run.
type Report struct {
	OutDir    string
	Succeeded []visits.Code
	Skipped   int // succeeded without network because the file existed
	Failed    []Failure
}

// OK reports whether every code has a file.
func (r Report) OK() bool { return len(r.Failed) == 0 }

// Total is the number of codes processed.
func (r Report) Total() int { return len(r.Succeeded) + len(r.Failed) }

// Path returns the destination file for code inside dir.
func Path(dir string, code visits.Code) string {
	return filepath.Join(dir, code.Lower()+FlagExt)
}

// Run reads codes, resolves URLs chunk by chunk, downloads each missing
// asset in code order and reports the outcome.
func Run(ctx context.Context, opts Options) (Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "flagfetch")
	report := Report{OutDir: opts.OutDir}

	codes := registry.ExtractCodes(opts.Registry)
	if len(codes) == 0 {
		return report, ErrNoCodes
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return report, fmt.Errorf("create output dir: %w", err)
	}

	var missing []visits.Code
	for _, code := range codes {
		if !exists(Path(opts.OutDir, code)) {
			missing = append(missing, code)
		}
	}
	logger.Info("codes loaded", "total", len(codes), "missing", len(missing))

	var urls map[visits.Code]string
	if len(missing) > 0 {
		var answered int
		var err error
		urls, answered, err = resolveInChunks(ctx, opts.Resolver, missing, opts.ChunkSize, logger)
		if err != nil {
			return report, err
		}
		// Codes the API answered for but does not know become per-code
		// failures below; only an API that never answered aborts the run.
		if answered == 0 {
			return report, ErrNothingResolved
		}
	}

	for _, code := range codes {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		dest := Path(opts.OutDir, code)
		if exists(dest) {
			report.Succeeded = append(report.Succeeded, code)
			report.Skipped++
			continue
		}
		url, ok := urls[code]
		if !ok {
			report.Failed = append(report.Failed, Failure{Code: code, Reason: "no flag URL resolved"})
			continue
		}
		data, err := opts.Downloader.FetchBytes(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Failed = append(report.Failed, Failure{Code: code, Reason: err.Error()})
			continue
		}
		if err := writeAtomic(dest, data); err != nil {
			report.Failed = append(report.Failed, Failure{Code: code, Reason: err.Error()})
			continue
		}
		logger.Debug("flag saved", "code", code, "bytes", len(data))
		report.Succeeded = append(report.Succeeded, code)
	}
	return report, nil
}

// resolveInChunks queries the resolver one chunk at a time. A failed chunk
// is logged and skipped; its codes stay unresolved. answered counts the
// chunk lookups that succeeded, whatever they returned.
func resolveInChunks(ctx context.Context, resolver Resolver, codes []visits.Code, size int, logger *slog.Logger) (urls map[visits.Code]string, answered int, err error) {
	if size <= 0 {
		size = DefaultChunkSize
	}
	urls = make(map[visits.Code]string, len(codes))
	for start := 0; start < len(codes); start += size {
		chunk := codes[start:min(start+size, len(codes))]
		resolved, lookupErr := resolver.ResolveFlagURLs(ctx, chunk)
		if lookupErr != nil {
			if ctx.Err() != nil {
				return nil, answered, ctx.Err()
			}
			logger.Warn("chunk lookup failed", "first", chunk[0], "size", len(chunk), "error", lookupErr)
			continue
		}
		answered++
		for _, code := range chunk {
			if u, ok := resolved[code]; ok {
				urls[code] = u
			}
		}
	}
	return urls, answered, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// writeAtomic writes through a temp file so a crash never leaves a partial
// asset that a later run would trust.
func writeAtomic(dest string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".flag-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(dest), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(dest), err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(dest), err)
	}
	return nil
}
