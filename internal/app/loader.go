package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/five82/passport/internal/restcountries"
	"github.com/five82/passport/internal/visits"
)

const (
	defaultRetryInterval = 2 * time.Second
	maxBackoff           = 30 * time.Second
)

// MetaSource is satisfied by *countrymeta.Cache.
type MetaSource interface {
	Get(ctx context.Context) (map[visits.Code]restcountries.Meta, error)
}

// MetaCache is a MetaSource whose stored facts can be dropped;
// *countrymeta.Cache satisfies it.
type MetaCache interface {
	MetaSource
	Clear(ctx context.Context) error
}

// MetaSink receives loader results; the UI program adapts it to messages.
type MetaSink interface {
	MetaLoaded(meta map[visits.Code]restcountries.Meta)
	MetaFailed(err error, retry time.Duration)
}

// StartMetaLoader fetches country facts in the background, retrying with
// exponential backoff until it succeeds or ctx is cancelled. It returns
// immediately; the returned channel closes when the loader exits.
func StartMetaLoader(ctx context.Context, source MetaSource, sink MetaSink, base time.Duration, logger *slog.Logger) <-chan struct{} {
	if base <= 0 {
		base = defaultRetryInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "metaloader")

	done := make(chan struct{})
	go func() {
		defer close(done)
		failures := 0
		for {
			meta, err := source.Get(ctx)
			if err == nil {
				logger.Info("country facts ready", "countries", len(meta))
				sink.MetaLoaded(meta)
				return
			}
			if ctx.Err() != nil {
				return
			}

			wait := calculateBackoff(failures, base)
			failures++
			logger.Warn("country facts fetch failed", "error", err, "retry_in", wait)
			sink.MetaFailed(err, wait)

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
	return done
}

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for range failures {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}

// factsLoader owns the running meta loader so a refresh can replace it.
type factsLoader struct {
	ctx    context.Context
	cache  MetaCache
	sink   MetaSink
	base   time.Duration
	logger *slog.Logger

	mu   sync.Mutex
	stop context.CancelFunc
	done <-chan struct{}
}

func newFactsLoader(ctx context.Context, cache MetaCache, sink MetaSink, base time.Duration, logger *slog.Logger) *factsLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &factsLoader{ctx: ctx, cache: cache, sink: sink, base: base, logger: logger}
}

// Start launches the loader, replacing one that is still running.
func (l *factsLoader) Start() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.restartLocked()
}

// Refresh drops the cached facts and fetches them again.
func (l *factsLoader) Refresh() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
	if err := l.cache.Clear(l.ctx); err != nil {
		l.logger.Warn("clear country facts", "error", err)
	}
	return l.restartLocked()
}

// Stop cancels the running loader and waits for it to exit.
func (l *factsLoader) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
}

func (l *factsLoader) restartLocked() <-chan struct{} {
	l.stopLocked()
	ctx, cancel := context.WithCancel(l.ctx)
	l.stop = cancel
	l.done = StartMetaLoader(ctx, l.cache, l.sink, l.base, l.logger)
	return l.done
}

func (l *factsLoader) stopLocked() {
	if l.stop == nil {
		return
	}
	l.stop()
	<-l.done
	l.stop, l.done = nil, nil
}
