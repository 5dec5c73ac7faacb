package helper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bgunnarsson/dbhelper/internal/config"
	"github.com/bgunnarsson/dbhelper/internal/db"
)

var ErrUnknownHelper = errors.New("unknown helper")

// Opener connects to the database described by s.
type Opener func(ctx context.Context, s config.Settings, opts db.Options) (db.DB, error)

// ErrFactoryClosed is returned by Helper once Close has been called.
var ErrFactoryClosed = errors.New("helper factory is closed")

// Factory hands out one Helper per configured name, connecting on first
// use. The caller owns the Factory and must Close it on shutdown.
type Factory struct {
	cfg  *config.Config
	open Opener
	log  *slog.Logger

	mu      sync.Mutex
	helpers map[string]*entry
	closed  bool
}

// entry is one helper being opened or already open. ready is closed once h
// or err is set.
type entry struct {
	ready chan struct{}
	h     *Helper
	err   error
}

func NewFactory(cfg *config.Config, open Opener, log *slog.Logger) *Factory {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Factory{
		cfg:     cfg,
		open:    open,
		log:     log,
		helpers: map[string]*entry{},
	}
}

func (f *Factory) Names() []string { return f.cfg.Names() }

// Default returns the helper named "default".
func (f *Factory) Default(ctx context.Context) (*Helper, error) {
	return f.Helper(ctx, config.DefaultHelper)
}

// Helper returns the helper for name, opening its connection if this is
// the first request for it. Concurrent callers for the same name share one
// open; callers for other names are not held up by it.
func (f *Factory) Helper(ctx context.Context, name string) (*Helper, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrFactoryClosed
	}
	if e, ok := f.helpers[name]; ok {
		f.mu.Unlock()
		select {
		case <-e.ready:
			return e.h, e.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s, ok := f.cfg.Helpers[name]
	if !ok {
		f.mu.Unlock()
		return nil, fmt.Errorf("%w %q", ErrUnknownHelper, name)
	}
	e := &entry{ready: make(chan struct{})}
	f.helpers[name] = e
	f.mu.Unlock()

	h, err := f.openHelper(ctx, name, s)

	f.mu.Lock()
	switch {
	case err != nil:
		// failed opens are not cached
		if f.helpers[name] == e {
			delete(f.helpers, name)
		}
	case f.closed:
		_ = h.Close()
		h, err = nil, ErrFactoryClosed
	}
	e.h, e.err = h, err
	f.mu.Unlock()
	close(e.ready)

	return h, err
}

func (f *Factory) openHelper(ctx context.Context, name string, s config.Settings) (*Helper, error) {
	opts := db.Options{
		MaxOpenConns:   s.PoolNum,
		ConnectTimeout: s.Timeout(),
		Logger:         f.log,
	}

	f.log.Debug("opening helper", "name", name, "type", s.DBType)
	conn, err := f.open(ctx, s, opts)
	if err != nil {
		return nil, fmt.Errorf("open helper %q: %w", name, err)
	}
	return New(conn, WithLogger(f.log.With("helper", name))), nil
}

// Close closes every helper opened so far, waiting for opens in flight.
func (f *Factory) Close() error {
	f.mu.Lock()
	f.closed = true
	entries := f.helpers
	f.helpers = map[string]*entry{}
	f.mu.Unlock()

	var errs []error
	for name, e := range entries {
		<-e.ready
		if e.h == nil {
			continue
		}
		if err := e.h.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close helper %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
