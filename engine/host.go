package engine

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joetifa2003/katex/internal/pool"
)

// Host owns live engines and decides how calls from many goroutines reach
// them. Each Call is one atomic request/response on exactly one engine.
type Host interface {
	Call(fn string, args ...any) (string, error)
	Close() error
}

type hostConfig struct {
	name   string
	size   int
	logger Logger
}

// HostOption configures a Host.
type HostOption func(config *hostConfig)

// WithName sets the backend name used in log records.
func WithName(name string) HostOption {
	return func(config *hostConfig) {
		config.name = name
	}
}

// WithSize sets how many engines a pooled or pinned host may keep alive.
// Default: runtime.GOMAXPROCS(0).
func WithSize(size int) HostOption {
	return func(config *hostConfig) {
		config.size = size
	}
}

// WithLogger sets the logger for engine lifecycle records.
func WithLogger(logger Logger) HostOption {
	return func(config *hostConfig) {
		config.logger = logger
	}
}

func newHostConfig(options []HostOption) *hostConfig {
	config := &hostConfig{}
	for _, option := range options {
		option(config)
	}
	if config.size < 1 {
		config.size = runtime.GOMAXPROCS(0)
	}
	if config.logger == nil {
		config.logger = slog.New(slog.DiscardHandler)
	}
	return config
}

// start runs factory and logs how long it took.
func (c *hostConfig) start(factory Factory, attrs ...slog.Attr) (Engine, error) {
	ctx := context.Background()

	c.logger.LogAttrs(ctx, slog.LevelInfo, "starting js engine",
		append(attrs, slog.String("engine", c.name))...,
	)

	t1 := time.Now()
	e, err := factory()
	if err != nil {
		c.logger.LogAttrs(ctx, slog.LevelError, "js engine failed to start",
			append(attrs, slog.String("engine", c.name), slog.Any("error", err))...,
		)
		return nil, err
	}

	c.logger.LogAttrs(ctx, slog.LevelInfo, "js engine started",
		append(attrs, slog.String("engine", e.Name()), slog.String("dur", time.Since(t1).String()))...,
	)
	return e, nil
}

func (c *hostConfig) stop(e Engine, attrs ...slog.Attr) error {
	err := e.Close()
	c.logger.LogAttrs(context.Background(), slog.LevelDebug, "js engine closed",
		append(attrs, slog.String("engine", e.Name()), slog.Any("error", err))...,
	)
	return err
}

// singleHost keeps one engine for the whole process.
type singleHost struct {
	config  *hostConfig
	factory Factory
	mu      sync.Locker

	started bool
	engine  Engine
	initErr error
	closed  bool
}

// NewLocked returns a host with one process-wide engine, created on the
// first call. Calls from different goroutines serialize on a mutex, since a
// single script context cannot serve two calls at once.
func NewLocked(factory Factory, options ...HostOption) Host {
	return &singleHost{
		config:  newHostConfig(options),
		factory: factory,
		mu:      &sync.Mutex{},
	}
}

// NewDirect returns a host with one engine and no locking, for hosts that
// never run two calls at once (a single-threaded wasm environment).
func NewDirect(factory Factory, options ...HostOption) Host {
	return &singleHost{
		config:  newHostConfig(options),
		factory: factory,
		mu:      nopLocker{},
	}
}

func (h *singleHost) Call(fn string, args ...any) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return "", ErrClosed
	}
	if !h.started {
		h.started = true
		h.engine, h.initErr = h.config.start(h.factory)
	}
	if h.initErr != nil {
		return "", h.initErr
	}

	return h.engine.Call(fn, args...)
}

func (h *singleHost) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	if h.engine == nil {
		return nil
	}
	return h.config.stop(h.engine)
}

type nopLocker struct{}

func (nopLocker) Lock()   {}
func (nopLocker) Unlock() {}

// pooledHost hands each call an engine of its own.
type pooledHost struct {
	config *hostConfig
	pool   *pool.Pool[Engine]

	mu      sync.Mutex
	initErr error

	busy atomic.Int32
}

// NewPooled returns a host that checks out one engine per call from a pool
// of at most WithSize engines. Engines are created lazily and reused, so a
// goroutine calling repeatedly keeps hitting warm engines while concurrent
// callers never share one.
func NewPooled(factory Factory, options ...HostOption) Host {
	h := &pooledHost{config: newHostConfig(options)}

	h.pool = pool.NewPool(h.config.size, func() (Engine, error) {
		if err := h.stickyErr(); err != nil {
			return nil, err
		}
		e, err := h.config.start(factory)
		if err != nil {
			h.mu.Lock()
			if h.initErr == nil {
				h.initErr = err
			}
			h.mu.Unlock()
			return nil, err
		}
		return e, nil
	},
		pool.WithPoolBeforeGet[Engine](func(e Engine) {
			h.config.logger.LogAttrs(context.Background(), slog.LevelDebug, "js engine checked out",
				slog.String("engine", e.Name()),
				slog.Int("busy", int(h.busy.Add(1))),
			)
		}),
		pool.WithPoolBeforePut[Engine](func(e Engine) {
			h.config.logger.LogAttrs(context.Background(), slog.LevelDebug, "js engine returned",
				slog.String("engine", e.Name()),
				slog.Int("busy", int(h.busy.Add(-1))),
			)
		}),
		pool.WithPoolOnEvict[Engine](func(e Engine) {
			_ = h.config.stop(e)
		}),
	)

	return h
}

func (h *pooledHost) stickyErr() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.initErr
}

func (h *pooledHost) Call(fn string, args ...any) (string, error) {
	e, err := h.pool.Get()
	if err != nil {
		if errors.Is(err, pool.ErrClosed) {
			return "", ErrClosed
		}
		return "", err
	}
	defer h.pool.Put(e)

	return e.Call(fn, args...)
}

func (h *pooledHost) Close() error {
	h.pool.Close()
	return nil
}

// pinnedHost runs every engine on a goroutine locked to its own OS thread.
type pinnedHost struct {
	config  *hostConfig
	factory Factory

	startOnce sync.Once
	closeOnce sync.Once
	reqs      chan pinnedRequest
	done      chan struct{}
	wg        sync.WaitGroup
}

type pinnedRequest struct {
	fn    string
	args  []any
	reply chan pinnedReply
}

type pinnedReply struct {
	result string
	err    error
}

// NewPinned returns a host for engines bound to the OS thread that created
// them. WithSize workers are started on first use; each locks its thread,
// creates its own engine on its first request and keeps it until Close.
func NewPinned(factory Factory, options ...HostOption) Host {
	return &pinnedHost{
		config:  newHostConfig(options),
		factory: factory,
		reqs:    make(chan pinnedRequest),
		done:    make(chan struct{}),
	}
}

func (h *pinnedHost) Call(fn string, args ...any) (string, error) {
	select {
	case <-h.done:
		return "", ErrClosed
	default:
	}

	h.startOnce.Do(func() {
		for id := range h.config.size {
			h.wg.Add(1)
			go h.worker(id)
		}
	})

	req := pinnedRequest{fn: fn, args: args, reply: make(chan pinnedReply, 1)}
	select {
	case <-h.done:
		return "", ErrClosed
	case h.reqs <- req:
	}

	rep := <-req.reply
	return rep.result, rep.err
}

func (h *pinnedHost) worker(id int) {
	defer h.wg.Done()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var (
		e       Engine
		initErr error
		started bool
	)

	for {
		select {
		case <-h.done:
			if e != nil {
				_ = h.config.stop(e, slog.Int("worker", id))
			}
			return
		case req := <-h.reqs:
			if !started {
				started = true
				e, initErr = h.config.start(h.factory, slog.Int("worker", id))
			}
			if initErr != nil {
				req.reply <- pinnedReply{err: initErr}
				continue
			}
			res, err := e.Call(req.fn, req.args...)
			req.reply <- pinnedReply{result: res, err: err}
		}
	}
}

// Close stops the workers and waits for each to release its engine on its
// own thread.
func (h *pinnedHost) Close() error {
	h.closeOnce.Do(func() {
		close(h.done)
	})
	h.wg.Wait()
	return nil
}
