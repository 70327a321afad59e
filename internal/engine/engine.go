// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package engine owns the registries, the reference world, and the script
// runtime, and serializes all work onto a single tick goroutine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/holomush/stonehook/internal/command"
	"github.com/holomush/stonehook/internal/component"
	"github.com/holomush/stonehook/internal/logging"
	"github.com/holomush/stonehook/internal/policy"
	"github.com/holomush/stonehook/internal/script"
	"github.com/holomush/stonehook/internal/script/capability"
	"github.com/holomush/stonehook/internal/script/hostfunc"
	scriptlua "github.com/holomush/stonehook/internal/script/lua"
	"github.com/holomush/stonehook/internal/store"
	"github.com/holomush/stonehook/internal/world"
)

// DefaultTickRate is the interval between ticks.
const DefaultTickRate = 50 * time.Millisecond

// Phase is the lifecycle stage of an Engine.
type Phase int32

// Engine phases.
const (
	PhaseNew Phase = iota
	PhaseInitialized
	PhaseRunning
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseNew:
		return "new"
	case PhaseInitialized:
		return "initialized"
	case PhaseRunning:
		return "running"
	case PhaseStopped:
		return "stopped"
	}
	return fmt.Sprintf("phase(%d)", int32(p))
}

// Config configures an Engine.
type Config struct {
	// DataDir is the directory script databases and DBPath resolve against.
	DataDir string
	// ScriptsDir holds one directory per script. Empty loads no scripts.
	ScriptsDir string
	// DBPath is the world database relative to DataDir. Empty keeps
	// component payloads in memory only.
	DBPath string
	// TickRate is the tick interval. Defaults to DefaultTickRate.
	TickRate time.Duration
	// RateLimit enables per-origin command rate limiting when set.
	RateLimit *command.RateLimiterConfig
	// LoadTimeout bounds each script's top-level chunk.
	LoadTimeout time.Duration
	// Dimensions are created besides world.DefaultDimension.
	Dimensions []string
	// ChatLog receives every delivered chat line.
	ChatLog io.Writer
	// Registerer receives rate limiter metrics. Optional.
	Registerer prometheus.Registerer
}

type workItem struct {
	ctx    context.Context
	fn     func(context.Context) error
	result chan error
}

// Engine is the process-wide owner of every registry. Registries accept
// registrations until Start seals them.
type Engine struct {
	cfg Config

	policies   *policy.Registry
	commands   *command.Registry
	components *component.Registry

	world      *world.World
	store      *component.Store
	db         *store.DB
	limiter    *command.RateLimiter
	dispatcher *command.Dispatcher
	enforcer   *capability.Enforcer
	scripts    *script.Manager

	phase     atomic.Int32
	tick      atomic.Uint64
	started   atomic.Int64
	work      chan workItem
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// New creates an engine in PhaseNew. Nothing is opened until Init.
func New(cfg Config) *Engine {
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultTickRate
	}
	return &Engine{
		cfg:        cfg,
		policies:   policy.NewRegistry(),
		commands:   command.NewRegistry(),
		components: component.DefaultRegistry(),
		work:       make(chan workItem),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Init opens the world store, builds the reference world, registers the
// core commands, and loads every script. Any error is fatal: the engine
// moves to PhaseStopped and the caller should Close it and exit.
func (e *Engine) Init(ctx context.Context) (err error) {
	if !e.phase.CompareAndSwap(int32(PhaseNew), int32(PhaseInitialized)) {
		return e.errPhase("init")
	}
	defer func() {
		if err != nil {
			e.phase.Store(int32(PhaseStopped))
		}
	}()
	errb := oops.In("engine").Code(CodeInitFailed)

	worldOpts := []world.Option{
		world.WithDimensions(e.cfg.Dimensions...),
		world.WithPolicyGate(e),
	}
	if e.cfg.ChatLog != nil {
		worldOpts = append(worldOpts, world.WithChatLog(e.cfg.ChatLog))
	}
	if e.cfg.DBPath != "" {
		db, err := store.Open(ctx, store.Options{DataDir: e.cfg.DataDir, Path: e.cfg.DBPath, Migrate: true})
		if err != nil {
			return errb.With("db_path", e.cfg.DBPath).Wrap(err)
		}
		e.db = db
		worldOpts = append(worldOpts, world.WithPersistence(db))
	}
	e.world = world.New(worldOpts...)
	e.store = component.NewStore(e.world, e.components)

	dispatchOpts := []command.DispatcherOption{command.WithSelectorResolver(e.world)}
	if e.cfg.RateLimit != nil {
		e.limiter = command.NewRateLimiter(*e.cfg.RateLimit, command.WithLimiterRegisterer(e.cfg.Registerer))
		dispatchOpts = append(dispatchOpts, command.WithRateLimiter(e.limiter))
	}
	dispatcher, err := command.NewDispatcher(e.commands, dispatchOpts...)
	if err != nil {
		return errb.Wrap(err)
	}
	e.dispatcher = dispatcher

	if err := e.registerCoreCommands(); err != nil {
		return errb.Wrap(err)
	}

	e.enforcer = capability.NewEnforcer()
	functions := hostfunc.New(e.enforcer,
		hostfunc.WithPolicies(e.policies),
		hostfunc.WithCommands(e.commands),
		hostfunc.WithComponents(e.store, e.components),
		hostfunc.WithMessenger(e.world),
		hostfunc.WithDatabases(e.openDatabase),
		hostfunc.WithBlockStorage(e.world),
	)
	hostOpts := []scriptlua.HostOption{}
	if e.cfg.LoadTimeout > 0 {
		hostOpts = append(hostOpts, scriptlua.WithLoadTimeout(e.cfg.LoadTimeout))
	}
	host := scriptlua.NewHost(e.enforcer, functions, hostOpts...)
	e.scripts = script.NewManager(e.cfg.ScriptsDir, script.WithHost(host))

	if e.cfg.ScriptsDir != "" {
		if err := e.scripts.LoadAll(ctx); err != nil {
			return errb.Wrap(err)
		}
	}

	slog.InfoContext(ctx, "engine initialized",
		"scripts", len(e.scripts.ListScripts()),
		"commands", len(e.commands.All()),
		"policies", len(e.policies.All()))
	return nil
}

// openDatabase opens a script database relative to the data dir.
func (e *Engine) openDatabase(ctx context.Context, path string) (hostfunc.Database, error) {
	db, err := store.Open(ctx, store.Options{DataDir: e.cfg.DataDir, Path: path})
	if err != nil {
		return nil, err //nolint:wrapcheck // store errors carry their own codes
	}
	return db, nil
}

// Start seals every registry and starts the tick goroutine.
func (e *Engine) Start(ctx context.Context) error {
	if !e.phase.CompareAndSwap(int32(PhaseInitialized), int32(PhaseRunning)) {
		return e.errPhase("start")
	}
	e.policies.Seal()
	e.commands.Seal()
	e.components.Seal()
	e.started.Store(time.Now().UnixNano())

	go e.loop()

	slog.InfoContext(ctx, "engine started", "tick_rate", e.cfg.TickRate)
	return nil
}

func (e *Engine) loop() {
	defer close(e.done)
	ticker := time.NewTicker(e.cfg.TickRate)
	defer ticker.Stop()

	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			e.tick.Add(1)
			Ticks.Inc()
		case item := <-e.work:
			item.result <- e.run(item.ctx, item.fn)
		}
	}
}

func (e *Engine) run(ctx context.Context, fn func(context.Context) error) (err error) {
	ctx = logging.WithTick(ctx, e.tick.Load())
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "work item panicked", "panic", r)
			err = oops.In("engine").Code(CodeWorkPanicked).With("panic", fmt.Sprint(r)).Errorf("work item panicked: %v", r)
		}
		status := "ok"
		if err != nil {
			status = "error"
		}
		WorkItems.WithLabelValues(status).Inc()
		WorkDuration.Observe(time.Since(start).Seconds())
	}()
	return fn(ctx)
}

// Do runs fn on the engine goroutine and returns its error. While the
// engine is initialized but not started, fn runs on the caller's goroutine.
func (e *Engine) Do(ctx context.Context, fn func(context.Context) error) error {
	switch e.Phase() {
	case PhaseInitialized:
		return e.run(ctx, fn)
	case PhaseRunning:
	default:
		return e.errNotRunning()
	}

	item := workItem{ctx: ctx, fn: fn, result: make(chan error, 1)}
	select {
	case e.work <- item:
	case <-e.done:
		return e.errNotRunning()
	case <-ctx.Done():
		return oops.In("engine").Wrap(ctx.Err())
	}
	select {
	case err := <-item.result:
		return err
	case <-ctx.Done():
		return oops.In("engine").Wrap(ctx.Err())
	}
}

// CheckPolicy runs the handler chain of a policy. It is the world's
// policy gate and runs handlers on the caller's goroutine without going
// through Do. Callers must already be inside a work item (or on the Init
// goroutine before Start); script handlers share one Lua state that is
// not safe for concurrent use.
func (e *Engine) CheckPolicy(ctx context.Context, name string, event policy.Event, def bool) (bool, error) {
	return e.policies.Check(ctx, name, event, def) //nolint:wrapcheck // policy errors carry their own codes
}

// Dispatch runs a pre-tokenized command on the engine goroutine.
func (e *Engine) Dispatch(ctx context.Context, origin command.Origin, name string, tokens []string, out io.Writer) error {
	if e.dispatcher == nil {
		return e.errNotRunning()
	}
	return e.Do(ctx, func(ctx context.Context) error {
		return e.dispatcher.Dispatch(ctx, origin, name, tokens, out) //nolint:wrapcheck // command errors carry their own codes
	})
}

// DispatchLine runs a raw command line on the engine goroutine.
func (e *Engine) DispatchLine(ctx context.Context, origin command.Origin, line string, out io.Writer) error {
	if e.dispatcher == nil {
		return e.errNotRunning()
	}
	return e.Do(ctx, func(ctx context.Context) error {
		return e.dispatcher.DispatchLine(ctx, origin, line, out) //nolint:wrapcheck // command errors carry their own codes
	})
}

// Close stops the tick goroutine and releases scripts and databases. It
// is safe to call in any phase and more than once.
func (e *Engine) Close(ctx context.Context) error {
	e.closeOnce.Do(func() {
		prev := Phase(e.phase.Swap(int32(PhaseStopped)))
		if prev == PhaseRunning {
			close(e.stop)
			<-e.done
		}

		var errs []error
		if e.scripts != nil {
			errs = append(errs, e.scripts.Close(ctx))
		}
		if e.limiter != nil {
			e.limiter.Close()
		}
		if e.db != nil {
			errs = append(errs, e.db.Close())
		}
		e.closeErr = errors.Join(errs...)
		slog.InfoContext(ctx, "engine stopped", "ticks", e.tick.Load())
	})
	return e.closeErr
}

// Phase returns the current lifecycle phase.
func (e *Engine) Phase() Phase {
	return Phase(e.phase.Load())
}

// Running reports whether the tick goroutine is serving work.
func (e *Engine) Running() bool {
	return e.Phase() == PhaseRunning
}

// Tick returns the number of ticks elapsed since Start.
func (e *Engine) Tick() uint64 {
	return e.tick.Load()
}

// Policies returns the policy registry.
func (e *Engine) Policies() *policy.Registry { return e.policies }

// Commands returns the command registry.
func (e *Engine) Commands() *command.Registry { return e.commands }

// Components returns the component definition registry.
func (e *Engine) Components() *component.Registry { return e.components }

// World returns the reference world. It is nil before Init.
func (e *Engine) World() *world.World { return e.world }

// ComponentStore returns the component store. It is nil before Init.
func (e *Engine) ComponentStore() *component.Store { return e.store }

// Scripts returns the loaded scripts in load order.
func (e *Engine) Scripts() []*script.DiscoveredScript {
	if e.scripts == nil {
		return nil
	}
	names := e.scripts.ListScripts()
	out := make([]*script.DiscoveredScript, 0, len(names))
	for _, name := range names {
		if s, ok := e.scripts.Script(name); ok {
			out = append(out, s)
		}
	}
	return out
}

func (e *Engine) errPhase(op string) error {
	return oops.In("engine").
		Code(CodeInvalidPhase).
		With("op", op).
		With("phase", e.Phase().String()).
		Errorf("cannot %s engine in phase %s", op, e.Phase())
}

func (e *Engine) errNotRunning() error {
	return oops.In("engine").
		Code(CodeNotRunning).
		With("phase", e.Phase().String()).
		Errorf("engine is not running")
}
