// Package backstage embeds a hidden debug console in an application.
// It captures log output, framework errors, and HTTP traffic into an
// in-memory store, gates access behind a tap/passcode activation
// sequence, and remembers the enabled flag across restarts.
package backstage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/serwidlick/backstage/capture"
	"github.com/serwidlick/backstage/gate"
	"github.com/serwidlick/backstage/logs"
	"github.com/serwidlick/backstage/persist"
	"github.com/serwidlick/backstage/redact"
	"github.com/serwidlick/backstage/sink"
)

// CaptureOptions selects which capture paths are active. Print and
// Slog are process-global hooks that Start installs and Close
// restores. Errors, Network, and Guard gate the pull APIs (ErrorHook,
// HTTPTransport, RunGuarded), which become plain passthroughs when
// their source is off.
type CaptureOptions struct {
	Print   bool // tee the standard log package output
	Slog    bool // mirror the default slog handler
	Errors  bool // record errors reported through ErrorHook
	Network bool // record traffic through HTTPTransport
	Guard   bool // record panics recovered by RunGuarded and Go
}

// Options configures a Console
type Options struct {
	Store   logs.StoreOptions
	Redact  redact.Options
	Gate    gate.Config
	Capture CaptureOptions

	// DefaultEnabled applies when no flag has ever been persisted
	DefaultEnabled bool

	// Flag persists the enabled flag across restarts. Nil keeps it
	// in memory only.
	Flag persist.FlagStore

	// PrevErrorHook is chained ahead of the console's error hook
	PrevErrorHook capture.ErrorHook

	// Sinks receive batched entries for durable storage
	Sinks       []sink.Writer
	SinkOptions sink.Options
}

// Status is a point-in-time snapshot of the console
type Status struct {
	Enabled     bool        `json:"enabled"`
	Paused      bool        `json:"paused"`
	Entries     int         `json:"entries"`
	Capacity    int         `json:"capacity"`
	Subscribers int         `json:"subscribers"`
	Gate        gate.Status `json:"gate"`
	StartedAt   time.Time   `json:"started_at"`
}

// Console owns the store, the activation gate, the capture hooks, and
// the sink pumps. Create one per process with New, start it once, and
// close it on shutdown.
type Console struct {
	opts  Options
	store *logs.Store
	gate  *gate.Gate
	flag  persist.FlagStore
	hook  capture.ErrorHook

	enabled atomic.Bool
	started atomic.Bool
	closed  atomic.Bool

	mu        sync.Mutex
	watchers  map[int]func(bool)
	nextWatch int
	restores  []func()
	pumps     []*sink.Pump
	startedAt time.Time
}

// New validates the options and builds a console. It fails fast on
// configuration errors only; runtime trouble (an unreachable flag
// store, a failing sink) surfaces later and never prevents startup.
func New(opts Options) (*Console, error) {
	var problems []string

	redactor, err := redact.NewEngine(opts.Redact)
	if err != nil {
		problems = append(problems, err.Error())
	}
	if opts.Store.Capacity < 0 {
		problems = append(problems, "store: capacity must not be negative")
	}
	if opts.Gate.Taps < 0 {
		problems = append(problems, "gate: tap target must not be negative")
	}
	if opts.Gate.Window < 0 {
		problems = append(problems, "gate: tap window must not be negative")
	}
	if opts.Gate.LockoutThreshold < 0 {
		problems = append(problems, "gate: lockout threshold must not be negative")
	}
	if opts.SinkOptions.FlushInterval < 0 {
		problems = append(problems, "sink: flush interval must not be negative")
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}

	storeOpts := opts.Store
	if redactor != nil && len(opts.Redact.Rules) > 0 {
		storeOpts.Redactor = redactor
	}

	c := &Console{
		opts:     opts,
		store:    logs.NewStore(storeOpts),
		flag:     opts.Flag,
		watchers: make(map[int]func(bool)),
	}
	if c.flag == nil {
		c.flag = &persist.MemoryStore{}
	}
	if opts.Capture.Errors {
		c.hook = capture.ChainErrorHook(opts.PrevErrorHook, c.store)
	} else {
		prev := opts.PrevErrorHook
		c.hook = func(err error, stack []byte) {
			if prev != nil {
				prev(err, stack)
			}
		}
	}
	c.enabled.Store(opts.DefaultEnabled)

	// A successful unlock enables the console, then runs any caller
	// callback
	gateCfg := opts.Gate
	userUnlock := gateCfg.OnUnlock
	gateCfg.OnUnlock = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.SetEnabled(ctx, true); err != nil {
			c.note("enable after unlock: %v", err)
		}
		if userUnlock != nil {
			userUnlock()
		}
	}
	c.gate = gate.New(gateCfg)

	return c, nil
}

// Start loads the persisted enabled flag, installs the configured
// capture hooks, and starts the sink pumps. A flag store that cannot
// be read does not stop startup: the console runs with the default
// and the error is returned for the caller to report.
func (c *Console) Start(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	var flagErr error
	value, ok, err := c.flag.ReadFlag(ctx)
	switch {
	case err != nil:
		flagErr = fmt.Errorf("reading enabled flag: %w", err)
		c.note("enabled flag unavailable, using default: %v", err)
	case ok:
		c.enabled.Store(value)
	default:
		c.enabled.Store(c.opts.DefaultEnabled)
	}

	c.mu.Lock()
	c.startedAt = time.Now()
	if c.opts.Capture.Print {
		c.restores = append(c.restores, capture.InstallLogOutput(c.store))
	}
	if c.opts.Capture.Slog {
		c.restores = append(c.restores, capture.InstallSlogDefault(c.store))
	}
	for _, w := range c.opts.Sinks {
		p := sink.NewPump(c.store, w, c.opts.SinkOptions)
		p.Run()
		c.pumps = append(c.pumps, p)
	}
	c.mu.Unlock()

	c.note("console started")
	return flagErr
}

// SetEnabled flips the flag in memory first, notifies watchers, then
// persists. A persistence failure is returned but the in-memory state
// stands, so the console stays usable when the disk does not.
func (c *Console) SetEnabled(ctx context.Context, enabled bool) error {
	if c.enabled.Swap(enabled) != enabled {
		c.mu.Lock()
		fns := make([]func(bool), 0, len(c.watchers))
		for _, fn := range c.watchers {
			fns = append(fns, fn)
		}
		c.mu.Unlock()
		for _, fn := range fns {
			fn(enabled)
		}
	}

	if err := c.flag.WriteFlag(ctx, enabled); err != nil {
		return fmt.Errorf("persisting enabled flag: %w", err)
	}
	return nil
}

// Enabled reports whether the console surfaces are visible
func (c *Console) Enabled() bool {
	return c.enabled.Load()
}

// OnEnabledChange registers fn to run whenever the enabled flag
// changes. The returned func removes the registration.
func (c *Console) OnEnabledChange(fn func(enabled bool)) (remove func()) {
	c.mu.Lock()
	id := c.nextWatch
	c.nextWatch++
	c.watchers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.watchers, id)
		c.mu.Unlock()
	}
}

// Logger returns a logger that appends directly to the store
func (c *Console) Logger() *Logger {
	return &Logger{store: c.store}
}

// Store exposes the entry store for views and queries
func (c *Console) Store() *logs.Store {
	return c.store
}

// Gate exposes the activation gate for UI surfaces
func (c *Console) Gate() *gate.Gate {
	return c.gate
}

// ErrorHook returns the hook to register with the host framework's
// error reporting. It records each error and forwards to any previous
// hook. With error capture off it only forwards.
func (c *Console) ErrorHook() capture.ErrorHook {
	return c.hook
}

// HTTPTransport wraps next so request/response pairs are recorded.
// Nil next wraps http.DefaultTransport. With network capture off the
// transport is returned unwrapped.
func (c *Console) HTTPTransport(next http.RoundTripper) http.RoundTripper {
	if !c.opts.Capture.Network {
		if next == nil {
			return http.DefaultTransport
		}
		return next
	}
	return capture.NewRoundTripper(next, c.store)
}

// RunGuarded runs fn, converting a panic into a recorded entry and an
// error instead of a crash. With the guard off fn is called directly
// and a panic propagates as usual.
func (c *Console) RunGuarded(fn func() error) error {
	if !c.opts.Capture.Guard {
		return fn()
	}
	return capture.Guard(c.store, fn)
}

// Go runs fn on a new goroutine with the same panic capture as
// RunGuarded
func (c *Console) Go(fn func()) {
	if !c.opts.Capture.Guard {
		go fn()
		return
	}
	capture.Go(c.store, func() error {
		fn()
		return nil
	})
}

// Status reports a snapshot for status endpoints and UIs
func (c *Console) Status() Status {
	c.mu.Lock()
	startedAt := c.startedAt
	c.mu.Unlock()

	return Status{
		Enabled:     c.enabled.Load(),
		Paused:      c.store.Paused(),
		Entries:     c.store.Len(),
		Capacity:    c.store.Capacity(),
		Subscribers: c.store.Subscribers(),
		Gate:        c.gate.Snapshot(),
		StartedAt:   startedAt,
	}
}

// Close restores the capture hooks, drains and closes the sink pumps,
// and closes the store. Safe to call more than once.
func (c *Console) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.mu.Lock()
	restores := c.restores
	pumps := c.pumps
	c.restores = nil
	c.pumps = nil
	c.mu.Unlock()

	// Captures first so nothing new flows in while pumps drain
	for i := len(restores) - 1; i >= 0; i-- {
		restores[i]()
	}

	var errs []error
	for _, p := range pumps {
		if err := p.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	c.store.Close()
	return errors.Join(errs...)
}

// note records internal console events as debug entries so they show
// up in the console itself rather than the host's output
func (c *Console) note(format string, args ...any) {
	c.store.Append(logs.New(logs.LevelDebug, fmt.Sprintf(format, args...),
		logs.WithTag(capture.InternalTag)))
}
