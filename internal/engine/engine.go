package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lboswell/treeow-core/internal/attribute"
	"github.com/lboswell/treeow-core/internal/device"
	"github.com/lboswell/treeow-core/internal/eventbus"
	"github.com/lboswell/treeow-core/internal/treeow"
)

// Defaults for the sync loops.
const (
	defaultPollInterval      = 5 * time.Second
	defaultHeartbeatInterval = 10 * time.Second
	defaultPurgeEvery        = 60

	// Poll cycle backoff after a fully failed cycle.
	cycleRetryDelay    = 5 * time.Second
	cycleRetryDelayMax = 60 * time.Second

	// Heartbeat recovery starts fast and never waits longer than the
	// regular heartbeat interval.
	heartbeatRetryDelay = time.Second
)

// Logger defines the logging interface used by this package.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Client is the vendor API surface the engine consumes.
// *treeow.Client satisfies it.
type Client interface {
	CachedModel(ctx context.Context, cache *treeow.ModelCache, info device.Info) ([]attribute.RawAttribute, error)
	Snapshot(ctx context.Context, info device.Info, model []attribute.RawAttribute) (map[string]any, error)
	SendCommand(ctx context.Context, info device.Info, key string, value any) error
	SendHeartbeat(ctx context.Context, info device.Info) error
}

// Config holds the engine loop intervals.
type Config struct {
	// PollInterval is the pause between poll cycles. Default: 5s.
	PollInterval time.Duration

	// HeartbeatInterval is the per-device heartbeat cadence. Default: 10s.
	HeartbeatInterval time.Duration

	// PurgeEvery is the number of poll cycles between capability cache
	// sweeps. Default: 60.
	PurgeEvery int
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.PurgeEvery <= 0 {
		c.PurgeEvery = defaultPurgeEvery
	}
	return c
}

// Engine synchronizes registry devices with the vendor cloud.
//
// The engine itself is passive; all work happens inside a Session. At most
// one session is "current": the one whose gateway-status events are
// authoritative.
type Engine struct {
	client   Client
	cache    *treeow.ModelCache
	registry *device.Registry
	bus      *eventbus.Bus
	cfg      Config
	logger   Logger

	mu      sync.Mutex
	current *Session
}

// New creates an engine over the given collaborators.
func New(client Client, cache *treeow.ModelCache, registry *device.Registry, bus *eventbus.Bus, cfg Config) *Engine {
	return &Engine{
		client:   client,
		cache:    cache,
		registry: registry,
		bus:      bus,
		cfg:      cfg.withDefaults(),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
}

// Session is one run of the sync loops. It is created by Start and torn
// down by Stop.
type Session struct {
	id     string
	engine *Engine
	cancel context.CancelFunc
	done   chan struct{}

	stopOnce sync.Once
}

// ID returns the session's unique handle, useful in logs.
func (s *Session) ID() string {
	return s.id
}

// Stop shuts the session down and blocks until its goroutines have
// drained. Safe to call more than once, and a no-op source of events if
// the session has been superseded.
func (s *Session) Stop() {
	s.stopOnce.Do(s.cancel)
	<-s.done
}

// Start launches a new session and makes it current, superseding any
// previous one. The caller remains responsible for stopping the previous
// session; its shutdown can no longer emit gateway-status events.
func (e *Engine) Start(ctx context.Context) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		id:     uuid.NewString(),
		engine: e,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	e.mu.Lock()
	e.current = s
	e.mu.Unlock()

	e.logger.Info("sync session starting", "session_id", s.id, "devices", e.registry.Count())
	go e.run(ctx, s)
	return s
}

// isCurrent reports whether s is the engine's authoritative session.
func (e *Engine) isCurrent(s *Session) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current == s
}

// run is the session body: heartbeats, control consumer, poll loop, drain.
func (e *Engine) run(ctx context.Context, s *Session) {
	defer close(s.done)

	var wg sync.WaitGroup

	for _, d := range e.registry.List() {
		wg.Add(1)
		go func(info device.Info) {
			defer wg.Done()
			e.heartbeatLoop(ctx, info)
		}(d.Info)
	}

	// Publishes in flight when the subscription is cancelled can still
	// invoke the handler, so admission is gated explicitly: once draining,
	// late control events are dropped instead of racing wg.Wait.
	var (
		controlMu sync.Mutex
		draining  bool
	)
	cancelControl := e.bus.SubscribeControl(func(ev eventbus.ControlRequest) {
		controlMu.Lock()
		if draining {
			controlMu.Unlock()
			return
		}
		wg.Add(1)
		controlMu.Unlock()

		go func() {
			defer wg.Done()
			e.handleControl(ctx, ev)
		}()
	})

	e.bus.PublishGateway(eventbus.GatewayStatus{Online: true})

	e.pollLoop(ctx)

	// Drain: no new control work, let in-flight goroutines finish.
	cancelControl()
	controlMu.Lock()
	draining = true
	controlMu.Unlock()
	wg.Wait()

	if e.isCurrent(s) {
		e.bus.PublishGateway(eventbus.GatewayStatus{Online: false})
		e.logger.Info("sync session stopped", "session_id", s.id)
	} else {
		e.logger.Debug("superseded sync session drained", "session_id", s.id)
	}
}

// pollLoop fetches all devices each cycle until the context ends. A cycle
// where every device failed backs off exponentially; any success resets
// the delay.
func (e *Engine) pollLoop(ctx context.Context) {
	retry := newBackoff(cycleRetryDelay, cycleRetryDelayMax)
	cycles := 0

	for {
		ok := e.pollAll(ctx)
		if ctx.Err() != nil {
			return
		}

		delay := e.cfg.PollInterval
		if ok {
			retry.Reset()
		} else {
			delay = retry.Next()
			e.logger.Warn("poll cycle failed for all devices", "retry_in", delay.String())
		}

		cycles++
		if cycles >= e.cfg.PurgeEvery {
			cycles = 0
			if removed := e.cache.PurgeExpired(); removed > 0 {
				e.logger.Debug("purged expired capability schemas", "removed", removed)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// pollAll polls every registered device concurrently. Device failures are
// isolated: one device erroring never blocks the others. Returns false
// only when every device in a non-empty registry failed.
func (e *Engine) pollAll(ctx context.Context) bool {
	devices := e.registry.List()
	if len(devices) == 0 {
		return true
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for _, d := range devices {
		wg.Add(1)
		go func(d *device.Device) {
			defer wg.Done()
			if err := e.pollDevice(ctx, d); err != nil {
				e.logger.Error("device poll failed", "device_id", d.ID, "error", err)
				return
			}
			mu.Lock()
			succeeded++
			mu.Unlock()
		}(d)
	}
	wg.Wait()

	return succeeded > 0
}

// pollDevice fetches one device's snapshot and publishes fresh values.
func (e *Engine) pollDevice(ctx context.Context, d *device.Device) error {
	model, err := e.client.CachedModel(ctx, e.cache, d.Info)
	if err != nil {
		return err
	}
	values, err := e.client.Snapshot(ctx, d.Info, model)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	d.UpdateSnapshot(values)
	e.bus.PublishState(eventbus.StateChanged{DeviceID: d.ID, Attributes: values})
	return nil
}

// heartbeatLoop keeps one device marked as watched. Failures recover on a
// fast doubling delay that never exceeds the regular heartbeat interval.
func (e *Engine) heartbeatLoop(ctx context.Context, info device.Info) {
	retry := newBackoff(heartbeatRetryDelay, e.cfg.HeartbeatInterval)

	for {
		delay := e.cfg.HeartbeatInterval
		if err := e.client.SendHeartbeat(ctx, info); err != nil {
			if ctx.Err() != nil {
				return
			}
			delay = retry.Next()
			e.logger.Warn("heartbeat failed",
				"device_id", info.ID, "error", err, "retry_in", delay.String())
		} else {
			retry.Reset()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// handleControl applies a control request: send-and-verify each requested
// capability in key order, then force a poll so consumers see the result
// without waiting for the next cycle. The first failed write aborts the
// remaining keys.
func (e *Engine) handleControl(ctx context.Context, ev eventbus.ControlRequest) {
	d, err := e.registry.Get(ev.DeviceID)
	if err != nil {
		e.logger.Error("control request for unknown device", "device_id", ev.DeviceID)
		return
	}

	keys := make([]string, 0, len(ev.Attributes))
	for k := range ev.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := e.client.SendCommand(ctx, d.Info, key, ev.Attributes[key]); err != nil {
			e.logger.Error("control write failed",
				"device_id", d.ID, "capability", key, "error", err)
			return
		}
		e.logger.Debug("control write applied", "device_id", d.ID, "capability", key)
	}

	if err := e.pollDevice(ctx, d); err != nil {
		e.logger.Warn("post-control poll failed", "device_id", d.ID, "error", err)
	}
}
