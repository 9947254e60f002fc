package detector

import (
	"log/slog"
	"sync"
	"time"

	"github.com/x402-foundation/walletkit/event"
)

// State is the detection state. Transitions are monotonic: NotDetected
// moves to either Detected or Timeout and never leaves those.
type State int

const (
	StateNotDetected State = iota
	StateDetected
	StateTimeout
)

func (s State) String() string {
	switch s {
	case StateNotDetected:
		return "not_detected"
	case StateDetected:
		return "detected"
	case StateTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Probe tests for the capability. It returns the capability and true once
// it is available. Probes are called repeatedly and must be cheap.
type Probe[T any] func() (T, bool)

// Detector polls a Probe until it succeeds or the timeout elapses.
//
// Probing is idle-scheduled and re-armed after each attempt; the
// DOMContentLoaded and load lifecycle events trigger extra attempts while
// the page is still loading. The first attempt runs on a separate
// goroutine after New returns and may win before a later OnDetect call;
// register handlers with WithDetectHandler, or check Resolved and Wallet,
// when that matters.
type Detector[T any] struct {
	probe       Probe[T]
	env         Environment
	timeout     time.Duration
	idleTimeout time.Duration
	logger      *slog.Logger

	mu         sync.Mutex
	state      State
	wallet     T
	closed     bool
	cancelIdle func()

	disposers disposer
	detect    *event.Signal

	resolveOnce sync.Once
	resolved    chan struct{}
}

// New creates a Detector and starts probing.
func New[T any](probe Probe[T], opts ...Option) *Detector[T] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	d := &Detector[T]{
		probe:       probe,
		env:         cfg.env,
		timeout:     cfg.timeout,
		idleTimeout: cfg.idleTimeout,
		logger:      cfg.logger.With("component", "detector"),
		detect:      event.NewSignal("detect"),
		resolved:    make(chan struct{}),
	}
	d.detect.SetLogger(d.logger)
	for _, fn := range cfg.handlers {
		d.detect.On(fn)
	}

	timer := time.AfterFunc(d.timeout, d.onTimeout)
	d.disposers.add(func() { timer.Stop() })

	go d.start()

	return d
}

// State returns the current detection state.
func (d *Detector[T]) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Wallet returns the detected capability, if any.
func (d *Detector[T]) Wallet() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.wallet, d.state == StateDetected
}

// Timeout returns the configured detection window.
func (d *Detector[T]) Timeout() time.Duration {
	return d.timeout
}

// OnDetect registers fn to run once when the capability is detected.
// Handlers registered after detection are never called.
func (d *Detector[T]) OnDetect(fn func()) string {
	return d.detect.On(fn)
}

// OffDetect removes a handler registered with OnDetect.
func (d *Detector[T]) OffDetect(id string) bool {
	return d.detect.Off(id)
}

// Resolved returns a channel that is closed once the state leaves
// StateNotDetected.
func (d *Detector[T]) Resolved() <-chan struct{} {
	return d.resolved
}

// Close stops all outstanding probing. The state is left unchanged.
// Close is idempotent.
func (d *Detector[T]) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.disposers.dispose()
	return nil
}

func (d *Detector[T]) start() {
	if !d.env.Supported() {
		d.logger.Debug("environment does not support wallets, waiting for timeout")
		return
	}
	if d.isClosed() {
		return
	}

	d.own(d.cancelPendingIdle)
	d.armIdle()

	switch rs := d.env.ReadyState(); rs {
	case ReadyStateLoading:
		d.own(d.env.AddLifecycleListener(EventDOMContentLoaded, d.tryDetect))
		d.own(d.env.AddLifecycleListener(EventLoad, d.tryDetect))
	case ReadyStateInteractive:
		d.own(d.env.AddLifecycleListener(EventLoad, d.tryDetect))
	}

	d.logger.Debug("detection started",
		"timeout", d.timeout,
		"idle_timeout", d.idleTimeout)

	d.tryDetect()
}

// own registers a teardown action, running it right away if the detector
// is already resolved or closed.
func (d *Detector[T]) own(release func()) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		release()
		return
	}
	d.disposers.add(release)
	d.mu.Unlock()
}

func (d *Detector[T]) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Detector[T]) armIdle() {
	cancel := d.env.RequestIdle(d.onIdle, d.idleTimeout)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		cancel()
		return
	}
	d.cancelIdle = cancel
	d.mu.Unlock()
}

func (d *Detector[T]) onIdle() {
	d.tryDetect()
	if d.isClosed() {
		return
	}
	d.armIdle()
}

func (d *Detector[T]) cancelPendingIdle() {
	d.mu.Lock()
	cancel := d.cancelIdle
	d.cancelIdle = nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (d *Detector[T]) tryDetect() {
	if d.isClosed() {
		return
	}

	value, ok := d.probe()
	if !ok {
		return
	}

	d.mu.Lock()
	if d.closed || d.state == StateDetected {
		d.mu.Unlock()
		return
	}
	d.wallet = value
	d.state = StateDetected
	d.closed = true
	d.mu.Unlock()

	d.logger.Info("wallet detected")

	d.disposers.dispose()
	d.resolve()
	d.detect.Fire()
}

func (d *Detector[T]) onTimeout() {
	d.mu.Lock()
	timedOut := false
	if d.state == StateNotDetected {
		d.state = StateTimeout
		timedOut = true
	}
	d.closed = true
	d.mu.Unlock()

	d.disposers.dispose()

	if timedOut {
		d.logger.Info("wallet detection timed out", "timeout", d.timeout)
		d.resolve()
	}
}

func (d *Detector[T]) resolve() {
	d.resolveOnce.Do(func() { close(d.resolved) })
}
