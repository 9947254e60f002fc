package detector

import (
	"sync"
	"time"
)

// ReadyState mirrors the document ready states of a hosting page.
type ReadyState int

const (
	// ReadyStateLoading means the document is still being parsed.
	ReadyStateLoading ReadyState = iota
	// ReadyStateInteractive means parsing finished but sub-resources are loading.
	ReadyStateInteractive
	// ReadyStateComplete means the page and its sub-resources are loaded.
	ReadyStateComplete
)

func (s ReadyState) String() string {
	switch s {
	case ReadyStateLoading:
		return "loading"
	case ReadyStateInteractive:
		return "interactive"
	case ReadyStateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// ParseReadyState converts a document.readyState value.
// Unknown values are treated as complete.
func ParseReadyState(s string) ReadyState {
	switch s {
	case "loading":
		return ReadyStateLoading
	case "interactive":
		return ReadyStateInteractive
	default:
		return ReadyStateComplete
	}
}

// LifecycleEvent names a page lifecycle signal.
type LifecycleEvent string

const (
	// EventDOMContentLoaded fires once the document has been parsed.
	EventDOMContentLoaded LifecycleEvent = "DOMContentLoaded"
	// EventLoad fires once the page is fully loaded.
	EventLoad LifecycleEvent = "load"
)

// Environment is the execution environment a Detector probes in.
type Environment interface {
	// Supported reports whether the environment can host wallets at all.
	Supported() bool

	// ReadyState returns the current page ready state.
	ReadyState() ReadyState

	// RequestIdle schedules cb to run when the environment is idle,
	// but no later than maxWait. The returned func cancels the request.
	RequestIdle(cb func(), maxWait time.Duration) (cancel func())

	// AddLifecycleListener registers a one-shot listener for ev.
	// The returned func removes it; calling it after the listener fired
	// is a no-op.
	AddLifecycleListener(ev LifecycleEvent, cb func()) (remove func())
}

// ProcessEnvironment is the environment of a plain Go process: it is
// always supported, always complete, and has no idle signal of its own,
// so idle requests run once maxWait elapses.
type ProcessEnvironment struct{}

// NewProcessEnvironment returns the default environment.
func NewProcessEnvironment() ProcessEnvironment {
	return ProcessEnvironment{}
}

// Supported always returns true.
func (ProcessEnvironment) Supported() bool { return true }

// ReadyState always returns ReadyStateComplete.
func (ProcessEnvironment) ReadyState() ReadyState { return ReadyStateComplete }

// RequestIdle runs cb after maxWait.
func (ProcessEnvironment) RequestIdle(cb func(), maxWait time.Duration) func() {
	t := time.AfterFunc(maxWait, cb)
	return func() { t.Stop() }
}

// AddLifecycleListener never fires: a process has no page lifecycle.
func (ProcessEnvironment) AddLifecycleListener(LifecycleEvent, func()) func() {
	return func() {}
}

// Headless is an environment that cannot host wallets.
type Headless struct {
	ProcessEnvironment
}

// Supported always returns false.
func (Headless) Supported() bool { return false }

// Host is an Environment driven by its owner: the support flag and ready
// state are set explicitly and lifecycle events are dispatched with Fire.
// It is used by adapters that translate external page events and by tests.
type Host struct {
	mu          sync.Mutex
	supported   bool
	readyState  ReadyState
	idleDelay   time.Duration
	listeners   map[LifecycleEvent]map[uint64]func()
	nextID      uint64
	idleRequest func(cb func(), maxWait time.Duration) func()
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithReadyState sets the initial ready state.
func WithReadyState(s ReadyState) HostOption {
	return func(h *Host) {
		h.readyState = s
	}
}

// WithSupported sets the initial support flag.
func WithSupported(supported bool) HostOption {
	return func(h *Host) {
		h.supported = supported
	}
}

// WithIdleDelay makes idle requests run after the given delay instead of
// after their max wait, whichever is shorter.
func WithIdleDelay(d time.Duration) HostOption {
	return func(h *Host) {
		h.idleDelay = d
	}
}

// WithIdleScheduler replaces how idle requests are scheduled.
func WithIdleScheduler(fn func(cb func(), maxWait time.Duration) func()) HostOption {
	return func(h *Host) {
		h.idleRequest = fn
	}
}

// NewHost creates a supported host in ReadyStateLoading.
func NewHost(opts ...HostOption) *Host {
	h := &Host{
		supported:  true,
		readyState: ReadyStateLoading,
		listeners:  make(map[LifecycleEvent]map[uint64]func()),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Supported implements Environment.
func (h *Host) Supported() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.supported
}

// SetSupported changes the support flag.
func (h *Host) SetSupported(supported bool) {
	h.mu.Lock()
	h.supported = supported
	h.mu.Unlock()
}

// ReadyState implements Environment.
func (h *Host) ReadyState() ReadyState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.readyState
}

// RequestIdle implements Environment.
func (h *Host) RequestIdle(cb func(), maxWait time.Duration) func() {
	h.mu.Lock()
	schedule := h.idleRequest
	delay := maxWait
	if h.idleDelay > 0 && h.idleDelay < delay {
		delay = h.idleDelay
	}
	h.mu.Unlock()

	if schedule != nil {
		return schedule(cb, maxWait)
	}
	t := time.AfterFunc(delay, cb)
	return func() { t.Stop() }
}

// AddLifecycleListener implements Environment.
func (h *Host) AddLifecycleListener(ev LifecycleEvent, cb func()) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	if h.listeners[ev] == nil {
		h.listeners[ev] = make(map[uint64]func())
	}
	h.listeners[ev][id] = cb

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners[ev], id)
	}
}

// ListenerCount returns the number of pending listeners for ev.
func (h *Host) ListenerCount(ev LifecycleEvent) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners[ev])
}

// Fire advances the ready state to match ev and runs, then removes, every
// listener registered for ev.
func (h *Host) Fire(ev LifecycleEvent) {
	h.mu.Lock()
	switch ev {
	case EventDOMContentLoaded:
		if h.readyState < ReadyStateInteractive {
			h.readyState = ReadyStateInteractive
		}
	case EventLoad:
		h.readyState = ReadyStateComplete
	}
	pending := h.listeners[ev]
	delete(h.listeners, ev)
	h.mu.Unlock()

	for _, cb := range pending {
		cb()
	}
}

var (
	_ Environment = ProcessEnvironment{}
	_ Environment = Headless{}
	_ Environment = (*Host)(nil)
)
