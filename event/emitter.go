package event

import (
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
)

// Handler receives an emitted value.
type Handler[T any] func(T)

type subscription[T any] struct {
	id      string
	handler Handler[T]
	once    bool
}

// Emitter is a synchronous, multi-fire event emitter.
// Handlers run on the goroutine that calls Emit, in registration order,
// and never while the emitter's lock is held.
type Emitter[T any] struct {
	mu     sync.RWMutex
	name   string
	subs   []subscription[T]
	logger *slog.Logger
}

// NewEmitter creates an emitter. The name only appears in log output.
func NewEmitter[T any](name string) *Emitter[T] {
	return &Emitter[T]{
		name:   name,
		logger: slog.New(slog.DiscardHandler),
	}
}

// SetLogger sets the logger used to report panicking handlers.
func (e *Emitter[T]) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	e.mu.Lock()
	e.logger = logger
	e.mu.Unlock()
}

// On registers a handler and returns its subscription id.
func (e *Emitter[T]) On(h Handler[T]) string {
	return e.add(h, false)
}

// Once registers a handler that is removed before its first invocation.
func (e *Emitter[T]) Once(h Handler[T]) string {
	return e.add(h, true)
}

func (e *Emitter[T]) add(h Handler[T], once bool) string {
	id := uuid.NewString()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, subscription[T]{id: id, handler: h, once: once})
	return id
}

// Off removes a subscription. Returns true if it was registered.
func (e *Emitter[T]) Off(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, sub := range e.subs {
		if sub.id == id {
			e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Emit calls every handler registered at the time of the call and returns
// how many were called.
func (e *Emitter[T]) Emit(value T) int {
	e.mu.Lock()
	snapshot := make([]subscription[T], len(e.subs))
	copy(snapshot, e.subs)

	kept := e.subs[:0:0]
	for _, sub := range e.subs {
		if !sub.once {
			kept = append(kept, sub)
		}
	}
	e.subs = kept
	logger := e.logger
	e.mu.Unlock()

	for _, sub := range snapshot {
		e.safeCall(logger, sub.handler, value)
	}
	return len(snapshot)
}

// ListenerCount returns the number of registered handlers.
func (e *Emitter[T]) ListenerCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subs)
}

// Clear removes every handler.
func (e *Emitter[T]) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = nil
}

// safeCall recovers a panicking handler so the remaining handlers still run.
func (e *Emitter[T]) safeCall(logger *slog.Logger, h Handler[T], value T) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event handler panicked",
				"event", e.name,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	h(value)
}
