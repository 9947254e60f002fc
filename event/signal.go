package event

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Signal is a single-shot broadcast. Fire notifies the handlers registered
// at that moment and marks the signal as fired; handlers registered after
// that are never called. There is no replay.
type Signal struct {
	mu      sync.Mutex
	fired   bool
	emitter *Emitter[struct{}]
}

// NewSignal creates an unfired signal.
func NewSignal(name string) *Signal {
	return &Signal{emitter: NewEmitter[struct{}](name)}
}

// SetLogger sets the logger used to report panicking handlers.
func (s *Signal) SetLogger(logger *slog.Logger) {
	s.emitter.SetLogger(logger)
}

// On registers a handler and returns its subscription id.
// Registering on an already fired signal is allowed: the id is valid but
// the handler is dropped and will not run.
func (s *Signal) On(fn func()) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fired {
		return uuid.NewString()
	}
	return s.emitter.Once(func(struct{}) { fn() })
}

// ListenerCount returns the number of handlers still waiting for Fire.
func (s *Signal) ListenerCount() int {
	return s.emitter.ListenerCount()
}

// Off removes a subscription.
func (s *Signal) Off(id string) bool {
	return s.emitter.Off(id)
}

// Fire notifies current handlers. Only the first call has any effect;
// it returns false on every later call.
func (s *Signal) Fire() bool {
	s.mu.Lock()
	if s.fired {
		s.mu.Unlock()
		return false
	}
	s.fired = true
	s.mu.Unlock()

	s.emitter.Emit(struct{}{})
	return true
}

// Fired reports whether Fire has been called.
func (s *Signal) Fired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}
