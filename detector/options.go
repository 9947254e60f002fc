package detector

import (
	"log/slog"
	"time"
)

const (
	// DefaultTimeout bounds how long a Detector keeps probing.
	DefaultTimeout = 15 * time.Second

	// DefaultIdleTimeout is the longest an idle-scheduled probe waits.
	DefaultIdleTimeout = time.Second
)

type config struct {
	env         Environment
	timeout     time.Duration
	idleTimeout time.Duration
	logger      *slog.Logger
	handlers    []func()
}

func defaultConfig() config {
	return config{
		env:         NewProcessEnvironment(),
		timeout:     DefaultTimeout,
		idleTimeout: DefaultIdleTimeout,
		logger:      slog.New(slog.DiscardHandler),
	}
}

// Option configures a Detector.
type Option func(*config)

// WithEnvironment sets the environment to probe in.
//
// Default: NewProcessEnvironment()
func WithEnvironment(env Environment) Option {
	return func(c *config) {
		if env != nil {
			c.env = env
		}
	}
}

// WithTimeout sets the detection window. Non-positive values are ignored.
//
// Default: 15 seconds
func WithTimeout(timeout time.Duration) Option {
	return func(c *config) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithIdleTimeout sets the maximum wait of each idle-scheduled probe.
// Non-positive values are ignored.
//
// Default: 1 second
func WithIdleTimeout(timeout time.Duration) Option {
	return func(c *config) {
		if timeout > 0 {
			c.idleTimeout = timeout
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDetectHandler registers fn with the detect signal before probing
// starts, so it cannot miss an immediate detection.
func WithDetectHandler(fn func()) Option {
	return func(c *config) {
		if fn != nil {
			c.handlers = append(c.handlers, fn)
		}
	}
}
