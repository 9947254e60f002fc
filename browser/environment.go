package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/x402-foundation/walletkit/detector"
)

// Page is the subset of playwright.Page used here.
type Page interface {
	Evaluate(expression string, arg ...interface{}) (interface{}, error)
	OnDOMContentLoaded(fn func(playwright.Page))
	OnLoad(fn func(playwright.Page))
}

const (
	readyStateScript = `() => document.readyState`

	// Resolves once the page is idle, or after timeout milliseconds.
	requestIdleScript = `timeout => new Promise(resolve => {
		if (typeof window.requestIdleCallback === 'function') {
			window.requestIdleCallback(() => resolve(true), { timeout });
		} else {
			setTimeout(() => resolve(false), 1);
		}
	})`
)

// Environment is a detector.Environment backed by a live browser page.
// Idle requests run the page's own requestIdleCallback and lifecycle
// events are forwarded from the page.
type Environment struct {
	*detector.Host

	page   Page
	logger *slog.Logger
}

// EnvironmentOption configures an Environment.
type EnvironmentOption func(*Environment)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EnvironmentOption {
	return func(e *Environment) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEnvironment reads the page's ready state and starts forwarding its
// lifecycle events.
func NewEnvironment(page Page, opts ...EnvironmentOption) (*Environment, error) {
	e := &Environment{
		page:   page,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "browser")

	raw, err := page.Evaluate(readyStateScript)
	if err != nil {
		return nil, fmt.Errorf("failed to read document ready state: %w", err)
	}
	state, _ := raw.(string)

	e.Host = detector.NewHost(
		detector.WithReadyState(detector.ParseReadyState(state)),
		detector.WithIdleScheduler(e.requestIdle),
	)

	page.OnDOMContentLoaded(func(playwright.Page) {
		e.Fire(detector.EventDOMContentLoaded)
	})
	page.OnLoad(func(playwright.Page) {
		e.Fire(detector.EventLoad)
	})

	return e, nil
}

// requestIdle waits in the page for an idle slot and then runs cb, unless
// the request was cancelled first. When the page cannot be reached, cb
// runs after maxWait so polling continues.
func (e *Environment) requestIdle(cb func(), maxWait time.Duration) func() {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		_, err := e.page.Evaluate(requestIdleScript, maxWait.Milliseconds())
		if err != nil {
			e.logger.Debug("idle request failed, falling back to timer", "error", err)
			select {
			case <-time.After(maxWait):
			case <-ctx.Done():
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		cb()
	}()

	return cancel
}

// evaluate runs Evaluate and gives up when ctx is done. The script keeps
// running in the page in that case.
func evaluate(ctx context.Context, page Page, expression string, arg interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		value interface{}
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := page.Evaluate(expression, arg)
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

var (
	_ detector.Environment = (*Environment)(nil)
	_ Page                 = (playwright.Page)(nil)
)
