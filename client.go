package walletkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/x402-foundation/walletkit/event"
)

// WalletClient aggregates strategies of different wallet kinds. The
// strategy that connected last becomes current, and transactions are
// routed to it.
type WalletClient struct {
	mu            sync.RWMutex
	strategies    map[WalletType]Strategy
	order         []WalletType
	subscriptions map[WalletType]string
	current       WalletType
	accounts      []string

	cache     *SubmissionCache
	logger    *slog.Logger
	connected *event.Emitter[WalletType]
}

// ClientOption configures the client
type ClientOption func(*WalletClient)

// WithStrategy registers a strategy at creation time
func WithStrategy(s Strategy) ClientOption {
	return func(c *WalletClient) {
		c.Register(s)
	}
}

// WithSubmissionCache de-duplicates identical submissions for ttl.
func WithSubmissionCache(ttl time.Duration) ClientOption {
	return func(c *WalletClient) {
		if ttl > 0 {
			c.cache = NewSubmissionCache(ttl)
		}
	}
}

// WithClientLogger sets the logger
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *WalletClient) {
		if logger != nil {
			c.logger = logger.With("component", "client")
			c.connected.SetLogger(c.logger)
		}
	}
}

// NewWalletClient creates a new wallet client
func NewWalletClient(opts ...ClientOption) *WalletClient {
	c := &WalletClient{
		strategies:    make(map[WalletType]Strategy),
		subscriptions: make(map[WalletType]string),
		accounts:      []string{},
		logger:        slog.New(slog.DiscardHandler),
		connected:     event.NewEmitter[WalletType]("connect"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Register adds a strategy, replacing any strategy of the same type. A
// strategy that is already connected becomes current when none is.
func (c *WalletClient) Register(s Strategy) *WalletClient {
	walletType := s.Type()

	c.mu.Lock()
	if old, exists := c.strategies[walletType]; exists {
		old.Off(c.subscriptions[walletType])
	} else {
		c.order = append(c.order, walletType)
	}
	c.strategies[walletType] = s
	c.mu.Unlock()

	// Connected is terminal, so the strategy emits connect at most once.
	// Whichever of that event and the adoption below comes first handles
	// the transition; the other is dropped.
	var (
		regMu     sync.Mutex
		delivered bool
		adopted   bool
	)
	id := s.OnConnect(func(WalletType) {
		regMu.Lock()
		duplicate := !delivered && adopted
		delivered = true
		regMu.Unlock()
		if !duplicate {
			c.handleConnect(s)
		}
	})

	c.mu.Lock()
	c.subscriptions[walletType] = id
	adopt := c.current == "" && s.State() == WalletStateConnected
	c.mu.Unlock()

	regMu.Lock()
	adopt = adopt && !delivered
	adopted = adopt
	regMu.Unlock()

	if adopt {
		c.handleConnect(s)
	}
	return c
}

// OnConnect registers fn to run whenever a strategy becomes current.
func (c *WalletClient) OnConnect(fn func(WalletType)) string {
	return c.connected.On(fn)
}

// Off removes a handler registered with OnConnect.
func (c *WalletClient) Off(id string) bool {
	return c.connected.Off(id)
}

// Connect connects the strategy registered for walletType.
func (c *WalletClient) Connect(ctx context.Context, walletType WalletType) (bool, error) {
	s, ok := c.Strategy(walletType)
	if !ok {
		return false, NewUnsupportedWalletError(walletType)
	}
	return s.Connect(ctx)
}

// SignAndSubmitTransaction routes tx to the current strategy.
func (c *WalletClient) SignAndSubmitTransaction(ctx context.Context, tx Transaction) (TransactionResponse, error) {
	s, ok := c.Current()
	if !ok {
		return nil, ErrWalletNotConnected
	}

	if c.cache == nil {
		return s.SignAndSubmitTransaction(ctx, tx)
	}

	key, err := SubmissionKey(s.Type(), tx)
	if err != nil {
		return nil, NewInvalidTransactionError([]string{err.Error()})
	}

	for {
		status, cached, done := c.cache.CheckAndMark(key)
		switch status {
		case StatusCached:
			c.logger.Debug("returning cached submission", "wallet", s.Type())
			return cached, nil

		case StatusInFlight:
			resp, err := c.cache.WaitForResult(ctx, key, done)
			if err != nil {
				return nil, err
			}
			if resp != nil {
				return resp, nil
			}
			// The in-flight submission failed; try again ourselves.

		default:
			resp, err := s.SignAndSubmitTransaction(ctx, tx)
			if err != nil {
				c.cache.Fail(key, done)
				return nil, err
			}
			c.cache.Complete(key, resp, done)
			return resp, nil
		}
	}
}

// IsConnected reports whether any strategy has connected.
func (c *WalletClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current != ""
}

// Accounts returns the accounts of the current strategy.
func (c *WalletClient) Accounts() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyAccounts(c.accounts)
}

// Current returns the strategy that connected last.
func (c *WalletClient) Current() (Strategy, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == "" {
		return nil, false
	}
	s, ok := c.strategies[c.current]
	return s, ok
}

// Strategy returns the strategy registered for walletType.
func (c *WalletClient) Strategy(walletType WalletType) (Strategy, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.strategies[walletType]
	return s, ok
}

// Strategies returns the registered strategies in registration order.
func (c *WalletClient) Strategies() []Strategy {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Strategy, 0, len(c.order))
	for _, walletType := range c.order {
		out = append(out, c.strategies[walletType])
	}
	return out
}

// Statuses returns a status snapshot of every registered strategy.
func (c *WalletClient) Statuses() []Status {
	strategies := c.Strategies()
	out := make([]Status, 0, len(strategies))
	for _, s := range strategies {
		out = append(out, StatusOf(s))
	}
	return out
}

// Close unsubscribes from and closes every strategy.
func (c *WalletClient) Close() error {
	c.mu.Lock()
	strategies := make([]Strategy, 0, len(c.order))
	for _, walletType := range c.order {
		s := c.strategies[walletType]
		s.Off(c.subscriptions[walletType])
		strategies = append(strategies, s)
	}
	c.subscriptions = make(map[WalletType]string)
	c.mu.Unlock()

	var errs []error
	for _, s := range strategies {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s strategy: %w", s.Type(), err))
		}
	}
	c.connected.Clear()
	return errors.Join(errs...)
}

func (c *WalletClient) handleConnect(s Strategy) {
	accounts := s.Accounts()

	c.mu.Lock()
	if c.strategies[s.Type()] != s {
		c.mu.Unlock()
		return
	}
	c.current = s.Type()
	c.accounts = accounts
	c.mu.Unlock()

	c.logger.Info("wallet connected", "wallet", s.Type(), "accounts", len(accounts))
	c.connected.Emit(s.Type())
}

// StatusOf snapshots s.
func StatusOf(s Strategy) Status {
	return Status{
		Type:     s.Type(),
		State:    s.State(),
		Detected: s.Detected(),
		Accounts: s.Accounts(),
	}
}
