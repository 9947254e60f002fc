package walletkit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/x402-foundation/walletkit/detector"
	"github.com/x402-foundation/walletkit/event"
)

// WalletStrategy detects one kind of wallet and guards its connection
// state machine.
//
// The state starts at WalletStateSupported, or WalletStateUnsupported when
// the environment check fails. Connect moves it through Connecting to
// Connected; a wallet that already granted permission when it is detected
// is promoted to Connected directly.
type WalletStrategy struct {
	walletType WalletType
	detector   *detector.Detector[Wallet]
	envCheck   func() bool
	validator  TransactionValidator
	logger     *slog.Logger
	metrics    *Metrics
	baseCtx    context.Context

	mu       sync.Mutex
	state    WalletState
	accounts []string

	detected  *event.Signal
	connected *event.Emitter[WalletType]

	closeOnce sync.Once
	done      chan struct{}
}

type strategyConfig struct {
	env          detector.Environment
	envCheck     func() bool
	detectorOpts []detector.Option
	validator    TransactionValidator
	logger       *slog.Logger
	metrics      *Metrics
	baseCtx      context.Context

	detectHandlers  []func()
	connectHandlers []func(WalletType)
}

// StrategyOption configures a WalletStrategy.
type StrategyOption func(*strategyConfig)

// WithEnvironment sets the environment the detector probes in. Its
// Supported method also becomes the environment check unless
// WithEnvironmentCheck overrides it.
func WithEnvironment(env detector.Environment) StrategyOption {
	return func(c *strategyConfig) {
		if env != nil {
			c.env = env
		}
	}
}

// WithEnvironmentCheck overrides the predicate deciding whether the
// environment can host the wallet.
func WithEnvironmentCheck(check func() bool) StrategyOption {
	return func(c *strategyConfig) {
		c.envCheck = check
	}
}

// WithDetectorOptions passes options through to the detector.
func WithDetectorOptions(opts ...detector.Option) StrategyOption {
	return func(c *strategyConfig) {
		c.detectorOpts = append(c.detectorOpts, opts...)
	}
}

// WithStrategyLogger sets the logger.
func WithStrategyLogger(logger *slog.Logger) StrategyOption {
	return func(c *strategyConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStrategyMetrics enables metrics recording.
func WithStrategyMetrics(m *Metrics) StrategyOption {
	return func(c *strategyConfig) {
		c.metrics = m
	}
}

// WithTransactionValidator validates transactions before they are handed
// to the wallet.
func WithTransactionValidator(v TransactionValidator) StrategyOption {
	return func(c *strategyConfig) {
		c.validator = v
	}
}

// WithBaseContext sets the context used for calls the strategy makes on
// its own, such as the permission check after detection.
//
// Default: context.Background()
func WithBaseContext(ctx context.Context) StrategyOption {
	return func(c *strategyConfig) {
		if ctx != nil {
			c.baseCtx = ctx
		}
	}
}

// WithDetectHandler registers fn on the strategy's detect event before
// detection starts, so it cannot miss a wallet found on the first probe.
func WithDetectHandler(fn func()) StrategyOption {
	return func(c *strategyConfig) {
		if fn != nil {
			c.detectHandlers = append(c.detectHandlers, fn)
		}
	}
}

// WithConnectHandler registers fn on the strategy's connect event before
// detection starts, so it also sees the promotion of a wallet that was
// already permitted when first probed.
func WithConnectHandler(fn func(WalletType)) StrategyOption {
	return func(c *strategyConfig) {
		if fn != nil {
			c.connectHandlers = append(c.connectHandlers, fn)
		}
	}
}

// NewWalletStrategy creates a strategy for walletType and starts detecting
// the wallet through probe.
func NewWalletStrategy(walletType WalletType, probe detector.Probe[Wallet], opts ...StrategyOption) *WalletStrategy {
	cfg := strategyConfig{
		env:     detector.NewProcessEnvironment(),
		logger:  slog.New(slog.DiscardHandler),
		baseCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.envCheck == nil {
		cfg.envCheck = cfg.env.Supported
	}

	s := &WalletStrategy{
		walletType: walletType,
		envCheck:   cfg.envCheck,
		validator:  cfg.validator,
		logger:     cfg.logger.With("component", "strategy", "wallet", string(walletType)),
		metrics:    cfg.metrics,
		baseCtx:    cfg.baseCtx,
		state:      WalletStateSupported,
		accounts:   []string{},
		detected:   event.NewSignal("detect"),
		connected:  event.NewEmitter[WalletType]("connect"),
		done:       make(chan struct{}),
	}
	if !s.envCheck() {
		s.state = WalletStateUnsupported
	}
	s.detected.SetLogger(s.logger)
	s.connected.SetLogger(s.logger)
	for _, fn := range cfg.detectHandlers {
		s.detected.On(fn)
	}
	for _, fn := range cfg.connectHandlers {
		s.connected.On(fn)
	}
	s.metrics.SetState(walletType, s.state)

	detectorOpts := append([]detector.Option{
		detector.WithEnvironment(cfg.env),
		detector.WithLogger(s.logger),
	}, cfg.detectorOpts...)
	detectorOpts = append(detectorOpts, detector.WithDetectHandler(s.handleDetect))

	// handleDetect reads s.detector under s.mu, so it waits for the
	// assignment below.
	s.mu.Lock()
	s.detector = detector.New(probe, detectorOpts...)
	s.mu.Unlock()

	go s.watchTimeout()

	return s
}

// Type returns the wallet kind.
func (s *WalletStrategy) Type() WalletType {
	return s.walletType
}

// State returns the current connection state.
func (s *WalletStrategy) State() WalletState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Accounts returns a copy of the accounts from the last connection.
func (s *WalletStrategy) Accounts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyAccounts(s.accounts)
}

// Detected reports whether the wallet has been detected.
func (s *WalletStrategy) Detected() bool {
	_, ok := s.wallet()
	return ok
}

// DetectionState returns the detector state.
func (s *WalletStrategy) DetectionState() detector.State {
	return s.getDetector().State()
}

// Resolved returns a channel that is closed once detection has succeeded
// or timed out.
func (s *WalletStrategy) Resolved() <-chan struct{} {
	return s.getDetector().Resolved()
}

// OnDetect registers fn to run once when the wallet is detected.
//
// Detection starts on its own goroutine inside NewWalletStrategy, so a
// wallet found on the first probe can be detected before OnDetect is
// called; fn then never runs. Use WithDetectHandler, or check Detected,
// when that matters.
func (s *WalletStrategy) OnDetect(fn func()) string {
	return s.detected.On(fn)
}

// OnConnect registers fn to run on every transition into Connected.
//
// A wallet that is already permitted is promoted right after detection,
// possibly before OnConnect is called. Use WithConnectHandler, or check
// State, when that transition must be observed.
func (s *WalletStrategy) OnConnect(fn func(WalletType)) string {
	return s.connected.On(fn)
}

// Off removes a handler registered with OnDetect or OnConnect.
func (s *WalletStrategy) Off(id string) bool {
	if s.detected.Off(id) {
		return true
	}
	return s.connected.Off(id)
}

// IsConnected reports whether a wallet was detected and has granted
// permission.
func (s *WalletStrategy) IsConnected(ctx context.Context) (bool, error) {
	wallet, ok := s.wallet()
	if !ok {
		return false, nil
	}
	return wallet.HasPermissions(ctx)
}

// Connect requests permission from the detected wallet.
//
// It returns false without error when the environment is unsupported, a
// connection exists or is in progress, or the wallet already granted
// permission. It returns ErrWalletNotDetected when no wallet was detected
// and ErrWalletNotSupported when the strategy is unsupported. Errors from
// the wallet's permission request are returned unmodified.
func (s *WalletStrategy) Connect(ctx context.Context) (bool, error) {
	if !s.envCheck() {
		return false, nil
	}

	switch s.State() {
	case WalletStateConnected, WalletStateConnecting:
		return false, nil
	}

	wallet, detected := s.wallet()
	if !detected {
		return false, ErrWalletNotDetected
	}

	granted, err := wallet.HasPermissions(ctx)
	if err != nil {
		return false, err
	}
	if granted {
		return false, nil
	}

	s.mu.Lock()
	switch s.state {
	case WalletStateConnected, WalletStateConnecting:
		s.mu.Unlock()
		return false, nil
	case WalletStateUnsupported:
		s.mu.Unlock()
		return false, ErrWalletNotSupported
	}
	s.state = WalletStateConnecting
	s.mu.Unlock()
	s.metrics.SetState(s.walletType, WalletStateConnecting)

	approved, err := wallet.RequestPermissions(ctx)
	if err != nil {
		s.setState(WalletStateSupported)
		s.metrics.RecordConnect(s.walletType, "error")
		s.logger.Warn("permission request failed", "error", err)
		return false, err
	}
	if !approved {
		s.setState(WalletStateSupported)
		s.metrics.RecordConnect(s.walletType, "denied")
		s.logger.Info("permission request denied")
		return false, nil
	}

	accounts, err := wallet.GetAccounts(ctx)
	if err != nil {
		s.setState(WalletStateSupported)
		s.metrics.RecordConnect(s.walletType, "error")
		return false, fmt.Errorf("failed to get accounts: %w", err)
	}

	s.markConnected(accounts)
	s.metrics.RecordConnect(s.walletType, "approved")
	s.logger.Info("wallet connected", "accounts", len(accounts))
	s.connected.Emit(s.walletType)

	return true, nil
}

// SignAndSubmitTransaction hands tx to the detected wallet. It requires a
// detected wallet only; the connection state is not checked. Wallet
// failures are returned as a sign_transaction_failed WalletError wrapping
// the wallet's error.
func (s *WalletStrategy) SignAndSubmitTransaction(ctx context.Context, tx Transaction) (TransactionResponse, error) {
	wallet, ok := s.wallet()
	if !ok {
		return nil, ErrWalletNotDetected
	}

	if s.validator != nil {
		if err := s.validator.Validate(tx); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	resp, err := wallet.ExecuteTransaction(ctx, tx)
	s.metrics.RecordSubmission(s.walletType, err == nil, time.Since(start).Seconds())
	if err != nil {
		s.logger.Warn("transaction failed", "error", err)
		return nil, NewSignTransactionError(err)
	}

	return resp, nil
}

// Close stops detection. It is idempotent.
func (s *WalletStrategy) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return s.getDetector().Close()
}

func (s *WalletStrategy) getDetector() *detector.Detector[Wallet] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detector
}

func (s *WalletStrategy) wallet() (Wallet, bool) {
	return s.getDetector().Wallet()
}

func (s *WalletStrategy) setState(state WalletState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.metrics.SetState(s.walletType, state)
}

func (s *WalletStrategy) markConnected(accounts []string) {
	s.mu.Lock()
	s.accounts = copyAccounts(accounts)
	s.state = WalletStateConnected
	s.mu.Unlock()
	s.metrics.SetState(s.walletType, WalletStateConnected)
}

// handleDetect re-emits detection and promotes the strategy to Connected
// when the wallet already granted permission.
func (s *WalletStrategy) handleDetect() {
	s.metrics.RecordDetection(s.walletType, "detected")
	s.detected.Fire()

	wallet, ok := s.wallet()
	if !ok {
		return
	}

	granted, err := wallet.HasPermissions(s.baseCtx)
	if err != nil {
		s.logger.Warn("permission check after detection failed", "error", err)
		return
	}
	if !granted {
		return
	}

	accounts, err := wallet.GetAccounts(s.baseCtx)
	if err != nil {
		s.logger.Warn("failed to get accounts after detection", "error", err)
		return
	}

	s.mu.Lock()
	if s.state == WalletStateConnected {
		s.mu.Unlock()
		return
	}
	s.accounts = copyAccounts(accounts)
	s.state = WalletStateConnected
	s.mu.Unlock()
	s.metrics.SetState(s.walletType, WalletStateConnected)

	s.logger.Info("wallet already permitted, connected", "accounts", len(accounts))
	s.connected.Emit(s.walletType)
}

func (s *WalletStrategy) watchTimeout() {
	d := s.getDetector()
	select {
	case <-d.Resolved():
		if d.State() == detector.StateTimeout {
			s.metrics.RecordDetection(s.walletType, "timeout")
			s.logger.Info("wallet not detected before timeout", "timeout", d.Timeout())
		}
	case <-s.done:
	}
}

var _ Strategy = (*WalletStrategy)(nil)
