package walletkit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x402-foundation/walletkit/detector"
)

// mockWallet is a scriptable Wallet.
type mockWallet struct {
	mu sync.Mutex

	hasPermissions    bool
	hasPermissionsErr error
	approve           bool
	requestErr        error
	requestGate       chan struct{}
	accounts          []string
	accountsErr       error
	response          TransactionResponse
	executeErr        error

	requestCalls int
	executeCalls int
	lastTx       Transaction
}

func (w *mockWallet) HasPermissions(ctx context.Context) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hasPermissions, w.hasPermissionsErr
}

func (w *mockWallet) RequestPermissions(ctx context.Context) (bool, error) {
	w.mu.Lock()
	w.requestCalls++
	gate := w.requestGate
	w.mu.Unlock()

	if gate != nil {
		<-gate
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.requestErr != nil {
		return false, w.requestErr
	}
	if w.approve {
		w.hasPermissions = true
	}
	return w.approve, nil
}

func (w *mockWallet) GetAccounts(ctx context.Context) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.accounts, w.accountsErr
}

func (w *mockWallet) ExecuteTransaction(ctx context.Context, tx Transaction) (TransactionResponse, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.executeCalls++
	w.lastTx = tx
	return w.response, w.executeErr
}

func (w *mockWallet) calls() (requests, executes int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.requestCalls, w.executeCalls
}

func neverIdle(func(), time.Duration) func() { return func() {} }

// harness drives a strategy whose wallet appears when the page fires
// DOMContentLoaded.
type harness struct {
	host     *detector.Host
	wallet   *mockWallet
	injected atomic.Bool
	strategy *WalletStrategy
}

func newHarness(t *testing.T, wallet *mockWallet, opts ...StrategyOption) *harness {
	t.Helper()

	h := &harness{
		host:   detector.NewHost(detector.WithIdleScheduler(neverIdle)),
		wallet: wallet,
	}
	probe := func() (Wallet, bool) {
		if h.injected.Load() {
			return h.wallet, true
		}
		return nil, false
	}

	opts = append([]StrategyOption{WithEnvironment(h.host)}, opts...)
	h.strategy = NewWalletStrategy(WalletTypeSui, probe, opts...)
	t.Cleanup(func() { _ = h.strategy.Close() })

	require.Eventually(t, func() bool {
		return h.host.ListenerCount(detector.EventDOMContentLoaded) == 1
	}, time.Second, time.Millisecond)
	return h
}

// inject makes the wallet available and fires the lifecycle event that
// finds it. Detection handlers run before inject returns.
func (h *harness) inject() {
	h.injected.Store(true)
	h.host.Fire(detector.EventDOMContentLoaded)
}

func TestWalletStateString(t *testing.T) {
	assert.Equal(t, "unsupported", WalletStateUnsupported.String())
	assert.Equal(t, "supported", WalletStateSupported.String())
	assert.Equal(t, "connecting", WalletStateConnecting.String())
	assert.Equal(t, "connected", WalletStateConnected.String())
	assert.Equal(t, "WalletState(9)", WalletState(9).String())
}

func TestStrategyInitialState(t *testing.T) {
	h := newHarness(t, &mockWallet{})
	assert.Equal(t, WalletStateSupported, h.strategy.State())
	assert.Equal(t, WalletTypeSui, h.strategy.Type())
	assert.Empty(t, h.strategy.Accounts())
	assert.False(t, h.strategy.Detected())

	unsupported := NewWalletStrategy(WalletTypeSui,
		func() (Wallet, bool) { return nil, false },
		WithEnvironment(detector.Headless{}))
	defer unsupported.Close()
	assert.Equal(t, WalletStateUnsupported, unsupported.State())
}

func TestConnectInUnsupportedEnvironmentReturnsFalse(t *testing.T) {
	wallet := &mockWallet{approve: true}
	h := newHarness(t, wallet, WithEnvironmentCheck(func() bool { return false }))
	h.inject()

	ok, err := h.strategy.Connect(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	requests, _ := wallet.calls()
	assert.Equal(t, 0, requests)
}

func TestConnectBeforeDetection(t *testing.T) {
	h := newHarness(t, &mockWallet{approve: true})

	ok, err := h.strategy.Connect(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrWalletNotDetected)
	assert.Equal(t, ErrCodeWalletNotDetected, ErrorCode(err))
	assert.Equal(t, WalletStateSupported, h.strategy.State())
}

func TestConnectAfterDetectionTimeout(t *testing.T) {
	s := NewWalletStrategy(WalletTypeSui,
		func() (Wallet, bool) { return nil, false },
		WithEnvironment(detector.NewHost(detector.WithIdleScheduler(neverIdle))),
		WithDetectorOptions(detector.WithTimeout(20*time.Millisecond)))
	defer s.Close()

	require.Eventually(t, func() bool {
		return s.DetectionState() == detector.StateTimeout
	}, time.Second, time.Millisecond)

	_, err := s.Connect(context.Background())
	assert.ErrorIs(t, err, ErrWalletNotDetected)
}

func TestConnectWhenStrategyUnsupported(t *testing.T) {
	var supported atomic.Bool
	h := newHarness(t, &mockWallet{approve: true},
		WithEnvironmentCheck(supported.Load))
	require.Equal(t, WalletStateUnsupported, h.strategy.State())

	supported.Store(true)
	h.inject()

	ok, err := h.strategy.Connect(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrWalletNotSupported)
	assert.Equal(t, WalletStateUnsupported, h.strategy.State())
}

func TestConnectApproved(t *testing.T) {
	wallet := &mockWallet{approve: true, accounts: []string{"0xabc", "0xdef"}}
	h := newHarness(t, wallet)

	var connectedWith []WalletType
	h.strategy.OnConnect(func(wt WalletType) { connectedWith = append(connectedWith, wt) })

	h.inject()
	assert.Equal(t, WalletStateSupported, h.strategy.State())

	ok, err := h.strategy.Connect(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, WalletStateConnected, h.strategy.State())
	assert.Equal(t, []string{"0xabc", "0xdef"}, h.strategy.Accounts())
	assert.Equal(t, []WalletType{WalletTypeSui}, connectedWith)

	connected, err := h.strategy.IsConnected(context.Background())
	require.NoError(t, err)
	assert.True(t, connected)
}

func TestConnectDenied(t *testing.T) {
	wallet := &mockWallet{approve: false, accounts: []string{"0xabc"}}
	h := newHarness(t, wallet)
	h.inject()

	emitted := false
	h.strategy.OnConnect(func(WalletType) { emitted = true })

	ok, err := h.strategy.Connect(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, WalletStateSupported, h.strategy.State())
	assert.Empty(t, h.strategy.Accounts())
	assert.False(t, emitted)
}

func TestConnectWhenAlreadyConnected(t *testing.T) {
	wallet := &mockWallet{approve: true, accounts: []string{"0xabc"}}
	h := newHarness(t, wallet)
	h.inject()

	ok, err := h.strategy.Connect(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = h.strategy.Connect(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	requests, _ := wallet.calls()
	assert.Equal(t, 1, requests)
}

func TestConnectWhenPermissionAlreadyGranted(t *testing.T) {
	wallet := &mockWallet{hasPermissions: true, accounts: []string{"0xabc"}}
	h := newHarness(t, wallet)

	var connects atomic.Int32
	h.strategy.OnConnect(func(WalletType) { connects.Add(1) })
	h.inject()

	ok, err := h.strategy.Connect(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	requests, _ := wallet.calls()
	assert.Equal(t, 0, requests)
	assert.Equal(t, int32(1), connects.Load())
}

func TestConcurrentConnectRequestsPermissionOnce(t *testing.T) {
	gate := make(chan struct{})
	wallet := &mockWallet{approve: true, accounts: []string{"0xabc"}, requestGate: gate}
	h := newHarness(t, wallet)
	h.inject()

	first := make(chan bool, 1)
	go func() {
		ok, _ := h.strategy.Connect(context.Background())
		first <- ok
	}()

	require.Eventually(t, func() bool {
		return h.strategy.State() == WalletStateConnecting
	}, time.Second, time.Millisecond)

	ok, err := h.strategy.Connect(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	close(gate)
	assert.True(t, <-first)

	requests, _ := wallet.calls()
	assert.Equal(t, 1, requests)
	assert.Equal(t, WalletStateConnected, h.strategy.State())
}

func TestConnectPermissionErrorIsReturnedUnmodified(t *testing.T) {
	boom := errors.New("user closed the popup")
	wallet := &mockWallet{requestErr: boom}
	h := newHarness(t, wallet)
	h.inject()

	ok, err := h.strategy.Connect(context.Background())
	assert.False(t, ok)
	assert.Same(t, boom, err)
	assert.Equal(t, WalletStateSupported, h.strategy.State())
}

func TestConnectAccountsError(t *testing.T) {
	wallet := &mockWallet{approve: true, accountsErr: errors.New("locked")}
	h := newHarness(t, wallet)
	h.inject()

	ok, err := h.strategy.Connect(context.Background())
	assert.False(t, ok)
	assert.ErrorContains(t, err, "locked")
	assert.Equal(t, WalletStateSupported, h.strategy.State())
}

func TestAutoConnectOnDetection(t *testing.T) {
	wallet := &mockWallet{hasPermissions: true, accounts: []string{"0x1"}}
	h := newHarness(t, wallet)

	var order []string
	h.strategy.OnDetect(func() { order = append(order, "detect") })
	h.strategy.OnConnect(func(wt WalletType) { order = append(order, "connect:"+wt.String()) })

	h.inject()

	assert.Equal(t, []string{"detect", "connect:sui"}, order)
	assert.Equal(t, WalletStateConnected, h.strategy.State())
	assert.Equal(t, []string{"0x1"}, h.strategy.Accounts())
	assert.True(t, h.strategy.Detected())
}

func TestDetectionWithoutPermissionStaysSupported(t *testing.T) {
	h := newHarness(t, &mockWallet{})

	detected := 0
	h.strategy.OnDetect(func() { detected++ })
	h.inject()
	h.host.Fire(detector.EventLoad)

	assert.Equal(t, 1, detected)
	assert.Equal(t, WalletStateSupported, h.strategy.State())
}

func TestIsConnected(t *testing.T) {
	wallet := &mockWallet{}
	h := newHarness(t, wallet)

	connected, err := h.strategy.IsConnected(context.Background())
	require.NoError(t, err)
	assert.False(t, connected)

	h.inject()
	connected, err = h.strategy.IsConnected(context.Background())
	require.NoError(t, err)
	assert.False(t, connected)

	wallet.mu.Lock()
	wallet.hasPermissions = true
	wallet.mu.Unlock()

	connected, err = h.strategy.IsConnected(context.Background())
	require.NoError(t, err)
	assert.True(t, connected)
}

func TestSignAndSubmitBeforeDetection(t *testing.T) {
	h := newHarness(t, &mockWallet{})

	resp, err := h.strategy.SignAndSubmitTransaction(context.Background(), Transaction{"function": "mint"})
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrWalletNotDetected)
}

func TestSignAndSubmitOnlyRequiresDetection(t *testing.T) {
	want := TransactionResponse{"digest": "abc", "effects": map[string]interface{}{"status": "success"}}
	wallet := &mockWallet{response: want}
	h := newHarness(t, wallet)
	h.inject()
	require.Equal(t, WalletStateSupported, h.strategy.State())

	tx := Transaction{"packageObjectId": "0x2", "module": "devnet_nft", "function": "mint"}
	resp, err := h.strategy.SignAndSubmitTransaction(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, want, resp)
	assert.Equal(t, tx, wallet.lastTx)
}

func TestSignAndSubmitWrapsWalletFailure(t *testing.T) {
	boom := errors.New("Insufficient gas")
	h := newHarness(t, &mockWallet{executeErr: boom})
	h.inject()

	_, err := h.strategy.SignAndSubmitTransaction(context.Background(), Transaction{})
	require.Error(t, err)

	var we *WalletError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, ErrCodeSignTransactionFailed, we.Code)
	assert.Equal(t, "Insufficient gas", we.Message)
	assert.ErrorIs(t, err, boom)
}

func TestSignAndSubmitValidatesTransaction(t *testing.T) {
	validator := MustSchemaValidator([]byte(`{
		"type": "object",
		"required": ["function"],
		"properties": {"function": {"type": "string"}}
	}`))
	wallet := &mockWallet{response: TransactionResponse{"ok": true}}
	h := newHarness(t, wallet, WithTransactionValidator(validator))
	h.inject()

	_, err := h.strategy.SignAndSubmitTransaction(context.Background(), Transaction{"module": "nft"})
	assert.Equal(t, ErrCodeInvalidTransaction, ErrorCode(err))

	_, executes := wallet.calls()
	assert.Equal(t, 0, executes)

	resp, err := h.strategy.SignAndSubmitTransaction(context.Background(), Transaction{"function": "mint"})
	require.NoError(t, err)
	assert.Equal(t, true, resp["ok"])
}

func TestAccountsReturnsCopy(t *testing.T) {
	h := newHarness(t, &mockWallet{approve: true, accounts: []string{"0xabc"}})
	h.inject()
	_, err := h.strategy.Connect(context.Background())
	require.NoError(t, err)

	accounts := h.strategy.Accounts()
	accounts[0] = "mutated"

	assert.Equal(t, []string{"0xabc"}, h.strategy.Accounts())
}

func TestStrategyOff(t *testing.T) {
	h := newHarness(t, &mockWallet{approve: true})

	detected, connected := false, false
	detectID := h.strategy.OnDetect(func() { detected = true })
	connectID := h.strategy.OnConnect(func(WalletType) { connected = true })
	assert.True(t, h.strategy.Off(detectID))
	assert.True(t, h.strategy.Off(connectID))
	assert.False(t, h.strategy.Off("missing"))

	h.inject()
	_, err := h.strategy.Connect(context.Background())
	require.NoError(t, err)

	assert.False(t, detected)
	assert.False(t, connected)
}

func TestStrategyCloseIsIdempotent(t *testing.T) {
	h := newHarness(t, &mockWallet{})
	require.NoError(t, h.strategy.Close())
	require.NoError(t, h.strategy.Close())

	assert.Equal(t, 0, h.host.ListenerCount(detector.EventDOMContentLoaded))
}

func TestStrategyRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	h := newHarness(t, &mockWallet{approve: true, accounts: []string{"0x1"}, response: TransactionResponse{}},
		WithStrategyMetrics(metrics))
	h.inject()

	_, err := h.strategy.Connect(context.Background())
	require.NoError(t, err)
	_, err = h.strategy.SignAndSubmitTransaction(context.Background(), Transaction{})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.detections.WithLabelValues("sui", "detected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.connects.WithLabelValues("sui", "approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.submissions.WithLabelValues("sui", "success")))
	assert.Equal(t, float64(WalletStateConnected), testutil.ToFloat64(metrics.walletStates.WithLabelValues("sui")))
}

func TestStrategyDetectsOnFirstProbe(t *testing.T) {
	tests := []struct {
		name         string
		permitted    bool
		wantState    WalletState
		wantAccounts []string
		wantConnects int32
	}{
		{name: "not permitted", permitted: false, wantState: WalletStateSupported, wantAccounts: []string{}, wantConnects: 0},
		{name: "permitted", permitted: true, wantState: WalletStateConnected, wantAccounts: []string{"0xabc"}, wantConnects: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wallet := &mockWallet{hasPermissions: tt.permitted, accounts: []string{"0xabc"}}

			var detects, connects, lateDetects atomic.Int32
			s := NewWalletStrategy(WalletTypeSui,
				func() (Wallet, bool) { return wallet, true },
				WithEnvironment(detector.NewHost(detector.WithIdleScheduler(neverIdle))),
				WithDetectHandler(func() { detects.Add(1) }),
				WithConnectHandler(func(walletType WalletType) {
					assert.Equal(t, WalletTypeSui, walletType)
					connects.Add(1)
				}),
			)
			t.Cleanup(func() { _ = s.Close() })

			select {
			case <-s.Resolved():
			case <-time.After(time.Second):
				t.Fatal("detection did not resolve")
			}
			assert.Equal(t, detector.StateDetected, s.DetectionState())

			require.Eventually(t, func() bool {
				return detects.Load() == 1 && connects.Load() == tt.wantConnects && s.State() == tt.wantState
			}, time.Second, time.Millisecond)

			// Subscribing after detection is too late for the detect event.
			s.OnDetect(func() { lateDetects.Add(1) })
			require.Never(t, func() bool {
				return detects.Load() > 1 || connects.Load() > tt.wantConnects
			}, 50*time.Millisecond, 5*time.Millisecond)

			assert.Equal(t, tt.wantState, s.State())
			assert.Equal(t, tt.wantAccounts, s.Accounts())
			assert.True(t, s.Detected())
			assert.Zero(t, lateDetects.Load())

			requests, _ := wallet.calls()
			assert.Zero(t, requests)
		})
	}
}

func TestStrategyResolvedOnTimeout(t *testing.T) {
	s := NewWalletStrategy(WalletTypeSui,
		func() (Wallet, bool) { return nil, false },
		WithEnvironment(detector.NewHost(detector.WithIdleScheduler(neverIdle))),
		WithDetectorOptions(detector.WithTimeout(20*time.Millisecond)),
	)
	t.Cleanup(func() { _ = s.Close() })

	select {
	case <-s.Resolved():
	case <-time.After(time.Second):
		t.Fatal("detection did not resolve")
	}
	assert.Equal(t, detector.StateTimeout, s.DetectionState())
	assert.False(t, s.Detected())
}
