package detector

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWallet struct {
	name string
}

// neverIdle is an idle scheduler that never runs its callback.
func neverIdle(func(), time.Duration) func() { return func() {} }

func waitResolved(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("detector did not resolve")
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "not_detected", StateNotDetected.String())
	assert.Equal(t, "detected", StateDetected.String())
	assert.Equal(t, "timeout", StateTimeout.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestDetectImmediately(t *testing.T) {
	w := &fakeWallet{name: "sui"}
	detected := make(chan struct{})
	d := New(func() (*fakeWallet, bool) { return w, true },
		WithDetectHandler(func() { close(detected) }))
	defer d.Close()

	waitResolved(t, detected)
	assert.Equal(t, StateDetected, d.State())

	got, ok := d.Wallet()
	require.True(t, ok)
	assert.Same(t, w, got)
}

func TestWalletBeforeDetection(t *testing.T) {
	host := NewHost(WithReadyState(ReadyStateComplete), WithIdleScheduler(neverIdle))
	d := New(func() (*fakeWallet, bool) { return nil, false }, WithEnvironment(host))
	defer d.Close()

	got, ok := d.Wallet()
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.Equal(t, StateNotDetected, d.State())
}

func TestDetectOnLifecycleEvent(t *testing.T) {
	host := NewHost(WithIdleScheduler(neverIdle))

	var injected atomic.Bool
	d := New(func() (string, bool) {
		if injected.Load() {
			return "wallet", true
		}
		return "", false
	}, WithEnvironment(host))
	defer d.Close()

	require.Eventually(t, func() bool {
		return host.ListenerCount(EventDOMContentLoaded) == 1 && host.ListenerCount(EventLoad) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, StateNotDetected, d.State())

	injected.Store(true)
	host.Fire(EventDOMContentLoaded)

	assert.Equal(t, StateDetected, d.State())
	assert.Equal(t, 0, host.ListenerCount(EventLoad))
}

func TestInteractivePageOnlyWaitsForLoad(t *testing.T) {
	host := NewHost(WithReadyState(ReadyStateInteractive), WithIdleScheduler(neverIdle))
	d := New(func() (int, bool) { return 0, false }, WithEnvironment(host))
	defer d.Close()

	require.Eventually(t, func() bool {
		return host.ListenerCount(EventLoad) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, 0, host.ListenerCount(EventDOMContentLoaded))
}

func TestCompletePageRegistersNoLifecycleListeners(t *testing.T) {
	var probes atomic.Int32
	host := NewHost(WithReadyState(ReadyStateComplete), WithIdleScheduler(neverIdle))
	d := New(func() (int, bool) {
		probes.Add(1)
		return 0, false
	}, WithEnvironment(host))
	defer d.Close()

	require.Eventually(t, func() bool { return probes.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 0, host.ListenerCount(EventDOMContentLoaded))
	assert.Equal(t, 0, host.ListenerCount(EventLoad))
}

func TestDetectAfterIdleCycles(t *testing.T) {
	host := NewHost(WithReadyState(ReadyStateComplete), WithIdleDelay(time.Millisecond))

	var probes atomic.Int32
	d := New(func() (int, bool) {
		n := probes.Add(1)
		return int(n), n >= 3
	}, WithEnvironment(host))
	defer d.Close()

	waitResolved(t, d.Resolved())
	assert.Equal(t, StateDetected, d.State())
	assert.GreaterOrEqual(t, probes.Load(), int32(3))

	after := probes.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, probes.Load(), "probing must stop after detection")
}

func TestTimeout(t *testing.T) {
	host := NewHost(WithReadyState(ReadyStateLoading), WithIdleDelay(time.Millisecond))
	d := New(func() (int, bool) { return 0, false },
		WithEnvironment(host),
		WithTimeout(30*time.Millisecond))
	defer d.Close()

	var detected atomic.Bool
	d.OnDetect(func() { detected.Store(true) })

	waitResolved(t, d.Resolved())
	assert.Equal(t, StateTimeout, d.State())
	assert.False(t, detected.Load())
	assert.Equal(t, 0, host.ListenerCount(EventDOMContentLoaded))
	assert.Equal(t, 0, host.ListenerCount(EventLoad))
}

func TestUnsupportedEnvironmentTimesOutWithoutProbing(t *testing.T) {
	var probes atomic.Int32
	d := New(func() (int, bool) {
		probes.Add(1)
		return 1, true
	}, WithEnvironment(Headless{}), WithTimeout(20*time.Millisecond))
	defer d.Close()

	waitResolved(t, d.Resolved())
	assert.Equal(t, StateTimeout, d.State())
	assert.Equal(t, int32(0), probes.Load())
}

func TestDetectedStateSurvivesTimeout(t *testing.T) {
	d := New(func() (int, bool) { return 7, true }, WithTimeout(30*time.Millisecond))
	defer d.Close()

	waitResolved(t, d.Resolved())
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, StateDetected, d.State())
}

func TestDetectFiresOncePerHandler(t *testing.T) {
	host := NewHost(WithIdleScheduler(neverIdle))
	d := New(func() (int, bool) { return 1, host.ReadyState() != ReadyStateLoading }, WithEnvironment(host))
	defer d.Close()

	var first, second atomic.Int32
	d.OnDetect(func() { first.Add(1) })
	d.OnDetect(func() { second.Add(1) })

	require.Eventually(t, func() bool {
		return host.ListenerCount(EventLoad) == 1
	}, time.Second, time.Millisecond)

	host.Fire(EventDOMContentLoaded)
	host.Fire(EventLoad)

	assert.Equal(t, int32(1), first.Load())
	assert.Equal(t, int32(1), second.Load())
}

func TestLateSubscriberIsNotCalled(t *testing.T) {
	d := New(func() (int, bool) { return 1, true })
	defer d.Close()
	waitResolved(t, d.Resolved())

	called := false
	d.OnDetect(func() { called = true })
	time.Sleep(5 * time.Millisecond)

	assert.False(t, called)
}

func TestOffDetect(t *testing.T) {
	host := NewHost(WithIdleScheduler(neverIdle))
	var ready atomic.Bool
	d := New(func() (int, bool) { return 1, ready.Load() }, WithEnvironment(host))
	defer d.Close()

	called := false
	id := d.OnDetect(func() { called = true })
	assert.True(t, d.OffDetect(id))
	assert.False(t, d.OffDetect(id))

	require.Eventually(t, func() bool {
		return host.ListenerCount(EventDOMContentLoaded) == 1
	}, time.Second, time.Millisecond)
	ready.Store(true)
	host.Fire(EventDOMContentLoaded)

	assert.Equal(t, StateDetected, d.State())
	assert.False(t, called)
}

func TestCloseStopsProbing(t *testing.T) {
	host := NewHost(WithIdleDelay(time.Millisecond))

	var probes atomic.Int32
	d := New(func() (int, bool) {
		probes.Add(1)
		return 0, false
	}, WithEnvironment(host))

	require.Eventually(t, func() bool { return probes.Load() >= 2 }, time.Second, time.Millisecond)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	time.Sleep(5 * time.Millisecond)

	after := probes.Load()
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, after, probes.Load())
	assert.Equal(t, StateNotDetected, d.State())
	assert.Equal(t, 0, host.ListenerCount(EventDOMContentLoaded))
	assert.Equal(t, 0, host.ListenerCount(EventLoad))
}

func TestOptionsIgnoreInvalidValues(t *testing.T) {
	d := New(func() (int, bool) { return 0, false },
		WithTimeout(0),
		WithIdleTimeout(-time.Second),
		WithEnvironment(nil),
		WithLogger(nil))
	defer d.Close()

	assert.Equal(t, DefaultTimeout, d.Timeout())
	assert.Equal(t, DefaultIdleTimeout, d.idleTimeout)
	assert.IsType(t, ProcessEnvironment{}, d.env)
}

func TestParseReadyState(t *testing.T) {
	assert.Equal(t, ReadyStateLoading, ParseReadyState("loading"))
	assert.Equal(t, ReadyStateInteractive, ParseReadyState("interactive"))
	assert.Equal(t, ReadyStateComplete, ParseReadyState("complete"))
	assert.Equal(t, ReadyStateComplete, ParseReadyState(""))
	assert.Equal(t, "interactive", ReadyStateInteractive.String())
}

func TestHostFireAdvancesReadyState(t *testing.T) {
	host := NewHost()
	assert.Equal(t, ReadyStateLoading, host.ReadyState())

	host.Fire(EventDOMContentLoaded)
	assert.Equal(t, ReadyStateInteractive, host.ReadyState())

	host.Fire(EventLoad)
	assert.Equal(t, ReadyStateComplete, host.ReadyState())
}
