package supervisor_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysfeed/wdt-agent/internal/supervisor"
)

type fakeDevice struct {
	mu      sync.Mutex
	feeds   int
	disarms int
	feedErr error
}

func (d *fakeDevice) Feed() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.feedErr != nil {
		return d.feedErr
	}
	d.feeds++
	return nil
}

func (d *fakeDevice) Disarm() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disarms++
	return nil
}

func (d *fakeDevice) counts() (feeds, disarms int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.feeds, d.disarms
}

// scriptProbe returns fn's verdict for each successive call, counting calls.
type scriptProbe struct {
	mu    sync.Mutex
	calls int
	fn    func(call int) bool
}

func (p *scriptProbe) Check() bool {
	p.mu.Lock()
	call := p.calls
	p.calls++
	p.mu.Unlock()
	return p.fn(call)
}

func (p *scriptProbe) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// runFor runs the supervisor for roughly d, then cancels and returns what
// Run returned.
func runFor(t *testing.T, sup *supervisor.Supervisor, d time.Duration) error {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	time.Sleep(d)
	cancel()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop after cancellation")
		return nil
	}
}

func TestStartupGracePeriodFeedsWithoutProbe(t *testing.T) {
	dev := &fakeDevice{}
	probe := &scriptProbe{fn: func(int) bool { return true }}

	sup := supervisor.New(dev, probe, supervisor.Config{
		Interval:     10 * time.Millisecond,
		StartupDelay: time.Hour,
		FailTimeout:  time.Hour,
	})

	require.NoError(t, runFor(t, sup, 100*time.Millisecond))

	feeds, disarms := dev.counts()
	assert.Zero(t, probe.callCount(), "probe must not run during the grace period")
	assert.GreaterOrEqual(t, feeds, 5, "device must be fed every interval during the grace period")
	assert.Equal(t, 1, disarms)

	st := sup.Snapshot()
	assert.Equal(t, supervisor.PhaseStarting, st.Phase)
	assert.True(t, st.Healthy)
}

func TestHealthyTicksAlwaysFeed(t *testing.T) {
	dev := &fakeDevice{}
	probe := &scriptProbe{fn: func(int) bool { return true }}

	sup := supervisor.New(dev, probe, supervisor.Config{
		Interval:     10 * time.Millisecond,
		StartupDelay: 0,
		FailTimeout:  time.Hour,
	})

	require.NoError(t, runFor(t, sup, 100*time.Millisecond))

	feeds, disarms := dev.counts()
	assert.GreaterOrEqual(t, probe.callCount(), 5)
	assert.Equal(t, probe.callCount(), feeds, "every healthy tick must feed exactly once")
	assert.Equal(t, 1, disarms)

	st := sup.Snapshot()
	assert.Equal(t, supervisor.PhaseMonitoring, st.Phase)
	assert.Zero(t, st.UnhealthyFor)
	assert.Zero(t, st.Withheld)
}

func TestSustainedFailureStopsFeedingButLoopKeepsRunning(t *testing.T) {
	dev := &fakeDevice{}
	probe := &scriptProbe{fn: func(int) bool { return false }}

	sup := supervisor.New(dev, probe, supervisor.Config{
		Interval:     5 * time.Millisecond,
		StartupDelay: 0,
		FailTimeout:  50 * time.Millisecond,
	})

	require.NoError(t, runFor(t, sup, 300*time.Millisecond))

	feeds, disarms := dev.counts()
	calls := probe.callCount()

	assert.Greater(t, feeds, 0, "ticks inside the fail budget must still feed")
	assert.Greater(t, calls, feeds+5, "the loop must keep probing after feeds cease")
	assert.Equal(t, 1, disarms)

	st := sup.Snapshot()
	assert.False(t, st.Healthy)
	assert.Greater(t, st.Withheld, uint64(0))
	assert.Greater(t, st.UnhealthyFor, 50*time.Millisecond)
}

func TestHealthyTickResetsFailWindow(t *testing.T) {
	dev := &fakeDevice{}
	// Unhealthy except every 5th call: no unhealthy streak lasts anywhere
	// near FailTimeout, while the cumulative unhealthy time far exceeds it.
	probe := &scriptProbe{fn: func(call int) bool { return call%5 == 4 }}

	sup := supervisor.New(dev, probe, supervisor.Config{
		Interval:     5 * time.Millisecond,
		StartupDelay: 0,
		FailTimeout:  100 * time.Millisecond,
	})

	require.NoError(t, runFor(t, sup, 400*time.Millisecond))

	feeds, _ := dev.counts()
	assert.Equal(t, probe.callCount(), feeds, "an interrupted fail window must not accumulate")

	st := sup.Snapshot()
	assert.Zero(t, st.Withheld)
}

func TestPanickingProbeNeverCrashesLoop(t *testing.T) {
	dev := &fakeDevice{}
	probe := &scriptProbe{fn: func(int) bool { panic("broken probe") }}

	sup := supervisor.New(dev, probe, supervisor.Config{
		Interval:     5 * time.Millisecond,
		StartupDelay: 0,
		FailTimeout:  30 * time.Millisecond,
	})

	require.NoError(t, runFor(t, sup, 150*time.Millisecond))

	feeds, disarms := dev.counts()
	assert.Greater(t, feeds, 0, "panics inside the fail budget still feed")
	assert.Equal(t, 1, disarms)

	st := sup.Snapshot()
	assert.False(t, st.Healthy, "a panicking probe reads as unhealthy")
	assert.Greater(t, st.Withheld, uint64(0), "sustained panics must eventually stop feeds")
}

func TestCancellationDisarmsExactlyOnce(t *testing.T) {
	tests := []struct {
		name         string
		startupDelay time.Duration
	}{
		{name: "during startup", startupDelay: time.Hour},
		{name: "during monitoring", startupDelay: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := &fakeDevice{}
			probe := &scriptProbe{fn: func(int) bool { return true }}

			sup := supervisor.New(dev, probe, supervisor.Config{
				Interval:     5 * time.Millisecond,
				StartupDelay: tt.startupDelay,
				FailTimeout:  time.Hour,
			})

			require.NoError(t, runFor(t, sup, 50*time.Millisecond))

			feedsAtExit, disarms := dev.counts()
			assert.Equal(t, 1, disarms)

			// No feeds may happen after the disarm.
			time.Sleep(30 * time.Millisecond)
			feeds, _ := dev.counts()
			assert.Equal(t, feedsAtExit, feeds)
		})
	}
}

func TestFeedFailureIsFatal(t *testing.T) {
	dev := &fakeDevice{feedErr: errors.New("input/output error")}
	probe := &scriptProbe{fn: func(int) bool { return true }}

	sup := supervisor.New(dev, probe, supervisor.Config{
		Interval:     5 * time.Millisecond,
		StartupDelay: time.Hour,
		FailTimeout:  time.Hour,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := sup.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, dev.feedErr)

	_, disarms := dev.counts()
	assert.Zero(t, disarms, "a fatal feed failure must not be mistaken for a clean shutdown")
}
