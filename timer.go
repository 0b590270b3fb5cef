package uthread

import "time"

// quantumSource is the abstraction behind §4.6's preemption timer: "a
// virtual-time interval timer is configured at init with interval equal to
// the quantum... signals the process at each interval boundary." Two
// implementations exist — a real interval-timer-and-signal source on
// platforms that support one (timer_unix.go), and a portable time.Ticker
// fallback (below) used on everything else. This package's tests drive
// quanta by hand through withQuantumSource instead. The scheduler never
// knows which it has.
type quantumSource interface {
	// start begins delivering one onTick call per quantum. onTick is
	// responsible for its own synchronization (the scheduler passes a
	// closure that takes the gate, calls scheduler.tick, and releases it).
	// start returns an error if the source cannot be armed at all (§7
	// ErrTimerSetup).
	start(quantum time.Duration, onTick func()) error
	// stop disarms the source. It is safe to call once, after start
	// succeeded, and must not deliver any further ticks once it returns.
	stop()
}

// tickerSource is the portable quantumSource fallback, grounded on the
// plain time.Ticker already used for housekeeping throughout the
// go-utilpkg collection (e.g. catrate's timeNewTicker). It is selected
// automatically whenever the platform-native source (timer_unix.go) fails
// to arm, and can also be supplied explicitly through withQuantumSource.
type tickerSource struct {
	ticker *time.Ticker
	done   chan struct{}
}

func newTickerSource() *tickerSource {
	return &tickerSource{}
}

func (t *tickerSource) start(quantum time.Duration, onTick func()) error {
	t.ticker = time.NewTicker(quantum)
	t.done = make(chan struct{})
	go func() {
		for {
			select {
			case <-t.ticker.C:
				onTick()
			case <-t.done:
				return
			}
		}
	}()
	return nil
}

func (t *tickerSource) stop() {
	t.ticker.Stop()
	close(t.done)
}

// autoQuantumSource is the default quantumSource used when Init is not
// given an explicit withQuantumSource: try the platform-native virtual-time
// timer first, and fall back to the portable ticker if arming it fails —
// the common case inside a container or test sandbox that restricts
// interval timers (§4.6's expansion note).
type autoQuantumSource struct {
	active quantumSource
}

func newAutoQuantumSource() *autoQuantumSource {
	return &autoQuantumSource{}
}

func (a *autoQuantumSource) start(quantum time.Duration, onTick func()) error {
	native := newVTAlarmSource()
	if err := native.start(quantum, onTick); err == nil {
		a.active = native
		return nil
	}
	fallback := newTickerSource()
	if err := fallback.start(quantum, onTick); err != nil {
		return err
	}
	a.active = fallback
	return nil
}

func (a *autoQuantumSource) stop() {
	if a.active != nil {
		a.active.stop()
	}
}
