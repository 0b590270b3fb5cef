//go:build linux || darwin

package uthread

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// vtalarmSource arms a real ITIMER_VIRTUAL (ticks only while the process
// consumes CPU time, the closest POSIX analogue to the "virtual time" of
// §4.6) and delivers SIGVTALRM, grounded directly on go-eventloop's use of
// golang.org/x/sys/unix for the raw syscalls its poller needs. Go's signal
// delivery is process-wide and asynchronous with respect to any particular
// goroutine (the runtime, not this library, decides which goroutine
// observes the notification), so each received signal is treated as "at
// least one quantum elapsed."
type vtalarmSource struct {
	sigCh chan os.Signal
	done  chan struct{}
}

func newVTAlarmSource() *vtalarmSource {
	return &vtalarmSource{}
}

func (v *vtalarmSource) start(quantum time.Duration, onTick func()) error {
	v.sigCh = make(chan os.Signal, 4)
	v.done = make(chan struct{})

	signal.Notify(v.sigCh, syscall.SIGVTALRM)

	it := &unix.Itimerval{
		Interval: unix.NsecToTimeval(quantum.Nanoseconds()),
		Value:    unix.NsecToTimeval(quantum.Nanoseconds()),
	}
	if err := unix.Setitimer(unix.ITIMER_VIRTUAL, it, nil); err != nil {
		signal.Stop(v.sigCh)
		return fmt.Errorf("setitimer ITIMER_VIRTUAL: %w", err)
	}

	go func() {
		for {
			select {
			case <-v.sigCh:
				onTick()
			case <-v.done:
				return
			}
		}
	}()

	return nil
}

func (v *vtalarmSource) stop() {
	disarm := &unix.Itimerval{}
	_ = unix.Setitimer(unix.ITIMER_VIRTUAL, disarm, nil)
	signal.Stop(v.sigCh)
	close(v.done)
}
