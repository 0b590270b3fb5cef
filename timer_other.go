//go:build !linux && !darwin

package uthread

import (
	"errors"
	"time"
)

// vtalarmSource has no native implementation outside linux/darwin (§4.6's
// virtual-time interval timer has no portable equivalent); autoQuantumSource
// falls back to tickerSource on these platforms unconditionally.
type vtalarmSource struct{}

func newVTAlarmSource() *vtalarmSource { return &vtalarmSource{} }

func (v *vtalarmSource) start(time.Duration, func()) error {
	return errors.New("ITIMER_VIRTUAL is not available on this platform")
}

func (v *vtalarmSource) stop() {}
