package uthread

import (
	"errors"
	"fmt"
	"os"
)

// ErrorKind classifies the reason a LibraryError or SystemError was raised.
type ErrorKind int

const (
	// library error kinds (recoverable, §7)

	// ErrInvalidThreadID indicates an identifier that is out of range, or
	// whose slot is Unused or Terminated, where a live slot was required.
	ErrInvalidThreadID ErrorKind = iota
	// ErrMainThreadBlock indicates an attempt to Block or Sleep the main thread (id 0).
	ErrMainThreadBlock
	// ErrInvalidQuantum indicates Init was called with a non-positive quantum.
	ErrInvalidQuantum
	// ErrInvalidSleepCount indicates Sleep was called with n <= 0.
	ErrInvalidSleepCount
	// ErrNullEntry indicates Spawn was called with a nil entry procedure.
	ErrNullEntry
	// ErrTableFull indicates Spawn found no free slot.
	ErrTableFull
	// ErrNotRunnable indicates Resume was called on an Unused or Terminated slot.
	ErrNotRunnable
	// ErrNotInitialized indicates an API call was made before Init, or after
	// Terminate(0) tore the scheduler down.
	ErrNotInitialized

	// system error kinds (fatal, §7)

	// ErrTimerSetup indicates the virtual-time interval timer could not be configured or armed.
	ErrTimerSetup
	// ErrSchedulerInvariant indicates scheduler state was found corrupted: no
	// runnable thread when the scheduler was entered, or an attempted
	// context switch into a Terminated slot.
	ErrSchedulerInvariant
)

func (k ErrorKind) String() string {
	switch k {
	case ErrInvalidThreadID:
		return "invalid thread id"
	case ErrMainThreadBlock:
		return "main thread cannot block or sleep"
	case ErrInvalidQuantum:
		return "quantum must be positive"
	case ErrInvalidSleepCount:
		return "sleep count must be positive"
	case ErrNullEntry:
		return "entry procedure is nil"
	case ErrTableFull:
		return "thread table is full"
	case ErrNotRunnable:
		return "thread is not in a resumable state"
	case ErrNotInitialized:
		return "scheduler is not initialized"
	case ErrTimerSetup:
		return "failed to configure virtual-time timer"
	case ErrSchedulerInvariant:
		return "scheduler invariant violated"
	default:
		return "unknown error"
	}
}

// LibraryError is a recoverable error returned alongside the -1 return code
// documented in §6/§7. Callers that only check the int code can ignore it;
// callers that want typed errors can use errors.As.
type LibraryError struct {
	Kind ErrorKind
	Op   string
	TID  int
}

func (e *LibraryError) Error() string {
	if e.TID >= 0 {
		return fmt.Sprintf("%s: %s (tid=%d)", e.Op, e.Kind, e.TID)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

// Is reports whether target is a *LibraryError with the same Kind,
// independent of Op/TID, so callers can do errors.Is(err, &LibraryError{Kind: ErrInvalidThreadID}).
func (e *LibraryError) Is(target error) bool {
	var other *LibraryError
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

// SystemError is a non-recoverable error. Detecting one is always fatal:
// the diagnostic is flushed and the process exits (§7).
type SystemError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *SystemError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *SystemError) Unwrap() error { return e.Err }

// newLibraryError writes the §6-mandated "thread library error: …"
// diagnostic to stderr, mirrors it to the structured logger, and returns
// the typed error alongside the documented -1 return code.
func newLibraryError(op string, kind ErrorKind, tid int) (int, error) {
	err := &LibraryError{Kind: kind, Op: op, TID: tid}
	fmt.Fprintln(os.Stderr, "thread library error: "+err.Error())
	pkgLogger.Warning().Str("op", op).Str("kind", kind.String()).Int("tid", tid).Log("library error")
	return -1, err
}

// fatal writes the §6-mandated "system error: …" diagnostic to stderr,
// mirrors it to the structured logger, and terminates the process. It never
// returns.
func fatal(op string, kind ErrorKind, cause error) {
	err := &SystemError{Kind: kind, Op: op, Err: cause}
	fmt.Fprintln(os.Stderr, "system error: "+err.Error())
	pkgLogger.Emerg().Str("op", op).Str("kind", kind.String()).Err(err).Log("fatal scheduler error")
	osExit(1)
	panic(err) // unreachable unless osExit is stubbed out by a test
}
