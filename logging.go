package uthread

import (
	"os"

	izerolog "github.com/joeycumines/izerolog"
	"github.com/joeycumines/logiface"
	"github.com/rs/zerolog"
)

// structLogger is the structured logging type this package emits scheduler
// diagnostics through. It is never the only place spec-mandated diagnostics
// are written (see newLibraryError/fatal in errors.go, which always also
// write the literal §6 text to stderr); it exists so callers that have
// already standardized on logiface/zerolog get scheduler tracing for free.
type structLogger = logiface.Logger[*izerolog.Event]

// pkgLogger is the package-wide structured logger, swapped wholesale by
// Init (via setLogger) to the WithLogger-supplied logger or a disabled one,
// never mutated field-by-field, mirroring the
// singleton-by-replacement discipline used for the scheduler itself.
var pkgLogger = newDisabledLogger()

// newDisabledLogger returns a logger with logging fully disabled: building
// and logging against it costs a handful of pointer checks and nothing else.
func newDisabledLogger() *structLogger {
	return logiface.New[*izerolog.Event](
		logiface.WithLevel[*izerolog.Event](logiface.LevelDisabled),
	)
}

// NewZerologLogger builds a structured logger suitable for WithLogger,
// writing JSON-formatted scheduler diagnostics (quantum ticks, state
// transitions, errors) to w at the given minimum level.
func NewZerologLogger(w *os.File, level logiface.Level) *structLogger {
	z := zerolog.New(w).With().Timestamp().Logger()
	return logiface.New[*izerolog.Event](
		izerolog.WithZerolog(z),
		logiface.WithLevel[*izerolog.Event](level),
	)
}

// setLogger installs l as the package-wide structured logger. A nil l
// installs a disabled logger instead of leaving the old one in place, so
// Init always starts from a known state (§9's singleton-reset note).
func setLogger(l *structLogger) {
	if l == nil {
		l = newDisabledLogger()
	}
	pkgLogger = l
}
