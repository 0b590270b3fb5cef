package uthread

// Published compile-time constants (§6): a maximum thread count inclusive
// of the main thread, and a per-thread stack size hint.
const (
	// MaxThreads is the default fixed thread-table capacity, inclusive of
	// the main thread (slot 0).
	MaxThreads = 100

	// StackSize is the default per-thread stack size hint in bytes. It is
	// documentary rather than allocated: the Context primitive (§4.4) is a
	// goroutine in this rendition, and Go goroutine stacks grow on demand
	// rather than living in a fixed buffer this library owns. The constant
	// is still published so callers porting workloads tuned against a
	// fixed-stack implementation have a number to reason about.
	StackSize = 64 * 1024
)

// config is the resolved set of options passed to Init, mirroring
// go-eventloop's loopOptions/resolveLoopOptions pattern.
type config struct {
	maxThreads int
	stackHint  int
	logger     *structLogger
	src        quantumSource
}

type resolvedConfig = config

// Option configures Init. The zero value of Option is not meaningful;
// obtain one from the With* constructors below.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

// WithMaxThreads overrides MaxThreads for this Init call.
func WithMaxThreads(n int) Option {
	return optionFunc(func(c *config) {
		if n > 0 {
			c.maxThreads = n
		}
	})
}

// WithStackHint overrides the documentary StackSize for this Init call. It
// has no effect on actual goroutine stack behavior (see StackSize).
func WithStackHint(bytes int) Option {
	return optionFunc(func(c *config) {
		if bytes > 0 {
			c.stackHint = bytes
		}
	})
}

// WithLogger installs a structured logger (see NewZerologLogger) that
// receives scheduler diagnostics — quantum ticks, context switches, and
// every §7 error — in addition to (never instead of) the literal stderr
// text §6 mandates.
func WithLogger(l *structLogger) Option {
	return optionFunc(func(c *config) {
		c.logger = l
	})
}

// withQuantumSource overrides the preemption timer's backing quantumSource.
// Unexported: it exists for this package's own deterministic tests (e.g.
// driving quanta synchronously instead of waiting on a real timer), in the
// spirit of go-eventloop's loopTestHooks injection points, and is not part
// of the public surface because quantumSource itself is an internal type.
func withQuantumSource(src quantumSource) Option {
	return optionFunc(func(c *config) {
		c.src = src
	})
}

func resolveOptions(opts []Option) config {
	c := config{
		maxThreads: MaxThreads,
		stackHint:  StackSize,
		logger:     newDisabledLogger(),
	}
	for _, o := range opts {
		if o == nil {
			continue
		}
		o.apply(&c)
	}
	return c
}
