// Package uthread implements a cooperative-preemptive user-level thread
// library: a fixed-size thread table, a round-robin scheduler, and a
// virtual-time quantum that preempts the running thread at a configurable
// interval.
//
// # Architecture
//
// [Init] builds the process-wide scheduler singleton: a [threadTable] of
// control blocks, a [readyQueue] of runnable identifiers, and a
// [quantumSource] that delivers one tick per quantum. The main thread
// occupies slot 0 from the moment Init returns.
//
// [Spawn] allocates a free slot and bootstraps a [context] — one real
// goroutine, parked behind a channel handoff ("the baton") until the
// scheduler first restores it. [switchTo] hands the baton to whichever
// thread the round-robin policy picks next, and parks the outgoing
// goroutine exactly where it stood.
//
// # Preemption
//
// Go gives no API for one goroutine to suspend another goroutine's
// arbitrary in-flight call stack, so the quantum timer cannot perform a
// switch itself. Instead [scheduler.tick] only raises a flag; the running
// thread's own goroutine consumes it the next time it passes through
// [scheduler.checkpoint] — on every public API call, and on any explicit
// call to [Checkpoint]. This is the same reduction-counting idea the Erlang
// VM uses for its own cooperative preemption of BEAM processes.
//
// # Thread Safety
//
// Every field of the scheduler singleton is read or written only while
// holding its internal gate — a non-reentrant mutex standing in for the
// original design's signal mask. The gate is always released before a
// goroutine parks itself; holding it across a park would stall every other
// thread and the preemption dispatcher along with it.
//
// # Errors
//
// Recoverable misuse (bad identifiers, a full table, blocking the main
// thread) returns the spec-mandated -1 alongside a [*LibraryError]. Scheduler
// state corruption or failure to arm the preemption timer is unrecoverable
// and reported as a [*SystemError] immediately before the process exits.
package uthread
