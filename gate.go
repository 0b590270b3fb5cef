package uthread

import "sync"

// gate is the critical-section gate of §4.1: a binary lock scoped strictly
// around code that inspects or mutates scheduler state, the thread table,
// the ready queue, or any control block.
//
// In the original design this masked the preemption signal at the kernel
// level; here the preemption dispatcher goroutine (timer.go) itself takes
// the gate before touching shared state, so holding it excludes the
// dispatcher exactly as masking the signal would have. The gate is not
// reentrant: entering it twice on the same goroutine deadlocks, which is
// intentional (§4.1: "nested use is forbidden within the core") and will be
// caught by the race/deadlock detector in tests rather than silently
// tolerated.
type gate struct {
	mu sync.Mutex
}

// enter blocks scheduler-relevant state from being touched by anything
// else, including the preemption dispatcher.
func (g *gate) enter() { g.mu.Lock() }

// leave releases the gate. Calls are not deferred: scheduler methods that
// may park the caller release the gate themselves (see the gate discipline
// on scheduler), so each enter is matched by exactly one leave on whichever
// path the call takes.
func (g *gate) leave() { g.mu.Unlock() }
