package uthread

import (
	"os"
	"sync/atomic"
	"time"
)

// osExit is overridden in tests so Terminate(0) and fatal system errors
// don't actually kill the test binary, mirroring logiface's OsExit seam.
var osExit = os.Exit

// sched is the process-wide scheduler singleton (§9's expansion): swapped
// wholesale by Init, cleared wholesale by Terminate(0), never mutated
// field-by-field from the outside.
var sched atomic.Pointer[scheduler]

// apiEnter takes the gate and honors any pending preemption request before
// the caller touches shared state, per scheduler's gate-discipline
// contract: it always returns with the gate held.
func apiEnter(s *scheduler) {
	s.gate.enter()
	s.checkpoint()
	s.gate.enter()
}

// requireScheduler returns the active scheduler, or a library error if
// Init hasn't been called (or Terminate(0) already tore it down).
func requireScheduler(op string) (*scheduler, error) {
	s := sched.Load()
	if s == nil {
		_, err := newLibraryError(op, ErrNotInitialized, -1)
		return nil, err
	}
	return s, nil
}

// Init initializes the thread library: the thread table, the preemption
// timer and its handler, and the main thread (slot 0, Running, with one
// quantum already credited), per §4.7. A second call to Init tears down any
// prior scheduler first (stopping its timer) and starts completely fresh,
// satisfying §9's "reset all state cleanly" requirement.
func Init(quantum int, opts ...Option) (int, error) {
	if quantum <= 0 {
		return newLibraryError("Init", ErrInvalidQuantum, -1)
	}

	if old := sched.Load(); old != nil {
		old.src.stop()
	}

	cfg := resolveOptions(opts)
	setLogger(cfg.logger) // WithLogger also receives every §7 error, not just scheduler traces
	s := newScheduler(cfg, uint64(quantum))

	if cfg.src != nil {
		s.src = cfg.src
	} else {
		s.src = newAutoQuantumSource()
	}

	onTick := func() {
		s.gate.enter()
		s.tick()
		s.gate.leave()
	}
	if err := s.src.start(time.Duration(quantum)*time.Millisecond, onTick); err != nil {
		fatal("Init", ErrTimerSetup, err)
	}

	sched.Store(s)
	s.log.Info().Int("quantum_ms", quantum).Int("max_threads", cfg.maxThreads).Log("scheduler initialized")
	return 0, nil
}

// Spawn allocates a thread table slot, bootstraps a Context for entry, and
// enqueues the new thread as Ready. Spawning does not switch to the new
// thread; like every public call, though, Spawn first honors any pending
// preemption (see apiEnter), so the caller may be rotated out on entry.
func Spawn(entry func()) (int, error) {
	s, err := requireScheduler("Spawn")
	if err != nil {
		return -1, err
	}
	if entry == nil {
		return newLibraryError("Spawn", ErrNullEntry, -1)
	}

	apiEnter(s)
	cb, ok := s.table.allocate()
	if !ok {
		s.gate.leave()
		return newLibraryError("Spawn", ErrTableFull, -1)
	}

	s.nextSpawnSeq++
	*cb = controlBlock{
		Tid:      cb.Tid,
		State:    StateReady,
		Ctx:      newContext(),
		SpawnSeq: s.nextSpawnSeq,
	}
	tid := cb.Tid
	ctx := cb.Ctx

	ctx.bootstrap(entry, func() {
		s.gate.enter()
		s.terminateCurrent() // never returns
	})

	s.queue.enqueue(tid)
	s.log.Debug().Int("tid", tid).Log("spawn")
	s.gate.leave()
	return tid, nil
}

// Terminate implements §4.7's Terminate. id == 0 stops the preemption timer,
// marks every slot Terminated, and exits the process (the documented way to
// shut the library down cleanly). id == current ends the calling thread and
// never returns. Any other live id is marked Terminated immediately; its
// slot is reclaimed lazily, the next time the scheduler encounters it in the
// ready queue (tombstoning, §4.5) or via the next Spawn's allocation scan.
func Terminate(id int) (int, error) {
	s, err := requireScheduler("Terminate")
	if err != nil {
		return -1, err
	}

	if id == 0 {
		s.gate.enter()
		for i := range s.table.slots {
			s.table.slots[i].State = StateTerminated
		}
		s.src.stop()
		s.log.Info().Log("process exit via terminate(0)")
		sched.Store(nil)
		s.gate.leave()
		osExit(0)
		return 0, nil // unreachable unless osExit is stubbed
	}

	apiEnter(s)
	if !s.table.live(id) {
		s.gate.leave()
		return newLibraryError("Terminate", ErrInvalidThreadID, id)
	}

	if id == s.current {
		s.terminateCurrent() // releases gate, never returns
		return 0, nil        // unreachable
	}

	cb, _ := s.table.get(id)
	cb.State = StateTerminated
	cb.Reason = ReasonNone
	cb.WakeAt = 0
	s.log.Debug().Int("tid", id).Log("terminate (tombstoned)")
	s.gate.leave()
	return 0, nil
}

// Block implements §4.7's Block. The main thread can never be blocked.
func Block(id int) (int, error) {
	s, err := requireScheduler("Block")
	if err != nil {
		return -1, err
	}
	if id == 0 {
		return newLibraryError("Block", ErrMainThreadBlock, id)
	}

	apiEnter(s)
	if !s.table.live(id) {
		s.gate.leave()
		return newLibraryError("Block", ErrInvalidThreadID, id)
	}

	cb, _ := s.table.get(id)
	wasRunning := cb.State == StateRunning
	cb.State = StateBlocked
	cb.Reason = cb.Reason.addBlock()
	s.log.Debug().Int("tid", id).Str("reason", cb.Reason.String()).Log("block")

	if wasRunning {
		s.scheduleNext() // blocking self: releases gate, parks, never reacquired
		return 0, nil
	}
	s.gate.leave()
	return 0, nil
}

// Resume implements §4.7's Resume, applying the §4.3 wake/resume transition
// table. Resuming a thread that is Ready or Running (or not blocked on a
// user-block reason at all) is a no-op, not an error.
func Resume(id int) (int, error) {
	s, err := requireScheduler("Resume")
	if err != nil {
		return -1, err
	}

	apiEnter(s)
	cb, inRange := s.table.get(id)
	if !inRange {
		s.gate.leave()
		return newLibraryError("Resume", ErrInvalidThreadID, id)
	}
	if !s.table.live(id) {
		s.gate.leave()
		return newLibraryError("Resume", ErrNotRunnable, id)
	}

	if cb.State == StateBlocked {
		next, runnable := cb.Reason.clearUserBlock()
		cb.Reason = next
		if runnable {
			cb.State = StateReady
			s.queue.enqueue(cb.Tid)
		}
	}
	s.log.Debug().Int("tid", id).Log("resume")
	s.gate.leave()
	return 0, nil
}

// Sleep implements §4.7's Sleep. The main thread can never sleep. The wake
// deadline is current total-quantums + n + 1 (§9's chosen arithmetic): the
// quantum during which Sleep was called does not count toward n.
func Sleep(n int) (int, error) {
	s, err := requireScheduler("Sleep")
	if err != nil {
		return -1, err
	}
	if n <= 0 {
		return newLibraryError("Sleep", ErrInvalidSleepCount, -1)
	}

	apiEnter(s)
	if s.current == 0 {
		s.gate.leave()
		return newLibraryError("Sleep", ErrMainThreadBlock, 0)
	}

	cb, _ := s.table.get(s.current)
	cb.State = StateBlocked
	cb.Reason = cb.Reason.addSleep()
	cb.WakeAt = s.totalQuantums + uint64(n) + 1
	s.log.Debug().Int("tid", cb.Tid).Int("wake_at", int(cb.WakeAt)).Log("sleep")

	s.scheduleNext() // releases gate, parks, never reacquired
	return 0, nil
}

// Checkpoint is a voluntary cooperative yield point. Compute-bound entry
// procedures that never call Block/Sleep/Terminate should call it
// periodically so the round-robin scheduler can still rotate them out at
// quantum boundaries — see SPEC_FULL.md §4.6 on why Go cannot interrupt
// arbitrary running code without the entry procedure's cooperation.
func Checkpoint() {
	s := sched.Load()
	if s == nil {
		return
	}
	apiEnter(s)
	s.gate.leave()
}

// GetTid returns the identifier of the calling (currently running) thread.
func GetTid() int {
	s := sched.Load()
	if s == nil {
		return -1
	}
	apiEnter(s)
	tid := s.current
	s.gate.leave()
	return tid
}

// GetTotalQuantums returns the process-wide quantum counter.
func GetTotalQuantums() int {
	s := sched.Load()
	if s == nil {
		return -1
	}
	apiEnter(s)
	total := s.totalQuantums
	s.gate.leave()
	return int(total)
}

// GetQuantums returns the number of quanta thread id has spent Running.
func GetQuantums(id int) (int, error) {
	s, err := requireScheduler("GetQuantums")
	if err != nil {
		return -1, err
	}
	apiEnter(s)
	cb, ok := s.table.get(id)
	if !ok || !s.table.live(id) {
		s.gate.leave()
		return newLibraryError("GetQuantums", ErrInvalidThreadID, id)
	}
	n := cb.Quantums
	s.gate.leave()
	return int(n), nil
}
