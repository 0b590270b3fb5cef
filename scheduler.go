package uthread

import "runtime"

// scheduler is the process-wide singleton described in SPEC_FULL.md §9's
// expansion: created wholesale by Init, torn down wholesale by
// Terminate(0), never partially reset. Every field below is only ever read
// or written while holding gate.
//
// Gate discipline: any method documented "requires gate held" must be
// called with the gate already entered, and guarantees the gate has been
// released again by the time it returns — whether that's because it parked
// the calling goroutine and something else eventually restored it, or
// because no switch was needed at all. Callers that still have more shared
// state to touch afterward must re-enter the gate themselves; callers that
// have nothing left to do simply return to user code with the gate free.
type scheduler struct {
	gate gate

	table *threadTable
	queue *readyQueue

	current       int
	totalQuantums uint64
	quantum       uint64 // configured quantum length, informational only
	nextSpawnSeq  uint64

	// preempt is raised by tick() (§4.6 step 5, "invoke the scheduler") and
	// lowered by the next checkpoint reached by the running thread's own
	// goroutine (see SPEC_FULL.md's Checkpoint note): only the goroutine
	// that currently holds the baton can safely perform the actual switch,
	// so the timer dispatcher can only request one.
	preempt bool

	src quantumSource
	log *structLogger
}

// newScheduler builds a fresh singleton with the main thread already
// Running in slot 0, per Init's documented success effect (§4.7): "initialize
// table, configure timer & handler, main thread = slot 0 in Running, total-
// quantums = main.quantums = 1". quantumLen is stored for reference only;
// nothing reads it back. Init itself owns arming the quantumSource.
func newScheduler(cfg resolvedConfig, quantumLen uint64) *scheduler {
	s := &scheduler{
		table:         newThreadTable(cfg.maxThreads),
		queue:         newReadyQueue(cfg.maxThreads),
		current:       0,
		totalQuantums: 1,
		quantum:       quantumLen,
		log:           cfg.logger,
	}
	main, _ := s.table.get(0)
	main.State = StateRunning
	main.Quantums = 1
	main.Label = "main"
	main.Ctx = newContext()
	return s
}

// tick is invoked by the preemption dispatcher (timer.go) once per quantum,
// with the gate already held by the dispatcher, which releases it itself
// immediately after tick returns. It performs §4.6 steps 2-4 and requests
// (rather than performs) step 5, since only the running thread's own
// goroutine can safely hand off the baton — see checkpoint().
func (s *scheduler) tick() {
	s.totalQuantums++

	if running, ok := s.table.get(s.current); ok && running.State == StateRunning {
		running.Quantums++
	}

	for i := range s.table.slots {
		cb := &s.table.slots[i]
		if cb.State != StateBlocked || cb.WakeAt == 0 || cb.WakeAt > s.totalQuantums {
			continue
		}
		next, runnable := cb.Reason.clearSleep()
		cb.Reason = next
		cb.WakeAt = 0
		if runnable {
			cb.State = StateReady
			s.queue.enqueue(cb.Tid)
		}
	}

	s.preempt = true
	s.log.Debug().Int("tid", s.current).Str("op", "tick").
		Int("total_quantums", int(s.totalQuantums)).Log("quantum tick")
}

// checkpoint is the cooperative yield point entry procedures and every
// public API call pass through. If the preemption timer has requested a
// rotation since this thread last checked, checkpoint performs it now.
//
// Requires gate held; guarantees gate released on return (see the
// scheduler doc comment's gate discipline), regardless of whether a switch
// actually happened.
func (s *scheduler) checkpoint() {
	if !s.preempt {
		s.gate.leave()
		return
	}
	s.preempt = false
	s.scheduleNext()
}

// scheduleNext implements §4.5's schedule_next(). Requires gate held;
// guarantees gate released on return.
func (s *scheduler) scheduleNext() {
	outgoing, ok := s.table.get(s.current)
	if !ok {
		s.gate.leave()
		fatal("scheduleNext", ErrSchedulerInvariant, nil)
		return
	}

	if outgoing.State == StateRunning {
		outgoing.State = StateReady
		s.queue.enqueue(outgoing.Tid)
	}

	incoming := s.dequeueLive()
	if incoming == nil {
		// Nothing is runnable anywhere. The main thread can never be
		// Blocked or Terminated, so it is always either Running or sitting
		// in the ready queue; reaching here means that invariant broke.
		s.gate.leave()
		fatal("scheduleNext", ErrSchedulerInvariant, nil)
		return
	}

	if incoming.Tid == outgoing.Tid {
		// Round-robin of one: outgoing was the sole ready candidate and
		// immediately dequeued itself back. There is no baton to hand off
		// to anyone — restoring its own context here would send on its own
		// wake channel with nothing parked to receive it (§4.5 step 3).
		incoming.State = StateRunning
		s.gate.leave()
		return
	}

	s.switchTo(outgoing, incoming)
}

// dequeueLive drains stale ready-queue entries (tombstoning, §4.5 step 2):
// an identifier dequeued whose slot is not Ready is discarded. It returns
// the first live candidate, or nil if the queue is exhausted. Requires gate
// held; does not itself release it.
func (s *scheduler) dequeueLive() *controlBlock {
	for {
		tid, ok := s.queue.dequeue()
		if !ok {
			return nil
		}
		cb, ok := s.table.get(tid)
		if !ok || cb.State != StateReady {
			continue // tombstoned
		}
		return cb
	}
}

// switchTo performs the context switch of §4.5 step 4: set current, promote
// incoming to Running, restore its context, release the gate, and — unless
// the outgoing thread is the same thread continuing — park the outgoing
// goroutine until some future switchTo restores it. Requires gate held.
func (s *scheduler) switchTo(outgoing, incoming *controlBlock) {
	if incoming.State == StateTerminated {
		s.gate.leave()
		fatal("switchTo", ErrSchedulerInvariant, nil)
		return
	}

	sameThread := outgoing.Tid == incoming.Tid
	s.current = incoming.Tid
	incoming.State = StateRunning

	s.log.Debug().Int("from", outgoing.Tid).Int("to", incoming.Tid).Log("context switch")

	incoming.Ctx.restore()
	s.gate.leave()

	if !sameThread {
		outgoing.Ctx.save()
	}
}

// terminateCurrent implements the "id = current" row of Terminate (§4.7):
// mark Terminated, then hand off without saving the outgoing context (there
// is nothing to resume into), and end the outgoing goroutine via
// runtime.Goexit so the call never returns to the caller, per spec.
// Requires gate held; does not return.
func (s *scheduler) terminateCurrent() {
	outgoing, _ := s.table.get(s.current)
	outgoing.State = StateTerminated
	outgoing.Reason = ReasonNone
	outgoing.WakeAt = 0

	incoming := s.dequeueLive()
	if incoming == nil {
		s.gate.leave()
		fatal("terminateCurrent", ErrSchedulerInvariant, nil)
	}
	s.current = incoming.Tid
	incoming.State = StateRunning
	s.log.Debug().Int("from", outgoing.Tid).Int("to", incoming.Tid).Log("terminate and switch")
	incoming.Ctx.restore()
	s.gate.leave()

	runtime.Goexit()
}
