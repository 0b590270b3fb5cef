package uthread

// controlBlock is one thread's entry in the thread table (§3). Its Tid never
// changes once allocated; Tid 0 is permanently the main thread's slot.
type controlBlock struct {
	Tid   int
	State ThreadState
	Ctx   *context

	// Quantums is how many scheduling quanta this thread has spent Running.
	Quantums uint64
	// WakeAt is the total-quantums value at which a sleep expires, or 0 if
	// the thread is not sleeping (invariant 4: non-zero implies Blocked).
	WakeAt uint64
	Reason BlockReason

	// Label and SpawnSeq are diagnostic-only (SPEC_FULL.md §3 expansion):
	// neither participates in any scheduling decision.
	Label    string
	SpawnSeq uint64
}

// resettable returns whether the slot may be handed out by the next Spawn
// (§4.3: "scans from index 1 upward and returns the lowest index in state
// Unused or Terminated").
func (c *controlBlock) resettable() bool {
	return c.State == StateUnused || c.State == StateTerminated
}

// threadTable is the fixed-length array of control blocks, indexed by
// thread identifier (§4.3).
type threadTable struct {
	slots []controlBlock
}

func newThreadTable(maxThreads int) *threadTable {
	t := &threadTable{slots: make([]controlBlock, maxThreads)}
	for i := range t.slots {
		t.slots[i] = controlBlock{Tid: i, State: StateUnused}
	}
	return t
}

func (t *threadTable) get(tid int) (*controlBlock, bool) {
	if tid < 0 || tid >= len(t.slots) {
		return nil, false
	}
	return &t.slots[tid], true
}

// live reports whether tid references an allocated, non-terminated slot —
// the precondition most API operations in §4.7 share.
func (t *threadTable) live(tid int) bool {
	cb, ok := t.get(tid)
	return ok && cb.State != StateUnused && cb.State != StateTerminated
}

// allocate scans from index 1 upward (index 0 is permanently the main
// thread) for the lowest Unused or Terminated slot, per §4.3. It returns
// false if the table is full.
func (t *threadTable) allocate() (*controlBlock, bool) {
	for i := 1; i < len(t.slots); i++ {
		if t.slots[i].resettable() {
			return &t.slots[i], true
		}
	}
	return nil, false
}
