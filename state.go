package uthread

// ThreadState is a slot's position in the lifecycle state machine (§3).
//
// Transitions are driven exclusively by Spawn, the scheduler, Block, Resume,
// Sleep, and Terminate; nothing else may assign a ThreadState.
type ThreadState int32

const (
	// StateUnused marks a slot free for allocation.
	StateUnused ThreadState = iota
	// StateReady marks a slot runnable and present in the ready queue.
	StateReady
	// StateRunning marks the single slot currently executing.
	StateRunning
	// StateBlocked marks a slot that is not runnable: sleeping, explicitly
	// blocked, or both (see BlockReason).
	StateBlocked
	// StateTerminated marks a slot whose resources may be reclaimed by the
	// next Spawn that scans past it.
	StateTerminated
)

func (s ThreadState) String() string {
	switch s {
	case StateUnused:
		return "unused"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateBlocked:
		return "blocked"
	case StateTerminated:
		return "terminated"
	default:
		return "invalid"
	}
}

// BlockReason distinguishes why a StateBlocked slot is blocked (§4.3). It is
// modeled as a four-value sum type, not two independent booleans, so every
// transition in the §4.3 table is exhaustively representable and there is no
// way to express an invalid combination.
type BlockReason int32

const (
	// ReasonNone means the slot is not blocked for either reason.
	ReasonNone BlockReason = iota
	// ReasonSleep means the slot is blocked solely on its wake deadline.
	ReasonSleep
	// ReasonUserBlock means the slot is blocked solely by an explicit Block call.
	ReasonUserBlock
	// ReasonBoth means the slot is blocked by a sleep deadline and an
	// explicit Block call simultaneously; both must clear before it may
	// re-enter the ready queue.
	ReasonBoth
)

func (r BlockReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonSleep:
		return "sleep"
	case ReasonUserBlock:
		return "user-block"
	case ReasonBoth:
		return "both"
	default:
		return "invalid"
	}
}

// addSleep returns the reason after a sleep() call layers onto the existing
// reason (§4.3 table, "sleep()" row).
func (r BlockReason) addSleep() BlockReason {
	if r == ReasonUserBlock || r == ReasonBoth {
		return ReasonBoth
	}
	return ReasonSleep
}

// addBlock returns the reason after a block() call layers onto the existing
// reason (§4.3 table, "block()" row).
func (r BlockReason) addBlock() BlockReason {
	if r == ReasonSleep || r == ReasonBoth {
		return ReasonBoth
	}
	return ReasonUserBlock
}

// clearUserBlock returns the reason, and whether the slot is now fully
// runnable, after resume() clears the user-block component (§4.3 table,
// "resume()" rows).
func (r BlockReason) clearUserBlock() (next BlockReason, runnable bool) {
	switch r {
	case ReasonUserBlock:
		return ReasonNone, true
	case ReasonBoth:
		return ReasonSleep, false
	default:
		return r, false
	}
}

// clearSleep returns the reason, and whether the slot is now fully runnable,
// after the wake-check clears the sleep component (§4.3 table, "wake-check
// fires" rows).
func (r BlockReason) clearSleep() (next BlockReason, runnable bool) {
	switch r {
	case ReasonSleep:
		return ReasonNone, true
	case ReasonBoth:
		return ReasonUserBlock, false
	default:
		return r, false
	}
}
