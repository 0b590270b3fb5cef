package uthread

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// requireLibraryError asserts err is a *LibraryError of the given kind,
// using require so a failure reads as a single fluent assertion rather than
// a three-line type switch repeated at every call site.
func requireLibraryError(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	var le *LibraryError
	require.ErrorAs(t, err, &le)
	require.Equal(t, kind, le.Kind)
}

// manualSource is a quantumSource that never fires on its own: tests decide
// exactly when a quantum elapses by calling Tick, giving deterministic
// control over round-robin rotation and sleep wake-ups without depending on
// wall-clock timing.
type manualSource struct {
	onTick func()
}

func (m *manualSource) start(_ time.Duration, onTick func()) error {
	m.onTick = onTick
	return nil
}

func (m *manualSource) stop() {}

func (m *manualSource) Tick() { m.onTick() }

// initTest initializes the scheduler with a manualSource and tears it down
// at the end of the test, so package-level singleton state never leaks
// between test functions.
func initTest(t *testing.T, opts ...Option) *manualSource {
	t.Helper()
	ms := &manualSource{}
	allOpts := append([]Option{withQuantumSource(ms)}, opts...)
	if _, err := Init(1, allOpts...); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	t.Cleanup(func() {
		if s := sched.Load(); s != nil {
			s.src.stop()
			sched.Store(nil)
		}
	})
	return ms
}

// runUntil ticks and checkpoints the calling (main) thread until cond
// reports true, or fails the test after a generous bound on iterations —
// the round-robin scheduler under test is single-threaded-cooperative, so
// there is no wall-clock race to wait out, only a bounded number of quanta.
func runUntil(t *testing.T, ms *manualSource, cond func() bool) {
	t.Helper()
	for i := 0; i < 10_000; i++ {
		if cond() {
			return
		}
		ms.Tick()
		Checkpoint()
	}
	t.Fatalf("condition never became true within 10000 quanta")
}

func TestMainThreadCannotSleepOrBlock(t *testing.T) {
	initTest(t)

	_, err := Sleep(1)
	requireLibraryError(t, err, ErrMainThreadBlock)

	_, err = Block(0)
	requireLibraryError(t, err, ErrMainThreadBlock)
}

func TestSpawnRejectsNilEntry(t *testing.T) {
	initTest(t)
	_, err := Spawn(nil)
	requireLibraryError(t, err, ErrNullEntry)
}

func TestOperationsRejectInvalidThreadID(t *testing.T) {
	initTest(t)

	_, err := Block(99)
	requireLibraryError(t, err, ErrInvalidThreadID)

	_, err = Resume(99)
	requireLibraryError(t, err, ErrNotRunnable)

	_, err = Resume(999)
	requireLibraryError(t, err, ErrInvalidThreadID)

	_, err = Terminate(99)
	requireLibraryError(t, err, ErrInvalidThreadID)

	_, err = GetQuantums(99)
	requireLibraryError(t, err, ErrInvalidThreadID)
}

func TestSpawnTableFullIsRecoverable(t *testing.T) {
	initTest(t, WithMaxThreads(2)) // slot 0 (main) + one spawnable slot

	if _, err := Spawn(func() {}); err != nil {
		t.Fatalf("first Spawn() should succeed: %v", err)
	}
	if _, err := Spawn(func() {}); err == nil {
		t.Fatalf("second Spawn() should fail: table is full")
	} else if le, ok := err.(*LibraryError); !ok || le.Kind != ErrTableFull {
		t.Fatalf("Spawn() error = %v, want ErrTableFull", err)
	}
}

// TestRoundRobinRunsSpawnedThread verifies a freshly spawned thread actually
// gets the baton once the main thread checks in at a quantum boundary.
func TestRoundRobinRunsSpawnedThread(t *testing.T) {
	ms := initTest(t)
	var ran atomic.Bool

	tid, err := Spawn(func() {
		ran.Store(true)
		Terminate(GetTid())
	})
	if err != nil {
		t.Fatalf("Spawn() failed: %v", err)
	}

	runUntil(t, ms, ran.Load)

	if n, err := GetQuantums(tid); err == nil {
		t.Fatalf("GetQuantums() on a terminated thread should fail, got %d", n)
	}
}

// TestSleepHonorsDuration checks that a sleeping thread does not wake before
// its requested quantum count has fully elapsed, and does wake once it has.
func TestSleepHonorsDuration(t *testing.T) {
	ms := initTest(t)
	var wokeAt atomic.Int64

	_, err := Spawn(func() {
		start := GetTotalQuantums()
		Sleep(3)
		wokeAt.Store(int64(GetTotalQuantums() - start))
	})
	if err != nil {
		t.Fatalf("Spawn() failed: %v", err)
	}

	// Let the worker reach Sleep.
	ms.Tick()
	Checkpoint()

	for i := 0; i < 2; i++ {
		ms.Tick()
		Checkpoint()
		if wokeAt.Load() != 0 {
			t.Fatalf("thread woke after only %d quanta, before its sleep count elapsed", i+1)
		}
	}

	runUntil(t, ms, func() bool { return wokeAt.Load() != 0 })
}

// TestBlockRequiresExplicitResume exercises a thread that blocks itself: it
// must stay parked across many quanta while nobody calls Resume, without
// corrupting scheduler state or panicking, and run again once Resume is called.
func TestBlockRequiresExplicitResume(t *testing.T) {
	ms := initTest(t)
	var blocked, resumed atomic.Bool

	tid, err := Spawn(func() {
		blocked.Store(true)
		Block(GetTid())
		resumed.Store(true)
	})
	if err != nil {
		t.Fatalf("Spawn() failed: %v", err)
	}

	runUntil(t, ms, blocked.Load)

	for i := 0; i < 20; i++ {
		ms.Tick()
		Checkpoint()
	}
	if resumed.Load() {
		t.Fatalf("thread resumed without anyone calling Resume()")
	}

	if _, err := Resume(tid); err != nil {
		t.Fatalf("Resume() failed: %v", err)
	}
	runUntil(t, ms, resumed.Load)
}

// TestJointBlockRequiresBothReleases exercises a thread that is both asleep
// and explicitly blocked: it must not become runnable until the sleep
// deadline elapses *and* Resume clears the user-block.
func TestJointBlockRequiresBothReleases(t *testing.T) {
	ms := initTest(t)
	var ready atomic.Bool

	tid, err := Spawn(func() {
		Sleep(2)
		ready.Store(true)
	})
	if err != nil {
		t.Fatalf("Spawn() failed: %v", err)
	}

	ms.Tick()
	Checkpoint() // worker reaches Sleep(2) and parks

	if _, err := Block(tid); err != nil {
		t.Fatalf("Block() failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		ms.Tick()
		Checkpoint()
	}
	if ready.Load() {
		t.Fatalf("thread became ready while still explicitly blocked")
	}

	if _, err := Resume(tid); err != nil {
		t.Fatalf("Resume() failed: %v", err)
	}
	runUntil(t, ms, ready.Load)
}

// TestIdentifierReuseAfterTermination verifies a terminated slot's
// identifier is handed back out by the next Spawn.
func TestIdentifierReuseAfterTermination(t *testing.T) {
	ms := initTest(t, WithMaxThreads(3))
	var firstDone atomic.Bool

	first, err := Spawn(func() {
		firstDone.Store(true)
		Terminate(GetTid())
	})
	if err != nil {
		t.Fatalf("Spawn() failed: %v", err)
	}
	runUntil(t, ms, firstDone.Load)

	second, err := Spawn(func() {
		Block(GetTid())
	})
	if err != nil {
		t.Fatalf("second Spawn() failed: %v", err)
	}
	if second != first {
		t.Fatalf("expected reused identifier %d, got %d", first, second)
	}
}

func TestTerminateZeroExitsProcess(t *testing.T) {
	initTest(t)

	var exitCode atomic.Int32
	exitCode.Store(-1)
	old := osExit
	osExit = func(code int) { exitCode.Store(int32(code)) }
	defer func() { osExit = old }()

	if _, err := Terminate(0); err != nil {
		t.Fatalf("Terminate(0) returned an error: %v", err)
	}
	if exitCode.Load() != 0 {
		t.Fatalf("Terminate(0) should exit with code 0, got %d", exitCode.Load())
	}
	if sched.Load() != nil {
		t.Fatalf("Terminate(0) should tear down the scheduler singleton")
	}
}

func TestOperationsFailBeforeInit(t *testing.T) {
	if s := sched.Load(); s != nil {
		s.src.stop()
		sched.Store(nil)
	}

	if _, err := Spawn(func() {}); err == nil {
		t.Fatalf("Spawn() before Init should fail")
	} else if le, ok := err.(*LibraryError); !ok || le.Kind != ErrNotInitialized {
		t.Fatalf("Spawn() error = %v, want ErrNotInitialized", err)
	}
}
