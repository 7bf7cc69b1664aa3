package analyzer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/darless/c-deadlock-detector/internal/errors"
	"github.com/darless/c-deadlock-detector/internal/resolve"
	"github.com/darless/c-deadlock-detector/internal/testutil"
)

const (
	addrA = "0x55d43b2022a0"
	addrB = "0x55d43b2022e0"
)

var (
	mainThread = testutil.ThreadSpec{
		Index: 1, TID: "0x7f1bc0a2a740", LWP: 12345, Name: "app",
		Frames: []string{
			"#0  0x00007f1bc0b4f5e2 in pthread_join () from /lib64/libpthread.so.0",
			"#1  0x000055d43b001350 in main () at main.c:90",
		},
	}
	workerA = testutil.ThreadSpec{
		Index: 2, TID: "0x7f1bc0a29700", LWP: 12346, Name: "worker_a",
		Frames: []string{
			"#0  0x00007f1bc0b5790c in __lll_lock_wait () from /lib64/libpthread.so.0",
			"#1  0x00007f1bc0b50de9 in pthread_mutex_lock () from /lib64/libpthread.so.0",
			"#2  0x000055d43b001212 in worker_a () at main.c:42",
			"#3  0x00007f1bc0b4e14a in start_thread () from /lib64/libpthread.so.0",
		},
	}
	workerB = testutil.ThreadSpec{
		Index: 3, TID: "0x7f1bc0a28700", LWP: 12347, Name: "worker_b",
		Frames: []string{
			"#0  0x00007f1bc0b57adb in __lll_lock_wait () from /lib64/libpthread.so.0",
			"#1  0x00007f1bc0b50de9 in pthread_mutex_lock () from /lib64/libpthread.so.0",
			"#2  0x000055d43b00128a in worker_b () at main.c:57",
			"#3  0x00007f1bc0b4e14a in start_thread () from /lib64/libpthread.so.0",
		},
	}
)

// scriptDeadlockedPair scripts the full exchange for two workers blocked
// on each other's mutex.
func scriptDeadlockedPair(q *testutil.ScriptedQuerier) {
	q.Script(testutil.Backtrace(workerB, workerA, mainThread), BacktraceCommand)
	q.Script(testutil.Listing(workerB, workerA, mainThread), ListingCommand)
	q.Script(testutil.RegisterBatch(workerB, workerB.Frames[1], addrA), resolve.RegisterProbe(3, 1)...)
	q.Script(testutil.MutexStruct(12346), resolve.OwnerProbe("pthread_mutex_t", addrA)...)
	q.Script(testutil.RegisterBatch(workerA, workerA.Frames[1], addrB), resolve.RegisterProbe(2, 1)...)
	q.Script(testutil.MutexStruct(12347), resolve.OwnerProbe("pthread_mutex_t", addrB)...)
}

func TestAnalyzeDeadlockedPair(t *testing.T) {
	q := testutil.NewScriptedQuerier()
	scriptDeadlockedPair(q)

	res, err := New(q, Options{}, nil).Analyze(context.Background())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(res.Diagnostics) != 0 {
		t.Errorf("diagnostics = %v, want none", res.Diagnostics)
	}
	if got := len(res.Snapshot.Threads); got != 3 {
		t.Fatalf("got %d threads, want 3", got)
	}
	if res.Snapshot.NumBlocked != 2 {
		t.Errorf("NumBlocked = %d, want 2", res.Snapshot.NumBlocked)
	}
	if got := res.Snapshot.ThreadByLWP(12346).Name; got != "worker_a" {
		t.Errorf("thread name = %q, want %q", got, "worker_a")
	}

	blocked := res.Snapshot.ThreadByLWP(12347)
	if blocked.LockAddr != addrA {
		t.Errorf("LockAddr = %q, want %q", blocked.LockAddr, addrA)
	}
	if blocked.OwnerLWP != 12346 {
		t.Errorf("OwnerLWP = %d, want 12346", blocked.OwnerLWP)
	}

	if !res.Deadlocked() {
		t.Fatal("Deadlocked() = false, want true")
	}
	if len(res.Cycles) != 1 {
		t.Fatalf("got %d cycles, want 1", len(res.Cycles))
	}
	cycle := res.Cycles[0]
	if cycle.Len() != 2 || cycle.Threads[0].LWP != 12346 || cycle.Threads[1].LWP != 12347 {
		t.Errorf("cycle threads = %+v, want LWPs 12346 then 12347", cycle.Threads)
	}

	if len(q.Calls) != 6 {
		t.Errorf("issued %d batches, want 6: %v", len(q.Calls), q.Calls)
	}
}

func TestAnalyzeNoDeadlock(t *testing.T) {
	q := testutil.NewScriptedQuerier()
	q.Script(testutil.Backtrace(workerB, mainThread), BacktraceCommand)
	q.Script(testutil.Listing(workerB, mainThread), ListingCommand)
	q.Script(testutil.RegisterBatch(workerB, workerB.Frames[1], addrA), resolve.RegisterProbe(3, 1)...)
	q.Script(testutil.MutexStruct(12345), resolve.OwnerProbe("pthread_mutex_t", addrA)...)

	res, err := New(q, Options{}, nil).Analyze(context.Background())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if res.Deadlocked() {
		t.Error("Deadlocked() = true, want false")
	}
	if got := len(res.Graph.Edges); got != 1 {
		t.Errorf("got %d edges, want 1", got)
	}
	if got := len(res.Graph.Unknown); got != 0 {
		t.Errorf("got %d unknown threads, want 0", got)
	}
}

func TestAnalyzeOwnerNotInSnapshot(t *testing.T) {
	q := testutil.NewScriptedQuerier()
	q.Script(testutil.Backtrace(workerB, mainThread), BacktraceCommand)
	q.Script(testutil.Listing(workerB, mainThread), ListingCommand)
	q.Script(testutil.RegisterBatch(workerB, workerB.Frames[1], addrA), resolve.RegisterProbe(3, 1)...)
	q.Script(testutil.MutexStruct(99999), resolve.OwnerProbe("pthread_mutex_t", addrA)...)

	res, err := New(q, Options{}, nil).Analyze(context.Background())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(res.Cycles) != 0 {
		t.Errorf("got %d cycles, want none", len(res.Cycles))
	}
	if len(res.Graph.Unknown) != 1 || res.Graph.Unknown[0].LWP != 12347 {
		t.Errorf("unknown = %+v, want the waiter on LWP 12347", res.Graph.Unknown)
	}
}

func TestAnalyzeBacktraceFailureIsFatal(t *testing.T) {
	q := testutil.NewScriptedQuerier()
	q.ScriptErr(fmt.Errorf("ptrace: Operation not permitted"), BacktraceCommand)

	res, err := New(q, Options{}, nil).Analyze(context.Background())
	if err == nil {
		t.Fatal("Analyze() error = nil, want fatal error")
	}
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}
	if !errors.IsFatal(err) {
		t.Errorf("IsFatal(%v) = false, want true", err)
	}
}

func TestAnalyzeEmptyBacktraceIsFatal(t *testing.T) {
	q := testutil.NewScriptedQuerier()
	q.Script("   \n", BacktraceCommand)

	_, err := New(q, Options{}, nil).Analyze(context.Background())
	if err == nil {
		t.Fatal("Analyze() error = nil, want fatal error")
	}
	if !errors.Is(err, errors.ErrEmptyOutput) {
		t.Errorf("error = %v, want ErrEmptyOutput", err)
	}
	if !errors.IsFatal(err) {
		t.Errorf("IsFatal(%v) = false, want true", err)
	}
}

func TestAnalyzeListingFailureIsNonFatal(t *testing.T) {
	q := testutil.NewScriptedQuerier()
	scriptDeadlockedPair(q)
	q.ScriptErr(fmt.Errorf("exit status 1"), ListingCommand)

	res, err := New(q, Options{}, nil).Analyze(context.Background())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	found := false
	for _, diag := range res.Diagnostics {
		if strings.Contains(diag, "thread names unavailable") {
			found = true
		}
	}
	if !found {
		t.Errorf("diagnostics = %v, want thread names unavailable", res.Diagnostics)
	}

	if got := res.Snapshot.ThreadByLWP(12346).Name; got != "" {
		t.Errorf("thread name = %q, want empty without a listing", got)
	}
	if !res.Deadlocked() {
		t.Error("Deadlocked() = false, want true despite missing names")
	}
}

func TestAnalyzeResolutionFailureIsNonFatal(t *testing.T) {
	q := testutil.NewScriptedQuerier()
	q.Script(testutil.Backtrace(workerB, mainThread), BacktraceCommand)
	q.Script(testutil.Listing(workerB, mainThread), ListingCommand)
	q.ScriptErr(fmt.Errorf("exit status 1"), resolve.RegisterProbe(3, 1)...)

	res, err := New(q, Options{}, nil).Analyze(context.Background())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(res.Diagnostics) != 1 {
		t.Fatalf("diagnostics = %v, want exactly one", res.Diagnostics)
	}
	if len(res.Graph.Unknown) != 1 || res.Graph.Unknown[0].LWP != 12347 {
		t.Errorf("unknown = %+v, want the unresolved waiter", res.Graph.Unknown)
	}
	if res.Deadlocked() {
		t.Error("Deadlocked() = true, want false")
	}
}

func TestAnalyzeNilQuerier(t *testing.T) {
	_, err := New(nil, Options{}, nil).Analyze(context.Background())
	if err == nil {
		t.Fatal("Analyze() error = nil, want validation error")
	}
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}
