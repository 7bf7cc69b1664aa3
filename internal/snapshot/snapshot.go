// Package snapshot holds the parsed state of all threads of one target at
// one point in time, together with the parser that builds it from raw
// debugger dumps.
//
// A Snapshot is built in a single linear pass and is immutable afterwards,
// with one exception: each Thread's resolved lock address and owner LWP are
// set at most once by the lock resolver. Threads are owned by the Snapshot;
// everything else refers to them by LWP, the join key between backtraces,
// thread listings, and waiter/owner relations.
package snapshot

import "fmt"

// FrameClass classifies a frame's role in lock acquisition.
type FrameClass int

const (
	// ClassPlain is an ordinary frame with no blocking significance.
	ClassPlain FrameClass = iota

	// ClassBlockingMutex is an in-progress call into a mutex lock
	// primitive. The owning thread is blocked here.
	ClassBlockingMutex

	// ClassBlockingRWLock is an in-progress call into a read-write lock
	// primitive. Recognized, but owner introspection is unsupported.
	ClassBlockingRWLock
)

// String returns a human-readable name for the frame class.
func (c FrameClass) String() string {
	switch c {
	case ClassPlain:
		return "plain"
	case ClassBlockingMutex:
		return "blocking-on-mutex"
	case ClassBlockingRWLock:
		return "blocking-on-rwlock"
	default:
		return "unknown"
	}
}

// Blocking returns true if the class represents a blocking lock call.
func (c FrameClass) Blocking() bool {
	return c == ClassBlockingMutex || c == ClassBlockingRWLock
}

// PrimitiveType returns the C type name of the primitive the class blocks
// on, used to cast the primitive's address when printing its structure.
// Empty for non-blocking classes.
func (c FrameClass) PrimitiveType() string {
	switch c {
	case ClassBlockingMutex:
		return "pthread_mutex_t"
	case ClassBlockingRWLock:
		return "pthread_rwlock_t"
	default:
		return ""
	}
}

// Frame is one stack entry of a thread. Index -1 marks a line that failed
// the frame grammar; such frames preserve stack depth but are excluded
// from blocking-frame scanning.
type Frame struct {
	Index  int        // ordinal within the thread, 0 = innermost
	Addr   string     // return address, empty for innermost frames
	Func   string     // called function, empty when no symbol
	Module string     // "from" locator: originating shared object
	Source string     // "at" locator: file:line, mutually exclusive with Module
	Class  FrameClass // blocking classification
	Raw    string     // original line, retained for backtrace output
}

// Valid reports whether the frame line matched the grammar.
func (f Frame) Valid() bool {
	return f.Index >= 0
}

// Thread is one OS thread of the target. OwnerLWP is zero until the lock
// resolver determines which thread holds the primitive this one is
// blocked on; it is a lookup key into the owning Snapshot, never a
// pointer, since the Snapshot owns all threads.
type Thread struct {
	Index      int     // display index, unique within the snapshot
	TID        string  // thread object address from the backtrace header
	LWP        int     // kernel thread id, unique within the snapshot
	Name       string  // optional, attached from the thread listing
	Frames     []Frame // call-stack order, frame 0 = innermost
	Blocked    bool    // true when a frame classified as blocking
	BlockIndex int     // index of the blocking frame, -1 when not blocked
	BlockedIn  string  // function entered immediately before the lock call
	LockAddr   string  // resolved lock address, empty = unresolved
	OwnerLWP   int     // resolved lock owner, 0 = unresolved
}

// Readable returns the thread's display form: "Thread #3 worker".
func (t *Thread) Readable() string {
	if t.Name != "" {
		return fmt.Sprintf("Thread #%d %s", t.Index, t.Name)
	}
	return fmt.Sprintf("Thread #%d", t.Index)
}

// BlockingFrame returns the frame the thread is blocked in, or nil.
func (t *Thread) BlockingFrame() *Frame {
	if !t.Blocked {
		return nil
	}
	for i := range t.Frames {
		if t.Frames[i].Index == t.BlockIndex && t.Frames[i].Class.Blocking() {
			return &t.Frames[i]
		}
	}
	return nil
}

// Backtrace returns the thread's raw frame lines in stack order.
func (t *Thread) Backtrace() []string {
	lines := make([]string, 0, len(t.Frames))
	for _, frame := range t.Frames {
		lines = append(lines, frame.Raw)
	}
	return lines
}

// Snapshot is the complete analysis unit for one run.
type Snapshot struct {
	Threads    []*Thread // parse order
	NumBlocked int       // threads with a blocking frame

	byLWP map[int]*Thread
}

// New returns an empty snapshot.
func New() *Snapshot {
	return &Snapshot{byLWP: make(map[int]*Thread)}
}

// addThread registers a thread. Returns false if the LWP is already
// taken; LWPs are unique within a snapshot, so the first thread wins.
func (s *Snapshot) addThread(t *Thread) bool {
	if _, exists := s.byLWP[t.LWP]; exists {
		return false
	}
	s.Threads = append(s.Threads, t)
	s.byLWP[t.LWP] = t
	return true
}

// ThreadByLWP returns the thread with the given LWP, or nil.
func (s *Snapshot) ThreadByLWP(lwp int) *Thread {
	return s.byLWP[lwp]
}

// ThreadByIndex returns the thread with the given display index, or nil.
func (s *Snapshot) ThreadByIndex(index int) *Thread {
	for _, t := range s.Threads {
		if t.Index == index {
			return t
		}
	}
	return nil
}

// BlockedThreads returns all blocked threads in parse order.
func (s *Snapshot) BlockedThreads() []*Thread {
	blocked := make([]*Thread, 0, s.NumBlocked)
	for _, t := range s.Threads {
		if t.Blocked {
			blocked = append(blocked, t)
		}
	}
	return blocked
}

// LWPs returns the known LWPs in parse order, for diagnostics that list
// what the snapshot actually contains.
func (s *Snapshot) LWPs() []int {
	lwps := make([]int, 0, len(s.Threads))
	for _, t := range s.Threads {
		lwps = append(lwps, t.LWP)
	}
	return lwps
}
