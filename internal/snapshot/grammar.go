package snapshot

import (
	"regexp"
	"strconv"
	"strings"
)

// Input grammars, one small parser per text format. All are best-effort:
// a mismatch reports ok=false and never aborts the surrounding pass.
var (
	// Thread 3 (Thread 0x7f1bc0a28700 (LWP 4243)):
	threadHeaderRE = regexp.MustCompile(`^Thread ([0-9]+) \(Thread (0x[a-f0-9]+) \(LWP ([0-9]+)\)\)`)

	// ... (LWP 4243) "worker_b" ...   anywhere in an info-threads line
	threadNameRE = regexp.MustCompile(`\(LWP ([0-9]+)\) "([a-zA-Z0-9_-]+)"`)

	// #2  0x0000000000401234 in worker_b (arg=0x0) at main.c:57
	frameIndexRE = regexp.MustCompile(`^#([0-9]+)\s+(.*)$`)
	frameAddrRE  = regexp.MustCompile(`^(0x[0-9a-f]+)\b`)
	frameInRE    = regexp.MustCompile(`\bin ([?a-zA-Z0-9_-]+) \(`)
	frameFuncRE  = regexp.MustCompile(`^([?a-zA-Z0-9_-]+) \(`)
	frameFromRE  = regexp.MustCompile(` from ([,/.:_a-zA-Z0-9-]+)`)
	frameAtRE    = regexp.MustCompile(` at ([,/.:_a-zA-Z0-9-]+)`)
)

// blockingPrimitives maps function-name substrings to the frame class
// they indicate. First match wins. New primitive families are taught to
// the detector by extending this table; the grammar never changes.
var blockingPrimitives = []struct {
	substr string
	class  FrameClass
}{
	{"pthread_mutex_lock", ClassBlockingMutex},
	{"pthread_rwlock", ClassBlockingRWLock},
}

// Classify returns the blocking classification for a called function.
func Classify(funcName string) FrameClass {
	if funcName == "" {
		return ClassPlain
	}
	for _, p := range blockingPrimitives {
		if strings.Contains(funcName, p.substr) {
			return p.class
		}
	}
	return ClassPlain
}

// ParseThreadHeader parses a backtrace thread header line.
func ParseThreadHeader(line string) (index int, tid string, lwp int, ok bool) {
	m := threadHeaderRE.FindStringSubmatch(line)
	if m == nil {
		return 0, "", 0, false
	}
	index, _ = strconv.Atoi(m[1])
	lwp, _ = strconv.Atoi(m[3])
	return index, m[2], lwp, true
}

// ParseThreadName extracts the LWP/name pair from a thread-listing line.
// The pair may appear anywhere in the line; unnamed threads do not match.
func ParseThreadName(line string) (lwp int, name string, ok bool) {
	m := threadNameRE.FindStringSubmatch(line)
	if m == nil {
		return 0, "", false
	}
	lwp, _ = strconv.Atoi(m[1])
	return lwp, m[2], true
}

// ParseFrame parses one frame line into a structured Frame. A line that
// fails the grammar yields an invalid frame (Index -1) carrying the raw
// line, and ok=false.
//
// Locator selection: a "from" module clause wins; an "at" source clause
// applies only when no "from" clause is present. The two are mutually
// exclusive on the resulting frame.
func ParseFrame(line string) (Frame, bool) {
	frame := Frame{Index: -1, Raw: line}

	m := frameIndexRE.FindStringSubmatch(line)
	if m == nil {
		return frame, false
	}
	frame.Index, _ = strconv.Atoi(m[1])
	rest := m[2]

	if am := frameAddrRE.FindStringSubmatch(rest); am != nil {
		frame.Addr = am[1]
	}

	if im := frameInRE.FindStringSubmatch(rest); im != nil {
		frame.Func = im[1]
	} else if frame.Addr == "" {
		// Innermost frames print the function directly, no address
		if fm := frameFuncRE.FindStringSubmatch(rest); fm != nil {
			frame.Func = fm[1]
		}
	}

	if fm := frameFromRE.FindStringSubmatch(rest); fm != nil {
		frame.Module = fm[1]
	} else if am := frameAtRE.FindStringSubmatch(rest); am != nil {
		frame.Source = am[1]
	}

	frame.Class = Classify(frame.Func)
	return frame, true
}
