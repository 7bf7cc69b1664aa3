// Package report turns an analysis result into user-facing output: a
// serializable report model plus text, JSON, and YAML renderers.
package report

import (
	"fmt"
	"strconv"

	"github.com/darless/c-deadlock-detector/internal/analyzer"
)

// Report is the serializable outcome of one run. Field order matches the
// reading order of the text report: identity, population, waits, verdict.
type Report struct {
	Binary      string   `json:"binary" yaml:"binary"`
	Target      string   `json:"target" yaml:"target"`
	Threads     []Thread `json:"threads" yaml:"threads"`
	Blocked     int      `json:"blocked" yaml:"blocked"`
	Waits       []Wait   `json:"waits,omitempty" yaml:"waits,omitempty"`
	Cycles      []Cycle  `json:"cycles,omitempty" yaml:"cycles,omitempty"`
	Deadlocked  bool     `json:"deadlocked" yaml:"deadlocked"`
	Diagnostics []string `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// Thread is one thread of the target as reported.
type Thread struct {
	Index     int      `json:"index" yaml:"index"`
	LWP       int      `json:"lwp" yaml:"lwp"`
	Name      string   `json:"name,omitempty" yaml:"name,omitempty"`
	Blocked   bool     `json:"blocked" yaml:"blocked"`
	BlockedIn string   `json:"blocked_in,omitempty" yaml:"blocked_in,omitempty"`
	LockAddr  string   `json:"lock_addr,omitempty" yaml:"lock_addr,omitempty"`
	OwnerLWP  int      `json:"owner_lwp,omitempty" yaml:"owner_lwp,omitempty"`
	Backtrace []string `json:"backtrace,omitempty" yaml:"backtrace,omitempty"`
}

// Readable returns the thread's display form: "Thread #3 worker".
func (t Thread) Readable() string {
	if t.Name != "" {
		return fmt.Sprintf("Thread #%d %s", t.Index, t.Name)
	}
	return fmt.Sprintf("Thread #%d", t.Index)
}

// Wait is one waits-for relation. An empty Owner means the lock's holder
// could not be tied to a thread in the snapshot.
type Wait struct {
	WaiterLWP int    `json:"waiter_lwp" yaml:"waiter_lwp"`
	Waiter    string `json:"waiter" yaml:"waiter"`
	LockFunc  string `json:"lock_func,omitempty" yaml:"lock_func,omitempty"`
	OwnerLWP  int    `json:"owner_lwp,omitempty" yaml:"owner_lwp,omitempty"`
	Owner     string `json:"owner,omitempty" yaml:"owner,omitempty"`
}

// Cycle is one waits-for cycle, in waiting order.
type Cycle struct {
	LWPs    []int    `json:"lwps" yaml:"lwps"`
	Threads []string `json:"threads" yaml:"threads"`
}

// Options configure report assembly.
type Options struct {
	// Binary and Target identify the analyzed process.
	Binary string
	Target string

	// ThreadFilter limits threads and waits to the listed display
	// indexes or exact names. Cycles are never filtered: a deadlock is
	// reported even when its participants are filtered out.
	ThreadFilter []string

	// WithBacktrace attaches raw frame lines to each reported thread.
	WithBacktrace bool
}

// Build assembles the report for an analysis result.
func Build(res *analyzer.Result, opts Options) *Report {
	r := &Report{
		Binary:      opts.Binary,
		Target:      opts.Target,
		Blocked:     res.Snapshot.NumBlocked,
		Deadlocked:  res.Deadlocked(),
		Diagnostics: append([]string(nil), res.Diagnostics...),
	}

	matched := make(map[string]bool, len(opts.ThreadFilter))
	for _, thread := range res.Snapshot.Threads {
		if !matchesFilter(opts.ThreadFilter, thread.Index, thread.Name, matched) {
			continue
		}
		rt := Thread{
			Index:     thread.Index,
			LWP:       thread.LWP,
			Name:      thread.Name,
			Blocked:   thread.Blocked,
			BlockedIn: thread.BlockedIn,
			LockAddr:  thread.LockAddr,
			OwnerLWP:  thread.OwnerLWP,
		}
		if opts.WithBacktrace {
			rt.Backtrace = thread.Backtrace()
		}
		r.Threads = append(r.Threads, rt)

		if !thread.Blocked {
			continue
		}
		wait := Wait{
			WaiterLWP: thread.LWP,
			Waiter:    thread.Readable(),
			LockFunc:  thread.BlockedIn,
		}
		if owner := res.Graph.Owner(thread); owner != nil {
			wait.OwnerLWP = owner.LWP
			wait.Owner = owner.Readable()
		}
		r.Waits = append(r.Waits, wait)
	}

	for _, value := range opts.ThreadFilter {
		if !matched[value] {
			r.Diagnostics = append(r.Diagnostics, fmt.Sprintf("thread filter %q matched no thread", value))
		}
	}

	for _, cycle := range res.Cycles {
		rc := Cycle{
			LWPs:    make([]int, 0, cycle.Len()),
			Threads: make([]string, 0, cycle.Len()),
		}
		for _, thread := range cycle.Threads {
			rc.LWPs = append(rc.LWPs, thread.LWP)
			rc.Threads = append(rc.Threads, thread.Readable())
		}
		r.Cycles = append(r.Cycles, rc)
	}

	return r
}

// matchesFilter reports whether a thread passes the filter, which accepts
// display indexes in numeric form and exact thread names. An empty filter
// passes everything.
func matchesFilter(filter []string, index int, name string, matched map[string]bool) bool {
	if len(filter) == 0 {
		return true
	}
	pass := false
	for _, value := range filter {
		if value == strconv.Itoa(index) || (name != "" && value == name) {
			matched[value] = true
			pass = true
		}
	}
	return pass
}
