// Package testutil provides testing utilities for detector tests.
//
// The builders produce synthetic debugger output in the exact shapes the
// snapshot parser and lock resolver consume, so every pipeline stage is
// testable without a live gdb or a deadlocked target process.
package testutil

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"testing"
)

// ThreadSpec describes one synthetic thread for dump builders.
type ThreadSpec struct {
	Index  int      // display index as shown by the debugger
	TID    string   // thread object address, e.g. "0x7f1bc0a28700"
	LWP    int      // kernel thread id
	Name   string   // optional display name for listings
	Frames []string // raw frame lines, innermost first
}

// Backtrace builds a "thread apply all bt" dump containing the given
// threads in order. Each thread block is a header line followed by its
// frame lines and a terminating blank line.
func Backtrace(specs ...ThreadSpec) string {
	var sb strings.Builder
	for _, spec := range specs {
		fmt.Fprintf(&sb, "Thread %d (Thread %s (LWP %d)):\n", spec.Index, spec.TID, spec.LWP)
		for _, frame := range spec.Frames {
			sb.WriteString(frame)
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Listing builds an "info threads" dump naming the given threads.
// Threads with an empty Name are listed without a quoted name, the way
// the debugger renders unnamed threads.
func Listing(specs ...ThreadSpec) string {
	var sb strings.Builder
	sb.WriteString("  Id   Target Id                                   Frame\n")
	for i, spec := range specs {
		marker := " "
		if i == 0 {
			marker = "*"
		}
		if spec.Name != "" {
			fmt.Fprintf(&sb, "%s %d    Thread %s (LWP %d) \"%s\"  0x0 in poll ()\n",
				marker, spec.Index, spec.TID, spec.LWP, spec.Name)
		} else {
			fmt.Fprintf(&sb, "%s %d    Thread %s (LWP %d)  0x0 in poll ()\n",
				marker, spec.Index, spec.TID, spec.LWP)
		}
	}
	return sb.String()
}

// RegisterBatch builds the output of a thread/frame/separator/register
// query batch. Lines before the separator mimic the focus-switch chatter
// the resolver must discard. The anchor pair precedes a triple carrying
// lockAddr, matching the layout the default anchor strategy expects.
func RegisterBatch(spec ThreadSpec, frameLine, lockAddr string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[Switching to thread %d (Thread %s (LWP %d))]\n", spec.Index, spec.TID, spec.LWP)
	sb.WriteString(frameLine)
	sb.WriteByte('\n')
	sb.WriteString("=======\n")
	sb.WriteString("rax            0xfffffffffffffe00  -512\n")
	sb.WriteString("rbx            0x80                128\n")
	fmt.Fprintf(&sb, "rdi            %s            4210784\n", lockAddr)
	sb.WriteString("rsi            0x2                 2\n")
	sb.WriteString("eflags         0x246               [ PF ZF IF ]\n")
	return sb.String()
}

// MutexStruct builds a "p *(pthread_mutex_t*)<addr>" dump whose owner
// field carries the given LWP.
func MutexStruct(ownerLWP int) string {
	return fmt.Sprintf("$1 = {__data = {__lock = 2, __count = 0, __owner = %d, __nusers = 1, __kind = 0, __spins = 0, __elision = 0, __list = {__prev = 0x0, __next = 0x0}}, __size = \"\\002\", __align = 2}\n", ownerLWP)
}

// ScriptKey derives the lookup key a ScriptedQuerier uses for a command
// batch. Tests use it to register responses for exact batches.
func ScriptKey(commands ...string) string {
	return strings.Join(commands, "\n")
}

// ScriptedQuerier is a canned-response debugger session. Each query batch
// is looked up by its ScriptKey; unscripted batches fail the query so
// tests notice unexpected traffic. All calls are recorded in order.
type ScriptedQuerier struct {
	Responses map[string]string
	Errs      map[string]error
	Calls     [][]string
}

// NewScriptedQuerier returns an empty scripted session.
func NewScriptedQuerier() *ScriptedQuerier {
	return &ScriptedQuerier{
		Responses: make(map[string]string),
		Errs:      make(map[string]error),
	}
}

// Script registers a canned response for the given command batch.
func (q *ScriptedQuerier) Script(response string, commands ...string) {
	q.Responses[ScriptKey(commands...)] = response
}

// ScriptErr registers a canned error for the given command batch.
func (q *ScriptedQuerier) ScriptErr(err error, commands ...string) {
	q.Errs[ScriptKey(commands...)] = err
}

// Query implements the session query contract against the script.
func (q *ScriptedQuerier) Query(_ context.Context, commands ...string) (string, error) {
	q.Calls = append(q.Calls, commands)
	key := ScriptKey(commands...)
	if err, ok := q.Errs[key]; ok {
		return "", err
	}
	if out, ok := q.Responses[key]; ok {
		return out, nil
	}
	return "", fmt.Errorf("no scripted response for batch %q", key)
}

// SkipIfNoGDB skips the test if gdb is not installed.
func SkipIfNoGDB(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("gdb"); err != nil {
		t.Skip("gdb not found in PATH, skipping test")
	}
}
