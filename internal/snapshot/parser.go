package snapshot

import (
	"fmt"
	"strings"

	"github.com/darless/c-deadlock-detector/internal/logging"
)

// Parser builds snapshots from raw debugger dumps. Malformed input is
// collected as diagnostics and never aborts a pass; identical input
// always produces a structurally identical snapshot.
type Parser struct {
	logger *logging.Logger
}

// NewParser returns a parser. A nil logger disables logging.
func NewParser(logger *logging.Logger) *Parser {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Parser{logger: logger.WithComponent("parser")}
}

// ParseBacktrace consumes a "thread apply all bt" dump and produces one
// thread per header encountered, each with its frames in stack order.
//
// The pass is a two-state line machine. Outside a thread, only header
// lines matter. Inside a thread, a blank line closes it, frame-marker
// lines are parsed and appended, and anything else is skipped with a
// diagnostic.
func (p *Parser) ParseBacktrace(text string) (*Snapshot, []string) {
	snap := New()
	var diags []string
	var current *Thread

	for _, line := range strings.Split(text, "\n") {
		if current == nil {
			if !strings.HasPrefix(line, "Thread ") {
				continue
			}
			index, tid, lwp, ok := ParseThreadHeader(line)
			if !ok {
				diags = p.diag(diags, fmt.Sprintf("no match for thread header: %s", line))
				continue
			}
			current = &Thread{Index: index, TID: tid, LWP: lwp, BlockIndex: -1}
			if !snap.addThread(current) {
				diags = p.diag(diags, fmt.Sprintf("duplicate LWP %d, keeping first thread", lwp))
				current = nil
			}
			continue
		}

		if line == "" {
			p.finalize(current)
			current = nil
			continue
		}
		if line[0] != '#' {
			diags = p.diag(diags, fmt.Sprintf("skipping invalid frame: %s", line))
			continue
		}

		frame, ok := ParseFrame(line)
		if !ok {
			diags = p.diag(diags, fmt.Sprintf("skipping invalid frame: %s", line))
		}
		if frame.Class.Blocking() && !current.Blocked {
			current.Blocked = true
			current.BlockIndex = frame.Index
			snap.NumBlocked++
		}
		current.Frames = append(current.Frames, frame)
	}
	if current != nil {
		p.finalize(current)
	}

	return snap, diags
}

// AttachNames runs the second, independent pass over an "info threads"
// dump, attaching display names to already-parsed threads by LWP. A name
// for an unknown LWP is a diagnostic, not an error.
func (p *Parser) AttachNames(snap *Snapshot, text string) []string {
	var diags []string

	for _, line := range strings.Split(text, "\n") {
		lwp, name, ok := ParseThreadName(line)
		if !ok {
			continue
		}
		thread := snap.ThreadByLWP(lwp)
		if thread == nil {
			diags = p.diag(diags, fmt.Sprintf("no thread found with lwp: %d (known: %v)", lwp, snap.LWPs()))
			continue
		}
		thread.Name = name
	}

	return diags
}

// finalize derives the function a blocked thread is blocked inside: the
// first frame past the blocking frame that carries both a function name
// and a source locator names the caller that entered the lock.
func (p *Parser) finalize(t *Thread) {
	if !t.Blocked {
		return
	}
	for _, frame := range t.Frames {
		if !frame.Valid() || frame.Index <= t.BlockIndex {
			continue
		}
		if frame.Func != "" && frame.Source != "" {
			t.BlockedIn = frame.Func
			break
		}
	}
}

func (p *Parser) diag(diags []string, msg string) []string {
	p.logger.Warn(msg)
	return append(diags, msg)
}
