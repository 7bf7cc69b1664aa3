package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/darless/c-deadlock-detector/internal/errors"
)

func renderText(t *testing.T, r *Report) string {
	t.Helper()

	var buf bytes.Buffer
	if err := (&TextRenderer{}).Render(&buf, r); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return buf.String()
}

func TestTextRenderNoBlockedThreads(t *testing.T) {
	got := renderText(t, &Report{Blocked: 0})
	if got != "There are no locked threads\n" {
		t.Errorf("output = %q, want the no-locked-threads line", got)
	}
}

func TestTextRenderDeadlockedPair(t *testing.T) {
	r := Build(deadlockedResult(t), Options{Binary: "/usr/bin/app", Target: "4242"})

	want := "Thread #3 worker_b is waiting for a lock (worker_b) owned by Thread #2 worker_a\n" +
		"Thread #2 worker_a is waiting for a lock (worker_a) owned by Thread #3 worker_b\n" +
		"Deadlock between Thread #2 worker_a and Thread #3 worker_b\n"
	if got := renderText(t, r); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestTextRenderNoOwner(t *testing.T) {
	r := &Report{
		Blocked: 1,
		Waits:   []Wait{{WaiterLWP: 12347, Waiter: "Thread #3 worker_b", LockFunc: "worker_b"}},
	}

	if got := renderText(t, r); got != "No owner for Thread #3 worker_b\n" {
		t.Errorf("output = %q, want the no-owner line", got)
	}
}

func TestTextRenderBacktraces(t *testing.T) {
	r := Build(deadlockedResult(t), Options{WithBacktrace: true})
	got := renderText(t, r)

	if !strings.Contains(got, strings.Repeat("=", 80)+"\n") {
		t.Error("output missing the backtrace section separator")
	}
	header := "\n" + strings.Repeat("-", 20) + " Thread #3 worker_b " + strings.Repeat("-", 20) + "\n"
	if !strings.Contains(got, header) {
		t.Errorf("output missing backtrace header %q", header)
	}
	if !strings.Contains(got, "#2  0x000055d43b00128a in worker_b () at main.c:57\n") {
		t.Error("output missing raw frame line")
	}
	if !strings.Contains(got, " Thread #1 app ") {
		t.Error("output missing the unblocked thread's backtrace header")
	}
}

func TestTextRenderDiagnostics(t *testing.T) {
	r := &Report{
		Blocked:     1,
		Waits:       []Wait{{Waiter: "Thread #3", LockFunc: "worker_b", Owner: "Thread #2"}},
		Diagnostics: []string{"skipping invalid frame: garbage"},
	}

	got := renderText(t, r)
	if !strings.Contains(got, "\nDiagnostics:\n  - skipping invalid frame: garbage\n") {
		t.Errorf("output = %q, want trailing diagnostics section", got)
	}
}

func TestDeadlockLine(t *testing.T) {
	tests := []struct {
		name  string
		cycle Cycle
		want  string
	}{
		{
			name:  "self wait",
			cycle: Cycle{Threads: []string{"Thread #2 worker_a"}},
			want:  "Deadlock: Thread #2 worker_a is waiting on itself",
		},
		{
			name:  "pair",
			cycle: Cycle{Threads: []string{"Thread #2 worker_a", "Thread #3 worker_b"}},
			want:  "Deadlock between Thread #2 worker_a and Thread #3 worker_b",
		},
		{
			name:  "ring of three",
			cycle: Cycle{Threads: []string{"Thread #1", "Thread #2", "Thread #3"}},
			want:  "Deadlock among Thread #1, Thread #2, Thread #3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deadlockLine(tt.cycle); got != tt.want {
				t.Errorf("deadlockLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJSONRender(t *testing.T) {
	r := Build(deadlockedResult(t), Options{Binary: "/usr/bin/app", Target: "4242"})

	var buf bytes.Buffer
	if err := (&JSONRenderer{}).Render(&buf, r); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.HasPrefix(buf.String(), "{\n  \"binary\":") {
		t.Errorf("output does not start with indented JSON: %q", buf.String()[:40])
	}

	var decoded Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded.Binary != "/usr/bin/app" || decoded.Target != "4242" {
		t.Errorf("identity = %q/%q, want /usr/bin/app/4242", decoded.Binary, decoded.Target)
	}
	if !decoded.Deadlocked || len(decoded.Cycles) != 1 {
		t.Errorf("decoded verdict = %v with %d cycles, want deadlocked with 1", decoded.Deadlocked, len(decoded.Cycles))
	}
	if len(decoded.Threads) != 3 || len(decoded.Waits) != 2 {
		t.Errorf("decoded %d threads and %d waits, want 3 and 2", len(decoded.Threads), len(decoded.Waits))
	}
}

func TestYAMLRender(t *testing.T) {
	r := Build(deadlockedResult(t), Options{Binary: "/usr/bin/app", Target: "4242"})

	var buf bytes.Buffer
	if err := (&YAMLRenderer{}).Render(&buf, r); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(buf.String(), "deadlocked: true\n") {
		t.Errorf("output missing verdict: %q", buf.String())
	}

	var decoded Report
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded.Target != "4242" || len(decoded.Cycles) != 1 {
		t.Errorf("decoded = %+v, want target 4242 with one cycle", decoded)
	}
}

func TestNewRenderer(t *testing.T) {
	tests := []struct {
		format string
		want   any
		ok     bool
	}{
		{"", &TextRenderer{}, true},
		{"text", &TextRenderer{}, true},
		{"json", &JSONRenderer{}, true},
		{"yaml", &YAMLRenderer{}, true},
		{"xml", nil, false},
	}

	for _, tt := range tests {
		t.Run("format "+tt.format, func(t *testing.T) {
			r, err := NewRenderer(tt.format, false)
			if tt.ok {
				if err != nil {
					t.Fatalf("NewRenderer(%q) error = %v", tt.format, err)
				}
				switch tt.want.(type) {
				case *TextRenderer:
					if _, isText := r.(*TextRenderer); !isText {
						t.Errorf("renderer = %T, want *TextRenderer", r)
					}
				case *JSONRenderer:
					if _, isJSON := r.(*JSONRenderer); !isJSON {
						t.Errorf("renderer = %T, want *JSONRenderer", r)
					}
				case *YAMLRenderer:
					if _, isYAML := r.(*YAMLRenderer); !isYAML {
						t.Errorf("renderer = %T, want *YAMLRenderer", r)
					}
				}
				return
			}
			if err == nil {
				t.Fatalf("NewRenderer(%q) error = nil, want validation error", tt.format)
			}
			if !errors.Is(err, errors.ErrInvalidInput) {
				t.Errorf("error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestColorEnabled(t *testing.T) {
	var buf bytes.Buffer

	if !ColorEnabled("always", &buf) {
		t.Error(`ColorEnabled("always") = false, want true`)
	}
	if ColorEnabled("never", &buf) {
		t.Error(`ColorEnabled("never") = true, want false`)
	}
	if ColorEnabled("auto", &buf) {
		t.Error(`ColorEnabled("auto") on a buffer = true, want false`)
	}
}
