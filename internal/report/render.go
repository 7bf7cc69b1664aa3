package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/darless/c-deadlock-detector/internal/errors"
)

// Text report styles.
var (
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	noOwnerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	deadlockStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	diagStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Renderer writes a report in one output format.
type Renderer interface {
	Render(w io.Writer, r *Report) error
}

// NewRenderer returns the renderer for the given format ("text", "json",
// or "yaml"). Color only affects the text renderer.
func NewRenderer(format string, color bool) (Renderer, error) {
	switch format {
	case "", "text":
		return &TextRenderer{Color: color}, nil
	case "json":
		return &JSONRenderer{}, nil
	case "yaml":
		return &YAMLRenderer{}, nil
	default:
		return nil, errors.NewValidationError("unknown report format").
			WithField("report.format").
			WithValue(format)
	}
}

// ColorEnabled decides whether styled text should be emitted for the
// given color mode ("auto", "always", "never") and destination.
func ColorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// TextRenderer writes the human-readable report.
type TextRenderer struct {
	Color bool
}

// Render implements Renderer.
func (t *TextRenderer) Render(w io.Writer, r *Report) error {
	var b strings.Builder

	if r.Blocked == 0 {
		b.WriteString(t.style(okStyle, "There are no locked threads"))
		b.WriteByte('\n')
		t.writeDiagnostics(&b, r.Diagnostics)
		_, err := io.WriteString(w, b.String())
		return err
	}

	for _, wait := range r.Waits {
		if wait.Owner == "" {
			b.WriteString(t.style(noOwnerStyle, fmt.Sprintf("No owner for %s", wait.Waiter)))
			b.WriteByte('\n')
			continue
		}
		fmt.Fprintf(&b, "%s is waiting for a lock (%s) owned by %s\n",
			wait.Waiter, wait.LockFunc, wait.Owner)
	}

	for _, cycle := range r.Cycles {
		b.WriteString(t.style(deadlockStyle, deadlockLine(cycle)))
		b.WriteByte('\n')
	}

	t.writeBacktraces(&b, r)
	t.writeDiagnostics(&b, r.Diagnostics)

	_, err := io.WriteString(w, b.String())
	return err
}

func (t *TextRenderer) writeBacktraces(b *strings.Builder, r *Report) {
	any := false
	for _, thread := range r.Threads {
		if len(thread.Backtrace) > 0 {
			any = true
			break
		}
	}
	if !any {
		return
	}

	b.WriteString(strings.Repeat("=", 80))
	b.WriteByte('\n')
	for _, thread := range r.Threads {
		if len(thread.Backtrace) == 0 {
			continue
		}
		fmt.Fprintf(b, "\n%s %s %s\n",
			strings.Repeat("-", 20), thread.Readable(), strings.Repeat("-", 20))
		for _, line := range thread.Backtrace {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
}

func (t *TextRenderer) writeDiagnostics(b *strings.Builder, diags []string) {
	if len(diags) == 0 {
		return
	}
	b.WriteByte('\n')
	b.WriteString(t.style(diagStyle, "Diagnostics:"))
	b.WriteByte('\n')
	for _, diag := range diags {
		b.WriteString(t.style(diagStyle, "  - "+diag))
		b.WriteByte('\n')
	}
}

func (t *TextRenderer) style(s lipgloss.Style, text string) string {
	if !t.Color {
		return text
	}
	return s.Render(text)
}

// deadlockLine formats the verdict for one cycle.
func deadlockLine(c Cycle) string {
	switch len(c.Threads) {
	case 1:
		return fmt.Sprintf("Deadlock: %s is waiting on itself", c.Threads[0])
	case 2:
		return fmt.Sprintf("Deadlock between %s and %s", c.Threads[0], c.Threads[1])
	default:
		return fmt.Sprintf("Deadlock among %s", strings.Join(c.Threads, ", "))
	}
}

// JSONRenderer writes the report as indented JSON.
type JSONRenderer struct{}

// Render implements Renderer.
func (j *JSONRenderer) Render(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// YAMLRenderer writes the report as YAML.
type YAMLRenderer struct{}

// Render implements Renderer.
func (y *YAMLRenderer) Render(w io.Writer, r *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}
