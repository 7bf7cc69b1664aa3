// Package tui is the interactive snapshot browser: a thread table over a
// finished analysis with a scrollable backtrace pane for the selected
// thread. The browser never talks to the debugger; it renders a report
// that was fully assembled before the program started.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/darless/c-deadlock-detector/internal/config"
	"github.com/darless/c-deadlock-detector/internal/report"
	"github.com/darless/c-deadlock-detector/internal/util"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	deadlockBanner = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	okBanner       = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	headerStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	blockedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	runningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	paneStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Model is the Bubbletea model for the snapshot browser.
type Model struct {
	report    *report.Report
	cfg       config.TUIConfig
	waitByLWP map[int]report.Wait

	cursor   int
	width    int
	height   int
	showAll  bool
	quitting bool

	paneOpen bool
	viewport viewport.Model

	filtering   bool
	filterQuery string
	filterInput textinput.Model
}

// New creates a browser model over a built report.
func New(r *report.Report, cfg config.TUIConfig) Model {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.CharLimit = 64

	waits := make(map[int]report.Wait, len(r.Waits))
	for _, wait := range r.Waits {
		waits[wait.WaiterLWP] = wait
	}

	return Model{
		report:      r,
		cfg:         cfg,
		waitByLWP:   waits,
		showAll:     cfg.ShowAllThreads,
		viewport:    viewport.New(0, 0),
		filterInput: ti,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = max(msg.Width-4, 10)
		m.viewport.Height = max(msg.Height-10, 3)
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			return m.handleFilterKeypress(msg)
		}
		if m.paneOpen {
			return m.handlePaneKeypress(msg)
		}
		return m.handleTableKeypress(msg)
	}

	return m, nil
}

func (m Model) handleTableKeypress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.visibleRows())-1 {
			m.cursor++
		}

	case "g":
		m.cursor = 0

	case "G":
		if rows := m.visibleRows(); len(rows) > 0 {
			m.cursor = len(rows) - 1
		}

	case "a":
		m.showAll = !m.showAll
		m.clampCursor()

	case "/":
		m.filtering = true
		m.filterInput.SetValue(m.filterQuery)
		m.filterInput.Focus()
		return m, textinput.Blink

	case "esc":
		if m.filterQuery != "" {
			m.filterQuery = ""
			m.clampCursor()
		}

	case "enter":
		rows := m.visibleRows()
		if len(rows) == 0 {
			return m, nil
		}
		m.paneOpen = true
		m.viewport.SetContent(m.paneContent(rows[m.cursor]))
		m.viewport.GotoTop()
	}

	return m, nil
}

func (m Model) handlePaneKeypress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc", "enter":
		m.paneOpen = false
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleFilterKeypress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.filtering = false
		m.filterQuery = m.filterInput.Value()
		m.filterInput.Blur()
		m.cursor = 0
		return m, nil

	case "esc":
		m.filtering = false
		m.filterInput.SetValue("")
		m.filterInput.Blur()
		return m, nil

	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

// visibleRows returns the threads currently shown: blocked threads by
// default, all threads when toggled, narrowed by the active filter.
func (m Model) visibleRows() []report.Thread {
	rows := make([]report.Thread, 0, len(m.report.Threads))
	for _, thread := range m.report.Threads {
		if !m.showAll && !thread.Blocked {
			continue
		}
		if m.filterQuery != "" && !matchesQuery(thread, m.filterQuery) {
			continue
		}
		rows = append(rows, thread)
	}
	return rows
}

// matchesQuery accepts an exact display index or a case-insensitive name
// substring.
func matchesQuery(thread report.Thread, query string) bool {
	if query == strconv.Itoa(thread.Index) {
		return true
	}
	return strings.Contains(strings.ToLower(thread.Name), strings.ToLower(query))
}

func (m *Model) clampCursor() {
	if rows := m.visibleRows(); m.cursor >= len(rows) {
		m.cursor = max(len(rows)-1, 0)
	}
}

// paneContent renders the backtrace pane body for one thread, clamped to
// the configured maximum line count.
func (m Model) paneContent(thread report.Thread) string {
	if len(thread.Backtrace) == 0 {
		return mutedStyle.Render("no backtrace captured")
	}
	return util.ClampLines(strings.Join(thread.Backtrace, "\n"), m.cfg.MaxBacktraceLines)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("cdd - %s %s", m.report.Binary, m.report.Target)))
	b.WriteString("\n")
	b.WriteString(m.renderVerdict())
	b.WriteString("\n\n")

	if m.filtering {
		b.WriteString(m.filterInput.View())
		b.WriteString("\n")
	} else if m.filterQuery != "" {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("filter: %q (esc to clear)", m.filterQuery)))
		b.WriteString("\n")
	}

	b.WriteString(m.renderTable())

	if m.paneOpen {
		b.WriteString("\n")
		b.WriteString(m.renderPane())
	}

	b.WriteString("\n")
	b.WriteString(m.renderHelp())

	return b.String()
}

func (m Model) renderVerdict() string {
	if m.report.Deadlocked {
		plural := ""
		if len(m.report.Cycles) > 1 {
			plural = "s"
		}
		return deadlockBanner.Render(fmt.Sprintf("DEADLOCK: %d cycle%s found", len(m.report.Cycles), plural))
	}
	if m.report.Blocked == 0 {
		return okBanner.Render("There are no locked threads")
	}
	return okBanner.Render(fmt.Sprintf("no deadlock found (%d blocked)", m.report.Blocked))
}

func (m Model) renderTable() string {
	rows := m.visibleRows()
	if len(rows) == 0 {
		return mutedStyle.Render("  no threads to show")
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("  %-5s %-8s %-16s %-28s %s", "IDX", "LWP", "NAME", "STATE", "OWNER")))
	b.WriteString("\n")

	for i, thread := range rows {
		cursor := "  "
		if i == m.cursor {
			cursor = selectedStyle.Render("> ")
		}

		state := runningStyle.Render("running")
		owner := ""
		if thread.Blocked {
			state = blockedStyle.Render(fmt.Sprintf("blocked (%s)", thread.BlockedIn))
			owner = "?"
			if wait, ok := m.waitByLWP[thread.LWP]; ok && wait.Owner != "" {
				owner = wait.Owner
			}
		}

		name := util.TruncateString(thread.Name, 16)
		line := fmt.Sprintf("%s%-5d %-8d %-16s %-28s %s",
			cursor, thread.Index, thread.LWP, name, state, owner)
		if i == m.cursor {
			line = selectedStyle.Render(util.TruncateANSI(line, max(m.width-2, 20)))
		} else {
			line = util.TruncateANSI(line, max(m.width-2, 20))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderPane() string {
	rows := m.visibleRows()
	if len(rows) == 0 {
		return ""
	}
	thread := rows[m.cursor]

	var b strings.Builder
	b.WriteString(titleStyle.Render(thread.Readable()))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	return paneStyle.Width(max(m.width-2, 20)).Render(b.String())
}

func (m Model) renderHelp() string {
	if m.filtering {
		return mutedStyle.Render("enter apply  esc cancel")
	}
	if m.paneOpen {
		return mutedStyle.Render("j/k scroll  esc close  q quit")
	}
	return mutedStyle.Render("j/k navigate  enter backtrace  / filter  a all threads  q quit")
}

// Run opens the browser for a finished analysis.
func Run(r *report.Report, cfg config.TUIConfig) error {
	p := tea.NewProgram(New(r, cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
