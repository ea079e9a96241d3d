package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/msto63/ecsq/foundation/query"
	"github.com/msto63/ecsq/foundation/query/registry"
	"github.com/msto63/ecsq/internal/shell"
	"github.com/msto63/ecsq/pkg/core/version"
)

// View represents different views in the TUI
type View int

const (
	ViewQuery View = iota
	ViewSchema
	ViewStatus
)

const viewCount = 3

// Executor runs one query
type Executor interface {
	Execute(ctx context.Context, query string) (query.Status, *query.Result, error)
}

// Entry is one executed query and its rendered outcome
type Entry struct {
	Query    string
	Output   string
	Status   query.Status
	Duration time.Duration
}

// Options configures the model
type Options struct {
	// Registry backs the schema and status views; nil hides their data
	Registry  registry.Registry
	Source    string // where the world was loaded from
	MaxListed int
	Timeout   time.Duration
}

// Model is the main TUI model
type Model struct {
	// State
	view    View
	width   int
	height  int
	ready   bool
	loading bool

	// Components
	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model

	// Query state
	entries      []Entry
	history      []string
	historyIndex int
	lastDuration time.Duration
	executed     int
	failed       int

	executor  Executor
	formatter shell.Formatter
	options   Options
	ctx       context.Context
}

// NewModel creates a new TUI model
func NewModel(ctx context.Context, executor Executor, opts Options) Model {
	ta := textarea.New()
	ta.Placeholder = "SELECT ENTITIES WHERE HAS(Position)"
	ta.Focus()
	ta.CharLimit = 1024
	ta.SetWidth(80)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorPrimary)

	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return Model{
		view:      ViewQuery,
		textarea:  ta,
		spinner:   sp,
		entries:   []Entry{},
		executor:  executor,
		formatter: shell.Formatter{Styles: shell.NewStyles(os.Stdout), MaxListed: opts.MaxListed},
		options:   opts,
		ctx:       ctx,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "tab":
			m.view = (m.view + 1) % viewCount
			m.updateContent()
			return m, nil

		case "enter":
			if m.loading || m.view != ViewQuery {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()
			m.history = append(m.history, input)
			m.historyIndex = len(m.history)

			switch input {
			case "EXIT", "exit":
				return m, tea.Quit
			case "HELP", "help":
				m.entries = append(m.entries, Entry{Query: input, Output: shell.HelpText(), Status: query.StatusSuccess})
				m.updateContent()
				return m, nil
			}

			m.loading = true
			return m, tea.Batch(m.spinner.Tick, m.runQuery(input))

		case "up":
			if m.historyIndex > 0 {
				m.historyIndex--
				m.textarea.SetValue(m.history[m.historyIndex])
			}
			return m, nil

		case "down":
			if m.historyIndex < len(m.history)-1 {
				m.historyIndex++
				m.textarea.SetValue(m.history[m.historyIndex])
			} else {
				m.historyIndex = len(m.history)
				m.textarea.Reset()
			}
			return m, nil

		case "ctrl+l":
			m.entries = []Entry{}
			m.updateContent()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		if !m.ready {
			m.viewport = viewport.New(msg.Width, max(1, msg.Height-9))
			m.viewport.YPosition = 3
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = max(1, msg.Height-9)
		}
		m.textarea.SetWidth(max(10, msg.Width-4))
		m.updateContent()

	case queryResponseMsg:
		m.loading = false
		m.executed++
		if msg.status != query.StatusSuccess {
			m.failed++
		}
		m.lastDuration = msg.duration
		m.entries = append(m.entries, Entry{
			Query:    msg.query,
			Output:   m.formatter.Format(msg.status, msg.result, msg.err),
			Status:   msg.status,
			Duration: msg.duration,
		})
		m.updateContent()

	case spinner.TickMsg:
		if m.loading {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	// Update components
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// Entries returns the executed queries, oldest first
func (m Model) Entries() []Entry {
	return m.entries
}

// View renders the UI
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var s strings.Builder

	// Header
	s.WriteString(m.renderHeader())
	s.WriteString("\n")

	// Main content
	switch m.view {
	case ViewQuery:
		s.WriteString(m.renderQueryView())
	case ViewSchema:
		s.WriteString(m.renderSchemaView())
	case ViewStatus:
		s.WriteString(m.renderStatusView())
	}

	// Footer
	s.WriteString("\n")
	s.WriteString(m.renderFooter())

	return s.String()
}

func (m *Model) renderHeader() string {
	tabs := []string{"Query", "Schema", "Status"}
	var renderedTabs []string

	for i, tab := range tabs {
		if View(i) == m.view {
			renderedTabs = append(renderedTabs, ActiveTabStyle.Render(tab))
		} else {
			renderedTabs = append(renderedTabs, TabStyle.Render(tab))
		}
	}

	title := TitleStyle.Render("ecsq " + version.Shell)
	tabLine := lipgloss.JoinHorizontal(lipgloss.Top, renderedTabs...)

	return lipgloss.JoinVertical(lipgloss.Left, title, tabLine)
}

func (m *Model) renderQueryView() string {
	var s strings.Builder

	s.WriteString(m.viewport.View())
	s.WriteString("\n")

	if m.loading {
		s.WriteString(m.spinner.View())
		s.WriteString(" Running query...\n")
	}

	s.WriteString(FocusedInputStyle.Render(m.textarea.View()))

	return s.String()
}

func (m *Model) renderSchemaView() string {
	var s strings.Builder

	s.WriteString(SubtitleStyle.Render("Component types"))
	s.WriteString("\n\n")

	lister, ok := m.options.Registry.(interface{ Components() []registry.ComponentDef })
	if !ok {
		s.WriteString("No schema available.\n")
		return BoxStyle.Render(s.String())
	}

	defs := lister.Components()
	if len(defs) == 0 {
		s.WriteString("No component types registered.\n")
	}
	for _, def := range defs {
		s.WriteString(fmt.Sprintf("  %4d  %-24s %6d bytes\n", def.Type, def.Name, def.Size))
	}

	return BoxStyle.Render(s.String())
}

func (m *Model) renderStatusView() string {
	var s strings.Builder

	s.WriteString(SubtitleStyle.Render("World"))
	s.WriteString("\n\n")

	if m.options.Source != "" {
		s.WriteString(fmt.Sprintf("  %-14s %s\n", "Source", m.options.Source))
	}
	if stats, ok := m.options.Registry.(interface{ Stats() registry.Stats }); ok {
		st := stats.Stats()
		s.WriteString(fmt.Sprintf("  %-14s %s\n", "Entities", StatValueStyle.Render(fmt.Sprint(st.Entities))))
		s.WriteString(fmt.Sprintf("  %-14s %s\n", "Components", StatValueStyle.Render(fmt.Sprint(st.Components))))
		s.WriteString(fmt.Sprintf("  %-14s %s\n", "Attachments", StatValueStyle.Render(fmt.Sprint(st.Attachments))))
		s.WriteString(fmt.Sprintf("  %-14s %s\n", "Bytes", StatValueStyle.Render(fmt.Sprint(st.Bytes))))
	} else {
		s.WriteString("  No statistics available.\n")
	}

	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render("Session"))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("  %-14s %d\n", "Queries", m.executed))
	s.WriteString(fmt.Sprintf("  %-14s %d\n", "Failed", m.failed))
	s.WriteString(fmt.Sprintf("  %-14s %s\n", "Last duration", m.lastDuration))

	return BoxStyle.Render(s.String())
}

func (m *Model) renderFooter() string {
	help := "Tab: Switch • Enter: Run • Ctrl+L: Clear • Ctrl+C: Quit"
	info := fmt.Sprintf("Queries: %d • Last: %s", m.executed, m.lastDuration.Round(time.Microsecond))

	return StatusBarStyle.Width(m.width).Render(
		lipgloss.JoinHorizontal(
			lipgloss.Top,
			help,
			strings.Repeat(" ", max(0, m.width-lipgloss.Width(help)-lipgloss.Width(info)-4)),
			info,
		),
	)
}

func (m *Model) updateContent() {
	var content strings.Builder

	for _, e := range m.entries {
		content.WriteString(QueryStyle.Render("> " + e.Query))
		if e.Duration > 0 {
			content.WriteString(" ")
			content.WriteString(DurationStyle.Render(e.Duration.Round(time.Microsecond).String()))
		}
		content.WriteString("\n")
		content.WriteString(e.Output)
		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())
	m.viewport.GotoBottom()
}

// Message types for async operations
type queryResponseMsg struct {
	query    string
	status   query.Status
	result   *query.Result
	err      error
	duration time.Duration
}

// runQuery executes a query off the update loop
func (m *Model) runQuery(input string) tea.Cmd {
	executor := m.executor
	parent := m.ctx
	timeout := m.options.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()

		start := time.Now()
		status, result, err := executor.Execute(ctx, input)
		return queryResponseMsg{
			query:    input,
			status:   status,
			result:   result,
			err:      err,
			duration: time.Since(start),
		}
	}
}

