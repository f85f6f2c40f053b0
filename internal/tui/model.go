package tui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"formsearch/internal/debounce"
	"formsearch/internal/domain"
	"formsearch/internal/presenter"
	"formsearch/internal/service"
)

// postgresMinChars is the shortest query PostgreSQL FTS answers usefully.
const postgresMinChars = 3

// commitMsg fires once the debounce interval after a keystroke has passed.
type commitMsg struct {
	ticket debounce.Ticket
}

// resultMsg carries one strategy's finished request back into Update.
type resultMsg service.Result

// Model is the Bubble Tea model for the search screen.
type Model struct {
	dispatcher *service.Dispatcher
	debouncer  *debounce.Debouncer

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	mode     domain.ViewMode
	expanded map[domain.Strategy]presenter.Expansion
	cursors  map[domain.Strategy]int
	focus    int
	pending  debounce.Ticket
	ready    bool
}

// New creates the search screen over an existing dispatcher and debouncer.
func New(d *service.Dispatcher, deb *debounce.Debouncer, mode domain.ViewMode) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Search form questions"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		dispatcher: d,
		debouncer:  deb,
		input:      ti,
		viewport:   viewport.New(0, 0),
		spinner:    sp,
		mode:       mode,
		expanded:   make(map[domain.Strategy]presenter.Expansion),
		cursors:    make(map[domain.Strategy]int),
	}
}

// Mode is the current view mode.
func (m Model) Mode() domain.ViewMode { return m.mode }

// Init starts the cursor blink and the loading spinner.
func (m Model) Init() tea.Cmd { return tea.Batch(textinput.Blink, m.spinner.Tick) }

// Update handles key, timer and response events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header and help, status, query box, spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case commitMsg:
		return m.handleCommit(msg)

	case resultMsg:
		r := service.Result(msg)
		if m.dispatcher.Resolve(r) {
			m.clampCursor(r.Strategy)
			m.refresh()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.anyLoading() {
			m.refresh()
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "ctrl+d", "esc":
		m.debouncer.Close()
		m.dispatcher.Close()
		return m, tea.Quit

	case "ctrl+t":
		if m.mode == domain.UserView {
			m.mode = domain.DevView
		} else {
			m.mode = domain.UserView
			m.focus = 0
		}
		calls := m.dispatcher.SetMode(m.mode, m.debouncer.Committed())
		m.resetSelection(calls)
		log.Debug().Str("mode", m.mode.String()).Int("requests", len(calls)).Msg("view mode changed")
		m.refresh()
		return m, runCalls(calls)

	case "ctrl+q":
		m.dispatcher.SetQuestionsOnly(!m.dispatcher.QuestionsOnly())
		calls := m.dispatcher.Dispatch(m.debouncer.Committed(), m.mode)
		m.resetSelection(calls)
		m.refresh()
		return m, runCalls(calls)

	case "tab":
		if panels := m.visibleStrategies(); len(panels) > 1 {
			m.focus = (m.focus + 1) % len(panels)
			m.refresh()
		}
		return m, nil

	case "up", "down":
		s := m.focusedStrategy()
		n := m.resultCount(s)
		if n == 0 {
			return m, nil
		}
		c := m.cursors[s]
		if msg.String() == "down" {
			c = (c + 1) % n
		} else {
			c = (c - 1 + n) % n
		}
		m.cursors[s] = c
		m.refresh()
		return m, nil

	case "enter":
		s := m.focusedStrategy()
		st := m.dispatcher.State(s)
		if st.Phase != service.PhaseLoaded || st.Response == nil {
			return m, nil
		}
		c := m.cursors[s]
		if c < 0 || c >= len(st.Response.Results) {
			return m, nil
		}
		e := m.expanded[s]
		e.Toggle(presenter.ResultID(st.Response.Results[c].Key, c))
		m.expanded[s] = e
		m.refresh()
		return m, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() == before {
		return m, cmd
	}
	m.pending = m.debouncer.Input(m.input.Value())
	ticket := m.pending
	tick := tea.Tick(m.debouncer.Interval(), func(time.Time) tea.Msg {
		return commitMsg{ticket: ticket}
	})
	return m, tea.Batch(cmd, tick)
}

func (m Model) handleCommit(msg commitMsg) (tea.Model, tea.Cmd) {
	q, ok := m.debouncer.Commit(msg.ticket)
	if !ok {
		return m, nil
	}
	log.Debug().Str("query", q).Str("mode", m.mode.String()).Msg("query committed")
	calls := m.dispatcher.Dispatch(q, m.mode)
	for _, s := range m.dispatcher.Strategies() {
		m.expanded[s] = presenter.Expansion{}
		m.cursors[s] = 0
	}
	m.refresh()
	return m, runCalls(calls)
}

func runCalls(calls []service.Call) tea.Cmd {
	if len(calls) == 0 {
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(calls))
	for _, c := range calls {
		cmds = append(cmds, func() tea.Msg { return resultMsg(c.Run()) })
	}
	return tea.Batch(cmds...)
}

// resetSelection forgets cursor and expansion for strategies that get a
// fresh request.
func (m *Model) resetSelection(calls []service.Call) {
	for _, c := range calls {
		m.expanded[c.Strategy] = presenter.Expansion{}
		m.cursors[c.Strategy] = 0
	}
}

func (m *Model) clampCursor(s domain.Strategy) {
	n := m.resultCount(s)
	if m.cursors[s] >= n {
		m.cursors[s] = max(0, n-1)
	}
}

func (m Model) resultCount(s domain.Strategy) int {
	st := m.dispatcher.State(s)
	if st.Phase != service.PhaseLoaded || st.Response == nil {
		return 0
	}
	return len(st.Response.Results)
}

func (m Model) anyLoading() bool {
	for _, s := range m.visibleStrategies() {
		if m.dispatcher.State(s).Loading() {
			return true
		}
	}
	return false
}

// visibleStrategies lists the panels of the current mode, primary first in
// UserView.
func (m Model) visibleStrategies() []domain.Strategy {
	if m.mode == domain.UserView {
		return []domain.Strategy{m.dispatcher.Primary()}
	}
	return m.dispatcher.Strategies()
}

func (m Model) focusedStrategy() domain.Strategy {
	vs := m.visibleStrategies()
	if m.focus < len(vs) {
		return vs[m.focus]
	}
	return vs[0]
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderResults())
}

func (m Model) renderResults() string {
	vs := m.visibleStrategies()
	panels := make([]presenter.Panel, len(vs))
	for i, s := range vs {
		panels[i] = presenter.Panel{
			Strategy: s,
			State:    m.dispatcher.State(s),
			Expanded: m.expanded[s],
			Cursor:   m.cursors[s],
		}
	}
	fw, _ := resultBoxStyle.GetFrameSize()
	return presenter.Render(presenter.View{
		Mode:      m.mode,
		Committed: m.debouncer.Committed(),
		Panels:    panels,
		Focus:     m.focus,
		Width:     m.viewport.Width - fw,
		Spinner:   m.spinner.View(),
	})
}

// View renders the search screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	title := "Form Search"
	badge := modeStyle.Render(" " + m.mode.String() + " ")
	if m.dispatcher.QuestionsOnly() {
		badge += " " + modeStyle.Render(" questions only ")
	}
	header := headerStyle.Render(title) + "  " + badge
	help := helpStyle.Render("ctrl+t view • ctrl+q questions only • ↑/↓ select • enter expand • tab panel • esc quit")
	results := resultBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status())
	return header + "\n" + help + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) status() string {
	committed := strings.TrimSpace(m.debouncer.Committed())
	if committed == "" {
		return "Type to search."
	}
	if m.mode == domain.DevView && m.hasStrategy(domain.StrategyPostgres) &&
		utf8.RuneCountInString(committed) < postgresMinChars {
		return "PostgreSQL FTS requires 3+ characters"
	}
	if m.anyLoading() {
		return fmt.Sprintf("Searching for %q", presenter.Sanitize(committed))
	}
	return fmt.Sprintf("Results for %q", presenter.Sanitize(committed))
}

func (m Model) hasStrategy(s domain.Strategy) bool {
	for _, x := range m.dispatcher.Strategies() {
		if x == s {
			return true
		}
	}
	return false
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	headerStyle    = lipgloss.NewStyle().Bold(true)
	modeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)
