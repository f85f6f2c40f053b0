package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formsearch/internal/debounce"
	"formsearch/internal/domain"
	"formsearch/internal/presenter"
	"formsearch/internal/service"
)

// --- Mock searcher ---

type mockSearcher struct {
	mu   sync.Mutex
	reqs []domain.SearchRequest
	errs map[domain.Strategy]error
}

func (s *mockSearcher) Search(_ context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	if err := s.errs[req.Strategy]; err != nil {
		return nil, err
	}
	return &domain.SearchResponse{
		Query:    req.Query,
		Strategy: req.Strategy,
		Results: []domain.SearchResult{
			{Key: "ZIP", Question: "Zip code?", ExportName: "zip", Rank: 1, ConfidencePercent: 90},
			{Key: "ZIP", Question: "Old zip code?", ExportName: "old_zip", Rank: 2, ConfidencePercent: 60},
		},
		ElapsedMS:    1.2,
		TotalResults: 2,
	}, nil
}

func (s *mockSearcher) requests() []domain.SearchRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.SearchRequest(nil), s.reqs...)
}

func newTestModel(t *testing.T, mode domain.ViewMode) (Model, *mockSearcher) {
	t.Helper()
	s := &mockSearcher{errs: map[domain.Strategy]error{}}
	d := service.NewDispatcher(s, service.Options{
		Strategies: []domain.Strategy{domain.StrategyMemory, domain.StrategyPostgres},
		Primary:    domain.StrategyMemory,
		TopN:       5,
	})
	m := New(d, debounce.New(0), mode)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 50})
	return next.(Model), s
}

// runCmd executes a tea.Cmd synchronously and returns the resulting message.
func runCmd(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	return cmd()
}

// drainBatch runs cmd and feeds every resulting message back into the model.
func drainBatch(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	msg := runCmd(cmd)
	if msg == nil {
		return m
	}
	msgs := []tea.Msg{msg}
	if batch, ok := msg.(tea.BatchMsg); ok {
		msgs = msgs[:0]
		for _, c := range batch {
			if sub := runCmd(c); sub != nil {
				msgs = append(msgs, sub)
			}
		}
	}
	for _, sub := range msgs {
		next, _ := m.Update(sub)
		m = next.(Model)
	}
	return m
}

func typeText(m Model, s string) Model {
	for _, r := range s {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(Model)
	}
	return m
}

func press(m Model, k tea.KeyType) (Model, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: k})
	return next.(Model), cmd
}

// search types q, commits the latest ticket and resolves every request.
func search(t *testing.T, m Model, q string) Model {
	t.Helper()
	m = typeText(m, q)
	next, cmd := m.Update(commitMsg{ticket: m.pending})
	return drainBatch(t, next.(Model), cmd)
}

// --- Debounce ---

func TestTyping_OnlyLatestTicketCommits(t *testing.T) {
	m, s := newTestModel(t, domain.UserView)
	m = typeText(m, "cats")
	require.Equal(t, debounce.Ticket(4), m.pending)

	for ticket := debounce.Ticket(1); ticket < 4; ticket++ {
		next, cmd := m.Update(commitMsg{ticket: ticket})
		m = next.(Model)
		assert.Nil(t, cmd)
	}
	assert.Empty(t, s.requests())

	next, cmd := m.Update(commitMsg{ticket: m.pending})
	m = drainBatch(t, next.(Model), cmd)

	reqs := s.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "cats", reqs[0].Query)
	assert.Equal(t, domain.StrategyMemory, reqs[0].Strategy)
}

func TestTyping_RawInputEchoedImmediately(t *testing.T) {
	m, _ := newTestModel(t, domain.UserView)
	m = typeText(m, "zi")
	assert.Equal(t, "zi", m.input.Value())
	assert.Contains(t, m.View(), "zi")
	assert.Contains(t, m.View(), "Type to search.")
}

// --- Dispatch per mode ---

func TestCommit_UserViewRendersPrimaryOnly(t *testing.T) {
	m, s := newTestModel(t, domain.UserView)
	m = search(t, m, "zip")

	assert.Len(t, s.requests(), 1)
	assert.Equal(t, service.PhaseLoaded, m.dispatcher.State(domain.StrategyMemory).Phase)
	out := m.renderResults()
	assert.Contains(t, out, "2 results")
	assert.NotContains(t, out, "PostgreSQL FTS")
}

func TestCommit_DevViewQueriesEveryStrategy(t *testing.T) {
	m, s := newTestModel(t, domain.DevView)
	m = search(t, m, "zip")

	assert.Len(t, s.requests(), 2)
	out := m.renderResults()
	assert.Contains(t, out, "In-Memory Index")
	assert.Contains(t, out, "PostgreSQL FTS")
}

func TestCommit_FailedStrategyDoesNotAffectSibling(t *testing.T) {
	m, s := newTestModel(t, domain.DevView)
	s.errs[domain.StrategyPostgres] = errors.New("gateway 500: Search failed")
	m = search(t, m, "zip")

	assert.Equal(t, service.PhaseLoaded, m.dispatcher.State(domain.StrategyMemory).Phase)
	assert.Equal(t, service.PhaseFailed, m.dispatcher.State(domain.StrategyPostgres).Phase)
	assert.Contains(t, m.renderResults(), "gateway 500")
}

func TestClearingInput_ClearsResultsWithoutRequest(t *testing.T) {
	m, s := newTestModel(t, domain.UserView)
	m = search(t, m, "ab")
	require.Len(t, s.requests(), 1)

	m, _ = press(m, tea.KeyBackspace)
	m, _ = press(m, tea.KeyBackspace)
	next, cmd := m.Update(commitMsg{ticket: m.pending})
	m = next.(Model)

	assert.Nil(t, cmd)
	assert.Len(t, s.requests(), 1)
	assert.Equal(t, service.PhaseIdle, m.dispatcher.State(domain.StrategyMemory).Phase)
}

// --- View mode ---

func TestCtrlT_TogglesViewMode(t *testing.T) {
	m, s := newTestModel(t, domain.UserView)
	m = search(t, m, "zip")

	m, cmd := press(m, tea.KeyCtrlT)
	assert.Equal(t, domain.DevView, m.Mode())
	m = drainBatch(t, m, cmd)
	assert.Len(t, s.requests(), 3)
	assert.Equal(t, service.PhaseLoaded, m.dispatcher.State(domain.StrategyPostgres).Phase)

	m, cmd = press(m, tea.KeyCtrlT)
	assert.Equal(t, domain.UserView, m.Mode())
	assert.Nil(t, cmd)
	assert.Equal(t, service.PhaseIdle, m.dispatcher.State(domain.StrategyPostgres).Phase)
	assert.Equal(t, service.PhaseLoaded, m.dispatcher.State(domain.StrategyMemory).Phase)
}

func TestDevView_ShortQueryHint(t *testing.T) {
	m, _ := newTestModel(t, domain.DevView)
	m = search(t, m, "ab")
	assert.Contains(t, m.View(), "PostgreSQL FTS requires 3+ characters")

	m = search(t, m, "c")
	assert.NotContains(t, m.View(), "requires 3+ characters")
}

func TestCtrlQ_RedispatchesWithQuestionsOnly(t *testing.T) {
	m, s := newTestModel(t, domain.UserView)
	m = search(t, m, "zip")

	m, cmd := press(m, tea.KeyCtrlQ)
	m = drainBatch(t, m, cmd)

	reqs := s.requests()
	require.Len(t, reqs, 2)
	assert.False(t, reqs[0].QuestionsOnly)
	assert.True(t, reqs[1].QuestionsOnly)
	assert.Contains(t, m.View(), "questions only")
}

// --- Selection ---

func TestEnter_TogglesExpansionOfSelectedCard(t *testing.T) {
	m, _ := newTestModel(t, domain.UserView)
	m = search(t, m, "zip")

	m, _ = press(m, tea.KeyDown)
	m, _ = press(m, tea.KeyEnter)
	assert.True(t, m.expanded[domain.StrategyMemory].Expanded(presenter.ResultID("ZIP", 1)))
	assert.False(t, m.expanded[domain.StrategyMemory].Expanded(presenter.ResultID("ZIP", 0)))
	assert.Contains(t, m.renderResults(), "Export Name: old_zip")

	m, _ = press(m, tea.KeyEnter)
	assert.Equal(t, 0, m.expanded[domain.StrategyMemory].Len())
}

func TestNewSearch_ResetsExpansion(t *testing.T) {
	m, _ := newTestModel(t, domain.UserView)
	m = search(t, m, "zip")
	m, _ = press(m, tea.KeyEnter)
	require.Equal(t, 1, m.expanded[domain.StrategyMemory].Len())

	m = search(t, m, "s")
	assert.Equal(t, 0, m.expanded[domain.StrategyMemory].Len())
}

func TestUpDown_Wraps(t *testing.T) {
	m, _ := newTestModel(t, domain.UserView)
	m = search(t, m, "zip")

	m, _ = press(m, tea.KeyUp)
	assert.Equal(t, 1, m.cursors[domain.StrategyMemory])
	m, _ = press(m, tea.KeyDown)
	assert.Equal(t, 0, m.cursors[domain.StrategyMemory])
}

func TestTab_CyclesPanelFocusInDevView(t *testing.T) {
	m, _ := newTestModel(t, domain.DevView)
	m = search(t, m, "zip")

	m, _ = press(m, tea.KeyTab)
	assert.Equal(t, domain.StrategyPostgres, m.focusedStrategy())
	m, _ = press(m, tea.KeyEnter)
	assert.Equal(t, 1, m.expanded[domain.StrategyPostgres].Len())
	assert.Equal(t, 0, m.expanded[domain.StrategyMemory].Len())

	m, _ = press(m, tea.KeyTab)
	assert.Equal(t, domain.StrategyMemory, m.focusedStrategy())
}

// --- Quit ---

func TestEsc_QuitsAndSuppressesPendingCommit(t *testing.T) {
	m, s := newTestModel(t, domain.UserView)
	m = typeText(m, "zip")
	ticket := m.pending

	m, cmd := press(m, tea.KeyEsc)
	assert.IsType(t, tea.QuitMsg{}, runCmd(cmd))

	next, cmd := m.Update(commitMsg{ticket: ticket})
	assert.Nil(t, cmd)
	assert.Empty(t, s.requests())
	assert.Equal(t, service.PhaseIdle, next.(Model).dispatcher.State(domain.StrategyMemory).Phase)
}

func TestView_BeforeWindowSize(t *testing.T) {
	d := service.NewDispatcher(&mockSearcher{}, service.Options{})
	m := New(d, debounce.New(0), domain.UserView)
	assert.Equal(t, "Loading...", m.View())
}
