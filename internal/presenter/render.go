// Package presenter renders per-strategy search state as terminal text. It
// is a pure function of its inputs; selection and expansion live with the
// caller.
package presenter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"formsearch/internal/domain"
	"formsearch/internal/service"
)

// minSideBySide is the narrowest terminal that lays DevView panels out in
// columns instead of stacking them.
const minSideBySide = 80

var (
	cardStyle         = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	selectedCardStyle = cardStyle.Copy().BorderForeground(lipgloss.Color("39"))
	headerStyle       = lipgloss.NewStyle().Bold(true)
	dimStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	labelStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	keyStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	errorStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	markStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)

	tierStyles = map[Tier]lipgloss.Style{
		TierHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		TierMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		TierLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
)

// StrategyTitle is the human name of a strategy.
func StrategyTitle(s domain.Strategy) string {
	switch s {
	case domain.StrategyMemory:
		return "In-Memory Index"
	case domain.StrategyPostgres:
		return "PostgreSQL FTS"
	default:
		return string(s)
	}
}

// Panel is one strategy's column.
type Panel struct {
	Strategy domain.Strategy
	State    service.State
	Expanded Expansion
	Cursor   int // selected card, -1 for none
}

// View is everything needed to render the results area.
type View struct {
	Mode      domain.ViewMode
	Committed string
	Panels    []Panel // UserView renders only the first
	Focus     int     // panel holding the cursor
	Width     int
	Spinner   string // current spinner frame
}

// Render draws the results area.
func Render(v View) string {
	if len(v.Panels) == 0 {
		return ""
	}
	width := v.Width
	if width <= 0 {
		width = minSideBySide
	}
	if v.Mode == domain.UserView {
		return renderUserPanel(v, v.Panels[0], v.Focus == 0, width)
	}

	cols := make([]string, len(v.Panels))
	side := width >= minSideBySide && len(v.Panels) > 1
	colWidth := width
	if side {
		colWidth = (width - (len(v.Panels) - 1)) / len(v.Panels)
	}
	for i, p := range v.Panels {
		cols[i] = lipgloss.NewStyle().Width(colWidth).Render(renderDevPanel(v, p, i == v.Focus, colWidth))
	}
	if side {
		parts := make([]string, 0, 2*len(cols)-1)
		for i, c := range cols {
			if i > 0 {
				parts = append(parts, " ")
			}
			parts = append(parts, c)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	}
	return strings.Join(cols, "\n\n")
}

func renderUserPanel(v View, p Panel, focused bool, width int) string {
	var b strings.Builder
	if p.State.Phase == service.PhaseLoaded && p.State.Response != nil {
		resp := p.State.Response
		b.WriteString(headerStyle.Render("Search Results"))
		b.WriteString("  ")
		b.WriteString(dimStyle.Render(fmt.Sprintf("%d results • %.1fms", len(resp.Results), resp.ElapsedMS)))
		b.WriteString("\n")
	}
	b.WriteString(renderBody(v, p, focused, width))
	return strings.TrimRight(b.String(), "\n")
}

func renderDevPanel(v View, p Panel, focused bool, width int) string {
	var b strings.Builder
	title := headerStyle.Render(StrategyTitle(p.Strategy))
	if p.State.Phase == service.PhaseLoaded && p.State.Response != nil {
		title += "  " + dimStyle.Render(fmt.Sprintf("%.1fms", p.State.Response.ElapsedMS))
	}
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(renderBody(v, p, focused, width))
	return strings.TrimRight(b.String(), "\n")
}

func renderBody(v View, p Panel, focused bool, width int) string {
	st := p.State
	switch st.Phase {
	case service.PhaseLoading:
		return v.Spinner + " Searching…"
	case service.PhaseFailed:
		msg := "No results"
		if st.Err != nil {
			msg += " " + errorStyle.Render("("+Sanitize(st.Err.Error())+")")
		}
		return dimStyle.Render(msg)
	case service.PhaseLoaded:
		if st.Response == nil || len(st.Response.Results) == 0 {
			return renderNoResults(v)
		}
		cards := make([]string, 0, len(st.Response.Results))
		for i, r := range st.Response.Results {
			id := ResultID(r.Key, i)
			selected := focused && i == p.Cursor
			cards = append(cards, RenderCard(r, p.Expanded.Expanded(id), selected, width))
		}
		return strings.Join(cards, "\n")
	default:
		return ""
	}
}

func renderNoResults(v View) string {
	if strings.TrimSpace(v.Committed) == "" {
		return ""
	}
	if v.Mode == domain.UserView {
		return dimStyle.Render(fmt.Sprintf("No results found for %q", Sanitize(v.Committed)))
	}
	return dimStyle.Render("No results found")
}

// RenderCard draws one result. Collapsed cards show the question, key and a
// one-line context preview; expanded cards show every field.
func RenderCard(r domain.SearchResult, expanded, selected bool, width int) string {
	style := cardStyle
	if selected {
		style = selectedCardStyle
	}
	fw, _ := style.GetFrameSize()
	inner := width - fw
	if inner < 10 {
		inner = 10
	}

	tier := TierFor(r.ConfidencePercent)
	rank := dimStyle.Render(fmt.Sprintf("Rank #%d", r.Rank))
	conf := tierStyles[tier].Render(fmt.Sprintf("%.0f%%", r.ConfidencePercent))
	gap := inner - lipgloss.Width(rank) - lipgloss.Width(conf)
	if gap < 1 {
		gap = 1
	}

	var b strings.Builder
	b.WriteString(rank + strings.Repeat(" ", gap) + conf + "\n")
	b.WriteString(RenderQuestion(r))

	if expanded {
		if r.Context != "" {
			b.WriteString("\n" + field("Context", Sanitize(r.Context)))
		}
		if r.FieldTitle != "" {
			b.WriteString("\n" + field("Field Title", Sanitize(r.FieldTitle)))
		}
		b.WriteString("\n" + field("Export Name", Sanitize(r.ExportName)))
		b.WriteString("\n" + labelStyle.Render("Key: ") + keyStyle.Render(Sanitize(r.Key)))
	} else {
		if r.Context != "" {
			preview := runewidth.Truncate(Sanitize(r.Context), inner-2, "…")
			b.WriteString("\n" + dimStyle.Render(preview))
		}
		b.WriteString("\n" + labelStyle.Render("Key: ") + keyStyle.Render(Sanitize(r.Key)))
	}

	return style.Width(inner + fw - 2).Render(b.String())
}

// RenderQuestion draws the question, with backend highlights when present.
func RenderQuestion(r domain.SearchResult) string {
	segs := PlainSegments(r.Question)
	if r.HighlightedQuestion != nil {
		segs = ParseHighlight(*r.HighlightedQuestion)
	}
	var b strings.Builder
	for _, s := range segs {
		if s.Marked {
			b.WriteString(markStyle.Render(s.Text))
		} else {
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

func field(label, value string) string {
	return labelStyle.Render(label+": ") + value
}
