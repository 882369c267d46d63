// Package tui is an interactive viewer over an analyzed event timeline.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/akita-tools/akita/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	startStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	killStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	lmkStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
	helpStyle  = lipgloss.NewStyle().Faint(true).Padding(0, 1)
)

// Model is the bubbletea model for the timeline viewer.
type Model struct {
	title    string
	viewport viewport.Model
	content  string
	ready    bool
}

// New builds a viewer over the merged timeline. Cold/hot verdicts from the
// classifier are folded into the start lines when available.
func New(title string, events []*domain.LogEvent, classified []*domain.ClassifiedEvent) Model {
	verdicts := make(map[*domain.LogEvent]*domain.ClassifiedEvent, len(classified))
	for _, ce := range classified {
		verdicts[ce.Event] = ce
	}

	var b strings.Builder
	for i, ev := range events {
		fmt.Fprintf(&b, "%4d  %s  %s\n", i+1, ev.Time.Format("01-02 15:04:05.000"), formatEvent(ev, verdicts[ev]))
	}

	return Model{title: title, content: b.String()}
}

func formatEvent(ev *domain.LogEvent, ce *domain.ClassifiedEvent) string {
	name := ev.FullName
	switch ev.Kind {
	case domain.KindStart:
		label := startStyle.Render("start")
		if ce != nil {
			label += dimStyle.Render(fmt.Sprintf(" [%s]", ce.Verdict))
			if ce.Anomaly {
				label += dimStyle.Render(" [out-of-sequence]")
			}
		}
		if ev.Start != nil && ev.Start.DisplayedMS > 0 {
			label += dimStyle.Render(fmt.Sprintf(" +%dms", ev.Start.DisplayedMS))
		}
		return label + "  " + name
	case domain.KindKill:
		detail := ""
		if ev.Kill != nil {
			detail = dimStyle.Render(fmt.Sprintf(" type=%s adj=%s", ev.Kill.Stats.KillTypeDesc, ev.Kill.Proc.Adj))
		}
		return killStyle.Render("kill") + detail + "  " + name
	case domain.KindLMK:
		detail := ""
		if ev.LMK != nil {
			detail = dimStyle.Render(fmt.Sprintf(" reason=%s rss=%skB", ev.LMK.Reason, ev.LMK.RSSKB))
		}
		return lmkStyle.Render("lmk") + detail + "  " + name
	case domain.KindTrig:
		return lmkStyle.Render("trig") + "  " + name
	case domain.KindSkip:
		return dimStyle.Render("skip") + "  " + name
	case domain.KindAMKill:
		return killStyle.Render("am_kill") + "  " + name
	default:
		return dimStyle.Render(string(ev.Kind)) + "  " + name
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		headerHeight := 2
		footerHeight := 1
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.viewport.SetContent(m.content)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "loading timeline..."
	}
	header := titleStyle.Render(m.title)
	footer := helpStyle.Render(fmt.Sprintf("%3.f%%  ↑/↓ scroll  q quit", m.viewport.ScrollPercent()*100))
	return header + "\n" + m.viewport.View() + "\n" + footer
}
