package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"lapfinder/internal/service"
	"lapfinder/internal/store"
)

// HistoryModel is the run history screen model
type HistoryModel struct {
	service  *service.AnalysisService
	runs     []store.Run
	cursor   int
	pageSize int
	loading  bool
	err      error
}

// NewHistoryModel creates a new history model
func NewHistoryModel(svc *service.AnalysisService) HistoryModel {
	return HistoryModel{
		service:  svc,
		pageSize: 50,
		loading:  true,
	}
}

// Init initializes the history screen
func (m HistoryModel) Init() tea.Cmd {
	return m.loadRuns
}

type runsLoadedMsg struct {
	runs []store.Run
	err  error
}

func (m HistoryModel) loadRuns() tea.Msg {
	if m.service == nil {
		return runsLoadedMsg{err: service.ErrNoStore}
	}
	runs, err := m.service.History(m.pageSize)
	return runsLoadedMsg{runs: runs, err: err}
}

// OpenRunMsg asks the app to show a stored run
type OpenRunMsg struct {
	RunID string
}

// Update handles messages
func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runsLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.runs = msg.runs
		if m.cursor >= len(m.runs) {
			m.cursor = max(len(m.runs)-1, 0)
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.runs)-1 {
				m.cursor++
			}
		case "r":
			m.loading = true
			return m, m.loadRuns
		case "enter":
			if m.cursor < len(m.runs) {
				id := m.runs[m.cursor].ID
				return m, func() tea.Msg {
					return OpenRunMsg{RunID: id}
				}
			}
		}
	}
	return m, nil
}

// View renders the run history
func (m HistoryModel) View() string {
	if m.loading {
		return "\n  Loading runs..."
	}
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}
	if len(m.runs) == 0 {
		return "\n  No saved runs. Use 'lapfinder analyze -save <file>'."
	}

	sections := []string{
		cardTitleStyle.Render(fmt.Sprintf("Runs (%d)", len(m.runs))),
		tableHeaderStyle.Render(fmt.Sprintf("   %-16s  %-28s  %4s  %4s  %10s", "When", "Source", "Laps", "Segs", "Best lap")),
	}

	for i, run := range m.runs {
		best := "-"
		if run.BestLapTime != nil {
			best = service.FormatLapTime(*run.BestLapTime)
		}

		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		row := fmt.Sprintf("%s%-16s  %-28s  %4d  %4d  %10s",
			cursor,
			humanize.Time(run.CreatedAt),
			truncate(run.Source, 28),
			run.LapCount,
			run.Segments,
			best,
		)

		if i == m.cursor {
			sections = append(sections, tableSelectedStyle.Render(row))
		} else {
			sections = append(sections, tableRowStyle.Render(row))
		}
	}

	sections = append(sections, statusStyle.Render("\n  enter: open run  j/k: navigate  r: refresh"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// truncate shortens s to n runes with an ellipsis
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
