// Package tui is the terminal viewer for analysis runs.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lapfinder/internal/service"
)

// Screen identifiers
type Screen int

const (
	ScreenReport Screen = iota
	ScreenHistory
	ScreenHelp
)

// App is the root Bubble Tea model
type App struct {
	screen     Screen
	prevScreen Screen

	// Screen models
	report  ReportModel
	history HistoryModel
	help    HelpModel

	service *service.AnalysisService

	// Window dimensions
	width  int
	height int
}

// NewApp creates the viewer. With a non-nil result the report screen shows
// it directly; otherwise runID (or the latest run) is loaded from history.
func NewApp(svc *service.AnalysisService, runID string, result *service.RunResult) *App {
	return &App{
		screen:  ScreenReport,
		service: svc,
		report:  NewReportModel(svc, runID, result, 0, 0),
		history: NewHistoryModel(svc),
		help:    NewHelpModel(),
	}
}

// Init initializes the app
func (a *App) Init() tea.Cmd {
	return a.report.Init()
}

// Update handles messages
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return a, tea.Quit
		case "1":
			a.screen = ScreenReport
			return a, nil
		case "2":
			a.screen = ScreenHistory
			return a, a.history.Init()
		case "?":
			if a.screen != ScreenHelp {
				a.prevScreen = a.screen
				a.screen = ScreenHelp
			}
			return a, nil
		case "esc":
			if a.screen == ScreenHelp {
				a.screen = a.prevScreen
				return a, nil
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// The report keeps its viewport sized even while hidden
		m, cmd := a.report.Update(msg)
		a.report = m.(ReportModel)
		return a, cmd

	case OpenRunMsg:
		a.screen = ScreenReport
		a.report = NewReportModel(a.service, msg.RunID, nil, a.width, a.height)
		return a, a.report.Init()
	}

	// Delegate to current screen
	var cmd tea.Cmd
	switch a.screen {
	case ScreenReport:
		var m tea.Model
		m, cmd = a.report.Update(msg)
		a.report = m.(ReportModel)
	case ScreenHistory:
		var m tea.Model
		m, cmd = a.history.Update(msg)
		a.history = m.(HistoryModel)
	case ScreenHelp:
		var m tea.Model
		m, cmd = a.help.Update(msg)
		a.help = m.(HelpModel)
	}

	return a, cmd
}

// View renders the app
func (a *App) View() string {
	var content string
	switch a.screen {
	case ScreenReport:
		content = a.report.View()
	case ScreenHistory:
		content = a.history.View()
	case ScreenHelp:
		content = a.help.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, a.renderHeader(), a.renderNav(), content)
}

func (a *App) renderHeader() string {
	return headerStyle.Render("Lapfinder: Lap-Time Bottleneck Analyzer")
}

func (a *App) renderNav() string {
	items := []struct {
		key    string
		label  string
		screen Screen
	}{
		{"1", "Report", ScreenReport},
		{"2", "History", ScreenHistory},
		{"?", "Help", ScreenHelp},
	}

	var nav string
	for i, item := range items {
		if i > 0 {
			nav += "  "
		}
		label := "[" + item.key + "] " + item.label
		if a.screen == item.screen {
			nav += navActiveStyle.Render(label)
		} else {
			nav += navInactiveStyle.Render(label)
		}
	}
	nav += "  " + navInactiveStyle.Render("[q] Quit")

	return navStyle.Render(nav)
}

// Run starts the viewer in the alternate screen
func Run(svc *service.AnalysisService, runID string, result *service.RunResult) error {
	p := tea.NewProgram(NewApp(svc, runID, result), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
