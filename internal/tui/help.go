package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lapfinder/internal/analysis"
)

// HelpModel is the help screen model
type HelpModel struct{}

// NewHelpModel creates a new help model
func NewHelpModel() HelpModel {
	return HelpModel{}
}

// Init initializes the help screen
func (m HelpModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m HelpModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

// View renders the help screen
func (m HelpModel) View() string {
	sections := []string{
		cardTitleStyle.Render("Keyboard Shortcuts"),
		m.renderSection("Navigation", []keyHelp{
			{"1", "Report"},
			{"2", "Run history"},
			{"?", "Help (this screen)"},
			{"q", "Quit"},
			{"esc", "Back / close help"},
		}),
		m.renderSection("Report", []keyHelp{
			{"j/k or arrows", "Scroll"},
			{"r", "Reload run"},
		}),
		m.renderSection("Run History", []keyHelp{
			{"j / down", "Move cursor down"},
			{"k / up", "Move cursor up"},
			{"enter", "Open run"},
			{"r", "Refresh list"},
		}),
		m.renderCauses(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

type keyHelp struct {
	key  string
	desc string
}

func (m HelpModel) renderSection(title string, keys []keyHelp) string {
	lines := []string{"", sectionStyle.Render(title)}
	for _, k := range keys {
		lines = append(lines, "  "+RenderKeyHelp(k.key, k.desc))
	}
	return strings.Join(lines, "\n")
}

func (m HelpModel) renderCauses() string {
	lines := []string{"", sectionStyle.Render("Loss Breakdown"), ""}

	causes := []struct {
		name string
		desc string
	}{
		{"time loss", "Average segment time minus the fastest lap's segment time."},
		{analysis.CauseBraking, "Extra time spent on the brake versus the fastest lap."},
		{analysis.CauseCornerExit, "Extra time from the first throttle application to segment end."},
		{analysis.CauseLateThrottle, "Extra time between the apex and getting back on throttle."},
		{"entry", "Extra time from segment start to the apex (slowest point)."},
	}

	for _, c := range causes {
		lines = append(lines, "  "+helpKeyStyle.Render(c.name))
		lines = append(lines, "  "+helpDescStyle.Render(c.desc))
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
