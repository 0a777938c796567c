package tui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"

	"lapfinder/internal/analysis"
	"lapfinder/internal/service"
)

// chromeHeight is the space reserved for header, nav and footer
const chromeHeight = 6

// ReportModel shows one analysis run in a scrollable viewport
type ReportModel struct {
	service  *service.AnalysisService
	runID    string
	result   *service.RunResult
	viewport viewport.Model
	loading  bool
	err      error
	ready    bool
}

// NewReportModel creates a report screen. A non-nil result is shown as is;
// otherwise runID is loaded from history, or the latest run when runID is empty.
func NewReportModel(svc *service.AnalysisService, runID string, result *service.RunResult, width, height int) ReportModel {
	m := ReportModel{
		service: svc,
		runID:   runID,
		result:  result,
		loading: result == nil,
	}
	if result != nil {
		m.runID = result.Run.ID
	}
	if width > 0 && height > 0 {
		m.viewport = viewport.New(width, height-chromeHeight)
		m.ready = true
		if result != nil {
			m.viewport.SetContent(renderReport(result))
		}
	}
	return m
}

// Init initializes the report screen
func (m ReportModel) Init() tea.Cmd {
	if !m.loading {
		return nil
	}
	return m.loadRun
}

type runLoadedMsg struct {
	result *service.RunResult
	err    error
}

func (m ReportModel) loadRun() tea.Msg {
	if m.service == nil {
		return runLoadedMsg{err: service.ErrNoStore}
	}
	if m.runID == "" {
		result, err := m.service.LatestRun()
		return runLoadedMsg{result: result, err: err}
	}
	result, err := m.service.RunDetail(m.runID)
	return runLoadedMsg{result: result, err: err}
}

// Update handles messages
func (m ReportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runLoadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.result != nil {
			m.result = msg.result
			m.runID = msg.result.Run.ID
		}
		if m.ready && m.result != nil {
			m.viewport.SetContent(renderReport(m.result))
		}

	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-chromeHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - chromeHeight
		}
		if m.result != nil {
			m.viewport.SetContent(renderReport(m.result))
		}

	case tea.KeyMsg:
		if msg.String() == "r" && m.runID != "" && m.service != nil {
			m.loading = true
			return m, m.loadRun
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the report screen
func (m ReportModel) View() string {
	if m.loading {
		return "\n  Loading run..."
	}
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}
	if m.result == nil {
		return "\n  No runs yet. Analyze a file with -save first."
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	footer := statusStyle.Render("  j/k or arrows: scroll  r: reload  2: history")
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), footer)
}

// RenderSummary renders the run summary and segment table without charts,
// for printing outside the interactive viewer
func RenderSummary(r *service.RunResult) string {
	return lipgloss.JoinVertical(lipgloss.Left, renderRunSummary(r), renderSegmentTable(r.Reports))
}

func renderReport(r *service.RunResult) string {
	sections := []string{renderRunSummary(r), renderSegmentTable(r.Reports)}
	if chart := renderLossChart(r.Reports); chart != "" {
		sections = append(sections, chart)
	}
	if chart := renderLapChart(r.Laps); chart != "" {
		sections = append(sections, chart)
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderRunSummary(r *service.RunResult) string {
	run := r.Run
	title := cardTitleStyle.Render(run.Source)

	lines := []string{"", title}
	if !run.CreatedAt.IsZero() {
		lines = append(lines, RenderMetric("Analyzed", humanize.Time(run.CreatedAt)))
	}
	lines = append(lines,
		RenderMetric("Laps", strconv.Itoa(run.LapCount)),
		RenderMetric("Samples", humanize.Comma(int64(run.SampleCount))),
		RenderMetric("Segments", strconv.Itoa(run.Segments)),
	)
	if run.BestLap != nil && run.BestLapTime != nil {
		lines = append(lines, RenderMetric("Best lap", fmt.Sprintf("%d (%s)", *run.BestLap, service.FormatLapTime(*run.BestLapTime))))
	}
	thresholds := fmt.Sprintf("brake %.2f  throttle %.2f", run.BrakeThreshold, run.ThrottleThreshold)
	if run.MaxDT != nil {
		thresholds += fmt.Sprintf("  max dt %.3fs", *run.MaxDT)
	}
	lines = append(lines, RenderMetric("Thresholds", thresholds), "")
	return strings.Join(lines, "\n")
}

// renderSegmentTable lists reports in rank order, highlighting the worst one
func renderSegmentTable(reports []analysis.SegmentReport) string {
	lines := []string{sectionStyle.Render("Segments by time loss")}
	if len(reports) == 0 {
		lines = append(lines, "  No segment data after cleaning.")
		return strings.Join(lines, "\n")
	}

	lines = append(lines, tableHeaderStyle.Render(fmt.Sprintf("%-4s %-5s %9s %7s %8s %8s %8s %8s  %s",
		"#", "Seg", "Loss", "Loss%", "Brake", "Entry", "Exit", "Delay", "Top cause")))

	for i, rep := range reports {
		row := fmt.Sprintf("%-4d %-5s %9s %7s %8s %8s %8s %8s  %s",
			i+1,
			rep.Segment,
			service.FormatLoss(rep.TimeLoss),
			service.FormatOptional("%.1f%%", rep.LossPercent),
			fmt.Sprintf("%.3f", rep.BrakeTimeLoss),
			fmt.Sprintf("%.3f", rep.EntryTimeLoss),
			fmt.Sprintf("%.3f", rep.ExitTimeLoss),
			fmt.Sprintf("%.3f", rep.ExitThrottleDelayLoss),
			rep.TopCause,
		)
		if i == 0 && rep.TimeLoss > 0 {
			lines = append(lines, worstRowStyle.Render(row))
		} else {
			lines = append(lines, tableRowStyle.Render(row))
		}
	}
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// renderLossChart plots time loss in track order
func renderLossChart(reports []analysis.SegmentReport) string {
	if len(reports) < 2 {
		return ""
	}
	ordered := make([]analysis.SegmentReport, len(reports))
	copy(ordered, reports)
	sort.SliceStable(ordered, func(i, j int) bool {
		return segmentNumber(ordered[i].Segment) < segmentNumber(ordered[j].Segment)
	})

	data := make([]float64, len(ordered))
	for i, rep := range ordered {
		data[i] = rep.TimeLoss
	}

	chart := asciigraph.Plot(data,
		asciigraph.Height(8),
		asciigraph.Width(50),
		asciigraph.Precision(3),
	)
	title := fmt.Sprintf("Time loss along the lap (%s to %s)", ordered[0].Segment, ordered[len(ordered)-1].Segment)
	return strings.Join([]string{sectionStyle.Render(title), chart, ""}, "\n")
}

// renderLapChart plots lap times in lap order
func renderLapChart(laps []analysis.LapTime) string {
	if len(laps) < 3 {
		return ""
	}
	data := make([]float64, len(laps))
	for i, lt := range laps {
		data[i] = lt.Time
	}
	chart := asciigraph.Plot(data,
		asciigraph.Height(8),
		asciigraph.Width(50),
	)
	return strings.Join([]string{sectionStyle.Render("Lap times (s)"), chart, ""}, "\n")
}

// segmentNumber parses "S3" as 3; unknown labels sort last
func segmentNumber(label string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(label, "S"))
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}
