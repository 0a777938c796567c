package httpapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"lapfinder/internal/analysis"
	"lapfinder/internal/httputil"
)

// echartsAssetsHost serves the echarts javascript
const echartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// causeStack groups the series whose largest member names the top cause
const causeStack = "cause"

// handleRunChart renders the loss breakdown of a stored run as a stacked bar chart
func (s *Server) handleRunChart(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.RunDetail(r.PathValue("id"))
	if err != nil {
		s.writeLookupError(w, err)
		return
	}

	subtitle := fmt.Sprintf("%s, %d laps, %d segments", result.Run.Source, result.Run.LapCount, result.Run.Segments)
	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsHost)
	page.AddCharts(lossChart(result.Reports, subtitle))

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// lossChart stacks the top-cause components (braking, exit, late throttle)
// per segment, with entry loss beside them and total time loss on top.
// Entry overlaps braking time so it never joins the stack.
func lossChart(reports []analysis.SegmentReport, subtitle string) *charts.Bar {
	x := make([]string, 0, len(reports))
	var brake, exit, delay, entry, total []opts.BarData
	for _, rep := range reports {
		x = append(x, rep.Segment)
		brake = append(brake, opts.BarData{Value: rep.BrakeTimeLoss})
		exit = append(exit, opts.BarData{Value: rep.ExitTimeLoss})
		delay = append(delay, opts.BarData{Value: rep.ExitThrottleDelayLoss})
		entry = append(entry, opts.BarData{Value: rep.EntryTimeLoss})
		total = append(total, opts.BarData{Value: rep.TimeLoss})
	}

	stacked := charts.WithBarChartOpts(opts.BarChart{Stack: causeStack})
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Segment time loss", Width: "100%", Height: "640px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Time loss by segment", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "seconds"}),
	)
	bar.SetXAxis(x).
		AddSeries(analysis.CauseBraking, brake, stacked).
		AddSeries(analysis.CauseCornerExit, exit, stacked).
		AddSeries(analysis.CauseLateThrottle, delay, stacked).
		AddSeries("entry", entry).
		AddSeries("time loss", total, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))
	return bar
}
