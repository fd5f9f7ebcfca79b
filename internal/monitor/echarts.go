package monitor

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderHTML writes an interactive page with one chart per axis.
func (tp *TracePlotter) RenderHTML(w io.Writer) error {
	samples := tp.Samples()

	page := components.NewPage()
	page.SetPageTitle(fmt.Sprintf("Landmark trace %s", tp.Name()))

	for axis, name := range axisNames {
		raw := make([]opts.ScatterData, 0, len(samples))
		filtered := make([]opts.ScatterData, 0, len(samples))
		for _, s := range samples {
			if !math.IsNaN(s.Raw[axis]) {
				raw = append(raw, opts.ScatterData{Value: []interface{}{s.Frame, s.Raw[axis]}})
			}
			if !math.IsNaN(s.Filtered[axis]) {
				filtered = append(filtered, opts.ScatterData{Value: []interface{}{s.Frame, s.Filtered[axis]}})
			}
		}

		scatter := charts.NewScatter()
		scatter.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "400px"}),
			charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("%s %s", tp.Name(), name), Subtitle: fmt.Sprintf("frames=%d", len(samples))}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
			charts.WithXAxisOpts(opts.XAxis{Name: "Frame", NameLocation: "middle", NameGap: 25}),
			charts.WithYAxisOpts(opts.YAxis{Name: name, NameLocation: "middle", NameGap: 40}),
		)
		scatter.AddSeries("raw", raw, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
		scatter.AddSeries("filtered", filtered, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))
		page.AddCharts(scatter)
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render trace page: %w", err)
	}
	return nil
}
