package valuation

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/jaehoon-lim/wonfolio/internal/models"
)

// RenderGrowthChart renders the retained snapshot history as a PNG line
// chart. Two series: portfolio value (blue solid) and cost basis (gray
// dashed). Returns raw PNG bytes; a copy is archived under charts/ so the
// day's render survives in the blob store.
func (s *Service) RenderGrowthChart(ctx context.Context, days int) ([]byte, error) {
	snaps, err := s.Snapshots(ctx, days)
	if err != nil {
		return nil, err
	}

	png, err := renderGrowthChart(snaps)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("growth-%s.png", s.now().Format("20060102"))
	if err := s.store.WriteRaw("charts", key, png); err != nil {
		s.logger.Warn().Err(err).Msg("Archiving growth chart failed")
	}

	return png, nil
}

func renderGrowthChart(snaps []models.DailySnapshot) ([]byte, error) {
	if len(snaps) < 2 {
		return nil, fmt.Errorf("need at least 2 snapshots, got %d", len(snaps))
	}

	xValues := make([]time.Time, 0, len(snaps))
	valueY := make([]float64, 0, len(snaps))
	costY := make([]float64, 0, len(snaps))

	for _, snap := range snaps {
		date, err := time.Parse("2006-01-02", snap.Date)
		if err != nil {
			continue
		}
		var value, cost float64
		for _, e := range snap.Entries {
			value += e.CurrentValue
			cost += e.PurchaseValue
		}
		xValues = append(xValues, date)
		valueY = append(valueY, value)
		costY = append(costY, cost)
	}

	if len(xValues) < 2 {
		return nil, fmt.Errorf("need at least 2 dated snapshots, got %d", len(xValues))
	}

	valueSeries := chart.TimeSeries{
		Name: "Portfolio Value",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: valueY,
	}

	costSeries := chart.TimeSeries{
		Name: "Cost Basis",
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("9ca3af"), // gray-400
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: xValues,
		YValues: costY,
	}

	graph := chart.Chart{
		Title:  "Portfolio Growth",
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 02")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0fM", f/1_000_000) // millions of won
				}
				return ""
			},
		},
		Series: []chart.Series{
			valueSeries,
			costSeries,
		},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}
