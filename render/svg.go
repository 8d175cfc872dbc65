package render

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/icodeforyou/doctypes-dashboard/chartview"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNothingToDraw is returned for a series without any positive count,
// a pie chart of it has no slices.
var ErrNothingToDraw = errors.New("nothing to draw")

func PieChart(series chartview.Series, title string, width, height int) (chart.PieChart, error) {
	if series.Len() == 0 || series.Total() <= 0 {
		return chart.PieChart{}, ErrNothingToDraw
	}

	vals := make([]chart.Value, 0, series.Len())
	for i, label := range series.Labels {
		vals = append(vals, chart.Value{
			Label: label,
			Value: float64(series.Counts[i]),
			Style: chart.Style{
				FillColor:   drawing.ColorFromHex(strings.TrimPrefix(series.Colors[i], "#")),
				StrokeColor: drawing.ColorWhite,
				StrokeWidth: 1,
			},
		})
	}

	return chart.PieChart{
		Title:  title,
		Width:  width,
		Height: height,
		Values: vals,
	}, nil
}

// PieSVG writes the series as an SVG pie chart.
func PieSVG(w io.Writer, series chartview.Series, title string, width, height int) error {
	pie, err := PieChart(series, title, width, height)
	if err != nil {
		return err
	}
	if err := pie.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("rendering pie chart: %w", err)
	}
	return nil
}
