package chartview

import (
	"strings"

	"github.com/icodeforyou/doctypes-dashboard/doctypes"
	"github.com/icodeforyou/doctypes-dashboard/slice"
	"github.com/icodeforyou/doctypes-dashboard/www/chartjs"
)

// Palette is assigned to categories in display order, starting over from the
// first color when there are more categories than colors.
var Palette = []string{
	"#FF6384",
	"#36A2EB",
	"#FFCE56",
	"#4BC0C0",
	"#9966FF",
	"#FF9F40",
}

// Series holds index aligned labels, counts and colors.
type Series struct {
	Labels []string
	Counts []int
	Colors []string
}

func NewSeries(records []doctypes.Record) Series {
	return Series{
		Labels: slice.Map(records, func(r doctypes.Record) string { return strings.TrimSpace(r.DocTypePredicted) }),
		Counts: slice.Map(records, func(r doctypes.Record) int { return r.Count }),
		Colors: PaletteColors(len(records)),
	}
}

// PaletteColors returns n colors taken cyclically from Palette.
func PaletteColors(n int) []string {
	colors := make([]string, n)
	for i := range colors {
		colors[i] = Palette[i%len(Palette)]
	}
	return colors
}

func (s Series) Len() int {
	return len(s.Labels)
}

func (s Series) Total() int {
	total := 0
	for _, c := range s.Counts {
		total += c
	}
	return total
}

func (s Series) Chart(title string) chartjs.Chart {
	values := slice.Map(s.Counts, func(c int) float64 { return float64(c) })
	return chartjs.NewPieChart(title, s.Labels, values, s.Colors)
}
