package chartjs

const TypePie = "pie"

// NewPieChart builds a single dataset pie chart. Labels, values and colors are
// expected to be index aligned.
func NewPieChart(title string, labels []string, values []float64, colors []string) Chart {
	if labels == nil {
		labels = []string{}
	}
	if values == nil {
		values = []float64{}
	}

	chart := Chart{
		Type: TypePie,
		Data: ChartData{
			Labels: labels,
			Datasets: []ChartDataset{
				{
					Data:            values,
					BackgroundColor: colors,
				},
			},
		},
		Options: ChartOptions{
			Responsive:          true,
			MaintainAspectRatio: true,
			Plugins: ChartPlugins{
				Legend: ChartLegend{Display: true, Position: "top"},
				Title:  ChartTitle{Display: false},
			},
		},
	}

	if title != "" {
		chart.Options.Plugins.Title = ChartTitle{Display: true, Text: title}
	}

	return chart
}
