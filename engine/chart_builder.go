package engine

import (
	"math"
	"strings"

	"github.com/spektr-org/pivotgrid/schema"
)

// ============================================================================
// CHART BUILDER — chart projection of the matrix + ChartConfig
// ============================================================================
// The projection slices the row grand total by column leaf: one category per
// column leaf, one series per data field. Row fields, when present, become
// secondary series aggregated with their own default aggregate.
// ============================================================================

// Default color palette for chart series.
var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// totalLabel names the only category of a chart with no column fields.
const totalLabel = "Total"

// ChartData returns the chart-shaped projection of the current matrix.
func (g *Grid) ChartData() (*ChartData, error) {
	colFields := g.cfg.ColumnFields()
	captions := make([]string, len(colFields))
	for i, f := range colFields {
		captions[i] = f.Caption
	}

	leaves := g.cols.Leaves()
	names := make([]string, len(leaves))
	for i, l := range leaves {
		names[i] = l.Name
		if l.Name == "" && l.ID == RootID {
			names[i] = totalLabel
		}
	}

	data := &ChartData{
		HAxisLabel:      strings.Join(captions, " - "),
		ColNames:        names,
		PrimaryValues:   []string{},
		SecondaryValues: []string{},
		StackedBars:     g.cfg.ChartMode.StackedBars,
	}

	for _, d := range g.cfg.Data {
		s, err := g.chartSeries(d.Name, d.Label(), leaves)
		if err != nil {
			return nil, err
		}
		data.PrimaryValues = append(data.PrimaryValues, s.Name)
		data.Series = append(data.Series, s)
	}
	for _, f := range g.cfg.RowFields() {
		label := f.Caption
		if f.Aggregate != "" {
			label = f.Aggregate + "(" + f.Caption + ")"
		}
		s, err := g.chartSeries(f.Name, label, leaves)
		if err != nil {
			return nil, err
		}
		s.Secondary = true
		data.SecondaryValues = append(data.SecondaryValues, s.Name)
		data.Series = append(data.Series, s)
	}
	return data, nil
}

func (g *Grid) chartSeries(field, label string, leaves []Leaf) (ChartValues, error) {
	s := ChartValues{Name: label, Values: make([]Value, len(leaves))}
	for i, l := range leaves {
		v, err := g.Cell(field, RootID, l.ID, "")
		if err != nil {
			return ChartValues{}, err
		}
		s.Values[i] = v
	}
	return s, nil
}

// BuildChart produces a ChartConfig from a chart projection.
func BuildChart(data *ChartData, mode schema.ChartMode) *ChartConfig {
	if data == nil || len(data.Series) == 0 {
		return nil
	}

	chartType := mode.Type
	if chartType == "" {
		chartType = "bar"
	}

	config := &ChartConfig{
		ChartType:     chartType,
		Title:         chartTitle(data),
		XAxis:         data.HAxisLabel,
		ShowLegend:    true,
		ShowGrid:      chartType != "pie",
		SecondaryType: mode.SecondaryType,
	}
	if len(data.PrimaryValues) == 1 {
		config.YAxis = data.PrimaryValues[0]
	}

	config.Series = make([]ChartSeries, 0, len(data.Series))
	for i, s := range data.Series {
		points := make([]ChartPoint, len(data.ColNames))
		for j, name := range data.ColNames {
			p := ChartPoint{Label: name}
			if j < len(s.Values) && s.Values[j].Valid {
				p.Value = roundTo2(s.Values[j].Float)
			} else {
				p.Null = true
			}
			points[j] = p
		}
		config.Series = append(config.Series, ChartSeries{
			Name:      s.Name,
			Data:      points,
			Color:     defaultColors[i%len(defaultColors)],
			Secondary: s.Secondary,
		})
	}

	if chartType == "bar" && data.StackedBars && len(data.PrimaryValues) > 1 {
		config.Groups = [][]string{append([]string(nil), data.PrimaryValues...)}
	}

	config.Colors = assignColors(len(config.Series))
	return config
}

func chartTitle(data *ChartData) string {
	title := strings.Join(data.PrimaryValues, ", ")
	if data.HAxisLabel != "" {
		if title == "" {
			return data.HAxisLabel
		}
		title += " by " + data.HAxisLabel
	}
	return title
}

func assignColors(count int) []string {
	colors := make([]string, count)
	for i := 0; i < count; i++ {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	return colors
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
