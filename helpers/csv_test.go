package helpers

import (
	"testing"

	"github.com/spektr-org/pivotgrid/engine"
	"github.com/spektr-org/pivotgrid/schema"
	"github.com/stretchr/testify/require"
)

const salesCSV = `Region,Year,Sales,Notes
east,2024,"$1,000.50",first
east,2025,5,
west,2024,n/a,late
`

func salesLayout() *schema.Config {
	cfg := &schema.Config{
		Name: "sales",
		Fields: []schema.FieldMeta{
			{Name: "region"},
			{Name: "year"},
			{Name: "sales", Numeric: true, Aggregate: "sum"},
		},
		Rows: []string{"region"},
		Data: []schema.DataFieldMeta{{Name: "sales"}},
	}
	return cfg
}

func TestParseCSV(t *testing.T) {
	records, err := ParseCSV([]byte(salesCSV), salesLayout())
	require.NoError(t, err)
	require.Len(t, records, 3)

	require.Equal(t, map[string]string{"region": "east", "year": "2024"}, records[0].Dimensions)
	require.Equal(t, map[string]float64{"sales": 1000.5}, records[0].Measures)
	// "n/a" is not a number; the measure is left out and reads as 0.
	require.Empty(t, records[2].Measures)
	// Notes is not a field of the layout.
	_, ok := records[0].Dimensions["notes"]
	require.False(t, ok)

	_, err = ParseCSV(nil, salesLayout())
	require.Error(t, err)
}

func TestParseCSVView(t *testing.T) {
	view, err := ParseCSVView([]byte(salesCSV), salesLayout())
	require.NoError(t, err)

	g, err := engine.New(salesLayout(), view)
	require.NoError(t, err)
	v, err := g.Cell("sales", engine.RootID, engine.RootID, "")
	require.NoError(t, err)
	require.Equal(t, engine.Float(1005.5), v)
}

func TestParseCSVAuto(t *testing.T) {
	records, keys, err := ParseCSVAuto([]byte(salesCSV))
	require.NoError(t, err)
	require.Equal(t, []string{"region", "year", "sales", "notes"}, keys)
	require.Equal(t, float64(2024), records[0].Measures["year"])
	// Only plain numbers are measures here.
	require.Equal(t, "$1,000.50", records[0].Dimensions["sales"])
	require.Equal(t, float64(5), records[1].Measures["sales"])
}

func TestParseNumber(t *testing.T) {
	for in, want := range map[string]float64{"1,234.5": 1234.5, "€20": 20, "-3": -3, "£0.5": 0.5} {
		got, ok := parseNumber(in)
		require.True(t, ok, in)
		require.Equal(t, want, got, in)
	}
	_, ok := parseNumber("abc")
	require.False(t, ok)
}
