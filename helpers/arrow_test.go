package helpers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/spektr-org/pivotgrid/engine"
	"github.com/stretchr/testify/require"
)

var salesArrowSchema = arrow.NewSchema([]arrow.Field{
	{Name: "Region", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "Sales", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "Qty", Type: arrow.PrimitiveTypes.Int64},
}, nil)

// salesBatch builds one record batch; a nil region is a null cell.
func salesBatch(mem memory.Allocator, regions []*string, sales []float64, qty []int64) arrow.Record {
	b := array.NewRecordBuilder(mem, salesArrowSchema)
	defer b.Release()
	for i, r := range regions {
		if r == nil {
			b.Field(0).(*array.StringBuilder).AppendNull()
		} else {
			b.Field(0).(*array.StringBuilder).Append(*r)
		}
		b.Field(1).(*array.Float64Builder).Append(sales[i])
		b.Field(2).(*array.Int64Builder).Append(qty[i])
	}
	return b.NewRecord()
}

func str(s string) *string { return &s }

// salesTable spreads four rows over two chunks.
func salesTable(t *testing.T, mem memory.Allocator) arrow.Table {
	r1 := salesBatch(mem, []*string{str("east"), str("west")}, []float64{10, 7}, []int64{1, 3})
	defer r1.Release()
	r2 := salesBatch(mem, []*string{str("east"), nil}, []float64{5, 4}, []int64{2, 8})
	defer r2.Release()
	tbl := array.NewTableFromRecords(salesArrowSchema, []arrow.Record{r1, r2})
	require.EqualValues(t, 4, tbl.NumRows())
	return tbl
}

func TestArrowView(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	tbl := salesTable(t, mem)
	view := NewArrowView(tbl)
	tbl.Release()
	defer view.Release()

	require.Equal(t, 4, view.Len())
	require.Equal(t, []string{"region"}, view.DimensionKeys())
	require.Equal(t, []string{"sales", "qty"}, view.MeasureKeys())

	require.Equal(t, "west", view.Dimension(1, "region"))
	require.Equal(t, "east", view.Dimension(2, "region"))
	require.Equal(t, "", view.Dimension(3, "region"))
	require.Equal(t, float64(5), view.Measure(2, "sales"))
	require.Equal(t, float64(8), view.Measure(3, "qty"))
	require.Equal(t, "8", view.Dimension(3, "qty"))
	require.Equal(t, float64(0), view.Measure(0, "missing"))
	require.Equal(t, "", view.Dimension(99, "region"))
}

func TestArrowViewPivot(t *testing.T) {
	tbl := salesTable(t, memory.NewGoAllocator())
	defer tbl.Release()
	view := NewArrowView(tbl)
	defer view.Release()

	cfg, err := ConfigFromArrowSchema(tbl.Schema(), "sales")
	require.NoError(t, err)
	require.Equal(t, "Arrow", cfg.DiscoveredFrom)
	require.Equal(t, 2, cfg.DataFieldsCount())
	cfg.Rows = []string{"region"}

	g, err := engine.New(cfg, view)
	require.NoError(t, err)
	require.Equal(t, []string{"", "east", "west"}, g.Rows().Root().Values())

	east, _ := g.Rows().Root().Child("east")
	v, err := g.Cell("sales", east, engine.RootID, "")
	require.NoError(t, err)
	require.Equal(t, engine.Float(15), v)
	v, err = g.Cell("qty", engine.RootID, engine.RootID, "")
	require.NoError(t, err)
	require.Equal(t, engine.Float(14), v)
}

func TestMatrixParquetRoundTrip(t *testing.T) {
	tbl := salesTable(t, memory.NewGoAllocator())
	defer tbl.Release()
	view := NewArrowView(tbl)
	defer view.Release()

	cfg, err := ConfigFromArrowSchema(tbl.Schema(), "sales")
	require.NoError(t, err)
	cfg.Rows = []string{"region"}
	g, err := engine.New(cfg, view)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "matrix.parquet")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteMatrixParquet(f, g))
	require.NoError(t, f.Close())

	out, err := ReadParquet(context.Background(), path, nil)
	require.NoError(t, err)
	defer out.Release()

	// (root + 3 groups) x 1 column node x 2 measures.
	require.EqualValues(t, 8, out.NumRows())
	names := make([]string, 0, out.NumCols())
	for _, f := range out.Schema().Fields() {
		names = append(names, f.Name)
	}
	require.Equal(t, []string{"row", "row_depth", "column", "column_depth", "measure", "value"}, names)

	// The export pivots like any other table.
	exported := NewArrowView(out)
	defer exported.Release()
	total := 0.0
	for i := 0; i < exported.Len(); i++ {
		if exported.Dimension(i, "row_depth") == "0" && exported.Dimension(i, "measure") == "sales" {
			total += exported.Measure(i, "value")
		}
	}
	require.Equal(t, float64(26), total)
}

func TestMatrixRecordNulls(t *testing.T) {
	view := engine.NewSliceView([]engine.Record{
		{Dimensions: map[string]string{"region": "east", "year": "2024"}, Measures: map[string]float64{"sales": 1}},
		{Dimensions: map[string]string{"region": "west", "year": "2025"}, Measures: map[string]float64{"sales": 2}},
	})
	cfg := salesLayout()
	cfg.Columns = []string{"year"}
	g, err := engine.New(cfg, view)
	require.NoError(t, err)

	rec := MatrixRecord(g, nil)
	defer rec.Release()
	// 3 row nodes x 3 column nodes x 1 measure; east/2025 and west/2024 are empty.
	require.EqualValues(t, 9, rec.NumRows())
	require.Equal(t, 2, rec.Column(5).NullN())
}

func TestReadArrowIPC(t *testing.T) {
	mem := memory.NewGoAllocator()
	rec := salesBatch(mem, []*string{str("east"), str("west")}, []float64{10, 7}, []int64{1, 3})
	defer rec.Release()

	path := filepath.Join(t.TempDir(), "sales.arrow")
	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := ipc.NewFileWriter(f, ipc.WithSchema(salesArrowSchema), ipc.WithAllocator(mem))
	require.NoError(t, err)
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	tbl, err := ReadArrowIPC(path, mem)
	require.NoError(t, err)
	defer tbl.Release()
	require.EqualValues(t, 2, tbl.NumRows())

	_, err = ReadArrowIPC(filepath.Join(t.TempDir(), "missing.arrow"), mem)
	require.Error(t, err)
	_, err = ReadParquet(context.Background(), filepath.Join(t.TempDir(), "missing.parquet"), mem)
	require.Error(t, err)
}
