package helpers

import (
	"context"
	"os"
	"sort"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/cockroachdb/errors"
	"github.com/spektr-org/pivotgrid/engine"
	"github.com/spektr-org/pivotgrid/schema"
)

// ============================================================================
// ARROW VIEW — RecordView over an Arrow table (zero-copy)
// ============================================================================
// Rows are addressed across chunks through per-column chunk offsets.
// Numeric columns are measures; every other column is a dimension. Any
// column can be read either way: dimensions of numeric columns are the
// formatted number, measures of text columns are parsed (0 when not a
// number). Null cells read as "" and 0.
// ============================================================================

type arrowColumn struct {
	chunks  []arrow.Array
	offsets []int // first row of each chunk
	numeric bool
}

// locate maps a table row to its chunk and the row within that chunk.
func (c *arrowColumn) locate(i int) (arrow.Array, int, bool) {
	k := sort.Search(len(c.offsets), func(k int) bool { return c.offsets[k] > i }) - 1
	if k < 0 {
		return nil, 0, false
	}
	j := i - c.offsets[k]
	if j >= c.chunks[k].Len() {
		return nil, 0, false
	}
	return c.chunks[k], j, true
}

var _ engine.RecordView = (*ArrowView)(nil)

// ArrowView reads an arrow.Table as an engine.RecordView.
type ArrowView struct {
	table   arrow.Table
	rows    int
	columns map[string]*arrowColumn
	dimKeys []string
	mesKeys []string
}

// NewArrowView wraps tbl. Column names are turned into field keys with
// schema.FieldKey. The view retains tbl until Release.
func NewArrowView(tbl arrow.Table) *ArrowView {
	tbl.Retain()
	v := &ArrowView{
		table:   tbl,
		rows:    int(tbl.NumRows()),
		columns: make(map[string]*arrowColumn, tbl.NumCols()),
	}
	for ci := 0; ci < int(tbl.NumCols()); ci++ {
		col := tbl.Column(ci)
		key := schema.FieldKey(col.Name())
		c := &arrowColumn{numeric: isNumericType(col.DataType())}
		row := 0
		for _, chunk := range col.Data().Chunks() {
			c.chunks = append(c.chunks, chunk)
			c.offsets = append(c.offsets, row)
			row += chunk.Len()
		}
		v.columns[key] = c
		if c.numeric {
			v.mesKeys = append(v.mesKeys, key)
		} else {
			v.dimKeys = append(v.dimKeys, key)
		}
	}
	return v
}

// Release drops the view's reference to the table.
func (v *ArrowView) Release() { v.table.Release() }

func (v *ArrowView) Len() int { return v.rows }

func (v *ArrowView) Dimension(i int, key string) string {
	c, ok := v.columns[key]
	if !ok {
		return ""
	}
	arr, j, ok := c.locate(i)
	if !ok || arr.IsNull(j) {
		return ""
	}
	switch a := arr.(type) {
	case *array.String:
		return a.Value(j)
	case *array.LargeString:
		return a.Value(j)
	case *array.Boolean:
		return strconv.FormatBool(a.Value(j))
	}
	if c.numeric {
		return strconv.FormatFloat(numericValue(arr, j), 'f', -1, 64)
	}
	return arr.ValueStr(j)
}

func (v *ArrowView) Measure(i int, key string) float64 {
	c, ok := v.columns[key]
	if !ok {
		return 0
	}
	arr, j, ok := c.locate(i)
	if !ok || arr.IsNull(j) {
		return 0
	}
	if c.numeric {
		return numericValue(arr, j)
	}
	f, _ := parseNumber(arr.ValueStr(j))
	return f
}

func (v *ArrowView) DimensionKeys() []string { return v.dimKeys }
func (v *ArrowView) MeasureKeys() []string   { return v.mesKeys }

func isNumericType(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT32, arrow.FLOAT64:
		return true
	}
	return false
}

func numericValue(arr arrow.Array, j int) float64 {
	switch a := arr.(type) {
	case *array.Int8:
		return float64(a.Value(j))
	case *array.Int16:
		return float64(a.Value(j))
	case *array.Int32:
		return float64(a.Value(j))
	case *array.Int64:
		return float64(a.Value(j))
	case *array.Uint8:
		return float64(a.Value(j))
	case *array.Uint16:
		return float64(a.Value(j))
	case *array.Uint32:
		return float64(a.Value(j))
	case *array.Uint64:
		return float64(a.Value(j))
	case *array.Float32:
		return float64(a.Value(j))
	case *array.Float64:
		return a.Value(j)
	}
	return 0
}

// ============================================================================
// LAYOUT FROM ARROW SCHEMA
// ============================================================================

// ConfigFromArrowSchema lists every column of sc as a field. Numeric columns
// are also measures summed by default. Rows and columns are left empty.
func ConfigFromArrowSchema(sc *arrow.Schema, name string) (*schema.Config, error) {
	cfg := &schema.Config{Name: name, DiscoveredFrom: "Arrow"}
	for _, f := range sc.Fields() {
		key := schema.FieldKey(f.Name)
		fm := schema.FieldMeta{Name: key, Caption: f.Name}
		if isNumericType(f.Type) {
			fm.Numeric = true
			fm.Aggregate = schema.DefaultAggregate
			cfg.Data = append(cfg.Data, schema.DataFieldMeta{Name: key, Caption: f.Name})
		}
		cfg.Fields = append(cfg.Fields, fm)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ============================================================================
// READERS
// ============================================================================

// ReadParquet loads a Parquet file into an Arrow table. The caller releases
// the table.
func ReadParquet(ctx context.Context, path string, mem memory.Allocator) (arrow.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening parquet file %s", path)
	}
	defer f.Close()

	pf, err := file.NewParquetReader(f, file.WithReadProps(&parquet.ReaderProperties{}))
	if err != nil {
		return nil, errors.Wrapf(err, "creating parquet reader for %s", path)
	}
	defer pf.Close()

	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	reader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, errors.Wrap(err, "creating arrow reader")
	}
	table, err := reader.ReadTable(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "reading parquet data from %s", path)
	}
	return table, nil
}

// ReadArrowIPC loads an Arrow IPC (Feather v2) file into an Arrow table.
// The caller releases the table.
func ReadArrowIPC(path string, mem memory.Allocator) (arrow.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening arrow file %s", path)
	}
	defer f.Close()

	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	r, err := ipc.NewFileReader(f, ipc.WithAllocator(mem))
	if err != nil {
		return nil, errors.Wrapf(err, "creating arrow IPC reader for %s", path)
	}
	defer r.Close()

	recs := make([]arrow.Record, 0, r.NumRecords())
	defer func() {
		for _, rec := range recs {
			rec.Release()
		}
	}()
	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		if err != nil {
			return nil, errors.Wrapf(err, "reading record batch %d of %s", i, path)
		}
		rec.Retain()
		recs = append(recs, rec)
	}
	return array.NewTableFromRecords(r.Schema(), recs), nil
}
