package helpers

import (
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/cockroachdb/errors"
	"github.com/spektr-org/pivotgrid/engine"
)

// ============================================================================
// MATRIX EXPORT — long-format Parquet
// ============================================================================
// One output row per (row node, column node, data field). Paths are the
// group values joined with " - "; the grand total has depth 0 and an empty
// path. Null cells stay null.
// ============================================================================

// MatrixSchema is the Arrow schema of an exported matrix.
var MatrixSchema = arrow.NewSchema([]arrow.Field{
	{Name: "row", Type: arrow.BinaryTypes.String},
	{Name: "row_depth", Type: arrow.PrimitiveTypes.Int32},
	{Name: "column", Type: arrow.BinaryTypes.String},
	{Name: "column_depth", Type: arrow.PrimitiveTypes.Int32},
	{Name: "measure", Type: arrow.BinaryTypes.String},
	{Name: "value", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
}, nil)

// MatrixRecord builds the long-format record of g's matrix. The caller
// releases it.
func MatrixRecord(g *engine.Grid, mem memory.Allocator) arrow.Record {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	b := array.NewRecordBuilder(mem, MatrixSchema)
	defer b.Release()

	rowB := b.Field(0).(*array.StringBuilder)
	rowDepthB := b.Field(1).(*array.Int32Builder)
	colB := b.Field(2).(*array.StringBuilder)
	colDepthB := b.Field(3).(*array.Int32Builder)
	measureB := b.Field(4).(*array.StringBuilder)
	valueB := b.Field(5).(*array.Float64Builder)

	cfg := g.Config()
	m := g.Matrix()
	g.Rows().Walk(func(rn *engine.Node) {
		rowPath := strings.Join(g.Rows().Path(rn.ID), " - ")
		g.Columns().Walk(func(cn *engine.Node) {
			colPath := strings.Join(g.Columns().Path(cn.ID), " - ")
			cell, _ := m.Cell(rn.ID, cn.ID)
			for _, d := range cfg.Data {
				rowB.Append(rowPath)
				rowDepthB.Append(int32(rn.Depth))
				colB.Append(colPath)
				colDepthB.Append(int32(cn.Depth))
				measureB.Append(d.Name)
				if v := cell[d.Name]; v.Valid {
					valueB.Append(v.Float)
				} else {
					valueB.AppendNull()
				}
			}
		})
	})
	return b.NewRecord()
}

// WriteMatrixParquet writes g's matrix to w as Snappy-compressed Parquet.
func WriteMatrixParquet(w io.Writer, g *engine.Grid) error {
	rec := MatrixRecord(g, nil)
	defer rec.Release()

	table := array.NewTableFromRecords(MatrixSchema, []arrow.Record{rec})
	defer table.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(MatrixSchema, w, props, arrowProps)
	if err != nil {
		return errors.Wrap(err, "creating parquet writer")
	}
	if err := writer.WriteTable(table, max(table.NumRows(), 1)); err != nil {
		_ = writer.Close()
		return errors.Wrap(err, "writing matrix to parquet")
	}
	return errors.Wrap(writer.Close(), "closing parquet writer")
}
