// Package pivotgrid provides an in-memory pivot (cross-tabulation) engine.
//
// Usage:
//
//	import (
//	    "github.com/spektr-org/pivotgrid/engine"
//	    "github.com/spektr-org/pivotgrid/schema"
//	)
//
//	cfg, err := schema.LoadFile("sales.yaml")
//	grid, err := engine.New(cfg, engine.NewSliceView(records),
//	    engine.WithLogger(logger),
//	)
//	total, err := grid.Cell("sales", engine.RootID, engine.RootID, "")
//
// The grid filters the source, groups it into row and column hierarchies and
// aggregates every measure at every (row node, column node) pair, subtotals
// and grand totals included. Renderers read the matrix through the grid:
// tables (engine.BuildTable), charts (Grid.ChartData, engine.BuildChart) and
// Parquet export (helpers.WriteMatrixParquet).
//
// All computation is local and synchronous; the grid never calls an
// external service.
package pivotgrid
