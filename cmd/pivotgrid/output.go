package main

import (
	"encoding/csv"
	"encoding/json"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/spektr-org/pivotgrid/engine"
	"github.com/spektr-org/pivotgrid/helpers"
)

// ============================================================================
// OUTPUT — table, CSV (Sheets-ready), JSON, chart JSON, Parquet
// ============================================================================

func writeGrid(w io.Writer, grid *engine.Grid, format string) error {
	switch format {
	case "table", "":
		return writeTable(w, engine.BuildTable(grid))
	case "csv":
		return writeCSV(w, engine.BuildTable(grid))
	case "json":
		return writeJSON(w, engine.BuildTable(grid))
	case "chart":
		data, err := grid.ChartData()
		if err != nil {
			return err
		}
		return writeJSON(w, engine.BuildChart(data, grid.Config().ChartMode))
	case "parquet":
		return helpers.WriteMatrixParquet(w, grid)
	}
	return errors.Newf("unknown output format %q", format)
}

func writeTable(w io.Writer, td *engine.TableData) error {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader(headerLabels(td))

	aligns := make([]int, len(td.Columns))
	for i, c := range td.Columns {
		aligns[i] = tablewriter.ALIGN_LEFT
		if c.Align == "right" {
			aligns[i] = tablewriter.ALIGN_RIGHT
		}
	}
	table.SetColumnAlignment(aligns)
	table.AppendBulk(td.Rows)
	table.Render()
	return nil
}

func writeCSV(w io.Writer, td *engine.TableData) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headerLabels(td)); err != nil {
		return err
	}
	if err := cw.WriteAll(td.Rows); err != nil {
		return err
	}
	return cw.Error()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "encoding JSON")
}

func headerLabels(td *engine.TableData) []string {
	labels := make([]string, len(td.Columns))
	for i, c := range td.Columns {
		labels[i] = c.Label
	}
	return labels
}
