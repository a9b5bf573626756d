package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spektr-org/pivotgrid/engine"
	"github.com/spektr-org/pivotgrid/schema"
	"github.com/spf13/cobra"
)

var flags struct {
	file    string
	config  string
	rows    []string
	cols    []string
	data    []string
	filters []string
	view    string
	format  string
	out     string
	verbose bool
	field   string
}

var rootCmd = &cobra.Command{
	Use:   "pivotgrid [command]",
	Short: "pivot tables over CSV, Parquet and Arrow files",
	Long: `
Groups a data file by row and column fields and aggregates its measures at
every combination, subtotals and grand totals included.
`,
	Version:      version,
	SilenceUsage: true,
}

var pivotCmd = &cobra.Command{
	Use:   "pivot --file <data> [--config <layout.yaml>]",
	Short: "computes and prints the pivot matrix",
	Long: `
Loads the data file and a layout (from --config, or auto-discovered), applies
--rows/--cols/--data/--filter overrides and prints the result.

Examples:
  pivotgrid pivot --file sales.csv --rows region --cols year --data sales:sum
  pivotgrid pivot --file sales.csv --rows region --filter "region <> west" --format json
  pivotgrid pivot --file sales.parquet --config layout.yaml --format parquet --out matrix.parquet
`,
	Args: cobra.NoArgs,
	RunE: runPivot,
}

var discoverCmd = &cobra.Command{
	Use:   "discover --file <data.csv>",
	Short: "prints an auto-discovered layout as YAML",
	Args:  cobra.NoArgs,
	RunE:  runDiscover,
}

var valuesCmd = &cobra.Command{
	Use:   "values --file <data> --field <name>",
	Short: "lists the distinct values of a field",
	Args:  cobra.NoArgs,
	RunE:  runValues,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.file, "file", "f", "", "data file (.csv, .parquet, .arrow)")
	pf.StringVarP(&flags.config, "config", "c", "", "layout YAML/JSON (default: auto-discover)")
	pf.StringVarP(&flags.out, "out", "o", "", "write output to file instead of stdout")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")

	f := pivotCmd.Flags()
	f.StringSliceVar(&flags.rows, "rows", nil, "row fields, outermost first")
	f.StringSliceVar(&flags.cols, "cols", nil, "column fields, outermost first")
	f.StringSliceVar(&flags.data, "data", nil, "measures as field[:aggregate]")
	f.StringArrayVar(&flags.filters, "filter", nil, `filter "field op term" (repeatable)`)
	f.StringVar(&flags.view, "view", "table", "view type: table, bar, stacked_bar, pie")
	f.StringVar(&flags.format, "format", "table", "output format: table, csv, json, chart, parquet")

	valuesCmd.Flags().StringVar(&flags.field, "field", "", "field to list")

	rootCmd.AddCommand(pivotCmd, discoverCmd, valuesCmd)
	cobra.OnInitialize(setupLogging)
}

func setupLogging() {
	level := slog.LevelInfo
	if flags.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// ============================================================================
// COMMANDS
// ============================================================================

func runPivot(cmd *cobra.Command, _ []string) error {
	src, err := loadSource(cmd.Context(), flags.file, flags.config)
	if err != nil {
		return err
	}
	defer src.release()

	cfg := src.cfg
	if err := applyLayoutFlags(cfg); err != nil {
		return err
	}

	grid, err := engine.New(cfg, src.view, engine.WithLogger(slog.Default()))
	if err != nil {
		return errors.Wrap(err, "building pivot")
	}
	for _, expr := range flags.filters {
		field, f, err := engine.ParseFilter(expr)
		if err != nil {
			return err
		}
		if err := grid.ApplyFilter(schema.FieldKey(field), f); err != nil {
			return err
		}
	}
	vt, err := parseViewType(flags.view)
	if err != nil {
		return err
	}
	if err := grid.SetViewType(vt); err != nil {
		return err
	}

	slog.Info("📊 pivot computed",
		"rows", grid.Source().Len(),
		"filtered", grid.FilteredView().Len(),
		"cells", grid.Matrix().Size())

	return withOutput(flags.out, func(w *os.File) error {
		return writeGrid(w, grid, flags.format)
	})
}

func runDiscover(_ *cobra.Command, _ []string) error {
	if flags.file == "" {
		return errors.New("--file is required")
	}
	data, err := os.ReadFile(flags.file)
	if err != nil {
		return errors.Wrapf(err, "reading %s", flags.file)
	}
	cfg, err := schema.DiscoverFromCSV(data)
	if err != nil {
		return err
	}
	slog.Info("🔍 auto-discovered layout",
		"fields", len(cfg.Fields),
		"measures", cfg.DataFieldsCount(),
		"skipped", len(cfg.SkippedColumns))
	out, err := cfg.Marshal()
	if err != nil {
		return err
	}
	return withOutput(flags.out, func(w *os.File) error {
		_, err := w.Write(out)
		return err
	})
}

func runValues(cmd *cobra.Command, _ []string) error {
	if flags.field == "" {
		return errors.New("--field is required")
	}
	src, err := loadSource(cmd.Context(), flags.file, flags.config)
	if err != nil {
		return err
	}
	defer src.release()

	grid, err := engine.New(src.cfg, src.view, engine.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	values, err := grid.FieldValues(schema.FieldKey(flags.field), nil)
	if err != nil {
		return err
	}
	return withOutput(flags.out, func(w *os.File) error {
		for _, v := range values {
			if v == "" {
				v = "(blank)"
			}
			if _, err := fmt.Fprintln(w, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// ============================================================================
// FLAG HELPERS
// ============================================================================

// applyLayoutFlags replaces the layout's axes with the ones given on the
// command line.
func applyLayoutFlags(cfg *schema.Config) error {
	if len(flags.rows) > 0 {
		cfg.Rows = keys(flags.rows)
	}
	if len(flags.cols) > 0 {
		cfg.Columns = keys(flags.cols)
	}
	if len(flags.data) > 0 {
		cfg.Data = nil
		for _, spec := range flags.data {
			name, agg, _ := strings.Cut(spec, ":")
			cfg.Data = append(cfg.Data, schema.DataFieldMeta{
				Name:      schema.FieldKey(name),
				Aggregate: strings.ToLower(strings.TrimSpace(agg)),
			})
		}
	}
	return cfg.Validate()
}

func keys(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = schema.FieldKey(n)
	}
	return out
}

func parseViewType(s string) (engine.ViewType, error) {
	switch strings.ToLower(s) {
	case "", "table", "tabular":
		return engine.ViewTabular, nil
	case "bar":
		return engine.ViewBarChart, nil
	case "stacked_bar", "stacked":
		return engine.ViewStackedBarChart, nil
	case "pie":
		return engine.ViewPieChart, nil
	}
	return 0, errors.Newf("unknown view type %q", s)
}

// withOutput runs fn against --out, or stdout.
func withOutput(path string, fn func(w *os.File) error) error {
	if path == "" {
		return fn(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	slog.Info("📄 output written", "path", path)
	return nil
}
