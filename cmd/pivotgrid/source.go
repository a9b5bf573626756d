package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/cockroachdb/errors"
	"github.com/spektr-org/pivotgrid/engine"
	"github.com/spektr-org/pivotgrid/helpers"
	"github.com/spektr-org/pivotgrid/schema"
)

// source is a loaded data file with its layout.
type source struct {
	view    engine.RecordView
	cfg     *schema.Config
	release func()
}

// loadSource reads path by extension. Without configPath the layout is
// discovered from the data.
func loadSource(ctx context.Context, path, configPath string) (*source, error) {
	if path == "" {
		return nil, errors.New("--file is required")
	}
	var cfg *schema.Config
	if configPath != "" {
		c, err := schema.LoadFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg = c
		slog.Info("📋 loaded layout", "name", cfg.Name, "fields", len(cfg.Fields), "measures", cfg.DataFieldsCount())
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return loadCSV(path, cfg)
	case ".parquet", ".pq":
		tbl, err := helpers.ReadParquet(ctx, path, nil)
		if err != nil {
			return nil, err
		}
		return arrowSource(tbl, path, cfg)
	case ".arrow", ".feather", ".ipc":
		tbl, err := helpers.ReadArrowIPC(path, nil)
		if err != nil {
			return nil, err
		}
		return arrowSource(tbl, path, cfg)
	default:
		return nil, errors.Newf("unsupported data file extension %q", ext)
	}
}

func loadCSV(path string, cfg *schema.Config) (*source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	if cfg == nil {
		cfg, err = schema.DiscoverFromCSV(data, schema.DiscoverOptions{
			SampleSize: 1000,
			Name:       strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		})
		if err != nil {
			return nil, err
		}
		slog.Info("🔍 auto-discovered layout", "fields", len(cfg.Fields), "measures", cfg.DataFieldsCount())
	}
	records, err := helpers.ParseCSV(data, cfg)
	if err != nil {
		return nil, err
	}
	slog.Debug("parsed CSV", "records", len(records))
	return &source{view: engine.NewSliceView(records), cfg: cfg, release: func() {}}, nil
}

func arrowSource(tbl arrow.Table, path string, cfg *schema.Config) (*source, error) {
	defer tbl.Release()
	if cfg == nil {
		var err error
		cfg, err = helpers.ConfigFromArrowSchema(tbl.Schema(), filepath.Base(path))
		if err != nil {
			return nil, err
		}
	}
	view := helpers.NewArrowView(tbl)
	slog.Debug("loaded arrow table", "rows", view.Len(), "columns", tbl.NumCols())
	return &source{view: view, cfg: cfg, release: view.Release}, nil
}
