package helpers

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spektr-org/pivotgrid/engine"
	"github.com/spektr-org/pivotgrid/schema"
)

// ============================================================================
// CSV HELPER — Parses CSV data into []engine.Record
// ============================================================================
// Consumer reads the CSV from wherever it lives (file, S3, Sheets).
// This helper converts the raw bytes into generic Records using the layout's
// field list: numeric fields become measures, the rest dimensions.
// ============================================================================

// ParseCSV parses CSV bytes into Records. Columns whose key is not a field of
// cfg are skipped. Unparseable numbers are left out of the record's measures
// (they read as 0).
func ParseCSV(data []byte, cfg *schema.Config) ([]engine.Record, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))

	headers, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading CSV headers")
	}

	type colMapping struct {
		key     string
		mapped  bool
		numeric bool
	}
	mappings := make([]colMapping, len(headers))
	for i, h := range headers {
		key := schema.FieldKey(h)
		if f, ok := cfg.Field(key); ok {
			mappings[i] = colMapping{key: key, mapped: true, numeric: f.Numeric}
		}
	}

	var records []engine.Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // skip malformed rows
		}

		rec := engine.Record{
			Dimensions: make(map[string]string),
			Measures:   make(map[string]float64),
		}
		for i, val := range row {
			if i >= len(mappings) {
				break
			}
			m := mappings[i]
			if !m.mapped {
				continue
			}
			val = strings.TrimSpace(val)
			if !m.numeric {
				rec.Dimensions[m.key] = val
				continue
			}
			if f, ok := parseNumber(val); ok {
				rec.Measures[m.key] = f
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// ParseCSVAuto parses CSV without a layout: every cell that parses as a
// number is a measure, everything else a dimension. Returns the column keys.
func ParseCSVAuto(data []byte) ([]engine.Record, []string, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))

	headers, err := reader.Read()
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading CSV headers")
	}

	keys := make([]string, len(headers))
	for i, h := range headers {
		keys[i] = schema.FieldKey(h)
	}

	var records []engine.Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		rec := engine.Record{
			Dimensions: make(map[string]string),
			Measures:   make(map[string]float64),
		}
		for i, val := range row {
			if i >= len(keys) {
				break
			}
			val = strings.TrimSpace(val)
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				rec.Measures[keys[i]] = f
			} else {
				rec.Dimensions[keys[i]] = val
			}
		}
		records = append(records, rec)
	}
	return records, keys, nil
}

// ParseCSVView parses CSV into a RecordView (convenience wrapper).
func ParseCSVView(data []byte, cfg *schema.Config) (engine.RecordView, error) {
	records, err := ParseCSV(data, cfg)
	if err != nil {
		return nil, err
	}
	return engine.NewSliceView(records), nil
}

// parseNumber accepts "1,234.5" and a leading currency sign.
func parseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", "")
	for _, sign := range []string{"$", "€", "£"} {
		s = strings.TrimPrefix(s, sign)
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}
