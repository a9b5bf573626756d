package schema

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/cockroachdb/errors"
)

// ============================================================================
// AUTO-DISCOVERY — heuristic field classification from CSV
// ============================================================================
// Inspects a CSV sample and produces a Config listing every usable column as
// a field. Numeric columns become measures (data fields) with a default
// aggregate; everything else is available for grouping. The caller decides
// which fields go on rows and columns.
//
// Classification per column:
//   1. Sample values → detect type (numeric, date, bool, string)
//   2. Type + cardinality → role (grouping, measure, skip)
//   3. Name hints → default aggregate (avg for rates/scores, sum otherwise)
// ============================================================================

// DiscoverOptions controls discovery behavior.
type DiscoverOptions struct {
	SampleSize     int      // Max rows to inspect (0 = all). Default: 1000
	RecoverColumns []string // Force-include columns that were auto-skipped
	Name           string   // Dataset name override
}

// DefaultDiscoverOptions returns sensible defaults.
func DefaultDiscoverOptions() DiscoverOptions {
	return DiscoverOptions{SampleSize: 1000}
}

// DiscoverFromCSV generates a Config by inspecting CSV data.
func DiscoverFromCSV(data []byte, opts ...DiscoverOptions) (*Config, error) {
	opt := DefaultDiscoverOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}

	reader := csv.NewReader(strings.NewReader(string(data)))
	headers, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading CSV headers")
	}
	if len(headers) == 0 {
		return nil, errors.New("CSV has no columns")
	}

	limit := opt.SampleSize
	if limit <= 0 {
		limit = 100000 // safety cap
	}
	var rows [][]string
	for len(rows) < limit {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // skip malformed rows
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, errors.New("CSV has no data rows")
	}

	recoverSet := make(map[string]bool)
	for _, col := range opt.RecoverColumns {
		recoverSet[strings.ToLower(col)] = true
		recoverSet[FieldKey(col)] = true
	}

	cfg := &Config{Name: opt.Name, DiscoveredFrom: "CSV"}
	if cfg.Name == "" {
		cfg.Name = "Auto-discovered Dataset"
	}

	for i, header := range headers {
		col := analyzeColumn(header, i, rows)
		if col.role == roleSkipped && (recoverSet[strings.ToLower(col.header)] || recoverSet[col.key]) {
			col.role = roleGrouping
		}
		switch col.role {
		case roleGrouping:
			cfg.Fields = append(cfg.Fields, FieldMeta{
				Name:    col.key,
				Caption: toDisplayName(col.header),
				Sort:    SortAsc,
			})
		case roleMeasure:
			agg := defaultAggregateFor(col.key)
			cfg.Fields = append(cfg.Fields, FieldMeta{
				Name:      col.key,
				Caption:   toDisplayName(col.header),
				Aggregate: agg,
				Sort:      SortAsc,
				Numeric:   true,
			})
			cfg.Data = append(cfg.Data, DataFieldMeta{
				Name:      col.key,
				Caption:   toDisplayName(col.header),
				Aggregate: agg,
			})
		case roleSkipped:
			cfg.SkippedColumns = append(cfg.SkippedColumns, SkippedColumn{
				Column: col.header,
				Reason: col.skipReason,
			})
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ============================================================================
// COLUMN ANALYSIS
// ============================================================================

type columnRole int

const (
	roleGrouping columnRole = iota
	roleMeasure
	roleSkipped
)

type columnType int

const (
	typeString columnType = iota
	typeNumeric
	typeDate
	typeBool
)

type columnAnalysis struct {
	header      string
	key         string
	colType     columnType
	role        columnRole
	skipReason  string
	uniqueCount int
	hasDecimals bool
}

func analyzeColumn(header string, index int, rows [][]string) columnAnalysis {
	col := columnAnalysis{header: header, key: FieldKey(header)}

	values := make([]string, 0, len(rows))
	unique := make(map[string]bool)
	for _, row := range rows {
		if index >= len(row) {
			continue
		}
		val := strings.TrimSpace(row[index])
		if isNullToken(val) {
			continue
		}
		values = append(values, val)
		unique[val] = true
	}
	col.uniqueCount = len(unique)

	if len(values) == 0 {
		col.role = roleSkipped
		col.skipReason = "All values are empty/null"
		return col
	}

	col.colType = detectType(values)
	if col.colType == typeNumeric {
		for _, v := range values {
			if strings.Contains(v, ".") {
				col.hasDecimals = true
				break
			}
		}
	}
	col.classifyRole(len(rows))
	return col
}

func (col *columnAnalysis) classifyRole(totalRows int) {
	switch col.colType {
	case typeNumeric:
		if col.uniqueCount == totalRows && totalRows > 10 && !col.hasDecimals {
			col.role = roleSkipped
			col.skipReason = "Unique per row — likely an ID column"
			return
		}
		if col.hasDecimals {
			col.role = roleMeasure
			return
		}
		// Few distinct integers relative to the row count → coded grouping field.
		uniqueRatio := float64(col.uniqueCount) / float64(totalRows)
		if col.uniqueCount < 20 && uniqueRatio < 0.3 {
			col.role = roleGrouping
			return
		}
		col.role = roleMeasure

	case typeDate, typeBool:
		col.role = roleGrouping

	default:
		if col.uniqueCount == totalRows && totalRows > 10 {
			col.role = roleSkipped
			col.skipReason = "Unique per row — likely an identifier"
			return
		}
		if col.uniqueCount > totalRows/2 && col.uniqueCount > 50 {
			col.role = roleSkipped
			col.skipReason = fmt.Sprintf("High cardinality (%d unique values) — not useful for grouping", col.uniqueCount)
			return
		}
		col.role = roleGrouping
	}
}

var averagedHints = []string{"rate", "ratio", "percent", "pct", "score", "avg", "average", "price", "points"}

// defaultAggregateFor picks avg for intensive quantities, sum otherwise.
func defaultAggregateFor(key string) string {
	for _, h := range averagedHints {
		if strings.Contains(key, h) {
			return "avg"
		}
	}
	return DefaultAggregate
}

// ============================================================================
// TYPE DETECTION
// ============================================================================

// typeMatchers are tried in priority order; the first type matched by at
// least 80% of the non-null values wins.
var typeMatchers = []struct {
	typ   columnType
	match func(string) bool
}{
	{typeBool, isBool},
	{typeDate, isDate},
	{typeNumeric, isNumeric},
}

func detectType(values []string) columnType {
	if len(values) == 0 {
		return typeString
	}
	need := int(float64(len(values)) * 0.8)
	if need == 0 {
		need = 1
	}
	for _, m := range typeMatchers {
		hits := 0
		for _, v := range values {
			if m.match(v) {
				hits++
			}
		}
		if hits >= need {
			return m.typ
		}
	}
	return typeString
}

func isNullToken(s string) bool {
	switch s {
	case "", "null", "NULL", "N/A", "n/a":
		return true
	}
	return false
}

// isNumeric accepts thousands separators and a leading currency symbol.
func isNumeric(s string) bool {
	s = strings.TrimLeft(strings.TrimSpace(s), "$€£")
	_, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	return err == nil
}

var dateFormats = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"Jan-2006",
	"January 2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

var quarterPattern = regexp.MustCompile(`^Q[1-4][-\s]\d{4}$`)

func isDate(s string) bool {
	s = strings.TrimSpace(s)
	if quarterPattern.MatchString(s) {
		return true
	}
	for _, layout := range dateFormats {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func isBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "false", "yes", "no":
		return true
	}
	return false
}

// ============================================================================
// STRING UTILITIES
// ============================================================================

// FieldKey converts a column header into a field name:
// "Column Name" or "columnName" → "column_name".
func FieldKey(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) && i > 0 {
			prev := rune(s[i-1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				b.WriteRune('_')
			}
		}
		b.WriteRune(r)
	}

	s = strings.ToLower(b.String())
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return strings.Trim(s, "_")
}

// toDisplayName cleans a header for display: "story_points" → "Story Points".
func toDisplayName(s string) string {
	if strings.Contains(s, " ") {
		return strings.TrimSpace(s)
	}
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")

	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
