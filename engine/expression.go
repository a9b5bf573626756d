package engine

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spektr-org/pivotgrid/schema"
)

// ============================================================================
// EXPRESSION FILTER — operator + term, plus optional static value list
// ============================================================================

// ErrInvalidFilter marks malformed filter expressions.
var ErrInvalidFilter = errors.New("invalid filter")

// Operator names accepted by ExpressionFilter.
const (
	OpEqual         = "="
	OpNotEqual      = "<>"
	OpGreater       = ">"
	OpGreaterEqual  = ">="
	OpLess          = "<"
	OpLessEqual     = "<="
	OpMatches       = "matches"
	OpNotMatches    = "not matches"
	OpContains      = "contains"
	OpNotContains   = "not contains"
	OpStartsWith    = "starts with"
	OpNotStartsWith = "not starts with"
	OpEndsWith      = "ends with"
	OpNotEndsWith   = "not ends with"
)

// operators lists every operator, longest first so ParseFilter prefers
// "not starts with" over "starts with" and ">=" over ">".
var operators = []string{
	OpNotStartsWith, OpNotEndsWith, OpNotContains, OpNotMatches,
	OpStartsWith, OpEndsWith, OpContains, OpMatches,
	OpGreaterEqual, OpLessEqual, OpNotEqual, "!=",
	OpEqual, OpGreater, OpLess,
}

// ExpressionFilter tests a value against Operator/Term and against the static
// Values list (allow-list, or deny-list when Exclude is set). Both parts must
// pass. Comparisons are numeric when both sides parse as numbers and
// case-insensitive otherwise.
type ExpressionFilter struct {
	Operator string
	Term     string
	Values   []string
	Exclude  bool

	re     *regexp.Regexp
	values map[string]bool
}

// NewExpressionFilter validates the operator (and the regexp for the
// matches operators) and returns a ready filter.
func NewExpressionFilter(operator, term string, values []string, exclude bool) (*ExpressionFilter, error) {
	op := strings.ToLower(strings.TrimSpace(operator))
	if op == "!=" {
		op = OpNotEqual
	}
	f := &ExpressionFilter{Operator: op, Term: term, Values: values, Exclude: exclude}
	switch op {
	case "", OpEqual, OpNotEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual,
		OpContains, OpNotContains, OpStartsWith, OpNotStartsWith, OpEndsWith, OpNotEndsWith:
	case OpMatches, OpNotMatches:
		re, err := regexp.Compile("(?i)" + term)
		if err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "filter pattern %q", term), ErrInvalidFilter)
		}
		f.re = re
	default:
		return nil, errors.Mark(errors.Newf("unknown filter operator %q", operator), ErrInvalidFilter)
	}
	if len(values) > 0 {
		f.values = toLowerSet(values)
	}
	return f, nil
}

// AlwaysTrue reports a filter with neither an operator nor a value list.
func (f *ExpressionFilter) AlwaysTrue() bool {
	return f.Operator == "" && len(f.Values) == 0
}

func (f *ExpressionFilter) Test(value string) bool {
	if len(f.Values) > 0 {
		if f.values == nil {
			f.values = toLowerSet(f.Values)
		}
		if f.values[strings.ToLower(value)] == f.Exclude {
			return false
		}
	}
	if f.Operator == "" {
		return true
	}
	return f.testOperator(value)
}

func (f *ExpressionFilter) testOperator(value string) bool {
	lv, lt := strings.ToLower(value), strings.ToLower(f.Term)
	switch f.Operator {
	case OpEqual:
		return equalValues(value, f.Term)
	case OpNotEqual:
		return !equalValues(value, f.Term)
	case OpGreater:
		return compareValues(value, f.Term) > 0
	case OpGreaterEqual:
		return compareValues(value, f.Term) >= 0
	case OpLess:
		return compareValues(value, f.Term) < 0
	case OpLessEqual:
		return compareValues(value, f.Term) <= 0
	case OpMatches, OpNotMatches:
		if f.re == nil {
			re, err := regexp.Compile("(?i)" + f.Term)
			if err != nil {
				return false
			}
			f.re = re
		}
		return f.re.MatchString(value) == (f.Operator == OpMatches)
	case OpContains:
		return strings.Contains(lv, lt)
	case OpNotContains:
		return !strings.Contains(lv, lt)
	case OpStartsWith:
		return strings.HasPrefix(lv, lt)
	case OpNotStartsWith:
		return !strings.HasPrefix(lv, lt)
	case OpEndsWith:
		return strings.HasSuffix(lv, lt)
	case OpNotEndsWith:
		return !strings.HasSuffix(lv, lt)
	}
	return false
}

func (f *ExpressionFilter) String() string {
	var b strings.Builder
	if f.Operator != "" {
		b.WriteString(f.Operator)
		b.WriteByte(' ')
		b.WriteString(strconv.Quote(f.Term))
	}
	if len(f.Values) > 0 {
		if b.Len() > 0 {
			b.WriteString(" and ")
		}
		if f.Exclude {
			b.WriteString("not ")
		}
		b.WriteString("in [" + strings.Join(f.Values, ", ") + "]")
	}
	if b.Len() == 0 {
		return "true"
	}
	return b.String()
}

// ============================================================================
// PARSING
// ============================================================================

// ParseFilter parses "field op term", e.g. "region <> west" or
// "product starts with a". The operator occurring first splits the
// expression, the longer one on a tie, so terms may contain operators.
// Quotes around the term are stripped.
func ParseFilter(expr string) (field string, f *ExpressionFilter, err error) {
	expr = strings.TrimSpace(expr)
	lower := strings.ToLower(expr)
	op, at := "", -1
	for _, cand := range operators {
		pos := indexOperator(lower, cand)
		if pos <= 0 {
			continue
		}
		if at < 0 || pos < at || (pos == at && len(cand) > len(op)) {
			op, at = cand, pos
		}
	}
	if at > 0 {
		field = strings.TrimSpace(expr[:at])
		term := unquote(strings.TrimSpace(expr[at+len(op):]))
		f, err = NewExpressionFilter(op, term, nil, false)
		return field, f, err
	}
	return "", nil, errors.Mark(errors.Newf("cannot parse filter %q: want \"field op term\"", expr), ErrInvalidFilter)
}

// indexOperator finds op in s. Word operators must stand between spaces.
func indexOperator(s, op string) int {
	if op[0] >= 'a' && op[0] <= 'z' {
		return strings.Index(s, " "+op+" ") + 1
	}
	return strings.Index(s, op)
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// FilterFromSpec compiles a declarative pre-filter of the layout.
func FilterFromSpec(spec schema.FilterSpec) (Filter, error) {
	f, err := NewExpressionFilter(spec.Operator, spec.Term, spec.Values, spec.Exclude)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// equalValues compares numerically when both sides are numbers and
// case-insensitively otherwise.
func equalValues(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		return fa == fb
	}
	return strings.EqualFold(a, b)
}

// ============================================================================
// VALUE ORDERING
// ============================================================================

// compareValues orders two field values: blank first, numbers numerically,
// everything else case-insensitively (ties broken by byte order).
func compareValues(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return -1
	case b == "":
		return 1
	}
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}
