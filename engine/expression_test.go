package engine

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spektr-org/pivotgrid/schema"
	"github.com/stretchr/testify/require"
)

func TestExpressionFilterOperators(t *testing.T) {
	tests := []struct {
		op, term string
		pass     []string
		fail     []string
	}{
		{"=", "East", []string{"east", "EAST"}, []string{"west", ""}},
		{"=", "10", []string{"10", "10.0"}, []string{"100"}},
		{"<>", "west", []string{"east", ""}, []string{"West"}},
		{"!=", "west", []string{"east"}, []string{"west"}},
		{">", "9", []string{"10", "100"}, []string{"9", "2", ""}},
		{">=", "b", []string{"b", "C"}, []string{"a"}},
		{"<", "10", []string{"9", ""}, []string{"10", "11"}},
		{"<=", "10", []string{"10", "-3"}, []string{"11"}},
		{"contains", "ST", []string{"east", "west"}, []string{"north"}},
		{"not contains", "st", []string{"north"}, []string{"east"}},
		{"starts with", "no", []string{"North"}, []string{"east"}},
		{"not starts with", "no", []string{"east"}, []string{"north"}},
		{"ends with", "TH", []string{"south"}, []string{"east"}},
		{"not ends with", "th", []string{"east"}, []string{"south"}},
		{"matches", "^(e|w)", []string{"East", "west"}, []string{"north"}},
		{"not matches", "^(e|w)", []string{"north"}, []string{"east"}},
	}
	for _, tt := range tests {
		t.Run(tt.op+" "+tt.term, func(t *testing.T) {
			f, err := NewExpressionFilter(tt.op, tt.term, nil, false)
			require.NoError(t, err)
			for _, v := range tt.pass {
				require.True(t, f.Test(v), "%q should pass", v)
			}
			for _, v := range tt.fail {
				require.False(t, f.Test(v), "%q should fail", v)
			}
		})
	}
}

func TestExpressionFilterValues(t *testing.T) {
	allow, err := NewExpressionFilter("", "", []string{"East", "west"}, false)
	require.NoError(t, err)
	require.True(t, allow.Test("east"))
	require.False(t, allow.Test("north"))

	deny, err := NewExpressionFilter("", "", []string{"east"}, true)
	require.NoError(t, err)
	require.False(t, deny.Test("EAST"))
	require.True(t, deny.Test("north"))

	// Both parts must pass.
	both, err := NewExpressionFilter("starts with", "e", []string{"east", "west"}, false)
	require.NoError(t, err)
	require.True(t, both.Test("east"))
	require.False(t, both.Test("west"))
	require.False(t, both.Test("eden"))
	require.Equal(t, `starts with "e" and in [east, west]`, both.String())

	open, err := NewExpressionFilter("", "", nil, false)
	require.NoError(t, err)
	require.True(t, open.AlwaysTrue())
	require.Equal(t, "true", open.String())
}

func TestExpressionFilterErrors(t *testing.T) {
	_, err := NewExpressionFilter("between", "1", nil, false)
	require.True(t, errors.Is(err, ErrInvalidFilter))

	_, err = NewExpressionFilter("matches", "([", nil, false)
	require.True(t, errors.Is(err, ErrInvalidFilter))

	f, err := FilterFromSpec(schema.FilterSpec{Operator: "matches", Term: "("})
	require.Error(t, err)
	require.Nil(t, f)
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		expr, field, op, term string
	}{
		{"region <> west", "region", "<>", "west"},
		{"region != west", "region", "<>", "west"},
		{"sales>=100", "sales", ">=", "100"},
		{"product not starts with 'ap'", "product", "not starts with", "ap"},
		{`product Starts With "Big Apple"`, "product", "starts with", "Big Apple"},
		{"year = 2024", "year", "=", "2024"},
		{"x = a>=b", "x", "=", "a>=b"},
		{"sales<=5", "sales", "<=", "5"},
		{"note contains a <> b", "note", "contains", "a <> b"},
		{"title not contains starts with", "title", "not contains", "starts with"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			field, f, err := ParseFilter(tt.expr)
			require.NoError(t, err)
			require.Equal(t, tt.field, field)
			require.Equal(t, tt.op, f.Operator)
			require.Equal(t, tt.term, f.Term)
		})
	}

	for _, bad := range []string{"region", "= west", ""} {
		_, _, err := ParseFilter(bad)
		require.True(t, errors.Is(err, ErrInvalidFilter), bad)
	}
}

func TestCompareValues(t *testing.T) {
	require.Negative(t, compareValues("", "a"))
	require.Positive(t, compareValues("a", ""))
	require.Negative(t, compareValues("9", "10"))
	require.Negative(t, compareValues("apple", "Banana"))
	require.Negative(t, compareValues("Apple", "apple"))
	require.Zero(t, compareValues("x", "x"))
}

func TestApplyFilters(t *testing.T) {
	view := salesView()
	require.Same(t, view, ApplyFilters(view, nil))
	require.Same(t, view, ApplyFilters(view, map[string]Filter{"region": NewValuesFilter()}))

	sub := ApplyFilters(view, map[string]Filter{
		"region": NewValuesFilter("east"),
		"year":   FilterFunc(func(v string) bool { return v == "2025" }),
	})
	require.Equal(t, 1, sub.Len())
	require.Equal(t, float64(5), sub.Measure(0, "sales"))
	require.Equal(t, 1, sub.(*SubView).SourceIndex(0))
}
