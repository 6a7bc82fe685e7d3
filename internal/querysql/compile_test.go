package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ixengine/internal/queryir"
)

func TestCompile_SelectAllColumns(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Select{From: "frames"})
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT run_id, frame, time_ms, instances FROM frames ORDER BY run_id COLLATE BINARY ASC, frame ASC",
		sql)
	assert.Empty(t, params)
}

func TestCompile_PaintFilter(t *testing.T) {
	q := queryir.Select{
		From:   "paints",
		Fields: []string{"frame", "element", "op", "name", "value"},
		Filter: queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals{Field: "run_id", Value: "run-1"},
			queryir.Equals{Field: "name", Value: "opacity"},
			queryir.Compare{Field: "frame", Op: queryir.OpGreaterEqual, Value: 2},
		}},
		Limit: 10,
	}

	sql, params, err := NewSQLCompiler().Compile(q)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT frame, element, op, name, value FROM paints"+
			" WHERE run_id = ? AND name = ? AND frame >= ?"+
			" ORDER BY run_id COLLATE BINARY ASC, frame ASC, seq ASC LIMIT ?",
		sql)
	assert.Equal(t, []any{"run-1", "opacity", 2, 10}, params)
}

func TestCompile_ValuesNeverInterpolated(t *testing.T) {
	hostile := `x' OR 1=1; DROP TABLE paints; --`
	q := &queryir.Select{
		From:   "paints",
		Filter: &queryir.Equals{Field: "element", Value: hostile},
	}

	sql, params, err := NewSQLCompiler().Compile(q)
	require.NoError(t, err)
	assert.NotContains(t, sql, "DROP")
	assert.Equal(t, []any{hostile}, params)
}

func TestCompile_Prefix(t *testing.T) {
	q := queryir.Select{
		From:   "paints",
		Fields: []string{"element"},
		Filter: queryir.Prefix{Field: "element", Prefix: "div.héro_%"},
	}

	sql, params, err := NewSQLCompiler().Compile(q)
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE substr(element, 1, ?) = ?")
	assert.NotContains(t, sql, "LIKE")
	assert.Equal(t, []any{10, "div.héro_%"}, params, "length counts characters")
}

func TestCompile_EmptyPredicates(t *testing.T) {
	q := queryir.Select{
		From: "paints",
		Filter: queryir.And{Predicates: []queryir.Predicate{
			queryir.And{},
			queryir.Prefix{Field: "name"},
		}},
	}

	sql, params, err := NewSQLCompiler().Compile(q)
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE (1 = 1) AND 1 = 1")
	assert.Empty(t, params)
}

func TestCompile_AlwaysOrdered(t *testing.T) {
	for name := range queryir.Sources {
		t.Run(name, func(t *testing.T) {
			sql, _, err := NewSQLCompiler().Compile(queryir.Select{From: name})
			require.NoError(t, err)
			assert.Contains(t, sql, " ORDER BY run_id COLLATE BINARY ASC, frame ASC")
		})
	}
}

func TestCompile_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		query queryir.Query
		want  string
	}{
		{"nil", nil, "nil query"},
		{"unknown source", queryir.Select{From: "sqlite_master"}, `unknown source "sqlite_master"`},
		{"injected field", queryir.Select{From: "paints", Fields: []string{"1; DROP TABLE runs"}}, "has no column"},
		{
			"injected filter field",
			queryir.Select{From: "paints", Filter: queryir.Equals{Field: "name OR 1=1 --", Value: "x"}},
			"has no column",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := NewSQLCompiler().Compile(tt.query)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Empty(t, sql)
			assert.Nil(t, params)
		})
	}
}
