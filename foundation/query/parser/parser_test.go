package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mdwlog "github.com/msto63/ecsq/foundation/core/log"
	mdwast "github.com/msto63/ecsq/foundation/query/ast"
)

func TestParse_Select(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantKind   mdwast.PredicateKind
		wantNames  []string
		wantNoPred bool
	}{
		{"no where", "SELECT ENTITIES", 0, nil, true},
		{"lowercase keywords", "select entities where has(Position)", mdwast.PredicateHas, []string{"Position"}, false},
		{"has two", "SELECT entities WHERE HAS(Position, Health)", mdwast.PredicateHas, []string{"Position", "Health"}, false},
		{"has_any", "SELECT ENTITIES WHERE HAS_ANY(Sprite,Health)", mdwast.PredicateHasAny, []string{"Sprite", "Health"}, false},
		{"not_has", "SELECT ENTITIES WHERE NOT_HAS(Health)", mdwast.PredicateNotHas, []string{"Health"}, false},
		{"duplicates kept", "SELECT ENTITIES WHERE HAS(A, A)", mdwast.PredicateHas, []string{"A", "A"}, false},
		{"extra whitespace", "  SELECT\n\tENTITIES   WHERE  HAS (  Position  )  ", mdwast.PredicateHas, []string{"Position"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := Parse(tt.input)
			require.NoError(t, err)

			sel, ok := stmt.(*mdwast.SelectStatement)
			require.True(t, ok, "expected *SelectStatement, got %T", stmt)

			if tt.wantNoPred {
				assert.Nil(t, sel.Where)
				return
			}
			require.NotNil(t, sel.Where)
			assert.Equal(t, tt.wantKind, sel.Where.Kind)
			assert.Equal(t, tt.wantNames, sel.Where.Components)
		})
	}
}

func TestParse_Count(t *testing.T) {
	stmt, err := Parse("COUNT ENTITIES WHERE HAS_ANY(Position, Sprite)")
	require.NoError(t, err)

	cnt, ok := stmt.(*mdwast.CountStatement)
	require.True(t, ok)
	require.NotNil(t, cnt.Where)
	assert.Equal(t, mdwast.PredicateHasAny, cnt.Where.Kind)
	assert.Equal(t, []string{"Position", "Sprite"}, cnt.Where.Components)
	assert.Equal(t, mdwast.StatementCount, stmt.Kind())

	stmt, err = Parse("count entities")
	require.NoError(t, err)
	assert.Nil(t, mdwast.PredicateOf(stmt))
}

func TestParse_Show(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		all       bool
		component string
		high      uint64
		low       uint64
	}{
		{"named", "SHOW Position OF ENTITY 0:1", false, "Position", 0, 1},
		{"all", "SHOW ALL OF ENTITY 12:34", true, "", 12, 34},
		{"lowercase all", "show all of entity 5:6", true, "", 5, 6},
		{"space after entity", "SHOW Health OF ENTITY    7:8   ", false, "Health", 7, 8},
		{"max ids", "SHOW ALL OF ENTITY 18446744073709551615:18446744073709551615", true, "", 18446744073709551615, 18446744073709551615},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := Parse(tt.input)
			require.NoError(t, err)

			show, ok := stmt.(*mdwast.ShowStatement)
			require.True(t, ok)
			assert.Equal(t, tt.all, show.Target.All)
			assert.Equal(t, tt.component, show.Target.Component)
			assert.Equal(t, tt.high, show.Entity.High)
			assert.Equal(t, tt.low, show.Entity.Low)
		})
	}
}

func TestParse_Positions(t *testing.T) {
	stmt, err := Parse("SELECT ENTITIES WHERE HAS(Position)")
	require.NoError(t, err)

	sel := stmt.(*mdwast.SelectStatement)
	assert.Equal(t, mdwast.Position{Line: 1, Column: 1, Offset: 0}, sel.Pos)
	assert.Equal(t, mdwast.Position{Line: 1, Column: 23, Offset: 22}, sel.Where.Pos)

	stmt, err = Parse("SHOW ALL OF ENTITY 1:2")
	require.NoError(t, err)
	assert.Equal(t, 20, stmt.(*mdwast.ShowStatement).Entity.Pos.Column)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"empty", "", "expected SELECT, COUNT or SHOW"},
		{"unknown statement", "DELETE ENTITIES", "expected SELECT, COUNT or SHOW"},
		{"missing where", "SELECT entities has(Position)", "unexpected token after statement"},
		{"missing entities", "SELECT WHERE HAS(A)", "expected ENTITIES"},
		{"singular entity", "SELECT ENTITY", "expected ENTITIES"},
		{"empty list", "SELECT entities WHERE has()", "expected component name"},
		{"missing paren", "SELECT ENTITIES WHERE HAS Position", "expected '(' after HAS"},
		{"unclosed list", "SELECT ENTITIES WHERE HAS(Position", "expected ',' or ')'"},
		{"trailing comma", "SELECT ENTITIES WHERE HAS(A,)", "expected component name"},
		{"keyword as name", "SELECT ENTITIES WHERE HAS(ALL)", "expected component name"},
		{"unknown predicate", "COUNT ENTITIES WHERE HASNT(A)", "expected HAS, HAS_ANY or NOT_HAS"},
		{"and not supported", "SELECT ENTITIES WHERE HAS(A) AND HAS(B)", "unexpected token after statement"},
		{"trailing token", "COUNT ENTITIES extra", "unexpected token after statement"},
		{"bad character", "SELECT ENTITIES WHERE HAS(A) ;", "unexpected character"},
		{"invalid entity", "SHOW Position OF entity invalid", "invalid entity reference"},
		{"missing colon", "SHOW ALL OF ENTITY 1234", "invalid entity reference"},
		{"missing low", "SHOW ALL OF ENTITY 12:", "invalid entity reference"},
		{"overflow", "SHOW ALL OF ENTITY 1:18446744073709551616", "out of range"},
		{"missing of", "SHOW ALL ENTITY 1:2", "expected OF"},
		{"missing entity", "SHOW ALL OF 1:2", "expected ENTITY"},
		{"plural entity", "SHOW ALL OF ENTITIES 1:2", "expected ENTITY"},
		{"bad target", "SHOW 12 OF ENTITY 1:2", "expected ALL or component name"},
		{"trailing after show", "SHOW ALL OF ENTITY 1:2 3", "unexpected token after statement"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := Parse(tt.input)
			require.Error(t, err)
			assert.Nil(t, stmt)

			var pe *ParseError
			require.True(t, errors.As(err, &pe), "expected *ParseError, got %T", err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.GreaterOrEqual(t, pe.Line, 1)
			assert.GreaterOrEqual(t, pe.Column, 1)
		})
	}
}

func TestParseError_Format(t *testing.T) {
	_, err := Parse("SELECT ENTITIES WHERE")
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, TokenEOF, pe.Token.Type)
	assert.Contains(t, pe.Error(), "at end of input")
	assert.Equal(t, 22, pe.Column)

	_, err = Parse("COUNT ENTITIES foo")
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "parse error at line 1, column 16: unexpected token after statement (near 'foo')", pe.Error())
}

func TestParse_RoundTrip(t *testing.T) {
	inputs := []string{
		"SELECT ENTITIES",
		"SELECT ENTITIES WHERE HAS(Position, Health)",
		"COUNT ENTITIES WHERE HAS_ANY(Sprite)",
		"COUNT ENTITIES WHERE NOT_HAS(Health, Sprite)",
		"SHOW Position OF ENTITY 0:1",
		"SHOW ALL OF ENTITY 9:10",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			stmt, err := Parse(input)
			require.NoError(t, err)
			assert.Equal(t, input, stmt.String())

			again, err := Parse(strings.ToLower(stmt.String()))
			require.NoError(t, err)
			assert.Equal(t, stmt.Kind(), again.Kind())
			assert.Empty(t, mdwast.ValidateAST(again))
		})
	}
}

func TestParser_MaxInputLength(t *testing.T) {
	p, err := New(Options{Logger: mdwlog.NewNop(), MaxInputLength: 20})
	require.NoError(t, err)

	_, err = p.Parse("SELECT ENTITIES")
	require.NoError(t, err)

	_, err = p.Parse("SELECT ENTITIES WHERE HAS(Position)")
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Message, "exceeds maximum length")
}

func TestParser_Reusable(t *testing.T) {
	p, err := New(Options{Logger: mdwlog.NewNop()})
	require.NoError(t, err)

	_, err = p.Parse("SELECT ENTITIES WHERE")
	require.Error(t, err)

	stmt, err := p.Parse("COUNT ENTITIES")
	require.NoError(t, err)
	assert.Equal(t, mdwast.StatementCount, stmt.Kind())
}
