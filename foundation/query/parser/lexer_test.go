package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTypes(t *testing.T, input string) []TokenType {
	t.Helper()
	tokens, _ := NewLexer(input).Tokenize()
	types := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

func TestLexer_Keywords(t *testing.T) {
	tests := []struct {
		input string
		want  TokenType
	}{
		{"SELECT", TokenSelect},
		{"select", TokenSelect},
		{"SeLeCt", TokenSelect},
		{"COUNT", TokenCount},
		{"SHOW", TokenShow},
		{"WHERE", TokenWhere},
		{"ENTITY", TokenEntity},
		{"ENTITIES", TokenEntities},
		{"entities", TokenEntities},
		{"ALL", TokenAll},
		{"all", TokenAll},
		{"OF", TokenOf},
		{"HAS", TokenHas},
		{"has_any", TokenHasAny},
		{"NOT_HAS", TokenNotHas},
		{"AND", TokenAnd},
		{"or", TokenOr},
		{"Position", TokenIdentifier},
		{"HASX", TokenIdentifier},
		{"ENTITYS", TokenIdentifier},
		{"HAS_", TokenIdentifier},
		{"_private", TokenIdentifier},
		{"Health2", TokenIdentifier},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok := NewLexer(tt.input).NextToken()
			assert.Equal(t, tt.want, tok.Type)
			assert.Equal(t, tt.input, tok.Value)
			assert.Equal(t, len(tt.input), tok.Length())
		})
	}
}

func TestLexer_OperatorsAndPunctuation(t *testing.T) {
	assert.Equal(t,
		[]TokenType{
			TokenGreater, TokenLess, TokenEquals, TokenNotEquals,
			TokenGreaterEq, TokenLessEq, TokenEquals, TokenNotEquals,
			TokenLeftParen, TokenRightParen, TokenDot, TokenComma, TokenEOF,
		},
		tokenTypes(t, "> < = ! >= <= == != ( ) . ,"),
	)

	tok := NewLexer(">=").NextToken()
	assert.Equal(t, ">=", tok.Value)
	assert.True(t, tok.Type.IsOperator())
	assert.False(t, TokenSelect.IsOperator())
	assert.True(t, TokenOr.IsKeyword())
	assert.False(t, TokenIdentifier.IsKeyword())
}

func TestLexer_Numbers(t *testing.T) {
	l := NewLexer("12345 007x")
	tok := l.NextToken()
	assert.Equal(t, TokenNumber, tok.Type)
	assert.Equal(t, "12345", tok.Value)

	tok = l.NextToken()
	assert.Equal(t, TokenNumber, tok.Type)
	assert.Equal(t, "007", tok.Value)

	tok = l.NextToken()
	assert.Equal(t, TokenIdentifier, tok.Type)
	assert.Equal(t, "x", tok.Value)
}

func TestLexer_Statement(t *testing.T) {
	assert.Equal(t,
		[]TokenType{
			TokenSelect, TokenEntities, TokenWhere, TokenHasAny,
			TokenLeftParen, TokenIdentifier, TokenComma, TokenIdentifier, TokenRightParen, TokenEOF,
		},
		tokenTypes(t, "SELECT entities WHERE has_any(Position, Sprite)"),
	)
}

func TestLexer_ErrorTokenAdvances(t *testing.T) {
	l := NewLexer("@#Position")
	first := l.NextToken()
	second := l.NextToken()
	third := l.NextToken()

	assert.Equal(t, TokenError, first.Type)
	assert.Equal(t, "@", first.Value)
	assert.Equal(t, TokenError, second.Type)
	assert.Equal(t, "#", second.Value)
	assert.Equal(t, TokenIdentifier, third.Type)

	_, err := NewLexer("HAS(:)").Tokenize()
	assert.Error(t, err)
}

func TestLexer_EOFRepeats(t *testing.T) {
	l := NewLexer("  ")
	for i := 0; i < 3; i++ {
		assert.Equal(t, TokenEOF, l.NextToken().Type)
	}
	assert.Equal(t, "EOF", l.NextToken().String())
}

func TestLexer_PeekDoesNotAdvance(t *testing.T) {
	l := NewLexer("COUNT entities")

	peeked := l.PeekToken()
	again := l.PeekToken()
	next := l.NextToken()

	assert.Equal(t, peeked, again)
	assert.Equal(t, peeked, next)
	assert.Equal(t, TokenEntities, l.PeekToken().Type)
	assert.Equal(t, TokenEntities, l.NextToken().Type)
	assert.Equal(t, TokenEOF, l.PeekToken().Type)
}

func TestLexer_LineAndColumn(t *testing.T) {
	l := NewLexer("SELECT\n  entities\n\tWHERE")

	tok := l.NextToken()
	assert.Equal(t, 1, tok.Line)
	assert.Equal(t, 1, tok.Column)
	assert.Equal(t, 0, tok.Position)

	tok = l.NextToken()
	assert.Equal(t, 2, tok.Line)
	assert.Equal(t, 3, tok.Column)
	assert.Equal(t, 9, tok.Position)

	tok = l.NextToken()
	assert.Equal(t, 3, tok.Line)
	assert.Equal(t, 2, tok.Column)
}

func TestLexer_ScanEntityRef(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		high    uint64
		low     uint64
		wantErr bool
	}{
		{"simple", "12:34", 12, 34, false},
		{"leading space", "   0:1", 0, 1, false},
		{"max", "18446744073709551615:18446744073709551615", 18446744073709551615, 18446744073709551615, false},
		{"missing colon", "1234", 0, 0, true},
		{"space before colon", "12 :34", 0, 0, true},
		{"missing low", "12:", 0, 0, true},
		{"letters", "invalid", 0, 0, true},
		{"negative", "-1:2", 0, 0, true},
		{"overflow", "18446744073709551616:1", 0, 0, true},
		{"empty", "", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLexer(tt.input)
			high, low, _, err := l.ScanEntityRef()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.high, high)
			assert.Equal(t, tt.low, low)
			assert.Equal(t, TokenEOF, l.NextToken().Type)
		})
	}
}

func TestLexer_ScanEntityRefStopsAtNonDigit(t *testing.T) {
	l := NewLexer("1:2abc")
	high, low, tok, err := l.ScanEntityRef()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), high)
	assert.Equal(t, uint64(2), low)
	assert.Equal(t, "1:2", tok.Value)
	assert.Equal(t, TokenIdentifier, l.NextToken().Type)
}

func TestTokenType_String(t *testing.T) {
	assert.Equal(t, "HAS_ANY", TokenHasAny.String())
	assert.Equal(t, "UNKNOWN", TokenType(999).String())
	assert.Equal(t, "IDENTIFIER(Position)", Token{Type: TokenIdentifier, Value: "Position"}.String())
	assert.Equal(t, "ERROR(@)", Token{Type: TokenError, Value: "@"}.String())
}
