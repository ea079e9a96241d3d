// File: lexer.go
// Title: Query Lexical Analyzer (Tokenizer)
// Description: On-demand tokenizer for the entity query language. Tokens
//              are produced one at a time by NextToken; PeekToken looks one
//              token ahead by saving and restoring the cursor. Keywords are
//              matched case-insensitively after the whole identifier has
//              been read. Entity references ("high:low") are not tokens;
//              the parser scans them directly with ScanEntityRef.
// Author: msto63
// Version: v0.2.0
// Created: 2026-03-05
// Modified: 2026-03-10
//
// Change History:
// - 2026-03-05 v0.1.0: Initial lexer implementation
// - 2026-03-10 v0.2.0: Entity reference scanning, cursor save/restore peek

package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenType represents the type of a lexical token
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Identifiers and literals
	TokenIdentifier // Position, Health, my_component
	TokenNumber     // 123

	// Statement keywords
	TokenSelect
	TokenCount
	TokenShow
	TokenWhere
	TokenEntity
	TokenEntities
	TokenAll
	TokenOf

	// Predicate keywords
	TokenHas
	TokenHasAny
	TokenNotHas

	// Logical keywords, recognized but not part of the grammar
	TokenAnd
	TokenOr

	// Comparison operators, recognized but not part of the grammar
	TokenEquals    // =
	TokenNotEquals // != or a lone !
	TokenLess      // <
	TokenLessEq    // <=
	TokenGreater   // >
	TokenGreaterEq // >=

	// Punctuation
	TokenLeftParen  // (
	TokenRightParen // )
	TokenDot        // .
	TokenComma      // ,
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenIdentifier: "IDENTIFIER",
	TokenNumber:     "NUMBER",
	TokenSelect:     "SELECT",
	TokenCount:      "COUNT",
	TokenShow:       "SHOW",
	TokenWhere:      "WHERE",
	TokenEntity:     "ENTITY",
	TokenEntities:   "ENTITIES",
	TokenAll:        "ALL",
	TokenOf:         "OF",
	TokenHas:        "HAS",
	TokenHasAny:     "HAS_ANY",
	TokenNotHas:     "NOT_HAS",
	TokenAnd:        "AND",
	TokenOr:         "OR",
	TokenEquals:     "EQUALS",
	TokenNotEquals:  "NOT_EQUALS",
	TokenLess:       "LESS",
	TokenLessEq:     "LESS_EQ",
	TokenGreater:    "GREATER",
	TokenGreaterEq:  "GREATER_EQ",
	TokenLeftParen:  "LEFT_PAREN",
	TokenRightParen: "RIGHT_PAREN",
	TokenDot:        "DOT",
	TokenComma:      "COMMA",
}

// String returns a string representation of the token type
func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsKeyword reports whether the token type is a keyword
func (tt TokenType) IsKeyword() bool {
	return tt >= TokenSelect && tt <= TokenOr
}

// IsOperator reports whether the token type is a comparison operator
func (tt TokenType) IsOperator() bool {
	return tt >= TokenEquals && tt <= TokenGreaterEq
}

// Token is a classified slice of the input
type Token struct {
	Type     TokenType // Token type
	Value    string    // Token text, a substring of the input
	Position int       // Byte offset in input
	Line     int       // Line number (1-based)
	Column   int       // Column number (1-based)
}

// Length returns the length of the token text in bytes
func (t Token) Length() int {
	return len(t.Value)
}

// String returns a string representation of the token
func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenError:
		return fmt.Sprintf("ERROR(%s)", t.Value)
	default:
		return fmt.Sprintf("%s(%s)", t.Type, t.Value)
	}
}

// keywords in match order: longer and more specific spellings first so
// an overlapping prefix never wins. Matching is on the whole identifier,
// the order keeps the table readable against the grammar.
var keywords = []struct {
	text string
	typ  TokenType
}{
	{"ENTITIES", TokenEntities},
	{"ENTITY", TokenEntity},
	{"HAS_ANY", TokenHasAny},
	{"NOT_HAS", TokenNotHas},
	{"HAS", TokenHas},
	{"SELECT", TokenSelect},
	{"COUNT", TokenCount},
	{"SHOW", TokenShow},
	{"WHERE", TokenWhere},
	{"ALL", TokenAll},
	{"OF", TokenOf},
	{"AND", TokenAnd},
	{"OR", TokenOr},
}

// lookupIdent classifies a complete identifier as keyword or identifier
func lookupIdent(ident string) TokenType {
	for _, kw := range keywords {
		if len(ident) == len(kw.text) && strings.EqualFold(ident, kw.text) {
			return kw.typ
		}
	}
	return TokenIdentifier
}

// cursor is the complete lexer state; copying it is a checkpoint
type cursor struct {
	position int
	line     int
	column   int
}

// Lexer performs lexical analysis of query input
type Lexer struct {
	input string
	cur   cursor
}

// NewLexer creates a new lexer for the given input
func NewLexer(input string) *Lexer {
	return &Lexer{
		input: input,
		cur:   cursor{position: 0, line: 1, column: 1},
	}
}

// NextToken returns the next token and advances past it. At end of input
// it returns TokenEOF on every call.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	if l.atEnd() {
		return l.token(TokenEOF, l.cur, l.cur.position)
	}

	start := l.cur
	ch := l.input[l.cur.position]

	switch {
	case isLetter(ch):
		for !l.atEnd() && isIdentChar(l.input[l.cur.position]) {
			l.advance()
		}
		text := l.input[start.position:l.cur.position]
		return Token{Type: lookupIdent(text), Value: text, Position: start.position, Line: start.line, Column: start.column}

	case isDigit(ch):
		for !l.atEnd() && isDigit(l.input[l.cur.position]) {
			l.advance()
		}
		return l.token(TokenNumber, start, l.cur.position)

	case ch == '>' || ch == '<' || ch == '=' || ch == '!':
		l.advance()
		compound := !l.atEnd() && l.input[l.cur.position] == '='
		if compound {
			l.advance()
		}
		return l.token(operatorType(ch, compound), start, l.cur.position)
	}

	l.advance()
	switch ch {
	case '(':
		return l.token(TokenLeftParen, start, l.cur.position)
	case ')':
		return l.token(TokenRightParen, start, l.cur.position)
	case '.':
		return l.token(TokenDot, start, l.cur.position)
	case ',':
		return l.token(TokenComma, start, l.cur.position)
	default:
		return l.token(TokenError, start, l.cur.position)
	}
}

// PeekToken returns the next token without consuming it
func (l *Lexer) PeekToken() Token {
	saved := l.cur
	tok := l.NextToken()
	l.cur = saved
	return tok
}

// Tokenize returns all tokens up to and including EOF. Error tokens are
// included; the returned error reports the first one.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	var firstErr error
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenError && firstErr == nil {
			firstErr = fmt.Errorf("unexpected character %q at line %d, column %d", tok.Value, tok.Line, tok.Column)
		}
		if tok.Type == TokenEOF {
			return tokens, firstErr
		}
	}
}

// ScanEntityRef reads "digits:digits" at the cursor after skipping
// whitespace. Both digit runs must be non-empty and fit in uint64. On
// failure the cursor is left unchanged.
func (l *Lexer) ScanEntityRef() (high, low uint64, tok Token, err error) {
	l.skipWhitespace()
	saved := l.cur
	start := l.cur

	highText := l.scanDigits()
	if highText == "" {
		l.cur = saved
		return 0, 0, l.token(TokenError, start, start.position), fmt.Errorf("expected entity id digits")
	}
	if l.atEnd() || l.input[l.cur.position] != ':' {
		l.cur = saved
		return 0, 0, l.token(TokenError, start, start.position), fmt.Errorf("expected ':' in entity id")
	}
	l.advance()
	lowText := l.scanDigits()
	if lowText == "" {
		l.cur = saved
		return 0, 0, l.token(TokenError, start, start.position), fmt.Errorf("expected digits after ':' in entity id")
	}

	tok = l.token(TokenNumber, start, l.cur.position)
	if high, err = strconv.ParseUint(highText, 10, 64); err != nil {
		l.cur = saved
		return 0, 0, tok, fmt.Errorf("entity id high part out of range")
	}
	if low, err = strconv.ParseUint(lowText, 10, 64); err != nil {
		l.cur = saved
		return 0, 0, tok, fmt.Errorf("entity id low part out of range")
	}
	return high, low, tok, nil
}

func (l *Lexer) scanDigits() string {
	start := l.cur.position
	for !l.atEnd() && isDigit(l.input[l.cur.position]) {
		l.advance()
	}
	return l.input[start:l.cur.position]
}

func (l *Lexer) skipWhitespace() {
	for !l.atEnd() {
		switch l.input[l.cur.position] {
		case ' ', '\t', '\r', '\n', '\f', '\v':
			l.advance()
		default:
			return
		}
	}
}

// advance moves one byte forward, tracking line and column
func (l *Lexer) advance() {
	if l.input[l.cur.position] == '\n' {
		l.cur.line++
		l.cur.column = 1
	} else {
		l.cur.column++
	}
	l.cur.position++
}

func (l *Lexer) atEnd() bool {
	return l.cur.position >= len(l.input)
}

func (l *Lexer) token(typ TokenType, start cursor, end int) Token {
	return Token{
		Type:     typ,
		Value:    l.input[start.position:end],
		Position: start.position,
		Line:     start.line,
		Column:   start.column,
	}
}

func operatorType(ch byte, compound bool) TokenType {
	switch ch {
	case '>':
		if compound {
			return TokenGreaterEq
		}
		return TokenGreater
	case '<':
		if compound {
			return TokenLessEq
		}
		return TokenLess
	case '!':
		return TokenNotEquals
	default:
		return TokenEquals
	}
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentChar(ch byte) bool {
	return isLetter(ch) || isDigit(ch)
}
