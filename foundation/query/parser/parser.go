// File: parser.go
// Title: Query Recursive Descent Parser
// Description: Parses query strings into ASTs. The parser pulls tokens from
//              the lexer with NextToken and looks one token ahead with
//              PeekToken; it never backtracks. Every statement must end at
//              end of input. A failed parse returns a *ParseError and no
//              partial tree.
// Author: msto63
// Version: v0.2.0
// Created: 2026-03-05
// Modified: 2026-03-10
//
// Change History:
// - 2026-03-05 v0.1.0: Initial parser implementation
// - 2026-03-10 v0.2.0: SHOW statements with manual entity reference scanning

package parser

import (
	"fmt"

	mdwlog "github.com/msto63/ecsq/foundation/core/log"
	mdwast "github.com/msto63/ecsq/foundation/query/ast"
)

// DefaultMaxInputLength bounds the size of a single query
const DefaultMaxInputLength = 4096

// Parser implements recursive descent parsing for the query language
type Parser struct {
	lexer   *Lexer
	current Token // last token returned by next
	logger  *mdwlog.Logger
	options Options
}

// Options configures parser behavior
type Options struct {
	Logger         *mdwlog.Logger
	MaxInputLength int
}

// ParseError represents a parsing error with position information
type ParseError struct {
	Message  string
	Position int
	Line     int
	Column   int
	Token    Token
}

func (pe *ParseError) Error() string {
	if pe.Token.Type == TokenEOF {
		return fmt.Sprintf("parse error at line %d, column %d: %s (at end of input)",
			pe.Line, pe.Column, pe.Message)
	}
	return fmt.Sprintf("parse error at line %d, column %d: %s (near '%s')",
		pe.Line, pe.Column, pe.Message, pe.Token.Value)
}

// New creates a new query parser with the given options
func New(opts Options) (*Parser, error) {
	if opts.Logger == nil {
		opts.Logger = mdwlog.GetDefault()
	}
	if opts.MaxInputLength <= 0 {
		opts.MaxInputLength = DefaultMaxInputLength
	}

	return &Parser{
		logger:  opts.Logger.WithField("component", "query-parser"),
		options: opts,
	}, nil
}

// Parse parses a query with a parser using default options
func Parse(input string) (mdwast.Statement, error) {
	p, err := New(Options{Logger: mdwlog.NewNop()})
	if err != nil {
		return nil, err
	}
	return p.Parse(input)
}

// Parse parses a query string and returns its statement
func (p *Parser) Parse(input string) (mdwast.Statement, error) {
	if len(input) > p.options.MaxInputLength {
		return nil, &ParseError{
			Message: fmt.Sprintf("input exceeds maximum length: %d > %d", len(input), p.options.MaxInputLength),
			Line:    1,
			Column:  1,
		}
	}

	p.lexer = NewLexer(input)
	p.current = Token{}

	p.logger.Debug("Starting query parsing", mdwlog.Fields{
		"input":  input,
		"length": len(input),
	})

	stmt, err := p.parseStatement()
	if err != nil {
		p.logger.Debug("Query parsing failed", mdwlog.Fields{
			"input": input,
			"error": err.Error(),
		})
		return nil, err
	}

	p.logger.Debug("Query parsing completed successfully", mdwlog.Fields{
		"input": input,
		"kind":  stmt.Kind().String(),
	})

	return stmt, nil
}

// parseStatement dispatches on the leading keyword
func (p *Parser) parseStatement() (mdwast.Statement, error) {
	tok := p.next()
	pos := positionOf(tok)

	switch tok.Type {
	case TokenSelect:
		where, err := p.parseEntitiesClause()
		if err != nil {
			return nil, err
		}
		return &mdwast.SelectStatement{Where: where, Pos: pos}, nil

	case TokenCount:
		where, err := p.parseEntitiesClause()
		if err != nil {
			return nil, err
		}
		return &mdwast.CountStatement{Where: where, Pos: pos}, nil

	case TokenShow:
		return p.parseShow(pos)

	default:
		return nil, p.unexpected(tok, "expected SELECT, COUNT or SHOW")
	}
}

// parseEntitiesClause parses ENTITIES [WHERE predicate] END
func (p *Parser) parseEntitiesClause() (*mdwast.Predicate, error) {
	if _, err := p.expect(TokenEntities, "expected ENTITIES"); err != nil {
		return nil, err
	}

	var where *mdwast.Predicate
	if p.peek().Type == TokenWhere {
		p.next() // consume WHERE
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, fmt.Errorf("where: %w", err)
		}
		where = pred
	}

	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return where, nil
}

// parsePredicate parses (HAS | HAS_ANY | NOT_HAS) '(' name (',' name)* ')'
func (p *Parser) parsePredicate() (*mdwast.Predicate, error) {
	tok := p.next()

	var kind mdwast.PredicateKind
	switch tok.Type {
	case TokenHas:
		kind = mdwast.PredicateHas
	case TokenHasAny:
		kind = mdwast.PredicateHasAny
	case TokenNotHas:
		kind = mdwast.PredicateNotHas
	default:
		return nil, p.unexpected(tok, "expected HAS, HAS_ANY or NOT_HAS")
	}

	if _, err := p.expect(TokenLeftParen, "expected '(' after "+kind.String()); err != nil {
		return nil, err
	}

	var names []string
	for {
		name, err := p.expect(TokenIdentifier, "expected component name")
		if err != nil {
			return nil, err
		}
		names = append(names, name.Value)

		sep := p.next()
		if sep.Type == TokenRightParen {
			break
		}
		if sep.Type != TokenComma {
			return nil, p.unexpected(sep, "expected ',' or ')' in component list")
		}
	}

	return &mdwast.Predicate{Kind: kind, Components: names, Pos: positionOf(tok)}, nil
}

// parseShow parses (ALL | name) OF ENTITY high:low END
func (p *Parser) parseShow(pos mdwast.Position) (mdwast.Statement, error) {
	var target mdwast.ShowTarget

	tok := p.next()
	switch tok.Type {
	case TokenAll:
		target.All = true
	case TokenIdentifier:
		target.Component = tok.Value
	default:
		return nil, p.unexpected(tok, "expected ALL or component name")
	}

	if _, err := p.expect(TokenOf, "expected OF"); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenEntity, "expected ENTITY"); err != nil {
		return nil, err
	}

	high, low, refTok, err := p.lexer.ScanEntityRef()
	if err != nil {
		if refTok.Value == "" {
			refTok = p.peek()
		}
		return nil, p.errorAt(refTok, "invalid entity reference: "+err.Error())
	}
	p.current = refTok

	if err := p.expectEnd(); err != nil {
		return nil, err
	}

	return &mdwast.ShowStatement{
		Target: target,
		Entity: mdwast.EntityRef{High: high, Low: low, Pos: positionOf(refTok)},
		Pos:    pos,
	}, nil
}

// Helper methods

func (p *Parser) next() Token {
	p.current = p.lexer.NextToken()
	return p.current
}

func (p *Parser) peek() Token {
	return p.lexer.PeekToken()
}

func (p *Parser) expect(tt TokenType, message string) (Token, error) {
	tok := p.next()
	if tok.Type != tt {
		return tok, p.unexpected(tok, message)
	}
	return tok, nil
}

func (p *Parser) expectEnd() error {
	tok := p.next()
	if tok.Type != TokenEOF {
		return p.unexpected(tok, "unexpected token after statement")
	}
	return nil
}

func (p *Parser) unexpected(tok Token, message string) *ParseError {
	if tok.Type == TokenError {
		message = fmt.Sprintf("unexpected character %q, %s", tok.Value, message)
	}
	return p.errorAt(tok, message)
}

func (p *Parser) errorAt(tok Token, message string) *ParseError {
	return &ParseError{
		Message:  message,
		Position: tok.Position,
		Line:     tok.Line,
		Column:   tok.Column,
		Token:    tok,
	}
}

func positionOf(tok Token) mdwast.Position {
	return mdwast.Position{Line: tok.Line, Column: tok.Column, Offset: tok.Position}
}
