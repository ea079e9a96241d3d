// File: nodes.go
// Title: Query Abstract Syntax Tree Nodes
// Description: Node types produced by the query parser: the three statement
//              shapes (SELECT, COUNT, SHOW), the component predicate and the
//              entity reference. A statement exclusively owns its subtree;
//              nodes are built bottom-up and only handed out once complete.
// Author: msto63
// Version: v0.1.0
// Created: 2026-03-05
// Modified: 2026-03-05
//
// Change History:
// - 2026-03-05 v0.1.0: Initial AST implementation

package ast

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Node represents the base interface for all AST nodes
type Node interface {
	// String returns canonical query text for the node
	String() string

	// Accept implements the visitor pattern
	Accept(visitor Visitor) interface{}

	// Position returns the source position of the node
	Position() Position

	// Validate checks the structural invariants of the node
	Validate() error
}

// Position represents a position in the source text
type Position struct {
	Line   int // Line number (1-based)
	Column int // Column number (1-based)
	Offset int // Byte offset (0-based)
}

// String returns "line:column"
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// StatementKind tags the three statement shapes
type StatementKind int

const (
	StatementSelect StatementKind = iota
	StatementCount
	StatementShow
)

// String returns the statement keyword
func (k StatementKind) String() string {
	switch k {
	case StatementSelect:
		return "SELECT"
	case StatementCount:
		return "COUNT"
	case StatementShow:
		return "SHOW"
	default:
		return "UNKNOWN"
	}
}

// Statement is the root of a parsed query
type Statement interface {
	Node
	Kind() StatementKind
	statementNode()
}

// PredicateKind tags the component membership predicates
type PredicateKind int

const (
	PredicateHas PredicateKind = iota
	PredicateHasAny
	PredicateNotHas
)

// String returns the predicate keyword
func (k PredicateKind) String() string {
	switch k {
	case PredicateHas:
		return "HAS"
	case PredicateHasAny:
		return "HAS_ANY"
	case PredicateNotHas:
		return "NOT_HAS"
	default:
		return "UNKNOWN"
	}
}

// Predicate is a HAS / HAS_ANY / NOT_HAS clause over component names.
// Names keep source order; duplicates are allowed.
type Predicate struct {
	Kind       PredicateKind
	Components []string
	Pos        Position
}

// SelectStatement is SELECT ENTITIES [WHERE predicate]
type SelectStatement struct {
	Where *Predicate // nil without a WHERE clause
	Pos   Position
}

// CountStatement is COUNT ENTITIES [WHERE predicate]
type CountStatement struct {
	Where *Predicate // nil without a WHERE clause
	Pos   Position
}

// ShowTarget selects either all components or one named component
type ShowTarget struct {
	All       bool
	Component string
}

// String returns "ALL" or the component name
func (t ShowTarget) String() string {
	if t.All {
		return "ALL"
	}
	return t.Component
}

// EntityRef is a 128-bit entity identifier written high:low
type EntityRef struct {
	High uint64
	Low  uint64
	Pos  Position
}

// ShowStatement is SHOW (ALL | name) OF ENTITY high:low
type ShowStatement struct {
	Target ShowTarget
	Entity EntityRef
	Pos    Position
}

// Compile-time interface checks
var (
	_ Statement = (*SelectStatement)(nil)
	_ Statement = (*CountStatement)(nil)
	_ Statement = (*ShowStatement)(nil)
	_ Node      = (*Predicate)(nil)
	_ Node      = (*EntityRef)(nil)
)

// Predicate methods

func (p *Predicate) String() string {
	return p.Kind.String() + "(" + strings.Join(p.Components, ", ") + ")"
}

func (p *Predicate) Accept(visitor Visitor) interface{} {
	return visitor.VisitPredicate(p)
}

func (p *Predicate) Position() Position {
	return p.Pos
}

func (p *Predicate) Validate() error {
	if p.Kind < PredicateHas || p.Kind > PredicateNotHas {
		return fmt.Errorf("invalid predicate kind %d", p.Kind)
	}
	if len(p.Components) == 0 {
		return errors.New("predicate requires at least one component name")
	}
	for i, name := range p.Components {
		if !isIdentifier(name) {
			return fmt.Errorf("component name %d (%q) is not an identifier", i, name)
		}
	}
	return nil
}

// SelectStatement methods

func (s *SelectStatement) Kind() StatementKind { return StatementSelect }
func (s *SelectStatement) statementNode()      {}

// Predicate returns the WHERE predicate or nil
func (s *SelectStatement) Predicate() *Predicate { return s.Where }

func (s *SelectStatement) String() string {
	return withWhere("SELECT ENTITIES", s.Where)
}

func (s *SelectStatement) Accept(visitor Visitor) interface{} {
	return visitor.VisitSelect(s)
}

func (s *SelectStatement) Position() Position {
	return s.Pos
}

func (s *SelectStatement) Validate() error {
	if s.Where == nil {
		return nil
	}
	return s.Where.Validate()
}

// CountStatement methods

func (c *CountStatement) Kind() StatementKind { return StatementCount }
func (c *CountStatement) statementNode()      {}

// Predicate returns the WHERE predicate or nil
func (c *CountStatement) Predicate() *Predicate { return c.Where }

func (c *CountStatement) String() string {
	return withWhere("COUNT ENTITIES", c.Where)
}

func (c *CountStatement) Accept(visitor Visitor) interface{} {
	return visitor.VisitCount(c)
}

func (c *CountStatement) Position() Position {
	return c.Pos
}

func (c *CountStatement) Validate() error {
	if c.Where == nil {
		return nil
	}
	return c.Where.Validate()
}

// ShowStatement methods

func (s *ShowStatement) Kind() StatementKind { return StatementShow }
func (s *ShowStatement) statementNode()      {}

func (s *ShowStatement) String() string {
	return "SHOW " + s.Target.String() + " OF ENTITY " + s.Entity.String()
}

func (s *ShowStatement) Accept(visitor Visitor) interface{} {
	return visitor.VisitShow(s)
}

func (s *ShowStatement) Position() Position {
	return s.Pos
}

func (s *ShowStatement) Validate() error {
	if s.Target.All && s.Target.Component != "" {
		return errors.New("show target cannot be ALL and a named component")
	}
	if !s.Target.All && !isIdentifier(s.Target.Component) {
		return fmt.Errorf("show target %q is not a component name", s.Target.Component)
	}
	return nil
}

// EntityRef methods

func (e *EntityRef) String() string {
	return strconv.FormatUint(e.High, 10) + ":" + strconv.FormatUint(e.Low, 10)
}

func (e *EntityRef) Accept(visitor Visitor) interface{} {
	return visitor.VisitEntityRef(e)
}

func (e *EntityRef) Position() Position {
	return e.Pos
}

func (e *EntityRef) Validate() error {
	return nil
}

// PredicateOf returns the WHERE predicate of a SELECT or COUNT statement
func PredicateOf(stmt Statement) *Predicate {
	switch s := stmt.(type) {
	case *SelectStatement:
		return s.Where
	case *CountStatement:
		return s.Where
	default:
		return nil
	}
}

func withWhere(head string, where *Predicate) string {
	if where == nil {
		return head
	}
	return head + " WHERE " + where.String()
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		letter := (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
		if !letter && (i == 0 || ch < '0' || ch > '9') {
			return false
		}
	}
	return true
}
