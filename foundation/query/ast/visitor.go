// File: visitor.go
// Title: AST Visitor Pattern Implementation
// Description: Visitor interface for traversing query ASTs plus three
//              concrete visitors: an indented tree printer, a validator
//              that collects every violation, and a collector for the
//              component names a statement references.
// Author: msto63
// Version: v0.1.0
// Created: 2026-03-05
// Modified: 2026-03-05
//
// Change History:
// - 2026-03-05 v0.1.0: Initial visitor implementation

package ast

import (
	"fmt"
	"strings"
)

// Visitor traverses query AST nodes
type Visitor interface {
	VisitSelect(stmt *SelectStatement) interface{}
	VisitCount(stmt *CountStatement) interface{}
	VisitShow(stmt *ShowStatement) interface{}
	VisitPredicate(pred *Predicate) interface{}
	VisitEntityRef(ref *EntityRef) interface{}
}

// StringVisitor renders an indented tree of the AST
type StringVisitor struct {
	buffer strings.Builder
	indent int
}

// NewStringVisitor creates a new string visitor
func NewStringVisitor() *StringVisitor {
	return &StringVisitor{}
}

// String returns the rendered tree
func (sv *StringVisitor) String() string {
	return sv.buffer.String()
}

// Reset clears the internal buffer
func (sv *StringVisitor) Reset() {
	sv.buffer.Reset()
	sv.indent = 0
}

func (sv *StringVisitor) line(format string, args ...interface{}) {
	sv.buffer.WriteString(strings.Repeat("  ", sv.indent))
	sv.buffer.WriteString(fmt.Sprintf(format, args...))
	sv.buffer.WriteString("\n")
}

func (sv *StringVisitor) VisitSelect(stmt *SelectStatement) interface{} {
	sv.line("Select @%s", stmt.Pos)
	sv.visitWhere(stmt.Where)
	return nil
}

func (sv *StringVisitor) VisitCount(stmt *CountStatement) interface{} {
	sv.line("Count @%s", stmt.Pos)
	sv.visitWhere(stmt.Where)
	return nil
}

func (sv *StringVisitor) visitWhere(where *Predicate) {
	sv.indent++
	if where == nil {
		sv.line("Where: <none>")
	} else {
		where.Accept(sv)
	}
	sv.indent--
}

func (sv *StringVisitor) VisitShow(stmt *ShowStatement) interface{} {
	sv.line("Show @%s", stmt.Pos)
	sv.indent++
	if stmt.Target.All {
		sv.line("Target: ALL")
	} else {
		sv.line("Target: %s", stmt.Target.Component)
	}
	stmt.Entity.Accept(sv)
	sv.indent--
	return nil
}

func (sv *StringVisitor) VisitPredicate(pred *Predicate) interface{} {
	sv.line("%s @%s", pred.Kind, pred.Pos)
	sv.indent++
	for _, name := range pred.Components {
		sv.line("Component: %s", name)
	}
	sv.indent--
	return nil
}

func (sv *StringVisitor) VisitEntityRef(ref *EntityRef) interface{} {
	sv.line("Entity: %d:%d", ref.High, ref.Low)
	return nil
}

// ValidationVisitor validates every node and collects all errors
type ValidationVisitor struct {
	errors []error
}

// NewValidationVisitor creates a new validation visitor
func NewValidationVisitor() *ValidationVisitor {
	return &ValidationVisitor{errors: make([]error, 0)}
}

// Errors returns all validation errors found
func (vv *ValidationVisitor) Errors() []error {
	return vv.errors
}

// HasErrors returns true if any validation errors were found
func (vv *ValidationVisitor) HasErrors() bool {
	return len(vv.errors) > 0
}

func (vv *ValidationVisitor) add(node Node, err error) {
	if err != nil {
		vv.errors = append(vv.errors, fmt.Errorf("%s at %s: %w", nodeName(node), node.Position(), err))
	}
}

func (vv *ValidationVisitor) VisitSelect(stmt *SelectStatement) interface{} {
	if stmt.Where != nil {
		stmt.Where.Accept(vv)
	}
	return nil
}

func (vv *ValidationVisitor) VisitCount(stmt *CountStatement) interface{} {
	if stmt.Where != nil {
		stmt.Where.Accept(vv)
	}
	return nil
}

func (vv *ValidationVisitor) VisitShow(stmt *ShowStatement) interface{} {
	vv.add(stmt, stmt.Validate())
	stmt.Entity.Accept(vv)
	return nil
}

func (vv *ValidationVisitor) VisitPredicate(pred *Predicate) interface{} {
	vv.add(pred, pred.Validate())
	return nil
}

func (vv *ValidationVisitor) VisitEntityRef(ref *EntityRef) interface{} {
	vv.add(ref, ref.Validate())
	return nil
}

// CollectorVisitor gathers the component names a statement refers to, in
// source order and without duplicates
type CollectorVisitor struct {
	names []string
	seen  map[string]struct{}
}

// NewCollectorVisitor creates a new collector
func NewCollectorVisitor() *CollectorVisitor {
	return &CollectorVisitor{seen: make(map[string]struct{})}
}

// Names returns the collected component names
func (cv *CollectorVisitor) Names() []string {
	return cv.names
}

func (cv *CollectorVisitor) add(name string) {
	if _, dup := cv.seen[name]; dup {
		return
	}
	cv.seen[name] = struct{}{}
	cv.names = append(cv.names, name)
}

func (cv *CollectorVisitor) VisitSelect(stmt *SelectStatement) interface{} {
	if stmt.Where != nil {
		stmt.Where.Accept(cv)
	}
	return nil
}

func (cv *CollectorVisitor) VisitCount(stmt *CountStatement) interface{} {
	if stmt.Where != nil {
		stmt.Where.Accept(cv)
	}
	return nil
}

func (cv *CollectorVisitor) VisitShow(stmt *ShowStatement) interface{} {
	if !stmt.Target.All {
		cv.add(stmt.Target.Component)
	}
	return nil
}

func (cv *CollectorVisitor) VisitPredicate(pred *Predicate) interface{} {
	for _, name := range pred.Components {
		cv.add(name)
	}
	return nil
}

func (cv *CollectorVisitor) VisitEntityRef(ref *EntityRef) interface{} {
	return nil
}

// Utility functions

// ValidateAST validates a statement and returns all errors found
func ValidateAST(stmt Statement) []error {
	if stmt == nil {
		return []error{fmt.Errorf("statement is nil")}
	}
	visitor := NewValidationVisitor()
	stmt.Accept(visitor)
	return visitor.Errors()
}

// ASTToString renders a statement as an indented tree
func ASTToString(node Node) string {
	visitor := NewStringVisitor()
	node.Accept(visitor)
	return visitor.String()
}

// ComponentNames returns the distinct component names a statement uses
func ComponentNames(stmt Statement) []string {
	visitor := NewCollectorVisitor()
	stmt.Accept(visitor)
	return visitor.Names()
}

func nodeName(node Node) string {
	switch node.(type) {
	case *SelectStatement:
		return "select"
	case *CountStatement:
		return "count"
	case *ShowStatement:
		return "show"
	case *Predicate:
		return "predicate"
	case *EntityRef:
		return "entity"
	default:
		return "node"
	}
}
