// File: query.go
// Title: Entity Query Language Entry Point
// Description: The caller-facing entry point of the query language. Takes
//              a registry and a raw query string, parses and executes it,
//              and reports one of four statuses together with the result.
//              Engine keeps a configured parser and executor for repeated
//              use; Execute is the one-shot form.
// Author: msto63
// Version: v0.3.0
// Created: 2026-03-06
// Modified: 2026-10-19
//
// Change History:
// - 2026-03-06 v0.1.0: Initial entry point
// - 2026-03-12 v0.2.0: Status mapping for structured errors, Engine type
// - 2026-10-19 v0.3.0: Statement validation, unknown component report, Explain

package query

import (
	"context"
	"errors"
	"strings"

	mdwerror "github.com/msto63/ecsq/foundation/core/error"
	mdwlog "github.com/msto63/ecsq/foundation/core/log"
	mdwast "github.com/msto63/ecsq/foundation/query/ast"
	mdwexecutor "github.com/msto63/ecsq/foundation/query/executor"
	mdwparser "github.com/msto63/ecsq/foundation/query/parser"
	"github.com/msto63/ecsq/foundation/query/registry"
)

// Status classifies the outcome of a query
type Status int

const (
	StatusSuccess Status = iota
	StatusParseError
	StatusExecutionError
	StatusInvalidInput
)

// String returns a human readable status
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusParseError:
		return "parse error"
	case StatusExecutionError:
		return "execution error"
	case StatusInvalidInput:
		return "invalid input"
	default:
		return "unknown"
	}
}

// Result is the outcome of a successful query
type Result = mdwexecutor.Result

// StatusOf maps an error returned by this package to its status
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}

	var pe *mdwparser.ParseError
	if errors.As(err, &pe) {
		return StatusParseError
	}

	switch mdwerror.GetCode(err) {
	case mdwerror.CodeInvalidInput:
		return StatusInvalidInput
	case mdwerror.CodeQuerySyntax:
		return StatusParseError
	default:
		return StatusExecutionError
	}
}

// Options configures an Engine
type Options struct {
	Logger         *mdwlog.Logger
	MaxInputLength int
	MaxComponents  int
}

// Engine parses and executes queries against one registry. It is safe for
// concurrent use when the registry is.
type Engine struct {
	registry registry.Registry
	executor *mdwexecutor.Engine
	logger   *mdwlog.Logger
	options  Options
}

// New creates an engine bound to reg
func New(reg registry.Registry, opts Options) (*Engine, error) {
	if registry.IsNil(reg) {
		return nil, mdwerror.New("registry cannot be nil").
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation("query.new")
	}
	if opts.Logger == nil {
		opts.Logger = mdwlog.GetDefault()
	}
	if opts.MaxInputLength <= 0 {
		opts.MaxInputLength = mdwparser.DefaultMaxInputLength
	}
	if opts.MaxComponents <= 0 {
		opts.MaxComponents = mdwexecutor.DefaultMaxComponents
	}

	logger := opts.Logger.WithField("component", "query-engine")

	return &Engine{
		registry: reg,
		executor: mdwexecutor.New(mdwexecutor.Options{
			Logger:        opts.Logger,
			Registry:      reg,
			MaxComponents: opts.MaxComponents,
		}),
		logger:  logger,
		options: opts,
	}, nil
}

// Registry returns the registry queries run against
func (e *Engine) Registry() registry.Registry {
	return e.registry
}

// Executor returns the underlying executor
func (e *Engine) Executor() *mdwexecutor.Engine {
	return e.executor
}

// Parse parses a query without executing it
func (e *Engine) Parse(query string) (mdwast.Statement, error) {
	if strings.TrimSpace(query) == "" {
		return nil, emptyQuery()
	}

	p, err := mdwparser.New(mdwparser.Options{
		Logger:         e.options.Logger,
		MaxInputLength: e.options.MaxInputLength,
	})
	if err != nil {
		return nil, err
	}

	stmt, err := p.Parse(query)
	if err != nil {
		return nil, mdwerror.Wrap(err, "invalid query").
			WithCode(mdwerror.CodeQuerySyntax).
			WithOperation("query.parse")
	}
	return stmt, nil
}

// Execute parses and runs query. On any failure the result is nil.
func (e *Engine) Execute(ctx context.Context, query string) (Status, *Result, error) {
	stmt, err := e.Parse(query)
	if err != nil {
		return StatusOf(err), nil, err
	}

	return e.ExecuteStatement(ctx, stmt)
}

// ExecuteStatement runs an already parsed statement. Callers that cache
// parsed statements use it to skip the parser.
func (e *Engine) ExecuteStatement(ctx context.Context, stmt mdwast.Statement) (Status, *Result, error) {
	if err := validate(stmt); err != nil {
		return StatusOf(err), nil, err
	}

	result, err := e.executor.Execute(ctx, stmt)
	if err != nil {
		return StatusOf(err), nil, err
	}

	e.logger.Debug("Query executed", mdwlog.Fields{
		"kind":     result.Kind.String(),
		"count":    result.Count,
		"duration": result.Duration.String(),
	})
	return StatusSuccess, result, nil
}

// UnknownComponents returns the component names stmt refers to that the
// registry does not know, in source order. Set queries ignore such names.
func (e *Engine) UnknownComponents(stmt mdwast.Statement) []string {
	if stmt == nil {
		return nil
	}
	var unknown []string
	for _, name := range mdwast.ComponentNames(stmt) {
		if _, ok := e.registry.ComponentType(name); !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// Explain renders stmt as an indented tree
func Explain(stmt mdwast.Statement) string {
	if stmt == nil {
		return ""
	}
	return mdwast.ASTToString(stmt)
}

// Execute runs a single query against reg
func Execute(reg registry.Registry, query string) (Status, *Result, error) {
	engine, err := New(reg, Options{Logger: mdwlog.NewNop()})
	if err != nil {
		return StatusOf(err), nil, err
	}
	return engine.Execute(context.Background(), query)
}

// validate rejects statements that were built by hand and break the
// grammar's constraints. A nil statement is left to the executor.
func validate(stmt mdwast.Statement) error {
	if stmt == nil {
		return nil
	}
	errs := mdwast.ValidateAST(stmt)
	if len(errs) == 0 {
		return nil
	}
	return mdwerror.Wrap(errs[0], "invalid statement").
		WithCode(mdwerror.CodeInvalidInput).
		WithOperation("query.validate").
		WithDetail("violations", len(errs))
}

func emptyQuery() error {
	return mdwerror.New("query cannot be empty").
		WithCode(mdwerror.CodeInvalidInput).
		WithOperation("query.parse")
}
