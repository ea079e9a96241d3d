// File: executor.go
// Title: Query Execution Engine
// Description: Executes SELECT, COUNT and SHOW statements against a
//              registry. Component names are resolved to type handles,
//              one registry call is dispatched per predicate, and the
//              registry's transient set is copied into a caller-owned
//              Result before it is released.
// Author: msto63
// Version: v0.2.0
// Created: 2026-03-06
// Modified: 2026-03-12
//
// Change History:
// - 2026-03-06 v0.1.0: Initial executor implementation
// - 2026-03-12 v0.2.0: Context checks, QueryEntities/InspectComponent helpers

package executor

import (
	"context"
	"sync"
	"time"

	mdwerror "github.com/msto63/ecsq/foundation/core/error"
	mdwlog "github.com/msto63/ecsq/foundation/core/log"
	mdwast "github.com/msto63/ecsq/foundation/query/ast"
	"github.com/msto63/ecsq/foundation/query/registry"
)

// DefaultMaxComponents caps the component types enumerated by SHOW ALL
const DefaultMaxComponents = 64

// Engine executes statements against a registry
type Engine struct {
	registry registry.Registry
	logger   *mdwlog.Logger
	options  Options
	mutex    sync.RWMutex
}

// Options configures executor behavior
type Options struct {
	Logger        *mdwlog.Logger
	Registry      registry.Registry
	MaxComponents int
}

// New creates a new execution engine. The registry may be set later with
// SetRegistry; executing without one fails.
func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = mdwlog.GetDefault()
	}
	if opts.MaxComponents <= 0 {
		opts.MaxComponents = DefaultMaxComponents
	}

	return &Engine{
		registry: opts.Registry,
		logger:   opts.Logger.WithField("component", "query-executor"),
		options:  opts,
	}
}

// SetRegistry replaces the registry queries run against
func (e *Engine) SetRegistry(reg registry.Registry) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.registry = reg
}

// Registry returns the current registry
func (e *Engine) Registry() registry.Registry {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.registry
}

// Execute runs stmt against the engine's registry
func (e *Engine) Execute(ctx context.Context, stmt mdwast.Statement) (*Result, error) {
	return e.execute(ctx, e.Registry(), stmt)
}

// Execute runs stmt against reg with a default engine
func Execute(ctx context.Context, reg registry.Registry, stmt mdwast.Statement) (*Result, error) {
	return New(Options{Logger: mdwlog.NewNop()}).execute(ctx, reg, stmt)
}

func (e *Engine) execute(ctx context.Context, reg registry.Registry, stmt mdwast.Statement) (*Result, error) {
	if registry.IsNil(reg) {
		return nil, executionError("execute", "registry is nil")
	}
	if stmt == nil {
		return nil, executionError("execute", "statement is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	timer := e.logger.StartTimer("execute").WithField("statement", stmt.String())

	var (
		result *Result
		err    error
	)
	switch s := stmt.(type) {
	case *mdwast.SelectStatement, *mdwast.CountStatement:
		result, err = e.executeSet(ctx, reg, stmt.Kind(), mdwast.PredicateOf(stmt))
	case *mdwast.ShowStatement:
		result, err = e.executeShow(ctx, reg, s)
	default:
		err = executionError("execute", "unsupported statement type").
			WithDetail("kind", stmt.Kind().String())
	}

	if err != nil {
		e.logger.Debug("Query execution failed", mdwlog.Fields{
			"statement":  stmt.String(),
			"error":      err.Error(),
			"error_code": mdwerror.GetCode(err),
		})
		return nil, err
	}

	result.Duration = time.Since(start)
	timer.WithField("count", result.Count).Stop()
	return result, nil
}

// executeSet runs SELECT and COUNT
func (e *Engine) executeSet(ctx context.Context, reg registry.Registry, kind mdwast.StatementKind, pred *mdwast.Predicate) (*Result, error) {
	if pred == nil {
		return emptyResult(kind), nil
	}

	types := resolve(reg, pred.Components)
	if len(types) == 0 {
		e.logger.Debug("No component names resolved", mdwlog.Fields{
			"predicate": pred.String(),
		})
		return emptyResult(kind), nil
	}

	if err := ctx.Err(); err != nil {
		return nil, mdwerror.Wrap(err, "query canceled").
			WithCode(mdwerror.CodeCanceled).
			WithOperation("execute." + kind.String())
	}

	var (
		set *registry.EntitySet
		err error
	)
	switch pred.Kind {
	case mdwast.PredicateHas:
		set, err = reg.QueryAll(types)
	case mdwast.PredicateHasAny:
		set, err = reg.QueryAny(types)
	case mdwast.PredicateNotHas:
		set, err = reg.QueryNone(types)
	default:
		return nil, executionError("execute."+kind.String(), "unsupported predicate").
			WithDetail("predicate", pred.Kind.String())
	}
	if err != nil {
		return nil, mdwerror.Wrap(err, "registry query failed").
			WithCode(mdwerror.CodeQueryExecution).
			WithOperation("execute." + kind.String()).
			WithDetail("predicate", pred.Kind.String())
	}
	defer set.Release()

	result := &Result{Kind: kind, Count: set.Count()}
	if kind == mdwast.StatementSelect {
		result.Entities = set.CopyEntities()
	}
	return result, nil
}

// executeShow runs SHOW name / SHOW ALL
func (e *Engine) executeShow(ctx context.Context, reg registry.Registry, stmt *mdwast.ShowStatement) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, mdwerror.Wrap(err, "query canceled").
			WithCode(mdwerror.CodeCanceled).
			WithOperation("execute.SHOW")
	}

	id := registry.EntityID{High: stmt.Entity.High, Low: stmt.Entity.Low}
	if !reg.EntityExists(id) {
		return nil, notFound("entity does not exist").WithDetail("entity", id.String())
	}

	if stmt.Target.All {
		types := reg.ComponentTypes(id, e.options.MaxComponents)
		return &Result{Kind: mdwast.StatementShow, Count: len(types)}, nil
	}

	payload, err := copyComponent(reg, id, stmt.Target.Component)
	if err != nil {
		return nil, err
	}
	return &Result{Kind: mdwast.StatementShow, Count: 1, Payload: payload}, nil
}

// QueryEntities returns the entities having every named component without
// going through the parser
func (e *Engine) QueryEntities(ctx context.Context, names ...string) (*Result, error) {
	if len(names) == 0 {
		return nil, mdwerror.New("at least one component name is required").
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation("query_entities")
	}
	stmt := &mdwast.SelectStatement{
		Where: &mdwast.Predicate{Kind: mdwast.PredicateHas, Components: names},
	}
	return e.Execute(ctx, stmt)
}

// InspectComponent returns a copy of one component's bytes
func (e *Engine) InspectComponent(ctx context.Context, id registry.EntityID, name string) ([]byte, error) {
	stmt := &mdwast.ShowStatement{
		Target: mdwast.ShowTarget{Component: name},
		Entity: mdwast.EntityRef{High: id.High, Low: id.Low},
	}
	result, err := e.Execute(ctx, stmt)
	if err != nil {
		return nil, err
	}
	return result.Payload, nil
}

// resolve maps names to type handles, dropping the unknown ones
func resolve(reg registry.Registry, names []string) []registry.ComponentType {
	types := make([]registry.ComponentType, 0, len(names))
	for _, name := range names {
		if t, ok := reg.ComponentType(name); ok {
			types = append(types, t)
		}
	}
	return types
}

func copyComponent(reg registry.Registry, id registry.EntityID, name string) ([]byte, error) {
	t, ok := reg.ComponentType(name)
	if !ok {
		return nil, notFound("unknown component").WithDetail("component", name)
	}

	data, ok := reg.Component(id, t)
	if !ok {
		return nil, notFound("entity does not have component").
			WithDetail("component", name).
			WithDetail("entity", id.String())
	}

	size := len(data)
	if declared, ok := reg.ComponentSize(t); ok && declared < size {
		size = declared
	}
	payload := make([]byte, size)
	copy(payload, data)
	return payload, nil
}

func executionError(operation, message string) *mdwerror.Error {
	return mdwerror.New(message).
		WithCode(mdwerror.CodeQueryExecution).
		WithOperation(operation)
}

func notFound(message string) *mdwerror.Error {
	return mdwerror.New(message).
		WithCode(mdwerror.CodeNotFound).
		WithOperation("execute.SHOW")
}
