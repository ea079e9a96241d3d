// ============================================================================
// ecsq - Entity Component Query
// ============================================================================
//
// Package:     server
// Description: Query service shared by the gRPC and WebSocket surfaces
// Author:      Mike Stoffels
// Created:     2026-03-18
// License:     MIT
// ============================================================================

package server

import (
	"context"
	"encoding/base64"
	"time"

	mdwerror "github.com/msto63/ecsq/foundation/core/error"
	"github.com/msto63/ecsq/foundation/query"
	mdwast "github.com/msto63/ecsq/foundation/query/ast"
	"github.com/msto63/ecsq/foundation/query/registry"
	"github.com/msto63/ecsq/pkg/core/cache"
	"github.com/msto63/ecsq/pkg/core/logging"
)

// Response is the wire form of one query outcome
type Response struct {
	Status     string   `json:"status"`
	Kind       string   `json:"kind,omitempty"`
	Count      int      `json:"count"`
	Entities   []string `json:"entities,omitempty"`
	Payload    string   `json:"payload,omitempty"` // base64
	Error      string   `json:"error,omitempty"`
	Code       string   `json:"code,omitempty"`
	DurationMS float64  `json:"duration_ms"`
}

// OK reports whether the query succeeded
func (r *Response) OK() bool {
	return r.Status == query.StatusSuccess.String()
}

// PayloadBytes decodes the base64 payload
func (r *Response) PayloadBytes() ([]byte, error) {
	if r.Payload == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(r.Payload)
}

// Outcome converts the response back into the form returned by
// query.Engine.Execute
func (r *Response) Outcome() (query.Status, *query.Result, error) {
	status := parseStatus(r.Status)
	if status != query.StatusSuccess {
		msg := r.Error
		if msg == "" {
			msg = "query failed"
		}
		return status, nil, mdwerror.New(msg).
			WithCode(mdwerror.Code(r.Code)).
			WithOperation("server.remote")
	}

	result := &query.Result{
		Kind:     parseKind(r.Kind),
		Count:    r.Count,
		Entities: make([]registry.EntityID, 0, len(r.Entities)),
		Duration: time.Duration(r.DurationMS * float64(time.Millisecond)),
	}
	for _, s := range r.Entities {
		id, err := registry.ParseEntityID(s)
		if err != nil {
			return query.StatusExecutionError, nil, mdwerror.Wrap(err, "malformed entity in response").
				WithCode(mdwerror.CodeInvalidFormat).
				WithOperation("server.remote")
		}
		result.Entities = append(result.Entities, id)
	}
	payload, err := r.PayloadBytes()
	if err != nil {
		return query.StatusExecutionError, nil, mdwerror.Wrap(err, "malformed payload in response").
			WithCode(mdwerror.CodeInvalidFormat).
			WithOperation("server.remote")
	}
	result.Payload = payload
	return query.StatusSuccess, result, nil
}

func parseStatus(s string) query.Status {
	for _, status := range []query.Status{
		query.StatusSuccess,
		query.StatusParseError,
		query.StatusExecutionError,
		query.StatusInvalidInput,
	} {
		if status.String() == s {
			return status
		}
	}
	return query.StatusExecutionError
}

func parseKind(s string) mdwast.StatementKind {
	switch s {
	case mdwast.StatementCount.String():
		return mdwast.StatementCount
	case mdwast.StatementShow.String():
		return mdwast.StatementShow
	default:
		return mdwast.StatementSelect
	}
}

// QueryService executes queries against one engine with a cache of parsed
// statements in front of the parser
type QueryService struct {
	engine     *query.Engine
	statements *cache.StatementCache
	logger     *logging.Logger
}

// ServiceConfig configures a QueryService
type ServiceConfig struct {
	CacheSize int
	CacheTTL  time.Duration
	Logger    *logging.Logger
}

// NewQueryService creates a query service
func NewQueryService(engine *query.Engine, cfg ServiceConfig) (*QueryService, error) {
	if engine == nil {
		return nil, mdwerror.New("query engine is required").
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation("server.NewQueryService")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.New("query-service")
	}

	cacheCfg := cache.DefaultConfig()
	if cfg.CacheSize > 0 {
		cacheCfg.MaxItems = cfg.CacheSize
	}
	if cfg.CacheTTL > 0 {
		cacheCfg.TTL = cfg.CacheTTL
	}

	return &QueryService{
		engine:     engine,
		statements: cache.NewStatementCache(cacheCfg, engine.Parse),
		logger:     logger,
	}, nil
}

// Engine returns the underlying query engine
func (s *QueryService) Engine() *query.Engine {
	return s.engine
}

// CacheStats returns statement cache statistics
func (s *QueryService) CacheStats() map[string]interface{} {
	return s.statements.Stats()
}

// Close releases the statement cache
func (s *QueryService) Close() {
	s.statements.Close()
}

// Execute runs one query. Failures are reported in the response, the
// returned error is the raw failure for callers that map it further.
func (s *QueryService) Execute(ctx context.Context, q string) (*Response, error) {
	start := time.Now()

	status, result, err := s.run(ctx, q)

	resp := &Response{
		Status:     status.String(),
		DurationMS: float64(time.Since(start).Microseconds()) / 1000,
	}

	if err != nil {
		resp.Error = err.Error()
		resp.Code = string(mdwerror.GetCode(err))
		s.logger.Debug("Query failed", "query", q, "status", resp.Status, "error", err)
		return resp, err
	}

	resp.Kind = result.Kind.String()
	resp.Count = result.Count
	if len(result.Entities) > 0 {
		resp.Entities = make([]string, len(result.Entities))
		for i, id := range result.Entities {
			resp.Entities[i] = id.String()
		}
	}
	if result.HasPayload() {
		resp.Payload = base64.StdEncoding.EncodeToString(result.Payload)
	}
	return resp, nil
}

func (s *QueryService) run(ctx context.Context, q string) (query.Status, *query.Result, error) {
	stmt, err := s.statements.Parse(q)
	if err != nil {
		return query.StatusOf(err), nil, err
	}
	return s.engine.ExecuteStatement(ctx, stmt)
}
