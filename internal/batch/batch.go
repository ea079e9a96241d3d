// ============================================================================
// ecsq - Entity Component Query
// ============================================================================
//
// Package:     batch
// Description: Concurrent execution of query scripts on a worker pool
// Author:      Mike Stoffels
// Created:     2026-03-19
// License:     MIT
// ============================================================================

package batch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	mdwerror "github.com/msto63/ecsq/foundation/core/error"
	"github.com/msto63/ecsq/foundation/query"
	"github.com/msto63/ecsq/pkg/core/logging"
	"github.com/panjf2000/ants/v2"
)

// Query is one script line
type Query struct {
	Line int
	Text string
}

// Outcome is the result of one query
type Outcome struct {
	Query    Query
	Status   query.Status
	Result   *query.Result
	Err      error
	Duration time.Duration
}

// Summary counts outcomes by status
type Summary struct {
	Total    int
	ByStatus map[query.Status]int
	Duration time.Duration
}

// Succeeded returns the number of successful queries
func (s Summary) Succeeded() int {
	return s.ByStatus[query.StatusSuccess]
}

// Failed returns the number of failed queries
func (s Summary) Failed() int {
	return s.Total - s.Succeeded()
}

// Config configures a Runner
type Config struct {
	Workers int
	Timeout time.Duration // per query; zero disables
	Logger  *logging.Logger
}

// Runner executes queries concurrently against one engine
type Runner struct {
	engine *query.Engine
	pool   *ants.Pool
	config Config
	logger *logging.Logger
}

// New creates a runner with a pool of cfg.Workers goroutines
func New(engine *query.Engine, cfg Config) (*Runner, error) {
	if engine == nil {
		return nil, mdwerror.New("query engine is required").
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation("batch.New")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.New("batch")
	}

	pool, err := ants.NewPool(cfg.Workers, ants.WithPanicHandler(func(v any) {
		logger.Error("Batch worker panic", "panic", v)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	return &Runner{
		engine: engine,
		pool:   pool,
		config: cfg,
		logger: logger,
	}, nil
}

// Release stops the worker pool
func (r *Runner) Release() {
	_ = r.pool.ReleaseTimeout(3 * time.Second)
}

// ParseScript reads one query per line. Blank lines and lines starting
// with # are skipped.
func ParseScript(reader io.Reader) ([]Query, error) {
	var queries []Query
	scanner := bufio.NewScanner(reader)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		queries = append(queries, Query{Line: line, Text: text})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return queries, nil
}

// RunScript parses and runs a script
func (r *Runner) RunScript(ctx context.Context, reader io.Reader) ([]Outcome, error) {
	queries, err := ParseScript(reader)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, queries)
}

// Run executes all queries and returns their outcomes in input order. A
// query failure is recorded in its outcome; the returned error reports
// only a pool or context failure.
func (r *Runner) Run(ctx context.Context, queries []Query) ([]Outcome, error) {
	outcomes := make([]Outcome, len(queries))
	start := time.Now()

	var wg sync.WaitGroup
	for i := range queries {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return outcomes, err
		}

		i := i
		outcomes[i].Query = queries[i]
		wg.Add(1)
		if err := r.pool.Submit(func() {
			defer wg.Done()
			outcomes[i] = r.execute(ctx, queries[i])
		}); err != nil {
			wg.Done()
			wg.Wait()
			return outcomes, fmt.Errorf("failed to submit query on line %d: %w", queries[i].Line, err)
		}
	}
	wg.Wait()

	summary := Summarize(outcomes)
	r.logger.Info("Batch finished",
		"queries", summary.Total,
		"succeeded", summary.Succeeded(),
		"failed", summary.Failed(),
		"duration", time.Since(start),
	)
	return outcomes, nil
}

func (r *Runner) execute(ctx context.Context, q Query) Outcome {
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	status, result, err := r.engine.Execute(ctx, q.Text)
	return Outcome{
		Query:    q,
		Status:   status,
		Result:   result,
		Err:      err,
		Duration: time.Since(start),
	}
}

// Summarize counts outcomes by status
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes), ByStatus: make(map[query.Status]int)}
	for _, o := range outcomes {
		s.ByStatus[o.Status]++
		s.Duration += o.Duration
	}
	return s
}
