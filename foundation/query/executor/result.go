// File: result.go
// Title: Query Execution Result
// Description: The query-facing result record. It is populated by the
//              executor from registry calls and owned by the caller once
//              returned. It never aliases registry memory.
// Author: msto63
// Version: v0.1.0
// Created: 2026-03-06
// Modified: 2026-03-06
//
// Change History:
// - 2026-03-06 v0.1.0: Initial result type

package executor

import (
	"time"

	mdwast "github.com/msto63/ecsq/foundation/query/ast"
	"github.com/msto63/ecsq/foundation/query/registry"
)

// Result is the outcome of executing one statement. Exactly one of
// Entities (non-empty), Payload (non-nil) or neither is populated.
type Result struct {
	Kind     mdwast.StatementKind `json:"kind"`
	Entities []registry.EntityID  `json:"entities,omitempty"`
	Count    int                  `json:"count"`
	Payload  []byte               `json:"payload,omitempty"`
	Duration time.Duration        `json:"duration"`
}

// HasPayload reports whether the result carries component bytes
func (r *Result) HasPayload() bool {
	return r != nil && r.Payload != nil
}

// IsEmpty reports whether the result matched nothing
func (r *Result) IsEmpty() bool {
	return r == nil || (r.Count == 0 && len(r.Entities) == 0 && r.Payload == nil)
}

func emptyResult(kind mdwast.StatementKind) *Result {
	return &Result{Kind: kind, Entities: []registry.EntityID{}}
}
