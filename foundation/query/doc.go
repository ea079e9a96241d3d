// File: doc.go
// Title: Entity Query Language Package Documentation
// Description: Package overview for the query language entry point.
// Author: msto63
// Version: v0.1.0
// Created: 2026-03-06
// Modified: 2026-03-06
//
// Change History:
// - 2026-03-06 v0.1.0: Initial documentation

/*
Package query is a small query language over an entity component store.

	SELECT ENTITIES [WHERE HAS(A, B) | HAS_ANY(A, B) | NOT_HAS(A)]
	COUNT ENTITIES  [WHERE ...]
	SHOW (ALL | Component) OF ENTITY high:low

Keywords are case-insensitive; component names are not. The subpackages
are layered leaf first:

  - parser: tokenizer and recursive descent parser
  - ast: statement nodes and visitors
  - executor: runs statements against a registry.Registry
  - registry: the registry interface and an in-memory implementation

Execute and Engine.Execute return a Status next to the error so callers
can tell malformed queries (StatusParseError) from queries that failed
against the data (StatusExecutionError) and from caller mistakes
(StatusInvalidInput).

Example:

	reg := registry.NewMemory(registry.Options{})
	pos, _ := reg.RegisterComponent("Position", 8)
	id := reg.CreateEntity()
	_ = reg.AddComponent(id, pos, make([]byte, 8))

	status, result, err := query.Execute(reg, "COUNT ENTITIES WHERE HAS(Position)")
*/
package query
