/*
Package executor interprets parsed query statements against a
registry.Registry.

SELECT and COUNT resolve their predicate's component names to registry
type handles and issue exactly one set query:

	HAS      -> Registry.QueryAll
	HAS_ANY  -> Registry.QueryAny
	NOT_HAS  -> Registry.QueryNone

Names the registry does not know are dropped. When no name resolves, or
the statement has no WHERE clause, the result is empty for every predicate
kind. SHOW requires the entity to exist and either copies one component's
bytes (count 1) or reports how many components are attached.

The registry's EntitySet is copied and released inside Execute; a Result
never references registry memory.
*/
package executor
