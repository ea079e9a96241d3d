package cache

import (
	mdwast "github.com/msto63/ecsq/foundation/query/ast"
)

// ParseFunc parses a query string
type ParseFunc func(query string) (mdwast.Statement, error)

// StatementCache caches parsed statements by query text. Statements are
// immutable after parsing and safe to share between executions.
type StatementCache struct {
	cache *Cache[mdwast.Statement]
	parse ParseFunc
}

// NewStatementCache creates a statement cache in front of parse
func NewStatementCache(cfg Config, parse ParseFunc) *StatementCache {
	return &StatementCache{
		cache: New[mdwast.Statement](cfg),
		parse: parse,
	}
}

// Parse returns the cached statement for query or parses and caches it.
// The key is the exact query text, so every input passes the same checks
// a cold parse applies.
func (s *StatementCache) Parse(query string) (mdwast.Statement, error) {
	return s.cache.GetOrSet(query, func() (mdwast.Statement, error) {
		return s.parse(query)
	})
}

// Stats returns cache statistics
func (s *StatementCache) Stats() map[string]interface{} {
	hits, misses, hitRate := s.cache.Stats()
	return map[string]interface{}{
		"size":     s.cache.Size(),
		"hits":     hits,
		"misses":   misses,
		"hit_rate": hitRate,
	}
}

// Clear drops all cached statements
func (s *StatementCache) Clear() {
	s.cache.Clear()
}

// Close stops the cache's cleanup goroutine
func (s *StatementCache) Close() {
	s.cache.Close()
}
