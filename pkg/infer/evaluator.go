// Package infer provides expression type evaluation: a syntactic heuristic
// evaluator, a catalog-driven evaluator backed by a type cache, and the
// inference pass that fills the cache by walking a statement with the symbol
// registry and the database catalog.
package infer

import (
	"github.com/sayiza/orapgsync/pkg/plsql"
	"github.com/sayiza/orapgsync/pkg/types"
)

// Evaluator classifies expressions. Implementations never fail: an
// expression that cannot be classified evaluates to the Unknown category.
type Evaluator interface {
	Evaluate(expr plsql.Expr) types.InferredType
}

// TypeCache maps AST nodes to their inferred types. Keys are node pointers,
// so a cache is only meaningful for the statement it was built from.
type TypeCache struct {
	entries map[plsql.Expr]types.InferredType
}

// NewTypeCache returns an empty cache.
func NewTypeCache() *TypeCache {
	return &TypeCache{entries: make(map[plsql.Expr]types.InferredType)}
}

// Put records the type of a node. Unknown results are stored too, so a
// repeated walk does not re-derive them.
func (c *TypeCache) Put(expr plsql.Expr, t types.InferredType) {
	if expr == nil {
		return
	}
	c.entries[expr] = t
}

// Get returns the cached type of a node. A miss is Unknown.
func (c *TypeCache) Get(expr plsql.Expr) types.InferredType {
	if t, ok := c.entries[expr]; ok {
		return t
	}
	return types.UnknownType
}

// Len returns the number of cached entries.
func (c *TypeCache) Len() int {
	return len(c.entries)
}

// CacheEvaluator is the catalog-driven evaluator: it answers purely from a
// TypeCache produced by the inference pass. Absence of an entry means
// Unknown, never an error.
type CacheEvaluator struct {
	cache *TypeCache
}

// NewCacheEvaluator wraps a type cache.
func NewCacheEvaluator(cache *TypeCache) *CacheEvaluator {
	return &CacheEvaluator{cache: cache}
}

// Evaluate implements Evaluator.
func (e *CacheEvaluator) Evaluate(expr plsql.Expr) types.InferredType {
	if e.cache == nil {
		return types.UnknownType
	}
	return e.cache.Get(expr)
}

// merge combines the types of two CASE branches: agreement wins, one-sided
// knowledge wins, and a conflict collapses to Unknown.
func merge(a, b types.InferredType) types.InferredType {
	switch {
	case a.Category == b.Category:
		return a
	case a.Category == types.Unknown:
		return b
	case b.Category == types.Unknown:
		return a
	default:
		return types.UnknownType
	}
}
