// Package metadata resolves entity logical names to their plural Web API
// collection names. Resolution is the only asynchronous boundary in the
// simulator: implementations may hit a network or a database, so every
// call takes a context and results are cached per entity name.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// EntityMetadata is the resolved metadata subset the encoders need.
type EntityMetadata struct {
	LogicalName    string `json:"logical_name"`
	CollectionName string `json:"collection_name"`
}

// ErrNotFound reports that a resolver has no entry for the entity.
var ErrNotFound = errors.New("entity metadata not found")

// Resolver resolves the plural collection name for an entity logical name.
type Resolver interface {
	Resolve(ctx context.Context, logicalName string) (EntityMetadata, error)
}

// StaticResolver resolves from a fixed logical-name -> collection-name map.
type StaticResolver map[string]string

// Resolve implements Resolver.
func (r StaticResolver) Resolve(_ context.Context, logicalName string) (EntityMetadata, error) {
	name := strings.ToLower(strings.TrimSpace(logicalName))
	collection, ok := r[name]
	if !ok {
		return EntityMetadata{}, fmt.Errorf("%w: %s", ErrNotFound, logicalName)
	}
	return EntityMetadata{LogicalName: name, CollectionName: collection}, nil
}

// NaivePlural is the degraded fallback when resolution fails: append "s".
// Wrong for irregular plurals, but an export that completes with a slightly
// off collection name beats an export that fails.
func NaivePlural(logicalName string) string {
	return logicalName + "s"
}

// ResolveOrFallback resolves through r, degrading to NaivePlural on any
// resolution failure. It never returns an error.
func ResolveOrFallback(ctx context.Context, r Resolver, logicalName string) EntityMetadata {
	if r != nil {
		md, err := r.Resolve(ctx, logicalName)
		if err == nil && md.CollectionName != "" {
			return md
		}
	}
	return EntityMetadata{
		LogicalName:    logicalName,
		CollectionName: NaivePlural(logicalName),
	}
}

// Chain tries each resolver in order, returning the first successful
// resolution. All-miss reports ErrNotFound.
type Chain []Resolver

// Resolve implements Resolver.
func (c Chain) Resolve(ctx context.Context, logicalName string) (EntityMetadata, error) {
	for _, r := range c {
		if r == nil {
			continue
		}
		md, err := r.Resolve(ctx, logicalName)
		if err == nil {
			return md, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return EntityMetadata{}, err
		}
	}
	return EntityMetadata{}, fmt.Errorf("%w: %s", ErrNotFound, logicalName)
}

// Cached wraps a Resolver with an unbounded per-entity-name cache for the
// lifetime of the owning session. Entity counts are small and sessions are
// transient, so no eviction is needed. Failed resolutions are not cached -
// a later call may succeed.
type Cached struct {
	inner Resolver

	mu     sync.Mutex
	byName map[string]EntityMetadata
}

// NewCached wraps inner with a cache.
func NewCached(inner Resolver) *Cached {
	return &Cached{inner: inner, byName: make(map[string]EntityMetadata)}
}

// Resolve implements Resolver.
func (c *Cached) Resolve(ctx context.Context, logicalName string) (EntityMetadata, error) {
	name := strings.ToLower(strings.TrimSpace(logicalName))

	c.mu.Lock()
	md, ok := c.byName[name]
	c.mu.Unlock()
	if ok {
		return md, nil
	}

	md, err := c.inner.Resolve(ctx, name)
	if err != nil {
		return EntityMetadata{}, err
	}

	c.mu.Lock()
	c.byName[name] = md
	c.mu.Unlock()
	return md, nil
}

// Clear drops all cached entries. Called when the owning session is torn
// down and reused.
func (c *Cached) Clear() {
	c.mu.Lock()
	c.byName = make(map[string]EntityMetadata)
	c.mu.Unlock()
}
