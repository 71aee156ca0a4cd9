package metadata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticResolver(t *testing.T) {
	r := StaticResolver{"account": "accounts", "opportunity": "opportunities"}

	md, err := r.Resolve(context.Background(), "account")
	require.NoError(t, err)
	assert.Equal(t, EntityMetadata{LogicalName: "account", CollectionName: "accounts"}, md)

	md, err = r.Resolve(context.Background(), "  Account ")
	require.NoError(t, err)
	assert.Equal(t, "accounts", md.CollectionName, "lookups are case and whitespace insensitive")

	_, err = r.Resolve(context.Background(), "contact")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNaivePlural(t *testing.T) {
	assert.Equal(t, "accounts", NaivePlural("account"))
	assert.Equal(t, "opportunitys", NaivePlural("opportunity"), "the fallback is deliberately naive")
}

func TestResolveOrFallback(t *testing.T) {
	r := StaticResolver{"account": "accounts"}

	md := ResolveOrFallback(context.Background(), r, "account")
	assert.Equal(t, "accounts", md.CollectionName)

	md = ResolveOrFallback(context.Background(), r, "opportunity")
	assert.Equal(t, "opportunitys", md.CollectionName, "misses degrade to naive pluralization")

	md = ResolveOrFallback(context.Background(), nil, "contact")
	assert.Equal(t, "contacts", md.CollectionName, "a nil resolver always falls back")
}

func TestChain(t *testing.T) {
	first := StaticResolver{"account": "accounts"}
	second := StaticResolver{"account": "shadowed", "contact": "contacts"}
	chain := Chain{nil, first, second}

	md, err := chain.Resolve(context.Background(), "account")
	require.NoError(t, err)
	assert.Equal(t, "accounts", md.CollectionName, "earlier resolvers win")

	md, err = chain.Resolve(context.Background(), "contact")
	require.NoError(t, err)
	assert.Equal(t, "contacts", md.CollectionName)

	_, err = chain.Resolve(context.Background(), "lead")
	assert.ErrorIs(t, err, ErrNotFound)
}

// countingResolver records how many times Resolve is invoked per name.
type countingResolver struct {
	inner StaticResolver
	calls map[string]int
}

func (r *countingResolver) Resolve(ctx context.Context, name string) (EntityMetadata, error) {
	r.calls[name]++
	return r.inner.Resolve(ctx, name)
}

func TestCachedResolvesOnce(t *testing.T) {
	inner := &countingResolver{
		inner: StaticResolver{"account": "accounts"},
		calls: map[string]int{},
	}
	cached := NewCached(inner)

	for i := 0; i < 3; i++ {
		md, err := cached.Resolve(context.Background(), "account")
		require.NoError(t, err)
		assert.Equal(t, "accounts", md.CollectionName)
	}
	assert.Equal(t, 1, inner.calls["account"], "repeat lookups are served from cache")
}

func TestCachedDoesNotCacheFailures(t *testing.T) {
	inner := &countingResolver{inner: StaticResolver{}, calls: map[string]int{}}
	cached := NewCached(inner)

	_, err := cached.Resolve(context.Background(), "account")
	require.Error(t, err)
	_, err = cached.Resolve(context.Background(), "account")
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls["account"], "failed lookups retry")

	inner.inner["account"] = "accounts"
	md, err := cached.Resolve(context.Background(), "account")
	require.NoError(t, err)
	assert.Equal(t, "accounts", md.CollectionName)
}

func TestCachedClear(t *testing.T) {
	inner := &countingResolver{
		inner: StaticResolver{"account": "accounts"},
		calls: map[string]int{},
	}
	cached := NewCached(inner)

	_, err := cached.Resolve(context.Background(), "account")
	require.NoError(t, err)
	cached.Clear()
	_, err = cached.Resolve(context.Background(), "account")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls["account"])
}

func TestErrorsOtherThanNotFoundStopTheChain(t *testing.T) {
	boom := errors.New("connection refused")
	failing := resolverFunc(func(context.Context, string) (EntityMetadata, error) {
		return EntityMetadata{}, boom
	})
	chain := Chain{failing, StaticResolver{"account": "accounts"}}

	_, err := chain.Resolve(context.Background(), "account")
	assert.ErrorIs(t, err, boom)
}

type resolverFunc func(ctx context.Context, name string) (EntityMetadata, error)

func (f resolverFunc) Resolve(ctx context.Context, name string) (EntityMetadata, error) {
	return f(ctx, name)
}
