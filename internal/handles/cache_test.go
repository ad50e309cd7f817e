package handles

import (
	"bytes"
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docstore-handles/internal/common/errors"
	"docstore-handles/internal/common/logging"
	"docstore-handles/internal/driver"
)

func TestCollection_Idempotent(t *testing.T) {
	ctx := context.Background()
	cache, d, _ := newMockCache(nil)

	conn := &fakeConnection{id: 1}
	d.On("Connect", mock.Anything, mock.Anything).Return(conn, nil).Once()

	first, err := cache.Collection(ctx, "books")
	require.NoError(t, err)
	second, err := cache.Collection(ctx, "books")
	require.NoError(t, err)

	assert.Same(t, first, second)
	d.AssertNumberOfCalls(t, "Connect", 1)
	assert.Equal(t, 1, conn.namespaceBuilds)
	assert.Equal(t, 1, conn.collBuilds)
}

func TestCollection_DefaultNamespaceFallback(t *testing.T) {
	ctx := context.Background()
	cache, d, _ := newMockCache(nil)
	d.On("Connect", mock.Anything, mock.Anything).Return(&fakeConnection{}, nil).Once()

	implicit, err := cache.Collection(ctx, "books")
	require.NoError(t, err)
	explicit, err := cache.Collection(ctx, "test", "books")
	require.NoError(t, err)

	assert.Same(t, implicit, explicit)
	assert.Equal(t, "test.books", implicit.FullName())

	ns, err := cache.Namespace(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test", ns.Name())
}

func TestCollection_EpochInvalidation(t *testing.T) {
	ctx := context.Background()
	cache, d, epoch := newMockCache(nil)

	oldConn := &fakeConnection{id: 1}
	newConn := &fakeConnection{id: 2}
	d.On("Connect", mock.Anything, mock.Anything).Return(oldConn, nil).Once()
	d.On("Connect", mock.Anything, mock.Anything).Return(newConn, nil).Once()

	before, err := cache.Collection(ctx, "books")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), cache.Epoch())

	epoch.Advance()

	after, err := cache.Collection(ctx, "books")
	require.NoError(t, err)

	assert.NotSame(t, before, after)
	d.AssertNumberOfCalls(t, "Connect", 2)
	assert.Equal(t, 1, newConn.namespaceBuilds)
	assert.Equal(t, 1, newConn.collBuilds)
	assert.False(t, oldConn.closed, "stale connections are abandoned, not closed")
	assert.Equal(t, uint64(2), cache.Epoch())
}

func TestNamespace_EpochInvalidationClearsAllTiers(t *testing.T) {
	ctx := context.Background()
	cache, d, epoch := newMockCache(nil)
	d.On("Connect", mock.Anything, mock.Anything).Return(&fakeConnection{}, nil).Twice()

	_, err := cache.Collection(ctx, "a", "x")
	require.NoError(t, err)
	_, err = cache.Collection(ctx, "b", "y")
	require.NoError(t, err)

	stats := cache.Stats()
	assert.True(t, stats.Connected)
	assert.Equal(t, 2, stats.Namespaces)
	assert.Equal(t, 2, stats.Collections)

	epoch.Advance()

	stats = cache.Stats()
	assert.False(t, stats.Connected)
	assert.Equal(t, 0, stats.Namespaces)
	assert.Equal(t, 0, stats.Collections)
	assert.Equal(t, uint64(1), stats.Invalidations)
}

func TestCollection_IsolatedAcrossNamespaces(t *testing.T) {
	ctx := context.Background()
	cache, d, _ := newMockCache(nil)
	conn := &fakeConnection{}
	d.On("Connect", mock.Anything, mock.Anything).Return(conn, nil).Once()

	one, err := cache.Collection(ctx, "db1", "x")
	require.NoError(t, err)
	two, err := cache.Collection(ctx, "db2", "x")
	require.NoError(t, err)

	assert.NotSame(t, one, two)
	assert.Equal(t, "db1.x", one.FullName())
	assert.Equal(t, "db2.x", two.FullName())
	assert.Equal(t, 2, conn.namespaceBuilds)
	d.AssertNumberOfCalls(t, "Connect", 1)
}

func TestConnection_FailureIsNotCached(t *testing.T) {
	ctx := context.Background()
	cache, d, _ := newMockCache(nil)

	dialErr := stderrors.New("dial tcp 127.0.0.1:27017: connection refused")
	d.On("Connect", mock.Anything, mock.Anything).Return(nil, dialErr).Once()
	d.On("Connect", mock.Anything, mock.Anything).Return(&fakeConnection{}, nil).Once()

	coll, err := cache.Collection(ctx, "books")
	assert.Nil(t, coll)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConstruction))
	assert.ErrorIs(t, err, dialErr)
	assert.Contains(t, err.Error(), "driver=mock")

	stats := cache.Stats()
	assert.False(t, stats.Connected)
	assert.Equal(t, uint64(1), stats.BuildFailures)

	coll, err = cache.Collection(ctx, "books")
	require.NoError(t, err)
	assert.Equal(t, "test.books", coll.FullName())
	d.AssertNumberOfCalls(t, "Connect", 2)
}

func TestNamespace_FailureIsNotCached(t *testing.T) {
	ctx := context.Background()
	cache, d, _ := newMockCache(nil)

	nsErr := stderrors.New("illegal database name")
	conn := &fakeConnection{namespaceErr: nsErr}
	d.On("Connect", mock.Anything, mock.Anything).Return(conn, nil).Once()

	_, err := cache.Namespace(ctx, "bad")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConstruction))
	assert.ErrorIs(t, err, nsErr)

	conn.namespaceErr = nil
	ns, err := cache.Namespace(ctx, "bad")
	require.NoError(t, err)
	assert.Equal(t, "bad", ns.Name())

	// The connection built on the first attempt is reused.
	d.AssertNumberOfCalls(t, "Connect", 1)
}

func TestCollection_FailureIsNotCached(t *testing.T) {
	ctx := context.Background()
	cache, d, _ := newMockCache(nil)

	collErr := stderrors.New("collection name too long")
	conn := &fakeConnection{collErr: collErr}
	d.On("Connect", mock.Anything, mock.Anything).Return(conn, nil).Once()

	_, err := cache.Collection(ctx, "orders", "items")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConstruction))
	assert.ErrorIs(t, err, collErr)
	assert.Contains(t, err.Error(), "collection=items")

	conn.collErr = nil
	coll, err := cache.Collection(ctx, "orders", "items")
	require.NoError(t, err)
	assert.Equal(t, "orders.items", coll.FullName())
	assert.Equal(t, 1, conn.namespaceBuilds)
}

func TestInvalidArguments(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		call func(c *Cache) error
	}{
		{"collection without names", func(c *Cache) error { _, err := c.Collection(ctx); return err }},
		{"collection with three names", func(c *Cache) error { _, err := c.Collection(ctx, "a", "b", "c"); return err }},
		{"empty collection name", func(c *Cache) error { _, err := c.Collection(ctx, ""); return err }},
		{"empty namespace with collection", func(c *Cache) error { _, err := c.Collection(ctx, "", "books"); return err }},
		{"empty collection in namespace", func(c *Cache) error { _, err := c.CollectionIn(ctx, "orders", ""); return err }},
		{"namespace with two names", func(c *Cache) error { _, err := c.Namespace(ctx, "a", "b"); return err }},
		{"empty namespace name", func(c *Cache) error { _, err := c.Namespace(ctx, ""); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache, d, _ := newMockCache(nil)

			err := tt.call(cache)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrTypeInvalidArgument))
			d.AssertNotCalled(t, "Connect", mock.Anything, mock.Anything)

			stats := cache.Stats()
			assert.Zero(t, stats.Hits)
			assert.Zero(t, stats.Misses)
		})
	}
}

func TestDefaultNamespace_EmptyFromFunc(t *testing.T) {
	cache, d, _ := newMockCache(&Provider{
		DefaultNamespaceFunc: func() string { return "" },
	})

	_, err := cache.Collection(context.Background(), "books")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeInvalidArgument))
	d.AssertNotCalled(t, "Connect", mock.Anything, mock.Anything)
}

func TestScenario_OrdersItems(t *testing.T) {
	ctx := context.Background()
	cache, d, epoch := newMockCache(&Provider{Namespace: "orders"})

	d.On("Connect", mock.Anything, mock.Anything).Return(&fakeConnection{id: 1}, nil).Once()
	d.On("Connect", mock.Anything, mock.Anything).Return(&fakeConnection{id: 2}, nil).Once()

	first, err := cache.Collection(ctx, "items")
	require.NoError(t, err)
	assert.Equal(t, "orders", first.Namespace())
	assert.Equal(t, "items", first.Name())

	again, err := cache.Collection(ctx, "items")
	require.NoError(t, err)
	assert.Same(t, first, again)

	epoch.Advance()

	fresh, err := cache.Collection(ctx, "items")
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)
	assert.Equal(t, "orders.items", fresh.FullName())
}

func TestConnect_ReceivesClientOptions(t *testing.T) {
	ctx := context.Background()
	opts := driver.Options{driver.OptionURI: "mongodb://db:27017", driver.OptionAppName: "orders"}
	cache, d, _ := newMockCache(&Provider{Options: opts})

	d.On("Connect", mock.Anything, driver.Options{
		driver.OptionURI:     "mongodb://db:27017",
		driver.OptionAppName: "orders",
	}).Return(&fakeConnection{}, nil).Once()

	_, err := cache.Connection(ctx)
	require.NoError(t, err)
	d.AssertExpectations(t)
}

func TestReset_EndsEpoch(t *testing.T) {
	ctx := context.Background()

	var released []driver.Connection
	cache, d, _ := newMockCache(nil, WithInvalidateHook(func(conn driver.Connection) {
		released = append(released, conn)
	}))

	oldConn := &fakeConnection{id: 1}
	d.On("Connect", mock.Anything, mock.Anything).Return(oldConn, nil).Once()
	d.On("Connect", mock.Anything, mock.Anything).Return(&fakeConnection{id: 2}, nil).Once()

	before, err := cache.Collection(ctx, "books")
	require.NoError(t, err)

	cache.Reset()
	assert.Equal(t, []driver.Connection{oldConn}, released)
	assert.Equal(t, uint64(2), cache.Epoch())

	after, err := cache.Collection(ctx, "books")
	require.NoError(t, err)
	assert.NotSame(t, before, after)
	d.AssertNumberOfCalls(t, "Connect", 2)
}

func TestReset_WithoutConnectionSkipsHook(t *testing.T) {
	called := false
	cache, _, _ := newMockCache(nil, WithInvalidateHook(func(driver.Connection) { called = true }))

	cache.Reset()

	assert.False(t, called)
	assert.Equal(t, uint64(2), cache.Epoch())
}

func TestInvalidateHook_OnIdentityChange(t *testing.T) {
	ctx := context.Background()

	var released driver.Connection
	cache, d, epoch := newMockCache(nil, WithInvalidateHook(func(conn driver.Connection) {
		released = conn
		_ = conn.Close(ctx)
	}))

	conn := &fakeConnection{}
	d.On("Connect", mock.Anything, mock.Anything).Return(conn, nil).Once()

	_, err := cache.Connection(ctx)
	require.NoError(t, err)

	epoch.Advance()
	cache.Stats()

	assert.Same(t, conn, released)
	assert.True(t, conn.closed)
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	cache, d, _ := newMockCache(nil)

	first := &fakeConnection{id: 1}
	d.On("Connect", mock.Anything, mock.Anything).Return(first, nil).Once()
	d.On("Connect", mock.Anything, mock.Anything).Return(&fakeConnection{id: 2}, nil).Once()

	assert.NoError(t, cache.Close(ctx), "closing an empty cache is a no-op")

	_, err := cache.Collection(ctx, "books")
	require.NoError(t, err)

	require.NoError(t, cache.Close(ctx))
	assert.True(t, first.closed)
	assert.False(t, cache.Stats().Connected)
	assert.Equal(t, uint64(1), cache.Epoch(), "closing does not start a new epoch")

	_, err = cache.Collection(ctx, "books")
	require.NoError(t, err)
	d.AssertNumberOfCalls(t, "Connect", 2)
}

func TestClose_Error(t *testing.T) {
	ctx := context.Background()
	cache, d, _ := newMockCache(nil)

	closeErr := stderrors.New("socket already closed")
	d.On("Connect", mock.Anything, mock.Anything).Return(&fakeConnection{closeErr: closeErr}, nil).Once()

	_, err := cache.Connection(ctx)
	require.NoError(t, err)

	err = cache.Close(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConnection))
	assert.ErrorIs(t, err, closeErr)
	assert.False(t, cache.Stats().Connected)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	cache, d, _ := newMockCache(nil)
	d.On("Connect", mock.Anything, mock.Anything).Return(&fakeConnection{}, nil).Once()

	_, err := cache.Collection(ctx, "books")
	require.NoError(t, err)
	_, err = cache.Collection(ctx, "books")
	require.NoError(t, err)
	_, err = cache.Collection(ctx, "authors")
	require.NoError(t, err)

	stats := cache.Stats()
	assert.Equal(t, uint64(1), stats.Epoch)
	assert.Equal(t, uint64(1), stats.ConnectionBuilds)
	assert.Equal(t, uint64(1), stats.NamespaceBuilds)
	assert.Equal(t, uint64(2), stats.CollectionBuilds)
	// books: coll miss, ns miss, conn miss; books: coll hit;
	// authors: coll miss, ns hit.
	assert.Equal(t, uint64(4), stats.Misses)
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, 2, stats.Collections)
}

func TestNilDriver(t *testing.T) {
	cache := New(nil, nil, WithEpochSource(&ManualEpoch{}))

	_, err := cache.Collection(context.Background(), "books")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestConcurrentFirstAccessBuildsOnce(t *testing.T) {
	ctx := context.Background()
	cache, d, _ := newMockCache(nil)
	conn := &fakeConnection{}
	d.On("Connect", mock.Anything, mock.Anything).Return(conn, nil)

	var wg sync.WaitGroup
	results := make([]driver.Collection, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			coll, err := cache.Collection(ctx, "orders", "items")
			assert.NoError(t, err)
			results[i] = coll
		}(i)
	}
	wg.Wait()

	d.AssertNumberOfCalls(t, "Connect", 1)
	assert.Equal(t, 1, conn.namespaceBuilds)
	assert.Equal(t, 1, conn.collBuilds)
	for _, coll := range results {
		assert.Same(t, results[0], coll)
	}
}

func TestLogger_DebugLifecycle(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	logger, err := logging.NewZapLogger(logging.LogConfig{Level: logging.DebugLevel, Output: &buf})
	require.NoError(t, err)

	cache, d, epoch := newMockCache(nil, WithLogger(logger))
	d.On("Connect", mock.Anything, mock.Anything).Return(&fakeConnection{}, nil)

	_, err = cache.Collection(ctx, "books")
	require.NoError(t, err)
	epoch.Advance()
	cache.Stats()

	output := buf.String()
	assert.Contains(t, output, "Built connection handle")
	assert.Contains(t, output, "Built namespace handle")
	assert.Contains(t, output, "test.books")
	assert.Contains(t, output, "Handle cache epoch changed")
}

func TestProcessIdentityIsDefault(t *testing.T) {
	cache := New(&MockDriver{}, nil)
	assert.Equal(t, ProcessIdentity.Current(), cache.Stats().Identity)
}
