package handles

import (
	"context"
	"fmt"
	"sync"

	"docstore-handles/internal/common/errors"
	"docstore-handles/internal/common/logging"
	"docstore-handles/internal/driver"
)

// Cache memoizes the connection, namespace and collection handles of one
// host object. Create it with New; embed the pointer in the host.
type Cache struct {
	mu sync.Mutex

	driver       driver.Driver
	provider     *Provider
	guard        *Guard
	logger       logging.Logger
	onInvalidate func(driver.Connection)

	conn        driver.Connection
	namespaces  map[string]driver.Namespace
	collections map[string]map[string]driver.Collection

	stats Stats
}

// New creates an empty Cache building handles through d.
// A nil provider behaves like &Provider{}.
func New(d driver.Driver, provider *Provider, opts ...Option) *Cache {
	if provider == nil {
		provider = &Provider{}
	}
	c := &Cache{
		driver:      d,
		provider:    provider,
		logger:      logging.NewNopLogger(),
		namespaces:  make(map[string]driver.Namespace),
		collections: make(map[string]map[string]driver.Collection),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.guard == nil {
		c.guard = NewGuard(ProcessIdentity)
	}
	return c
}

// Provider returns the configuration the cache builds from.
func (c *Cache) Provider() *Provider {
	return c.provider
}

// Connection returns the connection handle for the current epoch, building it on first use.
func (c *Cache) Connection(ctx context.Context) (driver.Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ensureCurrentEpoch()
	return c.connection(ctx)
}

// Namespace returns the handle for the named namespace, or for the default
// namespace when no name is given. More than one name is an invalid argument.
func (c *Cache) Namespace(ctx context.Context, name ...string) (driver.Namespace, error) {
	var nsName string
	switch len(name) {
	case 0:
		nsName = c.provider.DefaultNamespace()
	case 1:
		nsName = name[0]
	default:
		return nil, errors.InvalidArgumentError(fmt.Sprintf("namespace takes at most 1 name, got %d", len(name)))
	}
	if err := validateName("namespace", nsName); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.ensureCurrentEpoch()
	return c.namespace(ctx, nsName)
}

// Collection returns a collection handle. With one name it lives in the
// default namespace; with two the first is the namespace and the second the
// collection. Any other arity is an invalid argument.
func (c *Cache) Collection(ctx context.Context, names ...string) (driver.Collection, error) {
	switch len(names) {
	case 1:
		return c.CollectionIn(ctx, c.provider.DefaultNamespace(), names[0])
	case 2:
		return c.CollectionIn(ctx, names[0], names[1])
	default:
		return nil, errors.InvalidArgumentError(fmt.Sprintf("collection takes 1 or 2 names, got %d", len(names)))
	}
}

// CollectionIn returns the handle for collection name within namespace.
func (c *Cache) CollectionIn(ctx context.Context, namespace, name string) (driver.Collection, error) {
	if err := validateName("namespace", namespace); err != nil {
		return nil, err
	}
	if err := validateName("collection", name); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.ensureCurrentEpoch()
	return c.collection(ctx, namespace, name)
}

// Reset ends the current epoch: every cached handle is dropped and the next
// access rebuilds from scratch.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ensureCurrentEpoch() {
		c.guard.Advance()
		c.invalidate()
	}
}

// Close closes the cached connection, if any, and drops every cached handle.
// The cache stays usable; the next access connects again.
func (c *Cache) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ensureCurrentEpoch()
	conn := c.conn
	c.clear()
	if conn == nil {
		return nil
	}
	if err := conn.Close(ctx); err != nil {
		return errors.ConnectionError("failed to close connection", err)
	}
	return nil
}

// Epoch returns the current epoch counter. It starts at 1.
func (c *Cache) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ensureCurrentEpoch()
	return c.guard.Epoch()
}

// Stats returns a snapshot of cache activity.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ensureCurrentEpoch()
	s := c.stats
	s.Epoch = c.guard.Epoch()
	s.Identity = c.guard.Identity()
	s.Connected = c.conn != nil
	s.Namespaces = len(c.namespaces)
	s.Collections = 0
	for _, byName := range c.collections {
		s.Collections += len(byName)
	}
	return s
}

// ensureCurrentEpoch drops every tier when the identity changed and reports
// whether it did. Callers hold c.mu.
func (c *Cache) ensureCurrentEpoch() bool {
	if !c.guard.Check() {
		return false
	}
	c.invalidate()
	return true
}

func (c *Cache) invalidate() {
	stale := c.conn
	c.clear()
	c.stats.Invalidations++

	c.logger.Debug("Handle cache epoch changed",
		logging.Int64("epoch", int64(c.guard.Epoch())),
		logging.Int64("identity", c.guard.Identity()),
		logging.Field{Key: "had_connection", Value: stale != nil},
	)

	if stale != nil && c.onInvalidate != nil {
		c.onInvalidate(stale)
	}
}

// clear empties all three tiers together.
func (c *Cache) clear() {
	c.conn = nil
	c.namespaces = make(map[string]driver.Namespace)
	c.collections = make(map[string]map[string]driver.Collection)
}

func (c *Cache) connection(ctx context.Context) (driver.Connection, error) {
	if c.conn != nil {
		c.stats.Hits++
		return c.conn, nil
	}
	c.stats.Misses++

	if c.driver == nil {
		return nil, errors.ConfigError("handle cache has no driver")
	}

	conn, err := c.driver.Connect(ctx, c.provider.ClientOptions().Clone())
	if err != nil {
		c.stats.BuildFailures++
		return nil, errors.ConstructionError("failed to connect", err).
			WithContext("driver", c.driver.GetType())
	}

	c.conn = conn
	c.stats.ConnectionBuilds++
	c.logger.Debug("Built connection handle",
		logging.String("driver", c.driver.GetType()),
		logging.Int64("epoch", int64(c.guard.Epoch())),
	)
	return conn, nil
}

func (c *Cache) namespace(ctx context.Context, name string) (driver.Namespace, error) {
	if ns, ok := c.namespaces[name]; ok {
		c.stats.Hits++
		return ns, nil
	}
	c.stats.Misses++

	conn, err := c.connection(ctx)
	if err != nil {
		return nil, err
	}

	ns, err := conn.Namespace(name)
	if err != nil {
		c.stats.BuildFailures++
		return nil, errors.ConstructionError("failed to build namespace handle", err).
			WithContext("namespace", name)
	}

	c.namespaces[name] = ns
	c.stats.NamespaceBuilds++
	c.logger.Debug("Built namespace handle", logging.String("namespace", name))
	return ns, nil
}

func (c *Cache) collection(ctx context.Context, namespace, name string) (driver.Collection, error) {
	if coll, ok := c.collections[namespace][name]; ok {
		c.stats.Hits++
		return coll, nil
	}
	c.stats.Misses++

	ns, err := c.namespace(ctx, namespace)
	if err != nil {
		return nil, err
	}

	coll, err := ns.Collection(name)
	if err != nil {
		c.stats.BuildFailures++
		return nil, errors.ConstructionError("failed to build collection handle", err).
			WithContext("namespace", namespace).
			WithContext("collection", name)
	}

	byName, ok := c.collections[namespace]
	if !ok {
		byName = make(map[string]driver.Collection)
		c.collections[namespace] = byName
	}
	byName[name] = coll
	c.stats.CollectionBuilds++
	c.logger.Debug("Built collection handle", logging.String("collection", driver.FullName(namespace, name)))
	return coll, nil
}

func validateName(kind, name string) error {
	if name == "" {
		return errors.InvalidArgumentError(kind + " name must not be empty")
	}
	return nil
}
