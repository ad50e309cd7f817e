// Package redis stores documents in Redis hashes. A namespace is a key
// prefix and a collection is the hash at "namespace:collection", with one
// field per document id.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"

	"docstore-handles/internal/driver"
)

// DriverType is the identifier the driver registers under.
const DriverType = "redis"

// ErrNotFound is returned when a document id is absent.
var ErrNotFound = errors.New("redis: document not found")

// Driver connects with go-redis and verifies the server with PING.
type Driver struct{}

// NewDriver returns the Redis driver.
func NewDriver() *Driver {
	return &Driver{}
}

func init() {
	driver.Register(NewDriver())
}

// GetType implements driver.Driver.
func (d *Driver) GetType() string {
	return DriverType
}

// Connect implements driver.Driver.
func (d *Driver) Connect(ctx context.Context, opts driver.Options) (driver.Connection, error) {
	config, err := NewConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("invalid redis config: %w", err)
	}

	redisOpts, err := config.RedisOptions()
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Connection{rdb: rdb}, nil
}

// Connection wraps a *redis.Client.
type Connection struct {
	rdb *redis.Client
}

// Client exposes the underlying client.
func (c *Connection) Client() *redis.Client {
	return c.rdb
}

// Namespace implements driver.Connection.
func (c *Connection) Namespace(name string) (driver.Namespace, error) {
	if strings.ContainsAny(name, ": ") {
		return nil, fmt.Errorf("invalid redis namespace %q", name)
	}
	return &Namespace{rdb: c.rdb, name: name}, nil
}

// Ping implements driver.Connection.
func (c *Connection) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close implements driver.Connection.
func (c *Connection) Close(ctx context.Context) error {
	return c.rdb.Close()
}

// Namespace is a key prefix.
type Namespace struct {
	rdb  *redis.Client
	name string
}

// Name implements driver.Namespace.
func (n *Namespace) Name() string {
	return n.name
}

// Collection implements driver.Namespace.
func (n *Namespace) Collection(name string) (driver.Collection, error) {
	if strings.ContainsAny(name, ": ") {
		return nil, fmt.Errorf("invalid redis collection %q", name)
	}
	return &Collection{rdb: n.rdb, namespace: n.name, name: name}, nil
}

// Collection is a Redis hash.
type Collection struct {
	rdb       *redis.Client
	namespace string
	name      string
}

// Name implements driver.Collection.
func (c *Collection) Name() string { return c.name }

// Namespace implements driver.Collection.
func (c *Collection) Namespace() string { return c.namespace }

// FullName implements driver.Collection.
func (c *Collection) FullName() string { return driver.FullName(c.namespace, c.name) }

// Key returns the Redis key holding the collection's hash.
func (c *Collection) Key() string {
	return c.namespace + ":" + c.name
}

// Put stores doc under id.
func (c *Collection) Put(ctx context.Context, id string, doc []byte) error {
	if err := c.rdb.HSet(ctx, c.Key(), id, doc).Err(); err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}
	return nil
}

// Get returns the document stored under id.
func (c *Collection) Get(ctx context.Context, id string) ([]byte, error) {
	doc, err := c.rdb.HGet(ctx, c.Key(), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return doc, nil
}

// Delete removes the document stored under id.
func (c *Collection) Delete(ctx context.Context, id string) error {
	return c.rdb.HDel(ctx, c.Key(), id).Err()
}

// Count implements driver.Counter.
func (c *Collection) Count(ctx context.Context) (int64, error) {
	return c.rdb.HLen(ctx, c.Key()).Result()
}
