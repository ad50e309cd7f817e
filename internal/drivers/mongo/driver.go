// Package mongo binds the official MongoDB Go driver to the handle cache:
// a Connection wraps *mongo.Client, a Namespace wraps *mongo.Database and a
// Collection wraps *mongo.Collection.
package mongo

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"docstore-handles/internal/driver"
)

// DriverType is the identifier the driver registers under.
const DriverType = "mongo"

// Characters MongoDB rejects in database names.
const invalidDatabaseChars = "/\\. \"$*<>:|?\x00"

// Driver connects with mongo.Connect.
type Driver struct{}

// NewDriver returns the MongoDB driver.
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

// Connect builds a client. mongo.Connect does not wait for a server, so an
// unreachable cluster surfaces on first use or Ping rather than here.
func (d *Driver) Connect(ctx context.Context, opts driver.Options) (driver.Connection, error) {
	config, err := NewConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("invalid MongoDB config: %w", err)
	}

	clientOpts, err := config.ClientOptions()
	if err != nil {
		return nil, fmt.Errorf("invalid MongoDB config: %w", err)
	}
	if err := clientOpts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid MongoDB client options: %w", err)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	return &Connection{client: client}, nil
}

// Connection wraps a *mongo.Client.
type Connection struct {
	client *mongo.Client
}

// Client exposes the underlying client.
func (c *Connection) Client() *mongo.Client {
	return c.client
}

// Namespace implements driver.Connection.
func (c *Connection) Namespace(name string) (driver.Namespace, error) {
	if strings.ContainsAny(name, invalidDatabaseChars) {
		return nil, fmt.Errorf("invalid MongoDB database name %q", name)
	}
	return &Namespace{db: c.client.Database(name)}, nil
}

// Ping implements driver.Connection.
func (c *Connection) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close implements driver.Connection.
func (c *Connection) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// Namespace wraps a *mongo.Database.
type Namespace struct {
	db *mongo.Database
}

// Database exposes the underlying database handle.
func (n *Namespace) Database() *mongo.Database {
	return n.db
}

// Name implements driver.Namespace.
func (n *Namespace) Name() string {
	return n.db.Name()
}

// Collection implements driver.Namespace.
func (n *Namespace) Collection(name string) (driver.Collection, error) {
	if strings.HasPrefix(name, "system.") || strings.ContainsAny(name, "$\x00") {
		return nil, fmt.Errorf("invalid MongoDB collection name %q", name)
	}
	return &Collection{coll: n.db.Collection(name)}, nil
}

// Collection wraps a *mongo.Collection.
type Collection struct {
	coll *mongo.Collection
}

// Collection exposes the underlying collection handle.
func (c *Collection) Collection() *mongo.Collection {
	return c.coll
}

// Name implements driver.Collection.
func (c *Collection) Name() string { return c.coll.Name() }

// Namespace implements driver.Collection.
func (c *Collection) Namespace() string { return c.coll.Database().Name() }

// FullName implements driver.Collection.
func (c *Collection) FullName() string { return driver.FullName(c.Namespace(), c.Name()) }

// Count implements driver.Counter with an exact document count.
func (c *Collection) Count(ctx context.Context) (int64, error) {
	return c.coll.CountDocuments(ctx, bson.D{})
}
