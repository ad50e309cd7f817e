// Package postgres stores documents in PostgreSQL jsonb tables. A namespace
// is a schema and a collection is the table "schema"."collection" with an
// id text primary key and a doc jsonb column.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"docstore-handles/internal/driver"
)

// DriverType is the identifier the driver registers under.
const DriverType = "postgres"

// ErrNotFound is returned when a document id is absent.
var ErrNotFound = errors.New("postgres: document not found")

// undefinedTable is the SQLSTATE for a relation that does not exist.
const undefinedTable = "42P01"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Driver builds a pgx connection pool. Pools connect lazily, so an
// unreachable server surfaces on first use or Ping.
type Driver struct{}

// NewDriver returns the PostgreSQL driver.
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
		return nil, fmt.Errorf("invalid PostgreSQL config: %w", err)
	}

	poolConfig, err := config.PoolConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL pool for %s: %w", config.Redacted(), err)
	}

	return &Connection{pool: pool}, nil
}

// Connection wraps a *pgxpool.Pool.
type Connection struct {
	pool *pgxpool.Pool
}

// Pool exposes the underlying pool.
func (c *Connection) Pool() *pgxpool.Pool {
	return c.pool
}

// Namespace implements driver.Connection.
func (c *Connection) Namespace(name string) (driver.Namespace, error) {
	if !identifierPattern.MatchString(name) {
		return nil, fmt.Errorf("invalid PostgreSQL schema name %q", name)
	}
	return &Namespace{pool: c.pool, name: name}, nil
}

// Ping implements driver.Connection.
func (c *Connection) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Close implements driver.Connection.
func (c *Connection) Close(ctx context.Context) error {
	c.pool.Close()
	return nil
}

// Namespace is a schema.
type Namespace struct {
	pool *pgxpool.Pool
	name string
}

// Name implements driver.Namespace.
func (n *Namespace) Name() string {
	return n.name
}

// Collection implements driver.Namespace.
func (n *Namespace) Collection(name string) (driver.Collection, error) {
	if !identifierPattern.MatchString(name) {
		return nil, fmt.Errorf("invalid PostgreSQL table name %q", name)
	}
	return &Collection{pool: n.pool, namespace: n.name, name: name}, nil
}

// Collection is a jsonb table.
type Collection struct {
	pool      *pgxpool.Pool
	namespace string
	name      string
}

// Name implements driver.Collection.
func (c *Collection) Name() string { return c.name }

// Namespace implements driver.Collection.
func (c *Collection) Namespace() string { return c.namespace }

// FullName implements driver.Collection.
func (c *Collection) FullName() string { return driver.FullName(c.namespace, c.name) }

// Table returns the quoted, schema-qualified table name.
func (c *Collection) Table() string {
	return pgx.Identifier{c.namespace, c.name}.Sanitize()
}

// EnsureTable creates the schema and table when they do not exist.
func (c *Collection) EnsureTable(ctx context.Context) error {
	schema := pgx.Identifier{c.namespace}.Sanitize()
	if _, err := c.pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	query := "CREATE TABLE IF NOT EXISTS " + c.Table() + " (id TEXT PRIMARY KEY, doc JSONB NOT NULL)"
	if _, err := c.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Put stores doc under id, replacing any previous document.
func (c *Collection) Put(ctx context.Context, id string, doc []byte) error {
	query := "INSERT INTO " + c.Table() + " (id, doc) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc"
	if _, err := c.pool.Exec(ctx, query, id, doc); err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}
	return nil
}

// Get returns the document stored under id.
func (c *Collection) Get(ctx context.Context, id string) ([]byte, error) {
	var doc []byte
	err := c.pool.QueryRow(ctx, "SELECT doc FROM "+c.Table()+" WHERE id = $1", id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return doc, nil
}

// Count implements driver.Counter.
func (c *Collection) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := c.pool.QueryRow(ctx, "SELECT count(*) FROM "+c.Table()).Scan(&n); err != nil {
		if isUndefinedTable(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

// isUndefinedTable reports whether err comes from a query against a table
// that was never created. Collections are lazy, so an empty one may have no
// table yet.
func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTable
}
