// Package sqlite stores documents in a SQLite file through mattn/go-sqlite3.
// A namespace is a table-name prefix and a collection is the table
// "namespace__collection" with an id primary key and a JSON doc column.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"docstore-handles/internal/driver"
)

// DriverType is the identifier the driver registers under.
const DriverType = "sqlite"

// ErrNotFound is returned when a document id is absent.
var ErrNotFound = errors.New("sqlite: document not found")

var identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Driver opens SQLite databases with database/sql.
type Driver struct{}

// NewDriver returns the SQLite driver.
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

// Connect opens the database file named by the "uri" option (default
// ./docstore.db) and pings it.
func (d *Driver) Connect(ctx context.Context, opts driver.Options) (driver.Connection, error) {
	path := strings.TrimPrefix(opts.GetString(driver.OptionURI, "./docstore.db"), "sqlite://")

	timeout, err := opts.GetDuration(driver.OptionConnectTimeout, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SQLite config: %w", err)
	}
	poolSize, err := opts.GetInt(driver.OptionPoolSize, 1)
	if err != nil {
		return nil, fmt.Errorf("invalid SQLite config: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(poolSize)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Connection{db: db, tables: make(map[string]bool)}, nil
}

// Connection wraps a *sql.DB.
type Connection struct {
	db *sql.DB

	mu     sync.Mutex
	tables map[string]bool // tables known to exist
}

// DB exposes the underlying database.
func (c *Connection) DB() *sql.DB {
	return c.db
}

// Namespace implements driver.Connection.
func (c *Connection) Namespace(name string) (driver.Namespace, error) {
	if !identifierPattern.MatchString(name) || strings.Contains(name, "__") {
		return nil, fmt.Errorf("invalid SQLite namespace %q", name)
	}
	return &Namespace{conn: c, name: name}, nil
}

// Ping implements driver.Connection.
func (c *Connection) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close implements driver.Connection.
func (c *Connection) Close(ctx context.Context) error {
	return c.db.Close()
}

func (c *Connection) ensureTable(ctx context.Context, table string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tables[table] {
		return nil
	}
	query := `CREATE TABLE IF NOT EXISTS "` + table + `" (id TEXT PRIMARY KEY, doc TEXT NOT NULL, updated_at DATETIME DEFAULT CURRENT_TIMESTAMP)`
	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	c.tables[table] = true
	return nil
}

// Namespace is a table-name prefix.
type Namespace struct {
	conn *Connection
	name string
}

// Name implements driver.Namespace.
func (n *Namespace) Name() string {
	return n.name
}

// Collection implements driver.Namespace.
func (n *Namespace) Collection(name string) (driver.Collection, error) {
	if !identifierPattern.MatchString(name) {
		return nil, fmt.Errorf("invalid SQLite collection %q", name)
	}
	return &Collection{conn: n.conn, namespace: n.name, name: name}, nil
}

// Collection is a table.
type Collection struct {
	conn      *Connection
	namespace string
	name      string
}

// Name implements driver.Collection.
func (c *Collection) Name() string { return c.name }

// Namespace implements driver.Collection.
func (c *Collection) Namespace() string { return c.namespace }

// FullName implements driver.Collection.
func (c *Collection) FullName() string { return driver.FullName(c.namespace, c.name) }

// Table returns the backing table name.
func (c *Collection) Table() string {
	return c.namespace + "__" + c.name
}

// Put stores doc under id, replacing any previous document.
func (c *Collection) Put(ctx context.Context, id string, doc []byte) error {
	if err := c.conn.ensureTable(ctx, c.Table()); err != nil {
		return err
	}
	query := `INSERT INTO "` + c.Table() + `" (id, doc) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, updated_at = CURRENT_TIMESTAMP`
	if _, err := c.conn.db.ExecContext(ctx, query, id, string(doc)); err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}
	return nil
}

// Get returns the document stored under id.
func (c *Collection) Get(ctx context.Context, id string) ([]byte, error) {
	if err := c.conn.ensureTable(ctx, c.Table()); err != nil {
		return nil, err
	}
	var doc string
	err := c.conn.db.QueryRowContext(ctx, `SELECT doc FROM "`+c.Table()+`" WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return []byte(doc), nil
}

// Count implements driver.Counter.
func (c *Collection) Count(ctx context.Context) (int64, error) {
	if err := c.conn.ensureTable(ctx, c.Table()); err != nil {
		return 0, err
	}
	var n int64
	if err := c.conn.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "`+c.Table()+`"`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}
