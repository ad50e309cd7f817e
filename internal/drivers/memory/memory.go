// Package memory is an in-process document store driver. Data lives for
// the life of the Driver and is shared by every connection to the same URI,
// so handles rebuilt after an epoch change see what earlier handles wrote.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"docstore-handles/internal/driver"
)

// DriverType is the identifier the driver registers under.
const DriverType = "memory"

const defaultURI = "memory://default"

var (
	// ErrClosed is returned by handles derived from a closed connection.
	ErrClosed = errors.New("memory: connection closed")
	// ErrNotFound is returned when a document id is absent.
	ErrNotFound = errors.New("memory: document not found")
)

type store struct {
	mu   sync.RWMutex
	docs map[string]map[string][]byte // full collection name → id → document
}

// Driver hands out connections to named in-memory stores.
type Driver struct {
	mu     sync.Mutex
	stores map[string]*store
}

// NewDriver creates a driver with no stores.
func NewDriver() *Driver {
	return &Driver{stores: make(map[string]*store)}
}

func init() {
	driver.Register(NewDriver())
}

// GetType implements driver.Driver.
func (d *Driver) GetType() string {
	return DriverType
}

// Connect opens a connection to the store named by the "uri" option
// (default memory://default).
func (d *Driver) Connect(ctx context.Context, opts driver.Options) (driver.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	uri := opts.GetString(driver.OptionURI, defaultURI)
	if !strings.HasPrefix(uri, "memory://") {
		return nil, fmt.Errorf("memory: unsupported uri %q", uri)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.stores[uri]
	if !ok {
		s = &store{docs: make(map[string]map[string][]byte)}
		d.stores[uri] = s
	}
	return &Connection{store: s}, nil
}

// Connection is a handle on one store.
type Connection struct {
	store *store

	mu     sync.RWMutex
	closed bool
}

// Namespace implements driver.Connection.
func (c *Connection) Namespace(name string) (driver.Namespace, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	if strings.ContainsAny(name, "/\\. \"$") {
		return nil, fmt.Errorf("memory: invalid namespace name %q", name)
	}
	return &Namespace{conn: c, name: name}, nil
}

// Ping implements driver.Connection.
func (c *Connection) Ping(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}
	return ctx.Err()
}

// Close implements driver.Connection.
func (c *Connection) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Connection) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Namespace is a handle on a named database.
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
	if n.conn.isClosed() {
		return nil, ErrClosed
	}
	if strings.ContainsAny(name, "$\x00") {
		return nil, fmt.Errorf("memory: invalid collection name %q", name)
	}
	return &Collection{conn: n.conn, namespace: n.name, name: name}, nil
}

// Collection is a handle on a named collection.
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

// Put stores doc under id, replacing any previous document.
func (c *Collection) Put(ctx context.Context, id string, doc []byte) error {
	if err := c.check(ctx); err != nil {
		return err
	}

	s := c.conn.store
	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.docs[c.FullName()]
	if !ok {
		byID = make(map[string][]byte)
		s.docs[c.FullName()] = byID
	}
	byID[id] = append([]byte(nil), doc...)
	return nil
}

// Get returns the document stored under id.
func (c *Collection) Get(ctx context.Context, id string) ([]byte, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}

	s := c.conn.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[c.FullName()][id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), doc...), nil
}

// Delete removes the document stored under id. Deleting a missing id is not an error.
func (c *Collection) Delete(ctx context.Context, id string) error {
	if err := c.check(ctx); err != nil {
		return err
	}

	s := c.conn.store
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs[c.FullName()], id)
	return nil
}

// IDs returns the stored document ids in sorted order.
func (c *Collection) IDs(ctx context.Context) ([]string, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}

	s := c.conn.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.docs[c.FullName()]))
	for id := range s.docs[c.FullName()] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Count implements driver.Counter.
func (c *Collection) Count(ctx context.Context) (int64, error) {
	if err := c.check(ctx); err != nil {
		return 0, err
	}

	s := c.conn.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.docs[c.FullName()])), nil
}

func (c *Collection) check(ctx context.Context) error {
	if c.conn.isClosed() {
		return ErrClosed
	}
	return ctx.Err()
}
