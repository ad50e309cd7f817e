// Package driver defines the collaborator interfaces a document-store
// client library must satisfy to be cached by package handles, plus the
// process-wide registry drivers add themselves to.
//
// Handles are opaque to the cache: a Connection derives Namespaces, a
// Namespace derives Collections. What a handle can do beyond that is the
// adapter's business.
package driver

import (
	"context"

	"docstore-handles/internal/common/registry"
)

// Driver builds connections from an opaque option set.
type Driver interface {
	// Connect builds a connection handle. It may fail for malformed
	// options or an unreachable endpoint.
	Connect(ctx context.Context, opts Options) (Connection, error)
	// GetType returns the identifier the driver is registered under
	GetType() string
}

// Connection is an established client connection.
type Connection interface {
	// Namespace derives the handle for a named database.
	Namespace(name string) (Namespace, error)
	// Ping verifies the connection is usable.
	Ping(ctx context.Context) error
	// Close releases the connection's resources.
	Close(ctx context.Context) error
}

// Namespace is a named logical grouping of collections.
type Namespace interface {
	Name() string
	// Collection derives the handle for a named collection.
	Collection(name string) (Collection, error)
}

// Collection is a named container of records within a namespace.
type Collection interface {
	Name() string
	Namespace() string
	// FullName joins the namespace and collection names with ".".
	FullName() string
}

// Counter is implemented by collections that can report how many documents they hold.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// FullName joins a namespace and collection name the way every adapter reports it.
func FullName(namespace, collection string) string {
	return namespace + "." + collection
}

// DefaultRegistry holds the drivers available to the process.
var DefaultRegistry = registry.New[Driver]()

// Register adds d to DefaultRegistry. Adapters call it from init().
func Register(d Driver) {
	DefaultRegistry.Register(d)
}

// Get looks up a driver in DefaultRegistry.
func Get(driverType string) (Driver, error) {
	return DefaultRegistry.Get(driverType)
}

// GetAvailableTypes lists the drivers in DefaultRegistry.
func GetAvailableTypes() []string {
	return DefaultRegistry.GetAvailableTypes()
}
