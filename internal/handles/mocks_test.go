package handles

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docstore-handles/internal/driver"
)

// MockDriver records Connect calls so tests can count constructions.
type MockDriver struct {
	mock.Mock
}

func (m *MockDriver) Connect(ctx context.Context, opts driver.Options) (driver.Connection, error) {
	args := m.Called(ctx, opts)
	conn, _ := args.Get(0).(driver.Connection)
	return conn, args.Error(1)
}

func (m *MockDriver) GetType() string {
	return "mock"
}

// fakeConnection counts the namespace and collection handles derived from it.
type fakeConnection struct {
	id              int
	namespaceBuilds int
	collBuilds      int
	namespaceErr    error
	collErr         error
	closed          bool
	closeErr        error
}

func (c *fakeConnection) Namespace(name string) (driver.Namespace, error) {
	if c.namespaceErr != nil {
		return nil, c.namespaceErr
	}
	c.namespaceBuilds++
	return &fakeNamespace{name: name, conn: c}, nil
}

func (c *fakeConnection) Ping(ctx context.Context) error {
	return nil
}

func (c *fakeConnection) Close(ctx context.Context) error {
	c.closed = true
	return c.closeErr
}

type fakeNamespace struct {
	name string
	conn *fakeConnection
}

func (n *fakeNamespace) Name() string {
	return n.name
}

func (n *fakeNamespace) Collection(name string) (driver.Collection, error) {
	if n.conn.collErr != nil {
		return nil, n.conn.collErr
	}
	n.conn.collBuilds++
	return &fakeCollection{namespace: n.name, name: name}, nil
}

type fakeCollection struct {
	namespace string
	name      string
}

func (c *fakeCollection) Name() string      { return c.name }
func (c *fakeCollection) Namespace() string { return c.namespace }
func (c *fakeCollection) FullName() string  { return driver.FullName(c.namespace, c.name) }

// newMockCache returns a cache whose epoch only changes when the test advances it.
func newMockCache(provider *Provider, opts ...Option) (*Cache, *MockDriver, *ManualEpoch) {
	d := &MockDriver{}
	epoch := &ManualEpoch{}
	opts = append([]Option{WithEpochSource(epoch)}, opts...)
	return New(d, provider, opts...), d, epoch
}
