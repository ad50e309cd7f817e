package handles

import (
	"sync"

	"docstore-handles/internal/driver"
)

// DefaultNamespaceName is used when neither Provider.Namespace nor
// Provider.DefaultNamespaceFunc supplies one.
const DefaultNamespaceName = "test"

// Provider supplies the connection options and the default namespace.
// Each value is resolved at most once per Provider and never rebuilt, even
// across epochs. An explicit value wins and its default function is never called.
type Provider struct {
	// Options, when non-nil, is used as-is.
	Options driver.Options
	// Namespace, when non-empty, is the default namespace.
	Namespace string

	// DefaultOptions computes the options when Options is nil.
	// Nil means an empty option set.
	DefaultOptions func() driver.Options
	// DefaultNamespaceFunc computes the namespace when Namespace is empty.
	// Nil means DefaultNamespaceName.
	DefaultNamespaceFunc func() string

	optsOnce sync.Once
	opts     driver.Options
	nsOnce   sync.Once
	ns       string
}

// ClientOptions returns the memoized connection options.
func (p *Provider) ClientOptions() driver.Options {
	p.optsOnce.Do(func() {
		switch {
		case p.Options != nil:
			p.opts = p.Options
		case p.DefaultOptions != nil:
			p.opts = p.DefaultOptions()
		}
		if p.opts == nil {
			p.opts = driver.Options{}
		}
	})
	return p.opts
}

// DefaultNamespace returns the memoized default namespace name.
func (p *Provider) DefaultNamespace() string {
	p.nsOnce.Do(func() {
		switch {
		case p.Namespace != "":
			p.ns = p.Namespace
		case p.DefaultNamespaceFunc != nil:
			p.ns = p.DefaultNamespaceFunc()
		default:
			p.ns = DefaultNamespaceName
		}
	})
	return p.ns
}
