// Package handles gives a host object lazily built, cached handles to a
// document-store connection, its namespaces and their collections.
//
// # Overview
//
// A Cache memoizes a three-tier hierarchy:
//
//	connection → namespace(name) → collection(namespace, name)
//
// Each tier is built on first access and reused for the rest of the
// current epoch. Building a collection builds its namespace, which builds
// the connection, as needed.
//
// # Epochs
//
// Every public call first compares the current execution identity (by
// default the process id) against the one recorded when the cache was
// populated. On a mismatch all three tiers are dropped together and the
// next access rebuilds them, so a handle is never shared across a process
// boundary. Reset ends an epoch explicitly.
//
// # Embedding
//
//	type OrderService struct {
//		*handles.Cache
//	}
//
//	svc := OrderService{Cache: handles.New(mongo.NewDriver(), &handles.Provider{
//		Options:   driver.Options{"uri": "mongodb://localhost:27017"},
//		Namespace: "orders",
//	})}
//
//	items, err := svc.Collection(ctx, "items")          // orders.items
//	audit, err := svc.Collection(ctx, "audit", "events") // audit.events
//
// # Errors
//
// Empty names and wrong arity fail with an invalid_argument AppError before
// any cache is touched. Driver failures fail with a construction AppError
// whose cause is the driver error; nothing is stored, so the next call
// retries. The cache never logs errors, it only returns them.
//
// # Concurrency
//
// A single mutex is held for the whole of each public call, so at most one
// handle is built per key per epoch.
package handles
