package circuitbreaker

import (
	"context"

	"docstore-handles/internal/common/logging"
	"docstore-handles/internal/driver"
)

// Driver runs the Connect calls of another driver through a Breaker.
// Handles derived from a connection are not guarded.
type Driver struct {
	driver.Driver
	breaker *Breaker
}

// WrapDriver guards d's Connect with a breaker named after the driver type.
func WrapDriver(d driver.Driver, config Config, logger logging.Logger) *Driver {
	return &Driver{
		Driver:  d,
		breaker: New(d.GetType()+"-connect", config, logger),
	}
}

// Connect implements driver.Driver.
func (d *Driver) Connect(ctx context.Context, opts driver.Options) (driver.Connection, error) {
	var conn driver.Connection
	err := d.breaker.Execute(ctx, func() error {
		var err error
		conn, err = d.Driver.Connect(ctx, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Breaker returns the breaker guarding Connect.
func (d *Driver) Breaker() *Breaker {
	return d.breaker
}
