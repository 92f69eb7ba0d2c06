// Package data defines the survey data provider contract and the registry
// of drivers that implement it.
//
// Drivers register themselves when imported:
//
//	import _ "github.com/ncobase/ohsmetrics/data/postgres"
//
// and are opened by the name used in configuration files.
package data

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ncobase/ohsmetrics/config"
)

// Driver opens providers for one storage backend.
type Driver interface {
	// Name returns the identifier used in configuration files.
	Name() string

	// Open connects to the backend described by cfg.
	Open(ctx context.Context, cfg *config.Data) (Provider, error)
}

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// RegisterDriver makes a driver available by the provided name.
// If RegisterDriver is called twice with the same name or if driver is nil,
// it panics.
func RegisterDriver(driver Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()

	if driver == nil {
		panic("data: RegisterDriver driver is nil")
	}

	name := driver.Name()
	if name == "" {
		panic("data: RegisterDriver driver name is empty")
	}

	if _, exists := drivers[name]; exists {
		panic(fmt.Sprintf("data: RegisterDriver called twice for driver %s", name))
	}

	drivers[name] = driver
}

// GetDriver retrieves a registered driver by name.
func GetDriver(name string) (Driver, error) {
	driversMu.RLock()
	defer driversMu.RUnlock()

	driver, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("data: driver %q not registered (forgotten import?)", name)
	}
	return driver, nil
}

// Drivers returns the sorted names of the registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens a provider with the driver named in cfg.
func Open(ctx context.Context, cfg *config.Data) (Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("data: nil configuration")
	}
	driver, err := GetDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	p, err := driver.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("data: open %s: %w", cfg.Driver, err)
	}
	return p, nil
}
