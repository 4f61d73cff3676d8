package marl

import (
	"log/slog"

	"github.com/marldb/marl/pkg/convert"
	"github.com/marldb/marl/pkg/core"
	"github.com/marldb/marl/pkg/typed"
)

// Version exposes the version of the library.
const Version = "0.1.0"

// --- Types ---

// Collection is a public alias for the typed collection facade.
type Collection[T any] = typed.Collection[T]

// Driver is a public alias for the storage driver contract.
type Driver = core.Driver

// ErrNotFound is returned by FindOne when no document matches.
var ErrNotFound = core.ErrNotFound

// --- Conversion engine ---

// Outbound converts an application-level value tree into the storage
// engine's primitive form. See the convert package for the full rules.
func Outbound(value any) any {
	return convert.Outbound(value)
}

// Inbound converts a value tree read back from storage into its
// canonical in-memory form.
func Inbound(value any) any {
	return convert.Inbound(value)
}

// --- Constructors ---

// NewCollection creates a typed collection over the given driver.
func NewCollection[T any](driver core.Driver, opts ...typed.Option) *Collection[T] {
	return typed.NewCollection[T](driver, opts...)
}

// CollectionFor creates a typed collection bound to a named collection
// of the client's database. The client's logger is used unless an
// option overrides it.
func CollectionFor[T any](client *Client, name string, opts ...typed.Option) *Collection[T] {
	all := make([]typed.Option, 0, len(opts)+1)
	if client.logger != nil {
		all = append(all, typed.WithLogger(client.logger))
	}
	all = append(all, opts...)
	return typed.NewCollection[T](client.Driver(name), all...)
}

// --- Options ---

// Option defines a functional option for configuring a collection.
type Option = typed.Option

// WithLogger sets the logger for a collection.
func WithLogger(logger *slog.Logger) Option {
	return typed.WithLogger(logger)
}
