// Package typed provides the type-safe collection facade. It wraps a
// core.Driver, converting between document structs and the raw form
// the driver understands via the conversion engine and the resolved
// document model.
package typed

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/marldb/marl/pkg/convert"
	"github.com/marldb/marl/pkg/core"
	"github.com/marldb/marl/pkg/schema"
)

// Collection binds a storage collection to exactly one document type T.
// The binding is immutable for the collection's lifetime. The model for
// T is resolved on first use and cached; constructing a collection with
// a non-struct T succeeds, but the first operation that needs to
// reconstruct a document fails with a descriptive error.
type Collection[T any] struct {
	driver core.Driver
	logger *slog.Logger
	model  func() (*schema.Model, error)
}

// NewCollection creates a typed collection over the given driver.
func NewCollection[T any](driver core.Driver, opts ...Option) *Collection[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Collection[T]{
		driver: driver,
		logger: o.logger,
		// OnceValues keeps concurrent first resolutions idempotent.
		model: sync.OnceValues(schema.Resolve[T]),
	}
}

// Driver returns the underlying storage driver, for operations the
// typed facade does not cover.
func (c *Collection[T]) Driver() core.Driver { return c.driver }

// Model returns the resolved document model for T.
func (c *Collection[T]) Model() (*schema.Model, error) { return c.model() }

// InsertOne converts the document for storage and inserts it.
func (c *Collection[T]) InsertOne(ctx context.Context, document T) (*mongo.InsertOneResult, error) {
	if c.logger != nil {
		c.logger.Debug("insert one", "type", fmt.Sprintf("%T", document))
	}
	return c.driver.InsertOne(ctx, convert.Outbound(document))
}

// InsertMany converts and inserts a batch of documents in order.
func (c *Collection[T]) InsertMany(ctx context.Context, documents []T) (*mongo.InsertManyResult, error) {
	payload := make([]any, len(documents))
	for i, d := range documents {
		payload[i] = convert.Outbound(d)
	}
	if c.logger != nil {
		c.logger.Debug("insert many", "count", len(payload))
	}
	return c.driver.InsertMany(ctx, payload)
}

// FindOne returns the first document matching the filter, decoded into
// T. It returns core.ErrNotFound when nothing matches.
func (c *Collection[T]) FindOne(ctx context.Context, filter any) (*T, error) {
	raw, err := c.driver.FindOne(ctx, convert.Outbound(filter))
	if err != nil {
		return nil, err
	}
	return c.decode(raw)
}

// Find returns a lazy, single-pass sequence of decoded documents.
// Ranging over the sequence issues a fresh query; iteration stops at
// the first error, which is yielded with a nil document.
func (c *Collection[T]) Find(ctx context.Context, filter any) iter.Seq2[*T, error] {
	converted := convert.Outbound(filter)
	return func(yield func(*T, error) bool) {
		cur, err := c.driver.Find(ctx, converted)
		if err != nil {
			yield(nil, err)
			return
		}
		defer cur.Close(ctx)
		for cur.Next(ctx) {
			raw, err := cur.Current()
			if err != nil {
				yield(nil, err)
				return
			}
			doc, err := c.decode(raw)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(doc, nil) {
				return
			}
		}
		if err := cur.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// FindAll is the eager form of Find.
func (c *Collection[T]) FindAll(ctx context.Context, filter any) ([]*T, error) {
	var out []*T
	for doc, err := range c.Find(ctx, filter) {
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// UpdateOne applies an update document to the first match.
// Both the filter and the update are converted for storage.
func (c *Collection[T]) UpdateOne(ctx context.Context, filter, update any) (*mongo.UpdateResult, error) {
	return c.driver.UpdateOne(ctx, convert.Outbound(filter), convert.Outbound(update))
}

// UpdateMany applies an update document to every match.
func (c *Collection[T]) UpdateMany(ctx context.Context, filter, update any) (*mongo.UpdateResult, error) {
	return c.driver.UpdateMany(ctx, convert.Outbound(filter), convert.Outbound(update))
}

// DeleteOne removes the first document matching the filter.
func (c *Collection[T]) DeleteOne(ctx context.Context, filter any) (*mongo.DeleteResult, error) {
	return c.driver.DeleteOne(ctx, convert.Outbound(filter))
}

// DeleteMany removes every document matching the filter.
func (c *Collection[T]) DeleteMany(ctx context.Context, filter any) (*mongo.DeleteResult, error) {
	return c.driver.DeleteMany(ctx, convert.Outbound(filter))
}

// decode normalizes a raw document and reconstructs it as T.
// Schema validation errors propagate unchanged.
func (c *Collection[T]) decode(raw bson.M) (*T, error) {
	model, err := c.model()
	if err != nil {
		return nil, err
	}
	normalized, ok := convert.Inbound(raw).(bson.M)
	if !ok {
		return nil, fmt.Errorf("driver returned non-document value %T", raw)
	}
	out := new(T)
	if err := model.Decode(normalized, out); err != nil {
		return nil, err
	}
	return out, nil
}
