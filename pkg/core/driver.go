package core

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Driver defines the contract for a document storage backend.
// Adhering to this interface keeps the typed layer independent of the
// underlying engine (a real MongoDB deployment, an in-memory fake, a
// recording proxy for tests, etc). Implementations receive values that
// have already been through outbound conversion and return raw
// documents exactly as the engine produced them.
type Driver interface {
	// InsertOne stores a single document.
	InsertOne(ctx context.Context, document any) (*mongo.InsertOneResult, error)

	// InsertMany stores a batch of documents in order.
	InsertMany(ctx context.Context, documents []any) (*mongo.InsertManyResult, error)

	// FindOne returns the first document matching the filter,
	// or ErrNotFound if nothing matches.
	FindOne(ctx context.Context, filter any) (bson.M, error)

	// Find returns a cursor over all documents matching the filter.
	Find(ctx context.Context, filter any) (Cursor, error)

	// UpdateOne applies an update document to the first match.
	UpdateOne(ctx context.Context, filter, update any) (*mongo.UpdateResult, error)

	// UpdateMany applies an update document to every match.
	UpdateMany(ctx context.Context, filter, update any) (*mongo.UpdateResult, error)

	// DeleteOne removes the first document matching the filter.
	DeleteOne(ctx context.Context, filter any) (*mongo.DeleteResult, error)

	// DeleteMany removes every document matching the filter.
	DeleteMany(ctx context.Context, filter any) (*mongo.DeleteResult, error)
}

// Cursor is a forward-only stream of raw documents.
// It mirrors the shape of the driver's own cursor so adapters stay thin.
type Cursor interface {
	// Next advances the cursor. It returns false when the stream is
	// exhausted or the context is done; check Err afterwards.
	Next(ctx context.Context) bool

	// Current decodes the document the cursor is positioned on.
	Current() (bson.M, error)

	// Err reports the error that terminated iteration, if any.
	Err() error

	// Close releases resources held by the cursor.
	Close(ctx context.Context) error
}
