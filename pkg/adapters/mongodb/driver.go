// Package mongodb adapts a mongo-driver collection to core.Driver.
// It is deliberately thin: conversion, pooling, retries and sessions
// all belong elsewhere (the typed layer above, the driver below).
package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/marldb/marl/pkg/core"
)

// Driver wraps a *mongo.Collection as a core.Driver.
type Driver struct {
	coll *mongo.Collection
}

// New returns a driver backed by the given collection.
func New(coll *mongo.Collection) *Driver {
	return &Driver{coll: coll}
}

// Collection returns the wrapped mongo collection.
func (d *Driver) Collection() *mongo.Collection { return d.coll }

func (d *Driver) InsertOne(ctx context.Context, document any) (*mongo.InsertOneResult, error) {
	return d.coll.InsertOne(ctx, document)
}

func (d *Driver) InsertMany(ctx context.Context, documents []any) (*mongo.InsertManyResult, error) {
	return d.coll.InsertMany(ctx, documents)
}

func (d *Driver) FindOne(ctx context.Context, filter any) (bson.M, error) {
	var doc bson.M
	err := d.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *Driver) Find(ctx context.Context, filter any) (core.Cursor, error) {
	cur, err := d.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &cursor{cur: cur}, nil
}

func (d *Driver) UpdateOne(ctx context.Context, filter, update any) (*mongo.UpdateResult, error) {
	return d.coll.UpdateOne(ctx, filter, update)
}

func (d *Driver) UpdateMany(ctx context.Context, filter, update any) (*mongo.UpdateResult, error) {
	return d.coll.UpdateMany(ctx, filter, update)
}

func (d *Driver) DeleteOne(ctx context.Context, filter any) (*mongo.DeleteResult, error) {
	return d.coll.DeleteOne(ctx, filter)
}

func (d *Driver) DeleteMany(ctx context.Context, filter any) (*mongo.DeleteResult, error) {
	return d.coll.DeleteMany(ctx, filter)
}

type cursor struct {
	cur *mongo.Cursor
}

func (c *cursor) Next(ctx context.Context) bool {
	return c.cur.Next(ctx)
}

func (c *cursor) Current() (bson.M, error) {
	var doc bson.M
	if err := c.cur.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *cursor) Err() error { return c.cur.Err() }

func (c *cursor) Close(ctx context.Context) error { return c.cur.Close(ctx) }
