// Package memory implements core.Driver against an in-process document
// store. It exists for tests and examples: it supports the slice of
// the query surface the typed layer exercises (top-level equality,
// $eq, $in and $set updates) and nothing more.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/marldb/marl/pkg/core"
)

// Driver is an in-memory core.Driver. Safe for concurrent use.
type Driver struct {
	mu   sync.RWMutex
	docs []bson.M
}

// New returns an empty in-memory driver.
func New() *Driver {
	return &Driver{}
}

// Len reports the number of stored documents.
func (d *Driver) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.docs)
}

// InsertOne stores a single document, assigning an ObjectID identity
// if the document carries none.
func (d *Driver) InsertOne(ctx context.Context, document any) (*mongo.InsertOneResult, error) {
	doc, err := asDocument(document)
	if err != nil {
		return nil, err
	}
	if _, ok := doc[core.IdentityKey]; !ok {
		doc[core.IdentityKey] = primitive.NewObjectID()
	}
	d.mu.Lock()
	d.docs = append(d.docs, doc)
	d.mu.Unlock()
	return &mongo.InsertOneResult{InsertedID: doc[core.IdentityKey]}, nil
}

// InsertMany stores a batch of documents in order.
func (d *Driver) InsertMany(ctx context.Context, documents []any) (*mongo.InsertManyResult, error) {
	result := &mongo.InsertManyResult{}
	for _, document := range documents {
		one, err := d.InsertOne(ctx, document)
		if err != nil {
			return result, err
		}
		result.InsertedIDs = append(result.InsertedIDs, one.InsertedID)
	}
	return result, nil
}

// FindOne returns a copy of the first matching document.
func (d *Driver) FindOne(ctx context.Context, filter any) (bson.M, error) {
	f, err := asFilter(filter)
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, doc := range d.docs {
		if matches(doc, f) {
			return deepCopy(doc).(bson.M), nil
		}
	}
	return nil, core.ErrNotFound
}

// Find returns a cursor over copies of all matching documents.
// The result set is a snapshot; later writes are not observed.
func (d *Driver) Find(ctx context.Context, filter any) (core.Cursor, error) {
	f, err := asFilter(filter)
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	var snapshot []bson.M
	for _, doc := range d.docs {
		if matches(doc, f) {
			snapshot = append(snapshot, deepCopy(doc).(bson.M))
		}
	}
	return &cursor{docs: snapshot}, nil
}

// UpdateOne applies a $set update to the first matching document.
func (d *Driver) UpdateOne(ctx context.Context, filter, update any) (*mongo.UpdateResult, error) {
	return d.update(filter, update, 1)
}

// UpdateMany applies a $set update to every matching document.
func (d *Driver) UpdateMany(ctx context.Context, filter, update any) (*mongo.UpdateResult, error) {
	return d.update(filter, update, -1)
}

func (d *Driver) update(filter, update any, limit int) (*mongo.UpdateResult, error) {
	f, err := asFilter(filter)
	if err != nil {
		return nil, err
	}
	set, err := asSetUpdate(update)
	if err != nil {
		return nil, err
	}
	result := &mongo.UpdateResult{}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, doc := range d.docs {
		if limit >= 0 && result.MatchedCount == int64(limit) {
			break
		}
		if !matches(doc, f) {
			continue
		}
		result.MatchedCount++
		modified := false
		for k, v := range set {
			if !valueEq(doc[k], v) {
				doc[k] = deepCopy(v)
				modified = true
			}
		}
		if modified {
			result.ModifiedCount++
		}
	}
	return result, nil
}

// DeleteOne removes the first matching document.
func (d *Driver) DeleteOne(ctx context.Context, filter any) (*mongo.DeleteResult, error) {
	return d.delete(filter, 1)
}

// DeleteMany removes every matching document.
func (d *Driver) DeleteMany(ctx context.Context, filter any) (*mongo.DeleteResult, error) {
	return d.delete(filter, -1)
}

func (d *Driver) delete(filter any, limit int) (*mongo.DeleteResult, error) {
	f, err := asFilter(filter)
	if err != nil {
		return nil, err
	}
	result := &mongo.DeleteResult{}
	d.mu.Lock()
	defer d.mu.Unlock()
	kept := d.docs[:0]
	for _, doc := range d.docs {
		if (limit < 0 || result.DeletedCount < int64(limit)) && matches(doc, f) {
			result.DeletedCount++
			continue
		}
		kept = append(kept, doc)
	}
	d.docs = kept
	return result, nil
}

type cursor struct {
	docs []bson.M
	pos  int
}

func (c *cursor) Next(ctx context.Context) bool {
	if ctx.Err() != nil || c.pos >= len(c.docs) {
		return false
	}
	c.pos++
	return true
}

func (c *cursor) Current() (bson.M, error) {
	if c.pos == 0 || c.pos > len(c.docs) {
		return nil, fmt.Errorf("cursor is not positioned on a document")
	}
	return c.docs[c.pos-1], nil
}

func (c *cursor) Err() error { return nil }

func (c *cursor) Close(ctx context.Context) error { return nil }

func asDocument(v any) (bson.M, error) {
	switch doc := v.(type) {
	case bson.M:
		return deepCopy(doc).(bson.M), nil
	case map[string]any:
		return deepCopy(bson.M(doc)).(bson.M), nil
	case bson.D:
		out := make(bson.M, len(doc))
		for _, e := range doc {
			out[e.Key] = deepCopy(e.Value)
		}
		return out, nil
	}
	return nil, fmt.Errorf("memory driver expects a document mapping, got %T", v)
}

func asFilter(v any) (bson.M, error) {
	if v == nil {
		return bson.M{}, nil
	}
	return asDocument(v)
}

func asSetUpdate(v any) (bson.M, error) {
	doc, err := asDocument(v)
	if err != nil {
		return nil, err
	}
	for op := range doc {
		if op != "$set" {
			return nil, fmt.Errorf("memory driver supports only $set updates, got %q", op)
		}
	}
	set, ok := doc["$set"].(bson.M)
	if !ok {
		return nil, fmt.Errorf("$set requires a document mapping")
	}
	return set, nil
}

func matches(doc, filter bson.M) bool {
	for key, want := range filter {
		got, present := doc[key]
		if !matchValue(got, present, want) {
			return false
		}
	}
	return true
}

func matchValue(got any, present bool, want any) bool {
	if ops, ok := want.(bson.M); ok && isOperatorDoc(ops) {
		for op, arg := range ops {
			switch op {
			case "$eq":
				if !present || !valueEq(got, arg) {
					return false
				}
			case "$ne":
				if present && valueEq(got, arg) {
					return false
				}
			case "$in":
				list, ok := arg.(bson.A)
				if !ok || !present {
					return false
				}
				found := false
				for _, candidate := range list {
					if valueEq(got, candidate) {
						found = true
						break
					}
				}
				if !found {
					return false
				}
			default:
				// Unsupported operator never matches; tests should
				// notice instead of silently passing.
				return false
			}
		}
		return true
	}
	return present && valueEq(got, want)
}

func isOperatorDoc(m bson.M) bool {
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return len(m) > 0
}

// valueEq compares two converted (storage-form) values.
func valueEq(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

func deepCopy(v any) any {
	switch val := v.(type) {
	case bson.M:
		out := make(bson.M, len(val))
		for k, elem := range val {
			out[k] = deepCopy(elem)
		}
		return out
	case bson.A:
		out := make(bson.A, len(val))
		for i, elem := range val {
			out[i] = deepCopy(elem)
		}
		return out
	case primitive.Binary:
		return primitive.Binary{Subtype: val.Subtype, Data: append([]byte(nil), val.Data...)}
	case []byte:
		return append([]byte(nil), val...)
	}
	return v
}
