// Package convert implements the bidirectional value-conversion engine.
//
// Outbound rewrites an application-level value tree into the storage
// engine's primitive form; Inbound restores the canonical in-memory
// form of values read back. Both functions are pure: they allocate
// fresh output structures, never mutate their input, and are safe for
// concurrent use without coordination.
package convert

import (
	"net/url"
	"reflect"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/marldb/marl/pkg/core"
	"github.com/marldb/marl/pkg/schema"
)

// Outbound recursively converts a value for storage.
//
// Rules, first match wins:
//   - keyed mappings (bson.M, map[string]any, bson.D, generic
//     string-keyed maps) recurse into their values
//   - sequences (bson.A, []any, slices, arrays) and set-like maps
//     (map[K]struct{}) become a bson.A with converted elements; set
//     iteration order is unspecified
//   - structs and non-nil struct pointers dump to an alias-keyed
//     mapping via their model and the mapping is converted in turn
//   - uuid.UUID becomes a binary value with the UUID subtype
//   - named scalar types (enumerations) flatten to their underlying
//     primitive value
//   - time.Time becomes the engine's canonical UTC datetime
//   - url.URL and *url.URL become their string rendering
//   - anything else (strings, numbers, booleans, nil, []byte and
//     already-native bson values) passes through unchanged
func Outbound(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case bson.M:
		return outboundMap(v)
	case map[string]any:
		return outboundMap(v)
	case bson.D:
		out := make(bson.D, len(v))
		for i, e := range v {
			out[i] = bson.E{Key: e.Key, Value: Outbound(e.Value)}
		}
		return out
	case bson.A:
		return outboundSeq(v)
	case []any:
		return outboundSeq(v)
	case uuid.UUID:
		return primitive.Binary{
			Subtype: core.BinarySubtypeUUID,
			Data:    append([]byte(nil), v[:]...),
		}
	case *uuid.UUID:
		if v == nil {
			return nil
		}
		return Outbound(*v)
	case time.Time:
		// The engine stores datetimes as zone-free UTC milliseconds.
		return primitive.NewDateTimeFromTime(v)
	case *time.Time:
		if v == nil {
			return nil
		}
		return primitive.NewDateTimeFromTime(*v)
	case url.URL:
		return v.String()
	case *url.URL:
		if v == nil {
			return nil
		}
		return v.String()
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		[]byte,
		primitive.Binary, primitive.DateTime, primitive.ObjectID,
		primitive.Decimal128, primitive.Regex, primitive.Timestamp,
		primitive.Null:
		return value
	}
	return outboundReflect(reflect.ValueOf(value))
}

func outboundMap(m map[string]any) bson.M {
	out := make(bson.M, len(m))
	for k, v := range m {
		out[k] = Outbound(v)
	}
	return out
}

func outboundSeq(s []any) bson.A {
	out := make(bson.A, len(s))
	for i, v := range s {
		out[i] = Outbound(v)
	}
	return out
}

var emptyStructType = reflect.TypeOf(struct{}{})

var builtinByKind = map[reflect.Kind]reflect.Type{
	reflect.Bool:    reflect.TypeOf(false),
	reflect.String:  reflect.TypeOf(""),
	reflect.Int:     reflect.TypeOf(int(0)),
	reflect.Int8:    reflect.TypeOf(int8(0)),
	reflect.Int16:   reflect.TypeOf(int16(0)),
	reflect.Int32:   reflect.TypeOf(int32(0)),
	reflect.Int64:   reflect.TypeOf(int64(0)),
	reflect.Uint:    reflect.TypeOf(uint(0)),
	reflect.Uint8:   reflect.TypeOf(uint8(0)),
	reflect.Uint16:  reflect.TypeOf(uint16(0)),
	reflect.Uint32:  reflect.TypeOf(uint32(0)),
	reflect.Uint64:  reflect.TypeOf(uint64(0)),
	reflect.Float32: reflect.TypeOf(float32(0)),
	reflect.Float64: reflect.TypeOf(float64(0)),
}

// outboundReflect handles the open-ended shapes the concrete type
// switch cannot enumerate: generic maps, slices, arrays, structs and
// named scalar types.
func outboundReflect(rv reflect.Value) any {
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return Outbound(rv.Elem().Interface())

	case reflect.Map:
		if rv.Type().Elem() == emptyStructType {
			// Set idiom: map[K]struct{} flattens to a sequence of
			// converted keys. The original container kind is not
			// round-tripped and the order is unspecified.
			out := make(bson.A, 0, rv.Len())
			for it := rv.MapRange(); it.Next(); {
				out = append(out, Outbound(it.Key().Interface()))
			}
			return out
		}
		if rv.Type().Key().Kind() == reflect.String {
			out := make(bson.M, rv.Len())
			for it := rv.MapRange(); it.Next(); {
				out[it.Key().String()] = Outbound(it.Value().Interface())
			}
			return out
		}
		// Non-string keys have no storage representation; leave the
		// value for the driver to reject.
		return rv.Interface()

	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			// Named byte slices stay binary.
			return rv.Interface()
		}
		return outboundElems(rv)

	case reflect.Array:
		return outboundElems(rv)

	case reflect.Struct:
		model, err := schema.ResolveType(rv.Type())
		if err != nil {
			return rv.Interface()
		}
		doc, err := model.Dump(rv.Interface())
		if err != nil {
			return rv.Interface()
		}
		// Recurse through the dumped mapping, not the struct itself,
		// so alias renaming cascades into nested records.
		return outboundMap(doc)
	}

	// Named scalar types (enumerations) flatten to their underlying
	// builtin value, never their symbolic name.
	if builtin, ok := builtinByKind[rv.Kind()]; ok {
		return rv.Convert(builtin).Interface()
	}
	return rv.Interface()
}

func outboundElems(rv reflect.Value) bson.A {
	out := make(bson.A, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = Outbound(rv.Index(i).Interface())
	}
	return out
}
