package schema

import (
	"fmt"
	"net/url"
	"reflect"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/marldb/marl/pkg/core"
)

var (
	timeType        = reflect.TypeOf(time.Time{})
	uuidType        = reflect.TypeOf(uuid.UUID{})
	urlType         = reflect.TypeOf(url.URL{})
	emptyStructType = reflect.TypeOf(struct{}{})
)

// Decode populates out, a non-nil pointer to a struct of the model's
// type, from an alias-keyed document. Values are coerced from the
// engine's primitives back into the field types (binary identifiers,
// timestamps, nested documents, sequences, enumerations). Keys present
// in the document but absent from the model are ignored; fields absent
// from the document keep their zero value.
func (m *Model) Decode(doc bson.M, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("decode target must be a non-nil pointer, got %T", out)
	}
	rv = rv.Elem()
	if rv.Type() != m.Type {
		return fmt.Errorf("decode target is %s, model is %s", rv.Type(), m.Type)
	}
	for i := range m.Fields {
		f := &m.Fields[i]
		raw, ok := doc[f.Alias]
		if !ok {
			continue
		}
		if err := assign(rv.FieldByIndex(f.Index), raw); err != nil {
			return fmt.Errorf("field %s (%q): %w", f.Name, f.Alias, err)
		}
	}
	return nil
}

// assign coerces a raw engine value into the destination field.
func assign(dst reflect.Value, raw any) error {
	if raw == nil {
		dst.SetZero()
		return nil
	}
	rv := reflect.ValueOf(raw)
	dt := dst.Type()

	if rv.Type().AssignableTo(dt) {
		dst.Set(rv)
		return nil
	}

	// Pointer fields allocate and decode into the element.
	if dt.Kind() == reflect.Pointer {
		p := reflect.New(dt.Elem())
		if err := assign(p.Elem(), raw); err != nil {
			return err
		}
		dst.Set(p)
		return nil
	}

	switch v := raw.(type) {
	case primitive.Binary:
		if dt == uuidType && v.Subtype == core.BinarySubtypeUUID {
			u, err := uuid.FromBytes(v.Data)
			if err != nil {
				return fmt.Errorf("invalid uuid payload: %w", err)
			}
			dst.Set(reflect.ValueOf(u))
			return nil
		}
		if dt.Kind() == reflect.Slice && dt.Elem().Kind() == reflect.Uint8 {
			dst.SetBytes(append([]byte(nil), v.Data...))
			return nil
		}
		return fmt.Errorf("cannot decode binary (subtype %#x) into %s", v.Subtype, dt)

	case primitive.DateTime:
		if dt == timeType {
			dst.Set(reflect.ValueOf(v.Time().UTC()))
			return nil
		}
		return fmt.Errorf("cannot decode datetime into %s", dt)

	case string:
		if dt == urlType {
			u, err := url.Parse(v)
			if err != nil {
				return fmt.Errorf("invalid url: %w", err)
			}
			dst.Set(reflect.ValueOf(*u))
			return nil
		}
		if dt.Kind() == reflect.String {
			dst.SetString(v)
			return nil
		}

	case bson.M:
		return assignDocument(dst, v)
	case map[string]any:
		return assignDocument(dst, v)
	case bson.D:
		doc := make(bson.M, len(v))
		for _, e := range v {
			doc[e.Key] = e.Value
		}
		return assignDocument(dst, doc)

	case bson.A:
		return assignSequence(dst, v)
	case []any:
		return assignSequence(dst, v)
	}

	if convertible(rv.Type(), dt) {
		dst.Set(rv.Convert(dt))
		return nil
	}
	return fmt.Errorf("cannot decode %T into %s", raw, dt)
}

func assignDocument(dst reflect.Value, doc map[string]any) error {
	dt := dst.Type()
	switch {
	case dt.Kind() == reflect.Struct:
		sub, err := ResolveType(dt)
		if err != nil {
			return err
		}
		return sub.Decode(bson.M(doc), dst.Addr().Interface())
	case dt.Kind() == reflect.Map && dt.Key().Kind() == reflect.String:
		out := reflect.MakeMapWithSize(dt, len(doc))
		for k, elem := range doc {
			ev := reflect.New(dt.Elem()).Elem()
			if err := assign(ev, elem); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			out.SetMapIndex(reflect.ValueOf(k).Convert(dt.Key()), ev)
		}
		dst.Set(out)
		return nil
	}
	return fmt.Errorf("cannot decode document into %s", dt)
}

func assignSequence(dst reflect.Value, seq []any) error {
	dt := dst.Type()
	switch dt.Kind() {
	case reflect.Slice:
		out := reflect.MakeSlice(dt, len(seq), len(seq))
		for i, elem := range seq {
			if err := assign(out.Index(i), elem); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		dst.Set(out)
		return nil
	case reflect.Array:
		if dt.Len() != len(seq) {
			return fmt.Errorf("sequence length %d does not fit array %s", len(seq), dt)
		}
		for i, elem := range seq {
			if err := assign(dst.Index(i), elem); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		return nil
	case reflect.Map:
		// Set-like fields (map[K]struct{}) are stored as sequences.
		if dt.Elem() == emptyStructType {
			out := reflect.MakeMapWithSize(dt, len(seq))
			for i, elem := range seq {
				kv := reflect.New(dt.Key()).Elem()
				if err := assign(kv, elem); err != nil {
					return fmt.Errorf("index %d: %w", i, err)
				}
				out.SetMapIndex(kv, reflect.ValueOf(struct{}{}))
			}
			dst.Set(out)
			return nil
		}
	}
	return fmt.Errorf("cannot decode sequence into %s", dt)
}

// convertible limits reflect.Convert to coercions that are safe for
// document decoding: numeric widening/narrowing and named scalar
// types (enumerations) over the same primitive kind. The general
// ConvertibleTo is too permissive here (it would allow int -> string).
func convertible(src, dst reflect.Type) bool {
	switch {
	case isNumeric(src.Kind()) && isNumeric(dst.Kind()):
		return true
	case src.Kind() == reflect.String && dst.Kind() == reflect.String:
		return true
	case src.Kind() == reflect.Bool && dst.Kind() == reflect.Bool:
		return true
	}
	return false
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
