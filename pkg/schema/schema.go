// Package schema resolves Go struct types into document model
// descriptors: the list of fields, their storage aliases and the
// identity field. Resolution happens once per type and is cached
// process-wide, so a collection handle can look up its model lazily
// without paying reflection costs per operation.
package schema

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/marldb/marl/pkg/core"
)

// Field describes one stored field of a document model.
type Field struct {
	Name      string // Go field name
	Alias     string // key used in the storage representation
	Index     []int  // reflect index path (depth > 1 for inlined structs)
	OmitEmpty bool
}

// Model is the resolved schema of a document struct type.
type Model struct {
	Type     reflect.Type
	Fields   []Field
	identity int // index into Fields, -1 if the model has no identity field
	byAlias  map[string]int
}

// Identity returns the field aliased to the engine's identity key,
// or nil if the model does not declare one.
func (m *Model) Identity() *Field {
	if m.identity < 0 {
		return nil
	}
	return &m.Fields[m.identity]
}

var models sync.Map // reflect.Type -> *Model

// Resolve returns the model descriptor for the document type T.
// It fails if T is not a struct type (or pointer to one): the typed
// layer cannot reconstruct documents without a concrete model.
func Resolve[T any]() (*Model, error) {
	return ResolveType(reflect.TypeFor[T]())
}

// ResolveType is the non-generic form of Resolve.
func ResolveType(t reflect.Type) (*Model, error) {
	orig := t
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		name := "<nil>"
		if orig != nil {
			name = orig.String()
		}
		return nil, fmt.Errorf(
			"cannot determine document model for %s: parameterize the collection with a struct type, e.g. NewCollection[User](driver)",
			name)
	}
	if cached, ok := models.Load(t); ok {
		return cached.(*Model), nil
	}
	m, err := build(t)
	if err != nil {
		return nil, err
	}
	// Concurrent first resolutions may race; both compute the same
	// model and the loser is discarded.
	actual, _ := models.LoadOrStore(t, m)
	return actual.(*Model), nil
}

func build(t reflect.Type) (*Model, error) {
	m := &Model{Type: t, identity: -1}
	if err := collectFields(t, nil, &m.Fields); err != nil {
		return nil, fmt.Errorf("model %s: %w", t, err)
	}
	m.byAlias = make(map[string]int, len(m.Fields))
	for i, f := range m.Fields {
		if _, dup := m.byAlias[f.Alias]; dup {
			return nil, fmt.Errorf("model %s: duplicate storage alias %q", t, f.Alias)
		}
		m.byAlias[f.Alias] = i
		if f.Alias == core.IdentityKey {
			m.identity = i
		}
	}
	return m, nil
}

func collectFields(t reflect.Type, index []int, out *[]Field) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		alias, opts := parseTag(sf.Tag.Get("bson"))
		if alias == "-" {
			continue
		}
		idx := append(append([]int(nil), index...), i)
		if opts.inline {
			if sf.Type.Kind() != reflect.Struct {
				return fmt.Errorf("field %s: inline requires an embedded struct", sf.Name)
			}
			if err := collectFields(sf.Type, idx, out); err != nil {
				return err
			}
			continue
		}
		if alias == "" {
			// mongo-driver convention for untagged fields.
			alias = strings.ToLower(sf.Name)
		}
		*out = append(*out, Field{
			Name:      sf.Name,
			Alias:     alias,
			Index:     idx,
			OmitEmpty: opts.omitEmpty,
		})
	}
	return nil
}

type tagOptions struct {
	omitEmpty bool
	inline    bool
}

func parseTag(tag string) (string, tagOptions) {
	if tag == "" {
		return "", tagOptions{}
	}
	parts := strings.Split(tag, ",")
	var opts tagOptions
	for _, p := range parts[1:] {
		switch p {
		case "omitempty":
			opts.omitEmpty = true
		case "inline":
			opts.inline = true
		}
	}
	return parts[0], opts
}

// Dump serializes a struct (or pointer to struct) of the model's type
// into an alias-keyed document. Field values are copied as-is; value
// conversion is the conversion engine's job, not the schema's.
func (m *Model) Dump(v any) (bson.M, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("cannot dump nil %s", m.Type)
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() || rv.Type() != m.Type {
		return nil, fmt.Errorf("cannot dump %T as %s", v, m.Type)
	}
	out := make(bson.M, len(m.Fields))
	for i := range m.Fields {
		f := &m.Fields[i]
		fv := rv.FieldByIndex(f.Index)
		if f.OmitEmpty && fv.IsZero() {
			continue
		}
		out[f.Alias] = fv.Interface()
	}
	return out, nil
}
