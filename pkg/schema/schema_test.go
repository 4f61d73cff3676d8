package schema

import (
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/marldb/marl/pkg/core"
)

type role string

type address struct {
	City string `bson:"city"`
	Zip  string `bson:"zip"`
}

type user struct {
	ID      uuid.UUID           `bson:"_id"`
	Name    string              `bson:"name"`
	Age     int                 `bson:"age,omitempty"`
	Role    role                `bson:"role"`
	Home    address             `bson:"home"`
	Roles   map[role]struct{}   `bson:"roles"`
	Tags    []string            `bson:"tags"`
	Seen    time.Time           `bson:"seen"`
	Site    url.URL             `bson:"site"`
	Note    *string             `bson:"note"`
	Skipped string              `bson:"-"`
	Untagged string
}

type Stamps struct {
	Created time.Time `bson:"created"`
}

type inlined struct {
	ID     string `bson:"_id"`
	Stamps `bson:",inline"`
}

func TestResolveFields(t *testing.T) {
	m, err := Resolve[user]()
	if err != nil {
		t.Fatal(err)
	}

	byAlias := map[string]Field{}
	for _, f := range m.Fields {
		byAlias[f.Alias] = f
	}

	if _, ok := byAlias["_id"]; !ok {
		t.Error("missing _id field")
	}
	if f, ok := byAlias["age"]; !ok || !f.OmitEmpty {
		t.Errorf("age = %+v, want omitempty", f)
	}
	if _, ok := byAlias["Skipped"]; ok {
		t.Error("tagged-out field was resolved")
	}
	if _, ok := byAlias["skipped"]; ok {
		t.Error("tagged-out field was resolved under lowercased name")
	}
	if f, ok := byAlias["untagged"]; !ok || f.Name != "Untagged" {
		t.Errorf("untagged field = %+v, want lowercased alias", f)
	}

	id := m.Identity()
	if id == nil || id.Name != "ID" || id.Alias != core.IdentityKey {
		t.Errorf("Identity() = %+v, want the _id field", id)
	}
}

func TestResolveNoIdentity(t *testing.T) {
	type plain struct {
		Name string `bson:"name"`
	}
	m, err := Resolve[plain]()
	if err != nil {
		t.Fatal(err)
	}
	if m.Identity() != nil {
		t.Errorf("Identity() = %+v, want nil", m.Identity())
	}
}

func TestResolveInline(t *testing.T) {
	m, err := Resolve[inlined]()
	if err != nil {
		t.Fatal(err)
	}
	byAlias := map[string]Field{}
	for _, f := range m.Fields {
		byAlias[f.Alias] = f
	}
	f, ok := byAlias["created"]
	if !ok {
		t.Fatal("inlined field not resolved")
	}
	if len(f.Index) != 2 {
		t.Errorf("index path = %v, want depth 2", f.Index)
	}
}

func TestResolvePointerType(t *testing.T) {
	m, err := Resolve[*user]()
	if err != nil {
		t.Fatal(err)
	}
	if m.Type != reflect.TypeFor[user]() {
		t.Errorf("resolved type = %s, want user", m.Type)
	}
}

func TestResolveNonStruct(t *testing.T) {
	tests := []struct {
		name string
		fn   func() (*Model, error)
	}{
		{"map", func() (*Model, error) { return Resolve[bson.M]() }},
		{"slice", func() (*Model, error) { return Resolve[[]string]() }},
		{"scalar", func() (*Model, error) { return Resolve[int]() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fn()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), "cannot determine document model") {
				t.Errorf("error = %v, want model-resolution message", err)
			}
		})
	}
}

func TestResolveDuplicateAlias(t *testing.T) {
	type clash struct {
		A string `bson:"x"`
		B string `bson:"x"`
	}
	_, err := Resolve[clash]()
	if err == nil || !strings.Contains(err.Error(), "duplicate storage alias") {
		t.Errorf("error = %v, want duplicate alias error", err)
	}
}

func TestResolveCaches(t *testing.T) {
	m1, err := Resolve[address]()
	if err != nil {
		t.Fatal(err)
	}
	m2, err := Resolve[address]()
	if err != nil {
		t.Fatal(err)
	}
	if m1 != m2 {
		t.Error("repeated resolution returned distinct models")
	}
}

func TestDump(t *testing.T) {
	m, err := Resolve[user]()
	if err != nil {
		t.Fatal(err)
	}

	u := user{ID: uuid.New(), Name: "Alice", Role: "admin"}
	doc, err := m.Dump(u)
	if err != nil {
		t.Fatal(err)
	}

	if doc["name"] != "Alice" {
		t.Errorf("name = %v", doc["name"])
	}
	if doc["_id"] != u.ID {
		t.Errorf("_id = %v, want raw uuid", doc["_id"])
	}
	if _, ok := doc["age"]; ok {
		t.Error("zero omitempty field was dumped")
	}

	u.Age = 30
	doc, err = m.Dump(&u)
	if err != nil {
		t.Fatal(err)
	}
	if doc["age"] != 30 {
		t.Errorf("age = %v, want 30", doc["age"])
	}
}

func TestDumpWrongType(t *testing.T) {
	m, err := Resolve[user]()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Dump(address{}); err == nil {
		t.Error("expected an error dumping a foreign type")
	}
	var nilUser *user
	if _, err := m.Dump(nilUser); err == nil {
		t.Error("expected an error dumping a nil pointer")
	}
}

func TestDecode(t *testing.T) {
	m, err := Resolve[user]()
	if err != nil {
		t.Fatal(err)
	}

	id := uuid.New()
	seen := time.Date(2023, 5, 1, 9, 0, 0, 0, time.UTC)
	doc := bson.M{
		"_id":   primitive.Binary{Subtype: core.BinarySubtypeUUID, Data: id[:]},
		"name":  "Alice",
		"age":   int32(30),
		"role":  "admin",
		"home":  bson.M{"city": "Utrecht", "zip": "3511"},
		"roles": bson.A{"admin", "editor"},
		"tags":  bson.A{"a", "b"},
		"seen":  primitive.NewDateTimeFromTime(seen),
		"site":  "https://example.com/x",
		"note":  "hi",
		"extra": "ignored",
	}

	var u user
	if err := m.Decode(doc, &u); err != nil {
		t.Fatal(err)
	}

	if u.ID != id {
		t.Errorf("ID = %s, want %s", u.ID, id)
	}
	if u.Name != "Alice" || u.Age != 30 || u.Role != "admin" {
		t.Errorf("scalars = %q/%d/%q", u.Name, u.Age, u.Role)
	}
	if u.Home.City != "Utrecht" {
		t.Errorf("nested record = %+v", u.Home)
	}
	want := map[role]struct{}{"admin": {}, "editor": {}}
	if !reflect.DeepEqual(u.Roles, want) {
		t.Errorf("set = %v, want %v", u.Roles, want)
	}
	if !reflect.DeepEqual(u.Tags, []string{"a", "b"}) {
		t.Errorf("tags = %v", u.Tags)
	}
	if !u.Seen.Equal(seen) || u.Seen.Location() != time.UTC {
		t.Errorf("seen = %v, want %v UTC", u.Seen, seen)
	}
	if u.Site.String() != "https://example.com/x" {
		t.Errorf("site = %v", u.Site.String())
	}
	if u.Note == nil || *u.Note != "hi" {
		t.Errorf("note = %v, want pointer to hi", u.Note)
	}
}

func TestDecodeMissingAndNil(t *testing.T) {
	m, err := Resolve[user]()
	if err != nil {
		t.Fatal(err)
	}
	var u user
	u.Name = "stale"
	if err := m.Decode(bson.M{"note": nil}, &u); err != nil {
		t.Fatal(err)
	}
	if u.Name != "stale" {
		t.Error("absent key overwrote the field")
	}
	if u.Note != nil {
		t.Errorf("note = %v, want nil after explicit null", u.Note)
	}
}

func TestDecodeFieldError(t *testing.T) {
	m, err := Resolve[user]()
	if err != nil {
		t.Fatal(err)
	}
	var u user
	err = m.Decode(bson.M{"seen": "not a datetime", "name": "x"}, &u)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), `field Seen ("seen")`) {
		t.Errorf("error = %v, want the field named", err)
	}
}

func TestDecodeBadTarget(t *testing.T) {
	m, err := Resolve[user]()
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Decode(bson.M{}, user{}); err == nil {
		t.Error("expected an error for non-pointer target")
	}
	var a address
	if err := m.Decode(bson.M{}, &a); err == nil {
		t.Error("expected an error for mismatched target type")
	}
}

func TestDecodeInline(t *testing.T) {
	m, err := Resolve[inlined]()
	if err != nil {
		t.Fatal(err)
	}
	created := time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC)
	var v inlined
	doc := bson.M{"_id": "a", "created": primitive.NewDateTimeFromTime(created)}
	if err := m.Decode(doc, &v); err != nil {
		t.Fatal(err)
	}
	if !v.Created.Equal(created) {
		t.Errorf("created = %v, want %v", v.Created, created)
	}
}
