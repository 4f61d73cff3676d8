package convert

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Inbound recursively normalizes a value tree read back from storage.
// Mappings and sequences are rebuilt with converted elements, and
// engine datetimes become timezone-aware time.Time values in UTC.
// Every other value, binary identifiers included, passes through
// unchanged; reconstructing a typed record from the resulting mapping
// is the caller's job.
func Inbound(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case bson.M:
		return inboundMap(v)
	case map[string]any:
		return inboundMap(v)
	case bson.D:
		out := make(bson.D, len(v))
		for i, e := range v {
			out[i] = bson.E{Key: e.Key, Value: Inbound(e.Value)}
		}
		return out
	case bson.A:
		return inboundSeq(v)
	case []any:
		return inboundSeq(v)
	case primitive.DateTime:
		return v.Time().UTC()
	}
	return value
}

func inboundMap(m map[string]any) bson.M {
	out := make(bson.M, len(m))
	for k, v := range m {
		out[k] = Inbound(v)
	}
	return out
}

func inboundSeq(s []any) bson.A {
	out := make(bson.A, len(s))
	for i, v := range s {
		out[i] = Inbound(v)
	}
	return out
}
