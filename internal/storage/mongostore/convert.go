package mongostore

import (
	"encoding/json"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"journal-service/internal/trips"
)

// toDoc converts a record to an ordered BSON document.
func toDoc(rec *trips.Record) bson.D {
	keys := rec.Keys()
	d := make(bson.D, 0, len(keys))
	for _, k := range keys {
		v, _ := rec.Get(k)
		d = append(d, bson.E{Key: k, Value: toBSON(v)})
	}
	return d
}

func toBSON(v any) any {
	switch t := v.(type) {
	case *trips.Record:
		return toDoc(t)
	case []any:
		a := make(bson.A, len(t))
		for i, e := range t {
			a[i] = toBSON(e)
		}
		return a
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}

// fromDoc converts a stored document back to a record.
func fromDoc(d bson.D) *trips.Record {
	rec := trips.NewRecord()
	for _, e := range d {
		rec.Set(e.Key, fromBSON(e.Value))
	}
	return rec
}

func fromBSON(v any) any {
	switch t := v.(type) {
	case bson.D:
		return fromDoc(t)
	case bson.M:
		rec := trips.NewRecord()
		for k, e := range t {
			rec.Set(k, fromBSON(e))
		}
		return rec
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = fromBSON(e)
		}
		return out
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	case int32:
		return int64(t)
	default:
		return v
	}
}
