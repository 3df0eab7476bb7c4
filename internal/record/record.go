package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"
)

// Fields holds the scalar values of a record keyed by field name.
// Values are string, json.Number, float64, bool or nil.
type Fields map[string]any

// Record is one athlete or order as held by the remote store.
type Record struct {
	ID        string     // Canonical identifier (see CanonicalID)
	Fields    Fields     // Everything except id and the creation timestamp
	CreatedAt *time.Time // Nil when the remote store does not report one
}

// Collection is an ordered set of records as returned by the remote store.
type Collection []Record

// Clone returns a deep copy of the fields.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	return maps.Clone(f)
}

// Merge overwrites the keys present in patch and leaves the others untouched.
func (f Fields) Merge(patch Fields) Fields {
	out := f.Clone()
	if out == nil {
		out = make(Fields, len(patch))
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// String returns the display form of a field. Missing fields and nil
// values are rendered as the empty string.
func (f Fields) String(name string) string {
	switch v := f[name].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := Record{ID: r.ID, Fields: r.Fields.Clone()}
	if r.CreatedAt != nil {
		t := *r.CreatedAt
		out.CreatedAt = &t
	}
	return out
}

// Get is shorthand for r.Fields.String(name).
func (r Record) Get(name string) string {
	return r.Fields.String(name)
}

// Clone returns a deep copy of the collection. A nil collection clones to nil.
func (c Collection) Clone() Collection {
	if c == nil {
		return nil
	}
	out := make(Collection, len(c))
	for i, r := range c {
		out[i] = r.Clone()
	}
	return out
}

// IndexOf returns the position of the record whose canonical id equals
// CanonicalID(id), or -1.
func (c Collection) IndexOf(id any) int {
	want := CanonicalID(id)
	if want == "" {
		return -1
	}
	for i, r := range c {
		if CanonicalID(r.ID) == want {
			return i
		}
	}
	return -1
}

// Find returns the record with the given id.
func (c Collection) Find(id any) (Record, bool) {
	i := c.IndexOf(id)
	if i < 0 {
		return Record{}, false
	}
	return c[i], true
}

// IDs returns the identifiers in collection order.
func (c Collection) IDs() []string {
	ids := make([]string, len(c))
	for i, r := range c {
		ids[i] = r.ID
	}
	return ids
}

// reservedKeys are the row keys lifted out of Fields during decoding.
var reservedKeys = map[string]bool{"id": true, "createdAt": true, "timestamp": true}

// FromRow builds a record from one decoded JSON object of the remote store.
// Numbers must have been decoded as json.Number so large ids keep every digit.
func FromRow(row map[string]any) Record {
	r := Record{ID: CanonicalID(row["id"]), Fields: make(Fields, len(row))}
	for k, v := range row {
		if reservedKeys[k] {
			continue
		}
		r.Fields[k] = v
	}
	if ts, ok := parseTimestamp(row["createdAt"]); ok {
		r.CreatedAt = &ts
	} else if ts, ok := parseTimestamp(row["timestamp"]); ok {
		r.CreatedAt = &ts
	}
	return r
}

// MarshalJSON renders the record as a flat row, the shape the remote store uses.
func (r Record) MarshalJSON() ([]byte, error) {
	row := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		row[k] = v
	}
	row["id"] = r.ID
	if r.CreatedAt != nil {
		row["createdAt"] = r.CreatedAt.UnixMilli()
	}
	return json.Marshal(row)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var row map[string]any
	if err := dec.Decode(&row); err != nil {
		return err
	}
	*r = FromRow(row)
	return nil
}

// parseTimestamp accepts epoch milliseconds or an RFC 3339 string.
func parseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case json.Number:
		ms, err := t.Int64()
		if err != nil {
			f, ferr := t.Float64()
			if ferr != nil {
				return time.Time{}, false
			}
			ms = int64(f)
		}
		return time.UnixMilli(ms).UTC(), true
	case float64:
		return time.UnixMilli(int64(t)).UTC(), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return ts.UTC(), true
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), true
		}
	}
	return time.Time{}, false
}
