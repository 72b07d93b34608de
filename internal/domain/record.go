package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Record is a single row of a rankable dataset. Fields are addressed by name;
// identity is the record's position in its dataset.
type Record interface {
	// Field returns the value stored under name and whether the field exists
	// in the record's schema. A field may exist with a nil value.
	Field(name string) (any, bool)

	// SetField stores v under name, adding the field if needed.
	SetField(name string, v any)

	// Clone returns an independent copy of the record.
	Clone() Record
}

// MapRecord is an ordered, map-backed Record. Field order is the insertion
// order and is preserved through JSON encoding.
type MapRecord struct {
	keys   []string
	values map[string]any
}

// NewMapRecord creates a MapRecord from alternating name/value pairs.
// A trailing name without a value is stored as nil.
func NewMapRecord(pairs ...any) *MapRecord {
	r := &MapRecord{values: make(map[string]any, len(pairs)/2)}
	for i := 0; i < len(pairs); i += 2 {
		name := fmt.Sprint(pairs[i])
		var v any
		if i+1 < len(pairs) {
			v = pairs[i+1]
		}
		r.SetField(name, v)
	}
	return r
}

// MapRecordFromMap creates a MapRecord from a plain map. Go maps are unordered,
// so fields are laid out in lexical order.
func MapRecordFromMap(m map[string]any) *MapRecord {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	r := &MapRecord{keys: keys, values: make(map[string]any, len(m))}
	for _, k := range keys {
		r.values[k] = m[k]
	}
	return r
}

// Field implements Record.
func (r *MapRecord) Field(name string) (any, bool) {
	if r == nil || r.values == nil {
		return nil, false
	}
	v, ok := r.values[name]
	return v, ok
}

// SetField implements Record.
func (r *MapRecord) SetField(name string, v any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[name]; !ok {
		r.keys = append(r.keys, name)
	}
	r.values[name] = v
}

// Clone implements Record. Values are copied shallowly.
func (r *MapRecord) Clone() Record {
	c := &MapRecord{
		keys:   append([]string(nil), r.keys...),
		values: make(map[string]any, len(r.values)),
	}
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// Keys returns the field names in order.
func (r *MapRecord) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Len returns the number of fields.
func (r *MapRecord) Len() int {
	return len(r.keys)
}

// MarshalJSON encodes the record as a JSON object in field order.
func (r *MapRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("marshal field %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the document's field order.
func (r *MapRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record must be a JSON object")
	}

	r.keys = nil
	r.values = make(map[string]any)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("decode field %q: %w", key, err)
		}
		r.SetField(key, v)
	}
	_, err = dec.Token()
	return err
}
