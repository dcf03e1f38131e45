package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RawItem is one untyped result row from a provider call. Keys keep the
// order in which the provider sent them. Missing keys read as "".
type RawItem struct {
	keys   []string
	values map[string]string
}

func NewRawItem() *RawItem {
	return &RawItem{values: make(map[string]string)}
}

// RawItemFromPairs builds an item from alternating key/value arguments.
func RawItemFromPairs(pairs ...string) *RawItem {
	item := NewRawItem()
	for i := 0; i+1 < len(pairs); i += 2 {
		item.Set(pairs[i], pairs[i+1])
	}
	return item
}

func (r *RawItem) Set(key, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

func (r *RawItem) Get(key string) string {
	if r == nil {
		return ""
	}
	return r.values[key]
}

func (r *RawItem) Lookup(key string) (string, bool) {
	if r == nil {
		return "", false
	}
	value, ok := r.values[key]
	return value, ok
}

func (r *RawItem) Keys() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}

func (r *RawItem) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *RawItem) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to read item: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("%w: item is not an object", ErrMalformedReply)
	}

	r.keys = nil
	r.values = make(map[string]string)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to read item key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("%w: unexpected key token %v", ErrMalformedReply, keyTok)
		}

		valueTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to read value for %q: %w", key, err)
		}
		value, ok := valueTok.(string)
		if !ok {
			return fmt.Errorf("%w: value for %q is not a string", ErrMalformedReply, key)
		}

		r.Set(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to close item: %w", err)
	}

	return nil
}
