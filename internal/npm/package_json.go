package npm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// JSONObject is a JSON object that keeps the order of its keys. Nested
// objects decode as JSONObject too.
type JSONObject struct {
	keys   []string
	values map[string]any
}

// NewJSONObject creates a new empty JSONObject
func NewJSONObject() *JSONObject {
	return &JSONObject{values: make(map[string]any)}
}

// Len returns the length of the JSON object
func (obj *JSONObject) Len() int {
	return len(obj.keys)
}

// Keys returns the keys of the JSON object in order
func (obj *JSONObject) Keys() []string {
	return obj.keys
}

// Get returns the value of the key in the JSON object
func (obj *JSONObject) Get(key string) (any, bool) {
	v, ok := obj.values[key]
	return v, ok
}

// GetString returns the string value of the key, or "" if the value is not a string.
func (obj *JSONObject) GetString(key string) string {
	if v, ok := obj.values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetObject returns the object value of the key.
func (obj *JSONObject) GetObject(key string) (*JSONObject, bool) {
	switch v := obj.values[key].(type) {
	case *JSONObject:
		return v, true
	case JSONObject:
		return &v, true
	}
	return nil, false
}

// Set sets the value of the key. An existing key keeps its position, a new
// key is appended.
func (obj *JSONObject) Set(key string, value any) {
	if obj.values == nil {
		obj.values = make(map[string]any)
	}
	if _, ok := obj.values[key]; !ok {
		obj.keys = append(obj.keys, key)
	}
	obj.values[key] = value
}

// Delete removes the key from the JSON object.
func (obj *JSONObject) Delete(key string) {
	if _, ok := obj.values[key]; !ok {
		return
	}
	delete(obj.values, key)
	for i, k := range obj.keys {
		if k == key {
			obj.keys = append(obj.keys[:i], obj.keys[i+1:]...)
			break
		}
	}
}

// Clone returns a deep copy of the object. Nested arrays are shared.
func (obj *JSONObject) Clone() *JSONObject {
	c := NewJSONObject()
	for _, key := range obj.keys {
		v := obj.values[key]
		if o, ok := v.(*JSONObject); ok {
			v = o.Clone()
		} else if o, ok := v.(JSONObject); ok {
			v = o.Clone()
		}
		c.Set(key, v)
	}
	return c
}

// MarshalJSON implements type json.Marshaler interface
func (obj JSONObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range obj.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(obj.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements type json.Unmarshaler interface
func (obj *JSONObject) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	// don't convert number to float64
	dec.UseNumber()

	t, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := t.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expect JSON object open with '{'")
	}

	obj.keys = nil
	obj.values = make(map[string]any)
	err = obj.parse(dec)
	if err != nil {
		return err
	}

	t, err = dec.Token()
	if err != io.EOF {
		return fmt.Errorf("expect end of JSON object but got more token: %T: %v or err: %v", t, t, err)
	}

	return nil
}

func (obj *JSONObject) parse(dec *json.Decoder) (err error) {
	var t json.Token
	for dec.More() {
		t, err = dec.Token()
		if err != nil {
			return err
		}

		key, ok := t.(string)
		if !ok {
			return fmt.Errorf("expecting JSON key should be always a string: %T: %v", t, t)
		}

		t, err = dec.Token()
		if err == io.EOF {
			break
		} else if err != nil {
			return err
		}

		var value any
		value, err = handleDelim(t, dec)
		if err != nil {
			return err
		}
		obj.Set(key, value)
	}

	t, err = dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := t.(json.Delim); !ok || delim != '}' {
		return fmt.Errorf("expect JSON object close with '}'")
	}

	return nil
}

func parseArray(dec *json.Decoder) (arr []any, err error) {
	var t json.Token
	arr = make([]any, 0)
	for dec.More() {
		t, err = dec.Token()
		if err != nil {
			return
		}

		var value any
		value, err = handleDelim(t, dec)
		if err != nil {
			return
		}
		arr = append(arr, value)
	}
	t, err = dec.Token()
	if err != nil {
		return
	}
	if delim, ok := t.(json.Delim); !ok || delim != ']' {
		err = fmt.Errorf("expect JSON array close with ']'")
		return
	}

	return
}

func handleDelim(t json.Token, dec *json.Decoder) (res any, err error) {
	if delim, ok := t.(json.Delim); ok {
		switch delim {
		case '{':
			obj := NewJSONObject()
			err = obj.parse(dec)
			if err != nil {
				return
			}
			return obj, nil
		case '[':
			var value []any
			value, err = parseArray(dec)
			if err != nil {
				return
			}
			return value, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter: %q", delim)
		}
	}
	return t, nil
}
