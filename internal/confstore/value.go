package confstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind discriminates the JSON value variants a document node can hold.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindObject
	KindArray
)

// Value is one node of a parsed document. Objects preserve the key order
// they were decoded or built in, so an untouched document re-encodes
// byte-for-byte identical.
type Value struct {
	kind   Kind
	str    string
	num    string
	b      bool
	fields []Field
	items  []*Value
}

// Field is a single object member.
type Field struct {
	Key   string
	Value *Value
}

func Null() *Value             { return &Value{kind: KindNull} }
func String(s string) *Value   { return &Value{kind: KindString, str: s} }
func Bool(b bool) *Value       { return &Value{kind: KindBool, b: b} }
func Number(raw string) *Value { return &Value{kind: KindNumber, num: raw} }
func NewObject() *Value        { return &Value{kind: KindObject} }
func NewArray() *Value         { return &Value{kind: KindArray} }

func (v *Value) Kind() Kind   { return v.kind }
func (v *Value) IsNull() bool { return v == nil || v.kind == KindNull }

// Get looks up an object member by exact key.
func (v *Value) Get(key string) (*Value, bool) {
	if v == nil || v.kind != KindObject {
		return nil, false
	}
	for _, f := range v.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Set replaces an existing member in place or appends a new one.
func (v *Value) Set(key string, val *Value) {
	for i, f := range v.fields {
		if f.Key == key {
			v.fields[i].Value = val
			return
		}
	}
	v.fields = append(v.fields, Field{Key: key, Value: val})
}

// Delete removes an object member; reports whether the key was present.
func (v *Value) Delete(key string) bool {
	for i, f := range v.fields {
		if f.Key == key {
			v.fields = append(v.fields[:i], v.fields[i+1:]...)
			return true
		}
	}
	return false
}

// Fields returns the ordered object members.
func (v *Value) Fields() []Field {
	if v == nil {
		return nil
	}
	return v.fields
}

// Len returns the number of array items or object members.
func (v *Value) Len() int {
	if v == nil {
		return 0
	}
	switch v.kind {
	case KindArray:
		return len(v.items)
	case KindObject:
		return len(v.fields)
	}
	return 0
}

// Index returns the array item at i.
func (v *Value) Index(i int) (*Value, bool) {
	if v == nil || v.kind != KindArray || i < 0 || i >= len(v.items) {
		return nil, false
	}
	return v.items[i], true
}

// Append adds an item to an array.
func (v *Value) Append(item *Value) {
	v.items = append(v.items, item)
}

// RemoveIndex splices the array item at i out.
func (v *Value) RemoveIndex(i int) bool {
	if v == nil || v.kind != KindArray || i < 0 || i >= len(v.items) {
		return false
	}
	v.items = append(v.items[:i], v.items[i+1:]...)
	return true
}

// Items returns the array items in order.
func (v *Value) Items() []*Value {
	if v == nil {
		return nil
	}
	return v.items
}

// Text renders the scalar form used for CLI output and record matching:
// strings verbatim, numbers and booleans as their JSON text, null as the
// empty string, containers as compact JSON.
func (v *Value) Text() string {
	if v == nil {
		return ""
	}
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNull:
		return ""
	default:
		var buf bytes.Buffer
		v.encode(&buf, "", "")
		return buf.String()
	}
}

// Parse decodes a complete JSON value, preserving object key order.
func Parse(data []byte) (*Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err == nil {
		return nil, fmt.Errorf("trailing content after document")
	}
	return v, nil
}

// ParseRecord decodes a JSON object for use as a collection record.
func ParseRecord(text string) (*Value, error) {
	v, err := Parse([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	if v.kind != KindObject {
		return nil, fmt.Errorf("record must be a JSON object")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (*Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is not a string")
				}
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				obj.fields = append(obj.fields, Field{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := NewArray()
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr.items = append(arr.items, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	case string:
		return String(t), nil
	case json.Number:
		return Number(t.String()), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// Encode renders the value as indented JSON with a trailing newline,
// members in insertion order.
func (v *Value) Encode() []byte {
	var buf bytes.Buffer
	v.encode(&buf, "", "  ")
	buf.WriteByte('\n')
	return buf.Bytes()
}

func (v *Value) encode(buf *bytes.Buffer, prefix, indent string) {
	if v == nil {
		buf.WriteString("null")
		return
	}
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindString:
		writeJSONString(buf, v.str)
	case KindNumber:
		buf.WriteString(v.num)
	case KindBool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindObject:
		if len(v.fields) == 0 {
			buf.WriteString("{}")
			return
		}
		inner := prefix + indent
		buf.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			if indent != "" {
				buf.WriteByte('\n')
				buf.WriteString(inner)
			}
			writeJSONString(buf, f.Key)
			buf.WriteString(": ")
			f.Value.encode(buf, inner, indent)
		}
		if indent != "" {
			buf.WriteByte('\n')
			buf.WriteString(prefix)
		}
		buf.WriteByte('}')
	case KindArray:
		if len(v.items) == 0 {
			buf.WriteString("[]")
			return
		}
		inner := prefix + indent
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if indent != "" {
				buf.WriteByte('\n')
				buf.WriteString(inner)
			}
			item.encode(buf, inner, indent)
		}
		if indent != "" {
			buf.WriteByte('\n')
			buf.WriteString(prefix)
		}
		buf.WriteByte(']')
	}
}

func writeJSONString(buf *bytes.Buffer, s string) {
	encoded, err := json.Marshal(s)
	if err != nil {
		// json.Marshal of a string cannot fail; keep the document valid anyway.
		buf.WriteString(`""`)
		return
	}
	buf.Write(encoded)
}

// Clone returns a deep copy, used to keep in-flight mutations from
// touching a document until the rewrite commits.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	out := &Value{kind: v.kind, str: v.str, num: v.num, b: v.b}
	if len(v.fields) > 0 {
		out.fields = make([]Field, len(v.fields))
		for i, f := range v.fields {
			out.fields[i] = Field{Key: f.Key, Value: f.Value.Clone()}
		}
	}
	if len(v.items) > 0 {
		out.items = make([]*Value, len(v.items))
		for i, item := range v.items {
			out.items[i] = item.Clone()
		}
	}
	return out
}

// equalText reports case-insensitive equality between a record field's
// scalar form and a search value.
func equalText(fieldVal *Value, search string) bool {
	return strings.EqualFold(fieldVal.Text(), search)
}
