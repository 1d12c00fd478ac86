package flow

import (
	"encoding/json"
	"fmt"
)

// Kind identifies which variant of Value is populated.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is a closed, tagged union used everywhere the engine passes
// variables, step inputs/outputs, and form data across component
// boundaries. It replaces loose map[string]interface{} so every consumer
// switches over an explicit Kind rather than type-asserting blind.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	l    []Value
	m    map[string]Value
}

func Null() Value                  { return Value{kind: KindNull} }
func Bool(b bool) Value            { return Value{kind: KindBool, b: b} }
func Int(i int64) Value            { return Value{kind: KindInt, i: i} }
func Float(f float64) Value        { return Value{kind: KindFloat, f: f} }
func String(s string) Value        { return Value{kind: KindString, s: s} }
func List(items []Value) Value     { return Value{kind: KindList, l: items} }
func Map(fields map[string]Value) Value {
	return Value{kind: KindMap, m: fields}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Bool() (bool, bool)       { return v.b, v.kind == KindBool }
func (v Value) Int() (int64, bool)       { return v.i, v.kind == KindInt }
func (v Value) Float() (float64, bool) {
	if v.kind == KindFloat {
		return v.f, true
	}
	if v.kind == KindInt {
		return float64(v.i), true
	}
	return 0, false
}
func (v Value) String() (string, bool) { return v.s, v.kind == KindString }
func (v Value) List() ([]Value, bool)  { return v.l, v.kind == KindList }
func (v Value) Map() (map[string]Value, bool) { return v.m, v.kind == KindMap }

// Get performs a field lookup on a KindMap value, returning Null for any
// other kind or missing key.
func (v Value) Get(key string) Value {
	if v.kind != KindMap {
		return Null()
	}
	if val, ok := v.m[key]; ok {
		return val
	}
	return Null()
}

// Native converts a Value into its closest Go representation, for handing
// off to encoders (json.Marshal, gojq input, template rendering) that do
// not know about Value.
func (v Value) Native() interface{} {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindList:
		out := make([]interface{}, len(v.l))
		for i, item := range v.l {
			out[i] = item.Native()
		}
		return out
	case KindMap:
		out := make(map[string]interface{}, len(v.m))
		for k, item := range v.m {
			out[k] = item.Native()
		}
		return out
	default:
		return nil
	}
}

// FromNative converts an arbitrary decoded value (as produced by
// json.Unmarshal/yaml.Unmarshal into interface{}) into a Value tree.
func FromNative(in interface{}) Value {
	switch t := in.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case float64:
		return Float(t)
	case string:
		return String(t)
	case []interface{}:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromNative(item)
		}
		return List(items)
	case map[string]interface{}:
		fields := make(map[string]Value, len(t))
		for k, item := range t {
			fields[k] = FromNative(item)
		}
		return Map(fields)
	default:
		return String(fmt.Sprintf("%v", t))
	}
}

// Clone performs a deep copy, used by the state manager to guarantee
// snapshot isolation between callers.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		items := make([]Value, len(v.l))
		for i, item := range v.l {
			items[i] = item.Clone()
		}
		return List(items)
	case KindMap:
		fields := make(map[string]Value, len(v.m))
		for k, item := range v.m {
			fields[k] = item.Clone()
		}
		return Map(fields)
	default:
		return v
	}
}

// MarshalJSON encodes Value as its native JSON representation, so a Value
// tree round-trips through the JSONB column of the PostgreSQL state store
// and through any external wire encoding without exposing Value's internal
// tagged-union layout.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Native())
}

// UnmarshalJSON decodes a Value from its native JSON representation. Note
// that JSON has no integer/float distinction, so round-tripped numbers
// always come back as KindFloat. Int() reports false for such a value;
// Float() reads it (and also reads KindInt values).
func (v *Value) UnmarshalJSON(data []byte) error {
	var native interface{}
	if err := json.Unmarshal(data, &native); err != nil {
		return err
	}
	*v = FromNative(native)
	return nil
}
