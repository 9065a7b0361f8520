// If you are AI: This file defines AMF0 type markers and the closed set of value variants.
// Every variant implements Value; decoders never produce types outside this file.

package amf0

// AMF0 type markers
const (
	TypeNumber      = 0x00
	TypeBoolean     = 0x01
	TypeString      = 0x02
	TypeObject      = 0x03
	TypeNull        = 0x05
	TypeUndefined   = 0x06
	TypeECMAArray   = 0x08
	TypeObjectEnd   = 0x09
	TypeStrictArray = 0x0A
	TypeDate        = 0x0B
	TypeLongString  = 0x0C
)

// Value is one AMF0 value.
type Value interface {
	Marker() byte
}

// Number is an IEEE-754 double.
type Number float64

// Boolean is an AMF0 boolean.
type Boolean bool

// String is a UTF-8 string; values longer than 65535 bytes are encoded as long strings.
type String string

// Null is the AMF0 null value.
type Null struct{}

// Undefined is the AMF0 undefined value.
type Undefined struct{}

// Property is one key/value pair of an Object or ECMAArray.
type Property struct {
	Key   string
	Value Value
}

// Object is an anonymous object; property order is preserved.
type Object []Property

// ECMAArray is an associative array; encoded with an advisory count.
type ECMAArray []Property

// StrictArray is an ordered list of values.
type StrictArray []Value

// Marker returns the Number type marker.
func (Number) Marker() byte { return TypeNumber }

// Marker returns the Boolean type marker.
func (Boolean) Marker() byte { return TypeBoolean }

// Marker returns the String type marker.
func (String) Marker() byte { return TypeString }

// Marker returns the Null type marker.
func (Null) Marker() byte { return TypeNull }

// Marker returns the Undefined type marker.
func (Undefined) Marker() byte { return TypeUndefined }

// Marker returns the Object type marker.
func (Object) Marker() byte { return TypeObject }

// Marker returns the ECMAArray type marker.
func (ECMAArray) Marker() byte { return TypeECMAArray }

// Marker returns the StrictArray type marker.
func (StrictArray) Marker() byte { return TypeStrictArray }

// Get returns the value stored under key, or nil.
func (o Object) Get(key string) Value {
	return lookup(o, key)
}

// String returns the string property key.
func (o Object) String(key string) (string, bool) {
	s, ok := o.Get(key).(String)
	return string(s), ok
}

// Number returns the number property key.
func (o Object) Number(key string) (float64, bool) {
	n, ok := o.Get(key).(Number)
	return float64(n), ok
}

// Get returns the value stored under key, or nil.
func (a ECMAArray) Get(key string) Value {
	return lookup(a, key)
}

// lookup returns the first value stored under key.
func lookup(props []Property, key string) Value {
	for _, p := range props {
		if p.Key == key {
			return p.Value
		}
	}
	return nil
}

// Properties returns the property list of an Object or ECMAArray value.
func Properties(v Value) ([]Property, bool) {
	switch t := v.(type) {
	case Object:
		return t, true
	case ECMAArray:
		return t, true
	}
	return nil, false
}

// AsString returns the string held by v.
func AsString(v Value) (string, bool) {
	s, ok := v.(String)
	return string(s), ok
}

// AsNumber returns the number held by v.
func AsNumber(v Value) (float64, bool) {
	n, ok := v.(Number)
	return float64(n), ok
}

// ToNative converts v into plain Go values for JSON or logging.
func ToNative(v Value) any {
	switch t := v.(type) {
	case Number:
		return float64(t)
	case Boolean:
		return bool(t)
	case String:
		return string(t)
	case Object:
		return propsToMap(t)
	case ECMAArray:
		return propsToMap(t)
	case StrictArray:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = ToNative(e)
		}
		return out
	}
	return nil
}

// propsToMap converts properties into a native map.
func propsToMap(props []Property) map[string]any {
	m := make(map[string]any, len(props))
	for _, p := range props {
		m[p.Key] = ToNative(p.Value)
	}
	return m
}
