package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// ScalarKind tags the variant held by a Scalar
type ScalarKind uint8

const (
	ScalarNull ScalarKind = iota
	ScalarBool
	ScalarNumber
	ScalarString
)

func (k ScalarKind) String() string {
	switch k {
	case ScalarNull:
		return "null"
	case ScalarBool:
		return "bool"
	case ScalarNumber:
		return "number"
	case ScalarString:
		return "string"
	default:
		return "unknown"
	}
}

// Scalar is a closed union of null, bool, number and string.
// The zero value is null.
type Scalar struct {
	kind ScalarKind
	b    bool
	n    float64
	s    string
}

// Null returns the null scalar
func Null() Scalar { return Scalar{} }

// Bool wraps a boolean
func Bool(b bool) Scalar { return Scalar{kind: ScalarBool, b: b} }

// Number wraps a number
func Number(n float64) Scalar { return Scalar{kind: ScalarNumber, n: n} }

// String wraps a string
func String(s string) Scalar { return Scalar{kind: ScalarString, s: s} }

// ScalarOf converts a decoded JSON/YAML value into a Scalar.
// Arrays and objects are rejected.
func ScalarOf(v interface{}) (Scalar, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Scalar:
		return x, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case float64:
		return Number(x), nil
	case float32:
		return Number(float64(x)), nil
	case int:
		return Number(float64(x)), nil
	case int32:
		return Number(float64(x)), nil
	case int64:
		return Number(float64(x)), nil
	case uint64:
		return Number(float64(x)), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Scalar{}, fmt.Errorf("invalid number %q: %w", x, err)
		}
		return Number(f), nil
	default:
		return Scalar{}, fmt.Errorf("value of type %T is not a scalar", v)
	}
}

// Kind reports which variant is held
func (s Scalar) Kind() ScalarKind { return s.kind }

// IsNull reports whether s is null
func (s Scalar) IsNull() bool { return s.kind == ScalarNull }

// AsBool returns the boolean payload; ok is false for other kinds
func (s Scalar) AsBool() (bool, bool) { return s.b, s.kind == ScalarBool }

// AsNumber returns the numeric payload; ok is false for other kinds
func (s Scalar) AsNumber() (float64, bool) { return s.n, s.kind == ScalarNumber }

// AsString returns the string payload; ok is false for other kinds
func (s Scalar) AsString() (string, bool) { return s.s, s.kind == ScalarString }

// Interface returns the payload as a plain Go value
func (s Scalar) Interface() interface{} {
	switch s.kind {
	case ScalarBool:
		return s.b
	case ScalarNumber:
		return s.n
	case ScalarString:
		return s.s
	default:
		return nil
	}
}

func (s Scalar) String() string {
	switch s.kind {
	case ScalarBool:
		return strconv.FormatBool(s.b)
	case ScalarNumber:
		return strconv.FormatFloat(s.n, 'g', -1, 64)
	case ScalarString:
		return strconv.Quote(s.s)
	default:
		return "null"
	}
}

// MarshalJSON implements json.Marshaler
func (s Scalar) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Interface())
}

// UnmarshalJSON implements json.Unmarshaler
func (s *Scalar) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return err
	}
	out, err := ScalarOf(v)
	if err != nil {
		return err
	}
	*s = out
	return nil
}

// MarshalBSONValue implements bson.ValueMarshaler
func (s Scalar) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if s.kind == ScalarNull {
		return bsontype.Null, nil, nil
	}
	return bson.MarshalValue(s.Interface())
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler
func (s *Scalar) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.Null, bsontype.Undefined:
		*s = Null()
	case bsontype.Boolean:
		*s = Bool(raw.Boolean())
	case bsontype.Double:
		*s = Number(raw.Double())
	case bsontype.Int32:
		*s = Number(float64(raw.Int32()))
	case bsontype.Int64:
		*s = Number(float64(raw.Int64()))
	case bsontype.String:
		*s = String(raw.StringValue())
	default:
		return fmt.Errorf("bson type %s is not a scalar", t)
	}
	return nil
}
