package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/bytedance/sonic"
)

// Value is one of the seven kinds a segment can carry. The set is closed:
// only the types declared in this package implement it.
type Value interface {
	Tag() TypeTag
	// PayloadSize is the exact number of bytes AppendPayload appends.
	PayloadSize() int
	AppendPayload(dst []byte) []byte

	isValue()
}

type (
	Bool         bool
	Int32        int32
	Float64      float64
	String       string
	Float64Array []float64
	StringArray  []string
)

// JSONDocument is a structured value carried as JSON text. The zero value
// encodes as null.
type JSONDocument struct {
	raw []byte
	doc any
}

// jsonAPI sorts map keys so equal documents encode to equal bytes.
var jsonAPI = sonic.ConfigStd

// NewJSONDocument serializes v. The structured value of the result is the
// re-parsed form of the text, the same form a consumer decodes.
func NewJSONDocument(v any) (JSONDocument, error) {
	raw, err := jsonAPI.Marshal(v)
	if err != nil {
		return JSONDocument{}, fmt.Errorf("%w: %v", ErrUnsupportedType, err)
	}
	return parseJSON(raw)
}

// ParseJSONDocument validates and parses raw JSON text. raw is copied.
func ParseJSONDocument(raw []byte) (JSONDocument, error) {
	return parseJSON(append([]byte(nil), raw...))
}

func parseJSON(raw []byte) (JSONDocument, error) {
	var doc any
	if err := jsonAPI.Unmarshal(raw, &doc); err != nil {
		return JSONDocument{}, fmt.Errorf("%w: json document: %v", ErrMalformedPayload, err)
	}
	return JSONDocument{raw: raw, doc: doc}, nil
}

// Raw returns the JSON text. Callers must not modify it.
func (d JSONDocument) Raw() []byte { return d.text() }

// Value returns the parsed document: map[string]any, []any, string,
// float64, bool or nil.
func (d JSONDocument) Value() any { return d.doc }

// Decode unmarshals the document text into v.
func (d JSONDocument) Decode(v any) error {
	return jsonAPI.Unmarshal(d.text(), v)
}

func (d JSONDocument) text() []byte {
	if len(d.raw) == 0 {
		return []byte("null")
	}
	return d.raw
}

func (Bool) Tag() TypeTag         { return TagBool }
func (Int32) Tag() TypeTag        { return TagInt32 }
func (Float64) Tag() TypeTag      { return TagFloat64 }
func (String) Tag() TypeTag       { return TagUtf8String }
func (Float64Array) Tag() TypeTag { return TagFloat64Array }
func (StringArray) Tag() TypeTag  { return TagUtf8StringArray }
func (JSONDocument) Tag() TypeTag { return TagJSONDocument }

func (Bool) PayloadSize() int           { return 1 }
func (Int32) PayloadSize() int          { return 4 }
func (Float64) PayloadSize() int        { return 8 }
func (v String) PayloadSize() int       { return len(v) }
func (v Float64Array) PayloadSize() int { return 8 * len(v) }
func (d JSONDocument) PayloadSize() int { return len(d.text()) }

func (v StringArray) PayloadSize() int {
	n := 0
	for _, s := range v {
		n += 4 + len(s)
	}
	return n
}

func (v Bool) AppendPayload(dst []byte) []byte {
	if v {
		return append(dst, 1)
	}
	return append(dst, 0)
}

func (v Int32) AppendPayload(dst []byte) []byte {
	return binary.LittleEndian.AppendUint32(dst, uint32(v))
}

func (v Float64) AppendPayload(dst []byte) []byte {
	return binary.LittleEndian.AppendUint64(dst, math.Float64bits(float64(v)))
}

func (v String) AppendPayload(dst []byte) []byte {
	return append(dst, v...)
}

func (v Float64Array) AppendPayload(dst []byte) []byte {
	for _, f := range v {
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(f))
	}
	return dst
}

func (v StringArray) AppendPayload(dst []byte) []byte {
	for _, s := range v {
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(s)))
		dst = append(dst, s...)
	}
	return dst
}

func (d JSONDocument) AppendPayload(dst []byte) []byte {
	return append(dst, d.text()...)
}

func (Bool) isValue()         {}
func (Int32) isValue()        {}
func (Float64) isValue()      {}
func (String) isValue()       {}
func (Float64Array) isValue() {}
func (StringArray) isValue()  {}
func (JSONDocument) isValue() {}

// Wrap maps a native Go value to its kind. Scalars are not widened or
// narrowed: int, int64 or float32 are rejected rather than converted.
//
// A []any is inspected: all numbers become a Float64Array, all strings a
// StringArray, anything else a JSONDocument. An empty []any has no kind.
func Wrap(v any) (Value, error) {
	switch x := v.(type) {
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case int32:
		return Int32(x), nil
	case float64:
		return Float64(x), nil
	case string:
		return String(x), nil
	case []float64:
		return Float64Array(x), nil
	case []string:
		return StringArray(x), nil
	case json.RawMessage:
		return ParseJSONDocument(x)
	case []any:
		return wrapList(x)
	case map[string]any:
		return NewJSONDocument(x)
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
}

func wrapList(list []any) (Value, error) {
	switch listTag(list) {
	case TagFloat64Array:
		out := make(Float64Array, len(list))
		for i, e := range list {
			out[i], _ = asFloat64(e)
		}
		return out, nil
	case TagUtf8StringArray:
		out := make(StringArray, len(list))
		for i, e := range list {
			out[i] = e.(string)
		}
		return out, nil
	case TagJSONDocument:
		return NewJSONDocument(list)
	}
	return nil, fmt.Errorf("%w: empty list", ErrUnsupportedType)
}

// listTag infers the kind of a heterogeneous list, TagInvalid when empty.
func listTag(list []any) TypeTag {
	if len(list) == 0 {
		return TagInvalid
	}
	numeric, text := true, true
	for _, e := range list {
		if _, ok := asFloat64(e); !ok {
			numeric = false
		}
		if _, ok := e.(string); !ok {
			text = false
		}
	}
	switch {
	case numeric:
		return TagFloat64Array
	case text:
		return TagUtf8StringArray
	}
	return TagJSONDocument
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Unwrap returns the native Go value held by v.
func Unwrap(v Value) any {
	switch x := v.(type) {
	case Bool:
		return bool(x)
	case Int32:
		return int32(x)
	case Float64:
		return float64(x)
	case String:
		return string(x)
	case Float64Array:
		return []float64(x)
	case StringArray:
		return []string(x)
	case JSONDocument:
		return x.Value()
	}
	return nil
}

// TagOf returns the kind Wrap would select for v.
func TagOf(v any) (TypeTag, error) {
	switch x := v.(type) {
	case Value:
		return x.Tag(), nil
	case bool:
		return TagBool, nil
	case int32:
		return TagInt32, nil
	case float64:
		return TagFloat64, nil
	case string:
		return TagUtf8String, nil
	case []float64:
		return TagFloat64Array, nil
	case []string:
		return TagUtf8StringArray, nil
	case []any:
		if tag := listTag(x); tag.Valid() {
			return tag, nil
		}
		return TagInvalid, fmt.Errorf("%w: empty list", ErrUnsupportedType)
	case json.RawMessage, map[string]any:
		return TagJSONDocument, nil
	}
	return TagInvalid, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
}

// Kind is satisfied by exactly the seven value types. It lets generic callers
// obtain the tag of T from its zero value.
type Kind interface {
	Bool | Int32 | Float64 | String | Float64Array | StringArray | JSONDocument
	Value
}
