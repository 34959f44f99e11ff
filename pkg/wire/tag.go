// Package wire defines the tagged binary layout carried by a shared memory
// segment: an 8-byte header followed by one payload of a known kind.
//
// Layout, little-endian:
//
//	offset 0  uint32  kind (TypeTag)
//	offset 4  uint32  payload byte length
//	offset 8  payload
package wire

import "strconv"

// TypeTag identifies the kind of value carried by a segment.
// Values are part of the wire format and must never be renumbered.
type TypeTag uint32

const (
	TagBool            TypeTag = 0
	TagInt32           TypeTag = 1
	TagFloat64         TypeTag = 2
	TagUtf8String      TypeTag = 3
	TagFloat64Array    TypeTag = 4
	TagUtf8StringArray TypeTag = 5
	TagJSONDocument    TypeTag = 6

	// TagInvalid is returned alongside errors. It is never written.
	TagInvalid TypeTag = ^TypeTag(0)
)

var tagNames = [...]string{
	TagBool:            "Bool",
	TagInt32:           "Int32",
	TagFloat64:         "Float64",
	TagUtf8String:      "Utf8String",
	TagFloat64Array:    "Float64Array",
	TagUtf8StringArray: "Utf8StringArray",
	TagJSONDocument:    "JsonDocument",
}

// Tags lists every valid tag in wire order.
func Tags() []TypeTag {
	return []TypeTag{
		TagBool, TagInt32, TagFloat64, TagUtf8String,
		TagFloat64Array, TagUtf8StringArray, TagJSONDocument,
	}
}

// Valid reports whether t names one of the supported kinds.
func (t TypeTag) Valid() bool {
	return t <= TagJSONDocument
}

func (t TypeTag) String() string {
	switch {
	case t.Valid():
		return tagNames[t]
	case t == TagInvalid:
		return "Invalid"
	}
	return "TypeTag(" + strconv.FormatUint(uint64(t), 10) + ")"
}

// fixedSize is the payload width of scalar kinds, 0 for variable kinds.
func (t TypeTag) fixedSize() int {
	switch t {
	case TagBool:
		return 1
	case TagInt32:
		return 4
	case TagFloat64:
		return 8
	}
	return 0
}
