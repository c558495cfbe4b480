// Package protocol defines the wire envelope and payload types exchanged
// between a world-state producer and its consumers.
package protocol

// EntityID identifies a replication unit.
type EntityID uint32

// ComponentID and FieldID are opaque, case-sensitive string keys.
type ComponentID = string
type FieldID = string

// FieldValueKind discriminates the FieldValue tagged union.
type FieldValueKind uint8

const (
	FieldNull FieldValueKind = iota
	FieldBool
	FieldU8
	FieldU16
	FieldU32
	FieldU64
	FieldI8
	FieldI16
	FieldI32
	FieldI64
	FieldF32
	FieldF64
	FieldString
	FieldBytes
	FieldArray
	FieldMap
)

// FieldValue is a closed tagged union over the scalar, sequence, and
// mapping shapes a component field may hold. Exactly one of the payload
// fields is meaningful, selected by Kind; constructors below are the only
// sanctioned way to build one.
type FieldValue struct {
	Kind FieldValueKind `json:"kind"`

	Bool   bool    `json:"bool,omitempty"`
	U8     uint8   `json:"u8,omitempty"`
	U16    uint16  `json:"u16,omitempty"`
	U32    uint32  `json:"u32,omitempty"`
	U64    uint64  `json:"u64,omitempty"`
	I8     int8    `json:"i8,omitempty"`
	I16    int16   `json:"i16,omitempty"`
	I32    int32   `json:"i32,omitempty"`
	I64    int64   `json:"i64,omitempty"`
	F32    float32 `json:"f32,omitempty"`
	F64    float64 `json:"f64,omitempty"`
	Str    string  `json:"str,omitempty"`
	Bytes  []byte  `json:"bytes,omitempty"`
	Array  []FieldValue          `json:"array,omitempty"`
	Map    map[string]FieldValue `json:"map,omitempty"`
}

func NullValue() FieldValue             { return FieldValue{Kind: FieldNull} }
func BoolValue(v bool) FieldValue       { return FieldValue{Kind: FieldBool, Bool: v} }
func U8Value(v uint8) FieldValue        { return FieldValue{Kind: FieldU8, U8: v} }
func U16Value(v uint16) FieldValue      { return FieldValue{Kind: FieldU16, U16: v} }
func U32Value(v uint32) FieldValue      { return FieldValue{Kind: FieldU32, U32: v} }
func U64Value(v uint64) FieldValue      { return FieldValue{Kind: FieldU64, U64: v} }
func I8Value(v int8) FieldValue         { return FieldValue{Kind: FieldI8, I8: v} }
func I16Value(v int16) FieldValue       { return FieldValue{Kind: FieldI16, I16: v} }
func I32Value(v int32) FieldValue       { return FieldValue{Kind: FieldI32, I32: v} }
func I64Value(v int64) FieldValue       { return FieldValue{Kind: FieldI64, I64: v} }
func F32Value(v float32) FieldValue     { return FieldValue{Kind: FieldF32, F32: v} }
func F64Value(v float64) FieldValue     { return FieldValue{Kind: FieldF64, F64: v} }
func StringValue(v string) FieldValue   { return FieldValue{Kind: FieldString, Str: v} }
func BytesValue(v []byte) FieldValue    { return FieldValue{Kind: FieldBytes, Bytes: v} }
func ArrayValue(v []FieldValue) FieldValue {
	return FieldValue{Kind: FieldArray, Array: v}
}
func MapValue(v map[string]FieldValue) FieldValue {
	return FieldValue{Kind: FieldMap, Map: v}
}

// Equal reports structural equality. Floats compare with ==, so NaN never
// equals itself and 0 equals -0.
func (v FieldValue) Equal(other FieldValue) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case FieldNull:
		return true
	case FieldBool:
		return v.Bool == other.Bool
	case FieldU8:
		return v.U8 == other.U8
	case FieldU16:
		return v.U16 == other.U16
	case FieldU32:
		return v.U32 == other.U32
	case FieldU64:
		return v.U64 == other.U64
	case FieldI8:
		return v.I8 == other.I8
	case FieldI16:
		return v.I16 == other.I16
	case FieldI32:
		return v.I32 == other.I32
	case FieldI64:
		return v.I64 == other.I64
	case FieldF32:
		return v.F32 == other.F32
	case FieldF64:
		return v.F64 == other.F64
	case FieldString:
		return v.Str == other.Str
	case FieldBytes:
		return bytesEqual(v.Bytes, other.Bytes)
	case FieldArray:
		if len(v.Array) != len(other.Array) {
			return false
		}
		for i := range v.Array {
			if !v.Array[i].Equal(other.Array[i]) {
				return false
			}
		}
		return true
	case FieldMap:
		if len(v.Map) != len(other.Map) {
			return false
		}
		for k, val := range v.Map {
			ov, ok := other.Map[k]
			if !ok || !val.Equal(ov) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ComponentDataKind discriminates the ComponentData tagged union.
type ComponentDataKind uint8

const (
	ComponentBinary ComponentDataKind = iota
	ComponentJSON
	ComponentStructured
)

// ComponentData is a closed union over the three ways a component's
// payload may be carried on the wire.
type ComponentData struct {
	Kind       ComponentDataKind     `json:"kind"`
	Binary     []byte                `json:"binary,omitempty"`
	JSON       string                `json:"json,omitempty"`
	Structured map[FieldID]FieldValue `json:"structured,omitempty"`
}

func BinaryData(b []byte) ComponentData {
	return ComponentData{Kind: ComponentBinary, Binary: b}
}

func JSONData(s string) ComponentData {
	return ComponentData{Kind: ComponentJSON, JSON: s}
}

func StructuredData(fields map[FieldID]FieldValue) ComponentData {
	return ComponentData{Kind: ComponentStructured, Structured: fields}
}

// SerializedComponent pairs a component identifier with its payload.
type SerializedComponent struct {
	ID   ComponentID   `json:"id"`
	Data ComponentData `json:"data"`
}

// SerializedEntity is an entity id plus its ordered components.
// Within one entity ComponentID is expected unique; duplicates are
// undefined behavior on the producer's side, the diff uses last-seen.
type SerializedEntity struct {
	ID         EntityID              `json:"id"`
	Components []SerializedComponent `json:"components"`
}
