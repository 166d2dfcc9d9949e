package ecs

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// EntityColumnName is the reserved column name that carries row-to-entity
// identifiers in every external table. Value columns are named by the
// decimal form of their ComponentID, which can never collide with this
// sentinel; both conversion directions still guard against it explicitly.
const EntityColumnName = "entity_id"

// EntityID identifies an entity. Unique within a World.
type EntityID uint64

// ComponentID identifies a component. Unique within a World. Its decimal
// string form is the canonical column name in every external
// representation and must round-trip exactly back to the same integer.
type ComponentID uint64

// String returns the canonical external column name for the component.
func (id ComponentID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseComponentID parses a column name back into a ComponentID. The whole
// name must be consumed as a base-10 uint64; anything else (including the
// reserved entity-id column name) fails with ErrInvalidComponentID.
func ParseComponentID(name string) (ComponentID, error) {
	v, err := strconv.ParseUint(name, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidComponentID, name)
	}
	return ComponentID(v), nil
}

// ArchetypeID identifies a fixed set of co-occurring components. It is
// also the stable file name for the archetype's on-disk data.
type ArchetypeID uint64

// String returns the decimal form used as the on-disk file stem.
func (id ArchetypeID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// PrimitiveKind enumerates the fixed-width element types a component
// column can hold.
type PrimitiveKind uint8

const (
	U8 PrimitiveKind = iota
	U16
	U32
	U64
	I8
	I16
	I32
	I64
	F32
	F64
	Bool
)

var primitiveNames = [...]string{
	U8: "u8", U16: "u16", U32: "u32", U64: "u64",
	I8: "i8", I16: "i16", I32: "i32", I64: "i64",
	F32: "f32", F64: "f64", Bool: "bool",
}

// String returns the lowercase name of the kind ("f64", "bool", ...).
func (k PrimitiveKind) String() string {
	if int(k) < len(primitiveNames) {
		return primitiveNames[k]
	}
	return fmt.Sprintf("primitive(%d)", uint8(k))
}

// Size returns the byte width of one element. Booleans occupy one byte in
// the column model.
func (k PrimitiveKind) Size() int {
	switch k {
	case U8, I8, Bool:
		return 1
	case U16, I16:
		return 2
	case U32, I32, F32:
		return 4
	case U64, I64, F64:
		return 8
	}
	return 0
}

// ParsePrimitiveKind parses the lowercase name of a kind.
func ParsePrimitiveKind(s string) (PrimitiveKind, error) {
	for k, name := range primitiveNames {
		if name == s {
			return PrimitiveKind(k), nil
		}
	}
	return 0, fmt.Errorf("ecs: unknown primitive kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k PrimitiveKind) MarshalText() ([]byte, error) {
	if int(k) >= len(primitiveNames) {
		return nil, fmt.Errorf("ecs: unknown primitive kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *PrimitiveKind) UnmarshalText(text []byte) error {
	parsed, err := ParsePrimitiveKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ComponentType describes the declared value type of a component: a
// primitive element kind plus an ordered tensor shape. An empty shape
// means one scalar per row; a non-empty shape means one fixed-size tensor
// of ElemCount() elements per row.
type ComponentType struct {
	Kind  PrimitiveKind
	Shape []int
}

// Scalar returns the type holding one element of kind k per row.
func Scalar(k PrimitiveKind) ComponentType {
	return ComponentType{Kind: k}
}

// Tensor returns the type holding one fixed-size tensor of the given
// shape per row.
func Tensor(k PrimitiveKind, shape ...int) ComponentType {
	return ComponentType{Kind: k, Shape: shape}
}

// ElemCount returns the number of elements per row: the product of the
// shape dimensions, or 1 for scalars.
func (t ComponentType) ElemCount() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// RowSize returns the number of bytes one row occupies in a column buffer.
func (t ComponentType) RowSize() int {
	return t.ElemCount() * t.Kind.Size()
}

// Equal reports whether two component types are identical in kind and
// shape. A nil shape and an empty shape are the same type.
func (t ComponentType) Equal(o ComponentType) bool {
	if t.Kind != o.Kind || len(t.Shape) != len(o.Shape) {
		return false
	}
	for i, d := range t.Shape {
		if o.Shape[i] != d {
			return false
		}
	}
	return true
}

type componentTypeJSON struct {
	Kind  PrimitiveKind `json:"primitive_kind"`
	Shape []int         `json:"shape"`
}

// MarshalJSON encodes the type with an explicit (possibly empty) shape
// array, matching the manifest document schema.
func (t ComponentType) MarshalJSON() ([]byte, error) {
	shape := t.Shape
	if shape == nil {
		shape = []int{}
	}
	return json.Marshal(componentTypeJSON{Kind: t.Kind, Shape: shape})
}

// UnmarshalJSON decodes the type, normalizing an empty shape to nil so
// that decoded types compare equal to constructed ones.
func (t *ComponentType) UnmarshalJSON(data []byte) error {
	var aux componentTypeJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.Kind = aux.Kind
	if len(aux.Shape) == 0 {
		t.Shape = nil
	} else {
		t.Shape = aux.Shape
	}
	return nil
}
