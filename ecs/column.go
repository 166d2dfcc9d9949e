package ecs

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Column owns one contiguous buffer of rows x RowSize() raw bytes for a
// single component. Asset columns hold u64 handles into the AssetStore
// instead of raw numeric data.
type Column struct {
	ID    ComponentID
	Type  ComponentType
	Asset bool
	Len   int
	Data  []byte
}

// NewColumn returns an empty column for the given component.
func NewColumn(id ComponentID, typ ComponentType, asset bool) *Column {
	return &Column{ID: id, Type: typ, Asset: asset}
}

// Validate checks the buffer sizing invariant.
func (c *Column) Validate() error {
	if want := c.Len * c.Type.RowSize(); len(c.Data) != want {
		return fmt.Errorf("%w: column %s has %d bytes, want %d (%d rows x %d)",
			ErrSizeMismatch, c.ID, len(c.Data), want, c.Len, c.Type.RowSize())
	}
	return nil
}

// AppendRow appends one row worth of bytes to the column buffer.
func (c *Column) AppendRow(row []byte) error {
	if len(row) != c.Type.RowSize() {
		return fmt.Errorf("%w: row for column %s has %d bytes, want %d",
			ErrSizeMismatch, c.ID, len(row), c.Type.RowSize())
	}
	c.Data = append(c.Data, row...)
	c.Len++
	return nil
}

// Row returns the raw bytes of row i. The returned slice aliases the
// column buffer and is valid until the next mutation.
func (c *Column) Row(i int) []byte {
	size := c.Type.RowSize()
	return c.Data[i*size : (i+1)*size]
}

// ComponentValue is one row worth of data for one component, used to
// spawn entities.
type ComponentValue struct {
	ID    ComponentID
	Type  ComponentType
	Asset bool
	Data  []byte
}

// AssetValue builds the component value for an asset handle: a u64 scalar
// flagged as asset-resident.
func AssetValue(id ComponentID, h AssetHandle) ComponentValue {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(h))
	return ComponentValue{ID: id, Type: Scalar(U64), Asset: true, Data: buf[:]}
}

// F64Value builds the component value for a float64 scalar or tensor. The
// shape is taken from typ; len(vals) must equal typ.ElemCount().
func F64Value(id ComponentID, typ ComponentType, vals ...float64) (ComponentValue, error) {
	if typ.Kind != F64 {
		return ComponentValue{}, fmt.Errorf("ecs: F64Value used with kind %s", typ.Kind)
	}
	if len(vals) != typ.ElemCount() {
		return ComponentValue{}, fmt.Errorf("%w: %d values for shape %v", ErrSizeMismatch, len(vals), typ.Shape)
	}
	buf := make([]byte, 0, len(vals)*8)
	for _, v := range vals {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	return ComponentValue{ID: id, Type: typ, Data: buf}, nil
}
