// Package arrowconv bridges ecs columns to Apache Arrow arrays, in both
// directions, one column at a time.
//
// The packed byte layout is the contract: a scalar column of n rows is
// exactly n contiguous elements, a tensor column is n x ElemCount()
// contiguous elements, with no framing, no length prefixes and no
// validity bitmaps. Conversions always copy; no returned buffer aliases a
// source array, so a foreign array only needs to stay alive for the
// duration of one call.
package arrowconv

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/alejandrosuarez/elodin/ecs"
)

var (
	// ErrArrayLayoutMismatch is returned when an array's layout disagrees
	// with the component type it is being decoded as, or when the array
	// carries nulls (columns are always fully populated).
	ErrArrayLayoutMismatch = errors.New("arrowconv: array layout mismatch")

	// ErrUnsupported is returned for primitive kinds that have no value
	// buffer conversion. Booleans are declared but deliberately not
	// bridged: Arrow packs them as bits while the column model stores one
	// byte per value, and miscoding them silently is worse than failing.
	ErrUnsupported = errors.New("arrowconv: unsupported primitive kind")
)

// DataTypeOf maps a primitive kind to its Arrow element type.
func DataTypeOf(k ecs.PrimitiveKind) (arrow.DataType, error) {
	switch k {
	case ecs.U8:
		return arrow.PrimitiveTypes.Uint8, nil
	case ecs.U16:
		return arrow.PrimitiveTypes.Uint16, nil
	case ecs.U32:
		return arrow.PrimitiveTypes.Uint32, nil
	case ecs.U64:
		return arrow.PrimitiveTypes.Uint64, nil
	case ecs.I8:
		return arrow.PrimitiveTypes.Int8, nil
	case ecs.I16:
		return arrow.PrimitiveTypes.Int16, nil
	case ecs.I32:
		return arrow.PrimitiveTypes.Int32, nil
	case ecs.I64:
		return arrow.PrimitiveTypes.Int64, nil
	case ecs.F32:
		return arrow.PrimitiveTypes.Float32, nil
	case ecs.F64:
		return arrow.PrimitiveTypes.Float64, nil
	case ecs.Bool:
		return arrow.FixedWidthTypes.Boolean, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, k)
}

// DataTypeFor maps a full component type to its Arrow type: the element
// type for scalars, a fixed-size list of width ElemCount() for tensors.
func DataTypeFor(typ ecs.ComponentType) (arrow.DataType, error) {
	elem, err := DataTypeOf(typ.Kind)
	if err != nil {
		return nil, err
	}
	if len(typ.Shape) == 0 {
		return elem, nil
	}
	return arrow.FixedSizeListOfField(int32(typ.ElemCount()), tensorElemField(elem)), nil
}

// tensorElemField is the child field of every tensor list type. The
// element must be declared non-nullable: parquet writes the leaf per the
// field's nullability, and an optional leaf comes back from disk with a
// validity bitmap the packed-buffer extraction rightly refuses.
func tensorElemField(elem arrow.DataType) arrow.Field {
	return arrow.Field{Name: "item", Type: elem, Nullable: false}
}

// FieldForColumn returns the schema field under which the column appears
// in an external table: named by the decimal component id, never
// nullable.
func FieldForColumn(col *ecs.Column) (arrow.Field, error) {
	dt, err := DataTypeFor(col.Type)
	if err != nil {
		return arrow.Field{}, err
	}
	name := col.ID.String()
	if name == ecs.EntityColumnName {
		return arrow.Field{}, fmt.Errorf("%w: column name %q is reserved", ecs.ErrInvalidComponentID, name)
	}
	return arrow.Field{Name: name, Type: dt, Nullable: false}, nil
}

// BufferToArray rebuilds an Arrow array over a packed byte buffer of
// rows x typ.RowSize() bytes. The buffer is wrapped, not copied; the
// caller must keep it immutable while the array is in use.
func BufferToArray(typ ecs.ComponentType, rows int, data []byte) (arrow.Array, error) {
	if typ.Kind == ecs.Bool {
		return nil, fmt.Errorf("%w: %s value buffers", ErrUnsupported, typ.Kind)
	}
	if want := rows * typ.RowSize(); len(data) != want {
		return nil, fmt.Errorf("%w: %d bytes for %d rows of %d", ErrArrayLayoutMismatch, len(data), rows, typ.RowSize())
	}
	elem, err := DataTypeOf(typ.Kind)
	if err != nil {
		return nil, err
	}

	values := memory.NewBufferBytes(data)
	flat := array.NewData(elem, rows*typ.ElemCount(), []*memory.Buffer{nil, values}, nil, 0, 0)
	defer flat.Release()
	if len(typ.Shape) == 0 {
		return array.MakeFromData(flat), nil
	}

	lt := arrow.FixedSizeListOfField(int32(typ.ElemCount()), tensorElemField(elem))
	list := array.NewData(lt, rows, []*memory.Buffer{nil}, []arrow.ArrayData{flat}, 0, 0)
	defer list.Release()
	return array.MakeFromData(list), nil
}

// ColumnToArray converts one column into its external array form.
func ColumnToArray(col *ecs.Column) (arrow.Array, error) {
	if err := col.Validate(); err != nil {
		return nil, err
	}
	return BufferToArray(col.Type, col.Len, col.Data)
}

// ArrayBytes extracts the packed byte buffer of an array declared as typ.
// The array's type must match exactly and it must carry no nulls. The
// result is an owned copy; nothing references the source array after the
// call returns.
func ArrayBytes(arr arrow.Array, typ ecs.ComponentType) ([]byte, error) {
	if typ.Kind == ecs.Bool {
		return nil, fmt.Errorf("%w: %s value buffers", ErrUnsupported, typ.Kind)
	}
	want, err := DataTypeFor(typ)
	if err != nil {
		return nil, err
	}
	if !arrow.TypeEqual(arr.DataType(), want) {
		return nil, fmt.Errorf("%w: array is %s, component type wants %s",
			ErrArrayLayoutMismatch, arr.DataType(), want)
	}
	if arr.NullN() != 0 {
		return nil, fmt.Errorf("%w: array has %d nulls, columns are fully populated",
			ErrArrayLayoutMismatch, arr.NullN())
	}

	data := arr.Data()
	out := make([]byte, 0, arr.Len()*typ.RowSize())
	out, err = appendValueBytes(out, data, data.Offset(), data.Len())
	if err != nil {
		return nil, err
	}
	if want := arr.Len() * typ.RowSize(); len(out) != want {
		return nil, fmt.Errorf("%w: extracted %d bytes, want %d", ErrArrayLayoutMismatch, len(out), want)
	}
	return out, nil
}

// appendValueBytes walks the array depth-first, children before the
// node's own buffers, appending only value bytes: validity buffers are
// never copied. off and length are the logical element window into data,
// already adjusted for every enclosing list.
func appendValueBytes(out []byte, data arrow.ArrayData, off, length int) ([]byte, error) {
	if n := data.NullN(); n > 0 {
		return nil, fmt.Errorf("%w: nested array has %d nulls", ErrArrayLayoutMismatch, n)
	}
	switch dt := data.DataType().(type) {
	case *arrow.BooleanType:
		return nil, fmt.Errorf("%w: %s value buffers", ErrUnsupported, ecs.Bool)
	case *arrow.FixedSizeListType:
		children := data.Children()
		if len(children) != 1 {
			return nil, fmt.Errorf("%w: fixed-size list with %d children", ErrArrayLayoutMismatch, len(children))
		}
		n := int(dt.Len())
		child := children[0]
		return appendValueBytes(out, child, child.Offset()+off*n, length*n)
	default:
		fw, ok := dt.(arrow.FixedWidthDataType)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not fixed-width", ErrArrayLayoutMismatch, dt)
		}
		width := fw.BitWidth() / 8
		bufs := data.Buffers()
		if len(bufs) < 2 || bufs[1] == nil {
			return nil, fmt.Errorf("%w: %s array without value buffer", ErrArrayLayoutMismatch, dt)
		}
		b := bufs[1].Bytes()
		start, end := off*width, (off+length)*width
		if start < 0 || end > len(b) {
			return nil, fmt.Errorf("%w: value buffer holds %d bytes, window is [%d, %d)",
				ErrArrayLayoutMismatch, len(b), start, end)
		}
		return append(out, b[start:end]...), nil
	}
}

// ArrayToColumn converts one named external array into a column. The
// name is the decimal component id; anything that does not parse exactly
// (the reserved entity-id name included) fails with ErrInvalidComponentID.
func ArrayToColumn(name string, arr arrow.Array, typ ecs.ComponentType, asset bool) (*ecs.Column, error) {
	id, err := ecs.ParseComponentID(name)
	if err != nil {
		return nil, err
	}
	buf, err := ArrayBytes(arr, typ)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", name, err)
	}
	return &ecs.Column{ID: id, Type: typ, Asset: asset, Len: arr.Len(), Data: buf}, nil
}
