package arrowconv

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrosuarez/elodin/ecs"
)

func f64Buffer(vals ...float64) []byte {
	buf := make([]byte, 0, len(vals)*8)
	for _, v := range vals {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	return buf
}

func TestScalarRoundTrip(t *testing.T) {
	typ := ecs.Scalar(ecs.F64)
	buf := f64Buffer(1, 2.5, -3)

	arr, err := BufferToArray(typ, 3, buf)
	require.NoError(t, err)
	defer arr.Release()

	require.IsType(t, &array.Float64{}, arr)
	assert.Equal(t, 3, arr.Len())
	assert.Equal(t, []float64{1, 2.5, -3}, arr.(*array.Float64).Float64Values())

	got, err := ArrayBytes(arr, typ)
	require.NoError(t, err)
	assert.Equal(t, buf, got)
}

func TestTensorRoundTrip(t *testing.T) {
	typ := ecs.Tensor(ecs.F64, 7)
	buf := f64Buffer(1, 0, 0, 0, 1, 0, 0)

	arr, err := BufferToArray(typ, 1, buf)
	require.NoError(t, err)
	defer arr.Release()

	fsl, ok := arr.(*array.FixedSizeList)
	require.True(t, ok)
	assert.Equal(t, 1, fsl.Len())
	lt, ok := arr.DataType().(*arrow.FixedSizeListType)
	require.True(t, ok)
	assert.Equal(t, int32(7), lt.Len())
	assert.True(t, arrow.TypeEqual(arrow.PrimitiveTypes.Float64, lt.Elem()))

	got, err := ArrayBytes(arr, typ)
	require.NoError(t, err)
	assert.Equal(t, buf, got)
}

func TestTensorElementDeclaredNonNullable(t *testing.T) {
	// A nullable element field would make parquet write the leaf as
	// optional, and the re-read child would carry a validity bitmap that
	// the byte extraction rejects. Both type constructions must agree.
	dt, err := DataTypeFor(ecs.Tensor(ecs.F64, 7))
	require.NoError(t, err)
	lt, ok := dt.(*arrow.FixedSizeListType)
	require.True(t, ok)
	assert.False(t, lt.ElemField().Nullable)

	arr, err := BufferToArray(ecs.Tensor(ecs.F64, 7), 1, f64Buffer(1, 0, 0, 0, 1, 0, 0))
	require.NoError(t, err)
	defer arr.Release()
	alt, ok := arr.DataType().(*arrow.FixedSizeListType)
	require.True(t, ok)
	assert.False(t, alt.ElemField().Nullable)
	assert.True(t, arrow.TypeEqual(dt, arr.DataType()))
}

func TestColumnRoundTrip(t *testing.T) {
	col := ecs.NewColumn(42, ecs.Tensor(ecs.I32, 2), false)
	require.NoError(t, col.AppendRow([]byte{1, 0, 0, 0, 2, 0, 0, 0}))
	require.NoError(t, col.AppendRow([]byte{3, 0, 0, 0, 4, 0, 0, 0}))

	arr, err := ColumnToArray(col)
	require.NoError(t, err)
	defer arr.Release()

	got, err := ArrayToColumn("42", arr, col.Type, false)
	require.NoError(t, err)
	assert.Equal(t, col.ID, got.ID)
	assert.Equal(t, col.Len, got.Len)
	assert.Equal(t, col.Data, got.Data)
	assert.True(t, col.Type.Equal(got.Type))
}

func TestSlicedArrayExtractsWindow(t *testing.T) {
	typ := ecs.Scalar(ecs.F64)
	arr, err := BufferToArray(typ, 4, f64Buffer(10, 11, 12, 13))
	require.NoError(t, err)
	defer arr.Release()

	slice := array.NewSlice(arr, 1, 3)
	defer slice.Release()

	got, err := ArrayBytes(slice, typ)
	require.NoError(t, err)
	assert.Equal(t, f64Buffer(11, 12), got)
}

func TestSlicedTensorExtractsWindow(t *testing.T) {
	typ := ecs.Tensor(ecs.F64, 2)
	arr, err := BufferToArray(typ, 3, f64Buffer(1, 2, 3, 4, 5, 6))
	require.NoError(t, err)
	defer arr.Release()

	slice := array.NewSlice(arr, 2, 3)
	defer slice.Release()

	got, err := ArrayBytes(slice, typ)
	require.NoError(t, err)
	assert.Equal(t, f64Buffer(5, 6), got)
}

func TestBoolUnsupported(t *testing.T) {
	t.Run("buffer to array", func(t *testing.T) {
		_, err := BufferToArray(ecs.Scalar(ecs.Bool), 2, []byte{1, 0})
		require.ErrorIs(t, err, ErrUnsupported)
	})

	t.Run("array bytes", func(t *testing.T) {
		b := array.NewBooleanBuilder(memory.DefaultAllocator)
		defer b.Release()
		b.AppendValues([]bool{true, false}, nil)
		arr := b.NewBooleanArray()
		defer arr.Release()

		_, err := ArrayBytes(arr, ecs.Scalar(ecs.Bool))
		require.ErrorIs(t, err, ErrUnsupported)
	})
}

func TestLayoutMismatch(t *testing.T) {
	t.Run("wrong buffer size", func(t *testing.T) {
		_, err := BufferToArray(ecs.Scalar(ecs.F64), 2, []byte{0, 0, 0})
		require.ErrorIs(t, err, ErrArrayLayoutMismatch)
	})

	t.Run("wrong element type", func(t *testing.T) {
		arr, err := BufferToArray(ecs.Scalar(ecs.F32), 1, []byte{0, 0, 0, 0})
		require.NoError(t, err)
		defer arr.Release()

		_, err = ArrayBytes(arr, ecs.Scalar(ecs.F64))
		require.ErrorIs(t, err, ErrArrayLayoutMismatch)
	})

	t.Run("wrong tensor width", func(t *testing.T) {
		arr, err := BufferToArray(ecs.Tensor(ecs.F64, 3), 1, f64Buffer(1, 2, 3))
		require.NoError(t, err)
		defer arr.Release()

		_, err = ArrayBytes(arr, ecs.Tensor(ecs.F64, 4))
		require.ErrorIs(t, err, ErrArrayLayoutMismatch)
	})

	t.Run("nulls rejected", func(t *testing.T) {
		b := array.NewFloat64Builder(memory.DefaultAllocator)
		defer b.Release()
		b.AppendValues([]float64{1, 2}, []bool{true, false})
		arr := b.NewFloat64Array()
		defer arr.Release()

		_, err := ArrayBytes(arr, ecs.Scalar(ecs.F64))
		require.ErrorIs(t, err, ErrArrayLayoutMismatch)
	})
}

func TestArrayToColumnNameValidation(t *testing.T) {
	arr, err := BufferToArray(ecs.Scalar(ecs.F64), 1, f64Buffer(1))
	require.NoError(t, err)
	defer arr.Release()

	tests := []string{ecs.EntityColumnName, "not-a-number", ""}
	for _, name := range tests {
		_, err := ArrayToColumn(name, arr, ecs.Scalar(ecs.F64), false)
		require.ErrorIs(t, err, ecs.ErrInvalidComponentID, "name %q", name)
	}
}

func TestDataTypeFor(t *testing.T) {
	dt, err := DataTypeFor(ecs.Scalar(ecs.U32))
	require.NoError(t, err)
	assert.True(t, arrow.TypeEqual(arrow.PrimitiveTypes.Uint32, dt))

	dt, err = DataTypeFor(ecs.Tensor(ecs.I16, 3, 2))
	require.NoError(t, err)
	assert.True(t, arrow.TypeEqual(arrow.FixedSizeListOf(6, arrow.PrimitiveTypes.Int16), dt))
}
