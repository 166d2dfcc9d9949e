package ecs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentIDRoundTrip(t *testing.T) {
	tests := []uint64{0, 1, 42, 1<<63 + 7, ^uint64(0)}
	for _, v := range tests {
		id := ComponentID(v)
		got, err := ParseComponentID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
}

func TestParseComponentIDRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"reserved entity column", EntityColumnName},
		{"negative", "-1"},
		{"trailing garbage", "42abc"},
		{"hex", "0x10"},
		{"overflow", "18446744073709551616"}, // 2^64
		{"float", "1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseComponentID(tt.input)
			require.ErrorIs(t, err, ErrInvalidComponentID)
		})
	}
}

func TestComponentTypeSizing(t *testing.T) {
	tests := []struct {
		name      string
		typ       ComponentType
		elemCount int
		rowSize   int
	}{
		{"scalar f64", Scalar(F64), 1, 8},
		{"scalar u8", Scalar(U8), 1, 1},
		{"vector f64", Tensor(F64, 7), 7, 56},
		{"matrix f32", Tensor(F32, 3, 4), 12, 48},
		{"zero dim", Tensor(F64, 3, 0), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.elemCount, tt.typ.ElemCount())
			assert.Equal(t, tt.rowSize, tt.typ.RowSize())
		})
	}
}

func TestComponentTypeEqual(t *testing.T) {
	assert.True(t, Scalar(F64).Equal(ComponentType{Kind: F64, Shape: []int{}}))
	assert.True(t, Tensor(F64, 3).Equal(Tensor(F64, 3)))
	assert.False(t, Tensor(F64, 3).Equal(Tensor(F64, 4)))
	assert.False(t, Scalar(F64).Equal(Scalar(F32)))
	assert.False(t, Scalar(F64).Equal(Tensor(F64, 1)))
}

func TestComponentTypeJSON(t *testing.T) {
	t.Run("scalar shape stays empty", func(t *testing.T) {
		b, err := json.Marshal(Scalar(F64))
		require.NoError(t, err)
		assert.JSONEq(t, `{"primitive_kind":"f64","shape":[]}`, string(b))

		var got ComponentType
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Nil(t, got.Shape)
		assert.True(t, got.Equal(Scalar(F64)))
	})

	t.Run("tensor", func(t *testing.T) {
		b, err := json.Marshal(Tensor(I32, 2, 3))
		require.NoError(t, err)
		assert.JSONEq(t, `{"primitive_kind":"i32","shape":[2,3]}`, string(b))

		var got ComponentType
		require.NoError(t, json.Unmarshal(b, &got))
		assert.True(t, got.Equal(Tensor(I32, 2, 3)))
	})

	t.Run("unknown kind rejected", func(t *testing.T) {
		var got ComponentType
		err := json.Unmarshal([]byte(`{"primitive_kind":"f128","shape":[]}`), &got)
		require.Error(t, err)
	})
}

func TestPrimitiveKindSize(t *testing.T) {
	assert.Equal(t, 1, U8.Size())
	assert.Equal(t, 1, Bool.Size())
	assert.Equal(t, 2, I16.Size())
	assert.Equal(t, 4, F32.Size())
	assert.Equal(t, 8, U64.Size())
}
