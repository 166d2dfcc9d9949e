package snapshot

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrosuarez/elodin/ecs"
)

func testWorld(t *testing.T) *ecs.World {
	t.Helper()
	w := ecs.NewWorld()

	quat, err := ecs.F64Value(100, ecs.Tensor(ecs.F64, 7), 1, 0, 0, 0, 1, 0, 0)
	require.NoError(t, err)
	mass, err := ecs.F64Value(200, ecs.Scalar(ecs.F64), 1.0)
	require.NoError(t, err)
	_, err = w.Spawn(quat, mass)
	require.NoError(t, err)

	h := w.InsertAsset([]byte{0xde, 0xad, 0xbe, 0xef})
	_, err = w.Spawn(ecs.AssetValue(300, h))
	require.NoError(t, err)

	w.AdvanceTick()
	return w
}

func TestTableRoundTrip(t *testing.T) {
	w := testWorld(t)
	aid := w.ComponentMap[100]
	table := w.Archetypes[aid]

	meta, rec, err := TableToRecord(table)
	require.NoError(t, err)
	defer rec.Release()

	require.Equal(t, int64(2+1), rec.NumCols(), "two value columns plus the entity column")
	assert.Equal(t, "100", rec.ColumnName(0))
	assert.Equal(t, "200", rec.ColumnName(1))
	assert.Equal(t, ecs.EntityColumnName, rec.ColumnName(2))
	require.Len(t, meta.Columns, 2)
	assert.Equal(t, ecs.ComponentID(100), meta.Columns[0].ComponentID)
	assert.False(t, meta.Columns[0].Asset)

	got, err := TableFromRecord(rec, meta)
	require.NoError(t, err)
	assert.Equal(t, table.EntityBuffer, got.EntityBuffer)
	assert.Equal(t, table.EntityMap, got.EntityMap)
	require.Contains(t, got.Columns, ecs.ComponentID(100))
	assert.Equal(t, table.Columns[100].Data, got.Columns[100].Data)
	assert.Equal(t, table.Columns[200].Data, got.Columns[200].Data)
}

func TestTableFromRecordErrors(t *testing.T) {
	w := testWorld(t)
	table := w.Archetypes[w.ComponentMap[100]]
	meta, rec, err := TableToRecord(table)
	require.NoError(t, err)
	defer rec.Release()

	t.Run("missing entity column", func(t *testing.T) {
		// A record holding only the value columns.
		schema := arrow.NewSchema(rec.Schema().Fields()[:2], nil)
		sub := array.NewRecord(schema, rec.Columns()[:2], rec.NumRows())
		defer sub.Release()

		_, err := TableFromRecord(sub, meta)
		require.ErrorIs(t, err, ErrMissingEntityColumn)
	})

	t.Run("descriptor without column", func(t *testing.T) {
		extra := &ArchetypeMetadata{
			Columns:   append([]ColumnMetadata{}, meta.Columns...),
			EntityMap: meta.EntityMap,
		}
		extra.Columns = append(extra.Columns, ColumnMetadata{
			ComponentID: 999, Type: ecs.Scalar(ecs.F64),
		})
		_, err := TableFromRecord(rec, extra)
		require.ErrorIs(t, err, ecs.ErrComponentNotFound)
	})

	t.Run("column without descriptor", func(t *testing.T) {
		short := &ArchetypeMetadata{
			Columns:   meta.Columns[:1],
			EntityMap: meta.EntityMap,
		}
		_, err := TableFromRecord(rec, short)
		require.ErrorIs(t, err, ecs.ErrComponentNotFound)
	})
}

func TestWorldRoundTrip(t *testing.T) {
	w := testWorld(t)

	s, err := FromWorld(w)
	require.NoError(t, err)
	assert.Len(t, s.Archetypes, 2)
	assert.Equal(t, w.Tick(), s.Meta.Tick)
	assert.Equal(t, w.EntityLen(), s.Meta.EntityLen)
	require.NoError(t, s.Meta.Validate())

	got, err := s.ToWorld()
	require.NoError(t, err)
	assert.Equal(t, w.Tick(), got.Tick())
	assert.Equal(t, w.EntityLen(), got.EntityLen())
	assert.Equal(t, w.ComponentMap, got.ComponentMap)

	src, err := w.Column(100)
	require.NoError(t, err)
	dst, err := got.Column(100)
	require.NoError(t, err)
	assert.Equal(t, src.ValueBytes(), dst.ValueBytes())
	assert.Equal(t, src.EntityBytes(), dst.EntityBytes())

	blob, ok := got.Assets.Get(0)
	require.True(t, ok)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, blob)
}

func TestToWorldMissingRecord(t *testing.T) {
	w := testWorld(t)
	s, err := FromWorld(w)
	require.NoError(t, err)

	for aid := range s.Archetypes {
		delete(s.Archetypes, aid)
		break
	}
	_, err = s.ToWorld()
	require.ErrorIs(t, err, ErrMissingArchetypeFile)
}
