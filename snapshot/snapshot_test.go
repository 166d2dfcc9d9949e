package snapshot

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrosuarez/elodin/blobstore"
	"github.com/alejandrosuarez/elodin/codec"
	"github.com/alejandrosuarez/elodin/ecs"
)

func f64Bytes(vals ...float64) []byte {
	buf := make([]byte, 0, len(vals)*8)
	for _, v := range vals {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	return buf
}

func TestWriteDirReadDirRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	w := testWorld(t)

	require.NoError(t, WriteWorldDir(ctx, w, dir))

	// The directory holds the manifest, the asset blob and one data file
	// per archetype, nothing else.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{
		ManifestFileName,
		AssetsFileName,
		"0.parquet",
		"1.parquet",
	}, names)

	got, err := ReadWorldDir(ctx, dir)
	require.NoError(t, err)

	assert.Equal(t, w.Tick(), got.Tick())
	assert.Equal(t, w.EntityLen(), got.EntityLen())

	quat, err := got.Column(100)
	require.NoError(t, err)
	assert.Equal(t, 1, quat.Len())
	assert.Equal(t, f64Bytes(1, 0, 0, 0, 1, 0, 0), quat.ValueBytes())

	mass, err := got.Column(200)
	require.NoError(t, err)
	assert.Equal(t, f64Bytes(1.0), mass.ValueBytes())

	handle, err := got.Column(300)
	require.NoError(t, err)
	assert.True(t, handle.IsAsset())
	blob, ok := got.Assets.Get(ecs.AssetHandle(binary.LittleEndian.Uint64(handle.ValueBytes())))
	require.True(t, ok)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, blob)
}

func TestWriteDirOverwritesPrevious(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	w1 := testWorld(t)
	require.NoError(t, WriteWorldDir(ctx, w1, dir))

	w2 := testWorld(t)
	w2.AdvanceTick()
	require.NoError(t, WriteWorldDir(ctx, w2, dir))

	got, err := ReadWorldDir(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, w2.Tick(), got.Tick())

	// No stray staging files survive a successful publish.
	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestReadDirMissingArchetypeFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	w := testWorld(t)
	require.NoError(t, WriteWorldDir(ctx, w, dir))

	require.NoError(t, os.Remove(filepath.Join(dir, "0.parquet")))

	_, err := ReadDir(ctx, dir)
	require.ErrorIs(t, err, ErrMissingArchetypeFile)
}

func TestReadDirMissingManifest(t *testing.T) {
	_, err := ReadDir(context.Background(), t.TempDir())
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	w := testWorld(t)

	s, err := FromWorld(w)
	require.NoError(t, err)
	require.NoError(t, s.WriteStore(ctx, store))

	loaded, err := ReadStore(ctx, store)
	require.NoError(t, err)
	got, err := loaded.ToWorld()
	require.NoError(t, err)

	assert.Equal(t, w.Tick(), got.Tick())
	src, err := w.Column(100)
	require.NoError(t, err)
	dst, err := got.Column(100)
	require.NoError(t, err)
	assert.Equal(t, src.ValueBytes(), dst.ValueBytes())
}

func TestSnapshotOptions(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	w := testWorld(t)

	require.NoError(t, WriteWorldDir(ctx, w, dir,
		func(o *Options) {
			o.Codec = codec.JSON{}
			o.Compression = CompressionLZ4
			o.Parallelism = 1
		}))

	got, err := ReadWorldDir(ctx, dir, func(o *Options) { o.Codec = codec.JSON{} })
	require.NoError(t, err)
	assert.Equal(t, w.EntityLen(), got.EntityLen())
}

func TestCanceledContext(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	w := testWorld(t)

	t.Run("write", func(t *testing.T) {
		err := WriteWorldDir(canceled, w, t.TempDir())
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("read", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, WriteWorldDir(context.Background(), w, dir))

		_, err := ReadDir(canceled, dir)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestSnapshotColumnStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	w := testWorld(t)
	require.NoError(t, WriteWorldDir(ctx, w, dir))

	s, err := ReadDir(ctx, dir)
	require.NoError(t, err)

	t.Run("value column", func(t *testing.T) {
		col, err := s.Column(100)
		require.NoError(t, err)
		assert.Equal(t, 1, col.Len())
		assert.False(t, col.IsAsset())
		assert.Equal(t, f64Bytes(1, 0, 0, 0, 1, 0, 0), col.ValueBytes())
		assert.Equal(t, uint64(0), binary.LittleEndian.Uint64(col.EntityBytes()))
	})

	t.Run("asset column rejected", func(t *testing.T) {
		_, err := s.Column(300)
		require.ErrorIs(t, err, ecs.ErrComponentNotFound)
	})

	t.Run("unknown component", func(t *testing.T) {
		_, err := s.Column(9999)
		require.ErrorIs(t, err, ecs.ErrComponentNotFound)
	})

	t.Run("transfer resolves residency", func(t *testing.T) {
		require.NoError(t, s.TransferColumn(100))
		require.ErrorIs(t, s.TransferColumn(9999), ecs.ErrComponentNotFound)
	})

	t.Run("transfer of asset component is a no-op", func(t *testing.T) {
		require.NoError(t, s.TransferColumn(300))
		_, err := s.Column(300)
		require.ErrorIs(t, err, ecs.ErrComponentNotFound)
	})

	t.Run("tick and assets", func(t *testing.T) {
		assert.Equal(t, w.Tick(), s.Tick())
		require.NotNil(t, s.AssetStore())
		assert.Equal(t, 1, s.AssetStore().Len())
	})
}
