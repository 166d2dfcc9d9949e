package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"golang.org/x/sync/errgroup"

	"github.com/alejandrosuarez/elodin/blobstore"
	"github.com/alejandrosuarez/elodin/ecs"
)

// ReadDir loads a snapshot from a local directory.
func ReadDir(ctx context.Context, dir string, optFns ...func(*Options)) (*Snapshot, error) {
	return ReadStore(ctx, blobstore.NewLocalStore(dir), optFns...)
}

// ReadStore loads a snapshot from any blob store. The manifest is read
// first and is authoritative: exactly the archetypes it lists are
// loaded, and a listed archetype without a data file is corruption, not
// an empty archetype.
func ReadStore(ctx context.Context, store blobstore.BlobStore, optFns ...func(*Options)) (*Snapshot, error) {
	opts := applyOptions(optFns)

	manifest, err := readBlob(ctx, store, ManifestFileName)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read manifest: %w", err)
	}
	meta := &Metadata{}
	if err := opts.Codec.Unmarshal(manifest, meta); err != nil {
		return nil, fmt.Errorf("snapshot: decode manifest: %w", err)
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("snapshot: manifest: %w", err)
	}

	assetData, err := readBlob(ctx, store, AssetsFileName)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read assets: %w", err)
	}
	assets, err := DecodeAssets(assetData)
	if err != nil {
		return nil, err
	}

	s := &Snapshot{
		Archetypes: make(map[ecs.ArchetypeID]arrow.Record, len(meta.Archetypes)),
		Meta:       meta,
		Assets:     assets,
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Parallelism)
	for aid := range meta.Archetypes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := readArchetype(gctx, store, aid, opts.Allocator)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			s.Archetypes[aid] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return s, nil
}

// ReadWorldDir is the one-call path from a snapshot directory back to a
// live world.
func ReadWorldDir(ctx context.Context, dir string, optFns ...func(*Options)) (*ecs.World, error) {
	s, err := ReadDir(ctx, dir, optFns...)
	if err != nil {
		return nil, err
	}
	return s.ToWorld()
}

func readArchetype(ctx context.Context, store blobstore.BlobStore, aid ecs.ArchetypeID, mem memory.Allocator) (arrow.Record, error) {
	name := ArchetypeFileName(aid)
	data, err := readBlob(ctx, store, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: archetype %s (%s)", ErrMissingArchetypeFile, aid, name)
		}
		return nil, fmt.Errorf("snapshot: read %s: %w", name, err)
	}
	tbl, err := pqarrow.ReadTable(ctx, bytes.NewReader(data),
		parquet.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("snapshot: decode %s: %w", name, err)
	}
	defer tbl.Release()
	rec, err := recordFromTable(tbl, mem)
	if err != nil {
		return nil, fmt.Errorf("snapshot: decode %s: %w", name, err)
	}
	return rec, nil
}

// readBlob returns an owned copy of one blob. Mapped blobs hand out
// memory that dies with the blob, and decoding outlives the handle, so
// the copy is mandatory here.
func readBlob(ctx context.Context, store blobstore.BlobStore, name string) ([]byte, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer blob.Close()
	data, err := blobstore.ReadAll(blob)
	if err != nil {
		return nil, err
	}
	owned := make([]byte, len(data))
	copy(owned, data)
	return owned, nil
}

// recordFromTable flattens a possibly chunked table into a single
// record. Files written here hold one row group, but readers accept any
// chunking by concatenating.
func recordFromTable(tbl arrow.Table, mem memory.Allocator) (arrow.Record, error) {
	cols := make([]arrow.Array, tbl.NumCols())
	for i := 0; i < int(tbl.NumCols()); i++ {
		chunked := tbl.Column(i).Data()
		chunks := chunked.Chunks()
		switch len(chunks) {
		case 0:
			cols[i] = array.MakeArrayOfNull(mem, tbl.Schema().Field(i).Type, 0)
		case 1:
			chunks[0].Retain()
			cols[i] = chunks[0]
		default:
			merged, err := array.Concatenate(chunks, mem)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", tbl.Schema().Field(i).Name, err)
			}
			cols[i] = merged
		}
	}
	return array.NewRecord(tbl.Schema(), cols, tbl.NumRows()), nil
}
