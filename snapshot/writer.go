package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"golang.org/x/sync/errgroup"

	"github.com/alejandrosuarez/elodin/blobstore"
	"github.com/alejandrosuarez/elodin/ecs"
)

// encodeFiles serializes the snapshot into its file set: the manifest,
// one columnar file per archetype, and the asset blob. Archetypes encode
// in parallel; all failures are collected rather than stopping at the
// first, so a bad snapshot reports every broken archetype at once.
func (s *Snapshot) encodeFiles(ctx context.Context, opts Options) (map[string][]byte, error) {
	files := make(map[string][]byte, len(s.Archetypes)+2)

	manifest, err := opts.Codec.Marshal(s.Meta)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode manifest: %w", err)
	}
	files[ManifestFileName] = manifest

	var assetBuf bytes.Buffer
	if err := EncodeAssets(&assetBuf, s.Assets, opts.Compression); err != nil {
		return nil, fmt.Errorf("snapshot: encode assets: %w", err)
	}
	files[AssetsFileName] = assetBuf.Bytes()

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Parallelism)
	for aid, rec := range s.Archetypes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := encodeParquet(rec)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("snapshot: archetype %s: %w", aid, err))
				return nil
			}
			files[ArchetypeFileName(aid)] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return files, nil
}

// encodeParquet writes one archetype record as a parquet file. The Arrow
// schema is stored alongside the parquet one so fixed-size tensor
// columns round-trip as fixed-size lists instead of decaying to plain
// lists.
func encodeParquet(rec arrow.Record) ([]byte, error) {
	var buf bytes.Buffer
	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Zstd))
	w, err := pqarrow.NewFileWriter(rec.Schema(), &buf,
		props, pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		return nil, err
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteDir persists the snapshot into dir, creating it if needed.
// Publication is atomic per file: every file is staged under a temporary
// name in the target directory, then renamed into place only after all
// stages succeeded, and the directory is fsynced last. A crash mid-write
// leaves either the previous snapshot or stray *.tmp files, never a
// half-renamed manifest over mismatched data files.
func (s *Snapshot) WriteDir(ctx context.Context, dir string, optFns ...func(*Options)) error {
	opts := applyOptions(optFns)

	files, err := s.encodeFiles(ctx, opts)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("snapshot: create dir: %w", err)
	}

	staged := make(map[string]string, len(files))
	defer func() {
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}()

	for name, data := range files {
		tmp, err := stageFile(dir, name, data)
		if err != nil {
			return err
		}
		staged[name] = tmp
	}

	for name, tmp := range staged {
		if err := os.Rename(tmp, filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("snapshot: publish %s: %w", name, err)
		}
		delete(staged, name)
	}

	return syncDir(dir)
}

func stageFile(dir, name string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("snapshot: stage %s: %w", name, err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("snapshot: stage %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("snapshot: stage %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("snapshot: stage %s: %w", name, err)
	}
	return tmp, nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

// WriteStore persists the snapshot into a writable blob store. Data
// files go first and the manifest last, so a reader that sees the
// manifest sees a complete snapshot. Object stores rename nothing, so
// this ordering is the only atomicity available there.
func (s *Snapshot) WriteStore(ctx context.Context, store blobstore.WritableStore, optFns ...func(*Options)) error {
	opts := applyOptions(optFns)

	files, err := s.encodeFiles(ctx, opts)
	if err != nil {
		return err
	}

	manifest := files[ManifestFileName]
	delete(files, ManifestFileName)
	for name, data := range files {
		if err := store.Put(ctx, name, data); err != nil {
			return fmt.Errorf("snapshot: put %s: %w", name, err)
		}
	}
	if err := store.Put(ctx, ManifestFileName, manifest); err != nil {
		return fmt.Errorf("snapshot: put %s: %w", ManifestFileName, err)
	}
	return nil
}

// WriteWorldDir is the one-call path from a live world to a durable
// snapshot directory.
func WriteWorldDir(ctx context.Context, w *ecs.World, dir string, optFns ...func(*Options)) error {
	s, err := FromWorld(w)
	if err != nil {
		return err
	}
	return s.WriteDir(ctx, dir, optFns...)
}
