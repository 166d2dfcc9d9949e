package snapshot

import (
	"runtime"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/alejandrosuarez/elodin/codec"
	"github.com/alejandrosuarez/elodin/ecs"
)

// Snapshot is the external form of a world: one Arrow record per
// archetype, the manifest, and the asset store. It is produced by
// FromWorld or by reading a snapshot directory, and consumed by ToWorld,
// the writers, or directly through its read-only column-store adapter.
type Snapshot struct {
	Archetypes map[ecs.ArchetypeID]arrow.Record
	Meta       *Metadata
	Assets     *ecs.AssetStore
}

// Options configures snapshot encoding and decoding.
type Options struct {
	// Codec encodes the manifest document. Defaults to codec.Default.
	Codec codec.Codec

	// Compression is applied to the asset blob payload. Archetype files
	// carry their own (parquet-level) compression independently of this.
	Compression Compression

	// Parallelism bounds concurrent per-archetype encodes/decodes.
	// Defaults to GOMAXPROCS. Column extraction within one archetype is
	// always sequential.
	Parallelism int

	// Allocator is used for Arrow buffers during decoding.
	Allocator memory.Allocator
}

func defaultOptions() Options {
	return Options{
		Codec:       codec.Default,
		Compression: CompressionZstd,
		Parallelism: runtime.GOMAXPROCS(0),
		Allocator:   memory.DefaultAllocator,
	}
}

func applyOptions(optFns []func(*Options)) Options {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = runtime.GOMAXPROCS(0)
	}
	if opts.Allocator == nil {
		opts.Allocator = memory.DefaultAllocator
	}
	return opts
}
