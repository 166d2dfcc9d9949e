// Package snapshot persists whole ecs worlds as directories of columnar
// files and loads them back, byte-for-byte.
//
// A snapshot directory holds one JSON manifest (metadata.json), one
// parquet file per archetype named by the raw numeric archetype id, and
// one compact binary asset blob (assets.bin). The manifest is the
// authority: the set of archetypes read back is exactly the set it
// lists, never the set of files that happen to exist.
//
// The Snapshot type is the in-memory external form of a world (Arrow
// records plus manifest plus assets). It sits between the live store and
// the files on both paths, and doubles as a read-only column store: a
// loaded snapshot answers the same column lookups a live world does,
// without being rebuilt into one.
package snapshot
