package snapshot

import "errors"

var (
	// ErrMissingEntityColumn is returned when an external table has no
	// reserved entity-id column.
	ErrMissingEntityColumn = errors.New("snapshot: missing entity id column")

	// ErrMissingArchetypeFile is returned when the manifest lists an
	// archetype whose data file is absent. The manifest is authoritative;
	// a missing file is corruption, not an empty archetype.
	ErrMissingArchetypeFile = errors.New("snapshot: missing archetype file")

	// ErrChecksumMismatch is returned when the asset blob fails its
	// integrity check.
	ErrChecksumMismatch = errors.New("snapshot: asset blob checksum mismatch")

	// ErrMalformedAssets is returned when the asset blob cannot be
	// parsed (bad magic, unknown version or compression, truncation).
	ErrMalformedAssets = errors.New("snapshot: malformed asset blob")
)
