package ecs

// AssetHandle addresses one blob in an AssetStore. Asset-flagged columns
// store handles, not payloads.
type AssetHandle uint64

// AssetStore holds opaque blob payloads (meshes, textures, anything
// non-tabular) keyed by insertion-ordered handles. It is persisted as one
// compact binary file per snapshot; the store itself knows nothing about
// encoding.
type AssetStore struct {
	Blobs [][]byte
}

// NewAssetStore returns an empty store.
func NewAssetStore() *AssetStore {
	return &AssetStore{}
}

// Insert copies data into the store and returns its handle.
func (s *AssetStore) Insert(data []byte) AssetHandle {
	blob := make([]byte, len(data))
	copy(blob, data)
	s.Blobs = append(s.Blobs, blob)
	return AssetHandle(len(s.Blobs) - 1)
}

// Get returns the blob for h, or false if the handle is out of range.
func (s *AssetStore) Get(h AssetHandle) ([]byte, bool) {
	if int(h) >= len(s.Blobs) {
		return nil, false
	}
	return s.Blobs[h], true
}

// Len returns the number of stored blobs.
func (s *AssetStore) Len() int {
	return len(s.Blobs)
}
