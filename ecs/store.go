package ecs

// ColumnReader is a read-only view of one component column together with
// its parallel entity-id column.
type ColumnReader interface {
	// Len returns the row count.
	Len() int
	// EntityBytes returns the raw entity-id column (u64 per row).
	EntityBytes() []byte
	// ValueBytes returns the raw value buffer.
	ValueBytes() []byte
	// IsAsset reports whether the values are asset handles.
	IsAsset() bool
}

// ColumnStore is the column-lookup contract shared by the live World and
// read-only snapshot adapters. Implementations backed by remote or
// incrementally-fetched data use TransferColumn to make a column
// resident; fully-resident stores implement it as a no-op.
type ColumnStore interface {
	Column(id ComponentID) (ColumnReader, error)
	TransferColumn(id ComponentID) error
	AssetStore() *AssetStore
	Tick() uint64
}
