package snapshot

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/alejandrosuarez/elodin/arrowconv"
	"github.com/alejandrosuarez/elodin/ecs"
)

// Snapshot is itself a read-only column store: queries resolve against
// the loaded Arrow records without rebuilding a world. Asset columns are
// not addressable through this view since their payloads live in the
// asset blob, not the column.
var _ ecs.ColumnStore = (*Snapshot)(nil)

// Column resolves a component id to its column view. The lookup follows
// the manifest's component index to the owning archetype, then matches
// the record column by name.
func (s *Snapshot) Column(id ecs.ComponentID) (ecs.ColumnReader, error) {
	aid, ok := s.Meta.ComponentMap[id]
	if !ok {
		return nil, fmt.Errorf("%w: component %s", ecs.ErrComponentNotFound, id)
	}
	am, ok := s.Meta.Archetypes[aid]
	if !ok {
		return nil, fmt.Errorf("%w: component %s maps to unlisted archetype %s",
			ecs.ErrComponentNotFound, id, aid)
	}
	cm, ok := am.columnByID(id)
	if !ok {
		return nil, fmt.Errorf("%w: component %s not described in archetype %s",
			ecs.ErrComponentNotFound, id, aid)
	}
	if cm.Asset {
		return nil, fmt.Errorf("%w: component %s is an asset column",
			ecs.ErrComponentNotFound, id)
	}
	rec, ok := s.Archetypes[aid]
	if !ok {
		return nil, fmt.Errorf("%w: archetype %s", ErrMissingArchetypeFile, aid)
	}

	values, err := recordColumnBytes(rec, id.String(), cm.Type)
	if err != nil {
		return nil, fmt.Errorf("snapshot: component %s: %w", id, err)
	}
	entities, err := recordColumnBytes(rec, ecs.EntityColumnName, ecs.Scalar(ecs.U64))
	if err != nil {
		return nil, fmt.Errorf("snapshot: component %s: %w", id, err)
	}

	return &snapshotColumn{
		rows:     int(rec.NumRows()),
		entities: entities,
		values:   values,
	}, nil
}

// TransferColumn is a no-op: every column of a loaded snapshot is
// already resident. Only existence is resolved, so asset components
// transfer fine even though Column refuses to serve them as views.
func (s *Snapshot) TransferColumn(id ecs.ComponentID) error {
	aid, ok := s.Meta.ComponentMap[id]
	if !ok {
		return fmt.Errorf("%w: component %s", ecs.ErrComponentNotFound, id)
	}
	if _, ok := s.Archetypes[aid]; !ok {
		return fmt.Errorf("%w: archetype %s", ErrMissingArchetypeFile, aid)
	}
	return nil
}

// AssetStore returns the snapshot's asset store.
func (s *Snapshot) AssetStore() *ecs.AssetStore {
	return s.Assets
}

// Tick returns the simulation tick recorded in the manifest.
func (s *Snapshot) Tick() uint64 {
	return s.Meta.Tick
}

// recordColumnBytes extracts one record column, by name, into an owned
// packed buffer.
func recordColumnBytes(rec arrow.Record, name string, typ ecs.ComponentType) ([]byte, error) {
	indices := rec.Schema().FieldIndices(name)
	if len(indices) == 0 {
		return nil, fmt.Errorf("%w: column %q absent from record",
			ecs.ErrComponentNotFound, name)
	}
	return arrowconv.ArrayBytes(rec.Column(indices[0]), typ)
}

// snapshotColumn is an owned, contiguous copy of one column pair. Copies
// are taken at lookup time so the view stays valid independently of the
// backing record's lifetime.
type snapshotColumn struct {
	rows     int
	entities []byte
	values   []byte
}

func (c *snapshotColumn) Len() int            { return c.rows }
func (c *snapshotColumn) EntityBytes() []byte { return c.entities }
func (c *snapshotColumn) ValueBytes() []byte  { return c.values }
func (c *snapshotColumn) IsAsset() bool       { return false }
