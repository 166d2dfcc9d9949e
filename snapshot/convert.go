package snapshot

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/alejandrosuarez/elodin/arrowconv"
	"github.com/alejandrosuarez/elodin/ecs"
)

// TableToRecord converts one archetype table into its external form: an
// Arrow record holding every column plus the reserved entity-id column,
// and the metadata needed to reconstruct typed columns later. Value
// columns are emitted in ascending component-id order, with the entity-id
// column last; the metadata descriptor list follows the same order.
func TableToRecord(t *ecs.Table) (*ArchetypeMetadata, arrow.Record, error) {
	ids := t.ComponentIDs()

	meta := &ArchetypeMetadata{
		Columns:   make([]ColumnMetadata, 0, len(ids)),
		EntityMap: make(map[ecs.EntityID]int, len(t.EntityMap)),
	}
	for id, row := range t.EntityMap {
		meta.EntityMap[id] = row
	}

	fields := make([]arrow.Field, 0, len(ids)+1)
	cols := make([]arrow.Array, 0, len(ids)+1)
	for _, id := range ids {
		col := t.Columns[id]
		field, err := arrowconv.FieldForColumn(col)
		if err != nil {
			return nil, nil, err
		}
		arr, err := arrowconv.ColumnToArray(col)
		if err != nil {
			return nil, nil, fmt.Errorf("snapshot: column %s: %w", id, err)
		}
		fields = append(fields, field)
		cols = append(cols, arr)
		meta.Columns = append(meta.Columns, ColumnMetadata{
			ComponentID: id,
			Type:        col.Type,
			Asset:       col.Asset,
		})
	}

	entities, err := arrowconv.BufferToArray(ecs.Scalar(ecs.U64), t.Rows(), t.EntityBuffer)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: entity column: %w", err)
	}
	fields = append(fields, arrow.Field{Name: ecs.EntityColumnName, Type: entities.DataType()})
	cols = append(cols, entities)

	schema := arrow.NewSchema(fields, nil)
	return meta, array.NewRecord(schema, cols, int64(t.Rows())), nil
}

// TableFromRecord rebuilds an archetype table from its external form.
// Columns are matched to metadata descriptors by the component id decoded
// from each column's name, so the match survives any reordering between
// write and read. The entity map is copied straight from metadata.
func TableFromRecord(rec arrow.Record, meta *ArchetypeMetadata) (*ecs.Table, error) {
	byID := make(map[ecs.ComponentID]ColumnMetadata, len(meta.Columns))
	for _, cm := range meta.Columns {
		byID[cm.ComponentID] = cm
	}

	table := ecs.NewTable()
	foundEntities := false
	for i := 0; i < int(rec.NumCols()); i++ {
		name := rec.ColumnName(i)
		arr := rec.Column(i)

		if name == ecs.EntityColumnName {
			buf, err := arrowconv.ArrayBytes(arr, ecs.Scalar(ecs.U64))
			if err != nil {
				return nil, fmt.Errorf("snapshot: entity column: %w", err)
			}
			table.EntityBuffer = buf
			foundEntities = true
			continue
		}

		id, err := ecs.ParseComponentID(name)
		if err != nil {
			return nil, err
		}
		cm, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: column %s has no metadata descriptor",
				ecs.ErrComponentNotFound, id)
		}
		col, err := arrowconv.ArrayToColumn(name, arr, cm.Type, cm.Asset)
		if err != nil {
			return nil, err
		}
		table.Columns[id] = col
		delete(byID, id)
	}

	if !foundEntities {
		return nil, fmt.Errorf("%w: no %q column", ErrMissingEntityColumn, ecs.EntityColumnName)
	}
	if len(byID) > 0 {
		for id := range byID {
			return nil, fmt.Errorf("%w: metadata describes column %s absent from external table",
				ecs.ErrComponentNotFound, id)
		}
	}

	table.EntityMap = make(map[ecs.EntityID]int, len(meta.EntityMap))
	for id, row := range meta.EntityMap {
		table.EntityMap[id] = row
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("snapshot: reconstructed table: %w", err)
	}
	return table, nil
}

// FromWorld converts a live world into its external snapshot form. The
// asset store is shared, not copied; the caller owns the world
// exclusively for the duration of any conversion.
func FromWorld(w *ecs.World) (*Snapshot, error) {
	s := &Snapshot{
		Archetypes: make(map[ecs.ArchetypeID]arrow.Record, len(w.Archetypes)),
		Meta: &Metadata{
			Archetypes:   make(map[ecs.ArchetypeID]*ArchetypeMetadata, len(w.Archetypes)),
			ComponentMap: make(map[ecs.ComponentID]ecs.ArchetypeID, len(w.ComponentMap)),
			Tick:         w.Tick(),
			EntityLen:    w.EntityLen(),
		},
		Assets: w.Assets,
	}
	for cid, aid := range w.ComponentMap {
		s.Meta.ComponentMap[cid] = aid
	}
	for aid, table := range w.Archetypes {
		meta, rec, err := TableToRecord(table)
		if err != nil {
			return nil, fmt.Errorf("snapshot: archetype %s: %w", aid, err)
		}
		s.Meta.Archetypes[aid] = meta
		s.Archetypes[aid] = rec
	}
	return s, nil
}

// ToWorld rebuilds a live world from the snapshot. The manifest's
// archetype set is authoritative: every listed archetype must have a
// record, and tick/entity count come from the manifest.
func (s *Snapshot) ToWorld() (*ecs.World, error) {
	tables := make(map[ecs.ArchetypeID]*ecs.Table, len(s.Meta.Archetypes))
	for aid, meta := range s.Meta.Archetypes {
		rec, ok := s.Archetypes[aid]
		if !ok {
			return nil, fmt.Errorf("%w: archetype %s", ErrMissingArchetypeFile, aid)
		}
		table, err := TableFromRecord(rec, meta)
		if err != nil {
			return nil, fmt.Errorf("snapshot: archetype %s: %w", aid, err)
		}
		tables[aid] = table
	}
	return ecs.RestoreWorld(tables, s.Meta.ComponentMap, s.Assets, s.Meta.Tick, s.Meta.EntityLen)
}
