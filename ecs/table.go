package ecs

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Table stores one archetype: every column has the same row count, and a
// parallel entity-id buffer (one u64 per row, little-endian) records which
// entity owns each row. EntityMap is the inverse of the entity buffer and
// must be a bijection onto [0, Rows()).
type Table struct {
	Columns      map[ComponentID]*Column
	EntityBuffer []byte
	EntityMap    map[EntityID]int
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		Columns:   make(map[ComponentID]*Column),
		EntityMap: make(map[EntityID]int),
	}
}

// Rows returns the row count, derived from the entity buffer.
func (t *Table) Rows() int {
	return len(t.EntityBuffer) / 8
}

// ComponentIDs returns the table's component ids in ascending order. This
// order is the contract for the order columns are emitted into external
// tables.
func (t *Table) ComponentIDs() []ComponentID {
	ids := make([]ComponentID, 0, len(t.Columns))
	for id := range t.Columns {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// EntityAt returns the entity id stored at row i.
func (t *Table) EntityAt(i int) EntityID {
	return EntityID(binary.LittleEndian.Uint64(t.EntityBuffer[i*8:]))
}

// appendEntity appends one row's entity id to the entity buffer and map.
func (t *Table) appendEntity(id EntityID) {
	row := t.Rows()
	t.EntityBuffer = binary.LittleEndian.AppendUint64(t.EntityBuffer, uint64(id))
	t.EntityMap[id] = row
}

// Validate checks the table invariants: every column holds exactly
// Rows() rows of its declared row size, and EntityMap is a bijection
// between the distinct entity ids in the entity buffer and [0, Rows()).
func (t *Table) Validate() error {
	rows := t.Rows()
	if len(t.EntityBuffer) != rows*8 {
		return fmt.Errorf("%w: entity buffer has %d bytes", ErrSizeMismatch, len(t.EntityBuffer))
	}
	for id, col := range t.Columns {
		if col.ID != id {
			return fmt.Errorf("ecs: column keyed %s carries id %s", id, col.ID)
		}
		if col.Len != rows {
			return fmt.Errorf("%w: column %s has %d rows, table has %d",
				ErrSizeMismatch, id, col.Len, rows)
		}
		if err := col.Validate(); err != nil {
			return err
		}
	}

	if len(t.EntityMap) != rows {
		return fmt.Errorf("%w: %d mapped entities for %d rows", ErrEntityMapCorrupt, len(t.EntityMap), rows)
	}
	seen := roaring64.New()
	for i := 0; i < rows; i++ {
		eid := t.EntityAt(i)
		if seen.Contains(uint64(eid)) {
			return fmt.Errorf("%w: duplicate entity %d in entity buffer", ErrEntityMapCorrupt, eid)
		}
		seen.Add(uint64(eid))
		if got, ok := t.EntityMap[eid]; !ok || got != i {
			return fmt.Errorf("%w: entity %d at row %d maps to (%d, %t)",
				ErrEntityMapCorrupt, eid, i, got, ok)
		}
	}
	return nil
}
