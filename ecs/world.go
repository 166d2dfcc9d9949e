package ecs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// World is the root of the store: every archetype table, the inverse
// component index (each component lives in exactly one archetype), the
// tick counter, the total number of entities ever spawned, and the asset
// store.
//
// The zero value is not usable; construct with NewWorld or RestoreWorld.
type World struct {
	Archetypes   map[ArchetypeID]*Table
	ComponentMap map[ComponentID]ArchetypeID
	Assets       *AssetStore

	tick      uint64
	entityLen uint64

	// archetypeKeys maps a sorted component-id set to its archetype so
	// spawns with the same component set land in the same table.
	archetypeKeys map[string]ArchetypeID
	nextArchetype ArchetypeID
	live          *roaring64.Bitmap
}

// NewWorld returns an empty world.
func NewWorld() *World {
	return &World{
		Archetypes:    make(map[ArchetypeID]*Table),
		ComponentMap:  make(map[ComponentID]ArchetypeID),
		Assets:        NewAssetStore(),
		archetypeKeys: make(map[string]ArchetypeID),
		live:          roaring64.New(),
	}
}

// RestoreWorld assembles a world from reconstructed parts, rebuilding the
// internal spawn indexes. Every table is validated; the component map
// must agree with the tables it points into.
func RestoreWorld(archetypes map[ArchetypeID]*Table, componentMap map[ComponentID]ArchetypeID, assets *AssetStore, tick, entityLen uint64) (*World, error) {
	w := NewWorld()
	w.tick = tick
	w.entityLen = entityLen
	if assets != nil {
		w.Assets = assets
	}
	for aid, table := range archetypes {
		if err := table.Validate(); err != nil {
			return nil, fmt.Errorf("ecs: archetype %s: %w", aid, err)
		}
		w.Archetypes[aid] = table
		w.archetypeKeys[componentSetKey(table.ComponentIDs())] = aid
		if aid >= w.nextArchetype {
			w.nextArchetype = aid + 1
		}
		for id := range table.EntityMap {
			w.live.Add(uint64(id))
		}
	}
	for cid, aid := range componentMap {
		table, ok := archetypes[aid]
		if !ok {
			return nil, fmt.Errorf("%w: component %s maps to unknown archetype %s", ErrComponentNotFound, cid, aid)
		}
		if _, ok := table.Columns[cid]; !ok {
			return nil, fmt.Errorf("%w: component %s missing from archetype %s", ErrComponentNotFound, cid, aid)
		}
		w.ComponentMap[cid] = aid
	}
	return w, nil
}

// Tick returns the current tick counter.
func (w *World) Tick() uint64 {
	return w.tick
}

// AdvanceTick increments the tick counter.
func (w *World) AdvanceTick() {
	w.tick++
}

// EntityLen returns the total number of entities ever spawned.
func (w *World) EntityLen() uint64 {
	return w.entityLen
}

// InsertAsset stores an opaque payload and returns its handle. Use
// AssetValue to attach the handle to an entity.
func (w *World) InsertAsset(data []byte) AssetHandle {
	return w.Assets.Insert(data)
}

// Spawn appends one entity holding the given component values. The sorted
// component-id set selects the archetype; the first spawn of a new set
// creates its table. Every value buffer must be exactly one row of its
// declared type.
func (w *World) Spawn(values ...ComponentValue) (EntityID, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("ecs: spawn with no components")
	}
	sorted := make([]ComponentValue, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	ids := make([]ComponentID, len(sorted))
	for i, v := range sorted {
		ids[i] = v.ID
		if i > 0 && sorted[i-1].ID == v.ID {
			return 0, fmt.Errorf("ecs: duplicate component %s in spawn", v.ID)
		}
		if len(v.Data) != v.Type.RowSize() {
			return 0, fmt.Errorf("%w: component %s value has %d bytes, want %d",
				ErrSizeMismatch, v.ID, len(v.Data), v.Type.RowSize())
		}
	}

	key := componentSetKey(ids)
	aid, ok := w.archetypeKeys[key]
	if !ok {
		aid = w.nextArchetype
	}
	for _, v := range sorted {
		if owner, mapped := w.ComponentMap[v.ID]; mapped && owner != aid {
			return 0, fmt.Errorf("%w: component %s is in archetype %s", ErrComponentConflict, v.ID, owner)
		}
	}
	if !ok {
		w.nextArchetype++
		w.archetypeKeys[key] = aid
		table := NewTable()
		for _, v := range sorted {
			table.Columns[v.ID] = NewColumn(v.ID, v.Type, v.Asset)
			w.ComponentMap[v.ID] = aid
		}
		w.Archetypes[aid] = table
	}

	table := w.Archetypes[aid]
	for _, v := range sorted {
		col := table.Columns[v.ID]
		if !col.Type.Equal(v.Type) || col.Asset != v.Asset {
			return 0, fmt.Errorf("ecs: component %s spawned as %v (asset=%t), column is %v (asset=%t)",
				v.ID, v.Type, v.Asset, col.Type, col.Asset)
		}
	}
	for _, v := range sorted {
		if err := table.Columns[v.ID].AppendRow(v.Data); err != nil {
			return 0, err
		}
	}

	eid := EntityID(w.entityLen)
	w.entityLen++
	w.live.Add(uint64(eid))
	table.appendEntity(eid)
	return eid, nil
}

// Contains reports whether the entity has ever been spawned in this world.
func (w *World) Contains(id EntityID) bool {
	return w.live.Contains(uint64(id))
}

func componentSetKey(ids []ComponentID) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(id.String())
	}
	return b.String()
}

// tableColumn serves live column reads straight out of a table. The
// returned slices alias the live buffers and are valid until the next
// mutation of the world.
type tableColumn struct {
	table *Table
	col   *Column
}

func (r tableColumn) Len() int            { return r.table.Rows() }
func (r tableColumn) EntityBytes() []byte { return r.table.EntityBuffer }
func (r tableColumn) ValueBytes() []byte  { return r.col.Data }
func (r tableColumn) IsAsset() bool       { return r.col.Asset }

// Column implements ColumnStore over the live world.
func (w *World) Column(id ComponentID) (ColumnReader, error) {
	aid, ok := w.ComponentMap[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrComponentNotFound, id)
	}
	table, ok := w.Archetypes[aid]
	if !ok {
		return nil, fmt.Errorf("%w: archetype %s", ErrComponentNotFound, aid)
	}
	col, ok := table.Columns[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrComponentNotFound, id)
	}
	return tableColumn{table: table, col: col}, nil
}

// TransferColumn is a no-op: live world data is always resident.
func (w *World) TransferColumn(ComponentID) error {
	return nil
}

// AssetStore implements ColumnStore.
func (w *World) AssetStore() *AssetStore {
	return w.Assets
}

var _ ColumnStore = (*World)(nil)
