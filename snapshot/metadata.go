package snapshot

import (
	"fmt"

	"github.com/alejandrosuarez/elodin/ecs"
)

// Manifest and data file names inside a snapshot directory.
const (
	ManifestFileName = "metadata.json"
	AssetsFileName   = "assets.bin"

	archetypeFileExt = ".parquet"
)

// ArchetypeFileName returns the data file name for an archetype:
// its raw numeric id plus the columnar extension.
func ArchetypeFileName(id ecs.ArchetypeID) string {
	return id.String() + archetypeFileExt
}

// ColumnMetadata describes one value column of an archetype. The
// component id keys the descriptor to its external column by name, so
// reconstruction never depends on column order surviving the file
// format.
type ColumnMetadata struct {
	ComponentID ecs.ComponentID   `json:"component_id"`
	Type        ecs.ComponentType `json:"component_type"`
	Asset       bool              `json:"asset"`
}

// ArchetypeMetadata is the side channel that makes an external table
// reconstructible: per-column type/asset descriptors (in emit order) and
// the entity map. The entity map here is the source of truth for
// row-to-entity correspondence; it is copied on load, never recomputed.
type ArchetypeMetadata struct {
	Columns   []ColumnMetadata     `json:"columns"`
	EntityMap map[ecs.EntityID]int `json:"entity_map"`
}

// columnByID returns the descriptor for a component id.
func (m *ArchetypeMetadata) columnByID(id ecs.ComponentID) (ColumnMetadata, bool) {
	for _, cm := range m.Columns {
		if cm.ComponentID == id {
			return cm, true
		}
	}
	return ColumnMetadata{}, false
}

// Metadata is the snapshot manifest, serialized once per snapshot as a
// structured document, independent of the per-archetype data files.
type Metadata struct {
	Archetypes   map[ecs.ArchetypeID]*ArchetypeMetadata `json:"archetypes"`
	ComponentMap map[ecs.ComponentID]ecs.ArchetypeID    `json:"component_map"`
	Tick         uint64                                 `json:"tick"`
	EntityLen    uint64                                 `json:"entity_len"`
}

// Validate cross-checks the component index against the archetype
// descriptors.
func (m *Metadata) Validate() error {
	for cid, aid := range m.ComponentMap {
		am, ok := m.Archetypes[aid]
		if !ok {
			return fmt.Errorf("%w: component %s maps to unlisted archetype %s",
				ecs.ErrComponentNotFound, cid, aid)
		}
		if _, ok := am.columnByID(cid); !ok {
			return fmt.Errorf("%w: component %s not described in archetype %s",
				ecs.ErrComponentNotFound, cid, aid)
		}
	}
	return nil
}
