// Package ecs holds the in-memory data model of an archetype-organized
// entity-component world: typed, fixed-width component columns grouped
// into per-archetype tables, plus the asset store for non-tabular payloads.
//
// The package is deliberately free of any serialization concern. The
// arrowconv package bridges columns to Arrow arrays and the snapshot
// package persists whole worlds; both depend on ecs, never the other way
// around.
//
// A World is owned by exactly one caller at a time. No internal locking is
// provided; mutating a World concurrently with a conversion or snapshot
// operation is undefined behavior.
package ecs
