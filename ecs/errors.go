package ecs

import "errors"

var (
	// ErrComponentNotFound is returned when a component id cannot be
	// resolved to a column, in either the live store or a snapshot
	// adapter.
	ErrComponentNotFound = errors.New("ecs: component not found")

	// ErrInvalidComponentID is returned when an external column name does
	// not parse exactly into a 64-bit component id.
	ErrInvalidComponentID = errors.New("ecs: invalid component id")

	// ErrComponentConflict is returned when a spawn would place a
	// component into a different archetype than the one it already
	// belongs to. Each component lives in exactly one archetype.
	ErrComponentConflict = errors.New("ecs: component already belongs to another archetype")

	// ErrSizeMismatch is returned when a column buffer does not hold
	// exactly rows x row-size bytes, or a spawned value has the wrong
	// length for its declared type.
	ErrSizeMismatch = errors.New("ecs: buffer size mismatch")

	// ErrEntityMapCorrupt is returned by Table.Validate when the entity
	// map is not a bijection onto the table rows.
	ErrEntityMapCorrupt = errors.New("ecs: entity map is not a row bijection")
)
