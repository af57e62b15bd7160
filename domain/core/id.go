package core

import (
	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	// RunID identifies one validation run.
	RunID ID
	// EntityID is the building or meter identifier as supplied by the data source.
	EntityID string
	// VariableID is a canonical simulation-variable identifier
	// (normalized snake_case, e.g. "electricity_facility").
	VariableID string
)

func (e EntityID) String() string   { return string(e) }
func (v VariableID) String() string { return string(v) }
