package id

import "github.com/google/uuid"

// Generator hands out the ids stamped on pack events before they reach the
// journal.
type Generator interface {
	New() string
}

// UUID issues random version 4 UUIDs.
type UUID struct{}

func (UUID) New() string {
	return uuid.NewString()
}
