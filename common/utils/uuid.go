package utils

import (
	"github.com/gofrs/uuid/v5"
)

// UnsafeUUIDGenerator is a uuid v4 generator seeded from math rand, collisions
// are acceptable for connection ids and probe ids.
var UnsafeUUIDGenerator = uuid.NewGen()

func NewUUIDV4() uuid.UUID {
	u, _ := UnsafeUUIDGenerator.NewV4()
	return u
}
