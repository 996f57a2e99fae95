package utils

import (
	"hash/maphash"
)

var seed = maphash.MakeSeed()

// MapHash returns a hash of the string, stable for the lifetime of the
// process. Used for consistent-hashing keys, not for persistence.
func MapHash(s string) uint64 {
	return maphash.String(seed, s)
}
