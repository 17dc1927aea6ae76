// Package determinism provides primitives for stable identities and ordering.
// Two runs over the same configuration must enumerate targets in the same
// order and derive the same identities, so map iteration never leaks into
// output.
package determinism

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"slices"
)

// StableID is a hash-based identifier that is deterministic across runs
type StableID string

// IDGenerator generates stable, deterministic IDs
type IDGenerator struct {
	namespace string
}

// NewIDGenerator creates an ID generator with a namespace
func NewIDGenerator(namespace string) *IDGenerator {
	return &IDGenerator{namespace: namespace}
}

// Generate creates a stable ID from ordered parts. Parts are NUL separated
// so that ("ab", "c") and ("a", "bc") never collide.
func (g *IDGenerator) Generate(parts ...string) StableID {
	h := sha256.New()
	h.Write([]byte(g.namespace))
	h.Write([]byte{0})
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return StableID(hex.EncodeToString(h.Sum(nil))[:24])
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
