// Package prng provides the seeded, reproducible randomness used by the
// procedural generators. Everything here is a pure function of its seed.
package prng

import "hash/fnv"

// Hash returns the 32-bit FNV-1a hash of seed.
func Hash(seed string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed)) // hash.Hash never returns an error
	return h.Sum32()
}

// Generator is a counter-based mixing generator (mulberry32).
// It is not safe for concurrent use.
type Generator struct {
	state uint32
}

// New creates a generator for the given seed
func New(seed uint32) *Generator {
	return &Generator{state: seed}
}

// FromString seeds a generator with Hash(s).
func FromString(s string) *Generator {
	return New(Hash(s))
}

// Uint32 returns the next mixed 32-bit value.
func (g *Generator) Uint32() uint32 {
	g.state += 0x6D2B79F5
	t := g.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return t ^ (t >> 14)
}

// Float64 returns a value in [0, 1).
func (g *Generator) Float64() float64 {
	return float64(g.Uint32()) / 4294967296.0
}

// Intn returns a value in [0, n). It returns 0 when n <= 0.
func (g *Generator) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(g.Float64() * float64(n))
}

// Choice returns a pseudo-random element of items, or "" for an empty slice.
func (g *Generator) Choice(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return items[g.Intn(len(items))]
}

// MakeGenerator returns the closure form of New(seed).Float64.
func MakeGenerator(seed uint32) func() float64 {
	g := New(seed)
	return g.Float64
}
