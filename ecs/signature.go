package ecs

import (
	"encoding/binary"
	"math/bits"

	"github.com/cespare/xxhash/v2"
)

const (
	// MaxComponentTypes caps how many component types a registry can hold.
	MaxComponentTypes = 256

	signatureWords = MaxComponentTypes / 64
)

// Signature is a fixed-width bitset with one bit per registered component
// type. Archetypes are identified by exact signature equality; queries match
// with ContainsAll. The zero value is the empty signature, and Signature is
// comparable so it can key maps directly.
type Signature [signatureWords]uint64

// NewSignature returns a signature with the given component bits set.
func NewSignature(ids ...ComponentTypeID) Signature {
	var s Signature
	for _, id := range ids {
		s.Set(id)
	}
	return s
}

// Set turns on the bit for a component type.
func (s *Signature) Set(id ComponentTypeID) {
	bit := uint32(id) - 1
	s[bit/64] |= 1 << (bit % 64)
}

// Clear turns off the bit for a component type.
func (s *Signature) Clear(id ComponentTypeID) {
	bit := uint32(id) - 1
	s[bit/64] &^= 1 << (bit % 64)
}

// Has reports whether the component type's bit is set.
func (s Signature) Has(id ComponentTypeID) bool {
	bit := uint32(id) - 1
	return s[bit/64]&(1<<(bit%64)) != 0
}

// ContainsAll reports whether every bit of other is also set in s. Queries
// use this to find archetypes carrying at least a given component set.
func (s Signature) ContainsAll(other Signature) bool {
	for i := 0; i < signatureWords; i++ {
		if s[i]&other[i] != other[i] {
			return false
		}
	}
	return true
}

// Count returns the number of set bits.
func (s Signature) Count() int {
	n := 0
	for i := 0; i < signatureWords; i++ {
		n += bits.OnesCount64(s[i])
	}
	return n
}

// IsEmpty reports whether no bits are set.
func (s Signature) IsEmpty() bool {
	return s == Signature{}
}

// Key hashes the signature down to a uint64 for integer-keyed archetype
// lookup. Callers must still compare full signatures on a hit.
func (s Signature) Key() uint64 {
	var buf [signatureWords * 8]byte
	for i, w := range s {
		binary.LittleEndian.PutUint64(buf[i*8:], w)
	}
	return xxhash.Sum64(buf[:])
}
