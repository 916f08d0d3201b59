package ecs

import (
	"math/bits"
	"strconv"
	"strings"
)

// BitSetWidth is the number of slots a BitSet32 can address.
const BitSetWidth = 32

// BitSet32 is a fixed 32-slot boolean vector. Its integer value is its
// identity, so two sets holding the same slots compare equal and can be used
// directly as map keys.
//
// Indices outside [0, 32) are ignored on every operation.
type BitSet32 uint32

// MergeIDs builds a set with the given slots marked.
func MergeIDs(ids ...int) BitSet32 {
	var b BitSet32
	for _, id := range ids {
		b.Set(id, true)
	}
	return b
}

// MergeSets unions several sets into one.
func MergeSets(sets ...BitSet32) BitSet32 {
	var b BitSet32
	for _, s := range sets {
		b |= s
	}
	return b
}

// Get reports whether slot i is set.
func (b BitSet32) Get(i int) bool {
	if i < 0 || i >= BitSetWidth {
		return false
	}
	return b&(1<<uint(i)) != 0
}

// Set marks or unmarks slot i.
func (b *BitSet32) Set(i int, v bool) {
	if i < 0 || i >= BitSetWidth {
		return
	}
	if v {
		*b |= 1 << uint(i)
	} else {
		*b &^= 1 << uint(i)
	}
}

// Clear sets every slot to fill.
func (b *BitSet32) Clear(fill bool) {
	if fill {
		*b = ^BitSet32(0)
		return
	}
	*b = 0
}

// ID returns the integer identity of the set.
func (b BitSet32) ID() uint32 {
	return uint32(b)
}

// ContainsAll reports whether every slot of sub is also set in b.
func (b BitSet32) ContainsAll(sub BitSet32) bool {
	return b&sub == sub
}

// ContainsAny reports whether b and other share at least one slot.
func (b BitSet32) ContainsAny(other BitSet32) bool {
	return b&other != 0
}

// IsEmpty reports whether no slot is set.
func (b BitSet32) IsEmpty() bool {
	return b == 0
}

// Len returns the number of set slots.
func (b BitSet32) Len() int {
	return bits.OnesCount32(uint32(b))
}

// Each calls fn for every set slot in ascending order until fn returns false.
func (b BitSet32) Each(fn func(i int) bool) {
	w := uint32(b)
	for w != 0 {
		i := bits.TrailingZeros32(w)
		if !fn(i) {
			return
		}
		w &^= 1 << uint(i)
	}
}

// String renders the set as "{0,3,7}".
func (b BitSet32) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	b.Each(func(i int) bool {
		if !first {
			sb.WriteByte(',')
		}
		first = false
		sb.WriteString(strconv.Itoa(i))
		return true
	})
	sb.WriteByte('}')
	return sb.String()
}
