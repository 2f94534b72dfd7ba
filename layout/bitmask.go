package layout

import (
	"math/bits"
	"sync/atomic"
)

// BitArray is a bitmask packed into 32-bit words, one bit per atom,
// indexed by global element id. Set is atomic so parallel kernel
// invocations can flag atoms without coordination.
type BitArray []uint32

// NewBitArray returns a zeroed BitArray with capacity for n bits.
func NewBitArray(n int) BitArray {
	return make(BitArray, (n+31)/32)
}

// Get returns bit i.
func (b BitArray) Get(i int) bool {
	return b[i/32]&(1<<(uint(i)%32)) != 0
}

// Set sets bit i. Safe for concurrent use.
func (b BitArray) Set(i int) {
	atomic.OrUint32(&b[i/32], 1<<(uint(i)%32))
}

// Zero clears every bit.
func (b BitArray) Zero() {
	for i := range b {
		b[i] = 0
	}
}

// Count returns the number of set bits.
func (b BitArray) Count() int {
	n := 0
	for _, w := range b {
		n += bits.OnesCount32(w)
	}
	return n
}

// Clone returns an independent copy of b.
func (b BitArray) Clone() BitArray {
	c := make(BitArray, len(b))
	copy(c, b)
	return c
}
