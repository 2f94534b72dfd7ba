package layout

// Buffers owns every pipeline buffer for one collision session. The
// session allocates them once at creation and releases them at dispose;
// passes only ever reset and overwrite them in place.
type Buffers struct {
	AtomCount int
	CellCount int

	// Elems holds ElemStride words per atom in registration (global id)
	// order; Bonds holds BondStride bonded-neighbor ids per atom.
	Elems []uint32
	Bonds []uint32

	// CellCounts and CellOffsets hold one word per grid cell: the running
	// per-cell atom count written by the assignment pass and the exclusive
	// prefix sums written by the scan pass.
	CellCounts  []uint32
	CellOffsets []uint32

	// CellIDs records each atom's linear cell id; SortIdx its claimed
	// destination slot; SortSlots the claim array the sort pass CASes
	// atom ids into.
	CellIDs   []uint32
	SortIdx   []uint32
	SortSlots []uint32

	// SortedElems and SortedBonds mirror Elems and Bonds in cell-sorted
	// order after the sort pass.
	SortedElems []uint32
	SortedBonds []uint32

	// Mask holds one collision bit per atom, indexed by global id.
	Mask BitArray
}

// NewBuffers allocates the full buffer set for atomCount atoms over
// cellCount grid cells.
func NewBuffers(atomCount, cellCount int) *Buffers {
	return &Buffers{
		AtomCount:   atomCount,
		CellCount:   cellCount,
		Elems:       make([]uint32, atomCount*ElemStride),
		Bonds:       make([]uint32, atomCount*BondStride),
		CellCounts:  make([]uint32, cellCount),
		CellOffsets: make([]uint32, cellCount),
		CellIDs:     make([]uint32, atomCount),
		SortIdx:     make([]uint32, atomCount),
		SortSlots:   make([]uint32, atomCount),
		SortedElems: make([]uint32, atomCount*ElemStride),
		SortedBonds: make([]uint32, atomCount*BondStride),
		Mask:        NewBitArray(atomCount),
	}
}

// ResetCounts zeroes the per-cell counters ahead of an assignment pass.
func (b *Buffers) ResetCounts() {
	for i := range b.CellCounts {
		b.CellCounts[i] = 0
	}
}

// ResetSort fills the claim and destination arrays with Sentinel ahead of
// a sort pass. A slot still holding Sentinel after the pass means a claim
// was lost, which the sort pass checks for.
func (b *Buffers) ResetSort() {
	for i := range b.SortSlots {
		b.SortSlots[i] = Sentinel
		b.SortIdx[i] = Sentinel
	}
}

// Release drops every buffer. The session calls this exactly once at
// dispose; using the Buffers afterwards is a caller bug.
func (b *Buffers) Release() {
	b.Elems, b.Bonds = nil, nil
	b.CellCounts, b.CellOffsets = nil, nil
	b.CellIDs, b.SortIdx, b.SortSlots = nil, nil, nil
	b.SortedElems, b.SortedBonds = nil, nil
	b.Mask = nil
}
