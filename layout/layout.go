/*package layout defines the fixed buffer layouts shared by every pass of
the collision pipeline. Atom data lives in flat []uint32 arrays with the
same packing the passes index into directly, so a pass never needs more
than a base offset and a stride to find a field.*/
package layout

import (
	"math"

	"github.com/nanovis/steric/geom"
)

const (
	// ElemStride is the number of 32-bit words per atom in an element
	// buffer: x, y, z, and a packed radius+id word.
	ElemStride = 4

	// BondStride is the number of bond slots per atom.
	BondStride = 4

	// Sentinel marks an empty bond slot or an unclaimed sort slot.
	Sentinel = uint32(0xFFFFFFFF)

	// MaxID is the largest global element id the 24-bit id field can hold.
	MaxID = 1<<24 - 1

	// maxRadiusPM is the largest covalent radius, in picometers, the 8-bit
	// radius field can hold.
	maxRadiusPM = 255

	pmPerAngstrom = 100
)

// PackElem encodes an atom's world position, covalent radius (angstroms),
// and global id into ElemStride words. Radii above 2.55 angstroms do not
// fit the 8-bit picometer field and saturate; the second return reports
// whether that happened so the caller can warn. The id must be <= MaxID.
func PackElem(w []uint32, pos *geom.Vec, radius float32, id uint32) (saturated bool) {
	pm := int(math.Round(float64(radius) * pmPerAngstrom))
	if pm > maxRadiusPM {
		pm = maxRadiusPM
		saturated = true
	}
	if pm < 0 {
		pm = 0
	}

	w[0] = math.Float32bits(pos[0])
	w[1] = math.Float32bits(pos[1])
	w[2] = math.Float32bits(pos[2])
	w[3] = uint32(pm)<<24 | (id & MaxID)
	return saturated
}

// Pos decodes the world position of atom i from an element buffer.
func Pos(elems []uint32, i int) geom.Vec {
	base := i * ElemStride
	return geom.Vec{
		math.Float32frombits(elems[base]),
		math.Float32frombits(elems[base+1]),
		math.Float32frombits(elems[base+2]),
	}
}

// SetPos overwrites the world position of atom i in an element buffer.
func SetPos(elems []uint32, i int, pos *geom.Vec) {
	base := i * ElemStride
	elems[base] = math.Float32bits(pos[0])
	elems[base+1] = math.Float32bits(pos[1])
	elems[base+2] = math.Float32bits(pos[2])
}

// Radius decodes the covalent radius of atom i, in angstroms.
func Radius(elems []uint32, i int) float32 {
	pm := elems[i*ElemStride+3] >> 24
	return float32(pm) / pmPerAngstrom
}

// ID decodes the global element id of atom i.
func ID(elems []uint32, i int) uint32 {
	return elems[i*ElemStride+3] & MaxID
}

// PackBonds encodes up to BondStride bonded-neighbor global ids into the
// bond slots of atom i, filling unused slots with Sentinel. Ids beyond
// BondStride are dropped; the return reports how many so the caller can
// warn.
func PackBonds(bonds []uint32, i int, ids []uint32) (dropped int) {
	base := i * BondStride
	for k := 0; k < BondStride; k++ {
		if k < len(ids) {
			bonds[base+k] = ids[k]
		} else {
			bonds[base+k] = Sentinel
		}
	}
	if len(ids) > BondStride {
		dropped = len(ids) - BondStride
	}
	return dropped
}

// Bonded returns true if the bond slots of atom i name the global id other.
func Bonded(bonds []uint32, i int, other uint32) bool {
	base := i * BondStride
	return bonds[base] == other || bonds[base+1] == other ||
		bonds[base+2] == other || bonds[base+3] == other
}
