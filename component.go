package steric

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Atom is one atom of a component, in the component's local frame.
type Atom struct {
	// Pos is the local position, in angstroms.
	Pos [3]float64
	// Radius is the covalent radius, in angstroms.
	Radius float64
	// Bonds holds the indices, within the same component's atom list, of
	// this atom's covalently bonded partners.
	Bonds []int
}

// Component is the host application's handle for one rigid group of atoms.
// The session reads the atom list once at registration (and again on
// reset); the matrix is read at registration and reset time. Implementations
// must be usable as map keys.
type Component interface {
	Name() string
	Atoms() []Atom
	Matrix() mgl64.Mat4
}

// record is the session's per-component state: the global id range the
// component owns, its last committed matrix, the authoritative local atom
// data resets rebuild from, and the accumulated incremental-update error.
type record struct {
	comp       Component
	start, end uint32
	matrix     mgl64.Mat4
	atoms      []Atom
	err        float64
}
