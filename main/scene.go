package main

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/phil-mansfield/table"

	"github.com/nanovis/steric"
)

// sceneComponent is a rigid atom group read from a scene table.
type sceneComponent struct {
	name  string
	atoms []steric.Atom
	m     mgl64.Mat4
}

func (c *sceneComponent) Name() string { return c.name }

func (c *sceneComponent) Atoms() []steric.Atom { return c.atoms }

func (c *sceneComponent) Matrix() mgl64.Mat4 { return c.m }

// readScene parses a scene table into components, grouped by the table's
// component column. Bond columns hold row indices local to the component,
// -1 for none.
func readScene(fname string) ([]*sceneComponent, error) {
	colIdxs := []int{0, 1, 2, 3, 4, 5, 6, 7, 8}
	cols, err := table.ReadTable(fname, colIdxs, nil)
	if err != nil {
		return nil, err
	}

	xs, ys, zs, rs := cols[0], cols[1], cols[2], cols[3]
	groups := cols[4]
	bondCols := cols[5:9]

	byGroup := map[int]*sceneComponent{}
	order := []*sceneComponent{}
	for i := range xs {
		g := int(groups[i])
		comp, ok := byGroup[g]
		if !ok {
			comp = &sceneComponent{
				name: fmt.Sprintf("component-%d", g),
				m:    mgl64.Ident4(),
			}
			byGroup[g] = comp
			order = append(order, comp)
		}

		atom := steric.Atom{
			Pos:    [3]float64{xs[i], ys[i], zs[i]},
			Radius: rs[i],
		}
		for _, bc := range bondCols {
			if b := int(bc[i]); b >= 0 {
				atom.Bonds = append(atom.Bonds, b)
			}
		}
		comp.atoms = append(comp.atoms, atom)
	}
	return order, nil
}
