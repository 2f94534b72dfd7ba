/*package overlay draws collision markers: one camera-facing X or O per
colliding atom, rasterized from the same sorted element buffer and bitmask
the detection passes produce. Drawing only reads those buffers, so marker
appearance can change and redraw freely without rerunning detection.*/
package overlay

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/nanovis/steric/layout"
)

// MarkerMode selects the marker glyph.
type MarkerMode int

const (
	// ModeX draws a diagonal cross over the atom.
	ModeX MarkerMode = iota
	// ModeO draws a circle around the atom.
	ModeO
)

// Params controls marker appearance only.
type Params struct {
	// Radius is the marker's radius in pixels. Zero or negative selects
	// the special mode where each marker scales with its atom's covalent
	// radius under the current projection.
	Radius    float64
	Mode      MarkerMode
	Color     color.RGBA
	Opacity   float64
	Thickness float64
}

// DefaultParams returns the marker appearance used when a session is
// created without explicit render parameters.
func DefaultParams() Params {
	return Params{
		Radius:    6,
		Mode:      ModeX,
		Color:     color.RGBA{R: 0xff, G: 0x2a, B: 0x2a, A: 0xff},
		Opacity:   0.9,
		Thickness: 2,
	}
}

// Render draws one marker per set mask bit into a new w by h image.
// Atoms project through viewProj (world to clip); atoms behind the camera
// are skipped.
func Render(
	w, h int, viewProj mgl64.Mat4,
	sortedElems []uint32, mask layout.BitArray, p Params,
) image.Image {
	dc := gg.NewContext(w, h)
	dc.SetRGBA(
		float64(p.Color.R)/255, float64(p.Color.G)/255, float64(p.Color.B)/255,
		p.Opacity)
	dc.SetLineWidth(p.Thickness)

	atomCount := len(sortedElems) / layout.ElemStride
	for i := 0; i < atomCount; i++ {
		id := layout.ID(sortedElems, i)
		if !mask.Get(int(id)) {
			continue
		}

		pos := layout.Pos(sortedElems, i)
		clip := viewProj.Mul4x1(mgl64.Vec4{
			float64(pos[0]), float64(pos[1]), float64(pos[2]), 1,
		})
		if clip.W() <= 0 {
			continue
		}
		ndc := clip.Vec3().Mul(1 / clip.W())
		sx := (ndc.X() + 1) / 2 * float64(w)
		sy := (1 - ndc.Y()) / 2 * float64(h)

		r := p.Radius
		if r <= 0 {
			// Atom-sized markers: scale the covalent radius by the
			// projection's x-axis stretch at this depth.
			r = float64(layout.Radius(sortedElems, i)) *
				viewProj.Col(0).Vec3().Len() / clip.W() * float64(w) / 2
		}

		switch p.Mode {
		case ModeO:
			dc.DrawCircle(sx, sy, r)
			dc.Stroke()
		default:
			dc.DrawLine(sx-r, sy-r, sx+r, sy+r)
			dc.DrawLine(sx-r, sy+r, sx+r, sy-r)
			dc.Stroke()
		}
	}
	return dc.Image()
}
