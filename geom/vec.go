/*package geom contains the geometric primitives used by the collision
engine: float32 vectors, axis-aligned bounding boxes, and the uniform
spatial grid that atoms are binned into.*/
package geom

// Vec is a three dimensional vector.
type Vec [3]float32

// Add returns u + v.
func (u *Vec) Add(v *Vec) Vec {
	return Vec{u[0] + v[0], u[1] + v[1], u[2] + v[2]}
}

// Sub returns u - v.
func (u *Vec) Sub(v *Vec) Vec {
	return Vec{u[0] - v[0], u[1] - v[1], u[2] - v[2]}
}

// ScaleSelf multiplies each component of v by s in place.
func (v *Vec) ScaleSelf(s float32) {
	v[0] *= s
	v[1] *= s
	v[2] *= s
}

// DistSqr returns the squared euclidean distance between u and v.
func (u *Vec) DistSqr(v *Vec) float32 {
	dx := u[0] - v[0]
	dy := u[1] - v[1]
	dz := u[2] - v[2]
	return dx*dx + dy*dy + dz*dz
}
