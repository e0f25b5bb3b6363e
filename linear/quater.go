// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package linear

import "math"

// Q is a quaternion of float32.
type Q struct {
	V V3
	R float32
}

// Mul sets q to contain l ⋅ r.
func (q *Q) Mul(l, r *Q) {
	var v, w V3
	v.Scale(r.R, &l.V)
	w.Scale(l.R, &r.V)
	v.Add(&v, &w)
	w.Cross(&l.V, &r.V)
	d := l.V.Dot(&r.V)
	q.V.Add(&v, &w)
	q.R = l.R*r.R - d
}

// Identity returns the rotation that leaves every vector unchanged.
func Identity() Q { return Q{V3{0, 0, 0}, 1} }

// Mat returns the 3x3 rotation matrix equivalent to q.
func (q *Q) Mat() M3 {
	x, y, z, w := q.V[0], q.V[1], q.V[2], q.R
	var m M3
	m[0] = V3{1 - 2*(y*y+z*z), 2 * (x*y + w*z), 2 * (x*z - w*y)}
	m[1] = V3{2 * (x*y - w*z), 1 - 2*(x*x+z*z), 2 * (y*z + w*x)}
	m[2] = V3{2 * (x*z + w*y), 2 * (y*z - w*x), 1 - 2*(x*x+y*y)}
	return m
}

// FromTo returns the shortest-arc rotation that carries the normalized
// direction of from onto the normalized direction of to. When the two
// directions are antiparallel there is no unique shortest arc, so
// FromTo falls back to a 180-degree rotation about an axis orthogonal to
// from.
func FromTo(from, to *V3) Q {
	var f, t V3
	f.Norm(from)
	t.Norm(to)
	d := f.Dot(&t)

	if d > 0.999999 {
		return Identity()
	}
	if d < -0.999999 {
		var axis V3
		ref := V3{1, 0, 0}
		axis.Cross(&ref, &f)
		if axis.Len() < 1e-6 {
			ref = V3{0, 1, 0}
			axis.Cross(&ref, &f)
		}
		axis.Norm(&axis)
		return Q{axis, 0}
	}

	var axis V3
	axis.Cross(&f, &t)
	w := float32(math.Sqrt(float64((1 + d) * 2)))
	var q Q
	q.V.Scale(1/w, &axis)
	q.R = w / 2
	return q
}
