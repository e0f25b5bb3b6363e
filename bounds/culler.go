package bounds

import "github.com/tesceneio/tes/linear"

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max linear.V3
}

// Plane is ax + by + cz + d = 0, normal (a, b, c) pointing into the
// half-space the frustum keeps.
type Plane struct {
	Normal linear.V3
	D      float32
}

// distance returns the signed distance from p to the plane, positive on
// the side the normal points to.
func (p *Plane) distance(v *linear.V3) float32 {
	return p.Normal.Dot(v) + p.D
}

// Frustum is six planes bounding a view volume, in no particular order.
// A box is considered inside if it is not entirely on the outer side of
// any one plane (the standard conservative AABB-frustum test).
type Frustum struct {
	Planes [6]Plane
}

// Intersects reports whether b intersects or lies inside f, using the
// positive-vertex test: for each plane, the AABB corner furthest along
// the plane's normal is checked, so a box is only rejected when it is
// wholly on the negative side of some plane.
func (f *Frustum) Intersects(b *Box) bool {
	for i := range f.Planes {
		p := &f.Planes[i]
		var v linear.V3
		for axis := 0; axis < 3; axis++ {
			if p.Normal[axis] >= 0 {
				v[axis] = b.Max[axis]
			} else {
				v[axis] = b.Min[axis]
			}
		}
		if p.distance(&v) < 0 {
			return false
		}
	}
	return true
}

// entry is what the culler stores per allocated box: the box itself and
// the render mark it was last found visible at.
type entry struct {
	box  Box
	mark uint64
}

// Culler owns a resource list of (AABB, last-visible-mark) pairs
// (spec.md §4.10 "culler"). It is constructed once by the scene
// coordinator and passed by shared handle to handlers that need visibility
// queries, rather than reached for as a package-level singleton (spec.md
// §9 "global culler singleton → dependency injection").
type Culler struct {
	list *ResourceList[entry]
}

// NewCuller creates an empty culler.
func NewCuller() *Culler {
	return &Culler{list: NewResourceList[entry]()}
}

// Allocate registers a new bounding box and returns its ID.
func (c *Culler) Allocate(box Box) ID {
	return c.list.Allocate(entry{box: box})
}

// Update replaces the bounding box stored at id, leaving its last-visible
// mark untouched. It is a no-op if id is not live.
func (c *Culler) Update(id ID, box Box) {
	c.list.Mutate(id, func(e *entry) { e.box = box })
}

// Release frees id.
func (c *Culler) Release(id ID) {
	c.list.Release(id)
}

// Len reports how many boxes are currently allocated, used by tests to
// confirm a destroyed shape chain left no orphaned bounds entries
// (spec.md §8 property 7).
func (c *Culler) Len() int {
	return c.list.Len()
}

// Cull iterates every allocated box and stamps it with mark if it
// intersects frustum. A separate call is required per render, matching
// spec.md §4.10's "cull(mark, frustum) iterates and stamps".
func (c *Culler) Cull(mark uint64, frustum *Frustum) {
	c.list.RangeMut(func(_ ID, e *entry) {
		if frustum.Intersects(&e.box) {
			e.mark = mark
		}
	})
}

// IsVisible reports whether id was stamped with mark by the most recent
// Cull call.
func (c *Culler) IsVisible(id ID, mark uint64) bool {
	e, ok := c.list.At(id)
	return ok && e.mark == mark
}
