package shape

import (
	"github.com/tesceneio/tes/linear"
	"github.com/tesceneio/tes/mesh"
	"github.com/tesceneio/tes/wire"
)

// Primitive covers every shape kind whose wire representation is exactly
// CommonRecord (Box, Sphere, Star, Plane, Pose, Arrow, Cylinder, Cone,
// Capsule): none of them carry extra Create fields or a Data phase. What
// distinguishes the four "directional" kinds is only the constructor
// convenience of pointing them along a direction vector instead of
// specifying a raw rotation (spec.md §4.5).
type Primitive struct {
	Common_ CommonRecord
}

func (p *Primitive) Common() *CommonRecord { return &p.Common_ }
func (p *Primitive) IsComplex() bool       { return false }

func (p *Primitive) WriteCreate(w *wire.Writer) error { return p.Common_.writeCreate(w) }

func (p *Primitive) WriteData(w *wire.Writer, progress *int) (DataStatus, error) {
	return DataDone, nil
}

func (p *Primitive) WriteDestroy(w *wire.Writer) error { return p.Common_.writeDestroy(w) }

func (p *Primitive) EnumerateResources() []mesh.Handle { return nil }

// ReadPrimitiveCreate decodes a Primitive's Create payload for the given routing ID.
func ReadPrimitiveCreate(r *wire.Reader, routingID wire.RoutingID) (*Primitive, error) {
	c, err := readCommonCreate(r, routingID)
	if err != nil {
		return nil, err
	}
	return &Primitive{Common_: c}, nil
}

// NewBox, NewSphere, NewStar, NewPlane, NewPose create a primitive of the
// given kind at the identity transform; callers mutate Common().Attrs
// directly for position/rotation/scale/colour.
func newGeneric(kind wire.RoutingID, id uint32) *Primitive {
	return &Primitive{Common_: CommonRecord{
		RoutingID: kind,
		ID:        id,
		Attrs:     wire.Identity[float64](),
	}}
}

func NewBox(id uint32) *Primitive    { return newGeneric(wire.RBox, id) }
func NewSphere(id uint32) *Primitive { return newGeneric(wire.RSphere, id) }
func NewStar(id uint32) *Primitive   { return newGeneric(wire.RStar, id) }
func NewPlane(id uint32) *Primitive  { return newGeneric(wire.RPlane, id) }
func NewPose(id uint32) *Primitive   { return newGeneric(wire.RPose, id) }

// newDirectional builds an Arrow/Cylinder/Cone/Capsule with scale
// (radius, radius, length) and a rotation carrying the canonical axis
// (0,0,1) onto dir (spec.md §4.5), falling back to a 180-degree rotation
// when dir is antiparallel to the canonical axis.
func newDirectional(kind wire.RoutingID, id uint32, radius, length float64, dir linear.V3) *Primitive {
	axis := linear.V3{0, 0, 1}
	q := linear.FromTo(&axis, &dir)
	p := newGeneric(kind, id)
	p.Common_.Attrs.Scale = [3]float64{radius, radius, length}
	p.Common_.Attrs.Rotation = [4]float64{float64(q.V[0]), float64(q.V[1]), float64(q.V[2]), float64(q.R)}
	return p
}

func NewArrow(id uint32, radius, length float64, dir linear.V3) *Primitive {
	return newDirectional(wire.RArrow, id, radius, length, dir)
}
func NewCylinder(id uint32, radius, length float64, dir linear.V3) *Primitive {
	return newDirectional(wire.RCylinder, id, radius, length, dir)
}
func NewCone(id uint32, radius, length float64, dir linear.V3) *Primitive {
	return newDirectional(wire.RCone, id, radius, length, dir)
}
func NewCapsule(id uint32, radius, length float64, dir linear.V3) *Primitive {
	return newDirectional(wire.RCapsule, id, radius, length, dir)
}

// Bounds computes the shape's world-space AABB. Capsule extends the
// cylindrical bounds by the hemisphere radius along its local axis
// (spec.md §4.5 "Capsule final bounds extend the cylindrical bounds by
// the hemisphere radius").
func (p *Primitive) Bounds() AABB {
	switch p.Common_.RoutingID {
	case wire.RSphere:
		r := float32(p.Common_.Attrs.Scale[0])
		return transformedAABB(&p.Common_, linear.V3{r, r, r})
	case wire.RBox:
		return transformedAABB(&p.Common_, linear.V3{1, 1, 1})
	case wire.RPlane, wire.RStar, wire.RPose:
		return transformedAABB(&p.Common_, linear.V3{1, 1, 0})
	case wire.RArrow, wire.RCylinder, wire.RCone:
		// Local unit box in a frame where scale.xy is the radius and
		// scale.z is the length, so the box spans ±scale.z along the axis.
		return transformedAABB(&p.Common_, linear.V3{1, 1, 1})
	case wire.RCapsule:
		radius := float32(p.Common_.Attrs.Scale[0])
		halfLen := float32(p.Common_.Attrs.Scale[2])
		bb := transformedAABB(&p.Common_, linear.V3{1, 1, 1 + radius/maxf(halfLen, 1e-6)})
		return bb
	default:
		return transformedAABB(&p.Common_, linear.V3{1, 1, 1})
	}
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
