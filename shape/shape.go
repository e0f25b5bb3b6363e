// Package shape implements the polymorphic shape family of spec.md §4.5:
// a common record (routing ID, instance ID, category, flags, object
// attributes) shared by every shape kind, plus per-kind Create/Update/
// Destroy/Data serialisation and resource enumeration. The C++ class
// hierarchy this is drawn from becomes, per spec.md §9, a value type per
// kind carrying CommonRecord rather than a base-class pointer.
package shape

import (
	"github.com/tesceneio/tes/linear"
	"github.com/tesceneio/tes/mesh"
	"github.com/tesceneio/tes/wire"
)

// DataStatus is the result of one WriteData/ReadData step for a complex
// shape (spec.md §4.5).
type DataStatus uint8

const (
	DataMore DataStatus = iota
	DataDone
	DataError
)

// CommonRecord is the fixed header every shape kind carries (spec.md §3).
type CommonRecord struct {
	RoutingID wire.RoutingID
	ID        uint32 // 0 = transient, valid for a single frame
	Category  uint16
	Flags     wire.ShapeFlags
	Attrs     wire.Attributes[float64] // canonical storage is always double precision
}

// Transient reports whether the shape's ID marks it as living for only
// one frame.
func (c *CommonRecord) Transient() bool { return c.ID == 0 }

// DoublePrecision reports whether the wire encoding for this shape uses
// 64-bit attribute components.
func (c *CommonRecord) DoublePrecision() bool { return c.Flags&wire.SFDoublePrecision != 0 }

func (c *CommonRecord) writeAttrs(w *wire.Writer) error {
	if c.DoublePrecision() {
		return c.Attrs.Write(w)
	}
	return narrow(c.Attrs).Write(w)
}

func narrow(a wire.Attributes[float64]) wire.Attributes[float32] {
	var n wire.Attributes[float32]
	n.Colour = a.Colour
	for i := range a.Position {
		n.Position[i] = float32(a.Position[i])
	}
	for i := range a.Rotation {
		n.Rotation[i] = float32(a.Rotation[i])
	}
	for i := range a.Scale {
		n.Scale[i] = float32(a.Scale[i])
	}
	return n
}

func widen(a wire.Attributes[float32]) wire.Attributes[float64] {
	var w wire.Attributes[float64]
	w.Colour = a.Colour
	for i := range a.Position {
		w.Position[i] = float64(a.Position[i])
	}
	for i := range a.Rotation {
		w.Rotation[i] = float64(a.Rotation[i])
	}
	for i := range a.Scale {
		w.Scale[i] = float64(a.Scale[i])
	}
	return w
}

// writeCreate emits the common Create header: routing ID is implicit in
// the packet's own routing ID, so the payload starts at instance ID.
func (c *CommonRecord) writeCreate(w *wire.Writer) error {
	if err := wire.WriteElement(w, c.ID); err != nil {
		return err
	}
	if err := wire.WriteElement(w, c.Category); err != nil {
		return err
	}
	if err := wire.WriteElement(w, uint16(c.Flags)); err != nil {
		return err
	}
	return c.writeAttrs(w)
}

func readCommonCreate(r *wire.Reader, routingID wire.RoutingID) (CommonRecord, error) {
	var c CommonRecord
	c.RoutingID = routingID
	var err error
	if c.ID, err = wire.ReadElement[uint32](r); err != nil {
		return c, err
	}
	if c.Category, err = wire.ReadElement[uint16](r); err != nil {
		return c, err
	}
	flags, err := wire.ReadElement[uint16](r)
	if err != nil {
		return c, err
	}
	c.Flags = wire.ShapeFlags(flags)
	if c.DoublePrecision() {
		c.Attrs, err = wire.ReadAttributes[float64](r)
	} else {
		var narrowAttrs wire.Attributes[float32]
		narrowAttrs, err = wire.ReadAttributes[float32](r)
		c.Attrs = widen(narrowAttrs)
	}
	return c, err
}

// writeDestroy emits a Destroy message's payload: just the ID.
func (c *CommonRecord) writeDestroy(w *wire.Writer) error {
	return wire.WriteElement(w, c.ID)
}

// WriteUpdate emits an UpdateMessage. flags == 0 means "replace the full
// attribute record"; otherwise only the flagged fields are carried.
func (c *CommonRecord) WriteUpdate(w *wire.Writer, flags wire.UpdateFlags) error {
	if err := wire.WriteElement(w, c.ID); err != nil {
		return err
	}
	if err := wire.WriteElement(w, uint16(flags)); err != nil {
		return err
	}
	single := !c.DoublePrecision()
	write3 := func(v [3]float64) error {
		if single {
			return wire.WriteArrayElements(w, []float32{float32(v[0]), float32(v[1]), float32(v[2])})
		}
		return wire.WriteArrayElements(w, v[:])
	}
	write4 := func(v [4]float64) error {
		if single {
			return wire.WriteArrayElements(w, []float32{float32(v[0]), float32(v[1]), float32(v[2]), float32(v[3])})
		}
		return wire.WriteArrayElements(w, v[:])
	}
	if flags == 0 || flags&wire.UFColour != 0 {
		if err := wire.WriteElement(w, c.Attrs.Colour); err != nil {
			return err
		}
	}
	if flags == 0 || flags&wire.UFPosition != 0 {
		if err := write3(c.Attrs.Position); err != nil {
			return err
		}
	}
	if flags == 0 || flags&wire.UFRotation != 0 {
		if err := write4(c.Attrs.Rotation); err != nil {
			return err
		}
	}
	if flags == 0 || flags&wire.UFScale != 0 {
		if err := write3(c.Attrs.Scale); err != nil {
			return err
		}
	}
	return nil
}

// ReadUpdate decodes an UpdateMessage payload and applies it in place: if
// flags is 0 every field is replaced, otherwise only the flagged subset
// is merged into the existing record (spec.md §4.5 update semantics).
func (c *CommonRecord) ReadUpdate(r *wire.Reader) error {
	id, err := wire.ReadElement[uint32](r)
	if err != nil {
		return err
	}
	if id != c.ID {
		return wire.ErrMalformed
	}
	rawFlags, err := wire.ReadElement[uint16](r)
	if err != nil {
		return err
	}
	flags := wire.UpdateFlags(rawFlags)
	single := !c.DoublePrecision()
	read3 := func() ([3]float64, error) {
		var out [3]float64
		if single {
			v, err := wire.ReadArrayElements[float32](r, 3)
			if err != nil {
				return out, err
			}
			out[0], out[1], out[2] = float64(v[0]), float64(v[1]), float64(v[2])
			return out, nil
		}
		v, err := wire.ReadArrayElements[float64](r, 3)
		if err != nil {
			return out, err
		}
		copy(out[:], v)
		return out, nil
	}
	read4 := func() ([4]float64, error) {
		var out [4]float64
		if single {
			v, err := wire.ReadArrayElements[float32](r, 4)
			if err != nil {
				return out, err
			}
			for i := range out {
				out[i] = float64(v[i])
			}
			return out, nil
		}
		v, err := wire.ReadArrayElements[float64](r, 4)
		if err != nil {
			return out, err
		}
		copy(out[:], v)
		return out, nil
	}
	if flags == 0 || flags&wire.UFColour != 0 {
		if c.Attrs.Colour, err = wire.ReadElement[uint32](r); err != nil {
			return err
		}
	}
	if flags == 0 || flags&wire.UFPosition != 0 {
		if c.Attrs.Position, err = read3(); err != nil {
			return err
		}
	}
	if flags == 0 || flags&wire.UFRotation != 0 {
		if c.Attrs.Rotation, err = read4(); err != nil {
			return err
		}
	}
	if flags == 0 || flags&wire.UFScale != 0 {
		if c.Attrs.Scale, err = read3(); err != nil {
			return err
		}
	}
	return nil
}

// Shape is implemented by every shape kind.
type Shape interface {
	Common() *CommonRecord
	IsComplex() bool
	WriteCreate(w *wire.Writer) error
	WriteData(w *wire.Writer, progress *int) (DataStatus, error)
	WriteDestroy(w *wire.Writer) error
	EnumerateResources() []mesh.Handle
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max linear.V3
}

// transformedAABB computes the AABB of a local-space half-extent box
// after applying the common record's rotation, scale and position — used
// by every primitive shape kind to report its draw bounds (spec.md §3
// Bounds record; §4.5 Capsule bounds note).
func transformedAABB(c *CommonRecord, halfExtent linear.V3) AABB {
	rot := linear.Q{
		V: linear.V3{float32(c.Attrs.Rotation[0]), float32(c.Attrs.Rotation[1]), float32(c.Attrs.Rotation[2])},
		R: float32(c.Attrs.Rotation[3]),
	}
	m := rot.Mat()
	scale := linear.V3{float32(c.Attrs.Scale[0]), float32(c.Attrs.Scale[1]), float32(c.Attrs.Scale[2])}
	pos := linear.V3{float32(c.Attrs.Position[0]), float32(c.Attrs.Position[1]), float32(c.Attrs.Position[2])}

	var out AABB
	first := true
	for _, sx := range [2]float32{-1, 1} {
		for _, sy := range [2]float32{-1, 1} {
			for _, sz := range [2]float32{-1, 1} {
				local := linear.V3{sx * halfExtent[0] * scale[0], sy * halfExtent[1] * scale[1], sz * halfExtent[2] * scale[2]}
				var world linear.V3
				world.Mul(&m, &local)
				world.Add(&world, &pos)
				if first {
					out.Min, out.Max = world, world
					first = false
					continue
				}
				for i := 0; i < 3; i++ {
					if world[i] < out.Min[i] {
						out.Min[i] = world[i]
					}
					if world[i] > out.Max[i] {
						out.Max[i] = world[i]
					}
				}
			}
		}
	}
	return out
}
