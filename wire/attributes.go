package wire

// Real is the floating-point type an attribute set is encoded with,
// selected per-message by the DoublePrecision flag (spec.md §3).
type Real interface{ ~float32 | ~float64 }

// Attributes holds colour, position, rotation (quaternion xyzw) and
// scale for a shape or mesh-set part (spec.md §3 Object attributes).
type Attributes[T Real] struct {
	Colour   uint32
	Position [3]T
	Rotation [4]T
	Scale    [3]T
}

// Identity returns the attribute set for an untransformed, white,
// unscaled object.
func Identity[T Real]() Attributes[T] {
	return Attributes[T]{
		Colour:   0xFFFFFFFF,
		Position: [3]T{0, 0, 0},
		Rotation: [4]T{0, 0, 0, 1},
		Scale:    [3]T{1, 1, 1},
	}
}

// Write encodes a to w.
func (a Attributes[T]) Write(w *Writer) error {
	if err := WriteElement(w, a.Colour); err != nil {
		return err
	}
	if err := WriteArrayElements(w, a.Position[:]); err != nil {
		return err
	}
	if err := WriteArrayElements(w, a.Rotation[:]); err != nil {
		return err
	}
	if err := WriteArrayElements(w, a.Scale[:]); err != nil {
		return err
	}
	return nil
}

// ReadAttributes decodes an Attributes[T] from r.
func ReadAttributes[T Real](r *Reader) (a Attributes[T], err error) {
	if a.Colour, err = ReadElement[uint32](r); err != nil {
		return
	}
	pos, err := ReadArrayElements[T](r, 3)
	if err != nil {
		return
	}
	rot, err := ReadArrayElements[T](r, 4)
	if err != nil {
		return
	}
	scale, err := ReadArrayElements[T](r, 3)
	if err != nil {
		return
	}
	copy(a.Position[:], pos)
	copy(a.Rotation[:], rot)
	copy(a.Scale[:], scale)
	return a, nil
}

// Size returns the encoded byte size of an Attributes[T].
func Size[T Real]() int {
	var zero T
	return sizeOf(zero)*10 + 4 // 3 position + 4 rotation + 3 scale, + uint32 colour
}
