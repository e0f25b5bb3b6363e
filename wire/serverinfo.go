package wire

// CoordinateFrame enumerates the 24 axis-handedness conventions a
// ServerInfo packet can declare: a permutation of the three axes
// combined with a choice of left/right-handed and Y-up/Z-up (spec.md
// §6 ServerInfo payload, GLOSSARY "Coordinate frame").
type CoordinateFrame uint8

// ReadElement/WriteElement use CoordinateFrame's underlying uint8
// representation directly; no Write/Read helpers are needed beyond that.

// ServerInfo is the fixed record every recording and live stream opens
// with: the server's time unit, its default inter-frame duration, and
// its coordinate convention (spec.md §6).
type ServerInfo struct {
	TimeUnit       uint64 // microseconds per time unit
	DefaultFrameDt uint32 // default frame delta, in time units
	Coordinates    CoordinateFrame
}

// Write encodes s, including the reserved padding byte spec.md's
// ServerInfo payload reserves after the coordinate-frame byte.
func (s ServerInfo) Write(w *Writer) error {
	if err := WriteElement(w, s.TimeUnit); err != nil {
		return err
	}
	if err := WriteElement(w, s.DefaultFrameDt); err != nil {
		return err
	}
	if err := WriteElement(w, uint8(s.Coordinates)); err != nil {
		return err
	}
	return WriteElement(w, uint8(0)) // reserved
}

// ReadServerInfo decodes a ServerInfo payload from r.
func ReadServerInfo(r *Reader) (ServerInfo, error) {
	var s ServerInfo
	var err error
	if s.TimeUnit, err = ReadElement[uint64](r); err != nil {
		return s, err
	}
	if s.DefaultFrameDt, err = ReadElement[uint32](r); err != nil {
		return s, err
	}
	coord, err := ReadElement[uint8](r)
	if err != nil {
		return s, err
	}
	s.Coordinates = CoordinateFrame(coord)
	if _, err = ReadElement[uint8](r); err != nil {
		return s, err
	}
	return s, nil
}
