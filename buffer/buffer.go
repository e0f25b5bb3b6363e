// Package buffer implements the typed, strided, optionally quantised
// vertex/index stream described by spec.md §4.4: a DataBuffer describes
// how to interpret a run of scalar elements (type, component count,
// stride, optional quantisation) without committing to a single Go
// numeric type, so callers can request any element as whatever numeric
// type is convenient on access.
package buffer

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/tesceneio/tes/wire"
)

// ElementType identifies the on-wire scalar representation of a
// DataBuffer's elements.
type ElementType uint8

const (
	I8 ElementType = iota
	U8
	I16
	U16
	I32
	U32
	I64
	U64
	F32
	F64
	PackedF16
	PackedF32
)

// Size returns the byte size of a single scalar of t.
func (t ElementType) Size() int {
	switch t {
	case I8, U8:
		return 1
	case I16, U16, PackedF16:
		return 2
	case I32, U32, F32, PackedF32:
		return 4
	case I64, U64, F64:
		return 8
	default:
		return 0
	}
}

// Packed reports whether t requires a quantisation scale.
func (t ElementType) Packed() bool { return t == PackedF16 || t == PackedF32 }

// Numeric is the set of Go types Get/Set can convert to and from.
type Numeric interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64
}

var (
	// ErrOwnership is returned by Set when the buffer borrows memory it
	// does not own.
	ErrOwnership = errors.New("buffer: cannot mutate a borrowed buffer")
	// ErrRange is returned when an item/component index is out of bounds.
	ErrRange = errors.New("buffer: index out of range")
)

// DataBuffer is a typed, strided, optionally quantised stream of
// elements. The zero value is not usable; build one with Borrow,
// NewOwned, Clone or ReadFrom.
type DataBuffer struct {
	elemType       ElementType
	componentCount int
	stride         int // elements between the start of consecutive items
	itemCount      int
	scale          float64 // meaningful only when elemType.Packed()
	hasScale       bool
	data           []byte // owned == true: exclusive; otherwise a view
	owned          bool
}

// Borrow wraps an externally-owned byte slice without copying it. data
// must contain at least itemCount strided elements of componentCount
// scalars each. The returned DataBuffer aliases data; mutating it
// through Set is rejected (use Clone first).
func Borrow(elemType ElementType, data []byte, componentCount, stride, itemCount int) *DataBuffer {
	return &DataBuffer{
		elemType:       elemType,
		componentCount: componentCount,
		stride:         stride,
		itemCount:      itemCount,
		data:           data,
		owned:          false,
	}
}

// BorrowQuantised is Borrow for a packed element type, carrying the
// quantisation scale that turns stored integers back into real values.
func BorrowQuantised(elemType ElementType, data []byte, componentCount, stride, itemCount int, scale float64) *DataBuffer {
	b := Borrow(elemType, data, componentCount, stride, itemCount)
	b.scale = scale
	b.hasScale = true
	return b
}

// Clone returns an owned copy of b's data, decoupled from whatever b
// borrowed.
func (b *DataBuffer) Clone() *DataBuffer {
	cp := *b
	cp.data = append([]byte(nil), b.data...)
	cp.owned = true
	return &cp
}

// NewOwned allocates a zeroed, owned, tightly-packed DataBuffer (stride
// equal to componentCount) for elemType, sized for itemCount items of
// componentCount scalars each.
func NewOwned(elemType ElementType, componentCount, itemCount int) *DataBuffer {
	return &DataBuffer{
		elemType:       elemType,
		componentCount: componentCount,
		stride:         componentCount,
		itemCount:      itemCount,
		data:           make([]byte, itemCount*componentCount*elemType.Size()),
		owned:          true,
	}
}

// NewOwnedQuantised is NewOwned for a packed element type, recording the
// quantisation scale.
func NewOwnedQuantised(elemType ElementType, componentCount, itemCount int, scale float64) *DataBuffer {
	b := NewOwned(elemType, componentCount, itemCount)
	b.scale = scale
	b.hasScale = true
	return b
}

// MutableSlice returns the raw backing bytes for [offset, offset+count)
// items, for in-place writes by a caller that already knows the wire
// representation it wants to store (e.g. a mesh Component message
// copying wire bytes directly into a vertex stream). It only works on
// owned, tightly-packed buffers (stride == componentCount); anything
// else returns an error rather than aliasing a strided/borrowed view.
func (b *DataBuffer) MutableSlice(offset, count int) ([]byte, error) {
	if !b.owned {
		return nil, ErrOwnership
	}
	if b.stride != b.componentCount {
		return nil, errors.New("buffer: cannot take a mutable slice of a strided view")
	}
	if offset < 0 || count < 0 || offset+count > b.itemCount {
		return nil, ErrRange
	}
	elemSize := b.elemType.Size()
	start := offset * b.componentCount * elemSize
	end := (offset + count) * b.componentCount * elemSize
	return b.data[start:end], nil
}

// Owned reports whether the buffer's storage is exclusively its own
// (and therefore mutable via Set).
func (b *DataBuffer) Owned() bool { return b.owned }

// ElementType, ComponentCount, Stride, ItemCount, Scale report the
// buffer's static shape.
func (b *DataBuffer) ElementType() ElementType { return b.elemType }
func (b *DataBuffer) ComponentCount() int      { return b.componentCount }
func (b *DataBuffer) Stride() int              { return b.stride }
func (b *DataBuffer) ItemCount() int           { return b.itemCount }
func (b *DataBuffer) Scale() (float64, bool)   { return b.scale, b.hasScale }

func (b *DataBuffer) offset(item, component int) (int, error) {
	if item < 0 || item >= b.itemCount || component < 0 || component >= b.componentCount {
		return 0, ErrRange
	}
	sz := b.elemType.Size()
	off := (item*b.stride + component) * sz
	if off+sz > len(b.data) {
		return 0, ErrRange
	}
	return off, nil
}

// Get reads the element at (item, component), converting from the
// buffer's stored representation (including dequantisation for packed
// types) into U.
func Get[U Numeric](b *DataBuffer, item, component int) (U, error) {
	var zero U
	off, err := b.offset(item, component)
	if err != nil {
		return zero, err
	}
	f, err := decodeScalar(b.elemType, b.data[off:off+b.elemType.Size()], b.scale)
	if err != nil {
		return zero, err
	}
	return U(f), nil
}

// Set writes v into (item, component), quantising it if the buffer's
// element type is packed. It fails with ErrOwnership unless the buffer
// owns its storage (see Clone).
func Set[U Numeric](b *DataBuffer, item, component int, v U) error {
	if !b.owned {
		return ErrOwnership
	}
	off, err := b.offset(item, component)
	if err != nil {
		return err
	}
	return encodeScalar(b.elemType, b.data[off:off+b.elemType.Size()], float64(v), b.scale)
}

func decodeScalar(t ElementType, raw []byte, scale float64) (float64, error) {
	le := binary.LittleEndian
	switch t {
	case I8:
		return float64(int8(raw[0])), nil
	case U8:
		return float64(raw[0]), nil
	case I16:
		return float64(int16(le.Uint16(raw))), nil
	case U16:
		return float64(le.Uint16(raw)), nil
	case I32:
		return float64(int32(le.Uint32(raw))), nil
	case U32:
		return float64(le.Uint32(raw)), nil
	case I64:
		return float64(int64(le.Uint64(raw))), nil
	case U64:
		return float64(le.Uint64(raw)), nil
	case F32:
		return float64(math.Float32frombits(le.Uint32(raw))), nil
	case F64:
		return math.Float64frombits(le.Uint64(raw)), nil
	case PackedF16:
		// Sign-extended 16-bit integer, multiplied by the f32 scale
		// that preceded it on the wire (spec.md §3 Data buffer).
		return float64(int16(le.Uint16(raw))) * scale, nil
	case PackedF32:
		return float64(int32(le.Uint32(raw))) * scale, nil
	default:
		return 0, errors.New("buffer: unknown element type")
	}
}

func encodeScalar(t ElementType, raw []byte, v, scale float64) error {
	le := binary.LittleEndian
	switch t {
	case I8:
		raw[0] = byte(int8(v))
	case U8:
		raw[0] = byte(uint8(v))
	case I16:
		le.PutUint16(raw, uint16(int16(v)))
	case U16:
		le.PutUint16(raw, uint16(v))
	case I32:
		le.PutUint32(raw, uint32(int32(v)))
	case U32:
		le.PutUint32(raw, uint32(v))
	case I64:
		le.PutUint64(raw, uint64(int64(v)))
	case U64:
		le.PutUint64(raw, uint64(v))
	case F32:
		le.PutUint32(raw, math.Float32bits(float32(v)))
	case F64:
		le.PutUint64(raw, math.Float64bits(v))
	case PackedF16:
		le.PutUint16(raw, uint16(int16(math.Round(v/scale))))
	case PackedF32:
		le.PutUint32(raw, uint32(int32(math.Round(v/scale))))
	default:
		return errors.New("buffer: unknown element type")
	}
	return nil
}

// WriteTo encodes b's self-describing wire form into w: element type
// tag, component count, stride, an optional quantisation scale, a
// 16-bit count, then that many strided elements — stopping early if
// byteLimit would be exceeded. It returns the number of elements
// actually written (spec.md §4.4).
func (b *DataBuffer) WriteTo(w *wire.Writer, offset, byteLimit int) (written int, err error) {
	start := w.Len()
	if err = wire.WriteElement(w, uint8(b.elemType)); err != nil {
		return 0, err
	}
	if err = wire.WriteElement(w, uint8(b.componentCount)); err != nil {
		return 0, err
	}
	if err = wire.WriteElement(w, uint8(b.stride)); err != nil {
		return 0, err
	}
	switch b.elemType {
	case PackedF16:
		if err = wire.WriteElement(w, float32(b.scale)); err != nil {
			return 0, err
		}
	case PackedF32:
		if err = wire.WriteElement(w, b.scale); err != nil {
			return 0, err
		}
	}
	countOff := w.Len()
	if err = wire.WriteElement(w, uint16(0)); err != nil {
		return 0, err
	}
	elemSize := b.elemType.Size()
	budget := byteLimit - (w.Len() - start)
	n := 0
	for i := offset; i < b.itemCount; i++ {
		need := elemSize * b.componentCount
		if budget < need {
			break
		}
		for c := 0; c < b.componentCount; c++ {
			eoff, rangeErr := b.offset(i, c)
			if rangeErr != nil {
				return n, rangeErr
			}
			if err = w.WriteBytes(b.data[eoff : eoff+elemSize]); err != nil {
				return n, err
			}
		}
		budget -= need
		n++
	}
	// Patch the count field now that we know it.
	countBytes := w.Bytes()[countOff : countOff+2]
	binary.LittleEndian.PutUint16(countBytes, uint16(n))
	return n, nil
}

// ReadFrom decodes the self-describing wire form WriteTo produces,
// returning a newly-owned DataBuffer.
func ReadFrom(r *wire.Reader) (*DataBuffer, error) {
	et, err := wire.ReadElement[uint8](r)
	if err != nil {
		return nil, err
	}
	cc, err := wire.ReadElement[uint8](r)
	if err != nil {
		return nil, err
	}
	stride, err := wire.ReadElement[uint8](r)
	if err != nil {
		return nil, err
	}
	elemType := ElementType(et)
	var scale float64
	hasScale := elemType.Packed()
	switch elemType {
	case PackedF16:
		s, readErr := wire.ReadElement[float32](r)
		if readErr != nil {
			return nil, readErr
		}
		scale = float64(s)
	case PackedF32:
		s, readErr := wire.ReadElement[float64](r)
		if readErr != nil {
			return nil, readErr
		}
		scale = s
	}
	count, err := wire.ReadElement[uint16](r)
	if err != nil {
		return nil, err
	}
	elemSize := elemType.Size()
	total := elemSize * int(cc) * int(count)
	raw, err := r.ReadBytes(total)
	if err != nil {
		return nil, err
	}
	return &DataBuffer{
		elemType:       elemType,
		componentCount: int(cc),
		stride:         int(stride),
		itemCount:      int(count),
		scale:          scale,
		hasScale:       hasScale,
		data:           append([]byte(nil), raw...),
		owned:          true,
	}, nil
}
