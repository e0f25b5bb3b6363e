package wire

import (
	"encoding/binary"
	"math"
)

// Every integer and floating-point field on the wire is little-endian
// (spec.md §4.1). The codec below reads into a local staging buffer and
// converts explicitly rather than assuming any particular host alignment
// or endianness, mirroring the header-array + encoding/binary style the
// teacher uses for its own binary chunk framing (gltf/glb.go).

// Fixed is the set of primitive types read_fixed/write_fixed support.
type Fixed interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64
}

func sizeOf[T Fixed](v T) int {
	switch any(v).(type) {
	case int8, uint8:
		return 1
	case int16, uint16:
		return 2
	case int32, uint32, float32:
		return 4
	case int64, uint64, float64:
		return 8
	default:
		return 0
	}
}

// ReadFixed decodes a single little-endian value of type T from b.
// It returns ErrTruncated if b is shorter than the encoded size.
func ReadFixed[T Fixed](b []byte) (v T, n int, err error) {
	var zero T
	n = sizeOf(zero)
	if len(b) < n {
		return zero, 0, ErrTruncated
	}
	switch any(zero).(type) {
	case int8:
		v = T(int8(b[0]))
	case uint8:
		v = T(b[0])
	case int16:
		v = T(int16(binary.LittleEndian.Uint16(b)))
	case uint16:
		v = T(binary.LittleEndian.Uint16(b))
	case int32:
		v = T(int32(binary.LittleEndian.Uint32(b)))
	case uint32:
		v = T(binary.LittleEndian.Uint32(b))
	case int64:
		v = T(int64(binary.LittleEndian.Uint64(b)))
	case uint64:
		v = T(binary.LittleEndian.Uint64(b))
	case float32:
		v = T(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case float64:
		v = T(math.Float64frombits(binary.LittleEndian.Uint64(b)))
	}
	return v, n, nil
}

// WriteFixed appends the little-endian encoding of v to b and returns the
// extended slice.
func WriteFixed[T Fixed](b []byte, v T) []byte {
	switch x := any(v).(type) {
	case int8:
		return append(b, byte(x))
	case uint8:
		return append(b, x)
	case int16:
		var tmp [2]byte
		binary.LittleEndian.PutUint16(tmp[:], uint16(x))
		return append(b, tmp[:]...)
	case uint16:
		var tmp [2]byte
		binary.LittleEndian.PutUint16(tmp[:], x)
		return append(b, tmp[:]...)
	case int32:
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], uint32(x))
		return append(b, tmp[:]...)
	case uint32:
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], x)
		return append(b, tmp[:]...)
	case int64:
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], uint64(x))
		return append(b, tmp[:]...)
	case uint64:
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], x)
		return append(b, tmp[:]...)
	case float32:
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], math.Float32bits(x))
		return append(b, tmp[:]...)
	case float64:
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(x))
		return append(b, tmp[:]...)
	}
	return b
}

// ReadArray decodes count elements of type T from b.
func ReadArray[T Fixed](b []byte, count int) (v []T, n int, err error) {
	v = make([]T, count)
	for i := 0; i < count; i++ {
		var x T
		var m int
		x, m, err = ReadFixed[T](b[n:])
		if err != nil {
			return nil, n, err
		}
		v[i] = x
		n += m
	}
	return v, n, nil
}

// WriteArray appends the little-endian encoding of every element of v to b.
func WriteArray[T Fixed](b []byte, v []T) []byte {
	for _, x := range v {
		b = WriteFixed(b, x)
	}
	return b
}
