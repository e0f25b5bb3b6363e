package buffer

import (
	"math"
	"testing"

	"github.com/tesceneio/tes/wire"
)

func TestBorrowedGetPlainTypes(t *testing.T) {
	// Three interleaved XYZ float32 vertices, borrowed without copying.
	raw := make([]byte, 0, 3*3*4)
	w := func(v float32) {
		var tmp [4]byte
		bits := math.Float32bits(v)
		tmp[0] = byte(bits)
		tmp[1] = byte(bits >> 8)
		tmp[2] = byte(bits >> 16)
		tmp[3] = byte(bits >> 24)
		raw = append(raw, tmp[:]...)
	}
	vals := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}
	for _, v := range vals {
		w(v)
	}

	b := Borrow(F32, raw, 3, 3, 3)
	got, err := Get[float32](b, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Fatalf("item 1 component 1 = %v, want 5", got)
	}
	if b.Owned() {
		t.Fatal("borrowed buffer reports owned")
	}
	if err := Set(b, 0, 0, float32(9)); err != ErrOwnership {
		t.Fatalf("expected ErrOwnership mutating a borrow, got %v", err)
	}
}

func TestClonedBufferIsMutable(t *testing.T) {
	raw := []byte{1, 2, 3, 4}
	b := Borrow(U8, raw, 1, 1, 4)
	owned := b.Clone()
	if !owned.Owned() {
		t.Fatal("clone should be owned")
	}
	if err := Set[uint8](owned, 0, 0, 42); err != nil {
		t.Fatal(err)
	}
	if v, _ := Get[uint8](owned, 0, 0); v != 42 {
		t.Fatalf("set did not take effect: %v", v)
	}
	if v, _ := Get[uint8](b, 0, 0); v != 1 {
		t.Fatal("mutating the clone leaked back into the borrowed original")
	}
}

func TestPackedQuantisationRoundTrip(t *testing.T) {
	scale := 0.001
	raw := make([]byte, 2)
	b := &DataBuffer{
		elemType:       PackedF16,
		componentCount: 1,
		stride:         1,
		itemCount:      1,
		scale:          scale,
		hasScale:       true,
		data:           raw,
		owned:          true,
	}
	original := 12.3456
	if err := Set(b, 0, 0, original); err != nil {
		t.Fatal(err)
	}
	got, err := Get[float64](b, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := math.Round(original/scale) * scale
	if got != want {
		t.Fatalf("decode_packed = %v, want %v", got, want)
	}
	if math.Abs(got-original) > scale/2+1e-9 {
		t.Fatalf("quantisation error %v exceeds scale/2 (%v)", math.Abs(got-original), scale/2)
	}
}

func TestSelfDescribingWriteReadRoundTrip(t *testing.T) {
	raw := []byte{10, 20, 30, 40, 50}
	src := Borrow(U8, raw, 1, 1, 5)

	w := wire.NewWriter(wire.RMesh, wire.MIDData)
	n, err := src.WriteTo(w, 0, 4096)
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Fatalf("wrote %d elements, want 5", n)
	}
	pkt, err := w.Finish()
	if err != nil {
		t.Fatal(err)
	}

	r, err := wire.NewReader(pkt)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ReadFrom(r)
	if err != nil {
		t.Fatal(err)
	}
	if got.ItemCount() != 5 || got.ComponentCount() != 1 {
		t.Fatalf("shape mismatch: items=%d components=%d", got.ItemCount(), got.ComponentCount())
	}
	for i := 0; i < 5; i++ {
		v, err := Get[uint8](got, i, 0)
		if err != nil {
			t.Fatal(err)
		}
		if v != raw[i] {
			t.Fatalf("item %d = %d, want %d", i, v, raw[i])
		}
	}
}

func TestSelfDescribingWriteReadRoundTripPackedF16(t *testing.T) {
	const scale = 0.01
	src := NewOwnedQuantised(PackedF16, 3, 2, scale)
	want := [][3]float64{
		{1.23, -4.56, 7.89},
		{-0.5, 0.0, 100.0},
	}
	for i, v := range want {
		for c := 0; c < 3; c++ {
			if err := Set(src, i, c, v[c]); err != nil {
				t.Fatal(err)
			}
		}
	}

	w := wire.NewWriter(wire.RMesh, wire.MIDData)
	n, err := src.WriteTo(w, 0, 4096)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("wrote %d elements, want 2", n)
	}
	pkt, err := w.Finish()
	if err != nil {
		t.Fatal(err)
	}

	r, err := wire.NewReader(pkt)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ReadFrom(r)
	if err != nil {
		t.Fatal(err)
	}
	if gotScale, ok := got.Scale(); !ok || gotScale != scale {
		t.Fatalf("scale = %v, %v; want %v, true", gotScale, ok, scale)
	}
	for i, v := range want {
		for c := 0; c < 3; c++ {
			got, err := Get[float64](got, i, c)
			if err != nil {
				t.Fatal(err)
			}
			if diff := got - v[c]; diff > scale || diff < -scale {
				t.Fatalf("item %d component %d = %v, want ~%v", i, c, got, v[c])
			}
		}
	}

	// The scale must round-trip as a 4-byte float32 ahead of the 16-bit
	// count field, not the 8-byte float64 PackedF32 uses: header is
	// elemType(1) + componentCount(1) + stride(1) + scale(4) + count(2).
	const headerLen = 1 + 1 + 1 + 4 + 2
	const wantLen = headerLen + 2*3*2 // plus 2 items x 3 components x 2 bytes
	if got := len(r.Payload); got != wantLen {
		t.Fatalf("PackedF16 payload = %d bytes, want %d (4-byte scale)", got, wantLen)
	}
}

func TestWriteToHonoursByteLimit(t *testing.T) {
	raw := make([]byte, 100) // 25 float32 elements
	for i := range raw {
		raw[i] = byte(i)
	}
	src := Borrow(F32, raw, 1, 1, 25)

	w := wire.NewWriter(wire.RMesh, wire.MIDData)
	// Budget the 5-byte self-describing prefix (type, components, stride,
	// count) plus 3 elements (4 bytes each), with 2 bytes to spare: not
	// enough for a fourth element.
	n, err := src.WriteTo(w, 0, 7+3*4)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("wrote %d elements, want 3 given the byte budget", n)
	}
}

func TestRangeErrors(t *testing.T) {
	b := Borrow(U8, []byte{1, 2}, 1, 1, 2)
	if _, err := Get[uint8](b, 5, 0); err != ErrRange {
		t.Fatalf("expected ErrRange, got %v", err)
	}
	if _, err := Get[uint8](b, 0, 3); err != ErrRange {
		t.Fatalf("expected ErrRange, got %v", err)
	}
}
