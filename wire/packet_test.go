package wire

import (
	"bytes"
	"math/rand"
	"testing"
)

func buildSamplePacket(t *testing.T, routingID RoutingID, messageID MessageID, noCrc bool) []byte {
	t.Helper()
	w := NewWriter(routingID, messageID)
	w.SetNoCrc(noCrc)
	if err := WriteElement(w, uint32(42)); err != nil {
		t.Fatal(err)
	}
	if err := WriteArrayElements(w, []float32{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	b, err := w.Finish()
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestFramingRoundTrip(t *testing.T) {
	for _, noCrc := range []bool{false, true} {
		b := buildSamplePacket(t, RSphere, MIDCreate, noCrc)
		r, err := NewReader(b)
		if err != nil {
			t.Fatalf("noCrc=%v: decode failed: %v", noCrc, err)
		}
		if r.RoutingID != RSphere || r.MessageID != MIDCreate {
			t.Fatalf("header mismatch: %+v", r.Header)
		}
		id, err := ReadElement[uint32](r)
		if err != nil || id != 42 {
			t.Fatalf("id mismatch: %v %v", id, err)
		}
		vals, err := ReadArrayElements[float32](r, 3)
		if err != nil || vals[0] != 1 || vals[1] != 2 || vals[2] != 3 {
			t.Fatalf("array mismatch: %v %v", vals, err)
		}
		if !noCrc {
			if !ValidateCrc(b[:len(b)-CrcSize], r.Crc) {
				t.Fatal("crc did not validate")
			}
		}
	}
}

func TestIdempotentResync(t *testing.T) {
	pkt := buildSamplePacket(t, RBox, MIDCreate, false)
	garbage := []byte{0x01, 0x02, 0x03, 0xAA, 0xBB, 0xCC, 0xDD}
	stream := append(append([]byte{}, garbage...), pkt...)

	ra := NewReassembler()
	ra.Push(stream)
	got, err := ra.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !bytes.Equal(got, pkt) {
		t.Fatalf("extracted packet differs from original")
	}
	if ra.Dropped() != int64(len(garbage)) {
		t.Fatalf("dropped = %d, want %d", ra.Dropped(), len(garbage))
	}
	if _, err := ra.Next(); err != ErrNeedMore {
		t.Fatalf("expected ErrNeedMore, got %v", err)
	}
}

func TestReassemblerSplitPush(t *testing.T) {
	pkt := buildSamplePacket(t, RArrow, MIDUpdate, false)
	ra := NewReassembler()
	ra.Push(pkt[:5])
	if _, err := ra.Next(); err != ErrNeedMore {
		t.Fatalf("expected ErrNeedMore, got %v", err)
	}
	ra.Push(pkt[5:])
	got, err := ra.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !bytes.Equal(got, pkt) {
		t.Fatal("packet corrupted across split push")
	}
}

func TestReassemblerCrcFailureResync(t *testing.T) {
	good := buildSamplePacket(t, RCone, MIDCreate, false)
	corrupt := append([]byte{}, good...)
	corrupt[HeaderSize] ^= 0xFF // flip a payload byte, CRC now invalid

	stream := append(corrupt, good...)
	ra := NewReassembler()
	ra.Push(stream)
	got, err := ra.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !bytes.Equal(got, good) {
		t.Fatal("did not recover the valid packet following the corrupt one")
	}
	if ra.CrcFailures() == 0 {
		t.Fatal("expected at least one recorded crc failure")
	}
}

func TestCollationClosure(t *testing.T) {
	p1 := buildSamplePacket(t, RSphere, MIDCreate, false)
	p2 := buildSamplePacket(t, RBox, MIDCreate, false)
	p3 := buildSamplePacket(t, RControl, CMFrame, false)

	for _, compress := range []bool{false, true} {
		enc := NewEncoder(compress)
		for _, p := range [][]byte{p1, p2, p3} {
			if _, err := enc.Add(p); err != nil {
				t.Fatal(err)
			}
		}
		collated, err := enc.Finish()
		if err != nil {
			t.Fatal(err)
		}
		dec, err := NewDecoder(collated)
		if err != nil {
			t.Fatalf("compress=%v: %v", compress, err)
		}
		got := dec.All()
		want := [][]byte{p1, p2, p3}
		if len(got) != len(want) {
			t.Fatalf("compress=%v: got %d packets, want %d", compress, len(got), len(want))
		}
		for i := range want {
			if !bytes.Equal(got[i], want[i]) {
				t.Fatalf("compress=%v: packet %d differs", compress, i)
			}
		}
	}
}

func TestNestedCollationRejected(t *testing.T) {
	p := buildSamplePacket(t, RSphere, MIDCreate, false)
	inner := NewEncoder(false)
	inner.Add(p)
	innerCollated, err := inner.Finish()
	if err != nil {
		t.Fatal(err)
	}

	outer := NewEncoder(false)
	outer.Add(innerCollated)
	outerCollated, err := outer.Finish()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := NewDecoder(outerCollated); err == nil {
		t.Fatal("expected nested collation to be rejected")
	}
}

func TestOrdinaryPacketThroughDecoder(t *testing.T) {
	p := buildSamplePacket(t, RStar, MIDDestroy, false)
	dec, err := NewDecoder(p)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := dec.Next()
	if !ok || !bytes.Equal(got, p) {
		t.Fatal("ordinary packet should be yielded once, unchanged")
	}
	if _, ok := dec.Next(); ok {
		t.Fatal("expected exactly one packet")
	}
}

func TestAttributePrecision(t *testing.T) {
	src := rand.New(rand.NewSource(1))
	var a Attributes[float64]
	a.Colour = 0x11223344
	for i := range a.Position {
		a.Position[i] = src.Float64()
	}
	for i := range a.Rotation {
		a.Rotation[i] = src.Float64()
	}
	for i := range a.Scale {
		a.Scale[i] = src.Float64()
	}

	w := NewWriter(RPose, MIDCreate)
	if err := a.Write(w); err != nil {
		t.Fatal(err)
	}
	b, err := w.Finish()
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewReader(b)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ReadAttributes[float64](r)
	if err != nil {
		t.Fatal(err)
	}
	if got != a {
		t.Fatalf("double precision attributes not preserved exactly: got %+v, want %+v", got, a)
	}
}

func TestWriterBufferFull(t *testing.T) {
	w := NewWriter(RMesh, MIDData)
	big := make([]byte, MaxPayloadSize+1)
	if err := w.WriteBytes(big); err != ErrBufferFull {
		t.Fatalf("expected ErrBufferFull, got %v", err)
	}
}
