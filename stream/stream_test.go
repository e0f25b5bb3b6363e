package stream

import (
	"bytes"
	"io"
	"testing"

	"github.com/tesceneio/tes/wire"
)

// fakeSource is an io.ReadSeeker backed by an in-memory buffer, standing
// in for a recording file.
type fakeSource struct {
	data []byte
	pos  int64
}

func (f *fakeSource) Read(p []byte) (int, error) {
	if f.pos >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[f.pos:])
	f.pos += int64(n)
	return n, nil
}

func (f *fakeSource) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = f.pos
	case io.SeekEnd:
		base = int64(len(f.data))
	}
	f.pos = base + offset
	return f.pos, nil
}

func frameControlPacket(t *testing.T, dt uint32) []byte {
	t.Helper()
	w := wire.NewWriter(wire.RControl, wire.CMFrame)
	if err := wire.WriteElement(w, dt); err != nil {
		t.Fatal(err)
	}
	b, err := w.Finish()
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func createPacket(t *testing.T, id uint32) []byte {
	t.Helper()
	w := wire.NewWriter(wire.RSphere, wire.MIDCreate)
	if err := wire.WriteElement(w, id); err != nil {
		t.Fatal(err)
	}
	b, err := w.Finish()
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestNextPacketDrainsInOrder(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(createPacket(t, 1))
	buf.Write(createPacket(t, 2))
	buf.Write(frameControlPacket(t, 16667))

	r := NewReader(&fakeSource{data: buf.Bytes()}, DefaultSettings)
	var kinds []wire.RoutingID
	for {
		pkt, err := r.NextPacket()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		kinds = append(kinds, pkt.RoutingID)
	}
	if len(kinds) != 3 || kinds[2] != wire.RControl {
		t.Fatalf("kinds = %v", kinds)
	}
	if r.CurrentFrame() != 1 {
		t.Fatalf("current frame = %d, want 1", r.CurrentFrame())
	}
}

func TestKeyframeInsertedOnThreshold(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i < 40; i++ {
		buf.Write(frameControlPacket(t, 16667))
	}

	settings := Settings{ByteThreshold: 1 << 30, FrameThreshold: 10, MinFrames: 5}
	r := NewReader(&fakeSource{data: buf.Bytes()}, settings)
	for {
		if _, err := r.NextPacket(); err == io.EOF {
			break
		} else if err != nil {
			t.Fatal(err)
		}
	}
	kf := r.Keyframes()
	if _, ok := kf[10]; !ok {
		t.Fatalf("expected a keyframe at frame 10, got %v", kf)
	}
	if _, ok := kf[20]; !ok {
		t.Fatalf("expected a keyframe at frame 20, got %v", kf)
	}
}

func TestSeekResetsReassembly(t *testing.T) {
	p1 := createPacket(t, 1)
	p2 := createPacket(t, 2)
	var buf bytes.Buffer
	buf.Write(p1)
	buf.Write(p2)

	r := NewReader(&fakeSource{data: buf.Bytes()}, DefaultSettings)
	if _, err := r.NextPacket(); err != nil {
		t.Fatal(err)
	}
	if err := r.Seek(int64(len(p1))); err != nil {
		t.Fatal(err)
	}
	pkt, err := r.NextPacket()
	if err != nil {
		t.Fatal(err)
	}
	id, err := wire.ReadElement[uint32](pkt)
	if err != nil || id != 2 {
		t.Fatalf("id = %d, err = %v", id, err)
	}
}

func TestExternalKeyframeSupply(t *testing.T) {
	r := NewReader(&fakeSource{}, DefaultSettings)
	r.AddKeyframe(50, 4096)
	off, frame, ok := r.NearestKeyframeBefore(60)
	if !ok || off != 4096 || frame != 50 {
		t.Fatalf("off=%d frame=%d ok=%v", off, frame, ok)
	}
}
