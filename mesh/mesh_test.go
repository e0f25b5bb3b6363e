package mesh

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/tesceneio/tes/buffer"
	"github.com/tesceneio/tes/wire"
)

func f32bytes(vals ...float32) []byte {
	b := make([]byte, 0, len(vals)*4)
	for _, v := range vals {
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], math.Float32bits(v))
		b = append(b, tmp[:]...)
	}
	return b
}

func u16bytes(vals ...uint16) []byte {
	b := make([]byte, 0, len(vals)*2)
	for _, v := range vals {
		var tmp [2]byte
		binary.LittleEndian.PutUint16(tmp[:], v)
		b = append(b, tmp[:]...)
	}
	return b
}

// TestMeshLifecycleOrderIndependence exercises spec.md §8 property 5:
// any interleaving of component slices covering [0, count) produces the
// same finalised mesh.
func TestMeshLifecycleOrderIndependence(t *testing.T) {
	build := func(reverse bool) *Resource {
		reg := NewRegistry()
		_, err := reg.Create(42, 4, 6, DrawTriangles, 0xFFFFFFFF, wire.Identity[float64](), false)
		if err != nil {
			t.Fatal(err)
		}
		verts := [][2]int{{0, 2}, {2, 2}} // two halves of 4 vertices
		idxCalls := [][2]int{{0, 3}, {3, 3}}
		apply := func(off, n int) {
			vals := make([]float32, n*3)
			for i := range vals {
				vals[i] = float32(off*3 + i)
			}
			if err := reg.ApplyComponent(42, Vertex, off, buffer.F32, 0, false, f32bytes(vals...), n); err != nil {
				t.Fatalf("vertex component: %v", err)
			}
		}
		applyIdx := func(off, n int) {
			vals := make([]uint16, n)
			for i := range vals {
				vals[i] = uint16(off + i)
			}
			if err := reg.ApplyComponent(42, Index, off, buffer.U16, 0, false, u16bytes(vals...), n); err != nil {
				t.Fatalf("index component: %v", err)
			}
		}
		if reverse {
			apply(verts[1][0], verts[1][1])
			apply(verts[0][0], verts[0][1])
			applyIdx(idxCalls[1][0], idxCalls[1][1])
			applyIdx(idxCalls[0][0], idxCalls[0][1])
		} else {
			apply(verts[0][0], verts[0][1])
			apply(verts[1][0], verts[1][1])
			applyIdx(idxCalls[0][0], idxCalls[0][1])
			applyIdx(idxCalls[1][0], idxCalls[1][1])
		}
		r, err := reg.Finalise(42)
		if err != nil {
			t.Fatal(err)
		}
		return r
	}

	a := build(false)
	b := build(true)
	for item := 0; item < 4; item++ {
		for c := 0; c < 3; c++ {
			va, _ := buffer.Get[float32](a.Vertices(), item, c)
			vb, _ := buffer.Get[float32](b.Vertices(), item, c)
			if va != vb {
				t.Fatalf("vertex(%d,%d) differs by write order: %v vs %v", item, c, va, vb)
			}
			if va != float32(item*3+c) {
				t.Fatalf("vertex(%d,%d) = %v, want %v", item, c, va, item*3+c)
			}
		}
	}
	for item := 0; item < 6; item++ {
		ia, _ := buffer.Get[uint16](a.Indices(), item, 0)
		ib, _ := buffer.Get[uint16](b.Indices(), item, 0)
		if ia != ib || ia != uint16(item) {
			t.Fatalf("index(%d) = %v/%v, want %v", item, ia, ib, item)
		}
	}
}

func TestComponentTypeMismatchRejected(t *testing.T) {
	reg := NewRegistry()
	reg.Create(1, 1, 0, DrawPoints, 0, wire.Identity[float64](), false)
	if err := reg.ApplyComponent(1, Colour, 0, buffer.F32, 0, false, f32bytes(1), 1); err == nil {
		t.Fatal("expected colour component with f32 element type to be rejected")
	}
	if err := reg.ApplyComponent(1, Vertex, 0, buffer.F32, 0, false, f32bytes(1, 2, 3), 1); err != nil {
		t.Fatalf("valid vertex component rejected: %v", err)
	}
	// Second call with a different element type for the same stream.
	if err := reg.ApplyComponent(1, Vertex, 0, buffer.F64, 0, false, make([]byte, 24), 1); err == nil {
		t.Fatal("expected mismatched element type against already-established stream to be rejected")
	}
}

func TestComponentOutOfRangeRejected(t *testing.T) {
	reg := NewRegistry()
	reg.Create(1, 2, 0, DrawPoints, 0, wire.Identity[float64](), false)
	if err := reg.ApplyComponent(1, Vertex, 1, buffer.F32, 0, false, f32bytes(1, 2, 3, 4, 5, 6), 2); err != ErrOutOfRange {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestStateMachineTransitions(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Finalise(9); err != ErrBadTransition {
		t.Fatalf("finalising a mesh that was never created should fail, got %v", err)
	}
	reg.Create(9, 1, 0, DrawPoints, 0, wire.Identity[float64](), false)
	if _, err := reg.Create(9, 1, 0, DrawPoints, 0, wire.Identity[float64](), false); err != ErrBadTransition {
		t.Fatalf("duplicate create should fail, got %v", err)
	}
	if _, err := reg.Redefine(9, 1, 0, DrawPoints, 0, wire.Identity[float64](), false); err != ErrBadTransition {
		t.Fatalf("redefine before finalise should fail, got %v", err)
	}
	if _, err := reg.Finalise(9); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Redefine(9, 3, 0, DrawPoints, 0, wire.Identity[float64](), false); err != nil {
		t.Fatal(err)
	}
	if err := reg.Destroy(9); err != nil {
		t.Fatal(err)
	}
	if err := reg.Destroy(9); err != ErrUnknownMesh {
		t.Fatalf("destroying an absent mesh should fail, got %v", err)
	}
}

func TestCopyOnWriteDetach(t *testing.T) {
	reg := NewRegistry()
	reg.Create(5, 1, 0, DrawPoints, 0, wire.Identity[float64](), false)
	reg.ApplyComponent(5, Vertex, 0, buffer.F32, 0, false, f32bytes(1, 2, 3), 1)
	ready, err := reg.Finalise(5)
	if err != nil {
		t.Fatal(err)
	}

	snapshot := ready.Share()
	defer snapshot.Release()

	if _, err := reg.Redefine(5, 1, 0, DrawPoints, 0, wire.Identity[float64](), false); err != nil {
		t.Fatal(err)
	}
	reg.ApplyComponent(5, Vertex, 0, buffer.F32, 0, false, f32bytes(9, 9, 9), 1)
	mutated, err := reg.Finalise(5)
	if err != nil {
		t.Fatal(err)
	}

	got, _ := buffer.Get[float32](snapshot.Vertices(), 0, 0)
	if got != 1 {
		t.Fatalf("shared snapshot observed the canonical mutation: vertex.x = %v, want 1", got)
	}
	gotNew, _ := buffer.Get[float32](mutated.Vertices(), 0, 0)
	if gotNew != 9 {
		t.Fatalf("canonical resource did not pick up the redefinition: vertex.x = %v, want 9", gotNew)
	}
}

func TestPlaceholderResolution(t *testing.T) {
	reg := NewRegistry()
	h := Placeholder(7)
	if !h.IsPlaceholder() {
		t.Fatal("fresh handle should be a placeholder")
	}
	if _, ok := h.Resolve(reg); ok {
		t.Fatal("resolving against an empty registry should fail")
	}
	reg.Create(7, 1, 0, DrawPoints, 0, wire.Identity[float64](), false)
	if _, ok := h.Resolve(reg); ok {
		t.Fatal("resolving a mesh that is still Defining should fail")
	}
	reg.Finalise(7)
	resolved, ok := h.Resolve(reg)
	if !ok {
		t.Fatal("resolving a Ready mesh should succeed")
	}
	if resolved.IsPlaceholder() {
		t.Fatal("resolved handle should no longer report as a placeholder")
	}
	r, ok := resolved.Resource()
	if !ok || r.ID() != 7 {
		t.Fatalf("resolved resource mismatch: %+v ok=%v", r, ok)
	}
}
