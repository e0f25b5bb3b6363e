package bounds

import (
	"testing"

	"github.com/tesceneio/tes/linear"
)

func TestResourceListAllocateReleaseReuse(t *testing.T) {
	l := NewResourceList[int]()
	a := l.Allocate(1)
	b := l.Allocate(2)
	if l.Len() != 2 {
		t.Fatalf("len = %d, want 2", l.Len())
	}
	l.Release(a)
	if l.Len() != 1 {
		t.Fatalf("len after release = %d, want 1", l.Len())
	}
	c := l.Allocate(3)
	if c != a {
		t.Fatalf("expected reuse of freed ID %d, got %d", a, c)
	}
	v, ok := l.At(b)
	if !ok || v != 2 {
		t.Fatalf("At(b) = %v, %v, want 2, true", v, ok)
	}
}

func TestResourceListGrowsPastFirstBlock(t *testing.T) {
	l := NewResourceList[int]()
	ids := make([]ID, 40)
	for i := range ids {
		ids[i] = l.Allocate(i)
	}
	if l.Len() != 40 {
		t.Fatalf("len = %d, want 40", l.Len())
	}
	for i, id := range ids {
		v, ok := l.At(id)
		if !ok || v != i {
			t.Fatalf("At(%d) = %v, %v, want %d, true", id, v, ok, i)
		}
	}
}

func TestResourceListReleaseUnallocatedPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic releasing an unallocated ID")
		}
	}()
	l := NewResourceList[int]()
	l.Release(0)
}

func unitFrustum() Frustum {
	// Six planes of the box [-1, 1]^3, normals pointing inward.
	return Frustum{Planes: [6]Plane{
		{Normal: linear.V3{1, 0, 0}, D: 1},
		{Normal: linear.V3{-1, 0, 0}, D: 1},
		{Normal: linear.V3{0, 1, 0}, D: 1},
		{Normal: linear.V3{0, -1, 0}, D: 1},
		{Normal: linear.V3{0, 0, 1}, D: 1},
		{Normal: linear.V3{0, 0, -1}, D: 1},
	}}
}

func TestCullerVisibility(t *testing.T) {
	c := NewCuller()
	frustum := unitFrustum()

	inside := c.Allocate(Box{Min: linear.V3{-0.5, -0.5, -0.5}, Max: linear.V3{0.5, 0.5, 0.5}})
	outside := c.Allocate(Box{Min: linear.V3{10, 10, 10}, Max: linear.V3{11, 11, 11}})

	c.Cull(1, &frustum)

	if !c.IsVisible(inside, 1) {
		t.Fatal("expected inside box to be visible at mark 1")
	}
	if c.IsVisible(outside, 1) {
		t.Fatal("expected outside box to not be visible at mark 1")
	}
	if c.IsVisible(inside, 2) {
		t.Fatal("mark 2 was never culled, inside box should not match it")
	}
}

func TestCullerReleaseLeavesNoOrphans(t *testing.T) {
	c := NewCuller()
	ids := make([]ID, 5)
	for i := range ids {
		ids[i] = c.Allocate(Box{})
	}
	before := c.Len()
	for _, id := range ids {
		c.Release(id)
	}
	after := c.Len()
	if before != 5 || after != 0 {
		t.Fatalf("before=%d after=%d, want 5, 0", before, after)
	}
}
