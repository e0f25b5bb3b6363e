// Package bounds implements the generic resource list and bounds culler
// of spec.md §4.10: O(1) allocate/release/access over a bitmap-backed
// slot table, and a culler that stamps axis-aligned boxes visible
// against a view frustum with a monotonic render mark.
package bounds

import (
	"sync"

	"github.com/tesceneio/tes/internal/bitvec"
)

// ID identifies a slot in a ResourceList. It is the slot's index, so the
// first slot allocated in an empty list has ID 0.
type ID uint32

// ResourceList is a generic slot container (spec.md §4.10 "resource
// list"): allocate returns a stable ID, release pushes it back for
// reuse, and Range iterates live slots in index order skipping free
// ones. It is guarded by a single RWMutex rather than a hand-rolled
// reference counter: Range/At take the read side so any number of
// concurrent readers may be live at once, while Allocate/Release take
// the write side, which in Go's RWMutex blocks until every outstanding
// reader has finished — exactly the "locked whenever a reference is
// live, exclusive for allocate/release" rule spec.md asks for, without
// reimplementing it.
type ResourceList[T any] struct {
	mu    sync.RWMutex
	slots []T
	occ   bitvec.V[uint32]
}

// NewResourceList creates an empty resource list.
func NewResourceList[T any]() *ResourceList[T] {
	return &ResourceList[T]{}
}

// Allocate inserts value into the first free slot, growing the backing
// storage if none is free, and returns its ID.
func (l *ResourceList[T]) Allocate(value T) ID {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx, ok := l.occ.Search()
	if !ok {
		idx = l.occ.Grow(1)
	}
	l.occ.Set(idx)
	if idx >= len(l.slots) {
		grown := make([]T, l.occ.Len())
		copy(grown, l.slots)
		l.slots = grown
	}
	l.slots[idx] = value
	return ID(idx)
}

// Release frees id for reuse. It panics if id was not allocated, the
// same invariant violation the teacher's bitvec/bitm types panic on for
// any out-of-range bit operation.
func (l *ResourceList[T]) Release(id ID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.occ.IsSet(int(id)) {
		panic("bounds: release of unallocated ID")
	}
	var zero T
	l.slots[id] = zero
	l.occ.Unset(int(id))
}

// At returns the value stored at id and whether id names a live slot.
func (l *ResourceList[T]) At(id ID) (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if int(id) >= len(l.slots) || !l.occ.IsSet(int(id)) {
		var zero T
		return zero, false
	}
	return l.slots[id], true
}

// Update replaces the value stored at id. It returns false if id does
// not name a live slot.
func (l *ResourceList[T]) Update(id ID, value T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if int(id) >= len(l.slots) || !l.occ.IsSet(int(id)) {
		return false
	}
	l.slots[id] = value
	return true
}

// Mutate calls fn with a pointer to the value stored at id, under the
// list's write lock, so fn may update it in place. It returns false if
// id does not name a live slot.
func (l *ResourceList[T]) Mutate(id ID, fn func(*T)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if int(id) >= len(l.slots) || !l.occ.IsSet(int(id)) {
		return false
	}
	fn(&l.slots[id])
	return true
}

// Range calls fn for every live slot in ascending ID order, holding the
// list's read lock for the duration. fn must not call back into any
// method of the same list.
func (l *ResourceList[T]) Range(fn func(ID, T)) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for idx := range l.occ.Only(true) {
		fn(ID(idx), l.slots[idx])
	}
}

// RangeMut calls fn for every live slot in ascending ID order with a
// pointer to its value, holding the list's write lock for the duration
// so fn may mutate slots in place. fn must not call back into any
// method of the same list.
func (l *ResourceList[T]) RangeMut(fn func(ID, *T)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for idx := range l.occ.Only(true) {
		fn(ID(idx), &l.slots[idx])
	}
}

// Len returns the number of live slots.
func (l *ResourceList[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.occ.Len() - l.occ.Rem()
}
