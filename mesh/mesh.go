// Package mesh implements the multi-phase mesh resource lifecycle of
// spec.md §4.6: Create opens a mesh for definition, Component messages
// stream vertex/index/normal/colour/UV slices in any order and any
// number of times, Finalise makes it drawable, Redefine reopens a ready
// mesh, and Destroy removes it.
//
// A mesh resource is a reference-counted, copy-on-write handle: multiple
// shapes can share one without copying until something mutates it, at
// which point the mutator detaches onto its own private copy first
// (spec.md §9 "Arc<inner> + explicit make_mut").
package mesh

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/tesceneio/tes/buffer"
	"github.com/tesceneio/tes/internal/logging"
	"github.com/tesceneio/tes/wire"
)

// DrawType selects how a mesh's index stream is interpreted for drawing.
type DrawType uint8

const (
	DrawPoints DrawType = iota
	DrawLines
	DrawTriangles
	DrawVoxels
)

// State is a mesh resource's position in the lifecycle state machine.
type State uint8

const (
	StateAbsent State = iota
	StateDefining
	StateReady
)

// meshData is the mutable payload shared (or copy-on-write cloned)
// between Resource handles.
type meshData struct {
	vertexCount     int
	indexCount      int
	drawType        DrawType
	tint            uint32
	transform       wire.Attributes[float64]
	doublePrecision bool

	vertices *buffer.DataBuffer
	normals  *buffer.DataBuffer
	uvs      *buffer.DataBuffer
	colours  *buffer.DataBuffer
	indices  *buffer.DataBuffer
}

func (d meshData) clone() meshData {
	cp := d
	if d.vertices != nil {
		cp.vertices = d.vertices.Clone()
	}
	if d.normals != nil {
		cp.normals = d.normals.Clone()
	}
	if d.uvs != nil {
		cp.uvs = d.uvs.Clone()
	}
	if d.colours != nil {
		cp.colours = d.colours.Clone()
	}
	if d.indices != nil {
		cp.indices = d.indices.Clone()
	}
	return cp
}

// sharedData is the Arc-like cell a Resource's copy-on-write handle
// points at. refs is only ever consulted to decide whether a mutator
// must detach, never to free memory — the Go garbage collector handles
// that once the last Resource referencing a sharedData is gone.
type sharedData struct {
	refs int32
	data meshData
}

// Resource is a handle to a mesh's state: either the registry's
// canonical, mutable handle for a given mesh ID, or a frozen snapshot
// obtained via Share, safe to read concurrently with further mutation of
// the canonical handle.
type Resource struct {
	id         uint32
	state      State
	shared     *sharedData
	generation string
}

// ID returns the mesh ID this resource represents.
func (r *Resource) ID() uint32 { return r.id }

// Generation returns a random tag minted each time this mesh ID is
// (re)defined, distinct from Share's aliasing — useful for correlating
// log lines across Create/Redefine cycles when diagnosing stale-handle
// reports.
func (r *Resource) Generation() string { return r.generation }

// State returns the resource's current lifecycle state.
func (r *Resource) State() State { return r.state }

// VertexCount, IndexCount, DrawKind, Tint, Transform, DoublePrecision
// report the mesh's declared shape and static attributes.
func (r *Resource) VertexCount() int                    { return r.shared.data.vertexCount }
func (r *Resource) IndexCount() int                     { return r.shared.data.indexCount }
func (r *Resource) DrawKind() DrawType                  { return r.shared.data.drawType }
func (r *Resource) Tint() uint32                        { return r.shared.data.tint }
func (r *Resource) Transform() wire.Attributes[float64] { return r.shared.data.transform }
func (r *Resource) DoublePrecision() bool               { return r.shared.data.doublePrecision }

// Vertices, Normals, UVs, Colours, Indices expose the optional component
// streams filled in by Component messages; nil if that component was
// never sent.
func (r *Resource) Vertices() *buffer.DataBuffer { return r.shared.data.vertices }
func (r *Resource) Normals() *buffer.DataBuffer  { return r.shared.data.normals }
func (r *Resource) UVs() *buffer.DataBuffer      { return r.shared.data.uvs }
func (r *Resource) Colours() *buffer.DataBuffer  { return r.shared.data.colours }
func (r *Resource) Indices() *buffer.DataBuffer  { return r.shared.data.indices }

// Share returns a new handle aliasing r's current data, incrementing the
// reference count so a later mutation of the canonical resource detaches
// onto a private copy instead of changing what this handle observes.
func (r *Resource) Share() *Resource {
	atomic.AddInt32(&r.shared.refs, 1)
	return &Resource{id: r.id, state: r.state, shared: r.shared, generation: r.generation}
}

// Release drops a reference obtained from Share. It does not free
// anything directly; it only restores the refcount so a future mutation
// of the canonical resource does not needlessly detach.
func (r *Resource) Release() {
	atomic.AddInt32(&r.shared.refs, -1)
}

// detach clones the shared payload if anything else currently holds a
// reference to it, so in-place mutation below never disturbs a Share'd
// snapshot. Must be called with the owning Registry's lock held.
func (r *Resource) detach() {
	if atomic.LoadInt32(&r.shared.refs) > 1 {
		atomic.AddInt32(&r.shared.refs, -1)
		r.shared = &sharedData{refs: 1, data: r.shared.data.clone()}
	}
}

// Registry owns every mesh resource by ID (spec.md §4.6's per-mesh-ID
// state machine), guarded by a single mutex the way the teacher's
// node.Graph guards its slot table.
type Registry struct {
	mu     sync.Mutex
	meshes map[uint32]*Resource
	lg     logging.Logger
}

// NewRegistry creates an empty mesh registry.
func NewRegistry() *Registry {
	return &Registry{meshes: make(map[uint32]*Resource), lg: logging.Default()}
}

// WithLogger overrides the registry's diagnostic logger.
func (reg *Registry) WithLogger(lg logging.Logger) *Registry {
	reg.lg = lg
	return reg
}

// Create opens a new mesh definition. It fails with ErrBadTransition if
// id already names a mesh (use Redefine for that).
func (reg *Registry) Create(id uint32, vertexCount, indexCount int, drawType DrawType, tint uint32, transform wire.Attributes[float64], doublePrecision bool) (*Resource, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, exists := reg.meshes[id]; exists {
		return nil, ErrBadTransition
	}
	r := &Resource{
		id:    id,
		state: StateDefining,
		shared: &sharedData{refs: 1, data: meshData{
			vertexCount:     vertexCount,
			indexCount:      indexCount,
			drawType:        drawType,
			tint:            tint,
			transform:       transform,
			doublePrecision: doublePrecision,
		}},
		generation: uuid.NewString(),
	}
	reg.meshes[id] = r
	reg.lg.Debugf("mesh: created id=%d generation=%s", id, r.generation)
	return r, nil
}

// Redefine reopens a Ready mesh for a fresh definition, discarding its
// previous component streams. It fails with ErrBadTransition unless the
// mesh is currently Ready.
func (reg *Registry) Redefine(id uint32, vertexCount, indexCount int, drawType DrawType, tint uint32, transform wire.Attributes[float64], doublePrecision bool) (*Resource, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.meshes[id]
	if !ok || r.state != StateReady {
		return nil, ErrBadTransition
	}
	r.detach()
	r.state = StateDefining
	r.shared.data = meshData{
		vertexCount:     vertexCount,
		indexCount:      indexCount,
		drawType:        drawType,
		tint:            tint,
		transform:       transform,
		doublePrecision: doublePrecision,
	}
	r.generation = uuid.NewString()
	reg.lg.Debugf("mesh: redefined id=%d generation=%s", id, r.generation)
	return r, nil
}

// ApplyComponent merges a slice of count elements into the named
// component stream of a Defining mesh, starting at item offset. It
// validates elemType against the per-kind table, allocating the backing
// stream (zeroed) on first use and rejecting a later Component whose
// type disagrees with the one already established.
func (reg *Registry) ApplyComponent(id uint32, kind ComponentKind, offset int, elemType buffer.ElementType, scale float64, hasScale bool, elementBytes []byte, count int) error {
	rule, known := rules[kind]
	if !known || !rule.permits(elemType) {
		return ErrComponentType
	}
	if hasScale != elemType.Packed() {
		return ErrComponentType
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.meshes[id]
	if !ok || r.state != StateDefining {
		return ErrBadTransition
	}
	r.detach()

	var total int
	var stream **buffer.DataBuffer
	switch kind {
	case Vertex:
		total, stream = r.shared.data.vertexCount, &r.shared.data.vertices
	case Normal:
		total, stream = r.shared.data.vertexCount, &r.shared.data.normals
	case UV:
		total, stream = r.shared.data.vertexCount, &r.shared.data.uvs
	case Colour:
		total, stream = r.shared.data.vertexCount, &r.shared.data.colours
	case Index:
		total, stream = r.shared.data.indexCount, &r.shared.data.indices
	}
	if offset < 0 || count < 0 || offset+count > total {
		return ErrOutOfRange
	}

	if *stream == nil {
		if elemType.Packed() {
			*stream = buffer.NewOwnedQuantised(elemType, rule.components, total, scale)
		} else {
			*stream = buffer.NewOwned(elemType, rule.components, total)
		}
	} else if (*stream).ElementType() != elemType || (*stream).ComponentCount() != rule.components {
		return ErrComponentType
	}

	dst, err := (*stream).MutableSlice(offset, count)
	if err != nil {
		return err
	}
	want := count * rule.components * elemType.Size()
	if len(elementBytes) != want {
		return ErrOutOfRange
	}
	copy(dst, elementBytes)
	return nil
}

// Finalise transitions a Defining mesh to Ready, making it drawable. It
// fails with ErrBadTransition unless the mesh is currently Defining.
func (reg *Registry) Finalise(id uint32) (*Resource, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.meshes[id]
	if !ok || r.state != StateDefining {
		return nil, ErrBadTransition
	}
	r.state = StateReady
	return r, nil
}

// Destroy removes a mesh regardless of its current state.
func (reg *Registry) Destroy(id uint32) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, ok := reg.meshes[id]; !ok {
		return ErrUnknownMesh
	}
	delete(reg.meshes, id)
	return nil
}

// Lookup returns the canonical resource for id, if any.
func (reg *Registry) Lookup(id uint32) (*Resource, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.meshes[id]
	return r, ok
}

// Count returns the number of mesh IDs currently tracked, regardless of
// state.
func (reg *Registry) Count() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.meshes)
}

// Range calls fn for every tracked mesh ID, in no particular order,
// holding the registry's lock for the duration. fn must not call back
// into the registry.
func (reg *Registry) Range(fn func(id uint32, r *Resource)) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for id, r := range reg.meshes {
		fn(id, r)
	}
}
