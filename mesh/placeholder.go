package mesh

// Handle is the MeshSet-facing sum type spec.md §9 calls out: either a
// Placeholder carrying just the ID a mesh will eventually arrive under,
// or a Full handle holding a shared Resource reference. Resolution
// happens lazily, at enumerate-resources time, so a MeshSet can be
// deserialised before the mesh it references shows up on the wire.
type Handle struct {
	id       uint32
	resource *Resource
}

// Placeholder creates an unresolved handle for a mesh that may not exist
// in the registry yet.
func Placeholder(id uint32) Handle { return Handle{id: id} }

// Full wraps an already-resolved resource.
func Full(r *Resource) Handle { return Handle{id: r.ID(), resource: r} }

// ID returns the mesh ID this handle names, resolved or not.
func (h Handle) ID() uint32 { return h.id }

// IsPlaceholder reports whether the handle has not yet been resolved to
// a concrete resource.
func (h Handle) IsPlaceholder() bool { return h.resource == nil }

// Resource returns the resolved resource, if any.
func (h Handle) Resource() (*Resource, bool) { return h.resource, h.resource != nil }

// Resolve attempts to turn a placeholder into a Full handle by looking
// the mesh ID up in reg; a mesh that exists but isn't Ready yet still
// counts as unresolved, since spec.md §4.6 requires Ready before a mesh
// may be referenced for drawing. Already-resolved handles return
// themselves unchanged.
func (h Handle) Resolve(reg *Registry) (Handle, bool) {
	if h.resource != nil {
		return h, true
	}
	r, ok := reg.Lookup(h.id)
	if !ok || r.State() != StateReady {
		return h, false
	}
	return Full(r.Share()), true
}
