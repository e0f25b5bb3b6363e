package handler

import (
	"sync"

	"github.com/tesceneio/tes/bounds"
	"github.com/tesceneio/tes/shape"
	"github.com/tesceneio/tes/wire"
)

// primKey identifies a persistent primitive shape: routing ID picks the
// kind (Sphere, Box, ...), instance ID picks the shape within that kind.
// Transient (ID == 0) shapes never use this key — any number of them can
// be live within one frame (GLOSSARY "Transient").
type primKey struct {
	kind wire.RoutingID
	id   uint32
}

type primState struct {
	shape    *shape.Primitive
	boundsID bounds.ID
}

// PrimitiveHandler is a reference Handler implementation for the nine
// shape kinds whose wire form is exactly shape.Primitive (Box, Sphere,
// Cone, Cylinder, Capsule, Plane, Star, Arrow, Pose). Register one
// instance per routing ID it should receive Create/Update/Destroy
// traffic for. The complex, Data-phase shape kinds (MeshShape, MeshSet,
// PointCloud, Text2D/3D, MultiShape) are not given a reference handler
// here — reconstructing their full Data-phase decode is renderer
// territory, and the concrete renderer is explicitly out of scope
// (SPEC_FULL.md's AMBIENT STACK note, "this module exposes the
// interfaces they would consume but does not implement them"); an
// unregistered routing ID falls through to the coordinator's
// UnknownRouting warn-once path, which is itself spec'd behaviour
// (spec.md §7).
type PrimitiveHandler struct {
	culler *bounds.Culler

	mu         sync.Mutex
	persistent map[primKey]*primState
	transient  []*primState
}

// NewPrimitiveHandler creates a PrimitiveHandler. culler may be nil to
// skip visibility tracking (e.g. a recorder that never draws).
func NewPrimitiveHandler(culler *bounds.Culler) *PrimitiveHandler {
	return &PrimitiveHandler{culler: culler, persistent: make(map[primKey]*primState)}
}

func (h *PrimitiveHandler) Initialise() {}

// Reset drops every shape, persistent and transient alike, releasing
// their culler entries so no orphaned bounds remain (spec.md §8
// property 7).
func (h *PrimitiveHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.culler != nil {
		for _, st := range h.persistent {
			h.culler.Release(st.boundsID)
		}
		for _, st := range h.transient {
			h.culler.Release(st.boundsID)
		}
	}
	h.persistent = make(map[primKey]*primState)
	h.transient = nil
}

func (h *PrimitiveHandler) BeginFrame(Stamp) {}

// EndFrame drops this frame's transient shapes, so the next BeginFrame
// (and its Draw calls) no longer see them (spec.md §6 scenario S1,
// GLOSSARY "Transient": "living exactly one frame").
func (h *PrimitiveHandler) EndFrame(Stamp) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.culler != nil {
		for _, st := range h.transient {
			h.culler.Release(st.boundsID)
		}
	}
	h.transient = h.transient[:0]
}

func (h *PrimitiveHandler) ReadMessage(pkt *wire.Reader) error {
	switch pkt.MessageID {
	case wire.MIDCreate:
		return h.readCreate(pkt)
	case wire.MIDUpdate:
		return h.readUpdate(pkt)
	case wire.MIDDestroy:
		return h.readDestroy(pkt)
	}
	return nil
}

func (h *PrimitiveHandler) allocateBounds(p *shape.Primitive) bounds.ID {
	if h.culler == nil {
		return 0
	}
	b := p.Bounds()
	return h.culler.Allocate(bounds.Box{Min: b.Min, Max: b.Max})
}

func (h *PrimitiveHandler) readCreate(pkt *wire.Reader) error {
	pkt.Rewind()
	p, err := shape.ReadPrimitiveCreate(pkt, pkt.RoutingID)
	if err != nil {
		return err
	}
	st := &primState{shape: p}

	h.mu.Lock()
	defer h.mu.Unlock()
	st.boundsID = h.allocateBounds(p)
	if p.Common().Transient() {
		h.transient = append(h.transient, st)
	} else {
		h.persistent[primKey{pkt.RoutingID, p.Common().ID}] = st
	}
	return nil
}

func (h *PrimitiveHandler) readUpdate(pkt *wire.Reader) error {
	pkt.Rewind()
	id, err := wire.ReadElement[uint32](pkt)
	if err != nil {
		return err
	}
	pkt.Rewind()

	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.persistent[primKey{pkt.RoutingID, id}]
	if !ok {
		return wire.ErrMalformed
	}
	if err := st.shape.Common().ReadUpdate(pkt); err != nil {
		return err
	}
	if h.culler != nil {
		b := st.shape.Bounds()
		h.culler.Update(st.boundsID, bounds.Box{Min: b.Min, Max: b.Max})
	}
	return nil
}

func (h *PrimitiveHandler) readDestroy(pkt *wire.Reader) error {
	pkt.Rewind()
	id, err := wire.ReadElement[uint32](pkt)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	key := primKey{pkt.RoutingID, id}
	st, ok := h.persistent[key]
	if !ok {
		return nil
	}
	if h.culler != nil {
		h.culler.Release(st.boundsID)
	}
	delete(h.persistent, key)
	return nil
}

// Draw visits every live shape visible at stamp.Mark and whose
// transparency matches pass. It does not submit any GPU work itself —
// see the package doc comment — but exercises the culler-visibility and
// pass-separation contract a real renderer would rely on.
func (h *PrimitiveHandler) Draw(pass Pass, stamp Stamp, _ DrawParams) {
	h.mu.Lock()
	defer h.mu.Unlock()
	visit := func(st *primState) {
		if h.culler != nil && !h.culler.IsVisible(st.boundsID, stamp.Mark) {
			return
		}
		transparent := st.shape.Common().Flags&wire.SFTransparent != 0
		if transparent != (pass == PassTransparent) {
			return
		}
		// A concrete renderer would submit st.shape's draw call here.
	}
	for _, st := range h.persistent {
		visit(st)
	}
	for _, st := range h.transient {
		visit(st)
	}
}

// Serialise re-emits every persistent shape's Create message. Transient
// shapes are never re-emitted: by definition they do not outlive the
// frame they were created in, so a keyframe taken between frames has
// none left to capture.
func (h *PrimitiveHandler) Serialise(emit PacketSink, _ wire.ServerInfo) error {
	h.mu.Lock()
	states := make([]*primState, 0, len(h.persistent))
	for _, st := range h.persistent {
		states = append(states, st)
	}
	h.mu.Unlock()

	for _, st := range states {
		w := wire.NewWriter(st.shape.Common().RoutingID, wire.MIDCreate)
		if err := st.shape.WriteCreate(w); err != nil {
			return err
		}
		pkt, err := w.Finish()
		if err != nil {
			return err
		}
		if err := emit(pkt); err != nil {
			return err
		}
	}
	return nil
}
