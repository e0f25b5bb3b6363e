package handler

import (
	"errors"

	"github.com/tesceneio/tes/buffer"
	"github.com/tesceneio/tes/mesh"
	"github.com/tesceneio/tes/wire"
)

// meshSub distinguishes the two kinds of RMesh/MIDData payload: a
// Component slice upload, or a Finalise carrying only the mesh ID. Neither
// spec.md nor the shared shape message-ID table names a dedicated
// Finalise message ID, so MeshHandler folds it into the Data sub-phase
// alongside Component, tagged by this leading byte.
type meshSub uint8

const (
	meshSubComponent meshSub = iota
	meshSubFinalise
)

// MeshHandler bridges RMesh wire traffic to a mesh.Registry (spec.md
// §4.9's handler registry applied to §4.6's mesh resource lifecycle). It
// carries no drawable state itself — mesh resources are referenced by
// shapes, not drawn directly — so BeginFrame/EndFrame/Draw are no-ops;
// it exists to be registered ahead of shape handlers in the
// coordinator's dependency order ("mesh resources before mesh-set").
type MeshHandler struct {
	registry *mesh.Registry
}

// NewMeshHandler creates a MeshHandler over registry.
func NewMeshHandler(registry *mesh.Registry) *MeshHandler {
	return &MeshHandler{registry: registry}
}

func (h *MeshHandler) Initialise() {}

// Reset destroys every tracked mesh, matching spec.md §5's reset
// contract ("reset all handlers") for a resource whose identity is
// entirely server-assigned IDs with no notion of surviving a rewind.
func (h *MeshHandler) Reset() {
	var ids []uint32
	h.registry.Range(func(id uint32, _ *mesh.Resource) { ids = append(ids, id) })
	for _, id := range ids {
		h.registry.Destroy(id)
	}
}

func (h *MeshHandler) BeginFrame(Stamp)             {}
func (h *MeshHandler) EndFrame(Stamp)               {}
func (h *MeshHandler) Draw(Pass, Stamp, DrawParams) {}

// ReadMessage decodes an RMesh packet and applies it to the registry.
// MIDCreate tries Create first, falling back to Redefine if the mesh ID
// already exists — Create and Redefine share one wire message because
// spec.md §4.9's shared message-ID table has no separate "reopen" ID,
// and spec.md §4.6 treats Redefine as exactly "Create reopening a Ready
// mesh".
func (h *MeshHandler) ReadMessage(pkt *wire.Reader) error {
	switch pkt.MessageID {
	case wire.MIDCreate:
		return h.readCreate(pkt)
	case wire.MIDData:
		return h.readData(pkt)
	case wire.MIDDestroy:
		id, err := wire.ReadElement[uint32](pkt)
		if err != nil {
			return err
		}
		return h.registry.Destroy(id)
	}
	return nil
}

func (h *MeshHandler) readCreate(pkt *wire.Reader) error {
	id, err := wire.ReadElement[uint32](pkt)
	if err != nil {
		return err
	}
	vertexCount, err := wire.ReadElement[uint32](pkt)
	if err != nil {
		return err
	}
	indexCount, err := wire.ReadElement[uint32](pkt)
	if err != nil {
		return err
	}
	drawType, err := wire.ReadElement[uint8](pkt)
	if err != nil {
		return err
	}
	doublePrecision, err := wire.ReadElement[uint8](pkt)
	if err != nil {
		return err
	}
	tint, err := wire.ReadElement[uint32](pkt)
	if err != nil {
		return err
	}

	var transform wire.Attributes[float64]
	if doublePrecision != 0 {
		transform, err = wire.ReadAttributes[float64](pkt)
	} else {
		var narrow wire.Attributes[float32]
		narrow, err = wire.ReadAttributes[float32](pkt)
		if err == nil {
			transform = widenAttrs(narrow)
		}
	}
	if err != nil {
		return err
	}

	_, err = h.registry.Create(id, int(vertexCount), int(indexCount), mesh.DrawType(drawType), tint, transform, doublePrecision != 0)
	if errors.Is(err, mesh.ErrBadTransition) {
		_, err = h.registry.Redefine(id, int(vertexCount), int(indexCount), mesh.DrawType(drawType), tint, transform, doublePrecision != 0)
	}
	return err
}

func widenAttrs(a wire.Attributes[float32]) (w wire.Attributes[float64]) {
	w.Colour = a.Colour
	for i := range a.Position {
		w.Position[i] = float64(a.Position[i])
	}
	for i := range a.Rotation {
		w.Rotation[i] = float64(a.Rotation[i])
	}
	for i := range a.Scale {
		w.Scale[i] = float64(a.Scale[i])
	}
	return
}

func narrowAttrs(a wire.Attributes[float64]) (n wire.Attributes[float32]) {
	n.Colour = a.Colour
	for i := range a.Position {
		n.Position[i] = float32(a.Position[i])
	}
	for i := range a.Rotation {
		n.Rotation[i] = float32(a.Rotation[i])
	}
	for i := range a.Scale {
		n.Scale[i] = float32(a.Scale[i])
	}
	return
}

func (h *MeshHandler) readData(pkt *wire.Reader) error {
	sub, err := wire.ReadElement[uint8](pkt)
	if err != nil {
		return err
	}
	id, err := wire.ReadElement[uint32](pkt)
	if err != nil {
		return err
	}
	if meshSub(sub) == meshSubFinalise {
		_, err := h.registry.Finalise(id)
		return err
	}

	kind, err := wire.ReadElement[uint8](pkt)
	if err != nil {
		return err
	}
	offset, err := wire.ReadElement[uint32](pkt)
	if err != nil {
		return err
	}
	buf, err := buffer.ReadFrom(pkt)
	if err != nil {
		return err
	}
	bytes, err := buf.MutableSlice(0, buf.ItemCount())
	if err != nil {
		return err
	}
	scale, hasScale := buf.Scale()
	return h.registry.ApplyComponent(id, mesh.ComponentKind(kind), int(offset), buf.ElementType(), scale, hasScale, bytes, buf.ItemCount())
}

// Serialise re-emits every Ready mesh as a Create followed by one
// Component message per populated stream and a Finalise, so a keyframe
// capture can reconstruct current mesh state without replaying the
// whole file from the start.
func (h *MeshHandler) Serialise(emit PacketSink, _ wire.ServerInfo) error {
	var outerErr error
	h.registry.Range(func(id uint32, r *mesh.Resource) {
		if outerErr != nil || r.State() != mesh.StateReady {
			return
		}
		if err := h.serialiseOne(emit, id, r); err != nil {
			outerErr = err
		}
	})
	return outerErr
}

func (h *MeshHandler) serialiseOne(emit PacketSink, id uint32, r *mesh.Resource) error {
	w := wire.NewWriter(wire.RMesh, wire.MIDCreate)
	if err := wire.WriteElement(w, id); err != nil {
		return err
	}
	if err := wire.WriteElement(w, uint32(r.VertexCount())); err != nil {
		return err
	}
	if err := wire.WriteElement(w, uint32(r.IndexCount())); err != nil {
		return err
	}
	if err := wire.WriteElement(w, uint8(r.DrawKind())); err != nil {
		return err
	}
	dp := uint8(0)
	if r.DoublePrecision() {
		dp = 1
	}
	if err := wire.WriteElement(w, dp); err != nil {
		return err
	}
	if err := wire.WriteElement(w, r.Tint()); err != nil {
		return err
	}
	var attrErr error
	if r.DoublePrecision() {
		attrErr = r.Transform().Write(w)
	} else {
		attrErr = narrowAttrs(r.Transform()).Write(w)
	}
	if attrErr != nil {
		return attrErr
	}
	pkt, err := w.Finish()
	if err != nil {
		return err
	}
	if err := emit(pkt); err != nil {
		return err
	}

	streams := []struct {
		kind mesh.ComponentKind
		buf  *buffer.DataBuffer
	}{
		{mesh.Vertex, r.Vertices()},
		{mesh.Normal, r.Normals()},
		{mesh.UV, r.UVs()},
		{mesh.Colour, r.Colours()},
		{mesh.Index, r.Indices()},
	}
	for _, s := range streams {
		if s.buf == nil {
			continue
		}
		if err := h.serialiseComponent(emit, id, s.kind, s.buf); err != nil {
			return err
		}
	}

	fin := wire.NewWriter(wire.RMesh, wire.MIDData)
	if err := wire.WriteElement(fin, uint8(meshSubFinalise)); err != nil {
		return err
	}
	if err := wire.WriteElement(fin, id); err != nil {
		return err
	}
	pkt, err = fin.Finish()
	if err != nil {
		return err
	}
	return emit(pkt)
}

func (h *MeshHandler) serialiseComponent(emit PacketSink, id uint32, kind mesh.ComponentKind, buf *buffer.DataBuffer) error {
	w := wire.NewWriter(wire.RMesh, wire.MIDData)
	if err := wire.WriteElement(w, uint8(meshSubComponent)); err != nil {
		return err
	}
	if err := wire.WriteElement(w, id); err != nil {
		return err
	}
	if err := wire.WriteElement(w, uint8(kind)); err != nil {
		return err
	}
	if err := wire.WriteElement(w, uint32(0)); err != nil {
		return err
	}
	if _, err := buf.WriteTo(w, 0, 1<<30); err != nil {
		return err
	}
	pkt, err := w.Finish()
	if err != nil {
		return err
	}
	return emit(pkt)
}
