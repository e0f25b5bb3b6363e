package shape

import (
	"github.com/tesceneio/tes/mesh"
	"github.com/tesceneio/tes/wire"
)

// Part is one mesh-set entry: a reference to a mesh resource plus its
// own transform and tint, layered on top of the set's own CommonRecord
// transform (spec.md §4.5).
type Part struct {
	MeshID    uint32
	Transform wire.Attributes[float64] // Colour field doubles as the part's tint
}

// MeshSet references zero or more mesh resources, each drawn with its
// own per-part transform and tint (spec.md §4.5). Unlike MeshShape and
// PointCloudShape, its parts are carried entirely inline in Create — it
// is not a complex shape. Destroying a MeshSet destroys its parts list
// but never cascades into destroying the mesh resources those parts
// reference (spec.md §4.5, and the SkipResources decision in DESIGN.md).
type MeshSet struct {
	Common_ CommonRecord
	Parts   []Part
}

func NewMeshSet(id uint32) *MeshSet {
	return &MeshSet{Common_: CommonRecord{RoutingID: wire.RMeshSet, ID: id, Attrs: wire.Identity[float64]()}}
}

func (m *MeshSet) Common() *CommonRecord { return &m.Common_ }
func (m *MeshSet) IsComplex() bool       { return false }

func (m *MeshSet) WriteCreate(w *wire.Writer) error {
	if err := m.Common_.writeCreate(w); err != nil {
		return err
	}
	if err := wire.WriteElement(w, uint16(len(m.Parts))); err != nil {
		return err
	}
	single := !m.Common_.DoublePrecision()
	for _, p := range m.Parts {
		if err := wire.WriteElement(w, p.MeshID); err != nil {
			return err
		}
		if single {
			if err := narrow(p.Transform).Write(w); err != nil {
				return err
			}
		} else if err := p.Transform.Write(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *MeshSet) WriteData(w *wire.Writer, progress *int) (DataStatus, error) {
	return DataDone, nil
}

func (m *MeshSet) WriteDestroy(w *wire.Writer) error { return m.Common_.writeDestroy(w) }

// EnumerateResources returns an unresolved placeholder handle per part;
// the caller resolves each against a mesh.Registry.
func (m *MeshSet) EnumerateResources() []mesh.Handle {
	out := make([]mesh.Handle, len(m.Parts))
	for i, p := range m.Parts {
		out[i] = mesh.Placeholder(p.MeshID)
	}
	return out
}

// ReadMeshSetCreate decodes a MeshSet Create payload.
func ReadMeshSetCreate(r *wire.Reader) (*MeshSet, error) {
	c, err := readCommonCreate(r, wire.RMeshSet)
	if err != nil {
		return nil, err
	}
	count, err := wire.ReadElement[uint16](r)
	if err != nil {
		return nil, err
	}
	ms := &MeshSet{Common_: c, Parts: make([]Part, count)}
	single := !c.DoublePrecision()
	for i := range ms.Parts {
		if ms.Parts[i].MeshID, err = wire.ReadElement[uint32](r); err != nil {
			return nil, err
		}
		if single {
			var narrowAttrs wire.Attributes[float32]
			if narrowAttrs, err = wire.ReadAttributes[float32](r); err != nil {
				return nil, err
			}
			ms.Parts[i].Transform = widen(narrowAttrs)
		} else if ms.Parts[i].Transform, err = wire.ReadAttributes[float64](r); err != nil {
			return nil, err
		}
	}
	return ms, nil
}
