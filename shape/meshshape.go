package shape

import (
	"fmt"

	"github.com/tesceneio/tes/buffer"
	"github.com/tesceneio/tes/mesh"
	"github.com/tesceneio/tes/wire"
)

// SendType tags which stream a MeshShape Data message carries (spec.md
// §4.5).
type SendType uint8

const (
	SendVertices SendType = iota
	SendIndices
	SendNormals
	SendUniformNormal
	SendColours
)

// DataFlags mark the tail of a MeshShape Data sequence.
type DataFlags uint8

const (
	DFExpectEnd DataFlags = 1 << 0
	DFEnd       DataFlags = 1 << 1
)

// MeshShape carries its geometry inline (unlike MeshSet, which only
// references external mesh resources): Create declares the shape's
// counts and draw type, then one or more Data messages stream the
// vertex/index/normal/colour arrays (spec.md §4.5). It is a complex
// shape.
type MeshShape struct {
	Common_    CommonRecord
	DrawKind   mesh.DrawType
	DrawScale  float64
	VertexCnt  int
	IndexCnt   int
	Vertices   *buffer.DataBuffer
	Indices    *buffer.DataBuffer
	Normals    *buffer.DataBuffer // nil if UniformNormal is used instead
	UniformNrm *[3]float64
	Colours    *buffer.DataBuffer
}

func NewMeshShape(id uint32, vertexCount, indexCount int, drawKind mesh.DrawType, drawScale float64) *MeshShape {
	return &MeshShape{
		Common_:   CommonRecord{RoutingID: wire.RMeshShape, ID: id, Attrs: wire.Identity[float64]()},
		DrawKind:  drawKind,
		DrawScale: drawScale,
		VertexCnt: vertexCount,
		IndexCnt:  indexCount,
	}
}

func (m *MeshShape) Common() *CommonRecord { return &m.Common_ }
func (m *MeshShape) IsComplex() bool       { return true }

func (m *MeshShape) WriteCreate(w *wire.Writer) error {
	if err := m.Common_.writeCreate(w); err != nil {
		return err
	}
	if err := wire.WriteElement(w, uint32(m.VertexCnt)); err != nil {
		return err
	}
	if err := wire.WriteElement(w, uint32(m.IndexCnt)); err != nil {
		return err
	}
	if err := wire.WriteElement(w, uint8(m.DrawKind)); err != nil {
		return err
	}
	if m.Common_.DoublePrecision() {
		return wire.WriteElement(w, m.DrawScale)
	}
	return wire.WriteElement(w, float32(m.DrawScale))
}

// pendingStreams lists, in a fixed order, the streams this shape still
// needs to send. progress indexes into this list; it is recomputed every
// call since streams may be set up to the moment WriteData is first
// invoked but never change once sending has begun.
func (m *MeshShape) pendingStreams() []func(w *wire.Writer) error {
	var out []func(w *wire.Writer) error
	if m.Vertices != nil {
		out = append(out, func(w *wire.Writer) error { return m.writeStream(w, SendVertices, m.Vertices) })
	}
	if m.Indices != nil {
		out = append(out, func(w *wire.Writer) error { return m.writeStream(w, SendIndices, m.Indices) })
	}
	if m.UniformNrm != nil {
		out = append(out, m.writeUniformNormal)
	} else if m.Normals != nil {
		out = append(out, func(w *wire.Writer) error { return m.writeStream(w, SendNormals, m.Normals) })
	}
	if m.Colours != nil {
		out = append(out, func(w *wire.Writer) error { return m.writeStream(w, SendColours, m.Colours) })
	}
	return out
}

func (m *MeshShape) writeStream(w *wire.Writer, t SendType, b *buffer.DataBuffer) error {
	if err := wire.WriteElement(w, uint8(t)); err != nil {
		return err
	}
	_, err := b.WriteTo(w, 0, wire.MaxPayloadSize-w.Len())
	return err
}

func (m *MeshShape) writeUniformNormal(w *wire.Writer) error {
	if err := wire.WriteElement(w, uint8(SendUniformNormal)); err != nil {
		return err
	}
	if m.Common_.DoublePrecision() {
		return wire.WriteArrayElements(w, m.UniformNrm[:])
	}
	v := [3]float32{float32(m.UniformNrm[0]), float32(m.UniformNrm[1]), float32(m.UniformNrm[2])}
	return wire.WriteArrayElements(w, v[:])
}

// WriteData emits one queued stream per call, tagging the final one with
// DFEnd (spec.md §4.5 ExpectEnd/End terminator flags).
func (m *MeshShape) WriteData(w *wire.Writer, progress *int) (DataStatus, error) {
	streams := m.pendingStreams()
	if *progress >= len(streams) {
		return DataDone, nil
	}
	flags := DataFlags(0)
	last := *progress == len(streams)-1
	if last {
		flags = DFExpectEnd | DFEnd
	}
	if err := wire.WriteElement(w, uint8(flags)); err != nil {
		return DataError, err
	}
	if err := streams[*progress](w); err != nil {
		return DataError, err
	}
	*progress++
	if last {
		return DataDone, nil
	}
	return DataMore, nil
}

func (m *MeshShape) WriteDestroy(w *wire.Writer) error { return m.Common_.writeDestroy(w) }

func (m *MeshShape) EnumerateResources() []mesh.Handle { return nil }

// ReadMeshShapeCreate decodes a MeshShape Create payload.
func ReadMeshShapeCreate(r *wire.Reader) (*MeshShape, error) {
	c, err := readCommonCreate(r, wire.RMeshShape)
	if err != nil {
		return nil, err
	}
	vc, err := wire.ReadElement[uint32](r)
	if err != nil {
		return nil, err
	}
	ic, err := wire.ReadElement[uint32](r)
	if err != nil {
		return nil, err
	}
	dk, err := wire.ReadElement[uint8](r)
	if err != nil {
		return nil, err
	}
	var scale float64
	if c.DoublePrecision() {
		scale, err = wire.ReadElement[float64](r)
	} else {
		var s32 float32
		s32, err = wire.ReadElement[float32](r)
		scale = float64(s32)
	}
	if err != nil {
		return nil, err
	}
	return &MeshShape{Common_: c, VertexCnt: int(vc), IndexCnt: int(ic), DrawKind: mesh.DrawType(dk), DrawScale: scale}, nil
}

// ReadData decodes one MeshShape Data message, merging its stream into
// the shape, and reports whether the terminator flag was set.
func (m *MeshShape) ReadData(r *wire.Reader) (done bool, err error) {
	rawFlags, err := wire.ReadElement[uint8](r)
	if err != nil {
		return false, err
	}
	flags := DataFlags(rawFlags)
	tag, err := wire.ReadElement[uint8](r)
	if err != nil {
		return false, err
	}
	switch SendType(tag) {
	case SendVertices:
		m.Vertices, err = buffer.ReadFrom(r)
	case SendIndices:
		m.Indices, err = buffer.ReadFrom(r)
	case SendNormals:
		m.Normals, err = buffer.ReadFrom(r)
	case SendColours:
		m.Colours, err = buffer.ReadFrom(r)
	case SendUniformNormal:
		var v []float32
		if m.Common_.DoublePrecision() {
			var v64 []float64
			v64, err = wire.ReadArrayElements[float64](r, 3)
			if err == nil {
				m.UniformNrm = &[3]float64{v64[0], v64[1], v64[2]}
			}
		} else {
			v, err = wire.ReadArrayElements[float32](r, 3)
			if err == nil {
				m.UniformNrm = &[3]float64{float64(v[0]), float64(v[1]), float64(v[2])}
			}
		}
	default:
		return false, fmt.Errorf("%w: unknown mesh-shape send type", wire.ErrMalformed)
	}
	if err != nil {
		return false, err
	}
	return flags&DFEnd != 0, nil
}
