package shape

import (
	"github.com/tesceneio/tes/buffer"
	"github.com/tesceneio/tes/mesh"
	"github.com/tesceneio/tes/wire"
)

// PointCloudShape draws a subset of an external mesh resource's vertices
// as points, selected by a sliced index array streamed via Data (spec.md
// §4.5). It is a complex shape.
type PointCloudShape struct {
	Common_    CommonRecord
	MeshID     uint32
	IndexCnt   int
	PointScale float64
	Indices    *buffer.DataBuffer
}

func NewPointCloudShape(id, meshID uint32, indexCount int, pointScale float64) *PointCloudShape {
	return &PointCloudShape{
		Common_:    CommonRecord{RoutingID: wire.RPointCloud, ID: id, Attrs: wire.Identity[float64]()},
		MeshID:     meshID,
		IndexCnt:   indexCount,
		PointScale: pointScale,
	}
}

func (p *PointCloudShape) Common() *CommonRecord { return &p.Common_ }
func (p *PointCloudShape) IsComplex() bool       { return true }

func (p *PointCloudShape) WriteCreate(w *wire.Writer) error {
	if err := p.Common_.writeCreate(w); err != nil {
		return err
	}
	if err := wire.WriteElement(w, p.MeshID); err != nil {
		return err
	}
	if err := wire.WriteElement(w, uint32(p.IndexCnt)); err != nil {
		return err
	}
	if p.Common_.DoublePrecision() {
		return wire.WriteElement(w, p.PointScale)
	}
	return wire.WriteElement(w, float32(p.PointScale))
}

func (p *PointCloudShape) WriteData(w *wire.Writer, progress *int) (DataStatus, error) {
	if *progress != 0 || p.Indices == nil {
		return DataDone, nil
	}
	if _, err := p.Indices.WriteTo(w, 0, wire.MaxPayloadSize-w.Len()); err != nil {
		return DataError, err
	}
	*progress = 1
	return DataDone, nil
}

func (p *PointCloudShape) WriteDestroy(w *wire.Writer) error { return p.Common_.writeDestroy(w) }

func (p *PointCloudShape) EnumerateResources() []mesh.Handle {
	return []mesh.Handle{mesh.Placeholder(p.MeshID)}
}

// ReadPointCloudCreate decodes a PointCloudShape Create payload.
func ReadPointCloudCreate(r *wire.Reader) (*PointCloudShape, error) {
	c, err := readCommonCreate(r, wire.RPointCloud)
	if err != nil {
		return nil, err
	}
	meshID, err := wire.ReadElement[uint32](r)
	if err != nil {
		return nil, err
	}
	idxCnt, err := wire.ReadElement[uint32](r)
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
	return &PointCloudShape{Common_: c, MeshID: meshID, IndexCnt: int(idxCnt), PointScale: scale}, nil
}

// ReadData decodes the streamed index array.
func (p *PointCloudShape) ReadData(r *wire.Reader) error {
	idx, err := buffer.ReadFrom(r)
	if err != nil {
		return err
	}
	p.Indices = idx
	return nil
}
