package shape

import (
	"github.com/tesceneio/tes/mesh"
	"github.com/tesceneio/tes/wire"
)

// BlockCountLimit is the maximum number of per-instance attribute
// records carried inline in a MultiShape's Create message; the rest
// streams via Data in fixed-size blocks, halved when double precision
// doubles each record's size (spec.md §4.5).
const BlockCountLimit = 64

// MultiShape draws many instances of the same shape kind sharing one ID,
// each with its own attribute record; when the instance count exceeds
// BlockCountLimit it becomes a complex shape that streams the remainder
// via Data (spec.md §4.5).
type MultiShape struct {
	Common_  CommonRecord
	Items    []wire.Attributes[float64]
	streamed int // items merged via ReadData so far, for decoding only
}

func NewMultiShape(id uint32, kind wire.RoutingID) *MultiShape {
	c := CommonRecord{RoutingID: kind, ID: id, Attrs: wire.Identity[float64]()}
	c.Flags |= wire.SFMultiShape
	return &MultiShape{Common_: c}
}

func (m *MultiShape) blockLimit() int {
	if m.Common_.DoublePrecision() {
		return BlockCountLimit / 2
	}
	return BlockCountLimit
}

func (m *MultiShape) Common() *CommonRecord { return &m.Common_ }

func (m *MultiShape) IsComplex() bool { return len(m.Items) > m.blockLimit() }

func (m *MultiShape) writeItem(w *wire.Writer, a wire.Attributes[float64]) error {
	if m.Common_.DoublePrecision() {
		return a.Write(w)
	}
	return narrow(a).Write(w)
}

func (m *MultiShape) WriteCreate(w *wire.Writer) error {
	if err := m.Common_.writeCreate(w); err != nil {
		return err
	}
	if err := wire.WriteElement(w, uint32(len(m.Items))); err != nil {
		return err
	}
	limit := m.blockLimit()
	inline := m.Items
	if len(inline) > limit {
		inline = inline[:limit]
	}
	for _, a := range inline {
		if err := m.writeItem(w, a); err != nil {
			return err
		}
	}
	return nil
}

// WriteData streams the remainder of Items (beyond the inline Create
// block) in blockLimit-sized chunks, flagging the last chunk with
// DFEnd.
func (m *MultiShape) WriteData(w *wire.Writer, progress *int) (DataStatus, error) {
	limit := m.blockLimit()
	remaining := m.Items[limit:]
	sent := *progress
	if sent >= len(remaining) {
		return DataDone, nil
	}
	end := sent + limit
	last := false
	if end >= len(remaining) {
		end = len(remaining)
		last = true
	}
	block := remaining[sent:end]
	flags := DataFlags(0)
	if last {
		flags = DFExpectEnd | DFEnd
	}
	if err := wire.WriteElement(w, uint8(flags)); err != nil {
		return DataError, err
	}
	if err := wire.WriteElement(w, uint16(len(block))); err != nil {
		return DataError, err
	}
	for _, a := range block {
		if err := m.writeItem(w, a); err != nil {
			return DataError, err
		}
	}
	*progress = end
	if last {
		return DataDone, nil
	}
	return DataMore, nil
}

func (m *MultiShape) WriteDestroy(w *wire.Writer) error { return m.Common_.writeDestroy(w) }

// EnumerateResources: MultiShape carries no mesh references of its own;
// if the underlying kind is MeshSet-like, the caller enumerates through
// the kind-specific type instead.
func (m *MultiShape) EnumerateResources() []mesh.Handle { return nil }

// ReadMultiShapeCreate decodes a MultiShape Create payload for the given
// underlying routing ID.
func ReadMultiShapeCreate(r *wire.Reader, routingID wire.RoutingID) (*MultiShape, error) {
	c, err := readCommonCreate(r, routingID)
	if err != nil {
		return nil, err
	}
	total, err := wire.ReadElement[uint32](r)
	if err != nil {
		return nil, err
	}
	m := &MultiShape{Common_: c, Items: make([]wire.Attributes[float64], total)}
	limit := m.blockLimit()
	inlineCount := int(total)
	if inlineCount > limit {
		inlineCount = limit
	}
	for i := 0; i < inlineCount; i++ {
		if c.DoublePrecision() {
			m.Items[i], err = wire.ReadAttributes[float64](r)
		} else {
			var narrowAttrs wire.Attributes[float32]
			narrowAttrs, err = wire.ReadAttributes[float32](r)
			m.Items[i] = widen(narrowAttrs)
		}
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ReadData decodes one streamed block, merging it into Items starting
// right after the inline Create block (or after the last streamed
// block), and reports whether the terminator flag was set.
func (m *MultiShape) ReadData(r *wire.Reader) (done bool, err error) {
	rawFlags, err := wire.ReadElement[uint8](r)
	if err != nil {
		return false, err
	}
	flags := DataFlags(rawFlags)
	n, err := wire.ReadElement[uint16](r)
	if err != nil {
		return false, err
	}
	limit := m.blockLimit()
	start := limit + m.streamed
	for i := 0; i < int(n); i++ {
		if c := m.Common_; c.DoublePrecision() {
			m.Items[start+i], err = wire.ReadAttributes[float64](r)
		} else {
			var narrowAttrs wire.Attributes[float32]
			narrowAttrs, err = wire.ReadAttributes[float32](r)
			m.Items[start+i] = widen(narrowAttrs)
		}
		if err != nil {
			return false, err
		}
	}
	m.streamed += int(n)
	return flags&DFEnd != 0, nil
}
