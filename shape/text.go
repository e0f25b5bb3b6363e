package shape

import (
	"fmt"

	"github.com/tesceneio/tes/mesh"
	"github.com/tesceneio/tes/wire"
)

// Text is shared by Text2D and Text3D: both are complex shapes whose
// Create carries only the common record, with the UTF-8 payload
// following in a single Data message (spec.md §4.5). Text2D's position
// is screen-space unless SFTextWorldSpace is set; Text3D supports
// SFTextScreenFacing and uses Attrs.Scale.z as its font size.
type Text struct {
	Common_ CommonRecord
	Body    string
}

func NewText2D(id uint32, body string) *Text {
	return &Text{Common_: CommonRecord{RoutingID: wire.RText2D, ID: id, Attrs: wire.Identity[float64]()}, Body: body}
}

func NewText3D(id uint32, body string) *Text {
	return &Text{Common_: CommonRecord{RoutingID: wire.RText3D, ID: id, Attrs: wire.Identity[float64]()}, Body: body}
}

func (t *Text) Common() *CommonRecord { return &t.Common_ }
func (t *Text) IsComplex() bool       { return true }

func (t *Text) WriteCreate(w *wire.Writer) error { return t.Common_.writeCreate(w) }

// WriteData emits the whole text payload in a single step: *progress is
// 0 before anything has been sent and 1 once it has, so a caller that
// calls WriteData again after Done gets Done without re-emitting.
func (t *Text) WriteData(w *wire.Writer, progress *int) (DataStatus, error) {
	if *progress != 0 {
		return DataDone, nil
	}
	body := []byte(t.Body)
	if len(body) > 0xFFFF {
		return DataError, fmt.Errorf("%w: text payload too long", wire.ErrMalformed)
	}
	if err := wire.WriteElement(w, uint16(len(body))); err != nil {
		return DataError, err
	}
	if err := w.WriteBytes(body); err != nil {
		return DataError, err
	}
	*progress = 1
	return DataDone, nil
}

func (t *Text) WriteDestroy(w *wire.Writer) error { return t.Common_.writeDestroy(w) }

func (t *Text) EnumerateResources() []mesh.Handle { return nil }

// ReadTextCreate decodes a Text2D/Text3D Create payload.
func ReadTextCreate(r *wire.Reader, routingID wire.RoutingID) (*Text, error) {
	c, err := readCommonCreate(r, routingID)
	if err != nil {
		return nil, err
	}
	return &Text{Common_: c}, nil
}

// ReadData decodes the length-prefixed UTF-8 payload into t.Body.
func (t *Text) ReadData(r *wire.Reader) error {
	n, err := wire.ReadElement[uint16](r)
	if err != nil {
		return err
	}
	b, err := r.ReadBytes(int(n))
	if err != nil {
		return err
	}
	t.Body = string(b)
	return nil
}

// ScreenFacing reports whether a Text3D instance should always face the
// camera.
func (t *Text) ScreenFacing() bool { return t.Common_.Flags&wire.SFTextScreenFacing != 0 }

// WorldSpace reports whether a Text2D instance is anchored in world
// space rather than screen space.
func (t *Text) WorldSpace() bool { return t.Common_.Flags&wire.SFTextWorldSpace != 0 }

// FontSize returns a Text3D instance's font size, carried in Attrs.Scale.z.
func (t *Text) FontSize() float64 { return t.Common_.Attrs.Scale[2] }
