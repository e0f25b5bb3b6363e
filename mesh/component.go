package mesh

import "github.com/tesceneio/tes/buffer"

// ComponentKind identifies which of a mesh's optional streams a
// Component message targets (spec.md §4.6).
type ComponentKind uint8

const (
	Vertex ComponentKind = iota
	Normal
	UV
	Colour
	Index
)

type componentRule struct {
	allowed    []buffer.ElementType
	components int
}

// rules is the per-kind element-type table spec.md §4.6 specifies.
var rules = map[ComponentKind]componentRule{
	Vertex: {allowed: []buffer.ElementType{buffer.F32, buffer.F64, buffer.PackedF16, buffer.PackedF32}, components: 3},
	Normal: {allowed: []buffer.ElementType{buffer.F32, buffer.F64, buffer.PackedF16, buffer.PackedF32}, components: 3},
	UV:     {allowed: []buffer.ElementType{buffer.F32, buffer.PackedF16}, components: 2},
	Colour: {allowed: []buffer.ElementType{buffer.U32}, components: 1},
	Index:  {allowed: []buffer.ElementType{buffer.I8, buffer.U8, buffer.I16, buffer.U16, buffer.I32, buffer.U32}, components: 1},
}

func (r componentRule) permits(t buffer.ElementType) bool {
	for _, a := range r.allowed {
		if a == t {
			return true
		}
	}
	return false
}
