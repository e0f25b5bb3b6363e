package mesh

import (
	"errors"
	"fmt"

	"github.com/tesceneio/tes/wire"
)

// All of these wrap wire.ErrMalformed: a mesh protocol violation is, from
// the handler registry's point of view, just another malformed packet to
// log and discard (spec.md §7).
var (
	ErrBadTransition = fmt.Errorf("%w: invalid mesh resource state transition", wire.ErrMalformed)
	ErrComponentType = fmt.Errorf("%w: component element type or count mismatch", wire.ErrMalformed)
	ErrOutOfRange    = fmt.Errorf("%w: component slice exceeds declared vertex/index count", wire.ErrMalformed)
	ErrUnknownMesh   = fmt.Errorf("%w: unknown mesh id", wire.ErrMalformed)

	// ErrNotReady is a plain, unexported-error-free sentinel (not a wire
	// fault) for local callers that try to draw or enumerate a mesh not
	// yet finalised.
	ErrNotReady = errors.New("mesh: resource not ready for drawing")
)
