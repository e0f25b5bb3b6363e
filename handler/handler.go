// Package handler implements the handler registry and scene coordinator
// of spec.md §4.9: a routing-ID → Handler map invoked in a fixed
// dependency order, a reader-thread-facing Handle/Reset pair that
// satisfies the source package's Sink interface, and a render-thread
// BeginFrame/Draw/EndFrame triple that owns the coordinator's single
// mutex (spec.md §5 "handlers bridge the two [threads] with internal
// locks").
//
// The concrete GPU renderer is out of scope (spec.md §1); Draw and
// DrawParams exist only as the interface a renderer would consume.
package handler

import (
	"sort"
	"sync"

	"github.com/tesceneio/tes/bounds"
	"github.com/tesceneio/tes/internal/logging"
	"github.com/tesceneio/tes/linear"
	"github.com/tesceneio/tes/wire"
)

// Pass separates draw calls the way a real-time renderer would batch
// them (spec.md §4.9 "passes allow opaque/transparent/overlay
// separation").
type Pass uint8

const (
	PassOpaque Pass = iota
	PassTransparent
	PassOverlay
)

// Stamp disambiguates logical time from render time (GLOSSARY "Frame
// stamp"): Frame is the coordinator's current frame number, Mark is the
// monotonic render-side tag the culler stamps visible bounds with.
type Stamp struct {
	Frame uint32
	Mark  uint64
}

// DrawParams carries per-pass rendering inputs. A real renderer would
// extend this with pipeline/material state; the core only threads the
// view-projection matrix and frustum through to handlers so bounds
// culling is exercised without a GPU backend.
type DrawParams struct {
	ViewProj linear.M4
	Frustum  *bounds.Frustum
}

// PacketSink receives one framed packet at a time, used by Serialise to
// re-emit handler state during keyframe capture without requiring every
// handler to share a single in-progress wire.Writer.
type PacketSink func(pkt []byte) error

// Handler is implemented by every routing-ID family the coordinator
// dispatches to (spec.md §4.9).
type Handler interface {
	// Initialise is called once, when the handler is registered.
	Initialise()
	// Reset clears all handler state, called on the render thread when
	// the coordinator processes a pending reset.
	Reset()
	// BeginFrame and EndFrame bracket a render-thread frame.
	BeginFrame(stamp Stamp)
	EndFrame(stamp Stamp)
	// ReadMessage is called from the reader thread for every packet
	// routed to this handler; implementations must be internally
	// synchronised against concurrent BeginFrame/Draw/EndFrame calls.
	ReadMessage(pkt *wire.Reader) error
	// Draw is called once per pass, on the render thread, between
	// BeginFrame and EndFrame.
	Draw(pass Pass, stamp Stamp, params DrawParams)
	// Serialise emits whatever packets would reconstruct this handler's
	// current state, for keyframe capture (spec.md §4.9).
	Serialise(emit PacketSink, info wire.ServerInfo) error
}

// Coordinator owns the routing-ID → handler map, the server-info
// record, the culler, and the pending frame-advance/reset state spec.md
// §4.9 assigns it. A single mutex plus condition variable guards all of
// it, mirroring source.control's pause/wake design: reader-thread calls
// (Handle, Reset) publish intent under the lock and, for Reset, block on
// the condition variable until the render thread (BeginFrame) observes
// and applies it.
type Coordinator struct {
	mu   sync.Mutex
	cond *sync.Cond

	handlers map[wire.RoutingID]Handler
	deps     map[wire.RoutingID][]wire.RoutingID
	order    []wire.RoutingID

	culler *bounds.Culler

	info        wire.ServerInfo
	pendingInfo *wire.ServerInfo

	currentFrame     uint32
	pendingFrame     uint32
	havePendingFrame bool
	totalFrames      uint32
	mark             uint64

	resetPending   bool
	resetHasTarget bool
	resetTarget    uint32

	warnUnknown *logging.OnceWarner
}

// NewCoordinator creates an empty coordinator. culler may be nil, in
// which case BeginFrame skips visibility culling.
func NewCoordinator(culler *bounds.Culler) *Coordinator {
	c := &Coordinator{
		handlers:    make(map[wire.RoutingID]Handler),
		deps:        make(map[wire.RoutingID][]wire.RoutingID),
		culler:      culler,
		warnUnknown: logging.NewOnceWarner(logging.Default()),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// WithLogger overrides the coordinator's diagnostic logger.
func (c *Coordinator) WithLogger(lg logging.Logger) *Coordinator {
	c.warnUnknown = logging.NewOnceWarner(lg)
	return c
}

// Register adds a handler for routingID, initialising it immediately,
// and recomputes the dependency-ordered begin_frame/draw/end_frame
// sequence. dependsOn names routing IDs whose handler must run first
// (spec.md §4.9 "mesh resources before mesh-set, etc."). Register must
// be called before the coordinator starts processing packets; it is not
// safe to call concurrently with Handle/BeginFrame/Draw/EndFrame.
func (c *Coordinator) Register(routingID wire.RoutingID, h Handler, dependsOn ...wire.RoutingID) {
	c.mu.Lock()
	c.handlers[routingID] = h
	c.deps[routingID] = dependsOn
	c.order = topoSort(c.deps)
	c.mu.Unlock()
	h.Initialise()
}

// topoSort returns the routing IDs of deps in dependency order,
// breaking ties by numeric routing ID for determinism. It panics on a
// circular dependency, a programmer error in Register calls rather than
// a condition that can arise from wire input.
func topoSort(deps map[wire.RoutingID][]wire.RoutingID) []wire.RoutingID {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[wire.RoutingID]int, len(deps))
	order := make([]wire.RoutingID, 0, len(deps))

	var visit func(id wire.RoutingID)
	visit = func(id wire.RoutingID) {
		switch state[id] {
		case done:
			return
		case visiting:
			panic("handler: circular dependency in Register calls")
		}
		state[id] = visiting
		for _, dep := range deps[id] {
			visit(dep)
		}
		state[id] = done
		order = append(order, id)
	}

	ids := make([]wire.RoutingID, 0, len(deps))
	for id := range deps {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		visit(id)
	}
	return order
}

// orderedHandlers snapshots the dependency order and handler map under
// the lock, so render-thread loops can run without holding it.
func (c *Coordinator) orderedHandlers() ([]wire.RoutingID, map[wire.RoutingID]Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	order := append([]wire.RoutingID(nil), c.order...)
	return order, c.handlers
}

// Handle implements source.Sink: it is called from the reader thread
// for every decoded packet. Frame-control sub-messages are interpreted
// by the coordinator itself rather than forwarded to a handler (spec.md
// §4.9); everything else is routed by RoutingID.
func (c *Coordinator) Handle(pkt *wire.Reader) error {
	if pkt.RoutingID == wire.RControl {
		return c.handleControl(pkt)
	}
	c.mu.Lock()
	h, ok := c.handlers[pkt.RoutingID]
	c.mu.Unlock()
	if !ok {
		c.warnUnknown.Warn(uint16(pkt.RoutingID), "handler: no handler registered for routing id %d", pkt.RoutingID)
		return nil
	}
	return h.ReadMessage(pkt)
}

func (c *Coordinator) handleControl(pkt *wire.Reader) error {
	switch pkt.MessageID {
	case wire.CMFrame, wire.CMForceFrameFlush:
		c.advancePending()
	case wire.CMCoordinateFrame:
		pkt.Rewind()
		v, err := wire.ReadElement[uint8](pkt)
		if err != nil {
			return err
		}
		c.mu.Lock()
		info := c.info
		info.Coordinates = wire.CoordinateFrame(v)
		c.pendingInfo = &info
		c.mu.Unlock()
	case wire.CMFrameCount:
		pkt.Rewind()
		v, err := wire.ReadElement[uint32](pkt)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.totalFrames = v
		c.mu.Unlock()
	case wire.CMReset:
		pkt.Rewind()
		v, err := wire.ReadElement[uint32](pkt)
		if err != nil {
			return err
		}
		c.requestReset(v, true)
	case wire.CMKeyframe, wire.CMEnd:
		// No-op for the coordinator in both live and file mode: the
		// stream reader already records the keyframe index itself
		// (spec.md §4.9 "index recorded in file mode").
	}
	return nil
}

func (c *Coordinator) advancePending() {
	c.mu.Lock()
	if c.havePendingFrame {
		c.pendingFrame++
	} else {
		c.pendingFrame = c.currentFrame + 1
		c.havePendingFrame = true
	}
	c.mu.Unlock()
}

// Reset implements source.Sink: it is called from the reader thread
// when a backward seek requires handler state to be cleared before
// replay resumes from an earlier point. It blocks until the render
// thread's next BeginFrame call has applied the reset (spec.md §5
// "reader threads requesting reset from another thread block on a
// condition variable until the main thread completes the reset").
func (c *Coordinator) Reset() {
	c.requestReset(0, false)
}

func (c *Coordinator) requestReset(target uint32, hasTarget bool) {
	c.mu.Lock()
	c.resetPending = true
	c.resetHasTarget = hasTarget
	c.resetTarget = target
	c.cond.Broadcast()
	for c.resetPending {
		c.cond.Wait()
	}
	c.mu.Unlock()
}

// BeginFrame runs the render-thread side of spec.md §4.9's numbered
// steps: publish any pending frame number and server-info update and
// apply a pending reset under the render mutex, increment the render
// mark and cull bounds against frustum, then invoke begin_frame on
// every handler in dependency order. frustum may be nil to skip
// culling (e.g. a recorder that never draws).
func (c *Coordinator) BeginFrame(frustum *bounds.Frustum) Stamp {
	c.mu.Lock()
	if c.resetPending {
		for _, id := range c.order {
			c.handlers[id].Reset()
		}
		if c.resetHasTarget {
			c.currentFrame = c.resetTarget
		}
		c.havePendingFrame = false
		c.resetPending = false
		c.cond.Broadcast()
	}
	if c.pendingInfo != nil {
		c.info = *c.pendingInfo
		c.pendingInfo = nil
	}
	if c.havePendingFrame {
		c.currentFrame = c.pendingFrame
		c.havePendingFrame = false
	}
	frame := c.currentFrame
	order := append([]wire.RoutingID(nil), c.order...)
	handlers := c.handlers
	c.mu.Unlock()

	c.mark++
	if frustum != nil && c.culler != nil {
		c.culler.Cull(c.mark, frustum)
	}

	stamp := Stamp{Frame: frame, Mark: c.mark}
	for _, id := range order {
		handlers[id].BeginFrame(stamp)
	}
	return stamp
}

// Draw invokes Draw(pass, stamp, params) on every handler in dependency
// order. Call once per pass between BeginFrame and EndFrame.
func (c *Coordinator) Draw(pass Pass, stamp Stamp, params DrawParams) {
	order, handlers := c.orderedHandlers()
	for _, id := range order {
		handlers[id].Draw(pass, stamp, params)
	}
}

// EndFrame invokes EndFrame(stamp) on every handler in dependency
// order, closing out the frame BeginFrame opened.
func (c *Coordinator) EndFrame(stamp Stamp) {
	order, handlers := c.orderedHandlers()
	for _, id := range order {
		handlers[id].EndFrame(stamp)
	}
}

// Serialise asks every handler, in dependency order, to emit the
// packets that would reconstruct its current state, for keyframe
// capture (spec.md §4.9).
func (c *Coordinator) Serialise(emit PacketSink) error {
	order, handlers := c.orderedHandlers()
	c.mu.Lock()
	info := c.info
	c.mu.Unlock()
	for _, id := range order {
		if err := handlers[id].Serialise(emit, info); err != nil {
			return err
		}
	}
	return nil
}

// CurrentFrame, TotalFrames and ServerInfo report the coordinator's
// published state as of the most recent BeginFrame.
func (c *Coordinator) CurrentFrame() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentFrame
}

func (c *Coordinator) TotalFrames() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalFrames
}

func (c *Coordinator) ServerInfo() wire.ServerInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}
