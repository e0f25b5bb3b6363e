// Package source implements the data-source thread (spec.md §4.8): a
// file-replay implementation that paces packets in real time against a
// seekable recording, and a live-network implementation that ingests a
// TCP stream as fast as it arrives, reconnecting on failure. Both share
// one control surface (current/total/target frame, paused, looping,
// playback speed, stop/join) safe to call from any thread.
package source

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"

	"github.com/tesceneio/tes/wire"
)

// ErrNotLiveControl names a control call (seek, pause, loop, playback
// speed) that has no effect on a live stream. No method in this package
// returns it: Live's control setters have no return value and ignore
// such calls.
var ErrNotLiveControl = errors.New("source: control is a no-op on a live stream")

// Sink receives packets and reset notifications from a data-source
// thread. Handle is called for every decoded packet, including
// frame-control ones — the scene coordinator (spec.md §4.9) recognises
// RControl itself rather than the source pre-filtering it out. Reset is
// called when the source rewinds past a target frame and must clear
// handler state before replaying from an earlier point.
type Sink interface {
	Handle(pkt *wire.Reader) error
	Reset()
}

// Control is the contract both File and Live implementations satisfy
// (spec.md §4.8, last paragraph).
type Control interface {
	CurrentFrame() uint32
	TotalFrames() uint32
	TargetFrame() (frame uint32, set bool)
	SetTargetFrame(frame uint32)
	Paused() bool
	SetPaused(paused bool)
	Looping() bool
	SetLooping(looping bool)
	PlaybackSpeed() float64
	SetPlaybackSpeed(speed float64)
	IsLiveStream() bool
	Stop()
	Join()
}

// control is the shared atomic state both File and Live embed.
type control struct {
	currentFrame atomic.Uint32
	totalFrames  atomic.Uint32
	targetSet    atomic.Bool
	targetFrame  atomic.Uint32
	paused       atomic.Bool
	looping      atomic.Bool
	speedBits    atomic.Uint64
	stopped      atomic.Bool

	mu        sync.Mutex
	pauseCond *sync.Cond
	done      chan struct{}
}

func newControl() *control {
	c := &control{done: make(chan struct{})}
	c.pauseCond = sync.NewCond(&c.mu)
	c.speedBits.Store(math.Float64bits(1.0))
	return c
}

func (c *control) CurrentFrame() uint32 { return c.currentFrame.Load() }
func (c *control) TotalFrames() uint32  { return c.totalFrames.Load() }

func (c *control) TargetFrame() (uint32, bool) {
	if !c.targetSet.Load() {
		return 0, false
	}
	return c.targetFrame.Load(), true
}

func (c *control) SetTargetFrame(frame uint32) {
	c.targetFrame.Store(frame)
	c.targetSet.Store(true)
	c.wake()
}

func (c *control) clearTarget() { c.targetSet.Store(false) }

func (c *control) Paused() bool { return c.paused.Load() }

func (c *control) SetPaused(paused bool) {
	c.paused.Store(paused)
	c.wake()
}

func (c *control) Looping() bool { return c.looping.Load() }
func (c *control) SetLooping(looping bool) { c.looping.Store(looping) }

func (c *control) PlaybackSpeed() float64 { return math.Float64frombits(c.speedBits.Load()) }

func (c *control) SetPlaybackSpeed(speed float64) {
	if speed <= 0 {
		return
	}
	c.speedBits.Store(math.Float64bits(speed))
}

func (c *control) Stop() {
	c.stopped.Store(true)
	c.wake()
}

func (c *control) stopping() bool { return c.stopped.Load() }

func (c *control) Join() { <-c.done }

func (c *control) finish() { close(c.done) }

// wake signals the pause condition variable, used both by external
// control calls (SetPaused, SetTargetFrame, Stop) and is itself a
// suspension point for the reader thread (spec.md §5).
func (c *control) wake() {
	c.mu.Lock()
	c.pauseCond.Broadcast()
	c.mu.Unlock()
}

// waitWhilePaused blocks the calling (reader) goroutine while paused and
// no seek target is pending, per spec.md §4.8 step 1.
func (c *control) waitWhilePaused() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.paused.Load() && !c.targetSet.Load() && !c.stopped.Load() {
		c.pauseCond.Wait()
	}
}
