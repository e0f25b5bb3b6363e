// Package stream wraps a byte source with packet framing and a keyframe
// index (spec.md §4.7): NextPacket walks the underlying reassembler,
// Seek repositions the source and invalidates in-flight reassembly
// state, and Keyframes exposes the frame-number-to-byte-offset index
// built up by observing control messages as they are read.
package stream

import (
	"errors"
	"io"
	"sync"

	"github.com/tesceneio/tes/internal/logging"
	"github.com/tesceneio/tes/wire"
)

// Settings configures the keyframe insertion policy (spec.md §4.7).
type Settings struct {
	// ByteThreshold inserts a keyframe once this many bytes have been
	// read since the last one.
	ByteThreshold int64
	// FrameThreshold inserts a keyframe once this many frames have
	// elapsed since the last one.
	FrameThreshold uint32
	// MinFrames suppresses keyframe insertion until at least this many
	// frames have elapsed since the last keyframe, regardless of the
	// byte/frame thresholds above.
	MinFrames uint32
}

// DefaultSettings matches the teacher's own conservative defaults for
// similarly-shaped periodic-checkpoint policies (frequent enough to
// bound seek cost, sparse enough not to bloat a recording).
var DefaultSettings = Settings{
	ByteThreshold:  1 << 20,
	FrameThreshold: 300,
	MinFrames:      30,
}

const readChunkSize = 64 * 1024

// Reader turns a seekable byte source into a sequence of validated
// packets plus a keyframe index, safe for concurrent NextPacket/Seek
// calls from different goroutines (Seek from a control thread while
// NextPacket runs on the reader thread, per spec.md §5).
type Reader struct {
	mu       sync.Mutex
	src      io.ReadSeeker
	reasm    *wire.Reassembler
	settings Settings
	lg       logging.Logger

	readOffset int64 // total bytes ever pushed into the reassembler

	currentFrame     uint32
	bytesSinceKey    int64
	framesSinceKey   uint32
	framesSinceStart uint32
	keyframes        map[uint32]int64
}

// NewReader creates a Reader over src using the given keyframe policy.
func NewReader(src io.ReadSeeker, settings Settings) *Reader {
	return &Reader{
		src:       src,
		reasm:     wire.NewReassembler(),
		settings:  settings,
		lg:        logging.Default(),
		keyframes: map[uint32]int64{0: 0},
	}
}

// WithLogger overrides the logger used for reassembly diagnostics.
func (r *Reader) WithLogger(lg logging.Logger) *Reader {
	r.reasm = r.reasm.WithLogger(lg)
	r.lg = lg
	return r
}

// NextPacket returns the next complete packet, reading from the
// underlying source as needed. It returns io.EOF once the source is
// exhausted and no complete packet remains buffered.
func (r *Reader) NextPacket() (*wire.Reader, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		pkt, err := r.reasm.Next()
		if err == nil {
			offset := r.readOffset - int64(r.reasm.Pending()) - int64(len(pkt))
			dec, derr := wire.NewReader(pkt)
			if derr != nil {
				return nil, derr
			}
			r.observe(dec, offset)
			return dec, nil
		}
		if !errors.Is(err, wire.ErrNeedMore) {
			return nil, err
		}
		buf := make([]byte, readChunkSize)
		n, rerr := r.src.Read(buf)
		if n > 0 {
			r.reasm.Push(buf[:n])
			r.readOffset += int64(n)
		}
		if rerr != nil {
			if n == 0 {
				if errors.Is(rerr, io.EOF) {
					return nil, io.EOF
				}
				return nil, rerr
			}
		}
	}
}

// observe updates frame tracking and, when the keyframe policy's
// thresholds are crossed, records a new keyframe at the packet's start
// offset (spec.md §4.7).
func (r *Reader) observe(p *wire.Reader, offset int64) {
	r.bytesSinceKey += int64(p.Size())
	if p.RoutingID != wire.RControl {
		return
	}
	switch p.MessageID {
	case wire.CMFrame, wire.CMForceFrameFlush:
		r.currentFrame++
		r.framesSinceKey++
		r.framesSinceStart++
	case wire.CMReset:
		if v, err := wire.ReadElement[uint32](p); err == nil {
			r.currentFrame = v
		}
		r.framesSinceKey++
		r.framesSinceStart++
	case wire.CMKeyframe:
		r.addKeyframeLocked(r.currentFrame, offset)
		return
	default:
		return
	}
	if r.framesSinceKey < r.settings.MinFrames {
		return
	}
	crossedBytes := r.settings.ByteThreshold > 0 && r.bytesSinceKey >= r.settings.ByteThreshold
	crossedFrames := r.settings.FrameThreshold > 0 && r.framesSinceKey >= r.settings.FrameThreshold
	if crossedBytes || crossedFrames {
		r.addKeyframeLocked(r.currentFrame, offset)
	}
}

func (r *Reader) addKeyframeLocked(frame uint32, offset int64) {
	r.keyframes[frame] = offset
	r.bytesSinceKey = 0
	r.framesSinceKey = 0
}

// AddKeyframe records an externally-supplied keyframe (spec.md §4.7
// "implementations may also accept externally-supplied keyframe
// indices"), such as one parsed from a recording's sidecar index.
func (r *Reader) AddKeyframe(frame uint32, offset int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keyframes[frame] = offset
}

// Keyframes returns a snapshot of the frame-number-to-byte-offset index
// accumulated so far.
func (r *Reader) Keyframes() map[uint32]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uint32]int64, len(r.keyframes))
	for k, v := range r.keyframes {
		out[k] = v
	}
	return out
}

// NearestKeyframeBefore returns the byte offset of the latest recorded
// keyframe at or before frame, and whether one was found. File replay's
// backward-seek step uses this to avoid reprocessing from byte 0 (spec.md
// §4.8 "seek to nearest earlier keyframe (or 0)").
func (r *Reader) NearestKeyframeBefore(frame uint32) (offset int64, frameAt uint32, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	found := false
	for f, off := range r.keyframes {
		if f <= frame && (!found || f > frameAt) {
			frameAt, offset, found = f, off, true
		}
	}
	return offset, frameAt, found
}

// CurrentFrame returns the frame number derived from control messages
// observed so far.
func (r *Reader) CurrentFrame() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentFrame
}

// Seek repositions the underlying source and discards any buffered,
// not-yet-consumed reassembly state (spec.md §4.7: "invalidates
// in-flight reassembly state").
func (r *Reader) Seek(byteOffset int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.src.Seek(byteOffset, io.SeekStart); err != nil {
		return err
	}
	r.reasm.Reset()
	r.readOffset = byteOffset
	r.bytesSinceKey = 0
	return nil
}
