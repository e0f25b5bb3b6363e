package source

import (
	"errors"
	"io"
	"time"

	"github.com/tesceneio/tes/internal/logging"
	"github.com/tesceneio/tes/stream"
	"github.com/tesceneio/tes/wire"
)

// FileSettings configures a File source.
type FileSettings struct {
	Keyframes    stream.Settings
	PauseOnError bool
	Looping      bool
	Speed        float64
}

// DefaultFileSettings matches a typical interactive-review setup: real
// time pacing, no auto-loop, pause if a handler chokes on bad data.
var DefaultFileSettings = FileSettings{
	Keyframes:    stream.DefaultSettings,
	PauseOnError: true,
	Looping:      false,
	Speed:        1.0,
}

// File replays a seekable recording, pacing frame-control packets in
// real time unless a target frame or catch-up state says otherwise
// (spec.md §4.8 "File replay").
type File struct {
	*control
	reader *stream.Reader
	sink   Sink
	lg     logging.Logger

	info ServerClock
}

// ServerClock is the timing basis extracted from a recording's leading
// ServerInfo packet: TimeUnit is microseconds per tick, DefaultDt is the
// fallback per-frame tick count when a Frame message carries dt == 0.
type ServerClock struct {
	TimeUnit  time.Duration
	DefaultDt uint32
}

// NewFile creates a File source over src and starts its reader loop in a
// new goroutine. Call Join to wait for it to exit after Stop, or for
// natural end-of-stream with looping disabled.
func NewFile(src io.ReadSeeker, sink Sink, settings FileSettings) *File {
	f := &File{
		control: newControl(),
		reader:  stream.NewReader(src, settings.Keyframes),
		sink:    sink,
		lg:      logging.Default(),
	}
	f.looping.Store(settings.Looping)
	f.SetPlaybackSpeed(settings.Speed)
	go f.run(settings.PauseOnError)
	return f
}

func (f *File) IsLiveStream() bool { return false }

// run is spec.md §4.8's file-replay main loop.
func (f *File) run(pauseOnError bool) {
	defer f.finish()

	nextFrameStart := time.Now()
	catchingUp := false

	for {
		if f.stopping() {
			return
		}
		f.waitWhilePaused()
		if f.stopping() {
			return
		}

		if target, ok := f.TargetFrame(); ok {
			current := f.CurrentFrame()
			switch {
			case target < current:
				f.sink.Reset()
				f.currentFrame.Store(0)
				offset, frame, found := f.reader.NearestKeyframeBefore(target)
				if !found {
					offset, frame = 0, 0
				}
				if err := f.reader.Seek(offset); err != nil {
					f.lg.Errorf("source: seek to keyframe failed: %v", err)
				}
				f.currentFrame.Store(frame)
				catchingUp = true
			case target > current:
				catchingUp = true
			default:
				f.clearTarget()
				catchingUp = false
				nextFrameStart = time.Now()
			}
		} else if !catchingUp {
			if d := time.Until(nextFrameStart); d > 0 {
				f.sleepInterruptible(d)
				continue
			}
		}

		pkt, err := f.reader.NextPacket()
		if errors.Is(err, io.EOF) {
			if f.Looping() {
				f.SetTargetFrame(0)
				continue
			}
			return
		}
		if err != nil {
			f.lg.Errorf("source: stream error: %v", err)
			if pauseOnError {
				f.SetPaused(true)
			}
			continue
		}

		if pkt.RoutingID == wire.RServerInfo {
			if info, ierr := wire.ReadServerInfo(pkt); ierr == nil {
				f.info = ServerClock{
					TimeUnit:  time.Duration(info.TimeUnit) * time.Microsecond,
					DefaultDt: info.DefaultFrameDt,
				}
			}
			pkt.Rewind()
		}

		if derr := f.sink.Handle(pkt); derr != nil {
			f.lg.Errorf("source: handler error: %v", derr)
			if pauseOnError {
				f.SetPaused(true)
			}
			continue
		}

		if pkt.RoutingID != wire.RControl {
			continue
		}

		switch pkt.MessageID {
		case wire.CMFrame, wire.CMForceFrameFlush:
			pkt.Rewind()
			dt := f.info.DefaultDt
			if pkt.MessageID == wire.CMFrame {
				if v, derr := wire.ReadElement[uint32](pkt); derr == nil && v != 0 {
					dt = v
				}
			}
			f.currentFrame.Add(1)
			if target, ok := f.TargetFrame(); ok && f.CurrentFrame() >= target {
				f.clearTarget()
				catchingUp = false
				nextFrameStart = time.Now()
			}
			if !catchingUp {
				nextFrameStart = nextFrameStart.Add(scaledDelay(f.info.TimeUnit, dt, f.PlaybackSpeed()))
			}
		case wire.CMFrameCount:
			pkt.Rewind()
			if v, derr := wire.ReadElement[uint32](pkt); derr == nil {
				f.totalFrames.Store(v)
			}
		case wire.CMReset:
			pkt.Rewind()
			if v, derr := wire.ReadElement[uint32](pkt); derr == nil {
				f.currentFrame.Store(v)
			}
		}
	}
}

// scaledDelay computes server_time_unit * dt / playback_speed (spec.md
// §4.8 step 4), guarding against a zero/negative speed.
func scaledDelay(unit time.Duration, dt uint32, speed float64) time.Duration {
	if speed <= 0 {
		speed = 1
	}
	return time.Duration(float64(unit) * float64(dt) / speed)
}

// sleepInterruptibleTick bounds how long sleepInterruptible can go
// between checking for a control change, so a seek/stop/pause issued
// mid-wait takes effect promptly instead of after the full delay.
const sleepInterruptibleTick = 20 * time.Millisecond

// sleepInterruptible sleeps for up to d, waking early if a target frame
// is set or the source is stopped.
func (f *File) sleepInterruptible(d time.Duration) {
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 || f.stopping() {
			return
		}
		if _, ok := f.TargetFrame(); ok {
			return
		}
		tick := sleepInterruptibleTick
		if remaining < tick {
			tick = remaining
		}
		time.Sleep(tick)
	}
}
