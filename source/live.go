package source

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/tesceneio/tes/internal/logging"
	"github.com/tesceneio/tes/wire"
)

// LiveSettings configures a Live source.
type LiveSettings struct {
	Reconnect      bool
	ReconnectEvery time.Duration
	DialTimeout    time.Duration
}

// DefaultLiveSettings reconnects every five seconds, matching the
// teacher's own retry-loop cadence for transient device connections.
var DefaultLiveSettings = LiveSettings{
	Reconnect:      true,
	ReconnectEvery: 5 * time.Second,
	DialTimeout:    3 * time.Second,
}

// Live ingests a TCP stream as fast as it arrives, with no seek/pause/
// loop/speed controls (spec.md §4.8 "Live network"): those calls are
// accepted but have no effect, and IsLiveStream reports true so a caller
// knows not to expect them to take hold.
type Live struct {
	*control
	addr     string
	sink     Sink
	settings LiveSettings
	lg       logging.Logger
}

// NewLive creates a Live source connecting to addr (host:port) and
// starts its reader loop in a new goroutine.
func NewLive(addr string, sink Sink, settings LiveSettings) *Live {
	l := &Live{
		control:  newControl(),
		addr:     addr,
		sink:     sink,
		settings: settings,
		lg:       logging.Default(),
	}
	go l.run()
	return l
}

func (l *Live) IsLiveStream() bool { return true }

// The following controls are no-ops on a live stream; spec.md §4.8
// requires them to be accepted silently rather than rejected.
func (l *Live) SetTargetFrame(uint32)       {}
func (l *Live) SetPaused(bool)              {}
func (l *Live) SetLooping(bool)             {}
func (l *Live) SetPlaybackSpeed(float64)    {}
func (l *Live) TargetFrame() (uint32, bool) { return 0, false }
func (l *Live) Paused() bool                { return false }
func (l *Live) Looping() bool               { return false }
func (l *Live) PlaybackSpeed() float64      { return 1.0 }

func (l *Live) run() {
	defer l.finish()

	for !l.stopping() {
		conn, err := l.connect()
		if err != nil {
			if !l.settings.Reconnect || l.stopping() {
				return
			}
			time.Sleep(l.settings.ReconnectEvery)
			continue
		}
		l.drain(conn)
		conn.Close()
		if !l.settings.Reconnect || l.stopping() {
			return
		}
		time.Sleep(l.settings.ReconnectEvery)
	}
}

// connect dials addr, tagging the attempt with a diagnostic UUID so a
// run of reconnect failures can be correlated in logs (spec.md §4.8
// live-network reconnection).
func (l *Live) connect() (net.Conn, error) {
	attempt := uuid.NewString()
	ctx, cancel := context.WithTimeout(context.Background(), l.settings.DialTimeout)
	defer cancel()
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", l.addr)
	if err != nil {
		l.lg.Warnf("source: live connect attempt %s to %s failed: %v", attempt, l.addr, err)
		return nil, err
	}
	l.lg.Infof("source: live connect attempt %s to %s established", attempt, l.addr)
	return conn, nil
}

// drain reads from conn until it closes or the source is stopped,
// pushing bytes through a reassembler and routing every decoded packet
// to the sink, tracking current/total frame as Frame/Reset messages are
// observed.
func (l *Live) drain(conn net.Conn) {
	reasm := wire.NewReassembler().WithLogger(l.lg)
	buf := make([]byte, 64*1024)
	for {
		if l.stopping() {
			return
		}
		pkt, err := reasm.Next()
		if errors.Is(err, wire.ErrNeedMore) {
			conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
			n, rerr := conn.Read(buf)
			if n > 0 {
				reasm.Push(buf[:n])
			}
			if rerr != nil {
				var ne net.Error
				if errors.As(rerr, &ne) && ne.Timeout() {
					continue
				}
				if errors.Is(rerr, io.EOF) {
					return
				}
				l.lg.Errorf("source: live read error: %v", rerr)
				return
			}
			continue
		}
		if err != nil {
			l.lg.Errorf("source: live reassembly error: %v", err)
			continue
		}

		dec, derr := wire.NewReader(pkt)
		if derr != nil {
			l.lg.Errorf("source: live decode error: %v", derr)
			continue
		}
		if herr := l.sink.Handle(dec); herr != nil {
			l.lg.Errorf("source: live handler error: %v", herr)
			continue
		}
		if dec.RoutingID != wire.RControl {
			continue
		}
		switch dec.MessageID {
		case wire.CMFrame, wire.CMForceFrameFlush:
			next := l.currentFrame.Add(1)
			for {
				total := l.totalFrames.Load()
				if next <= total || l.totalFrames.CompareAndSwap(total, next) {
					break
				}
			}
		case wire.CMReset:
			dec.Rewind()
			if v, rerr := wire.ReadElement[uint32](dec); rerr == nil {
				l.currentFrame.Store(v)
			}
		}
	}
}
