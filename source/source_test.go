package source

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/tesceneio/tes/wire"
)

type fakeSeeker struct {
	data []byte
	pos  int64
}

func (f *fakeSeeker) Read(p []byte) (int, error) {
	if f.pos >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[f.pos:])
	f.pos += int64(n)
	return n, nil
}

func (f *fakeSeeker) Seek(offset int64, whence int) (int64, error) {
	f.pos = offset
	return f.pos, nil
}

type recordingSink struct {
	mu      sync.Mutex
	handled []wire.RoutingID
	resets  int
}

func (s *recordingSink) Handle(pkt *wire.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handled = append(s.handled, pkt.RoutingID)
	return nil
}

func (s *recordingSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handled)
}

func frameMsg(t *testing.T, dt uint32) []byte {
	t.Helper()
	w := wire.NewWriter(wire.RControl, wire.CMFrame)
	if err := wire.WriteElement(w, dt); err != nil {
		t.Fatal(err)
	}
	b, err := w.Finish()
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func serverInfoMsg(t *testing.T, timeUnitMicros uint64) []byte {
	t.Helper()
	w := wire.NewWriter(wire.RServerInfo, wire.MIDNull)
	info := wire.ServerInfo{TimeUnit: timeUnitMicros, DefaultFrameDt: 16}
	if err := info.Write(w); err != nil {
		t.Fatal(err)
	}
	b, err := w.Finish()
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestFileReplayAdvancesAndStops(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(serverInfoMsg(t, 1000)) // TimeUnit=1000us => 1ms per frame at dt=1
	for i := 0; i < 5; i++ {
		buf.Write(frameMsg(t, 1))
	}

	sink := &recordingSink{}
	f := NewFile(&fakeSeeker{data: buf.Bytes()}, sink, FileSettings{Speed: 1.0})

	deadline := time.Now().Add(2 * time.Second)
	for sink.count() < 6 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	f.Stop()
	f.Join()

	if sink.count() < 6 {
		t.Fatalf("handled %d packets, want at least 6", sink.count())
	}
	if f.CurrentFrame() != 5 {
		t.Fatalf("current frame = %d, want 5", f.CurrentFrame())
	}
}

func TestFilePauseBlocksAdvance(t *testing.T) {
	// No ServerInfo packet, so pacing delay is zero and frames would
	// otherwise race through near-instantly; the test asserts that once
	// paused is observed in effect, no further frame advances, rather
	// than assuming a particular frame number at the moment of pausing.
	var buf bytes.Buffer
	for i := 0; i < 50; i++ {
		buf.Write(frameMsg(t, 1))
	}
	sink := &recordingSink{}
	f := NewFile(&fakeSeeker{data: buf.Bytes()}, sink, FileSettings{Speed: 1.0})

	for sink.count() < 1 {
		time.Sleep(time.Millisecond)
	}
	f.SetPaused(true)
	time.Sleep(20 * time.Millisecond)
	frameAtPause := f.CurrentFrame()
	time.Sleep(30 * time.Millisecond)
	if f.CurrentFrame() != frameAtPause {
		t.Fatalf("current frame advanced while paused: %d -> %d", frameAtPause, f.CurrentFrame())
	}
	f.Stop()
	f.Join()
}

func TestFileLoopingRestartsAtEnd(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(frameMsg(t, 1))
	sink := &recordingSink{}
	f := NewFile(&fakeSeeker{data: buf.Bytes()}, sink, FileSettings{Speed: 1.0, Looping: true})

	deadline := time.Now().Add(500 * time.Millisecond)
	for sink.count() < 4 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	f.Stop()
	f.Join()
	if sink.count() < 4 {
		t.Fatalf("handled %d packets across loops, want at least 4", sink.count())
	}
}

func TestControlSpeedRejectsNonPositive(t *testing.T) {
	c := newControl()
	c.SetPlaybackSpeed(1.0)
	c.SetPlaybackSpeed(-1.0)
	if c.PlaybackSpeed() != 1.0 {
		t.Fatalf("speed = %v, want 1.0 (non-positive values rejected)", c.PlaybackSpeed())
	}
}

func TestLiveControlsAreNoOps(t *testing.T) {
	sink := &recordingSink{}
	l := NewLive("127.0.0.1:0", sink, LiveSettings{Reconnect: false, DialTimeout: 10 * time.Millisecond})
	if !l.IsLiveStream() {
		t.Fatal("expected IsLiveStream() == true")
	}
	l.SetPaused(true)
	if l.Paused() {
		t.Fatal("pause should be a no-op on a live stream")
	}
	l.Stop()
	l.Join()
}
