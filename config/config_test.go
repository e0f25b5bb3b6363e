package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadOverridesOnlyNamedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tes.toml")
	body := "[playback]\nspeed = 2.5\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Playback.Speed != 2.5 {
		t.Fatalf("speed = %v, want 2.5", s.Playback.Speed)
	}
	if s.Playback.PauseOnError != Default.Playback.PauseOnError {
		t.Fatalf("pause_on_error should fall back to default, got %v", s.Playback.PauseOnError)
	}
	if s.Keyframe != Default.Keyframe {
		t.Fatalf("keyframe settings should fall back to default entirely, got %+v", s.Keyframe)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected an error for a missing settings file")
	}
}

func TestLiveSettingsDurationConversion(t *testing.T) {
	l := LiveSettings{ReconnectEveryMs: 5000, DialTimeoutMs: 3000}
	if l.ReconnectEvery() != 5*time.Second {
		t.Fatalf("ReconnectEvery = %v, want 5s", l.ReconnectEvery())
	}
	if l.DialTimeout() != 3*time.Second {
		t.Fatalf("DialTimeout = %v, want 3s", l.DialTimeout())
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tes.toml")
	if err := os.WriteFile(path, []byte("[playback]\nspeed = 1.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if w.Current().Playback.Speed != 1.0 {
		t.Fatalf("initial speed = %v, want 1.0", w.Current().Playback.Speed)
	}

	if err := os.WriteFile(path, []byte("[playback]\nspeed = 4.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if w.Current().Playback.Speed == 4.0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("watcher did not observe reload within deadline, last speed = %v", w.Current().Playback.Speed)
}
