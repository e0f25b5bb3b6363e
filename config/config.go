// Package config loads the viewer/reader-facing settings that tune
// playback and recording behaviour without touching the wire protocol
// itself: keyframe insertion thresholds (spec.md §4.7), default playback
// speed and pause-on-error (spec.md §4.8), live reconnect interval
// (spec.md §4.8), and the collation payload budget (spec.md §4.3).
//
// Settings are expressed in TOML, following the teacher's own
// config-struct-plus-toml.Unmarshal pattern
// (engine/assets/loaders/shader.go's tmpShaderConfig), and may be
// hot-reloaded from disk by a Watcher while a capture is being replayed.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Settings is the root TOML document.
type Settings struct {
	Keyframe  KeyframeSettings  `toml:"keyframe"`
	Playback  PlaybackSettings  `toml:"playback"`
	Live      LiveSettings      `toml:"live"`
	Collation CollationSettings `toml:"collation"`
}

// KeyframeSettings mirrors stream.Settings' insertion policy.
type KeyframeSettings struct {
	ByteThreshold  int64  `toml:"byte_threshold"`
	FrameThreshold uint32 `toml:"frame_threshold"`
	MinFrames      uint32 `toml:"min_frames"`
}

// PlaybackSettings mirrors source.FileSettings.
type PlaybackSettings struct {
	PauseOnError bool    `toml:"pause_on_error"`
	Looping      bool    `toml:"looping"`
	Speed        float64 `toml:"speed"`
}

// LiveSettings mirrors source.LiveSettings, with durations expressed in
// milliseconds on the wire since go-toml/v2 has no native duration type.
type LiveSettings struct {
	Reconnect        bool  `toml:"reconnect"`
	ReconnectEveryMs int64 `toml:"reconnect_every_ms"`
	DialTimeoutMs    int64 `toml:"dial_timeout_ms"`
}

// ReconnectEvery and DialTimeout convert the millisecond fields above to
// time.Duration for direct use as source.LiveSettings fields.
func (l LiveSettings) ReconnectEvery() time.Duration { return time.Duration(l.ReconnectEveryMs) * time.Millisecond }
func (l LiveSettings) DialTimeout() time.Duration    { return time.Duration(l.DialTimeoutMs) * time.Millisecond }

// CollationSettings mirrors wire.Encoder's auto-flush payload budget
// (spec.md §4.3).
type CollationSettings struct {
	Budget int `toml:"budget"`
}

// Default matches the conservative defaults already established in
// stream.DefaultSettings, source.DefaultFileSettings/DefaultLiveSettings
// and wire.DefaultCollationBudget, so a missing settings file behaves
// exactly like the hard-coded defaults those packages fall back to on
// their own.
var Default = Settings{
	Keyframe: KeyframeSettings{
		ByteThreshold:  1 << 20,
		FrameThreshold: 300,
		MinFrames:      30,
	},
	Playback: PlaybackSettings{
		PauseOnError: true,
		Looping:      false,
		Speed:        1.0,
	},
	Live: LiveSettings{
		Reconnect:        true,
		ReconnectEveryMs: 5000,
		DialTimeoutMs:    3000,
	},
	Collation: CollationSettings{
		Budget: 64 * 1024,
	},
}

// Load reads and decodes a Settings document from path, starting from
// Default so a partially-specified file only overrides the fields it
// names.
func Load(path string) (Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	s := Default
	if err := toml.Unmarshal(raw, &s); err != nil {
		return Settings{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return s, nil
}
