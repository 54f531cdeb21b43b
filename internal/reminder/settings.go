package reminder

import "time"

// UI surfaces that keep state in the dynamic settings document.
const (
	SurfaceSettingsDialog = "settings_dialog"
	SurfaceNotifyList     = "notify_list_dialog"
	SurfaceAddNotify      = "add_notify_dialog"
)

// Check interval bounds.
const (
	DefaultCheckInterval = 60 * time.Second
	MinCheckInterval     = 5 * time.Second
	MaxCheckInterval     = 3600 * time.Second
)

// WindowPos is a saved window geometry.
type WindowPos struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

// SurfaceSettings is the state kept for one UI surface.
type SurfaceSettings struct {
	WindowPos        *WindowPos `json:"window_pos,omitempty"`
	CheckIntervalSec int        `json:"reminder_check_interval_sec,omitempty"`
	Autostart        bool       `json:"autostart,omitempty"`
}

// Settings is the dynamic settings document, keyed by surface name.
type Settings map[string]SurfaceSettings

// DefaultSettings returns the settings written on first start.
func DefaultSettings() Settings {
	return Settings{
		SurfaceSettingsDialog: {
			CheckIntervalSec: int(DefaultCheckInterval / time.Second),
		},
		SurfaceNotifyList: {},
		SurfaceAddNotify:  {},
	}
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		if v.WindowPos != nil {
			pos := *v.WindowPos
			v.WindowPos = &pos
		}
		out[k] = v
	}
	return out
}

// CheckInterval returns the poll interval clamped to its bounds.
func (s Settings) CheckInterval() time.Duration {
	sec := s[SurfaceSettingsDialog].CheckIntervalSec
	if sec <= 0 {
		return DefaultCheckInterval
	}
	return clampInterval(time.Duration(sec) * time.Second)
}

// WithCheckInterval returns a copy of s using interval d, clamped.
func (s Settings) WithCheckInterval(d time.Duration) Settings {
	out := s.Clone()
	v := out[SurfaceSettingsDialog]
	v.CheckIntervalSec = int(clampInterval(d) / time.Second)
	out[SurfaceSettingsDialog] = v
	return out
}

// Autostart reports whether the autostart flag is set.
func (s Settings) Autostart() bool {
	return s[SurfaceSettingsDialog].Autostart
}

// WithAutostart returns a copy of s with the autostart flag set to on.
func (s Settings) WithAutostart(on bool) Settings {
	out := s.Clone()
	v := out[SurfaceSettingsDialog]
	v.Autostart = on
	out[SurfaceSettingsDialog] = v
	return out
}

// WindowPos returns the saved geometry of surface.
func (s Settings) WindowPos(surface string) (WindowPos, bool) {
	v, ok := s[surface]
	if !ok || v.WindowPos == nil {
		return WindowPos{}, false
	}
	return *v.WindowPos, true
}

// WithWindowPos returns a copy of s with the geometry of surface replaced.
func (s Settings) WithWindowPos(surface string, pos WindowPos) Settings {
	out := s.Clone()
	v := out[surface]
	v.WindowPos = &pos
	out[surface] = v
	return out
}

func knownSurface(name string) bool {
	switch name {
	case SurfaceSettingsDialog, SurfaceNotifyList, SurfaceAddNotify:
		return true
	}
	return false
}

func clampInterval(d time.Duration) time.Duration {
	switch {
	case d < MinCheckInterval:
		return MinCheckInterval
	case d > MaxCheckInterval:
		return MaxCheckInterval
	}
	return d
}

// mergeDefaults fills surfaces missing from a loaded document.
func mergeDefaults(s Settings) Settings {
	out := s.Clone()
	for k, v := range DefaultSettings() {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out
}
