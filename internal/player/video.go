package player

import "time"

// VirtualVideo is a playhead with no media behind it. It advances by wall-clock
// deltas while playing and stops at its duration.
type VirtualVideo struct {
	position float64
	duration float64
	playing  bool
}

// NewVirtualVideo returns a paused playhead of the given length in seconds.
func NewVirtualVideo(duration float64) *VirtualVideo {
	if duration < 0 {
		duration = 0
	}
	return &VirtualVideo{duration: duration}
}

// Seek moves the playhead, clamped to [0, duration].
func (v *VirtualVideo) Seek(seconds float64) {
	v.position = v.clamp(seconds)
}

// Position returns the playhead in seconds.
func (v *VirtualVideo) Position() float64 { return v.position }

// Duration returns the video length in seconds.
func (v *VirtualVideo) Duration() float64 { return v.duration }

// Paused reports whether the playhead is stopped.
func (v *VirtualVideo) Paused() bool { return !v.playing }

// Play starts the playhead. Playing from the end restarts at zero.
func (v *VirtualVideo) Play() {
	if v.position >= v.duration {
		v.position = 0
	}
	v.playing = v.duration > 0
}

// Pause stops the playhead.
func (v *VirtualVideo) Pause() { v.playing = false }

// Advance moves a playing playhead forward by dt. It returns the new position and
// whether the video reached its end during this call, which also pauses it.
func (v *VirtualVideo) Advance(dt time.Duration) (float64, bool) {
	if !v.playing || dt <= 0 {
		return v.position, false
	}
	v.position = v.clamp(v.position + dt.Seconds())
	if v.position >= v.duration {
		v.playing = false
		return v.position, true
	}
	return v.position, false
}

func (v *VirtualVideo) clamp(seconds float64) float64 {
	switch {
	case seconds < 0:
		return 0
	case seconds > v.duration:
		return v.duration
	default:
		return seconds
	}
}
