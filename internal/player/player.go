// Package player keeps the active timeline step in step with a video playhead.
//
// A Synchronizer is owned by one viewer and must only be driven from that
// viewer's event loop. It derives a discrete active index from the continuous
// playback position and, in the other direction, seeks the video when a step is
// selected.
package player

import (
	"cuatrace/internal/model"
)

// Seeker moves a video playhead. The synchronizer treats Seek as completing
// immediately and applies the new position itself.
type Seeker interface {
	Seek(seconds float64)
}

// Synchronizer derives the active step of a trace from playback events.
type Synchronizer struct {
	items    []model.TraceItem
	video    Seeker
	current  float64
	playing  bool
	active   int
	selected int
}

// New returns a synchronizer over items. The first item starts active and
// selected when there is one. video may be nil, in which case Select only
// changes the selection.
func New(items []model.TraceItem, video Seeker) *Synchronizer {
	s := &Synchronizer{items: items, video: video, active: -1, selected: -1}
	if len(items) > 0 {
		s.active = 0
		s.selected = 0
	}
	return s
}

// Items returns the steps being synchronized.
func (s *Synchronizer) Items() []model.TraceItem { return s.items }

// CurrentTime returns the last reported playback position in seconds.
func (s *Synchronizer) CurrentTime() float64 { return s.current }

// Playing reports whether the video last reported play.
func (s *Synchronizer) Playing() bool { return s.playing }

// Active returns the active step index and whether one is set.
func (s *Synchronizer) Active() (int, bool) {
	return s.active, s.active >= 0
}

// Selected returns the selected item, or nil when nothing is selected.
func (s *Synchronizer) Selected() *model.TraceItem {
	if s.selected < 0 || s.selected >= len(s.items) {
		return nil
	}
	return &s.items[s.selected]
}

// SelectedIndex returns the selected index, -1 when nothing is selected.
func (s *Synchronizer) SelectedIndex() int { return s.selected }

// TimeUpdate handles a playback position report. It reports whether the active
// index changed. Positions outside every interval leave the active index alone.
func (s *Synchronizer) TimeUpdate(t float64) bool {
	s.current = t
	idx := IndexAt(s.items, t)
	if idx < 0 || idx == s.active {
		return false
	}
	s.active = idx
	s.selected = idx
	return true
}

// Seeked handles seek completion.
func (s *Synchronizer) Seeked(t float64) bool {
	return s.TimeUpdate(t)
}

// Play mirrors the video's play event.
func (s *Synchronizer) Play() { s.playing = true }

// Pause mirrors the video's pause event.
func (s *Synchronizer) Pause() { s.playing = false }

// Select selects step i and seeks the video to its start. Out of range indexes
// are ignored. It reports whether the selection was applied.
func (s *Synchronizer) Select(i int) bool {
	if i < 0 || i >= len(s.items) {
		return false
	}
	s.selected = i
	if s.video == nil {
		return true
	}
	start := s.items[i].TimeRange.Start
	s.video.Seek(start)
	s.Seeked(start)
	return true
}

// IndexAt returns the first index whose range contains t, or -1.
func IndexAt(items []model.TraceItem, t float64) int {
	for i := range items {
		if items[i].TimeRange.Contains(t) {
			return i
		}
	}
	return -1
}

// ScrollOffset returns the scroll position that centers a row of rowHeight at
// rowTop inside a container of containerHeight. It never goes below zero.
func ScrollOffset(rowTop, rowHeight, containerHeight int) int {
	offset := rowTop - containerHeight/2 + rowHeight/2
	if offset < 0 {
		return 0
	}
	return offset
}
