// Package model provides the trace types shared by the store, player and renderers.
package model

import (
	"time"
)

// TimeRange is a half-open interval [Start, End) in seconds on a video timeline.
type TimeRange struct {
	Start float64 `json:"start" validate:"gte=0"`
	End   float64 `json:"end" validate:"gtefield=Start"`
}

// Contains reports whether t falls inside the range. Start is inclusive, End exclusive.
func (r TimeRange) Contains(t float64) bool {
	return t >= r.Start && t < r.End
}

// Duration returns the length of the range in seconds.
func (r TimeRange) Duration() float64 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// TraceItem is one step of a recorded task execution.
type TraceItem struct {
	Timestamp  string    `json:"timestamp"`
	Screenshot string    `json:"screenshot"`
	Thought    string    `json:"thought"`
	Action     string    `json:"action"`
	Video      string    `json:"video"`
	TimeRange  TimeRange `json:"timeRange"`
	Agent      string    `json:"agent,omitempty"`
}

// Time parses Timestamp as RFC3339. The zero time is returned when it cannot be parsed.
func (it TraceItem) Time() time.Time {
	t, err := time.Parse(time.RFC3339, it.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// TraceData is one full recorded task.
type TraceData struct {
	Task  string      `json:"task,omitempty"`
	Items []TraceItem `json:"items" validate:"dive"`
}

// Duration returns the largest End across all items, i.e. the playback length the
// timeline needs.
func (d TraceData) Duration() float64 {
	var longest float64
	for _, item := range d.Items {
		if item.TimeRange.End > longest {
			longest = item.TimeRange.End
		}
	}
	return longest
}

// Agents returns the distinct agent labels in first-seen order.
func (d TraceData) Agents() []string {
	seen := make(map[string]struct{})
	var agents []string
	for _, item := range d.Items {
		if item.Agent == "" {
			continue
		}
		if _, ok := seen[item.Agent]; ok {
			continue
		}
		seen[item.Agent] = struct{}{}
		agents = append(agents, item.Agent)
	}
	return agents
}

// Trace is a loaded TraceData together with where it came from.
type Trace struct {
	ID    int       `json:"id"`
	Title string    `json:"title,omitempty"`
	Path  string    `json:"path"`
	Data  TraceData `json:"data"`
}

// Label returns a human readable name for the trace.
func (t Trace) Label() string {
	if t.Title != "" {
		return t.Title
	}
	if t.Data.Task != "" {
		return t.Data.Task
	}
	return ""
}
