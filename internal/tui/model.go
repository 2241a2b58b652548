// Package tui plays traces in an interactive terminal carousel.
package tui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cuatrace/internal/carousel"
	"cuatrace/internal/format"
	"cuatrace/internal/model"
	"cuatrace/internal/player"
	"cuatrace/internal/store"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/afero"
)

// Layout constants
const (
	DefaultWidth       = 100
	DefaultHeight      = 30
	HeaderFooterHeight = 7
	MinViewportHeight  = 6
	DefaultFrameRate   = 200 * time.Millisecond
	SeekStep           = 5.0
	maxThoughtLines    = 4
	maxActionLines     = 3
)

// Options configures a player.
type Options struct {
	Traces           []model.Trace
	Autoplay         bool
	AutoplayInterval time.Duration
	SettleDuration   time.Duration
	FrameRate        time.Duration
	// Assets resolves local screenshot and video paths. Nil skips the check.
	Assets   afero.Fs
	BasePath string
	// StartPlaying starts the first trace's video immediately.
	StartPlaying bool
}

type viewer struct {
	trace model.Trace
	sync  *player.Synchronizer
	video *player.VirtualVideo
}

// MsgFrame advances every playing video.
type MsgFrame struct{ At time.Time }

// MsgSettle commits a carousel transition.
type MsgSettle struct{ Transition carousel.Transition }

// MsgAutoplay is an autoplay interval tick. Gen discards ticks scheduled before
// the last index change or toggle.
type MsgAutoplay struct{ Gen int }

// Model is the bubbletea model for the trace carousel.
type Model struct {
	opts     Options
	viewers  []*viewer
	carousel *carousel.Carousel
	viewport viewport.Model

	width, height int
	lastFrame     time.Time
	autoplayGen   int
	rowTops       []int
	rowHeights    []int
	quitting      bool
}

// New builds a model over opts.Traces.
func New(opts Options) Model {
	if opts.AutoplayInterval <= 0 {
		opts.AutoplayInterval = carousel.DefaultAutoplayInterval
	}
	if opts.SettleDuration < 0 {
		opts.SettleDuration = carousel.DefaultSettleDuration
	}
	if opts.FrameRate <= 0 {
		opts.FrameRate = DefaultFrameRate
	}

	viewers := make([]*viewer, 0, len(opts.Traces))
	for _, tr := range opts.Traces {
		video := player.NewVirtualVideo(tr.Data.Duration())
		viewers = append(viewers, &viewer{
			trace: tr,
			sync:  player.New(tr.Data.Items, video),
			video: video,
		})
	}

	m := Model{
		opts:     opts,
		viewers:  viewers,
		carousel: carousel.New(len(viewers), opts.Autoplay),
		viewport: viewport.New(DefaultWidth, DefaultHeight-HeaderFooterHeight),
		width:    DefaultWidth,
		height:   DefaultHeight,
	}
	m.carousel.OnChange = func(index int) {
		slog.Debug("carousel changed", "index", index)
	}
	if opts.StartPlaying && len(viewers) > 0 {
		viewers[0].video.Play()
		viewers[0].sync.Play()
	}
	m.refreshTimeline()
	return m
}

// Carousel exposes the navigation state.
func (m Model) Carousel() *carousel.Carousel { return m.carousel }

// Init starts the frame clock and the autoplay timer.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.frame(), m.autoplay())
}

func (m Model) frame() tea.Cmd {
	return tea.Tick(m.opts.FrameRate, func(t time.Time) tea.Msg {
		return MsgFrame{At: t}
	})
}

func (m Model) autoplay() tea.Cmd {
	if !m.carousel.AutoPlaying() || m.carousel.Len() <= 1 {
		return nil
	}
	gen := m.autoplayGen
	return tea.Tick(m.opts.AutoplayInterval, func(time.Time) tea.Msg {
		return MsgAutoplay{Gen: gen}
	})
}

func (m Model) settle(t carousel.Transition) tea.Cmd {
	if m.opts.SettleDuration == 0 {
		return func() tea.Msg { return MsgSettle{Transition: t} }
	}
	return tea.Tick(m.opts.SettleDuration, func(time.Time) tea.Msg {
		return MsgSettle{Transition: t}
	})
}

func (m Model) active() *viewer {
	if len(m.viewers) == 0 {
		return nil
	}
	return m.viewers[m.carousel.Active()]
}

func (m Model) anyPlaying() bool {
	for _, v := range m.viewers {
		if v.sync.Playing() {
			return true
		}
	}
	return false
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - HeaderFooterHeight
		if m.viewport.Height < MinViewportHeight {
			m.viewport.Height = MinViewportHeight
		}
		m.refreshTimeline()
		return m, nil

	case MsgFrame:
		if m.quitting {
			return m, nil
		}
		dt := m.opts.FrameRate
		if !m.lastFrame.IsZero() {
			dt = msg.At.Sub(m.lastFrame)
		}
		m.lastFrame = msg.At
		if m.advance(dt) {
			m.refreshTimeline()
		}
		return m, m.frame()

	case MsgSettle:
		if m.carousel.Settle(msg.Transition) {
			m.autoplayGen++
			m.refreshTimeline()
			return m, m.autoplay()
		}
		return m, nil

	case MsgAutoplay:
		if m.quitting || msg.Gen != m.autoplayGen {
			return m, nil
		}
		if t, ok := m.carousel.Tick(m.anyPlaying()); ok {
			return m, m.settle(t)
		}
		return m, m.autoplay()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		m.carousel.Close()
		return m, tea.Quit
	case "left", "h":
		return m.navigate(carousel.KeyLeft)
	case "right", "l":
		return m.navigate(carousel.KeyRight)
	case " ":
		m.carousel.HandleKey(carousel.KeySpace)
		m.autoplayGen++
		return m, m.autoplay()
	case "p", "enter":
		m.togglePlay()
	case "up", "k":
		m.selectRelative(-1)
	case "down", "j":
		m.selectRelative(1)
	case "[":
		m.seekRelative(-SeekStep)
	case "]":
		m.seekRelative(SeekStep)
	case "home", "g":
		if v := m.active(); v != nil {
			m.seekTo(v, 0)
		}
	default:
		return m, nil
	}
	m.refreshTimeline()
	return m, nil
}

func (m Model) navigate(k carousel.Key) (tea.Model, tea.Cmd) {
	if t, ok := m.carousel.HandleKey(k); ok {
		return m, m.settle(t)
	}
	return m, nil
}

// advance moves every playing video by dt and reports whether anything visible changed.
func (m Model) advance(dt time.Duration) bool {
	changed := false
	for idx, v := range m.viewers {
		if v.video.Paused() {
			continue
		}
		pos, ended := v.video.Advance(dt)
		v.sync.TimeUpdate(pos)
		if ended {
			v.sync.Pause()
		}
		if idx == m.carousel.Active() {
			changed = true
		}
	}
	return changed
}

func (m Model) togglePlay() {
	v := m.active()
	if v == nil {
		return
	}
	if v.video.Paused() {
		v.video.Play()
		v.sync.Play()
		v.sync.Seeked(v.video.Position())
		return
	}
	v.video.Pause()
	v.sync.Pause()
}

func (m Model) selectRelative(delta int) {
	v := m.active()
	if v == nil || len(v.trace.Data.Items) == 0 {
		return
	}
	next := v.sync.SelectedIndex() + delta
	if next < 0 {
		next = 0
	}
	if next >= len(v.trace.Data.Items) {
		next = len(v.trace.Data.Items) - 1
	}
	v.sync.Select(next)
}

func (m Model) seekRelative(delta float64) {
	if v := m.active(); v != nil {
		m.seekTo(v, v.video.Position()+delta)
	}
}

func (m Model) seekTo(v *viewer, seconds float64) {
	v.video.Seek(seconds)
	v.sync.Seeked(v.video.Position())
}

// refreshTimeline rebuilds the timeline pane and centers the active row.
func (m *Model) refreshTimeline() {
	v := m.active()
	if v == nil {
		m.viewport.SetContent(StyleSubtle.Render("no traces loaded"))
		return
	}

	content, tops, heights := m.renderRows(v)
	m.rowTops = tops
	m.rowHeights = heights
	m.viewport.SetContent(content)

	if idx, ok := v.sync.Active(); ok && idx < len(tops) {
		m.viewport.SetYOffset(player.ScrollOffset(tops[idx], heights[idx], m.viewport.Height))
	}
}

func (m Model) renderRows(v *viewer) (string, []int, []int) {
	items := v.trace.Data.Items
	active, _ := v.sync.Active()
	selected := v.sync.SelectedIndex()
	rowWidth := m.width - 4
	if rowWidth < 20 {
		rowWidth = 20
	}

	var b strings.Builder
	tops := make([]int, len(items))
	heights := make([]int, len(items))
	line := 0
	for idx, item := range items {
		style := StyleRow
		switch idx {
		case active:
			style = StyleRowActive
		case selected:
			style = StyleRowSelected
		}
		row := style.Width(rowWidth).Render(m.renderRowBody(idx, item, rowWidth-4))
		tops[idx] = line
		heights[idx] = lipgloss.Height(row)
		line += heights[idx]
		b.WriteString(row)
		if idx < len(items)-1 {
			b.WriteString("\n")
		}
	}
	return b.String(), tops, heights
}

func (m Model) renderRowBody(idx int, item model.TraceItem, width int) string {
	lines := []string{StyleTitle.Render(format.StepHeader(idx, item))}
	lines = append(lines, m.assetLine("screenshot", item.Screenshot))

	lines = append(lines, StyleLabel.Render("Thought"))
	lines = append(lines, clip(format.RenderText(item.Thought, width), maxThoughtLines)...)
	lines = append(lines, StyleLabel.Render("Action"))
	lines = append(lines, clip(format.RenderText(item.Action, width), maxActionLines)...)
	return strings.Join(lines, "\n")
}

func (m Model) assetLine(kind, path string) string {
	if path == "" {
		return StyleSubtle.Render(kind + ": (none)")
	}
	if m.opts.Assets != nil && !store.AssetExists(m.opts.Assets, m.opts.BasePath, path) {
		return StyleError.Render("asset unavailable: " + path)
	}
	return StyleSubtle.Render(kind + ": " + path)
}

func clip(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	out := append([]string{}, lines[:n]...)
	return append(out, StyleSubtle.Render(fmt.Sprintf("… %d more lines", len(lines)-n)))
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	v := m.active()
	if v == nil {
		return StyleError.Render("no traces to play") + "\n"
	}

	var b strings.Builder
	b.WriteString(m.renderHeader(v))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader(v *viewer) string {
	autoplay := StyleSubtle.Render("autoplay off")
	if m.carousel.AutoPlaying() {
		autoplay = StyleSuccess.Render("autoplay on")
	}
	state := "❚❚"
	if !v.video.Paused() {
		state = "▶"
	}
	title := StyleHeader.Render(fmt.Sprintf("Trace %d of %d", m.carousel.Active()+1, m.carousel.Len()))
	clock := fmt.Sprintf("%s %s / %s", state, format.FormatClock(v.video.Position()), format.FormatClock(v.video.Duration()))

	lines := []string{
		lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", autoplay, "  ", StylePrimary.Render(clock)),
	}
	if label := v.trace.Label(); label != "" {
		lines = append(lines, StyleTitle.Render(label))
	}
	lines = append(lines, m.assetLine("video", firstVideo(v.trace.Data)))
	lines = append(lines, progressBar(v.video.Position(), v.video.Duration(), m.width-2))
	return strings.Join(lines, "\n")
}

func (m Model) renderFooter() string {
	var dots []string
	for i := 0; i < m.carousel.Len(); i++ {
		if i == m.carousel.Active() {
			dots = append(dots, StyleDotActive.Render("●"))
		} else {
			dots = append(dots, StyleDotInactive.Render("○"))
		}
	}
	help := StyleSubtle.Render("←/→ trace  ↑/↓ step  p play  [/] seek  space autoplay  q quit")
	return strings.Join(dots, " ") + "  " + help
}

func firstVideo(data model.TraceData) string {
	for _, item := range data.Items {
		if item.Video != "" {
			return item.Video
		}
	}
	return ""
}

func progressBar(pos, duration float64, width int) string {
	if width < 10 {
		width = 10
	}
	filled := 0
	if duration > 0 {
		filled = int(float64(width) * pos / duration)
	}
	if filled > width {
		filled = width
	}
	return StylePrimary.Render(strings.Repeat("━", filled)) + StyleSubtle.Render(strings.Repeat("─", width-filled))
}
