package view

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"cuatrace/internal/model"
)

func sampleTrace() model.Trace {
	return model.Trace{
		ID:    2,
		Title: "Format a paragraph",
		Data: model.TraceData{Items: []model.TraceItem{
			{
				Timestamp:  "2024-03-20T10:02:30Z",
				Screenshot: "/screenshots/a.png",
				Thought:    "Convert to rich text first.",
				Action:     `{"type":"hotkey","keys":["cmd","shift","t"]}`,
				TimeRange:  model.TimeRange{Start: 0, End: 6},
			},
			{
				Timestamp:  "2024-03-20T10:02:36Z",
				Screenshot: "/screenshots/b.png",
				Thought:    "Select the second paragraph.",
				Action:     "triple click",
				TimeRange:  model.TimeRange{Start: 6, End: 11},
				Agent:      "executor",
			},
		}},
	}
}

func TestRunTextMarksActiveStep(t *testing.T) {
	var buf bytes.Buffer
	at := 7.0
	if err := Run(Options{Trace: sampleTrace(), Format: "text", At: &at, Out: &buf, ForceNoColor: true}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "Trace 2: Format a paragraph\n2 steps, 00:11\n") {
		t.Fatalf("unexpected header:\n%s", out)
	}
	if !strings.Contains(out, "▶ #02  6s - 11s") {
		t.Fatalf("active step not marked:\n%s", out)
	}
	if strings.Contains(out, "▶ #01") {
		t.Fatalf("inactive step marked:\n%s", out)
	}
	if !strings.Contains(out, `|     "type": "hotkey",`) {
		t.Fatalf("action JSON not pretty-printed:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("color codes present with --no-color:\n%s", out)
	}
}

func TestRunMaxSteps(t *testing.T) {
	var buf bytes.Buffer
	if err := Run(Options{Trace: sampleTrace(), Format: "json", MaxSteps: 1, Out: &buf}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	var data model.TraceData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(data.Items) != 1 || data.Items[0].Screenshot != "/screenshots/b.png" {
		t.Fatalf("expected only the last step, got %+v", data.Items)
	}
}

func TestRunCards(t *testing.T) {
	var buf bytes.Buffer
	if err := Run(Options{Trace: sampleTrace(), Format: "cards", Wrap: 40, Out: &buf, ForceNoColor: true}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	var cards int
	for _, line := range lines {
		if strings.HasPrefix(line, "╭") {
			cards++
		}
		if visibleWidth(line) > 40 {
			t.Fatalf("line wider than wrap width: %q", line)
		}
	}
	if cards != 2 {
		t.Fatalf("expected 2 cards, got %d:\n%s", cards, buf.String())
	}
}

func TestRunUnsupportedFormat(t *testing.T) {
	if err := Run(Options{Trace: sampleTrace(), Format: "xml", Out: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWrapTextWideRunes(t *testing.T) {
	lines := wrapText("日本語テスト", 4)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %v", lines)
	}
	for _, line := range lines {
		if visibleWidth(line) > 4 {
			t.Fatalf("line too wide: %q", line)
		}
	}
}

func TestTruncateToWidthKeepsColor(t *testing.T) {
	got := truncateToWidth(colorize(true, ansiLabel, "abcdef"), 3)
	if visibleWidth(got) != 3 || !strings.HasPrefix(got, ansiLabel) {
		t.Fatalf("unexpected truncation: %q", got)
	}
}
