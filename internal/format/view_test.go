package format

import (
	"strings"
	"testing"

	"cuatrace/internal/model"
)

func TestRenderTextWraps(t *testing.T) {
	lines := RenderText("one two three four five six", 10)
	if len(lines) < 2 {
		t.Fatalf("expected wrapped lines, got %v", lines)
	}
	for _, line := range lines {
		if len(line) > 10 {
			t.Fatalf("line exceeds width: %q", line)
		}
	}
}

func TestRenderTextJSON(t *testing.T) {
	lines := RenderText(`{"type":"click","target":{"x":1}}`, 80)
	if len(lines) < 3 {
		t.Fatalf("expected pretty-printed JSON lines, got %v", lines)
	}
	if lines[0] != "{" {
		t.Fatalf("first line should be '{': %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "  ") {
		t.Fatalf("json indentation missing: %q", lines[1])
	}
}

func TestRenderTextMalformedJSONFallsBack(t *testing.T) {
	lines := RenderText(`{"type": "click"`, 0)
	if len(lines) != 1 || lines[0] != `{"type": "click"` {
		t.Fatalf("malformed JSON should render as plain text, got %v", lines)
	}
}

func TestRenderTextFencedBlock(t *testing.T) {
	text := "Reading headings:\n```\n  Revenue  up\nChurn down\n```\ndone"
	lines := RenderText(text, 0)
	want := []string{"Reading headings:", "```", "  Revenue  up", "Churn down", "```", "done"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Fatalf("fenced block mismatch:\nwant %q\ngot  %q", want, lines)
	}
}

func TestRenderTextEmpty(t *testing.T) {
	if lines := RenderText("   ", 20); lines != nil {
		t.Fatalf("expected no lines, got %v", lines)
	}
}

func TestStepHeader(t *testing.T) {
	item := model.TraceItem{
		Timestamp: "2024-03-20T10:00:08Z",
		TimeRange: model.TimeRange{Start: 8, End: 15.5},
		Agent:     "executor",
	}
	got := StepHeader(1, item)
	want := "#02  8s - 15.5s  2024-03-20 10:00:08  [executor]"
	if got != want {
		t.Fatalf("StepHeader = %q, want %q", got, want)
	}
}

func TestFormatClock(t *testing.T) {
	if got := FormatClock(125.7); got != "02:05" {
		t.Fatalf("FormatClock = %q", got)
	}
	if got := FormatClock(-4); got != "00:00" {
		t.Fatalf("FormatClock negative = %q", got)
	}
}
