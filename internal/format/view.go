package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"cuatrace/internal/model"
)

// RenderText formats a thought or action body for display. JSON bodies are
// pretty-printed, fenced code blocks are kept verbatim, and everything else is
// word-wrapped at width (0 disables wrapping). Text that is not valid JSON is
// treated as prose.
func RenderText(text string, width int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if formatted, ok := formatJSON(text); ok {
		return strings.Split(formatted, "\n")
	}

	var lines []string
	var prose []string
	inFence := false
	flush := func() {
		if len(prose) == 0 {
			return
		}
		body := wrapBody(strings.Join(prose, " "), width)
		lines = append(lines, strings.Split(body, "\n")...)
		prose = prose[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			flush()
			inFence = !inFence
			lines = append(lines, strings.TrimSpace(line))
			continue
		}
		if inFence {
			lines = append(lines, line)
			continue
		}
		if strings.TrimSpace(line) == "" {
			flush()
			lines = append(lines, "")
			continue
		}
		prose = append(prose, strings.TrimSpace(line))
	}
	flush()
	return lines
}

// StepHeader returns the one-line header for a timeline step.
func StepHeader(index int, item model.TraceItem) string {
	header := fmt.Sprintf("#%02d  %s", index+1, FormatRange(item.TimeRange))
	if ts := item.Time(); !ts.IsZero() {
		header += "  " + ts.Format("2006-01-02 15:04:05")
	} else if item.Timestamp != "" {
		header += "  " + item.Timestamp
	}
	if item.Agent != "" {
		header += "  [" + item.Agent + "]"
	}
	return header
}

// FormatRange renders a time range as "12.5s - 20s".
func FormatRange(r model.TimeRange) string {
	return FormatSeconds(r.Start) + " - " + FormatSeconds(r.End)
}

// FormatSeconds renders seconds without trailing zeros.
func FormatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64) + "s"
}

// FormatClock renders seconds as mm:ss.
func FormatClock(s float64) string {
	if s < 0 {
		s = 0
	}
	total := int(s)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func wrapBody(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len(current)+1+len(word) > width {
			lines = append(lines, current)
			current = word
		} else {
			current += " " + word
		}
	}
	lines = append(lines, current)

	return strings.Join(lines, "\n")
}

// formatJSON indents raw when it is a JSON object or array.
func formatJSON(raw string) (string, bool) {
	if raw == "" || (raw[0] != '{' && raw[0] != '[') {
		return raw, false
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(raw), "", "  "); err == nil {
		return buf.String(), true
	}
	return raw, false
}
