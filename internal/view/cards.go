package view

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"cuatrace/internal/format"
	"cuatrace/internal/model"

	"github.com/mattn/go-runewidth"
)

// renderCards draws each step from offset onward as a bordered card. The card
// at active gets a highlighted border.
func renderCards(trace model.Trace, offset, active, width int, useColor bool) []string {
	if width <= 0 {
		width = 80
	}
	items := trace.Data.Items
	if offset >= len(items) {
		return nil
	}

	lines := make([]string, 0, (len(items)-offset)*8)
	title := fmt.Sprintf("Trace %d", trace.ID)
	if label := trace.Label(); label != "" {
		title += ": " + label
	}
	for _, line := range wrapText(title, width) {
		lines = append(lines, colorize(useColor, ansiBoldWhite, line))
	}

	for idx := offset; idx < len(items); idx++ {
		lines = append(lines, "")
		lines = append(lines, renderCard(idx, items[idx], width, idx == active, useColor)...)
	}
	return lines
}

func renderCard(index int, item model.TraceItem, totalWidth int, active bool, useColor bool) []string {
	contentWidth := totalWidth - 4
	if contentWidth < 16 {
		contentWidth = 16
	}

	header := format.StepHeader(index, item)
	content := wrapText(header, contentWidth)
	if useColor && len(content) > 0 {
		content[0] = colorize(true, agentColor(item.Agent), content[0])
	}

	content = append(content, wrapText("screenshot: "+item.Screenshot, contentWidth)...)
	content = append(content, "")
	content = append(content, colorize(useColor, ansiLabel, "Thought"))
	content = append(content, wrapLines(format.RenderText(item.Thought, contentWidth), contentWidth)...)
	content = append(content, "")
	content = append(content, colorize(useColor, ansiLabel, "Action"))
	content = append(content, wrapLines(format.RenderText(item.Action, contentWidth), contentWidth)...)

	cardWidth := contentMaxWidth(content)
	if cardWidth > contentWidth {
		cardWidth = contentWidth
	}

	borderCode := ansiSeparator
	if active {
		borderCode = ansiActive
	}
	top := colorize(useColor, borderCode, fmt.Sprintf("╭%s╮", strings.Repeat("─", cardWidth+2)))
	bottom := colorize(useColor, borderCode, fmt.Sprintf("╰%s╯", strings.Repeat("─", cardWidth+2)))

	result := []string{top}
	for _, line := range content {
		result = append(result, renderCardBodyLine(line, cardWidth, borderCode, useColor))
	}
	result = append(result, bottom)
	return result
}

func renderCardBodyLine(line string, cardWidth int, borderCode string, useColor bool) string {
	displayLen := visibleWidth(line)
	if displayLen > cardWidth {
		line = truncateToWidth(line, cardWidth)
		displayLen = visibleWidth(line)
	}
	paddingRight := cardWidth - displayLen

	border := colorize(useColor, borderCode, "│")
	return fmt.Sprintf("%s %s%s %s", border, line, strings.Repeat(" ", paddingRight), border)
}

func wrapLines(lines []string, width int) []string {
	var out []string
	for _, line := range lines {
		out = append(out, wrapText(line, width)...)
	}
	return out
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}
	text = strings.TrimRight(text, " ")
	if text == "" {
		return []string{""}
	}
	if visibleWidth(text) <= width {
		return []string{text}
	}
	var out []string
	var current strings.Builder
	currentWidth := 0

	for _, r := range text {
		rw := runewidth.RuneWidth(r)
		if currentWidth+rw > width && current.Len() > 0 {
			out = append(out, current.String())
			current.Reset()
			currentWidth = 0
		}
		current.WriteRune(r)
		currentWidth += rw
	}
	if currentWidth > 0 || current.Len() > 0 {
		out = append(out, current.String())
	}
	return out
}

func contentMaxWidth(lines []string) int {
	widest := 0
	for _, line := range lines {
		if w := visibleWidth(line); w > widest {
			widest = w
		}
	}
	return widest
}

func truncateToWidth(text string, width int) string {
	if visibleWidth(text) <= width {
		return text
	}
	var colored strings.Builder
	current := 0

	for i := 0; i < len(text); {
		if m := ansiPattern.FindStringIndex(text[i:]); m != nil && m[0] == 0 {
			colored.WriteString(text[i : i+m[1]])
			i += m[1]
			continue
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		rw := runewidth.RuneWidth(r)
		if current+rw > width {
			break
		}
		colored.WriteRune(r)
		current += rw
		i += size
	}
	return colored.String()
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func visibleWidth(text string) int {
	clean := ansiPattern.ReplaceAllString(text, "")
	return runewidth.StringWidth(clean)
}
