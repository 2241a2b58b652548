// Package format provides formatting and rendering functions for trace data.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"cuatrace/internal/model"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Summary is the listing view of one trace.
type Summary struct {
	ID       int      `json:"id"`
	Title    string   `json:"title"`
	Steps    int      `json:"steps"`
	Duration float64  `json:"duration_seconds"`
	Agents   []string `json:"agents,omitempty"`
	Path     string   `json:"path"`
}

// Summarize builds listing rows for traces.
func Summarize(traces []model.Trace) []Summary {
	out := make([]Summary, 0, len(traces))
	for _, tr := range traces {
		out = append(out, Summary{
			ID:       tr.ID,
			Title:    tr.Label(),
			Steps:    len(tr.Data.Items),
			Duration: tr.Data.Duration(),
			Agents:   tr.Data.Agents(),
			Path:     tr.Path,
		})
	}
	return out
}

// WriteSummaries writes trace summaries to w in the requested format.
func WriteSummaries(w io.Writer, items []Summary, includeHeader bool, format string) error {
	format = strings.ToLower(format)
	switch format {
	case "", "table":
		return writeSummariesTable(w, items, includeHeader)
	case "plain":
		return writeSummariesPlain(w, items, includeHeader)
	case "json":
		return writeSummariesJSON(w, items)
	case "jsonl":
		return writeSummariesJSONL(w, items)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func writeSummariesPlain(w io.Writer, items []Summary, includeHeader bool) error {
	if includeHeader {
		if _, err := fmt.Fprintln(w, "id\tsteps\tduration\tagents\ttitle"); err != nil {
			return err
		}
	}

	for _, item := range items {
		line := fmt.Sprintf(
			"%d\t%d\t%s\t%s\t%s",
			item.ID,
			item.Steps,
			FormatClock(item.Duration),
			strings.Join(item.Agents, ","),
			escapeNewlines(item.Title),
		)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeSummariesJSON(w io.Writer, items []Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

func writeSummariesJSONL(w io.Writer, items []Summary) error {
	enc := json.NewEncoder(w)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return err
		}
	}
	return nil
}

func escapeNewlines(text string) string {
	return strings.ReplaceAll(text, "\n", "\\n")
}

func writeSummariesTable(w io.Writer, items []Summary, includeHeader bool) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateRows = true
	tw.Style().Options.SeparateHeader = true
	tw.Style().Options.DrawBorder = true

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 3, Align: text.AlignCenter, AlignHeader: text.AlignCenter},
		{Number: 4, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 5, Align: text.AlignLeft, AlignHeader: text.AlignCenter, WidthMax: 80},
	})

	if includeHeader {
		tw.AppendHeader(table.Row{"ID", "Steps", "Duration", "Agents", "Title"})
	}

	for _, item := range items {
		tw.AppendRow(table.Row{
			item.ID,
			item.Steps,
			FormatClock(item.Duration),
			strings.Join(item.Agents, ", "),
			escapeNewlines(item.Title),
		})
	}

	if len(items) == 0 {
		tw.AppendRow(table.Row{"-", 0, "00:00", "-", "(no traces)"})
	}

	_ = tw.Render()
	return nil
}
