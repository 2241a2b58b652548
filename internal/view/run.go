// Package view prints a trace timeline to a terminal or writer.
package view

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"cuatrace/internal/format"
	"cuatrace/internal/model"
	"cuatrace/internal/player"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// Options defines the configurable parameters for rendering a view.
type Options struct {
	Trace        model.Trace
	Format       string
	Wrap         int
	MaxSteps     int
	At           *float64
	ForceColor   bool
	ForceNoColor bool
	Out          io.Writer
	OutFile      *os.File
}

// Run renders a trace according to the provided options.
func Run(opts Options) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	formatMode := strings.ToLower(opts.Format)
	if formatMode == "" {
		formatMode = "text"
	}

	items := opts.Trace.Data.Items
	offset := 0
	if opts.MaxSteps > 0 && len(items) > opts.MaxSteps {
		offset = len(items) - opts.MaxSteps
	}

	active := -1
	if opts.At != nil {
		active = player.IndexAt(items, *opts.At)
	}

	switch formatMode {
	case "text":
		useColor := resolveColorChoice(opts)
		printTraceHeader(opts.Out, opts.Trace, useColor)
		for idx := offset; idx < len(items); idx++ {
			fmt.Fprintln(opts.Out)
			printStep(opts.Out, idx, items[idx], opts.Wrap, idx == active, useColor)
		}
		return nil

	case "json":
		enc := json.NewEncoder(opts.Out)
		enc.SetIndent("", "  ")
		data := opts.Trace.Data
		data.Items = items[offset:]
		return enc.Encode(data)

	case "cards":
		colorEnabled := resolveColorChoice(opts)
		width := determineWidth(opts.OutFile, opts.Wrap)

		lines := renderCards(opts.Trace, offset, active, width, colorEnabled)
		if len(lines) == 0 {
			return nil
		}
		if opts.OutFile != nil && isatty.IsTerminal(opts.OutFile.Fd()) {
			return pipeThroughPager(lines, colorEnabled)
		}
		return writeLines(opts.Out, lines)

	default:
		return fmt.Errorf("unsupported format: %s", opts.Format)
	}
}

func determineWidth(out *os.File, wrap int) int {
	if wrap > 0 {
		return wrap
	}
	if out != nil {
		if w, _, err := term.GetSize(int(out.Fd())); err == nil && w > 0 {
			return w
		}
	}
	if colsStr := os.Getenv("COLUMNS"); colsStr != "" {
		if v, err := strconv.Atoi(colsStr); err == nil && v > 0 {
			return v
		}
	}
	return 80
}

func pipeThroughPager(lines []string, colorEnabled bool) error {
	text := strings.Join(lines, "\n")
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	pagerCmd := os.Getenv("PAGER")
	var cmd *exec.Cmd
	if pagerCmd == "" {
		args := []string{"less"}
		if colorEnabled {
			args = append(args, "-R")
		}
		cmd = exec.Command(args[0], args[1:]...) // #nosec G204
	} else {
		cmd = exec.Command("sh", "-c", pagerCmd) // #nosec G204
	}

	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create pager pipe: %w", err)
	}
	go func() {
		defer stdin.Close()
		io.WriteString(stdin, text) //nolint:errcheck
	}()

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run pager: %w", err)
	}

	return nil
}

func writeLines(out io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

func printTraceHeader(out io.Writer, trace model.Trace, useColor bool) {
	title := fmt.Sprintf("Trace %d", trace.ID)
	if label := trace.Label(); label != "" {
		title += ": " + label
	}
	fmt.Fprintln(out, colorize(useColor, ansiBoldWhite, title))
	fmt.Fprintln(out, colorize(useColor, ansiTimestamp,
		fmt.Sprintf("%d steps, %s", len(trace.Data.Items), format.FormatClock(trace.Data.Duration()))))
}

func printStep(out io.Writer, index int, item model.TraceItem, wrap int, active bool, useColor bool) {
	headerPlain := format.StepHeader(index, item)
	header := headerPlain
	if useColor {
		header = colorize(true, agentColor(item.Agent), headerPlain)
	}
	if active {
		header = colorize(useColor, ansiActive, "▶ ") + header
	}
	fmt.Fprintln(out, header)
	fmt.Fprintln(out, strings.Repeat("-", len([]rune(headerPlain))))

	linePrefix := "| "
	emptyPrefix := "|"
	if useColor {
		separatorColor := colorize(true, ansiSeparator, "|")
		linePrefix = separatorColor + " "
		emptyPrefix = separatorColor
	}

	section := func(label string, lines []string) {
		fmt.Fprintf(out, "%s%s\n", linePrefix, colorize(useColor, ansiLabel, label))
		if len(lines) == 0 {
			fmt.Fprintf(out, "%s%s\n", linePrefix, "(no content)")
			return
		}
		for _, line := range lines {
			if line == "" {
				fmt.Fprintln(out, emptyPrefix)
				continue
			}
			fmt.Fprintf(out, "%s  %s\n", linePrefix, line)
		}
	}

	fmt.Fprintf(out, "%s%s %s\n", linePrefix, colorize(useColor, ansiLabel, "Screenshot:"), item.Screenshot)
	fmt.Fprintf(out, "%s%s %s\n", linePrefix, colorize(useColor, ansiLabel, "Video:"), item.Video)
	section("Thought:", format.RenderText(item.Thought, wrap))
	section("Action:", format.RenderText(item.Action, wrap))
}

const (
	ansiReset     = "\x1b[0m"
	ansiBoldWhite = "\x1b[1;97m"
	ansiTimestamp = "\x1b[38;5;245m"
	ansiSeparator = "\x1b[38;5;240m"
	ansiLabel     = "\x1b[38;5;75m"
	ansiActive    = "\x1b[1;38;5;42m"
	ansiPlanner   = "\x1b[38;5;220m"
	ansiExecutor  = "\x1b[38;5;44m"
	ansiAgent     = "\x1b[38;5;207m"
)

func colorize(enabled bool, code string, text string) string {
	if !enabled {
		return text
	}
	return code + text + ansiReset
}

func agentColor(agent string) string {
	switch strings.ToLower(agent) {
	case "":
		return ansiBoldWhite
	case "planner":
		return ansiPlanner
	case "executor":
		return ansiExecutor
	default:
		return ansiAgent
	}
}

func resolveColorChoice(opts Options) bool {
	if opts.ForceColor {
		return true
	}
	if opts.ForceNoColor {
		return false
	}
	return shouldUseColorAuto(opts.Out)
}

func shouldUseColorAuto(out io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
