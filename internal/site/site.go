// Package site exports traces as a static web page with a synchronized video
// timeline per trace and carousel navigation between traces.
package site

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"cuatrace/internal/carousel"
	"cuatrace/internal/format"
	"cuatrace/internal/model"
	"cuatrace/internal/store"

	"github.com/spf13/afero"
)

// Output file names.
const (
	IndexFile  = "index.html"
	TracesFile = "traces.json"
)

// DefaultTitle is used when Options.Title is empty.
const DefaultTitle = "Agent traces"

// Options configures an export.
type Options struct {
	// OutDir is the output directory inside the target filesystem.
	OutDir string
	// BasePath is the prefix the loader applied to asset paths.
	BasePath string
	// Assets is the data filesystem local assets are copied from. Nil skips copying.
	Assets           afero.Fs
	Title            string
	Autoplay         bool
	AutoplayInterval time.Duration
	SettleDuration   time.Duration
}

// Result describes what an export wrote.
type Result struct {
	Files   []string
	Copied  int
	Missing []string
}

type pageConfig struct {
	Autoplay   bool  `json:"autoplay"`
	AutoplayMs int64 `json:"autoplayMs"`
	SettleMs   int64 `json:"settleMs"`
}

type pageStep struct {
	Index      int
	Header     string
	Screenshot string
	Thought    string
	Action     string
	Start      float64
	End        float64
}

type pageTrace struct {
	ID    int
	Label string
	Video string
	Steps []pageStep
}

type page struct {
	Title  string
	Config pageConfig
	Traces []pageTrace
}

var tmpl = template.Must(template.New("site").Parse(pageTemplate))

// Export writes index.html, traces.json and the referenced local assets to
// opts.OutDir inside out.
func Export(ctx context.Context, out afero.Fs, traces []model.Trace, opts Options) (Result, error) {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if opts.AutoplayInterval <= 0 {
		opts.AutoplayInterval = carousel.DefaultAutoplayInterval
	}
	if opts.SettleDuration < 0 {
		opts.SettleDuration = carousel.DefaultSettleDuration
	}
	if opts.OutDir == "" {
		opts.OutDir = "."
	}

	if err := out.MkdirAll(opts.OutDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output dir: %w", err)
	}

	var res Result

	var html bytes.Buffer
	if err := tmpl.ExecuteTemplate(&html, "page", buildPage(traces, opts)); err != nil {
		return Result{}, fmt.Errorf("render page: %w", err)
	}
	indexPath := path.Join(opts.OutDir, IndexFile)
	if err := afero.WriteFile(out, indexPath, html.Bytes(), 0o644); err != nil {
		return Result{}, fmt.Errorf("write %s: %w", IndexFile, err)
	}
	res.Files = append(res.Files, indexPath)

	data, err := json.MarshalIndent(traces, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("encode traces: %w", err)
	}
	tracesPath := path.Join(opts.OutDir, TracesFile)
	if err := afero.WriteFile(out, tracesPath, append(data, '\n'), 0o644); err != nil {
		return Result{}, fmt.Errorf("write %s: %w", TracesFile, err)
	}
	res.Files = append(res.Files, tracesPath)

	if opts.Assets == nil {
		return res, nil
	}
	for _, rel := range localAssets(traces, opts.BasePath) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		copied, err := copyAsset(opts.Assets, out, rel, path.Join(opts.OutDir, rel))
		if err != nil {
			return res, err
		}
		if !copied {
			slog.Debug("asset unavailable", "path", rel)
			res.Missing = append(res.Missing, rel)
			continue
		}
		res.Copied++
	}
	return res, nil
}

func buildPage(traces []model.Trace, opts Options) page {
	p := page{
		Title: opts.Title,
		Config: pageConfig{
			Autoplay:   opts.Autoplay,
			AutoplayMs: opts.AutoplayInterval.Milliseconds(),
			SettleMs:   opts.SettleDuration.Milliseconds(),
		},
	}
	for _, tr := range traces {
		pt := pageTrace{ID: tr.ID, Label: tr.Label()}
		if pt.Label == "" {
			pt.Label = fmt.Sprintf("Trace %d", tr.ID)
		}
		for idx, item := range tr.Data.Items {
			if pt.Video == "" {
				pt.Video = item.Video
			}
			pt.Steps = append(pt.Steps, pageStep{
				Index:      idx,
				Header:     format.StepHeader(idx, item),
				Screenshot: item.Screenshot,
				Thought:    strings.Join(format.RenderText(item.Thought, 0), "\n"),
				Action:     strings.Join(format.RenderText(item.Action, 0), "\n"),
				Start:      item.TimeRange.Start,
				End:        item.TimeRange.End,
			})
		}
		p.Traces = append(p.Traces, pt)
	}
	return p
}

// localAssets returns the distinct data-relative paths of every local screenshot
// and video, sorted.
func localAssets(traces []model.Trace, basePath string) []string {
	seen := make(map[string]struct{})
	for _, tr := range traces {
		for _, item := range tr.Data.Items {
			for _, p := range []string{item.Screenshot, item.Video} {
				if rel, ok := store.LocalAsset(basePath, p); ok {
					seen[path.Clean(rel)] = struct{}{}
				}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for rel := range seen {
		if rel == "." || strings.HasPrefix(rel, "../") {
			continue
		}
		out = append(out, rel)
	}
	sort.Strings(out)
	return out
}

func copyAsset(src, dst afero.Fs, from, to string) (bool, error) {
	in, err := src.Open(from)
	if err != nil {
		return false, nil
	}
	defer in.Close()

	if info, err := in.Stat(); err != nil || info.IsDir() {
		return false, nil
	}
	if err := dst.MkdirAll(path.Dir(to), 0o755); err != nil {
		return false, fmt.Errorf("create asset dir: %w", err)
	}
	f, err := dst.Create(to)
	if err != nil {
		return false, fmt.Errorf("create asset %s: %w", to, err)
	}
	if _, err := io.Copy(f, in); err != nil {
		f.Close()
		return false, fmt.Errorf("copy asset %s: %w", from, err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("close asset %s: %w", to, err)
	}
	return true, nil
}
