// Package store loads trace files and exposes them as an immutable, ordered list.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"

	"cuatrace/internal/model"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// ErrNotFound is returned when a trace identifier is not part of a load result.
var ErrNotFound = errors.New("trace not found")

// DefaultConcurrency bounds how many candidate files are read at once.
const DefaultConcurrency = 4

// Options controls how traces are loaded.
type Options struct {
	// Dir is the directory inside the filesystem holding trace files.
	Dir string
	// Manifest lists the candidates to load. An empty manifest loads nothing.
	Manifest Manifest
	// BasePath is prefixed to relative screenshot and video paths.
	BasePath string
	// Concurrency bounds parallel reads. Zero means DefaultConcurrency.
	Concurrency int
}

// LoadResult contains the loaded traces and non-fatal warnings.
type LoadResult struct {
	Traces []model.Trace
	// Missing lists the candidate identifiers that had no file.
	Missing  []int
	Warnings []error
}

type slot struct {
	trace   *model.Trace
	missing bool
	warn    error
}

// Load reads every manifest candidate from fsys. A missing or malformed candidate
// never aborts the others; it is excluded and reported in the result. Traces are
// returned ordered by identifier regardless of completion order.
func Load(ctx context.Context, fsys afero.Fs, opts Options) (LoadResult, error) {
	if fsys == nil {
		return LoadResult{}, errors.New("filesystem is required")
	}
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	entries := opts.Manifest.normalized()
	slots := make([]slot, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(dir, entry.fileName())
			trace, err := readTrace(fsys, path)
			switch {
			case errors.Is(err, fs.ErrNotExist):
				slog.Debug("trace candidate absent", "id", entry.ID, "path", path)
				slots[i] = slot{missing: true}
			case err != nil:
				slog.Debug("trace candidate skipped", "id", entry.ID, "path", path, "error", err)
				slots[i] = slot{warn: fmt.Errorf("trace %d: %w", entry.ID, err)}
			default:
				trace.ID = entry.ID
				trace.Title = entry.Title
				trace.Data = RewriteAssetPaths(trace.Data, opts.BasePath)
				slots[i] = slot{trace: trace}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return LoadResult{}, err
	}

	var result LoadResult
	for i, s := range slots {
		switch {
		case s.trace != nil:
			result.Traces = append(result.Traces, *s.trace)
		case s.missing:
			result.Missing = append(result.Missing, entries[i].ID)
		case s.warn != nil:
			result.Warnings = append(result.Warnings, s.warn)
		}
	}

	sort.Slice(result.Traces, func(i, j int) bool {
		return result.Traces[i].ID < result.Traces[j].ID
	})
	sort.Ints(result.Missing)

	slog.Debug("traces loaded", "loaded", len(result.Traces), "missing", len(result.Missing), "warnings", len(result.Warnings))
	return result, nil
}

func readTrace(fsys afero.Fs, path string) (*model.Trace, error) {
	raw, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("decode %s: empty file", path)
	}

	var data model.TraceData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &model.Trace{Path: path, Data: data}, nil
}

// Find returns the trace with the given identifier.
func Find(traces []model.Trace, id int) (model.Trace, error) {
	for _, trace := range traces {
		if trace.ID == id {
			return trace, nil
		}
	}
	return model.Trace{}, fmt.Errorf("trace %d: %w", id, ErrNotFound)
}
