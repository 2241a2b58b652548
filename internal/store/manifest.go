package store

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// DefaultManifestName is the manifest file looked up inside a data directory.
const DefaultManifestName = "manifest.yaml"

// Default candidate range used when a data directory has no manifest.
const (
	DefaultFirstID = 1
	DefaultLastID  = 20
)

// ManifestEntry names one trace file.
type ManifestEntry struct {
	ID    int    `yaml:"id"`
	Title string `yaml:"title,omitempty"`
	// File overrides the default trace<ID>.json name.
	File string `yaml:"file,omitempty"`
}

func (e ManifestEntry) fileName() string {
	if e.File != "" {
		return e.File
	}
	return fmt.Sprintf("trace%d.json", e.ID)
}

// Manifest lists the trace identifiers available in a data directory.
type Manifest struct {
	Traces []ManifestEntry `yaml:"traces"`
}

// Range returns a manifest with one candidate per identifier in [lo, hi].
func Range(lo, hi int) Manifest {
	var m Manifest
	for id := lo; id <= hi; id++ {
		m.Traces = append(m.Traces, ManifestEntry{ID: id})
	}
	return m
}

// IDs returns the manifest identifiers in ascending order.
func (m Manifest) IDs() []int {
	entries := m.normalized()
	ids := make([]int, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids
}

// normalized drops non-positive and duplicate identifiers and sorts the rest.
// The first entry wins when an identifier repeats.
func (m Manifest) normalized() []ManifestEntry {
	seen := make(map[int]struct{}, len(m.Traces))
	out := make([]ManifestEntry, 0, len(m.Traces))
	for _, e := range m.Traces {
		if e.ID <= 0 {
			continue
		}
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ReadManifest decodes a YAML manifest from fsys.
func ReadManifest(fsys afero.Fs, path string) (Manifest, error) {
	raw, err := afero.ReadFile(fsys, path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return m, nil
}

// ManifestOrRange reads the manifest at path, falling back to the default
// candidate range when the file does not exist.
func ManifestOrRange(fsys afero.Fs, path string) (Manifest, bool, error) {
	m, err := ReadManifest(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return Range(DefaultFirstID, DefaultLastID), false, nil
	}
	if err != nil {
		return Manifest{}, false, err
	}
	return m, true, nil
}
