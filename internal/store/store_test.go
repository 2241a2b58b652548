package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func traceJSON(task string) string {
	return fmt.Sprintf(`{"task":%q,"items":[{"timestamp":"2024-03-20T10:00:00Z","screenshot":"screenshots/a.png","video":"videos/a.mp4","thought":"t","action":"a","timeRange":{"start":0,"end":5}}]}`, task)
}

func memFS(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for name, body := range files {
		require.NoError(t, afero.WriteFile(fsys, name, []byte(body), 0o644))
	}
	return fsys
}

func TestLoadSparseCandidates(t *testing.T) {
	fsys := memFS(t, map[string]string{
		"data/trace5.json": traceJSON("five"),
		"data/trace1.json": traceJSON("one"),
		"data/trace3.json": traceJSON("three"),
	})

	res, err := Load(context.Background(), fsys, Options{Dir: "data", Manifest: Range(1, 20), Concurrency: 8})
	require.NoError(t, err)

	require.Len(t, res.Traces, 3)
	var ids []int
	var tasks []string
	for _, tr := range res.Traces {
		ids = append(ids, tr.ID)
		tasks = append(tasks, tr.Data.Task)
	}
	assert.Equal(t, []int{1, 3, 5}, ids)
	assert.Equal(t, []string{"one", "three", "five"}, tasks)
	assert.Len(t, res.Missing, 17)
	assert.Empty(t, res.Warnings)
}

func TestLoadIsolatesMalformedCandidate(t *testing.T) {
	fsys := memFS(t, map[string]string{
		"trace1.json": traceJSON("one"),
		"trace2.json": `{"items": [`,
		"trace3.json": "   ",
		"trace4.json": traceJSON("four"),
	})

	res, err := Load(context.Background(), fsys, Options{Manifest: Range(1, 4)})
	require.NoError(t, err)

	require.Len(t, res.Traces, 2)
	assert.Equal(t, 1, res.Traces[0].ID)
	assert.Equal(t, 4, res.Traces[1].ID)
	assert.Len(t, res.Warnings, 2)
	assert.Empty(t, res.Missing)
}

func TestLoadRewritesAssets(t *testing.T) {
	fsys := memFS(t, map[string]string{"trace1.json": traceJSON("one")})

	res, err := Load(context.Background(), fsys, Options{Manifest: Range(1, 1), BasePath: "/prefix"})
	require.NoError(t, err)
	require.Len(t, res.Traces, 1)

	item := res.Traces[0].Data.Items[0]
	assert.Equal(t, "/prefix/screenshots/a.png", item.Screenshot)
	assert.Equal(t, "/prefix/videos/a.mp4", item.Video)
}

func TestLoadManifestTitlesAndFiles(t *testing.T) {
	fsys := memFS(t, map[string]string{
		"custom.json": traceJSON("custom"),
		"trace2.json": traceJSON("two"),
	})
	m := Manifest{Traces: []ManifestEntry{
		{ID: 2, Title: "Second"},
		{ID: 7, File: "custom.json"},
		{ID: 2, Title: "Duplicate"},
	}}

	res, err := Load(context.Background(), fsys, Options{Manifest: m})
	require.NoError(t, err)
	require.Len(t, res.Traces, 2)
	assert.Equal(t, "Second", res.Traces[0].Title)
	assert.Equal(t, 7, res.Traces[1].ID)
	assert.Equal(t, "custom", res.Traces[1].Data.Task)
}

func TestLoadCancelled(t *testing.T) {
	fsys := memFS(t, map[string]string{"trace1.json": traceJSON("one")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, fsys, Options{Manifest: Range(1, 3)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadBundled(t *testing.T) {
	fsys := Bundled()
	m, found, err := ManifestOrRange(fsys, DefaultManifestName)
	require.NoError(t, err)
	assert.True(t, found)

	res, err := Load(context.Background(), fsys, Options{Manifest: m})
	require.NoError(t, err)
	require.Len(t, res.Traces, 3)
	assert.Empty(t, res.Warnings)
	for _, tr := range res.Traces {
		assert.NotEmpty(t, tr.Data.Items, "trace %d", tr.ID)
		assert.NotEmpty(t, tr.Title)
	}
}

func TestManifestOrRangeFallback(t *testing.T) {
	m, found, err := ManifestOrRange(afero.NewMemMapFs(), DefaultManifestName)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Len(t, m.IDs(), DefaultLastID)
}

func TestReadManifestInvalid(t *testing.T) {
	fsys := memFS(t, map[string]string{"manifest.yaml": "traces: [oops"})
	_, _, err := ManifestOrRange(fsys, "manifest.yaml")
	assert.Error(t, err)
}

func TestFind(t *testing.T) {
	fsys := memFS(t, map[string]string{"trace3.json": traceJSON("three")})
	res, err := Load(context.Background(), fsys, Options{Manifest: Range(1, 5)})
	require.NoError(t, err)

	tr, err := Find(res.Traces, 3)
	require.NoError(t, err)
	assert.Equal(t, "three", tr.Data.Task)

	_, err = Find(res.Traces, 4)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAssetPath(t *testing.T) {
	tests := []struct {
		base, in, want string
	}{
		{"/prefix", "screenshots/a.png", "/prefix/screenshots/a.png"},
		{"/prefix/", "/screenshots/a.png", "/prefix/screenshots/a.png"},
		{"/prefix", "http://host/a.png", "http://host/a.png"},
		{"/prefix", "HTTPS://host/a.png", "HTTPS://host/a.png"},
		{"", "videos/a.mp4", "/videos/a.mp4"},
		{"/prefix", "", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AssetPath(tt.base, tt.in), "base=%q in=%q", tt.base, tt.in)
	}
}

func TestLocalAssetAndExists(t *testing.T) {
	rel, ok := LocalAsset("/prefix", "/prefix/screenshots/a.png")
	require.True(t, ok)
	assert.Equal(t, "screenshots/a.png", rel)

	rel, ok = LocalAsset("", "/videos/a.mp4")
	require.True(t, ok)
	assert.Equal(t, "videos/a.mp4", rel)

	_, ok = LocalAsset("/prefix", "http://host/a.png")
	assert.False(t, ok)

	fsys := memFS(t, map[string]string{"screenshots/a.png": "png"})
	assert.True(t, AssetExists(fsys, "/prefix", "/prefix/screenshots/a.png"))
	assert.False(t, AssetExists(fsys, "/prefix", "/prefix/screenshots/missing.png"))
	assert.True(t, AssetExists(nil, "/prefix", "https://host/a.png"))
	assert.False(t, AssetExists(nil, "/prefix", "/prefix/screenshots/a.png"))
}
