package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cuatrace/internal/model"
	"cuatrace/internal/store"

	"github.com/spf13/afero"
)

const sampleTrace = `{"task":"open notes","items":[
{"timestamp":"2024-03-20T10:00:00Z","screenshot":"shots/1.png","video":"videos/1.mp4","thought":"find the app","action":"click","timeRange":{"start":0,"end":4}},
{"timestamp":"2024-03-20T10:00:04Z","screenshot":"shots/2.png","video":"videos/1.mp4","thought":"type","action":"type","timeRange":{"start":4,"end":9}}]}`

const overlappingTrace = `{"task":"bad","items":[
{"timestamp":"2024-03-20T10:00:00Z","screenshot":"a.png","video":"v.mp4","thought":"a","action":"a","timeRange":{"start":0,"end":10}},
{"timestamp":"2024-03-20T10:00:05Z","screenshot":"b.png","video":"v.mp4","thought":"b","action":"b","timeRange":{"start":5,"end":15}}]}`

func testData(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for name, body := range files {
		if err := afero.WriteFile(fsys, name, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return fsys
}

func execute(t *testing.T, fsys afero.Fs, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd(&app{dataFs: fsys})
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestListPlain(t *testing.T) {
	fsys := testData(t, map[string]string{
		"trace1.json": sampleTrace,
		"trace3.json": sampleTrace,
	})
	out, errOut, err := execute(t, fsys, "list", "--format", "plain", "--verbose")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got %q", out)
	}
	if lines[0] != "id\tsteps\tduration\tagents\ttitle" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if lines[1] != "1\t2\t00:09\t\topen notes" || !strings.HasPrefix(lines[2], "3\t") {
		t.Fatalf("unexpected rows: %q", lines[1:])
	}
	if !strings.Contains(errOut, "missing: 2, 4, 5") {
		t.Fatalf("expected missing ids in stderr, got %q", errOut)
	}
}

func TestListReportsMalformedTrace(t *testing.T) {
	fsys := testData(t, map[string]string{
		"trace1.json": sampleTrace,
		"trace2.json": "{",
	})
	out, errOut, err := execute(t, fsys, "list", "--format", "jsonl")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("expected one jsonl row, got %q", out)
	}
	if !strings.Contains(errOut, "warning:") {
		t.Fatalf("expected a warning, got %q", errOut)
	}
}

func TestViewJSONAppliesBasePath(t *testing.T) {
	fsys := testData(t, map[string]string{"trace1.json": sampleTrace})
	out, _, err := execute(t, fsys, "view", "1", "--format", "json", "--base-path", "/demo")
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}

	var data model.TraceData
	if err := json.Unmarshal([]byte(out), &data); err != nil {
		t.Fatalf("decode view output: %v\n%s", err, out)
	}
	if got := data.Items[0].Screenshot; got != "/demo/shots/1.png" {
		t.Fatalf("screenshot not rewritten: %q", got)
	}
}

func TestViewTextMarksActiveStep(t *testing.T) {
	fsys := testData(t, map[string]string{"trace1.json": sampleTrace})
	out, _, err := execute(t, fsys, "view", "1", "--at", "5", "--no-color")
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
	if !strings.Contains(out, "▶ #02") {
		t.Fatalf("expected step 2 to be marked active:\n%s", out)
	}
}

func TestViewUnknownTrace(t *testing.T) {
	fsys := testData(t, map[string]string{"trace1.json": sampleTrace})
	_, _, err := execute(t, fsys, "view", "9")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, _, err = execute(t, fsys, "view", "one")
	if err == nil || !strings.Contains(err.Error(), "invalid trace id") {
		t.Fatalf("expected invalid id error, got %v", err)
	}
}

func TestViewRejectsColorConflict(t *testing.T) {
	_, _, err := execute(t, afero.NewMemMapFs(), "view", "1", "--color", "--no-color")
	if err == nil {
		t.Fatal("expected an error for --color with --no-color")
	}
}

func TestValidate(t *testing.T) {
	fsys := testData(t, map[string]string{
		"trace1.json": sampleTrace,
		"trace2.json": overlappingTrace,
	})

	out, _, err := execute(t, fsys, "validate", "1")
	if err != nil {
		t.Fatalf("validate 1 failed: %v", err)
	}
	if out != "trace 1: ok\n" {
		t.Fatalf("unexpected output: %q", out)
	}

	out, _, err = execute(t, fsys, "validate")
	if err == nil {
		t.Fatal("expected validation to fail")
	}
	if !strings.Contains(out, "trace 2: overlap: item 1: [5, 15) overlaps previous [0, 10)") {
		t.Fatalf("overlap not reported:\n%s", out)
	}
}

func TestInvalidConfigRejected(t *testing.T) {
	_, _, err := execute(t, afero.NewMemMapFs(), "list", "--base-path", "relative")
	if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Fatalf("expected invalid configuration, got %v", err)
	}
}

func TestExportBundled(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "site")
	cmd := newRootCmd(&app{})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"export", "--out", dir, "--title", "Demo"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	if !strings.Contains(out.String(), "exported 3 traces") {
		t.Fatalf("unexpected output: %q", out.String())
	}
	html, err := os.ReadFile(filepath.Join(dir, "index.html"))
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	if !strings.Contains(string(html), "<title>Demo</title>") {
		t.Fatal("title missing from exported page")
	}
	if _, err := os.Stat(filepath.Join(dir, "traces.json")); err != nil {
		t.Fatalf("traces.json missing: %v", err)
	}
}

func TestExportWatchNeedsDataDir(t *testing.T) {
	cmd := newRootCmd(&app{})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"export", "--out", t.TempDir(), "--watch"})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "--data-dir") {
		t.Fatalf("expected --data-dir error, got %v", err)
	}
}
