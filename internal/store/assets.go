package store

import (
	"strings"

	"cuatrace/internal/model"

	"github.com/spf13/afero"
)

// RewriteAssetPaths returns a copy of data whose screenshot and video paths are
// rooted at basePath. Absolute URLs and empty paths are left unchanged.
func RewriteAssetPaths(data model.TraceData, basePath string) model.TraceData {
	out := model.TraceData{Task: data.Task}
	if data.Items == nil {
		return out
	}
	out.Items = make([]model.TraceItem, len(data.Items))
	for i, item := range data.Items {
		item.Screenshot = AssetPath(basePath, item.Screenshot)
		item.Video = AssetPath(basePath, item.Video)
		out.Items[i] = item
	}
	return out
}

// AssetPath joins basePath and p, inserting a single slash between them.
func AssetPath(basePath, p string) string {
	if p == "" || IsAbsoluteURL(p) {
		return p
	}
	base := strings.TrimRight(basePath, "/")
	if strings.HasPrefix(p, "/") {
		return base + p
	}
	return base + "/" + p
}

// IsAbsoluteURL reports whether p carries an http or https scheme.
func IsAbsoluteURL(p string) bool {
	lower := strings.ToLower(p)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// LocalAsset maps a rewritten asset path back to a path relative to the data
// directory. It returns false for absolute URLs and empty paths.
func LocalAsset(basePath, p string) (string, bool) {
	if p == "" || IsAbsoluteURL(p) {
		return "", false
	}
	base := strings.TrimRight(basePath, "/")
	if base != "" && strings.HasPrefix(p, base+"/") {
		p = strings.TrimPrefix(p, base)
	}
	rel := strings.TrimLeft(p, "/")
	if rel == "" {
		return "", false
	}
	return rel, true
}

// AssetExists reports whether a rewritten asset path is available. Absolute
// URLs are assumed reachable; local paths are checked inside fsys.
func AssetExists(fsys afero.Fs, basePath, p string) bool {
	if IsAbsoluteURL(p) {
		return true
	}
	rel, ok := LocalAsset(basePath, p)
	if !ok || fsys == nil {
		return false
	}
	exists, err := afero.Exists(fsys, rel)
	return err == nil && exists
}
