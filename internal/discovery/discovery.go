// Package discovery finds the source documents under a root directory.
package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Result lists eligible files in walk order with a count per extension.
type Result struct {
	Files       []string
	ByExtension map[string]int
}

// Walker filters files by extension: the deny-list is checked before the allow-list.
type Walker struct {
	allow  map[string]bool
	deny   map[string]bool
	logger *zap.Logger
	dirFS  func(root string) fs.FS
}

// WalkerOption configures a Walker.
type WalkerOption func(*Walker)

// WithLogger sets the logger that reports skipped subtrees.
func WithLogger(l *zap.Logger) WalkerOption {
	return func(w *Walker) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWalker builds a walker from extension lists. Extensions are matched
// case-insensitively, with or without a leading dot.
func NewWalker(allowed, denied []string, opts ...WalkerOption) *Walker {
	w := &Walker{
		allow:  extSet(allowed),
		deny:   extSet(denied),
		logger: zap.NewNop(),
		dirFS:  os.DirFS,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func extSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		set[normalizeExt(e)] = true
	}
	return set
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Accept reports whether path has an eligible extension.
func (w *Walker) Accept(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if w.deny[ext] {
		return false
	}
	return w.allow[ext]
}

// Walk returns every eligible regular file under root. The order is lexical by
// path, so the same tree always yields the same list. A subdirectory or file that
// cannot be read is logged and skipped; only an unreadable root fails the walk.
func (w *Walker) Walk(root string) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat documents dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", root)
	}
	res := &Result{ByExtension: make(map[string]int)}
	err = fs.WalkDir(w.dirFS(root), ".", func(rel string, d fs.DirEntry, walkErr error) error {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if walkErr != nil {
			if rel == "." {
				return walkErr
			}
			w.logger.Warn("skipping unreadable path", zap.String("path", path), zap.Error(walkErr))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !w.Accept(path) {
			return nil
		}
		// Resolve symlinks so only regular files are returned.
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		res.Files = append(res.Files, path)
		res.ByExtension[strings.ToLower(filepath.Ext(path))]++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(res.Files)
	return res, nil
}

// Extensions returns the counted extensions in sorted order.
func (r *Result) Extensions() []string {
	exts := make([]string, 0, len(r.ByExtension))
	for ext := range r.ByExtension {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
