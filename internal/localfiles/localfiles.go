// Package localfiles inventories what a download or conversion left on disk.
package localfiles

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/hf-pick/internal/storage"
)

// File is one regular file found under the walked directory.
type File struct {
	Path string `json:"path" yaml:"path"`
	Size int64  `json:"size" yaml:"size"`
	GGUF bool   `json:"gguf" yaml:"gguf"`
}

// Inventory is the sorted result of a walk.
type Inventory struct {
	Root  string `json:"root" yaml:"root"`
	Files []File `json:"files" yaml:"files"`
}

// TotalSize sums the size of every file.
func (inv Inventory) TotalSize() int64 {
	var n int64
	for _, f := range inv.Files {
		n += f.Size
	}
	return n
}

// GGUFCount returns how many files carry the .gguf suffix.
func (inv Inventory) GGUFCount() int {
	n := 0
	for _, f := range inv.Files {
		if f.GGUF {
			n++
		}
	}
	return n
}

//nolint:gochecknoglobals // immutable lookup table used across the package.
var (
	// skipDirs hold tool caches and VCS metadata rather than model files.
	skipDirs = []string{
		".git",
		".cache",
		".huggingface",
		"__pycache__",
	}

	// skipFiles are bookkeeping files written next to the model.
	skipFiles = []string{
		storage.ManifestName,
		".gitattributes",
	}
)

// Walk lists every regular file under root, relative to root and sorted by path.
func Walk(ctx context.Context, root string) (Inventory, error) {
	expanded, err := ExpandPath(root)
	if err != nil {
		return Inventory{}, err
	}
	if _, err := os.Stat(expanded); err != nil {
		return Inventory{}, err
	}

	files, err := collectFiles(ctx, expanded)
	if err != nil {
		return Inventory{}, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return Inventory{Root: expanded, Files: files}, nil
}

// collectFiles walks root with fastwalk. The callback runs on fastwalk's
// workers, so appends are serialized by mu.
func collectFiles(ctx context.Context, root string) ([]File, error) {
	var (
		mu    sync.Mutex
		files = []File{}
	)
	conf := fastwalk.DefaultConfig
	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip unreadable entries.
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && inList(name, skipDirs) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || inList(name, skipFiles) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			logrus.Debugf("stat %s: %v", path, err)
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		f := File{
			Path: filepath.ToSlash(rel),
			Size: info.Size(),
			GGUF: strings.HasSuffix(strings.ToLower(name), ".gguf"),
		}
		mu.Lock()
		files = append(files, f)
		mu.Unlock()
		return nil
	})
	if cerr := ctx.Err(); cerr != nil {
		return nil, cerr
	}
	if err != nil {
		logrus.Debugf("walk %s: %v", root, err)
	}
	return files, nil
}

func inList(name string, list []string) bool {
	for _, s := range list {
		if strings.EqualFold(name, s) {
			return true
		}
	}
	return false
}

// ExpandPath expands a leading tilde and environment variables.
func ExpandPath(path string) (string, error) {
	var err error

	if runtime.GOOS != "windows" {
		path, err = storage.ExpandTilde(path)
		if err != nil {
			return "", err
		}
	}

	path = os.ExpandEnv(path)

	return filepath.Clean(path), nil
}
