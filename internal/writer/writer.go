// Package writer persists fetched bytes under collision-safe names.
//
// Name claims are tracked in memory for the whole run, so two workers that
// derive the same file name never race on the filesystem: the second claim
// resolves to a suffixed name before either file exists. Writes go to a
// temporary file in the target directory and are renamed into place, so a
// partially-written file is never visible under its final name.
package writer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/segmentio/ksuid"
)

// Writer writes downloaded files into a single output directory.
type Writer struct {
	dir       string
	overwrite bool

	mu      sync.Mutex
	claimed map[string]struct{}
}

// New creates a writer for dir. When overwrite is set, files already on disk
// from earlier runs may be replaced; names claimed within this run still get
// collision suffixes.
func New(dir string, overwrite bool) *Writer {
	return &Writer{
		dir:       dir,
		overwrite: overwrite,
		claimed:   make(map[string]struct{}),
	}
}

// EnsureDir verifies the output directory precondition before any worker
// starts: the path exists (or is created when create is set), is a
// directory, and is writable.
func EnsureDir(dir string, create bool) error {
	info, err := os.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf("output path %s is not a directory", dir)
		}
	case os.IsNotExist(err):
		if !create {
			return fmt.Errorf("output directory %s does not exist", dir)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	default:
		return fmt.Errorf("stat output directory: %w", err)
	}

	probe, err := os.CreateTemp(dir, ".jpegbatch-probe-*")
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	probe.Close()
	return os.Remove(probe.Name())
}

// Write stores data under name, resolving collisions with numeric suffixes.
// It returns the final path of the written file.
func (w *Writer) Write(name string, data []byte) (string, error) {
	final := w.claim(name)
	dest := filepath.Join(w.dir, final)

	tmp := filepath.Join(w.dir, "."+ksuid.New().String()+".part")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("finalize %s: %w", final, err)
	}

	return dest, nil
}

// claim reserves an unused name, consulting both the in-run claim set and
// the filesystem (unless overwriting is allowed).
func (w *Writer) claim(name string) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	stem := strings.TrimSuffix(name, filepath.Ext(name))
	ext := filepath.Ext(name)

	candidate := name
	for n := 1; ; n++ {
		if w.available(candidate) {
			w.claimed[candidate] = struct{}{}
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d%s", stem, n, ext)
	}
}

func (w *Writer) available(name string) bool {
	if _, taken := w.claimed[name]; taken {
		return false
	}
	if w.overwrite {
		return true
	}
	_, err := os.Stat(filepath.Join(w.dir, name))
	return os.IsNotExist(err)
}
