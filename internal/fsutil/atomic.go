package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	DefaultDirPerm  os.FileMode = 0o755
	DefaultFilePerm os.FileMode = 0o644
)

var ErrAtomicWrite = errors.New("atomic write failed")

type FileOptions struct {
	DirPerm  os.FileMode
	FilePerm os.FileMode
}

func (o FileOptions) normalize() FileOptions {
	if o.DirPerm == 0 {
		o.DirPerm = DefaultDirPerm
	}
	if o.FilePerm == 0 {
		o.FilePerm = DefaultFilePerm
	}
	return o
}

func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = DefaultDirPerm
	}
	if err := os.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("ensure dir %s: %w", path, err)
	}
	return nil
}

// WriteAtomic replaces path with content. The data goes to a temp sibling that
// is fsynced before being renamed over path, so readers see either the old
// file or the complete new one.
func WriteAtomic(path string, content []byte, opts FileOptions) error {
	opts = opts.normalize()
	dir := filepath.Dir(path)
	if err := EnsureDir(dir, opts.DirPerm); err != nil {
		return fmt.Errorf("%w: %v", ErrAtomicWrite, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %v", ErrAtomicWrite, path, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("%w: write temp for %s: %v", ErrAtomicWrite, path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync temp for %s: %v", ErrAtomicWrite, path, err)
	}
	if err := tmp.Chmod(opts.FilePerm); err != nil {
		return fmt.Errorf("%w: chmod temp for %s: %v", ErrAtomicWrite, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp for %s: %v", ErrAtomicWrite, path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: rename temp for %s: %v", ErrAtomicWrite, path, err)
	}
	committed = true

	// Best effort: persist the directory entry too.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
