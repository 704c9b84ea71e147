package strongbox

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/absfs/absfs"
)

// Store is the durable storage the snapshots and goal records live on.
// Any absfs.FileSystem satisfies it; memfs is used for tests and DirStore
// for a host directory.
type Store interface {
	OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error)
	Stat(name string) (os.FileInfo, error)
	MkdirAll(name string, perm os.FileMode) error
	Remove(name string) error
}

// DirStore is a Store rooted at a host directory.
type DirStore struct {
	Root string
}

// NewDirStore creates root if needed and returns a store over it.
func NewDirStore(root string) (*DirStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &DirStore{Root: root}, nil
}

func (s *DirStore) path(name string) string {
	return filepath.Join(s.Root, filepath.FromSlash(name))
}

func (s *DirStore) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	return os.OpenFile(s.path(name), flag, perm)
}

func (s *DirStore) Stat(name string) (os.FileInfo, error) {
	return os.Stat(s.path(name))
}

func (s *DirStore) MkdirAll(name string, perm os.FileMode) error {
	return os.MkdirAll(s.path(name), perm)
}

func (s *DirStore) Remove(name string) error {
	return os.Remove(s.path(name))
}

// storePath anchors a store-relative name at "/".
func storePath(elem ...string) string {
	return path.Join(append([]string{"/"}, elem...)...)
}

// readFile reads a whole file from the store.
func readFile(store Store, name string) ([]byte, error) {
	f, err := store.OpenFile(name, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

// writeFile replaces a file on the store in one scoped open, write, sync
// and close.
func writeFile(store Store, name string, data []byte) error {
	f, err := store.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// listDir returns the names inside a store directory.
func listDir(store Store, dir string) ([]string, error) {
	f, err := store.OpenFile(dir, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return f.Readdirnames(-1)
}
