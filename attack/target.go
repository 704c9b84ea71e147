package attack

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"syscall"

	"github.com/absfs/strongbox"
)

// Target is the filesystem under attack. *strongbox.FS implements it
// in-process; HostTarget implements it over a mounted directory.
type Target interface {
	Stat(path string) (strongbox.Attributes, error)
	List(path string) ([]string, error)
	Read(path string, size int, offset int64) ([]byte, error)
	Write(path string, buf []byte, offset int64) (int, error)
}

// Snapshots is keyless access to the durable snapshot pair.
// *strongbox.SnapshotFiles implements it.
type Snapshots interface {
	Plaintext() ([]byte, error)
	Cipher() ([]byte, error)
	WritePlaintext(b []byte) error
	WriteCipher(b []byte) error
}

var (
	_ Target    = (*strongbox.FS)(nil)
	_ Target    = (*HostTarget)(nil)
	_ Snapshots = (*strongbox.SnapshotFiles)(nil)
)

// HostTarget reaches a filesystem through a host mountpoint with plain
// file I/O, the same way any unprivileged process would.
type HostTarget struct {
	Root string
}

func (h *HostTarget) host(p string) string {
	return filepath.Join(h.Root, filepath.FromSlash(p))
}

func mapHostError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return errors.Join(strongbox.ErrNotFound, err)
	case errors.Is(err, fs.ErrInvalid):
		return errors.Join(strongbox.ErrInvalid, err)
	case errors.Is(err, syscall.EFBIG):
		return errors.Join(strongbox.ErrTooLarge, err)
	case errors.Is(err, syscall.EISDIR):
		return errors.Join(strongbox.ErrIsDirectory, err)
	}
	return err
}

func (h *HostTarget) Stat(p string) (strongbox.Attributes, error) {
	fi, err := os.Stat(h.host(p))
	if err != nil {
		return strongbox.Attributes{}, mapHostError(err)
	}
	attr := strongbox.Attributes{Mode: fi.Mode(), Nlink: 1, Size: fi.Size()}
	return attr, nil
}

func (h *HostTarget) List(p string) ([]string, error) {
	entries, err := os.ReadDir(h.host(p))
	if err != nil {
		return nil, mapHostError(err)
	}
	names := []string{".", ".."}
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

func (h *HostTarget) Read(p string, size int, offset int64) ([]byte, error) {
	f, err := os.Open(h.host(p))
	if err != nil {
		return nil, mapHostError(err)
	}
	defer f.Close()

	buf := make([]byte, size)
	n, err := f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, mapHostError(err)
	}
	return buf[:n], nil
}

func (h *HostTarget) Write(p string, buf []byte, offset int64) (int, error) {
	f, err := os.OpenFile(h.host(p), os.O_WRONLY, 0)
	if err != nil {
		return 0, mapHostError(err)
	}
	n, err := f.WriteAt(buf, offset)
	if err != nil {
		f.Close()
		return n, mapHostError(err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return n, mapHostError(err)
	}
	return n, f.Close()
}

// Files lists every regular file reachable from "/" in listing order.
func Files(t Target) ([]string, error) {
	var files []string
	var visit func(dir string) error
	visit = func(dir string) error {
		names, err := t.List(dir)
		if err != nil {
			return err
		}
		for _, name := range names {
			if name == "." || name == ".." {
				continue
			}
			p := path.Join(dir, name)
			attr, err := t.Stat(p)
			if err != nil {
				return err
			}
			if attr.IsDir() {
				if err := visit(p); err != nil {
					return err
				}
				continue
			}
			files = append(files, p)
		}
		return nil
	}
	if err := visit("/"); err != nil {
		return nil, err
	}
	return files, nil
}
