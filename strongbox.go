package strongbox

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Directory attributes match what a small ext-style directory reports.
const dirSize = 4096

// FS is the in-memory filesystem. Its tree shape and file windows are
// fixed once seeded; only contents change.
//
// Every Read, Write and Truncate first restores the arena from the last
// committed plaintext snapshot, so edits that were never committed are
// discarded before any access is served.
type FS struct {
	mu        sync.Mutex
	config    *Config
	tree      *tree
	backend   *backend
	mirror    *Mirror
	log       logrus.FieldLogger
	committed bool
}

// New creates an empty filesystem mirrored through m.
func New(config *Config, m *Mirror, log logrus.FieldLogger) (*FS, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNilStore
	}
	if log == nil {
		log = discardLogger()
	}
	return &FS{
		config:  config,
		tree:    newTree(),
		backend: &backend{},
		mirror:  m,
		log:     log,
	}, nil
}

// Open builds the cipher, snapshot files and mirror for store and returns
// an empty filesystem over them.
func Open(store Store, config *Config, key *CipherKey, log logrus.FieldLogger) (*FS, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	cipher, err := NewArenaCipher(key)
	if err != nil {
		return nil, err
	}
	files, err := NewSnapshotFiles(store, config)
	if err != nil {
		return nil, err
	}
	m, err := NewMirror(files, cipher, log)
	if err != nil {
		return nil, err
	}
	return New(config, m, log)
}

// Config returns the configuration the filesystem was built with.
func (f *FS) Config() *Config {
	return f.config
}

// Mirror returns the snapshot mirror backing the filesystem.
func (f *FS) Mirror() *Mirror {
	return f.mirror
}

func (f *FS) attributes(id nodeID) Attributes {
	n := f.tree.get(id)
	if n.dir {
		return Attributes{
			Mode:  os.ModeDir | 0755,
			Nlink: len(n.order) + 2,
			Size:  dirSize,
		}
	}
	return Attributes{
		Mode:  0666,
		Nlink: 1,
		Size:  int64(n.window.Length),
	}
}

// resolveFile resolves path and requires a file.
func (f *FS) resolveFile(op, path string) (*node, error) {
	id, err := f.tree.resolve(path)
	if err != nil {
		return nil, newPathError(op, path, err)
	}
	n := f.tree.get(id)
	if n.dir {
		return nil, newPathError(op, path, ErrIsDirectory)
	}
	return n, nil
}

// restore reloads the committed snapshot. Before the first commit there is
// nothing durable yet, so the current arena becomes the baseline.
func (f *FS) restore(op, path string) error {
	if !f.committed {
		if err := f.commit(); err != nil {
			return newPathError(op, path, err)
		}
		return nil
	}
	if err := f.mirror.Restore(f.backend); err != nil {
		return newPathError(op, path, err)
	}
	return nil
}

func (f *FS) commit() error {
	if err := f.mirror.Commit(f.backend.bytes()); err != nil {
		return err
	}
	f.committed = true
	return nil
}

// Commit persists the arena as the new durable snapshot pair.
func (f *FS) Commit() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.commit()
}

// Stat returns the attributes of path.
func (f *FS) Stat(path string) (Attributes, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id, err := f.tree.resolve(path)
	if err != nil {
		return Attributes{}, newPathError("stat", path, err)
	}
	return f.attributes(id), nil
}

// List returns the entries of a directory, "." and ".." first.
func (f *FS) List(path string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id, err := f.tree.resolve(path)
	if err != nil {
		return nil, newPathError("list", path, err)
	}
	if !f.tree.get(id).dir {
		return nil, newPathError("list", path, ErrNotDirectory)
	}
	return f.tree.entries(id), nil
}

// OpenCheck reports whether path can be opened as a file.
func (f *FS) OpenCheck(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, err := f.resolveFile("open", path)
	return err
}

// Read returns up to size bytes of path starting at offset. Reads are
// clamped to the file's fixed length and return nothing past its end.
func (f *FS) Read(path string, size int, offset int64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.restore("read", path); err != nil {
		return nil, err
	}
	n, err := f.resolveFile("read", path)
	if err != nil {
		return nil, err
	}
	if err := ValidateSize(size, "size"); err != nil {
		return nil, newPathError("read", path, err)
	}
	if err := ValidateOffset(offset, "offset"); err != nil {
		return nil, newPathError("read", path, err)
	}

	data, err := f.backend.read(n.window, size, offset)
	if err != nil {
		return nil, newPathError("read", path, err)
	}
	f.log.WithFields(logrus.Fields{"path": path, "offset": offset, "bytes": len(data)}).Debug("read")
	return data, nil
}

// Write copies buf into path at offset and commits. Files never grow: a
// write that starts at or past the end, or runs past it, is ErrTooLarge.
func (f *FS) Write(path string, buf []byte, offset int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.restore("write", path); err != nil {
		return 0, err
	}
	n, err := f.resolveFile("write", path)
	if err != nil {
		return 0, err
	}
	if err := ValidateOffset(offset, "offset"); err != nil {
		return 0, newPathError("write", path, err)
	}
	size := int64(n.window.Length)
	if offset >= size || offset+int64(len(buf)) > size {
		return 0, newPathError("write", path, ErrTooLarge)
	}

	if err := f.backend.write(n.window, buf, offset); err != nil {
		return 0, newPathError("write", path, err)
	}
	if err := f.commit(); err != nil {
		return 0, newPathError("write", path, err)
	}
	f.log.WithFields(logrus.Fields{"path": path, "offset": offset, "bytes": len(buf)}).Debug("write")
	return len(buf), nil
}

// Truncate zeroes the whole window of path and commits. The length is
// ignored: files keep their fixed size.
func (f *FS) Truncate(path string, length int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.restore("truncate", path); err != nil {
		return err
	}
	n, err := f.resolveFile("truncate", path)
	if err != nil {
		return err
	}
	if err := f.backend.zero(n.window); err != nil {
		return newPathError("truncate", path, err)
	}
	if err := f.commit(); err != nil {
		return newPathError("truncate", path, err)
	}
	f.log.WithFields(logrus.Fields{"path": path, "requested": length}).Debug("truncate")
	return nil
}

// Create succeeds for files that already exist. The tree shape is fixed,
// so new names are rejected.
func (f *FS) Create(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	id, err := f.tree.resolve(path)
	if err != nil {
		if IsNotFound(err) {
			return newPathError("create", path, ErrInvalid)
		}
		return newPathError("create", path, err)
	}
	if f.tree.get(id).dir {
		return newPathError("create", path, ErrIsDirectory)
	}
	return nil
}

// SetTimes accepts time updates for existing paths. Times are not tracked.
func (f *FS) SetTimes(path string, atime, mtime time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.tree.resolve(path); err != nil {
		return newPathError("utimens", path, err)
	}
	return nil
}

// Walk calls fn for every reachable node, depth-first in listing order,
// starting with the root.
func (f *FS) Walk(fn func(path string, attr Attributes) error) error {
	f.mu.Lock()
	type entry struct {
		path string
		attr Attributes
	}
	var entries []entry
	f.tree.walk(rootID, func(id nodeID) error {
		entries = append(entries, entry{f.tree.pathOf(id), f.attributes(id)})
		return nil
	})
	f.mu.Unlock()

	for _, e := range entries {
		if err := fn(e.path, e.attr); err != nil {
			return err
		}
	}
	return nil
}

// MakeDir adds a directory at path. The parent must exist; an existing
// entry of the same name is replaced.
func (f *FS) MakeDir(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	parent, name, err := f.splitParent("mkdir", path)
	if err != nil {
		return err
	}
	if _, err := f.tree.insert(parent, node{name: name, dir: true}); err != nil {
		return newPathError("mkdir", path, err)
	}
	return nil
}

// MakeFile adds a file at path with a fresh window of Config.FileSize
// bytes, zero padded after contents. The parent must exist; an existing
// entry of the same name is replaced. The arena grows, so the durable
// snapshot is rewritten on the next access or Commit.
func (f *FS) MakeFile(path string, contents []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(contents) > f.config.FileSize {
		return newPathError("create", path, ErrTooLarge)
	}
	parent, name, err := f.splitParent("create", path)
	if err != nil {
		return err
	}

	if f.committed {
		// Bring the arena back to the durable state before growing it.
		if err := f.mirror.Restore(f.backend); err != nil {
			return newPathError("create", path, err)
		}
	}
	w := f.backend.allocate(f.config.FileSize)
	if err := f.backend.write(w, contents, 0); err != nil {
		return newPathError("create", path, err)
	}
	if _, err := f.tree.insert(parent, node{name: name, window: w}); err != nil {
		return newPathError("create", path, err)
	}
	f.committed = false
	return nil
}

func (f *FS) splitParent(op, path string) (nodeID, string, error) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return 0, "", newPathError(op, path, ErrInvalid)
	}
	name := segments[len(segments)-1]
	if !validName(name) {
		return 0, "", newPathError(op, path, ErrInvalid)
	}
	dir := "/" + strings.Join(segments[:len(segments)-1], "/")
	parent, err := f.tree.resolve(dir)
	if err != nil {
		return 0, "", newPathError(op, path, err)
	}
	if !f.tree.get(parent).dir {
		return 0, "", newPathError(op, path, ErrNotDirectory)
	}
	return parent, name, nil
}

// Size returns the arena length in bytes.
func (f *FS) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.backend.size()
}
