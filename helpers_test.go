package strongbox

import (
	"testing"

	"github.com/absfs/memfs"
)

// testKey is a fixed XTS key so ciphertexts are comparable across runs.
func testKey() *CipherKey {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i + 1)
	}
	return &CipherKey{Key: key, Tweak: 7}
}

// setupTestFS returns an empty filesystem over a fresh memfs store.
func setupTestFS(t *testing.T) (*FS, Store) {
	t.Helper()

	store, err := memfs.NewFS()
	if err != nil {
		t.Fatalf("failed to create memfs: %v", err)
	}
	fs, err := Open(store, DefaultConfig(), testKey(), nil)
	if err != nil {
		t.Fatalf("failed to open filesystem: %v", err)
	}
	return fs, store
}

// seedTree builds /a/F plus a few siblings and commits.
func seedTree(t *testing.T, fs *FS) {
	t.Helper()

	size := fs.Config().FileSize
	steps := []struct {
		path string
		dir  bool
	}{
		{"/a", true},
		{"/a/F", false},
		{"/a/G", false},
		{"/b", true},
		{"/b/H", false},
	}
	for i, s := range steps {
		var err error
		if s.dir {
			err = fs.MakeDir(s.path)
		} else {
			err = fs.MakeFile(s.path, Filler(i, size))
		}
		if err != nil {
			t.Fatalf("seeding %s: %v", s.path, err)
		}
	}
	if err := fs.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}
