package strongbox

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestFS_Stat(t *testing.T) {
	fs, _ := setupTestFS(t)
	seedTree(t, fs)

	root, err := fs.Stat("/")
	if err != nil {
		t.Fatalf("stat / failed: %v", err)
	}
	if !root.IsDir() || root.Nlink != 4 || root.Size != dirSize {
		t.Errorf("root attributes = %+v", root)
	}

	file, err := fs.Stat("/a/F")
	if err != nil {
		t.Fatalf("stat /a/F failed: %v", err)
	}
	if file.IsDir() || file.Mode.Perm() != 0666 || file.Nlink != 1 || file.Size != DefaultFileSize {
		t.Errorf("file attributes = %+v", file)
	}

	if _, err := fs.Stat("/nope"); !IsNotFound(err) {
		t.Errorf("stat missing: error = %v, want ErrNotFound", err)
	}
}

func TestFS_List(t *testing.T) {
	fs, _ := setupTestFS(t)
	seedTree(t, fs)

	got, err := fs.List("/a")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if want := []string{".", "..", "F", "G"}; !reflect.DeepEqual(got, want) {
		t.Errorf("list /a = %v, want %v", got, want)
	}

	if _, err := fs.List("/a/F"); !errors.Is(err, ErrNotDirectory) {
		t.Errorf("list file: error = %v, want ErrNotDirectory", err)
	}
}

func TestFS_ReadWrite(t *testing.T) {
	fs, _ := setupTestFS(t)
	seedTree(t, fs)

	n, err := fs.Write("/a/F", []byte("hello"), 10)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if n != 5 {
		t.Errorf("write returned %d, want 5", n)
	}

	got, err := fs.Read("/a/F", 5, 10)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("read = %q, want hello", got)
	}

	// Bytes around the write are untouched.
	orig := Filler(1, DefaultFileSize)
	full, _ := fs.Read("/a/F", DefaultFileSize, 0)
	if !bytes.Equal(full[:10], orig[:10]) || !bytes.Equal(full[15:], orig[15:]) {
		t.Error("write changed bytes outside its range")
	}
}

func TestFS_ReadClamps(t *testing.T) {
	fs, _ := setupTestFS(t)
	seedTree(t, fs)

	got, err := fs.Read("/a/F", 100, DefaultFileSize-4)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("read near end returned %d bytes, want 4", len(got))
	}

	got, err = fs.Read("/a/F", 10, DefaultFileSize+10)
	if err != nil {
		t.Fatalf("read past end failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("read past end returned %d bytes", len(got))
	}

	if _, err := fs.Read("/a/F", 1, -1); !IsValidationError(err) {
		t.Errorf("negative offset: error = %v, want ValidationError", err)
	}
	if _, err := fs.Read("/a", 1, 0); !errors.Is(err, ErrIsDirectory) {
		t.Errorf("read directory: error = %v, want ErrIsDirectory", err)
	}
}

func TestFS_WriteTooLarge(t *testing.T) {
	fs, store := setupTestFS(t)
	seedTree(t, fs)

	files, _ := NewSnapshotFiles(store, fs.Config())
	before, _ := files.Plaintext()

	tests := []struct {
		name   string
		offset int64
		len    int
	}{
		{"at end", DefaultFileSize, 1},
		{"past end", DefaultFileSize + 100, 1},
		{"runs past end", DefaultFileSize - 4, 5},
		{"oversize buffer", 0, DefaultFileSize + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fs.Write("/a/F", bytes.Repeat([]byte("x"), tt.len), tt.offset)
			if !errors.Is(err, ErrTooLarge) {
				t.Fatalf("write error = %v, want ErrTooLarge", err)
			}
		})
	}

	after, _ := files.Plaintext()
	if !bytes.Equal(before, after) {
		t.Error("rejected writes changed the durable snapshot")
	}

	if _, err := fs.Write("/a/F", []byte("tail"), DefaultFileSize-4); err != nil {
		t.Errorf("write ending exactly at the boundary failed: %v", err)
	}
}

func TestFS_RestoreDiscardsUncommitted(t *testing.T) {
	fs, _ := setupTestFS(t)
	seedTree(t, fs)

	// Simulate an edit that never reached the durable snapshot.
	copy(fs.backend.arena, "CORRUPTED")

	got, err := fs.Read("/a/F", 9, 0)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) == "CORRUPTED" {
		t.Fatal("read served an uncommitted edit")
	}
	if !bytes.Equal(got, Filler(1, DefaultFileSize)[:9]) {
		t.Errorf("read = %q, want committed contents", got)
	}
}

func TestFS_ServesDurableSnapshot(t *testing.T) {
	fs, store := setupTestFS(t)
	seedTree(t, fs)

	files, _ := NewSnapshotFiles(store, fs.Config())
	plain, _ := files.Plaintext()
	arena := plain
	copy(arena, "EXTERNAL")
	if err := files.WritePlaintext(arena); err != nil {
		t.Fatalf("write plaintext failed: %v", err)
	}

	// The first file window starts at the arena origin.
	got, err := fs.Read("/a/F", 8, 0)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != "EXTERNAL" {
		t.Errorf("read = %q, want the externally written snapshot", got)
	}

	// The restore re-persisted the matching ciphertext.
	cipher, _ := NewArenaCipher(testKey())
	want, _ := cipher.Encrypt(arena)
	ct, _ := files.Cipher()
	if !bytes.Equal(ct, want) {
		t.Error("cipher snapshot does not match the restored plaintext")
	}
}

func TestFS_Truncate(t *testing.T) {
	for _, length := range []int64{0, 1, DefaultFileSize, DefaultFileSize + 100} {
		fs, _ := setupTestFS(t)
		seedTree(t, fs)

		if err := fs.Truncate("/a/F", length); err != nil {
			t.Fatalf("truncate(%d) failed: %v", length, err)
		}
		got, _ := fs.Read("/a/F", DefaultFileSize, 0)
		if !bytes.Equal(got, make([]byte, DefaultFileSize)) {
			t.Errorf("truncate(%d) did not zero the whole file", length)
		}

		attr, _ := fs.Stat("/a/F")
		if attr.Size != DefaultFileSize {
			t.Errorf("truncate(%d) changed size to %d", length, attr.Size)
		}

		sibling, _ := fs.Read("/a/G", DefaultFileSize, 0)
		if !bytes.Equal(sibling, Filler(2, DefaultFileSize)) {
			t.Errorf("truncate(%d) touched a sibling window", length)
		}
	}
}

func TestFS_CreateAndTimes(t *testing.T) {
	fs, _ := setupTestFS(t)
	seedTree(t, fs)

	if err := fs.Create("/a/F"); err != nil {
		t.Errorf("create existing file failed: %v", err)
	}
	if err := fs.Create("/a"); !errors.Is(err, ErrIsDirectory) {
		t.Errorf("create directory: error = %v, want ErrIsDirectory", err)
	}
	if err := fs.Create("/a/new"); !errors.Is(err, ErrInvalid) {
		t.Errorf("create new name: error = %v, want ErrInvalid", err)
	}

	now := time.Now()
	if err := fs.SetTimes("/a/F", now, now); err != nil {
		t.Errorf("set times failed: %v", err)
	}
	if err := fs.SetTimes("/nope", now, now); !IsNotFound(err) {
		t.Errorf("set times on missing: error = %v, want ErrNotFound", err)
	}

	if err := fs.OpenCheck("/a/F"); err != nil {
		t.Errorf("open file failed: %v", err)
	}
	if err := fs.OpenCheck("/b"); !errors.Is(err, ErrIsDirectory) {
		t.Errorf("open directory: error = %v, want ErrIsDirectory", err)
	}
}

func TestFS_MakeFile(t *testing.T) {
	fs, _ := setupTestFS(t)

	if err := fs.MakeFile("/big", make([]byte, DefaultFileSize+1)); !errors.Is(err, ErrTooLarge) {
		t.Errorf("oversize contents: error = %v, want ErrTooLarge", err)
	}
	if err := fs.MakeFile("/missing/f", nil); !IsNotFound(err) {
		t.Errorf("missing parent: error = %v, want ErrNotFound", err)
	}

	if err := fs.MakeFile("/short", []byte("abc")); err != nil {
		t.Fatalf("make file failed: %v", err)
	}
	got, _ := fs.Read("/short", DefaultFileSize, 0)
	want := append([]byte("abc"), make([]byte, DefaultFileSize-3)...)
	if !bytes.Equal(got, want) {
		t.Error("short contents were not zero padded")
	}

	if err := fs.MakeFile("/short/child", nil); !errors.Is(err, ErrNotDirectory) {
		t.Errorf("file parent: error = %v, want ErrNotDirectory", err)
	}
	if fs.Size() != DefaultFileSize {
		t.Errorf("arena size = %d, want %d", fs.Size(), DefaultFileSize)
	}
}

func TestFS_GrowAfterCommit(t *testing.T) {
	fs, _ := setupTestFS(t)
	seedTree(t, fs)

	// An uncommitted poke must not survive a later MakeFile.
	copy(fs.backend.arena, "POKE")
	if err := fs.MakeFile("/b/late", Filler(9, DefaultFileSize)); err != nil {
		t.Fatalf("make file failed: %v", err)
	}

	got, _ := fs.Read("/a/F", 4, 0)
	if string(got) == "POKE" {
		t.Error("uncommitted edit survived growth")
	}
	late, _ := fs.Read("/b/late", DefaultFileSize, 0)
	if !bytes.Equal(late, Filler(9, DefaultFileSize)) {
		t.Error("new file lost its contents")
	}
}

func TestFS_Walk(t *testing.T) {
	fs, _ := setupTestFS(t)
	seedTree(t, fs)

	var paths []string
	fs.Walk(func(path string, attr Attributes) error {
		paths = append(paths, path)
		return nil
	})
	want := []string{"/", "/a", "/a/F", "/a/G", "/b", "/b/H"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("walk = %v, want %v", paths, want)
	}
}

func TestFS_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	fs, store := setupTestFS(t)
	seedTree(t, fs)
	files, _ := NewSnapshotFiles(store, fs.Config())
	cipher, _ := NewArenaCipher(testKey())

	properties.Property("read after write returns the written bytes", prop.ForAll(
		func(offset int, data []byte) bool {
			_, err := fs.Write("/b/H", data, int64(offset))
			if offset+len(data) > DefaultFileSize {
				return errors.Is(err, ErrTooLarge)
			}
			if err != nil {
				return false
			}
			got, err := fs.Read("/b/H", len(data), int64(offset))
			return err == nil && bytes.Equal(got, data)
		},
		gen.IntRange(0, DefaultFileSize-1),
		gen.SliceOf(gen.UInt8()),
	))

	properties.Property("cipher snapshot encrypts the plaintext snapshot", prop.ForAll(
		func(offset int, b uint8) bool {
			if _, err := fs.Write("/a/G", []byte{b}, int64(offset)); err != nil {
				return false
			}
			plain, err := files.Plaintext()
			if err != nil {
				return false
			}
			want, _ := cipher.Encrypt(plain)
			got, err := files.Cipher()
			return err == nil && bytes.Equal(got, want)
		},
		gen.IntRange(0, DefaultFileSize-1),
		gen.UInt8(),
	))

	properties.TestingRun(t)
}

func TestMirror_Counts(t *testing.T) {
	fs, _ := setupTestFS(t)
	seedTree(t, fs)

	commits, restores := fs.Mirror().Counts()
	if commits != 1 || restores != 0 {
		t.Fatalf("after seeding: %d commits, %d restores", commits, restores)
	}

	fs.Read("/a/F", 1, 0)
	fs.Write("/a/F", []byte("x"), 0)

	commits, restores = fs.Mirror().Counts()
	if commits != 2 || restores != 2 {
		t.Errorf("after read and write: %d commits, %d restores, want 2 and 2", commits, restores)
	}
	if fs.Mirror().Metrics().Get("snapshot.persist") == nil {
		t.Error("persist timer not registered")
	}
}
