package attack

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/absfs/strongbox"
)

func TestHostTarget(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "d"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "d", "f"), []byte("0123456789"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "top"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	h := &HostTarget{Root: root}

	files, err := Files(h)
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	if len(files) != 2 || files[0] != "/d/f" || files[1] != "/top" {
		t.Errorf("Files = %v", files)
	}

	if _, err := h.Write("/d/f", []byte("AB"), 3); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := h.Read("/d/f", 100, 0)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(got) != "012AB56789" {
		t.Errorf("Read = %q", got)
	}

	if _, err := h.Read("/missing", 1, 0); !errors.Is(err, strongbox.ErrNotFound) {
		t.Errorf("missing file: error = %v, want ErrNotFound", err)
	}
	if _, err := h.Stat("/missing"); !strongbox.IsNotFound(err) {
		t.Errorf("stat missing: error = %v, want ErrNotFound", err)
	}
	attr, err := h.Stat("/d")
	if err != nil || !attr.IsDir() {
		t.Errorf("stat dir = %+v, %v", attr, err)
	}
}
