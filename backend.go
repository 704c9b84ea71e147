package strongbox

import (
	"fmt"
)

// Window is a file's byte range inside the arena.
type Window struct {
	Start  int
	Length int
}

// End returns the first offset past the window.
func (w Window) End() int {
	return w.Start + w.Length
}

// backend is the flat byte arena shared by every file. Windows are handed
// out by bump allocation, so they never overlap.
type backend struct {
	arena []byte
}

// allocate reserves a zeroed window of size bytes at the end of the arena.
func (b *backend) allocate(size int) Window {
	w := Window{Start: len(b.arena), Length: size}
	b.arena = append(b.arena, make([]byte, size)...)
	return w
}

func (b *backend) check(w Window) error {
	if w.Start < 0 || w.Length < 0 || w.End() > len(b.arena) {
		return NewCorruptionError("", fmt.Sprintf("window [%d,%d) outside arena of %d bytes",
			w.Start, w.End(), len(b.arena)))
	}
	return nil
}

// read copies up to size bytes of w starting at off.
func (b *backend) read(w Window, size int, off int64) ([]byte, error) {
	if err := b.check(w); err != nil {
		return nil, err
	}
	if off >= int64(w.Length) {
		return []byte{}, nil
	}
	if remaining := w.Length - int(off); size > remaining {
		size = remaining
	}
	out := make([]byte, size)
	copy(out, b.arena[w.Start+int(off):])
	return out, nil
}

// write copies p into w at off. Callers enforce the size limit.
func (b *backend) write(w Window, p []byte, off int64) error {
	if err := b.check(w); err != nil {
		return err
	}
	if off < 0 || int(off)+len(p) > w.Length {
		return ErrTooLarge
	}
	copy(b.arena[w.Start+int(off):], p)
	return nil
}

func (b *backend) zero(w Window) error {
	if err := b.check(w); err != nil {
		return err
	}
	clear(b.arena[w.Start:w.End()])
	return nil
}

// bytes returns a copy of the arena.
func (b *backend) bytes() []byte {
	out := make([]byte, len(b.arena))
	copy(out, b.arena)
	return out
}

// load replaces the arena contents. The length must not change, since the
// windows were laid out against it.
func (b *backend) load(p []byte) error {
	if len(p) != len(b.arena) {
		return NewCorruptionError("", fmt.Sprintf("snapshot holds %d bytes, arena holds %d", len(p), len(b.arena)))
	}
	copy(b.arena, p)
	return nil
}

func (b *backend) size() int {
	return len(b.arena)
}
