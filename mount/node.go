package mount

import (
	"context"
	"errors"
	"path"
	"syscall"
	"time"

	"github.com/absfs/strongbox"
	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/sirupsen/logrus"
)

// node is a directory or file of the served filesystem. It carries only
// its path; all state lives in the strongbox.FS.
type node struct {
	gofuse.Inode
	fs   *strongbox.FS
	path string
	log  logrus.FieldLogger
}

var _ gofuse.InodeEmbedder = (*node)(nil)
var _ gofuse.NodeGetattrer = (*node)(nil)
var _ gofuse.NodeSetattrer = (*node)(nil)
var _ gofuse.NodeLookuper = (*node)(nil)
var _ gofuse.NodeReaddirer = (*node)(nil)
var _ gofuse.NodeOpener = (*node)(nil)
var _ gofuse.NodeReader = (*node)(nil)
var _ gofuse.NodeWriter = (*node)(nil)
var _ gofuse.NodeCreater = (*node)(nil)

// Errno maps a strongbox error onto the errno the kernel expects.
func Errno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, strongbox.ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, strongbox.ErrIsDirectory):
		return syscall.EISDIR
	case errors.Is(err, strongbox.ErrNotDirectory):
		return syscall.ENOTDIR
	case errors.Is(err, strongbox.ErrTooLarge):
		return syscall.EFBIG
	case strongbox.IsCorruptionError(err):
		return syscall.EIO
	case errors.Is(err, strongbox.ErrInvalid):
		return syscall.EINVAL
	default:
		return syscall.EIO
	}
}

func (n *node) errno(op string, err error) syscall.Errno {
	errno := Errno(err)
	if errno == syscall.EIO {
		n.log.WithFields(logrus.Fields{"op": op, "path": n.path, "error": err}).Error("operation failed")
	}
	return errno
}

func fileType(attr strongbox.Attributes) uint32 {
	if attr.IsDir() {
		return syscall.S_IFDIR
	}
	return syscall.S_IFREG
}

func applyAttr(out *fuse.Attr, attr strongbox.Attributes) {
	out.Mode = fileType(attr) | uint32(attr.Mode.Perm())
	out.Nlink = uint32(attr.Nlink)
	out.Size = uint64(attr.Size)
	out.Blocks = (out.Size + 511) / 512
}

func (n *node) child(name string) *node {
	return &node{fs: n.fs, path: path.Join(n.path, name), log: n.log}
}

func (n *node) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	attr, err := n.fs.Stat(n.path)
	if err != nil {
		return n.errno("getattr", err)
	}
	applyAttr(&out.Attr, attr)
	return 0
}

// Setattr handles O_TRUNC and utimens. Truncation always zeroes the whole
// file; the requested size is passed through and ignored.
func (n *node) Setattr(ctx context.Context, f gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if size, ok := in.GetSize(); ok {
		if err := n.fs.Truncate(n.path, int64(size)); err != nil {
			return n.errno("truncate", err)
		}
	}

	atime, aok := in.GetATime()
	mtime, mok := in.GetMTime()
	if aok || mok {
		now := time.Now()
		if !aok {
			atime = now
		}
		if !mok {
			mtime = now
		}
		if err := n.fs.SetTimes(n.path, atime, mtime); err != nil {
			return n.errno("utimens", err)
		}
	}

	return n.Getattr(ctx, f, out)
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	c := n.child(name)
	attr, err := n.fs.Stat(c.path)
	if err != nil {
		return nil, c.errno("lookup", err)
	}
	applyAttr(&out.Attr, attr)
	return n.NewInode(ctx, c, gofuse.StableAttr{Mode: fileType(attr)}), 0
}

func (n *node) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	names, err := n.fs.List(n.path)
	if err != nil {
		return nil, n.errno("readdir", err)
	}

	entries := make([]fuse.DirEntry, 0, len(names))
	for _, name := range names {
		if name == "." || name == ".." {
			continue
		}
		attr, err := n.fs.Stat(path.Join(n.path, name))
		if err != nil {
			return nil, n.errno("readdir", err)
		}
		entries = append(entries, fuse.DirEntry{Name: name, Mode: fileType(attr)})
	}
	return gofuse.NewListDirStream(entries), 0
}

// Open returns no handle so reads and writes come back to the node. Direct
// I/O keeps the page cache out of the way.
func (n *node) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if err := n.fs.OpenCheck(n.path); err != nil {
		return nil, 0, n.errno("open", err)
	}
	return nil, fuse.FOPEN_DIRECT_IO, 0
}

func (n *node) Read(ctx context.Context, f gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	data, err := n.fs.Read(n.path, len(dest), off)
	if err != nil {
		return nil, n.errno("read", err)
	}
	return fuse.ReadResultData(data), 0
}

func (n *node) Write(ctx context.Context, f gofuse.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	written, err := n.fs.Write(n.path, data, off)
	if err != nil {
		return 0, n.errno("write", err)
	}
	return uint32(written), 0
}

// Create only succeeds for names that already exist; the tree is fixed.
func (n *node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	c := n.child(name)
	if err := n.fs.Create(c.path); err != nil {
		return nil, nil, 0, c.errno("create", err)
	}
	attr, err := n.fs.Stat(c.path)
	if err != nil {
		return nil, nil, 0, c.errno("create", err)
	}
	applyAttr(&out.Attr, attr)
	return n.NewInode(ctx, c, gofuse.StableAttr{Mode: fileType(attr)}), nil, fuse.FOPEN_DIRECT_IO, 0
}
