// Package mount exposes a strongbox filesystem at a host path over FUSE.
package mount

import (
	"fmt"
	"os"
	"time"

	"github.com/absfs/strongbox"
	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/sirupsen/logrus"
)

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the filesystem is mounted. It
	// is created if it does not exist.
	Mountpoint string

	// FS is the filesystem to serve.
	FS *strongbox.FS

	// Debug traces every FUSE request.
	Debug bool

	// Logger receives diagnostic messages. If nil, the logrus standard
	// logger is used.
	Logger logrus.FieldLogger
}

// Mount serves options.FS at options.Mountpoint. The caller must call
// Unmount on the returned server when done.
func Mount(options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.FS == nil {
		return nil, fmt.Errorf("filesystem is required")
	}
	if options.Logger == nil {
		options.Logger = logrus.StandardLogger()
	}

	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("creating mountpoint %s: %w", options.Mountpoint, err)
	}

	// Attributes and entries change only through this process, but reads
	// must never be served from the kernel cache: each one has to reach
	// the filesystem and trigger a restore.
	entryTimeout := time.Duration(0)
	attrTimeout := time.Duration(0)

	root := &node{fs: options.FS, path: "/", log: options.Logger}
	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout: &entryTimeout,
		AttrTimeout:  &attrTimeout,
		UID:          uint32(os.Getuid()),
		GID:          uint32(os.Getgid()),
		MountOptions: fuse.MountOptions{
			FsName: "strongbox",
			Name:   "strongbox",
			Debug:  options.Debug,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", options.Mountpoint, err)
	}

	options.Logger.WithField("mountpoint", options.Mountpoint).Info("strongbox mounted")
	return server, nil
}
