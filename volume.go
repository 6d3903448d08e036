// Package simplefs is the metadata engine of a minimal disk filesystem:
// a superblock, two allocation bitmaps, a flat inode table, and one
// fixed-size directory block per directory. The host integration layer
// mounts a Volume over a disk.Disk and dispatches lookups, directory
// iteration, and creation into it.
//
// All operations are synchronous; every mutation is durable before the
// call returns. The core takes no locks of its own: the host must
// serialize mutating calls against the same volume.
package simplefs

import (
	"fmt"

	"github.com/EasonChiu28/simplefs/alloc"
	"github.com/EasonChiu28/simplefs/common"
	"github.com/EasonChiu28/simplefs/disk"
	"github.com/EasonChiu28/simplefs/fserr"
	"github.com/EasonChiu28/simplefs/icache"
	"github.com/EasonChiu28/simplefs/inode"
	"github.com/EasonChiu28/simplefs/super"
	"github.com/EasonChiu28/simplefs/util"
)

// Identity supplies the uid/gid stamped on newly created inodes; the host
// wires this to its notion of the calling user.
type Identity func() (uid uint64, gid uint64)

// Volume is one mounted filesystem instance. It owns the superblock
// mirror, both allocators, and the inode handle table; nothing here is
// process-wide.
type Volume struct {
	d        disk.Disk
	sb       *super.FsSuper
	ialloc   *alloc.Alloc
	balloc   *alloc.Alloc
	handles  *icache.Cache
	identity Identity
}

type MountOpt func(*Volume)

// WithIdentity sets the uid/gid source for creation operations.
func WithIdentity(id Identity) MountOpt {
	return func(v *Volume) {
		v.identity = id
	}
}

// Mount loads and validates the superblock and the root inode and builds
// the volume's allocators and handle table.
func Mount(d disk.Disk, opts ...MountOpt) (*Volume, error) {
	sb, err := super.Load(d)
	if err != nil {
		return nil, err
	}
	v := &Volume{
		d:        d,
		sb:       sb,
		ialloc:   alloc.MkInodeAlloc(sb),
		balloc:   alloc.MkBlockAlloc(sb),
		handles:  icache.MkCache(),
		identity: func() (uint64, uint64) { return 0, 0 },
	}
	for _, o := range opts {
		o(v)
	}
	root, err := v.getHandle(common.ROOTINUM)
	if err != nil {
		return nil, fmt.Errorf("mount: root inode: %w", err)
	}
	if !root.I.IsDir() {
		return nil, fmt.Errorf("mount: root inode is not a directory: %w",
			fserr.ErrCorrupt)
	}
	util.DPrintf(1, "Mount: %d blocks, %d inodes\n", sb.NBlocks, sb.NInodes)
	return v, nil
}

// Unmount persists the superblock and drops the handle table. Closing the
// disk remains the host's job.
func (v *Volume) Unmount() error {
	err := v.sb.Sync()
	v.handles.Clear()
	util.DPrintf(1, "Unmount\n")
	return err
}

// Root returns the handle for the root directory.
func (v *Volume) Root() (*icache.Handle, error) {
	return v.getHandle(common.ROOTINUM)
}

// getHandle materializes a handle for ino, reading the inode table on a
// cache miss.
func (v *Volume) getHandle(ino common.Inum) (*icache.Handle, error) {
	if h, ok := v.handles.Get(ino); ok {
		return h, nil
	}
	ip, err := inode.ReadInode(v.sb, ino)
	if err != nil {
		return nil, err
	}
	h := &icache.Handle{Inum: ino, I: *ip}
	v.handles.Put(h)
	return h, nil
}

// Super exposes the superblock mirror (read-only use by the host).
func (v *Volume) Super() *super.FsSuper {
	return v.sb
}
