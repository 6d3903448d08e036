package simplefs

import (
	"fmt"

	"github.com/EasonChiu28/simplefs/alloc"
	"github.com/EasonChiu28/simplefs/buf"
	"github.com/EasonChiu28/simplefs/common"
	"github.com/EasonChiu28/simplefs/dir"
	"github.com/EasonChiu28/simplefs/disk"
	"github.com/EasonChiu28/simplefs/fserr"
	"github.com/EasonChiu28/simplefs/icache"
	"github.com/EasonChiu28/simplefs/inode"
	"github.com/EasonChiu28/simplefs/util"
)

// CreateFile creates an empty regular file named name in parent and
// returns its handle.
func (v *Volume) CreateFile(parent *icache.Handle, name string) (*icache.Handle, error) {
	uid, gid := v.identity()
	return v.create(parent, name, func(blkno common.Bnum) *inode.Inode {
		return inode.MkRegInode(uid, gid, blkno)
	})
}

// CreateDir creates an empty directory named name in parent and returns
// its handle. The new directory's block starts with a zero entry count.
func (v *Volume) CreateDir(parent *icache.Handle, name string) (*icache.Handle, error) {
	uid, gid := v.identity()
	return v.create(parent, name, func(blkno common.Bnum) *inode.Inode {
		return inode.MkDirInode(uid, gid, blkno)
	})
}

// create runs the multi-step creation protocol. Each acquired resource
// pushes an undo action; any later failure releases exactly the resources
// acquired so far before surfacing the original error.
//
// A directory entry that persisted before a later step failed is not
// undone: the entry dangles until the inode number is reused (an inherited
// limitation of the no-journal design).
func (v *Volume) create(parent *icache.Handle, name string,
	mkInode func(common.Bnum) *inode.Inode) (*icache.Handle, error) {

	if !parent.I.IsDir() {
		return nil, fmt.Errorf("create %q: parent not a directory: %w",
			name, fserr.ErrInvalidArg)
	}
	if len(name) == 0 {
		return nil, fmt.Errorf("create empty name: %w", fserr.ErrInvalidArg)
	}
	if uint64(len(name)) >= common.MaxFilenameLen {
		return nil, fmt.Errorf("create %q: %w", name, fserr.ErrNameTooLong)
	}

	// Cheap pre-check before touching the bitmaps.
	if v.sb.NFreeInodes == 0 || v.sb.NFreeBlocks == 0 {
		return nil, fmt.Errorf("create %q: %w", name, fserr.ErrOutOfSpace)
	}

	var undo []func()
	fail := func(err error) (*icache.Handle, error) {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		return nil, err
	}

	ino, err := v.ialloc.AllocNum()
	if err != nil {
		return nil, err
	}
	undo = append(undo, func() { v.freeQuiet(v.ialloc, ino) })

	blkno, err := v.balloc.AllocNum()
	if err != nil {
		return fail(err)
	}
	undo = append(undo, func() { v.freeQuiet(v.balloc, blkno) })

	// Collision check and append, persisted in one step. From here on a
	// failure leaves the new entry behind (see above).
	err = dir.Insert(v.sb, parent.I.DataBlk, name, common.Inum(ino))
	if err != nil {
		return fail(err)
	}

	ip := mkInode(blkno)
	if err := inode.WriteInode(v.sb, common.Inum(ino), ip); err != nil {
		return fail(err)
	}

	// Zero-initialize the data block; for a directory the zero block is a
	// valid empty index (entry count 0).
	zb := buf.MkBuf(blkno, make(disk.Block, disk.BlockSize))
	if err := zb.WriteSync(v.d); err != nil {
		return fail(err)
	}

	h := &icache.Handle{Inum: common.Inum(ino), I: *ip}
	v.handles.Put(h)
	util.DPrintf(1, "create: %q inode %d block %d\n", name, ino, blkno)
	return h, nil
}

// freeQuiet releases an allocation during rollback; a failure here cannot
// mask the original error, so it is only logged.
func (v *Volume) freeQuiet(a *alloc.Alloc, num uint64) {
	if _, err := a.FreeNum(num); err != nil {
		util.DPrintf(0, "rollback: free %d failed: %v\n", num, err)
	}
}
