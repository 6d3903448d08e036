package simplefs

import (
	"fmt"

	"github.com/EasonChiu28/simplefs/common"
	"github.com/EasonChiu28/simplefs/dir"
	"github.com/EasonChiu28/simplefs/disk"
	"github.com/EasonChiu28/simplefs/fserr"
	"github.com/EasonChiu28/simplefs/icache"
	"github.com/EasonChiu28/simplefs/util"
)

// Lookup resolves name in the parent directory to an inode handle.
func (v *Volume) Lookup(parent *icache.Handle, name string) (*icache.Handle, error) {
	if !parent.I.IsDir() {
		return nil, fmt.Errorf("lookup %q: parent not a directory: %w",
			name, fserr.ErrInvalidArg)
	}
	ino, err := dir.Lookup(v.sb, parent.I.DataBlk, name)
	if err != nil {
		return nil, err
	}
	return v.getHandle(ino)
}

// ReadDir emits the entries of parent starting at cursor *pos. The host
// synthesizes the "." and ".." entries for positions 0 and 1, so the
// cursor passed here must already be past them. emit returning false stops
// this call; *pos afterwards is the restart point and no entry is skipped
// or repeated across calls.
func (v *Volume) ReadDir(parent *icache.Handle, pos *uint64, emit func(dir.DirEnt) bool) error {
	if !parent.I.IsDir() {
		return fmt.Errorf("readdir: not a directory: %w", fserr.ErrInvalidArg)
	}
	if *pos < dir.DotOffset {
		return fmt.Errorf("readdir: cursor %d before dot entries: %w",
			*pos, fserr.ErrInvalidArg)
	}
	if *pos > common.MaxSubfiles+dir.DotOffset {
		return nil
	}
	return dir.Iterate(v.sb, parent.I.DataBlk, pos, emit)
}

// StatFs reports volume-wide usage statistics.
type StatFs struct {
	Type        uint64
	BlockSize   uint64
	NBlocks     uint64
	NFreeBlocks uint64
	NInodes     uint64
	NFreeInodes uint64
	NameLen     uint64
}

// Statfs re-reads the on-disk counters first, so a diverged in-memory
// mirror self-heals before being reported.
func (v *Volume) Statfs() (StatFs, error) {
	if err := v.sb.Refresh(); err != nil {
		return StatFs{}, err
	}
	return StatFs{
		Type:        common.Magic,
		BlockSize:   disk.BlockSize,
		NBlocks:     v.sb.NBlocks,
		NFreeBlocks: v.sb.NFreeBlocks,
		NInodes:     v.sb.NInodes,
		NFreeInodes: v.sb.NFreeInodes,
		NameLen:     common.MaxFilenameLen - 1,
	}, nil
}

// Sync persists the superblock counters.
func (v *Volume) Sync() error {
	return v.sb.Sync()
}

// ReadFileData returns the contents of a regular file. Files span at most
// one block; reads are bounded by the stored size and anything beyond the
// data block is zero.
func (v *Volume) ReadFileData(h *icache.Handle) ([]byte, error) {
	if !h.I.IsReg() {
		return nil, fmt.Errorf("read inode %d: not a regular file: %w",
			h.Inum, fserr.ErrInvalidArg)
	}
	if h.I.Size == 0 || h.I.DataBlk == common.NULLBNUM {
		return []byte{}, nil
	}
	blk, err := v.d.Read(uint64(h.I.DataBlk))
	if err != nil {
		return nil, fmt.Errorf("read inode %d data block %d: %w: %v",
			h.Inum, h.I.DataBlk, fserr.ErrIo, err)
	}
	n := util.Min(h.I.Size, disk.BlockSize)
	data := make([]byte, n)
	copy(data, blk[:n])
	return data, nil
}

// Check is a light consistency pass: the reserved bits must be set and the
// free counters must match the bitmaps' popcounts.
func (v *Volume) Check() error {
	ifree, err := v.ialloc.NumFree()
	if err != nil {
		return err
	}
	if ifree != v.sb.NFreeInodes {
		return fmt.Errorf("inode bitmap has %d free, superblock says %d: %w",
			ifree, v.sb.NFreeInodes, fserr.ErrCorrupt)
	}
	bfree, err := v.balloc.NumFree()
	if err != nil {
		return err
	}
	if bfree != v.sb.NFreeBlocks {
		return fmt.Errorf("block bitmap has %d free, superblock says %d: %w",
			bfree, v.sb.NFreeBlocks, fserr.ErrCorrupt)
	}
	ok, err := v.ialloc.ReservedMarked()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("inode bitmap has clear reserved bits: %w", fserr.ErrCorrupt)
	}
	ok, err = v.balloc.ReservedMarked()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("block bitmap has clear reserved bits: %w", fserr.ErrCorrupt)
	}
	root, err := v.getHandle(common.ROOTINUM)
	if err != nil {
		return err
	}
	if !root.I.IsDir() || !v.sb.ValidDataBnum(root.I.DataBlk) {
		return fmt.Errorf("root inode invalid: %w", fserr.ErrCorrupt)
	}
	return nil
}
