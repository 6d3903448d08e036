// Package super mirrors the on-disk superblock: volume-wide geometry plus
// the free-space counters, persisted synchronously after every allocator
// mutation.
package super

import (
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/EasonChiu28/simplefs/addr"
	"github.com/EasonChiu28/simplefs/buf"
	"github.com/EasonChiu28/simplefs/common"
	"github.com/EasonChiu28/simplefs/disk"
	"github.com/EasonChiu28/simplefs/fserr"
	"github.com/EasonChiu28/simplefs/util"
)

// FsSuper is the in-memory superblock mirror, one per mounted volume.
// Geometry fields are fixed at format time; only the free counters change.
//
// No internal locking: the host serializes all mutating calls.
type FsSuper struct {
	d disk.Disk

	NBlocks        uint64
	NInodes        uint64
	NFreeBlocks    uint64
	NFreeInodes    uint64
	InodeBitmapBlk common.Bnum
	BlockBitmapBlk common.Bnum
	FirstDataBlk   common.Bnum
}

// MkFsSuper builds a fresh superblock for a volume being formatted: the
// fixed layout, every inode but the reserved one free, every block past
// the reserved range free.
func MkFsSuper(d disk.Disk, nblocks uint64) *FsSuper {
	return &FsSuper{
		d:              d,
		NBlocks:        nblocks,
		NInodes:        common.INODEBLK,
		NFreeBlocks:    nblocks - uint64(common.FirstDataBlk),
		NFreeInodes:    common.INODEBLK - 1,
		InodeBitmapBlk: common.InodeBitmapBlk,
		BlockBitmapBlk: common.BlockBitmapBlk,
		FirstDataBlk:   common.FirstDataBlk,
	}
}

// Load reads and validates the superblock of a formatted volume.
func Load(d disk.Disk) (*FsSuper, error) {
	b, err := buf.ReadBlock(d, common.SuperBlk)
	if err != nil {
		return nil, err
	}
	sb := &FsSuper{d: d}
	if err := sb.decode(b.Blk); err != nil {
		return nil, err
	}
	util.DPrintf(1, "Load: %d blocks %d inodes (%d/%d free)\n",
		sb.NBlocks, sb.NInodes, sb.NFreeBlocks, sb.NFreeInodes)
	return sb, nil
}

func (sb *FsSuper) decode(blk disk.Block) error {
	dec := marshal.NewDec(blk)
	magic := dec.GetInt()
	if magic != common.Magic {
		return fmt.Errorf("superblock magic %#x (want %#x): %w",
			magic, common.Magic, fserr.ErrCorrupt)
	}
	sb.NBlocks = dec.GetInt()
	sb.NInodes = dec.GetInt()
	sb.NFreeBlocks = dec.GetInt()
	sb.NFreeInodes = dec.GetInt()
	sb.InodeBitmapBlk = dec.GetInt()
	sb.BlockBitmapBlk = dec.GetInt()
	sb.FirstDataBlk = dec.GetInt()

	if sb.FirstDataBlk >= sb.NBlocks ||
		sb.InodeBitmapBlk >= sb.NBlocks ||
		sb.BlockBitmapBlk >= sb.NBlocks {
		return fmt.Errorf("superblock layout out of range: %w", fserr.ErrCorrupt)
	}
	if sb.NInodes == 0 || sb.NInodes > common.INODEBLK {
		return fmt.Errorf("superblock inode count %d: %w",
			sb.NInodes, fserr.ErrCorrupt)
	}
	if sb.NBlocks > common.NBITBLOCK {
		return fmt.Errorf("superblock block count %d exceeds bitmap: %w",
			sb.NBlocks, fserr.ErrCorrupt)
	}
	if sb.NFreeBlocks > sb.NBlocks || sb.NFreeInodes > sb.NInodes {
		return fmt.Errorf("superblock free counters out of range: %w",
			fserr.ErrCorrupt)
	}
	return nil
}

// Encode renders the full superblock record into a fresh block.
func (sb *FsSuper) Encode() disk.Block {
	enc := marshal.NewEnc(disk.BlockSize)
	enc.PutInt(common.Magic)
	enc.PutInt(sb.NBlocks)
	enc.PutInt(sb.NInodes)
	enc.PutInt(sb.NFreeBlocks)
	enc.PutInt(sb.NFreeInodes)
	enc.PutInt(uint64(sb.InodeBitmapBlk))
	enc.PutInt(uint64(sb.BlockBitmapBlk))
	enc.PutInt(uint64(sb.FirstDataBlk))
	return enc.Finish()
}

// Sync re-encodes the superblock (carrying the current free counters) into
// block 0 and forces it to stable storage. Called after every allocator
// mutation and at unmount.
func (sb *FsSuper) Sync() error {
	b := buf.MkBuf(common.SuperBlk, sb.Encode())
	return b.WriteSync(sb.d)
}

// Refresh re-reads the on-disk counters into memory. Status-query paths
// use it to self-heal any divergence before reporting statistics.
func (sb *FsSuper) Refresh() error {
	b, err := buf.ReadBlock(sb.d, common.SuperBlk)
	if err != nil {
		return err
	}
	fresh := &FsSuper{d: sb.d}
	if err := fresh.decode(b.Blk); err != nil {
		return err
	}
	sb.NFreeBlocks = fresh.NFreeBlocks
	sb.NFreeInodes = fresh.NFreeInodes
	return nil
}

// InodeAddr locates inode slot ino in the fixed table.
func (sb *FsSuper) InodeAddr(ino common.Inum) addr.Addr {
	return addr.MkInodeAddr(ino)
}

// ValidInum reports whether ino names an allocatable inode slot.
func (sb *FsSuper) ValidInum(ino common.Inum) bool {
	return ino != common.NULLINUM && uint64(ino) < sb.NInodes
}

// ValidDataBnum reports whether blkno is inside the data region.
func (sb *FsSuper) ValidDataBnum(blkno common.Bnum) bool {
	return blkno >= sb.FirstDataBlk && blkno < sb.NBlocks
}

func (sb *FsSuper) Disk() disk.Disk {
	return sb.d
}
