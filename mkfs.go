package simplefs

import (
	"fmt"

	"github.com/EasonChiu28/simplefs/buf"
	"github.com/EasonChiu28/simplefs/common"
	"github.com/EasonChiu28/simplefs/dir"
	"github.com/EasonChiu28/simplefs/disk"
	"github.com/EasonChiu28/simplefs/fserr"
	"github.com/EasonChiu28/simplefs/inode"
	"github.com/EasonChiu28/simplefs/super"
	"github.com/EasonChiu28/simplefs/util"
)

// MkfsFile seeds a file into the root directory at format time. Data must
// fit a single block.
type MkfsFile struct {
	Name string
	Data []byte
}

// Mkfs writes a conformant image onto d: superblock, inode table with the
// reserved slot 0 and the root directory, both bitmaps with every reserved
// entity marked, the root directory block, and one data block per seeded
// file. Counters come out consistent with the bitmaps.
func Mkfs(d disk.Disk, files ...MkfsFile) error {
	nblocks, err := d.Size()
	if err != nil {
		return fmt.Errorf("mkfs: size: %w: %v", fserr.ErrIo, err)
	}
	nfiles := uint64(len(files))
	if nblocks < common.FirstDataBlk+1+nfiles {
		return fmt.Errorf("mkfs: %d blocks is too small: %w",
			nblocks, fserr.ErrInvalidArg)
	}
	if nblocks > common.NBITBLOCK {
		return fmt.Errorf("mkfs: %d blocks exceeds one bitmap block: %w",
			nblocks, fserr.ErrInvalidArg)
	}
	if nfiles+1 > common.INODEBLK-1 {
		return fmt.Errorf("mkfs: %d seed files exceed the inode table: %w",
			nfiles, fserr.ErrOutOfSpace)
	}
	for _, f := range files {
		if uint64(len(f.Data)) > disk.BlockSize {
			return fmt.Errorf("mkfs: %q exceeds one block: %w",
				f.Name, fserr.ErrInvalidArg)
		}
	}

	rootBlk := common.FirstDataBlk

	// Inode table: slot 0 reserved, slot 1 root, then one per seed file.
	tbl := make(disk.Block, disk.BlockSize)
	writeSlot := func(ino common.Inum, ip *inode.Inode) {
		off := uint64(ino) * common.INODESZ
		copy(tbl[off:off+common.INODESZ], ip.Encode())
	}
	writeSlot(common.NULLINUM, inode.MkNullInode())
	writeSlot(common.ROOTINUM, inode.MkRootInode(rootBlk))
	ents := make([]dir.DirEnt, 0, nfiles)
	for i, f := range files {
		ino := common.Inum(2 + uint64(i))
		blkno := rootBlk + 1 + uint64(i)
		ip := inode.MkRegInode(0, 0, blkno)
		ip.Size = uint64(len(f.Data))
		writeSlot(ino, ip)
		ents = append(ents, dir.DirEnt{Inum: ino, Name: f.Name})
	}
	if err := buf.MkBuf(common.InodeTblBlk, tbl).WriteSync(d); err != nil {
		return err
	}

	// Inode bitmap: reserved inode 0, root, and the seed files.
	ibm := buf.MkBuf(common.InodeBitmapBlk, make(disk.Block, disk.BlockSize))
	for ino := uint64(0); ino < 2+nfiles; ino++ {
		ibm.SetBit(ino)
	}
	if err := ibm.WriteSync(d); err != nil {
		return err
	}

	// Block bitmap: the reserved range, the root block, and file blocks.
	bbm := buf.MkBuf(common.BlockBitmapBlk, make(disk.Block, disk.BlockSize))
	for blkno := uint64(0); blkno <= rootBlk+nfiles; blkno++ {
		bbm.SetBit(blkno)
	}
	if err := bbm.WriteSync(d); err != nil {
		return err
	}

	// Root directory block with one entry per seed file.
	rootDir, err := dir.MkDirBlock(ents)
	if err != nil {
		return err
	}
	if err := buf.MkBuf(rootBlk, rootDir).WriteSync(d); err != nil {
		return err
	}

	// Seed file contents, zero-padded to a block.
	for i, f := range files {
		blk := make(disk.Block, disk.BlockSize)
		copy(blk, f.Data)
		if err := buf.MkBuf(rootBlk+1+uint64(i), blk).WriteSync(d); err != nil {
			return err
		}
	}

	// Superblock last, so a formatted magic implies the rest is in place.
	sb := super.MkFsSuper(d, nblocks)
	sb.NFreeInodes -= 1 + nfiles
	sb.NFreeBlocks -= 1 + nfiles
	if err := sb.Sync(); err != nil {
		return err
	}
	util.DPrintf(1, "Mkfs: %d blocks, %d inodes, %d seed files\n",
		nblocks, sb.NInodes, nfiles)
	return nil
}
