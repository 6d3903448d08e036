// Package common holds the on-disk geometry shared by every layer: the
// fixed block layout, record sizes, and the reserved-entity constants.
package common

import (
	"github.com/EasonChiu28/simplefs/disk"
)

// Magic identifies a formatted volume in block 0.
const Magic uint64 = 0xDEADBEEF

// Fixed block layout. Everything below FirstDataBlk is reserved and must
// never be returned by block allocation.
const (
	SuperBlk       Bnum = 0
	InodeTblBlk    Bnum = 1
	InodeBitmapBlk Bnum = 2
	BlockBitmapBlk Bnum = 3
	FirstDataBlk   Bnum = 4
)

const (
	NBITBLOCK uint64 = disk.BlockSize * 8

	// INODESZ is the on-disk stride of one inode record; INODEBLK records
	// fit in the single table block.
	INODESZ  uint64 = 64
	INODEBLK uint64 = disk.BlockSize / INODESZ

	// Directory block geometry: an 8-byte entry count followed by
	// MaxSubfiles fixed-size entries.
	DirEntSz       uint64 = 32
	MaxFilenameLen uint64 = DirEntSz - 8
	MaxSubfiles    uint64 = (disk.BlockSize - 8) / DirEntSz
)

type Inum uint64
type Bnum = uint64

const (
	// NULLINUM is permanently reserved; the bitmap always shows it
	// allocated and it is never handed out or freed.
	NULLINUM Inum = 0
	ROOTINUM Inum = 1
	NULLBNUM Bnum = 0
)
