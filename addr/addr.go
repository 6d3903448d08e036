package addr

import (
	"github.com/EasonChiu28/simplefs/common"
)

// Addr identifies the start of a disk object.
//
// Blkno is the block number containing the object, and Off is the location of
// the object within the block (expressed as a bit offset). The size of the
// object is determined by the context in which Addr is used.
type Addr struct {
	Blkno common.Bnum
	Off   uint64 // offset in bits
}

func (a Addr) Flatid() uint64 {
	return uint64(a.Blkno)*common.NBITBLOCK + a.Off
}

func MkAddr(blkno common.Bnum, off uint64) Addr {
	return Addr{Blkno: blkno, Off: off}
}

// MkInodeAddr addresses inode slot ino in the fixed inode table.
func MkInodeAddr(ino common.Inum) Addr {
	blkno := common.InodeTblBlk + uint64(ino)/common.INODEBLK
	off := (uint64(ino) % common.INODEBLK) * common.INODESZ * 8
	return MkAddr(blkno, off)
}
