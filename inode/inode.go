// Package inode encodes and decodes the fixed-size inode records packed
// into the table block, validating every field range on decode.
package inode

import (
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/EasonChiu28/simplefs/buf"
	"github.com/EasonChiu28/simplefs/common"
	"github.com/EasonChiu28/simplefs/disk"
	"github.com/EasonChiu28/simplefs/fserr"
	"github.com/EasonChiu28/simplefs/super"
	"github.com/EasonChiu28/simplefs/util"
)

// Mode type bits. A decoded mode must carry exactly one of these.
const (
	ModeReg  uint64 = 0x8000
	ModeDir  uint64 = 0x4000
	typeMask uint64 = 0xF000
	permMask uint64 = 0x0FFF
)

// Inode is one on-disk record: type and permissions, ownership, size, link
// count, and the single data-block pointer (0 when unused).
type Inode struct {
	Mode    uint64
	Uid     uint64
	Gid     uint64
	Size    uint64
	Nlink   uint64
	DataBlk common.Bnum
}

func (ip *Inode) IsDir() bool {
	return ip.Mode&typeMask == ModeDir
}

func (ip *Inode) IsReg() bool {
	return ip.Mode&typeMask == ModeReg
}

func (ip *Inode) Perm() uint64 {
	return ip.Mode & permMask
}

// MkNullInode is the all-zero record written to reserved slot 0.
func MkNullInode() *Inode {
	return &Inode{}
}

// MkRootInode describes the root directory; the caller fills in DataBlk.
func MkRootInode(datablk common.Bnum) *Inode {
	return &Inode{
		Mode:    ModeDir | 0o755,
		Size:    disk.BlockSize,
		Nlink:   2,
		DataBlk: datablk,
	}
}

// MkRegInode is a fresh empty regular file.
func MkRegInode(uid uint64, gid uint64, datablk common.Bnum) *Inode {
	return &Inode{
		Mode:    ModeReg | 0o644,
		Uid:     uid,
		Gid:     gid,
		Nlink:   1,
		DataBlk: datablk,
	}
}

// MkDirInode is a fresh empty directory; nlink 2 accounts for "." and the
// parent's reference.
func MkDirInode(uid uint64, gid uint64, datablk common.Bnum) *Inode {
	return &Inode{
		Mode:    ModeDir | 0o755,
		Uid:     uid,
		Gid:     gid,
		Size:    disk.BlockSize,
		Nlink:   2,
		DataBlk: datablk,
	}
}

// Encode renders the record into its INODESZ on-disk form.
func (ip *Inode) Encode() []byte {
	enc := marshal.NewEnc(common.INODESZ)
	enc.PutInt(ip.Mode)
	enc.PutInt(ip.Uid)
	enc.PutInt(ip.Gid)
	enc.PutInt(ip.Size)
	enc.PutInt(ip.Nlink)
	enc.PutInt(uint64(ip.DataBlk))
	return enc.Finish()
}

// Decode reads a record from its on-disk form without validation; callers
// that trust nothing use ReadInode instead.
func Decode(b []byte) *Inode {
	dec := marshal.NewDec(b)
	ip := &Inode{}
	ip.Mode = dec.GetInt()
	ip.Uid = dec.GetInt()
	ip.Gid = dec.GetInt()
	ip.Size = dec.GetInt()
	ip.Nlink = dec.GetInt()
	ip.DataBlk = dec.GetInt()
	return ip
}

// ReadInode loads and validates inode ino from the table. A mode that is
// neither file nor directory, or a data pointer outside the data region,
// fails as corruption.
func ReadInode(sb *super.FsSuper, ino common.Inum) (*Inode, error) {
	if !sb.ValidInum(ino) {
		return nil, fmt.Errorf("inode %d: %w", ino, fserr.ErrInvalidArg)
	}
	a := sb.InodeAddr(ino)
	b, err := buf.ReadBlock(sb.Disk(), a.Blkno)
	if err != nil {
		return nil, err
	}
	off := a.Off / 8
	ip := Decode(b.Blk[off : off+common.INODESZ])

	if !ip.IsDir() && !ip.IsReg() {
		return nil, fmt.Errorf("inode %d mode %#x: %w", ino, ip.Mode,
			fserr.ErrCorrupt)
	}
	if ip.DataBlk != common.NULLBNUM && !sb.ValidDataBnum(ip.DataBlk) {
		return nil, fmt.Errorf("inode %d data block %d: %w", ino, ip.DataBlk,
			fserr.ErrCorrupt)
	}
	if ip.IsDir() && ip.Size == 0 {
		// Directories always occupy their one block.
		ip.Size = disk.BlockSize
	}
	util.DPrintf(5, "ReadInode: %d mode %#x size %d blk %d\n",
		ino, ip.Mode, ip.Size, ip.DataBlk)
	return ip, nil
}

// WriteInode overwrites inode ino's slot in place and persists the table
// block synchronously.
func WriteInode(sb *super.FsSuper, ino common.Inum, ip *Inode) error {
	if !sb.ValidInum(ino) {
		return fmt.Errorf("inode %d: %w", ino, fserr.ErrInvalidArg)
	}
	a := sb.InodeAddr(ino)
	b, err := buf.ReadBlock(sb.Disk(), a.Blkno)
	if err != nil {
		return err
	}
	off := a.Off / 8
	copy(b.Blk[off:off+common.INODESZ], ip.Encode())
	b.SetDirty()
	return b.WriteSync(sb.Disk())
}
