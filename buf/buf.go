// Package buf manages single-block read-modify-write cycles. With no
// journal, a Buf is loaded from disk, patched in place, and persisted
// synchronously with a barrier before the mutating call returns.
package buf

import (
	"fmt"

	"github.com/EasonChiu28/simplefs/common"
	"github.com/EasonChiu28/simplefs/disk"
	"github.com/EasonChiu28/simplefs/fserr"
	"github.com/EasonChiu28/simplefs/util"
)

// A Buf holds one disk block for a read-modify-write step. It is scoped to
// a single host-issued operation and never retained across calls.
type Buf struct {
	Blkno common.Bnum
	Blk   disk.Block
	dirty bool
}

func MkBuf(blkno common.Bnum, blk disk.Block) *Buf {
	return &Buf{
		Blkno: blkno,
		Blk:   blk,
		dirty: false,
	}
}

// ReadBlock loads block blkno into a fresh Buf.
func ReadBlock(d disk.Disk, blkno common.Bnum) (*Buf, error) {
	blk, err := d.Read(uint64(blkno))
	if err != nil {
		return nil, fmt.Errorf("read block %d: %w: %v", blkno, fserr.ErrIo, err)
	}
	return MkBuf(blkno, blk), nil
}

func (b *Buf) IsDirty() bool {
	return b.dirty
}

func (b *Buf) SetDirty() {
	b.dirty = true
}

// WriteSync persists the buffer and forces it to stable storage.
func (b *Buf) WriteSync(d disk.Disk) error {
	util.DPrintf(10, "WriteSync: blk %d\n", b.Blkno)
	if err := d.Write(uint64(b.Blkno), b.Blk); err != nil {
		return fmt.Errorf("write block %d: %w: %v", b.Blkno, fserr.ErrIo, err)
	}
	if err := d.Barrier(); err != nil {
		return fmt.Errorf("flush block %d: %w: %v", b.Blkno, fserr.ErrIo, err)
	}
	b.dirty = false
	return nil
}

// TestBit reports bit n of the block, interpreted as a bitmap.
func (b *Buf) TestBit(n uint64) bool {
	if n >= common.NBITBLOCK {
		panic("TestBit")
	}
	return b.Blk[n/8]&(1<<(n%8)) != 0
}

// SetBit sets bit n and marks the buffer dirty.
func (b *Buf) SetBit(n uint64) {
	if n >= common.NBITBLOCK {
		panic("SetBit")
	}
	b.Blk[n/8] |= 1 << (n % 8)
	b.dirty = true
}

// ClearBit clears bit n and marks the buffer dirty.
func (b *Buf) ClearBit(n uint64) {
	if n >= common.NBITBLOCK {
		panic("ClearBit")
	}
	b.Blk[n/8] &= ^(1 << (n % 8))
	b.dirty = true
}
