// Package alloc allocates and frees inode and block numbers with a
// one-bit-per-entity bitmap. Every bit flip is persisted together with the
// matching superblock counter before the call returns; a failed counter
// persist triggers a compensating rollback of the bit just flipped.
package alloc

import (
	"fmt"

	"github.com/EasonChiu28/simplefs/buf"
	"github.com/EasonChiu28/simplefs/common"
	"github.com/EasonChiu28/simplefs/fserr"
	"github.com/EasonChiu28/simplefs/super"
	"github.com/EasonChiu28/simplefs/util"
)

// FreeOutcome distinguishes a real free from the non-fatal advisory case
// where the bit was already clear.
type FreeOutcome int

const (
	Freed FreeOutcome = iota
	AlreadyFree
)

// Alloc manages one bitmap: number n is bit n of the block at blkno.
// Numbers outside [start, limit) are reserved and never scanned, so
// reserved entities cannot be returned even if their bits are clear.
type Alloc struct {
	sb    *super.FsSuper
	blkno common.Bnum
	start uint64
	limit uint64
	name  string
	free  *uint64 // superblock counter mirrored by this bitmap
}

// MkInodeAlloc covers inode numbers [1, NInodes); inode 0 is reserved.
func MkInodeAlloc(sb *super.FsSuper) *Alloc {
	return &Alloc{
		sb:    sb,
		blkno: sb.InodeBitmapBlk,
		start: 1,
		limit: sb.NInodes,
		name:  "inode",
		free:  &sb.NFreeInodes,
	}
}

// MkBlockAlloc covers data blocks [FirstDataBlk, NBlocks); the superblock,
// inode table, and bitmap blocks below FirstDataBlk are reserved.
func MkBlockAlloc(sb *super.FsSuper) *Alloc {
	return &Alloc{
		sb:    sb,
		blkno: sb.BlockBitmapBlk,
		start: sb.FirstDataBlk,
		limit: sb.NBlocks,
		name:  "block",
		free:  &sb.NFreeBlocks,
	}
}

// findFreeBit is a first-fit scan over the allocatable range.
func (a *Alloc) findFreeBit(b *buf.Buf) (uint64, bool) {
	for n := a.start; n < a.limit; n++ {
		if !b.TestBit(n) {
			return n, true
		}
	}
	return 0, false
}

// AllocNum returns the lowest free number, with the set bit and the
// decremented free counter both durable before it returns.
func (a *Alloc) AllocNum() (uint64, error) {
	if *a.free == 0 {
		return 0, fmt.Errorf("no free %s: %w", a.name, fserr.ErrOutOfSpace)
	}
	b, err := buf.ReadBlock(a.sb.Disk(), a.blkno)
	if err != nil {
		return 0, err
	}
	num, ok := a.findFreeBit(b)
	if !ok {
		// Counter said free entities remain but the scan found none: the
		// bitmap and the superblock have diverged.
		util.DPrintf(0, "AllocNum: %s bitmap exhausted with counter %d\n",
			a.name, *a.free)
		return 0, fmt.Errorf("%s bitmap/counter divergence: %w",
			a.name, fserr.ErrOutOfSpace)
	}
	b.SetBit(num)
	if err := b.WriteSync(a.sb.Disk()); err != nil {
		return 0, err
	}
	*a.free = *a.free - 1
	if err := a.sb.Sync(); err != nil {
		a.undoBit(num, true)
		*a.free = *a.free + 1
		return 0, err
	}
	util.DPrintf(5, "AllocNum: %s %d (%d free)\n", a.name, num, *a.free)
	return num, nil
}

// FreeNum clears the bit for num. Freeing an already-free number is
// reported as AlreadyFree and changes nothing.
func (a *Alloc) FreeNum(num uint64) (FreeOutcome, error) {
	if num < a.start || num >= a.limit {
		return Freed, fmt.Errorf("free %s %d out of range [%d, %d): %w",
			a.name, num, a.start, a.limit, fserr.ErrInvalidArg)
	}
	b, err := buf.ReadBlock(a.sb.Disk(), a.blkno)
	if err != nil {
		return Freed, err
	}
	if !b.TestBit(num) {
		util.DPrintf(0, "FreeNum: %s %d already free\n", a.name, num)
		return AlreadyFree, nil
	}
	b.ClearBit(num)
	if err := b.WriteSync(a.sb.Disk()); err != nil {
		return Freed, err
	}
	*a.free = *a.free + 1
	if err := a.sb.Sync(); err != nil {
		a.undoBit(num, false)
		*a.free = *a.free - 1
		return Freed, err
	}
	util.DPrintf(5, "FreeNum: %s %d (%d free)\n", a.name, num, *a.free)
	return Freed, nil
}

// undoBit is the best-effort compensating rollback after a superblock
// persist failure: re-read the bitmap, revert the bit just flipped, and
// re-persist. It cannot protect against a crash between the two persists.
func (a *Alloc) undoBit(num uint64, wasSet bool) {
	b, err := buf.ReadBlock(a.sb.Disk(), a.blkno)
	if err != nil {
		util.DPrintf(0, "undoBit: %s %d: reread failed: %v\n", a.name, num, err)
		return
	}
	if wasSet {
		b.ClearBit(num)
	} else {
		b.SetBit(num)
	}
	if err := b.WriteSync(a.sb.Disk()); err != nil {
		util.DPrintf(0, "undoBit: %s %d: rewrite failed: %v\n", a.name, num, err)
	}
}

func popCnt(b byte) uint64 {
	var n uint64
	for ; b != 0; b >>= 1 {
		n += uint64(b & 1)
	}
	return n
}

// NumFree counts the clear bits in the allocatable range from the on-disk
// bitmap, independently of the superblock counter.
func (a *Alloc) NumFree() (uint64, error) {
	b, err := buf.ReadBlock(a.sb.Disk(), a.blkno)
	if err != nil {
		return 0, err
	}
	var n uint64
	for i := a.start; i < a.limit; i++ {
		if !b.TestBit(i) {
			n++
		}
	}
	return n, nil
}

// ReservedMarked reports whether every bit below the allocatable range is
// set; the formatter must mark all reserved entities allocated.
func (a *Alloc) ReservedMarked() (bool, error) {
	b, err := buf.ReadBlock(a.sb.Disk(), a.blkno)
	if err != nil {
		return false, err
	}
	for n := uint64(0); n < a.start; n++ {
		if !b.TestBit(n) {
			return false, nil
		}
	}
	return true, nil
}

// UsedCount counts the set bits of the whole bitmap block.
func (a *Alloc) UsedCount() (uint64, error) {
	b, err := buf.ReadBlock(a.sb.Disk(), a.blkno)
	if err != nil {
		return 0, err
	}
	var n uint64
	for _, by := range b.Blk {
		n += popCnt(by)
	}
	return n, nil
}
