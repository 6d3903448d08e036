// Package dir is the directory-entry index: a single block per directory
// holding an entry count and a fixed array of (inode number, name) slots.
// Entries are appended only; there is no deletion or compaction.
package dir

import (
	"bytes"
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/EasonChiu28/simplefs/buf"
	"github.com/EasonChiu28/simplefs/common"
	"github.com/EasonChiu28/simplefs/disk"
	"github.com/EasonChiu28/simplefs/fserr"
	"github.com/EasonChiu28/simplefs/super"
	"github.com/EasonChiu28/simplefs/util"
)

// DirEnt is one directory entry as seen by callers.
type DirEnt struct {
	Inum common.Inum
	Name string
}

// DotOffset is the cursor bias for the two leading entries ("." and "..")
// the host synthesizes before handing iteration to this package.
const DotOffset uint64 = 2

func entryOff(i uint64) uint64 {
	return 8 + i*common.DirEntSz
}

// decodeEntry reads slot i. The stored name buffer is not necessarily
// null-terminated; the comparison is bounded by forcing termination.
func decodeEntry(blk disk.Block, i uint64) (common.Inum, []byte) {
	off := entryOff(i)
	dec := marshal.NewDec(blk[off : off+8])
	ino := common.Inum(dec.GetInt())
	name := blk[off+8 : off+common.DirEntSz]
	if j := bytes.IndexByte(name, 0); j >= 0 {
		name = name[:j]
	}
	return ino, name
}

func encodeEntry(blk disk.Block, i uint64, ino common.Inum, name string) {
	off := entryOff(i)
	enc := marshal.NewEnc(8)
	enc.PutInt(uint64(ino))
	copy(blk[off:off+8], enc.Finish())
	namebuf := blk[off+8 : off+common.DirEntSz]
	for k := range namebuf {
		namebuf[k] = 0
	}
	copy(namebuf, name)
}

func numFiles(blk disk.Block) uint64 {
	dec := marshal.NewDec(blk[0:8])
	return dec.GetInt()
}

func setNumFiles(blk disk.Block, n uint64) {
	enc := marshal.NewEnc(8)
	enc.PutInt(n)
	copy(blk[0:8], enc.Finish())
}

// readDirBlock loads a directory block and validates its entry count.
func readDirBlock(sb *super.FsSuper, blkno common.Bnum) (*buf.Buf, uint64, error) {
	b, err := buf.ReadBlock(sb.Disk(), blkno)
	if err != nil {
		return nil, 0, err
	}
	nr := numFiles(b.Blk)
	if nr > common.MaxSubfiles {
		return nil, 0, fmt.Errorf("directory block %d entry count %d: %w",
			blkno, nr, fserr.ErrCorrupt)
	}
	return b, nr, nil
}

// lookupIn scans decoded entries for name, tolerating stale slots (inode
// number zero or out of range are skipped, not errors).
func lookupIn(sb *super.FsSuper, blk disk.Block, nr uint64, name string) (common.Inum, bool) {
	for i := uint64(0); i < nr; i++ {
		ino, ename := decodeEntry(blk, i)
		if ino == common.NULLINUM || uint64(ino) >= sb.NInodes {
			continue
		}
		if string(ename) == name {
			return ino, true
		}
	}
	return common.NULLINUM, false
}

// Lookup returns the inode number bound to name in the directory block at
// blkno, or ErrNotFound.
func Lookup(sb *super.FsSuper, blkno common.Bnum, name string) (common.Inum, error) {
	b, nr, err := readDirBlock(sb, blkno)
	if err != nil {
		return common.NULLINUM, err
	}
	ino, ok := lookupIn(sb, b.Blk, nr, name)
	if !ok {
		return common.NULLINUM, fmt.Errorf("lookup %q: %w", name, fserr.ErrNotFound)
	}
	util.DPrintf(5, "Lookup: %q -> %d\n", name, ino)
	return ino, nil
}

// Insert appends (name, ino) at the next slot and persists the block.
func Insert(sb *super.FsSuper, blkno common.Bnum, name string, ino common.Inum) error {
	if uint64(len(name)) >= common.MaxFilenameLen {
		return fmt.Errorf("insert %q: %w", name, fserr.ErrNameTooLong)
	}
	if len(name) == 0 {
		return fmt.Errorf("insert empty name: %w", fserr.ErrInvalidArg)
	}
	b, nr, err := readDirBlock(sb, blkno)
	if err != nil {
		return err
	}
	if nr == common.MaxSubfiles {
		return fmt.Errorf("insert %q: %w", name, fserr.ErrDirFull)
	}
	if _, ok := lookupIn(sb, b.Blk, nr, name); ok {
		return fmt.Errorf("insert %q: %w", name, fserr.ErrExists)
	}
	encodeEntry(b.Blk, nr, ino, name)
	setNumFiles(b.Blk, nr+1)
	b.SetDirty()
	util.DPrintf(5, "Insert: %q -> %d at slot %d\n", name, ino, nr)
	return b.WriteSync(sb.Disk())
}

// Iterate emits entries starting at cursor *pos (biased by DotOffset for
// the synthesized dot entries). Invalid slots are skipped but still advance
// the cursor, so any cursor value is a valid restart point. Iteration stops
// at the entry count or when emit returns false; *pos afterwards resumes
// exactly where this call stopped.
func Iterate(sb *super.FsSuper, blkno common.Bnum, pos *uint64, emit func(DirEnt) bool) error {
	if *pos < DotOffset {
		panic("Iterate: cursor before dot entries")
	}
	b, nr, err := readDirBlock(sb, blkno)
	if err != nil {
		return err
	}
	for i := *pos - DotOffset; i < nr; i++ {
		ino, name := decodeEntry(b.Blk, i)
		if ino == common.NULLINUM || uint64(ino) >= sb.NInodes || len(name) == 0 {
			*pos = *pos + 1
			continue
		}
		if !emit(DirEnt{Inum: ino, Name: string(name)}) {
			break
		}
		*pos = *pos + 1
	}
	return nil
}

// NumEntries reports the entry count of the directory block at blkno.
func NumEntries(sb *super.FsSuper, blkno common.Bnum) (uint64, error) {
	_, nr, err := readDirBlock(sb, blkno)
	return nr, err
}

// MkDirBlock renders a directory block holding the given entries, used
// when formatting a volume.
func MkDirBlock(ents []DirEnt) (disk.Block, error) {
	if uint64(len(ents)) > common.MaxSubfiles {
		return nil, fmt.Errorf("mkdirblock %d entries: %w", len(ents), fserr.ErrDirFull)
	}
	blk := make(disk.Block, disk.BlockSize)
	for i, e := range ents {
		if uint64(len(e.Name)) >= common.MaxFilenameLen {
			return nil, fmt.Errorf("mkdirblock %q: %w", e.Name, fserr.ErrNameTooLong)
		}
		encodeEntry(blk, uint64(i), e.Inum, e.Name)
	}
	setNumFiles(blk, uint64(len(ents)))
	return blk, nil
}
