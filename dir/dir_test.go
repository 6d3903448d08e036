package dir

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EasonChiu28/simplefs/buf"
	"github.com/EasonChiu28/simplefs/common"
	"github.com/EasonChiu28/simplefs/disk"
	"github.com/EasonChiu28/simplefs/fserr"
	"github.com/EasonChiu28/simplefs/super"
)

const dirBlkno = common.FirstDataBlk

// mkTestDir sets up a superblock and an empty directory block.
func mkTestDir(t *testing.T) *super.FsSuper {
	t.Helper()
	d := disk.NewMemDisk(64)
	sb := super.MkFsSuper(d, 64)
	require.NoError(t, sb.Sync())
	blk, err := MkDirBlock(nil)
	require.NoError(t, err)
	require.NoError(t, buf.MkBuf(dirBlkno, blk).WriteSync(d))
	return sb
}

func TestInsertLookup(t *testing.T) {
	assert := assert.New(t)
	sb := mkTestDir(t)

	require.NoError(t, Insert(sb, dirBlkno, "a.txt", 2))
	require.NoError(t, Insert(sb, dirBlkno, "b.txt", 3))

	ino, err := Lookup(sb, dirBlkno, "a.txt")
	require.NoError(t, err)
	assert.Equal(common.Inum(2), ino)

	ino, err = Lookup(sb, dirBlkno, "b.txt")
	require.NoError(t, err)
	assert.Equal(common.Inum(3), ino)

	_, err = Lookup(sb, dirBlkno, "c.txt")
	assert.ErrorIs(err, fserr.ErrNotFound)
}

func TestInsertDuplicate(t *testing.T) {
	sb := mkTestDir(t)
	require.NoError(t, Insert(sb, dirBlkno, "a.txt", 2))

	err := Insert(sb, dirBlkno, "a.txt", 3)
	assert.ErrorIs(t, err, fserr.ErrExists)

	nr, err := NumEntries(sb, dirBlkno)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), nr)
}

func TestInsertNameTooLong(t *testing.T) {
	sb := mkTestDir(t)
	long := make([]byte, common.MaxFilenameLen)
	for i := range long {
		long[i] = 'x'
	}
	err := Insert(sb, dirBlkno, string(long), 2)
	assert.ErrorIs(t, err, fserr.ErrNameTooLong)

	// One byte shorter fits.
	err = Insert(sb, dirBlkno, string(long[:len(long)-1]), 2)
	assert.NoError(t, err)
}

func TestInsertDirectoryFull(t *testing.T) {
	assert := assert.New(t)
	sb := mkTestDir(t)

	for i := uint64(0); i < common.MaxSubfiles; i++ {
		ino := common.Inum(2 + i%(sb.NInodes-2))
		require.NoError(t, Insert(sb, dirBlkno, fmt.Sprintf("f%03d", i), ino))
	}
	nr, err := NumEntries(sb, dirBlkno)
	require.NoError(t, err)
	assert.Equal(common.MaxSubfiles, nr)

	err = Insert(sb, dirBlkno, "one-too-many", 2)
	assert.ErrorIs(err, fserr.ErrDirFull)
	assert.ErrorIs(err, fserr.ErrOutOfSpace, "directory full is an out-of-space kind")

	nr, err = NumEntries(sb, dirBlkno)
	require.NoError(t, err)
	assert.Equal(common.MaxSubfiles, nr, "failed insert must not change the count")
}

func TestLookupRejectsCorruptCount(t *testing.T) {
	sb := mkTestDir(t)
	b, err := buf.ReadBlock(sb.Disk(), dirBlkno)
	require.NoError(t, err)
	b.Blk[0] = 0xFF
	b.Blk[1] = 0xFF
	require.NoError(t, b.WriteSync(sb.Disk()))

	_, err = Lookup(sb, dirBlkno, "a.txt")
	assert.ErrorIs(t, err, fserr.ErrCorrupt)
}

func TestLookupSkipsStaleSlots(t *testing.T) {
	assert := assert.New(t)
	sb := mkTestDir(t)
	require.NoError(t, Insert(sb, dirBlkno, "good", 2))

	// Corrupt the first slot's inode number past the table.
	b, err := buf.ReadBlock(sb.Disk(), dirBlkno)
	require.NoError(t, err)
	encodeEntry(b.Blk, 0, common.Inum(sb.NInodes+7), "good")
	setNumFiles(b.Blk, 2)
	encodeEntry(b.Blk, 1, 2, "good")
	require.NoError(t, b.WriteSync(sb.Disk()))

	ino, err := Lookup(sb, dirBlkno, "good")
	require.NoError(t, err)
	assert.Equal(common.Inum(2), ino, "stale slot is skipped, not matched")
}

func TestIteratePagination(t *testing.T) {
	assert := assert.New(t)
	sb := mkTestDir(t)
	require.NoError(t, Insert(sb, dirBlkno, "a", 1))
	require.NoError(t, Insert(sb, dirBlkno, "b", 2))

	// Page size 1: each call accepts a single entry.
	var got []DirEnt
	pos := DotOffset
	for {
		before := len(got)
		err := Iterate(sb, dirBlkno, &pos, func(e DirEnt) bool {
			if len(got) > before {
				return false
			}
			got = append(got, e)
			return true
		})
		require.NoError(t, err)
		if len(got) == before {
			break
		}
	}
	require.Len(t, got, 2)
	assert.Equal("a", got[0].Name)
	assert.Equal(common.Inum(1), got[0].Inum)
	assert.Equal("b", got[1].Name)
	assert.Equal(common.Inum(2), got[1].Inum)
	assert.Equal(DotOffset+2, pos)

	// Restarting at the final cursor yields nothing further.
	err := Iterate(sb, dirBlkno, &pos, func(e DirEnt) bool {
		t.Fatalf("unexpected entry %v", e)
		return false
	})
	assert.NoError(err)
}

func TestIterateSkipsInvalidSlots(t *testing.T) {
	assert := assert.New(t)
	sb := mkTestDir(t)
	require.NoError(t, Insert(sb, dirBlkno, "a", 1))
	require.NoError(t, Insert(sb, dirBlkno, "b", 2))
	require.NoError(t, Insert(sb, dirBlkno, "c", 3))

	// Zero out the middle slot; iteration must still reach "c".
	b, err := buf.ReadBlock(sb.Disk(), dirBlkno)
	require.NoError(t, err)
	encodeEntry(b.Blk, 1, common.NULLINUM, "")
	require.NoError(t, b.WriteSync(sb.Disk()))

	var names []string
	pos := DotOffset
	err = Iterate(sb, dirBlkno, &pos, func(e DirEnt) bool {
		names = append(names, e.Name)
		return true
	})
	require.NoError(t, err)
	assert.Equal([]string{"a", "c"}, names)
	assert.Equal(DotOffset+3, pos, "skipped slots still advance the cursor")
}
