package inode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EasonChiu28/simplefs/common"
	"github.com/EasonChiu28/simplefs/disk"
	"github.com/EasonChiu28/simplefs/fserr"
	"github.com/EasonChiu28/simplefs/super"
)

func mkTestSuper(t *testing.T) *super.FsSuper {
	t.Helper()
	d := disk.NewMemDisk(64)
	sb := super.MkFsSuper(d, 64)
	require.NoError(t, sb.Sync())
	return sb
}

func TestEncodeDecode(t *testing.T) {
	assert := assert.New(t)
	ip := &Inode{
		Mode:    ModeReg | 0o644,
		Uid:     1000,
		Gid:     100,
		Size:    123,
		Nlink:   1,
		DataBlk: 5,
	}
	b := ip.Encode()
	assert.Equal(int(common.INODESZ), len(b))
	got := Decode(b)
	assert.Equal(ip, got)
}

func TestWriteReadInode(t *testing.T) {
	assert := assert.New(t)
	sb := mkTestSuper(t)

	ip := MkRegInode(7, 8, common.FirstDataBlk)
	ip.Size = 99
	require.NoError(t, WriteInode(sb, 2, ip))

	got, err := ReadInode(sb, 2)
	require.NoError(t, err)
	assert.True(got.IsReg())
	assert.Equal(uint64(7), got.Uid)
	assert.Equal(uint64(8), got.Gid)
	assert.Equal(uint64(99), got.Size)
	assert.Equal(uint64(1), got.Nlink)
	assert.Equal(common.FirstDataBlk, got.DataBlk)

	// Neighboring slots stay untouched.
	require.NoError(t, WriteInode(sb, 3, MkDirInode(0, 0, common.FirstDataBlk+1)))
	got, err = ReadInode(sb, 2)
	require.NoError(t, err)
	assert.Equal(uint64(99), got.Size)
}

func TestReadInodeRejectsBadInum(t *testing.T) {
	sb := mkTestSuper(t)
	_, err := ReadInode(sb, common.NULLINUM)
	assert.ErrorIs(t, err, fserr.ErrInvalidArg)
	_, err = ReadInode(sb, common.Inum(sb.NInodes))
	assert.ErrorIs(t, err, fserr.ErrInvalidArg)
}

func TestReadInodeRejectsBadMode(t *testing.T) {
	sb := mkTestSuper(t)
	// Slot 2 is still all zero: mode decodes to neither file nor directory.
	_, err := ReadInode(sb, 2)
	assert.ErrorIs(t, err, fserr.ErrCorrupt)
}

func TestReadInodeRejectsBadDataBlk(t *testing.T) {
	sb := mkTestSuper(t)
	ip := MkRegInode(0, 0, common.BlockBitmapBlk) // inside the reserved range
	require.NoError(t, WriteInode(sb, 2, ip))
	_, err := ReadInode(sb, 2)
	assert.ErrorIs(t, err, fserr.ErrCorrupt)

	ip = MkRegInode(0, 0, sb.NBlocks)
	require.NoError(t, WriteInode(sb, 2, ip))
	_, err = ReadInode(sb, 2)
	assert.ErrorIs(t, err, fserr.ErrCorrupt)
}

func TestDirSizeNormalized(t *testing.T) {
	assert := assert.New(t)
	sb := mkTestSuper(t)
	ip := MkDirInode(0, 0, common.FirstDataBlk)
	ip.Size = 0
	require.NoError(t, WriteInode(sb, 2, ip))

	got, err := ReadInode(sb, 2)
	require.NoError(t, err)
	assert.Equal(disk.BlockSize, got.Size,
		"a directory stored with size 0 reads back as one block")
}
