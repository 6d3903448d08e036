package buf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EasonChiu28/simplefs/common"
	"github.com/EasonChiu28/simplefs/disk"
	"github.com/EasonChiu28/simplefs/fserr"
)

func TestBitOps(t *testing.T) {
	assert := assert.New(t)
	b := MkBuf(0, make(disk.Block, disk.BlockSize))

	assert.False(b.TestBit(0))
	assert.False(b.IsDirty())

	b.SetBit(0)
	b.SetBit(9)
	assert.True(b.TestBit(0))
	assert.True(b.TestBit(9))
	assert.False(b.TestBit(8), "neighboring bit stays clear")
	assert.True(b.IsDirty())

	b.ClearBit(9)
	assert.False(b.TestBit(9))
	assert.True(b.TestBit(0))
}

func TestWriteSyncRoundTrip(t *testing.T) {
	assert := assert.New(t)
	d := disk.NewMemDisk(8)

	b := MkBuf(3, make(disk.Block, disk.BlockSize))
	b.SetBit(common.NBITBLOCK - 1)
	require.NoError(t, b.WriteSync(d))
	assert.False(b.IsDirty(), "WriteSync clears the dirty flag")

	got, err := ReadBlock(d, 3)
	require.NoError(t, err)
	assert.True(got.TestBit(common.NBITBLOCK - 1))
	assert.False(got.TestBit(0))
}

func TestReadBlockOutOfBounds(t *testing.T) {
	d := disk.NewMemDisk(8)
	_, err := ReadBlock(d, 100)
	assert.ErrorIs(t, err, fserr.ErrIo)
}
