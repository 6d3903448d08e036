package icache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/EasonChiu28/simplefs/common"
	"github.com/EasonChiu28/simplefs/inode"
)

func TestGetPut(t *testing.T) {
	assert := assert.New(t)
	c := MkCache()

	_, ok := c.Get(1)
	assert.False(ok)

	h := &Handle{Inum: 1, I: inode.Inode{Mode: inode.ModeDir | 0o755}}
	c.Put(h)
	got, ok := c.Get(1)
	assert.True(ok)
	assert.Equal(h, got)

	c.Clear()
	_, ok = c.Get(1)
	assert.False(ok)
}

func TestConcurrentReaders(t *testing.T) {
	c := MkCache()
	for i := uint64(1); i < 64; i++ {
		c.Put(&Handle{Inum: common.Inum(i)})
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := uint64(1); i < 64; i++ {
				h, ok := c.Get(common.Inum(i))
				if !ok || h.Inum != common.Inum(i) {
					t.Errorf("handle %d missing or wrong", i)
					return
				}
			}
		}()
	}
	wg.Wait()
}
