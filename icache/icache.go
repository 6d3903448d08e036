// Package icache is the per-volume table of materialized inode handles,
// keyed by inode number. It replaces a process-wide inode cache: each
// mounted volume owns one table, created at mount and dropped at unmount.
//
// The table is sharded so that concurrent read-only operations do not
// contend on a single lock; shard i covers all inums with inum % NSHARD == i.
package icache

import (
	"sync"

	"github.com/EasonChiu28/simplefs/common"
	"github.com/EasonChiu28/simplefs/inode"
)

// Handle tags a decoded inode record with its inode number; it is the
// host-visible representation of an open file or directory.
type Handle struct {
	Inum common.Inum
	I    inode.Inode
}

const NSHARD uint64 = 13

type cacheShard struct {
	mu    *sync.RWMutex
	state map[common.Inum]*Handle
}

func mkCacheShard() *cacheShard {
	return &cacheShard{
		mu:    new(sync.RWMutex),
		state: make(map[common.Inum]*Handle),
	}
}

type Cache struct {
	shards []*cacheShard
}

func MkCache() *Cache {
	var shards []*cacheShard
	for i := uint64(0); i < NSHARD; i++ {
		shards = append(shards, mkCacheShard())
	}
	return &Cache{shards: shards}
}

func (c *Cache) shard(ino common.Inum) *cacheShard {
	return c.shards[uint64(ino)%NSHARD]
}

func (c *Cache) Get(ino common.Inum) (*Handle, bool) {
	s := c.shard(ino)
	s.mu.RLock()
	h, ok := s.state[ino]
	s.mu.RUnlock()
	return h, ok
}

func (c *Cache) Put(h *Handle) {
	s := c.shard(h.Inum)
	s.mu.Lock()
	s.state[h.Inum] = h
	s.mu.Unlock()
}

// Clear empties the table; called at unmount.
func (c *Cache) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.state = make(map[common.Inum]*Handle)
		s.mu.Unlock()
	}
}
