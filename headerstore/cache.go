package headerstore

import (
	"github.com/daglabs/headerdb/blockheader"
	"github.com/daglabs/headerdb/objectstore"
)

// key identifies a stored header the way a ref name does: by its
// (height, hash) pair.
type key struct {
	height uint64
	hash   [32]byte
}

// headerLRUCache is a bounded, randomly-evicting cache of decoded headers: a
// plain map with eviction of an arbitrary entry once the capacity is
// exceeded, rather than a strict least-recently-used policy. It is a read
// accelerator only; evicting the wrong entry never affects correctness,
// only hit rate.
type headerLRUCache struct {
	cache    map[key]*blockheader.BlockHeader
	capacity int
}

func newHeaderLRUCache(capacity int) *headerLRUCache {
	return &headerLRUCache{
		cache:    make(map[key]*blockheader.BlockHeader, capacity+1),
		capacity: capacity,
	}
}

func (c *headerLRUCache) Add(k key, header *blockheader.BlockHeader) {
	if c.capacity <= 0 {
		return
	}
	c.cache[k] = header
	if len(c.cache) > c.capacity {
		c.evictOne()
	}
}

func (c *headerLRUCache) Get(k key) (*blockheader.BlockHeader, bool) {
	header, ok := c.cache[k]
	return header, ok
}

func (c *headerLRUCache) Remove(k key) {
	delete(c.cache, k)
}

func (c *headerLRUCache) evictOne() {
	for k := range c.cache {
		delete(c.cache, k)
		return
	}
}

// treeEntryCache is the smaller companion cache of tree-object entry lists,
// keyed by the tree object's content hash, used by lookupAtHeight to avoid
// re-reading the same ancestor tree repeatedly during a single descent.
// Same random-eviction policy as headerLRUCache.
type treeEntryCache struct {
	cache    map[[32]byte][]objectstore.TreeEntry
	capacity int
}

func newTreeEntryCache(capacity int) *treeEntryCache {
	return &treeEntryCache{
		cache:    make(map[[32]byte][]objectstore.TreeEntry, capacity+1),
		capacity: capacity,
	}
}

func (c *treeEntryCache) Add(id [32]byte, entries []objectstore.TreeEntry) {
	if c.capacity <= 0 {
		return
	}
	c.cache[id] = entries
	if len(c.cache) > c.capacity {
		c.evictOne()
	}
}

func (c *treeEntryCache) Get(id [32]byte) ([]objectstore.TreeEntry, bool) {
	entries, ok := c.cache[id]
	return entries, ok
}

func (c *treeEntryCache) evictOne() {
	for id := range c.cache {
		delete(c.cache, id)
		return
	}
}
