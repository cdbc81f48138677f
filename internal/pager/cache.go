package pager

// lru is a small bounded least-recently-used page cache. It exists purely
// as the permitted optimization spec §4.2 calls out ("a bounded LRU is a
// permissible optimization but not required"); no example repo in the
// corpus imports a third-party LRU package, so this is hand-rolled rather
// than fetched (see DESIGN.md).
type lru struct {
	capacity int
	order    []uint32
	pages    map[uint32][]byte
}

func newLRU(capacity int) *lru {
	return &lru{
		capacity: capacity,
		pages:    make(map[uint32][]byte, capacity),
	}
}

func (c *lru) get(n uint32) ([]byte, bool) {
	data, ok := c.pages[n]
	if !ok {
		return nil, false
	}
	c.touch(n)
	return data, true
}

func (c *lru) put(n uint32, data []byte) {
	if _, exists := c.pages[n]; !exists && len(c.pages) >= c.capacity {
		c.evictOldest()
	}
	c.pages[n] = data
	c.touch(n)
}

func (c *lru) touch(n uint32) {
	for i, v := range c.order {
		if v == n {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append(c.order, n)
}

func (c *lru) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.pages, oldest)
}
