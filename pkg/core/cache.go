package core

import "fmt"

// A cache server; all caches of an instance share the same capacity
type Cache struct {
	id       int
	capacity int
}

func NewCache(id, capacity int) *Cache {
	return &Cache{
		id:       id,
		capacity: capacity,
	}
}

func (c *Cache) ID() int {
	return c.id
}

func (c *Cache) Capacity() int {
	return c.capacity
}

func (c *Cache) String() string {
	return fmt.Sprintf("Cache: id=%d; capacity=%d", c.id, c.capacity)
}
