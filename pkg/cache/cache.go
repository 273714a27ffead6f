// Package cache holds decoded values keyed by an ordered id. Values leave the
// cache in admission order through batch eviction, dirty ones being flushed
// first.
package cache

import (
	"container/list"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"

	"go-bpt/pkg/rbtree"
)

type Dirtyable interface {
	IsDirty() bool
	SetDirty(v bool)
}

// FlushFunc persists a dirty value before it is dropped.
type FlushFunc[K any, V any] func(key K, val V) error

type item[K any, V any] struct {
	val  V
	elem *list.Element
}

func NewCache[K constraints.Ordered, V Dirtyable](flush FlushFunc[K, V]) *Cache[K, V] {
	return &Cache[K, V]{
		items: rbtree.New[K, *item[K, V]](),
		order: list.New(),
		flush: flush,
	}
}

// Cache is not safe for concurrent use.
type Cache[K constraints.Ordered, V Dirtyable] struct {
	items *rbtree.RBTree[K, *item[K, V]]
	order *list.List // keys, oldest admission at the front
	flush FlushFunc[K, V]
}

func (c *Cache[K, V]) Len() int {
	return c.items.Len()
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	itm, ok := c.items.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	return itm.val, true
}

// Add admits val under key. A value already cached under key is replaced
// without being flushed and keeps its admission position.
func (c *Cache[K, V]) Add(key K, val V) {
	if itm, ok := c.items.Get(key); ok {
		itm.val = val
		return
	}
	c.items.Put(key, &item[K, V]{val: val, elem: c.order.PushBack(key)})
}

// Remove drops key without flushing it.
func (c *Cache[K, V]) Remove(key K) (V, bool) {
	itm, ok := c.items.Delete(key)
	if !ok {
		var zero V
		return zero, false
	}
	c.order.Remove(itm.elem)
	return itm.val, true
}

// Evict flushes and drops the n oldest values. On a flush error the value
// that failed and everything newer stay cached.
func (c *Cache[K, V]) Evict(n int) (int, error) {
	evicted := 0
	for ; evicted < n && c.order.Len() > 0; evicted++ {
		key := c.order.Front().Value.(K)
		if err := c.flushKey(key); err != nil {
			return evicted, err
		}
		c.Remove(key)
	}
	return evicted, nil
}

// Flush writes back every dirty value in ascending key order and keeps them
// cached.
func (c *Cache[K, V]) Flush() error {
	var err error
	c.items.Ascend(func(key K, itm *item[K, V]) bool {
		err = c.flushItem(key, itm)
		return err == nil
	})
	return err
}

// Clear drops every value without flushing.
func (c *Cache[K, V]) Clear() {
	c.items = rbtree.New[K, *item[K, V]]()
	c.order.Init()
}

func (c *Cache[K, V]) flushKey(key K) error {
	itm, ok := c.items.Get(key)
	if !ok {
		return nil
	}
	return c.flushItem(key, itm)
}

func (c *Cache[K, V]) flushItem(key K, itm *item[K, V]) error {
	if !itm.val.IsDirty() {
		return nil
	}
	if err := c.flush(key, itm.val); err != nil {
		return errors.Wrapf(err, "failed to flush %v", key)
	}
	itm.val.SetDirty(false)
	return nil
}
