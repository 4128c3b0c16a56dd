package pool

import (
	"errors"
	"sync"
)

// ErrAlreadyPooled is returned when releasing an item that is already in the pool.
var ErrAlreadyPooled = errors.New("item already in pool")

// Pool is a reuse-on-release pool. It grows without bound and hands out the
// most recently released item first. An item is either pooled or out, never
// both.
type Pool[T comparable] struct {
	mu     sync.Mutex
	items  []T
	pooled map[T]struct{}
}

// New creates an empty pool.
func New[T comparable]() *Pool[T] {
	return &Pool[T]{
		items:  make([]T, 0),
		pooled: make(map[T]struct{}),
	}
}

// Acquire takes an item out of the pool. ok is false when the pool is empty.
func (p *Pool[T]) Acquire() (item T, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.items) == 0 {
		return item, false
	}
	last := len(p.items) - 1
	item = p.items[last]
	p.items = p.items[:last]
	delete(p.pooled, item)
	return item, true
}

// Release puts an item back for reuse.
func (p *Pool[T]) Release(item T) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.pooled[item]; ok {
		return ErrAlreadyPooled
	}
	p.pooled[item] = struct{}{}
	p.items = append(p.items, item)
	return nil
}

// Take removes a specific item from the pool. It returns false when the item
// was not pooled.
func (p *Pool[T]) Take(item T) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.pooled[item]; !ok {
		return false
	}
	delete(p.pooled, item)
	for i, it := range p.items {
		if it == item {
			p.items = append(p.items[:i], p.items[i+1:]...)
			break
		}
	}
	return true
}

// Contains reports whether the item is currently pooled.
func (p *Pool[T]) Contains(item T) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.pooled[item]
	return ok
}

// Len returns the number of pooled items.
func (p *Pool[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// Drain empties the pool and returns its items.
func (p *Pool[T]) Drain() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := p.items
	p.items = make([]T, 0, cap(p.items))
	p.pooled = make(map[T]struct{})
	return result
}
