package groupkit

import (
	"iter"

	"go.llib.dev/frameless/pkg/pointer"
)

// Chunks returns the lazy chunking of src into windows of the given size.
//
// It behaves like GroupBy with a running counter as the key:
// chunk #0 holds the first size elements, chunk #1 the next size elements,
// and so on, with the last chunk possibly shorter.
// Elements are buffered only while several chunk cursors are alive at once.
//
// Chunks panics if size is less than one.
func Chunks[V any](src iter.Seq[V], size int) *ChunksLazy[V] {
	if size < 1 {
		panic("groupkit: chunk size must be at least 1")
	}
	return &ChunksLazy[V]{core: newGroupCore(src, &chunkIndex[V]{size: size})}
}

// chunkIndex acts as the keyer for ChunksLazy: it ignores the element and
// emits size repetitions of 0, then of 1, and so forth, so that fixed
// windows fall out of the ordinary key boundary detection.
type chunkIndex[V any] struct {
	size  int
	index int
	key   int
}

func (ci *chunkIndex[V]) keyOf(V) int {
	if ci.index == ci.size {
		ci.key++
		ci.index = 0
	}
	ci.index++
	return ci.key
}

// ChunksLazy is the storage of a lazy chunking operation.
//
// Like GroupByLazy, it is not an iterator itself; call Iter to traverse it,
// and every derived cursor shares the same engine and chunk counter.
type ChunksLazy[V any] struct {
	core  *groupCore[int, V]
	index int
}

// Iter returns a cursor over the chunks.
func (l *ChunksLazy[V]) Iter() *ChunksIter[V] {
	return &ChunksIter[V]{parent: l}
}

// Close releases the source sequence, same terms as GroupByLazy.Close.
func (l *ChunksLazy[V]) Close() error {
	return l.core.close()
}

func (l *ChunksLazy[V]) nextIndex() int {
	i := l.index
	l.index++
	return i
}

// ChunksIter is a cursor over the chunks of a ChunksLazy.
type ChunksIter[V any] struct {
	parent *ChunksLazy[V]
	chunk  *Chunk[V]
}

func (cs *ChunksIter[V]) Next() bool {
	index := cs.parent.nextIndex()
	elt, ok := cs.parent.core.step(index)
	if !ok {
		return false
	}
	cs.chunk = &Chunk[V]{
		parent: cs.parent,
		index:  index,
		first:  pointer.Of(elt),
	}
	return true
}

// Value returns the cursor for the chunk opened by the last Next call.
func (cs *ChunksIter[V]) Value() *Chunk[V] {
	return cs.chunk
}

func (cs *ChunksIter[V]) Err() error { return nil }

func (cs *ChunksIter[V]) Close() error {
	return cs.parent.Close()
}

// Chunk is the cursor for the elements of a single fixed size window.
// It follows the same lifetime rules as Group.
type Chunk[V any] struct {
	parent *ChunksLazy[V]
	index  int
	first  *V
	value  V
	closed bool
}

// Index returns the chunk's position within the source, starting at zero.
func (c *Chunk[V]) Index() int { return c.index }

func (c *Chunk[V]) Next() bool {
	if c.first != nil {
		c.value = *c.first
		c.first = nil
		return true
	}
	v, ok := c.parent.core.step(c.index)
	if !ok {
		return false
	}
	c.value = v
	return true
}

func (c *Chunk[V]) Value() V { return c.value }

func (c *Chunk[V]) Err() error { return nil }

// Close reports the chunk as dropped to the engine, exactly once.
func (c *Chunk[V]) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.first = nil
	c.parent.core.dropGroup(c.index)
	return nil
}
