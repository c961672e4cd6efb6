// Package groupkit provides lazy, single pass grouping and chunking over
// iter.Seq sequences.
//
// GroupBy collects consecutive elements that share a key into groups,
// Chunks collects fixed size windows; both walk the source exactly once.
// Groups are handed out as cursors that can be consumed right away,
// kept for later, consumed out of order, or closed without consuming,
// and the source is still only driven forward on demand.
// When the groups are consumed in their original order, or each group is
// closed without being kept around, no buffering happens at all;
// elements are buffered only for groups that are still open while a later
// group is being read.
package groupkit

import (
	"iter"

	"go.llib.dev/frameless/pkg/errorkit"
	"go.llib.dev/frameless/pkg/pointer"
)

// ErrConcurrentAccess is the panic value raised on re-entrant engine access,
// such as a cursor being advanced from within the key function.
// The engine is a single writer structure; sharing it between goroutines
// or re-entering it is a programming error, not a recoverable condition.
const ErrConcurrentAccess errorkit.Error = "groupkit: concurrent or re-entrant access to the grouping engine"

// GroupBy returns the lazy grouping of src by the given key function.
//
// Consecutive elements of src belong to the same group as long as their keys
// are equal; every key change starts a new group. The key function must be
// deterministic for a given element, no further purity is assumed.
//
// The source is consumed through a single iter.Pull session,
// so src is walked exactly once regardless of how the groups are consumed.
func GroupBy[K comparable, V any](src iter.Seq[V], key func(V) K) *GroupByLazy[K, V] {
	return &GroupByLazy[K, V]{core: newGroupCore(src, funcKeyer[K, V](key))}
}

// GroupByLazy is the storage of a lazy grouping operation.
//
// It is not an iterator itself; call Groups to traverse it.
// All Groups views derived from the same GroupByLazy share one engine and
// one group index counter, so interleaved or repeated traversal hands out
// globally unique groups instead of restarting.
type GroupByLazy[K comparable, V any] struct {
	core *groupCore[K, V]
	// index is the next unclaimed group index,
	// shared between every Groups view of this value
	index int
}

// Groups returns a cursor over the (key, group) pairs of the grouping.
func (l *GroupByLazy[K, V]) Groups() *Groups[K, V] {
	return &Groups[K, V]{parent: l}
}

// Close releases the source sequence.
// It is idempotent, and closing through any derived cursor is equivalent.
// Groups that already buffered their elements stay consumable after close,
// but no new element is pulled from the source.
func (l *GroupByLazy[K, V]) Close() error {
	return l.core.close()
}

func (l *GroupByLazy[K, V]) nextIndex() int {
	i := l.index
	l.index++
	return i
}

// Groups is a cursor over the groups of a GroupByLazy.
//
// Each Next claims the next group index and resolves that group's key by
// reading one element past the group's first element, which makes the key
// available before the group body is consumed.
type Groups[K comparable, V any] struct {
	parent *GroupByLazy[K, V]
	key    K
	group  *Group[K, V]
}

func (gs *Groups[K, V]) Next() bool {
	index := gs.parent.nextIndex()
	elt, ok := gs.parent.core.step(index)
	if !ok {
		return false
	}
	gs.key = gs.parent.core.groupKey(index)
	gs.group = &Group[K, V]{
		parent: gs.parent,
		index:  index,
		key:    gs.key,
		first:  pointer.Of(elt),
	}
	return true
}

// Value returns the key of the group opened by the last Next call,
// together with the cursor for the group's elements.
func (gs *Groups[K, V]) Value() (K, *Group[K, V]) {
	return gs.key, gs.group
}

func (gs *Groups[K, V]) Err() error { return nil }

func (gs *Groups[K, V]) Close() error {
	return gs.parent.Close()
}

// Group is the cursor for the elements of a single group.
//
// A Group stays valid after the Groups cursor that produced it moved on;
// the engine buffers on its behalf when needed. Close it when done:
// an opened but unwanted group that is closed before the next group gets
// discovered is skipped without buffering.
type Group[K comparable, V any] struct {
	parent *GroupByLazy[K, V]
	index  int
	key    K
	first  *V
	value  V
	closed bool
}

// Key returns the key shared by every element of the group.
func (g *Group[K, V]) Key() K { return g.key }

func (g *Group[K, V]) Next() bool {
	if g.first != nil {
		g.value = *g.first
		g.first = nil
		return true
	}
	v, ok := g.parent.core.step(g.index)
	if !ok {
		return false
	}
	g.value = v
	return true
}

func (g *Group[K, V]) Value() V { return g.value }

func (g *Group[K, V]) Err() error { return nil }

// Close reports the group as dropped to the engine, exactly once.
// Elements the group did not consume are discarded or never buffered.
func (g *Group[K, V]) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	g.first = nil
	g.parent.core.dropGroup(g.index)
	return nil
}
