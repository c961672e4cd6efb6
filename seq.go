package groupkit

import "iter"

// All returns the grouping as a push style sequence of (key, group) pairs,
// for the common case of consuming the groups in order.
//
// All is single use: it drives the shared engine forward, and when the outer
// range ends it closes the container, releasing the source.
// The group sequence passed to the yield is only valid within that yield;
// keep cursors from Groups instead when groups must outlive their turn.
func (l *GroupByLazy[K, V]) All() iter.Seq2[K, iter.Seq[V]] {
	return func(yield func(K, iter.Seq[V]) bool) {
		gs := l.Groups()
		defer gs.Close()
		for gs.Next() {
			key, group := gs.Value()
			ok := yield(key, group.Values())
			_ = group.Close()
			if !ok {
				return
			}
		}
	}
}

// All returns the chunking as a push style sequence of chunk contents,
// under the same single use terms as GroupByLazy.All.
func (l *ChunksLazy[V]) All() iter.Seq[iter.Seq[V]] {
	return func(yield func(iter.Seq[V]) bool) {
		cs := l.Iter()
		defer cs.Close()
		for cs.Next() {
			chunk := cs.Value()
			ok := yield(chunk.Values())
			_ = chunk.Close()
			if !ok {
				return
			}
		}
	}
}

// Values returns the remaining elements of the group
// as a single use push sequence.
func (g *Group[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for g.Next() {
			if !yield(g.Value()) {
				return
			}
		}
	}
}

// Values returns the remaining elements of the chunk
// as a single use push sequence.
func (c *Chunk[V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for c.Next() {
			if !yield(c.Value()) {
				return
			}
		}
	}
}
