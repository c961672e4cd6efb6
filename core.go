package groupkit

import (
	"fmt"
	"iter"

	"go.llib.dev/frameless/pkg/pointer"
)

// keyer unifies the arbitrary key function of GroupBy
// with the running chunk counter of Chunks.
type keyer[K comparable, V any] interface {
	keyOf(v V) K
}

type funcKeyer[K comparable, V any] func(V) K

func (fn funcKeyer[K, V]) keyOf(v V) K { return fn(v) }

// queue holds the buffered elements of a single group in FIFO order.
// Popped elements stay referenced until the whole queue is reclaimed,
// which happens wholesale during buffer compaction.
type queue[V any] struct {
	elems []V
	head  int
}

func (q *queue[V]) pop() (V, bool) {
	if q.head == len(q.elems) {
		var zero V
		return zero, false
	}
	v := q.elems[q.head]
	q.head++
	return v, true
}

func (q *queue[V]) len() int { return len(q.elems) - q.head }

const noDroppedGroup = -1

// compactionDivisor controls the amortised buffer reclamation:
// the leading span of drained slots is physically erased once it reaches
// at least 1/compactionDivisor of the buffer length.
const compactionDivisor = 2

// groupCore drives the single pass over the source sequence and serves
// element requests for any still live group index.
//
// Groups are numbered in discovery order. The group at the frontier index
// (top) is produced straight from the source without buffering; a group
// is buffered only when a later group gets discovered before it finished.
type groupCore[K comparable, V any] struct {
	keyer keyer[K, V]
	next  func() (V, bool)
	stop  func()

	// one element lookahead, held while a group boundary is being resolved
	currentKey *K
	currentElt *V

	// done reports that the source yielded its last element
	done bool
	// top is the discovery frontier, the group currently produced unbuffered
	top int
	// bot is the lowest group index that may still have buffered elements
	bot int
	// bufbot is the group index of buffer[0]; slots bufbot..bot are drained
	// and get erased once the span is large enough
	bufbot int
	// buffer holds the per-group element queues from bufbot (slot 0) to top
	buffer []queue[V]
	// droppedGroup is the highest group index whose handle was closed,
	// tracked so the frontier group can skip buffering when abandoned
	droppedGroup int

	// borrowed guards against re-entrant engine access from within
	// a key function or a nested cursor call
	borrowed bool
	closed   bool
}

func newGroupCore[K comparable, V any](src iter.Seq[V], k keyer[K, V]) *groupCore[K, V] {
	next, stop := iter.Pull(src)
	return &groupCore[K, V]{
		keyer:        k,
		next:         next,
		stop:         stop,
		droppedGroup: noDroppedGroup,
	}
}

func (c *groupCore[K, V]) borrow() {
	if c.borrowed {
		panic(ErrConcurrentAccess)
	}
	c.borrowed = true
}

func (c *groupCore[K, V]) release() { c.borrowed = false }

// step serves the next element for the group identified by client.
func (c *groupCore[K, V]) step(client int) (V, bool) {
	c.borrow()
	defer c.release()
	switch {
	case client < c.bot:
		// the group's buffer slot was already drained and reclaimed
		var zero V
		return zero, false
	case client < c.top || (client == c.top && len(c.buffer) > c.top-c.bufbot):
		return c.lookupBuffer(client)
	case c.done:
		var zero V
		return zero, false
	case client == c.top:
		return c.stepCurrent()
	default:
		return c.stepBuffering(client)
	}
}

func (c *groupCore[K, V]) lookupBuffer(client int) (V, bool) {
	bufidx := client - c.bufbot
	var (
		elt V
		ok  bool
	)
	if bufidx < len(c.buffer) {
		elt, ok = c.buffer[bufidx].pop()
	}
	if !ok && client == c.bot {
		// the group at bot just drained;
		// skip bot forward past every other already drained slot
		c.bot++
		for c.bot-c.bufbot < len(c.buffer) && c.buffer[c.bot-c.bufbot].len() == 0 {
			c.bot++
		}
		nclear := c.bot - c.bufbot
		if nclear > 0 && nclear >= len(c.buffer)/compactionDivisor {
			n := copy(c.buffer, c.buffer[nclear:])
			clear(c.buffer[n:])
			c.buffer = c.buffer[:n]
			c.bufbot = c.bot
		}
	}
	return elt, ok
}

// nextElement pulls the next element from the source,
// and flags the engine as done on exhaustion.
// It must not be called once done is set.
func (c *groupCore[K, V]) nextElement() (V, bool) {
	v, ok := c.next()
	if !ok {
		c.done = true
	}
	return v, ok
}

// stepBuffering walks the source to the start of the requested group,
// buffering the frontier group's remaining elements on the way,
// unless the frontier group was dropped by its handle.
//
// The group sequence is always the first to request each group index,
// therefore a discovery request is exactly one index past the frontier.
func (c *groupCore[K, V]) stepBuffering(client int) (V, bool) {
	if client != c.top+1 {
		panic(fmt.Sprintf("groupkit: group #%d was requested while the discovery frontier is at #%d", client, c.top))
	}
	var group []V
	if c.currentElt != nil {
		if c.top != c.droppedGroup {
			group = append(group, *c.currentElt)
		}
		c.currentElt = nil
	}
	var firstElt *V // first element of the next group
	for {
		elt, ok := c.nextElement()
		if !ok {
			break
		}
		key := c.keyer.keyOf(elt)
		if c.currentKey != nil && *c.currentKey != key {
			c.currentKey = pointer.Of(key)
			firstElt = pointer.Of(elt)
			break
		}
		c.currentKey = pointer.Of(key)
		if c.top != c.droppedGroup {
			group = append(group, elt)
		}
	}
	if c.top != c.droppedGroup {
		c.pushNextGroup(group)
	}
	if firstElt == nil {
		var zero V
		return zero, false
	}
	c.top++
	return *firstElt, true
}

func (c *groupCore[K, V]) pushNextGroup(group []V) {
	// fill the gap between the buffer's end and the frontier with
	// empty slots, so slot indexing stays aligned to bufbot
	for c.top-c.bufbot > len(c.buffer) {
		if len(c.buffer) == 0 {
			c.bufbot++
			c.bot++
		} else {
			c.buffer = append(c.buffer, queue[V]{})
		}
	}
	c.buffer = append(c.buffer, queue[V]{elems: group})
}

// stepCurrent produces the frontier group straight from the source,
// this is the zero buffering path of sequential consumption.
func (c *groupCore[K, V]) stepCurrent() (V, bool) {
	if c.currentElt != nil {
		elt := *c.currentElt
		c.currentElt = nil
		return elt, true
	}
	elt, ok := c.nextElement()
	if !ok {
		var zero V
		return zero, false
	}
	key := c.keyer.keyOf(elt)
	if c.currentKey != nil && *c.currentKey != key {
		c.currentKey = pointer.Of(key)
		c.currentElt = pointer.Of(elt)
		c.top++
		var zero V
		return zero, false
	}
	c.currentKey = pointer.Of(key)
	return elt, true
}

// groupKey returns the key of the group that was just opened.
//
// It may only be called right after the first element of the frontier group
// was delivered, with no lookahead held. It resolves whether the boundary
// was already crossed by pulling one further element, which is why opening
// a group and asking its key are two separate engine calls.
func (c *groupCore[K, V]) groupKey(client int) K {
	c.borrow()
	defer c.release()
	if client != c.top || c.currentKey == nil || c.currentElt != nil {
		panic(fmt.Sprintf("groupkit: no group key is available for group #%d", client))
	}
	oldKey := *c.currentKey
	c.currentKey = nil
	if elt, ok := c.nextElement(); ok {
		key := c.keyer.keyOf(elt)
		if oldKey != key {
			c.top++
		}
		c.currentKey = pointer.Of(key)
		c.currentElt = pointer.Of(elt)
	}
	return oldKey
}

// dropGroup records that the handle of the given group was closed.
// Only the maximal index matters: the frontier group is the only one
// that can still avoid buffering, earlier groups are either already
// buffered and reclaimed through draining, or gone.
func (c *groupCore[K, V]) dropGroup(client int) {
	c.borrow()
	defer c.release()
	if client > c.droppedGroup {
		c.droppedGroup = client
	}
}

// close releases the source sequence. Elements that were already buffered
// for an open group remain consumable, but the source is never pulled again.
func (c *groupCore[K, V]) close() error {
	c.borrow()
	defer c.release()
	if c.closed {
		return nil
	}
	c.closed = true
	c.done = true
	c.currentKey = nil
	c.currentElt = nil
	c.stop()
	return nil
}
