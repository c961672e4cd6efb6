package groupkit_test

import (
	"testing"

	"go.llib.dev/frameless/pkg/iterkit"
	"go.llib.dev/groupkit"

	"go.llib.dev/testcase"
	"go.llib.dev/testcase/assert"
)

func drainChunk[V any](c *groupkit.Chunk[V]) []V {
	var vs []V
	for c.Next() {
		vs = append(vs, c.Value())
	}
	return vs
}

func TestChunks(t *testing.T) {
	s := testcase.NewSpec(t)

	letters := []string{"a", "b", "c", "d", "e"}

	s.Test("a trailing partial window is still a chunk", func(t *testcase.T) {
		l := groupkit.Chunks(iterkit.Slice(letters), 2)
		defer l.Close()
		cs := l.Iter()

		assert.True(t, cs.Next())
		assert.Equal(t, []string{"a", "b"}, drainChunk(cs.Value()))
		assert.True(t, cs.Next())
		assert.Equal(t, []string{"c", "d"}, drainChunk(cs.Value()))
		assert.True(t, cs.Next())
		assert.Equal(t, []string{"e"}, drainChunk(cs.Value()))
		assert.False(t, cs.Next())
	})

	s.Test("chunks are numbered in discovery order", func(t *testcase.T) {
		l := groupkit.Chunks(iterkit.Slice(letters), 2)
		defer l.Close()
		cs := l.Iter()

		var indexes []int
		for cs.Next() {
			c := cs.Value()
			indexes = append(indexes, c.Index())
			_ = c.Close()
		}
		assert.Equal(t, []int{0, 1, 2}, indexes)
	})

	s.Test("chunk size one yields each element alone", func(t *testcase.T) {
		l := groupkit.Chunks(iterkit.Slice([]int{1, 2, 3}), 1)
		defer l.Close()

		var chunks [][]int
		cs := l.Iter()
		for cs.Next() {
			chunks = append(chunks, drainChunk(cs.Value()))
		}
		assert.Equal(t, [][]int{{1}, {2}, {3}}, chunks)
	})

	s.Test("a chunk size beyond the source length yields a single chunk", func(t *testcase.T) {
		l := groupkit.Chunks(iterkit.Slice(letters), len(letters)+t.Random.IntB(1, 10))
		defer l.Close()
		cs := l.Iter()

		assert.True(t, cs.Next())
		assert.Equal(t, letters, drainChunk(cs.Value()))
		assert.False(t, cs.Next())
	})

	s.Test("empty source yields no chunk", func(t *testcase.T) {
		cs := groupkit.Chunks(iterkit.Empty[int](), 3).Iter()
		defer cs.Close()
		assert.False(t, cs.Next())
	})

	s.Test("a later chunk can be consumed before an earlier one", func(t *testcase.T) {
		l := groupkit.Chunks(iterkit.Slice(letters), 2)
		defer l.Close()
		cs := l.Iter()

		assert.True(t, cs.Next())
		c0 := cs.Value()
		assert.True(t, cs.Next())
		c1 := cs.Value()

		assert.Equal(t, []string{"c", "d"}, drainChunk(c1))
		assert.Equal(t, []string{"a", "b"}, drainChunk(c0))

		assert.True(t, cs.Next())
		assert.Equal(t, []string{"e"}, drainChunk(cs.Value()))
	})

	s.Test("an opened but closed chunk does not disturb the following ones", func(t *testcase.T) {
		l := groupkit.Chunks(iterkit.Slice(letters), 2)
		defer l.Close()
		cs := l.Iter()

		assert.True(t, cs.Next())
		assert.NoError(t, cs.Value().Close())

		assert.True(t, cs.Next())
		assert.Equal(t, []string{"c", "d"}, drainChunk(cs.Value()))
		assert.True(t, cs.Next())
		assert.Equal(t, []string{"e"}, drainChunk(cs.Value()))
		assert.False(t, cs.Next())
	})

	s.Test("chunk size below one is a programmer error", func(t *testcase.T) {
		assert.Panic(t, func() { groupkit.Chunks(iterkit.Slice(letters), 0) })
		assert.Panic(t, func() { groupkit.Chunks(iterkit.Slice(letters), -1*t.Random.IntB(1, 42)) })
	})
}

func TestChunksLazy_All(t *testing.T) {
	s := testcase.NewSpec(t)

	s.Test("smoke", func(t *testcase.T) {
		l := groupkit.Chunks(iterkit.IntRange(1, 7), 3)

		var chunks [][]int
		for chunk := range l.All() {
			chunks = append(chunks, iterkit.Collect(chunk))
		}
		assert.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6}, {7}}, chunks)
	})

	s.Test("completeness over a random source", func(t *testcase.T) {
		var (
			length = t.Random.IntB(1, 100)
			size   = t.Random.IntB(1, 10)
		)
		var values []int
		for i := 0; i < length; i++ {
			values = append(values, t.Random.Int())
		}

		var got []int
		for chunk := range groupkit.Chunks(iterkit.Slice(values), size).All() {
			vs := iterkit.Collect(chunk)
			assert.True(t, len(vs) <= size)
			got = append(got, vs...)
		}
		assert.Equal(t, values, got)
	})
}
