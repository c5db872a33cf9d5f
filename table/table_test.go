package table

import (
	"testing"

	"github.com/coldvault/coldvault/digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyFor(s string) digest.Digest { return digest.New([]byte(s)) }

func TestInsertGetRemove(t *testing.T) {
	tbl := New()
	k := keyFor("a")

	_, had := tbl.Insert(k, []byte("1"))
	assert.False(t, had)

	v, ok := tbl.Get(k)
	require.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	prev, had := tbl.Insert(k, []byte("2"))
	assert.True(t, had)
	assert.Equal(t, []byte("1"), prev)

	removed, ok := tbl.Remove(k)
	require.True(t, ok)
	assert.Equal(t, []byte("2"), removed)

	_, ok = tbl.Get(k)
	assert.False(t, ok)
}

func TestContainsKeyLenIsEmptyClear(t *testing.T) {
	tbl := New()
	assert.True(t, tbl.IsEmpty())

	tbl.Insert(keyFor("x"), []byte("v"))
	assert.Equal(t, 1, tbl.Len())
	assert.True(t, tbl.ContainsKey(keyFor("x")))
	assert.False(t, tbl.ContainsKey(keyFor("y")))

	tbl.Clear()
	assert.True(t, tbl.IsEmpty())
	assert.Equal(t, 0, tbl.Len())
}

func TestIterationOrderIsLexicographic(t *testing.T) {
	tbl := New()
	inputs := []string{"zebra", "apple", "mango", "banana"}
	for _, s := range inputs {
		tbl.Insert(keyFor(s), []byte(s))
	}

	var keys []digest.Digest
	tbl.All(func(k digest.Digest, _ []byte) bool {
		keys = append(keys, k)
		return true
	})

	require.Len(t, keys, len(inputs))
	for i := 1; i < len(keys); i++ {
		assert.True(t, keys[i-1].Less(keys[i]) || keys[i-1].Equal(keys[i]))
	}
}

func TestFirstLastKeyValue(t *testing.T) {
	tbl := New()
	_, _, ok := tbl.FirstKeyValue()
	assert.False(t, ok)

	a, b, c := keyFor("a"), keyFor("b"), keyFor("c")
	tbl.Insert(b, []byte("b"))
	tbl.Insert(a, []byte("a"))
	tbl.Insert(c, []byte("c"))

	firstKey, firstVal, ok := tbl.FirstKeyValue()
	require.True(t, ok)
	lastKey, lastVal, ok := tbl.LastKeyValue()
	require.True(t, ok)

	assert.True(t, firstKey.Compare(lastKey) <= 0)
	assert.NotEmpty(t, firstVal)
	assert.NotEmpty(t, lastVal)
}

func TestPopFirstPopLast(t *testing.T) {
	tbl := New()
	tbl.Insert(keyFor("a"), []byte("a"))
	tbl.Insert(keyFor("b"), []byte("b"))
	tbl.Insert(keyFor("c"), []byte("c"))

	initialLen := tbl.Len()

	_, _, ok := tbl.PopFirst()
	require.True(t, ok)
	assert.Equal(t, initialLen-1, tbl.Len())

	_, _, ok = tbl.PopLast()
	require.True(t, ok)
	assert.Equal(t, initialLen-2, tbl.Len())
}

func TestAppendIsDestructiveToSource(t *testing.T) {
	dst := New()
	dst.Insert(keyFor("a"), []byte("a"))

	src := New()
	src.Insert(keyFor("b"), []byte("b"))
	src.Insert(keyFor("c"), []byte("c"))

	dst.Append(src)

	assert.Equal(t, 3, dst.Len())
	assert.True(t, src.IsEmpty())
}

func TestToBytesIsDeterministic(t *testing.T) {
	build := func() *Table {
		tbl := New()
		tbl.Insert(keyFor("b"), []byte("bbb"))
		tbl.Insert(keyFor("a"), []byte("aa"))
		tbl.Insert(keyFor("c"), []byte("c"))
		return tbl
	}

	t1 := build().ToBytes()
	t2 := build().ToBytes()
	assert.Equal(t, t1, t2)
}

func TestToBytesEncodesKeyLengthValue(t *testing.T) {
	tbl := New()
	tbl.Insert(keyFor("only"), []byte("value"))

	b := tbl.ToBytes()
	require.Len(t, b, digest.Size+4+len("value"))

	k := keyFor("only")
	assert.Equal(t, k[:], b[:digest.Size])

	length := uint32(b[digest.Size])<<24 | uint32(b[digest.Size+1])<<16 | uint32(b[digest.Size+2])<<8 | uint32(b[digest.Size+3])
	assert.Equal(t, uint32(len("value")), length)
	assert.Equal(t, "value", string(b[digest.Size+4:]))
}

func TestRangeRespectsBounds(t *testing.T) {
	tbl := New()
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		tbl.Insert(keyFor(s), []byte(s))
	}

	var all []digest.Digest
	tbl.All(func(k digest.Digest, _ []byte) bool {
		all = append(all, k)
		return true
	})
	require.Len(t, all, 5)

	var got int
	tbl.Range(all[1], all[3], true, func(digest.Digest, []byte) bool {
		got++
		return true
	})
	assert.Equal(t, 2, got)
}

func TestMutValueDoesNotAppearAsCopy(t *testing.T) {
	tbl := New()
	tbl.Insert(keyFor("a"), []byte("orig"))

	ptr, ok := tbl.MutValue(keyFor("a"))
	require.True(t, ok)
	*ptr = []byte("changed")

	v, _ := tbl.Get(keyFor("a"))
	assert.Equal(t, []byte("changed"), v)
}
