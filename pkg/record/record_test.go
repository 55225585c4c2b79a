package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDatum(t *testing.T) {
	assert.True(t, IsDatum(BKey{Bucket: "b", Key: "k"}))
	assert.True(t, IsDatum("anything"))
	assert.True(t, IsDatum(42))
	assert.False(t, IsDatum(NotFound{Bucket: "b", Key: "k"}))
	assert.False(t, IsDatum(&NotFound{Bucket: "b", Key: "k", KeyData: "kd"}))
}

func TestFilterNotFound(t *testing.T) {
	in := []any{
		NotFound{Bucket: "b", Key: "1"},
		BKey{Bucket: "b", Key: "2"},
		NotFound{Bucket: "b", Key: "3", KeyData: "kd"},
		"scalar",
	}
	got := FilterNotFound(in)
	assert.Equal(t, []any{BKey{Bucket: "b", Key: "2"}, "scalar"}, got)
}

func TestTermListGet(t *testing.T) {
	tl := TermList{
		{Name: "age", Value: 7},
		{Name: "city", Value: "oslo"},
		{Name: "age", Value: 9},
	}
	v, ok := tl.Get("age")
	assert.True(t, ok)
	assert.Equal(t, 7, v, "first match wins")
	_, ok = tl.Get("missing")
	assert.False(t, ok)
}

func TestCompare(t *testing.T) {
	t.Run("numbers compare numerically across widths", func(t *testing.T) {
		assert.Equal(t, 0, Compare(int64(3), 3))
		assert.Equal(t, 0, Compare(3.0, uint8(3)))
		assert.Equal(t, -1, Compare(2, 2.5))
		assert.Equal(t, 1, Compare(int64(10), 9))
	})

	t.Run("numbers before strings before binaries", func(t *testing.T) {
		assert.Equal(t, -1, Compare(999, "a"))
		assert.Equal(t, -1, Compare("zzz", []byte("a")))
		assert.Equal(t, 1, Compare([]byte{0}, "zzz"))
	})

	t.Run("same-rank ordering", func(t *testing.T) {
		assert.Equal(t, -1, Compare("abc", "abd"))
		assert.Equal(t, 1, Compare([]byte("b"), []byte("a")))
		assert.Equal(t, 0, Compare([]byte("x"), []byte("x")))
	})
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(int64(5), 5))
	assert.True(t, Equal("a", "a"))
	assert.False(t, Equal("5", 5))
	assert.True(t, Equal(BKey{Bucket: "b", Key: "k"}, BKey{Bucket: "b", Key: "k"}))
	assert.False(t, Equal(BKey{Bucket: "b", Key: "k"}, BKey{Bucket: "b", Key: "x"}))
}
