package sets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetOperations(t *testing.T) {
	a := New("paper", "thesis", "slides")
	b := New("thesis", "notes")

	assert.Equal(t, []string{"paper", "slides"}, Sorted(a.Difference(b)))
	assert.Equal(t, []string{"thesis"}, Sorted(a.Intersect(b)))
	assert.False(t, b.IsSubsetOf(a))
	assert.True(t, New("paper").IsSubsetOf(a))
	assert.True(t, New[string]().IsSubsetOf(a))

	c := a.Clone()
	c.Delete("paper")
	assert.True(t, a.Has("paper"))
	assert.False(t, c.Has("paper"))
}
