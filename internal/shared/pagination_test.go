package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	p := NewPagination(3, 10, 95)

	assert.Equal(t, 10, p.TotalPages)
	assert.Equal(t, 21, p.From)
	assert.Equal(t, 30, p.To)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, p.Pages)
	assert.True(t, p.HasPrev())
	assert.True(t, p.HasNext())
	assert.Equal(t, 2, p.Prev())
	assert.Equal(t, 4, p.Next())
}

func TestNewPaginationWindowAtEnd(t *testing.T) {
	p := NewPagination(40, 10, 95)

	assert.Equal(t, 10, p.Page)
	assert.Equal(t, []int{6, 7, 8, 9, 10}, p.Pages)
	assert.Equal(t, 95, p.To)
	assert.False(t, p.HasNext())
}

func TestNewPaginationEmpty(t *testing.T) {
	p := NewPagination(0, 0, 0)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 0, p.TotalPages)
	assert.Empty(t, p.Pages)
	assert.Zero(t, p.From)
	assert.False(t, p.HasPrev())
	assert.False(t, p.HasNext())
}

func TestCapabilityVocabulary(t *testing.T) {
	seen := map[Capability]bool{}
	for _, c := range Capabilities() {
		assert.True(t, c.Valid(), string(c))
		assert.NotEmpty(t, c.Description())
		assert.False(t, seen[c], "duplicate %s", c)
		seen[c] = true
	}
	assert.False(t, Capability("root.everything").Valid())
}
