package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	p := NewPagination(0, 0, 41)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPerPage, p.PerPage)
	assert.Equal(t, 3, p.TotalPages)
	assert.Zero(t, p.Offset())
	assert.False(t, p.HasPrev())
	assert.True(t, p.HasNext())

	p = NewPagination(3, 20, 41)
	assert.Equal(t, 40, p.Offset())
	assert.True(t, p.HasPrev())
	assert.False(t, p.HasNext())
	assert.Equal(t, 2, p.PrevPage())
}

func TestEmptyPagination(t *testing.T) {
	p := NewPagination(1, 10, 0)
	assert.Zero(t, p.TotalPages)
	assert.False(t, p.HasNext())
}
