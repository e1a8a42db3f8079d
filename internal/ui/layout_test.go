package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLayoutLogicalWidth(t *testing.T) {
	l := NewLayout(100, 40, 0)
	assert.Equal(t, DefaultCellWidth, l.CellWidth)
	assert.Equal(t, 800, l.LogicalWidth())
	assert.Equal(t, 38, l.ContentHeight())
}

func TestLayoutSplitWidths(t *testing.T) {
	l := NewLayout(100, 40, 8)

	list, detail := l.SplitWidths(false)
	assert.Equal(t, 40, list)
	assert.Equal(t, 60, detail)

	list, detail = l.SplitWidths(true)
	assert.Equal(t, 100, list)
	assert.Equal(t, 100, detail)
}
