package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryHistory(t *testing.T) {
	h := NewMemoryHistory("")

	h.Replace("category=Rings")
	h.Push("category=Rings&page=2")
	h.Push("category=Rings&page=3")
	assert.Equal(t, 3, h.Len())

	raw, ok := h.Back()
	assert.True(t, ok)
	assert.Equal(t, "category=Rings&page=2", raw)

	// Pushing after going back drops the forward entry
	h.Push("category=Rings&page=4")
	assert.Equal(t, 3, h.Len())
	_, ok = h.Forward()
	assert.False(t, ok)

	h.Replace("category=Rings&color=Gold")
	assert.Equal(t, "category=Rings&color=Gold", h.Current())

	h.Push("category=Rings&color=Gold")
	assert.Equal(t, 3, h.Len(), "pushing the current entry is a no-op")

	h.Back()
	raw, _ = h.Back()
	assert.Equal(t, "category=Rings", raw)
	_, ok = h.Back()
	assert.False(t, ok)
}
