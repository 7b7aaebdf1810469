package explorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectionSet(t *testing.T) {
	t.Run("Toggle", func(t *testing.T) {
		s := NewSelectionSet()
		s.Toggle("/a")
		assert.True(t, s.Contains("/a"))
		s.Toggle("/a")
		assert.False(t, s.Contains("/a"))
		assert.Equal(t, 0, s.Len())
	})

	t.Run("SelectAll twice", func(t *testing.T) {
		s := NewSelectionSet()
		s.Toggle("/stale")
		s.SelectAll([]string{"/b", "/a"})
		s.SelectAll([]string{"/b", "/a"})
		assert.Equal(t, []string{"/a", "/b"}, s.Paths())
	})

	t.Run("Clear twice", func(t *testing.T) {
		s := NewSelectionSet()
		s.Toggle("/a")
		s.Clear()
		s.Clear()
		assert.Equal(t, 0, s.Len())
		assert.Empty(t, s.Paths())
	})

	t.Run("Reconcile", func(t *testing.T) {
		s := NewSelectionSet()
		s.SelectAll([]string{"/a", "/b", "/c"})
		s.Reconcile([]string{"/b", "/c", "/d"})
		assert.Equal(t, []string{"/b", "/c"}, s.Paths())
		assert.False(t, s.Contains("/d"))
	})
}
