package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreWindowEviction(t *testing.T) {
	s := NewStore(4)
	for i := 0; i < 10; i++ {
		s.Append("a", "user", fmt.Sprintf("q%d", i))
	}
	turns := s.Window("a")
	require.Len(t, turns, 4)
	assert.Equal(t, "q6", turns[0].Content)
	assert.Equal(t, "q9", turns[3].Content)
}

func TestStoreSessionsAreIsolated(t *testing.T) {
	s := NewStore(10)
	s.Append("a", "user", "hello")
	s.Append("a", "assistant", "hi")
	s.Append("b", "user", "other")

	assert.Equal(t, 2, s.Count("a"))
	assert.Equal(t, 1, s.Count("b"))
	assert.Nil(t, s.Window("missing"))
	assert.Equal(t, []string{"a", "b"}, s.SessionIDs())
}

func TestStoreClear(t *testing.T) {
	s := NewStore(10)
	s.Append("a", "user", "x")
	s.Append("b", "user", "y")

	assert.True(t, s.Clear("a"))
	assert.False(t, s.Clear("a"))
	assert.Equal(t, 0, s.Count("a"))

	s.Append("a", "user", "again")
	assert.Equal(t, 2, s.ClearAll())
	assert.Empty(t, s.SessionIDs())
}

func TestStoreWindowReturnsCopy(t *testing.T) {
	s := NewStore(10)
	s.Append("a", "user", "original")
	turns := s.Window("a")
	turns[0].Content = "mutated"
	assert.Equal(t, "original", s.Window("a")[0].Content)
}

func TestStatusOf(t *testing.T) {
	s := NewStore(10)
	st := s.StatusOf("ghost")
	assert.Equal(t, 0, st.Turns)
	assert.Nil(t, st.LastAt)

	s.Append("a", "user", "q")
	st = s.StatusOf("a")
	assert.Equal(t, 1, st.Turns)
	require.NotNil(t, st.LastAt)
}
