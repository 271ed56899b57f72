package kvstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySetGet(t *testing.T) {
	var m Memory

	_, ok, err := m.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set("k", "v1"))
	require.NoError(t, m.Set("k", "v2"))

	v, ok, err := m.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)
}

func TestMemoryRemoveIdempotent(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Set("k", "v"))
	require.NoError(t, m.Remove("k"))
	require.NoError(t, m.Remove("k"))

	_, ok, _ := m.Get("k")
	assert.False(t, ok)
}

func TestMemoryClear(t *testing.T) {
	m := NewMemory()
	_ = m.Set("a", "1")
	_ = m.Set("b", "2")
	require.NoError(t, m.Clear())
	assert.Equal(t, 0, m.Len())
}
