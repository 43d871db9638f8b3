package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryMediumSetGet(t *testing.T) {
	m := NewMemoryMedium("writer-1")

	_, ok, err := m.Get("eng_app_tasks")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set("eng_app_tasks", `[{"text":"a"}]`))

	value, ok, err := m.Get("eng_app_tasks")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[{"text":"a"}]`, value)
}

func TestMemoryMediumDelete(t *testing.T) {
	m := NewMemoryMedium("writer-1")

	require.NoError(t, m.Set("eng_app_notes", "[]"))
	require.NoError(t, m.Delete("eng_app_notes"))

	_, ok, err := m.Get("eng_app_notes")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryMediumLastWrite(t *testing.T) {
	m := NewMemoryMedium("writer-1")

	writerID, key, err := m.LastWrite()
	require.NoError(t, err)
	assert.Empty(t, writerID)
	assert.Empty(t, key)

	require.NoError(t, m.Set("eng_app_exams", "[]"))

	writerID, key, err = m.LastWrite()
	require.NoError(t, err)
	assert.Equal(t, "writer-1", writerID)
	assert.Equal(t, "eng_app_exams", key)
}
