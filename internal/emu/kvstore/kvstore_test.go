package kvstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAddListRemove(t *testing.T) {
	m := NewMemory()
	err := m.Add([]Record{
		{ID: 3, Type: 1, Key: "c"},
		{ID: 1, Type: 1, Key: "a"},
		{ID: 2, Type: 1, Key: "b"},
		{ID: 10, Type: 2, Key: "other-type"},
	})
	require.NoError(t, err)

	records, total, fetched, err := m.List(1, 2, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.EqualValues(t, 2, fetched)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].Key)
	assert.Equal(t, "b", records[1].Key)

	err = m.Remove(1, []uint32{1, 99})
	require.NoError(t, err)
	records, total, _, err = m.List(1, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[0].Key)
}
