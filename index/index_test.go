package index

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docquery/types"
)

func chunk(idx int) types.Chunk {
	return types.Chunk{ID: uuid.New(), Index: idx, Page: idx + 1}
}

func TestSearch_EmptyIndex(t *testing.T) {
	m := NewMemory()
	_, err := m.Search([]float32{1, 0}, 5)
	assert.ErrorIs(t, err, types.ErrEmptyIndex)
}

func TestSearch_RanksByDistance(t *testing.T) {
	m := NewMemory()
	m.Insert(chunk(0), []float32{1, 0})
	m.Insert(chunk(1), []float32{0, 1})
	m.Insert(chunk(2), []float32{0.7071, 0.7071})

	results, err := m.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, 0, results[0].Chunk.Index)
	assert.Equal(t, 2, results[1].Chunk.Index)
	assert.Equal(t, 1, results[2].Chunk.Index)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, 3, results[2].Rank)
	assert.InDelta(t, 0, results[0].Distance, 1e-6)
}

func TestSearch_TieBreakByChunkOrder(t *testing.T) {
	m := NewMemory()
	// Same vector for every chunk: order must fall back to sequence index.
	for i := 4; i >= 0; i-- {
		m.Insert(chunk(i), []float32{0, 1})
	}

	results, err := m.Search([]float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 5)
	for i, r := range results {
		assert.Equal(t, i, r.Chunk.Index)
	}
}

func TestSearch_CrossDocumentTiesAreStable(t *testing.T) {
	m := NewMemory()
	// Two documents with identical leading chunks: same vector and both
	// Index 0, so only insertion order can separate them.
	first := types.Chunk{ID: uuid.New(), DocID: uuid.New(), Index: 0}
	second := types.Chunk{ID: uuid.New(), DocID: uuid.New(), Index: 0}
	m.Insert(first, []float32{1, 0})
	m.Insert(second, []float32{1, 0})

	for run := 0; run < 200; run++ {
		results, err := m.Search([]float32{1, 0}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, first.ID, results[0].Chunk.ID)
		assert.Equal(t, second.ID, results[1].Chunk.ID)
	}
}

func TestSearch_Deterministic(t *testing.T) {
	m := NewMemory()
	vectors := [][]float32{{1, 0}, {0.6, 0.8}, {0, 1}, {0.8, 0.6}, {0.7071, 0.7071}}
	for i, v := range vectors {
		m.Insert(chunk(i), v)
	}

	query := []float32{0.9, 0.4359}
	first, err := m.Search(query, 5)
	require.NoError(t, err)

	for run := 0; run < 10; run++ {
		again, err := m.Search(query, 5)
		require.NoError(t, err)
		require.Len(t, again, len(first))
		for i := range first {
			assert.Equal(t, first[i].Chunk.ID, again[i].Chunk.ID)
		}
	}
}

func TestSearch_FewerChunksThanK(t *testing.T) {
	m := NewMemory()
	for i := 0; i < 3; i++ {
		m.Insert(chunk(i), []float32{1, 0})
	}

	results, err := m.Search([]float32{1, 0}, 7)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestInsert_IdempotentPerChunkID(t *testing.T) {
	m := NewMemory()
	c := chunk(0)
	m.Insert(c, []float32{0, 1})
	m.Insert(c, []float32{1, 0})

	assert.Equal(t, 1, m.Len())

	results, err := m.Search([]float32{1, 0}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0, results[0].Distance, 1e-6)
}
