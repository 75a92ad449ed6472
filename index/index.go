// Package index holds the in-memory similarity index built once per request
// and read-only afterwards. Distance is cosine distance over unit-normalized
// vectors (1 - dot product), the same function used by the pgvector archive.
package index

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"docquery/types"
)

type entry struct {
	chunk  types.Chunk
	vector []float32
	// ord is the index-wide insertion ordinal. Chunk.Index restarts at 0 per
	// document, so ord is the tie-breaker that stays unique across documents.
	ord int
}

// Memory is an exact nearest-neighbor index. Insert is idempotent per chunk
// id: re-inserting the same id replaces the stored vector. The build phase is
// single-writer; Search must not run concurrently with Insert.
type Memory struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]entry
	nextOrd int
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[uuid.UUID]entry),
	}
}

func (m *Memory) Insert(chunk types.Chunk, vector []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ord := m.nextOrd
	if e, ok := m.entries[chunk.ID]; ok {
		ord = e.ord
	} else {
		m.nextOrd++
	}
	m.entries[chunk.ID] = entry{chunk: chunk, vector: vector, ord: ord}
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Search returns up to k chunks ordered ascending by cosine distance, ties
// broken by chunk sequence order and then by insertion order, so identical
// index state and query vector always rank identically. Returns ErrEmptyIndex
// when the index holds no chunks; fewer than k results is not an error.
func (m *Memory) Search(vector []float32, k int) ([]types.RetrievalResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.entries) == 0 {
		return nil, types.ErrEmptyIndex
	}

	type candidate struct {
		types.RetrievalResult
		ord int
	}
	candidates := make([]candidate, 0, len(m.entries))
	for _, e := range m.entries {
		candidates = append(candidates, candidate{
			RetrievalResult: types.RetrievalResult{
				Chunk:    e.chunk,
				Distance: cosineDistance(vector, e.vector),
			},
			ord: e.ord,
		})
	}

	// The map seeds the slice in random order, so every comparison level must
	// be a total order; ord is unique and settles cross-document ties.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		if candidates[i].Chunk.Index != candidates[j].Chunk.Index {
			return candidates[i].Chunk.Index < candidates[j].Chunk.Index
		}
		return candidates[i].ord < candidates[j].ord
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	results := make([]types.RetrievalResult, k)
	for i := range results {
		results[i] = candidates[i].RetrievalResult
		results[i].Rank = i + 1
	}
	return results, nil
}

// cosineDistance assumes both vectors are unit-normalized. Length mismatch
// yields the maximum distance rather than a panic.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return 1 - dot
}
