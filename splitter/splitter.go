// Package splitter cuts a document's page text into overlapping fixed-size
// windows while keeping page-of-origin attribution per chunk.
package splitter

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"docquery/types"
)

type Splitter struct {
	chunkSize int
	overlap   int
	// tolerance is how far past a page boundary a window may reach before
	// the cut snaps back to the boundary. Half the overlap keeps forward
	// progress guaranteed (tolerance < chunkSize - overlap).
	tolerance int
}

func New(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 || overlap <= 0 {
		return nil, fmt.Errorf("%w: chunk_size=%d overlap=%d must be positive", types.ErrInvalidChunkParams, chunkSize, overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be less than chunk_size %d", types.ErrInvalidChunkParams, overlap, chunkSize)
	}
	return &Splitter{
		chunkSize: chunkSize,
		overlap:   overlap,
		tolerance: overlap / 2,
	}, nil
}

// Split slides a chunkSize window across the concatenated page text,
// advancing by chunkSize-overlap. A window ending within the tolerance past
// a page boundary is cut at the boundary instead, so a page slightly shorter
// than the window becomes its own chunk. Chunk indices are assigned in
// source order starting at 0.
func (s *Splitter) Split(doc *types.Document) ([]types.Chunk, error) {
	var sb strings.Builder
	// pageEnds[i] is the offset just past page i in the concatenated text.
	pageEnds := make([]int, 0, len(doc.Pages))
	for _, p := range doc.Pages {
		sb.WriteString(p.Text)
		pageEnds = append(pageEnds, sb.Len())
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %s", types.ErrEmptyDocument, doc.Source)
	}

	var chunks []types.Chunk
	start := 0
	for {
		end := start + s.chunkSize
		if end >= len(text) {
			end = len(text)
		} else if b, ok := boundaryWithin(pageEnds, end-s.tolerance, end); ok && b > start {
			end = b
		}

		page, pageOffset := pageAt(doc.Pages, pageEnds, start)
		chunks = append(chunks, types.Chunk{
			ID:        uuid.New(),
			DocID:     doc.ID,
			Index:     len(chunks),
			Text:      text[start:end],
			Page:      page,
			Start:     start,
			End:       end,
			PageStart: start - pageOffset,
		})

		if end == len(text) {
			break
		}
		next := end - s.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks, nil
}

// boundaryWithin returns a page end offset in (lo, hi], if any.
func boundaryWithin(pageEnds []int, lo, hi int) (int, bool) {
	for _, b := range pageEnds {
		if b > lo && b <= hi {
			return b, true
		}
	}
	return 0, false
}

// pageAt maps a concatenated-text offset to its 1-based page number and the
// offset at which that page starts.
func pageAt(pages []types.Page, pageEnds []int, offset int) (int, int) {
	pageStart := 0
	for i, end := range pageEnds {
		if offset < end {
			return pages[i].Number, pageStart
		}
		pageStart = end
	}
	if len(pages) == 0 {
		return 1, 0
	}
	return pages[len(pages)-1].Number, pageStart
}
