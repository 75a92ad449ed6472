package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessingOptions_Normalize(t *testing.T) {
	o := ProcessingOptions{}
	o.Normalize()
	assert.Equal(t, DefaultChunkSize, o.ChunkSize)
	assert.Equal(t, DefaultChunkOverlap, o.ChunkOverlap)
	assert.Equal(t, DefaultTopK, o.TopKRetrieval)

	o = ProcessingOptions{ChunkSize: 500, ChunkOverlap: 50, TopKRetrieval: 3}
	o.Normalize()
	assert.Equal(t, 500, o.ChunkSize)
	assert.Equal(t, 50, o.ChunkOverlap)
	assert.Equal(t, 3, o.TopKRetrieval)
}

func TestAnswerRequest_Validate(t *testing.T) {
	valid := &AnswerRequest{
		Documents: []string{"policy.pdf"},
		Questions: []string{"Is surgery covered?"},
	}
	assert.Nil(t, valid.Validate())

	noDocs := &AnswerRequest{Questions: []string{"q"}}
	errs := noDocs.Validate()
	require.NotNil(t, errs)
	assert.Contains(t, errs, "Documents")

	// An empty question list is valid; blank questions are not.
	emptyQuestions := &AnswerRequest{Documents: []string{"a.pdf"}, Questions: []string{}}
	assert.Nil(t, emptyQuestions.Validate())

	blankQuestion := &AnswerRequest{Documents: []string{"a.pdf"}, Questions: []string{""}}
	assert.NotNil(t, blankQuestion.Validate())

	badFormat := &AnswerRequest{Documents: []string{"a.pdf"}, DocumentFormat: "xml"}
	errs = badFormat.Validate()
	require.NotNil(t, errs)
	assert.Contains(t, errs, "DocumentFormat")
}
